package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"kiccms/internal/bootstrap"
	"kiccms/internal/bootstrap/logging"
	"kiccms/internal/errs"
	"kiccms/internal/usecase/intake"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Record one calibration intake",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *intake.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		receipt, _ := cmd.Flags().GetString("receipt")
		company, _ := cmd.Flags().GetString("company")
		deviceName, _ := cmd.Flags().GetString("device-name")
		deviceSerial, _ := cmd.Flags().GetString("device-serial")
		status, _ := cmd.Flags().GetString("status")
		attachmentPath, _ := cmd.Flags().GetString("attachment")
		contentType, _ := cmd.Flags().GetString("content-type")
		outputRaw, _ := cmd.Flags().GetString("output")

		format, err := parseOutputFormat(outputRaw)
		if err != nil {
			return err
		}

		input := intake.SubmitInput{
			ReceiptNumber: receipt,
			Company:       company,
			DeviceName:    deviceName,
			DeviceSerial:  deviceSerial,
			Status:        status,
		}
		if path := strings.TrimSpace(attachmentPath); path != "" {
			file, err := os.Open(path)
			if err != nil {
				return errs.E(errs.KindValidation, errs.Wrap(err, "open attachment"))
			}
			defer file.Close()
			input.Attachment = &intake.Attachment{
				Name:        filepath.Base(path),
				ContentType: contentType,
				Body:        file,
			}
		}

		result, err := svc.Submit(ctx, input)
		if err != nil {
			return err
		}

		if format != outputTable {
			return writeStructured(cmd.OutOrStdout(), format, result.Record)
		}
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "saved receipt %s (%s)\n", result.Record.ReceiptNumber, result.Record.Status)
		if link := result.ReportLink(); link != "" {
			_, _ = fmt.Fprintf(out, "report: %s\n", link)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(submitCmd)
	submitCmd.Flags().String("receipt", "", "Receipt number (required)")
	submitCmd.Flags().String("company", "", "Customer company (required)")
	submitCmd.Flags().String("device-name", "", "Device name")
	submitCmd.Flags().String("device-serial", "", "Device serial number")
	submitCmd.Flags().String("status", "", "Status (default: first status of the layout)")
	submitCmd.Flags().String("attachment", "", "Calibration report file to upload")
	submitCmd.Flags().String("content-type", "", "Attachment content type (default application/octet-stream)")
	submitCmd.Flags().StringP("output", "o", outputTable, "Output format (table|json|yaml)")
}
