package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"kiccms/internal/bootstrap"
	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/usecase/intake"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show totals, per-status counts and the top groups",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *intake.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		outputRaw, _ := cmd.Flags().GetString("output")
		refresh, _ := cmd.Flags().GetBool("refresh")
		format, err := parseOutputFormat(outputRaw)
		if err != nil {
			return err
		}

		if refresh {
			if _, err := svc.Refresh(ctx); err != nil {
				return err
			}
		}
		view, err := svc.Dashboard(ctx)
		if err != nil {
			return err
		}

		if format != outputTable {
			return writeStructured(cmd.OutOrStdout(), format, view.Summary)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), renderSummary(view.Summary))
		return err
	}),
}

func renderSummary(summary domainintake.Summary) string {
	statusRows := make([][]string, 0, len(summary.StatusCounts)+1)
	statusRows = append(statusRows, []string{"Total", strconv.Itoa(summary.Total)})
	for _, item := range summary.StatusCounts {
		statusRows = append(statusRows, []string{item.Value, strconv.Itoa(item.Count)})
	}

	groupRows := make([][]string, 0, len(summary.TopGroups))
	for index, bar := range summary.GroupBars() {
		groupRows = append(groupRows, []string{
			strconv.Itoa(index + 1),
			bar.Value,
			strconv.Itoa(bar.Count),
			barStyle.Render(strings.Repeat("█", bar.Cells(summaryBarWidth))),
		})
	}

	return renderTable([]string{summary.StatusLabel, "Count"}, statusRows) + "\n" +
		renderTable([]string{"#", summary.GroupLabel, "Count", ""}, groupRows)
}

const summaryBarWidth = 24

var barStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().StringP("output", "o", outputTable, "Output format (table|json|yaml)")
	dashboardCmd.Flags().Bool("refresh", false, "Bypass the snapshot cache")
}
