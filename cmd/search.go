package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kiccms/internal/bootstrap"
	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/usecase/intake"
)

type searchOutput struct {
	Query   string                `json:"query" yaml:"query"`
	Matches int                   `json:"matches" yaml:"matches"`
	Total   int                   `json:"total" yaml:"total"`
	Records []domainintake.Record `json:"records" yaml:"records"`
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "List rows containing the query in any cell (case-sensitive)",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *intake.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		query := ""
		if len(cmd.Flags().Args()) > 0 {
			query = cmd.Flags().Arg(0)
		}
		outputRaw, _ := cmd.Flags().GetString("output")
		format, err := parseOutputFormat(outputRaw)
		if err != nil {
			return err
		}

		view, err := svc.Search(ctx, query)
		if err != nil {
			return err
		}

		if format != outputTable {
			records := view.Results.Records
			if records == nil {
				records = []domainintake.Record{}
			}
			return writeStructured(cmd.OutOrStdout(), format, searchOutput{
				Query:   view.Query,
				Matches: view.Results.Len(),
				Total:   view.Total,
				Records: records,
			})
		}

		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "%d of %d rows\n", view.Results.Len(), view.Total)
		if view.Results.IsEmpty() {
			return nil
		}
		_, err = fmt.Fprintln(out, renderTable(view.Results.Header, view.Results.Rows))
		return err
	}),
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringP("output", "o", outputTable, "Output format (table|json|yaml)")
}
