package cmd

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"kiccms/internal/bootstrap"
	"kiccms/internal/bootstrap/logging"
	"kiccms/internal/errs"
	"kiccms/internal/usecase/intake"
	"kiccms/internal/usecase/intakeconsole"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the terminal dashboard, search and intake form",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *intake.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")
		if refreshInterval <= 0 {
			refreshInterval = app.Config.Snapshot.TTL
		}
		maxRows, _ := cmd.Flags().GetInt("max-rows")

		model := intakeconsole.NewModel(ctx, svc, intakeconsole.Options{
			RefreshInterval: refreshInterval,
			MaxRows:         maxRows,
		})

		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run intake console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().Duration("refresh-interval", 0, "Auto refresh interval (default: snapshot.ttl)")
	consoleCmd.Flags().Int("max-rows", 15, "Rows shown per table")
}
