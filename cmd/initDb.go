package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"kiccms/internal/bootstrap"
	"kiccms/internal/bootstrap/logging"
	"kiccms/internal/errs"
	"kiccms/internal/usecase/intake"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the local sheet tables and write the layout header",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ *intake.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start init-db")

		if err := app.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		logging.Info(ctx, "init-db finished", slog.String("location", app.Store.Location()))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "sheet initialized: %s\n", app.Store.Location()); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)
}
