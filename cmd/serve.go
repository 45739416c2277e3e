package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"kiccms/internal/bootstrap"
	"kiccms/internal/bootstrap/logging"
	"kiccms/internal/errs"
	"kiccms/internal/usecase/intake"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web dashboard, search and intake form",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *intake.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = app.Config.HTTP.Addr
		}

		server := &http.Server{
			Addr: addr,
			Handler: newIntakeHTTPHandler(ctx, svc, intakeWebOptions{
				MaxUploadBytes: app.Config.HTTP.MaxUploadBytes,
				Metrics:        promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		logging.Info(
			ctx,
			"intake web server started",
			slog.String("addr", addr),
			slog.String("location", app.Store.Location()),
		)

		if err := runHTTPServer(ctx, server, server.ListenAndServe); err != nil {
			logging.Error(ctx, "intake web server failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "serve intake web")
		}
		return nil
	}),
}

// runHTTPServer runs serve until it returns and shuts server down when ctx
// ends first. The shutdown goroutine exits with serve.
func runHTTPServer(ctx context.Context, server *http.Server, serve func() error) error {
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		case <-done:
		}
	}()

	err := serve()
	close(done)
	<-stopped
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: http.addr)")
}
