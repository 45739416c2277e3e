package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
	"kiccms/internal/infrastructure/persistence/sqlite/model"
	"kiccms/internal/ports"
)

type App struct {
	Config   config.Config
	DB       *gorm.DB
	Layout   domainintake.Layout
	Store    ports.TabularStore
	Registry *prometheus.Registry
}

type headerSeeder interface {
	SeedHeader(ctx context.Context, header []string) (bool, error)
}

// InitSchema migrates the local sheet tables and writes the layout header
// when the sheet has none. Remote backends have nothing to migrate.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	if a.DB == nil {
		logging.Info(logCtx, "no local database configured, skip schema migration", slog.String("sheet_backend", a.Config.Sheet.Backend))
		return nil
	}

	logging.Info(logCtx, "start schema migration")
	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	seeder, ok := a.Store.(headerSeeder)
	if !ok {
		logging.Info(logCtx, "schema migration completed")
		return nil
	}
	created, err := seeder.SeedHeader(ctx, a.Layout.Header())
	if err != nil {
		return errs.Wrap(err, "seed sheet header")
	}

	logging.Info(logCtx, "schema migration completed",
		slog.String("location", a.Store.Location()),
		slog.Bool("header_created", created),
	)
	return nil
}
