package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"kiccms/internal/bootstrap/config"
	"kiccms/internal/bootstrap/database"
	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/infrastructure/blob/local"
	"kiccms/internal/infrastructure/credentials"
	"kiccms/internal/infrastructure/google"
	"kiccms/internal/infrastructure/metrics"
	sqliterepo "kiccms/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "kiccms/internal/infrastructure/persistence/sqlite/uow"
	"kiccms/internal/ports"
	"kiccms/internal/usecase/intake"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLayout),
	fx.Provide(provideDatabase),
	fx.Provide(provideCredentials),
	fx.Provide(
		fx.Annotate(
			func() ports.SystemClock { return ports.SystemClock{} },
			fx.As(new(ports.Clock)),
		),
	),
	fx.Provide(provideTabularStore),
	fx.Provide(provideBlobStore),
	fx.Provide(provideRegistry),
	fx.Provide(provideMetrics),
	fx.Provide(provideSnapshotCache),
	fx.Provide(provideService),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideLayout(cfg config.Config) (domainintake.Layout, error) {
	return intake.LoadLayout(cfg.Layout.File)
}

// provideDatabase opens the local database only for the sqlite sheet
// backend; the remote backends run without one.
func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.Sheet.Backend != config.SheetBackendSQLite {
		return nil, nil
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideCredentials(cfg config.Config) (ports.CredentialProvider, error) {
	return credentials.New(cfg.Auth)
}

type storeParams struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB `optional:"true"`
	Provider ports.CredentialProvider
	Clock    ports.Clock
}

func provideTabularStore(p storeParams) (ports.TabularStore, error) {
	sheet := p.Config.Sheet
	switch sheet.Backend {
	case config.SheetBackendGoogle:
		return google.NewSheetsStore(p.Provider, google.SheetsOptions{
			SpreadsheetID:    sheet.SpreadsheetID,
			SheetName:        sheet.SheetName,
			ValueInputOption: sheet.ValueInputOption,
		})
	case config.SheetBackendCSVExport:
		return google.NewCSVExportStore(p.Provider, sheet.SpreadsheetID, sheet.SheetName, "")
	case config.SheetBackendSQLite:
		if p.DB == nil {
			return nil, errors.New("sheet.backend sqlite requires a database")
		}
		return sqliterepo.NewTabularStore(p.DB, sqliteuow.NewUnitOfWork(p.DB), sheet.SheetName, p.Clock), nil
	default:
		return nil, fmt.Errorf("unsupported sheet.backend %q", sheet.Backend)
	}
}

// provideBlobStore returns nil when attachments are disabled.
func provideBlobStore(cfg config.Config, provider ports.CredentialProvider) (ports.BlobStore, error) {
	switch cfg.Blob.Backend {
	case config.BlobBackendNone:
		return nil, nil
	case config.BlobBackendLocal:
		return local.NewStore(cfg.Blob.Dir)
	case config.BlobBackendDrive:
		return google.NewDriveStore(provider, cfg.Blob.FolderID)
	default:
		return nil, fmt.Errorf("unsupported blob.backend %q", cfg.Blob.Backend)
	}
}

func provideRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

func provideMetrics(registry *prometheus.Registry) (ports.IntakeMetrics, error) {
	return metrics.NewIntakeMetrics(registry)
}

func provideSnapshotCache(cfg config.Config, clock ports.Clock) *intake.SnapshotCache {
	return intake.NewSnapshotCache(cfg.Snapshot.TTL, clock)
}

type serviceParams struct {
	fx.In

	Config  config.Config
	Store   ports.TabularStore
	Blobs   ports.BlobStore `optional:"true"`
	Layout  domainintake.Layout
	Cache   *intake.SnapshotCache
	Clock   ports.Clock
	Metrics ports.IntakeMetrics
}

func provideService(p serviceParams) *intake.Service {
	return intake.NewService(p.Store, p.Blobs, p.Layout, p.Cache, p.Clock, intake.Options{
		BlobContainer: p.Config.Blob.FolderID,
		Metrics:       p.Metrics,
	})
}

type appParams struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB `optional:"true"`
	Layout   domainintake.Layout
	Store    ports.TabularStore
	Registry *prometheus.Registry
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		DB:       p.DB,
		Layout:   p.Layout,
		Store:    p.Store,
		Registry: p.Registry,
	}
}
