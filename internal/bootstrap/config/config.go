package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"kiccms/internal/bootstrap/logging"
	"kiccms/internal/errs"
)

const (
	SheetBackendGoogle    = "google"
	SheetBackendCSVExport = "csv-export"
	SheetBackendSQLite    = "sqlite"

	BlobBackendDrive = "drive"
	BlobBackendLocal = "local"
	BlobBackendNone  = "none"

	AuthMethodNone           = "none"
	AuthMethodAPIKey         = "api-key"
	AuthMethodServiceAccount = "service-account"
	AuthMethodUserToken      = "user-token"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sheet    SheetConfig    `mapstructure:"sheet"`
	Blob     BlobConfig     `mapstructure:"blob"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Layout   LayoutConfig   `mapstructure:"layout"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type LogConfig struct {
	Format string `mapstructure:"format"`
	Level  string `mapstructure:"level"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AuthConfig selects how the remote stores are authorized.
type AuthConfig struct {
	Method           string `mapstructure:"method"`
	APIKey           string `mapstructure:"api_key"`
	CredentialsFile  string `mapstructure:"credentials_file"`
	ClientSecretFile string `mapstructure:"client_secret_file"`
	TokenFile        string `mapstructure:"token_file"`
}

type SheetConfig struct {
	Backend          string `mapstructure:"backend"`
	SpreadsheetID    string `mapstructure:"spreadsheet_id"`
	SheetName        string `mapstructure:"sheet_name"`
	ValueInputOption string `mapstructure:"value_input_option"`
}

type BlobConfig struct {
	Backend  string `mapstructure:"backend"`
	FolderID string `mapstructure:"folder_id"`
	Dir      string `mapstructure:"dir"`
}

type SnapshotConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LayoutConfig struct {
	File string `mapstructure:"file"`
}

type HTTPConfig struct {
	Addr           string `mapstructure:"addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("sheet_backend", cfg.Sheet.Backend),
		slog.String("blob_backend", cfg.Blob.Backend),
		slog.String("auth_method", cfg.Auth.Method),
		slog.Duration("snapshot_ttl", cfg.Snapshot.TTL),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "kiccms")
	v.SetDefault("app.env", "local")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".kiccms/state/sheet.sqlite")
	v.SetDefault("auth.method", AuthMethodNone)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.credentials_file", "")
	v.SetDefault("auth.client_secret_file", "")
	v.SetDefault("auth.token_file", "")
	v.SetDefault("sheet.backend", SheetBackendSQLite)
	v.SetDefault("sheet.spreadsheet_id", "")
	v.SetDefault("sheet.sheet_name", "Sheet1")
	v.SetDefault("sheet.value_input_option", "USER_ENTERED")
	v.SetDefault("blob.backend", BlobBackendLocal)
	v.SetDefault("blob.folder_id", "")
	v.SetDefault("blob.dir", ".kiccms/blobs")
	v.SetDefault("snapshot.ttl", "60s")
	v.SetDefault("layout.file", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_upload_bytes", 32<<20)
}

func (c *Config) normalize() {
	c.Auth.Method = strings.ToLower(strings.TrimSpace(c.Auth.Method))
	c.Sheet.Backend = strings.ToLower(strings.TrimSpace(c.Sheet.Backend))
	c.Sheet.SpreadsheetID = strings.TrimSpace(c.Sheet.SpreadsheetID)
	c.Sheet.SheetName = strings.TrimSpace(c.Sheet.SheetName)
	c.Sheet.ValueInputOption = strings.ToUpper(strings.TrimSpace(c.Sheet.ValueInputOption))
	c.Blob.Backend = strings.ToLower(strings.TrimSpace(c.Blob.Backend))
	c.Blob.FolderID = strings.TrimSpace(c.Blob.FolderID)
}

func (c Config) Validate() error {
	switch c.Auth.Method {
	case AuthMethodNone, AuthMethodAPIKey, AuthMethodServiceAccount, AuthMethodUserToken:
	default:
		return fmt.Errorf("unsupported auth.method %q", c.Auth.Method)
	}

	switch c.Sheet.Backend {
	case SheetBackendGoogle, SheetBackendCSVExport:
		if c.Sheet.SpreadsheetID == "" {
			return fmt.Errorf("sheet.spreadsheet_id is required for sheet.backend %q", c.Sheet.Backend)
		}
		if c.Sheet.SheetName == "" {
			return errors.New("sheet.sheet_name is required")
		}
	case SheetBackendSQLite:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn is required for sheet.backend sqlite")
		}
	default:
		return fmt.Errorf("unsupported sheet.backend %q", c.Sheet.Backend)
	}
	if c.Sheet.Backend == SheetBackendGoogle && c.Auth.Method == AuthMethodNone {
		return errors.New("sheet.backend google requires an auth.method")
	}

	switch c.Sheet.ValueInputOption {
	case "RAW", "USER_ENTERED":
	default:
		return fmt.Errorf("unsupported sheet.value_input_option %q", c.Sheet.ValueInputOption)
	}

	switch c.Blob.Backend {
	case BlobBackendNone:
	case BlobBackendLocal:
		if strings.TrimSpace(c.Blob.Dir) == "" {
			return errors.New("blob.dir is required for blob.backend local")
		}
	case BlobBackendDrive:
		if c.Auth.Method == AuthMethodNone || c.Auth.Method == AuthMethodAPIKey {
			return errors.New("blob.backend drive requires service-account or user-token auth")
		}
	default:
		return fmt.Errorf("unsupported blob.backend %q", c.Blob.Backend)
	}

	if c.Snapshot.TTL < 0 {
		return errors.New("snapshot.ttl must not be negative")
	}
	return nil
}

// Location names the configured sheet for logs and cache keys.
func (c SheetConfig) Location() string {
	return c.Backend + ":" + c.SpreadsheetID + "/" + c.SheetName
}
