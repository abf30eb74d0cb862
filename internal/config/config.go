// Package config loads service configuration from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"metrocore/internal/core"
	"metrocore/pkg/domain"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr     string
	AllowedOrigins []string
}

// StorageConfig holds the persistence backend settings.
type StorageConfig struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// BlobConfig holds the evidence blob backend settings.
type BlobConfig struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// SLAConfig holds the due-date computation settings.
type SLAConfig struct {
	StageBudgets     map[domain.Stage]int
	ValidationWindow int
	Holidays         []time.Time
}

// Config aggregates all service configuration.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Blob    BlobConfig
	SLA     SLAConfig
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:     ":8080",
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{
			Driver:     string(core.StorageSQLite),
			SQLitePath: "metrocore.db",
		},
		Blob: BlobConfig{
			Driver: "fs",
			FSRoot: "./evidence-data",
		},
		SLA: SLAConfig{
			StageBudgets:     domain.DefaultStageBudgets(),
			ValidationWindow: core.DefaultValidationWindow,
		},
	}
}

// Load reads config.yaml from configPath (if present) and applies
// METROCORE_* environment overrides on top of defaults.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvPrefix("METROCORE")

	v.BindEnv("server.listen_addr", "METROCORE_LISTEN_ADDR")
	v.BindEnv("storage.driver", "METROCORE_STORAGE_DRIVER")
	v.BindEnv("storage.sqlite_path", "METROCORE_SQLITE_PATH")
	v.BindEnv("storage.postgres_dsn", "METROCORE_POSTGRES_DSN")
	v.BindEnv("blob.driver", "METROCORE_BLOB_DRIVER")
	v.BindEnv("blob.fs_root", "METROCORE_BLOB_FS_ROOT")
	v.BindEnv("blob.s3_bucket", "METROCORE_BLOB_S3_BUCKET")
	v.BindEnv("blob.s3_region", "METROCORE_BLOB_S3_REGION")
	v.BindEnv("blob.s3_endpoint", "METROCORE_BLOB_S3_ENDPOINT")
	v.BindEnv("blob.s3_path_style", "METROCORE_BLOB_S3_PATH_STYLE")
	v.BindEnv("sla.validation_window", "METROCORE_VALIDATION_WINDOW")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if v.IsSet("server.listen_addr") {
		cfg.Server.ListenAddr = v.GetString("server.listen_addr")
	}
	if v.IsSet("server.allowed_origins") {
		cfg.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	}
	if v.IsSet("storage.driver") {
		cfg.Storage.Driver = v.GetString("storage.driver")
	}
	if v.IsSet("storage.sqlite_path") {
		cfg.Storage.SQLitePath = v.GetString("storage.sqlite_path")
	}
	if v.IsSet("storage.postgres_dsn") {
		cfg.Storage.PostgresDSN = v.GetString("storage.postgres_dsn")
	}
	if v.IsSet("blob.driver") {
		cfg.Blob.Driver = v.GetString("blob.driver")
	}
	if v.IsSet("blob.fs_root") {
		cfg.Blob.FSRoot = v.GetString("blob.fs_root")
	}
	if v.IsSet("blob.s3_bucket") {
		cfg.Blob.S3Bucket = v.GetString("blob.s3_bucket")
	}
	if v.IsSet("blob.s3_region") {
		cfg.Blob.S3Region = v.GetString("blob.s3_region")
	}
	if v.IsSet("blob.s3_endpoint") {
		cfg.Blob.S3Endpoint = v.GetString("blob.s3_endpoint")
	}
	if v.IsSet("blob.s3_path_style") {
		cfg.Blob.S3PathStyle = v.GetBool("blob.s3_path_style")
	}
	if v.IsSet("sla.validation_window") {
		cfg.SLA.ValidationWindow = v.GetInt("sla.validation_window")
	}
	if v.IsSet("sla.stage_budgets") {
		budgets, err := parseStageBudgets(v.GetStringMapString("sla.stage_budgets"))
		if err != nil {
			return Config{}, err
		}
		cfg.SLA.StageBudgets = budgets
	}
	if v.IsSet("sla.holidays") {
		holidays, err := parseHolidays(v.GetStringSlice("sla.holidays"))
		if err != nil {
			return Config{}, err
		}
		cfg.SLA.Holidays = holidays
	}

	return cfg, nil
}

func parseStageBudgets(raw map[string]string) (map[domain.Stage]int, error) {
	budgets := domain.DefaultStageBudgets()
	for stage, value := range raw {
		if _, ok := domain.StageIndex(domain.Stage(stage)); !ok {
			return nil, fmt.Errorf("unknown stage %q in stage_budgets", stage)
		}
		days, err := strconv.Atoi(value)
		if err != nil || days < 0 {
			return nil, fmt.Errorf("invalid budget %q for stage %q", value, stage)
		}
		budgets[domain.Stage(stage)] = days
	}
	return budgets, nil
}

func parseHolidays(raw []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		day, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", s, err)
		}
		out = append(out, day)
	}
	return out, nil
}
