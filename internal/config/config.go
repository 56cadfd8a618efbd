package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type StorageConfig struct {
	Backend   string // "local" or "s3"
	LocalRoot string
	S3Bucket  string
	S3Region  string
}

type ConverterConfig struct {
	Binary  string
	Timeout time.Duration // 0 disables the deadline
}

type ReportsConfig struct {
	TemplatePath   string
	ExcelSubdir    string
	PDFSubdir      string
	FetchTimeout   time.Duration
	CollageWorkers int
}

type WorkerConfig struct {
	Count        int
	MaxRetries   int
	PollInterval time.Duration
}

type Config struct {
	Environment string
	DB          DBConfig
	Storage     StorageConfig
	Converter   ConverterConfig
	Reports     ReportsConfig
	Worker      WorkerConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetString("DB_CONN_MAX_LIFETIME"),
		},
		Storage: StorageConfig{
			Backend:   v.GetString("STORAGE_BACKEND"),
			LocalRoot: v.GetString("STORAGE_LOCAL_ROOT"),
			S3Bucket:  v.GetString("S3_BUCKET"),
			S3Region:  v.GetString("S3_REGION"),
		},
		Converter: ConverterConfig{
			Binary:  v.GetString("CONVERTER_BIN"),
			Timeout: v.GetDuration("CONVERTER_TIMEOUT"),
		},
		Reports: ReportsConfig{
			TemplatePath:   v.GetString("TEMPLATE_PATH"),
			ExcelSubdir:    v.GetString("REPORTS_EXCEL_SUBDIR"),
			PDFSubdir:      v.GetString("REPORTS_PDF_SUBDIR"),
			FetchTimeout:   v.GetDuration("FETCH_TIMEOUT"),
			CollageWorkers: v.GetInt("COLLAGE_WORKERS"),
		},
		Worker: WorkerConfig{
			Count:        v.GetInt("WORKER_COUNT"),
			MaxRetries:   v.GetInt("WORKER_MAX_RETRIES"),
			PollInterval: v.GetDuration("WORKER_POLL_INTERVAL"),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.LocalRoot == "" {
		cfg.Storage.LocalRoot = "./media"
	}
	if cfg.Converter.Binary == "" {
		cfg.Converter.Binary = "libreoffice"
	}
	if cfg.Reports.ExcelSubdir == "" {
		cfg.Reports.ExcelSubdir = "delivery_reports_excel"
	}
	if cfg.Reports.PDFSubdir == "" {
		cfg.Reports.PDFSubdir = "delivery_reports_pdf"
	}
	if cfg.Reports.FetchTimeout == 0 {
		cfg.Reports.FetchTimeout = 30 * time.Second
	}
	if cfg.Reports.CollageWorkers == 0 {
		cfg.Reports.CollageWorkers = 4
	}
	if cfg.Worker.Count == 0 {
		cfg.Worker.Count = 2
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.PollInterval == 0 {
		cfg.Worker.PollInterval = 5 * time.Minute
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	switch cfg.Storage.Backend {
	case "local":
	case "s3":
		if cfg.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
	}
	return nil
}
