package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/pkg/database"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Output backends
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Export   ExportConfig   `mapstructure:"export"`
	Output   OutputConfig   `mapstructure:"output"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AllowOrigin  string        `mapstructure:"allow_origin"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite3 or postgres
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ToDatabaseConfig converts to the connection settings of pkg/database
func (c DatabaseConfig) ToDatabaseConfig() database.Config {
	return database.Config{
		Driver:          c.Driver,
		Path:            c.Path,
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// GeometryConfig is the page geometry of one output format
type GeometryConfig struct {
	PageCapacity             float64 `mapstructure:"page_capacity"`
	RowHeight                float64 `mapstructure:"row_height"`
	HeaderHeight             float64 `mapstructure:"header_height"`
	ContinuationHeaderHeight float64 `mapstructure:"continuation_header_height"`
}

// PlanOptions converts to planner options
func (g GeometryConfig) PlanOptions() payroll.PlanOptions {
	return payroll.PlanOptions{
		PageCapacity:             g.PageCapacity,
		RowHeight:                g.RowHeight,
		HeaderHeight:             g.HeaderHeight,
		ContinuationHeaderHeight: g.ContinuationHeaderHeight,
	}
}

// ExportConfig holds transfer order generation settings
type ExportConfig struct {
	TemplateDir    string         `mapstructure:"template_dir"`
	Language       string         `mapstructure:"language"` // amount-in-words language
	Excel          GeometryConfig `mapstructure:"excel"`    // points
	PDF            GeometryConfig `mapstructure:"pdf"`      // millimetres
	PaymentMention string         `mapstructure:"payment_mention"`
	RappelMention  string         `mapstructure:"rappel_mention"`
}

// OutputConfig holds generated document storage settings
type OutputConfig struct {
	Backend string `mapstructure:"backend"` // local or gcs
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file and environment variables. An empty
// configPath uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAYROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	// Database defaults
	v.SetDefault("database.driver", database.DriverSQLite)
	v.SetDefault("database.path", "data/payroll.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Export defaults
	v.SetDefault("export.template_dir", "templates")
	v.SetDefault("export.language", "fr")
	v.SetDefault("export.excel.page_capacity", 1560)
	v.SetDefault("export.excel.row_height", 60.75)
	v.SetDefault("export.excel.header_height", 540)
	v.SetDefault("export.excel.continuation_header_height", 0)
	v.SetDefault("export.pdf.page_capacity", 267)
	v.SetDefault("export.pdf.row_height", 8)
	v.SetDefault("export.pdf.header_height", 40)
	v.SetDefault("export.pdf.continuation_header_height", 18)
	v.SetDefault("export.payment_mention", "INDEMNITE DE FONCTION DES MEDECINS RESIDENTS - {period}")
	v.SetDefault("export.rappel_mention", "RAPPEL DE L'INDEMNITE DE FONCTION DES MEDECINS RESIDENTS - {period}")

	// Output defaults
	v.SetDefault("output.backend", BackendLocal)
	v.SetDefault("output.dir", "generated_orders")
	v.SetDefault("output.prefix", "transfer-orders")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds well-known environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.dsn":  "DATABASE_URL",
		"output.bucket": "GCS_BUCKET",
		"logger.level":  "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "PAYROLL_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	// Validate database
	switch c.Database.Driver {
	case database.DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite3")
		}
	case database.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn (or DATABASE_URL) is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be %s or %s, got %q", database.DriverSQLite, database.DriverPostgres, c.Database.Driver)
	}

	// Validate export
	if c.Export.TemplateDir == "" {
		return fmt.Errorf("export.template_dir is required")
	}
	if _, err := payroll.NewNumeralSpeller(c.Export.Language); err != nil {
		return fmt.Errorf("export.language: %w", err)
	}
	if err := c.Export.Excel.PlanOptions().Validate(); err != nil {
		return fmt.Errorf("export.excel: %w", err)
	}
	if err := c.Export.PDF.PlanOptions().Validate(); err != nil {
		return fmt.Errorf("export.pdf: %w", err)
	}

	// Validate output
	switch c.Output.Backend {
	case BackendLocal:
		if c.Output.Dir == "" {
			return fmt.Errorf("output.dir is required for the local backend")
		}
	case BackendGCS:
		if c.Output.Bucket == "" {
			return fmt.Errorf("output.bucket (or GCS_BUCKET) is required for the gcs backend")
		}
	default:
		return fmt.Errorf("output.backend must be %s or %s, got %q", BackendLocal, BackendGCS, c.Output.Backend)
	}

	// Validate logger
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}
