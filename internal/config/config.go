package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. RFM_SERVER_PORT.
const EnvPrefix = "RFM"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"2m" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	// AnalysisTimeout bounds one pipeline run triggered over HTTP.
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" envconfig:"ANALYSIS_TIMEOUT" default:"90s" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080" validate:"min=1"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"5" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"10" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	EnableTracing  bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING" default:"false"`
	EnableMetrics  bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS" default:"true"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"stdout" validate:"oneof=stdout none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus" validate:"oneof=prometheus none"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1" validate:"gte=0,lte=1"`
}

// AnalysisConfig holds presentation sizes for a run. The mining and
// clustering thresholds are fixed in constants.go.
type AnalysisConfig struct {
	PreviewRows    int   `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" default:"5" validate:"min=0,max=100"`
	TopRules       int   `yaml:"top_rules" envconfig:"TOP_RULES" default:"10" validate:"min=1,max=1000"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"52428800" validate:"min=1024"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration from the environment, overlaid on the YAML file
// at path when it exists. Environment values win.
func LoadFrom(path string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fileConfig, err := loadFromFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file. Keys absent from the file
// keep their defaults.
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	cfg := *Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays explicitly set environment variables on the file
// config. envconfig fills defaults for unset variables, so a field counts as
// set only when its variable is present.
func mergeConfigs(fileConfig, envConfig Config) Config {
	merged := fileConfig

	pick := func(envName string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + envName)
		return ok
	}

	if pick("SERVER_PORT") || merged.Server.Port == 0 {
		merged.Server.Port = envConfig.Server.Port
	}
	if pick("SERVER_READ_TIMEOUT") || merged.Server.ReadTimeout == 0 {
		merged.Server.ReadTimeout = envConfig.Server.ReadTimeout
	}
	if pick("SERVER_WRITE_TIMEOUT") || merged.Server.WriteTimeout == 0 {
		merged.Server.WriteTimeout = envConfig.Server.WriteTimeout
	}
	if pick("SERVER_IDLE_TIMEOUT") || merged.Server.IdleTimeout == 0 {
		merged.Server.IdleTimeout = envConfig.Server.IdleTimeout
	}
	if pick("SERVER_MAX_HEADER_BYTES") || merged.Server.MaxHeaderBytes == 0 {
		merged.Server.MaxHeaderBytes = envConfig.Server.MaxHeaderBytes
	}
	if pick("SERVER_SHUTDOWN_TIMEOUT") || merged.Server.ShutdownTimeout == 0 {
		merged.Server.ShutdownTimeout = envConfig.Server.ShutdownTimeout
	}
	if pick("SERVER_ANALYSIS_TIMEOUT") || merged.Server.AnalysisTimeout == 0 {
		merged.Server.AnalysisTimeout = envConfig.Server.AnalysisTimeout
	}

	if pick("SECURITY_ALLOWED_ORIGINS") || len(merged.Security.AllowedOrigins) == 0 {
		merged.Security.AllowedOrigins = envConfig.Security.AllowedOrigins
	}
	if pick("SECURITY_ENABLE_CORS") {
		merged.Security.EnableCORS = envConfig.Security.EnableCORS
	}
	if pick("SECURITY_RATE_LIMIT_ENABLED") {
		merged.Security.RateLimit.Enabled = envConfig.Security.RateLimit.Enabled
	}
	if pick("SECURITY_RATE_LIMIT_RPS") || merged.Security.RateLimit.RPS == 0 {
		merged.Security.RateLimit.RPS = envConfig.Security.RateLimit.RPS
	}
	if pick("SECURITY_RATE_LIMIT_BURST") || merged.Security.RateLimit.Burst == 0 {
		merged.Security.RateLimit.Burst = envConfig.Security.RateLimit.Burst
	}

	if pick("LOGGING_LEVEL") || merged.Logging.Level == "" {
		merged.Logging.Level = envConfig.Logging.Level
	}
	if pick("LOGGING_FORMAT") || merged.Logging.Format == "" {
		merged.Logging.Format = envConfig.Logging.Format
	}
	if pick("LOGGING_OUTPUT") || merged.Logging.Output == "" {
		merged.Logging.Output = envConfig.Logging.Output
	}
	if pick("LOGGING_FILE_PATH") || merged.Logging.FilePath == "" {
		merged.Logging.FilePath = envConfig.Logging.FilePath
	}

	if pick("TELEMETRY_ENVIRONMENT") || merged.Telemetry.Environment == "" {
		merged.Telemetry.Environment = envConfig.Telemetry.Environment
	}
	if pick("TELEMETRY_ENABLE_TRACING") {
		merged.Telemetry.EnableTracing = envConfig.Telemetry.EnableTracing
	}
	if pick("TELEMETRY_ENABLE_METRICS") {
		merged.Telemetry.EnableMetrics = envConfig.Telemetry.EnableMetrics
	}
	if pick("TELEMETRY_TRACE_EXPORTER") || merged.Telemetry.TraceExporter == "" {
		merged.Telemetry.TraceExporter = envConfig.Telemetry.TraceExporter
	}
	if pick("TELEMETRY_METRIC_EXPORTER") || merged.Telemetry.MetricExporter == "" {
		merged.Telemetry.MetricExporter = envConfig.Telemetry.MetricExporter
	}
	if pick("TELEMETRY_SAMPLE_RATIO") {
		merged.Telemetry.SampleRatio = envConfig.Telemetry.SampleRatio
	}

	if pick("ANALYSIS_PREVIEW_ROWS") {
		merged.Analysis.PreviewRows = envConfig.Analysis.PreviewRows
	}
	if pick("ANALYSIS_TOP_RULES") || merged.Analysis.TopRules == 0 {
		merged.Analysis.TopRules = envConfig.Analysis.TopRules
	}
	if pick("ANALYSIS_MAX_UPLOAD_BYTES") || merged.Analysis.MaxUploadBytes == 0 {
		merged.Analysis.MaxUploadBytes = envConfig.Analysis.MaxUploadBytes
	}

	return merged
}

// Validate checks the struct tags and normalizes the logging format.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			AnalysisTimeout: 90 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     5,
				Burst:   10,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Telemetry: TelemetryConfig{
			Environment:    "development",
			EnableTracing:  false,
			EnableMetrics:  true,
			TraceExporter:  "stdout",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
		Analysis: AnalysisConfig{
			PreviewRows:    DefaultPreviewRows,
			TopRules:       DefaultTopRules,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}
