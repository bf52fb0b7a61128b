package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "INCSTMT"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Upload    UploadConfig    `yaml:"upload" envconfig:"UPLOAD"`
	Datasets  DatasetConfig   `yaml:"datasets" envconfig:"DATASETS"`
	Sheets    SheetsConfig    `yaml:"sheets" envconfig:"SHEETS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes   int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"30s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// UploadConfig bounds what the ingest endpoints accept
type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes" envconfig:"MAX_BYTES" default:"10485760"`
	AllowedExtensions []string `yaml:"allowed_extensions" envconfig:"ALLOWED_EXTENSIONS" default:".csv,.xlsx"`
	SheetName         string   `yaml:"sheet_name" envconfig:"SHEET_NAME"`
}

// DatasetConfig controls the in-memory dataset store
type DatasetConfig struct {
	Capacity int           `yaml:"capacity" envconfig:"CAPACITY" default:"64"`
	TTL      time.Duration `yaml:"ttl" envconfig:"TTL" default:"2h"`
}

// SheetsConfig configures the Google Sheets import source
type SheetsConfig struct {
	Enabled         bool          `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Endpoint        string        `yaml:"endpoint" envconfig:"ENDPOINT"`
	APIKey          string        `yaml:"api_key" envconfig:"API_KEY"`
	CredentialsFile string        `yaml:"credentials_file" envconfig:"CREDENTIALS_FILE"`
	DefaultRange    string        `yaml:"default_range" envconfig:"DEFAULT_RANGE" default:"A:C"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"20s"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD" default:"54s"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT" default:"60s"`
	MaxMessageSize  int64         `yaml:"max_message_size" envconfig:"MAX_MESSAGE_SIZE" default:"65536"`
}

// TelemetryConfig selects the OpenTelemetry exporters
type TelemetryConfig struct {
	ServiceName    string  `yaml:"service_name" envconfig:"SERVICE_NAME" default:"incomestatement"`
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1"`
}

// Load loads configuration from .env, environment variables and config file.
// Environment variables win over the file whenever they differ from the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// pick keeps the env value unless it is still the default and the file set one
func pick[T comparable](env, file, def T) T {
	var zero T
	if env == def && file != zero {
		return file
	}
	return env
}

func pickSlice(env, file, def []string) []string {
	if slices.Equal(env, def) && len(file) > 0 {
		return file
	}
	return env
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	d := Default()
	f, e := fileConfig, envConfig

	e.Server.Port = pick(e.Server.Port, f.Server.Port, d.Server.Port)
	e.Server.ReadTimeout = pick(e.Server.ReadTimeout, f.Server.ReadTimeout, d.Server.ReadTimeout)
	e.Server.WriteTimeout = pick(e.Server.WriteTimeout, f.Server.WriteTimeout, d.Server.WriteTimeout)
	e.Server.IdleTimeout = pick(e.Server.IdleTimeout, f.Server.IdleTimeout, d.Server.IdleTimeout)
	e.Server.MaxHeaderBytes = pick(e.Server.MaxHeaderBytes, f.Server.MaxHeaderBytes, d.Server.MaxHeaderBytes)
	e.Server.ShutdownTimeout = pick(e.Server.ShutdownTimeout, f.Server.ShutdownTimeout, d.Server.ShutdownTimeout)
	e.Server.OperationTimeout = pick(e.Server.OperationTimeout, f.Server.OperationTimeout, d.Server.OperationTimeout)

	e.Security.AllowedOrigins = pickSlice(e.Security.AllowedOrigins, f.Security.AllowedOrigins, d.Security.AllowedOrigins)
	e.Security.RateLimit.RPS = pick(e.Security.RateLimit.RPS, f.Security.RateLimit.RPS, d.Security.RateLimit.RPS)
	e.Security.RateLimit.Burst = pick(e.Security.RateLimit.Burst, f.Security.RateLimit.Burst, d.Security.RateLimit.Burst)

	e.Logging.Level = pick(e.Logging.Level, f.Logging.Level, d.Logging.Level)
	e.Logging.Output = pick(e.Logging.Output, f.Logging.Output, d.Logging.Output)
	e.Logging.FilePath = pick(e.Logging.FilePath, f.Logging.FilePath, d.Logging.FilePath)
	e.Logging.Development = e.Logging.Development || f.Logging.Development

	e.Upload.MaxBytes = pick(e.Upload.MaxBytes, f.Upload.MaxBytes, d.Upload.MaxBytes)
	e.Upload.AllowedExtensions = pickSlice(e.Upload.AllowedExtensions, f.Upload.AllowedExtensions, d.Upload.AllowedExtensions)
	e.Upload.SheetName = pick(e.Upload.SheetName, f.Upload.SheetName, d.Upload.SheetName)

	e.Datasets.Capacity = pick(e.Datasets.Capacity, f.Datasets.Capacity, d.Datasets.Capacity)
	e.Datasets.TTL = pick(e.Datasets.TTL, f.Datasets.TTL, d.Datasets.TTL)

	e.Sheets.Enabled = e.Sheets.Enabled || f.Sheets.Enabled
	e.Sheets.Endpoint = pick(e.Sheets.Endpoint, f.Sheets.Endpoint, d.Sheets.Endpoint)
	e.Sheets.APIKey = pick(e.Sheets.APIKey, f.Sheets.APIKey, d.Sheets.APIKey)
	e.Sheets.CredentialsFile = pick(e.Sheets.CredentialsFile, f.Sheets.CredentialsFile, d.Sheets.CredentialsFile)
	e.Sheets.DefaultRange = pick(e.Sheets.DefaultRange, f.Sheets.DefaultRange, d.Sheets.DefaultRange)
	e.Sheets.Timeout = pick(e.Sheets.Timeout, f.Sheets.Timeout, d.Sheets.Timeout)

	e.WebSocket.ReadBufferSize = pick(e.WebSocket.ReadBufferSize, f.WebSocket.ReadBufferSize, d.WebSocket.ReadBufferSize)
	e.WebSocket.WriteBufferSize = pick(e.WebSocket.WriteBufferSize, f.WebSocket.WriteBufferSize, d.WebSocket.WriteBufferSize)
	e.WebSocket.PingPeriod = pick(e.WebSocket.PingPeriod, f.WebSocket.PingPeriod, d.WebSocket.PingPeriod)
	e.WebSocket.PongWait = pick(e.WebSocket.PongWait, f.WebSocket.PongWait, d.WebSocket.PongWait)
	e.WebSocket.MaxMessageSize = pick(e.WebSocket.MaxMessageSize, f.WebSocket.MaxMessageSize, d.WebSocket.MaxMessageSize)

	e.Telemetry.ServiceName = pick(e.Telemetry.ServiceName, f.Telemetry.ServiceName, d.Telemetry.ServiceName)
	e.Telemetry.Environment = pick(e.Telemetry.Environment, f.Telemetry.Environment, d.Telemetry.Environment)
	e.Telemetry.TraceExporter = pick(e.Telemetry.TraceExporter, f.Telemetry.TraceExporter, d.Telemetry.TraceExporter)
	e.Telemetry.MetricExporter = pick(e.Telemetry.MetricExporter, f.Telemetry.MetricExporter, d.Telemetry.MetricExporter)
	e.Telemetry.SampleRatio = pick(e.Telemetry.SampleRatio, f.Telemetry.SampleRatio, d.Telemetry.SampleRatio)

	return e
}

// normalize lower-cases enumerations and gives every extension a leading dot
func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Telemetry.TraceExporter = strings.ToLower(strings.TrimSpace(c.Telemetry.TraceExporter))
	c.Telemetry.MetricExporter = strings.ToLower(strings.TrimSpace(c.Telemetry.MetricExporter))

	exts := make([]string, 0, len(c.Upload.AllowedExtensions))
	for _, ext := range c.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	c.Upload.AllowedExtensions = exts
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one upload extension must be allowed")
	}

	if c.Datasets.Capacity <= 0 {
		return fmt.Errorf("dataset capacity must be positive")
	}

	if c.Datasets.TTL < 0 {
		return fmt.Errorf("dataset ttl must not be negative")
	}

	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket ping period must be shorter than pong wait")
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unknown trace exporter: %q", c.Telemetry.TraceExporter)
	}

	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unknown metric exporter: %q", c.Telemetry.MetricExporter)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1]")
	}

	// Logs are always JSON
	c.Logging.Format = "json"

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	if c.Logging.FilePath == "" {
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
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     15 * time.Second,
			IdleTimeout:      60 * time.Second,
			MaxHeaderBytes:   1 << 20, // 1MB
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Upload: UploadConfig{
			MaxBytes:          10 << 20, // 10MB
			AllowedExtensions: []string{".csv", ".xlsx"},
		},
		Datasets: DatasetConfig{
			Capacity: 64,
			TTL:      2 * time.Hour,
		},
		Sheets: SheetsConfig{
			DefaultRange: "A:C",
			Timeout:      20 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      54 * time.Second,
			PongWait:        60 * time.Second,
			MaxMessageSize:  64 << 10,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "incomestatement",
			Environment:    "development",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1,
		},
	}
}
