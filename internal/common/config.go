package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Extract  ExtractConfig
	OCR      OCRConfig
	Import   ImportConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // postgres | sqlite
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	ConnectRetry     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string
	GRPCAddr        string
	UploadMaxBytes  int64
	UploadDir       string
	ShutdownTimeout time.Duration
}

// AuthConfig holds token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// ExtractConfig holds extraction backend credentials and model variants
type ExtractConfig struct {
	GeminiAPIKey string
	Models       []string
	Timeout      time.Duration
	Temperature  float32
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine        string // ocrspace | tesseract | none
	SpaceAPIKey   string
	SpaceURL      string
	Timeout       time.Duration
	Tesseract     string
	TessdataDir   string
	HeicConverter string
}

// ImportConfig holds the background import worker settings
type ImportConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// DefaultModels is the vision/text model priority order.
var DefaultModels = []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash-exp"}

// DefaultConfig returns the configuration used when neither file nor env sets a value.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
			ConnectRetry:    20 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:        ":5000",
			GRPCAddr:        ":8080",
			UploadMaxBytes:  10 << 20,
			UploadDir:       os.TempDir(),
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			TokenTTL: 7 * 24 * time.Hour,
		},
		Extract: ExtractConfig{
			Models:  append([]string(nil), DefaultModels...),
			Timeout: 45 * time.Second,
		},
		OCR: OCRConfig{
			Engine:        "ocrspace",
			SpaceAPIKey:   "helloworld",
			SpaceURL:      "https://api.ocr.space/parse/imagebase64",
			Timeout:       30 * time.Second,
			Tesseract:     "tesseract",
			HeicConverter: "magick",
		},
		Import: ImportConfig{
			Workers:        2,
			QueueSize:      64,
			ProcessTimeout: 3 * time.Minute,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional TOML file and
// then environment variables, in that order of precedence.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("CARDSCAN_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError("CONFIG_ERROR", "read config file", err)
		}
		var fc fileConfig
		if err := toml.Unmarshal(b, &fc); err != nil {
			return nil, NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
		}
		fc.apply(cfg)
	}
	cfg.applyEnv()
	return cfg, nil
}

// fileConfig is the TOML layout. Durations are whole seconds.
type fileConfig struct {
	Database struct {
		Driver          string `toml:"driver"`
		DSN             string `toml:"dsn"`
		MaxConns        int32  `toml:"max_conns"`
		MinConns        int32  `toml:"min_conns"`
		ConnectRetrySec int    `toml:"connect_retry_seconds"`
	} `toml:"database"`
	Server struct {
		HTTPAddr       string `toml:"http_addr"`
		GRPCAddr       string `toml:"grpc_addr"`
		UploadMaxBytes int64  `toml:"upload_max_bytes"`
		UploadDir      string `toml:"upload_dir"`
	} `toml:"server"`
	Auth struct {
		JWTSecret     string `toml:"jwt_secret"`
		TokenTTLHours int    `toml:"token_ttl_hours"`
	} `toml:"auth"`
	Extract struct {
		GeminiAPIKey   string   `toml:"gemini_api_key"`
		Models         []string `toml:"models"`
		TimeoutSeconds int      `toml:"timeout_seconds"`
	} `toml:"extract"`
	OCR struct {
		Engine         string `toml:"engine"`
		SpaceAPIKey    string `toml:"space_api_key"`
		SpaceURL       string `toml:"space_url"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
		Tesseract      string `toml:"tesseract"`
		TessdataDir    string `toml:"tessdata_dir"`
		HeicConverter  string `toml:"heic_converter"`
	} `toml:"ocr"`
	Import struct {
		Workers   int `toml:"workers"`
		QueueSize int `toml:"queue_size"`
	} `toml:"import"`
}

func (fc fileConfig) apply(c *Config) {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setSeconds := func(dst *time.Duration, n int) {
		if n > 0 {
			*dst = time.Duration(n) * time.Second
		}
	}
	setStr(&c.Database.Driver, fc.Database.Driver)
	setStr(&c.Database.DSN, fc.Database.DSN)
	if fc.Database.MaxConns > 0 {
		c.Database.MaxConns = fc.Database.MaxConns
	}
	if fc.Database.MinConns > 0 {
		c.Database.MinConns = fc.Database.MinConns
	}
	setSeconds(&c.Database.ConnectRetry, fc.Database.ConnectRetrySec)

	setStr(&c.Server.HTTPAddr, fc.Server.HTTPAddr)
	setStr(&c.Server.GRPCAddr, fc.Server.GRPCAddr)
	setStr(&c.Server.UploadDir, fc.Server.UploadDir)
	if fc.Server.UploadMaxBytes > 0 {
		c.Server.UploadMaxBytes = fc.Server.UploadMaxBytes
	}

	setStr(&c.Auth.JWTSecret, fc.Auth.JWTSecret)
	if fc.Auth.TokenTTLHours > 0 {
		c.Auth.TokenTTL = time.Duration(fc.Auth.TokenTTLHours) * time.Hour
	}

	setStr(&c.Extract.GeminiAPIKey, fc.Extract.GeminiAPIKey)
	if len(fc.Extract.Models) > 0 {
		c.Extract.Models = fc.Extract.Models
	}
	setSeconds(&c.Extract.Timeout, fc.Extract.TimeoutSeconds)

	setStr(&c.OCR.Engine, fc.OCR.Engine)
	setStr(&c.OCR.SpaceAPIKey, fc.OCR.SpaceAPIKey)
	setStr(&c.OCR.SpaceURL, fc.OCR.SpaceURL)
	setSeconds(&c.OCR.Timeout, fc.OCR.TimeoutSeconds)
	setStr(&c.OCR.Tesseract, fc.OCR.Tesseract)
	setStr(&c.OCR.TessdataDir, fc.OCR.TessdataDir)
	setStr(&c.OCR.HeicConverter, fc.OCR.HeicConverter)

	if fc.Import.Workers > 0 {
		c.Import.Workers = fc.Import.Workers
	}
	if fc.Import.QueueSize > 0 {
		c.Import.QueueSize = fc.Import.QueueSize
	}
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)
	c.Database.ConnectRetry = getEnvAsDuration("DB_CONNECT_RETRY", c.Database.ConnectRetry)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.UploadMaxBytes = getEnvAsInt64("UPLOAD_MAX_BYTES", c.Server.UploadMaxBytes)
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = getEnvAsDuration("JWT_TTL", c.Auth.TokenTTL)

	c.Extract.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.Extract.GeminiAPIKey)
	c.Extract.Models = getEnvAsList("GEMINI_MODELS", c.Extract.Models)
	c.Extract.Timeout = getEnvAsDuration("EXTRACT_TIMEOUT", c.Extract.Timeout)
	c.Extract.Temperature = getEnvAsFloat32("GEMINI_TEMPERATURE", c.Extract.Temperature)

	c.OCR.Engine = getEnv("OCR_ENGINE", c.OCR.Engine)
	c.OCR.SpaceAPIKey = getEnv("OCR_SPACE_API_KEY", c.OCR.SpaceAPIKey)
	c.OCR.SpaceURL = getEnv("OCR_SPACE_URL", c.OCR.SpaceURL)
	c.OCR.Timeout = getEnvAsDuration("OCR_TIMEOUT", c.OCR.Timeout)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)

	c.Import.Workers = getEnvAsInt("IMPORT_WORKERS", c.Import.Workers)
	c.Import.QueueSize = getEnvAsInt("IMPORT_QUEUE_SIZE", c.Import.QueueSize)
	c.Import.ProcessTimeout = getEnvAsDuration("IMPORT_PROCESS_TIMEOUT", c.Import.ProcessTimeout)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// comma separated
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, s := range strings.Split(value, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration for the server binary.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Auth.JWTSecret == "" {
		return NewAppError("CONFIG_ERROR", "JWT_SECRET is required", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if len(c.Extract.Models) == 0 {
		return NewAppError("CONFIG_ERROR", "GEMINI_MODELS must list at least one model", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "ocrspace", "tesseract", "none":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be ocrspace, tesseract or none", ErrInvalidInput)
	}
	return nil
}
