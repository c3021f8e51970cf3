package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/prediction-service/internal/traffic"
	"github.com/kjstillabower/prediction-service/internal/validation"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	ServiceName        string
	ServiceTitle       string
	ServiceDescription string
	Version            string

	RequestTimeout time.Duration
	MaxBodyBytes   int64

	ModelSchema string
	ArtifactDir string
	ScalerFile  string
	ModelFile   string

	ShutdownTimeout       time.Duration
	InFlightTimeout       time.Duration
	InFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	CORSAllowedOrigins []string

	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Service struct {
		Name        string `yaml:"name"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Version     string `yaml:"version"`
	} `yaml:"service"`

	Request struct {
		Timeout      string `yaml:"timeout"`
		MaxBodyBytes int64  `yaml:"max_body_bytes"`
	} `yaml:"request"`

	Model struct {
		Schema      string `yaml:"schema"`
		ArtifactDir string `yaml:"artifact_dir"`
		ScalerFile  string `yaml:"scaler_file"`
		ModelFile   string `yaml:"model_file"`
	} `yaml:"model"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
}

// envOverrides are applied on top of the YAML file. Empty values leave the file setting alone.
type envOverrides struct {
	ServerPort     string   `env:"SERVER_PORT"`
	ModelSchema    string   `env:"MODEL_SCHEMA"`
	ArtifactDir    string   `env:"ARTIFACT_DIR"`
	ScalerFile     string   `env:"SCALER_FILE"`
	ModelFile      string   `env:"MODEL_FILE"`
	LogLevel       string   `env:"LOG_LEVEL"`
	LogFile        string   `env:"LOG_FILE"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), then applies
// environment overrides. Call from project root.
func Load() (*Config, error) {
	envName := os.Getenv("ENV_NAME")
	if envName == "" {
		envName = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", envName+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg := fromFile(&fc)
	applyOverrides(cfg, &ov)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromFile builds a Config from the parsed file, filling defaults for missing keys.
func fromFile(fc *fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = orDefault(fc.Server.Port, "8080")

	cfg.ModelSchema = orDefault(strings.ToLower(strings.TrimSpace(fc.Model.Schema)), validation.WaterUsage)
	cfg.ServiceName = orDefault(fc.Service.Name, "prediction-service")
	cfg.ServiceTitle = strings.TrimSpace(fc.Service.Title)
	cfg.ServiceDescription = strings.TrimSpace(fc.Service.Description)
	cfg.Version = orDefault(fc.Service.Version, "1.0.0")

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)
	cfg.MaxBodyBytes = fc.Request.MaxBodyBytes
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	cfg.ArtifactDir = orDefault(fc.Model.ArtifactDir, filepath.Join("artifacts", cfg.ModelSchema))
	cfg.ScalerFile = orDefault(fc.Model.ScalerFile, "scaler.json")
	cfg.ModelFile = orDefault(fc.Model.ModelFile, "model.json")

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.InFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.InFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 5
	}

	cfg.CORSAllowedOrigins = fc.CORS.AllowedOrigins
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	cfg.LogLevel = orDefault(fc.Log.Level, "info")
	cfg.LogFile = strings.TrimSpace(fc.Log.File)
	cfg.LogMaxSizeMB = fc.Log.MaxSizeMB
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = 100
	}
	cfg.LogMaxBackups = fc.Log.MaxBackups
	cfg.LogMaxAgeDays = fc.Log.MaxAgeDays
	cfg.LogCompress = fc.Log.Compress
	return cfg
}

func applyOverrides(cfg *Config, ov *envOverrides) {
	if ov.ServerPort != "" {
		cfg.ServerPort = ov.ServerPort
	}
	if ov.ModelSchema != "" {
		schema := strings.ToLower(strings.TrimSpace(ov.ModelSchema))
		// a schema switch without an explicit directory follows the schema's default layout
		if cfg.ArtifactDir == filepath.Join("artifacts", cfg.ModelSchema) {
			cfg.ArtifactDir = filepath.Join("artifacts", schema)
		}
		cfg.ModelSchema = schema
	}
	if ov.ArtifactDir != "" {
		cfg.ArtifactDir = ov.ArtifactDir
	}
	if ov.ScalerFile != "" {
		cfg.ScalerFile = ov.ScalerFile
	}
	if ov.ModelFile != "" {
		cfg.ModelFile = ov.ModelFile
	}
	if ov.LogLevel != "" {
		cfg.LogLevel = ov.LogLevel
	}
	if ov.LogFile != "" {
		cfg.LogFile = ov.LogFile
	}
	if len(ov.AllowedOrigins) > 0 {
		origins := make([]string, 0, len(ov.AllowedOrigins))
		for _, o := range ov.AllowedOrigins {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			cfg.CORSAllowedOrigins = origins
		}
	}
}

func orDefault(s, defaultVal string) string {
	if s = strings.TrimSpace(s); s == "" {
		return defaultVal
	}
	return s
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.ServerPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be a port number, got %q", cfg.ServerPort)
	}
	if _, err := validation.Lookup(cfg.ModelSchema); err != nil {
		return fmt.Errorf("model.schema: %w", err)
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("request.max_body_bytes must be positive, got %d", cfg.MaxBodyBytes)
	}
	if cfg.DegradedWindow > traffic.MaxWindow {
		return fmt.Errorf("health.degraded_window must be at most %s, got %s", traffic.MaxWindow, cfg.DegradedWindow)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("health.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.LogLevel)
	}
	return nil
}
