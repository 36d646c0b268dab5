package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names understood by Load.
const (
	EnvConfigFile   = "RESERVATIONS_CONFIG_FILE"
	EnvHTTPPort     = "RESERVATIONS_HTTP_PORT"
	EnvStoreDriver  = "RESERVATIONS_STORE_DRIVER"
	EnvStoreDSN     = "RESERVATIONS_STORE_DSN"
	EnvStoreTimeout = "RESERVATIONS_STORE_TIMEOUT"
	EnvMaxOpenConns = "RESERVATIONS_STORE_MAX_OPEN_CONNS"
	EnvLogLevel     = "RESERVATIONS_LOG_LEVEL"
	EnvLogFormat    = "RESERVATIONS_LOG_FORMAT"
	EnvTracing      = "RESERVATIONS_ENABLE_TRACING"
)

// Store drivers accepted in StoreConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const defaultSQLiteDSN = "reservations.db"

// Config captures the settings of the reservations service.
type Config struct {
	HTTPPort      int         `yaml:"http_port"`
	Store         StoreConfig `yaml:"store"`
	Log           LogConfig   `yaml:"log"`
	EnableTracing bool        `yaml:"enable_tracing"`
}

// StoreConfig selects and tunes the persistence backend.
type StoreConfig struct {
	Driver       string        `yaml:"driver"`
	DSN          string        `yaml:"dsn"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Options names the optional files Load reads before the environment.
type Options struct {
	// ConfigFile is a YAML file with base values. Falls back to RESERVATIONS_CONFIG_FILE.
	ConfigFile string
	// EnvFile is a dotenv file. When empty, ".env" is read if it exists.
	EnvFile string
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		HTTPPort: 8080,
		Store: StoreConfig{
			Driver:       DriverSQLite,
			Timeout:      5 * time.Second,
			MaxOpenConns: 10,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load parses configuration from the process environment only.
func Load() (Config, error) {
	return LoadWithOptions(Options{})
}

// LoadWithOptions resolves configuration in order: defaults, YAML file,
// environment. A dotenv file is loaded first and never overrides variables
// that are already set. Missing and invalid values are reported together.
func LoadWithOptions(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	file := strings.TrimSpace(opts.ConfigFile)
	if file == "" {
		file = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}
	if file != "" {
		if err := loadYAML(file, &cfg); err != nil {
			return Config{}, err
		}
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if value := env(EnvHTTPPort); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil {
			invalid = append(invalid, EnvHTTPPort)
		} else {
			cfg.HTTPPort = port
		}
	}
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = appendOnce(invalid, EnvHTTPPort)
	}

	if value := env(EnvStoreDriver); value != "" {
		cfg.Store.Driver = value
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		invalid = append(invalid, EnvStoreDriver)
	}

	if value := env(EnvStoreDSN); value != "" {
		cfg.Store.DSN = value
	}
	if strings.TrimSpace(cfg.Store.DSN) == "" {
		switch cfg.Store.Driver {
		case DriverPostgres:
			missing = append(missing, EnvStoreDSN)
		case DriverSQLite:
			cfg.Store.DSN = defaultSQLiteDSN
		}
	}

	if value := env(EnvStoreTimeout); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			invalid = append(invalid, EnvStoreTimeout)
		} else {
			cfg.Store.Timeout = timeout
		}
	}
	if cfg.Store.Timeout <= 0 {
		invalid = appendOnce(invalid, EnvStoreTimeout)
	}

	if value := env(EnvMaxOpenConns); value != "" {
		conns, err := strconv.Atoi(value)
		if err != nil {
			invalid = append(invalid, EnvMaxOpenConns)
		} else {
			cfg.Store.MaxOpenConns = conns
		}
	}
	if cfg.Store.MaxOpenConns <= 0 {
		invalid = appendOnce(invalid, EnvMaxOpenConns)
	}

	if value := env(EnvLogLevel); value != "" {
		cfg.Log.Level = value
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		invalid = append(invalid, EnvLogLevel)
	}

	if value := env(EnvLogFormat); value != "" {
		cfg.Log.Format = value
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "json", "text":
	default:
		invalid = append(invalid, EnvLogFormat)
	}

	if value := env(EnvTracing); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			invalid = append(invalid, EnvTracing)
		} else {
			cfg.EnableTracing = enabled
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("faltan variables de entorno obligatorias: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("valores de configuración no válidos: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func loadEnvFile(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("no se pudo leer el archivo de entorno %s: %w", path, err)
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("no se pudo leer el archivo de configuración %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("archivo de configuración %s no válido: %w", path, err)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func appendOnce(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
