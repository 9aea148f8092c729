// Package config loads the daemon configuration from defaults, an optional
// YAML file and CELERIX_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/celerix-dev/celerix-records/internal/engine"
	"github.com/celerix-dev/celerix-records/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. CELERIX_HTTP_ADDR.
const EnvPrefix = "CELERIX"

// Config is the full daemon configuration.
type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      logging.Config `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Response ResponseConfig `mapstructure:"response"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type StorageConfig struct {
	Backend         string        `mapstructure:"backend" validate:"required,oneof=memory file sqlite postgres"`
	DSN             string        `mapstructure:"dsn" validate:"required_if=Backend sqlite,required_if=Backend postgres"`
	DataDir         string        `mapstructure:"data_dir" validate:"required_if=Backend file"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// Options converts the storage section for engine.Open.
func (s StorageConfig) Options() engine.Options {
	return engine.Options{
		Backend:         s.Backend,
		DSN:             s.DSN,
		DataDir:         s.DataDir,
		MaxOpenConns:    s.MaxOpenConns,
		MaxIdleConns:    s.MaxIdleConns,
		ConnMaxLifetime: s.ConnMaxLifetime,
	}
}

type CatalogConfig struct {
	// File is a YAML entity catalog; empty selects the built-in one.
	File string `mapstructure:"file"`
}

type ResponseConfig struct {
	OmitNull bool `mapstructure:"omit_null"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins" validate:"required,min=1"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("storage.backend", engine.BackendMemory)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.max_open_conns", 0)
	v.SetDefault("storage.max_idle_conns", 2)
	v.SetDefault("storage.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", logging.FormatJSON)

	v.SetDefault("catalog.file", "")
	v.SetDefault("response.omit_null", false)
	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

var validate = validator.New()

// Load reads the configuration. file may be empty; a missing explicit file is
// an error.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The connection string is commonly provided by the platform.
	if err := v.BindEnv("storage.dsn", EnvPrefix+"_STORAGE_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
