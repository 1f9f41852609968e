package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the server needs at startup. Values come from
// config.yaml with environment variable overrides (SEEKRAS_PORT, etc.).
type Config struct {
	Port           string   `mapstructure:"port"`
	DBPath         string   `mapstructure:"db_path"`
	MigrationsPath string   `mapstructure:"migrations_path"`
	JWTSecret      string   `mapstructure:"jwt_secret"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	UploadsDir     string   `mapstructure:"uploads_dir"`
}

// Load reads the config file at path, falling back to defaults for anything
// missing. Environment variables prefixed with SEEKRAS_ take precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("port", "5000")
	v.SetDefault("db_path", "./seekras.db")
	v.SetDefault("migrations_path", "pkg/db/migrations/sqlite")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("uploads_dir", "./uploads")

	v.SetEnvPrefix("SEEKRAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// A missing file is fine, defaults and env cover it.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required (set SEEKRAS_JWT_SECRET)")
	}

	return &cfg, nil
}
