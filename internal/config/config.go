package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTExpiry     = "JWT_EXPIRY"
	EnvUploadDir     = "UPLOAD_DIR"
	EnvUploadMaxSize = "UPLOAD_MAX_SIZE"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 7 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// UploadConfig holds the uploads directory and upload restrictions.
type UploadConfig struct {
	Dir    string       `yaml:"dir"`
	Policy UploadPolicy `yaml:",inline"`
}

// LoadUploadConfig loads upload settings from the YAML config file and
// environment, layered over base (typically the seeded database
// policy).
func LoadUploadConfig(configPath string, base UploadPolicy) (UploadConfig, error) {
	// fileConfig maps the YAML fields needed for upload settings.
	type fileConfig struct {
		Upload struct {
			Dir           string   `yaml:"dir"`
			MaxSize       *int64   `yaml:"max-size"`
			MimeWhitelist []string `yaml:"mime-whitelist"`
			MimeBlacklist []string `yaml:"mime-blacklist"`
			ExtWhitelist  []string `yaml:"ext-whitelist"`
			ExtBlacklist  []string `yaml:"ext-blacklist"`
		} `yaml:"upload"`
	}

	result := UploadConfig{Dir: "./uploads", Policy: base}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if dir := strings.TrimSpace(cfg.Upload.Dir); dir != "" {
				result.Dir = dir
			}
			if cfg.Upload.MaxSize != nil && *cfg.Upload.MaxSize > 0 {
				result.Policy.MaxSize = *cfg.Upload.MaxSize
			}
			if cfg.Upload.MimeWhitelist != nil {
				result.Policy.MimeWhitelist = cfg.Upload.MimeWhitelist
			}
			if cfg.Upload.MimeBlacklist != nil {
				result.Policy.MimeBlacklist = cfg.Upload.MimeBlacklist
			}
			if cfg.Upload.ExtWhitelist != nil {
				result.Policy.ExtWhitelist = cfg.Upload.ExtWhitelist
			}
			if cfg.Upload.ExtBlacklist != nil {
				result.Policy.ExtBlacklist = cfg.Upload.ExtBlacklist
			}
		}
	}

	if dir := strings.TrimSpace(os.Getenv(EnvUploadDir)); dir != "" {
		result.Dir = dir
	}
	if sizeRaw := strings.TrimSpace(os.Getenv(EnvUploadMaxSize)); sizeRaw != "" {
		if size, errParse := strconv.ParseInt(sizeRaw, 10, 64); errParse == nil && size > 0 {
			result.Policy.MaxSize = size
		}
	}

	if result.Policy.MaxSize <= 0 {
		result.Policy.MaxSize = DefaultUploadPolicy().MaxSize
	}
	return result, nil
}
