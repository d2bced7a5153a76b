// Package config loads the YAML configuration of the ledger server and tools.
package config

import (
	"fmt"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Render  RenderConfig  `yaml:"render"`
	Auth    AuthConfig    `yaml:"auth"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
	// Mounts lists the path prefixes the API is served under.
	Mounts []string `yaml:"mounts" default:"/api,/admin/api"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver" default:"sqlite"`
	DSN         string `yaml:"dsn" default:"./ledger.db"`
	Compression string `yaml:"compression" default:"zstd"`
}

type RenderConfig struct {
	Engine      string `yaml:"engine" default:"classic"`
	SyntaxTheme string `yaml:"syntax_theme" default:"github"`
}

type AuthConfig struct {
	Enabled    bool   `yaml:"enabled" default:"true"`
	Type       string `yaml:"type" default:"ed25519"`
	HeaderName string `yaml:"header_name" default:"Authorization"`
	// UserID is the identity granted to a valid ed25519 signature, and to
	// every request when authentication is disabled.
	UserID string `yaml:"user_id" default:"admin"`
}

type ArchiveConfig struct {
	Driver   string `yaml:"driver" default:"fs"`
	Dir      string `yaml:"dir" default:"./archive"`
	Bucket   string `yaml:"bucket" default:""`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"posts/"`
}

// Environment variables that override the file. Secrets belong here.
const (
	EnvDBDriver      = "LEDGER_DB_DRIVER"
	EnvDBDSN         = "LEDGER_DB_DSN"
	EnvLogLevel      = "LEDGER_LOG_LEVEL"
	EnvArchiveBucket = "LEDGER_ARCHIVE_BUCKET"
	EnvEd25519PubKey = "ED25519_PUBKEY"
	EnvClerkKey      = "CLERK_API"
	EnvS3AccessKey   = "AWS_ACCESS_KEY_ID"
	EnvS3SecretKey   = "AWS_SECRET_ACCESS_KEY"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&cfg.Storage.Driver, EnvDBDriver)
	override(&cfg.Storage.DSN, EnvDBDSN)
	override(&cfg.Logging.Level, EnvLogLevel)
	override(&cfg.Archive.Bucket, EnvArchiveBucket)
}

func (c *Config) Validate() error {
	checks := []struct {
		field string
		value string
		allow []string
	}{
		{"storage.driver", c.Storage.Driver, []string{"sqlite", "sqlite3", "postgres", "postgresql"}},
		{"storage.compression", c.Storage.Compression, []string{"zstd", "gzip", "none"}},
		{"render.engine", c.Render.Engine, []string{"classic", "mmark"}},
		{"auth.type", c.Auth.Type, []string{"ed25519", "clerk"}},
		{"archive.driver", c.Archive.Driver, []string{"fs", "s3"}},
	}
	for _, check := range checks {
		if !slices.Contains(check.allow, check.value) {
			return fmt.Errorf(ErrInvalidValueFmt, check.field, check.value, strings.Join(check.allow, ", "))
		}
	}

	if len(c.Server.Mounts) == 0 {
		return fmt.Errorf("server.mounts must list at least one prefix")
	}
	for _, m := range c.Server.Mounts {
		if !strings.HasPrefix(m, "/") || (len(m) > 1 && strings.HasSuffix(m, "/")) {
			return fmt.Errorf("server.mounts: %q must start with / and have no trailing /", m)
		}
	}
	if c.Archive.Driver == "s3" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required for the s3 driver")
	}
	return nil
}

func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func ApplyDefaults(config any) {
	applyDefaults(config)
}

func applyDefaults(config any) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
