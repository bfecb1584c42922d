// Package config provides configuration loading and management.
package config

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MOVIEREADER_"

// ErrInvalid is returned when a configuration fails validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config represents the full configuration for moviereader.
type Config struct {
	// Color
	WorkingSpace string `yaml:"working_space" env:"WORKING_SPACE, overwrite" validate:"required"`
	DisplaySpace string `yaml:"display_space" env:"DISPLAY_SPACE, overwrite" validate:"required"`
	LogSpace     string `yaml:"log_space" env:"LOG_SPACE, overwrite" validate:"required"`

	// Pipeline
	CacheBytes      int64         `yaml:"cache_bytes" env:"CACHE_BYTES, overwrite" validate:"gte=0"`
	DecodeRetries   int           `yaml:"decode_retries" env:"DECODE_RETRIES, overwrite" validate:"gte=0,lte=10"`
	RevalidateAfter time.Duration `yaml:"revalidate_after" env:"REVALIDATE_AFTER, overwrite" validate:"gte=0"`
	Workers         int           `yaml:"workers" env:"WORKERS, overwrite" validate:"gte=1,lte=64"`

	// Media tools
	FFmpegPath   string `yaml:"ffmpeg_path" env:"FFMPEG_PATH, overwrite"`
	FFprobePath  string `yaml:"ffprobe_path" env:"FFPROBE_PATH, overwrite"`
	ProbeBackend string `yaml:"probe_backend" env:"PROBE_BACKEND, overwrite" validate:"oneof=auto ffprobe native"`

	S3     S3Config     `yaml:"s3" env:", prefix=S3_"`
	Server ServerConfig `yaml:"server" env:", prefix=SERVER_"`
	Sheet  SheetConfig  `yaml:"sheet" env:", prefix=SHEET_"`

	// Logging and debug
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL, overwrite" validate:"oneof=debug info warn error quiet"`
	Debug    bool   `yaml:"debug" env:"DEBUG, overwrite"`
	DebugDir string `yaml:"debug_dir" env:"DEBUG_DIR, overwrite" validate:"required_if=Debug true"`
}

// S3Config holds settings for s3:// media.
type S3Config struct {
	Region          string `yaml:"region" env:"REGION, overwrite"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT, overwrite" validate:"omitempty,url"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID, overwrite"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY, overwrite" validate:"required_with=AccessKeyID"`
	CacheDir        string `yaml:"cache_dir" env:"CACHE_DIR, overwrite"`
}

// ServerConfig holds frame server settings.
type ServerConfig struct {
	Addr           string   `yaml:"addr" env:"ADDR, overwrite" validate:"required,hostname_port"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS, overwrite"`
}

// SheetConfig holds contact sheet defaults.
type SheetConfig struct {
	Columns         int    `yaml:"columns" env:"COLUMNS, overwrite" validate:"gte=1,lte=32"`
	ThumbWidth      int    `yaml:"thumb_width" env:"THUMB_WIDTH, overwrite" validate:"gte=16,lte=4096"`
	BackgroundColor string `yaml:"background_color" env:"BACKGROUND_COLOR, overwrite" validate:"omitempty,hexcolor"`
	BorderColor     string `yaml:"border_color" env:"BORDER_COLOR, overwrite" validate:"omitempty,hexcolor"`
	LabelColor      string `yaml:"label_color" env:"LABEL_COLOR, overwrite" validate:"omitempty,hexcolor"`
	FontPath        string `yaml:"font_path" env:"FONT_PATH, overwrite"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		// Color
		WorkingSpace: "linear",
		DisplaySpace: "sRGB",
		LogSpace:     "Cineon",

		// Pipeline
		CacheBytes:    512 << 20,
		DecodeRetries: 1,
		Workers:       4,

		// Media tools
		ProbeBackend: "auto",

		Server: ServerConfig{
			Addr:           "127.0.0.1:8650",
			AllowedOrigins: []string{"*"},
		},
		Sheet: SheetConfig{
			Columns:         6,
			ThumbWidth:      192,
			BackgroundColor: "#181818",
			BorderColor:     "#505050",
			LabelColor:      "#dcdcdc",
		},

		LogLevel: "info",
		DebugDir: "./debug",
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path when path is not empty, then environment overrides.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(ctx, &cfg, envconfig.OsLookuper()); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides cfg with MOVIEREADER_* variables found by lookuper.
func ApplyEnv(ctx context.Context, cfg *Config, lookuper envconfig.Lookuper) error {
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, lookuper),
	})
	if err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every violation at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// ParseColor parses a hex color string to color.Color.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		rgb[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
