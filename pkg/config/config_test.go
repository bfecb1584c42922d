package config

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "linear", cfg.WorkingSpace)
	assert.Equal(t, "sRGB", cfg.DisplaySpace)
	assert.Equal(t, "Cineon", cfg.LogSpace)
	assert.Equal(t, int64(512<<20), cfg.CacheBytes)
	assert.Equal(t, 1, cfg.DecodeRetries)
	assert.Equal(t, "auto", cfg.ProbeBackend)
	assert.NoError(t, cfg.Validate())
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moviereader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
working_space: ACEScg
cache_bytes: 1048576
revalidate_after: 5s
probe_backend: native
s3:
  region: eu-west-1
  endpoint: http://localhost:9000
server:
  addr: 0.0.0.0:9000
  allowed_origins: [https://review.example.com]
sheet:
  columns: 4
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "ACEScg", cfg.WorkingSpace)
	assert.Equal(t, "sRGB", cfg.DisplaySpace, "unset fields keep defaults")
	assert.Equal(t, int64(1048576), cfg.CacheBytes)
	assert.Equal(t, 5*time.Second, cfg.RevalidateAfter)
	assert.Equal(t, "native", cfg.ProbeBackend)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://review.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 4, cfg.Sheet.Columns)
	assert.Equal(t, 192, cfg.Sheet.ThumbWidth)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFromFile(writeConfig(t, "workers: [1, 2"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	cfg.WorkingSpace = "from-file"

	err := ApplyEnv(context.Background(), &cfg, envconfig.MapLookuper(map[string]string{
		"MOVIEREADER_WORKING_SPACE":          "linear-rec709",
		"MOVIEREADER_DECODE_RETRIES":         "3",
		"MOVIEREADER_REVALIDATE_AFTER":       "250ms",
		"MOVIEREADER_S3_REGION":              "us-west-2",
		"MOVIEREADER_SERVER_ALLOWED_ORIGINS": "https://a.example.com,https://b.example.com",
		"MOVIEREADER_SHEET_COLUMNS":          "8",
		"WORKERS":                            "99",
	}))
	require.NoError(t, err)

	assert.Equal(t, "linear-rec709", cfg.WorkingSpace, "environment overrides the file")
	assert.Equal(t, 3, cfg.DecodeRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RevalidateAfter)
	assert.Equal(t, "us-west-2", cfg.S3.Region)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 8, cfg.Sheet.Columns)
	assert.Equal(t, 4, cfg.Workers, "unprefixed variables are ignored")
	assert.Equal(t, "sRGB", cfg.DisplaySpace, "unset variables keep the current value")
}

func TestApplyEnv_BadValue(t *testing.T) {
	cfg := Defaults()
	err := ApplyEnv(context.Background(), &cfg, envconfig.MapLookuper(map[string]string{
		"MOVIEREADER_CACHE_BYTES": "lots",
	}))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")
	t.Setenv("MOVIEREADER_WORKERS", "2")

	cfg, err := Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "probe_backend: gstreamer\n")

	_, err := Load(context.Background(), path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty working space", func(c *Config) { c.WorkingSpace = "" }, "WorkingSpace"},
		{"negative cache", func(c *Config) { c.CacheBytes = -1 }, "CacheBytes"},
		{"too many retries", func(c *Config) { c.DecodeRetries = 11 }, "DecodeRetries"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "Workers"},
		{"bad backend", func(c *Config) { c.ProbeBackend = "vlc" }, "ProbeBackend"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LogLevel"},
		{"debug without dir", func(c *Config) { c.Debug = true; c.DebugDir = "" }, "DebugDir"},
		{"bad endpoint", func(c *Config) { c.S3.Endpoint = "not a url" }, "Endpoint"},
		{"key without secret", func(c *Config) { c.S3.AccessKeyID = "AKIA" }, "SecretAccessKey"},
		{"bad addr", func(c *Config) { c.Server.Addr = "localhost" }, "Addr"},
		{"bad color", func(c *Config) { c.Sheet.LabelColor = "white" }, "LabelColor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestParseColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 0x18, G: 0x18, B: 0x18, A: 255}, ParseColor("#181818"))
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x00, B: 0xaa, A: 255}, ParseColor("f0a"))
	assert.Equal(t, color.Black, ParseColor("nope"))
	assert.Equal(t, color.Black, ParseColor(""))
}
