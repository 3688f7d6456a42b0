// Package config loads the settings of the pdfcompare command and server.
// Values come from, in increasing priority: defaults, a pdfcompare.yaml
// file, a .env file and PDFCOMPARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tsawler/pdfcompare/annotate"
	"github.com/tsawler/pdfcompare/extract"
	"github.com/tsawler/pdfcompare/highlight"
	"github.com/tsawler/pdfcompare/ocr"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use
// underscores, so server.addr is PDFCOMPARE_SERVER_ADDR.
const EnvPrefix = "PDFCOMPARE"

// Config holds all settings.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Annotate AnnotateConfig `mapstructure:"annotate"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RemoteConfig points at an extraction service. An empty URL disables it.
type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OCRConfig holds page recognition settings.
type OCRConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Languages     []string `mapstructure:"languages"`
	DPI           float64  `mapstructure:"dpi"`
	MaxPixels     int      `mapstructure:"max_pixels"`
	MinConfidence float64  `mapstructure:"min_confidence"`
}

// ExtractConfig mirrors extract.Config.
type ExtractConfig struct {
	MergeGap           float64 `mapstructure:"merge_gap"`
	LineTolerance      float64 `mapstructure:"line_tolerance"`
	DescentRatio       float64 `mapstructure:"descent_ratio"`
	MinDirectTextChars int     `mapstructure:"min_direct_text_chars"`
	OCRSupplement      bool    `mapstructure:"ocr_supplement"`
}

// AnnotateConfig holds overlay settings.
type AnnotateConfig struct {
	Opacity      float64 `mapstructure:"opacity"`
	StrokeWidth  float64 `mapstructure:"stroke_width"`
	HeightFactor float64 `mapstructure:"height_factor"`
	Legend       bool    `mapstructure:"legend"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	ex := extract.DefaultConfig()
	oc := ocr.DefaultConfig()
	an := annotate.DefaultOptions()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxUploadBytes:  50 << 20,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Remote: RemoteConfig{
			Timeout: 60 * time.Second,
		},
		OCR: OCRConfig{
			Languages:     oc.Languages,
			DPI:           oc.DPI,
			MaxPixels:     oc.MaxPixels,
			MinConfidence: oc.MinConfidence,
		},
		Extract: ExtractConfig{
			MergeGap:           ex.MergeGap,
			LineTolerance:      ex.LineTolerance,
			DescentRatio:       ex.DescentRatio,
			MinDirectTextChars: ex.MinDirectTextChars,
			OCRSupplement:      ex.OCRSupplement,
		},
		Annotate: AnnotateConfig{
			Opacity:      an.Opacity,
			StrokeWidth:  an.StrokeWidth,
			HeightFactor: highlight.DefaultHeightFactor,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration. When path is empty, pdfcompare.yaml is
// searched in the working directory, $HOME/.pdfcompare and /etc/pdfcompare,
// and a missing file is not an error. A .env file in the working directory
// is loaded into the environment first.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pdfcompare")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.pdfcompare")
		v.AddConfigPath("/etc/pdfcompare")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// newViper returns a viper instance with every key defaulted, so that
// AutomaticEnv can see all of them during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("remote.url", d.Remote.URL)
	v.SetDefault("remote.timeout", d.Remote.Timeout)

	v.SetDefault("ocr.enabled", d.OCR.Enabled)
	v.SetDefault("ocr.languages", d.OCR.Languages)
	v.SetDefault("ocr.dpi", d.OCR.DPI)
	v.SetDefault("ocr.max_pixels", d.OCR.MaxPixels)
	v.SetDefault("ocr.min_confidence", d.OCR.MinConfidence)

	v.SetDefault("extract.merge_gap", d.Extract.MergeGap)
	v.SetDefault("extract.line_tolerance", d.Extract.LineTolerance)
	v.SetDefault("extract.descent_ratio", d.Extract.DescentRatio)
	v.SetDefault("extract.min_direct_text_chars", d.Extract.MinDirectTextChars)
	v.SetDefault("extract.ocr_supplement", d.Extract.OCRSupplement)

	v.SetDefault("annotate.opacity", d.Annotate.Opacity)
	v.SetDefault("annotate.stroke_width", d.Annotate.StrokeWidth)
	v.SetDefault("annotate.height_factor", d.Annotate.HeightFactor)
	v.SetDefault("annotate.legend", d.Annotate.Legend)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	return v
}

// Validate checks that the values are usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server.request_timeout must be positive")
	}
	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("remote.url %q must be an http or https URL", c.Remote.URL)
		}
	}
	if c.Remote.Timeout <= 0 {
		return errors.New("remote.timeout must be positive")
	}
	if c.OCR.DPI < 36 || c.OCR.DPI > 1200 {
		return fmt.Errorf("ocr.dpi %.0f out of range [36, 1200]", c.OCR.DPI)
	}
	if len(c.OCR.Languages) == 0 {
		return errors.New("ocr.languages must not be empty")
	}
	if err := c.LocalConfig().Validate(); err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if c.Annotate.HeightFactor < 1 {
		return fmt.Errorf("annotate.height_factor %.2f must be at least 1", c.Annotate.HeightFactor)
	}
	if c.Annotate.Opacity <= 0 || c.Annotate.Opacity > 1 {
		return fmt.Errorf("annotate.opacity %.2f out of range (0, 1]", c.Annotate.Opacity)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	return nil
}

// LocalConfig returns the local extractor settings.
func (c *Config) LocalConfig() extract.Config {
	return extract.Config{
		MergeGap:           c.Extract.MergeGap,
		LineTolerance:      c.Extract.LineTolerance,
		DescentRatio:       c.Extract.DescentRatio,
		MinDirectTextChars: c.Extract.MinDirectTextChars,
		OCRSupplement:      c.Extract.OCRSupplement,
	}
}

// EngineConfig returns the recognition engine settings.
func (c *Config) EngineConfig() ocr.Config {
	return ocr.Config{
		Languages:     c.OCR.Languages,
		DPI:           c.OCR.DPI,
		MaxPixels:     c.OCR.MaxPixels,
		MinConfidence: c.OCR.MinConfidence,
	}
}

// AnnotateOptions returns the overlay settings with the default colors.
func (c *Config) AnnotateOptions() annotate.Options {
	opts := annotate.DefaultOptions()
	opts.Opacity = c.Annotate.Opacity
	opts.StrokeWidth = c.Annotate.StrokeWidth
	opts.Legend = c.Annotate.Legend
	return opts
}
