// Package config loads server settings from defaults, an optional YAML file,
// an optional .env file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vanman2024/content-image-generation-mcp/internal/pricing"
)

const (
	DefaultServerName     = "Content & Image Generation"
	DefaultOutputDir      = "output"
	DefaultHTTPAddr       = ":8000"
	DefaultAirtableBaseID = "appHbSB7WhT1TxEQb"
	DefaultAirtableServer = "unknown-server"
)

type Config struct {
	ServerName string          `yaml:"server_name"`
	OutputDir  string          `yaml:"output_dir"`
	LedgerPath string          `yaml:"ledger_path"`
	HTTPAddr   string          `yaml:"http_addr"`
	Log        LogConfig       `yaml:"log"`
	Google     GoogleConfig    `yaml:"google"`
	Anthropic  AnthropicConfig `yaml:"anthropic"`
	S3         S3Config        `yaml:"s3"`
	Airtable   AirtableConfig  `yaml:"airtable"`
	Pricing    []PriceOverride `yaml:"pricing"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is auto, text or json. auto picks colored text on a terminal.
	Format string `yaml:"format"`
}

type GoogleConfig struct {
	APIKey          string `yaml:"api_key"`
	VideoTimeoutSec int    `yaml:"video_timeout_seconds"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// S3Config enables mirroring of generated assets when Bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

type AirtableConfig struct {
	Token      string `yaml:"token"`
	BaseID     string `yaml:"base_id"`
	ServerName string `yaml:"server_name"`
}

// PriceOverride replaces the unit price of an existing pricing tier.
type PriceOverride struct {
	Kind         string  `yaml:"kind"`
	Tier         string  `yaml:"tier"`
	UnitPriceUSD float64 `yaml:"unit_price_usd"`
}

func Default() *Config {
	return &Config{
		ServerName: DefaultServerName,
		OutputDir:  DefaultOutputDir,
		HTTPAddr:   DefaultHTTPAddr,
		Log:        LogConfig{Level: "info", Format: "auto"},
		Airtable: AirtableConfig{
			BaseID:     DefaultAirtableBaseID,
			ServerName: DefaultAirtableServer,
		},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
// getenv is usually os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes YAML over the defaults without consulting the
// environment.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// LoadDotEnv reads a .env file into the process environment. Variables that
// are already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables that are set.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("MCP_SERVER_NAME", &c.ServerName)
	str("OUTPUT_DIR", &c.OutputDir)
	str("LEDGER_PATH", &c.LedgerPath)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("GOOGLE_API_KEY", &c.Google.APIKey)
	str("ANTHROPIC_API_KEY", &c.Anthropic.APIKey)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_REGION", &c.S3.Region)
	str("S3_PREFIX", &c.S3.Prefix)
	str("AIRTABLE_TOKEN", &c.Airtable.Token)
	str("AIRTABLE_BASE_ID", &c.Airtable.BaseID)
	str("SERVER_NAME", &c.Airtable.ServerName)

	if v := strings.TrimSpace(getenv("VIDEO_TIMEOUT_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: VIDEO_TIMEOUT_SECONDS %q is not an integer", v)
		}
		c.Google.VideoTimeoutSec = n
	}
	return nil
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"auto", "text", "json"}
)

// Validate returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if !slices.Contains(validLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: %s", c.Log.Level, strings.Join(validLevels, ", ")))
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("log.format %q is invalid; valid values: %s", c.Log.Format, strings.Join(validFormats, ", ")))
	}
	if c.Google.VideoTimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("google.video_timeout_seconds %d must not be negative", c.Google.VideoTimeoutSec))
	}
	if c.S3.Prefix != "" && c.S3.Bucket == "" {
		errs = append(errs, errors.New("s3.prefix is set but s3.bucket is empty"))
	}
	if _, err := c.PricingTable(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// PricingTable is the default price list with the configured overrides
// applied.
func (c *Config) PricingTable() (*pricing.Table, error) {
	if len(c.Pricing) == 0 {
		return pricing.DefaultTable(), nil
	}
	overrides := make([]pricing.Entry, 0, len(c.Pricing))
	for i, p := range c.Pricing {
		kind := pricing.ResourceKind(strings.ToLower(p.Kind))
		switch kind {
		case pricing.KindImage, pricing.KindVideo, pricing.KindText:
		default:
			return nil, fmt.Errorf("pricing[%d].kind %q is invalid; valid values: image, video, text", i, p.Kind)
		}
		overrides = append(overrides, pricing.Entry{
			Kind:         kind,
			Tier:         pricing.Tier(p.Tier),
			UnitPriceUSD: p.UnitPriceUSD,
		})
	}
	table, err := pricing.WithOverrides(pricing.DefaultTable(), overrides)
	if err != nil {
		return nil, fmt.Errorf("pricing: %w", err)
	}
	return table, nil
}
