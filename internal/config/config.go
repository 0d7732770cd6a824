// Package config provides configuration loading, schema validation, and
// bounded-value sanitizing for the pagetrace agent.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var configSchema string

var validate = validator.New()

// Sampling and resource bounds enforced by the sanitizer.
const (
	minSamplingRate = 0.0
	maxSamplingRate = 1.0
	minResources    = 1
	maxResources    = 100
)

// Config is the validated agent configuration. Construct through New so the
// bounded-value contract holds: a negative threshold fails construction
// (programmer error), while out-of-range sampling rate and resource cap are
// silently clamped with a warning.
type Config struct {
	// ThresholdMs is the LCP value above which (strictly) a trace fires.
	ThresholdMs float64 `json:"threshold_ms" validate:"gte=0"`
	// SamplingRate is the fraction of sessions that arm the monitor, in [0,1].
	SamplingRate float64 `json:"sampling_rate"`
	Enabled      bool    `json:"enabled"`
	// MaxResources bounds the critical resource set, in [1,100].
	MaxResources int  `json:"max_resources"`
	DebugMode    bool `json:"debug_mode"`

	// Reporting endpoints. NATS wins over the HTTP collector when both are
	// set; with neither, traces go to the log sink.
	CollectorURL string `json:"collector_url,omitempty" validate:"omitempty,url"`
	NATSURL      string `json:"nats_url,omitempty"`
	NATSSubject  string `json:"nats_subject,omitempty"`

	// Per-page session bounds.
	PageTimeoutMs  int `json:"page_timeout_ms" validate:"gte=0"`
	ViewportWidth  int `json:"viewport_width"`
	ViewportHeight int `json:"viewport_height"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		ThresholdMs:    2500,
		SamplingRate:   1.0,
		Enabled:        true,
		MaxResources:   10,
		PageTimeoutMs:  30000,
		ViewportWidth:  1366,
		ViewportHeight: 768,
	}
}

// New validates and sanitizes a raw configuration.
func New(raw Config) (*Config, error) {
	if err := validate.Struct(raw); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := raw

	if cfg.SamplingRate < minSamplingRate || cfg.SamplingRate > maxSamplingRate {
		clamped := clampFloat(cfg.SamplingRate, minSamplingRate, maxSamplingRate)
		logrus.Warnf("config: sampling_rate %v out of range [%v,%v], clamped to %v",
			cfg.SamplingRate, minSamplingRate, maxSamplingRate, clamped)
		cfg.SamplingRate = clamped
	}

	if cfg.MaxResources < minResources || cfg.MaxResources > maxResources {
		clamped := clampInt(cfg.MaxResources, minResources, maxResources)
		logrus.Warnf("config: max_resources %d out of range [%d,%d], clamped to %d",
			cfg.MaxResources, minResources, maxResources, clamped)
		cfg.MaxResources = clamped
	}

	if cfg.PageTimeoutMs == 0 {
		cfg.PageTimeoutMs = Default().PageTimeoutMs
	}

	return &cfg, nil
}

// PageTimeout returns the per-page session timeout as a duration.
func (c *Config) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutMs) * time.Millisecond
}

// fileConfig mirrors Config with pointer fields so an omitted key keeps the
// default while an explicit zero is preserved.
type fileConfig struct {
	ThresholdMs    *float64 `json:"threshold_ms"`
	SamplingRate   *float64 `json:"sampling_rate"`
	Enabled        *bool    `json:"enabled"`
	MaxResources   *int     `json:"max_resources"`
	DebugMode      *bool    `json:"debug_mode"`
	CollectorURL   *string  `json:"collector_url"`
	NATSURL        *string  `json:"nats_url"`
	NATSSubject    *string  `json:"nats_subject"`
	PageTimeoutMs  *int     `json:"page_timeout_ms"`
	ViewportWidth  *int     `json:"viewport_width"`
	ViewportHeight *int     `json:"viewport_height"`
}

// Load reads a JSON config file, validates it against the embedded schema,
// and overlays it onto the defaults. The result is raw: pass it through New
// after any flag overrides.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := validateSchema(string(data)); err != nil {
		return Config{}, fmt.Errorf("config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := Default()
	overlay(&cfg, fc)
	return cfg, nil
}

func overlay(cfg *Config, fc fileConfig) {
	if fc.ThresholdMs != nil {
		cfg.ThresholdMs = *fc.ThresholdMs
	}
	if fc.SamplingRate != nil {
		cfg.SamplingRate = *fc.SamplingRate
	}
	if fc.Enabled != nil {
		cfg.Enabled = *fc.Enabled
	}
	if fc.MaxResources != nil {
		cfg.MaxResources = *fc.MaxResources
	}
	if fc.DebugMode != nil {
		cfg.DebugMode = *fc.DebugMode
	}
	if fc.CollectorURL != nil {
		cfg.CollectorURL = *fc.CollectorURL
	}
	if fc.NATSURL != nil {
		cfg.NATSURL = *fc.NATSURL
	}
	if fc.NATSSubject != nil {
		cfg.NATSSubject = *fc.NATSSubject
	}
	if fc.PageTimeoutMs != nil {
		cfg.PageTimeoutMs = *fc.PageTimeoutMs
	}
	if fc.ViewportWidth != nil {
		cfg.ViewportWidth = *fc.ViewportWidth
	}
	if fc.ViewportHeight != nil {
		cfg.ViewportHeight = *fc.ViewportHeight
	}
}

func validateSchema(content string) error {
	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	documentLoader := gojsonschema.NewStringLoader(content)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		return fmt.Errorf("schema violation at %s: %s", field, desc.Description())
	}
	return fmt.Errorf("schema validation failed")
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
