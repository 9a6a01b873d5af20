package config

import (
	"fmt"
	"regexp"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// decodeConfig normalizes the merged raw map and decodes it into a Config.
func decodeConfig(raw map[string]any) (*Config, error) {
	normalizeOutputAliases(raw)

	normalized := koanf.New(".")
	if err := normalized.Load(confmap.Provider(raw, ""), nil); err != nil {
		return nil, fmt.Errorf("load normalized config: %w", err)
	}

	var cfg Config
	if err := normalized.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.DelayDuration(); err != nil {
		return fmt.Errorf("delay: %w", err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency: must be >= 0, got %d", c.Concurrency)
	}
	switch c.Output.FailLevel {
	case "", "error", "warning", "none":
	default:
		return fmt.Errorf("output.fail-level: unknown level %q", c.Output.FailLevel)
	}
	for name, lc := range c.Linters {
		if lc.Regex != "" {
			if _, err := regexp.Compile(lc.Regex); err != nil {
				return fmt.Errorf("linters.%s.regex: %w", name, err)
			}
		}
		for _, pattern := range lc.ErrorFilter {
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("linters.%s.error-filter: %w", name, err)
			}
		}
	}
	return nil
}

// normalizeOutputAliases lifts top-level output shorthands ("format = ...")
// into the [output] table, without clobbering explicit entries.
func normalizeOutputAliases(raw map[string]any) {
	outputRaw, ok := raw["output"].(map[string]any)
	if !ok {
		outputRaw = nil
	}
	if outputRaw == nil {
		outputRaw = make(map[string]any)
		raw["output"] = outputRaw
	}

	aliases := map[string]string{
		"format":      "format",
		"path":        "path",
		"show-source": "show-source",
		"fail-level":  "fail-level",
	}
	for from, to := range aliases {
		value, ok := raw[from]
		if !ok {
			continue
		}
		if _, exists := outputRaw[to]; !exists {
			outputRaw[to] = value
		}
		delete(raw, from)
	}
}
