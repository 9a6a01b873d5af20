package lspserver

import (
	"encoding/json"
	"fmt"

	"github.com/wharflab/relint/internal/config"
)

// clientSettings holds editor-provided configuration: overrides in the
// config file's nested shape plus the preference deciding how they merge
// with filesystem discovery.
type clientSettings struct {
	overrides  map[string]any
	preference config.ConfigurationPreference
}

func defaultClientSettings() clientSettings {
	return clientSettings{preference: config.ConfigurationPreferenceEditorFirst}
}

// parseClientSettings decodes a workspace/didChangeConfiguration payload.
// Settings may arrive flat or nested under a "relint" section (the common
// client convention). The reserved "configurationPreference" key selects
// the merge strategy; everything else is treated as a config override.
func parseClientSettings(raw json.RawMessage) (clientSettings, error) {
	settings := defaultClientSettings()
	if len(raw) == 0 || string(raw) == "null" {
		return settings, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return settings, fmt.Errorf("settings: %w", err)
	}
	if nested, ok := m["relint"].(map[string]any); ok {
		m = nested
	}
	if pref, ok := m["configurationPreference"].(string); ok {
		settings.preference = config.ConfigurationPreference(pref)
		delete(m, "configurationPreference")
	}
	if len(m) > 0 {
		settings.overrides = m
	}
	return settings, nil
}

// resolveConfig loads the effective configuration for a file, merging the
// current editor settings according to their preference.
func (s *Server) resolveConfig(filename string) (*config.Config, error) {
	s.settingsMu.RLock()
	settings := s.settings
	s.settingsMu.RUnlock()
	return config.LoadWithOverrides(filename, settings.overrides, settings.preference)
}
