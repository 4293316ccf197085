package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Settings are the user-facing recognition preferences.
type Settings struct {
	Language    string `json:"language"`
	Continuous  bool   `json:"continuous"`
	Punctuation bool   `json:"punctuation"`
}

// DefaultSettings returns the settings used before anything is persisted.
func DefaultSettings() Settings {
	return Settings{Language: "en-US", Continuous: false, Punctuation: true}
}

// String renders settings as key=value pairs for the CLI.
func (s Settings) String() string {
	return fmt.Sprintf("language=%s continuous=%t punctuation=%t", s.Language, s.Continuous, s.Punctuation)
}

type settingsPayload struct {
	Language    *string `json:"language"`
	Continuous  *bool   `json:"continuous"`
	Punctuation *bool   `json:"punctuation"`
}

// mergeSettings overlays the fields present in a persisted record onto base.
func mergeSettings(base Settings, raw json.RawMessage) (Settings, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return base, nil
	}
	var payload settingsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return base, fmt.Errorf("decode settings: %w", err)
	}
	if payload.Language != nil && strings.TrimSpace(*payload.Language) != "" {
		base.Language = strings.TrimSpace(*payload.Language)
	}
	if payload.Continuous != nil {
		base.Continuous = *payload.Continuous
	}
	if payload.Punctuation != nil {
		base.Punctuation = *payload.Punctuation
	}
	return base, nil
}

// applySetting returns s with one key changed from its CLI string form.
func applySetting(s Settings, key string, value string) (Settings, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "language", "lang":
		if value == "" {
			return s, fmt.Errorf("%w: language must not be empty", ErrInvalidSetting)
		}
		s.Language = value
	case "continuous":
		b, err := parseToggle(value)
		if err != nil {
			return s, fmt.Errorf("%w: continuous: %v", ErrInvalidSetting, err)
		}
		s.Continuous = b
	case "punctuation":
		b, err := parseToggle(value)
		if err != nil {
			return s, fmt.Errorf("%w: punctuation: %v", ErrInvalidSetting, err)
		}
		s.Punctuation = b
	default:
		return s, fmt.Errorf("%w: unknown setting %q", ErrInvalidSetting, key)
	}
	return s, nil
}

func parseToggle(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(value)
}
