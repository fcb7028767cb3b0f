package settings

import (
	"fmt"
	"strings"
)

const (
	DefaultVoiceIdentifier = "com.apple.voice.compact.en-US.Samantha"
	DefaultSpeechRate      = 0.5
	DefaultReadShortcut    = "cmd+shift+p"

	MinUISpeed = 0.5
	MaxUISpeed = 2.0
)

// Shortcuts holds the user's key combinations.
type Shortcuts struct {
	ReadTextShortcut string `json:"readTextShortcut"`
}

// Settings is the persisted user configuration.
type Settings struct {
	SelectedVoiceIdentifier   string    `json:"selectedVoiceIdentifier"`
	SpeechRate                float64   `json:"speechRate"`
	OutputDirectory           string    `json:"outputDirectory"`
	Shortcuts                 Shortcuts `json:"shortcuts"`
	ShowOnlyHighQualityVoices bool      `json:"showOnlyHighQualityVoices"`
}

// Default returns the hardcoded settings used when nothing valid is persisted.
func Default(outputDirectory string) Settings {
	return Settings{
		SelectedVoiceIdentifier: DefaultVoiceIdentifier,
		SpeechRate:              DefaultSpeechRate,
		OutputDirectory:         outputDirectory,
		Shortcuts:               Shortcuts{ReadTextShortcut: DefaultReadShortcut},
	}
}

// Validate reports the first field that cannot be persisted as is.
func (s Settings) Validate() error {
	if s.SpeechRate < 0 || s.SpeechRate > 1 {
		return fmt.Errorf("speech rate %.2f outside [0, 1]", s.SpeechRate)
	}
	if _, err := ParseShortcut(s.Shortcuts.ReadTextShortcut); err != nil {
		return err
	}
	return nil
}

// UISpeed returns the speed multiplier shown to users (0.5x - 2.0x).
func (s Settings) UISpeed() float64 {
	return RateToUISpeed(s.SpeechRate)
}

// SetUISpeed stores a speed multiplier as a normalized rate.
func (s *Settings) SetUISpeed(speed float64) {
	s.SpeechRate = UISpeedToRate(speed)
}

// UISpeedToRate maps 0.5x..2.0x linearly onto 0..1 (1.0x is 0.5).
func UISpeedToRate(speed float64) float64 {
	return clamp((speed-MinUISpeed)/1.5, 0, 1)
}

// RateToUISpeed is the inverse of UISpeedToRate.
func RateToUISpeed(rate float64) float64 {
	return rate*1.5 + MinUISpeed
}

// ClampUISpeed bounds a user supplied speed multiplier.
func ClampUISpeed(speed float64) float64 {
	return clamp(speed, MinUISpeed, MaxUISpeed)
}

// Shortcut is a parsed key combination such as "cmd+shift+p".
type Shortcut struct {
	Modifiers []string
	Key       string
}

func (s Shortcut) String() string {
	return strings.Join(append(append([]string(nil), s.Modifiers...), s.Key), "+")
}

var modifierAliases = map[string]string{
	"cmd":     "cmd",
	"command": "cmd",
	"shift":   "shift",
	"alt":     "option",
	"opt":     "option",
	"option":  "option",
	"ctrl":    "control",
	"control": "control",
}

// ParseShortcut accepts '+'-separated modifiers followed by exactly one key.
func ParseShortcut(raw string) (Shortcut, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), "+")
	if len(parts) < 2 {
		return Shortcut{}, fmt.Errorf("shortcut %q needs at least one modifier and a key", raw)
	}

	var sc Shortcut
	seen := make(map[string]bool)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return Shortcut{}, fmt.Errorf("shortcut %q has an empty component", raw)
		}
		if mod, ok := modifierAliases[part]; ok {
			if i == len(parts)-1 {
				return Shortcut{}, fmt.Errorf("shortcut %q has no key", raw)
			}
			if !seen[mod] {
				sc.Modifiers = append(sc.Modifiers, mod)
				seen[mod] = true
			}
			continue
		}
		if i != len(parts)-1 {
			return Shortcut{}, fmt.Errorf("shortcut %q: unknown modifier %q", raw, part)
		}
		sc.Key = part
	}
	return sc, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
