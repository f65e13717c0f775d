package chat

import (
	"strings"
	"time"
)

// Theme is the colour scheme picked in the control panel.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme normalises user input such as "Dark" or " light ".
func ParseTheme(raw string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(raw))) {
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	default:
		return "", false
	}
}

// Settings holds the per-session toggles.
type Settings struct {
	Theme       Theme `json:"theme"`
	PenguinMode bool  `json:"penguinMode"`
	SigmaMode   bool  `json:"sigmaMode"`
	Speak       bool  `json:"speak"`
}

// DefaultSettings matches the control panel defaults: light theme, penguin talk on.
func DefaultSettings() Settings {
	return Settings{Theme: ThemeLight, PenguinMode: true}
}

// SettingsPatch carries optional updates; nil fields are left untouched.
type SettingsPatch struct {
	Theme       *string `json:"theme,omitempty"`
	PenguinMode *bool   `json:"penguinMode,omitempty"`
	SigmaMode   *bool   `json:"sigmaMode,omitempty"`
	Speak       *bool   `json:"speak,omitempty"`
}

// Apply returns s with the patch applied. Unknown themes are ignored.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		if theme, ok := ParseTheme(*p.Theme); ok {
			s.Theme = theme
		}
	}
	if p.PenguinMode != nil {
		s.PenguinMode = *p.PenguinMode
	}
	if p.SigmaMode != nil {
		s.SigmaMode = *p.SigmaMode
	}
	if p.Speak != nil {
		s.Speak = *p.Speak
	}
	return s
}

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"createdAt"`
}
