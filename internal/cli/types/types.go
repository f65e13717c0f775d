// Package types mirrors the JSON bodies of the Cowalsky HTTP API.
package types

import "time"

type Persona struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Title         string `json:"title"`
	Tagline       string `json:"tagline,omitempty"`
	AvatarCaption string `json:"avatarCaption,omitempty"`
	Credits       string `json:"credits,omitempty"`
	VoiceID       string `json:"voiceId,omitempty"`
}

type Settings struct {
	Theme       string `json:"theme"`
	PenguinMode bool   `json:"penguinMode"`
	SigmaMode   bool   `json:"sigmaMode"`
	Speak       bool   `json:"speak"`
}

// SettingsPatch sends only the toggles that are set.
type SettingsPatch struct {
	Theme       *string `json:"theme,omitempty"`
	PenguinMode *bool   `json:"penguinMode,omitempty"`
	SigmaMode   *bool   `json:"sigmaMode,omitempty"`
	Speak       *bool   `json:"speak,omitempty"`
}

type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId"`
	Settings  Settings  `json:"settings"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateSessionRequest struct {
	PersonaID string    `json:"personaId,omitempty"`
	Settings  *Settings `json:"settings,omitempty"`
}

type Message struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Exchange struct {
	UserMessage Message  `json:"userMessage"`
	BotMessage  Message  `json:"botMessage"`
	Provider    string   `json:"provider,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	Failed      bool     `json:"failed"`
}

// StreamEvent is one SSE event of /stream.
type StreamEvent struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Provider  string `json:"provider,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ImageResult struct {
	Image         string   `json:"image,omitempty"`
	MIMEType      string   `json:"mimeType,omitempty"`
	URL           string   `json:"url,omitempty"`
	RevisedPrompt string   `json:"revisedPrompt,omitempty"`
	Provider      string   `json:"provider"`
	Warnings      []string `json:"warnings,omitempty"`
}

type TextResult struct {
	Text     string   `json:"text"`
	Provider string   `json:"provider"`
	Warnings []string `json:"warnings,omitempty"`
}

type ScanRequest struct {
	Text        string `json:"text"`
	PersonaID   string `json:"personaId,omitempty"`
	PenguinMode *bool  `json:"penguinMode,omitempty"`
}

type Location struct {
	IP          string  `json:"ip"`
	Country     string  `json:"country"`
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Timezone    string  `json:"timezone"`
	ISP         string  `json:"isp"`
	MapsURL     string  `json:"mapsUrl"`
}

type GPS struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	MapsURL   string  `json:"mapsUrl"`
}

type ExifInfo struct {
	Make    string     `json:"make,omitempty"`
	Model   string     `json:"model,omitempty"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
	GPS     *GPS       `json:"gps,omitempty"`
}

// APIError is the error body every endpoint returns.
type APIError struct {
	Message  string   `json:"error"`
	Warnings []string `json:"warnings,omitempty"`
}

// Health is the /api/health body.
type Health struct {
	Status    string              `json:"status"`
	Providers map[string][]string `json:"providers"`
	Geo       bool                `json:"geo"`
	Store     string              `json:"store,omitempty"`
}
