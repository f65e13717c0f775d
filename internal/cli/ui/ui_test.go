package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/types"
)

func TestThemeFor(t *testing.T) {
	assert.Equal(t, LightTheme, ThemeFor("light"))
	assert.Equal(t, DarkTheme, ThemeFor("dark"))
	assert.Equal(t, DarkTheme, ThemeFor("neon"))
}

func TestRenderMessage(t *testing.T) {
	out := RenderMessage(DarkTheme, "Cowalsky", false, "Noot noot.", "openai")
	assert.Contains(t, out, "Cowalsky:")
	assert.Contains(t, out, "Noot noot.")
	assert.Contains(t, out, "[openai]")

	out = RenderMessage(LightTheme, "You", true, "hi", "")
	assert.Contains(t, out, "You:")
	assert.NotContains(t, out, "[")
}

func TestPrintHelpers(t *testing.T) {
	var buf bytes.Buffer
	PrintSuccess(&buf, "saved %s", "cowalsky_creation.png")
	PrintWarning(&buf, "openai took a dive")
	PrintErrorBox(&buf, "All penguins are out fishing.", []string{"first", "second"})

	out := buf.String()
	assert.Contains(t, out, "saved cowalsky_creation.png")
	assert.Contains(t, out, "openai took a dive")
	assert.Contains(t, out, "All penguins are out fishing.")
	assert.Contains(t, out, "second")
}

func TestRenderPersonas(t *testing.T) {
	assert.Contains(t, RenderPersonas(nil), "No personas found")

	out := RenderPersonas([]types.Persona{{ID: "cowalsky", Name: "Cowalsky", Title: "Analytical Penguin", VoiceID: "alloy"}})
	assert.Contains(t, out, "Cowalsky")
	assert.Contains(t, out, "(cowalsky)")
	assert.Contains(t, out, "alloy")
}

func TestRenderExif(t *testing.T) {
	taken := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	out := RenderExif("photo.jpg", &types.ExifInfo{
		Make:    "Canon",
		Model:   "EOS",
		TakenAt: &taken,
		GPS:     &types.GPS{Latitude: 51.5, Longitude: -0.12, MapsURL: "https://maps.google.com/?q=51.5,-0.12"},
	})
	assert.Contains(t, out, "Canon EOS")
	assert.Contains(t, out, "2024-05-01 12:30:00")
	assert.Contains(t, out, "51.50000, -0.12000")
}
