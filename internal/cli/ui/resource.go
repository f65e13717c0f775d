package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/types"
)

var (
	rootStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
)

func field(key, value string) string {
	return keyStyle.Render(key+": ") + valueStyle.Render(value)
}

// RenderPersonas renders the catalog as a tree
func RenderPersonas(personas []types.Persona) string {
	if len(personas) == 0 {
		return keyStyle.Render("No personas found")
	}

	root := tree.Root(rootStyle.Render("Personas"))
	for _, p := range personas {
		node := tree.Root(rootStyle.Render(p.Name) + " " + keyStyle.Render("("+p.ID+")"))
		node.Child(field("title", p.Title))
		if p.Tagline != "" {
			node.Child(field("tagline", p.Tagline))
		}
		if p.VoiceID != "" {
			node.Child(field("voice", p.VoiceID))
		}
		if p.Credits != "" {
			node.Child(field("credits", p.Credits))
		}
		root.Child(node)
	}
	return root.String()
}

// RenderLocation renders an IP lookup
func RenderLocation(loc *types.Location) string {
	root := tree.Root(rootStyle.Render(loc.IP))
	root.Child(
		field("country", fmt.Sprintf("%s (%s)", loc.Country, loc.CountryCode)),
		field("region", loc.Region),
		field("city", loc.City),
		field("coordinates", fmt.Sprintf("%.4f, %.4f", loc.Latitude, loc.Longitude)),
		field("timezone", loc.Timezone),
		field("isp", loc.ISP),
		field("map", loc.MapsURL),
	)
	return root.String()
}

// RenderExif renders photo metadata
func RenderExif(name string, info *types.ExifInfo) string {
	root := tree.Root(rootStyle.Render(name))
	if info.Make != "" || info.Model != "" {
		root.Child(field("camera", fmt.Sprintf("%s %s", info.Make, info.Model)))
	}
	if info.TakenAt != nil {
		root.Child(field("taken", info.TakenAt.Format(time.DateTime)))
	}
	if info.GPS != nil {
		root.Child(
			field("coordinates", fmt.Sprintf("%.5f, %.5f", info.GPS.Latitude, info.GPS.Longitude)),
			field("map", info.GPS.MapsURL),
		)
	}
	return root.String()
}
