package ui

import "github.com/charmbracelet/lipgloss"

// Styles defines the lipgloss styles shared by every command
var Styles = struct {
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	ErrorBox lipgloss.Style
}{
	Bold:  lipgloss.NewStyle().Bold(true),
	Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(0, 1).
		Width(60),
}

// Theme is the chat palette. Light and dark mirror the web client toggle.
type Theme struct {
	Name    string
	Accent  lipgloss.Color
	User    lipgloss.Color
	Bot     lipgloss.Color
	Muted   lipgloss.Color
	Warning lipgloss.Color
}

var (
	DarkTheme = Theme{
		Name:    "dark",
		Accent:  lipgloss.Color("86"),
		User:    lipgloss.Color("39"),
		Bot:     lipgloss.Color("229"),
		Muted:   lipgloss.Color("245"),
		Warning: lipgloss.Color("214"),
	}
	LightTheme = Theme{
		Name:    "light",
		Accent:  lipgloss.Color("25"),
		User:    lipgloss.Color("27"),
		Bot:     lipgloss.Color("236"),
		Muted:   lipgloss.Color("242"),
		Warning: lipgloss.Color("166"),
	}
)

// ThemeFor maps a session theme name to its palette; unknown names are dark.
func ThemeFor(name string) Theme {
	if name == LightTheme.Name {
		return LightTheme
	}
	return DarkTheme
}

func (t Theme) banner() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent).
		Padding(1, 2).
		Align(lipgloss.Center)
}

func (t Theme) speaker(user bool) lipgloss.Style {
	if user {
		return lipgloss.NewStyle().Foreground(t.User).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

func (t Theme) text() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Bot)
}

func (t Theme) muted() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) warning() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Warning).Italic(true)
}
