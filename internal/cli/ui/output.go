package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	// Color definitions for terminal output
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// PrintError prints an error message
func PrintError(w io.Writer, format string, args ...any) {
	errorColor.Fprintf(w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, format string, args ...any) {
	warningColor.Fprintf(w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, format string, args ...any) {
	infoColor.Fprintf(w, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// PrintErrorBox prints a failure with the fallback warnings that led to it
func PrintErrorBox(w io.Writer, title string, warnings []string) {
	content := errorColor.Sprint(title)
	if len(warnings) > 0 {
		content += "\n\n" + strings.Join(warnings, "\n")
	}
	fmt.Fprintln(w, Styles.ErrorBox.Render(content))
}

// PrintChatBanner prints the welcome banner of the chat REPL
func PrintChatBanner(w io.Writer, theme Theme, name, title string) {
	heading := lipgloss.NewStyle().Bold(true).Foreground(theme.Accent).
		Render(fmt.Sprintf("🐧  %s, %s", name, title))
	hint := theme.muted().Render("/penguin  /sigma  /theme  /log  /quit")
	fmt.Fprintln(w, theme.banner().Render(heading+"\n\n"+hint))
}

// RenderMessage renders one line of the conversation log
func RenderMessage(theme Theme, label string, user bool, content, provider string) string {
	var b strings.Builder
	b.WriteString(theme.speaker(user).Render(label + ":"))
	b.WriteString(" ")
	b.WriteString(theme.text().Render(content))
	if provider != "" {
		b.WriteString(" ")
		b.WriteString(theme.muted().Render("[" + provider + "]"))
	}
	return b.String()
}

// RenderWarning renders a provider fallback notice
func RenderWarning(theme Theme, warning string) string {
	return theme.warning().Render(warning)
}

// RenderThinking renders the placeholder shown while the bot answers
func RenderThinking(theme Theme, text string) string {
	return theme.muted().Render(text)
}
