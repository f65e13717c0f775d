package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/client"
	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

const (
	version       = "0.1.0"
	defaultServer = "http://localhost:8080"
	serverEnv     = "COWALSKY_SERVER"
)

var serverURL string

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:     "cowalsky",
	Short:   "Talk to Cowalsky, the analytical penguin",
	Version: version,
	Long: `A command-line client for the Cowalsky server. Chat with a penguin persona,
generate and analyze images, and run the penguin's toolbox (OCR, EXIF, QR,
IP geolocation, scan explanations and text-to-speech).`,
	Example: `  # Start an interactive chat
  $ cowalsky chat

  # Ask a single question against a remote server
  $ cowalsky ask -s http://cowalsky.local:8080 "what is a fish?"

  # Generate an image and save it as cowalsky_creation.png
  $ cowalsky image "a penguin in a lab coat"

  # Get help on a specific command
  $ cowalsky geo --help`,
}

// Execute executes the root command
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(formatVersion())
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr(serverEnv, defaultServer),
		"Cowalsky server URL (env "+serverEnv+")")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(personasCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ocrCmd)
	rootCmd.AddCommand(exifCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(geoCmd)
	rootCmd.AddCommand(qrCmd)
	rootCmd.AddCommand(speakCmd)

	rootCmd.SetUsageTemplate(usageTemplate())
	rootCmd.SetHelpTemplate(usageTemplate())
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient(cmd *cobra.Command) (*client.APIClient, error) {
	c, err := client.NewAPIClient(serverURL)
	if err != nil {
		ui.PrintError(cmd.ErrOrStderr(), "failed to create client: %v", err)
		return nil, fmt.Errorf("client creation failed")
	}
	return c, nil
}

// reportError prints server failures with their fallback trail
func reportError(cmd *cobra.Command, err error) error {
	var statusErr *client.StatusError
	if errors.As(err, &statusErr) && len(statusErr.Warnings) > 0 {
		ui.PrintErrorBox(cmd.ErrOrStderr(), statusErr.Message, statusErr.Warnings)
		return err
	}
	ui.PrintError(cmd.ErrOrStderr(), "%v", err)
	return err
}

func usageTemplate() string {
	return `{{if .Long}}{{.Long}}

{{end}}` + ui.Styles.Bold.Render("USAGE") + `
  {{.UseLine}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}

{{if .HasExample}}` + ui.Styles.Bold.Render("EXAMPLES") + `
{{.Example}}

{{end}}{{if .HasAvailableSubCommands}}` + ui.Styles.Bold.Render("COMMANDS") + `{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableLocalFlags}}` + ui.Styles.Bold.Render("OPTIONS") + `
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}` + ui.Styles.Bold.Render("GLOBAL OPTIONS") + `
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
}

func formatVersion() string {
	return fmt.Sprintf("cowalsky version %s\n", version)
}
