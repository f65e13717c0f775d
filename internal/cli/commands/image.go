package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/client"
	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

const defaultImageFile = "cowalsky_creation.png"

var imageOpts struct {
	out string
}

var analyzeOpts struct {
	persona string
	session string
	penguin bool
}

// imageCmd generates an image from a prompt
var imageCmd = &cobra.Command{
	Use:     "image <prompt>",
	Short:   "Generate an image",
	Example: `  $ cowalsky image "a penguin piloting a submarine" -o sub.png`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runImage,
}

// analyzeCmd describes an image in the detective voice
var analyzeCmd = &cobra.Command{
	Use:     "analyze <file>",
	Short:   "Let the penguin describe an image",
	Example: `  $ cowalsky analyze suspect.jpg --penguin=false`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAnalyze,
}

func init() {
	imageCmd.Flags().StringVarP(&imageOpts.out, "output", "o", defaultImageFile, "where to save the PNG")

	analyzeCmd.Flags().StringVarP(&analyzeOpts.persona, "persona", "p", "", "persona id")
	analyzeCmd.Flags().StringVar(&analyzeOpts.session, "session", "", "reuse the settings of a chat session")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.penguin, "penguin", true, "append the penguin sign-off")
}

func runImage(cmd *cobra.Command, args []string) error {
	apiClient, err := newClient(cmd)
	if err != nil {
		return err
	}

	img, err := apiClient.GenerateImage(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return reportError(cmd, err)
	}

	out := cmd.OutOrStdout()
	if img.Result != nil {
		for _, w := range img.Result.Warnings {
			ui.PrintWarning(cmd.ErrOrStderr(), "%s", w)
		}
		// 服务商只返回了链接
		ui.PrintInfo(out, "%s drew it at %s", img.Provider, img.Result.URL)
		return nil
	}

	if err := os.WriteFile(imageOpts.out, img.Data, 0o644); err != nil {
		ui.PrintError(cmd.ErrOrStderr(), "failed to save image: %v", err)
		return err
	}
	ui.PrintSuccess(out, "saved %s (%s)", imageOpts.out, img.Provider)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	data, err := readImage(cmd, args[0])
	if err != nil {
		return err
	}
	apiClient, err := newClient(cmd)
	if err != nil {
		return err
	}

	opts := client.UploadOptions{PersonaID: analyzeOpts.persona, SessionID: analyzeOpts.session}
	if cmd.Flags().Changed("penguin") {
		opts.PenguinMode = &analyzeOpts.penguin
	}

	result, err := apiClient.AnalyzeImage(cmd.Context(), filepath.Base(args[0]), data, opts)
	if err != nil {
		return reportError(cmd, err)
	}
	for _, w := range result.Warnings {
		ui.PrintWarning(cmd.ErrOrStderr(), "%s", w)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return nil
}

func readImage(cmd *cobra.Command, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		ui.PrintError(cmd.ErrOrStderr(), "failed to read %s: %v", path, err)
		return nil, err
	}
	return data, nil
}
