package commands

import (
	"mime"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

var speakOpts struct {
	voice   string
	session string
	out     string
}

// speakCmd synthesizes speech into an audio file
var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Turn text into penguin speech",
	Example: `  $ cowalsky speak "noot noot" -o noot.mp3
  $ cowalsky speak --session 3f2a... "read this in my persona's voice"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		audio, err := apiClient.Synthesize(cmd.Context(), speakOpts.session, strings.Join(args, " "), speakOpts.voice)
		if err != nil {
			return reportError(cmd, err)
		}

		path := speakOpts.out
		if path == "" {
			path = "speech" + audioExt(audio.ContentType)
		}
		if err := os.WriteFile(path, audio.Data, 0o644); err != nil {
			ui.PrintError(cmd.ErrOrStderr(), "failed to save audio: %v", err)
			return err
		}
		if audio.Fallback {
			ui.PrintWarning(cmd.ErrOrStderr(), "primary voice provider failed, %s stepped in", audio.Provider)
		}
		ui.PrintSuccess(cmd.OutOrStdout(), "saved %s (%s)", path, audio.Provider)
		return nil
	},
}

func init() {
	speakCmd.Flags().StringVar(&speakOpts.voice, "voice", "", "voice id (persona voice when empty)")
	speakCmd.Flags().StringVar(&speakOpts.session, "session", "", "use the voice of this session's persona")
	speakCmd.Flags().StringVarP(&speakOpts.out, "output", "o", "", "where to save the audio")
}

func audioExt(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ".mp3"
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	}
	if sub, ok := strings.CutPrefix(mediaType, "audio/"); ok && sub != "" {
		return "." + sub
	}
	return ".mp3"
}
