package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/types"
	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

var chatOpts struct {
	persona string
	theme   string
	penguin bool
	sigma   bool
}

// chatCmd is the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with a penguin",
	Long: `Start an interactive chat session. Replies stream in as the server falls
back across its chat providers; every fallback is printed as a warning.

In-chat commands:
  /penguin        toggle the penguin sign-off
  /sigma          toggle the sigma roast
  /theme [name]   switch between light and dark
  /log            print the conversation log
  /quit           end the session`,
	Example: `  $ cowalsky chat
  $ cowalsky chat --persona cowalsky --theme light --sigma`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatOpts.persona, "persona", "p", "", "persona id (server default when empty)")
	chatCmd.Flags().StringVar(&chatOpts.theme, "theme", "", "light or dark")
	chatCmd.Flags().BoolVar(&chatOpts.penguin, "penguin", true, "append the penguin sign-off")
	chatCmd.Flags().BoolVar(&chatOpts.sigma, "sigma", false, "append a sigma roast")
}

func runChat(cmd *cobra.Command, _ []string) error {
	apiClient, err := newClient(cmd)
	if err != nil {
		return err
	}

	var patch types.SettingsPatch
	if cmd.Flags().Changed("theme") {
		patch.Theme = &chatOpts.theme
	}
	if cmd.Flags().Changed("penguin") {
		patch.PenguinMode = &chatOpts.penguin
	}
	if cmd.Flags().Changed("sigma") {
		patch.SigmaMode = &chatOpts.sigma
	}

	r := newREPL(apiClient, cmd.InOrStdin(), cmd.OutOrStdout())
	return r.run(cmd.Context(), chatOpts.persona, patch)
}

// chatClient is the slice of the API the REPL needs
type chatClient interface {
	Personas(ctx context.Context) ([]types.Persona, error)
	CreateSession(ctx context.Context, in types.CreateSessionRequest) (*types.Session, error)
	UpdateSettings(ctx context.Context, sessionID string, patch types.SettingsPatch) (*types.Session, error)
	Messages(ctx context.Context, sessionID string) ([]types.Message, error)
	StreamMessage(ctx context.Context, sessionID, content string) (<-chan types.StreamEvent, <-chan error, error)
	EndSession(ctx context.Context, sessionID string) error
}

type repl struct {
	client  chatClient
	in      *bufio.Scanner
	out     io.Writer
	session *types.Session
	name    string
}

func newREPL(c chatClient, in io.Reader, out io.Writer) *repl {
	return &repl{client: c, in: bufio.NewScanner(in), out: out, name: "Cowalsky"}
}

func (r *repl) theme() ui.Theme {
	return ui.ThemeFor(r.session.Settings.Theme)
}

func (r *repl) run(ctx context.Context, personaID string, patch types.SettingsPatch) error {
	session, err := r.client.CreateSession(ctx, types.CreateSessionRequest{PersonaID: personaID})
	if err != nil {
		ui.PrintError(r.out, "failed to start session: %v", err)
		return err
	}
	r.session = session
	if patch != (types.SettingsPatch{}) {
		if err := r.applySettings(ctx, patch); err != nil {
			return err
		}
	}

	title := "Analytical Penguin"
	if personas, err := r.client.Personas(ctx); err == nil {
		for _, p := range personas {
			if p.ID == session.PersonaID {
				r.name, title = p.Name, p.Title
			}
		}
	}

	ui.PrintChatBanner(r.out, r.theme(), r.name, title)
	defer func() {
		// 会话结束时清理服务端记录
		if err := r.client.EndSession(context.WithoutCancel(ctx), r.session.ID); err != nil {
			ui.PrintWarning(r.out, "failed to end session: %v", err)
		}
	}()

	for {
		fmt.Fprint(r.out, ui.Styles.Bold.Render("> "))
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return r.in.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				ui.PrintError(r.out, "%v", err)
			}
			if quit {
				return nil
			}
			continue
		}
		r.send(ctx, line)
	}
}

// command handles a slash command; it reports whether the REPL should exit
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)
	settings := r.session.Settings

	switch strings.ToLower(name) {
	case "quit", "exit":
		ui.PrintInfo(r.out, "%s waddles off.", r.name)
		return true, nil
	case "penguin":
		on := !settings.PenguinMode
		return false, r.applySettings(ctx, types.SettingsPatch{PenguinMode: &on})
	case "sigma":
		on := !settings.SigmaMode
		return false, r.applySettings(ctx, types.SettingsPatch{SigmaMode: &on})
	case "theme":
		next := arg
		if next == "" {
			next = ui.LightTheme.Name
			if settings.Theme == ui.LightTheme.Name {
				next = ui.DarkTheme.Name
			}
		}
		return false, r.applySettings(ctx, types.SettingsPatch{Theme: &next})
	case "log":
		return false, r.printLog(ctx)
	default:
		return false, fmt.Errorf("unknown command /%s", name)
	}
}

func (r *repl) applySettings(ctx context.Context, patch types.SettingsPatch) error {
	session, err := r.client.UpdateSettings(ctx, r.session.ID, patch)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	r.session = session
	s := session.Settings
	ui.PrintInfo(r.out, "theme=%s penguin=%s sigma=%s", s.Theme, onOff(s.PenguinMode), onOff(s.SigmaMode))
	return nil
}

func (r *repl) printLog(ctx context.Context) error {
	messages, err := r.client.Messages(ctx, r.session.ID)
	if err != nil {
		return fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(messages) == 0 {
		ui.PrintInfo(r.out, "No messages yet.")
		return nil
	}
	for _, m := range messages {
		user := m.Speaker == "user"
		label := r.name
		if user {
			label = "You"
		}
		fmt.Fprintln(r.out, ui.RenderMessage(r.theme(), label, user, m.Content, m.Provider))
	}
	return nil
}

func (r *repl) send(ctx context.Context, content string) {
	events, errs, err := r.client.StreamMessage(ctx, r.session.ID, content)
	if err != nil {
		ui.PrintError(r.out, "%v", err)
		return
	}

	theme := r.theme()
	for event := range events {
		switch event.Event {
		case "start":
			fmt.Fprintln(r.out, ui.RenderThinking(theme, event.Content))
		case "warning":
			fmt.Fprintln(r.out, ui.RenderWarning(theme, event.Content))
		case "message":
			if event.Failed {
				ui.PrintErrorBox(r.out, event.Content, nil)
				continue
			}
			fmt.Fprintln(r.out, ui.RenderMessage(theme, r.name, false, event.Content, event.Provider))
		case "error":
			ui.PrintError(r.out, "%s", event.Error)
		}
	}
	for err := range errs {
		ui.PrintError(r.out, "stream interrupted: %v", err)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
