package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/types"
	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

var askOpts struct {
	persona string
	penguin bool
	sigma   bool
}

// askCmd sends one message in a throwaway session
var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Ask a single question",
	Example: `  $ cowalsky ask "explain TCP like I'm a penguin"
  $ cowalsky ask --sigma=true --penguin=false "rate my code"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askOpts.persona, "persona", "p", "", "persona id")
	askCmd.Flags().BoolVar(&askOpts.penguin, "penguin", true, "append the penguin sign-off")
	askCmd.Flags().BoolVar(&askOpts.sigma, "sigma", false, "append a sigma roast")
}

func runAsk(cmd *cobra.Command, args []string) error {
	apiClient, err := newClient(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	session, err := apiClient.CreateSession(ctx, types.CreateSessionRequest{PersonaID: askOpts.persona})
	if err != nil {
		return reportError(cmd, err)
	}
	defer func() {
		_ = apiClient.EndSession(context.WithoutCancel(ctx), session.ID)
	}()

	patch := types.SettingsPatch{}
	if cmd.Flags().Changed("penguin") {
		patch.PenguinMode = &askOpts.penguin
	}
	if cmd.Flags().Changed("sigma") {
		patch.SigmaMode = &askOpts.sigma
	}
	if patch != (types.SettingsPatch{}) {
		if session, err = apiClient.UpdateSettings(ctx, session.ID, patch); err != nil {
			return reportError(cmd, err)
		}
	}

	exchange, err := apiClient.SendMessage(ctx, session.ID, strings.Join(args, " "))
	if err != nil {
		return reportError(cmd, err)
	}

	out := cmd.OutOrStdout()
	theme := ui.ThemeFor(session.Settings.Theme)
	for _, w := range exchange.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), ui.RenderWarning(theme, w))
	}
	if exchange.Failed {
		ui.PrintErrorBox(out, exchange.BotMessage.Content, nil)
		return fmt.Errorf("no provider answered")
	}
	fmt.Fprintln(out, exchange.BotMessage.Content)
	return nil
}
