package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

// personasCmd lists the persona catalog
var personasCmd = &cobra.Command{
	Use:   "personas",
	Short: "List the available personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		personas, err := apiClient.Personas(cmd.Context())
		if err != nil {
			return reportError(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderPersonas(personas))
		return nil
	},
}

// statusCmd shows which provider chains the server has configured
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and configured providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		health, err := apiClient.Health(cmd.Context())
		if err != nil {
			return reportError(cmd, err)
		}

		out := cmd.OutOrStdout()
		if health.Status == "ok" {
			ui.PrintSuccess(out, "%s is %s", apiClient.Server(), health.Status)
		} else {
			ui.PrintWarning(out, "%s is %s", apiClient.Server(), health.Status)
		}

		slots := make([]string, 0, len(health.Providers))
		for slot := range health.Providers {
			slots = append(slots, slot)
		}
		sort.Strings(slots)
		for _, slot := range slots {
			names := health.Providers[slot]
			value := strings.Join(names, " → ")
			if len(names) == 0 {
				value = ui.Styles.Muted.Render("none")
			}
			fmt.Fprintf(out, "  %-8s %s\n", slot, value)
		}
		fmt.Fprintf(out, "  %-8s %s\n", "geo", onOff(health.Geo))
		if health.Store != "" {
			fmt.Fprintf(out, "  %-8s %s\n", "store", health.Store)
		}
		return nil
	},
}
