package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/database"
)

func addPrefs(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show all preferences",
		Long:  "Known preferences: " + strings.Join(database.Keys(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.prefs.All()
			if err != nil {
				return err
			}
			a.printer(cmd).Preferences(all)
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one preference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.prefs.Get(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
	set := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Change a preference, leave out the value to restore the default",
		Example: `
scrumlr prefs set theme dark
scrumlr prefs set custom-timer-duration 5m
scrumlr prefs set theme
`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			return a.prefs.Set(args[0], value)
		},
	}
	cmd.AddCommand(get, set)

	topLevel.AddCommand(cmd)
}
