package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/database"
)

func addLogin(topLevel *cobra.Command, a *app) {
	var name string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as an anonymous participant",
		Example: `
scrumlr login --name "Ada"
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("a display name is required")
			}
			api, err := a.client()
			if err != nil {
				return err
			}
			u, err := api.Login(cmd.Context(), name)
			if err != nil {
				return err
			}
			token, err := api.Session().Token()
			if err != nil {
				return err
			}
			if err := a.prefs.SetSession(token); err != nil {
				return err
			}
			if err := a.prefs.Set(database.PrefUser, u.ID); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s %s\n",
				color.New(color.Bold).Sprint(u.Name), color.New(color.Faint).Sprint(u.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name shown to the other participants.")

	topLevel.AddCommand(cmd)
}
