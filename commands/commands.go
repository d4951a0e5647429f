// Package commands is the scrumlr command line
package commands

import (
	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/config"
)

func New() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:           "scrumlr",
		Short:         "Take part in scrumlr retrospective boards from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("server", "", "Board backend, example: --server=https://api.scrumlr.io")
	flags.String("data-dir", "", "Where preferences and board snapshots are kept.")
	flags.String("log-level", "", "One of trace, debug, info, warn or error.")
	flags.String("log-format", "", "Log as text or json.")
	_ = a.v.BindPFlag(config.KeyServer, flags.Lookup("server"))
	_ = a.v.BindPFlag(config.KeyDataDir, flags.Lookup("data-dir"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	addCommands(cmd, a)
	return cmd
}

func addCommands(topLevel *cobra.Command, a *app) {
	addLogin(topLevel, a)
	addBoard(topLevel, a)
	addNote(topLevel, a)
	addVote(topLevel, a)
	addVoting(topLevel, a)
	addReact(topLevel, a)
	addPrefs(topLevel, a)
	addMirror(topLevel, a)
	addTemplates(topLevel, a)
	addSessions(topLevel, a)
}
