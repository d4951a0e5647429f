package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/services"
)

func addReact(topLevel *cobra.Command, a *app) {
	bo := &BoardOptions{}

	cmd := &cobra.Command{
		Use:   "react <reaction>",
		Short: "Send a reaction to everybody on the board",
		Example: `
scrumlr react --board 7f1c... tada
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}
			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.React(ctx, args[0])
			})
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	addBoardArgs(cmd, bo)

	topLevel.AddCommand(cmd)
}

func addTemplates(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List board templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			templates, err := api.Templates(cmd.Context())
			if err != nil {
				return err
			}
			a.printer(cmd).Templates(templates)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addSessions(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List boards you have joined",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			sessions, err := api.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			a.printer(cmd).Sessions(sessions)
			return nil
		},
	}
	topLevel.AddCommand(cmd)
}

func addMirror(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Access to the local mirror of a watched board",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var (
		subject string
		ttl     time.Duration
	)
	token := &cobra.Command{
		Use:   "token",
		Short: "Issue a token for the mirror API",
		Example: `
SCRUMLR_MIRROR_SECRET=... scrumlr mirror token --subject dashboard --ttl 24h
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := services.NewMirrorAuth(a.cfg.Mirror.Secret)
			if !auth.Enabled() {
				return errors.New("mirror.secret is not set, the mirror accepts every request")
			}
			t, err := auth.CreateToken(subject, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), t)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "viewer", "Who the token is for.")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "How long the token is valid.")
	cmd.AddCommand(token)

	topLevel.AddCommand(cmd)
}
