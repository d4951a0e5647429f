package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/services"
)

func addVote(topLevel *cobra.Command, a *app) {
	bo := &BoardOptions{}

	cmd := &cobra.Command{
		Use:   "vote",
		Short: "Vote on notes during an open voting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addBoardArgs(cmd, bo)

	add := &cobra.Command{
		Use:   "add <note>",
		Short: "Spend one vote on a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.vote(cmd, bo, func(ctx context.Context, s *session) error {
				return s.board.Vote(ctx, args[0])
			})
		},
	}
	remove := &cobra.Command{
		Use:   "remove <note>",
		Short: "Take one vote back from a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.vote(cmd, bo, func(ctx context.Context, s *session) error {
				return s.board.Unvote(ctx, args[0])
			})
		},
	}
	cmd.AddCommand(add, remove)

	topLevel.AddCommand(cmd)
}

func (a *app) vote(cmd *cobra.Command, bo *BoardOptions, fn func(context.Context, *session) error) error {
	if err := bo.validate(); err != nil {
		return err
	}
	s, err := a.join(cmd.Context(), bo.Board)
	if err != nil {
		return err
	}
	err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
		return fn(ctx, s)
	})
	if err != nil {
		return handleToasts(a.printer(cmd), s, err)
	}
	pp := a.printer(cmd)
	pp.User = s.board.User()
	pp.Summary(s.board.State())
	return nil
}

type votingOptions struct {
	Limit      int
	Multiple   bool
	ShowOthers bool
}

func addVoting(topLevel *cobra.Command, a *app) {
	bo := &BoardOptions{}
	o := &votingOptions{}

	cmd := &cobra.Command{
		Use:   "voting",
		Short: "Manage voting rounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addBoardArgs(cmd, bo)

	start := &cobra.Command{
		Use:   "start",
		Short: "Open a voting round",
		Example: `
scrumlr voting start --board 7f1c... --limit 5
scrumlr voting start --board 7f1c... --limit 5 --multiple
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			multiple := a.prefs.CumulativeVoting()
			if cmd.Flags().Changed("multiple") {
				multiple = o.Multiple
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}
			req := services.VotingRequest{VoteLimit: o.Limit, AllowMultipleVotes: multiple, ShowVotesOfOthers: o.ShowOthers}
			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.StartVoting(ctx, req)
			})
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	start.Flags().IntVar(&o.Limit, "limit", 5, "Votes per participant.")
	start.Flags().BoolVar(&o.Multiple, "multiple", false, "Allow several votes on one note, defaults to the cumulative-voting preference.")
	start.Flags().BoolVar(&o.ShowOthers, "show-others", false, "Show votes of other participants while voting.")
	cmd.AddCommand(start)

	topLevel.AddCommand(cmd)
}
