package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/dnd"
)

// BoardOptions select the board a mutation is sent to
type BoardOptions struct {
	Board   string
	Retries int
}

func addBoardArgs(cmd *cobra.Command, o *BoardOptions) {
	cmd.PersistentFlags().StringVar(&o.Board, "board", "", "Board to work on.")
	cmd.PersistentFlags().IntVar(&o.Retries, "retry", 0, "Retry a failed request this many times.")
}

func (o *BoardOptions) validate() error {
	if o.Board == "" {
		return errors.New("--board is required")
	}
	return nil
}

func addNote(topLevel *cobra.Command, a *app) {
	bo := &BoardOptions{}

	cmd := &cobra.Command{
		Use:   "note",
		Short: "Add, change and move notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	addBoardArgs(cmd, bo)

	addNoteAdd(cmd, a, bo)
	addNoteEdit(cmd, a, bo)
	addNoteDelete(cmd, a, bo)
	addNoteMove(cmd, a, bo)
	addNoteDrag(cmd, a, bo)

	topLevel.AddCommand(cmd)
}

func addNoteAdd(parent *cobra.Command, a *app, bo *BoardOptions) {
	cmd := &cobra.Command{
		Use:   "add <column> <text>",
		Short: "Add a note at the end of a column",
		Example: `
scrumlr note add --board 7f1c... went-well the deploy was smooth
`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.AddNote(ctx, args[0], text)
			})
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	parent.AddCommand(cmd)
}

func addNoteEdit(parent *cobra.Command, a *app, bo *BoardOptions) {
	cmd := &cobra.Command{
		Use:   "edit <note> <text>",
		Short: "Replace the text of a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.EditNote(ctx, args[0], text)
			})
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	parent.AddCommand(cmd)
}

func addNoteDelete(parent *cobra.Command, a *app, bo *BoardOptions) {
	cmd := &cobra.Command{
		Use:   "delete <note>",
		Short: "Delete a note, notes stacked on it move back to the column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}
			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.DeleteNote(ctx, args[0])
			})
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	parent.AddCommand(cmd)
}

type moveOptions struct {
	Column string
	Stack  string
	Index  int
}

func addNoteMove(parent *cobra.Command, a *app, bo *BoardOptions) {
	o := &moveOptions{}

	cmd := &cobra.Command{
		Use:   "move <note>",
		Short: "Place a note at an index of a column or stack",
		Example: `
scrumlr note move --board 7f1c... 3b9e... --column to-improve --index 0
scrumlr note move --board 7f1c... 3b9e... --column to-improve --stack 88d0...
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			if o.Column == "" {
				return errors.New("--column is required")
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}
			to := board.Position{Column: o.Column, Stack: o.Stack, Rank: o.Index}
			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.MoveNote(ctx, args[0], to)
			})
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	cmd.Flags().StringVar(&o.Column, "column", "", "Target column.")
	cmd.Flags().StringVar(&o.Stack, "stack", "", "Target stack parent, empty for the column itself.")
	cmd.Flags().IntVar(&o.Index, "index", 0, "Position within the target, 0 is the top.")

	parent.AddCommand(cmd)
}

type dragOptions struct {
	Onto    string
	Kind    string
	Overlap float64
	Index   int
}

func (o *dragOptions) collision() (dnd.Collision, error) {
	c := dnd.Collision{ID: o.Onto, Overlap: o.Overlap, Index: o.Index}
	switch o.Kind {
	case "note":
		c.Kind = dnd.KindNote
	case "column":
		c.Kind = dnd.KindColumn
	default:
		return c, fmt.Errorf("unknown drop target kind %q", o.Kind)
	}
	return c, nil
}

func addNoteDrag(parent *cobra.Command, a *app, bo *BoardOptions) {
	o := &dragOptions{}

	cmd := &cobra.Command{
		Use:   "drag <note>",
		Short: "Drag a note over a target and drop it",
		Long: `Drag a note over a note or column and drop it there. The overlap decides
the outcome: above the move threshold the note is placed at the target, between
the combine and move thresholds it is stacked onto the target note.`,
		Example: `
scrumlr note drag --board 7f1c... 3b9e... --onto 88d0... --overlap 0.45
scrumlr note drag --board 7f1c... 3b9e... --onto went-well --kind column --index 2
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bo.validate(); err != nil {
				return err
			}
			collision, err := o.collision()
			if err != nil {
				return err
			}
			s, err := a.join(cmd.Context(), bo.Board)
			if err != nil {
				return err
			}

			d, err := s.board.BeginDrag(args[0])
			if err != nil {
				return err
			}
			decision := d.Over([]dnd.Collision{collision})
			a.log.WithField("intent", decision.Intent.String()).Debug("drag over")

			err = s.mutate(cmd.Context(), bo.Retries, func(ctx context.Context) error {
				return s.board.Drop(ctx, d)
			})
			if err == nil && decision.Intent == dnd.IntentNone {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing changed")
			}
			return handleToasts(a.printer(cmd), s, err)
		},
	}
	cmd.Flags().StringVar(&o.Onto, "onto", "", "Note or column the note is dragged over.")
	cmd.Flags().StringVar(&o.Kind, "kind", "note", "What --onto is: note or column.")
	cmd.Flags().Float64Var(&o.Overlap, "overlap", 1, "Share of the target covered by the note, between 0 and 1.")
	cmd.Flags().IntVar(&o.Index, "index", 0, "Index of the target within its column.")

	parent.AddCommand(cmd)
}
