// Package printers renders boards and notifications for the terminal.
package printers

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/database"
	"github.com/CrowderSoup/scrumlr-sync/services"
)

type PrettyPrint struct {
	Out        io.Writer
	ShowID     bool
	ShowHidden bool
	// User is the participant whose votes are counted as "mine"
	User string
}

// Board prints every visible column with its notes, stacks indented under
// their parent
func (pp *PrettyPrint) Board(s board.State) {
	title := color.New(color.Bold, color.Underline)
	faint := color.New(color.Faint)
	locked := color.New(color.FgHiYellow, color.Italic)
	pending := color.New(color.Faint, color.Italic)

	name := s.Board.Name
	if name == "" {
		name = s.Board.ID
	}
	_, _ = title.Fprintln(pp.Out, name)
	if v, ok := s.OpenVoting(); ok {
		_, _ = faint.Fprintf(pp.Out, "voting open, %d of %d votes left\n", s.RemainingVotes(pp.User), v.VoteLimit)
	}
	_, _ = fmt.Fprintln(pp.Out)

	voting, open := s.OpenVoting()
	for _, c := range s.VisibleColumns(pp.ShowHidden) {
		notes := s.Bucket(board.Bucket{Column: c.ID})
		header := color.New(color.Bold)
		_, _ = header.Fprintf(pp.Out, "%s", columnName(c))
		_, _ = faint.Fprintf(pp.Out, " - %d\n", len(notes))

		if len(notes) == 0 {
			_, _ = color.New(color.Faint, color.Italic).Fprint(pp.Out, "  none\n\n")
			continue
		}

		tbl := uitable.New()
		tbl.Separator = "  "
		tbl.MaxColWidth = 60
		tbl.Wrap = true
		for _, n := range notes {
			pp.noteRow(tbl, s, n, "•", voting.ID, open, locked, pending)
			for _, child := range s.Bucket(board.Bucket{Column: c.ID, Stack: n.ID}) {
				pp.noteRow(tbl, s, child, "  ↳", voting.ID, open, locked, pending)
			}
		}
		_, _ = fmt.Fprintln(pp.Out, tbl)
		_, _ = fmt.Fprintln(pp.Out)
	}

	if len(s.Reactions) > 0 {
		reactions := make([]string, 0, len(s.Reactions))
		for _, r := range s.Reactions {
			reactions = append(reactions, r.Reaction)
		}
		_, _ = faint.Fprintf(pp.Out, "reactions: %s\n", strings.Join(reactions, " "))
	}
}

func (pp *PrettyPrint) noteRow(tbl *uitable.Table, s board.State, n board.Note, bullet, voting string, open bool, locked, pending *color.Color) {
	text := n.Text
	switch {
	case n.Pending():
		text = pending.Sprint(text + " (saving)")
	case n.Dirty:
		text = pending.Sprint(text + " (syncing)")
	}
	if holder, ok := s.LockedBy(n.ID); ok {
		text += locked.Sprintf(" [moved by %s]", holder)
	}

	votes := ""
	if open {
		if count := s.VotesFor(n.ID, voting); count > 0 {
			votes = fmt.Sprintf("+%d", count)
		}
	}

	if pp.ShowID {
		tbl.AddRow(color.New(color.FgHiYellow, color.Faint).Sprint(n.ID), bullet, text, votes)
		return
	}
	tbl.AddRow(bullet, text, votes)
}

func columnName(c board.Column) string {
	if c.Visible {
		return c.Name
	}
	return c.Name + " (hidden)"
}

// Summary is a one line account of a state change
func (pp *PrettyPrint) Summary(s board.State) {
	faint := color.New(color.Faint)
	_, _ = faint.Fprintf(pp.Out, "%s  %d notes, %d votes, %d participants, %d pending\n",
		time.Now().Format("15:04:05"), len(s.Notes), len(s.Votes), len(s.Participants), len(s.PendingNotes()))
}

// Toasts lists open error notifications
func (pp *PrettyPrint) Toasts(toasts ...services.Toast) {
	if len(toasts) == 0 {
		return
	}
	red := color.New(color.FgRed, color.Bold)
	faint := color.New(color.Faint)

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, t := range toasts {
		retry := ""
		if t.Retryable {
			retry = faint.Sprint("retryable")
		}
		tbl.AddRow(red.Sprintf("#%d", t.ID), t.Message, faint.Sprint(t.Error), retry)
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func (pp *PrettyPrint) Templates(templates []services.Template) {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("ID"), bold.Sprint("Name"), bold.Sprint("Columns"))
	for _, t := range templates {
		tbl.AddRow(t.ID, t.Name, strings.Join(t.Columns, ", "))
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func (pp *PrettyPrint) Sessions(sessions []services.BoardSession) {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Board"), bold.Sprint("Name"), bold.Sprint("Role"), bold.Sprint("Online"))
	for _, s := range sessions {
		online := ""
		if s.Connected {
			online = "yes"
		}
		tbl.AddRow(s.Board.ID, s.Board.Name, s.Role, online)
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

func (pp *PrettyPrint) Snapshots(snapshots []database.SnapshotInfo) {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(bold.Sprint("Board"), bold.Sprint("Name"), bold.Sprint("Notes"), bold.Sprint("Saved"))
	for _, s := range snapshots {
		tbl.AddRow(s.BoardID, s.Name, s.Notes, s.UpdatedAt.Local().Format(time.DateTime))
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}

// Preferences prints key/value pairs in key order
func (pp *PrettyPrint) Preferences(prefs map[string]string) {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tbl := uitable.New()
	tbl.Separator = "  "
	for _, k := range keys {
		tbl.AddRow(color.New(color.Bold).Sprint(k), prefs[k])
	}
	_, _ = fmt.Fprintln(pp.Out, tbl)
}
