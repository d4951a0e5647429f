package board

import (
	"sort"
)

const maxReactions = 20

// State is the reconciled view of a single board.
// It is only ever replaced through Reduce; callers must treat it as read-only.
type State struct {
	Board        Board             `json:"board"`
	Columns      []Column          `json:"columns"`
	Notes        []Note            `json:"notes"`
	Votes        []Vote            `json:"votes"`
	Votings      []Voting          `json:"votings"`
	Participants []Participant     `json:"participants"`
	Reactions    []Reaction        `json:"reactions,omitempty"`
	DragLocks    map[string]string `json:"dragLocks"`

	// ids removed locally or by the server; late events for them are dropped
	deleted map[string]struct{}
	// own vote changes whose realtime echo has not been seen yet
	echoes map[voteEcho]int
}

// NewState returns an empty state for the given board
func NewState(b Board) State {
	return State{
		Board:     b,
		DragLocks: make(map[string]string),
		deleted:   make(map[string]struct{}),
	}
}

func (s State) clone() State {
	out := s
	out.Columns = append([]Column(nil), s.Columns...)
	out.Notes = append([]Note(nil), s.Notes...)
	out.Votes = append([]Vote(nil), s.Votes...)
	out.Votings = append([]Voting(nil), s.Votings...)
	out.Participants = append([]Participant(nil), s.Participants...)
	out.Reactions = append([]Reaction(nil), s.Reactions...)
	out.DragLocks = make(map[string]string, len(s.DragLocks))
	for k, v := range s.DragLocks {
		out.DragLocks[k] = v
	}
	out.deleted = make(map[string]struct{}, len(s.deleted))
	for k := range s.deleted {
		out.deleted[k] = struct{}{}
	}
	if len(s.echoes) > 0 {
		out.echoes = make(map[voteEcho]int, len(s.echoes))
		for k, v := range s.echoes {
			out.echoes[k] = v
		}
	}
	return out
}

// Note looks a note up by id
func (s State) Note(id string) (Note, bool) {
	if i := s.noteIndex(id); i >= 0 {
		return s.Notes[i], true
	}
	return Note{}, false
}

// Children returns the notes stacked under parent, ordered by rank
func (s State) Children(parent string) []Note {
	n, ok := s.Note(parent)
	if !ok {
		return nil
	}
	return s.Bucket(Bucket{Column: n.Position.Column, Stack: parent})
}

// PendingNotes returns the optimistic notes still waiting for confirmation
func (s State) PendingNotes() []Note {
	var out []Note
	for _, n := range s.Notes {
		if n.Pending() {
			out = append(out, n)
		}
	}
	return out
}

// VisibleColumns returns columns ordered by index. Hidden columns are only
// included when showHidden is set.
func (s State) VisibleColumns(showHidden bool) []Column {
	out := make([]Column, 0, len(s.Columns))
	for _, c := range s.Columns {
		if c.Visible || showHidden {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Index < out[j].Index
	})
	return out
}

// Deleted reports whether id was removed from this board session
func (s State) Deleted(id string) bool {
	_, ok := s.deleted[id]
	return ok
}

func (s State) noteIndex(id string) int {
	for i := range s.Notes {
		if s.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) tokenIndex(token string) int {
	if token == "" {
		return -1
	}
	for i := range s.Notes {
		if s.Notes[i].Token == token {
			return i
		}
	}
	return -1
}

func (s State) columnIndex(id string) int {
	for i := range s.Columns {
		if s.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *State) tombstone(id string) {
	if s.deleted == nil {
		s.deleted = make(map[string]struct{})
	}
	s.deleted[id] = struct{}{}
}

func (s *State) removeNoteAt(i int) Note {
	n := s.Notes[i]
	s.Notes = append(s.Notes[:i], s.Notes[i+1:]...)
	return n
}
