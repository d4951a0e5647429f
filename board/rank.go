package board

import (
	"errors"
	"fmt"
	"sort"
)

// Bucket is the (column, stack) pair that defines one ordered note sequence
type Bucket struct {
	Column string
	Stack  string
}

// Bucket returns the notes of b ordered by rank. Ties are broken by id so the
// order is total even while server ranks collide.
func (s State) Bucket(b Bucket) []Note {
	var out []Note
	for _, n := range s.Notes {
		if n.Bucket() == b {
			out = append(out, n)
		}
	}
	sortByRank(out)
	return out
}

func sortByRank(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Position.Rank != notes[j].Position.Rank {
			return notes[i].Position.Rank < notes[j].Position.Rank
		}
		return notes[i].ID < notes[j].ID
	})
}

// nextRank is one past the highest rank in b, or 0 for an empty bucket
func (s State) nextRank(b Bucket) int {
	next := 0
	for _, n := range s.Notes {
		if n.Bucket() == b && n.Position.Rank >= next {
			next = n.Position.Rank + 1
		}
	}
	return next
}

// renumber rewrites the ranks of b to 0..n-1 following the current order
func (s *State) renumber(b Bucket) {
	ordered := s.Bucket(b)
	ranks := make(map[string]int, len(ordered))
	for i, n := range ordered {
		ranks[n.ID] = i
	}
	for i := range s.Notes {
		if s.Notes[i].Bucket() == b {
			s.Notes[i].Position.Rank = ranks[s.Notes[i].ID]
		}
	}
}

// moveNote removes id from its bucket and inserts it into to at index.
// An index outside the bucket appends. Stacked children follow their parent.
func (s *State) moveNote(id string, to Bucket, index int) bool {
	i := s.noteIndex(id)
	if i < 0 {
		return false
	}
	if to.Stack != "" {
		if to.Stack == id {
			return false
		}
		p := s.noteIndex(to.Stack)
		if p < 0 || s.Notes[p].Position.Stack != "" {
			return false
		}
		// children always share their parent's column
		to.Column = s.Notes[p].Position.Column
	}
	from := s.Notes[i].Bucket()

	order := make([]string, 0)
	for _, n := range s.Bucket(to) {
		if n.ID != id {
			order = append(order, n.ID)
		}
	}
	if index < 0 || index > len(order) {
		index = len(order)
	}
	order = append(order[:index], append([]string{id}, order[index:]...)...)

	s.Notes[i].Position.Column = to.Column
	s.Notes[i].Position.Stack = to.Stack
	for rank, nid := range order {
		s.Notes[s.noteIndex(nid)].Position.Rank = rank
	}
	if from != to {
		s.renumber(from)
	}

	children := s.Bucket(Bucket{Column: from.Column, Stack: id})
	if len(children) == 0 {
		return true
	}
	next := s.nextRank(Bucket{Column: to.Column, Stack: to.Stack})
	for _, c := range children {
		ci := s.noteIndex(c.ID)
		s.Notes[ci].Position.Column = to.Column
		if to.Stack != "" {
			// no nesting below one level, the children join the new stack
			s.Notes[ci].Position.Stack = to.Stack
			s.Notes[ci].Position.Rank = next
			next++
		}
	}
	return true
}

// removeNote deletes id and re-parents its children onto the first child
func (s *State) removeNote(id string) (Note, bool) {
	s.tombstone(id)
	delete(s.DragLocks, id)
	i := s.noteIndex(id)
	if i < 0 {
		return Note{}, false
	}
	removed := s.removeNoteAt(i)
	from := removed.Bucket()

	children := s.Bucket(Bucket{Column: removed.Position.Column, Stack: removed.ID})
	if len(children) > 0 {
		head := children[0]
		hi := s.noteIndex(head.ID)
		s.Notes[hi].Position.Stack = ""
		s.Notes[hi].Position.Rank = removed.Position.Rank
		for _, c := range children[1:] {
			s.Notes[s.noteIndex(c.ID)].Position.Stack = head.ID
		}
		s.renumber(Bucket{Column: removed.Position.Column, Stack: head.ID})
	}
	s.renumber(from)
	return removed, true
}

var (
	ErrDuplicateRank = errors.New("board: duplicate rank in bucket")
	ErrNestedStack   = errors.New("board: stack nested deeper than one level")
	ErrOrphanedNote  = errors.New("board: note stacked under a missing parent")
	ErrColumnMissing = errors.New("board: column not found")
	ErrInvalidStack  = errors.New("board: note cannot be stacked there")
)

// CanMove checks that note id may be placed at to. It applies the same rules
// moveNote enforces so a rejected move is never sent to the backend.
func (s State) CanMove(id string, to Position) error {
	if _, ok := s.Note(id); !ok {
		return ErrNoteNotFound
	}
	if s.columnIndex(to.Column) < 0 {
		return fmt.Errorf("%w: %s", ErrColumnMissing, to.Column)
	}
	if to.Stack == "" {
		return nil
	}
	if to.Stack == id {
		return fmt.Errorf("%w: %s onto itself", ErrInvalidStack, id)
	}
	parent, ok := s.Note(to.Stack)
	if !ok {
		return fmt.Errorf("%w: parent %s not found", ErrInvalidStack, to.Stack)
	}
	if parent.Position.Stack != "" {
		return fmt.Errorf("%w: %s is itself stacked", ErrInvalidStack, to.Stack)
	}
	if parent.Position.Column != to.Column {
		return fmt.Errorf("%w: %s is not in column %s", ErrInvalidStack, to.Stack, to.Column)
	}
	return nil
}

// CheckInvariants verifies rank uniqueness per bucket and the stack depth rule
func (s State) CheckInvariants() error {
	seen := make(map[Bucket]map[int]string)
	for _, n := range s.Notes {
		b := n.Bucket()
		if seen[b] == nil {
			seen[b] = make(map[int]string)
		}
		if other, ok := seen[b][n.Position.Rank]; ok {
			return fmt.Errorf("%w: %s and %s at rank %d", ErrDuplicateRank, other, n.ID, n.Position.Rank)
		}
		seen[b][n.Position.Rank] = n.ID

		if n.Position.Stack == "" {
			continue
		}
		parent, ok := s.Note(n.Position.Stack)
		if !ok {
			return fmt.Errorf("%w: %s references %s", ErrOrphanedNote, n.ID, n.Position.Stack)
		}
		if parent.Position.Stack != "" {
			return fmt.Errorf("%w: %s under %s", ErrNestedStack, n.ID, parent.ID)
		}
	}
	return nil
}
