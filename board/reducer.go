package board

import (
	"sort"
)

// Reduce applies a to s and returns the resulting state. s is never modified.
// Authoritative events are idempotent: applying the same event twice yields
// the same state as applying it once.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case BoardAction:
		return reduceBoard(s, a)
	case NoteAction:
		return reduceNotes(s.clone(), a)
	case ColumnAction:
		return reduceColumns(s.clone(), a)
	case VoteAction:
		return reduceVotes(s.clone(), a)
	case DragLockAction:
		return reduceDragLocks(s.clone(), a)
	}
	return s
}

func reduceBoard(s State, a BoardAction) State {
	switch a := a.(type) {
	case InitializeBoard:
		next := NewState(a.Board)
		next.Columns = append([]Column(nil), a.Columns...)
		sort.SliceStable(next.Columns, func(i, j int) bool {
			return next.Columns[i].Index < next.Columns[j].Index
		})
		next.Notes = append([]Note(nil), a.Notes...)
		next.Votes = append([]Vote(nil), a.Votes...)
		next.Votings = append([]Voting(nil), a.Votings...)
		next.Participants = append([]Participant(nil), a.Participants...)
		return next
	case UpdatedParticipants:
		next := s.clone()
		next.Participants = append([]Participant(nil), a.Participants...)
		return next
	case AddedReaction:
		next := s.clone()
		next.Reactions = append(next.Reactions, a.Reaction)
		if len(next.Reactions) > maxReactions {
			next.Reactions = next.Reactions[len(next.Reactions)-maxReactions:]
		}
		return next
	}
	return s
}

func reduceNotes(s State, a NoteAction) State {
	switch a := a.(type) {
	case AddNote:
		b := Bucket{Column: a.Column}
		s.Notes = append(s.Notes, Note{
			ID:       PlaceholderID(a.Token),
			Author:   a.Author,
			Text:     a.Text,
			Position: Position{Column: a.Column, Rank: s.nextRank(b)},
			Dirty:    true,
			Token:    a.Token,
		})

	case CreatedNote:
		if s.Deleted(a.Note.ID) {
			return s
		}
		n := confirmed(a.Note)
		if i := s.noteIndex(n.ID); i >= 0 {
			s.Notes[i] = n
			return s
		}
		if i := s.matchOptimistic(n); i >= 0 {
			s.Notes[i] = n
			return s
		}
		s.Notes = append(s.Notes, n)

	case ConfirmNote:
		ti := s.tokenIndex(a.Token)
		if s.Deleted(a.Note.ID) {
			if ti >= 0 {
				b := s.removeNoteAt(ti).Bucket()
				s.renumber(b)
			}
			return s
		}
		ii := s.noteIndex(a.Note.ID)
		switch {
		case ti >= 0 && ii >= 0:
			// the realtime event won the race, drop the placeholder
			b := s.removeNoteAt(ti).Bucket()
			s.renumber(b)
		case ti >= 0:
			s.Notes[ti] = confirmed(a.Note)
		}

	case EditNote:
		i := s.noteIndex(a.ID)
		if i < 0 {
			return s
		}
		changed := false
		if a.Patch.Text != nil {
			s.Notes[i].Text = *a.Patch.Text
			changed = true
		}
		if p := a.Patch.Position; p != nil && s.moveNote(a.ID, Bucket{Column: p.Column, Stack: p.Stack}, p.Rank) {
			changed = true
		}
		if changed {
			s.Notes[s.noteIndex(a.ID)].Dirty = true
		}

	case UpdatedNote:
		if s.Deleted(a.Note.ID) {
			return s
		}
		if i := s.noteIndex(a.Note.ID); i >= 0 {
			s.Notes[i] = confirmed(a.Note)
		}

	case UpdatedNotes:
		s.replaceNotes(a.Notes)

	case DeleteNote:
		s.removeNote(a.ID)

	case DeletedNote:
		s.removeNote(a.ID)

	case RevertNotes:
		touched := make(map[Bucket]struct{})
		for _, id := range a.Remove {
			if i := s.noteIndex(id); i >= 0 {
				touched[s.removeNoteAt(i).Bucket()] = struct{}{}
			}
		}
		for _, n := range a.Restore {
			delete(s.deleted, n.ID)
			if i := s.noteIndex(n.ID); i >= 0 {
				touched[s.Notes[i].Bucket()] = struct{}{}
				s.Notes[i] = n
			} else {
				s.Notes = append(s.Notes, n)
			}
			touched[n.Bucket()] = struct{}{}
		}
		for b := range touched {
			s.renumber(b)
		}
	}
	return s
}

// matchOptimistic finds the most recent dirty placeholder with the same
// author, text and bucket as n
func (s State) matchOptimistic(n Note) int {
	for i := len(s.Notes) - 1; i >= 0; i-- {
		c := s.Notes[i]
		if c.Dirty && c.Pending() && c.Author == n.Author && c.Text == n.Text && c.Bucket() == n.Bucket() {
			return i
		}
	}
	return -1
}

// replaceNotes installs the authoritative note set. Placeholders still waiting
// for confirmation survive unless the new set contains a note that was not
// known before and matches them by content.
func (s *State) replaceNotes(incoming []Note) {
	known := make(map[string]struct{}, len(s.Notes))
	var pending []Note
	for _, n := range s.Notes {
		known[n.ID] = struct{}{}
		if n.Pending() {
			pending = append(pending, n)
		}
	}

	next := make([]Note, 0, len(incoming)+len(pending))
	fresh := make(map[int]struct{})
	for _, n := range incoming {
		if s.Deleted(n.ID) {
			continue
		}
		if _, ok := known[n.ID]; !ok {
			fresh[len(next)] = struct{}{}
		}
		next = append(next, confirmed(n))
	}

	var survivors []Note
	for i := len(pending) - 1; i >= 0; i-- {
		p := pending[i]
		matched := false
		for j := len(next) - 1; j >= 0; j-- {
			if _, ok := fresh[j]; !ok {
				continue
			}
			n := next[j]
			if n.Author == p.Author && n.Text == p.Text && n.Bucket() == p.Bucket() {
				delete(fresh, j)
				matched = true
				break
			}
		}
		if !matched {
			survivors = append([]Note{p}, survivors...)
		}
	}

	s.Notes = next
	for _, p := range survivors {
		p.Position.Rank = s.nextRank(p.Bucket())
		s.Notes = append(s.Notes, p)
	}
}

func confirmed(n Note) Note {
	n.Dirty = false
	n.Token = ""
	return n
}

func reduceColumns(s State, a ColumnAction) State {
	switch a := a.(type) {
	case CreatedColumn:
		if i := s.columnIndex(a.Column.ID); i >= 0 {
			s.Columns[i] = a.Column
		} else {
			s.Columns = append(s.Columns, a.Column)
		}
		sortColumns(s.Columns)

	case UpdatedColumns:
		s.Columns = append([]Column(nil), a.Columns...)
		sortColumns(s.Columns)

	case DeletedColumn:
		if i := s.columnIndex(a.ID); i >= 0 {
			s.Columns = append(s.Columns[:i], s.Columns[i+1:]...)
		}
		kept := s.Notes[:0]
		for _, n := range s.Notes {
			if n.Position.Column == a.ID {
				s.tombstone(n.ID)
				delete(s.DragLocks, n.ID)
				continue
			}
			kept = append(kept, n)
		}
		s.Notes = kept
	}
	return s
}

func sortColumns(cols []Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].Index < cols[j].Index
	})
}
