package dnd

import (
	"errors"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

var (
	ErrNoteNotFound = errors.New("dnd: note not found")
	ErrNoteLocked   = errors.New("dnd: note is being dragged by another participant")
)

// Session follows one drag gesture from pick-up to drop
type Session struct {
	Note       string
	User       string
	Thresholds Thresholds

	origin board.Position
	last   Decision
}

// Begin starts dragging note for user. Notes held by someone else are refused.
func Begin(s board.State, note, user string, t Thresholds) (*Session, error) {
	n, ok := s.Note(note)
	if !ok {
		return nil, ErrNoteNotFound
	}
	if s.LockedForUser(note, user) {
		return nil, ErrNoteLocked
	}
	return &Session{
		Note:       note,
		User:       user,
		Thresholds: t,
		origin:     n.Position,
	}, nil
}

func (d *Session) Started() board.NoteDragStarted {
	return board.NoteDragStarted{Note: d.Note, User: d.User}
}

func (d *Session) Ended() board.NoteDragEnded {
	return board.NoteDragEnded{Note: d.Note, User: d.User}
}

// Over records the collisions of a pointer frame and returns its reading
func (d *Session) Over(collisions []Collision) Decision {
	d.last = Classify(d.Note, collisions, d.Thresholds)
	return d.last
}

// Last is the decision of the most recent frame
func (d *Session) Last() Decision {
	return d.last
}

// Drop turns the last decision into the single edit to commit. It returns
// false when nothing should be sent, including drops that land where the
// note started.
func (d *Session) Drop(s board.State) (board.EditNote, bool) {
	pos, ok := d.resolve(s)
	if !ok {
		return board.EditNote{}, false
	}
	if d.unchanged(s, pos) {
		return board.EditNote{}, false
	}
	return board.EditNote{ID: d.Note, Patch: board.NotePatch{Position: &pos}}, true
}

func (d *Session) resolve(s board.State) (board.Position, bool) {
	switch d.last.Intent {
	case IntentReorder:
		if d.last.Kind == KindColumn {
			return board.Position{Column: d.last.Target, Rank: d.appendIndex(s, board.Bucket{Column: d.last.Target}, d.last.Index)}, true
		}
		target, ok := s.Note(d.last.Target)
		if !ok || target.Position.Stack == d.Note {
			// a parent cannot be placed among its own children
			return board.Position{}, false
		}
		for i, n := range s.Bucket(target.Bucket()) {
			if n.ID == target.ID {
				return board.Position{Column: target.Position.Column, Stack: target.Position.Stack, Rank: i}, true
			}
		}
	case IntentCombine:
		target, ok := s.Note(d.last.Target)
		if !ok {
			return board.Position{}, false
		}
		parent := target.ID
		if target.Position.Stack != "" {
			parent = target.Position.Stack
		}
		if parent == d.Note {
			return board.Position{}, false
		}
		b := board.Bucket{Column: target.Position.Column, Stack: parent}
		return board.Position{Column: b.Column, Stack: parent, Rank: d.appendIndex(s, b, -1)}, true
	}
	return board.Position{}, false
}

// appendIndex clamps index to the bucket without the dragged note
func (d *Session) appendIndex(s board.State, b board.Bucket, index int) int {
	size := 0
	for _, n := range s.Bucket(b) {
		if n.ID != d.Note {
			size++
		}
	}
	if index < 0 || index > size {
		return size
	}
	return index
}

func (d *Session) unchanged(s board.State, pos board.Position) bool {
	if pos.Column != d.origin.Column || pos.Stack != d.origin.Stack {
		return false
	}
	for i, n := range s.Bucket(board.Bucket{Column: pos.Column, Stack: pos.Stack}) {
		if n.ID == d.Note {
			return i == pos.Rank
		}
	}
	return false
}
