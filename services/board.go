package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/dnd"
	"github.com/CrowderSoup/scrumlr-sync/store"
)

var (
	ErrColumnNotFound = errors.New("services: column not found")
	ErrNotePending    = errors.New("services: note is still being created")
)

// LockBroadcaster announces drag locks to the other participants
type LockBroadcaster interface {
	BroadcastDragLock(a board.DragLockAction)
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastDragLock(board.DragLockAction) {}

// BoardService is what a participant can do on the joined board
type BoardService struct {
	api        *APIClient
	store      *store.Store
	dispatcher *Dispatcher
	user       string
	thresholds dnd.Thresholds
	locks      LockBroadcaster
	log        *logrus.Entry
}

func NewBoardService(api *APIClient, st *store.Store, d *Dispatcher, user string, t dnd.Thresholds, log *logrus.Entry) *BoardService {
	return &BoardService{
		api:        api,
		store:      st,
		dispatcher: d,
		user:       user,
		thresholds: t,
		locks:      noopBroadcaster{},
		log:        log,
	}
}

// SetBroadcaster routes drag lock announcements, usually to the realtime channel
func (b *BoardService) SetBroadcaster(l LockBroadcaster) {
	if l == nil {
		l = noopBroadcaster{}
	}
	b.locks = l
}

func (b *BoardService) User() string {
	return b.user
}

func (b *BoardService) State() board.State {
	return b.store.State()
}

// Join loads a board and starts a new board session. It returns the session
// epoch realtime events must be applied under.
func (b *BoardService) Join(ctx context.Context, boardID string) (uint64, error) {
	snap, err := b.api.Board(ctx, boardID)
	if err != nil {
		return 0, fmt.Errorf("failed to load board %s: %w", boardID, err)
	}
	if snap.Board.ID == "" {
		snap.Board.ID = boardID
	}

	// a fresh epoch means no in-flight request of the previous board can land
	before := b.store.Epoch()
	epoch, _ := b.store.Reinitialize(before, snap.Action())
	b.log.WithFields(logrus.Fields{
		"board": snap.Board.ID,
		"notes": len(snap.Notes),
		"epoch": epoch,
	}).Info("joined board")
	return epoch, nil
}

func (b *BoardService) boardID() string {
	return b.store.State().Board.ID
}

// AddNote creates a note at the end of column
func (b *BoardService) AddNote(ctx context.Context, column, text string) error {
	text = strings.TrimSpace(text)
	token := board.NewToken()
	boardID := b.boardID()

	return b.dispatcher.Run(ctx, Operation{
		Name:    "addNote",
		Message: "Could not add the note",
		Validate: func(s board.State) error {
			if text == "" {
				return board.ErrEmptyText
			}
			for _, c := range s.Columns {
				if c.ID == column {
					return nil
				}
			}
			return ErrColumnNotFound
		},
		Optimistic: []board.Action{board.AddNote{Token: token, Author: b.user, Column: column, Text: text}},
		Call: func(ctx context.Context) ([]board.Action, error) {
			n, err := b.api.CreateNote(ctx, boardID, column, text)
			if err != nil {
				return nil, err
			}
			return []board.Action{board.ConfirmNote{Token: token, Note: n}}, nil
		},
		Rollback: []board.Action{board.RevertNotes{Remove: []string{board.PlaceholderID(token)}}},
	})
}

// EditNote replaces the text of a note
func (b *BoardService) EditNote(ctx context.Context, id, text string) error {
	text = strings.TrimSpace(text)
	prev, err := b.editable(id)
	if err != nil {
		return err
	}
	if text == "" {
		return board.ErrEmptyText
	}

	return b.dispatcher.Run(ctx, Operation{
		Name:       "editNote",
		Message:    "Could not save the note",
		Optimistic: []board.Action{board.EditNote{ID: id, Patch: board.NotePatch{Text: &text}}},
		Call: func(ctx context.Context) ([]board.Action, error) {
			n, err := b.api.UpdateNote(ctx, id, NoteUpdate{Text: &text})
			if err != nil {
				return nil, err
			}
			return []board.Action{board.UpdatedNote{Note: n}}, nil
		},
		Rollback: []board.Action{board.RevertNotes{Restore: []board.Note{prev}}},
	})
}

// MoveNote places a note at index within a column or a stack
func (b *BoardService) MoveNote(ctx context.Context, id string, to board.Position) error {
	if _, err := b.editable(id); err != nil {
		return err
	}
	s := b.store.State()
	edit := board.EditNote{ID: id, Patch: board.NotePatch{Position: &to}}
	return b.commitEdit(ctx, s, edit)
}

// DeleteNote removes a note. Children of a stack parent are promoted.
func (b *BoardService) DeleteNote(ctx context.Context, id string) error {
	prev, err := b.editable(id)
	if err != nil {
		return err
	}
	s := b.store.State()
	restore := append(s.Bucket(prev.Bucket()), s.Children(id)...)

	return b.dispatcher.Run(ctx, Operation{
		Name:       "deleteNote",
		Message:    "Could not delete the note",
		Optimistic: []board.Action{board.DeleteNote{ID: id}},
		Call: func(ctx context.Context) ([]board.Action, error) {
			return nil, b.api.DeleteNote(ctx, id)
		},
		Rollback: []board.Action{board.RevertNotes{Restore: restore}},
	})
}

func (b *BoardService) editable(id string) (board.Note, error) {
	n, ok := b.store.State().Note(id)
	if !ok {
		return board.Note{}, board.ErrNoteNotFound
	}
	if board.IsPlaceholder(n.ID) {
		return board.Note{}, ErrNotePending
	}
	return n, nil
}

// Vote adds one vote of the current user to note
func (b *BoardService) Vote(ctx context.Context, note string) error {
	s := b.store.State()
	voting, err := s.CanVote(b.user, note)
	if err != nil {
		return err
	}
	v := board.Vote{Voting: voting.ID, Note: note, User: b.user}
	boardID := s.Board.ID

	return b.dispatcher.Run(ctx, Operation{
		Name:       "addVote",
		Message:    "Could not add the vote",
		Optimistic: []board.Action{board.AddVote{Vote: v}},
		Call: func(ctx context.Context) ([]board.Action, error) {
			created, err := b.api.AddVote(ctx, boardID, note)
			if err != nil {
				return nil, err
			}
			if created.User == "" {
				created.User = b.user
			}
			return []board.Action{board.ConfirmVote{Vote: created}}, nil
		},
		Rollback: []board.Action{board.RevertVote{Vote: v}},
	})
}

// Unvote takes back one vote of the current user from note
func (b *BoardService) Unvote(ctx context.Context, note string) error {
	s := b.store.State()
	voting, err := s.CanUnvote(b.user, note)
	if err != nil {
		return err
	}
	v := board.Vote{Voting: voting.ID, Note: note, User: b.user}
	boardID := s.Board.ID

	return b.dispatcher.Run(ctx, Operation{
		Name:       "deleteVote",
		Message:    "Could not remove the vote",
		Optimistic: []board.Action{board.DeleteVote{Voting: voting.ID, Note: note, User: b.user}},
		Call: func(ctx context.Context) ([]board.Action, error) {
			return nil, b.api.RemoveVote(ctx, boardID, note)
		},
		Rollback: []board.Action{board.RevertVote{Vote: v, Restore: true}},
	})
}

// StartVoting opens a voting round. There is nothing to show before the
// backend assigns the voting id so it is not optimistic.
func (b *BoardService) StartVoting(ctx context.Context, req VotingRequest) error {
	boardID := b.boardID()
	return b.dispatcher.Run(ctx, Operation{
		Name:    "startVoting",
		Message: "Could not start the voting",
		Validate: func(board.State) error {
			if req.VoteLimit <= 0 {
				return fmt.Errorf("vote limit must be positive, got %d", req.VoteLimit)
			}
			return nil
		},
		Call: func(ctx context.Context) ([]board.Action, error) {
			v, err := b.api.StartVoting(ctx, boardID, req)
			if err != nil {
				return nil, err
			}
			return []board.Action{board.CreatedVoting{Voting: v}}, nil
		},
	})
}

// React sends a board reaction. The reaction shows up through the realtime
// channel like everybody else's.
func (b *BoardService) React(ctx context.Context, reaction string) error {
	boardID := b.boardID()
	return b.dispatcher.Run(ctx, Operation{
		Name:    "addReaction",
		Message: "Could not send the reaction",
		Call: func(ctx context.Context) ([]board.Action, error) {
			return nil, b.api.AddReaction(ctx, boardID, reaction)
		},
	})
}

// BeginDrag picks up a note and announces the lock
func (b *BoardService) BeginDrag(note string) (*dnd.Session, error) {
	d, err := dnd.Begin(b.store.State(), note, b.user, b.thresholds)
	if err != nil {
		return nil, err
	}
	started := d.Started()
	b.store.Dispatch(started)
	b.locks.BroadcastDragLock(started)
	return d, nil
}

// CancelDrag releases the lock without committing anything
func (b *BoardService) CancelDrag(d *dnd.Session) {
	ended := d.Ended()
	b.store.Dispatch(ended)
	b.locks.BroadcastDragLock(ended)
}

// Drop releases the lock and commits the drop as a single edit
func (b *BoardService) Drop(ctx context.Context, d *dnd.Session) error {
	s := b.store.State()
	edit, ok := d.Drop(s)
	b.CancelDrag(d)
	if !ok {
		return nil
	}
	return b.commitEdit(ctx, s, edit)
}

func (b *BoardService) commitEdit(ctx context.Context, s board.State, edit board.EditNote) error {
	moved, ok := s.Note(edit.ID)
	if !ok {
		return board.ErrNoteNotFound
	}
	restore := affectedNotes(s, moved, *edit.Patch.Position)

	return b.dispatcher.Run(ctx, Operation{
		Name:    "moveNote",
		Message: "Could not move the note",
		Validate: func(s board.State) error {
			return s.CanMove(edit.ID, *edit.Patch.Position)
		},
		Optimistic: []board.Action{edit},
		Call: func(ctx context.Context) ([]board.Action, error) {
			n, err := b.api.UpdateNote(ctx, edit.ID, NoteUpdate{Position: edit.Patch.Position})
			if err != nil {
				return nil, err
			}
			return []board.Action{board.UpdatedNote{Note: n}}, nil
		},
		Rollback: []board.Action{board.RevertNotes{Restore: restore}},
	})
}

// affectedNotes are the notes a move can renumber: both buckets and the
// moved note's own stack
func affectedNotes(s board.State, moved board.Note, to board.Position) []board.Note {
	seen := make(map[string]bool)
	var out []board.Note
	add := func(notes []board.Note) {
		for _, n := range notes {
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n)
			}
		}
	}
	add([]board.Note{moved})
	add(s.Bucket(moved.Bucket()))
	add(s.Bucket(board.Bucket{Column: to.Column, Stack: to.Stack}))
	add(s.Children(moved.ID))
	return out
}
