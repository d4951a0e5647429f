package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

func newSnapshots(t *testing.T) *SnapshotService {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "cache", "scrumlr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSnapshotService(db)
}

func sampleState(id string, notes int) board.State {
	s := board.Reduce(board.NewState(board.Board{ID: id, Name: "Retro " + id}), board.InitializeBoard{
		Board:   board.Board{ID: id, Name: "Retro " + id},
		Columns: []board.Column{{ID: "A", Name: "Went well", Visible: true}},
	})
	for i := 0; i < notes; i++ {
		s = board.Reduce(s, board.CreatedNote{Note: board.Note{
			ID:       id + "-n" + string(rune('0'+i)),
			Author:   "alice",
			Text:     "note",
			Position: board.Position{Column: "A", Rank: i},
		}})
	}
	return board.Reduce(s, board.NoteDragStarted{Note: id + "-n0", User: "bob"})
}

func TestSnapshotRoundTrip(t *testing.T) {
	svc := newSnapshots(t)
	ctx := context.Background()
	st := sampleState("b1", 2)

	require.NoError(t, svc.SaveSnapshot(ctx, st))

	got, saved, err := svc.LoadSnapshot(ctx, "b1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), saved, time.Minute)
	assert.Equal(t, st.Board, got.Board)
	assert.Equal(t, st.Columns, got.Columns)
	assert.Equal(t, st.Notes, got.Notes)
	assert.Empty(t, got.DragLocks)
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	svc := newSnapshots(t)
	ctx := context.Background()

	require.NoError(t, svc.SaveSnapshot(ctx, sampleState("b1", 1)))
	require.NoError(t, svc.SaveSnapshot(ctx, sampleState("b1", 3)))
	require.NoError(t, svc.SaveSnapshot(ctx, sampleState("b2", 0)))

	got, _, err := svc.LoadSnapshot(ctx, "b1")
	require.NoError(t, err)
	assert.Len(t, got.Notes, 3)

	list, err := svc.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[string]SnapshotInfo{}
	for _, info := range list {
		byID[info.BoardID] = info
	}
	assert.Equal(t, 3, byID["b1"].Notes)
	assert.Equal(t, "Retro b2", byID["b2"].Name)
}

func TestSnapshotNotFound(t *testing.T) {
	svc := newSnapshots(t)
	ctx := context.Background()

	_, _, err := svc.LoadSnapshot(ctx, "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	assert.ErrorIs(t, svc.DeleteSnapshot(ctx, "missing"), ErrSnapshotNotFound)
	assert.Error(t, svc.SaveSnapshot(ctx, board.State{}))

	require.NoError(t, svc.SaveSnapshot(ctx, sampleState("b1", 1)))
	require.NoError(t, svc.DeleteSnapshot(ctx, "b1"))
	_, _, err = svc.LoadSnapshot(ctx, "b1")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
