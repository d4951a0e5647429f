package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

func TestDispatchAtDropsStaleEpoch(t *testing.T) {
	s := New(board.Board{ID: "b1"})
	s.Dispatch(board.InitializeBoard{Board: board.Board{ID: "b1"}})
	started := s.Epoch()

	s.Dispatch(board.InitializeBoard{Board: board.Board{ID: "b2"}})
	applied := s.DispatchAt(started, board.CreatedNote{Note: board.Note{ID: "late", Position: board.Position{Column: "c"}}})

	assert.False(t, applied)
	assert.Empty(t, s.State().Notes)
	assert.Equal(t, started+1, s.Epoch())

	assert.True(t, s.DispatchAt(s.Epoch(), board.CreatedNote{Note: board.Note{ID: "n1", Position: board.Position{Column: "c"}}}))
	assert.Len(t, s.State().Notes, 1)
}

func TestSubscribeSeesLatestState(t *testing.T) {
	s := New(board.Board{ID: "b1"})
	ch, stop := s.Subscribe()
	defer stop()

	for i := 0; i < 5; i++ {
		s.Dispatch(board.AddNote{Token: string(rune('a' + i)), Author: "u", Column: "c", Text: "t"})
	}

	select {
	case st := <-ch:
		assert.Len(t, st.Notes, 5)
	case <-time.After(time.Second):
		t.Fatal("no snapshot published")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	s := New(board.Board{ID: "b1"})
	ch, stop := s.Subscribe()
	stop()
	stop()

	_, open := <-ch
	assert.False(t, open)
	s.Dispatch(board.AddNote{Token: "t", Author: "u", Column: "c", Text: "x"})
}

func TestObserverSeesEveryAction(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	s := New(board.Board{ID: "b1"}, WithObserver(func(a board.Action, epoch uint64) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, a.Type())
	}))

	s.Dispatch(board.InitializeBoard{Board: board.Board{ID: "b1"}})
	s.Dispatch(board.NoteDragStarted{Note: "n", User: "u"})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, []string{"initializeBoard", "noteDragStarted"}, seen)
}

func TestConcurrentDispatchKeepsEveryNote(t *testing.T) {
	s := New(board.Board{ID: "b1"})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Dispatch(board.AddNote{Token: board.NewToken(), Author: "u", Column: "c", Text: "t"})
		}(i)
	}
	wg.Wait()

	st := s.State()
	assert.Len(t, st.Notes, 20)
	assert.NoError(t, st.CheckInvariants())
}

func TestReinitializeReturnsNewEpoch(t *testing.T) {
	s := New(board.Board{ID: "b1"})
	start := s.Epoch()

	epoch, ok := s.Reinitialize(start, board.InitializeBoard{Board: board.Board{ID: "b1"}})
	require.True(t, ok)
	assert.Equal(t, s.Epoch(), epoch)

	_, ok = s.Reinitialize(start, board.InitializeBoard{Board: board.Board{ID: "b2"}})
	assert.False(t, ok)
	assert.Equal(t, "b1", s.State().Board.ID)
}
