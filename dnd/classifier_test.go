package dnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

var thresholds = Thresholds{Combine: 0.3, Move: 0.6}

func TestClassifyNoteOverlap(t *testing.T) {
	tests := []struct {
		name    string
		overlap float64
		want    Intent
	}{
		{name: "below combine", overlap: 0.2, want: IntentNone},
		{name: "at combine", overlap: 0.3, want: IntentCombine},
		{name: "between", overlap: 0.5, want: IntentCombine},
		{name: "at move", overlap: 0.6, want: IntentReorder},
		{name: "above move", overlap: 0.65, want: IntentReorder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify("x", []Collision{{ID: "y", Kind: KindNote, Overlap: tt.overlap}}, thresholds)
			assert.Equal(t, tt.want, d.Intent)
		})
	}
}

func TestClassifyColumnNeedsMoreThanMove(t *testing.T) {
	d := Classify("x", []Collision{{ID: "col", Kind: KindColumn, Overlap: 0.6, Index: 2}}, thresholds)
	assert.Equal(t, IntentNone, d.Intent)

	d = Classify("x", []Collision{{ID: "col", Kind: KindColumn, Overlap: 0.61, Index: 2}}, thresholds)
	assert.Equal(t, Decision{Intent: IntentReorder, Target: "col", Kind: KindColumn, Index: 2}, d)

	// a column never combines
	d = Classify("x", []Collision{{ID: "col", Kind: KindColumn, Overlap: 0.4}}, thresholds)
	assert.Equal(t, IntentNone, d.Intent)
}

func TestClassifyIgnoresActiveNote(t *testing.T) {
	d := Classify("x", []Collision{
		{ID: "x", Kind: KindNote, Overlap: 1},
		{ID: "y", Kind: KindNote, Overlap: 0.45},
	}, thresholds)

	assert.Equal(t, Decision{Intent: IntentCombine, Target: "y", Kind: KindNote}, d)
	assert.Equal(t, IntentNone, Classify("x", []Collision{{ID: "x", Kind: KindNote, Overlap: 0.5}}, thresholds).Intent)
	assert.Equal(t, IntentNone, Classify("x", nil, thresholds).Intent)
}

func TestClassifyPicksHighestOverlap(t *testing.T) {
	d := Classify("x", []Collision{
		{ID: "col", Kind: KindColumn, Overlap: 0.35},
		{ID: "y", Kind: KindNote, Overlap: 0.7},
	}, thresholds)

	assert.Equal(t, IntentReorder, d.Intent)
	assert.Equal(t, "y", d.Target)
}

func TestThresholdsValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds.Validate())
	assert.ErrorIs(t, Thresholds{Combine: 0.6, Move: 0.6}.Validate(), ErrInvalidThresholds)
	assert.ErrorIs(t, Thresholds{Combine: -0.1, Move: 0.6}.Validate(), ErrInvalidThresholds)
	assert.ErrorIs(t, Thresholds{Combine: 0.1, Move: 1.2}.Validate(), ErrInvalidThresholds)
}

func testBoard(notes ...board.Note) board.State {
	return board.Reduce(board.NewState(board.Board{ID: "b"}), board.InitializeBoard{
		Board: board.Board{ID: "b"},
		Columns: []board.Column{
			{ID: "A", Visible: true, Index: 0},
			{ID: "B", Visible: true, Index: 1},
		},
		Notes: notes,
	})
}

func n(id, column, stack string, rank int) board.Note {
	return board.Note{ID: id, Author: "alice", Text: id, Position: board.Position{Column: column, Stack: stack, Rank: rank}}
}

func TestDragOntoNoteBetweenThresholdsCombines(t *testing.T) {
	s := testBoard(n("X", "A", "", 0), n("Y", "B", "", 0))

	d, err := Begin(s, "X", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "B", Kind: KindColumn, Overlap: 0.2}, {ID: "Y", Kind: KindNote, Overlap: 0.4}})
	edit, ok := d.Drop(s)

	require.True(t, ok)
	require.NotNil(t, edit.Patch.Position)
	assert.Nil(t, edit.Patch.Text)
	assert.Equal(t, "X", edit.ID)
	assert.Equal(t, board.Position{Column: "B", Stack: "Y", Rank: 0}, *edit.Patch.Position)

	s = board.Reduce(s, edit)
	x, _ := s.Note("X")
	assert.Equal(t, "B", x.Position.Column)
	assert.Equal(t, "Y", x.Position.Stack)
}

func TestCombineOntoChildUsesItsParent(t *testing.T) {
	s := testBoard(n("X", "A", "", 0), n("P", "B", "", 0), n("C", "B", "P", 0))

	d, err := Begin(s, "X", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "C", Kind: KindNote, Overlap: 0.5}})
	edit, ok := d.Drop(s)

	require.True(t, ok)
	assert.Equal(t, board.Position{Column: "B", Stack: "P", Rank: 1}, *edit.Patch.Position)
}

func TestCombineParentOntoOwnChildIsIgnored(t *testing.T) {
	s := testBoard(n("P", "A", "", 0), n("C", "A", "P", 0))

	d, err := Begin(s, "P", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "C", Kind: KindNote, Overlap: 0.5}})
	_, ok := d.Drop(s)

	assert.False(t, ok)
}

func TestReorderParentAmongOwnChildrenIsIgnored(t *testing.T) {
	s := testBoard(n("P", "A", "", 0), n("C1", "A", "P", 0), n("C2", "A", "P", 1))

	d, err := Begin(s, "P", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "C1", Kind: KindNote, Overlap: 0.7}})
	_, ok := d.Drop(s)

	assert.False(t, ok)
}

func TestReorderOntoNoteTakesItsIndex(t *testing.T) {
	s := testBoard(n("a", "A", "", 0), n("b", "A", "", 1), n("c", "A", "", 2))

	d, err := Begin(s, "a", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "c", Kind: KindNote, Overlap: 0.8}})
	edit, ok := d.Drop(s)

	require.True(t, ok)
	s = board.Reduce(s, edit)
	var order []string
	for _, note := range s.Bucket(board.Bucket{Column: "A"}) {
		order = append(order, note.ID)
	}
	assert.Equal(t, []string{"b", "c", "a"}, order)
}

func TestReorderIntoColumn(t *testing.T) {
	s := testBoard(n("a", "A", "", 0), n("x", "B", "", 0), n("y", "B", "", 1))

	d, err := Begin(s, "a", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "B", Kind: KindColumn, Overlap: 0.9, Index: -1}})
	edit, ok := d.Drop(s)

	require.True(t, ok)
	assert.Equal(t, board.Position{Column: "B", Rank: 2}, *edit.Patch.Position)
}

func TestDropAtOriginIsNoop(t *testing.T) {
	s := testBoard(n("a", "A", "", 0), n("b", "A", "", 1))

	d, err := Begin(s, "b", "alice", thresholds)
	require.NoError(t, err)

	_, ok := d.Drop(s)
	assert.False(t, ok, "no frames")

	d.Over([]Collision{{ID: "A", Kind: KindColumn, Overlap: 0.9, Index: -1}})
	_, ok = d.Drop(s)
	assert.False(t, ok, "appending the last note to its own column")

	d.Over([]Collision{{ID: "b", Kind: KindNote, Overlap: 1}})
	_, ok = d.Drop(s)
	assert.False(t, ok, "hovering itself")
}

func TestCombineIntoCurrentStackIsNoop(t *testing.T) {
	s := testBoard(n("P", "A", "", 0), n("C", "A", "P", 0))

	d, err := Begin(s, "C", "alice", thresholds)
	require.NoError(t, err)
	d.Over([]Collision{{ID: "P", Kind: KindNote, Overlap: 0.4}})
	_, ok := d.Drop(s)

	assert.False(t, ok)
}

func TestBeginRefusesForeignLock(t *testing.T) {
	s := testBoard(n("a", "A", "", 0))
	s = board.Reduce(s, board.NoteDragStarted{Note: "a", User: "bob"})

	_, err := Begin(s, "a", "alice", thresholds)
	assert.ErrorIs(t, err, ErrNoteLocked)

	_, err = Begin(s, "a", "bob", thresholds)
	assert.NoError(t, err)

	_, err = Begin(s, "missing", "alice", thresholds)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}
