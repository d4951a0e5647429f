// Package dnd decides what a note drag means: reordering, moving to another
// column, or combining into a stack.
package dnd

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNote Kind = iota
	KindColumn
)

func (k Kind) String() string {
	switch k {
	case KindNote:
		return "note"
	case KindColumn:
		return "column"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Collision is one drop target overlapped by the dragged note in a frame.
// Index is only meaningful for column targets: the insertion index the drag
// engine computed for the pointer, or -1 to append.
type Collision struct {
	ID      string
	Kind    Kind
	Overlap float64
	Index   int
}

// Thresholds split overlap ratios into combine and reorder ranges.
// An overlap in [Combine, Move) on a note combines; Move and above reorders.
type Thresholds struct {
	Combine float64
	Move    float64
}

var DefaultThresholds = Thresholds{Combine: 0.3, Move: 0.6}

var ErrInvalidThresholds = errors.New("dnd: thresholds must satisfy 0 <= combine < move <= 1")

func (t Thresholds) Validate() error {
	if t.Combine < 0 || t.Move > 1 || t.Combine >= t.Move {
		return fmt.Errorf("%w: combine=%v move=%v", ErrInvalidThresholds, t.Combine, t.Move)
	}
	return nil
}

type Intent int

const (
	IntentNone Intent = iota
	IntentReorder
	IntentCombine
)

func (i Intent) String() string {
	switch i {
	case IntentNone:
		return "none"
	case IntentReorder:
		return "reorder"
	case IntentCombine:
		return "combine"
	}
	return fmt.Sprintf("Intent(%d)", int(i))
}

// Decision is the classifier's reading of a single frame
type Decision struct {
	Intent Intent
	Target string
	Kind   Kind
	Index  int
}

// Classify reads the collisions of one pointer frame, highest overlap first.
// Collisions with the dragged note itself are ignored.
func Classify(active string, collisions []Collision, t Thresholds) Decision {
	top, ok := topCollision(active, collisions)
	if !ok {
		return Decision{Intent: IntentNone}
	}

	switch top.Kind {
	case KindColumn:
		if top.Overlap > t.Move {
			return Decision{Intent: IntentReorder, Target: top.ID, Kind: KindColumn, Index: top.Index}
		}
	case KindNote:
		switch {
		case top.Overlap >= t.Move:
			return Decision{Intent: IntentReorder, Target: top.ID, Kind: KindNote}
		case top.Overlap >= t.Combine:
			return Decision{Intent: IntentCombine, Target: top.ID, Kind: KindNote}
		}
	}
	return Decision{Intent: IntentNone}
}

func topCollision(active string, collisions []Collision) (Collision, bool) {
	var (
		best  Collision
		found bool
	)
	for _, c := range collisions {
		if c.Kind == KindNote && c.ID == active {
			continue
		}
		// the list is expected ranked already; keep the first on ties
		if !found || c.Overlap > best.Overlap {
			best = c
			found = true
		}
	}
	return best, found
}
