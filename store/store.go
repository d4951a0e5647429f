// Package store holds the reconciled board state for one client. Every change
// goes through Dispatch, which applies actions one at a time in call order.
package store

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

// Observer is told about every applied action
type Observer func(a board.Action, epoch uint64)

type Store struct {
	mu        sync.Mutex
	state     board.State
	epoch     uint64
	nextSub   int
	subs      map[int]chan board.State
	observers []Observer
	log       *logrus.Entry
}

type Option func(*Store)

func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) {
		s.log = log
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// New creates a store for an empty board
func New(b board.Board, opts ...Option) *Store {
	s := &Store{
		state: board.NewState(b),
		subs:  make(map[int]chan board.State),
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current snapshot. Snapshots are never modified in place.
func (s *Store) State() board.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Epoch identifies the current board session. It moves on every
// InitializeBoard so results of work started earlier can be recognised.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Dispatch applies a and returns the new state
func (s *Store) Dispatch(a board.Action) board.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(a)
}

// DispatchAt applies a only if epoch is still the current session.
// Late results from a previous board are dropped and false is returned.
func (s *Store) DispatchAt(epoch uint64, a board.Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		s.log.WithFields(logrus.Fields{
			"type":    a.Type(),
			"epoch":   epoch,
			"current": s.epoch,
		}).Debug("dropping action from stale board session")
		return false
	}
	s.apply(a)
	return true
}

// Reinitialize applies a board reset issued within session epoch and returns
// the session it starts. It fails like DispatchAt when epoch is stale.
func (s *Store) Reinitialize(epoch uint64, a board.InitializeBoard) (uint64, bool) {
	if !s.DispatchAt(epoch, a) {
		return epoch, false
	}
	return epoch + 1, true
}

func (s *Store) apply(a board.Action) board.State {
	if _, ok := a.(board.InitializeBoard); ok {
		s.epoch++
	}
	s.state = board.Reduce(s.state, a)
	for _, o := range s.observers {
		o(a, s.epoch)
	}
	for _, ch := range s.subs {
		publish(ch, s.state)
	}
	return s.state
}

// publish keeps only the newest snapshot for slow subscribers
func publish(ch chan board.State, st board.State) {
	select {
	case ch <- st:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- st:
	default:
	}
}

// Subscribe streams state snapshots after every applied action. Slow readers
// only see the most recent snapshot. Call the returned func to stop.
func (s *Store) Subscribe() (<-chan board.State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan board.State, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}
