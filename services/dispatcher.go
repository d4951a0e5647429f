package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/store"
)

var ErrStaleEpoch = errors.New("services: board changed while the request was in flight")

// Operation is one user mutation: actions applied at once, the request that
// makes it durable, and the actions that undo it when the request fails.
type Operation struct {
	Name    string
	Message string

	// Validate rejects the operation before anything is applied or sent
	Validate func(board.State) error

	Optimistic []board.Action
	Call       func(ctx context.Context) ([]board.Action, error)
	Rollback   []board.Action
}

// Mutation is an operation waiting for the backend
type Mutation struct {
	ID      uint64    `json:"id"`
	Name    string    `json:"name"`
	Epoch   uint64    `json:"epoch"`
	Started time.Time `json:"started"`
}

// Dispatcher runs operations optimistically against a store and turns
// failures into toasts
type Dispatcher struct {
	store  *store.Store
	toasts *Toasts
	log    *logrus.Entry

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]Mutation
}

func NewDispatcher(st *store.Store, toasts *Toasts, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		store:   st,
		toasts:  toasts,
		log:     log,
		pending: make(map[uint64]Mutation),
	}
}

func (d *Dispatcher) Toasts() *Toasts {
	return d.toasts
}

// Run applies op and blocks until the backend answered
func (d *Dispatcher) Run(ctx context.Context, op Operation) error {
	epoch, id, err := d.begin(op)
	if err != nil {
		return err
	}
	return d.finish(ctx, op, epoch, id)
}

// Go applies the optimistic part of op on the calling goroutine and sends the
// request in the background. The channel yields the outcome once.
func (d *Dispatcher) Go(ctx context.Context, op Operation) <-chan error {
	result := make(chan error, 1)
	epoch, id, err := d.begin(op)
	if err != nil {
		result <- err
		return result
	}
	go func() {
		result <- d.finish(ctx, op, epoch, id)
	}()
	return result
}

// Pending lists mutations still waiting for an answer, oldest first
func (d *Dispatcher) Pending() []Mutation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Mutation, 0, len(d.pending))
	for _, m := range d.pending {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Dispatcher) begin(op Operation) (uint64, uint64, error) {
	if op.Validate != nil {
		if err := op.Validate(d.store.State()); err != nil {
			return 0, 0, err
		}
	}

	epoch := d.store.Epoch()
	for _, a := range op.Optimistic {
		if !d.store.DispatchAt(epoch, a) {
			return 0, 0, ErrStaleEpoch
		}
	}

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.pending[id] = Mutation{ID: id, Name: op.Name, Epoch: epoch, Started: time.Now()}
	pendingMutations.Set(float64(len(d.pending)))
	d.mu.Unlock()
	return epoch, id, nil
}

func (d *Dispatcher) finish(ctx context.Context, op Operation, epoch, id uint64) error {
	defer func() {
		d.mu.Lock()
		delete(d.pending, id)
		pendingMutations.Set(float64(len(d.pending)))
		d.mu.Unlock()
	}()

	log := d.log.WithFields(logrus.Fields{"operation": op.Name, "epoch": epoch})

	confirm, err := op.Call(ctx)
	if err != nil {
		stale := d.store.Epoch() != epoch
		for _, a := range op.Rollback {
			if !d.store.DispatchAt(epoch, a) {
				stale = true
			}
		}
		if stale {
			log.WithError(err).Debug("request failed after the board changed")
			return ErrStaleEpoch
		}
		rollbacks.WithLabelValues(op.Name).Inc()
		log.WithError(err).Warn("request failed, rolled back")
		d.toasts.Raise(op.Name, op.Message, err, func(ctx context.Context) error {
			return d.Run(ctx, op)
		})
		return err
	}

	for _, a := range confirm {
		if !d.store.DispatchAt(epoch, a) {
			log.Debug("dropping result for a previous board")
			return ErrStaleEpoch
		}
	}
	return nil
}
