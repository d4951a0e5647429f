package services

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrToastNotFound = errors.New("services: toast not found")

// Toast is a dismissible error notification. Retryable toasts re-run the
// operation that failed.
type Toast struct {
	ID        int       `json:"id"`
	Operation string    `json:"operation"`
	Message   string    `json:"message"`
	Error     string    `json:"error"`
	Created   time.Time `json:"created"`
	Retryable bool      `json:"retryable"`

	retry func(context.Context) error
}

// Toasts is the notification center
type Toasts struct {
	mu     sync.Mutex
	nextID int
	items  []Toast
	notify chan Toast
}

func NewToasts() *Toasts {
	return &Toasts{nextID: 1, notify: make(chan Toast, 16)}
}

// Raise adds a toast and returns it
func (t *Toasts) Raise(operation, message string, err error, retry func(context.Context) error) Toast {
	t.mu.Lock()
	toast := Toast{
		ID:        t.nextID,
		Operation: operation,
		Message:   message,
		Created:   time.Now(),
		Retryable: retry != nil,
		retry:     retry,
	}
	if err != nil {
		toast.Error = err.Error()
	}
	t.nextID++
	t.items = append(t.items, toast)
	t.mu.Unlock()

	toastsRaised.WithLabelValues(operation).Inc()
	select {
	case t.notify <- toast:
	default:
	}
	return toast
}

// List returns the open toasts, oldest first
func (t *Toasts) List() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Toast(nil), t.items...)
}

// Dismiss closes a toast without retrying
func (t *Toasts) Dismiss(id int) error {
	_, err := t.take(id)
	return err
}

// Retry closes a toast and re-runs its operation. A failing retry raises a
// fresh toast through the dispatcher.
func (t *Toasts) Retry(ctx context.Context, id int) error {
	toast, err := t.take(id)
	if err != nil {
		return err
	}
	if toast.retry == nil {
		return nil
	}
	return toast.retry(ctx)
}

// Notifications streams toasts as they are raised. Toasts raised while the
// buffer is full are still listed but not streamed.
func (t *Toasts) Notifications() <-chan Toast {
	return t.notify
}

func (t *Toasts) take(id int) (Toast, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, toast := range t.items {
		if toast.ID == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return toast, nil
		}
	}
	return Toast{}, ErrToastNotFound
}
