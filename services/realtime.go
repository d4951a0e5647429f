package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/store"
)

var ErrRealtimeClosed = errors.New("services: realtime channel closed")

// RealtimeURL derives the board channel address. An explicit base wins over
// the REST server address.
func RealtimeURL(server, base, boardID string) (string, error) {
	raw := base
	if raw == "" {
		raw = server
	}
	u, err := url.Parse(strings.TrimSuffix(raw, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid realtime url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid realtime url %q", raw)
	}
	u.Path += "/boards/" + url.PathEscape(boardID)
	return u.String(), nil
}

// Realtime is the connection to one board's event channel. Events are applied
// to the store in the order they arrive, tagged with the board session the
// connection was opened for.
type Realtime struct {
	conn  *websocket.Conn
	store *store.Store
	send  chan []byte
	done  chan struct{}
	once  sync.Once
	log   *logrus.Entry

	mu    sync.Mutex
	epoch uint64
}

// DialRealtime connects to addr with the session cookies in jar
func DialRealtime(ctx context.Context, addr string, jar http.CookieJar, st *store.Store, epoch uint64, log *logrus.Entry) (*Realtime, error) {
	dialer := *websocket.DefaultDialer
	dialer.Jar = jar

	conn, resp, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		if resp != nil {
			return nil, &APIError{Method: http.MethodGet, Path: addr, Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to dial realtime channel: %w", err)
	}

	return &Realtime{
		conn:  conn,
		store: st,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
		log:   log.WithField("realtime", addr),
		epoch: epoch,
	}, nil
}

// Epoch is the board session events are currently applied to
func (r *Realtime) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

// Run pumps events until ctx ends or the connection drops
func (r *Realtime) Run(ctx context.Context) error {
	go r.writePump()
	go func() {
		select {
		case <-ctx.Done():
			r.Close()
		case <-r.done:
		}
	}()

	err := r.readPump()
	r.Close()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Close stops both pumps
func (r *Realtime) Close() {
	r.once.Do(func() {
		close(r.done)
		r.conn.Close()
	})
}

// BroadcastDragLock announces a drag lock change. Delivery is best effort:
// a full buffer or a closed channel drops the message.
func (r *Realtime) BroadcastDragLock(a board.DragLockAction) {
	message, err := EncodeDragLock(a)
	if err != nil {
		r.log.WithError(err).Debug("failed to encode drag lock")
		return
	}
	select {
	case <-r.done:
	case r.send <- message:
	default:
		r.log.WithField("type", a.Type()).Debug("dropping drag lock broadcast")
	}
}

func (r *Realtime) readPump() error {
	r.conn.SetReadLimit(maxMessageSize)
	r.conn.SetReadDeadline(time.Now().Add(pongWait))
	r.conn.SetPongHandler(func(string) error {
		r.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	r.conn.SetPingHandler(func(data string) error {
		r.conn.SetReadDeadline(time.Now().Add(pongWait))
		err := r.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, message, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.done:
				return ErrRealtimeClosed
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrRealtimeClosed
			}
			return fmt.Errorf("realtime read failed: %w", err)
		}

		// the backend may batch several events into one frame
		for _, raw := range bytes.Split(message, []byte("\n")) {
			if len(bytes.TrimSpace(raw)) == 0 {
				continue
			}
			r.handle(raw)
		}
	}
}

func (r *Realtime) handle(raw []byte) {
	action, err := DecodeEvent(raw)
	if err != nil {
		outcome := "malformed"
		if errors.Is(err, ErrUnknownEvent) {
			outcome = "unknown"
		}
		realtimeEvents.WithLabelValues(outcome).Inc()
		r.log.WithError(err).Debug("ignoring realtime message")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	applied := false
	if init, ok := action.(board.InitializeBoard); ok {
		r.epoch, applied = r.store.Reinitialize(r.epoch, init)
	} else {
		applied = r.store.DispatchAt(r.epoch, action)
	}
	if !applied {
		realtimeEvents.WithLabelValues("stale").Inc()
		return
	}
	realtimeEvents.WithLabelValues("applied").Inc()
}

func (r *Realtime) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		r.Close()
	}()

	for {
		select {
		case <-r.done:
			r.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case message := <-r.send:
			r.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := r.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				r.log.WithError(err).Debug("drag lock write failed")
				return
			}
		case <-ticker.C:
			r.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := r.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
