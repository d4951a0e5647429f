package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/services"
	"github.com/CrowderSoup/scrumlr-sync/store"
)

// StateHandler exposes the reconciled board to local tools
type StateHandler struct {
	store  *store.Store
	hub    *services.Hub
	toasts *services.Toasts
	log    *logrus.Entry
}

func NewStateHandler(st *store.Store, hub *services.Hub, toasts *services.Toasts, log *logrus.Entry) *StateHandler {
	return &StateHandler{
		store:  st,
		hub:    hub,
		toasts: toasts,
		log:    log,
	}
}

// StateView is the mirror's JSON rendition of a board
type StateView struct {
	Epoch        uint64              `json:"epoch"`
	Board        board.Board         `json:"board"`
	Columns      []board.Column      `json:"columns"`
	Notes        []board.Note        `json:"notes"`
	Votes        []board.Vote        `json:"votes"`
	Votings      []board.Voting      `json:"votings"`
	Locks        map[string]string   `json:"locks"`
	Reactions    []board.Reaction    `json:"reactions"`
	Participants []board.Participant `json:"participants"`
}

// NewStateView builds the view of s; hidden columns are left out unless asked for
func NewStateView(s board.State, epoch uint64, showHidden bool) StateView {
	cols := s.VisibleColumns(showHidden)

	notes := make([]board.Note, 0, len(s.Notes))
	for _, c := range cols {
		for _, n := range s.Bucket(board.Bucket{Column: c.ID}) {
			notes = append(notes, n)
			notes = append(notes, s.Bucket(board.Bucket{Column: c.ID, Stack: n.ID})...)
		}
	}

	return StateView{
		Epoch:        epoch,
		Board:        s.Board,
		Columns:      cols,
		Notes:        notes,
		Votes:        s.Votes,
		Votings:      s.Votings,
		Locks:        s.DragLocks,
		Reactions:    s.Reactions,
		Participants: s.Participants,
	}
}

// GetState returns the current board
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	showHidden, _ := strconv.ParseBool(r.URL.Query().Get("hidden"))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   NewStateView(h.store.State(), h.store.Epoch(), showHidden),
	})
}

// GetToasts lists open error notifications
func (h *StateHandler) GetToasts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   h.toasts.List(),
	})
}

// DismissToast closes a toast
func (h *StateHandler) DismissToast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid toast id", http.StatusBadRequest)
		return
	}
	if err := h.toasts.Dismiss(id); err != nil {
		http.Error(w, "toast not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RetryToast re-runs the operation behind a toast
func (h *StateHandler) RetryToast(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid toast id", http.StatusBadRequest)
		return
	}

	err = h.toasts.Retry(r.Context(), id)
	switch {
	case errors.Is(err, services.ErrToastNotFound):
		http.Error(w, "toast not found", http.StatusNotFound)
		return
	case err != nil:
		h.log.WithError(err).WithField("toast", id).Warn("retry failed")
		http.Error(w, "retry failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

// HandleWebSocket upgrades the HTTP connection and streams board states
func (h *StateHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	name, ok := SubjectFromContext(r.Context())
	if !ok {
		name = r.RemoteAddr
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // the mirror only listens locally
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("error upgrading to websocket")
		return
	}

	// the viewer starts from the current state and follows the broadcasts
	client := services.NewClient(h.hub, conn, name)
	if initial, err := stateMessage(NewStateView(h.store.State(), h.store.Epoch(), false)); err == nil {
		client.Send <- initial
	}
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}

func stateMessage(v StateView) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(services.WebSocketMessage{Type: services.MirrorState, Data: raw})
}

// Publish pushes every new state to the mirror viewers until ctx ends
func (h *StateHandler) Publish(ctx context.Context) {
	states, stop := h.store.Subscribe()
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			h.hub.Broadcast(services.MirrorState, NewStateView(s, h.store.Epoch(), false))
		}
	}
}
