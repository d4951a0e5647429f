package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrowderSoup/scrumlr-sync/board"
	"github.com/CrowderSoup/scrumlr-sync/database"
	"github.com/CrowderSoup/scrumlr-sync/services"
)

type backend struct {
	mu      sync.Mutex
	fail    bool
	creates int
	patches []services.NoteUpdate
}

func (b *backend) router(t *testing.T) http.Handler {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "alice"}).SignedString([]byte("backend"))
	require.NoError(t, err)

	r := mux.NewRouter()
	r.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: services.SessionCookie, Value: token, Path: "/"})
		reply(w, http.StatusCreated, services.User{ID: "alice", Name: "Alice"})
	}).Methods(http.MethodPost)

	r.HandleFunc("/boards/b1", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, services.BoardSnapshot{
			Board:   board.Board{ID: "b1", Name: "Retro"},
			Columns: []board.Column{{ID: "A", Name: "Went well", Visible: true}},
			Notes: []board.Note{
				{ID: "P", Author: "bob", Text: "parent", Position: board.Position{Column: "A", Rank: 0}},
				{ID: "N", Author: "bob", Text: "loose", Position: board.Position{Column: "A", Rank: 1}},
			},
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/boards/b1/notes", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.creates++
		fail := b.fail
		b.mu.Unlock()
		if fail {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		var body struct{ Column, Text string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		reply(w, http.StatusCreated, board.Note{ID: "n1", Author: "alice", Text: body.Text, Position: board.Position{Column: body.Column, Rank: 2}})
	}).Methods(http.MethodPost)

	r.HandleFunc("/notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		var update services.NoteUpdate
		_ = json.NewDecoder(r.Body).Decode(&update)
		b.mu.Lock()
		b.patches = append(b.patches, update)
		b.mu.Unlock()
		n := board.Note{ID: mux.Vars(r)["id"], Author: "bob", Text: "loose"}
		if update.Position != nil {
			n.Position = *update.Position
		}
		reply(w, http.StatusOK, n)
	}).Methods(http.MethodPatch)

	return r
}

func (b *backend) setFail(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fail = fail
}

func (b *backend) created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.creates
}

func (b *backend) patched() []services.NoteUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]services.NoteUpdate(nil), b.patches...)
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type harness struct {
	server  string
	dataDir string
	backend *backend
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(b.router(t))
	t.Cleanup(srv.Close)
	return &harness{server: srv.URL, dataDir: t.TempDir(), backend: b}
}

func (h *harness) run(args ...string) (string, error) {
	cmd := New()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--server", h.server, "--data-dir", h.dataDir, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginThenAddNote(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("login", "--name", "Alice")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as")

	out, err = h.run("prefs", "get", database.PrefUser)
	require.NoError(t, err)
	assert.Equal(t, "alice", strings.TrimSpace(out))

	_, err = h.run("note", "add", "--board", "b1", "A", "ship", "it")
	require.NoError(t, err)
	assert.Equal(t, 1, h.backend.created())
}

func TestAddNoteRequiresLogin(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("note", "add", "--board", "b1", "A", "ship it")
	assert.ErrorIs(t, err, services.ErrNotLoggedIn)
	assert.Zero(t, h.backend.created())
}

func TestFailedNoteIsRetried(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("login", "--name", "Alice")
	require.NoError(t, err)

	h.backend.setFail(true)
	out, err := h.run("note", "add", "--board", "b1", "--retry", "2", "A", "ship it")
	require.Error(t, err)
	assert.Equal(t, 3, h.backend.created())
	assert.Contains(t, out, "Could not add the note")

	_, err = h.run("note", "add", "A", "ship it")
	assert.EqualError(t, err, "--board is required")
}

func TestDragStacksNote(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("login", "--name", "Alice")
	require.NoError(t, err)

	_, err = h.run("note", "drag", "--board", "b1", "N", "--onto", "P", "--overlap", "0.45")
	require.NoError(t, err)
	patches := h.backend.patched()
	require.Len(t, patches, 1)
	require.NotNil(t, patches[0].Position)
	assert.Equal(t, "P", patches[0].Position.Stack)

	out, err := h.run("note", "drag", "--board", "b1", "N", "--onto", "P", "--overlap", "0.1")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing changed")
	assert.Len(t, h.backend.patched(), 1)

	_, err = h.run("note", "drag", "--board", "b1", "N", "--onto", "P", "--kind", "stack")
	assert.Error(t, err)
}

func TestPreferences(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("prefs", "set", database.PrefTheme, "dark")
	require.NoError(t, err)
	out, err := h.run("prefs")
	require.NoError(t, err)
	assert.Contains(t, out, "dark")
	assert.NotContains(t, out, database.PrefSession)

	_, err = h.run("prefs", "set", database.PrefTheme, "sepia")
	assert.ErrorIs(t, err, database.ErrInvalidPreference)

	_, err = h.run("prefs", "set", database.PrefTheme)
	require.NoError(t, err)
	out, err = h.run("prefs", "get", database.PrefTheme)
	require.NoError(t, err)
	assert.Equal(t, "auto", strings.TrimSpace(out))
}

func TestShowOfflineSnapshot(t *testing.T) {
	h := newHarness(t)

	db, err := database.InitDB(filepath.Join(h.dataDir, "scrumlr.db"))
	require.NoError(t, err)
	s := board.NewState(board.Board{ID: "b9", Name: "Saved retro"})
	s = board.Reduce(s, board.InitializeBoard{
		Board:   board.Board{ID: "b9", Name: "Saved retro"},
		Columns: []board.Column{{ID: "A", Name: "Went well", Visible: true}},
		Notes:   []board.Note{{ID: "n", Text: "kept offline", Position: board.Position{Column: "A"}}},
	})
	require.NoError(t, database.NewSnapshotService(db).SaveSnapshot(context.Background(), s))
	require.NoError(t, db.Close())

	out, err := h.run("board", "show", "--offline", "b9")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved retro")
	assert.Contains(t, out, "kept offline")

	out, err = h.run("board", "show", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "b9")

	_, err = h.run("board", "forget", "b9")
	require.NoError(t, err)
	_, err = h.run("board", "show", "--offline", "b9")
	assert.ErrorIs(t, err, database.ErrSnapshotNotFound)
}

func TestMirrorToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("mirror", "token")
	assert.Error(t, err)

	t.Setenv("SCRUMLR_MIRROR_SECRET", "shh")
	out, err := h.run("mirror", "token", "--subject", "dashboard")
	require.NoError(t, err)

	subject, err := services.NewMirrorAuth("shh").VerifyToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "dashboard", subject)
}
