package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

// APIError is a non-success answer from the backend
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
}

// User is the participant a session belongs to
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Template is a board layout offered by the backend
type Template struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
}

// BoardSession is a board the current user takes part in
type BoardSession struct {
	Board     board.Board `json:"board"`
	Role      string      `json:"role"`
	Connected bool        `json:"connected"`
}

// NoteUpdate is the body of PATCH /notes/{id}
type NoteUpdate struct {
	Text     *string         `json:"text,omitempty"`
	Position *board.Position `json:"position,omitempty"`
}

// APIClient talks to the board backend over REST. Authentication is carried by
// the session cookie kept in its jar.
type APIClient struct {
	base    *url.URL
	http    *http.Client
	session *Session
	log     *logrus.Entry
}

func NewAPIClient(server string, timeout time.Duration, log *logrus.Entry) (*APIClient, error) {
	base, err := url.Parse(strings.TrimSuffix(server, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", server)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &APIClient{
		base:    base,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		session: NewSession(jar, base),
		log:     log,
	}, nil
}

func (c *APIClient) Session() *Session {
	return c.session
}

func (c *APIClient) Jar() http.CookieJar {
	return c.http.Jar
}

func (c *APIClient) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Login creates an anonymous participant and stores its session cookie
func (c *APIClient) Login(ctx context.Context, name string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{"name": name}, &u, http.StatusCreated, http.StatusOK)
	return u, err
}

// Board fetches the full state of a board
func (c *APIClient) Board(ctx context.Context, boardID string) (BoardSnapshot, error) {
	var snap BoardSnapshot
	err := c.do(ctx, http.MethodGet, "/boards/"+url.PathEscape(boardID), nil, &snap, http.StatusOK)
	return snap, err
}

func (c *APIClient) CreateNote(ctx context.Context, boardID, column, text string) (board.Note, error) {
	var n board.Note
	body := map[string]string{"column": column, "text": text}
	err := c.do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/notes", body, &n, http.StatusCreated)
	return n, err
}

func (c *APIClient) UpdateNote(ctx context.Context, noteID string, update NoteUpdate) (board.Note, error) {
	var n board.Note
	err := c.do(ctx, http.MethodPatch, "/notes/"+url.PathEscape(noteID), update, &n, http.StatusOK)
	return n, err
}

func (c *APIClient) DeleteNote(ctx context.Context, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(noteID), nil, nil, http.StatusOK, http.StatusNoContent)
}

func (c *APIClient) AddVote(ctx context.Context, boardID, noteID string) (board.Vote, error) {
	var v board.Vote
	err := c.do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/votes", map[string]string{"note": noteID}, &v, http.StatusCreated)
	return v, err
}

func (c *APIClient) RemoveVote(ctx context.Context, boardID, noteID string) error {
	return c.do(ctx, http.MethodDelete, "/boards/"+url.PathEscape(boardID)+"/votes", map[string]string{"note": noteID}, nil, http.StatusOK, http.StatusNoContent)
}

// VotingRequest opens a new voting phase
type VotingRequest struct {
	VoteLimit          int  `json:"voteLimit"`
	AllowMultipleVotes bool `json:"allowMultipleVotes"`
	ShowVotesOfOthers  bool `json:"showVotesOfOthers"`
}

func (c *APIClient) StartVoting(ctx context.Context, boardID string, req VotingRequest) (board.Voting, error) {
	var v board.Voting
	err := c.do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/votings", req, &v, http.StatusCreated)
	return v, err
}

func (c *APIClient) AddReaction(ctx context.Context, boardID, reaction string) error {
	return c.do(ctx, http.MethodPost, "/boards/"+url.PathEscape(boardID)+"/board-reactions", map[string]string{"reaction": reaction}, nil, http.StatusCreated)
}

func (c *APIClient) Templates(ctx context.Context) ([]Template, error) {
	var t []Template
	err := c.do(ctx, http.MethodGet, "/templates", nil, &t, http.StatusOK)
	return t, err
}

func (c *APIClient) Sessions(ctx context.Context) ([]BoardSession, error) {
	var s []BoardSession
	err := c.do(ctx, http.MethodGet, "/sessions", nil, &s, http.StatusOK)
	return s, err
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any, expect ...int) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("api request")

	if !expected(resp.StatusCode, expect) {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func expected(status int, expect []int) bool {
	for _, s := range expect {
		if status == s {
			return true
		}
	}
	return false
}
