package board

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const placeholderPrefix = "tmp-"

// Board identifies the board a State belongs to
type Board struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Position places a note inside a column and, optionally, inside a stack.
// An empty Stack means the note sits directly in the column.
type Position struct {
	Column string `json:"column"`
	Stack  string `json:"stack"`
	Rank   int    `json:"rank"`
}

type positionJSON struct {
	Column string  `json:"column"`
	Stack  *string `json:"stack"`
	Rank   int     `json:"rank"`
}

// MarshalJSON writes an empty stack as null, the way the server does
func (p Position) MarshalJSON() ([]byte, error) {
	out := positionJSON{Column: p.Column, Rank: p.Rank}
	if p.Stack != "" {
		stack := p.Stack
		out.Stack = &stack
	}
	return json.Marshal(out)
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var in positionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	p.Column = in.Column
	p.Rank = in.Rank
	p.Stack = ""
	if in.Stack != nil {
		p.Stack = *in.Stack
	}
	return nil
}

// Note is a sticky note on the board.
// Dirty and Token only exist locally while a mutation is unconfirmed.
type Note struct {
	ID       string   `json:"id"`
	Author   string   `json:"author"`
	Text     string   `json:"text"`
	Position Position `json:"position"`
	Edited   bool     `json:"edited,omitempty"`
	Dirty    bool     `json:"dirty,omitempty"`
	Token    string   `json:"token,omitempty"`
}

// Bucket returns the (column, stack) sequence the note is ranked in
func (n Note) Bucket() Bucket {
	return Bucket{Column: n.Position.Column, Stack: n.Position.Stack}
}

// Pending reports whether the note has not been confirmed by the server yet
func (n Note) Pending() bool {
	return IsPlaceholder(n.ID)
}

type Column struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Visible bool   `json:"visible"`
	Index   int    `json:"index"`
}

type Vote struct {
	Voting string `json:"voting"`
	Note   string `json:"note"`
	User   string `json:"user"`
	Dirty  bool   `json:"dirty,omitempty"`
}

type VotingStatus string

const (
	VotingOpen   VotingStatus = "OPEN"
	VotingClosed VotingStatus = "CLOSED"
)

type Voting struct {
	ID                 string       `json:"id"`
	VoteLimit          int          `json:"voteLimit"`
	AllowMultipleVotes bool         `json:"allowMultipleVotes"`
	ShowVotesOfOthers  bool         `json:"showVotesOfOthers"`
	Status             VotingStatus `json:"status"`
}

type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Connected bool   `json:"connected"`
}

type Reaction struct {
	User     string `json:"user"`
	Reaction string `json:"reaction"`
}

// NewToken returns a client generated idempotency token for an optimistic create
func NewToken() string {
	return uuid.NewString()
}

// PlaceholderID is the local id an optimistic note carries until it is confirmed
func PlaceholderID(token string) string {
	return placeholderPrefix + token
}

func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}
