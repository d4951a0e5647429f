package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CrowderSoup/scrumlr-sync/board"
)

// Realtime event types sent by the backend
const (
	EventBoardInit           = "BOARD_INIT"
	EventNotesUpdated        = "NOTES_UPDATED"
	EventNoteCreated         = "NOTE_CREATED"
	EventNoteUpdated         = "NOTE_UPDATED"
	EventNoteDeleted         = "NOTE_DELETED"
	EventColumnsUpdated      = "COLUMNS_UPDATED"
	EventColumnCreated       = "COLUMN_CREATED"
	EventColumnDeleted       = "COLUMN_DELETED"
	EventVoteCreated         = "VOTE_CREATED"
	EventVoteDeleted         = "VOTE_DELETED"
	EventVotesUpdated        = "VOTES_UPDATED"
	EventVotingCreated       = "VOTING_CREATED"
	EventVotingUpdated       = "VOTING_UPDATED"
	EventNoteDragStarted     = "NOTE_DRAG_STARTED"
	EventNoteDragEnded       = "NOTE_DRAG_ENDED"
	EventParticipantsUpdated = "PARTICIPANTS_UPDATED"
	EventReactionAdded       = "BOARD_REACTION_ADDED"
)

var ErrUnknownEvent = errors.New("services: unknown event type")

// WebSocketMessage is the envelope of every realtime message
type WebSocketMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// BoardSnapshot is a full board as returned by GET /boards/{id} and BOARD_INIT
type BoardSnapshot struct {
	Board        board.Board         `json:"board"`
	Columns      []board.Column      `json:"columns"`
	Notes        []board.Note        `json:"notes"`
	Votes        []board.Vote        `json:"votes"`
	Votings      []board.Voting      `json:"votings"`
	Participants []board.Participant `json:"participants"`
}

func (b BoardSnapshot) Action() board.InitializeBoard {
	return board.InitializeBoard{
		Board:        b.Board,
		Columns:      b.Columns,
		Notes:        b.Notes,
		Votes:        b.Votes,
		Votings:      b.Votings,
		Participants: b.Participants,
	}
}

type dragLockData struct {
	Note string `json:"note"`
	User string `json:"user"`
}

// DecodeEvent turns one realtime message into the action it stands for
func DecodeEvent(raw []byte) (board.Action, error) {
	var msg WebSocketMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	var (
		action board.Action
		err    error
	)
	switch msg.Type {
	case EventBoardInit:
		var snap BoardSnapshot
		err = json.Unmarshal(msg.Data, &snap)
		action = snap.Action()
	case EventNotesUpdated:
		var notes []board.Note
		err = json.Unmarshal(msg.Data, &notes)
		action = board.UpdatedNotes{Notes: notes}
	case EventNoteCreated:
		var n board.Note
		err = json.Unmarshal(msg.Data, &n)
		action = board.CreatedNote{Note: n}
	case EventNoteUpdated:
		var n board.Note
		err = json.Unmarshal(msg.Data, &n)
		action = board.UpdatedNote{Note: n}
	case EventNoteDeleted:
		var id string
		id, err = decodeID(msg.Data, "note")
		action = board.DeletedNote{ID: id}
	case EventColumnsUpdated:
		var cols []board.Column
		err = json.Unmarshal(msg.Data, &cols)
		action = board.UpdatedColumns{Columns: cols}
	case EventColumnCreated:
		var c board.Column
		err = json.Unmarshal(msg.Data, &c)
		action = board.CreatedColumn{Column: c}
	case EventColumnDeleted:
		var id string
		id, err = decodeID(msg.Data, "column")
		action = board.DeletedColumn{ID: id}
	case EventVoteCreated:
		var v board.Vote
		err = json.Unmarshal(msg.Data, &v)
		action = board.CreatedVote{Vote: v}
	case EventVoteDeleted:
		var v board.Vote
		err = json.Unmarshal(msg.Data, &v)
		action = board.DeletedVote{Voting: v.Voting, Note: v.Note, User: v.User}
	case EventVotesUpdated:
		var votes []board.Vote
		err = json.Unmarshal(msg.Data, &votes)
		action = board.UpdatedVotes{Votes: votes}
	case EventVotingCreated:
		var v board.Voting
		err = json.Unmarshal(msg.Data, &v)
		action = board.CreatedVoting{Voting: v}
	case EventVotingUpdated:
		var v board.Voting
		err = json.Unmarshal(msg.Data, &v)
		action = board.UpdatedVoting{Voting: v}
	case EventNoteDragStarted:
		var d dragLockData
		err = json.Unmarshal(msg.Data, &d)
		action = board.NoteDragStarted{Note: d.Note, User: d.User}
	case EventNoteDragEnded:
		var d dragLockData
		err = json.Unmarshal(msg.Data, &d)
		action = board.NoteDragEnded{Note: d.Note, User: d.User}
	case EventParticipantsUpdated:
		var p []board.Participant
		err = json.Unmarshal(msg.Data, &p)
		action = board.UpdatedParticipants{Participants: p}
	case EventReactionAdded:
		var r board.Reaction
		err = json.Unmarshal(msg.Data, &r)
		action = board.AddedReaction{Reaction: r}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, msg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", msg.Type, err)
	}
	return action, nil
}

// decodeID accepts either a bare id string or an object holding it under field
func decodeID(data json.RawMessage, field string) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", err
	}
	raw, ok := obj[field]
	if !ok {
		return "", fmt.Errorf("missing %q", field)
	}
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", err
	}
	return id, nil
}

// EncodeDragLock builds the message announcing a drag lock change
func EncodeDragLock(a board.DragLockAction) ([]byte, error) {
	msg := struct {
		Type string       `json:"type"`
		Data dragLockData `json:"data"`
	}{}
	switch a := a.(type) {
	case board.NoteDragStarted:
		msg.Type = EventNoteDragStarted
		msg.Data = dragLockData{Note: a.Note, User: a.User}
	case board.NoteDragEnded:
		msg.Type = EventNoteDragEnded
		msg.Data = dragLockData{Note: a.Note, User: a.User}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, a)
	}
	return json.Marshal(msg)
}
