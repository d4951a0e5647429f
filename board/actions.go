package board

// Action is anything Reduce understands. The set is closed: every action
// belongs to exactly one category interface below.
type Action interface {
	Type() string
}

// BoardAction resets or decorates the board as a whole
type BoardAction interface {
	Action
	boardAction()
}

// NoteAction changes notes, either as local intent or authoritative event
type NoteAction interface {
	Action
	noteAction()
}

type ColumnAction interface {
	Action
	columnAction()
}

type VoteAction interface {
	Action
	voteAction()
}

type DragLockAction interface {
	Action
	dragLockAction()
}

// InitializeBoard replaces the whole state with a freshly fetched board.
type InitializeBoard struct {
	Board        Board
	Columns      []Column
	Notes        []Note
	Votes        []Vote
	Votings      []Voting
	Participants []Participant
}

type UpdatedParticipants struct {
	Participants []Participant
}

type AddedReaction struct {
	Reaction Reaction
}

// AddNote appends an optimistic note authored locally
type AddNote struct {
	Token  string
	Author string
	Column string
	Text   string
}

// CreatedNote is the server announcing a new note
type CreatedNote struct {
	Note Note
}

// ConfirmNote carries the REST response for the optimistic note with Token
type ConfirmNote struct {
	Token string
	Note  Note
}

// NotePatch holds the fields an edit changes; nil fields are left alone.
// Position.Rank is read as the target index inside the destination bucket.
type NotePatch struct {
	Text     *string
	Position *Position
}

type EditNote struct {
	ID    string
	Patch NotePatch
}

type UpdatedNote struct {
	Note Note
}

// UpdatedNotes is a full replacement of the note set
type UpdatedNotes struct {
	Notes []Note
}

type DeleteNote struct {
	ID string
}

type DeletedNote struct {
	ID string
}

// RevertNotes undoes a failed optimistic mutation: ids in Remove are dropped,
// notes in Restore are written back as they were before the mutation.
type RevertNotes struct {
	Remove  []string
	Restore []Note
}

type CreatedColumn struct {
	Column Column
}

type UpdatedColumns struct {
	Columns []Column
}

type DeletedColumn struct {
	ID string
}

// AddVote appends an optimistic vote
type AddVote struct {
	Vote Vote
}

// CreatedVote is the realtime event for a vote
type CreatedVote struct {
	Vote Vote
}

// ConfirmVote is the REST answer to this client's own AddVote
type ConfirmVote struct {
	Vote Vote
}

// DeleteVote takes back one vote of User
type DeleteVote struct {
	Voting string
	Note   string
	User   string
}

// DeletedVote is the realtime event for a removed vote. Without User the
// first vote on the note is removed.
type DeletedVote struct {
	Voting string
	Note   string
	User   string
}

type UpdatedVotes struct {
	Votes []Vote
}

// RevertVote undoes a failed vote mutation. With Restore the vote is put back,
// otherwise the optimistic vote is removed.
type RevertVote struct {
	Vote    Vote
	Restore bool
}

type CreatedVoting struct {
	Voting Voting
}

type UpdatedVoting struct {
	Voting Voting
}

type NoteDragStarted struct {
	Note string
	User string
}

type NoteDragEnded struct {
	Note string
	User string
}

func (InitializeBoard) Type() string     { return "initializeBoard" }
func (UpdatedParticipants) Type() string { return "updatedParticipants" }
func (AddedReaction) Type() string       { return "addedReaction" }
func (AddNote) Type() string             { return "addNote" }
func (CreatedNote) Type() string         { return "createdNote" }
func (ConfirmNote) Type() string         { return "confirmNote" }
func (EditNote) Type() string            { return "editNote" }
func (UpdatedNote) Type() string         { return "updatedNote" }
func (UpdatedNotes) Type() string        { return "updatedNotes" }
func (DeleteNote) Type() string          { return "deleteNote" }
func (DeletedNote) Type() string         { return "deletedNote" }
func (RevertNotes) Type() string         { return "revertNotes" }
func (CreatedColumn) Type() string       { return "createdColumn" }
func (UpdatedColumns) Type() string      { return "updatedColumns" }
func (DeletedColumn) Type() string       { return "deletedColumn" }
func (AddVote) Type() string             { return "addVote" }
func (CreatedVote) Type() string         { return "createdVote" }
func (ConfirmVote) Type() string         { return "confirmVote" }
func (DeleteVote) Type() string          { return "deleteVote" }
func (DeletedVote) Type() string         { return "deletedVote" }
func (UpdatedVotes) Type() string        { return "updatedVotes" }
func (RevertVote) Type() string          { return "revertVote" }
func (CreatedVoting) Type() string       { return "createdVoting" }
func (UpdatedVoting) Type() string       { return "updatedVoting" }
func (NoteDragStarted) Type() string     { return "noteDragStarted" }
func (NoteDragEnded) Type() string       { return "noteDragEnded" }

func (InitializeBoard) boardAction()     {}
func (UpdatedParticipants) boardAction() {}
func (AddedReaction) boardAction()       {}

func (AddNote) noteAction()      {}
func (CreatedNote) noteAction()  {}
func (ConfirmNote) noteAction()  {}
func (EditNote) noteAction()     {}
func (UpdatedNote) noteAction()  {}
func (UpdatedNotes) noteAction() {}
func (DeleteNote) noteAction()   {}
func (DeletedNote) noteAction()  {}
func (RevertNotes) noteAction()  {}

func (CreatedColumn) columnAction()  {}
func (UpdatedColumns) columnAction() {}
func (DeletedColumn) columnAction()  {}

func (AddVote) voteAction()       {}
func (CreatedVote) voteAction()   {}
func (ConfirmVote) voteAction()   {}
func (DeleteVote) voteAction()    {}
func (DeletedVote) voteAction()   {}
func (UpdatedVotes) voteAction()  {}
func (RevertVote) voteAction()    {}
func (CreatedVoting) voteAction() {}
func (UpdatedVoting) voteAction() {}

func (NoteDragStarted) dragLockAction() {}
func (NoteDragEnded) dragLockAction()   {}
