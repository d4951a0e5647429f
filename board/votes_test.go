package board

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func votingState(allowMultiple bool, limit int) State {
	s := seeded(note("n1", "col1", "", 0), note("n2", "col1", "", 1))
	return Reduce(s, CreatedVoting{Voting: Voting{ID: "v1", VoteLimit: limit, AllowMultipleVotes: allowMultiple, Status: VotingOpen}})
}

func TestDuplicateVoteRejectedBeforeDispatch(t *testing.T) {
	s := votingState(false, 5)

	voting, err := s.CanVote("alice", "n1")
	require.NoError(t, err)
	s = Reduce(s, AddVote{Vote: Vote{Voting: voting.ID, Note: "n1", User: "alice"}})
	s = Reduce(s, CreatedVote{Vote: Vote{Voting: voting.ID, Note: "n1", User: "alice"}})

	_, err = s.CanVote("alice", "n1")
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.Equal(t, 1, s.VotesFor("n1", "v1"))
	assert.False(t, s.Votes[0].Dirty)
}

func TestMultipleVotesAllowed(t *testing.T) {
	s := votingState(true, 2)

	s = Reduce(s, CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "alice"}})
	_, err := s.CanVote("alice", "n1")
	require.NoError(t, err)
	s = Reduce(s, CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "alice"}})

	_, err = s.CanVote("alice", "n2")
	assert.ErrorIs(t, err, ErrVoteLimitReached)
	assert.Equal(t, 0, s.RemainingVotes("alice"))
	assert.Equal(t, 2, s.RemainingVotes("bob"))
}

func TestCanVoteNeedsOpenVotingAndNote(t *testing.T) {
	s := seeded(note("n1", "col1", "", 0))
	_, err := s.CanVote("alice", "n1")
	assert.ErrorIs(t, err, ErrVotingClosed)

	s = votingState(false, 3)
	_, err = s.CanVote("alice", "missing")
	assert.ErrorIs(t, err, ErrNoteNotFound)

	s = Reduce(s, UpdatedVoting{Voting: Voting{ID: "v1", VoteLimit: 3, Status: VotingClosed}})
	_, err = s.CanVote("alice", "n1")
	assert.ErrorIs(t, err, ErrVotingClosed)
}

func TestDeletedVoteRemovesFirstMatch(t *testing.T) {
	s := votingState(true, 5)
	s = apply(s,
		CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "alice"}},
		CreatedVote{Vote: Vote{Voting: "v1", Note: "n2", User: "alice"}},
		CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "bob"}},
	)

	s = Reduce(s, DeletedVote{Voting: "v1", Note: "n1"})

	require.Len(t, s.Votes, 2)
	assert.Equal(t, "n2", s.Votes[0].Note)
	assert.Equal(t, "bob", s.Votes[1].User)
}

func TestCreatedVotingClearsVotes(t *testing.T) {
	s := votingState(false, 5)
	s = Reduce(s, CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "alice"}})

	s = Reduce(s, CreatedVoting{Voting: Voting{ID: "v2", VoteLimit: 3, Status: VotingOpen}})

	assert.Empty(t, s.Votes)
	open, ok := s.OpenVoting()
	require.True(t, ok)
	assert.Equal(t, "v2", open.ID)
}

func TestRevertVote(t *testing.T) {
	s := votingState(false, 5)
	v := Vote{Voting: "v1", Note: "n1", User: "alice"}

	s = Reduce(s, AddVote{Vote: v})
	s = Reduce(s, RevertVote{Vote: v})
	assert.Empty(t, s.Votes)

	s = Reduce(s, CreatedVote{Vote: v})
	s = Reduce(s, DeleteVote{Voting: "v1", Note: "n1", User: "alice"})
	s = Reduce(s, RevertVote{Vote: v, Restore: true})
	assert.Equal(t, []Vote{v}, s.Votes)
}

func TestUpdatedVotesReplaces(t *testing.T) {
	s := votingState(false, 5)
	s = Reduce(s, AddVote{Vote: Vote{Voting: "v1", Note: "n1", User: "alice"}})

	s = Reduce(s, UpdatedVotes{Votes: []Vote{{Voting: "v1", Note: "n2", User: "bob"}}})

	require.Len(t, s.Votes, 1)
	assert.Equal(t, "bob", s.Votes[0].User)
}

func TestDragLocks(t *testing.T) {
	s := seeded(note("n1", "col1", "", 0), note("n2", "col1", "", 1))

	s = apply(s,
		NoteDragStarted{Note: "n1", User: "alice"},
		NoteDragStarted{Note: "n2", User: "alice"},
		NoteDragStarted{Note: "n1", User: "bob"},
	)
	holder, ok := s.LockedBy("n1")
	require.True(t, ok)
	assert.Equal(t, "bob", holder)
	assert.True(t, s.LockedForUser("n1", "alice"))
	assert.False(t, s.LockedForUser("n1", "bob"))
	assert.Equal(t, []string{"n2"}, s.LocksHeldBy("alice"))

	// release carries no ownership check
	s = Reduce(s, NoteDragEnded{Note: "n1", User: "carol"})
	_, ok = s.LockedBy("n1")
	assert.False(t, ok)

	s = Reduce(s, InitializeBoard{Board: s.Board})
	assert.Empty(t, s.DragLocks)
}

func TestPositionJSONUsesNullStack(t *testing.T) {
	raw, err := json.Marshal(Position{Column: "c", Rank: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"column":"c","stack":null,"rank":2}`, string(raw))

	var p Position
	require.NoError(t, json.Unmarshal([]byte(`{"column":"c","stack":"p","rank":1}`), &p))
	assert.Equal(t, Position{Column: "c", Stack: "p", Rank: 1}, p)
}

func TestOwnVoteEchoIsNotCountedTwice(t *testing.T) {
	v := Vote{Voting: "v1", Note: "n1", User: "alice"}

	// REST answer first, then the realtime event
	s := apply(votingState(false, 5), AddVote{Vote: v}, ConfirmVote{Vote: v}, CreatedVote{Vote: v})
	assert.Equal(t, 1, s.VotesFor("n1", "v1"))
	assert.False(t, s.Votes[0].Dirty)

	// realtime event first, then the REST answer
	s = apply(votingState(false, 5), AddVote{Vote: v}, CreatedVote{Vote: v}, ConfirmVote{Vote: v})
	assert.Equal(t, 1, s.VotesFor("n1", "v1"))
	assert.False(t, s.Votes[0].Dirty)

	s = Reduce(s, CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "bob"}})
	assert.Equal(t, 2, s.VotesFor("n1", "v1"))
}

func TestCumulativeOwnVotesSurviveTheirEchoes(t *testing.T) {
	v := Vote{Voting: "v1", Note: "n1", User: "alice"}

	s := apply(votingState(true, 5),
		AddVote{Vote: v}, ConfirmVote{Vote: v},
		AddVote{Vote: v}, ConfirmVote{Vote: v},
		CreatedVote{Vote: v}, CreatedVote{Vote: v},
	)
	assert.Equal(t, 2, s.VotesBy("alice", "v1"))
}

func TestOwnUnvoteLeavesOtherParticipants(t *testing.T) {
	s := apply(votingState(false, 5),
		CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "bob"}},
		CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "alice"}},
	)

	s = Reduce(s, DeleteVote{Voting: "v1", Note: "n1", User: "alice"})
	require.Len(t, s.Votes, 1)
	assert.Equal(t, "bob", s.Votes[0].User)

	s = Reduce(s, DeletedVote{Voting: "v1", Note: "n1", User: "alice"})
	require.Len(t, s.Votes, 1)
	assert.Equal(t, "bob", s.Votes[0].User)

	s = Reduce(s, DeletedVote{Voting: "v1", Note: "n1", User: "bob"})
	assert.Empty(t, s.Votes)
}

func TestUnvoteBeforeCreateEcho(t *testing.T) {
	v := Vote{Voting: "v1", Note: "n1", User: "alice"}

	s := apply(votingState(false, 5),
		AddVote{Vote: v},
		ConfirmVote{Vote: v},
		DeleteVote{Voting: "v1", Note: "n1", User: "alice"},
		CreatedVote{Vote: v},
		DeletedVote{Voting: "v1", Note: "n1", User: "alice"},
	)
	assert.Empty(t, s.Votes)
}

func TestCreatedVotingEchoKeepsVotes(t *testing.T) {
	round := Voting{ID: "v2", VoteLimit: 3, Status: VotingOpen}
	s := apply(votingState(false, 5),
		CreatedVote{Vote: Vote{Voting: "v1", Note: "n1", User: "bob"}},
		CreatedVoting{Voting: round},
	)
	assert.Empty(t, s.Votes)

	s = Reduce(s, CreatedVote{Vote: Vote{Voting: "v2", Note: "n1", User: "bob"}})
	s = Reduce(s, CreatedVoting{Voting: round})

	assert.Equal(t, 1, s.VotesFor("n1", "v2"))
	require.Len(t, s.Votings, 2)
}
