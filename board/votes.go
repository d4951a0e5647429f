package board

import (
	"errors"
)

var (
	ErrNoteNotFound     = errors.New("board: note not found")
	ErrVotingClosed     = errors.New("board: no open voting")
	ErrDuplicateVote    = errors.New("board: note already voted")
	ErrVoteLimitReached = errors.New("board: vote limit reached")
	ErrVoteNotFound     = errors.New("board: vote not found")
	ErrEmptyText        = errors.New("board: note text is empty")
)

// echoKind tells which realtime event an own vote change is waiting for
type echoKind uint8

const (
	// confirmed over REST, VOTE_CREATED still to come
	echoCreate echoKind = iota
	// VOTE_CREATED arrived before the REST answer
	echoEarly
	// removed locally, VOTE_DELETED still to come
	echoDelete
)

type voteEcho struct {
	kind   echoKind
	voting string
	note   string
	user   string
}

func echoOf(kind echoKind, v Vote) voteEcho {
	return voteEcho{kind: kind, voting: v.Voting, note: v.Note, user: v.User}
}

func (s *State) expect(e voteEcho) {
	if s.echoes == nil {
		s.echoes = make(map[voteEcho]int)
	}
	s.echoes[e]++
}

// consume reports whether e was expected and forgets one occurrence
func (s *State) consume(e voteEcho) bool {
	if s.echoes[e] == 0 {
		return false
	}
	if s.echoes[e] == 1 {
		delete(s.echoes, e)
	} else {
		s.echoes[e]--
	}
	return true
}

func reduceVotes(s State, a VoteAction) State {
	switch a := a.(type) {
	case AddVote:
		v := a.Vote
		v.Dirty = true
		s.Votes = append(s.Votes, v)

	case ConfirmVote:
		v := a.Vote
		if i := s.dirtyVote(v); i >= 0 {
			s.Votes[i].Dirty = false
			s.expect(echoOf(echoCreate, v))
			return s
		}
		// the echo already confirmed it, or an authoritative reset removed it
		s.consume(echoOf(echoEarly, v))

	case CreatedVote:
		v := a.Vote
		v.Dirty = false
		if s.consume(echoOf(echoCreate, v)) {
			return s
		}
		if i := s.dirtyVote(v); i >= 0 {
			s.Votes[i].Dirty = false
			s.expect(echoOf(echoEarly, v))
			return s
		}
		// duplicates are rejected before dispatch, see CanVote
		s.Votes = append(s.Votes, v)

	case DeleteVote:
		v := Vote{Voting: a.Voting, Note: a.Note, User: a.User}
		if s.removeVote(v) {
			s.expect(echoOf(echoDelete, v))
		}

	case DeletedVote:
		v := Vote{Voting: a.Voting, Note: a.Note, User: a.User}
		if a.User != "" && s.consume(echoOf(echoDelete, v)) {
			return s
		}
		s.removeVote(v)

	case UpdatedVotes:
		s.Votes = append([]Vote(nil), a.Votes...)
		s.echoes = nil

	case RevertVote:
		if a.Restore {
			v := a.Vote
			v.Dirty = false
			s.Votes = append(s.Votes, v)
			s.consume(echoOf(echoDelete, v))
			return s
		}
		if i := s.dirtyVote(a.Vote); i >= 0 {
			s.Votes = append(s.Votes[:i], s.Votes[i+1:]...)
		}

	case CreatedVoting:
		for _, v := range s.Votings {
			if v.ID == a.Voting.ID {
				// the REST answer and the realtime event both announce a round
				s.upsertVoting(a.Voting)
				return s
			}
		}
		s.Votes = nil
		s.echoes = nil
		s.upsertVoting(a.Voting)

	case UpdatedVoting:
		s.upsertVoting(a.Voting)
	}
	return s
}

func (s State) dirtyVote(v Vote) int {
	for i, c := range s.Votes {
		if c.Dirty && c.Voting == v.Voting && c.Note == v.Note && c.User == v.User {
			return i
		}
	}
	return -1
}

// removeVote drops the first vote matching (voting, note) and, when set, user
func (s *State) removeVote(v Vote) bool {
	for i, c := range s.Votes {
		if c.Voting == v.Voting && c.Note == v.Note && (v.User == "" || c.User == v.User) {
			s.Votes = append(s.Votes[:i], s.Votes[i+1:]...)
			return true
		}
	}
	return false
}

func (s *State) upsertVoting(v Voting) {
	for i := range s.Votings {
		if s.Votings[i].ID == v.ID {
			s.Votings[i] = v
			return
		}
	}
	s.Votings = append(s.Votings, v)
}

// OpenVoting returns the voting round currently accepting votes
func (s State) OpenVoting() (Voting, bool) {
	for i := len(s.Votings) - 1; i >= 0; i-- {
		if s.Votings[i].Status == VotingOpen {
			return s.Votings[i], true
		}
	}
	return Voting{}, false
}

// VotesBy counts the votes user cast in voting
func (s State) VotesBy(user, voting string) int {
	count := 0
	for _, v := range s.Votes {
		if v.User == user && v.Voting == voting {
			count++
		}
	}
	return count
}

// VotesFor counts the votes on note in voting
func (s State) VotesFor(note, voting string) int {
	count := 0
	for _, v := range s.Votes {
		if v.Note == note && v.Voting == voting {
			count++
		}
	}
	return count
}

// RemainingVotes is what user may still cast in the open voting
func (s State) RemainingVotes(user string) int {
	voting, ok := s.OpenVoting()
	if !ok {
		return 0
	}
	left := voting.VoteLimit - s.VotesBy(user, voting.ID)
	if left < 0 {
		return 0
	}
	return left
}

// CanVote checks whether user may vote on note. The reducer appends votes
// unconditionally, so callers must check before dispatching AddVote.
func (s State) CanVote(user, note string) (Voting, error) {
	voting, ok := s.OpenVoting()
	if !ok {
		return Voting{}, ErrVotingClosed
	}
	if _, ok := s.Note(note); !ok {
		return Voting{}, ErrNoteNotFound
	}
	if !voting.AllowMultipleVotes {
		for _, v := range s.Votes {
			if v.Voting == voting.ID && v.Note == note && v.User == user {
				return Voting{}, ErrDuplicateVote
			}
		}
	}
	if s.VotesBy(user, voting.ID) >= voting.VoteLimit {
		return Voting{}, ErrVoteLimitReached
	}
	return voting, nil
}

// CanUnvote checks that user has a vote on note in the open voting
func (s State) CanUnvote(user, note string) (Voting, error) {
	voting, ok := s.OpenVoting()
	if !ok {
		return Voting{}, ErrVotingClosed
	}
	for _, v := range s.Votes {
		if v.Voting == voting.ID && v.Note == note && v.User == user {
			return voting, nil
		}
	}
	return Voting{}, ErrVoteNotFound
}
