package board

// Drag locks are a soft hint for other participants, not a correctness
// mechanism. A release is accepted from anyone, regardless of who holds it.
func reduceDragLocks(s State, a DragLockAction) State {
	switch a := a.(type) {
	case NoteDragStarted:
		s.DragLocks[a.Note] = a.User
	case NoteDragEnded:
		delete(s.DragLocks, a.Note)
	}
	return s
}

// LockedBy returns the participant currently dragging note
func (s State) LockedBy(note string) (string, bool) {
	user, ok := s.DragLocks[note]
	return user, ok
}

// LockedForUser reports whether someone other than user is dragging note
func (s State) LockedForUser(note, user string) bool {
	holder, ok := s.DragLocks[note]
	return ok && holder != user
}

// LocksHeldBy lists the notes user is dragging
func (s State) LocksHeldBy(user string) []string {
	var out []string
	for note, holder := range s.DragLocks {
		if holder == user {
			out = append(out, note)
		}
	}
	return out
}
