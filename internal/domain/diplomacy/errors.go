package diplomacy

import "errors"

var (
	// ErrInvalidTransition indicates the requested transition doesn't
	// apply to the pair's current stored state.
	ErrInvalidTransition = errors.New("invalid diplomacy transition")
	// ErrSelfRelation indicates both sides of the pair are the same actor.
	ErrSelfRelation = errors.New("cannot form a relationship with self")
	// ErrNoProposal indicates there is no live proposal to accept.
	ErrNoProposal = errors.New("no pending proposal")
)
