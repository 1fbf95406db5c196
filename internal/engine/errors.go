package engine

import "errors"

var (
	// ErrMissingRequirement indicates a precondition item or unit is absent,
	// e.g. a nuclear strike without a warhead.
	ErrMissingRequirement = errors.New("missing requirement")
	// ErrUnknownTarget indicates the referenced target civilization does not
	// exist. An unknown acting civilization surfaces as civ.ErrNotFound.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrNotAtWar indicates an attack on a civilization the actor is not at
	// war with.
	ErrNotAtWar = errors.New("not at war")
	// ErrThrottled indicates the global action rate limit rejected the
	// request before any game state was touched.
	ErrThrottled = errors.New("action rate limit exceeded")
	// ErrSelfTarget indicates an action aimed at the acting civilization.
	ErrSelfTarget = errors.New("cannot target self")
)
