package event

import (
	"time"

	"github.com/ganot/warciv/internal/domain/civ"
)

// Scope says who an event touched.
type Scope string

const (
	ScopeLocal  Scope = "local"  // one civilization, periodic roll
	ScopeGlobal Scope = "global" // every civilization at once
	ScopeAction Scope = "action" // triggered by a specific action
)

// Record is an immutable, append-only log entry for one applied event or
// dispatched action. The effect is the delta actually applied after
// clamping, not the nominal one.
type Record struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"`
	Scope   Scope     `json:"scope"`
	CivID   *string   `json:"civ_id,omitempty"` // nil for global scope
	At      time.Time `json:"at"`
	Effect  civ.Delta `json:"effect"`
	Summary string    `json:"summary"`
}
