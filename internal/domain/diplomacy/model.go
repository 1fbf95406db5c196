package diplomacy

import (
	"strings"
	"time"
)

// State is the diplomatic state of a pair of civilizations.
type State string

const (
	StateNeutral State = "NEUTRAL"
	StateAllied  State = "ALLIED"
	StateAtWar   State = "AT_WAR"
)

// ProposalKind distinguishes pending mutual-consent offers.
type ProposalKind string

const (
	ProposalAlliance ProposalKind = "alliance"
	ProposalPeace    ProposalKind = "peace"
)

// Proposal is a pending offer awaiting the other side's consent. It
// expires if not accepted in time.
type Proposal struct {
	Kind      ProposalKind `json:"kind"`
	From      string       `json:"from"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the proposal lapsed before acceptance.
func (p *Proposal) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// WarEvent is one combat entry accumulated while a pair is at war.
type WarEvent struct {
	At       time.Time `json:"at"`
	Attacker string    `json:"attacker"`
	Summary  string    `json:"summary"`
}

// Relationship is the single record for an unordered pair. A is always the
// lexicographically smaller id, so each pair has exactly one row and both
// sides update atomically.
type Relationship struct {
	Key       string     `json:"key"`
	A         string     `json:"a"`
	B         string     `json:"b"`
	State     State      `json:"state"`
	Pending   *Proposal  `json:"pending,omitempty"`
	ChangedAt time.Time  `json:"changed_at"`
	WarLog    []WarEvent `json:"war_log,omitempty"`
}

// PairKey builds the canonical key for an unordered pair.
func PairKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}
