package diplomacy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ganot/warciv/internal/repository"
)

// Repository provides persistence for pair relationships.
type Repository interface {
	Get(ctx context.Context, key string) (*Relationship, error)
	Save(ctx context.Context, r *Relationship) error
	List(ctx context.Context) ([]Relationship, error)
	CountByState(ctx context.Context) (map[State]int, error)
}

// DefaultProposalTTL bounds how long an offer waits for consent.
const DefaultProposalTTL = 30 * time.Minute

// Service validates and applies diplomacy transitions. Callers serialize
// operations per pair; within one call the pair's record is read, checked
// against its current state, and written back as one logical unit.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	proposalTTL time.Duration
}

// NewService creates a diplomacy service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, proposalTTL: DefaultProposalTTL}
}

// SetProposalTTL overrides the consent window, mainly for configuration.
func (s *Service) SetProposalTTL(ttl time.Duration) {
	if ttl > 0 {
		s.proposalTTL = ttl
	}
}

// Get returns the pair's relationship, synthesizing Neutral when no record
// exists yet.
func (s *Service) Get(ctx context.Context, a, b string) (*Relationship, error) {
	if a == b {
		return nil, ErrSelfRelation
	}
	key := PairKey(a, b)
	r, err := s.repo.Get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		lo, hi := a, b
		if lo > hi {
			lo, hi = hi, lo
		}
		return &Relationship{Key: key, A: lo, B: hi, State: StateNeutral}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading relationship: %w", err)
	}
	if r.Pending != nil && r.Pending.Expired(time.Now()) {
		r.Pending = nil
	}
	return r, nil
}

// ProposeAlliance opens a pending alliance offer from one side. Only valid
// from Neutral with no live proposal.
func (s *Service) ProposeAlliance(ctx context.Context, from, to string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if r.State != StateNeutral {
		return nil, ErrInvalidTransition
	}
	if r.Pending != nil && !r.Pending.Expired(now) {
		return nil, ErrInvalidTransition
	}

	r.Pending = &Proposal{Kind: ProposalAlliance, From: from, ExpiresAt: now.Add(s.proposalTTL)}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving proposal: %w", err)
	}
	s.logger.Info("alliance proposed", "from", from, "to", to)
	return r, nil
}

// AcceptAlliance completes the mutual consent: the accepter must be the
// side that did not propose, and the offer must still be live.
func (s *Service) AcceptAlliance(ctx context.Context, accepter, other string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, accepter, other)
	if err != nil {
		return nil, err
	}
	if r.State != StateNeutral {
		return nil, ErrInvalidTransition
	}
	p := r.Pending
	if p == nil || p.Kind != ProposalAlliance || p.Expired(now) {
		return nil, ErrNoProposal
	}
	if p.From == accepter {
		return nil, ErrNoProposal
	}

	r.State = StateAllied
	r.Pending = nil
	r.ChangedAt = now
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving alliance: %w", err)
	}
	s.logger.Info("alliance formed", "pair", r.Key)
	return r, nil
}

// BreakAlliance dissolves an alliance unilaterally. Any reputation or
// resource penalty is the caller's concern.
func (s *Service) BreakAlliance(ctx context.Context, from, to string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if r.State != StateAllied {
		return nil, ErrInvalidTransition
	}

	r.State = StateNeutral
	r.Pending = nil
	r.ChangedAt = now
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving break: %w", err)
	}
	s.logger.Info("alliance broken", "pair", r.Key, "by", from)
	return r, nil
}

// DeclareWar moves the pair to AtWar from Neutral or Allied. Declaring on
// an ally implicitly breaks the alliance first.
func (s *Service) DeclareWar(ctx context.Context, from, to string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if r.State == StateAtWar {
		return nil, ErrInvalidTransition
	}

	r.State = StateAtWar
	r.Pending = nil
	r.ChangedAt = now
	r.WarLog = nil
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving declaration: %w", err)
	}
	s.logger.Info("war declared", "pair", r.Key, "by", from)
	return r, nil
}

// OfferPeace opens a pending peace offer while at war.
func (s *Service) OfferPeace(ctx context.Context, from, to string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if r.State != StateAtWar {
		return nil, ErrInvalidTransition
	}
	if r.Pending != nil && !r.Pending.Expired(now) {
		return nil, ErrInvalidTransition
	}

	r.Pending = &Proposal{Kind: ProposalPeace, From: from, ExpiresAt: now.Add(s.proposalTTL)}
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving offer: %w", err)
	}
	s.logger.Info("peace offered", "from", from, "to", to)
	return r, nil
}

// AcceptPeace ends the war by mutual consent.
func (s *Service) AcceptPeace(ctx context.Context, accepter, other string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, accepter, other)
	if err != nil {
		return nil, err
	}
	if r.State != StateAtWar {
		return nil, ErrInvalidTransition
	}
	p := r.Pending
	if p == nil || p.Kind != ProposalPeace || p.Expired(now) || p.From == accepter {
		return nil, ErrNoProposal
	}

	r.State = StateNeutral
	r.Pending = nil
	r.ChangedAt = now
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving peace: %w", err)
	}
	s.logger.Info("peace made", "pair", r.Key)
	return r, nil
}

// Surrender ends the war unilaterally. The tribute terms are applied by
// the dispatcher; the state machine only records the exit.
func (s *Service) Surrender(ctx context.Context, from, to string, now time.Time) (*Relationship, error) {
	r, err := s.Get(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if r.State != StateAtWar {
		return nil, ErrInvalidTransition
	}

	r.State = StateNeutral
	r.Pending = nil
	r.ChangedAt = now
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("saving surrender: %w", err)
	}
	s.logger.Info("surrender", "pair", r.Key, "by", from)
	return r, nil
}

// RecordCombat appends a combat entry to an ongoing war's log.
func (s *Service) RecordCombat(ctx context.Context, attacker, defender string, ev WarEvent) error {
	r, err := s.Get(ctx, attacker, defender)
	if err != nil {
		return err
	}
	if r.State != StateAtWar {
		return ErrInvalidTransition
	}
	r.WarLog = append(r.WarLog, ev)
	if err := s.repo.Save(ctx, r); err != nil {
		return fmt.Errorf("saving war log: %w", err)
	}
	return nil
}

// CountByState returns aggregate relationship counts for the dashboard.
func (s *Service) CountByState(ctx context.Context) (map[State]int, error) {
	return s.repo.CountByState(ctx)
}
