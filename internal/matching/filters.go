package matching

import (
	"context"
	"fmt"

	"github.com/grovehq/grove/internal/repository"
)

// PriorMatchesFilter removes every user the source was ever matched with,
// regardless of match status. A pair is suggested at most once, ever.
type PriorMatchesFilter struct {
	matches *repository.MatchRepository
}

func NewPriorMatchesFilter(matches *repository.MatchRepository) *PriorMatchesFilter {
	return &PriorMatchesFilter{matches: matches}
}

func (f *PriorMatchesFilter) Name() string { return "prior_matches" }

func (f *PriorMatchesFilter) Filter(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) ([]uint64, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	priors, err := f.matches.GetCounterpartIDs(ctx, sourceUserID)
	if err != nil {
		return nil, fmt.Errorf("prior matches lookup: %w", err)
	}
	return exclude(candidateIDs, priors), nil
}

// BlockedUsersFilter removes every user involved in a safety flag with the
// source, in either direction.
type BlockedUsersFilter struct {
	flags *repository.SafetyFlagRepository
}

func NewBlockedUsersFilter(flags *repository.SafetyFlagRepository) *BlockedUsersFilter {
	return &BlockedUsersFilter{flags: flags}
}

func (f *BlockedUsersFilter) Name() string { return "blocked_users" }

func (f *BlockedUsersFilter) Filter(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) ([]uint64, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	blocked, err := f.flags.GetCounterpartIDs(ctx, sourceUserID)
	if err != nil {
		return nil, fmt.Errorf("safety flag lookup: %w", err)
	}
	return exclude(candidateIDs, blocked), nil
}

// SameOrgFilter keeps only candidates in the source user's org. MVP: matches
// within org only; the ranker still rewards cross-domain diversity among the
// survivors. Fails when the source user does not exist.
type SameOrgFilter struct {
	users *repository.UserRepository
}

func NewSameOrgFilter(users *repository.UserRepository) *SameOrgFilter {
	return &SameOrgFilter{users: users}
}

func (f *SameOrgFilter) Name() string { return "same_org" }

func (f *SameOrgFilter) Filter(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) ([]uint64, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}

	source, err := f.users.GetByID(ctx, sourceUserID)
	if err != nil {
		return nil, fmt.Errorf("source user %d: %w", sourceUserID, err)
	}

	candidates, err := f.users.GetManyByID(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("candidate lookup: %w", err)
	}

	kept := make([]uint64, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if u, ok := candidates[id]; ok && u.OrgID == source.OrgID {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// CompositeFilterStrategy chains filters sequentially, each stage operating
// on the previous stage's output. Ordered cheapest query first; an empty
// intermediate result short-circuits the rest.
type CompositeFilterStrategy struct {
	stages []FilterStrategy
}

func NewCompositeFilterStrategy(stages ...FilterStrategy) *CompositeFilterStrategy {
	return &CompositeFilterStrategy{stages: stages}
}

func (f *CompositeFilterStrategy) Name() string { return "composite" }

func (f *CompositeFilterStrategy) Filter(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) ([]uint64, error) {
	current := candidateIDs
	for _, stage := range f.stages {
		if len(current) == 0 {
			return nil, nil
		}
		next, err := stage.Filter(ctx, sourceUserID, current)
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", stage.Name(), err)
		}
		current = next
	}
	return current, nil
}

// exclude returns candidates minus the removed set, preserving order.
func exclude(candidateIDs, removed []uint64) []uint64 {
	if len(removed) == 0 {
		return candidateIDs
	}
	drop := make(map[uint64]struct{}, len(removed))
	for _, id := range removed {
		drop[id] = struct{}{}
	}
	kept := make([]uint64, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		if _, gone := drop[id]; !gone {
			kept = append(kept, id)
		}
	}
	return kept
}
