package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/grovehq/grove/internal/repository"
)

// Diversity bonus weights. Accumulated additively per candidate, capped at 1.
const (
	diversityBonusOrg            = 0.4
	diversityBonusConnectionType = 0.3
	diversityBonusDomain         = 0.3
)

// DefaultDiversityWeight is the blend between similarity and diversity in the
// final score: 70% similarity, 30% diversity.
const DefaultDiversityWeight = 0.3

// DiversityRankingStrategy blends similarity with a diversity bonus that
// rewards candidates differing from the source along org, connection-type and
// org-domain axes, then orders by the blended final score.
type DiversityRankingStrategy struct {
	users  *repository.UserRepository
	weight float64
}

func NewDiversityRankingStrategy(users *repository.UserRepository, weight float64) *DiversityRankingStrategy {
	if weight <= 0 || weight >= 1 {
		weight = DefaultDiversityWeight
	}
	return &DiversityRankingStrategy{users: users, weight: weight}
}

// Rerank populates DiversityScore and FinalScore on every candidate and
// sorts descending by FinalScore. A missing source profile is fatal; an empty
// candidate list returns empty output without querying.
func (s *DiversityRankingStrategy) Rerank(ctx context.Context, sourceUserID uint64, candidates []ScoredCandidate) ([]ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	source, err := s.users.GetRankingContext(ctx, sourceUserID)
	if err != nil {
		return nil, fmt.Errorf("source profile for user %d: %w", sourceUserID, err)
	}

	ids := make([]uint64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.UserID
	}
	contexts, err := s.users.GetRankingContexts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("candidate profile lookup: %w", err)
	}

	ranked := make([]ScoredCandidate, len(candidates))
	copy(ranked, candidates)
	for i := range ranked {
		div := 0.0
		if cand, ok := contexts[ranked[i].UserID]; ok {
			div = s.diversityScore(source, &cand)
		}
		ranked[i].DiversityScore = div
		ranked[i].FinalScore = ranked[i].SimilarityScore*(1-s.weight) + div*s.weight
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		if ranked[i].SimilarityScore != ranked[j].SimilarityScore {
			return ranked[i].SimilarityScore > ranked[j].SimilarityScore
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked, nil
}

func (s *DiversityRankingStrategy) diversityScore(source, candidate *repository.RankingContext) float64 {
	score := 0.0
	if candidate.OrgID != source.OrgID {
		score += diversityBonusOrg
	}
	if !strings.EqualFold(candidate.ConnectionType, source.ConnectionType) {
		score += diversityBonusConnectionType
	}
	if !strings.EqualFold(candidate.OrgDomain, source.OrgDomain) {
		score += diversityBonusDomain
	}
	if score > 1 {
		score = 1
	}
	return score
}
