package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/grovehq/grove/internal/repository"
	"github.com/grovehq/grove/internal/vector"
)

// ErrNoSourceEmbedding means the source user has not completed onboarding:
// without a stored embedding no similarity can be computed.
var ErrNoSourceEmbedding = errors.New("source user has no embedding")

// VectorSimilarityStrategy scores candidates by cosine similarity between
// stored profile embeddings. Scores land in [0,1]; 1 = identical direction.
type VectorSimilarityStrategy struct {
	embeddings *repository.EmbeddingRepository
}

func NewVectorSimilarityStrategy(embeddings *repository.EmbeddingRepository) *VectorSimilarityStrategy {
	return &VectorSimilarityStrategy{embeddings: embeddings}
}

// ComputeSimilarity fetches all candidate embeddings in one batched query and
// scores each against the source vector. An empty candidate list returns an
// empty map without touching the store. A missing source embedding or a
// malformed stored vector is fatal for the run.
func (s *VectorSimilarityStrategy) ComputeSimilarity(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) (map[uint64]float64, error) {
	scores := make(map[uint64]float64, len(candidateIDs))
	if len(candidateIDs) == 0 {
		return scores, nil
	}

	sourceEmb, err := s.embeddings.GetByUserID(ctx, sourceUserID)
	if err != nil {
		return nil, fmt.Errorf("source embedding lookup: %w", err)
	}
	if sourceEmb == nil {
		return nil, fmt.Errorf("user %d: %w", sourceUserID, ErrNoSourceEmbedding)
	}

	sourceVec, err := vector.Parse(sourceEmb.Vector)
	if err != nil {
		return nil, fmt.Errorf("source embedding for user %d: %w", sourceUserID, err)
	}

	candidateEmbs, err := s.embeddings.GetManyByUserID(ctx, candidateIDs)
	if err != nil {
		return nil, fmt.Errorf("candidate embedding lookup: %w", err)
	}

	for _, id := range candidateIDs {
		emb, ok := candidateEmbs[id]
		if !ok {
			// candidate lost its embedding between pool query and here; skip
			continue
		}
		candVec, err := vector.Parse(emb.Vector)
		if err != nil {
			return nil, fmt.Errorf("embedding for user %d: %w", id, err)
		}
		scores[id] = vector.CosineSimilarity(sourceVec, candVec)
	}
	return scores, nil
}
