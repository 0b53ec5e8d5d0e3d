// Package matching implements the candidate pipeline: pool retrieval,
// filtering, vector-similarity scoring, diversity re-ranking and
// explainability reasons. Strategies are plain interfaces wired into the
// Engine at construction time; there is no registry or inheritance.
package matching

import (
	"context"
	"time"
)

// FilterStrategy removes ineligible candidates from a list. Implementations
// must short-circuit an empty input to an empty output without querying.
type FilterStrategy interface {
	Filter(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) ([]uint64, error)
	Name() string
}

// MatchingStrategy computes a similarity score in [0,1] between the source
// user and each candidate.
type MatchingStrategy interface {
	ComputeSimilarity(ctx context.Context, sourceUserID uint64, candidateIDs []uint64) (map[uint64]float64, error)
}

// RankingStrategy re-orders similarity-scored candidates, populating
// DiversityScore and FinalScore, sorted descending by FinalScore.
type RankingStrategy interface {
	Rerank(ctx context.Context, sourceUserID uint64, candidates []ScoredCandidate) ([]ScoredCandidate, error)
}

// CandidatePoolProvider supplies the initial unfiltered candidate set.
type CandidatePoolProvider interface {
	CandidatePool(ctx context.Context, sourceUserID uint64) ([]uint64, error)
}

// ReasonGenerator produces up to three human-readable explanations for why
// two users were matched.
type ReasonGenerator interface {
	GenerateReasons(ctx context.Context, sourceUserID, candidateID uint64) ([]string, error)
}

// ScoredCandidate is one candidate flowing through the pipeline.
type ScoredCandidate struct {
	UserID          uint64
	SimilarityScore float64
	DiversityScore  float64
	FinalScore      float64
	Reasons         []string
}

// Request parameterizes one pipeline run.
type Request struct {
	SourceUserID       uint64
	Limit              int     // max matches returned; engine default applies when <= 0
	MinSimilarityScore float64 // similarity threshold; engine default applies when <= 0
}

// Metadata describes what one pipeline run looked at.
type Metadata struct {
	TotalCandidates int
	TotalFiltered   int
	Elapsed         time.Duration
}

// Result is the outcome of one pipeline run.
type Result struct {
	Matches  []ScoredCandidate
	Metadata Metadata
}

// BatchOptions parameterizes a batch run.
type BatchOptions struct {
	BatchSize int // users per concurrent chunk; default 100
}

// BatchFailure records one user whose pipeline run failed inside a batch.
type BatchFailure struct {
	UserID uint64
	Error  string
}

// BatchResult aggregates a batch run. The batch always completes; failures
// are recorded, never fatal.
type BatchResult struct {
	TotalUsersProcessed   int
	TotalMatchesGenerated int
	Failures              []BatchFailure
	Duration              time.Duration
}

// Health reports pipeline dependency status.
type Health struct {
	Healthy           bool
	VectorIndexReady  bool
	DatabaseConnected bool
}
