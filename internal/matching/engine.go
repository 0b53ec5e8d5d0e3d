package matching

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/app"
	"github.com/grovehq/grove/internal/logger"
	"github.com/grovehq/grove/internal/repository"
)

// Engine defaults, overridable per request.
const (
	DefaultLimit         = 5
	DefaultMinSimilarity = 0.7
	DefaultBatchSize     = 100
	DefaultPoolLimit     = 100
)

// Engine orchestrates one pipeline run: candidate pool, filter, similarity,
// threshold, re-rank, truncate, reasons. Extension points (pool provider and
// reason generator) are injected alongside the three strategies; swapping any
// of them swaps that pipeline stage.
type Engine struct {
	pool    CandidatePoolProvider
	filter  FilterStrategy
	matcher MatchingStrategy
	ranker  RankingStrategy
	reasons ReasonGenerator

	defaultLimit  int
	defaultMinSim float64

	// healthDB, when set, lets HealthCheck probe the real store.
	healthDB *gorm.DB
}

// NewEngine wires a pipeline from its five stages. defaultLimit and
// defaultMinSim back-fill requests that leave them unset; zero values fall
// back to package defaults.
func NewEngine(pool CandidatePoolProvider, filter FilterStrategy, matcher MatchingStrategy, ranker RankingStrategy, reasons ReasonGenerator, defaultLimit int, defaultMinSim float64) *Engine {
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if defaultMinSim <= 0 {
		defaultMinSim = DefaultMinSimilarity
	}
	return &Engine{
		pool:          pool,
		filter:        filter,
		matcher:       matcher,
		ranker:        ranker,
		reasons:       reasons,
		defaultLimit:  defaultLimit,
		defaultMinSim: defaultMinSim,
	}
}

// NewVectorEngine assembles the production pipeline over the app's DB:
// active-users-with-embeddings pool, composite prior/blocked/same-org filter,
// cosine similarity, diversity re-ranking, profile-derived reasons.
func NewVectorEngine(appCtx *app.AppContext) *Engine {
	users := repository.NewUserRepository(appCtx.DB)
	embeddings := repository.NewEmbeddingRepository(appCtx.DB)
	matches := repository.NewMatchRepository(appCtx.DB)
	flags := repository.NewSafetyFlagRepository(appCtx.DB)

	cfg := appCtx.Cfg.Matching
	eng := NewEngine(
		NewCandidatePool(users, cfg.CandidatePoolSize),
		// cheapest query first
		NewCompositeFilterStrategy(
			NewPriorMatchesFilter(matches),
			NewBlockedUsersFilter(flags),
			NewSameOrgFilter(users),
		),
		NewVectorSimilarityStrategy(embeddings),
		NewDiversityRankingStrategy(users, cfg.DiversityWeight),
		NewProfileReasonGenerator(users),
		cfg.DefaultLimit,
		cfg.MinSimilarityScore,
	)
	eng.healthDB = appCtx.DB
	return eng
}

// GenerateMatches runs the full pipeline for one user.
func (e *Engine) GenerateMatches(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	if req.Limit <= 0 {
		req.Limit = e.defaultLimit
	}
	if req.MinSimilarityScore <= 0 {
		req.MinSimilarityScore = e.defaultMinSim
	}

	pool, err := e.pool.CandidatePool(ctx, req.SourceUserID)
	if err != nil {
		return nil, err
	}

	filtered, err := e.filter.Filter(ctx, req.SourceUserID, pool)
	if err != nil {
		return nil, err
	}

	scores, err := e.matcher.ComputeSimilarity(ctx, req.SourceUserID, filtered)
	if err != nil {
		return nil, err
	}

	// threshold before ranking; ranking only pays for survivors
	candidates := make([]ScoredCandidate, 0, len(scores))
	for _, id := range filtered {
		if score, ok := scores[id]; ok && score >= req.MinSimilarityScore {
			candidates = append(candidates, ScoredCandidate{UserID: id, SimilarityScore: score})
		}
	}

	ranked, err := e.ranker.Rerank(ctx, req.SourceUserID, candidates)
	if err != nil {
		return nil, err
	}
	if len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	if err := e.attachReasons(ctx, req.SourceUserID, ranked); err != nil {
		return nil, err
	}

	return &Result{
		Matches: ranked,
		Metadata: Metadata{
			TotalCandidates: len(pool),
			TotalFiltered:   len(pool) - len(filtered),
			Elapsed:         time.Since(start),
		},
	}, nil
}

// attachReasons fans out reason generation across the final candidates.
// Concurrent lookups complete in any order; the slice keeps ranking order.
func (e *Engine) attachReasons(ctx context.Context, sourceUserID uint64, ranked []ScoredCandidate) error {
	var wg sync.WaitGroup
	errs := make([]error, len(ranked))
	for i := range ranked {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reasons, err := e.reasons.GenerateReasons(ctx, sourceUserID, ranked[i].UserID)
			if err != nil {
				errs[i] = err
				return
			}
			ranked[i].Reasons = reasons
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// GenerateBatchMatches runs the pipeline for many users. Users are processed
// in chunks of BatchSize; chunk members run concurrently, chunks themselves
// strictly sequentially, bounding in-flight runs to the chunk size. A failed
// member is recorded and never aborts its siblings.
func (e *Engine) GenerateBatchMatches(ctx context.Context, userIDs []uint64, opts BatchOptions) *BatchResult {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	result := &BatchResult{}
	var mu sync.Mutex

	for chunkStart := 0; chunkStart < len(userIDs); chunkStart += opts.BatchSize {
		chunkEnd := chunkStart + opts.BatchSize
		if chunkEnd > len(userIDs) {
			chunkEnd = len(userIDs)
		}
		chunk := userIDs[chunkStart:chunkEnd]

		var wg sync.WaitGroup
		for _, userID := range chunk {
			wg.Add(1)
			go func(userID uint64) {
				defer wg.Done()
				res, err := e.GenerateMatches(ctx, Request{SourceUserID: userID})

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					logger.Warn("batch member failed", "user", userID, "err", err)
					result.Failures = append(result.Failures, BatchFailure{UserID: userID, Error: err.Error()})
					return
				}
				result.TotalUsersProcessed++
				result.TotalMatchesGenerated += len(res.Matches)
			}(userID)
		}
		wg.Wait()
	}

	result.Duration = time.Since(start)
	return result
}

// HealthCheck probes pipeline dependencies. Without a DB handle it reports
// the optimistic defaults.
func (e *Engine) HealthCheck(ctx context.Context) Health {
	h := Health{Healthy: true, VectorIndexReady: true, DatabaseConnected: true}
	if e.healthDB == nil {
		return h
	}

	sqlDB, err := e.healthDB.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		h.Healthy = false
		h.DatabaseConnected = false
		h.VectorIndexReady = false
	}
	return h
}

// candidatePool is the production pool provider: active users that have an
// embedding, excluding the source, capped for latency.
type candidatePool struct {
	users *repository.UserRepository
	limit int
}

func NewCandidatePool(users *repository.UserRepository, limit int) CandidatePoolProvider {
	if limit <= 0 {
		limit = DefaultPoolLimit
	}
	return &candidatePool{users: users, limit: limit}
}

func (p *candidatePool) CandidatePool(ctx context.Context, sourceUserID uint64) ([]uint64, error) {
	return p.users.GetCandidatePool(ctx, sourceUserID, p.limit)
}
