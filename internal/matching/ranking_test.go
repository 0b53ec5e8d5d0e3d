package matching_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
	"github.com/grovehq/grove/internal/matching"
	"github.com/grovehq/grove/internal/repository"
)

func seedProfiledUser(t *testing.T, gdb *gorm.DB, orgID uint64, email, connectionType string) uint64 {
	t.Helper()
	id := seedUser(t, gdb, orgID, email)
	require.NoError(t, gdb.Create(&db.Profile{UserID: id, ConnectionType: connectionType}).Error)
	return id
}

func TestRerankDiversityBounds(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)

	require.NoError(t, gdb.Create(&db.Org{Name: "Acme", Domain: "acme.com"}).Error)
	require.NoError(t, gdb.Create(&db.Org{Name: "Borealis", Domain: "borealis.io"}).Error)

	source := seedProfiledUser(t, gdb, 1, "src@acme.com", "collaboration")
	twin := seedProfiledUser(t, gdb, 1, "twin@acme.com", "collaboration")
	opposite := seedProfiledUser(t, gdb, 2, "opp@borealis.io", "mentorship")

	ranker := matching.NewDiversityRankingStrategy(repository.NewUserRepository(gdb), 0.3)
	ranked, err := ranker.Rerank(ctx, source, []matching.ScoredCandidate{
		{UserID: twin, SimilarityScore: 0.9},
		{UserID: opposite, SimilarityScore: 0.9},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	byID := map[uint64]matching.ScoredCandidate{}
	for _, c := range ranked {
		byID[c.UserID] = c
	}

	// identical on all three axes: no diversity bonus
	assert.Equal(t, 0.0, byID[twin].DiversityScore)
	assert.InDelta(t, 0.9*0.7, byID[twin].FinalScore, 1e-9)

	// different org, connection type and domain: full bonus
	assert.Equal(t, 1.0, byID[opposite].DiversityScore)
	assert.InDelta(t, 0.9*0.7+0.3, byID[opposite].FinalScore, 1e-9)

	// sorted descending by final score
	assert.Equal(t, opposite, ranked[0].UserID)
}

func TestRerankSortsDescending(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)

	require.NoError(t, gdb.Create(&db.Org{Name: "Acme", Domain: "acme.com"}).Error)

	source := seedProfiledUser(t, gdb, 1, "src@acme.com", "collaboration")
	low := seedProfiledUser(t, gdb, 1, "low@acme.com", "collaboration")
	mid := seedProfiledUser(t, gdb, 1, "mid@acme.com", "collaboration")
	high := seedProfiledUser(t, gdb, 1, "high@acme.com", "collaboration")

	ranker := matching.NewDiversityRankingStrategy(repository.NewUserRepository(gdb), 0.3)
	ranked, err := ranker.Rerank(ctx, source, []matching.ScoredCandidate{
		{UserID: low, SimilarityScore: 0.71},
		{UserID: high, SimilarityScore: 0.99},
		{UserID: mid, SimilarityScore: 0.85},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, []uint64{high, mid, low}, []uint64{ranked[0].UserID, ranked[1].UserID, ranked[2].UserID})
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].FinalScore, ranked[i].FinalScore)
	}
}

func TestRerankMissingSourceProfile(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)

	require.NoError(t, gdb.Create(&db.Org{Name: "Acme", Domain: "acme.com"}).Error)
	bare := seedUser(t, gdb, 1, "bare@acme.com") // no profile

	ranker := matching.NewDiversityRankingStrategy(repository.NewUserRepository(gdb), 0.3)
	_, err := ranker.Rerank(ctx, bare, []matching.ScoredCandidate{{UserID: 99, SimilarityScore: 0.8}})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRerankEmptyCandidates(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)

	ranker := matching.NewDiversityRankingStrategy(repository.NewUserRepository(gdb), 0.3)
	// source user does not even exist: empty input must return before any query
	out, err := ranker.Rerank(ctx, 42, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
