package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
	"github.com/grovehq/grove/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestGetCounterpartIDsBothSidesAnyStatus(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	expiry := time.Now().Add(24 * time.Hour)
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 1, UserBID: 2, Status: db.MatchStatusPending, ExpiresAt: expiry}))
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 3, UserBID: 1, Status: db.MatchStatusRejected, ExpiresAt: expiry}))
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 2, UserBID: 3, Status: db.MatchStatusAccepted, ExpiresAt: expiry}))

	ids, err := repo.GetCounterpartIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}

func TestGetPendingForUserSkipsExpiredAndResolved(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	now := time.Now()
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 1, UserBID: 2, SimilarityScore: 0.8, Status: db.MatchStatusPending, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 3, UserBID: 1, SimilarityScore: 0.95, Status: db.MatchStatusPending, ExpiresAt: now.Add(time.Hour)}))
	// expired
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 1, UserBID: 4, SimilarityScore: 0.99, Status: db.MatchStatusPending, ExpiresAt: now.Add(-time.Hour)}))
	// already rejected
	require.NoError(t, repo.Create(ctx, &db.Match{UserAID: 1, UserBID: 5, SimilarityScore: 0.97, Status: db.MatchStatusRejected, ExpiresAt: now.Add(time.Hour)}))

	matches, err := repo.GetPendingForUser(ctx, 1, now, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// best similarity first
	assert.Equal(t, uint64(3), matches[0].UserAID)
	assert.Equal(t, uint64(2), matches[1].UserBID)

	count, err := repo.CountPendingForUser(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	match := &db.Match{UserAID: 1, UserBID: 2, Status: db.MatchStatusPending, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Create(ctx, match))

	require.NoError(t, repo.UpdateStatus(ctx, match.ID, db.MatchStatusRejected))

	got, err := repo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, db.MatchStatusRejected, got.Status)
}

func TestSafetyFlagCounterpartsSymmetric(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewSafetyFlagRepository(gdb)

	require.NoError(t, repo.Create(ctx, &db.SafetyFlag{ReporterID: 1, ReportedID: 2}))
	require.NoError(t, repo.Create(ctx, &db.SafetyFlag{ReporterID: 3, ReportedID: 1}))

	ids, err := repo.GetCounterpartIDs(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3}, ids)
}
