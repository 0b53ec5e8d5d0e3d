package matches_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/app"
	"github.com/grovehq/grove/internal/cache"
	"github.com/grovehq/grove/internal/config"
	"github.com/grovehq/grove/internal/db"
	svcErr "github.com/grovehq/grove/internal/errors"
	"github.com/grovehq/grove/internal/matching"
	"github.com/grovehq/grove/internal/notify"
	"github.com/grovehq/grove/internal/service/intros"
	"github.com/grovehq/grove/internal/service/matches"
)

// recordingSender captures outbound mail instead of delivering it.
type recordingSender struct {
	mu            sync.Mutex
	notifications []string
	reveals       []string
}

func (s *recordingSender) SendMatchNotification(ctx context.Context, toEmail, toName string, n notify.MatchNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, toEmail)
	return nil
}

func (s *recordingSender) SendIntroReveal(ctx context.Context, toEmail, toName string, r notify.IntroReveal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveals = append(s.reveals, toEmail)
	return nil
}

type fixture struct {
	svc    *matches.Service
	gdb    *gorm.DB
	sender *recordingSender
}

// setupService wires an isolated service: in-memory SQLite, miniredis, a
// real engine over the same DB, and a recording email sender.
//
// Seed dataset: one org, three active users with profiles and embeddings.
// Users 1 and 2 share an identical embedding (similarity 1); user 3 is
// orthogonal to both and never clears the similarity threshold.
func setupService(t *testing.T) *fixture {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))

	org := db.Org{Name: "Acme", Domain: "acme.com"}
	require.NoError(t, gdb.Create(&org).Error)

	vectors := []string{"[1,0]", "[1,0]", "[0,1]"}
	types := []string{"collaboration", "collaboration", "mentorship"}
	for i := 1; i <= 3; i++ {
		user := db.User{OrgID: org.ID, Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("u%d@acme.com", i), PasswordHash: "x", Status: db.UserStatusActive}
		require.NoError(t, gdb.Create(&user).Error)
		require.NoError(t, gdb.Create(&db.Profile{UserID: user.ID, Interests: "distributed systems", ConnectionType: types[i-1]}).Error)
		require.NoError(t, gdb.Create(&db.Embedding{UserID: user.ID, Vector: vectors[i-1], Model: "test"}).Error)
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(cfg, gdb, redisCache, logger)
	sender := &recordingSender{}
	engine := matching.NewVectorEngine(appCtx)
	introsSvc := intros.NewService(appCtx, sender)
	return &fixture{
		svc:    matches.NewService(appCtx, engine, introsSvc, sender),
		gdb:    gdb,
		sender: sender,
	}
}

func seedPendingMatch(t *testing.T, gdb *gorm.DB, userA, userB uint64, expiresAt time.Time) uint64 {
	t.Helper()
	match := db.Match{
		UserAID:         userA,
		UserBID:         userB,
		SimilarityScore: 0.9,
		FinalScore:      0.85,
		SharedInterest:  "You both mentioned distributed",
		Status:          db.MatchStatusPending,
		ExpiresAt:       expiresAt,
	}
	require.NoError(t, gdb.Create(&match).Error)
	return match.ID
}

func TestGetMatchesForUserGeneratesAndPersists(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	dtos, err := f.svc.GetMatchesForUser(ctx, 1, matches.MatchOptions{})
	require.NoError(t, err)

	// only user 2 clears the 0.7 threshold
	require.Len(t, dtos, 1)
	dto := dtos[0]
	assert.Equal(t, uint64(2), dto.CandidateID)
	assert.Equal(t, "User 2", dto.Name)
	assert.InDelta(t, 1.0, dto.Score, 1e-9)
	assert.Equal(t, db.MatchStatusPending, dto.Status)
	assert.NotEmpty(t, dto.Reason)
	assert.NotEmpty(t, dto.SharedInterests)

	// persisted with a 7-day expiry
	var row db.Match
	require.NoError(t, f.gdb.First(&row).Error)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), row.ExpiresAt, time.Minute)

	// both parties notified
	assert.ElementsMatch(t, []string{"u1@acme.com", "u2@acme.com"}, f.sender.notifications)
}

func TestGetMatchesForUserIdempotentWithinPendingWindow(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	first, err := f.svc.GetMatchesForUser(ctx, 1, matches.MatchOptions{})
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.GetMatchesForUser(ctx, 1, matches.MatchOptions{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)

	var count int64
	require.NoError(t, f.gdb.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAcceptFlowReachesMutual(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	matchID := seedPendingMatch(t, f.gdb, 1, 2, time.Now().Add(time.Hour))

	resp, err := f.svc.AcceptMatch(ctx, matchID, 1, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.False(t, resp.MutualMatch)

	resp, err = f.svc.AcceptMatch(ctx, matchID, 2, "127.0.0.1", "test")
	require.NoError(t, err)
	assert.Equal(t, "mutual_match", resp.Status)
	assert.True(t, resp.MutualMatch)

	var intro db.Intro
	require.NoError(t, f.gdb.Where("match_id = ?", matchID).First(&intro).Error)
	assert.Equal(t, db.IntroStatusMutual, intro.Status)
	assert.Equal(t, db.IntroSideAccepted, intro.UserAStatus)
	assert.Equal(t, db.IntroSideAccepted, intro.UserBStatus)
	assert.NotEmpty(t, intro.RevealToken)

	var match db.Match
	require.NoError(t, f.gdb.First(&match, matchID).Error)
	assert.Equal(t, db.MatchStatusAccepted, match.Status)

	// contact reveal went to both parties
	assert.ElementsMatch(t, []string{"u1@acme.com", "u2@acme.com"}, f.sender.reveals)
}

func TestAcceptIsIdempotentPerSide(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	matchID := seedPendingMatch(t, f.gdb, 1, 2, time.Now().Add(time.Hour))

	_, err := f.svc.AcceptMatch(ctx, matchID, 1, "", "")
	require.NoError(t, err)

	resp, err := f.svc.AcceptMatch(ctx, matchID, 1, "", "")
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.False(t, resp.MutualMatch)

	var count int64
	require.NoError(t, f.gdb.Model(&db.Intro{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAcceptGuards(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	// unknown match
	_, err := f.svc.AcceptMatch(ctx, 999, 1, "", "")
	assert.True(t, svcErr.Is(err, svcErr.CodeNotFound))

	// requester not a party
	matchID := seedPendingMatch(t, f.gdb, 1, 2, time.Now().Add(time.Hour))
	_, err = f.svc.AcceptMatch(ctx, matchID, 3, "", "")
	assert.True(t, svcErr.Is(err, svcErr.CodeForbidden))

	// expired match
	expiredID := seedPendingMatch(t, f.gdb, 1, 3, time.Now().Add(-time.Hour))
	_, err = f.svc.AcceptMatch(ctx, expiredID, 1, "", "")
	assert.True(t, svcErr.Is(err, svcErr.CodeBadRequest))
}

func TestPassIsTerminal(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	matchID := seedPendingMatch(t, f.gdb, 1, 2, time.Now().Add(time.Hour))

	resp, err := f.svc.PassMatch(ctx, matchID, 2, "", "")
	require.NoError(t, err)
	assert.Equal(t, "declined", resp.Status)

	// re-pass and accept are both rejected once the match left pending
	_, err = f.svc.PassMatch(ctx, matchID, 2, "", "")
	assert.True(t, svcErr.Is(err, svcErr.CodeBadRequest))

	_, err = f.svc.AcceptMatch(ctx, matchID, 1, "", "")
	assert.True(t, svcErr.Is(err, svcErr.CodeBadRequest))
}

func TestPendingMatchCountCacheFirst(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedPendingMatch(t, f.gdb, 1, 2, time.Now().Add(time.Hour))

	// first call falls back to the DB and fills the cache
	count, err := f.svc.PendingMatchCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// second call is served from cache
	count, err = f.svc.PendingMatchCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
