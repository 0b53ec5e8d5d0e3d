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

func seedProfile(t *testing.T, gdb *gorm.DB, userID uint64, p db.Profile) {
	t.Helper()
	p.UserID = userID
	require.NoError(t, gdb.Create(&p).Error)
}

func TestGenerateReasonsAllThree(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	gen := matching.NewProfileReasonGenerator(repository.NewUserRepository(gdb))

	seedProfile(t, gdb, 1, db.Profile{
		Interests:      "distributed systems and woodworking",
		CurrentProject: "a raft consensus library",
		RabbitHole:     "byzantine fault tolerance",
		ConnectionType: "Collaboration",
	})
	seedProfile(t, gdb, 2, db.Profile{
		Interests:      "event sourcing, distributed databases",
		CurrentProject: "a storage engine",
		RabbitHole:     "byzantine generals variants",
		ConnectionType: "collaboration",
	})

	reasons, err := gen.GenerateReasons(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, reasons, 3)
	assert.Equal(t, "You're both seeking collaboration", reasons[0])
	assert.Equal(t, "You both mentioned distributed", reasons[1])
	assert.Equal(t, "You're both exploring byzantine", reasons[2])
}

func TestGenerateReasonsFallback(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	gen := matching.NewProfileReasonGenerator(repository.NewUserRepository(gdb))

	seedProfile(t, gdb, 1, db.Profile{Interests: "pottery", ConnectionType: "mentorship"})
	seedProfile(t, gdb, 2, db.Profile{Interests: "climbing", ConnectionType: "coffee chat"})

	reasons, err := gen.GenerateReasons(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{matching.FallbackReason}, reasons)
}

func TestGenerateReasonsIgnoresShortAndStopwords(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	gen := matching.NewProfileReasonGenerator(repository.NewUserRepository(gdb))

	// "about", "really" and short words overlap but must not count
	seedProfile(t, gdb, 1, db.Profile{Interests: "really curious about gardening and art"})
	seedProfile(t, gdb, 2, db.Profile{Interests: "really serious about gardening and art"})

	reasons, err := gen.GenerateReasons(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"You both mentioned gardening"}, reasons)
}

func TestGenerateReasonsCandidateWithoutProfile(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	gen := matching.NewProfileReasonGenerator(repository.NewUserRepository(gdb))

	seedProfile(t, gdb, 1, db.Profile{Interests: "pottery"})

	reasons, err := gen.GenerateReasons(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{matching.FallbackReason}, reasons)

	// missing source profile is an error, not a fallback
	_, err = gen.GenerateReasons(ctx, 3, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
