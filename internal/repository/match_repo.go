package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
)

// MatchRepository provides data access methods for the Match model.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Create persists a new match row.
func (r *MatchRepository) Create(ctx context.Context, match *db.Match) error {
	return r.db.WithContext(ctx).Create(match).Error
}

// GetByID fetches a match. Missing match surfaces gorm.ErrRecordNotFound.
func (r *MatchRepository) GetByID(ctx context.Context, matchID uint64) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, matchID).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// GetPendingForUser returns the user's pending, unexpired matches (either
// side), best similarity first, capped at limit.
func (r *MatchRepository) GetPendingForUser(ctx context.Context, userID uint64, now time.Time, limit int) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?)", userID, userID).
		Where("status = ? AND expires_at > ?", db.MatchStatusPending, now).
		Order("similarity_score DESC, id ASC").
		Limit(limit).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// CountPendingForUser counts the user's pending, unexpired matches.
// Used as the DB fallback behind the Redis badge counter.
func (r *MatchRepository) CountPendingForUser(ctx context.Context, userID uint64, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("(user_a_id = ? OR user_b_id = ?)", userID, userID).
		Where("status = ? AND expires_at > ?", db.MatchStatusPending, now).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetCounterpartIDs returns every user the given user was ever matched with,
// regardless of match status. A user is never re-suggested someone they were
// already paired with.
func (r *MatchRepository) GetCounterpartIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Select("user_a_id", "user_b_id").
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		if other, ok := m.OtherUserID(userID); ok {
			ids = append(ids, other)
		}
	}
	return ids, nil
}

// UpdateStatus transitions a match's status.
func (r *MatchRepository) UpdateStatus(ctx context.Context, matchID uint64, status string) error {
	return r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ?", matchID).
		Update("status", status).Error
}
