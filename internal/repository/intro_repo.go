package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
)

// IntroRepository provides data access methods for double opt-in intros.
type IntroRepository struct {
	db *gorm.DB
}

// NewIntroRepository creates a new repository bound to the given DB connection.
func NewIntroRepository(database *gorm.DB) *IntroRepository {
	return &IntroRepository{db: database}
}

// GetByMatchID returns the intro for a match, or nil when no side has
// accepted yet.
func (r *IntroRepository) GetByMatchID(ctx context.Context, matchID uint64) (*db.Intro, error) {
	var intro db.Intro
	err := r.db.WithContext(ctx).Where("match_id = ?", matchID).First(&intro).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &intro, nil
}

// Create persists a new intro row (first accept on a match).
func (r *IntroRepository) Create(ctx context.Context, intro *db.Intro) error {
	return r.db.WithContext(ctx).Create(intro).Error
}

// Save writes back a mutated intro (side status flips, aggregate
// transitions, reveal token assignment).
func (r *IntroRepository) Save(ctx context.Context, intro *db.Intro) error {
	return r.db.WithContext(ctx).Save(intro).Error
}
