package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
)

// SafetyFlagRepository provides data access methods for block/report flags.
type SafetyFlagRepository struct {
	db *gorm.DB
}

// NewSafetyFlagRepository creates a new repository bound to the given DB connection.
func NewSafetyFlagRepository(database *gorm.DB) *SafetyFlagRepository {
	return &SafetyFlagRepository{db: database}
}

// GetCounterpartIDs returns every user involved in a safety flag with the
// given user, in either direction. Blocking is symmetric for matching.
func (r *SafetyFlagRepository) GetCounterpartIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var flags []db.SafetyFlag
	err := r.db.WithContext(ctx).
		Select("reporter_id", "reported_id").
		Where("reporter_id = ? OR reported_id = ?", userID, userID).
		Find(&flags).Error
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(flags))
	for _, f := range flags {
		if f.ReporterID == userID {
			ids = append(ids, f.ReportedID)
		} else {
			ids = append(ids, f.ReporterID)
		}
	}
	return ids, nil
}

// Create records a new safety flag. Used by the (external) safety subsystem
// and by seeding.
func (r *SafetyFlagRepository) Create(ctx context.Context, flag *db.SafetyFlag) error {
	return r.db.WithContext(ctx).Create(flag).Error
}
