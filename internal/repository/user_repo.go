package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
)

// UserRepository provides data access methods for users, profiles and orgs.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetByID fetches a single user. Missing user surfaces gorm.ErrRecordNotFound.
func (r *UserRepository) GetByID(ctx context.Context, userID uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetManyByID fetches users by id, keyed for lookup. Missing ids are simply
// absent from the result.
func (r *UserRepository) GetManyByID(ctx context.Context, userIDs []uint64) (map[uint64]db.User, error) {
	result := make(map[uint64]db.User, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// GetProfile fetches a user's profile. Missing profile surfaces
// gorm.ErrRecordNotFound.
func (r *UserRepository) GetProfile(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetCandidatePool returns ids of active users that have an embedding,
// excluding the source user, capped at limit.
//
// This is the engine's initial unfiltered pool; a deterministic order keeps
// the cap stable between runs.
func (r *UserRepository) GetCandidatePool(ctx context.Context, sourceUserID uint64, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("users u").
		Select("u.id").
		Joins("JOIN embeddings e ON e.user_id = u.id").
		Where("u.status = ? AND u.id <> ?", db.UserStatusActive, sourceUserID).
		Order("u.id ASC").
		Limit(limit).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RankingContext is the per-user slice of data the diversity ranker needs:
// org membership, org email domain, and the profile's connection-type
// preference.
type RankingContext struct {
	UserID         uint64
	OrgID          uint64
	OrgDomain      string
	ConnectionType string
}

// GetRankingContext fetches ranking context for one user. A user without a
// profile surfaces gorm.ErrRecordNotFound (the ranker treats that as fatal).
func (r *UserRepository) GetRankingContext(ctx context.Context, userID uint64) (*RankingContext, error) {
	var row RankingContext
	err := r.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.org_id, o.domain AS org_domain, p.connection_type").
		Joins("JOIN orgs o ON o.id = u.org_id").
		Joins("JOIN profiles p ON p.user_id = u.id").
		Where("u.id = ?", userID).
		Take(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetRankingContexts fetches ranking context for many users in one query.
// Users without a profile are silently dropped; the ranker scores them with
// no diversity bonus.
func (r *UserRepository) GetRankingContexts(ctx context.Context, userIDs []uint64) (map[uint64]RankingContext, error) {
	result := make(map[uint64]RankingContext, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var rows []RankingContext
	err := r.db.WithContext(ctx).
		Table("users u").
		Select("u.id AS user_id, u.org_id, o.domain AS org_domain, p.connection_type").
		Joins("JOIN orgs o ON o.id = u.org_id").
		Joins("JOIN profiles p ON p.user_id = u.id").
		Where("u.id IN ?", userIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.UserID] = row
	}
	return result, nil
}
