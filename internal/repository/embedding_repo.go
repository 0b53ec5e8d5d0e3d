package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
)

// EmbeddingRepository provides data access methods for stored profile
// embeddings.
type EmbeddingRepository struct {
	db *gorm.DB
}

// NewEmbeddingRepository creates a new repository bound to the given DB connection.
func NewEmbeddingRepository(database *gorm.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: database}
}

// GetByUserID returns the user's embedding, or nil when the user has none
// (i.e. onboarding is incomplete).
func (r *EmbeddingRepository) GetByUserID(ctx context.Context, userID uint64) (*db.Embedding, error) {
	var emb db.Embedding
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&emb).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

// GetManyByUserID fetches embeddings for many users in one batched query,
// keyed by user id. Users without an embedding are absent from the result.
func (r *EmbeddingRepository) GetManyByUserID(ctx context.Context, userIDs []uint64) (map[uint64]db.Embedding, error) {
	result := make(map[uint64]db.Embedding, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var embs []db.Embedding
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&embs).Error; err != nil {
		return nil, err
	}
	for _, e := range embs {
		result[e.UserID] = e
	}
	return result, nil
}

// Upsert writes a user's embedding, overwriting any existing row. Used by the
// seeder; the production writer is the (external) embedding job.
func (r *EmbeddingRepository) Upsert(ctx context.Context, emb *db.Embedding) error {
	var existing db.Embedding
	err := r.db.WithContext(ctx).Where("user_id = ?", emb.UserID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return r.db.WithContext(ctx).Create(emb).Error
	case err != nil:
		return err
	default:
		existing.Vector = emb.Vector
		existing.Model = emb.Model
		return r.db.WithContext(ctx).Save(&existing).Error
	}
}
