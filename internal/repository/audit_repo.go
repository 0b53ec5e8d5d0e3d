package repository

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/grovehq/grove/internal/db"
	"github.com/grovehq/grove/internal/logger"
)

// AuditRepository appends match-lifecycle events to the audit trail.
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new repository bound to the given DB connection.
func NewAuditRepository(database *gorm.DB) *AuditRepository {
	return &AuditRepository{db: database}
}

// Record appends an audit event. Audit writes never fail the calling
// operation: a failed insert is logged and swallowed.
func (r *AuditRepository) Record(ctx context.Context, userID uint64, eventType string, metadata map[string]any, ipAddress, userAgent string) {
	meta := ""
	if metadata != nil {
		if b, err := json.Marshal(metadata); err == nil {
			meta = string(b)
		}
	}

	event := db.AuditEvent{
		UserID:    userID,
		EventType: eventType,
		Metadata:  meta,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		logger.Warn("audit event write failed", "event_type", eventType, "user", userID, "err", err)
	}
}
