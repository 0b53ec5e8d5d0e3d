package db

import (
	"time"
)

// User status values. Paused users keep their data but leave the match pool;
// deleted users are tombstones awaiting GDPR erasure.
const (
	UserStatusActive  = "active"
	UserStatusPaused  = "paused"
	UserStatusDeleted = "deleted"
)

// Match status values.
const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusRejected = "rejected"
)

// Intro per-side status values.
const (
	IntroSidePending  = "pending"
	IntroSideAccepted = "accepted"
)

// Intro aggregate status values.
const (
	IntroStatusAcceptedByA = "accepted_by_a"
	IntroStatusAcceptedByB = "accepted_by_b"
	IntroStatusMutual      = "mutual"
	IntroStatusCompleted   = "completed"
)

// Org is the tenant boundary. Matching never crosses orgs (MVP).
type Org struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:128;not null"`
	Domain    string    `gorm:"size:128;not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// User table.
type User struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	OrgID        uint64    `gorm:"not null;index:idx_org_status,priority:1"`
	Name         string    `gorm:"size:128;not null"`
	Email        string    `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string    `gorm:"size:255;not null"`
	Status       string    `gorm:"size:16;not null;default:active;index:idx_org_status,priority:2"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Profile holds the free-text onboarding answers that drive embedding
// generation. One row per user.
type Profile struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	UserID         uint64    `gorm:"uniqueIndex;not null"`
	Interests      string    `gorm:"type:text"`
	CurrentProject string    `gorm:"type:text"`
	RabbitHole     string    `gorm:"type:text"`
	ConnectionType string    `gorm:"size:64"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Embedding stores one profile vector per user, serialized as a bracketed
// float list ("[0.1,0.2,...]") so the same column round-trips through MySQL
// and pgvector-style stores unchanged. The matching core only depends on the
// row's existence; generation lives in the jobs subsystem.
type Embedding struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"uniqueIndex;not null"`
	Vector    string    `gorm:"type:text;not null"`
	Model     string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Match is an edge between exactly two users.
//
// Invariant: at most one active (pending, unexpired) match per unordered pair.
// The matching service checks before generating; the schema does not enforce
// pair uniqueness beyond normal row creation.
//
// Indexes:
//   - idx_match_user_a / idx_match_user_b: "matches involving me" lookups on
//     either side.
//   - idx_match_status_expires(status, expires_at): pending-and-unexpired scans.
type Match struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement"`
	UserAID         uint64    `gorm:"not null;index:idx_match_user_a"`
	UserBID         uint64    `gorm:"not null;index:idx_match_user_b"`
	SimilarityScore float64   `gorm:"not null"`
	FinalScore      float64   `gorm:"not null"`
	SharedInterest  string    `gorm:"size:255"`
	Context         string    `gorm:"type:text"`
	Status          string    `gorm:"size:16;not null;default:pending;index:idx_match_status_expires,priority:1"`
	ExpiresAt       time.Time `gorm:"not null;index:idx_match_status_expires,priority:2"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// HasUser reports whether the given user is one of the match's two parties.
func (m *Match) HasUser(userID uint64) bool {
	return m.UserAID == userID || m.UserBID == userID
}

// OtherUserID returns the counterpart of userID in this match.
func (m *Match) OtherUserID(userID uint64) (uint64, bool) {
	if m.UserAID == userID {
		return m.UserBID, true
	}
	if m.UserBID == userID {
		return m.UserAID, true
	}
	return 0, false
}

// Intro tracks the double opt-in state for one match. Created on the first
// accept; each side's status flips independently and the aggregate status
// follows.
type Intro struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	MatchID     uint64    `gorm:"uniqueIndex;not null"`
	UserAStatus string    `gorm:"size:16;not null;default:pending"`
	UserBStatus string    `gorm:"size:16;not null;default:pending"`
	Status      string    `gorm:"size:16;not null"`
	RevealToken string    `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// SafetyFlag records a block/report between two users, in one direction.
// Filtering treats it as symmetric.
type SafetyFlag struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	ReporterID uint64    `gorm:"not null;index:idx_flag_reporter"`
	ReportedID uint64    `gorm:"not null;index:idx_flag_reported"`
	Reason     string    `gorm:"size:255"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// AuditEvent is an append-only trail for match lifecycle actions.
type AuditEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;index"`
	EventType string    `gorm:"size:64;not null"`
	Metadata  string    `gorm:"type:text"`
	IPAddress string    `gorm:"size:64"`
	UserAgent string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
