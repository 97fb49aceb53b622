package sync

import (
	"context"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LogOutcome classifies one factory run for the per-object sync log
type LogOutcome string

const (
	// LogOutcomeSuccess means the remote call completed and the mirror
	// was persisted
	LogOutcomeSuccess LogOutcome = "SUCCESS"
	// LogOutcomeAborted means preflight found nothing to do; not an error
	LogOutcomeAborted LogOutcome = "ABORTED"
	// LogOutcomeFailed means the remote call raised
	LogOutcomeFailed LogOutcome = "FAILED"
)

// SyncLog is one per-object log entry written after every factory run.
// Failures surface here (and on the mirror's error fields) instead of
// crashing the triggering request, since most sync work is deferred.
type SyncLog struct {
	shared.TenantEntity
	IntegrationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	MirrorID      uuid.UUID  `gorm:"type:uuid;index"`
	Action        string     `gorm:"size:20;not null"`
	Outcome       LogOutcome `gorm:"size:20;not null"`
	Message       string     `gorm:"type:text"`
}

// TableName returns the database table name
func (SyncLog) TableName() string {
	return "sync_logs"
}

// NewSyncLog creates a log entry for one factory run
func NewSyncLog(tenantID, integrationID, mirrorID uuid.UUID, action string, outcome LogOutcome, message string) *SyncLog {
	return &SyncLog{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		IntegrationID: integrationID,
		MirrorID:      mirrorID,
		Action:        action,
		Outcome:       outcome,
		Message:       message,
	}
}

// SyncLogRepository defines persistence for sync log entries
type SyncLogRepository interface {
	// Save appends a log entry
	Save(ctx context.Context, entry *SyncLog) error

	// FindByMirror lists entries for one mirror row, newest first
	FindByMirror(ctx context.Context, mirrorID uuid.UUID, limit int) ([]*SyncLog, error)
}
