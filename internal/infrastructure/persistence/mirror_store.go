package persistence

import (
	"context"
	"fmt"

	"github.com/channelsync/backend/internal/domain/sync"
	"gorm.io/gorm"
)

// GormMirrorStore persists mirror rows of any concrete type. The sync
// factories are programmed against the RemoteObject interface and never
// care which mirror table a row lives in; gorm resolves the table from
// the concrete type.
type GormMirrorStore struct {
	db *gorm.DB
}

// NewGormMirrorStore creates a new GormMirrorStore
func NewGormMirrorStore(db *gorm.DB) *GormMirrorStore {
	return &GormMirrorStore{db: db}
}

// Persist creates or updates a mirror row
func (s *GormMirrorStore) Persist(ctx context.Context, obj sync.RemoteObject) error {
	if err := s.db.WithContext(ctx).Save(obj).Error; err != nil {
		return fmt.Errorf("persisting mirror row: %w", err)
	}
	return nil
}
