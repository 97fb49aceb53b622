package persistence

import (
	"context"
	"errors"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaskRepository implements TaskRepository using GORM
type GormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GormTaskRepository
func NewGormTaskRepository(db *gorm.DB) *GormTaskRepository {
	return &GormTaskRepository{db: db}
}

// Save creates a task row
func (r *GormTaskRepository) Save(ctx context.Context, task *integration.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update persists task state changes
func (r *GormTaskRepository) Update(ctx context.Context, task *integration.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// FindByID finds a task by its ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Task, error) {
	var task integration.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// SumInFlightCost sums RemoteRequests over PENDING and PROCESSING tasks
func (r *GormTaskRepository) SumInFlightCost(ctx context.Context, integrationID uuid.UUID) (int, error) {
	return r.sumCost(ctx, integrationID,
		[]integration.TaskStatus{integration.TaskStatusPending, integration.TaskStatusProcessing})
}

// SumProcessingCost sums RemoteRequests over PROCESSING tasks only
func (r *GormTaskRepository) SumProcessingCost(ctx context.Context, integrationID uuid.UUID) (int, error) {
	return r.sumCost(ctx, integrationID,
		[]integration.TaskStatus{integration.TaskStatusProcessing})
}

func (r *GormTaskRepository) sumCost(ctx context.Context, integrationID uuid.UUID, statuses []integration.TaskStatus) (int, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&integration.Task{}).
		Select("COALESCE(SUM(remote_requests), 0)").
		Where("integration_id = ? AND status IN ?", integrationID, statuses).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}

// IntegrationIDsWithPending returns the distinct integrations with PENDING tasks
func (r *GormTaskRepository) IntegrationIDsWithPending(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&integration.Task{}).
		Distinct("integration_id").
		Where("status = ?", integration.TaskStatusPending).
		Pluck("integration_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FindPending returns PENDING tasks in drain order: priority descending,
// then enqueue time ascending
func (r *GormTaskRepository) FindPending(ctx context.Context, integrationID uuid.UUID, limit int) ([]*integration.Task, error) {
	var tasks []*integration.Task
	query := r.db.WithContext(ctx).
		Where("integration_id = ? AND status = ?", integrationID, integration.TaskStatusPending).
		Order("priority DESC, sent_to_queue_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkAllPendingSkipped bulk-marks every PENDING task of an integration as SKIPPED
func (r *GormTaskRepository) MarkAllPendingSkipped(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&integration.Task{}).
		Where("integration_id = ? AND status = ?", integrationID, integration.TaskStatusPending).
		Update("status", integration.TaskStatusSkipped)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindByStatus lists tasks in a given status with pagination, newest first
func (r *GormTaskRepository) FindByStatus(ctx context.Context, status integration.TaskStatus, filter shared.Filter) ([]*integration.Task, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&integration.Task{}).
		Where("status = ?", status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []*integration.Task
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	if err := query.Order("sent_to_queue_at DESC").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// CountByStatus returns task counts grouped by status
func (r *GormTaskRepository) CountByStatus(ctx context.Context) (map[integration.TaskStatus]int64, error) {
	var rows []struct {
		Status integration.TaskStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&integration.Task{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[integration.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Ensure GormTaskRepository implements TaskRepository
var _ integration.TaskRepository = (*GormTaskRepository)(nil)
