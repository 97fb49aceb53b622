package taskqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/channelsync/backend/internal/domain/integration"
	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockIntegrationRepository mocks integration.IntegrationRepository
type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindActive(ctx context.Context) ([]*integration.Integration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*integration.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) Save(ctx context.Context, inst *integration.Integration) error {
	args := m.Called(ctx, inst)
	return args.Error(0)
}

// MockTaskRepository mocks integration.TaskRepository
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Save(ctx context.Context, task *integration.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *integration.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Task), args.Error(1)
}

func (m *MockTaskRepository) SumInFlightCost(ctx context.Context, integrationID uuid.UUID) (int, error) {
	args := m.Called(ctx, integrationID)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskRepository) SumProcessingCost(ctx context.Context, integrationID uuid.UUID) (int, error) {
	args := m.Called(ctx, integrationID)
	return args.Int(0), args.Error(1)
}

func (m *MockTaskRepository) IntegrationIDsWithPending(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockTaskRepository) FindPending(ctx context.Context, integrationID uuid.UUID, limit int) ([]*integration.Task, error) {
	args := m.Called(ctx, integrationID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*integration.Task), args.Error(1)
}

func (m *MockTaskRepository) MarkAllPendingSkipped(ctx context.Context, integrationID uuid.UUID) (int64, error) {
	args := m.Called(ctx, integrationID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskRepository) FindByStatus(ctx context.Context, status integration.TaskStatus, filter shared.Filter) ([]*integration.Task, int64, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*integration.Task), args.Get(1).(int64), args.Error(2)
}

func (m *MockTaskRepository) CountByStatus(ctx context.Context) (map[integration.TaskStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[integration.TaskStatus]int64), args.Error(1)
}

func newTestIntegration(t *testing.T, budget int) *integration.Integration {
	t.Helper()
	inst, err := integration.NewIntegration(uuid.New(), "Test Shop", integration.PlatformCodeMagento, budget)
	assert.NoError(t, err)
	return inst
}

func intPtr(n int) *int { return &n }

func TestQueueService_Enqueue_DispatchesWithinBudget(t *testing.T) {
	integrationRepo := new(MockIntegrationRepository)
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()

	executed := false
	registry.RegisterFunc("noop", func(ctx context.Context, inv integration.TaskInvocation) error {
		executed = true
		return nil
	})

	inst := newTestIntegration(t, 60)
	integrationRepo.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)
	taskRepo.On("SumInFlightCost", mock.Anything, inst.ID).Return(0, nil)
	taskRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	taskRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	service := NewQueueService(integrationRepo, taskRepo, registry, nil, zap.NewNop())
	task, err := service.Enqueue(context.Background(), EnqueueParams{
		TenantID:      inst.TenantID,
		IntegrationID: inst.ID,
		TaskName:      "noop",
	})

	assert.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, integration.TaskStatusSuccess, task.Status)
	taskRepo.AssertExpectations(t)
}

func TestQueueService_Enqueue_ParksWhenBudgetExhausted(t *testing.T) {
	integrationRepo := new(MockIntegrationRepository)
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()

	executed := false
	registry.RegisterFunc("noop", func(ctx context.Context, inv integration.TaskInvocation) error {
		executed = true
		return nil
	})

	inst := newTestIntegration(t, 60)
	integrationRepo.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)
	taskRepo.On("SumInFlightCost", mock.Anything, inst.ID).Return(58, nil)
	taskRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewQueueService(integrationRepo, taskRepo, registry, nil, zap.NewNop())
	task, err := service.Enqueue(context.Background(), EnqueueParams{
		TenantID:       inst.TenantID,
		IntegrationID:  inst.ID,
		TaskName:       "noop",
		RemoteRequests: intPtr(3),
	})

	assert.NoError(t, err)
	assert.False(t, executed)
	assert.Equal(t, integration.TaskStatusPending, task.Status)
	assert.Equal(t, 3, task.RemoteRequests)
	taskRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestQueueService_Enqueue_ParksWhenIntegrationInactive(t *testing.T) {
	integrationRepo := new(MockIntegrationRepository)
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()
	registry.RegisterFunc("noop", func(ctx context.Context, inv integration.TaskInvocation) error {
		return nil
	})

	inst := newTestIntegration(t, 60)
	inst.Deactivate()
	integrationRepo.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)
	taskRepo.On("SumInFlightCost", mock.Anything, inst.ID).Return(0, nil)
	taskRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewQueueService(integrationRepo, taskRepo, registry, nil, zap.NewNop())
	task, err := service.Enqueue(context.Background(), EnqueueParams{
		TenantID:      inst.TenantID,
		IntegrationID: inst.ID,
		TaskName:      "noop",
	})

	assert.NoError(t, err)
	assert.Equal(t, integration.TaskStatusPending, task.Status)
}

func TestQueueService_Enqueue_UnknownTask(t *testing.T) {
	integrationRepo := new(MockIntegrationRepository)
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()

	inst := newTestIntegration(t, 60)
	integrationRepo.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)

	service := NewQueueService(integrationRepo, taskRepo, registry, nil, zap.NewNop())
	_, err := service.Enqueue(context.Background(), EnqueueParams{
		TenantID:      inst.TenantID,
		IntegrationID: inst.ID,
		TaskName:      "never_registered",
	})

	assert.ErrorIs(t, err, shared.ErrUnknownTask)
	taskRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestQueueService_Enqueue_RejectsNonPositiveCost(t *testing.T) {
	integrationRepo := new(MockIntegrationRepository)
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()
	registry.RegisterFunc("noop", func(ctx context.Context, inv integration.TaskInvocation) error {
		return nil
	})

	inst := newTestIntegration(t, 60)
	integrationRepo.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)

	service := NewQueueService(integrationRepo, taskRepo, registry, nil, zap.NewNop())
	_, err := service.Enqueue(context.Background(), EnqueueParams{
		TenantID:       inst.TenantID,
		IntegrationID:  inst.ID,
		TaskName:       "noop",
		RemoteRequests: intPtr(0),
	})

	assert.ErrorIs(t, err, integration.ErrInvalidRemoteRequests)
}

func TestQueueService_Enqueue_UsesRegisteredCostAndPriority(t *testing.T) {
	integrationRepo := new(MockIntegrationRepository)
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()
	registry.Register(integration.TaskDefinition{
		Name:           "expensive",
		Func:           func(ctx context.Context, inv integration.TaskInvocation) error { return nil },
		RemoteRequests: 5,
		Priority:       20,
	})

	inst := newTestIntegration(t, 60)
	integrationRepo.On("FindByID", mock.Anything, inst.ID).Return(inst, nil)
	// Leaves only 4 of budget, so the registered cost of 5 parks the task.
	taskRepo.On("SumInFlightCost", mock.Anything, inst.ID).Return(56, nil)
	taskRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	service := NewQueueService(integrationRepo, taskRepo, registry, nil, zap.NewNop())
	task, err := service.Enqueue(context.Background(), EnqueueParams{
		TenantID:      inst.TenantID,
		IntegrationID: inst.ID,
		TaskName:      "expensive",
	})

	assert.NoError(t, err)
	assert.Equal(t, integration.TaskStatusPending, task.Status)
	assert.Equal(t, 5, task.RemoteRequests)
	assert.Equal(t, 20, task.Priority)
}

func TestQueueService_Dispatch_RecordsFailureOnRow(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	task, err := integration.NewTask(uuid.New(), uuid.New(), "boom", nil, 1, 10)
	assert.NoError(t, err)
	assert.NoError(t, task.MarkProcessing())

	def := integration.TaskDefinition{
		Name: "boom",
		Func: func(ctx context.Context, inv integration.TaskInvocation) error {
			return errors.New("remote API down")
		},
	}

	service := NewQueueService(nil, taskRepo, integration.NewTaskRegistry(), nil, zap.NewNop())
	service.Dispatch(context.Background(), task, def)

	assert.Equal(t, integration.TaskStatusFailed, task.Status)
	assert.Equal(t, "remote API down", task.ErrorMessage)
	taskRepo.AssertExpectations(t)
}

func TestQueueService_Dispatch_RecoversPanic(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	taskRepo.On("Update", mock.Anything, mock.Anything).Return(nil)

	task, err := integration.NewTask(uuid.New(), uuid.New(), "panics", nil, 1, 10)
	assert.NoError(t, err)
	assert.NoError(t, task.MarkProcessing())

	def := integration.TaskDefinition{
		Name: "panics",
		Func: func(ctx context.Context, inv integration.TaskInvocation) error {
			panic("nil map write")
		},
	}

	service := NewQueueService(nil, taskRepo, integration.NewTaskRegistry(), nil, zap.NewNop())
	service.Dispatch(context.Background(), task, def)

	assert.Equal(t, integration.TaskStatusFailed, task.Status)
	assert.Contains(t, task.ErrorMessage, "task panicked")
}

func TestQueueService_Retry_ParksWithoutRetryNow(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()
	registry.RegisterFunc("flaky", func(ctx context.Context, inv integration.TaskInvocation) error {
		return nil
	})

	task, err := integration.NewTask(uuid.New(), uuid.New(), "flaky", nil, 1, 10)
	assert.NoError(t, err)
	assert.NoError(t, task.MarkProcessing())
	task.MarkFailed("first failure", "stack")

	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Update", mock.Anything, task).Return(nil)

	service := NewQueueService(nil, taskRepo, registry, nil, zap.NewNop())
	retried, err := service.Retry(context.Background(), task.ID, false)

	assert.NoError(t, err)
	assert.Equal(t, integration.TaskStatusPending, retried.Status)
	assert.Equal(t, 1, retried.Retry)
	assert.Contains(t, retried.ErrorHistory, "first failure")
	assert.Empty(t, retried.ErrorMessage)
}

func TestQueueService_Retry_RetryNowBypassesBudget(t *testing.T) {
	taskRepo := new(MockTaskRepository)
	registry := integration.NewTaskRegistry()

	executed := false
	registry.RegisterFunc("flaky", func(ctx context.Context, inv integration.TaskInvocation) error {
		executed = true
		return nil
	})

	task, err := integration.NewTask(uuid.New(), uuid.New(), "flaky", nil, 1, 10)
	assert.NoError(t, err)
	assert.NoError(t, task.MarkProcessing())
	task.MarkFailed("first failure", "stack")

	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)
	taskRepo.On("Update", mock.Anything, task).Return(nil)

	service := NewQueueService(nil, taskRepo, registry, nil, zap.NewNop())
	retried, err := service.Retry(context.Background(), task.ID, true)

	assert.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, integration.TaskStatusSuccess, retried.Status)
	// The admission check never ran.
	taskRepo.AssertNotCalled(t, "SumInFlightCost", mock.Anything, mock.Anything)
}

func TestQueueService_Retry_RejectsNonFailedTask(t *testing.T) {
	taskRepo := new(MockTaskRepository)

	task, err := integration.NewTask(uuid.New(), uuid.New(), "flaky", nil, 1, 10)
	assert.NoError(t, err)

	taskRepo.On("FindByID", mock.Anything, task.ID).Return(task, nil)

	service := NewQueueService(nil, taskRepo, integration.NewTaskRegistry(), nil, zap.NewNop())
	_, err = service.Retry(context.Background(), task.ID, false)

	assert.ErrorIs(t, err, integration.ErrTaskNotRetryable)
}
