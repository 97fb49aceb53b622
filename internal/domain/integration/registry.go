package integration

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskInvocation carries the arguments a queued task was enqueued with
type TaskInvocation struct {
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	TaskID        uuid.UUID
	Args          []byte
}

// TaskFunc is the signature every registered task implements
type TaskFunc func(ctx context.Context, inv TaskInvocation) error

// TaskDefinition binds a stable task name to its function, plus the
// optional cost and priority defaults consulted at enqueue time.
type TaskDefinition struct {
	Name string
	Func TaskFunc
	// RemoteRequests is the rate-budget cost of one run. Zero means
	// "use the queue default of 1".
	RemoteRequests int
	// Priority is the default queue priority. Zero means "use the
	// queue default".
	Priority int
}

// TaskRegistry is the process-wide mapping from stable task names to task
// functions, populated at startup. It replaces dynamic import-by-path:
// a name that does not resolve is an UNKNOWN_TASK validation error.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]TaskDefinition
}

// NewTaskRegistry creates an empty task registry
func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{
		tasks: make(map[string]TaskDefinition),
	}
}

// Register adds a task definition. Registering the same name twice
// overwrites the previous definition; startup wiring owns uniqueness.
func (r *TaskRegistry) Register(def TaskDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[def.Name] = def
}

// RegisterFunc is a convenience wrapper for tasks without annotations
func (r *TaskRegistry) RegisterFunc(name string, fn TaskFunc) {
	r.Register(TaskDefinition{Name: name, Func: fn})
}

// Resolve looks up a task definition by name
func (r *TaskRegistry) Resolve(name string) (TaskDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tasks[name]
	return def, ok
}

// Names returns all registered task names
func (r *TaskRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	return names
}
