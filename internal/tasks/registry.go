// Package tasks binds named task types to typed handlers and runs them on
// cron schedules. Dispatch goes through an explicit registry; there is no
// reflection.
package tasks

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
)

// Registry maps task types to their handlers
type Registry struct {
	mu       sync.RWMutex
	handlers map[models.TaskType]interfaces.TaskHandler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[models.TaskType]interfaces.TaskHandler)}
}

// Register binds a handler to a known task type. Each type is bound once.
func (r *Registry) Register(taskType models.TaskType, handler interfaces.TaskHandler) error {
	if !taskType.IsValid() {
		return fmt.Errorf("unknown task type: %s", taskType)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for task type %s", taskType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[taskType]; exists {
		return fmt.Errorf("task type %s already registered", taskType)
	}
	r.handlers[taskType] = handler
	return nil
}

// Handler returns the handler bound to a task type
func (r *Registry) Handler(taskType models.TaskType) (interfaces.TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	return h, ok
}

// Types returns the registered task types, sorted
func (r *Registry) Types() []models.TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]models.TaskType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
