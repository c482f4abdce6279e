package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/evharness/internal/models"
)

// TaskHandler executes one typed task with its configured parameters
type TaskHandler func(ctx context.Context, params map[string]string) error

// TaskStatus represents the current status of a scheduled task
type TaskStatus struct {
	Name      string
	Type      models.TaskType
	Schedule  string
	LastRun   *time.Time
	NextRun   *time.Time
	IsRunning bool
	LastError string
}

// SchedulerService manages cron-based task execution
type SchedulerService interface {
	// Schedule binds a named task of a registered type to a cron expression
	Schedule(name string, taskType models.TaskType, schedule string, params map[string]string) error

	// Start begins dispatching scheduled tasks
	Start() error

	// Stop waits for running tasks and stops the scheduler
	Stop() error

	// RunNow executes a scheduled task immediately
	RunNow(ctx context.Context, name string) error

	// GetTaskStatus returns the status of a specific task
	GetTaskStatus(name string) (*TaskStatus, error)
}
