package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/common"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
)

// taskEntry represents a scheduled task with its run state
type taskEntry struct {
	name      string
	taskType  models.TaskType
	schedule  string
	params    map[string]string
	cronID    cron.EntryID
	lastRun   *time.Time
	isRunning bool
	lastError string
}

// Scheduler implements interfaces.SchedulerService
type Scheduler struct {
	registry *Registry
	cron     *cron.Cron
	kv       interfaces.KeyValueStorage // optional; persists last run times
	logger   arbor.ILogger

	taskMu   sync.Mutex // protects tasks
	globalMu sync.Mutex // serialises task execution
	tasks    map[string]*taskEntry

	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

var _ interfaces.SchedulerService = (*Scheduler)(nil)

// NewScheduler creates a scheduler dispatching through registry. kv may be nil.
func NewScheduler(registry *Registry, kv interfaces.KeyValueStorage, logger arbor.ILogger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry: registry,
		cron:     cron.New(),
		kv:       kv,
		logger:   logger,
		tasks:    make(map[string]*taskEntry),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func lastRunKey(name string) string {
	return "task:" + name + ":last_run"
}

// Schedule binds a named task of a registered type to a cron expression
func (s *Scheduler) Schedule(name string, taskType models.TaskType, schedule string, params map[string]string) error {
	if name == "" {
		return fmt.Errorf("task name is required")
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid schedule for task %s: %w", name, err)
	}
	if _, ok := s.registry.Handler(taskType); !ok {
		return fmt.Errorf("no handler registered for task type %s", taskType)
	}

	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %s already scheduled", name)
	}

	entry := &taskEntry{
		name:     name,
		taskType: taskType,
		schedule: schedule,
		params:   copyParams(params),
	}
	entry.lastRun = s.loadLastRun(name)

	cronID, err := s.cron.AddFunc(schedule, func() {
		_ = s.execute(s.ctx, name)
	})
	if err != nil {
		return fmt.Errorf("failed to add task to cron: %w", err)
	}
	entry.cronID = cronID
	s.tasks[name] = entry

	s.logger.Info().
		Str("task_name", name).
		Str("task_type", taskType.String()).
		Str("schedule", schedule).
		Msg("Task scheduled")
	return nil
}

// ScheduleAll schedules every configured task
func (s *Scheduler) ScheduleAll(configured []common.ScheduledTaskConfig) error {
	for _, t := range configured {
		if err := s.Schedule(t.Name, models.TaskType(t.Type), t.Schedule, t.Params); err != nil {
			return err
		}
	}
	return nil
}

// Start begins dispatching scheduled tasks
func (s *Scheduler) Start() error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.cron.Start()
	s.running = true

	s.taskMu.Lock()
	count := len(s.tasks)
	s.taskMu.Unlock()
	s.logger.Info().Int("tasks", count).Msg("Scheduler started")
	return nil
}

// Stop cancels in-flight tasks, waits for them and stops the scheduler
func (s *Scheduler) Stop() error {
	if !s.running {
		return nil
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// RunNow executes a scheduled task immediately and returns its error
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	return s.execute(ctx, name)
}

// GetTaskStatus returns the status of a specific task
func (s *Scheduler) GetTaskStatus(name string) (*interfaces.TaskStatus, error) {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()

	entry, exists := s.tasks[name]
	if !exists {
		return nil, fmt.Errorf("task %s not found", name)
	}

	var nextRun *time.Time
	if s.running {
		next := s.cron.Entry(entry.cronID).Next
		if !next.IsZero() {
			nextRun = &next
		}
	}

	return &interfaces.TaskStatus{
		Name:      entry.name,
		Type:      entry.taskType,
		Schedule:  entry.schedule,
		LastRun:   entry.lastRun,
		NextRun:   nextRun,
		IsRunning: entry.isRunning,
		LastError: entry.lastError,
	}, nil
}

// execute wraps a handler with serial execution, panic recovery and status
// tracking.
func (s *Scheduler) execute(ctx context.Context, name string) (err error) {
	s.taskMu.Lock()
	entry, exists := s.tasks[name]
	if !exists {
		s.taskMu.Unlock()
		return fmt.Errorf("task %s not found", name)
	}
	taskType := entry.taskType
	params := copyParams(entry.params)
	s.taskMu.Unlock()

	handler, ok := s.registry.Handler(taskType)
	if !ok {
		return fmt.Errorf("no handler registered for task type %s", taskType)
	}

	s.globalMu.Lock()
	defer s.globalMu.Unlock()

	s.setRunning(name, true)
	started := time.Now()
	s.logger.Info().Str("task_name", name).Str("task_type", taskType.String()).Msg("Task execution started")

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.logger.Error().
				Str("task_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in task execution")
		}
		s.finish(name, err)
		if err != nil {
			s.logger.Error().Str("task_name", name).Err(err).Dur("duration", time.Since(started)).Msg("Task execution failed")
		} else {
			s.logger.Info().Str("task_name", name).Dur("duration", time.Since(started)).Msg("Task execution completed")
		}
	}()

	return handler(ctx, params)
}

func (s *Scheduler) setRunning(name string, running bool) {
	s.taskMu.Lock()
	defer s.taskMu.Unlock()
	if entry, ok := s.tasks[name]; ok {
		entry.isRunning = running
	}
}

func (s *Scheduler) finish(name string, runErr error) {
	completed := time.Now().UTC()

	s.taskMu.Lock()
	if entry, ok := s.tasks[name]; ok {
		entry.isRunning = false
		entry.lastRun = &completed
		entry.lastError = ""
		if runErr != nil {
			entry.lastError = runErr.Error()
		}
	}
	s.taskMu.Unlock()

	if s.kv == nil {
		return
	}
	if err := s.kv.Set(context.Background(), lastRunKey(name), completed.Format(time.RFC3339), "last completion of scheduled task "+name); err != nil {
		s.logger.Warn().Err(err).Str("task_name", name).Msg("Failed to persist task last run")
	}
}

func (s *Scheduler) loadLastRun(name string) *time.Time {
	if s.kv == nil {
		return nil
	}
	value, err := s.kv.Get(context.Background(), lastRunKey(name))
	if err != nil {
		if !errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("task_name", name).Msg("Failed to load task last run")
		}
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func copyParams(params map[string]string) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
