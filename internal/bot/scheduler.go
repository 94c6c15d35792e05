package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/intakebot/internal/bot/tasks"
	"github.com/edgard/intakebot/internal/config"
)

var errSchedulerRunning = errors.New("scheduler is already running")

// Scheduler runs the configured tasks on their cron schedules.
type Scheduler struct {
	cron    gocron.Scheduler
	logger  *slog.Logger
	cfg     *config.SchedulerConfig
	taskMap map[string]tasks.ScheduledTaskFunc

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler that evaluates cron expressions in loc.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, loc *time.Location, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if cfg == nil {
		cfg = &config.SchedulerConfig{}
	}

	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		cron:    cron,
		logger:  logger.With("component", "scheduler", "location", loc.String()),
		cfg:     cfg,
		taskMap: taskMap,
	}, nil
}

// Start registers every enabled task and starts ticking. Tasks that are disabled,
// unknown or lack a schedule are skipped with a log line.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errSchedulerRunning
	}

	names := make([]string, 0, len(s.cfg.Tasks))
	for name := range s.cfg.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	scheduled := 0
	for _, name := range names {
		if s.schedule(name, s.cfg.Tasks[name]) {
			scheduled++
		}
	}
	if len(names) == 0 {
		s.logger.Warn("No scheduler tasks configured")
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", "tasks_scheduled", scheduled)
	return nil
}

func (s *Scheduler) schedule(name string, tc config.TaskConfig) bool {
	log := s.logger.With("task_name", name)
	run, known := s.taskMap[name]
	switch {
	case !tc.Enabled:
		log.Info("Task disabled")
		return false
	case !known:
		log.Warn("Task configured but not registered")
		return false
	case tc.Schedule == "":
		log.Warn("Task enabled without a schedule")
		return false
	}

	_, err := s.cron.NewJob(
		gocron.CronJob(tc.Schedule, true),
		gocron.NewTask(func(ctx context.Context) {
			start := time.Now()
			if err := run(ctx); err != nil {
				log.ErrorContext(ctx, "Scheduled task failed", "error", err, "duration", time.Since(start))
				return
			}
			log.DebugContext(ctx, "Scheduled task finished", "duration", time.Since(start))
		}, context.Background()),
		gocron.WithName(name),
		// reminder sweeps must not overlap
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Error("Failed to schedule task", "schedule", tc.Schedule, "error", err)
		return false
	}
	log.Info("Task scheduled", "schedule", tc.Schedule)
	return true
}

// Stop shuts the scheduler down, waiting for running jobs. Stopping twice is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	s.logger.Info("Scheduler stopped")
	return nil
}
