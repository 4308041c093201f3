package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/taskqueue"
)

// CleanupConfig holds retention policies for the periodic cleanup job.
type CleanupConfig struct {
	TaskRetentionDays      int           // finished task_queue rows
	ImportRunRetentionDays int           // finished import runs and their row errors
	Interval               time.Duration // how often the scheduler sweeps
	Enabled                bool
}

// DefaultCleanupConfig returns the retention defaults.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		TaskRetentionDays:      30,
		ImportRunRetentionDays: 90,
		Interval:               24 * time.Hour,
		Enabled:                true,
	}
}

// CleanupStats reports what one sweep removed.
type CleanupStats struct {
	TasksDeleted      int `json:"tasksDeleted"`
	ImportRunsDeleted int `json:"importRunsDeleted"`
}

// RunCleanup prunes finished queue tasks and old import runs in one pass.
func RunCleanup(ctx context.Context, queue *taskqueue.TaskQueue, cfg CleanupConfig) (*CleanupStats, error) {
	stats := &CleanupStats{}

	tasks, err := queue.CleanupOldTasks(ctx, cfg.TaskRetentionDays)
	if err != nil {
		return stats, fmt.Errorf("cleanup finished tasks: %w", err)
	}
	stats.TasksDeleted = tasks

	runs, err := database.DeleteOldImportRuns(ctx, cfg.ImportRunRetentionDays)
	if err != nil {
		return stats, fmt.Errorf("cleanup import runs: %w", err)
	}
	stats.ImportRunsDeleted = runs

	return stats, nil
}

// CleanupScheduler runs RunCleanup on a fixed interval.
type CleanupScheduler struct {
	queue  *taskqueue.TaskQueue
	config CleanupConfig
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCleanupScheduler creates a scheduler; zero retention fields fall back
// to the defaults.
func NewCleanupScheduler(queue *taskqueue.TaskQueue, config CleanupConfig, logger zerolog.Logger) *CleanupScheduler {
	defaults := DefaultCleanupConfig()
	if config.TaskRetentionDays <= 0 {
		config.TaskRetentionDays = defaults.TaskRetentionDays
	}
	if config.ImportRunRetentionDays <= 0 {
		config.ImportRunRetentionDays = defaults.ImportRunRetentionDays
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupScheduler{
		queue:  queue,
		config: config,
		logger: logger.With().Str("component", "cleanup").Logger(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start begins the periodic sweep. The first sweep runs immediately.
func (s *CleanupScheduler) Start() {
	if !s.config.Enabled {
		s.logger.Info().Msg("Cleanup job disabled, not starting")
		close(s.done)
		return
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Int("task_retention_days", s.config.TaskRetentionDays).
		Int("import_run_retention_days", s.config.ImportRunRetentionDays).
		Msg("Starting cleanup scheduler")

	go s.run()
}

// Stop cancels the sweep loop and waits for it to exit.
func (s *CleanupScheduler) Stop() {
	s.cancel()
	select {
	case <-s.done:
		s.logger.Debug().Msg("Cleanup scheduler stopped")
	case <-time.After(5 * time.Second):
		s.logger.Warn().Msg("Cleanup scheduler did not stop gracefully")
	}
}

func (s *CleanupScheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *CleanupScheduler) sweep() {
	start := time.Now()

	stats, err := RunCleanup(s.ctx, s.queue, s.config)
	if err != nil {
		s.logger.Error().Err(err).Msg("Cleanup sweep failed")
		return
	}

	if stats.TasksDeleted > 0 || stats.ImportRunsDeleted > 0 {
		s.logger.Info().
			Int("tasks_deleted", stats.TasksDeleted).
			Int("import_runs_deleted", stats.ImportRunsDeleted).
			Dur("duration", time.Since(start)).
			Msg("Cleanup sweep removed old rows")
	} else {
		s.logger.Debug().
			Dur("duration", time.Since(start)).
			Msg("Cleanup sweep found nothing to remove")
	}
}
