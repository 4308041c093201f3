package sweepers

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/taskqueue"
)

// TaskQueueSweeper requeues tasks whose claim outlived the TTL and keeps
// the queue depth gauge current. Run Start in its own goroutine.
type TaskQueueSweeper struct {
	queue    *taskqueue.TaskQueue
	claimTTL time.Duration
	interval time.Duration
	metrics  *MetricsRecorder
	logger   zerolog.Logger
	stopChan chan struct{}
}

// NewTaskQueueSweeper creates a sweeper polling at interval. Claims older
// than claimTTL are considered orphaned.
func NewTaskQueueSweeper(queue *taskqueue.TaskQueue, claimTTL, interval time.Duration) *TaskQueueSweeper {
	return &TaskQueueSweeper{
		queue:    queue,
		claimTTL: claimTTL,
		interval: interval,
		metrics:  &MetricsRecorder{},
		logger:   log.With().Str("component", "sweeper").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called. The first sweep runs immediately so claims left by a crashed
// process are requeued at startup.
func (s *TaskQueueSweeper) Start(ctx context.Context) {
	s.logger.Info().
		Dur("interval", s.interval).
		Dur("claim_ttl", s.claimTTL).
		Msg("Starting task queue sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Task queue sweeper stopping (context cancelled)")
			return
		case <-s.stopChan:
			s.logger.Info().Msg("Task queue sweeper stopping (stop signal)")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop signals the sweeper to stop.
func (s *TaskQueueSweeper) Stop() {
	close(s.stopChan)
}

func (s *TaskQueueSweeper) sweep(ctx context.Context) {
	recovered, failed, err := s.queue.RecoverOrphanedTasks(ctx, s.claimTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to recover orphaned tasks")
	} else if recovered > 0 || failed > 0 {
		s.logger.Info().
			Int("recovered", recovered).
			Int("failed", failed).
			Msg("Recovered orphaned tasks")
	}

	counts, err := s.queue.CountByStatus(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to count queue depth")
		return
	}
	s.metrics.RecordQueueDepth(counts)
}
