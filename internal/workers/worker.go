package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/taskqueue"
)

// HandlerFunc processes one claimed task. The returned value is stored as
// the task result; a non-nil error fails the task and lets the queue decide
// whether to retry.
type HandlerFunc func(ctx context.Context, payload []byte) (any, error)

// Config sizes the polling worker.
type Config struct {
	WorkerID   string
	TaskTypes  []string // empty claims every registered type
	MaxTasks   int
	NumWorkers int
	PollDelay  time.Duration
}

// Worker polls the task queue on a ticker and dispatches claimed tasks to
// registered handlers. Tasks of a type without a handler are failed without
// retry.
type Worker struct {
	queue    *taskqueue.TaskQueue
	config   Config
	handlers map[string]HandlerFunc
	metrics  *MetricsRecorder
	logger   zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(queue *taskqueue.TaskQueue, config Config) *Worker {
	if config.MaxTasks < 1 {
		config.MaxTasks = 1
	}
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.PollDelay <= 0 {
		config.PollDelay = 5 * time.Second
	}

	return &Worker{
		queue:    queue,
		config:   config,
		handlers: make(map[string]HandlerFunc),
		metrics:  &MetricsRecorder{},
		logger:   log.With().Str("component", "worker").Str("worker_id", config.WorkerID).Logger(),
		stopChan: make(chan struct{}),
	}
}

// RegisterHandler binds a task type to its handler. Not safe to call after
// Start.
func (w *Worker) RegisterHandler(taskType string, handler HandlerFunc) {
	w.handlers[taskType] = handler
}

// Start launches the polling goroutines. Claimed task types default to the
// registered handlers when the config names none.
func (w *Worker) Start(ctx context.Context) {
	if len(w.config.TaskTypes) == 0 {
		for taskType := range w.handlers {
			w.config.TaskTypes = append(w.config.TaskTypes, taskType)
		}
		sort.Strings(w.config.TaskTypes)
	}

	w.logger.Info().
		Strs("task_types", w.config.TaskTypes).
		Int("num_workers", w.config.NumWorkers).
		Dur("poll_delay", w.config.PollDelay).
		Msg("Starting worker")

	for i := 0; i < w.config.NumWorkers; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// Stop signals the polling goroutines and waits for in-flight tasks.
func (w *Worker) Stop() {
	close(w.stopChan)
	w.logger.Info().Msg("Worker stopping, waiting for in-flight tasks")
	w.wg.Wait()
	w.logger.Info().Msg("Worker stopped")
}

func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerID := fmt.Sprintf("%s-%d", w.config.WorkerID, workerNum)
	logger := w.logger.With().Str("claim_id", workerID).Logger()
	logger.Debug().Msg("Worker goroutine started")

	ticker := time.NewTicker(w.config.PollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Worker goroutine shutting down")
			return
		case <-w.stopChan:
			logger.Debug().Msg("Worker goroutine received stop signal")
			return
		case <-ticker.C:
			w.processTasks(ctx, workerID, logger)
		}
	}
}

func (w *Worker) processTasks(ctx context.Context, workerID string, logger zerolog.Logger) {
	tasks, err := w.queue.ClaimTasks(ctx, taskqueue.ClaimTasksInput{
		WorkerID:  workerID,
		TaskTypes: w.config.TaskTypes,
		MaxTasks:  w.config.MaxTasks,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to claim tasks")
		return
	}
	if len(tasks) == 0 {
		return
	}

	logger.Debug().Int("task_count", len(tasks)).Msg("Claimed tasks")
	for _, task := range tasks {
		w.processTask(ctx, task, logger)
	}
}

func (w *Worker) processTask(ctx context.Context, task taskqueue.ClaimedTask, logger zerolog.Logger) {
	taskLogger := logger.With().Str("task_id", task.ID).Str("task_type", task.TaskType).Logger()

	handler, ok := w.handlers[task.TaskType]
	if !ok {
		taskLogger.Warn().Msg("No handler registered for task type")
		if err := w.queue.FailTask(ctx, task.ID, "no handler registered", false); err != nil {
			taskLogger.Error().Err(err).Msg("Failed to record missing-handler failure")
		}
		return
	}

	// A claimed task that never reaches processing stays claimed and is
	// requeued by the sweeper once the claim TTL passes.
	if err := w.queue.MarkProcessing(ctx, task.ID); err != nil {
		taskLogger.Error().Err(err).Msg("Failed to mark task processing")
		return
	}

	taskLogger.Info().Msg("Processing task")
	start := time.Now()

	result, err := handler(ctx, task.Payload)
	if err != nil {
		w.metrics.RecordTask(task.TaskType, "failed", time.Since(start))
		taskLogger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Task failed")
		if ferr := w.queue.FailTask(ctx, task.ID, err.Error(), true); ferr != nil {
			taskLogger.Error().Err(ferr).Msg("Failed to record task failure")
		}
		return
	}

	if err := w.queue.CompleteTask(ctx, task.ID, result); err != nil {
		taskLogger.Error().Err(err).Msg("Failed to mark task completed")
		return
	}
	w.metrics.RecordTask(task.TaskType, "completed", time.Since(start))
	taskLogger.Info().Dur("duration", time.Since(start)).Msg("Task completed")
}
