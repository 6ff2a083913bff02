// Package dispatcher is the task dispatcher (C5): it claims batches of due
// tasks from the queue, routes each to the handler registered for its
// task_type, and applies the retry policy to the handler's result.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/domain/scheduledtask"
	ierr "github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/errors"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/logger"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/sentry"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/taskqueue"
	"github.com/neeraj-agentic-lab/SubscriptionManager-sub003/internal/types"
)

// Handler processes one claimed task under its tenant context. It never
// panics across the dispatcher boundary for expected failures - it
// returns an error classified via the ierr sentinel kinds instead.
type Handler func(ctx context.Context, task *scheduledtask.Task) error

// TerminalHook runs once a task_type's task has left the queue for good -
// either terminated immediately or failed out its last retry. It lets a
// core react to exhaustion (e.g. billing emitting payment.exhausted)
// without the dispatcher knowing anything about that core.
type TerminalHook func(ctx context.Context, task *scheduledtask.Task)

// Config mirrors the task.* knobs in internal/config.
type Config struct {
	LeaseSeconds int
	BatchSize    int
	Workers      int
}

type Dispatcher struct {
	queue    *taskqueue.Queue
	log      *logger.Logger
	sentry   *sentry.Service
	cfg      Config
	handlers map[types.TaskType]Handler
	terminal map[types.TaskType]TerminalHook

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func New(queue *taskqueue.Queue, log *logger.Logger, sentrySvc *sentry.Service, cfg Config) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		log:      log,
		sentry:   sentrySvc,
		cfg:      cfg,
		handlers: make(map[types.TaskType]Handler),
		terminal: make(map[types.TaskType]TerminalHook),
	}
}

// Register wires a task_type to its handler. Billing and fulfillment
// register theirs at startup, decoupling the dispatcher from C6/C7 the
// way the teacher's scheduler decouples from its billing service via an
// injected handler interface.
func (d *Dispatcher) Register(taskType types.TaskType, h Handler) {
	d.handlers[taskType] = h
}

// RegisterTerminalHook wires a task_type to a callback run once a task of
// that type leaves the queue for good - terminated on a non-retryable
// error, or failed out its last retry attempt. At most one hook per
// task_type; registering a second overwrites the first.
func (d *Dispatcher) RegisterTerminalHook(taskType types.TaskType, h TerminalHook) {
	d.terminal[taskType] = h
}

// Run starts the claim/process loop on its own goroutine; call Stop to
// drain in-flight work and return.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.mu.Unlock()

	go d.loop(ctx)
}

func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	close(d.stop)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.claimAndProcess(ctx); err != nil {
				d.log.Errorw("dispatcher claim batch failed", "error", err)
			}
		}
	}
}

func (d *Dispatcher) claimAndProcess(ctx context.Context) error {
	workerID := types.GenerateIDWithPrefix("worker")
	lease := time.Duration(d.cfg.LeaseSeconds) * time.Second
	now := time.Now().UTC()

	tasks, err := d.queue.Claim(ctx, workerID, lease, d.cfg.BatchSize, now)
	if err != nil {
		return fmt.Errorf("claim batch: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	p := pool.New().WithMaxGoroutines(d.cfg.Workers)
	for _, task := range tasks {
		task := task
		p.Go(func() {
			d.process(ctx, workerID, task)
		})
	}
	p.Wait()
	return nil
}

// process runs a single task under its tenant context, always clearing
// that context afterward regardless of outcome.
func (d *Dispatcher) process(ctx context.Context, workerID string, task *scheduledtask.Task) {
	taskCtx := types.WithTenantID(ctx, task.TenantID)
	taskCtx = types.WithWorkerID(taskCtx, workerID)
	defer func() {
		_ = types.WithoutTenant(taskCtx)
	}()

	now := time.Now().UTC()

	handler, ok := d.handlers[task.TaskType]
	if !ok {
		d.log.Errorw("no handler registered for task type", "task_type", task.TaskType, "task_id", task.ID)
		if err := d.queue.Terminate(taskCtx, task.ID, "unknown task type", now); err != nil {
			d.log.Errorw("failed to terminate task with unknown type", "task_id", task.ID, "error", err)
		}
		return
	}

	err := d.runHandler(taskCtx, handler, task)
	if err == nil {
		if err := d.queue.Complete(taskCtx, task.ID, time.Now().UTC()); err != nil {
			d.log.Errorw("failed to complete task", "task_id", task.ID, "error", err)
		}
		return
	}

	if errors.Is(err, ierr.ErrTerminal) || errors.Is(err, ierr.ErrValidation) || errors.Is(err, ierr.ErrNotFound) {
		d.log.Errorw("task failed terminally", "task_id", task.ID, "task_type", task.TaskType, "error", err)
		if d.sentry != nil {
			d.sentry.CaptureException(err)
		}
		if termErr := d.queue.Terminate(taskCtx, task.ID, err.Error(), time.Now().UTC()); termErr != nil {
			d.log.Errorw("failed to terminate task", "task_id", task.ID, "error", termErr)
		}
		d.runTerminalHook(taskCtx, task)
		return
	}

	exhausted := task.AttemptCount+1 >= task.MaxAttempts
	d.log.Warnw("task failed, scheduling retry", "task_id", task.ID, "task_type", task.TaskType, "attempt", task.AttemptCount+1, "exhausted", exhausted, "error", err)
	if failErr := d.queue.Fail(taskCtx, task, err.Error(), time.Now().UTC()); failErr != nil {
		d.log.Errorw("failed to record task failure", "task_id", task.ID, "error", failErr)
	}
	if exhausted {
		d.runTerminalHook(taskCtx, task)
	}
}

// runTerminalHook invokes the task_type's terminal hook, if any. Hooks
// never affect the task's queue state - it has already been
// terminated/failed by the time this runs.
func (d *Dispatcher) runTerminalHook(ctx context.Context, task *scheduledtask.Task) {
	hook, ok := d.terminal[task.TaskType]
	if !ok {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorw("terminal hook panicked", "task_id", task.ID, "task_type", task.TaskType, "panic", r)
		}
	}()
	hook(ctx, task)
}

// runHandler recovers a handler panic into a transient error so one bad
// task can never take down a worker goroutine.
func (d *Dispatcher) runHandler(ctx context.Context, h Handler, task *scheduledtask.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panicked: %v", ierr.ErrTransient, r)
		}
	}()
	return h(ctx, task)
}
