package focus

import (
	"context"
	"errors"
	"sync"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultLength = 25 * time.Minute

var ErrNoTasks = errors.New("нет невыполненных задач для фокуса")

type Completer interface {
	Complete(ctx context.Context, id uuid.UUID) error
}

type State string

const StateIdle State = "idle"
const StateRunning State = "running"
const StatePaused State = "paused"
const StateFinished State = "finished"

type Snapshot struct {
	State     State
	TaskID    uuid.UUID
	Title     string
	Index     int
	Total     int
	Elapsed   time.Duration
	Length    time.Duration
	Completed int
}

func (s Snapshot) Remaining() time.Duration {
	if s.Elapsed >= s.Length {
		return 0
	}
	return s.Length - s.Elapsed
}

type Option func(*Timer)

// WithTick задаёт реальный интервал тика; каждый тик засчитывается как секунда
func WithTick(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.tick = d
		}
	}
}

func WithLength(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.length = d
		}
	}
}

func OnChange(fn func(Snapshot)) Option {
	return func(t *Timer) {
		t.onChange = fn
	}
}

// Timer - помодоро по очереди задач. По истечении отрезка текущая задача
// отмечается выполненной и таймер переходит к следующей.
// Pause и Stop возвращаются только после остановки горутины тиков.
type Timer struct {
	completer Completer
	tick      time.Duration
	length    time.Duration
	onChange  func(Snapshot)

	mtx       sync.Mutex
	queue     []*task.Task
	idx       int
	elapsed   time.Duration
	completed int
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewTimer(completer Completer, opts ...Option) *Timer {
	t := &Timer{
		completer: completer,
		tick:      time.Second,
		length:    DefaultLength,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start запускает фокус по невыполненным задачам из списка
func (t *Timer) Start(ctx context.Context, tasks []*task.Task) error {
	queue := make([]*task.Task, 0, len(tasks))
	for _, tsk := range tasks {
		if tsk.Status != task.StatusCompleted && !tsk.Deleted() {
			queue = append(queue, tsk.Clone())
		}
	}
	if len(queue) == 0 {
		return ErrNoTasks
	}

	t.Stop()

	t.mtx.Lock()
	t.queue = queue
	t.idx = 0
	t.elapsed = 0
	t.completed = 0
	t.run(ctx)
	snap := t.snapshot()
	t.mtx.Unlock()

	logger.Info("Focus: Таймер запущен", zap.Int("tasks", len(queue)), zap.Duration("length", t.length))
	t.emit(snap)
	return nil
}

func (t *Timer) Pause() {
	t.mtx.Lock()
	if t.state != StateRunning {
		t.mtx.Unlock()
		return
	}
	t.state = StatePaused
	done := t.halt()
	t.mtx.Unlock()

	<-done
	t.emit(t.Snapshot())
}

func (t *Timer) Resume(ctx context.Context) {
	t.mtx.Lock()
	if t.state != StatePaused {
		t.mtx.Unlock()
		return
	}
	t.run(ctx)
	snap := t.snapshot()
	t.mtx.Unlock()

	t.emit(snap)
}

func (t *Timer) Stop() {
	t.mtx.Lock()
	var done chan struct{}
	if t.state == StateRunning {
		done = t.halt()
	}
	t.state = StateIdle
	t.queue = nil
	t.idx = 0
	t.elapsed = 0
	t.mtx.Unlock()

	if done != nil {
		<-done
	}
}

// Skip переходит к следующей задаче по кругу, отрезок начинается заново
func (t *Timer) Skip() {
	t.mtx.Lock()
	if len(t.queue) == 0 {
		t.mtx.Unlock()
		return
	}
	t.idx = (t.idx + 1) % len(t.queue)
	t.elapsed = 0
	snap := t.snapshot()
	t.mtx.Unlock()

	t.emit(snap)
}

func (t *Timer) Snapshot() Snapshot {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.snapshot()
}

// run вызывается под блокировкой
func (t *Timer) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.state = StateRunning
	go t.loop(ctx, done)
}

// halt вызывается под блокировкой, ждать done нужно уже без неё
func (t *Timer) halt() chan struct{} {
	t.cancel()
	return t.done
}

func (t *Timer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.advance(ctx) {
				return
			}
		}
	}
}

func (t *Timer) advance(ctx context.Context) bool {
	t.mtx.Lock()
	if ctx.Err() != nil {
		t.mtx.Unlock()
		return false
	}
	t.elapsed += time.Second
	if t.elapsed < t.length {
		snap := t.snapshot()
		t.mtx.Unlock()
		t.emit(snap)
		return true
	}
	current := t.queue[t.idx]
	t.mtx.Unlock()

	err := t.completer.Complete(ctx, current.ID)

	t.mtx.Lock()
	pos := -1
	for i, queued := range t.queue {
		if queued.ID == current.ID {
			pos = i
			break
		}
	}
	if t.state == StateIdle || pos < 0 {
		// Stop сбросил очередь, пока задача отмечалась
		t.mtx.Unlock()
		return false
	}
	if err != nil && ctx.Err() != nil {
		// отметку прервала пауза: отрезок остаётся истёкшим, Resume повторит её
		t.mtx.Unlock()
		return false
	}

	t.elapsed = 0
	if err != nil {
		logger.Error("Focus: Не удалось отметить задачу выполненной", err, zap.String("task_id", current.ID.String()))
		t.idx = (pos + 1) % len(t.queue)
	} else {
		logger.Info("Focus: Задача выполнена", zap.String("task_id", current.ID.String()))
		t.completed++
		t.queue = append(t.queue[:pos], t.queue[pos+1:]...)
		if t.idx > pos {
			t.idx--
		}
		if len(t.queue) == 0 {
			t.state = StateFinished
			t.idx = 0
			t.cancel()
		} else {
			t.idx = t.idx % len(t.queue)
		}
	}
	snap := t.snapshot()
	finished := t.state == StateFinished
	t.mtx.Unlock()

	t.emit(snap)
	return !finished && ctx.Err() == nil
}

func (t *Timer) snapshot() Snapshot {
	snap := Snapshot{
		State:     t.state,
		Index:     t.idx,
		Total:     len(t.queue),
		Elapsed:   t.elapsed,
		Length:    t.length,
		Completed: t.completed,
	}
	if t.idx < len(t.queue) {
		snap.TaskID = t.queue[t.idx].ID
		snap.Title = t.queue[t.idx].Title
	}
	return snap
}

func (t *Timer) emit(snap Snapshot) {
	if t.onChange != nil {
		t.onChange(snap)
	}
}
