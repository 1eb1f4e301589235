package focus_test

import (
	"context"
	"errors"
	"sync"
	"taskflow/internal/focus"
	"taskflow/internal/models/task"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompleter struct {
	mtx  sync.Mutex
	ids  []uuid.UUID
	fail map[uuid.UUID]bool
}

func (c *recordingCompleter) Complete(ctx context.Context, id uuid.UUID) error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.fail[id] {
		return errors.New("storage down")
	}
	c.ids = append(c.ids, id)
	return nil
}

func (c *recordingCompleter) completed() []uuid.UUID {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]uuid.UUID(nil), c.ids...)
}

func newTask(title string, status task.Status) *task.Task {
	return &task.Task{ID: uuid.New(), Title: title, Status: status}
}

func TestTimer_NoTasks(t *testing.T) {
	timer := focus.NewTimer(&recordingCompleter{})
	err := timer.Start(context.Background(), []*task.Task{newTask("готово", task.StatusCompleted)})
	assert.ErrorIs(t, err, focus.ErrNoTasks)
	assert.Equal(t, focus.StateIdle, timer.Snapshot().State)
}

func TestTimer_CompletesQueue(t *testing.T) {
	completer := &recordingCompleter{}
	var mtx sync.Mutex
	states := []focus.State{}

	timer := focus.NewTimer(completer,
		focus.WithTick(time.Millisecond),
		focus.WithLength(3*time.Second),
		focus.OnChange(func(s focus.Snapshot) {
			mtx.Lock()
			states = append(states, s.State)
			mtx.Unlock()
		}),
	)

	first := newTask("первая", task.StatusTodo)
	second := newTask("вторая", task.StatusInProgress)
	trashed := newTask("в корзине", task.StatusTodo)
	trashed.Lifecycle = task.Trashed(time.Now())

	require.NoError(t, timer.Start(context.Background(), []*task.Task{
		first, newTask("готово", task.StatusCompleted), trashed, second,
	}))
	snap := timer.Snapshot()
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, first.ID, snap.TaskID)
	assert.Equal(t, 3*time.Second, snap.Length)

	require.Eventually(t, func() bool {
		return timer.Snapshot().State == focus.StateFinished
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, completer.completed())
	final := timer.Snapshot()
	assert.Equal(t, 2, final.Completed)
	assert.Equal(t, 0, final.Total)
	assert.Zero(t, final.Remaining())

	mtx.Lock()
	assert.Equal(t, focus.StateFinished, states[len(states)-1])
	mtx.Unlock()
}

func TestTimer_PauseResumeSkip(t *testing.T) {
	completer := &recordingCompleter{}
	timer := focus.NewTimer(completer, focus.WithTick(time.Millisecond), focus.WithLength(time.Hour))
	ctx := context.Background()

	first := newTask("первая", task.StatusTodo)
	second := newTask("вторая", task.StatusTodo)
	require.NoError(t, timer.Start(ctx, []*task.Task{first, second}))

	require.Eventually(t, func() bool {
		return timer.Snapshot().Elapsed >= 3*time.Second
	}, time.Second, time.Millisecond)

	timer.Pause()
	paused := timer.Snapshot()
	assert.Equal(t, focus.StatePaused, paused.State)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, paused.Elapsed, timer.Snapshot().Elapsed, "на паузе время не идёт")

	timer.Skip()
	skipped := timer.Snapshot()
	assert.Equal(t, second.ID, skipped.TaskID)
	assert.Zero(t, skipped.Elapsed)

	timer.Skip()
	assert.Equal(t, first.ID, timer.Snapshot().TaskID, "пропуск идёт по кругу")

	timer.Resume(ctx)
	assert.Equal(t, focus.StateRunning, timer.Snapshot().State)

	timer.Stop()
	stopped := timer.Snapshot()
	assert.Equal(t, focus.StateIdle, stopped.State)
	assert.Zero(t, stopped.Total)
	assert.Empty(t, completer.completed())

	// повторные Stop и Pause безопасны
	timer.Stop()
	timer.Pause()
}

func TestTimer_CompleteError(t *testing.T) {
	first := newTask("первая", task.StatusTodo)
	second := newTask("вторая", task.StatusTodo)
	completer := &recordingCompleter{fail: map[uuid.UUID]bool{first.ID: true}}

	timer := focus.NewTimer(completer, focus.WithTick(time.Millisecond), focus.WithLength(2*time.Second))
	require.NoError(t, timer.Start(context.Background(), []*task.Task{first, second}))
	defer timer.Stop()

	// первая не отмечается, таймер переходит ко второй и закрывает её
	require.Eventually(t, func() bool {
		return len(completer.completed()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []uuid.UUID{second.ID}, completer.completed())

	require.Eventually(t, func() bool {
		snap := timer.Snapshot()
		return snap.Total == 1 && snap.TaskID == first.ID
	}, time.Second, time.Millisecond)
}

// blockingCompleter ждёт отмены контекста на первом вызове, остальные проходят
type blockingCompleter struct {
	recordingCompleter
	entered chan struct{}
	once    sync.Once
}

func (c *blockingCompleter) Complete(ctx context.Context, id uuid.UUID) error {
	first := false
	c.once.Do(func() { first = true })
	if first {
		close(c.entered)
		<-ctx.Done()
		return ctx.Err()
	}
	return c.recordingCompleter.Complete(ctx, id)
}

func TestTimer_PauseDuringComplete(t *testing.T) {
	completer := &blockingCompleter{entered: make(chan struct{})}
	timer := focus.NewTimer(completer,
		focus.WithTick(time.Millisecond),
		focus.WithLength(2*time.Second),
	)

	first := newTask("A", task.StatusTodo)
	second := newTask("B", task.StatusTodo)
	require.NoError(t, timer.Start(context.Background(), []*task.Task{first, second}))

	select {
	case <-completer.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("отрезок не истёк")
	}
	timer.Pause()

	snap := timer.Snapshot()
	assert.Equal(t, focus.StatePaused, snap.State)
	assert.Equal(t, first.ID, snap.TaskID, "задача не должна пропускаться")
	assert.Equal(t, 2, snap.Total)
	assert.Zero(t, snap.Completed)
	assert.Zero(t, snap.Remaining())

	// после паузы состояние не меняется
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, snap, timer.Snapshot())

	timer.Resume(context.Background())
	require.Eventually(t, func() bool {
		return len(completer.completed()) >= 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, first.ID, completer.completed()[0])
	timer.Stop()
}

func TestTimer_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	timer := focus.NewTimer(&recordingCompleter{}, focus.WithTick(time.Millisecond), focus.WithLength(time.Hour))
	require.NoError(t, timer.Start(ctx, []*task.Task{newTask("задача", task.StatusTodo)}))

	cancel()
	time.Sleep(20 * time.Millisecond)
	elapsed := timer.Snapshot().Elapsed
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, elapsed, timer.Snapshot().Elapsed)

	timer.Stop()
}

func TestSnapshot_Remaining(t *testing.T) {
	s := focus.Snapshot{Elapsed: 10 * time.Minute, Length: focus.DefaultLength}
	assert.Equal(t, 15*time.Minute, s.Remaining())
}
