package store_test

import (
	"context"
	"errors"
	"sync"
	"taskflow/internal/auth"
	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	"taskflow/internal/realtime"
	"taskflow/internal/service"
	"taskflow/internal/store"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gate struct {
	entered chan struct{}
	release chan struct{}
}

// fakeBackend - серверная сторона в памяти; gate задерживает следующую загрузку
type fakeBackend struct {
	mtx      sync.Mutex
	tasks    []*task.Task
	loads    int
	gate     *gate
	loadErr  error
	writeErr error
	onWrite  func()
}

func (b *fakeBackend) GetAllTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	b.mtx.Lock()
	b.loads++
	res := make([]*task.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if t.UserID == userID && !t.Deleted() {
			res = append(res, t.Clone())
		}
	}
	g := b.gate
	b.gate = nil
	err := b.loadErr
	b.mtx.Unlock()

	if g != nil {
		g.entered <- struct{}{}
		<-g.release
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *fakeBackend) write(id uuid.UUID, fn func(*task.Task)) (*task.Task, error) {
	if b.onWrite != nil {
		b.onWrite()
	}
	b.mtx.Lock()
	defer b.mtx.Unlock()
	if b.writeErr != nil {
		return nil, b.writeErr
	}
	for _, t := range b.tasks {
		if t.ID == id {
			fn(t)
			return t.Clone(), nil
		}
	}
	return nil, service.NewNotFound("task", id.String())
}

func (b *fakeBackend) SetStatus(ctx context.Context, userID, id uuid.UUID, status task.Status) (*task.Task, error) {
	return b.write(id, func(t *task.Task) { t.SetStatus(status, time.Now()) })
}

func (b *fakeBackend) ToggleComplete(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	return b.write(id, func(t *task.Task) { t.ToggleComplete(time.Now()) })
}

func (b *fakeBackend) MoveToTrash(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	return b.write(id, func(t *task.Task) { t.Lifecycle = task.Trashed(time.Now()) })
}

func (b *fakeBackend) add(userID uuid.UUID, title string) *task.Task {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	t := &task.Task{ID: uuid.New(), UserID: userID, Title: title, Status: task.StatusTodo}
	b.tasks = append(b.tasks, t)
	return t
}

func (b *fakeBackend) hold() *gate {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.gate = &gate{entered: make(chan struct{}), release: make(chan struct{})}
	return b.gate
}

func session(id uuid.UUID) *auth.Session {
	return &auth.Session{AccessToken: "token", User: user.User{ID: id, Email: "user@example.com"}}
}

func titles(tasks []*task.Task) []string {
	res := make([]string, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, t.Title)
	}
	return res
}

func TestStore_LoadsOnSignIn(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	backend.add(userID, "моя")
	backend.add(uuid.New(), "чужая")

	holder := auth.NewHolder()
	s := store.New(backend, holder)
	defer s.Close()

	assert.Empty(t, s.Tasks())
	err := s.Load(context.Background())
	assert.True(t, service.IsCode(err, service.CodeUnauthorized))

	holder.Set(session(userID))
	assert.Equal(t, []string{"моя"}, titles(s.Tasks()))

	holder.Clear()
	assert.Empty(t, s.Tasks())
}

func TestStore_StaleResponseDiscarded(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	backend.add(userID, "первая")

	holder := auth.NewHolder()
	holder.Set(session(userID))
	s := store.New(backend, holder)
	defer s.Close()
	ctx := context.Background()

	g := backend.hold()
	slow := make(chan error, 1)
	go func() { slow <- s.Load(ctx) }()
	<-g.entered

	// пока первый запрос висит, приходит более свежий
	backend.add(userID, "вторая")
	require.NoError(t, s.Load(ctx))
	assert.ElementsMatch(t, []string{"первая", "вторая"}, titles(s.Tasks()))

	close(g.release)
	require.NoError(t, <-slow)
	assert.ElementsMatch(t, []string{"первая", "вторая"}, titles(s.Tasks()), "устаревший ответ не применяется")
}

func TestStore_SignOutDuringLoad(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	backend.add(userID, "задача")

	holder := auth.NewHolder()
	holder.Set(session(userID))
	s := store.New(backend, holder)
	defer s.Close()

	g := backend.hold()
	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-g.entered

	holder.Clear()
	close(g.release)
	require.NoError(t, <-done)
	assert.Empty(t, s.Tasks())
}

func TestStore_LoadErrorEmptiesList(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	backend.add(userID, "задача")

	holder := auth.NewHolder()
	s := store.New(backend, holder)
	defer s.Close()
	holder.Set(session(userID))
	require.Len(t, s.Tasks(), 1)

	backend.loadErr = service.NewStorageError("list", errors.New("timeout"))
	err := s.Load(context.Background())
	assert.True(t, service.IsCode(err, service.CodeStorage))
	assert.Empty(t, s.Tasks())
}

func TestStore_OptimisticToggle(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	tk := backend.add(userID, "задача")

	holder := auth.NewHolder()
	s := store.New(backend, holder)
	defer s.Close()
	holder.Set(session(userID))

	var seen []task.Status
	backend.onWrite = func() {
		local, ok := s.Find(tk.ID)
		require.True(t, ok)
		seen = append(seen, local.Status)
	}

	require.NoError(t, s.ToggleComplete(context.Background(), tk.ID))
	assert.Equal(t, []task.Status{task.StatusCompleted}, seen, "локальное изменение видно до ответа сервера")

	local, _ := s.Find(tk.ID)
	assert.Equal(t, task.StatusCompleted, local.Status)
	assert.NotNil(t, local.CompletedAt)

	require.NoError(t, s.SetStatus(context.Background(), tk.ID, task.StatusInProgress))
	local, _ = s.Find(tk.ID)
	assert.Equal(t, task.StatusInProgress, local.Status)
}

func TestStore_FailedWriteKeepsLocalChange(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	tk := backend.add(userID, "задача")

	holder := auth.NewHolder()
	s := store.New(backend, holder)
	defer s.Close()
	holder.Set(session(userID))

	var history [][]string
	s.OnChange(func(tasks []*task.Task) {
		history = append(history, titles(tasks))
	})

	backend.writeErr = errors.New("network down")
	err := s.Trash(context.Background(), tk.ID)
	require.Error(t, err)

	// сначала задача пропадает локально, затем список перечитывается с сервера
	require.Len(t, history, 2)
	assert.Empty(t, history[0])
	assert.Equal(t, []string{"задача"}, history[1])
}

func TestStore_TrashAndComplete(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	first := backend.add(userID, "первая")
	second := backend.add(userID, "вторая")

	holder := auth.NewHolder()
	s := store.New(backend, holder)
	defer s.Close()
	holder.Set(session(userID))

	backend.onWrite = func() {
		_, ok := s.Find(first.ID)
		assert.False(t, ok, "задача убрана до ответа сервера")
	}
	require.NoError(t, s.Trash(context.Background(), first.ID))
	assert.Equal(t, []string{"вторая"}, titles(s.Tasks()))

	backend.onWrite = nil
	require.NoError(t, s.Complete(context.Background(), second.ID))
	local, _ := s.Find(second.ID)
	assert.Equal(t, task.StatusCompleted, local.Status)

	holder.Clear()
	err := s.Complete(context.Background(), second.ID)
	assert.True(t, service.IsCode(err, service.CodeUnauthorized))
}

func TestStore_Watch(t *testing.T) {
	userID := uuid.New()
	backend := &fakeBackend{}
	backend.add(userID, "первая")

	holder := auth.NewHolder()
	s := store.New(backend, holder)
	defer s.Close()
	holder.Set(session(userID))

	events := make(chan realtime.Event)
	done := make(chan struct{})
	go func() {
		s.Watch(context.Background(), events)
		close(done)
	}()

	created := backend.add(userID, "вторая")
	events <- realtime.Event{Op: realtime.OpInsert, TaskID: created.ID, UserID: userID}

	require.Eventually(t, func() bool {
		return len(s.Tasks()) == 2
	}, time.Second, 5*time.Millisecond)

	close(events)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch не завершился после закрытия канала")
	}
}
