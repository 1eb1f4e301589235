package store

import (
	"context"
	"sync"
	"sync/atomic"
	"taskflow/internal/auth"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/realtime"
	"taskflow/internal/service"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Backend interface {
	GetAllTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error)
	SetStatus(ctx context.Context, userID, id uuid.UUID, status task.Status) (*task.Task, error)
	ToggleComplete(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
	MoveToTrash(ctx context.Context, userID, id uuid.UUID) (*task.Task, error)
}

// Store - клиентская копия списка задач текущего пользователя.
// Каждая загрузка получает номер запроса, ответ применяется только от последнего выданного номера.
// Изменения применяются локально сразу, затем список перечитывается; при ошибке записи
// локальное изменение не откатывается.
type Store struct {
	backend Backend
	holder  *auth.Holder
	now     func() time.Time

	mtx    sync.RWMutex
	tasks  []*task.Task
	userID uuid.UUID

	latest      atomic.Uint64
	unsubscribe func()
	onChange    func([]*task.Task)
}

func New(backend Backend, holder *auth.Holder) *Store {
	s := &Store{
		backend: backend,
		holder:  holder,
		now:     time.Now,
		tasks:   []*task.Task{},
	}
	s.unsubscribe = holder.Subscribe(s.onSession)
	return s
}

func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// OnChange вызывается после каждого изменения списка
func (s *Store) OnChange(fn func([]*task.Task)) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.onChange = fn
}

func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Tasks возвращает копию текущего списка
func (s *Store) Tasks() []*task.Task {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		res = append(res, t.Clone())
	}
	return res
}

func (s *Store) Find(id uuid.UUID) (*task.Task, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	for _, t := range s.tasks {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return nil, false
}

// Load перечитывает список. Ответ на устаревший запрос отбрасывается.
func (s *Store) Load(ctx context.Context) error {
	userID, ok := s.holder.UserID()
	if !ok {
		s.reset(uuid.Nil)
		return service.NewUnauthorized("нет активной сессии")
	}

	token := s.latest.Add(1)
	tasks, err := s.backend.GetAllTasks(ctx, userID)
	tasks = service.Degrade(tasks, err, "store_load")

	s.mtx.Lock()
	if token != s.latest.Load() || userID != s.currentUser() {
		s.mtx.Unlock()
		logger.Debug("Store: Устаревший ответ отброшен", zap.Uint64("token", token))
		return nil
	}
	s.userID = userID
	s.tasks = tasks
	fn := s.onChange
	s.mtx.Unlock()

	if fn != nil {
		fn(s.Tasks())
	}
	return err
}

func (s *Store) ToggleComplete(ctx context.Context, id uuid.UUID) error {
	now := s.now()
	return s.mutate(ctx, "toggle_complete", id, func(t *task.Task) bool {
		t.ToggleComplete(now)
		return true
	}, func(userID uuid.UUID) error {
		_, err := s.backend.ToggleComplete(ctx, userID, id)
		return err
	})
}

func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status task.Status) error {
	now := s.now()
	return s.mutate(ctx, "set_status", id, func(t *task.Task) bool {
		t.SetStatus(status, now)
		return true
	}, func(userID uuid.UUID) error {
		_, err := s.backend.SetStatus(ctx, userID, id, status)
		return err
	})
}

// Complete нужен таймеру фокуса
func (s *Store) Complete(ctx context.Context, id uuid.UUID) error {
	return s.SetStatus(ctx, id, task.StatusCompleted)
}

// Trash убирает задачу из списка сразу, не дожидаясь ответа
func (s *Store) Trash(ctx context.Context, id uuid.UUID) error {
	return s.mutate(ctx, "move_to_trash", id, func(t *task.Task) bool {
		return false
	}, func(userID uuid.UUID) error {
		_, err := s.backend.MoveToTrash(ctx, userID, id)
		return err
	})
}

// Watch перечитывает список на каждое событие, пока канал открыт
func (s *Store) Watch(ctx context.Context, events <-chan realtime.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			logger.Debug("Store: Событие изменения", zap.String("op", string(e.Op)), zap.String("task_id", e.TaskID.String()))
			if err := s.Load(ctx); err != nil {
				logger.Warn("Store: Не удалось перечитать задачи", zap.Error(err))
			}
		}
	}
}

// mutate: patch возвращает false, если задачу нужно убрать из списка
func (s *Store) mutate(ctx context.Context, operation string, id uuid.UUID, patch func(*task.Task) bool, write func(uuid.UUID) error) error {
	userID, ok := s.holder.UserID()
	if !ok {
		return service.NewUnauthorized("нет активной сессии")
	}

	s.mtx.Lock()
	next := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.ID != id {
			next = append(next, t)
			continue
		}
		c := t.Clone()
		if patch(c) {
			next = append(next, c)
		}
	}
	s.tasks = next
	fn := s.onChange
	s.mtx.Unlock()

	if fn != nil {
		fn(s.Tasks())
	}

	err := write(userID)
	if err != nil {
		logger.Error("Store: Запись не удалась, локальное изменение оставлено", err,
			zap.String("operation", operation),
			zap.String("task_id", id.String()))
	}

	if loadErr := s.Load(ctx); loadErr != nil {
		logger.Warn("Store: Не удалось перечитать задачи", zap.Error(loadErr))
	}
	return err
}

func (s *Store) onSession(e auth.Event) {
	switch e.Kind {
	case auth.SignedIn:
		s.reset(e.Session.User.ID)
		if err := s.Load(context.Background()); err != nil {
			logger.Warn("Store: Не удалось загрузить задачи после входа", zap.Error(err))
		}
	case auth.SignedOut:
		s.reset(uuid.Nil)
	}
}

// reset делает все выданные номера запросов устаревшими
func (s *Store) reset(userID uuid.UUID) {
	s.latest.Add(1)

	s.mtx.Lock()
	s.userID = userID
	s.tasks = []*task.Task{}
	fn := s.onChange
	s.mtx.Unlock()

	if fn != nil {
		fn([]*task.Task{})
	}
}

func (s *Store) currentUser() uuid.UUID {
	id, _ := s.holder.UserID()
	return id
}
