package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/models/user"
	repo "taskflow/internal/repository"
	"time"

	"github.com/google/uuid"
)

// TaskStorage хранит задачи, теги, подзадачи и пользователей в памяти.
// Семантика совпадает с postgres.Storage, включая каскадное удаление связей.
type TaskStorage struct {
	storage  map[uuid.UUID]*task.Task
	ids      []uuid.UUID
	tags     map[uuid.UUID]*task.Tag
	taskTags map[uuid.UUID]map[uuid.UUID]struct{}
	subtasks map[uuid.UUID]*task.Subtask
	users    map[uuid.UUID]*user.User
	mtx      *sync.RWMutex
	now      func() time.Time
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage:  make(map[uuid.UUID]*task.Task),
		ids:      []uuid.UUID{},
		tags:     make(map[uuid.UUID]*task.Tag),
		taskTags: make(map[uuid.UUID]map[uuid.UUID]struct{}),
		subtasks: make(map[uuid.UUID]*task.Subtask),
		users:    make(map[uuid.UUID]*user.User),
		mtx:      &sync.RWMutex{},
		now:      time.Now,
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Info("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if taskToCreate.ID == uuid.Nil {
		taskToCreate.ID = uuid.New()
	}
	if _, ok := s.storage[taskToCreate.ID]; ok {
		return repo.ErrDuplicate
	}

	now := s.now()
	taskToCreate.CreatedAt = now
	taskToCreate.UpdatedAt = now
	taskToCreate.Version = 1
	if taskToCreate.Lifecycle.State() != task.LifecycleTrashed {
		taskToCreate.Lifecycle = task.Active()
	}

	stored := taskToCreate.Clone()
	stored.Tags = nil
	stored.Subtasks = nil
	s.storage[stored.ID] = stored
	s.ids = append(s.ids, stored.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[taskToUpdate.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	taskToUpdate.UpdatedAt = s.now()
	taskToUpdate.Version++
	taskToUpdate.Lifecycle = existed.Lifecycle

	stored := taskToUpdate.Clone()
	stored.Tags = nil
	stored.Subtasks = nil
	s.storage[stored.ID] = stored
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return s.resolve(taskToGet), nil
}

// мягкое удаление: задача уходит в корзину
func (s *TaskStorage) DeleteSoft(ctx context.Context, taskToDelete *task.Task) error {
	return s.setLifecycle(taskToDelete, task.Trashed(s.now()))
}

// восстановление из корзины
func (s *TaskStorage) Restore(ctx context.Context, taskToRestore *task.Task) error {
	return s.setLifecycle(taskToRestore, task.Active())
}

func (s *TaskStorage) setLifecycle(t *task.Task, lifecycle task.Lifecycle) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.storage[t.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if existed.Version != t.Version {
		return repo.ErrVersionConflict
	}

	existed.Lifecycle = lifecycle
	existed.Version++
	t.Lifecycle = lifecycle
	t.Version = existed.Version
	return nil
}

// полное удаление вместе с подзадачами и связями
func (s *TaskStorage) DeleteFull(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	s.deleteTask(id)
	return nil
}

func (s *TaskStorage) deleteTask(id uuid.UUID) {
	delete(s.storage, id)
	delete(s.taskTags, id)
	for sid, st := range s.subtasks {
		if st.TaskID == id {
			delete(s.subtasks, sid)
		}
	}
	for ind, val := range s.ids {
		if val == id {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
}

func (s *TaskStorage) List(ctx context.Context, q task.Query) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	// обратный порядок вставки: при равных created_at новые идут первыми
	for i := len(s.ids) - 1; i >= 0; i-- {
		t := s.storage[s.ids[i]]
		if !q.Match(t) {
			continue
		}
		res = append(res, s.resolve(t))
	}
	task.SortTasks(res, q.Order)
	return res, nil
}

// PurgeTrashedBefore удаляет задачи, лежащие в корзине дольше cutoff
func (s *TaskStorage) PurgeTrashedBefore(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	victims := []uuid.UUID{}
	for _, id := range s.ids {
		if len(victims) >= limit {
			break
		}
		at := s.storage[id].DeletedAt()
		if at != nil && at.Before(cutoff) {
			victims = append(victims, id)
		}
	}
	for _, id := range victims {
		s.deleteTask(id)
	}
	return len(victims), nil
}

func (s *TaskStorage) AddTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[taskID]; !ok {
		return repo.ErrNotFound
	}
	for _, tagID := range tagIDs {
		if _, ok := s.tags[tagID]; !ok {
			return repo.ErrNotFound
		}
	}

	links, ok := s.taskTags[taskID]
	if !ok {
		links = make(map[uuid.UUID]struct{})
		s.taskTags[taskID] = links
	}
	for _, tagID := range tagIDs {
		links[tagID] = struct{}{}
	}
	return nil
}

func (s *TaskStorage) RemoveTags(ctx context.Context, taskID uuid.UUID, tagIDs []uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if tagIDs == nil {
		delete(s.taskTags, taskID)
		return nil
	}
	links := s.taskTags[taskID]
	for _, tagID := range tagIDs {
		delete(links, tagID)
	}
	return nil
}

// resolve собирает копию задачи с тегами и подзадачами, как вложенный select в postgres
func (s *TaskStorage) resolve(t *task.Task) *task.Task {
	c := t.Clone()

	c.Tags = []task.Tag{}
	for tagID := range s.taskTags[t.ID] {
		if tag, ok := s.tags[tagID]; ok {
			c.Tags = append(c.Tags, *tag)
		}
	}
	sort.Slice(c.Tags, func(i, j int) bool {
		return strings.ToLower(c.Tags[i].Name) < strings.ToLower(c.Tags[j].Name)
	})

	c.Subtasks = []task.Subtask{}
	for _, st := range s.subtasks {
		if st.TaskID == t.ID {
			c.Subtasks = append(c.Subtasks, *st)
		}
	}
	sortSubtasks(c.Subtasks)
	return c
}
