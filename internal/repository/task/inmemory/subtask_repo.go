package inmemory

import (
	"context"
	"sort"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

func (s *TaskStorage) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]task.Subtask, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []task.Subtask{}
	for _, st := range s.subtasks {
		if st.TaskID == taskID {
			res = append(res, *st)
		}
	}
	sortSubtasks(res)
	return res, nil
}

func (s *TaskStorage) GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	st, ok := s.subtasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *st
	return &c, nil
}

func (s *TaskStorage) CreateSubtask(ctx context.Context, st *task.Subtask) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[st.TaskID]; !ok {
		return repo.ErrNotFound
	}
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	st.CreatedAt = s.now()
	c := *st
	s.subtasks[st.ID] = &c
	return nil
}

func (s *TaskStorage) UpdateSubtask(ctx context.Context, st *task.Subtask) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.subtasks[st.ID]
	if !ok {
		return repo.ErrNotFound
	}
	existed.Title = st.Title
	existed.Completed = st.Completed
	existed.OrderIndex = st.OrderIndex
	*st = *existed
	return nil
}

func (s *TaskStorage) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.subtasks[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.subtasks, id)
	return nil
}

func sortSubtasks(subtasks []task.Subtask) {
	sort.SliceStable(subtasks, func(i, j int) bool {
		if subtasks[i].OrderIndex != subtasks[j].OrderIndex {
			return subtasks[i].OrderIndex < subtasks[j].OrderIndex
		}
		return subtasks[i].CreatedAt.Before(subtasks[j].CreatedAt)
	})
}
