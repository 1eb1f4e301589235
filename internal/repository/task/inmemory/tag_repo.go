package inmemory

import (
	"context"
	"sort"
	"strings"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"

	"github.com/google/uuid"
)

func (s *TaskStorage) ListTags(ctx context.Context, userID uuid.UUID) ([]task.Tag, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []task.Tag{}
	for _, tag := range s.tags {
		if tag.UserID == userID {
			res = append(res, *tag)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return strings.ToLower(res[i].Name) < strings.ToLower(res[j].Name)
	})
	return res, nil
}

func (s *TaskStorage) GetTag(ctx context.Context, id uuid.UUID) (*task.Tag, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tag, ok := s.tags[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	c := *tag
	return &c, nil
}

func (s *TaskStorage) CreateTag(ctx context.Context, tag *task.Tag) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.tagNameTaken(tag.UserID, tag.Name, uuid.Nil) {
		return repo.ErrDuplicate
	}
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	tag.CreatedAt = s.now()
	c := *tag
	s.tags[tag.ID] = &c
	return nil
}

func (s *TaskStorage) UpdateTag(ctx context.Context, tag *task.Tag) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existed, ok := s.tags[tag.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if s.tagNameTaken(existed.UserID, tag.Name, tag.ID) {
		return repo.ErrDuplicate
	}
	existed.Name = tag.Name
	existed.Color = tag.Color
	*tag = *existed
	return nil
}

// удаление тега снимает его со всех задач, сами задачи не трогаются
func (s *TaskStorage) DeleteTag(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tags[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.tags, id)
	for _, links := range s.taskTags {
		delete(links, id)
	}
	return nil
}

func (s *TaskStorage) tagNameTaken(userID uuid.UUID, name string, except uuid.UUID) bool {
	for _, tag := range s.tags {
		if tag.UserID == userID && tag.ID != except && strings.EqualFold(tag.Name, name) {
			return true
		}
	}
	return false
}
