package service

import (
	"context"
	"errors"
	"strings"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/realtime"
	rep "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SubtaskService struct {
	repo  SubtaskRepository
	tasks TaskRepository
	settings
}

func NewSubtaskService(repo SubtaskRepository, tasks TaskRepository, opts ...Option) *SubtaskService {
	return &SubtaskService{
		repo:     repo,
		tasks:    tasks,
		settings: newSettings(opts),
	}
}

type SubtaskPatch struct {
	Title      *string `json:"title,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
	OrderIndex *int    `json:"order_index,omitempty"`
}

func (s *SubtaskService) GetTaskSubtasks(ctx context.Context, userID, taskID uuid.UUID) ([]task.Subtask, error) {
	if s.repo == nil || s.tasks == nil {
		logger.Warn("Service: Хранилище не настроено, возвращён пустой список", zap.String("operation", "get_task_subtasks"))
		return []task.Subtask{}, nil
	}

	if err := s.ownTask(ctx, userID, taskID); err != nil {
		return nil, err
	}
	subtasks, err := s.repo.ListSubtasks(ctx, taskID)
	if err != nil {
		logger.Error("Service: Ошибка получения подзадач", err)
		return nil, NewStorageError("get_task_subtasks", err)
	}
	return subtasks, nil
}

// CreateSubtask добавляет подзадачу в конец списка: order_index равен текущему количеству
func (s *SubtaskService) CreateSubtask(ctx context.Context, userID, taskID uuid.UUID, title string) (*task.Subtask, error) {
	if s.repo == nil || s.tasks == nil {
		return nil, NewConfigurationError()
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError("title", "не может быть пустым")
	}
	if err := s.ownTask(ctx, userID, taskID); err != nil {
		return nil, err
	}

	existing, err := s.repo.ListSubtasks(ctx, taskID)
	if err != nil {
		return nil, NewStorageError("create_subtask", err)
	}

	st := &task.Subtask{
		ID:         uuid.New(),
		TaskID:     taskID,
		Title:      title,
		OrderIndex: len(existing),
	}
	if err := s.repo.CreateSubtask(ctx, st); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(resourceTask, taskID.String())
		}
		logger.Error("Service: Не удалось создать подзадачу", err)
		return nil, NewStorageError("create_subtask", err)
	}

	s.notify(realtime.OpUpdate, taskID, userID)
	return st, nil
}

func (s *SubtaskService) UpdateSubtask(ctx context.Context, userID, id uuid.UUID, patch SubtaskPatch) (*task.Subtask, error) {
	if s.repo == nil || s.tasks == nil {
		return nil, NewConfigurationError()
	}

	st, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, NewValidationError("title", "не может быть пустым")
		}
		st.Title = title
	}
	if patch.Completed != nil {
		st.Completed = *patch.Completed
	}
	if patch.OrderIndex != nil {
		if *patch.OrderIndex < 0 {
			return nil, NewValidationError("order_index", "не может быть отрицательным")
		}
		st.OrderIndex = *patch.OrderIndex
	}

	if err := s.repo.UpdateSubtask(ctx, st); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(resourceSubtask, id.String())
		}
		logger.Error("Service: Не удалось обновить подзадачу", err)
		return nil, NewStorageError("update_subtask", err)
	}

	s.notify(realtime.OpUpdate, st.TaskID, userID)
	return st, nil
}

func (s *SubtaskService) DeleteSubtask(ctx context.Context, userID, id uuid.UUID) error {
	if s.repo == nil || s.tasks == nil {
		return NewConfigurationError()
	}

	st, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSubtask(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(resourceSubtask, id.String())
		}
		logger.Error("Service: Не удалось удалить подзадачу", err)
		return NewStorageError("delete_subtask", err)
	}

	s.notify(realtime.OpUpdate, st.TaskID, userID)
	return nil
}

// подзадача принадлежит пользователю через родительскую задачу
func (s *SubtaskService) owned(ctx context.Context, userID, id uuid.UUID) (*task.Subtask, error) {
	st, err := s.repo.GetSubtask(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(resourceSubtask, id.String())
		}
		return nil, NewStorageError("get_subtask", err)
	}
	if err := s.ownTask(ctx, userID, st.TaskID); err != nil {
		if IsCode(err, CodeNotFound) {
			return nil, NewNotFound(resourceSubtask, id.String())
		}
		return nil, err
	}
	return st, nil
}

func (s *SubtaskService) ownTask(ctx context.Context, userID, taskID uuid.UUID) error {
	t, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(resourceTask, taskID.String())
		}
		return NewStorageError("get_task", err)
	}
	if t.UserID != userID {
		return NewNotFound(resourceTask, taskID.String())
	}
	return nil
}
