package postgres

import (
	"context"
	"errors"
	"fmt"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	repo "taskflow/internal/repository"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

func (s *Storage) ListSubtasks(ctx context.Context, taskID uuid.UUID) ([]task.Subtask, error) {
	start := time.Now()

	query := `SELECT id, task_id, title, completed, order_index, created_at
				FROM subtasks
				WHERE task_id = $1
				ORDER BY order_index, created_at`

	rows, err := s.pool.Query(ctx, query, taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить подзадачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение подзадач: %w", err)
	}

	subtasks, err := pgx.CollectRows(rows, pgx.RowToStructByName[task.Subtask])
	if err != nil {
		logger.Error("Repository: Ошибка сканирования подзадач", err)
		return nil, fmt.Errorf("сканирование подзадач: %w", err)
	}

	warnIfSlow(start, time.Millisecond*50)
	return subtasks, nil
}

func (s *Storage) GetSubtask(ctx context.Context, id uuid.UUID) (*task.Subtask, error) {
	query := `SELECT id, task_id, title, completed, order_index, created_at FROM subtasks WHERE id = $1`

	st := &task.Subtask{}
	err := s.pool.QueryRow(ctx, query, id).Scan(&st.ID, &st.TaskID, &st.Title, &st.Completed, &st.OrderIndex, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить подзадачу", err)
		return nil, fmt.Errorf("получение подзадачи: %w", err)
	}
	return st, nil
}

func (s *Storage) CreateSubtask(ctx context.Context, st *task.Subtask) error {
	start := time.Now()

	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}

	query := `INSERT INTO subtasks (id, task_id, title, completed, order_index)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query, st.ID, st.TaskID, st.Title, st.Completed, st.OrderIndex).Scan(&st.CreatedAt)
	if err != nil {
		logger.Error("Repository: Не удалось создать подзадачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("создание подзадачи: %w", mapError(err))
	}

	warnIfSlow(start, time.Millisecond*50)
	return nil
}

func (s *Storage) UpdateSubtask(ctx context.Context, st *task.Subtask) error {
	query := `UPDATE subtasks
				SET title = $1, completed = $2, order_index = $3
				WHERE id = $4
				RETURNING task_id, created_at`

	err := s.pool.QueryRow(ctx, query, st.Title, st.Completed, st.OrderIndex, st.ID).Scan(&st.TaskID, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить подзадачу", err)
		return fmt.Errorf("обновление подзадачи: %w", err)
	}
	return nil
}

func (s *Storage) DeleteSubtask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить подзадачу", err)
		return fmt.Errorf("удаление подзадачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
