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

func (s *Storage) ListTags(ctx context.Context, userID uuid.UUID) ([]task.Tag, error) {
	start := time.Now()

	query := `SELECT id, user_id, name, color, created_at
				FROM tags
				WHERE user_id = $1
				ORDER BY LOWER(name)`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		logger.Error("Repository: Не удалось получить теги", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение тегов: %w", err)
	}

	tags, err := pgx.CollectRows(rows, pgx.RowToStructByName[task.Tag])
	if err != nil {
		logger.Error("Repository: Ошибка сканирования тегов", err)
		return nil, fmt.Errorf("сканирование тегов: %w", err)
	}

	warnIfSlow(start, time.Millisecond*50)
	return tags, nil
}

func (s *Storage) GetTag(ctx context.Context, id uuid.UUID) (*task.Tag, error) {
	query := `SELECT id, user_id, name, color, created_at FROM tags WHERE id = $1`

	tag := &task.Tag{}
	err := s.pool.QueryRow(ctx, query, id).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить тег", err)
		return nil, fmt.Errorf("получение тега: %w", err)
	}
	return tag, nil
}

func (s *Storage) CreateTag(ctx context.Context, tag *task.Tag) error {
	start := time.Now()

	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}

	query := `INSERT INTO tags (id, user_id, name, color)
				VALUES ($1, $2, $3, $4)
				RETURNING created_at`

	err := s.pool.QueryRow(ctx, query, tag.ID, tag.UserID, tag.Name, tag.Color).Scan(&tag.CreatedAt)
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, repo.ErrDuplicate) {
			logger.Error("Repository: Не удалось создать тег", err, zap.Duration("ms", time.Since(start)))
		}
		return fmt.Errorf("создание тега: %w", err)
	}

	warnIfSlow(start, time.Millisecond*50)
	return nil
}

func (s *Storage) UpdateTag(ctx context.Context, tag *task.Tag) error {
	query := `UPDATE tags
				SET name = $1, color = $2
				WHERE id = $3
				RETURNING user_id, created_at`

	err := s.pool.QueryRow(ctx, query, tag.Name, tag.Color, tag.ID).Scan(&tag.UserID, &tag.CreatedAt)
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, repo.ErrDuplicate) && !errors.Is(err, repo.ErrNotFound) {
			logger.Error("Repository: Не удалось обновить тег", err)
		}
		return fmt.Errorf("обновление тега: %w", err)
	}
	return nil
}

// связи task_tags удаляются каскадом
func (s *Storage) DeleteTag(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить тег", err)
		return fmt.Errorf("удаление тега: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
