package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	rep "taskflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultTagColor = "#8b5cf6"

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

type TagService struct {
	repo TagRepository
	settings
}

func NewTagService(repo TagRepository, opts ...Option) *TagService {
	return &TagService{
		repo:     repo,
		settings: newSettings(opts),
	}
}

// TagPatch - частичное обновление тега
type TagPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// GetUserTags возвращает теги пользователя по имени
func (s *TagService) GetUserTags(ctx context.Context, userID uuid.UUID) ([]task.Tag, error) {
	if s.repo == nil {
		logger.Warn("Service: Хранилище не настроено, возвращён пустой список", zap.String("operation", "get_user_tags"))
		return []task.Tag{}, nil
	}

	tags, err := s.repo.ListTags(ctx, userID)
	if err != nil {
		logger.Error("Service: Ошибка получения тегов", err)
		return nil, NewStorageError("get_user_tags", err)
	}
	return tags, nil
}

func (s *TagService) CreateTag(ctx context.Context, userID uuid.UUID, name, color string) (*task.Tag, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	name, color, err := normalizeTag(name, color)
	if err != nil {
		return nil, err
	}

	tag := &task.Tag{
		ID:     uuid.New(),
		UserID: userID,
		Name:   name,
		Color:  color,
	}
	if err := s.repo.CreateTag(ctx, tag); err != nil {
		return nil, tagWriteError(err, "create_tag", tag.ID)
	}

	logger.Info("Service: Тег создан", zap.String("tag_id", tag.ID.String()), zap.String("name", tag.Name))
	return tag, nil
}

func (s *TagService) UpdateTag(ctx context.Context, userID, id uuid.UUID, patch TagPatch) (*task.Tag, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	tag, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	name, color := tag.Name, tag.Color
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Color != nil {
		color = *patch.Color
	}
	tag.Name, tag.Color, err = normalizeTag(name, color)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTag(ctx, tag); err != nil {
		return nil, tagWriteError(err, "update_tag", id)
	}
	return tag, nil
}

// DeleteTag удаляет тег и все его связи с задачами, сами задачи остаются
func (s *TagService) DeleteTag(ctx context.Context, userID, id uuid.UUID) error {
	if s.repo == nil {
		return NewConfigurationError()
	}

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteTag(ctx, id); err != nil {
		return tagWriteError(err, "delete_tag", id)
	}

	logger.Info("Service: Тег удалён", zap.String("tag_id", id.String()))
	return nil
}

func (s *TagService) owned(ctx context.Context, userID, id uuid.UUID) (*task.Tag, error) {
	tag, err := s.repo.GetTag(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(resourceTag, id.String())
		}
		return nil, NewStorageError("get_tag", err)
	}
	if tag.UserID != userID {
		return nil, NewNotFound(resourceTag, id.String())
	}
	return tag, nil
}

func normalizeTag(name, color string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", NewValidationError("name", "не может быть пустым")
	}
	color = strings.TrimSpace(color)
	if color == "" {
		color = DefaultTagColor
	}
	if !colorPattern.MatchString(color) {
		return "", "", NewValidationError("color", "ожидается цвет в формате #RGB или #RRGGBB")
	}
	return name, strings.ToLower(color), nil
}

func tagWriteError(err error, operation string, id uuid.UUID) error {
	switch {
	case errors.Is(err, rep.ErrDuplicate):
		return NewConflict(resourceTag, "тег с таким именем уже существует")
	case errors.Is(err, rep.ErrNotFound):
		return NewNotFound(resourceTag, id.String())
	}
	logger.Error("Service: Ошибка записи тега", err, zap.String("operation", operation))
	return NewStorageError(operation, err)
}
