package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskflow/internal/analytics"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/realtime"
	rep "taskflow/internal/repository"
	"taskflow/internal/views"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

const resourceTask = "задача"
const resourceTag = "тег"
const resourceSubtask = "подзадача"

// TaskService - фасад над хранилищем задач.
// Каждая операция получает id владельца: чужая задача неотличима от отсутствующей.
// nil-репозиторий означает деградированный режим: чтение пустое, запись - CONFIGURATION_ERROR.
type TaskService struct {
	repo TaskRepository
	tags TagRepository
	settings
}

func NewTaskService(repo TaskRepository, tags TagRepository, opts ...Option) *TaskService {
	return &TaskService{
		repo:     repo,
		tags:     tags,
		settings: newSettings(opts),
	}
}

func (s *TaskService) Configured() bool {
	return s.repo != nil
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if s.repo == nil {
		return NewConfigurationError()
	}
	if err := s.repo.HealthCheck(ctx); err != nil {
		return NewStorageError("health_check", fmt.Errorf("проверка здоровья сервиса: %w", err))
	}
	return nil
}

func (s *TaskService) GetAllTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return s.list(ctx, "get_all_tasks", s.allQuery(userID))
}

// GetTodaysTasks - невыполненные задачи со сроком сегодня, в прошлом или без срока
func (s *TaskService) GetTodaysTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return s.list(ctx, "get_todays_tasks", s.todayQuery(userID))
}

// GetUpcomingTasks - задачи со сроком начиная с завтра, по (due_date, due_time)
func (s *TaskService) GetUpcomingTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return s.list(ctx, "get_upcoming_tasks", s.upcomingQuery(userID))
}

func (s *TaskService) GetCompletedTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	completed := task.StatusCompleted
	return s.list(ctx, "get_completed_tasks", task.Query{
		UserID: userID,
		Status: &completed,
		Order:  task.OrderCompletedDesc,
	})
}

func (s *TaskService) GetTrashedTasks(ctx context.Context, userID uuid.UUID) ([]*task.Task, error) {
	return s.list(ctx, "get_trashed_tasks", task.Query{
		UserID:  userID,
		Trashed: true,
		Order:   task.OrderDeletedDesc,
	})
}

// SearchTasks ищет подстроку в названии или описании без учёта регистра.
// Пустой запрос совпадает со всеми задачами.
func (s *TaskService) SearchTasks(ctx context.Context, userID uuid.UUID, query string) ([]*task.Task, error) {
	q := s.allQuery(userID)
	q.Search = strings.TrimSpace(query)
	return s.list(ctx, "search_tasks", q)
}

func (s *TaskService) GetTaskByID(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}
	return s.owned(ctx, userID, id)
}

func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, patch task.Patch) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}
	if patch.Title == nil || strings.TrimSpace(*patch.Title) == "" {
		logger.Info("Service: Попытка создать задачу без названия", zap.String("user_id", userID.String()))
		return nil, NewValidationError("title", "не может быть пустым")
	}

	now := s.current()
	opts, err := patch.Options(now)
	if err != nil {
		return nil, validationFrom(err)
	}

	newTask := &task.Task{
		ID:       uuid.New(),
		UserID:   userID,
		Status:   task.StatusTodo,
		Priority: task.PriorityMedium,
		Tags:     []task.Tag{},
		Subtasks: []task.Subtask{},
	}
	newTask.Apply(now, opts...)

	if err := s.repo.Create(ctx, newTask); err != nil {
		logger.Error("Service: Не удалось создать задачу", err, zap.String("user_id", userID.String()))
		return nil, NewStorageError("create_task", err)
	}

	logger.Info("Service: Задача создана", zap.String("task_id", newTask.ID.String()))
	s.notify(realtime.OpInsert, newTask.ID, userID)
	return newTask, nil
}

// UpdateTask применяет частичное обновление. Пустые строки в due_date, due_time
// и completed_at означают сброс значения, updated_at обновляется всегда.
func (s *TaskService) UpdateTask(ctx context.Context, userID, id uuid.UUID, patch task.Patch) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.current()
	opts, err := patch.Options(now)
	if err != nil {
		return nil, validationFrom(err)
	}
	t.Apply(now, opts...)

	if err := s.save(ctx, t, "update_task"); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TaskService) SetStatus(ctx context.Context, userID, id uuid.UUID, status task.Status) (*task.Task, error) {
	if !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", status))
	}
	return s.UpdateTask(ctx, userID, id, task.Patch{Status: &status})
}

// ToggleComplete - быстрое переключение todo <-> completed
func (s *TaskService) ToggleComplete(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t.ToggleComplete(s.current())

	if err := s.save(ctx, t, "toggle_complete"); err != nil {
		return nil, err
	}
	return t, nil
}

// MoveToTrash переносит задачу в корзину; задача уже в корзине возвращается как есть
func (s *TaskService) MoveToTrash(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Deleted() {
		logger.Info("Service: Задача уже в корзине", zap.String("task_id", id.String()))
		return t, nil
	}

	if err := s.repo.DeleteSoft(ctx, t); err != nil {
		return nil, s.writeError(err, "move_to_trash", id)
	}

	logger.Info("Service: Задача перемещена в корзину", zap.String("task_id", id.String()))
	s.notify(realtime.OpUpdate, id, userID)
	return t, nil
}

func (s *TaskService) RestoreFromTrash(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !t.Deleted() {
		logger.Info("Service: Задача не в корзине", zap.String("task_id", id.String()))
		return t, nil
	}

	if err := s.repo.Restore(ctx, t); err != nil {
		return nil, s.writeError(err, "restore_from_trash", id)
	}

	logger.Info("Service: Задача восстановлена", zap.String("task_id", id.String()))
	s.notify(realtime.OpUpdate, id, userID)
	return t, nil
}

// PermanentlyDeleteTask удаляет задачу безвозвратно вместе с подзадачами и связями
func (s *TaskService) PermanentlyDeleteTask(ctx context.Context, userID, id uuid.UUID) error {
	if s.repo == nil {
		return NewConfigurationError()
	}

	t, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteFull(ctx, id); err != nil {
		return s.writeError(err, "permanently_delete_task", id)
	}
	t.Lifecycle = task.Purged()

	logger.Info("Service: Задача удалена окончательно", zap.String("task_id", id.String()))
	s.notify(realtime.OpDelete, id, userID)
	return nil
}

// AddTagsToTask привязывает теги владельца к задаче, повторная привязка игнорируется
func (s *TaskService) AddTagsToTask(ctx context.Context, userID, id uuid.UUID, tagIDs []uuid.UUID) (*task.Task, error) {
	if s.repo == nil || s.tags == nil {
		return nil, NewConfigurationError()
	}

	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	for _, tagID := range tagIDs {
		tag, err := s.tags.GetTag(ctx, tagID)
		if err != nil || tag.UserID != userID {
			if err != nil && !errors.Is(err, rep.ErrNotFound) {
				return nil, NewStorageError("add_tags_to_task", err)
			}
			return nil, NewNotFound(resourceTag, tagID.String())
		}
	}

	if len(tagIDs) > 0 {
		if err := s.repo.AddTags(ctx, id, tagIDs); err != nil {
			return nil, s.writeError(err, "add_tags_to_task", id)
		}
		s.notify(realtime.OpUpdate, id, userID)
	}
	return s.owned(ctx, userID, id)
}

// RemoveTagsFromTask снимает теги; nil снимает все, пустой список ничего не меняет
func (s *TaskService) RemoveTagsFromTask(ctx context.Context, userID, id uuid.UUID, tagIDs []uuid.UUID) (*task.Task, error) {
	if s.repo == nil {
		return nil, NewConfigurationError()
	}

	if _, err := s.owned(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := s.repo.RemoveTags(ctx, id, tagIDs); err != nil {
		return nil, s.writeError(err, "remove_tags_from_task", id)
	}

	s.notify(realtime.OpUpdate, id, userID)
	return s.owned(ctx, userID, id)
}

// SubscribeToTasks возвращает поток изменений задач пользователя до отмены ctx
func (s *TaskService) SubscribeToTasks(ctx context.Context, userID uuid.UUID) (<-chan realtime.Event, error) {
	if s.subscriber == nil {
		return nil, NewConfigurationError()
	}

	events, cancel := s.subscriber.Subscribe(userID)
	go func() {
		<-ctx.Done()
		cancel()
	}()

	logger.Info("Service: Подписка на изменения задач", zap.String("user_id", userID.String()))
	return events, nil
}

// Summary - счётчики для профиля пользователя
type Summary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Today     int `json:"today"`
	Upcoming  int `json:"upcoming"`
}

func (s *TaskService) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	tasks, err := s.GetAllTasks(ctx, userID)
	if err != nil {
		return Summary{}, err
	}

	today, upcoming := s.todayQuery(userID), s.upcomingQuery(userID)
	summary := Summary{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == task.StatusCompleted {
			summary.Completed++
		}
		if today.Match(t) {
			summary.Today++
		}
		if upcoming.Match(t) {
			summary.Upcoming++
		}
	}
	return summary, nil
}

func (s *TaskService) Stats(ctx context.Context, userID uuid.UUID) (analytics.Stats, error) {
	tasks, err := s.GetAllTasks(ctx, userID)
	if err != nil {
		return analytics.Stats{}, err
	}
	return analytics.Compute(tasks, s.current()), nil
}

func (s *TaskService) Calendar(ctx context.Context, userID uuid.UUID, year int, month time.Month) (views.Month, error) {
	tasks, err := s.GetAllTasks(ctx, userID)
	if err != nil {
		return views.Month{}, err
	}
	return views.BuildMonth(tasks, year, month), nil
}

// Degrade - политика чтения: ошибка превращается в пустой список с предупреждением
func Degrade(tasks []*task.Task, err error, operation string) []*task.Task {
	if err != nil {
		logger.Warn("Service: Чтение не удалось, возвращён пустой список",
			zap.String("operation", operation),
			zap.Error(err))
		return []*task.Task{}
	}
	if tasks == nil {
		return []*task.Task{}
	}
	return tasks
}

func (s *TaskService) allQuery(userID uuid.UUID) task.Query {
	return task.Query{UserID: userID, Order: task.OrderCreatedDesc}
}

func (s *TaskService) todayQuery(userID uuid.UUID) task.Query {
	completed := task.StatusCompleted
	today := s.today()
	return task.Query{
		UserID:         userID,
		ExcludeStatus:  &completed,
		DueOnOrBefore:  &today,
		IncludeUndated: true,
		Order:          task.OrderCreatedDesc,
	}
}

func (s *TaskService) upcomingQuery(userID uuid.UUID) task.Query {
	tomorrow := s.today().AddDays(1)
	return task.Query{
		UserID:  userID,
		DueFrom: &tomorrow,
		Order:   task.OrderDueAsc,
	}
}

func (s *TaskService) list(ctx context.Context, operation string, q task.Query) ([]*task.Task, error) {
	if s.repo == nil {
		logger.Warn("Service: Хранилище не настроено, возвращён пустой список", zap.String("operation", operation))
		return []*task.Task{}, nil
	}

	start := time.Now()
	tasks, err := s.repo.List(ctx, q)
	if err != nil {
		logger.Error("Service: Ошибка получения задач", err, zap.String("operation", operation))
		return nil, NewStorageError(operation, err)
	}

	logger.Debug("Service: Задачи получены",
		zap.String("operation", operation),
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))
	return tasks, nil
}

// owned возвращает задачу, только если она принадлежит пользователю
func (s *TaskService) owned(ctx context.Context, userID, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(resourceTask, id.String())
		}
		return nil, NewStorageError("get_task", fmt.Errorf("получение задачи: %w", err))
	}
	if t.UserID != userID {
		logger.Warn("Service: Обращение к чужой задаче",
			zap.String("target_id", id.String()),
			zap.String("user_id", userID.String()))
		return nil, NewNotFound(resourceTask, id.String())
	}
	return t, nil
}

func (s *TaskService) save(ctx context.Context, t *task.Task, operation string) error {
	if err := s.repo.Update(ctx, t); err != nil {
		return s.writeError(err, operation, t.ID)
	}
	logger.Info("Service: Задача обновлена",
		zap.String("task_id", t.ID.String()),
		zap.String("operation", operation))
	s.notify(realtime.OpUpdate, t.ID, t.UserID)
	return nil
}

func (s *TaskService) writeError(err error, operation string, id uuid.UUID) error {
	switch {
	case errors.Is(err, rep.ErrNotFound):
		return NewNotFound(resourceTask, id.String())
	case errors.Is(err, rep.ErrVersionConflict):
		return NewVersionConflict(resourceTask, id.String())
	}
	logger.Error("Service: Ошибка записи", err, zap.String("operation", operation), zap.String("task_id", id.String()))
	return NewStorageError(operation, err)
}

func validationFrom(err error) error {
	var fieldErr *task.FieldError
	if errors.As(err, &fieldErr) {
		return NewValidationError(fieldErr.Field, fieldErr.Reason)
	}
	return NewValidationError("body", err.Error())
}
