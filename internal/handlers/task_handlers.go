package handlers

import (
	"context"
	"net/http"
	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/service"
	"taskflow/internal/views"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
	loc         *time.Location
	now         func() time.Time
}

func NewTaskHandler(taskService TaskService, loc *time.Location) TaskHandler {
	if loc == nil {
		loc = time.Local
	}
	return TaskHandler{
		TaskService: taskService,
		loc:         loc,
		now:         time.Now,
	}
}

func (s *TaskHandler) today() task.Date {
	return task.DateOf(s.now().In(s.loc))
}

// GetTasks - все активные задачи с фильтрами status, priority, tag и строкой поиска q
func (s *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		logger.Warn("HTTP: Неверный фильтр",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	tasks, err := s.TaskService.GetAllTasks(r.Context(), userID)
	tasks = service.Degrade(tasks, err, "get_tasks")
	tasks = views.Apply(tasks, filters, r.URL.Query().Get("q"))

	s.respondTasks(w, start, tasks)
}

func (s *TaskHandler) GetTodaysTasks(w http.ResponseWriter, r *http.Request) {
	s.listView(w, r, "get_today", s.TaskService.GetTodaysTasks)
}

func (s *TaskHandler) GetUpcomingTasks(w http.ResponseWriter, r *http.Request) {
	s.listView(w, r, "get_upcoming", s.TaskService.GetUpcomingTasks)
}

func (s *TaskHandler) GetCompletedTasks(w http.ResponseWriter, r *http.Request) {
	s.listView(w, r, "get_completed", s.TaskService.GetCompletedTasks)
}

func (s *TaskHandler) GetTrashedTasks(w http.ResponseWriter, r *http.Request) {
	s.listView(w, r, "get_trash", s.TaskService.GetTrashedTasks)
}

func (s *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := s.TaskService.SearchTasks(r.Context(), userID, r.URL.Query().Get("q"))
	s.respondTasks(w, start, service.Degrade(tasks, err, "search_tasks"))
}

func (s *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	logger.Info("HTTP: Вызов сервиса создания задачи")
	created, err := s.TaskService.CreateTask(r.Context(), userID, request.Patch)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	if len(request.TagIDs) > 0 {
		created, err = s.TaskService.AddTagsToTask(r.Context(), userID, created.ID, request.TagIDs)
		if err != nil {
			handleError(w, r, err, "create_task_tags")
			return
		}
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("task", dto.FromTask(created, s.today())))
}

func (s *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	s.single(w, r, "get_task", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		return s.TaskService.GetTaskByID(r.Context(), userID, id)
	})
}

func (s *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	var request dto.UpdateTaskRequest
	s.single(w, r, "update_task", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		if !decodeJSON(w, r, &request) {
			return nil, nil
		}
		return s.TaskService.UpdateTask(r.Context(), userID, id, request.Patch)
	})
}

func (s *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var request dto.StatusRequest
	s.single(w, r, "set_status", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		if !decodeJSON(w, r, &request) {
			return nil, nil
		}
		return s.TaskService.SetStatus(r.Context(), userID, id, request.Status)
	})
}

func (s *TaskHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) {
	s.single(w, r, "toggle_complete", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		return s.TaskService.ToggleComplete(r.Context(), userID, id)
	})
}

func (s *TaskHandler) MoveToTrash(w http.ResponseWriter, r *http.Request) {
	s.single(w, r, "move_to_trash", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		return s.TaskService.MoveToTrash(r.Context(), userID, id)
	})
}

func (s *TaskHandler) RestoreFromTrash(w http.ResponseWriter, r *http.Request) {
	s.single(w, r, "restore_task", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		return s.TaskService.RestoreFromTrash(r.Context(), userID, id)
	})
}

func (s *TaskHandler) AddTags(w http.ResponseWriter, r *http.Request) {
	var request dto.TagIDsRequest
	s.single(w, r, "add_tags", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		if !decodeJSON(w, r, &request) {
			return nil, nil
		}
		return s.TaskService.AddTagsToTask(r.Context(), userID, id, request.TagIDs)
	})
}

// RemoveTags снимает перечисленные теги; без tag_ids снимает все
func (s *TaskHandler) RemoveTags(w http.ResponseWriter, r *http.Request) {
	var request dto.TagIDsRequest
	s.single(w, r, "remove_tags", http.StatusOK, func(userID, id uuid.UUID) (*task.Task, error) {
		if r.ContentLength != 0 && !decodeJSON(w, r, &request) {
			return nil, nil
		}
		return s.TaskService.RemoveTagsFromTask(r.Context(), userID, id, request.TagIDs)
	})
}

func (s *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	logger.Info("HTTP: Обращение к сервису для удаления задачи")
	if err := s.TaskService.PermanentlyDeleteTask(r.Context(), userID, id); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	responseWithJSON(w, http.StatusNoContent)
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	err := s.TaskService.HealthCheck(r.Context())
	switch {
	case err == nil:
		responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
	case service.IsCode(err, service.CodeConfiguration):
		logger.Warn("HTTP: Сервис работает без хранилища")
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "degraded"),
			toPayload("error", service.CodeConfiguration),
		)
	default:
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("error", service.CodeStorage),
		)
	}
}

func (s *TaskHandler) listView(w http.ResponseWriter, r *http.Request, operation string, fetch func(context.Context, uuid.UUID) ([]*task.Task, error)) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:", zap.String("operation", operation))

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tasks, err := fetch(r.Context(), userID)
	s.respondTasks(w, start, service.Degrade(tasks, err, operation))
}

// single - общий каркас для операций над одной задачей.
// act возвращает (nil, nil), если ответ уже отправлен.
func (s *TaskHandler) single(w http.ResponseWriter, r *http.Request, operation string, code int, act func(userID, id uuid.UUID) (*task.Task, error)) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:", zap.String("operation", operation))

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	t, err := act(userID, id)
	if err != nil {
		handleError(w, r, err, operation)
		return
	}
	if t == nil {
		return
	}

	logger.Info("HTTP_OUT: Задача обработана",
		zap.String("operation", operation),
		zap.String("task_id", t.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", code))

	responseWithJSON(w, code, toPayload("task", dto.FromTask(t, s.today())))
}

func (s *TaskHandler) respondTasks(w http.ResponseWriter, start time.Time, tasks []*task.Task) {
	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK,
		toPayload("tasks", dto.FromTaskList(tasks, s.today())),
		toPayload("count", len(tasks)),
	)
}

func parseFilters(r *http.Request) (views.FilterSet, error) {
	filters := []views.Filter{}
	query := r.URL.Query()
	for _, kind := range []views.FilterKind{views.FilterStatus, views.FilterPriority, views.FilterTag} {
		for _, value := range query[string(kind)] {
			f, err := views.ParseFilter(string(kind), value)
			if err != nil {
				return views.FilterSet{}, err
			}
			filters = append(filters, f)
		}
	}
	return views.NewFilterSet(filters...), nil
}
