package handlers

import (
	"net/http"
	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/service"
	"time"

	"go.uber.org/zap"
)

type SubtaskHandler struct {
	SubtaskService SubtaskService
}

func NewSubtaskHandler(subtaskService SubtaskService) SubtaskHandler {
	return SubtaskHandler{SubtaskService: subtaskService}
}

// GetSubtasks - подзадачи задачи {id} в порядке order_index
func (s *SubtaskHandler) GetSubtasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	subtasks, err := s.SubtaskService.GetTaskSubtasks(r.Context(), userID, taskID)
	if err != nil {
		handleError(w, r, err, "get_subtasks")
		return
	}

	logger.Info("HTTP_OUT: Подзадачи получены",
		zap.String("task_id", taskID.String()),
		zap.Int("count", len(subtasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("subtasks", subtasks))
}

func (s *SubtaskHandler) PostSubtask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var request dto.SubtaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}
	title := ""
	if request.Title != nil {
		title = *request.Title
	}

	subtask, err := s.SubtaskService.CreateSubtask(r.Context(), userID, taskID, title)
	if err != nil {
		handleError(w, r, err, "create_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача создана",
		zap.String("subtask_id", subtask.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("subtask", subtask))
}

func (s *SubtaskHandler) PatchSubtask(w http.ResponseWriter, r *http.Request) {
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

	var request dto.SubtaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	subtask, err := s.SubtaskService.UpdateSubtask(r.Context(), userID, id, service.SubtaskPatch{
		Title:      request.Title,
		Completed:  request.Completed,
		OrderIndex: request.OrderIndex,
	})
	if err != nil {
		handleError(w, r, err, "update_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача обновлена",
		zap.String("subtask_id", subtask.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("subtask", subtask))
}

func (s *SubtaskHandler) DeleteSubtask(w http.ResponseWriter, r *http.Request) {
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

	if err := s.SubtaskService.DeleteSubtask(r.Context(), userID, id); err != nil {
		handleError(w, r, err, "delete_subtask")
		return
	}

	logger.Info("HTTP_OUT: Подзадача удалена",
		zap.String("subtask_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	responseWithJSON(w, http.StatusNoContent)
}
