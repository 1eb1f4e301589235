package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"taskflow/internal/logger"
	"time"

	"go.uber.org/zap"
)

const keepAliveInterval = 25 * time.Second

// Events отдаёт изменения задач пользователя потоком server-sent events
func (s *TaskHandler) Events(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN: Подписка на события")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		responseWithError(w, r, http.StatusInternalServerError, codeInternal, "поток событий не поддерживается")
		return
	}

	events, err := s.TaskService.SubscribeToTasks(r.Context(), userID)
	if err != nil {
		handleError(w, r, err, "subscribe")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	sent := 0
	defer func() {
		logger.Info("HTTP_OUT: Поток событий закрыт",
			zap.String("user_id", userID.String()),
			zap.Int("sent", sent))
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				logger.Error("HTTP: Не удалось сериализовать событие", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Op, data); err != nil {
				return
			}
			flusher.Flush()
			sent++
		}
	}
}
