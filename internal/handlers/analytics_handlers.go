package handlers

import (
	"net/http"
	"taskflow/internal/analytics"
	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/service"
	"taskflow/internal/views"
	"time"

	"go.uber.org/zap"
)

func (s *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := s.TaskService.Stats(r.Context(), userID)
	if err != nil {
		degradeRead(r, err, "stats")
		stats = analytics.Compute(nil, s.now().In(s.loc))
	}

	logger.Info("HTTP_OUT: Статистика посчитана",
		zap.Int("total", stats.Total),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("stats", stats))
}

func (s *TaskHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	summary, err := s.TaskService.Summary(r.Context(), userID)
	if err != nil {
		degradeRead(r, err, "summary")
		summary = service.Summary{}
	}
	responseWithJSON(w, http.StatusOK, toPayload("summary", summary))
}

// GetCalendar - сетка месяца ?month=YYYY-MM, по умолчанию текущий месяц
func (s *TaskHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	today := s.today()
	year, month := today.Year, today.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		var err error
		year, month, err = views.ParseMonth(raw)
		if err != nil {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "month"),
				zap.Error(err),
				zap.String("client_ip", r.RemoteAddr))
			responseWithError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	m, err := s.TaskService.Calendar(r.Context(), userID, year, month)
	if err != nil {
		degradeRead(r, err, "calendar")
		m = views.BuildMonth(nil, year, month)
	}

	logger.Info("HTTP_OUT: Календарь собран",
		zap.Int("year", year),
		zap.Int("month", int(month)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("calendar", dto.FromMonth(m, today)))
}

// degradeRead - сводки при ошибке чтения строятся по пустому списку
func degradeRead(r *http.Request, err error, operation string) {
	logger.Warn("HTTP: Чтение не удалось, ответ построен по пустому списку",
		zap.String("operation", operation),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.Error(err))
}
