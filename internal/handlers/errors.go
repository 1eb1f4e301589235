package handlers

import (
	"errors"
	"net/http"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/service"

	"go.uber.org/zap"
)

const codeInvalidBody = "INVALID_BODY"
const codeInvalidID = "INVALID_ID"
const codeInternal = "INTERNAL_ERROR"

// handleError отвечает на ошибку сервиса; BusinessError отдаётся со своим кодом, остальное - 500
func handleError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", operation),
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("client_ip", r.RemoteAddr))
		responseWithError(w, r, http.StatusInternalServerError, codeInternal, "внутренняя ошибка сервера")
		return
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode),
		zap.String("request_id", middleware.GetRequestID(r.Context())),
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("HTTP: Бизнес-ошибка", err, fields...)
	} else {
		logger.Warn("HTTP: Бизнес-ошибка", fields...)
	}

	responseWithJSON(w, statusCode,
		toPayload("error", businessErr.Code),
		toPayload("message", localize(r, businessErr.Code, businessErr.Details, businessErr.Message)),
		toPayload("details", businessErr.Details),
		toPayload("request_id", middleware.GetRequestID(r.Context())),
	)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeConfiguration:
		return http.StatusServiceUnavailable
	case service.CodeStorage:
		return http.StatusInternalServerError
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeVersionConflict, service.CodeConflict:
		return http.StatusConflict
	case service.CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}
