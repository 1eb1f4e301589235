package handlers

import (
	"encoding/json"
	"net/http"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"
)

type Payload struct {
	Key     string
	Payload any
}

func toPayload(key string, pl any) Payload {
	return Payload{Key: key, Payload: pl}
}

func toJSON(storage map[string]any, payload Payload) {
	storage[payload.Key] = payload.Payload
}

func responseWithJSON(w http.ResponseWriter, code int, payload ...Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if code == http.StatusNoContent {
		return
	}
	storage := make(map[string]any)
	for _, pl := range payload {
		toJSON(storage, pl)
	}
	if err := json.NewEncoder(w).Encode(storage); err != nil {
		logger.Error("HTTP: Не удалось записать ответ", err)
	}
}

// responseWithError отвечает кодом ошибки и сообщением на языке клиента
func responseWithError(w http.ResponseWriter, r *http.Request, code int, errCode, message string) {
	responseWithJSON(w, code,
		toPayload("error", errCode),
		toPayload("message", localize(r, errCode, nil, message)),
		toPayload("request_id", middleware.GetRequestID(r.Context())),
	)
}

func localize(r *http.Request, code string, details map[string]any, fallback string) string {
	tr := middleware.TranslatorFrom(r.Context())
	if tr == nil {
		return fallback
	}
	return tr.Localize(middleware.LanguageFrom(r.Context()), code, details, fallback)
}
