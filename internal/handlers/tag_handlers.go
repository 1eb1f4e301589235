package handlers

import (
	"net/http"
	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/service"
	"time"

	"go.uber.org/zap"
)

type TagHandler struct {
	TagService TagService
}

func NewTagHandler(tagService TagService) TagHandler {
	return TagHandler{TagService: tagService}
}

func (s *TagHandler) GetTags(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	tags, err := s.TagService.GetUserTags(r.Context(), userID)
	if err != nil {
		handleError(w, r, err, "get_tags")
		return
	}

	logger.Info("HTTP_OUT: Теги получены",
		zap.Int("count", len(tags)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("tags", tags))
}

func (s *TagHandler) PostTag(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var request dto.TagRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	name, color := "", ""
	if request.Name != nil {
		name = *request.Name
	}
	if request.Color != nil {
		color = *request.Color
	}

	tag, err := s.TagService.CreateTag(r.Context(), userID, name, color)
	if err != nil {
		handleError(w, r, err, "create_tag")
		return
	}

	logger.Info("HTTP_OUT: Тег создан",
		zap.String("tag_id", tag.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("tag", tag))
}

func (s *TagHandler) PatchTag(w http.ResponseWriter, r *http.Request) {
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

	var request dto.TagRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	tag, err := s.TagService.UpdateTag(r.Context(), userID, id, service.TagPatch{Name: request.Name, Color: request.Color})
	if err != nil {
		handleError(w, r, err, "update_tag")
		return
	}

	logger.Info("HTTP_OUT: Тег обновлён",
		zap.String("tag_id", tag.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("tag", tag))
}

func (s *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
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

	if err := s.TagService.DeleteTag(r.Context(), userID, id); err != nil {
		handleError(w, r, err, "delete_tag")
		return
	}

	logger.Info("HTTP_OUT: Тег удалён",
		zap.String("tag_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))

	responseWithJSON(w, http.StatusNoContent)
}
