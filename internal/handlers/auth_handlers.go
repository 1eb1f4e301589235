package handlers

import (
	"net/http"
	"taskflow/internal/auth"
	"taskflow/internal/handlers/dto"
	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"time"

	"go.uber.org/zap"
)

type AuthHandler struct {
	AuthService AuthService
}

func NewAuthHandler(authService AuthService) AuthHandler {
	return AuthHandler{AuthService: authService}
}

func (s *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SignUpRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	session, err := s.AuthService.SignUp(r.Context(), request.Email, request.Password, request.FullName)
	if err != nil {
		handleError(w, r, err, "sign_up")
		return
	}
	s.respondSession(w, start, http.StatusCreated, session)
}

func (s *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.SignInRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	session, err := s.AuthService.SignIn(r.Context(), request.Email, request.Password)
	if err != nil {
		handleError(w, r, err, "sign_in")
		return
	}
	s.respondSession(w, start, http.StatusOK, session)
}

// SignOut отзывает access-токен запроса и, если передан, refresh-токен
func (s *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.RefreshRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &request) {
		return
	}

	tokens := []string{middleware.AccessTokenFrom(r.Context())}
	if request.RefreshToken != "" {
		tokens = append(tokens, request.RefreshToken)
	}
	if err := s.AuthService.SignOut(r.Context(), tokens...); err != nil {
		handleError(w, r, err, "sign_out")
		return
	}

	logger.Info("HTTP_OUT: Сессия завершена",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusNoContent))
	responseWithJSON(w, http.StatusNoContent)
}

func (s *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.RefreshRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	session, err := s.AuthService.Refresh(r.Context(), request.RefreshToken)
	if err != nil {
		handleError(w, r, err, "refresh")
		return
	}
	s.respondSession(w, start, http.StatusOK, session)
}

// ResetPassword всегда отвечает 202, чтобы не раскрывать наличие адреса
func (s *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.ResetPasswordRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	if err := s.AuthService.ResetPassword(r.Context(), request.Email); err != nil {
		handleError(w, r, err, "reset_password")
		return
	}
	responseWithJSON(w, http.StatusAccepted, toPayload("status", "sent"))
}

func (s *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request dto.ConfirmResetRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	if err := s.AuthService.ConfirmReset(r.Context(), request.Token, request.Password); err != nil {
		handleError(w, r, err, "confirm_reset")
		return
	}
	responseWithJSON(w, http.StatusNoContent)
}

// Session возвращает владельца текущего токена
func (s *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP_IN:")

	claims, err := s.AuthService.Verify(middleware.AccessTokenFrom(r.Context()))
	if err != nil {
		handleError(w, r, err, "session")
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("user_id", claims.Subject),
		toPayload("email", claims.Email),
		toPayload("expires_at", claims.ExpiresAt),
	)
}

func (s *AuthHandler) respondSession(w http.ResponseWriter, start time.Time, code int, session *auth.Session) {
	logger.Info("HTTP_OUT: Сессия выдана",
		zap.String("user_id", session.User.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", code))

	responseWithJSON(w, code, toPayload("session", session))
}
