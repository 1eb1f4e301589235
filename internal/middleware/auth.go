package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"taskflow/internal/auth"
	"taskflow/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userIDKey contextKey = "user_id"
const tokenKey contextKey = "access_token"

type Verifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Auth пропускает только запросы с валидным Bearer-токеном и кладёт id пользователя в контекст
func Auth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED",
					"Требуется авторизация: нет токена", map[string]any{"reason": "missing token"})
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Warn("HTTP: Невалидный токен",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.Error(err))
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED",
					"Требуется авторизация: невалидный токен", map[string]any{"reason": "invalid token"})
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED",
					"Требуется авторизация: невалидный токен", map[string]any{"reason": "invalid subject"})
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// APIKey проверяет X-API-Key; пустой ключ в конфиге отключает проверку
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.Warn("HTTP: Неверный API-ключ",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client_ip", r.RemoteAddr))
				writeError(w, r, http.StatusUnauthorized, "INVALID_API_KEY", "Неверный API-ключ.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func AccessTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
