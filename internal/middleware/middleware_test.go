package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"taskflow/internal/auth"
	"taskflow/internal/middleware"
	"taskflow/pkg/translator"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get("X-Request-ID"))
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "client-id", seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "bad id\nwith newline")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.NotEqual(t, "bad id\nwith newline", seen)
	_, err = uuid.Parse(seen)
	assert.NoError(t, err)

	assert.Empty(t, middleware.GetRequestID(context.Background()))
}

func TestLogging_KeepsStatusAndFlusher(t *testing.T) {
	h := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := w.(http.Flusher)
		assert.True(t, ok)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("body"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "body", rr.Body.String())
}

func TestTimeout(t *testing.T) {
	var deadline bool
	h := middleware.Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, deadline)

	h = middleware.Timeout(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, deadline)
}

func TestRateLimit(t *testing.T) {
	tr, err := translator.New("")
	require.NoError(t, err)
	h := middleware.Language(tr)(middleware.RateLimit(2)(okHandler))

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		req.Header.Set("Accept-Language", "ru")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := call("10.0.0.1:1000")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))

	// порт не важен, считается по адресу
	rr = call("10.0.0.1:2000")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = call("10.0.0.1:3000")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	body := errorBody(t, rr)
	assert.Equal(t, "RATE_LIMITED", body["error"])
	assert.Equal(t, "Слишком много запросов. Попробуйте позже.", body["message"])

	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000").Code)

	unlimited := middleware.RateLimit(0)(okHandler)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		unlimited.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestAPIKey(t *testing.T) {
	h := middleware.APIKey("secret")(okHandler)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{name: "valid", key: "secret", want: http.StatusOK},
		{name: "missing", key: "", want: http.StatusUnauthorized},
		{name: "wrong", key: "secret2", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
			if tt.want != http.StatusOK {
				assert.Equal(t, "INVALID_API_KEY", errorBody(t, rr)["error"])
			}
		})
	}

	// пустой ключ отключает проверку
	rr := httptest.NewRecorder()
	middleware.APIKey("")(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

type stubVerifier struct {
	claims *auth.Claims
	err    error
}

func (v stubVerifier) Verify(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return v.claims, v.err
}

func TestAuth(t *testing.T) {
	userID := uuid.New()
	verifier := stubVerifier{claims: &auth.Claims{
		Kind:             auth.TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String()},
	}}

	var gotUser uuid.UUID
	var gotToken string
	h := middleware.Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = middleware.UserIDFrom(r.Context())
		gotToken = middleware.AccessTokenFrom(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
		reason string
	}{
		{name: "valid", header: "Bearer good", want: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized, reason: "missing token"},
		{name: "basic", header: "Basic Zm9vOmJhcg==", want: http.StatusUnauthorized, reason: "missing token"},
		{name: "invalid", header: "Bearer bad", want: http.StatusUnauthorized, reason: "invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser, gotToken = uuid.Nil, ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, "good", gotToken)
				return
			}
			assert.Equal(t, uuid.Nil, gotUser)
			body := errorBody(t, rr)
			assert.Equal(t, "UNAUTHORIZED", body["error"])
			assert.Equal(t, tt.reason, body["details"].(map[string]any)["reason"])
		})
	}

	badSubject := middleware.Auth(stubVerifier{claims: &auth.Claims{}})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	badSubject.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUserIDFrom(t *testing.T) {
	_, ok := middleware.UserIDFrom(context.Background())
	assert.False(t, ok)

	_, ok = middleware.UserIDFrom(middleware.WithUserID(context.Background(), uuid.Nil))
	assert.False(t, ok)

	id := uuid.New()
	got, ok := middleware.UserIDFrom(middleware.WithUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "", want: "en"},
		{header: "ru-RU,ru;q=0.9,en;q=0.8", want: "ru"},
		{header: "de-DE,de;q=0.9", want: "en"},
		{header: "fr;q=0.9, ru;q=0.5", want: "ru"},
		{header: ";;;", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			assert.Equal(t, tt.want, middleware.MatchLanguage(tt.header))
		})
	}

	tr, err := translator.New("")
	require.NoError(t, err)

	var lang string
	var gotTr *translator.Translator
	h := middleware.Language(tr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang = middleware.LanguageFrom(r.Context())
		gotTr = middleware.TranslatorFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "ru")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "ru", lang)
	assert.Same(t, tr, gotTr)
	assert.Equal(t, "ru", rr.Header().Get("Content-Language"))
	assert.Equal(t, translator.LanguageEn, middleware.LanguageFrom(context.Background()))
	assert.Nil(t, middleware.TranslatorFrom(context.Background()))
}
