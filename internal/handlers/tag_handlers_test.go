package handlers_test

import (
	"net/http"
	"taskflow/internal/auth"
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"taskflow/internal/repository/task/inmemory"
	"taskflow/internal/service"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFullRouter собирает обработчики поверх настоящих сервисов и хранилища в памяти
func newFullRouter(t *testing.T, userID uuid.UUID) (http.Handler, *inmemory.TaskStorage) {
	t.Helper()
	storage := inmemory.NewTaskStorage()

	tasks := handlers.NewTaskHandler(service.NewTaskService(storage, storage), time.UTC)
	tags := handlers.NewTagHandler(service.NewTagService(storage))
	subtasks := handlers.NewSubtaskHandler(service.NewSubtaskService(storage, storage))

	r := chi.NewRouter()
	r.Use(middleware.RequestID, asUser(userID))
	r.Post("/tasks", tasks.PostTask)
	r.Get("/tasks/{id}", tasks.GetTaskByID)
	r.Post("/tasks/{id}/tags", tasks.AddTags)
	r.Get("/tasks/{id}/subtasks", subtasks.GetSubtasks)
	r.Post("/tasks/{id}/subtasks", subtasks.PostSubtask)
	r.Patch("/subtasks/{id}", subtasks.PatchSubtask)
	r.Delete("/subtasks/{id}", subtasks.DeleteSubtask)
	r.Get("/tags", tags.GetTags)
	r.Post("/tags", tags.PostTag)
	r.Patch("/tags/{id}", tags.PatchTag)
	r.Delete("/tags/{id}", tags.DeleteTag)
	return r, storage
}

// TestTagHandlers тестирует CRUD тегов и привязку к задаче
func TestTagHandlers(t *testing.T) {
	userID := uuid.New()
	router, _ := newFullRouter(t, userID)

	rr := doRequest(router, http.MethodPost, "/tags", map[string]any{"name": "Работа"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tag := decode(t, rr)["tag"].(map[string]any)
	assert.Equal(t, "Работа", tag["name"])
	assert.Equal(t, service.DefaultTagColor, tag["color"])
	tagID := tag["id"].(string)

	rr = doRequest(router, http.MethodPost, "/tags", map[string]any{"name": "работа"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "CONFLICT", decode(t, rr)["error"])

	rr = doRequest(router, http.MethodPost, "/tags", map[string]any{"name": "Дом", "color": "blue"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	details := decode(t, rr)["details"].(map[string]any)
	assert.Equal(t, "color", details["field"])

	rr = doRequest(router, http.MethodPatch, "/tags/"+tagID, map[string]any{"color": "#00FF00"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "#00ff00", decode(t, rr)["tag"].(map[string]any)["color"])

	rr = doRequest(router, http.MethodPost, "/tasks", map[string]any{"title": "Отчёт", "tag_ids": []string{tagID}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode(t, rr)["task"].(map[string]any)
	require.Len(t, created["tags"], 1)

	rr = doRequest(router, http.MethodPost, "/tasks/"+created["id"].(string)+"/tags",
		map[string]any{"tag_ids": []string{uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(router, http.MethodGet, "/tags", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["tags"], 1)

	rr = doRequest(router, http.MethodDelete, "/tags/"+tagID, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	// удалённый тег пропадает из задачи
	rr = doRequest(router, http.MethodGet, "/tasks/"+created["id"].(string), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr)["task"].(map[string]any)["tags"])

	rr = doRequest(router, http.MethodDelete, "/tags/"+tagID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// TestTagHandlers_OtherUser тестирует, что чужие теги недоступны
func TestTagHandlers_OtherUser(t *testing.T) {
	owner := uuid.New()
	router, storage := newFullRouter(t, owner)

	rr := doRequest(router, http.MethodPost, "/tags", map[string]any{"name": "личное"})
	require.Equal(t, http.StatusCreated, rr.Code)
	tagID := decode(t, rr)["tag"].(map[string]any)["id"].(string)

	stranger := chi.NewRouter()
	stranger.Use(asUser(uuid.New()))
	tags := handlers.NewTagHandler(service.NewTagService(storage))
	stranger.Get("/tags", tags.GetTags)
	stranger.Delete("/tags/{id}", tags.DeleteTag)

	rr = doRequest(stranger, http.MethodGet, "/tags", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr)["tags"])

	rr = doRequest(stranger, http.MethodDelete, "/tags/"+tagID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// TestSubtaskHandlers тестирует подзадачи
func TestSubtaskHandlers(t *testing.T) {
	userID := uuid.New()
	router, _ := newFullRouter(t, userID)

	rr := doRequest(router, http.MethodPost, "/tasks", map[string]any{"title": "Переезд"})
	require.Equal(t, http.StatusCreated, rr.Code)
	taskID := decode(t, rr)["task"].(map[string]any)["id"].(string)
	base := "/tasks/" + taskID + "/subtasks"

	rr = doRequest(router, http.MethodPost, base, map[string]any{"title": "коробки"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode(t, rr)["subtask"].(map[string]any)
	assert.Equal(t, float64(0), first["order_index"])

	rr = doRequest(router, http.MethodPost, base, map[string]any{"title": "грузчики"})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, float64(1), decode(t, rr)["subtask"].(map[string]any)["order_index"])

	rr = doRequest(router, http.MethodPost, base, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(router, http.MethodPost, "/tasks/"+uuid.NewString()+"/subtasks", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(router, http.MethodPatch, "/subtasks/"+first["id"].(string), map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["subtask"].(map[string]any)["completed"])

	rr = doRequest(router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode(t, rr)["subtasks"].([]any)
	require.Len(t, list, 2)
	assert.Equal(t, "коробки", list[0].(map[string]any)["title"])

	rr = doRequest(router, http.MethodDelete, "/subtasks/"+first["id"].(string), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(router, http.MethodGet, "/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["task"].(map[string]any)["subtasks"], 1)
}

func newAuthRouter(t *testing.T) http.Handler {
	t.Helper()
	storage := inmemory.NewTaskStorage()
	provider := auth.NewProvider(storage, auth.Config{Secret: "test-secret"}, nil)
	h := handlers.NewAuthHandler(provider)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post("/auth/signup", h.SignUp)
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/reset", h.ResetPassword)
	r.Post("/auth/reset/confirm", h.ConfirmReset)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(provider))
		r.Get("/auth/session", h.Session)
		r.Post("/auth/signout", h.SignOut)
	})
	return r
}

func sessionTokens(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	session := body["session"].(map[string]any)
	return session["access_token"].(string), session["refresh_token"].(string)
}

// TestAuthHandlers тестирует регистрацию, вход, обновление и выход
func TestAuthHandlers(t *testing.T) {
	router := newAuthRouter(t)
	creds := map[string]any{"email": "Anna@Example.com", "password": "secret1", "full_name": "Анна"}

	rr := doRequest(router, http.MethodPost, "/auth/signup", creds)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode(t, rr)
	user := body["session"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "anna@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	rr = doRequest(router, http.MethodPost, "/auth/signup", creds)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(router, http.MethodPost, "/auth/signin", map[string]any{"email": "anna@example.com", "password": "wrong!!"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(router, http.MethodPost, "/auth/signin", map[string]any{"email": "anna@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	access, refresh := sessionTokens(t, decode(t, rr))

	rr = doRequest(router, http.MethodGet, "/auth/session", nil, "Authorization", "Bearer "+access)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anna@example.com", decode(t, rr)["email"])

	rr = doRequest(router, http.MethodGet, "/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// refresh-токен не годится как access
	rr = doRequest(router, http.MethodGet, "/auth/session", nil, "Authorization", "Bearer "+refresh)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(router, http.MethodPost, "/auth/refresh", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rr.Code)
	newAccess, _ := sessionTokens(t, decode(t, rr))

	// старый refresh-токен отозван
	rr = doRequest(router, http.MethodPost, "/auth/refresh", map[string]any{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(router, http.MethodPost, "/auth/signout", nil, "Authorization", "Bearer "+newAccess)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(router, http.MethodGet, "/auth/session", nil, "Authorization", "Bearer "+newAccess)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// TestAuthHandlers_Reset тестирует запрос сброса пароля
func TestAuthHandlers_Reset(t *testing.T) {
	router := newAuthRouter(t)

	rr := doRequest(router, http.MethodPost, "/auth/reset", map[string]any{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, "sent", decode(t, rr)["status"])

	rr = doRequest(router, http.MethodPost, "/auth/reset/confirm", map[string]any{"token": "garbage", "password": "newpass1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(router, http.MethodPost, "/auth/reset/confirm", map[string]any{"token": "garbage", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(router, http.MethodPost, "/auth/signup", map[string]any{"email": "not-an-email", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
