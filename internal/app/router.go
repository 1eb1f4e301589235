package app

import (
	"net/http"
	"taskflow/internal/handlers"
	"taskflow/internal/middleware"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func (a *App) newRouter(loc *time.Location) *chi.Mux {
	taskHandler := handlers.NewTaskHandler(a.tasks, loc)
	tagHandler := handlers.NewTagHandler(a.tags)
	subtaskHandler := handlers.NewSubtaskHandler(a.subtasks)
	authHandler := handlers.NewAuthHandler(a.provider)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Language(a.translator))
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	r.Get("/health", taskHandler.HealthCheck) // GET /health

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(a.config.Backend.APIKey))
		timeout := middleware.Timeout(a.config.Server.Timeout)

		r.With(timeout).Post("/auth/signup", authHandler.SignUp)                       // POST /auth/signup
		r.With(timeout).Post("/auth/signin", authHandler.SignIn)                       // POST /auth/signin
		r.With(timeout).Post("/auth/refresh", authHandler.Refresh)                     // POST /auth/refresh
		r.With(timeout).Post("/auth/reset-password", authHandler.ResetPassword)        // POST /auth/reset-password
		r.With(timeout).Post("/auth/reset-password/confirm", authHandler.ConfirmReset) // POST /auth/reset-password/confirm

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(a.provider))

			// поток событий живёт дольше таймаута запроса
			r.Get("/tasks/events", taskHandler.Events) // GET /tasks/events

			r.Group(func(r chi.Router) {
				r.Use(timeout)

				r.Get("/auth/session", authHandler.Session)  // GET /auth/session
				r.Post("/auth/signout", authHandler.SignOut) // POST /auth/signout

				r.Get("/tasks", taskHandler.GetTasks)                    // GET /tasks
				r.Post("/tasks", taskHandler.PostTask)                   // POST /tasks
				r.Get("/tasks/today", taskHandler.GetTodaysTasks)        // GET /tasks/today
				r.Get("/tasks/upcoming", taskHandler.GetUpcomingTasks)   // GET /tasks/upcoming
				r.Get("/tasks/completed", taskHandler.GetCompletedTasks) // GET /tasks/completed
				r.Get("/tasks/trash", taskHandler.GetTrashedTasks)       // GET /tasks/trash
				r.Get("/tasks/search", taskHandler.SearchTasks)          // GET /tasks/search

				r.Get("/tasks/{id}", taskHandler.GetTaskByID)               // GET /tasks/{id}
				r.Patch("/tasks/{id}", taskHandler.UpdateTaskByID)          // PATCH /tasks/{id}
				r.Delete("/tasks/{id}", taskHandler.DeleteTaskByID)         // DELETE /tasks/{id}
				r.Put("/tasks/{id}/status", taskHandler.SetStatus)          // PUT /tasks/{id}/status
				r.Post("/tasks/{id}/complete", taskHandler.ToggleComplete)  // POST /tasks/{id}/complete
				r.Post("/tasks/{id}/trash", taskHandler.MoveToTrash)        // POST /tasks/{id}/trash
				r.Post("/tasks/{id}/restore", taskHandler.RestoreFromTrash) // POST /tasks/{id}/restore
				r.Post("/tasks/{id}/tags", taskHandler.AddTags)             // POST /tasks/{id}/tags
				r.Delete("/tasks/{id}/tags", taskHandler.RemoveTags)        // DELETE /tasks/{id}/tags

				r.Get("/tasks/{id}/subtasks", subtaskHandler.GetSubtasks)  // GET /tasks/{id}/subtasks
				r.Post("/tasks/{id}/subtasks", subtaskHandler.PostSubtask) // POST /tasks/{id}/subtasks
				r.Patch("/subtasks/{id}", subtaskHandler.PatchSubtask)     // PATCH /subtasks/{id}
				r.Delete("/subtasks/{id}", subtaskHandler.DeleteSubtask)   // DELETE /subtasks/{id}

				r.Get("/tags", tagHandler.GetTags)           // GET /tags
				r.Post("/tags", tagHandler.PostTag)          // POST /tags
				r.Patch("/tags/{id}", tagHandler.PatchTag)   // PATCH /tags/{id}
				r.Delete("/tags/{id}", tagHandler.DeleteTag) // DELETE /tags/{id}

				r.Get("/analytics", taskHandler.GetStats)           // GET /analytics
				r.Get("/analytics/summary", taskHandler.GetSummary) // GET /analytics/summary
				r.Get("/calendar", taskHandler.GetCalendar)         // GET /calendar
			})
		})
	})

	return r
}

// handler оборачивает роутер трассировкой
func (a *App) handler() http.Handler {
	return otelhttp.NewHandler(a.router, "taskflow",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)
}
