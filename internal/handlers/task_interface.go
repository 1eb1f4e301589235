package handlers

import (
	"context"
	"taskflow/internal/analytics"
	"taskflow/internal/auth"
	"taskflow/internal/models/task"
	"taskflow/internal/realtime"
	"taskflow/internal/service"
	"taskflow/internal/views"
	"time"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	GetAllTasks(context.Context, uuid.UUID) ([]*task.Task, error)
	GetTodaysTasks(context.Context, uuid.UUID) ([]*task.Task, error)
	GetUpcomingTasks(context.Context, uuid.UUID) ([]*task.Task, error)
	GetCompletedTasks(context.Context, uuid.UUID) ([]*task.Task, error)
	GetTrashedTasks(context.Context, uuid.UUID) ([]*task.Task, error)
	SearchTasks(context.Context, uuid.UUID, string) ([]*task.Task, error)
	GetTaskByID(context.Context, uuid.UUID, uuid.UUID) (*task.Task, error)
	CreateTask(context.Context, uuid.UUID, task.Patch) (*task.Task, error)
	UpdateTask(context.Context, uuid.UUID, uuid.UUID, task.Patch) (*task.Task, error)
	SetStatus(context.Context, uuid.UUID, uuid.UUID, task.Status) (*task.Task, error)
	ToggleComplete(context.Context, uuid.UUID, uuid.UUID) (*task.Task, error)
	MoveToTrash(context.Context, uuid.UUID, uuid.UUID) (*task.Task, error)
	RestoreFromTrash(context.Context, uuid.UUID, uuid.UUID) (*task.Task, error)
	PermanentlyDeleteTask(context.Context, uuid.UUID, uuid.UUID) error
	AddTagsToTask(context.Context, uuid.UUID, uuid.UUID, []uuid.UUID) (*task.Task, error)
	RemoveTagsFromTask(context.Context, uuid.UUID, uuid.UUID, []uuid.UUID) (*task.Task, error)
	SubscribeToTasks(context.Context, uuid.UUID) (<-chan realtime.Event, error)
	Summary(context.Context, uuid.UUID) (service.Summary, error)
	Stats(context.Context, uuid.UUID) (analytics.Stats, error)
	Calendar(context.Context, uuid.UUID, int, time.Month) (views.Month, error)
}

type TagService interface {
	GetUserTags(context.Context, uuid.UUID) ([]task.Tag, error)
	CreateTag(context.Context, uuid.UUID, string, string) (*task.Tag, error)
	UpdateTag(context.Context, uuid.UUID, uuid.UUID, service.TagPatch) (*task.Tag, error)
	DeleteTag(context.Context, uuid.UUID, uuid.UUID) error
}

type SubtaskService interface {
	GetTaskSubtasks(context.Context, uuid.UUID, uuid.UUID) ([]task.Subtask, error)
	CreateSubtask(context.Context, uuid.UUID, uuid.UUID, string) (*task.Subtask, error)
	UpdateSubtask(context.Context, uuid.UUID, uuid.UUID, service.SubtaskPatch) (*task.Subtask, error)
	DeleteSubtask(context.Context, uuid.UUID, uuid.UUID) error
}

type AuthService interface {
	SignUp(ctx context.Context, email, password, fullName string) (*auth.Session, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignOut(ctx context.Context, tokens ...string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.Session, error)
	ResetPassword(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, token, newPassword string) error
	Verify(token string) (*auth.Claims, error)
}
