package service

import (
	"context"
	"taskflow/internal/models/task"
	"taskflow/internal/realtime"
	"time"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	List(context.Context, task.Query) ([]*task.Task, error)
	DeleteSoft(context.Context, *task.Task) error
	Restore(context.Context, *task.Task) error
	DeleteFull(context.Context, uuid.UUID) error
	PurgeTrashedBefore(context.Context, time.Time, int) (int, error)
	AddTags(context.Context, uuid.UUID, []uuid.UUID) error
	RemoveTags(context.Context, uuid.UUID, []uuid.UUID) error
}

type TagRepository interface {
	ListTags(context.Context, uuid.UUID) ([]task.Tag, error)
	GetTag(context.Context, uuid.UUID) (*task.Tag, error)
	CreateTag(context.Context, *task.Tag) error
	UpdateTag(context.Context, *task.Tag) error
	DeleteTag(context.Context, uuid.UUID) error
}

type SubtaskRepository interface {
	ListSubtasks(context.Context, uuid.UUID) ([]task.Subtask, error)
	GetSubtask(context.Context, uuid.UUID) (*task.Subtask, error)
	CreateSubtask(context.Context, *task.Subtask) error
	UpdateSubtask(context.Context, *task.Subtask) error
	DeleteSubtask(context.Context, uuid.UUID) error
}

// Notifier получает изменения, когда у хранилища нет собственного канала уведомлений
type Notifier interface {
	Publish(realtime.Event)
}

// Subscriber - источник потока изменений для SubscribeToTasks
type Subscriber interface {
	Subscribe(uuid.UUID) (<-chan realtime.Event, func())
}
