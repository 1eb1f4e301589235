package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	UserID      uuid.UUID  `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      Status     `json:"status" db:"status"`
	Priority    Priority   `json:"priority" db:"priority"`
	DueDate     *Date      `json:"due_date,omitempty" db:"due_date"`
	DueTime     *TimeOfDay `json:"due_time,omitempty" db:"due_time"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Lifecycle   Lifecycle  `json:"-"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	Version     int        `json:"version" db:"version"`
	Subtasks    []Subtask  `json:"subtasks"`
	Tags        []Tag      `json:"tags"`
}

type Status string
type Priority string

const StatusTodo Status = "todo"
const StatusInProgress Status = "in_progress"
const StatusCompleted Status = "completed"

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// SetStatus переводит задачу в новый статус.
// completed_at выставляется при входе в completed и очищается при выходе из него.
func (t *Task) SetStatus(status Status, now time.Time) {
	if status == StatusCompleted {
		if t.Status != StatusCompleted || t.CompletedAt == nil {
			completedAt := now
			t.CompletedAt = &completedAt
		}
	} else {
		t.CompletedAt = nil
	}
	t.Status = status
}

// ToggleComplete - быстрое переключение todo <-> completed.
func (t *Task) ToggleComplete(now time.Time) {
	if t.Status == StatusCompleted {
		t.SetStatus(StatusTodo, now)
		return
	}
	t.SetStatus(StatusCompleted, now)
}

// Normalize восстанавливает инвариант completed_at <=> completed
// после произвольного частичного обновления.
func (t *Task) Normalize(now time.Time) {
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		completedAt := now
		t.CompletedAt = &completedAt
	}
	if t.Status != StatusCompleted {
		t.CompletedAt = nil
	}
	if t.DueDate == nil {
		t.DueTime = nil
	}
}

func (t *Task) Deleted() bool {
	return t.Lifecycle.Trashed()
}

func (t *Task) DeletedAt() *time.Time {
	return t.Lifecycle.TrashedAt()
}

// HasTag проверяет наличие тега у задачи
func (t *Task) HasTag(id uuid.UUID) bool {
	for _, tag := range t.Tags {
		if tag.ID == id {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию задачи, чтобы снапшоты не делили срезы и указатели.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.DueTime != nil {
		tt := *t.DueTime
		c.DueTime = &tt
	}
	if t.CompletedAt != nil {
		ca := *t.CompletedAt
		c.CompletedAt = &ca
	}
	c.Lifecycle = t.Lifecycle.clone()
	c.Subtasks = append([]Subtask(nil), t.Subtasks...)
	c.Tags = append([]Tag(nil), t.Tags...)
	return &c
}

type Tag struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Subtask struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TaskID     uuid.UUID `json:"task_id" db:"task_id"`
	Title      string    `json:"title" db:"title"`
	Completed  bool      `json:"completed" db:"completed"`
	OrderIndex int       `json:"order_index" db:"order_index"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

type TaskTag struct {
	TaskID uuid.UUID `json:"task_id" db:"task_id"`
	TagID  uuid.UUID `json:"tag_id" db:"tag_id"`
}
