package dto

import (
	"taskflow/internal/models/task"
	"taskflow/internal/views"
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	task.Patch
	TagIDs []uuid.UUID `json:"tag_ids,omitempty"`
}

type UpdateTaskRequest struct {
	task.Patch
}

type StatusRequest struct {
	Status task.Status `json:"status"`
}

type TagIDsRequest struct {
	TagIDs []uuid.UUID `json:"tag_ids"`
}

type TagRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

type SubtaskRequest struct {
	Title      *string `json:"title,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
	OrderIndex *int    `json:"order_index,omitempty"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type ResetPasswordRequest struct {
	Email string `json:"email"`
}

type ConfirmResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type TaskResponse struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      task.Status     `json:"status"`
	Priority    task.Priority   `json:"priority"`
	DueDate     *task.Date      `json:"due_date"`
	DueTime     *task.TimeOfDay `json:"due_time"`
	CompletedAt *time.Time      `json:"completed_at"`
	Deleted     bool            `json:"deleted"`
	DeletedAt   *time.Time      `json:"deleted_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
	IsOverdue   bool            `json:"is_overdue"`
	Subtasks    []task.Subtask  `json:"subtasks"`
	Tags        []task.Tag      `json:"tags"`
}

// FromTask собирает ответ; просрочена незавершённая активная задача со сроком раньше today
func FromTask(t *task.Task, today task.Date) TaskResponse {
	subtasks, tags := t.Subtasks, t.Tags
	if subtasks == nil {
		subtasks = []task.Subtask{}
	}
	if tags == nil {
		tags = []task.Tag{}
	}
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		DueTime:     t.DueTime,
		CompletedAt: t.CompletedAt,
		Deleted:     t.Lifecycle.Trashed(),
		DeletedAt:   t.Lifecycle.TrashedAt(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Version:     t.Version,
		IsOverdue: t.Status != task.StatusCompleted && !t.Lifecycle.Trashed() &&
			t.DueDate != nil && t.DueDate.Before(today),
		Subtasks: subtasks,
		Tags:     tags,
	}
}

func FromTaskList(tasks []*task.Task, today task.Date) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, today)
	}
	return result
}

type CalendarDay struct {
	Date    task.Date      `json:"date"`
	InMonth bool           `json:"in_month"`
	Tasks   []TaskResponse `json:"tasks"`
}

type CalendarResponse struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}

func FromMonth(m views.Month, today task.Date) CalendarResponse {
	resp := CalendarResponse{Year: m.Year, Month: int(m.Month), Days: make([]CalendarDay, len(m.Days))}
	for i, d := range m.Days {
		resp.Days[i] = CalendarDay{Date: d.Date, InMonth: d.InMonth, Tasks: FromTaskList(d.Tasks, today)}
	}
	return resp
}
