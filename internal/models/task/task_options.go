package task

import (
	"fmt"
	"strings"
	"time"
)

type TaskOption func(*Task)

// FieldError - ошибка валидации конкретного поля
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("поле '%s': %s", e.Field, e.Reason)
}

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = strings.TrimSpace(title)
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithStatus(status Status, now time.Time) TaskOption {
	return func(task *Task) {
		task.SetStatus(status, now)
	}
}

func WithPriority(priority Priority) TaskOption {
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDueDate(date *Date) TaskOption {
	return func(task *Task) {
		task.DueDate = date
	}
}

func WithDueTime(at *TimeOfDay) TaskOption {
	return func(task *Task) {
		task.DueTime = at
	}
}

func WithCompletedAt(at *time.Time) TaskOption {
	return func(task *Task) {
		task.CompletedAt = at
	}
}

// Patch - частичное обновление в "сыром" виде, как оно приходит от клиента.
// nil означает "поле не передано".
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	DueDate     *string   `json:"due_date,omitempty"`
	DueTime     *string   `json:"due_time,omitempty"`
	CompletedAt *string   `json:"completed_at,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.DueTime == nil && p.CompletedAt == nil
}

// Options превращает патч в набор опций.
// Пустые и пробельные строки в due_date, due_time и completed_at означают "значения нет".
func (p Patch) Options(now time.Time) ([]TaskOption, error) {
	opts := []TaskOption{}

	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return nil, &FieldError{Field: "title", Reason: "не может быть пустым"}
		}
		opts = append(opts, WithTitle(*p.Title))
	}

	if p.Description != nil {
		opts = append(opts, WithDescription(*p.Description))
	}

	if p.Priority != nil {
		if !p.Priority.Valid() {
			return nil, &FieldError{Field: "priority", Reason: fmt.Sprintf("неизвестный приоритет %q", *p.Priority)}
		}
		opts = append(opts, WithPriority(*p.Priority))
	}

	if p.DueDate != nil {
		date, err := parseOptionalDate(*p.DueDate)
		if err != nil {
			return nil, &FieldError{Field: "due_date", Reason: err.Error()}
		}
		opts = append(opts, WithDueDate(date))
	}

	if p.DueTime != nil {
		at, err := parseOptionalTime(*p.DueTime)
		if err != nil {
			return nil, &FieldError{Field: "due_time", Reason: err.Error()}
		}
		opts = append(opts, WithDueTime(at))
	}

	// статус применяется до completed_at, чтобы явное значение completed_at не затиралось
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, &FieldError{Field: "status", Reason: fmt.Sprintf("неизвестный статус %q", *p.Status)}
		}
		opts = append(opts, WithStatus(*p.Status, now))
	}

	if p.CompletedAt != nil {
		at, err := parseOptionalTimestamp(*p.CompletedAt)
		if err != nil {
			return nil, &FieldError{Field: "completed_at", Reason: err.Error()}
		}
		opts = append(opts, WithCompletedAt(at))
	}

	return opts, nil
}

// Apply применяет опции и восстанавливает инварианты задачи.
func (t *Task) Apply(now time.Time, opts ...TaskOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	t.Normalize(now)
}

func parseOptionalDate(raw string) (*Date, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseOptionalTime(raw string) (*TimeOfDay, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseOptionalTimestamp(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("неверная метка времени %q: %w", raw, err)
	}
	return &t, nil
}

func StringPtr(s string) *string { return &s }
