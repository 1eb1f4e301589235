package task

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Order int

const (
	OrderCreatedDesc Order = iota
	OrderDueAsc
	OrderCompletedDesc
	OrderDeletedDesc
)

// Query описывает выборку задач одного пользователя.
// Пустые поля не участвуют в фильтрации.
type Query struct {
	UserID        uuid.UUID
	Trashed       bool
	Status        *Status
	ExcludeStatus *Status
	// DueOnOrBefore: due_date <= X; вместе с IncludeUndated ещё и due_date IS NULL
	DueOnOrBefore  *Date
	IncludeUndated bool
	// DueFrom: due_date >= X, задачи без даты исключаются
	DueFrom *Date
	Search  string
	Order   Order
}

// Match проверяет задачу так же, как это делает SQL-фильтр хранилища.
func (q Query) Match(t *Task) bool {
	if t.UserID != q.UserID {
		return false
	}
	if t.Deleted() != q.Trashed {
		return false
	}
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.ExcludeStatus != nil && t.Status == *q.ExcludeStatus {
		return false
	}
	if q.DueOnOrBefore != nil {
		if t.DueDate == nil {
			if !q.IncludeUndated {
				return false
			}
		} else if t.DueDate.After(*q.DueOnOrBefore) {
			return false
		}
	}
	if q.DueFrom != nil {
		if t.DueDate == nil || t.DueDate.Before(*q.DueFrom) {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// SortTasks сортирует срез согласно порядку запроса (стабильно).
func SortTasks(tasks []*Task, order Order) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch order {
		case OrderDueAsc:
			if c := compareDue(a, b); c != 0 {
				return c < 0
			}
			return false
		case OrderCompletedDesc:
			return timeDesc(a.CompletedAt, b.CompletedAt)
		case OrderDeletedDesc:
			return timeDesc(a.DeletedAt(), b.DeletedAt())
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}

// compareDue: (due_date, due_time) по возрастанию, отсутствующие значения в конце
func compareDue(a, b *Task) int {
	switch {
	case a.DueDate == nil && b.DueDate == nil:
		return 0
	case a.DueDate == nil:
		return 1
	case b.DueDate == nil:
		return -1
	}
	if c := a.DueDate.Compare(*b.DueDate); c != 0 {
		return c
	}
	switch {
	case a.DueTime == nil && b.DueTime == nil:
		return 0
	case a.DueTime == nil:
		return 1
	case b.DueTime == nil:
		return -1
	}
	return cmpInt(a.DueTime.Minutes(), b.DueTime.Minutes())
}

// timeDesc: по убыванию, nil в конце (как NULLS LAST в SQL)
func timeDesc(a, b *time.Time) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	}
	return a.After(*b)
}
