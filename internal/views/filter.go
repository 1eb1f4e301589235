package views

import (
	"fmt"
	"strings"
	"taskflow/internal/models/task"
)

type FilterKind string

const FilterAll FilterKind = "all"
const FilterStatus FilterKind = "status"
const FilterPriority FilterKind = "priority"
const FilterTag FilterKind = "tag"

type Filter struct {
	Kind  FilterKind `json:"kind"`
	Value string     `json:"value"`
}

func ParseFilter(kind, value string) (Filter, error) {
	f := Filter{Kind: FilterKind(strings.ToLower(strings.TrimSpace(kind))), Value: strings.TrimSpace(value)}
	switch f.Kind {
	case FilterAll:
		return Filter{Kind: FilterAll}, nil
	case FilterStatus:
		if !task.Status(f.Value).Valid() {
			return Filter{}, fmt.Errorf("неизвестный статус %q", f.Value)
		}
	case FilterPriority:
		if !task.Priority(f.Value).Valid() {
			return Filter{}, fmt.Errorf("неизвестный приоритет %q", f.Value)
		}
	case FilterTag:
		if f.Value == "" {
			return Filter{}, fmt.Errorf("пустой тег")
		}
	default:
		return Filter{}, fmt.Errorf("неизвестный фильтр %q", kind)
	}
	return f, nil
}

// Match: тег сравнивается по id или по имени без учёта регистра
func (f Filter) Match(t *task.Task) bool {
	switch f.Kind {
	case FilterStatus:
		return string(t.Status) == f.Value
	case FilterPriority:
		return string(t.Priority) == f.Value
	case FilterTag:
		for _, tag := range t.Tags {
			if tag.ID.String() == f.Value || strings.EqualFold(tag.Name, f.Value) {
				return true
			}
		}
		return false
	}
	return true
}

// FilterSet - активные фильтры, объединённые через AND.
// Статусный фильтр может быть только один, приоритеты и теги накапливаются.
type FilterSet struct {
	filters []Filter
}

func NewFilterSet(filters ...Filter) FilterSet {
	fs := FilterSet{}
	for _, f := range filters {
		fs.add(f)
	}
	return fs
}

// Toggle включает фильтр или выключает уже активный. "all" сбрасывает всё.
func (fs *FilterSet) Toggle(f Filter) {
	if f.Kind == FilterAll {
		fs.Clear()
		return
	}
	if fs.Active(f) {
		fs.remove(f)
		return
	}
	fs.add(f)
}

func (fs *FilterSet) Clear() {
	fs.filters = nil
}

func (fs FilterSet) Active(f Filter) bool {
	for _, active := range fs.filters {
		if active == f {
			return true
		}
	}
	return false
}

func (fs FilterSet) Empty() bool {
	return len(fs.filters) == 0
}

func (fs FilterSet) Filters() []Filter {
	return append([]Filter(nil), fs.filters...)
}

func (fs *FilterSet) add(f Filter) {
	if f.Kind == FilterAll {
		fs.Clear()
		return
	}
	if f.Kind == FilterStatus {
		kept := fs.filters[:0:0]
		for _, active := range fs.filters {
			if active.Kind != FilterStatus {
				kept = append(kept, active)
			}
		}
		fs.filters = kept
	}
	if !fs.Active(f) {
		fs.filters = append(fs.filters, f)
	}
}

func (fs *FilterSet) remove(f Filter) {
	kept := fs.filters[:0:0]
	for _, active := range fs.filters {
		if active != f {
			kept = append(kept, active)
		}
	}
	fs.filters = kept
}

func (fs FilterSet) Match(t *task.Task) bool {
	for _, f := range fs.filters {
		if !f.Match(t) {
			return false
		}
	}
	return true
}

// MatchQuery ищет подстроку в названии, описании, именах тегов и названиях подзадач
func MatchQuery(t *task.Task, query string) bool {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	for _, tag := range t.Tags {
		if strings.Contains(strings.ToLower(tag.Name), needle) {
			return true
		}
	}
	for _, st := range t.Subtasks {
		if strings.Contains(strings.ToLower(st.Title), needle) {
			return true
		}
	}
	return false
}

// Apply возвращает новый срез задач, прошедших фильтры и текстовый запрос; порядок сохраняется
func Apply(tasks []*task.Task, fs FilterSet, query string) []*task.Task {
	res := make([]*task.Task, 0, len(tasks))
	for _, t := range tasks {
		if fs.Match(t) && MatchQuery(t, query) {
			res = append(res, t)
		}
	}
	return res
}
