// Package analytics считает агрегаты по уже загруженному списку задач.
// Функции чистые: не ходят в хранилище и не меняют входной срез.
package analytics

import (
	"math"
	"taskflow/internal/models/task"
	"time"
)

const HistogramWeeks = 7
const MaxStreak = 30

type WeekBucket struct {
	Start task.Date `json:"start"`
	End   task.Date `json:"end"`
	Count int       `json:"count"`
}

type PriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

type Stats struct {
	Total          int            `json:"total"`
	Completed      int            `json:"completed"`
	InProgress     int            `json:"in_progress"`
	Todo           int            `json:"todo"`
	CompletionRate int            `json:"completion_rate"`
	Weekly         []WeekBucket   `json:"weekly"`
	Streak         int            `json:"streak"`
	Priority       PriorityCounts `json:"priority"`
}

// CompletionRate - процент выполненных, округлённый до целого; 0 для пустого набора
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// WeekStart - воскресенье календарной недели, в которую попадает день
func WeekStart(d task.Date) task.Date {
	return d.AddDays(-int(d.Weekday()))
}

// WeeklyHistogram считает выполненные задачи по последним семи неделям, старшая первой.
// Неделя начинается в воскресенье, границы включительно.
func WeeklyHistogram(tasks []*task.Task, now time.Time) []WeekBucket {
	current := WeekStart(task.DateOf(now))

	buckets := make([]WeekBucket, HistogramWeeks)
	for i := range buckets {
		start := current.AddDays(-7 * (HistogramWeeks - 1 - i))
		buckets[i] = WeekBucket{Start: start, End: start.AddDays(6)}
	}

	for _, t := range tasks {
		if t.CompletedAt == nil {
			continue
		}
		day := task.DateOf(t.CompletedAt.In(now.Location()))
		for i := range buckets {
			if !day.Before(buckets[i].Start) && !day.After(buckets[i].End) {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}

// Streak - число подряд идущих дней с выполненными задачами, считая назад от сегодня.
// Сегодня без выполненных задач серию не обрывает: счёт продолжается со вчерашнего дня.
// Любой другой пропуск обрывает серию. Не больше MaxStreak.
func Streak(tasks []*task.Task, now time.Time) int {
	days := make(map[task.Date]struct{})
	for _, t := range tasks {
		if t.CompletedAt != nil {
			days[task.DateOf(t.CompletedAt.In(now.Location()))] = struct{}{}
		}
	}

	today := task.DateOf(now)
	streak := 0
	for i := 0; i < MaxStreak; i++ {
		if _, ok := days[today.AddDays(-i)]; ok {
			streak++
		} else if i > 0 {
			break
		}
	}
	return streak
}

func PriorityBreakdown(tasks []*task.Task) PriorityCounts {
	counts := PriorityCounts{}
	for _, t := range tasks {
		switch t.Priority {
		case task.PriorityLow:
			counts.Low++
		case task.PriorityMedium:
			counts.Medium++
		case task.PriorityHigh:
			counts.High++
		}
	}
	return counts
}

func Compute(tasks []*task.Task, now time.Time) Stats {
	stats := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusCompleted:
			stats.Completed++
		case task.StatusInProgress:
			stats.InProgress++
		default:
			stats.Todo++
		}
	}

	stats.CompletionRate = CompletionRate(stats.Completed, stats.Total)
	stats.Weekly = WeeklyHistogram(tasks, now)
	stats.Streak = Streak(tasks, now)
	stats.Priority = PriorityBreakdown(tasks)
	return stats
}
