package analytics_test

import (
	"taskflow/internal/analytics"
	"taskflow/internal/models/task"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// среда, 13 мая 2026
var now = time.Date(2026, time.May, 13, 15, 0, 0, 0, time.UTC)

func completedDaysAgo(days ...int) []*task.Task {
	tasks := make([]*task.Task, 0, len(days))
	for _, d := range days {
		at := now.AddDate(0, 0, -d)
		tasks = append(tasks, &task.Task{Status: task.StatusCompleted, CompletedAt: &at})
	}
	return tasks
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0, analytics.CompletionRate(0, 0))
	assert.Equal(t, 33, analytics.CompletionRate(1, 3))
	assert.Equal(t, 67, analytics.CompletionRate(2, 3))
	assert.Equal(t, 100, analytics.CompletionRate(4, 4))
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name string
		days []int
		want int
	}{
		{name: "empty", days: nil, want: 0},
		{name: "today only", days: []int{0}, want: 1},
		{name: "today and yesterday", days: []int{0, 1, 1}, want: 2},
		{name: "nothing today yet", days: []int{1, 2, 3}, want: 3},
		{name: "gap breaks", days: []int{0, 2, 3}, want: 1},
		{name: "gap yesterday without today", days: []int{2, 3}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, analytics.Streak(completedDaysAgo(tt.days...), now))
		})
	}
}

func TestStreak_Capped(t *testing.T) {
	days := make([]int, 45)
	for i := range days {
		days[i] = i
	}
	assert.Equal(t, analytics.MaxStreak, analytics.Streak(completedDaysAgo(days...), now))
}

func TestWeeklyHistogram(t *testing.T) {
	// 10 мая - воскресенье текущей недели, 9 мая - суббота прошлой
	tasks := completedDaysAgo(0, 3, 4, 11, 48, 49)
	tasks = append(tasks, &task.Task{Status: task.StatusTodo})

	buckets := analytics.WeeklyHistogram(tasks, now)
	require.Len(t, buckets, analytics.HistogramWeeks)

	last := buckets[len(buckets)-1]
	assert.Equal(t, "2026-05-10", last.Start.String())
	assert.Equal(t, "2026-05-16", last.End.String())
	assert.Equal(t, 2, last.Count)

	assert.Equal(t, "2026-05-03", buckets[5].Start.String())
	assert.Equal(t, 1, buckets[5].Count)
	assert.Equal(t, 1, buckets[4].Count)

	assert.Equal(t, "2026-03-29", buckets[0].Start.String())
	// 48 дней назад - 26 марта, за пределами гистограммы
	assert.Equal(t, 0, buckets[0].Count)

	for _, b := range buckets {
		assert.Equal(t, time.Sunday, b.Start.Weekday())
	}
}

func TestCompute(t *testing.T) {
	tasks := completedDaysAgo(0, 1)
	tasks[0].Priority = task.PriorityHigh
	tasks = append(tasks,
		&task.Task{Status: task.StatusInProgress, Priority: task.PriorityHigh},
		&task.Task{Status: task.StatusTodo, Priority: task.PriorityLow},
	)

	stats := analytics.Compute(tasks, now)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Todo)
	assert.Equal(t, 50, stats.CompletionRate)
	assert.Equal(t, 2, stats.Streak)
	assert.Equal(t, analytics.PriorityCounts{Low: 1, High: 2}, stats.Priority)
	assert.Len(t, stats.Weekly, analytics.HistogramWeeks)

	empty := analytics.Compute(nil, now)
	assert.Zero(t, empty.CompletionRate)
	assert.Len(t, empty.Weekly, analytics.HistogramWeeks)
}
