package views

import (
	"fmt"
	"strings"
	"taskflow/internal/models/task"
	"time"
)

type Day struct {
	Date    task.Date    `json:"date"`
	InMonth bool         `json:"in_month"`
	Tasks   []*task.Task `json:"tasks"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Days  []Day      `json:"days"`
}

// MonthGrid - дни сетки месяца: с воскресенья до первого числа по субботу после последнего.
// Длина всегда кратна семи.
func MonthGrid(year int, month time.Month) []task.Date {
	first := task.Date{Year: year, Month: month, Day: 1}
	last := task.DateOf(first.In(time.UTC).AddDate(0, 1, -1))

	start := first.AddDays(-int(first.Weekday()))
	end := last.AddDays(int(time.Saturday - last.Weekday()))

	days := []task.Date{}
	for d := start; !d.After(end); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// GroupByDueDate раскладывает задачи по дню срока в порядке входного списка.
// Задачи без срока не попадают ни в один день.
func GroupByDueDate(tasks []*task.Task) map[task.Date][]*task.Task {
	groups := make(map[task.Date][]*task.Task)
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		groups[*t.DueDate] = append(groups[*t.DueDate], t)
	}
	return groups
}

func BuildMonth(tasks []*task.Task, year int, month time.Month) Month {
	groups := GroupByDueDate(tasks)
	grid := MonthGrid(year, month)

	m := Month{Year: year, Month: month, Days: make([]Day, 0, len(grid))}
	for _, d := range grid {
		dayTasks := groups[d]
		if dayTasks == nil {
			dayTasks = []*task.Task{}
		}
		m.Days = append(m.Days, Day{
			Date:    d,
			InMonth: d.Year == year && d.Month == month,
			Tasks:   dayTasks,
		})
	}
	return m
}

// ParseMonth разбирает "YYYY-MM"
func ParseMonth(raw string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("неверный месяц %q: %w", raw, err)
	}
	return t.Year(), t.Month(), nil
}

// Day возвращает ячейку сетки для даты, если она попадает в сетку
func (m Month) Day(d task.Date) (Day, bool) {
	for _, day := range m.Days {
		if day.Date == d {
			return day, true
		}
	}
	return Day{}, false
}
