package main

import (
	"fmt"
	"strings"
	"taskflow/internal/analytics"
	"taskflow/internal/logger"
	"taskflow/internal/models/task"
	"taskflow/internal/views"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func statsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Статистика: процент выполнения, недели, серия, приоритеты",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}
			stats, err := e.svc.Tasks.Stats(ctx, userID)
			if err != nil {
				logger.Warn("CLI: Статистика недоступна, показан пустой список", zap.Error(err))
				stats = analytics.Compute(nil, timeNow())
			}
			fmt.Println(renderStats(stats))
			return nil
		},
	}
}

func renderStats(s analytics.Stats) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Статистика") + "\n")
	fmt.Fprintf(&b, "  всего %d · выполнено %d · в работе %d · к выполнению %d\n", s.Total, s.Completed, s.InProgress, s.Todo)
	fmt.Fprintf(&b, "  выполнение %s\n", bar(s.CompletionRate, 100, 30)+fmt.Sprintf(" %d%%", s.CompletionRate))
	fmt.Fprintf(&b, "  серия %s\n", styleOK.Render(fmt.Sprintf("%d дн.", s.Streak)))

	b.WriteString(styleTitle.Render("Выполнено по неделям") + "\n")
	peak := 1
	for _, w := range s.Weekly {
		if w.Count > peak {
			peak = w.Count
		}
	}
	for _, w := range s.Weekly {
		fmt.Fprintf(&b, "  %s %s %d\n", styleDim.Render(w.Start.String()), bar(w.Count, peak, 20), w.Count)
	}

	b.WriteString(styleTitle.Render("Приоритеты") + "\n")
	fmt.Fprintf(&b, "  %s %d  %s %d  %s %d",
		priorityStyles[task.PriorityHigh].Render("high"), s.Priority.High,
		priorityStyles[task.PriorityMedium].Render("medium"), s.Priority.Medium,
		priorityStyles[task.PriorityLow].Render("low"), s.Priority.Low)
	return b.String()
}

func bar(value, total, width int) string {
	if total <= 0 {
		total = 1
	}
	filled := value * width / total
	if filled > width {
		filled = width
	}
	return styleOK.Render(strings.Repeat("█", filled)) + styleDim.Render(strings.Repeat("░", width-filled))
}

func calendarCmd(e *env) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Сетка месяца с задачами по сроку",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			userID, err := e.requireUser(ctx)
			if err != nil {
				return err
			}

			today := e.today()
			year, m := today.Year, today.Month
			if month != "" {
				if year, m, err = views.ParseMonth(month); err != nil {
					return err
				}
			}

			grid, err := e.svc.Tasks.Calendar(ctx, userID, year, m)
			if err != nil {
				logger.Warn("CLI: Календарь недоступен, показана пустая сетка", zap.Error(err))
				grid = views.BuildMonth(nil, year, m)
			}
			fmt.Println(renderMonth(grid, today))
			return nil
		},
	}
	cmd.Flags().StringVarP(&month, "month", "m", "", "месяц YYYY-MM, по умолчанию текущий")
	return cmd
}

var (
	cellStyle    = lipgloss.NewStyle().Width(6).Align(lipgloss.Right)
	todayStyle   = cellStyle.Foreground(colorPrimary).Bold(true)
	outsideStyle = cellStyle.Foreground(colorDim)
)

func renderMonth(m views.Month, today task.Date) string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(fmt.Sprintf("%s %d", m.Month, m.Year)) + "\n")

	header := make([]string, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		header = append(header, cellStyle.Render(d.String()[:2]))
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...) + "\n")

	agenda := []string{}
	for week := 0; week*7 < len(m.Days); week++ {
		cells := make([]string, 0, 7)
		for _, day := range m.Days[week*7 : week*7+7] {
			label := fmt.Sprintf("%d", day.Date.Day)
			if len(day.Tasks) > 0 {
				label = fmt.Sprintf("%d•%d", day.Date.Day, len(day.Tasks))
			}
			style := cellStyle
			switch {
			case day.Date == today:
				style = todayStyle
			case !day.InMonth:
				style = outsideStyle
			}
			cells = append(cells, style.Render(label))

			if day.InMonth {
				for _, t := range day.Tasks {
					agenda = append(agenda, renderTask(t, today))
				}
			}
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...) + "\n")
	}

	if len(agenda) > 0 {
		b.WriteString("\n" + strings.Join(agenda, "\n"))
	}
	return b.String()
}

func configCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Показать действующую конфигурацию без секретов",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := e.cfg.Dump()
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			if e.cfg.Degraded() {
				fmt.Println(styleError.Render("хранилище не настроено: работа в деградированном режиме"))
			}
			if path, err := sessionPath(); err == nil {
				fmt.Println(styleDim.Render("сессия: " + path))
			}
			return nil
		},
	}
}
