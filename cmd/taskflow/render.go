package main

import (
	"errors"
	"fmt"
	"strings"
	"taskflow/internal/models/task"
	"taskflow/internal/service"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var timeNow = time.Now

var (
	colorPrimary = lipgloss.Color("#7aa2f7")
	colorDim     = lipgloss.Color("#565f89")
	colorSuccess = lipgloss.Color("#9ece6a")
	colorWarning = lipgloss.Color("#e0af68")
	colorError   = lipgloss.Color("#f7768e")

	styleOK      = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleTitle   = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleDone    = lipgloss.NewStyle().Foreground(colorDim).Strikethrough(true)
	styleOverdue = lipgloss.NewStyle().Foreground(colorError)
)

var priorityStyles = map[task.Priority]lipgloss.Style{
	task.PriorityHigh:   lipgloss.NewStyle().Foreground(colorError),
	task.PriorityMedium: lipgloss.NewStyle().Foreground(colorWarning),
	task.PriorityLow:    lipgloss.NewStyle().Foreground(colorDim),
}

var statusMarks = map[task.Status]string{
	task.StatusTodo:       "[ ]",
	task.StatusInProgress: "[~]",
	task.StatusCompleted:  "[x]",
}

// renderTask - одна строка: короткий id, отметка статуса, приоритет, заголовок, срок и теги
func renderTask(t *task.Task, today task.Date) string {
	var b strings.Builder

	b.WriteString(styleDim.Render(t.ID.String()[:8]))
	b.WriteString(" ")
	b.WriteString(statusMarks[t.Status])
	b.WriteString(" ")
	b.WriteString(priorityStyles[t.Priority].Render(fmt.Sprintf("%-6s", t.Priority)))
	b.WriteString(" ")

	if t.Status == task.StatusCompleted {
		b.WriteString(styleDone.Render(t.Title))
	} else {
		b.WriteString(t.Title)
	}

	if t.DueDate != nil {
		due := t.DueDate.String()
		if t.DueTime != nil {
			due += " " + t.DueTime.String()
		}
		if t.Status != task.StatusCompleted && t.DueDate.Before(today) {
			b.WriteString(" " + styleOverdue.Render("⏰ "+due))
		} else {
			b.WriteString(" " + styleDim.Render(due))
		}
	}

	for _, tag := range t.Tags {
		b.WriteString(" " + renderTag(tag.Name, tag.Color))
	}

	if len(t.Subtasks) > 0 {
		done := 0
		for _, st := range t.Subtasks {
			if st.Completed {
				done++
			}
		}
		b.WriteString(" " + styleDim.Render(fmt.Sprintf("(%d/%d)", done, len(t.Subtasks))))
	}

	if at := t.Lifecycle.TrashedAt(); at != nil {
		b.WriteString(" " + styleDim.Render("в корзине с "+at.Format("2006-01-02")))
	}
	return b.String()
}

func describe(err error) string {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return err.Error()
	}
	return fmt.Sprintf("%s (%s)", businessErr.Message, businessErr.Code)
}
