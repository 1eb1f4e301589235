package main

import (
	"context"
	"fmt"
	"strings"
	"taskflow/internal/focus"
	"taskflow/internal/models/task"
	"taskflow/internal/store"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const focusRefresh = 200 * time.Millisecond

func focusCmd(e *env) *cobra.Command {
	var minutes int
	var all bool
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Помодоро по невыполненным задачам на сегодня",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if _, err := e.requireUser(ctx); err != nil {
				return err
			}

			st := store.New(e.svc.Tasks, e.holder)
			defer st.Close()
			if err := st.Load(ctx); err != nil {
				return err
			}

			// изменения с других устройств перечитывают список
			userID, _ := e.holder.UserID()
			if events, err := e.svc.Tasks.SubscribeToTasks(ctx, userID); err == nil {
				go st.Watch(ctx, events)
			}
			if e.svc.Listener != nil {
				go e.svc.Listener.Run(ctx)
			}

			queue := st.Tasks()
			if !all {
				queue = dueToday(queue, e.today())
			}

			length := e.cfg.FocusLength()
			if minutes > 0 {
				length = time.Duration(minutes) * time.Minute
			}
			timer := focus.NewTimer(st, focus.WithLength(length))
			if err := timer.Start(ctx, queue); err != nil {
				return err
			}
			defer timer.Stop()

			model := newFocusModel(ctx, timer)
			final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil {
				return err
			}
			snap := final.(*focusModel).snap
			fmt.Println(styleOK.Render("✓"), fmt.Sprintf("выполнено задач: %d", snap.Completed))
			return nil
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "длина отрезка в минутах")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "все невыполненные задачи, а не только на сегодня")
	return cmd
}

// dueToday - задачи со сроком сегодня или раньше; если таких нет, весь список
func dueToday(tasks []*task.Task, today task.Date) []*task.Task {
	res := []*task.Task{}
	for _, t := range tasks {
		if t.DueDate != nil && !t.DueDate.After(today) {
			res = append(res, t)
		}
	}
	if len(res) == 0 {
		return tasks
	}
	return res
}

type focusKeys struct {
	Pause key.Binding
	Skip  key.Binding
	Quit  key.Binding
}

func (k focusKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Skip, k.Quit}
}

func (k focusKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultFocusKeys = focusKeys{
	Pause: key.NewBinding(key.WithKeys(" ", "p"), key.WithHelp("space", "пауза/продолжить")),
	Skip:  key.NewBinding(key.WithKeys("s", "n"), key.WithHelp("s", "пропустить")),
	Quit:  key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "выйти")),
}

type refreshMsg struct{}

type focusModel struct {
	ctx   context.Context
	timer *focus.Timer
	snap  focus.Snapshot
	keys  focusKeys
	help  help.Model
	width int
}

func newFocusModel(ctx context.Context, timer *focus.Timer) *focusModel {
	return &focusModel{
		ctx:   ctx,
		timer: timer,
		snap:  timer.Snapshot(),
		keys:  defaultFocusKeys,
		help:  help.New(),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(focusRefresh, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m *focusModel) Init() tea.Cmd {
	return refresh()
}

func (m *focusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case refreshMsg:
		m.snap = m.timer.Snapshot()
		if m.snap.State == focus.StateFinished {
			return m, tea.Quit
		}
		return m, refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.timer.Stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			if m.snap.State == focus.StatePaused {
				m.timer.Resume(m.ctx)
			} else {
				m.timer.Pause()
			}
		case key.Matches(msg, m.keys.Skip):
			m.timer.Skip()
		}
		m.snap = m.timer.Snapshot()
	}
	return m, nil
}

var (
	focusBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorPrimary).Padding(1, 3)
	clockStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	pauseStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
)

func (m *focusModel) View() string {
	s := m.snap

	clock := formatClock(s.Remaining())
	state := clockStyle.Render(clock)
	if s.State == focus.StatePaused {
		state = pauseStyle.Render(clock + "  пауза")
	}

	progress := 0
	if s.Length > 0 {
		progress = int(s.Elapsed * 100 / s.Length)
	}

	body := strings.Join([]string{
		styleTitle.Render(s.Title),
		styleDim.Render(fmt.Sprintf("задача %d из %d · выполнено %d", s.Index+1, s.Total, s.Completed)),
		"",
		state,
		bar(progress, 100, 30),
	}, "\n")

	return focusBox.Render(body) + "\n" + m.help.View(m.keys) + "\n"
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
