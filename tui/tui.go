package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clipmate/clipmate/internals/progress"
	"github.com/clipmate/clipmate/internals/schemas"
	"github.com/clipmate/clipmate/internals/stream"
	"github.com/clipmate/clipmate/internals/timeouts"
	"github.com/clipmate/clipmate/sdk"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type refreshMsg struct {
	view *progress.View
	conn *stream.Status
	err  error
}

type tickMsg struct{}

type watchModel struct {
	client *sdk.Client
	spin   spinner.Model
	view   *progress.View
	conn   *stream.Status
	err    error
}

// Run starts the live watch view. It polls the daemon and renders the
// reconciled task list until the user quits.
func Run(client *sdk.Client) error {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	program := tea.NewProgram(watchModel{client: client, spin: spin})
	_, err := program.Run()
	return err
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, refresh(m.client))
}

func refresh(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.SecondShort)
		defer cancel()

		view, err := client.Tasks(ctx)
		if err != nil {
			return refreshMsg{err: err}
		}
		conn, err := client.Connection(ctx)
		if err != nil {
			return refreshMsg{view: view, err: err}
		}
		return refreshMsg{view: view, conn: conn}
	}
}

func schedule() tea.Cmd {
	return tea.Tick(timeouts.PollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func reconnect(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.SecondShort)
		defer cancel()
		conn, err := client.Reconnect(ctx)
		return refreshMsg{conn: conn, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, reconnect(m.client)
		}
	case refreshMsg:
		if msg.view != nil {
			m.view = msg.view
		}
		if msg.conn != nil {
			m.conn = msg.conn
		}
		m.err = msg.err
		return m, schedule()
	case tickMsg:
		return m, refresh(m.client)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	lines := []string{titleStyle.Render("clipmate watch"), ""}

	if m.err != nil {
		lines = append(lines, failureStyle.Render("daemon unreachable: "+m.err.Error()), "")
	}

	if m.view == nil || len(m.view.Tasks) == 0 {
		lines = append(lines, pendingStyle.Render("no tasks yet"))
	}
	if m.view != nil {
		for _, task := range m.view.Tasks {
			lines = append(lines, m.renderTask(task)...)
		}
	}

	lines = append(lines, "", m.renderConnection())
	lines = append(lines, helpStyle.Render("r: reconnect  q: quit"))
	return strings.Join(lines, "\n")
}

func (m watchModel) renderTask(task progress.TaskView) []string {
	header := fmt.Sprintf("%s %s %3d%%", m.taskGlyph(task.Status), titleStyle.Render(task.Title), task.Percent)
	lines := []string{header}

	if task.ErrorMessage != "" {
		lines = append(lines, "  "+failureStyle.Render(task.ErrorMessage))
	}
	if task.SuccessMessage != "" {
		lines = append(lines, "  "+successStyle.Render(task.SuccessMessage))
	}

	for _, item := range task.Items {
		lines = append(lines, fmt.Sprintf("  %s %s", m.itemGlyph(item.Status), item.Title))
		if item.Status == schemas.ItemStatusActive && item.ActiveStepKey != "" {
			for _, step := range item.Steps {
				if step.Key != item.ActiveStepKey {
					continue
				}
				detail := step.Label
				if step.Message != "" {
					detail += " " + pendingStyle.Render(step.Message)
				}
				lines = append(lines, "    "+detail)
			}
		}
	}
	lines = append(lines, "")
	return lines
}

func (m watchModel) renderConnection() string {
	if m.conn == nil {
		return ""
	}
	switch m.conn.State {
	case stream.StateConnected:
		return successStyle.Render("connected")
	case stream.StateConnecting:
		return m.spin.View() + " connecting"
	case stream.StateWaiting:
		return warnStyle.Render(fmt.Sprintf("reconnecting in %ds (attempt %d)", m.conn.RetryIn, m.conn.Attempts))
	default:
		return pendingStyle.Render("paused")
	}
}

func (m watchModel) taskGlyph(status schemas.TaskStatus) string {
	switch status {
	case schemas.TaskStatusRunning:
		return m.spin.View()
	case schemas.TaskStatusSucceeded:
		return successStyle.Render("✓")
	case schemas.TaskStatusFailed:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("·")
	}
}

func (m watchModel) itemGlyph(status schemas.ItemStatus) string {
	switch status {
	case schemas.ItemStatusActive:
		return m.spin.View()
	case schemas.ItemStatusSuccess:
		return successStyle.Render("✓")
	case schemas.ItemStatusFailure:
		return failureStyle.Render("✗")
	default:
		return pendingStyle.Render("·")
	}
}
