// Package tui implements the studio-tui terminal dashboard: a live view
// over one project's tasks and the activity of whichever task is
// selected, built the way The-Lattice's internal/tui/app.go structures
// a bubbletea program (one root Model, list.Model for menus, lipgloss
// for layout) and adapted from its workflow board to this project's
// task/Phase/session domain instead of worktrees and agents.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/project"
	"github.com/souky-byte/opencode-studio/internal/task"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

const (
	refreshInterval = 2 * time.Second
	logTailLines    = 14
)

// App is the bubbletea root model for studio-tui.
type App struct {
	ctx *project.ProjectContext

	taskList  list.Model
	tasks     []types.Task
	logLines  []string
	statusMsg string
	err       error
	width     int
	height    int

	busEvents chan types.EventEnvelope
	busUnsub  func()
}

type taskItem struct {
	task types.Task
}

func (i taskItem) Title() string { return fmt.Sprintf("%s  [%s]", i.task.Title, i.task.Status) }
func (i taskItem) Description() string {
	return fmt.Sprintf("id: %s", i.task.ID)
}
func (i taskItem) FilterValue() string { return i.task.Title }

type tasksRefreshedMsg struct {
	tasks []types.Task
	err   error
}

type busEventMsg struct {
	env types.EventEnvelope
}

type activityLineMsg struct {
	line string
}

// NewApp builds the dashboard over an already-opened project context.
func NewApp(ctx *project.ProjectContext) *App {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Tasks"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	app := &App{
		ctx:       ctx,
		taskList:  l,
		statusMsg: "loading tasks...",
		busEvents: make(chan types.EventEnvelope, 32),
	}
	app.busUnsub = ctx.Bus.Subscribe(func(env types.EventEnvelope) {
		select {
		case app.busEvents <- env:
		default:
		}
	})
	return app
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refreshTasks(), a.scheduleRefresh(), a.waitForBusEvent())
}

// waitForBusEvent blocks on the bus relay channel fed by the
// Subscribe callback in NewApp; Update re-issues this command after
// each event so the program keeps draining the channel for as long as
// it runs, the same tea.Cmd-loop idiom The-Lattice uses for
// tea.Tick-driven polling.
func (a *App) waitForBusEvent() tea.Cmd {
	return func() tea.Msg {
		env, ok := <-a.busEvents
		if !ok {
			return nil
		}
		return busEventMsg{env: env}
	}
}

func (a *App) refreshTasks() tea.Cmd {
	return func() tea.Msg {
		tasks, err := a.ctx.Tasks.List()
		return tasksRefreshedMsg{tasks: tasks, err: err}
	}
}

func (a *App) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		tasks, err := a.ctx.Tasks.List()
		return tasksRefreshedMsg{tasks: tasks, err: err}
	})
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		listWidth := max(20, a.width/2-4)
		a.taskList.SetSize(listWidth, max(5, a.height-6))
		return a, nil

	case tasksRefreshedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, a.scheduleRefresh()
		}
		a.err = nil
		a.tasks = msg.tasks
		items := make([]list.Item, len(msg.tasks))
		for i, t := range msg.tasks {
			items[i] = taskItem{task: t}
		}
		a.taskList.SetItems(items)
		return a, a.scheduleRefresh()

	case activityLineMsg:
		a.logLines = append(a.logLines, msg.line)
		if len(a.logLines) > logTailLines {
			a.logLines = a.logLines[len(a.logLines)-logTailLines:]
		}
		return a, nil

	case busEventMsg:
		a.logLines = append(a.logLines, fmt.Sprintf("[%s] %s", msg.env.Event.EventName(), msg.env.Event.AffectedTaskID()))
		if len(a.logLines) > logTailLines {
			a.logLines = a.logLines[len(a.logLines)-logTailLines:]
		}
		return a, tea.Batch(a.waitForBusEvent(), a.refreshTasks())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "enter":
			return a, a.executeSelected()
		case "f":
			return a, a.transitionSelected(types.StatusInProgress)
		case "r":
			a.statusMsg = "refreshing..."
			return a, a.refreshTasks()
		case "t":
			return a, a.tailSelected()
		}
	}

	var cmd tea.Cmd
	a.taskList, cmd = a.taskList.Update(msg)
	return a, cmd
}

func (a *App) selectedTask() (types.Task, bool) {
	item, ok := a.taskList.SelectedItem().(taskItem)
	if !ok {
		return types.Task{}, false
	}
	return item.task, true
}

func (a *App) executeSelected() tea.Cmd {
	t, ok := a.selectedTask()
	if !ok || a.ctx.Executor == nil {
		return nil
	}
	return func() tea.Msg {
		phase, err := a.ctx.Executor.StartPhaseAsync(t)
		if err != nil {
			return tasksRefreshedMsg{err: err}
		}
		return activityLineMsg{line: fmt.Sprintf("dispatched %s phase for %s", phase, t.ID)}
	}
}

func (a *App) transitionSelected(to types.TaskStatus) tea.Cmd {
	t, ok := a.selectedTask()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		transitioner := task.New(a.ctx.Tasks, a.ctx.Bus)
		updated, err := transitioner.Transition(t, to)
		if err != nil {
			return activityLineMsg{line: fmt.Sprintf("transition failed: %v", err)}
		}
		if a.ctx.Executor != nil {
			_, _ = a.ctx.Executor.StartPhaseAsync(updated)
		}
		return activityLineMsg{line: fmt.Sprintf("%s -> %s", updated.ID, updated.Status)}
	}
}

// tailSelected prints the selected task's latest session history into
// the log panel; it does not keep streaming, since bubbletea commands
// are one-shot (a future Update call driven by store.Subscribe would
// be needed for live tailing, out of scope for this dashboard).
func (a *App) tailSelected() tea.Cmd {
	t, ok := a.selectedTask()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		sessions, err := a.ctx.Sessions.ListForTask(t.ID)
		if err != nil || len(sessions) == 0 {
			return activityLineMsg{line: fmt.Sprintf("no sessions for %s", t.ID)}
		}
		sessionID := sessions[len(sessions)-1].ID
		store, err := a.ctx.Activities.GetOrCreateWithHistory(sessionID)
		if err != nil {
			return activityLineMsg{line: fmt.Sprintf("load activity: %v", err)}
		}
		return activityLineMsg{line: formatHistory(store.History())}
	}
}

func formatHistory(events []activity.Event) string {
	var b strings.Builder
	for _, ev := range events {
		switch m := ev.Msg.(type) {
		case types.ToolCall:
			fmt.Fprintf(&b, "[tool] %s\n", m.ToolName)
		case types.AgentMessage:
			b.WriteString(m.Content)
		case types.Finished:
			fmt.Fprintf(&b, "\n[finished] success=%v\n", m.Success)
		}
	}
	return b.String()
}

func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("opencode-studio · %s", filepath.Base(a.ctx.Info.Worktree)))

	left := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(a.taskList.View())

	logBody := "no activity yet"
	if len(a.logLines) > 0 {
		logBody = strings.Join(a.logLines, "\n---\n")
	}
	right := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Width(max(30, a.width/2-4)).
		Render(fmt.Sprintf("Activity\n\n%s", logBody))

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	status := a.statusMsg
	if a.err != nil {
		status = fmt.Sprintf("error: %v", a.err)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render("enter: execute  f: mark in-progress  t: tail  r: refresh  q: quit  · " + status)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// Close releases the bus subscription. Call after the bubbletea
// program exits.
func (a *App) Close() {
	if a.busUnsub != nil {
		a.busUnsub()
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
