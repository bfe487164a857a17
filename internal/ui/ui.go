// Package ui implements the tabbed terminal interface.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/gateway"
	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/task"
)

// Tabs.
const (
	tabTasks = iota
	tabCalendar
	tabCount
)

// Options wires the UI to the rest of the app.
type Options struct {
	Store   *store.Store
	Gateway *gateway.Client
	Config  *config.Config
	Logger  *log.Logger
}

// Run starts the TUI and blocks until it exits.
func Run(ctx context.Context, opts Options) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	m := newModel(opts)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, _ := f.Stat()
	return (info.Mode() & os.ModeCharDevice) != 0
}

type todosLoadedMsg struct {
	tasks []task.Task
}

type loadFailedMsg struct {
	err error
}

// createConfirmedMsg reports the remote's answer to an optimistic
// local create.
type createConfirmedMsg struct {
	localID   string
	confirmed task.Task
}

type deleteDoneMsg struct {
	id  string
	err error
}

type statusMsg struct {
	text string
	err  bool
}

type tickMsg time.Time

// formMode says what the open form will do on submit.
type formMode int

const (
	formClosed formMode = iota
	formAdd
	formEdit
)

type model struct {
	opts Options

	activeTab int
	width     int
	height    int

	loading bool
	loadErr error

	sections store.Sectioned
	expanded map[string]bool
	cursor   int

	mode       formMode
	editID     string
	inputs     []textinput.Model
	focusField int

	status       string
	statusIsErr  bool
	statusExpiry time.Time

	// Calendar state
	calFocus time.Time
}

func newModel(opts Options) *model {
	expanded := map[string]bool{
		store.SectionToday:     true,
		store.SectionFuture:    false,
		store.SectionOverdue:   true,
		store.SectionCompleted: true,
	}
	return &model{
		opts:     opts,
		loading:  true,
		expanded: expanded,
		calFocus: time.Now(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.fetchCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *model) fetchCmd() tea.Cmd {
	gw := m.opts.Gateway
	timeout := m.opts.Config.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		tasks, err := gw.FetchTasks(ctx)
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return todosLoadedMsg{tasks: tasks}
	}
}

func (m *model) createCmd(localID, text string, due time.Time) tea.Cmd {
	gw := m.opts.Gateway
	timeout := m.opts.Config.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		confirmed, _ := gw.CreateTask(ctx, text, due)
		return createConfirmedMsg{localID: localID, confirmed: confirmed}
	}
}

func (m *model) deleteCmd(id string) tea.Cmd {
	gw := m.opts.Gateway
	timeout := m.opts.Config.RequestTimeout()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return deleteDoneMsg{id: id, err: gw.DeleteTask(ctx, id)}
	}
}

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func statusErr(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, err: true} }
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case todosLoadedMsg:
		m.loading = false
		m.loadErr = nil
		m.opts.Store.Load(msg.tasks)
		m.refresh()
		return m, nil

	case loadFailedMsg:
		// Locally created tasks stay visible; only the remote
		// snapshot is missing.
		m.loading = false
		m.loadErr = msg.err
		m.opts.Logger.Warn("remote fetch failed", "err", msg.err)
		m.refresh()
		return m, nil

	case createConfirmedMsg:
		if !msg.confirmed.Local() {
			m.opts.Store.AdoptID(msg.localID, msg.confirmed.ID)
			m.refresh()
		}
		return m, nil

	case deleteDoneMsg:
		if msg.err != nil {
			// The optimistic removal stands; only report it.
			return m, statusErr("Remote delete failed: " + msg.err.Error())
		}
		return m, nil

	case statusMsg:
		m.status = msg.text
		m.statusIsErr = msg.err
		m.statusExpiry = time.Now().Add(3 * time.Second)
		return m, nil

	case tickMsg:
		if m.status != "" && time.Now().After(m.statusExpiry) {
			m.status = ""
		}
		return m, tickCmd()

	case tea.KeyMsg:
		if m.mode != formClosed {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m *model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab", "right":
		m.activeTab = (m.activeTab + 1) % tabCount
		return m, nil
	case "shift+tab", "left":
		m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		return m, nil
	case "r", "f5":
		m.loading = true
		return m, m.fetchCmd()
	}

	if m.activeTab == tabCalendar {
		return m.updateCalendarKeys(msg)
	}
	return m.updateTaskKeys(msg)
}

func (m *model) updateTaskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.visibleTasks())-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "1", "2", "3", "4":
		idx := int(msg.String()[0] - '1')
		name := store.SectionNames[idx]
		m.expanded[name] = !m.expanded[name]
		m.clampCursor()
	case "a", "n":
		m.openForm(formAdd, task.Task{})
	case "e":
		if t, ok := m.selectedTask(); ok {
			m.openForm(formEdit, t)
		}
	case " ", "enter":
		if t, ok := m.selectedTask(); ok {
			if err := m.opts.Store.ToggleCompleted(t.ID, !t.Completed); err != nil {
				return m, statusErr(err.Error())
			}
			m.refresh()
		}
	case "d", "delete":
		if t, ok := m.selectedTask(); ok {
			if err := m.opts.Store.Delete(t.ID); err != nil {
				return m, statusErr(err.Error())
			}
			m.refresh()
			return m, tea.Batch(m.deleteCmd(t.ID), status("Task deleted"))
		}
	case "c":
		removed := m.opts.Store.ClearCompleted()
		if len(removed) == 0 {
			return m, nil
		}
		m.refresh()
		cmds := make([]tea.Cmd, 0, len(removed)+1)
		for _, id := range removed {
			cmds = append(cmds, m.deleteCmd(id))
		}
		cmds = append(cmds, status(fmt.Sprintf("Cleared %d completed", len(removed))))
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

func (m *model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closeForm()
		return m, status("Cancelled")
	case "tab", "shift+tab", "down", "up":
		m.focusField = (m.focusField + 1) % len(m.inputs)
		for i := range m.inputs {
			m.inputs[i].Blur()
		}
		m.inputs[m.focusField].Focus()
		return m, nil
	case "enter":
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.inputs[m.focusField], cmd = m.inputs[m.focusField].Update(msg)
	return m, cmd
}

func (m *model) submitForm() (tea.Model, tea.Cmd) {
	text := m.inputs[0].Value()
	due, err := task.ParseDue(m.inputs[1].Value(), time.Now())
	if err != nil {
		return m, statusErr(err.Error())
	}

	switch m.mode {
	case formAdd:
		created, err := m.opts.Store.Create(text, due)
		if err != nil {
			return m, statusErr(err.Error())
		}
		m.closeForm()
		m.refresh()
		return m, tea.Batch(
			m.createCmd(created.ID, created.Text, created.Due.Time),
			status("Task added"),
		)
	case formEdit:
		if err := m.opts.Store.Update(m.editID, text, due); err != nil {
			return m, statusErr(err.Error())
		}
		m.closeForm()
		m.refresh()
		return m, status("Task updated")
	}
	m.closeForm()
	return m, nil
}

func (m *model) openForm(mode formMode, t task.Task) {
	m.mode = mode
	m.editID = t.ID
	m.focusField = 0

	text := textinput.New()
	text.Placeholder = "What needs doing?"
	text.CharLimit = 200
	due := textinput.New()
	due.Placeholder = "2006-01-02 15:04"

	if mode == formEdit {
		text.SetValue(t.Text)
		due.SetValue(t.Due.Time.Format("2006-01-02 15:04"))
	} else {
		due.SetValue(time.Now().Add(time.Hour).Format("2006-01-02 15:04"))
	}
	text.Focus()
	m.inputs = []textinput.Model{text, due}
}

func (m *model) closeForm() {
	m.mode = formClosed
	m.editID = ""
	m.inputs = nil
}

// refresh re-derives the sectioned view from the store.
func (m *model) refresh() {
	m.sections = m.opts.Store.Sections()
	m.clampCursor()
}

func (m *model) clampCursor() {
	if n := len(m.visibleTasks()); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// visibleTasks flattens the expanded sections in display order.
func (m *model) visibleTasks() []task.Task {
	var out []task.Task
	for _, name := range store.SectionNames {
		if !m.expanded[name] {
			continue
		}
		out = append(out, m.sections.Get(name)...)
	}
	return out
}

func (m *model) selectedTask() (task.Task, bool) {
	visible := m.visibleTasks()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return task.Task{}, false
	}
	return visible[m.cursor], true
}
