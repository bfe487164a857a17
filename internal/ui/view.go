package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/taskdeck/taskdeck/internal/store"
	"github.com/taskdeck/taskdeck/internal/task"
)

var (
	tabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	doneStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	overdueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dueStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	statusOKStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	statusErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	markStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	selectedDay    = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Bold(true)
	todayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
)

func (m *model) View() string {
	var b strings.Builder
	m.writeTabs(&b)

	switch m.activeTab {
	case tabTasks:
		m.writeTasksTab(&b)
	case tabCalendar:
		m.writeCalendarTab(&b)
	}

	m.writeStatus(&b)
	m.writeFooter(&b)
	return b.String()
}

func (m *model) writeTabs(b *strings.Builder) {
	labels := []string{"Tasks", "Calendar"}
	rendered := make([]string, len(labels))
	for i, label := range labels {
		if i == m.activeTab {
			rendered[i] = activeTabStyle.Render(label)
		} else {
			rendered[i] = tabStyle.Render(label)
		}
	}
	b.WriteString(strings.Join(rendered, " "))
	b.WriteString("\n\n")
}

func (m *model) writeTasksTab(b *strings.Builder) {
	if m.loading {
		b.WriteString("Loading...\n\n")
		return
	}
	if m.loadErr != nil {
		b.WriteString(statusErrStyle.Render("Could not reach the task server: "+m.loadErr.Error()) + "\n")
		b.WriteString(helpStyle.Render("Showing local tasks only. Press r to retry.") + "\n\n")
	}
	if m.sections.Total() == 0 {
		b.WriteString("No tasks. Press a to add one.\n\n")
		return
	}

	row := 0
	for _, name := range store.SectionNames {
		bucket := m.sections.Get(name)
		marker := "▸"
		if m.expanded[name] {
			marker = "▾"
		}
		b.WriteString(sectionStyle.Render(fmt.Sprintf("%s %s (%d)", marker, name, len(bucket))))
		b.WriteString("\n")
		if !m.expanded[name] {
			continue
		}
		for _, t := range bucket {
			m.writeTaskRow(b, t, row == m.cursor, name)
			row++
		}
	}
	b.WriteString("\n")

	if m.mode != formClosed {
		m.writeForm(b)
	}
}

func (m *model) writeTaskRow(b *strings.Builder, t task.Task, selected bool, section string) {
	check := "[ ]"
	if t.Completed {
		check = "[x]"
	}

	line := fmt.Sprintf("%s %s", check, t.Text)
	switch {
	case t.Completed:
		line = doneStyle.Render(line)
	case section == store.SectionOverdue:
		line = overdueStyle.Render(line)
	}
	due := dueStyle.Render(t.Due.Time.Format("Mon 02 Jan 15:04"))

	prefix := "  "
	if selected {
		prefix = cursorStyle.Render("> ")
	}
	fmt.Fprintf(b, "%s%s  %s\n", prefix, line, due)
}

func (m *model) writeForm(b *strings.Builder) {
	title := "New task"
	if m.mode == formEdit {
		title = "Edit task"
	}
	b.WriteString(sectionStyle.Render(title) + "\n")
	labels := []string{"Task", "Due"}
	for i, in := range m.inputs {
		fmt.Fprintf(b, "  %s: %s\n", labels[i], in.View())
	}
	b.WriteString(helpStyle.Render("  enter save · tab next field · esc cancel") + "\n")
}

func (m *model) writeStatus(b *strings.Builder) {
	if m.status == "" {
		return
	}
	style := statusOKStyle
	if m.statusIsErr {
		style = statusErrStyle
	}
	b.WriteString(style.Render(m.status) + "\n")
}

func (m *model) writeFooter(b *strings.Builder) {
	var help string
	switch {
	case m.mode != formClosed:
		help = "enter save · esc cancel"
	case m.activeTab == tabCalendar:
		help = "h/l day · j/k week · n/p month · tab tasks · q quit"
	default:
		help = "a add · e edit · space done · d delete · c clear · 1-4 sections · r refresh · tab calendar · q quit"
	}
	b.WriteString(helpStyle.Render(help) + "\n")
}
