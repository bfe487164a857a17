package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taskdeck/taskdeck/internal/task"
)

func (m *model) updateCalendarKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h":
		m.calFocus = m.calFocus.AddDate(0, 0, -1)
	case "l":
		m.calFocus = m.calFocus.AddDate(0, 0, 1)
	case "j", "down":
		m.calFocus = m.calFocus.AddDate(0, 0, 7)
	case "k", "up":
		m.calFocus = m.calFocus.AddDate(0, 0, -7)
	case "n":
		m.calFocus = m.calFocus.AddDate(0, 1, 0)
	case "p":
		m.calFocus = m.calFocus.AddDate(0, -1, 0)
	case "t":
		m.calFocus = time.Now()
	}
	return m, nil
}

// dueMarks counts incomplete tasks due on each day of the given month.
func dueMarks(tasks []task.Task, year int, month time.Month, loc *time.Location) map[int]int {
	marks := make(map[int]int)
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		due := t.Due.Time.In(loc)
		if due.Year() == year && due.Month() == month {
			marks[due.Day()]++
		}
	}
	return marks
}

func (m *model) writeCalendarTab(b *strings.Builder) {
	loc := m.calFocus.Location()
	year, month := m.calFocus.Year(), m.calFocus.Month()
	marks := dueMarks(m.opts.Store.Tasks(), year, month, loc)
	today := time.Now().In(loc)

	b.WriteString(sectionStyle.Render(m.calFocus.Format("January 2006")) + "\n")
	b.WriteString(helpStyle.Render(" Su  Mo  Tu  We  Th  Fr  Sa") + "\n")

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	daysInMonth := first.AddDate(0, 1, -1).Day()

	col := int(first.Weekday())
	b.WriteString(strings.Repeat("    ", col))
	for day := 1; day <= daysInMonth; day++ {
		cell := fmt.Sprintf("%3d", day)
		switch {
		case day == m.calFocus.Day():
			cell = selectedDay.Render(cell)
		case day == today.Day() && month == today.Month() && year == today.Year():
			cell = todayStyle.Render(cell)
		case marks[day] > 0:
			cell = markStyle.Render(cell)
		}
		b.WriteString(cell)
		if marks[day] > 0 {
			b.WriteString(markStyle.Render("•"))
		} else {
			b.WriteString(" ")
		}
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}
	b.WriteString("\n")

	m.writeDayTasks(b)
}

func (m *model) writeDayTasks(b *strings.Builder) {
	day := m.calFocus
	b.WriteString(sectionStyle.Render("Tasks on "+day.Format("Mon, 02 Jan 2006")) + "\n")

	var any bool
	for _, t := range m.opts.Store.Tasks() {
		if !task.SameDay(t.Due.Time, day) {
			continue
		}
		any = true
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}
		line := fmt.Sprintf("  %s %s  %s", check, t.Text, t.Due.Time.Format("15:04"))
		if t.Completed {
			line = doneStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if !any {
		b.WriteString(helpStyle.Render("  nothing due on this day") + "\n")
	}
	b.WriteString("\n")
}
