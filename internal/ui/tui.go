// Package ui provides optional terminal interfaces: the read-only
// task board and the lipgloss renderers for command output. The core
// packages return plain data; everything presentational lives here.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tasknest/tasknest/internal/scheduler"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
)

// RunBoard starts the read-only task board for the given task file.
// The board reloads the file every tick, so edits from other
// invocations show up without restarting it.
func RunBoard(ctx context.Context, tasksPath, statePath string) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	model := newBoardModel(tasksPath, statePath)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type boardModel struct {
	tasksPath string
	statePath string

	loadErr      error
	doc          *task.Document
	tagNames     []string
	tagIdx       int
	filter       task.Status
	showHelp     bool
	tickInterval time.Duration
}

type tickMsg time.Time

func newBoardModel(tasksPath, statePath string) *boardModel {
	return &boardModel{
		tasksPath:    tasksPath,
		statePath:    statePath,
		tickInterval: time.Second,
	}
}

func (m *boardModel) Init() tea.Cmd {
	m.refresh()
	return tickCmd(m.tickInterval)
}

func (m *boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			m.refresh()
			return m, nil
		case "tab", "t":
			if len(m.tagNames) > 0 {
				m.tagIdx = (m.tagIdx + 1) % len(m.tagNames)
			}
			return m, nil
		case "h", "?":
			m.showHelp = !m.showHelp
			return m, nil
		case "1":
			m.filter = task.StatusPending
			return m, nil
		case "2":
			m.filter = task.StatusInProgress
			return m, nil
		case "3":
			m.filter = task.StatusReview
			return m, nil
		case "4":
			m.filter = task.StatusDone
			return m, nil
		case "0":
			m.filter = ""
			return m, nil
		}
	case tickMsg:
		m.refresh()
		return m, tickCmd(m.tickInterval)
	}
	return m, nil
}

func (m *boardModel) refresh() {
	doc, _, err := store.Load(m.tasksPath)
	if err != nil {
		m.loadErr = err
		m.doc = nil
		return
	}
	m.loadErr = nil
	m.doc = doc

	names := doc.TagNames()
	if !sameTagNames(names, m.tagNames) {
		// Tag set changed; re-anchor on the current tag. A rename
		// keeps the count, so compare contents, not lengths.
		current := store.LoadState(m.statePath).CurrentTag
		m.tagIdx = 0
		for i, name := range names {
			if name == current {
				m.tagIdx = i
				break
			}
		}
	}
	m.tagNames = names
	if m.tagIdx >= len(m.tagNames) {
		m.tagIdx = 0
	}
}

func sameTagNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *boardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("tasknest") + "\n\n")

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}
	if m.loadErr != nil {
		b.WriteString("Error loading task file:\n")
		b.WriteString("  " + m.loadErr.Error() + "\n\n")
		writeFooter(&b)
		return b.String()
	}
	if m.doc == nil || len(m.tagNames) == 0 {
		b.WriteString("Loading...\n\n")
		writeFooter(&b)
		return b.String()
	}

	tagName := m.tagNames[m.tagIdx]
	tg := m.doc.Tags[tagName]

	b.WriteString(tagLineStyle.Render(fmt.Sprintf("Tag: %s (%d/%d)", tagName, m.tagIdx+1, len(m.tagNames))) + "\n\n")
	writeOverview(&b, tg)
	writeNext(&b, tg)
	writeTasks(&b, tg, m.filter)
	if m.filter != "" {
		b.WriteString(fmt.Sprintf("Filter: %s (0 to clear)\n", m.filter))
	}
	writeFooter(&b)
	return b.String()
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func writeOverview(b *strings.Builder, tg *task.Tag) {
	counts := map[task.Status]int{}
	for i := range tg.Tasks {
		s := tg.Tasks[i].Status
		if s == task.StatusCompleted {
			s = task.StatusDone
		}
		counts[s]++
	}
	b.WriteString(fmt.Sprintf("  Pending: %d  In progress: %d  Review: %d  Done: %d  Deferred: %d  Cancelled: %d\n\n",
		counts[task.StatusPending],
		counts[task.StatusInProgress],
		counts[task.StatusReview],
		counts[task.StatusDone],
		counts[task.StatusDeferred],
		counts[task.StatusCancelled],
	))
}

func writeNext(b *strings.Builder, tg *task.Tag) {
	next := scheduler.FindNextTask(tg.Tasks, scheduler.Options{})
	if next == nil {
		b.WriteString(headerStyle.Render("Next Task") + "\n\n  Nothing eligible.\n\n")
		return
	}
	b.WriteString(headerStyle.Render("Next Task") + "\n\n")
	b.WriteString(fmt.Sprintf("  #%d %s  %s\n\n", next.ID, next.Title, priorityBadge(next.Priority)))
}

func writeTasks(b *strings.Builder, tg *task.Tag, filter task.Status) {
	b.WriteString(headerStyle.Render("Tasks") + "\n\n")
	shown := 0
	for i := range tg.Tasks {
		t := &tg.Tasks[i]
		if filter != "" && t.Status != filter {
			continue
		}
		b.WriteString(formatTaskLine(t) + "\n")
		shown++
		if shown >= 20 {
			b.WriteString(fmt.Sprintf("  ... and %d more\n", remaining(tg, filter, i+1)))
			break
		}
	}
	if shown == 0 {
		b.WriteString("  (none)\n")
	}
	b.WriteString("\n")
}

func remaining(tg *task.Tag, filter task.Status, from int) int {
	n := 0
	for i := from; i < len(tg.Tasks); i++ {
		if filter == "" || tg.Tasks[i].Status == filter {
			n++
		}
	}
	return n
}

func formatTaskLine(t *task.Task) string {
	line := fmt.Sprintf("  %s #%-3d %s %s", statusIcon(t.Status), t.ID, priorityBadge(t.Priority), t.Title)
	if len(t.Subtasks) > 0 {
		done := 0
		for i := range t.Subtasks {
			if t.Subtasks[i].Status.IsSatisfied() {
				done++
			}
		}
		line += fmt.Sprintf(" [%d/%d]", done, len(t.Subtasks))
	}
	return line
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keys\n\n")
	b.WriteString("  tab/t    next tag\n")
	b.WriteString("  1-4      filter pending/in-progress/review/done\n")
	b.WriteString("  0        clear filter\n")
	b.WriteString("  r/F5     reload\n")
	b.WriteString("  h/?      toggle help\n")
	b.WriteString("  q        quit\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString(footerStyle.Render("tab: tag  1-4: filter  r: reload  h: help  q: quit") + "\n")
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
