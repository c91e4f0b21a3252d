package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tasknest/tasknest/internal/tags"
	"github.com/tasknest/tasknest/internal/task"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	tagLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	footerStyle  = lipgloss.NewStyle().Faint(true)

	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	doneStyle   = lipgloss.NewStyle().Faint(true)
)

func priorityBadge(p task.Priority) string {
	switch p {
	case task.PriorityHigh:
		return highStyle.Render("high")
	case task.PriorityLow:
		return lowStyle.Render("low")
	default:
		return mediumStyle.Render("med")
	}
}

func statusIcon(s task.Status) string {
	switch s {
	case task.StatusDone, task.StatusCompleted:
		return doneStyle.Render("✓")
	case task.StatusInProgress:
		return "▶"
	case task.StatusReview:
		return "◎"
	case task.StatusDeferred:
		return "◌"
	case task.StatusCancelled:
		return doneStyle.Render("✗")
	default:
		return "·"
	}
}

// RenderTaskList renders the tasks of one tag for the list command.
func RenderTaskList(tagName string, tasks []task.Task, withSubtasks bool) string {
	var b strings.Builder
	b.WriteString(tagLineStyle.Render("Tag: "+tagName) + "\n")
	if len(tasks) == 0 {
		b.WriteString("  (no tasks)\n")
		return b.String()
	}
	for i := range tasks {
		t := &tasks[i]
		b.WriteString(formatTaskLine(t))
		if len(t.Dependencies) > 0 {
			refs := make([]string, len(t.Dependencies))
			for j, d := range t.Dependencies {
				refs[j] = d.String()
			}
			b.WriteString(footerStyle.Render("  deps: " + strings.Join(refs, ", ")))
		}
		b.WriteString("\n")
		if withSubtasks {
			for j := range t.Subtasks {
				st := &t.Subtasks[j]
				b.WriteString(fmt.Sprintf("      %s %d.%d %s\n", statusIcon(st.Status), t.ID, st.ID, st.Title))
			}
		}
	}
	return b.String()
}

// RenderNextTask renders the scheduler's pick for the next command.
func RenderNextTask(t *task.Task) string {
	if t == nil {
		return "No eligible task. Tasks need a satisfied, non-empty dependency list to be scheduled.\n"
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Next: #%d %s", t.ID, t.Title)) + "\n")
	b.WriteString(fmt.Sprintf("  Priority: %s  Status: %s\n", priorityBadge(t.Priority), t.Status))
	if len(t.Dependencies) > 0 {
		refs := make([]string, len(t.Dependencies))
		for i, d := range t.Dependencies {
			refs[i] = d.String()
		}
		b.WriteString("  Dependencies: " + strings.Join(refs, ", ") + "\n")
	}
	if t.ComplexityScore > 0 {
		b.WriteString(fmt.Sprintf("  Complexity: %.1f/10 (display only)\n", t.ComplexityScore))
	}
	if t.Description != "" {
		b.WriteString("  " + t.Description + "\n")
	}
	return b.String()
}

// RenderTagList renders the tags table.
func RenderTagList(infos []tags.Info) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tags") + "\n")
	for _, info := range infos {
		marker := " "
		if info.Current {
			marker = "*"
		}
		line := fmt.Sprintf("  %s %-20s %3d tasks, %d done", marker, info.Name, info.TaskCount, info.DoneCount)
		if info.Description != "" {
			line += "  " + footerStyle.Render(info.Description)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderValidation renders a validation result.
func RenderValidation(result *task.ValidationResult) string {
	var b strings.Builder
	for _, w := range result.Warnings {
		b.WriteString(mediumStyle.Render("warning: ") + w + "\n")
	}
	if result.Valid {
		b.WriteString(lowStyle.Render("✓ task file is valid") + "\n")
		return b.String()
	}
	b.WriteString(highStyle.Render("✗ task file is invalid") + "\n")
	for _, err := range result.Errors {
		b.WriteString("  " + err.Error() + "\n")
	}
	return b.String()
}
