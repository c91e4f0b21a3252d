// Package scheduler selects the single best next task from a task
// list. It is pure: no IO, no mutation of its input beyond the
// requested display-score attachment, and identical input always
// yields the identical choice.
package scheduler

import (
	"sort"

	"github.com/tasknest/tasknest/internal/task"
)

// Options tunes FindNextTask.
type Options struct {
	// WithScore attaches an advisory complexity score to the returned
	// task for display. The score never affects ordering.
	WithScore bool
}

// FindNextTask returns a copy of the task to work on next, or nil
// when nothing is eligible.
//
// Eligibility is strict: a task qualifies only when its status is
// pending or in-progress AND it carries a non-empty dependency list
// in which every reference is already done. A task with no
// dependency list at all is not eligible; making work explicitly
// sequenced is the contract, so unsequenced tasks never jump the
// queue.
//
// The eligible set is ordered by priority rank descending, then
// dependency count ascending, then id ascending. The id tiebreak
// makes the order total, so repeated calls on unchanged input return
// the same task.
func FindNextTask(tasks []task.Task, opts Options) *task.Task {
	completed := make(map[int]bool, len(tasks))
	for i := range tasks {
		if tasks[i].Status.IsSatisfied() {
			completed[tasks[i].ID] = true
		}
	}

	var eligible []*task.Task
	for i := range tasks {
		t := &tasks[i]
		if t.Status != task.StatusPending && t.Status != task.StatusInProgress {
			continue
		}
		if len(t.Dependencies) == 0 {
			continue
		}
		if allSatisfied(t.Dependencies, completed) {
			eligible = append(eligible, t)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		if la, lb := len(a.Dependencies), len(b.Dependencies); la != lb {
			return la < lb
		}
		return a.ID < b.ID
	})

	next := eligible[0].Clone()
	if opts.WithScore {
		next.ComplexityScore = complexityScore(&next)
	}
	return &next
}

// allSatisfied reports whether every dependency resolves to a
// completed task. Subtask references count the owning task's
// completion; a done parent implies its subtasks are no longer
// blocking.
func allSatisfied(deps []task.DepRef, completed map[int]bool) bool {
	for _, d := range deps {
		if !d.IsParseable() {
			return false
		}
		if !completed[d.Task] {
			return false
		}
	}
	return true
}

// complexityScore is a rough display-only estimate derived from the
// amount of structure a task carries. It is attached on request and
// is never an input to selection.
func complexityScore(t *task.Task) float64 {
	score := 1.0
	score += float64(len(t.Dependencies)) * 0.5
	score += float64(len(t.Subtasks)) * 0.75
	if len(t.Details) > 400 {
		score += 1
	}
	if t.TestStrategy != "" {
		score += 0.5
	}
	if score > 10 {
		score = 10
	}
	return score
}
