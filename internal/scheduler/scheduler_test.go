package scheduler

import (
	"testing"

	"github.com/tasknest/tasknest/internal/task"
)

func TestFindNextTaskOrdering(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "done", Status: task.StatusDone},
		{ID: 2, Title: "low", Status: task.StatusPending, Priority: task.PriorityLow,
			Dependencies: []task.DepRef{task.TaskRef(1)}},
		{ID: 3, Title: "high", Status: task.StatusPending, Priority: task.PriorityHigh,
			Dependencies: []task.DepRef{task.TaskRef(1)}},
		{ID: 4, Title: "high more deps", Status: task.StatusPending, Priority: task.PriorityHigh,
			Dependencies: []task.DepRef{task.TaskRef(1), task.TaskRef(3)}},
	}

	next := FindNextTask(tasks, Options{})
	if next == nil {
		t.Fatal("expected a task")
	}
	// 4 is blocked on 3; of the eligible {2, 3}, high priority wins.
	if next.ID != 3 {
		t.Errorf("next: got %d, want 3", next.ID)
	}
}

func TestFindNextTaskDepCountTiebreak(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "done", Status: task.StatusDone},
		{ID: 2, Title: "done", Status: task.StatusDone},
		{ID: 3, Title: "two deps", Status: task.StatusPending, Priority: task.PriorityHigh,
			Dependencies: []task.DepRef{task.TaskRef(1), task.TaskRef(2)}},
		{ID: 4, Title: "one dep", Status: task.StatusPending, Priority: task.PriorityHigh,
			Dependencies: []task.DepRef{task.TaskRef(1)}},
	}

	next := FindNextTask(tasks, Options{})
	if next == nil || next.ID != 4 {
		t.Fatalf("next: got %+v, want task 4", next)
	}
}

func TestFindNextTaskIDTiebreak(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "done", Status: task.StatusDone},
		{ID: 7, Title: "b", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
		{ID: 5, Title: "a", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
	}

	next := FindNextTask(tasks, Options{})
	if next == nil || next.ID != 5 {
		t.Fatalf("next: got %+v, want task 5", next)
	}
}

func TestFindNextTaskStrictEligibility(t *testing.T) {
	tests := []struct {
		name  string
		tasks []task.Task
	}{
		{
			name: "no dependency list",
			tasks: []task.Task{
				{ID: 1, Title: "unsequenced", Status: task.StatusPending},
			},
		},
		{
			name: "empty dependency list",
			tasks: []task.Task{
				{ID: 1, Title: "empty", Status: task.StatusPending, Dependencies: []task.DepRef{}},
			},
		},
		{
			name: "unsatisfied dependency",
			tasks: []task.Task{
				{ID: 1, Title: "blocker", Status: task.StatusPending},
				{ID: 2, Title: "blocked", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
			},
		},
		{
			name: "wrong status",
			tasks: []task.Task{
				{ID: 1, Title: "done", Status: task.StatusDone},
				{ID: 2, Title: "deferred", Status: task.StatusDeferred, Dependencies: []task.DepRef{task.TaskRef(1)}},
			},
		},
		{
			name: "unparseable dependency",
			tasks: []task.Task{
				{ID: 1, Title: "done", Status: task.StatusDone},
				{ID: 2, Title: "garbage dep", Status: task.StatusPending, Dependencies: []task.DepRef{{Raw: "x"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if next := FindNextTask(tt.tasks, Options{}); next != nil {
				t.Errorf("expected nil, got task %d", next.ID)
			}
		})
	}
}

func TestFindNextTaskLegacyCompletedSatisfies(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "legacy done", Status: task.StatusCompleted},
		{ID: 2, Title: "ready", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
	}
	next := FindNextTask(tasks, Options{})
	if next == nil || next.ID != 2 {
		t.Fatalf("next: got %+v, want task 2", next)
	}
}

func TestFindNextTaskSubtaskRefUsesOwningTask(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "parent", Status: task.StatusDone, Subtasks: []task.Subtask{
			{ID: 1, Title: "sub", Status: task.StatusPending},
		}},
		{ID: 2, Title: "waits on subtask", Status: task.StatusPending,
			Dependencies: []task.DepRef{task.SubtaskRef(1, 1)}},
	}
	next := FindNextTask(tasks, Options{})
	if next == nil || next.ID != 2 {
		t.Fatalf("next: got %+v, want task 2", next)
	}
}

func TestFindNextTaskReturnsCopy(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "done", Status: task.StatusDone},
		{ID: 2, Title: "ready", Status: task.StatusInProgress,
			Dependencies: []task.DepRef{task.TaskRef(1)}},
	}
	next := FindNextTask(tasks, Options{})
	if next == nil {
		t.Fatal("expected a task")
	}
	next.Title = "mutated"
	next.Dependencies[0] = task.TaskRef(9)
	if tasks[1].Title != "ready" || tasks[1].Dependencies[0] != task.TaskRef(1) {
		t.Error("returned task shares storage with the input")
	}
}

func TestFindNextTaskIdempotent(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "done", Status: task.StatusDone},
		{ID: 2, Title: "a", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
		{ID: 3, Title: "b", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
	}
	first := FindNextTask(tasks, Options{})
	second := FindNextTask(tasks, Options{})
	if first == nil || second == nil || first.ID != second.ID {
		t.Fatalf("selection not stable: %+v vs %+v", first, second)
	}
}

func TestFindNextTaskWithScore(t *testing.T) {
	tasks := []task.Task{
		{ID: 1, Title: "done", Status: task.StatusDone},
		{ID: 2, Title: "ready", Status: task.StatusPending,
			TestStrategy: "unit tests",
			Dependencies: []task.DepRef{task.TaskRef(1)},
			Subtasks:     []task.Subtask{{ID: 1, Title: "s", Status: task.StatusPending}}},
	}

	plain := FindNextTask(tasks, Options{})
	if plain.ComplexityScore != 0 {
		t.Errorf("score attached without WithScore: %v", plain.ComplexityScore)
	}
	scored := FindNextTask(tasks, Options{WithScore: true})
	if scored.ComplexityScore <= 0 || scored.ComplexityScore > 10 {
		t.Errorf("score out of range: %v", scored.ComplexityScore)
	}
	// The input list itself is never annotated.
	if tasks[1].ComplexityScore != 0 {
		t.Error("input task mutated")
	}
}
