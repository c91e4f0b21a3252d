package depgraph

import (
	"testing"

	"github.com/tasknest/tasknest/internal/task"
)

func graphTag() *task.Tag {
	// 1 <- 2 <- 3, with 3 also depending on 1 directly, plus a
	// subtask chain under 4.
	return &task.Tag{Tasks: []task.Task{
		{ID: 1, Title: "one", Status: task.StatusDone},
		{ID: 2, Title: "two", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
		{ID: 3, Title: "three", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(2), task.TaskRef(1)}},
		{ID: 4, Title: "four", Status: task.StatusPending, Subtasks: []task.Subtask{
			{ID: 1, Title: "s1", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(3)}},
			{ID: 2, Title: "s2", Status: task.StatusPending, Dependencies: []task.DepRef{task.SubtaskRef(4, 1)}},
		}},
	}}
}

func TestValidateDependencies(t *testing.T) {
	tg := graphTag()
	candidates := []task.DepRef{
		task.TaskRef(1),
		task.TaskRef(1),          // duplicate
		task.TaskRef(99),         // dangling task
		task.SubtaskRef(4, 7),    // dangling subtask
		{Raw: "bogus"},           // unparseable
		task.SubtaskRef(4, 2),    // valid subtask
	}

	valid, invalid := ValidateDependencies(candidates, tg)
	if len(valid) != 2 {
		t.Fatalf("valid: got %v", valid)
	}
	if valid[0] != task.TaskRef(1) || valid[1] != task.SubtaskRef(4, 2) {
		t.Errorf("valid refs: got %v", valid)
	}
	if len(invalid) != 4 {
		t.Fatalf("invalid: got %v", invalid)
	}
}

func TestDetectCircular(t *testing.T) {
	tests := []struct {
		name   string
		parent task.DepRef
		child  task.DepRef
		want   bool
	}{
		// Adding "1 depends on 3" while 3 already reaches 1 closes a
		// cycle: the new edge runs child -> parent.
		{"closes cycle", task.TaskRef(3), task.TaskRef(1), true},
		{"self", task.TaskRef(2), task.TaskRef(2), true},
		{"forward edge ok", task.TaskRef(1), task.TaskRef(3), false},
		{"unrelated", task.TaskRef(1), task.TaskRef(4), false},
		{"subtask cycle", task.SubtaskRef(4, 2), task.SubtaskRef(4, 1), true},
		{"subtask ok", task.SubtaskRef(4, 1), task.SubtaskRef(4, 2), false},
	}

	tg := graphTag()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectCircular(tg, tt.parent, tt.child)
			if got != tt.want {
				t.Errorf("DetectCircular(%s, %s): got %v, want %v", tt.parent, tt.child, got, tt.want)
			}
		})
	}
}

func TestDetectCircularSurvivesExistingCycle(t *testing.T) {
	// A pre-existing cycle between 1 and 2 must not hang traversal.
	tg := &task.Tag{Tasks: []task.Task{
		{ID: 1, Title: "one", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(2)}},
		{ID: 2, Title: "two", Status: task.StatusPending, Dependencies: []task.DepRef{task.TaskRef(1)}},
		{ID: 3, Title: "three", Status: task.StatusPending},
	}}
	if DetectCircular(tg, task.TaskRef(3), task.TaskRef(1)) {
		t.Error("edge into the cycle from outside should not be flagged")
	}
	if !DetectCircular(tg, task.TaskRef(1), task.TaskRef(2)) {
		t.Error("edge closing the cycle should be flagged")
	}
}

func TestBuildSubgraph(t *testing.T) {
	tg := graphTag()
	sg := BuildSubgraph(tg, task.TaskRef(3), 0)
	if sg == nil {
		t.Fatal("nil subgraph for existing root")
	}

	// 3 -> {1, 2} -> done; 1 is reached at depth 1 even though it is
	// also reachable at depth 2 through 2.
	wantDepth := map[string]int{"3": 0, "1": 1, "2": 1}
	if len(sg.Depth) != len(wantDepth) {
		t.Fatalf("Depth: got %v, want %v", sg.Depth, wantDepth)
	}
	for k, v := range wantDepth {
		if sg.Depth[k] != v {
			t.Errorf("Depth[%s]: got %d, want %d", k, sg.Depth[k], v)
		}
	}

	// Breadth-first order with ties broken by id.
	wantOrder := []string{"3", "1", "2"}
	for i, ref := range sg.Order {
		if ref.String() != wantOrder[i] {
			t.Fatalf("Order: got %v, want %v", sg.Order, wantOrder)
		}
	}
}

func TestBuildSubgraphDepthCap(t *testing.T) {
	tg := graphTag()
	sg := BuildSubgraph(tg, task.SubtaskRef(4, 2), 1)
	// 4.2 -> 4.1 stops there; 3 is two levels down.
	if _, ok := sg.Depth["4.1"]; !ok {
		t.Error("direct dependency missing at depth 1")
	}
	if _, ok := sg.Depth["3"]; ok {
		t.Error("depth cap not applied")
	}
}

func TestBuildSubgraphMissingRoot(t *testing.T) {
	if sg := BuildSubgraph(graphTag(), task.TaskRef(99), 0); sg != nil {
		t.Errorf("expected nil subgraph, got %+v", sg)
	}
}

func TestCleanup(t *testing.T) {
	tg := graphTag()
	tsk := tg.Task(2)
	tsk.Dependencies = append(tsk.Dependencies,
		task.TaskRef(2),  // self
		task.TaskRef(1),  // duplicate
		task.TaskRef(42), // dangling
	)

	report := Cleanup(tg)
	if report.Total() != 3 {
		t.Fatalf("Total: got %d, want 3", report.Total())
	}
	if len(tsk.Dependencies) != 1 || tsk.Dependencies[0] != task.TaskRef(1) {
		t.Errorf("deps after cleanup: got %v", tsk.Dependencies)
	}

	// A second pass finds nothing.
	again := Cleanup(tg)
	if again.Total() != 0 {
		t.Errorf("second pass removed %d", again.Total())
	}
	if again.Removed != nil {
		t.Error("empty report should have nil Removed")
	}
}
