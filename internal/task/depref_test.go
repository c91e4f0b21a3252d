package task

import (
	"encoding/json"
	"testing"
)

func TestParseDepRef(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      DepRef
		parseable bool
	}{
		{"task ref", "5", TaskRef(5), true},
		{"subtask ref", "5.2", SubtaskRef(5, 2), true},
		{"whitespace", " 7 ", TaskRef(7), true},
		{"zero id", "0", DepRef{Raw: "0"}, false},
		{"negative", "-3", DepRef{Raw: "-3"}, false},
		{"garbage", "abc", DepRef{Raw: "abc"}, false},
		{"trailing dot", "5.", DepRef{Raw: "5."}, false},
		{"triple", "1.2.3", DepRef{Raw: "1.2.3"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDepRef(tt.input)
			if got != tt.want {
				t.Errorf("ParseDepRef(%q): got %+v, want %+v", tt.input, got, tt.want)
			}
			if got.IsParseable() != tt.parseable {
				t.Errorf("IsParseable: got %v, want %v", got.IsParseable(), tt.parseable)
			}
		})
	}
}

func TestDepRefJSON(t *testing.T) {
	tests := []struct {
		name string
		ref  DepRef
		want string
	}{
		{"task ref as number", TaskRef(5), "5"},
		{"subtask ref as string", SubtaskRef(5, 2), `"5.2"`},
		{"raw preserved", DepRef{Raw: "bogus"}, `"bogus"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ref)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal: got %s, want %s", data, tt.want)
			}

			var back DepRef
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if back != tt.ref {
				t.Errorf("round trip: got %+v, want %+v", back, tt.ref)
			}
		})
	}
}

func TestDepRefUnmarshalNeverFails(t *testing.T) {
	inputs := []string{`"what.ever"`, `"x"`, `3.7`, `""`}
	for _, in := range inputs {
		var ref DepRef
		if err := json.Unmarshal([]byte(in), &ref); err != nil {
			t.Errorf("Unmarshal(%s): unexpected error %v", in, err)
		}
		if ref.IsParseable() {
			t.Errorf("Unmarshal(%s): expected unparseable ref, got %+v", in, ref)
		}
	}
}

func TestNormalizeSubtaskDeps(t *testing.T) {
	tsk := &Task{
		ID:           4,
		Title:        "parent",
		Status:       StatusPending,
		Dependencies: []DepRef{TaskRef(2)},
		Subtasks: []Subtask{
			{
				ID:     1,
				Title:  "first",
				Status: StatusPending,
				// 2 is below the cutoff so it addresses sibling
				// subtask 4.2; 250 stays a task reference.
				Dependencies: []DepRef{TaskRef(2), TaskRef(250)},
			},
			{
				ID:           2,
				Title:        "second",
				Status:       StatusPending,
				Dependencies: []DepRef{SubtaskRef(4, 1)},
			},
		},
	}

	n := NormalizeSubtaskDeps(tsk)
	if n != 1 {
		t.Fatalf("rewrites: got %d, want 1", n)
	}
	if got := tsk.Subtasks[0].Dependencies[0]; got != SubtaskRef(4, 2) {
		t.Errorf("sibling ref: got %+v, want 4.2", got)
	}
	if got := tsk.Subtasks[0].Dependencies[1]; got != TaskRef(250) {
		t.Errorf("task ref above cutoff: got %+v, want 250", got)
	}
	// Task-level deps are never rewritten.
	if got := tsk.Dependencies[0]; got != TaskRef(2) {
		t.Errorf("task dep: got %+v, want 2", got)
	}
	// Already-explicit refs are left alone.
	if got := tsk.Subtasks[1].Dependencies[0]; got != SubtaskRef(4, 1) {
		t.Errorf("explicit ref: got %+v, want 4.1", got)
	}
}
