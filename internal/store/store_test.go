package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

func TestRoundTripKeepsSubtaskTaskDeps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	// A subtask depending on an absolute task serializes as a bare
	// number, the same wire form the legacy sibling convention used.
	// In a tagged file it must survive reload as a task reference.
	doc := task.NewDocument()
	doc.Tags[task.MasterTag].Tasks = []task.Task{
		{
			ID:           1,
			Title:        "first",
			Status:       task.StatusPending,
			Dependencies: []task.DepRef{},
			Subtasks: []task.Subtask{
				{
					ID:           1,
					Title:        "sub",
					Status:       task.StatusPending,
					Dependencies: []task.DepRef{task.TaskRef(2)},
				},
			},
		},
		{
			ID:           2,
			Title:        "second",
			Status:       task.StatusPending,
			Dependencies: []task.DepRef{},
		},
	}

	if err := Save(path, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, info, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if info.NormalizedRefs != 0 {
		t.Errorf("NormalizedRefs = %d, want 0 for a tagged file", info.NormalizedRefs)
	}

	deps := loaded.Tag(task.MasterTag).Task(1).Subtasks[0].Dependencies
	if len(deps) != 1 {
		t.Fatalf("got %d deps, want 1", len(deps))
	}
	if deps[0] != task.TaskRef(2) {
		t.Errorf("dependency = %v, want task ref 2", deps[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	doc, info, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !info.Missing {
		t.Error("Missing not reported")
	}
	if doc.Tag(task.MasterTag) == nil {
		t.Error("default document has no master tag")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("Load created the file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")

	doc := task.NewDocument()
	doc.Tags[task.MasterTag].Tasks = []task.Task{
		{
			ID:           1,
			Title:        "first",
			Status:       task.StatusDone,
			Priority:     task.PriorityHigh,
			Dependencies: []task.DepRef{},
		},
		{
			ID:           2,
			Title:        "second",
			Status:       task.StatusPending,
			Dependencies: []task.DepRef{task.TaskRef(1), task.SubtaskRef(1, 2)},
		},
	}

	if err := Save(path, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, info, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if info.Legacy || info.Missing {
		t.Errorf("unexpected load info: %+v", info)
	}
	tg := loaded.Tag(task.MasterTag)
	if tg == nil || len(tg.Tasks) != 2 {
		t.Fatal("tasks did not survive the round trip")
	}
	if tg.Tasks[0].Dependencies == nil {
		t.Error("empty dependency list became nil")
	}
	if tg.Tasks[1].Dependencies[1] != task.SubtaskRef(1, 2) {
		t.Errorf("subtask ref: got %+v", tg.Tasks[1].Dependencies[1])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n") {
		t.Error("file does not end with a newline")
	}
	if !strings.Contains(string(data), "\"1.2\"") {
		t.Error("subtask reference not serialized as a dotted string")
	}
}

func TestLoadLegacyShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	legacy := `{
  "tasks": [
    {"id": 1, "title": "old", "status": "done"},
    {"id": 2, "title": "older", "status": "pending", "subtasks": [
      {"id": 1, "title": "sub", "status": "pending", "dependencies": [2]},
      {"id": 2, "title": "sub2", "status": "done"}
    ]}
  ]
}`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatal(err)
	}

	doc, info, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !info.Legacy {
		t.Error("legacy shape not reported")
	}
	tg := doc.Tag(task.MasterTag)
	if tg == nil || len(tg.Tasks) != 2 {
		t.Fatal("legacy tasks not presented under master")
	}

	// The bare sibling reference inside a subtask is normalized to an
	// explicit dotted reference.
	if info.NormalizedRefs != 1 {
		t.Errorf("NormalizedRefs: got %d, want 1", info.NormalizedRefs)
	}
	got := tg.Tasks[1].Subtasks[0].Dependencies[0]
	if got != task.SubtaskRef(2, 2) {
		t.Errorf("normalized ref: got %+v, want 2.2", got)
	}

	// Reading must not rewrite the file.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != legacy {
		t.Error("Load rewrote the file")
	}

	// The first save upgrades to the multi-tag shape.
	if err := Save(path, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	upgraded, info2, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if info2.Legacy {
		t.Error("file still legacy after save")
	}
	if upgraded.Tag(task.MasterTag) == nil {
		t.Error("master tag lost in upgrade")
	}
}

func TestLoadParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, _, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if taskerr.CodeOf(err) != taskerr.CodeParse {
		t.Errorf("code: got %s, want %s", taskerr.CodeOf(err), taskerr.CodeParse)
	}
}

func TestSaveAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.json")

	if err := Save(path, task.NewDocument()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("expected only tasks.json, got %v", names)
	}
}
