// Package ops implements the read-modify-write operations commands
// run against the task document. Each operation is one full cycle:
// load the whole document, mutate one tag's task list, persist the
// whole document. Expected-absence conditions come back as skipped
// records in the result, not errors; precondition violations are
// typed errors and leave the file untouched.
package ops

import (
	"time"

	"github.com/tasknest/tasknest/internal/depgraph"
	"github.com/tasknest/tasknest/internal/scheduler"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// Service binds operations to a project's task file.
type Service struct {
	TasksPath  string
	SchemaPath string

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates an operation service for the given task file.
func NewService(tasksPath, schemaPath string) *Service {
	return &Service{TasksPath: tasksPath, SchemaPath: schemaPath, now: time.Now}
}

// load reads the document and resolves the target tag.
func (s *Service) load(tagName string) (*task.Document, *task.Tag, error) {
	doc, _, err := store.Load(s.TasksPath)
	if err != nil {
		return nil, nil, err
	}
	tg := doc.Tag(tagName)
	if tg == nil {
		return nil, nil, taskerr.NotFoundf("tag %q not found", tagName)
	}
	return doc, tg, nil
}

// save touches the tag and persists the whole document.
func (s *Service) save(doc *task.Document, tg *task.Tag) error {
	tg.Touch(s.now().UTC())
	return store.Save(s.TasksPath, doc)
}

// AddTaskInput is the authored content for a new task. AI-assisted
// callers generate this before handing it over; the store never calls
// the generator itself.
type AddTaskInput struct {
	Title        string
	Description  string
	Details      string
	TestStrategy string
	Priority     task.Priority
	Dependencies []task.DepRef
}

// AddTaskResult reports the created task and any dependency
// references that were dropped.
type AddTaskResult struct {
	Task     task.Task             `json:"task"`
	Tag      string                `json:"tag"`
	Dropped  []depgraph.InvalidDep `json:"-"`
	Warnings []string              `json:"warnings,omitempty"`
}

// AddTask appends a new task to the tag. Invalid dependency
// references are filtered with a warning, never kept silently.
func (s *Service) AddTask(tagName string, in AddTaskInput) (*AddTaskResult, error) {
	if in.Title == "" {
		return nil, taskerr.Validationf("task title is required")
	}
	if !in.Priority.IsValid() {
		return nil, taskerr.Validationf("invalid priority %q", in.Priority)
	}

	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}

	valid, invalid := depgraph.ValidateDependencies(in.Dependencies, tg)
	if valid == nil {
		valid = []task.DepRef{}
	}
	t := task.Task{
		ID:           tg.NextTaskID(),
		Title:        in.Title,
		Description:  in.Description,
		Details:      in.Details,
		TestStrategy: in.TestStrategy,
		Status:       task.StatusPending,
		Priority:     in.Priority,
		Dependencies: valid,
	}
	tg.Tasks = append(tg.Tasks, t)

	if err := s.save(doc, tg); err != nil {
		return nil, err
	}
	res := &AddTaskResult{Task: t, Tag: tagName, Dropped: invalid}
	for _, d := range invalid {
		res.Warnings = append(res.Warnings, "dropped dependency "+d.String())
	}
	return res, nil
}

// RemoveTaskResult reports one removal. Absent ids are recorded as
// skipped rather than failing the batch.
type RemoveTaskResult struct {
	ID      int    `json:"id"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	// Unblocked lists tasks whose dependency on the removed task was
	// dropped.
	Unblocked []string `json:"unblocked,omitempty"`
}

// RemoveTasks deletes the given task ids from the tag and strips
// dangling references to them from every remaining task and subtask.
func (s *Service) RemoveTasks(tagName string, ids []int) ([]RemoveTaskResult, error) {
	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}

	results := make([]RemoveTaskResult, 0, len(ids))
	removed := make(map[int]bool, len(ids))
	for _, id := range ids {
		if tg.Task(id) == nil {
			results = append(results, RemoveTaskResult{ID: id, Skipped: true, Reason: "not found"})
			continue
		}
		removed[id] = true
		results = append(results, RemoveTaskResult{ID: id})
	}
	if len(removed) == 0 {
		return results, nil
	}

	kept := tg.Tasks[:0]
	for i := range tg.Tasks {
		if !removed[tg.Tasks[i].ID] {
			kept = append(kept, tg.Tasks[i])
		}
	}
	tg.Tasks = kept

	// Strip references to the removed ids.
	unblockedBy := make(map[int][]string)
	for i := range tg.Tasks {
		t := &tg.Tasks[i]
		t.Dependencies = stripRemoved(t.Dependencies, removed, task.TaskRef(t.ID).String(), unblockedBy)
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			owner := task.SubtaskRef(t.ID, st.ID).String()
			st.Dependencies = stripRemoved(st.Dependencies, removed, owner, unblockedBy)
		}
	}
	for i := range results {
		if !results[i].Skipped {
			results[i].Unblocked = unblockedBy[results[i].ID]
		}
	}

	if err := s.save(doc, tg); err != nil {
		return nil, err
	}
	return results, nil
}

func stripRemoved(deps []task.DepRef, removed map[int]bool, owner string, unblockedBy map[int][]string) []task.DepRef {
	if len(deps) == 0 {
		return deps
	}
	kept := deps[:0]
	for _, d := range deps {
		if d.IsParseable() && removed[d.Task] {
			unblockedBy[d.Task] = append(unblockedBy[d.Task], owner)
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// SetStatusResult reports one status change.
type SetStatusResult struct {
	Ref     string      `json:"ref"`
	From    task.Status `json:"from,omitempty"`
	To      task.Status `json:"to"`
	Skipped bool        `json:"skipped,omitempty"`
	Reason  string      `json:"reason,omitempty"`
}

// SetStatus updates the status of tasks and subtasks addressed by
// refs ("5" or "5.2"). Unknown refs are skipped, not fatal.
func (s *Service) SetStatus(tagName string, refs []task.DepRef, status task.Status) ([]SetStatusResult, error) {
	if !status.IsValid() || status == task.StatusCompleted {
		return nil, taskerr.Validationf("invalid status %q", status)
	}

	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}

	results := make([]SetStatusResult, 0, len(refs))
	changed := false
	for _, ref := range refs {
		r := SetStatusResult{Ref: ref.String(), To: status}
		switch {
		case !ref.IsParseable():
			r.Skipped, r.Reason = true, "not a task or subtask id"
		case ref.IsSubtask():
			t := tg.Task(ref.Task)
			if t == nil {
				r.Skipped, r.Reason = true, "task not found"
				break
			}
			st := t.Subtask(ref.Sub)
			if st == nil {
				r.Skipped, r.Reason = true, "subtask not found"
				break
			}
			r.From = st.Status
			st.Status = status
			changed = true
		default:
			t := tg.Task(ref.Task)
			if t == nil {
				r.Skipped, r.Reason = true, "task not found"
				break
			}
			r.From = t.Status
			t.Status = status
			changed = true
		}
		results = append(results, r)
	}

	if changed {
		if err := s.save(doc, tg); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// NextTask runs the scheduler over the tag's tasks.
func (s *Service) NextTask(tagName string, withScore bool) (*task.Task, error) {
	_, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}
	return scheduler.FindNextTask(tg.Tasks, scheduler.Options{WithScore: withScore}), nil
}

// Validate checks the document against the schema and structural
// invariants without modifying anything.
func (s *Service) Validate() (*task.ValidationResult, error) {
	doc, _, err := store.Load(s.TasksPath)
	if err != nil {
		return nil, err
	}
	return doc.Validate(task.ValidationOptions{SchemaPath: s.SchemaPath}), nil
}
