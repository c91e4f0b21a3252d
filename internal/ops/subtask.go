package ops

import (
	"github.com/tasknest/tasknest/internal/depgraph"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// AddSubtaskInput is the authored content for a new subtask.
type AddSubtaskInput struct {
	Title        string
	Description  string
	Details      string
	TestStrategy string
	Dependencies []task.DepRef
}

// AddSubtaskResult reports the created subtask.
type AddSubtaskResult struct {
	Parent   int          `json:"parent"`
	Subtask  task.Subtask `json:"subtask"`
	Warnings []string     `json:"warnings,omitempty"`
}

// AddSubtask creates a new subtask under parentID. Invalid dependency
// references are filtered with a warning.
func (s *Service) AddSubtask(tagName string, parentID int, in AddSubtaskInput) (*AddSubtaskResult, error) {
	if in.Title == "" {
		return nil, taskerr.Validationf("subtask title is required")
	}

	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}
	parent := tg.Task(parentID)
	if parent == nil {
		return nil, taskerr.NotFoundf("task %d not found", parentID)
	}

	valid, invalid := depgraph.ValidateDependencies(in.Dependencies, tg)
	st := task.Subtask{
		ID:           parent.NextSubtaskID(),
		Title:        in.Title,
		Description:  in.Description,
		Details:      in.Details,
		TestStrategy: in.TestStrategy,
		Status:       task.StatusPending,
		Dependencies: valid,
	}
	parent.Subtasks = append(parent.Subtasks, st)

	if err := s.save(doc, tg); err != nil {
		return nil, err
	}
	res := &AddSubtaskResult{Parent: parentID, Subtask: st}
	for _, d := range invalid {
		res.Warnings = append(res.Warnings, "dropped dependency "+d.String())
	}
	return res, nil
}

// ConvertToSubtask turns the existing top-level task childID into a
// subtask of parentID. The conversion is rejected outright when it
// would close a dependency cycle, and nothing is modified in that
// case.
func (s *Service) ConvertToSubtask(tagName string, parentID, childID int) (*AddSubtaskResult, error) {
	if parentID == childID {
		return nil, taskerr.Circularf("task %d cannot become its own subtask", parentID)
	}

	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}
	parent := tg.Task(parentID)
	if parent == nil {
		return nil, taskerr.NotFoundf("task %d not found", parentID)
	}
	child := tg.Task(childID)
	if child == nil {
		return nil, taskerr.NotFoundf("task %d not found", childID)
	}
	if len(child.Subtasks) > 0 {
		return nil, taskerr.Validationf("task %d has subtasks of its own and cannot become a subtask", childID)
	}

	if depgraph.DetectCircular(tg, task.TaskRef(parentID), task.TaskRef(childID)) {
		return nil, taskerr.Circularf("converting task %d into a subtask of %d would create a cycle", childID, parentID)
	}

	st := task.Subtask{
		ID:           parent.NextSubtaskID(),
		Title:        child.Title,
		Description:  child.Description,
		Details:      child.Details,
		TestStrategy: child.TestStrategy,
		Status:       child.Status,
		Priority:     child.Priority,
		Dependencies: append([]task.DepRef(nil), child.Dependencies...),
	}
	parent.Subtasks = append(parent.Subtasks, st)

	// Drop the old top-level task and re-point references to it at
	// the parent, which now owns the work.
	kept := tg.Tasks[:0]
	for i := range tg.Tasks {
		if tg.Tasks[i].ID != childID {
			kept = append(kept, tg.Tasks[i])
		}
	}
	tg.Tasks = kept
	oldRef := task.TaskRef(childID)
	newRef := task.SubtaskRef(parentID, st.ID)
	for i := range tg.Tasks {
		t := &tg.Tasks[i]
		retarget(t.Dependencies, oldRef, newRef)
		for j := range t.Subtasks {
			retarget(t.Subtasks[j].Dependencies, oldRef, newRef)
		}
	}

	if err := s.save(doc, tg); err != nil {
		return nil, err
	}
	return &AddSubtaskResult{Parent: parentID, Subtask: st}, nil
}

func retarget(deps []task.DepRef, old, new task.DepRef) {
	for i, d := range deps {
		if d == old {
			deps[i] = new
		}
	}
}

// RemoveSubtaskResult reports one subtask removal.
type RemoveSubtaskResult struct {
	Ref     string `json:"ref"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
	// Promoted is set when the subtask was converted back into a
	// top-level task instead of deleted.
	Promoted int `json:"promoted,omitempty"`
}

// RemoveSubtasks deletes (or, with promote, converts to top-level
// tasks) the subtasks addressed by refs. Absent refs are skipped.
func (s *Service) RemoveSubtasks(tagName string, refs []task.DepRef, promote bool) ([]RemoveSubtaskResult, error) {
	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}

	results := make([]RemoveSubtaskResult, 0, len(refs))
	changed := false
	for _, ref := range refs {
		r := RemoveSubtaskResult{Ref: ref.String()}
		if !ref.IsParseable() || !ref.IsSubtask() {
			r.Skipped, r.Reason = true, "not a subtask id"
			results = append(results, r)
			continue
		}
		parent := tg.Task(ref.Task)
		if parent == nil {
			r.Skipped, r.Reason = true, "task not found"
			results = append(results, r)
			continue
		}
		st := parent.Subtask(ref.Sub)
		if st == nil {
			r.Skipped, r.Reason = true, "subtask not found"
			results = append(results, r)
			continue
		}

		if promote {
			id := tg.NextTaskID()
			tg.Tasks = append(tg.Tasks, task.Task{
				ID:           id,
				Title:        st.Title,
				Description:  st.Description,
				Details:      st.Details,
				TestStrategy: st.TestStrategy,
				Status:       st.Status,
				Priority:     st.Priority,
				Dependencies: append([]task.DepRef(nil), st.Dependencies...),
			})
			r.Promoted = id
		}

		kept := parent.Subtasks[:0]
		for i := range parent.Subtasks {
			if parent.Subtasks[i].ID != ref.Sub {
				kept = append(kept, parent.Subtasks[i])
			}
		}
		parent.Subtasks = kept
		changed = true

		// Drop references to the removed subtask everywhere.
		for i := range tg.Tasks {
			t := &tg.Tasks[i]
			t.Dependencies = dropRef(t.Dependencies, ref)
			for j := range t.Subtasks {
				t.Subtasks[j].Dependencies = dropRef(t.Subtasks[j].Dependencies, ref)
			}
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

func dropRef(deps []task.DepRef, ref task.DepRef) []task.DepRef {
	if len(deps) == 0 {
		return deps
	}
	kept := deps[:0]
	for _, d := range deps {
		if d != ref {
			kept = append(kept, d)
		}
	}
	return kept
}
