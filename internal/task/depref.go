package task

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DepRef is a dependency reference: either an absolute task id
// ("5") or a subtask within a task ("5.2"). Older task files stored
// sibling-subtask references as bare integers below 100; those are
// rewritten to explicit subtask references when the owning document is
// normalized (see NormalizeSubtaskDeps), so the numeric heuristic
// never leaks past the load boundary.
type DepRef struct {
	// Task is the referenced task id for a task reference, or the
	// parent task id for a subtask reference.
	Task int
	// Sub is the subtask id for a subtask reference, zero otherwise.
	Sub int
	// Raw preserves an entry that could not be parsed as either form.
	// Such entries fail validation and are dropped with a warning.
	Raw string
}

// TaskRef builds a reference to a top-level task.
func TaskRef(id int) DepRef {
	return DepRef{Task: id}
}

// SubtaskRef builds a reference to subtask sub of task parent.
func SubtaskRef(parent, sub int) DepRef {
	return DepRef{Task: parent, Sub: sub}
}

// IsSubtask reports whether the reference points at a subtask.
func (d DepRef) IsSubtask() bool {
	return d.Sub != 0
}

// IsParseable reports whether the reference was syntactically valid.
func (d DepRef) IsParseable() bool {
	return d.Raw == "" && d.Task > 0 && d.Sub >= 0
}

// String renders the canonical form: "5" or "5.2". Unparseable
// entries render their raw text.
func (d DepRef) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	if d.IsSubtask() {
		return fmt.Sprintf("%d.%d", d.Task, d.Sub)
	}
	return strconv.Itoa(d.Task)
}

// ParseDepRef parses "5" or "5.2" into a reference. Anything else
// yields a reference with Raw set, which callers flag and drop during
// validation rather than erroring at parse time.
func ParseDepRef(s string) DepRef {
	s = strings.TrimSpace(s)
	if parent, sub, ok := strings.Cut(s, "."); ok {
		p, errP := strconv.Atoi(parent)
		c, errC := strconv.Atoi(sub)
		if errP == nil && errC == nil && p > 0 && c > 0 {
			return SubtaskRef(p, c)
		}
		return DepRef{Raw: s}
	}
	if id, err := strconv.Atoi(s); err == nil && id > 0 {
		return TaskRef(id)
	}
	return DepRef{Raw: s}
}

// MarshalJSON writes task references as JSON numbers (the persisted
// wire shape for task dependency arrays) and subtask references as
// dotted strings.
func (d DepRef) MarshalJSON() ([]byte, error) {
	if d.Raw != "" {
		return json.Marshal(d.Raw)
	}
	if d.IsSubtask() {
		return json.Marshal(d.String())
	}
	return json.Marshal(d.Task)
}

// UnmarshalJSON accepts a JSON number or a string in either form.
// Malformed entries are preserved in Raw instead of failing the whole
// document parse.
func (d *DepRef) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		if n > 0 {
			*d = TaskRef(n)
		} else {
			*d = DepRef{Raw: string(data)}
		}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = ParseDepRef(s)
		return nil
	}
	*d = DepRef{Raw: string(data)}
	return nil
}

// siblingRefCutoff is the legacy convention boundary: inside a
// subtask's dependency list of a single-namespace file, a bare
// integer below this value referred to a sibling subtask rather than
// an absolute task. Tagged files write the same bare number for a
// subtask-to-task edge, so the heuristic runs exactly once, when a
// legacy-shape file is loaded, and never against tagged files.
const siblingRefCutoff = 100

// NormalizeSubtaskDeps rewrites legacy sibling-subtask references in
// t's subtasks to explicit parent.sub form. Only meaningful for tasks
// read from a legacy-shape file. Returns the number of references
// rewritten.
func NormalizeSubtaskDeps(t *Task) int {
	rewritten := 0
	for i := range t.Subtasks {
		deps := t.Subtasks[i].Dependencies
		for j, d := range deps {
			if d.Raw == "" && !d.IsSubtask() && d.Task < siblingRefCutoff {
				deps[j] = SubtaskRef(t.ID, d.Task)
				rewritten++
			}
		}
	}
	return rewritten
}
