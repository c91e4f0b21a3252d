// Package task defines the entity model for the tagged task store:
// tasks, subtasks, dependency references, tags, and the multi-tag
// document persisted to tasks.json.
package task

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"
)

// Status represents a task or subtask status.
type Status string

const (
	StatusPending    Status = "pending"
	StatusDone       Status = "done"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDeferred   Status = "deferred"
	StatusCancelled  Status = "cancelled"

	// StatusCompleted is a legacy alias for done still found in older
	// task files. It is accepted on read and counts as satisfied for
	// dependency checks, but new writes use StatusDone.
	StatusCompleted Status = "completed"
)

// ValidStatuses lists the statuses accepted for new writes.
var ValidStatuses = []Status{
	StatusPending, StatusDone, StatusInProgress,
	StatusReview, StatusDeferred, StatusCancelled,
}

// IsValid reports whether s is an accepted status value.
func (s Status) IsValid() bool {
	if s == StatusCompleted {
		return true
	}
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsSatisfied reports whether a dependency on a task in this status is
// considered met.
func (s Status) IsSatisfied() bool {
	return s == StatusDone || s == StatusCompleted
}

// Priority represents a task priority.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is a known priority. The empty value is
// valid and treated as medium.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow, "":
		return true
	}
	return false
}

// Rank returns the numeric rank used for scheduling: high 3, medium 2,
// low 1. An unset priority ranks as medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// Task is a top-level unit of work. IDs are positive integers unique
// within their tag.
type Task struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Details      string    `json:"details,omitempty"`
	TestStrategy string    `json:"testStrategy,omitempty"`
	Status       Status    `json:"status"`
	Priority     Priority  `json:"priority,omitempty"`
	Dependencies []DepRef  `json:"dependencies"`
	Subtasks     []Subtask `json:"subtasks,omitempty"`

	// ComplexityScore is advisory display data attached by the
	// scheduler. It never affects ordering or selection.
	ComplexityScore float64 `json:"complexityScore,omitempty"`
}

// Subtask is a unit of work owned by exactly one task. IDs are
// 1-based and unique within the owning task.
type Subtask struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Details      string   `json:"details,omitempty"`
	TestStrategy string   `json:"testStrategy,omitempty"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority,omitempty"`
	Dependencies []DepRef `json:"dependencies,omitempty"`
}

// IsZero reports whether the task is empty (has no id).
func (t *Task) IsZero() bool {
	return t.ID == 0
}

// Subtask returns the subtask with the given id, or nil.
func (t *Task) Subtask(id int) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// NextSubtaskID returns the next free 1-based subtask id.
func (t *Task) NextSubtaskID() int {
	max := 0
	for i := range t.Subtasks {
		if t.Subtasks[i].ID > max {
			max = t.Subtasks[i].ID
		}
	}
	return max + 1
}

// Clone returns a deep copy of the task. Mutating the copy never
// mutates the original, including dependency and subtask slices.
func (t Task) Clone() Task {
	c := t
	if t.Dependencies != nil {
		c.Dependencies = append([]DepRef(nil), t.Dependencies...)
	}
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		for i, st := range t.Subtasks {
			c.Subtasks[i] = st.Clone()
		}
	}
	return c
}

// Clone returns a deep copy of the subtask.
func (st Subtask) Clone() Subtask {
	c := st
	if st.Dependencies != nil {
		c.Dependencies = append([]DepRef(nil), st.Dependencies...)
	}
	return c
}

// TagMeta holds per-tag bookkeeping.
type TagMeta struct {
	Created     *time.Time `json:"created,omitempty"`
	Updated     *time.Time `json:"updated,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Tag is an isolated namespace of tasks.
type Tag struct {
	Tasks    []Task   `json:"tasks"`
	Metadata *TagMeta `json:"metadata,omitempty"`
}

// Task returns the task with the given id, or nil.
func (tg *Tag) Task(id int) *Task {
	for i := range tg.Tasks {
		if tg.Tasks[i].ID == id {
			return &tg.Tasks[i]
		}
	}
	return nil
}

// NextTaskID returns the next free task id in this tag.
func (tg *Tag) NextTaskID() int {
	max := 0
	for i := range tg.Tasks {
		if tg.Tasks[i].ID > max {
			max = tg.Tasks[i].ID
		}
	}
	return max + 1
}

// Clone returns a deep copy of the tag. Used for tag copies, which
// must be value-isolated from their source.
func (tg *Tag) Clone() *Tag {
	c := &Tag{}
	if tg.Tasks != nil {
		c.Tasks = make([]Task, len(tg.Tasks))
		for i, t := range tg.Tasks {
			c.Tasks[i] = t.Clone()
		}
	}
	if tg.Metadata != nil {
		m := *tg.Metadata
		c.Metadata = &m
	}
	return c
}

// Touch updates the tag's updated timestamp, creating metadata on
// first use.
func (tg *Tag) Touch(now time.Time) {
	if tg.Metadata == nil {
		tg.Metadata = &TagMeta{Created: &now}
	}
	tg.Metadata.Updated = &now
}

// MasterTag is the default namespace. It always exists and can never
// be deleted or renamed.
const MasterTag = "master"

// reservedTagNames cannot be created, to avoid colliding with the
// default namespace and common aliases for it.
var reservedTagNames = map[string]bool{
	"master":  true,
	"main":    true,
	"default": true,
}

var tagNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsReservedTagName reports whether name collides with the default
// namespace or one of its aliases.
func IsReservedTagName(name string) bool {
	return reservedTagNames[name]
}

// ValidateTagName checks the tag naming rules shared by create,
// rename, and copy.
func ValidateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag name is empty")
	}
	if !tagNameRe.MatchString(name) {
		return fmt.Errorf("invalid tag name %q: only letters, digits, hyphens, and underscores are allowed", name)
	}
	if reservedTagNames[name] {
		return fmt.Errorf("tag name %q is reserved", name)
	}
	return nil
}

// Document is the full multi-tag task file: a mapping of tag name to
// tag. A master tag always exists.
type Document struct {
	Tags map[string]*Tag
}

// NewDocument returns an empty document containing only the master tag.
func NewDocument() *Document {
	return &Document{Tags: map[string]*Tag{
		MasterTag: {Tasks: []Task{}},
	}}
}

// Tag returns the named tag, or nil.
func (d *Document) Tag(name string) *Tag {
	if d == nil || d.Tags == nil {
		return nil
	}
	return d.Tags[name]
}

// TagNames returns all tag names, master first, the rest sorted.
func (d *Document) TagNames() []string {
	if d == nil {
		return nil
	}
	names := make([]string, 0, len(d.Tags))
	for name := range d.Tags {
		if name != MasterTag {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := d.Tags[MasterTag]; ok {
		names = append([]string{MasterTag}, names...)
	}
	return names
}

// EnsureMaster adds an empty master tag if it is missing.
func (d *Document) EnsureMaster() {
	if d.Tags == nil {
		d.Tags = make(map[string]*Tag)
	}
	if _, ok := d.Tags[MasterTag]; !ok {
		d.Tags[MasterTag] = &Tag{Tasks: []Task{}}
	}
}

// MarshalJSON writes the document as a flat object keyed by tag name.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.Tags == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.Tags)
}

// UnmarshalJSON reads the modern multi-tag shape. Legacy
// single-namespace files are detected and upgraded by the store
// before this is called.
func (d *Document) UnmarshalJSON(data []byte) error {
	var tags map[string]*Tag
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	for name, tg := range tags {
		if tg == nil {
			tags[name] = &Tag{Tasks: []Task{}}
		}
	}
	d.Tags = tags
	return nil
}
