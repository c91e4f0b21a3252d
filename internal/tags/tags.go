// Package tags implements tag lifecycle operations: create, switch,
// rename, copy, and delete, plus current-tag resolution and the
// optional VCS-branch to tag mapping.
//
// Every operation is one read-modify-write pass over the task
// document and, where needed, the side state. There is no lock;
// concurrent invocations race and the last writer wins.
package tags

import (
	"time"

	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// Context binds the lifecycle operations to a project's file pair.
type Context struct {
	TasksPath string
	StatePath string
	// ProjectRoot anchors VCS lookups. Branch operations no-op when
	// it is not inside a git work tree.
	ProjectRoot string

	// now is injectable for tests.
	now func() time.Time
}

// NewContext creates a tag context for the given file locations.
func NewContext(tasksPath, statePath, projectRoot string) *Context {
	return &Context{
		TasksPath:   tasksPath,
		StatePath:   statePath,
		ProjectRoot: projectRoot,
		now:         time.Now,
	}
}

// validateName applies the shared naming rules and maps the failure
// onto the error taxonomy: reserved names get their own code so the
// caller can distinguish "pick another name" from "fix the syntax".
func validateName(name string) error {
	if err := task.ValidateTagName(name); err != nil {
		if task.IsReservedTagName(name) {
			return taskerr.Reservedf("%v", err)
		}
		return taskerr.Validationf("%v", err)
	}
	return nil
}

// Current resolves the tag commands implicitly target. Missing or
// unreadable side state resolves to master, never an error.
func (c *Context) Current() string {
	return store.LoadState(c.StatePath).CurrentTag
}

// Info describes one tag for listing.
type Info struct {
	Name        string `json:"name"`
	TaskCount   int    `json:"taskCount"`
	DoneCount   int    `json:"doneCount"`
	Current     bool   `json:"current"`
	Description string `json:"description,omitempty"`
}

// List returns every tag with task counts, master first.
func (c *Context) List() ([]Info, error) {
	doc, _, err := store.Load(c.TasksPath)
	if err != nil {
		return nil, err
	}
	current := c.Current()

	infos := make([]Info, 0, len(doc.Tags))
	for _, name := range doc.TagNames() {
		tg := doc.Tags[name]
		info := Info{Name: name, Current: name == current}
		info.TaskCount = len(tg.Tasks)
		for i := range tg.Tasks {
			if tg.Tasks[i].Status.IsSatisfied() {
				info.DoneCount++
			}
		}
		if tg.Metadata != nil {
			info.Description = tg.Metadata.Description
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// CreateOptions controls Create.
type CreateOptions struct {
	// CopyFrom names a source tag to deep-copy tasks from.
	CopyFrom string
	// CopyFromCurrent copies from the currently active tag.
	CopyFromCurrent bool
	Description     string
}

// CreateResult reports what Create did.
type CreateResult struct {
	Name       string `json:"name"`
	CopiedFrom string `json:"copiedFrom,omitempty"`
	TaskCount  int    `json:"taskCount"`
}

// Create adds a new tag, empty or deep-copied from a source tag. A
// copy is value-isolated: mutating a task in the new tag never
// mutates the source tag's task of the same id.
func (c *Context) Create(name string, opts CreateOptions) (*CreateResult, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	doc, _, err := store.Load(c.TasksPath)
	if err != nil {
		return nil, err
	}
	if doc.Tag(name) != nil {
		return nil, taskerr.Validationf("tag %q already exists", name)
	}

	source := opts.CopyFrom
	if opts.CopyFromCurrent {
		source = c.Current()
	}

	now := c.now().UTC()
	var tg *task.Tag
	if source != "" {
		src := doc.Tag(source)
		if src == nil {
			return nil, taskerr.NotFoundf("source tag %q not found", source)
		}
		tg = src.Clone()
	} else {
		tg = &task.Tag{Tasks: []task.Task{}}
	}
	tg.Metadata = &task.TagMeta{Created: &now, Updated: &now, Description: opts.Description}

	doc.Tags[name] = tg
	if err := store.Save(c.TasksPath, doc); err != nil {
		return nil, err
	}
	return &CreateResult{Name: name, CopiedFrom: source, TaskCount: len(tg.Tasks)}, nil
}

// SwitchResult reports a tag switch.
type SwitchResult struct {
	Name     string `json:"name"`
	Previous string `json:"previous"`
}

// Switch makes name the current tag.
func (c *Context) Switch(name string) (*SwitchResult, error) {
	doc, _, err := store.Load(c.TasksPath)
	if err != nil {
		return nil, err
	}
	if doc.Tag(name) == nil {
		return nil, taskerr.NotFoundf("tag %q not found", name)
	}

	st := store.LoadState(c.StatePath)
	prev := st.CurrentTag
	st.SwitchTag(name, c.now().UTC())
	if err := store.SaveState(c.StatePath, st); err != nil {
		return nil, err
	}
	return &SwitchResult{Name: name, Previous: prev}, nil
}

// RenameResult reports a tag rename.
type RenameResult struct {
	From       string `json:"from"`
	To         string `json:"to"`
	WasCurrent bool   `json:"wasCurrent"`
}

// Rename renames a tag. Renaming master is forbidden. When the
// renamed tag is active, the current-tag state is re-pointed as part
// of the same operation. On failure neither tag is modified.
func (c *Context) Rename(old, new string) (*RenameResult, error) {
	if old == task.MasterTag {
		return nil, taskerr.Reservedf("the %q tag cannot be renamed", task.MasterTag)
	}
	if err := validateName(new); err != nil {
		return nil, err
	}

	doc, _, err := store.Load(c.TasksPath)
	if err != nil {
		return nil, err
	}
	tg := doc.Tag(old)
	if tg == nil {
		return nil, taskerr.NotFoundf("tag %q not found", old)
	}
	if doc.Tag(new) != nil {
		return nil, taskerr.Validationf("tag %q already exists", new)
	}

	tg.Touch(c.now().UTC())
	doc.Tags[new] = tg
	delete(doc.Tags, old)
	if err := store.Save(c.TasksPath, doc); err != nil {
		return nil, err
	}

	st := store.LoadState(c.StatePath)
	wasCurrent := st.CurrentTag == old
	st.RenameTagRefs(old, new)
	if err := store.SaveState(c.StatePath, st); err != nil {
		return nil, err
	}
	return &RenameResult{From: old, To: new, WasCurrent: wasCurrent}, nil
}

// Copy duplicates src into dst. Equivalent to Create with CopyFrom.
func (c *Context) Copy(src, dst, description string) (*CreateResult, error) {
	return c.Create(dst, CreateOptions{CopyFrom: src, Description: description})
}

// DeleteOptions controls Delete.
type DeleteOptions struct {
	// Confirmed acknowledges the two-step confirmation for deleting a
	// non-empty tag.
	Confirmed bool
	// Force skips confirmation and the last-tag guard.
	Force bool
}

// DeleteResult reports what Delete did, or what it still needs.
type DeleteResult struct {
	Name string `json:"name"`
	// NeedsConfirmation is set instead of deleting when the tag has
	// tasks and neither Confirmed nor Force was given. Nothing has
	// been modified in that case.
	NeedsConfirmation bool `json:"needsConfirmation,omitempty"`
	TaskCount         int  `json:"taskCount"`
	// SwitchedToMaster is true when the deleted tag was active and
	// the current tag was re-pointed to master.
	SwitchedToMaster bool `json:"switchedToMaster,omitempty"`
}

// Delete removes a tag by key. Master can never be deleted,
// regardless of flags. Deleting the active tag re-points the current
// tag to master within the same logical operation; the delete is not
// complete until both files are written.
func (c *Context) Delete(name string, opts DeleteOptions) (*DeleteResult, error) {
	if name == task.MasterTag {
		return nil, taskerr.Reservedf("the %q tag cannot be deleted", task.MasterTag)
	}

	doc, _, err := store.Load(c.TasksPath)
	if err != nil {
		return nil, err
	}
	tg := doc.Tag(name)
	if tg == nil {
		return nil, taskerr.NotFoundf("tag %q not found", name)
	}

	if len(tg.Tasks) > 0 && !opts.Confirmed && !opts.Force {
		return &DeleteResult{Name: name, NeedsConfirmation: true, TaskCount: len(tg.Tasks)}, nil
	}
	if len(doc.Tags) <= 1 && !opts.Force {
		// Unreachable while master is intact, but forced multi-delete
		// callers can get here.
		return nil, taskerr.Validationf("refusing to delete the last remaining tag")
	}

	taskCount := len(tg.Tasks)
	delete(doc.Tags, name)
	doc.EnsureMaster()
	if err := store.Save(c.TasksPath, doc); err != nil {
		return nil, err
	}

	st := store.LoadState(c.StatePath)
	switched := st.CurrentTag == name
	st.RenameTagRefs(name, task.MasterTag)
	if switched {
		now := c.now().UTC()
		st.LastSwitched = &now
	}
	if err := store.SaveState(c.StatePath, st); err != nil {
		return nil, err
	}
	return &DeleteResult{Name: name, TaskCount: taskCount, SwitchedToMaster: switched}, nil
}
