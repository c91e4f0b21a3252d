package tags

import (
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// CurrentBranch returns the checked-out branch of the work tree at
// ProjectRoot, or "" when the project is not git-tracked or HEAD is
// detached. Branch mapping is best-effort; this never errors.
func (c *Context) CurrentBranch() string {
	if c.ProjectRoot == "" {
		return ""
	}
	repo, err := git.PlainOpenWithOptions(c.ProjectRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	head, err := repo.Head()
	if err != nil {
		return ""
	}
	if !head.Name().IsBranch() {
		return ""
	}
	return head.Name().Short()
}

// TagNameForBranch derives a valid tag name from a branch name.
// Characters outside the tag-name alphabet become hyphens, so
// "feature/login" yields "feature-login".
func TagNameForBranch(branch string) string {
	var b strings.Builder
	for i := 0; i < len(branch); i++ {
		c := branch[i]
		valid := (c >= 'a' && c <= 'z') ||
			(c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') ||
			c == '_' || c == '-'
		if valid {
			b.WriteByte(c)
		} else {
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// CreateFromBranch creates a tag named after the checked-out branch
// and records the branch mapping. Unlike SwitchBranchTag this is not
// a no-op outside a git work tree; naming a tag after a branch that
// does not exist is an error.
func (c *Context) CreateFromBranch(opts CreateOptions) (*CreateResult, error) {
	branch := c.CurrentBranch()
	if branch == "" {
		return nil, taskerr.Validationf("not inside a git work tree")
	}
	name := TagNameForBranch(branch)
	if name == "" {
		return nil, taskerr.Validationf("branch %q yields an empty tag name", branch)
	}

	res, err := c.Create(name, opts)
	if err != nil {
		return nil, err
	}
	st := store.LoadState(c.StatePath)
	st.MapBranch(branch, name)
	if err := store.SaveState(c.StatePath, st); err != nil {
		return nil, err
	}
	return res, nil
}

// TagForBranch looks up the tag mapped to branch in side state.
func (c *Context) TagForBranch(branch string) (string, bool) {
	return store.LoadState(c.StatePath).BranchTag(branch)
}

// BranchSwitchResult reports a branch-driven tag switch.
type BranchSwitchResult struct {
	Branch string `json:"branch"`
	Tag    string `json:"tag"`
	// Mapped is true when a new branch-to-tag mapping was recorded.
	Mapped bool `json:"mapped,omitempty"`
	// Skipped is set when the project is not git-tracked; the call is
	// a no-op then, not a failure.
	Skipped bool `json:"skipped,omitempty"`
}

// SwitchBranchTag switches the current tag to the one mapped to the
// checked-out VCS branch, recording the mapping first if tag is
// non-empty. Outside a git work tree it no-ops and reports Skipped.
func (c *Context) SwitchBranchTag(tag string) (*BranchSwitchResult, error) {
	branch := c.CurrentBranch()
	if branch == "" {
		return &BranchSwitchResult{Skipped: true}, nil
	}

	st := store.LoadState(c.StatePath)
	mapped := false
	if tag != "" {
		st.MapBranch(branch, tag)
		mapped = true
	} else {
		var ok bool
		tag, ok = st.BranchTag(branch)
		if !ok {
			return nil, taskerr.NotFoundf("no tag mapped to branch %q", branch)
		}
	}

	doc, _, err := store.Load(c.TasksPath)
	if err != nil {
		return nil, err
	}
	if doc.Tag(tag) == nil {
		return nil, taskerr.NotFoundf("tag %q not found", tag)
	}

	st.SwitchTag(tag, c.now().UTC())
	if err := store.SaveState(c.StatePath, st); err != nil {
		return nil, err
	}
	return &BranchSwitchResult{Branch: branch, Tag: tag, Mapped: mapped}, nil
}
