// Package depgraph validates dependency references, detects cycles,
// and builds traversal subgraphs over the tasks of a single tag.
//
// All traversals use an explicit worklist with a visited set, so they
// terminate on cyclic input without error. Cycle detection is exact
// and never depth-limited; MaxDepth applies only to subgraph assembly
// for context and display, and the same constant is used for both.
package depgraph

import (
	"fmt"
	"sort"

	"github.com/tasknest/tasknest/internal/task"
)

// MaxDepth bounds subgraph assembly. Deep chains beyond this are cut
// off rather than walked; cycle detection is unaffected.
const MaxDepth = 50

// InvalidDep describes a dependency reference rejected by validation.
type InvalidDep struct {
	Ref    task.DepRef
	Reason string
}

func (d InvalidDep) String() string {
	return fmt.Sprintf("%s (%s)", d.Ref, d.Reason)
}

// ValidateDependencies splits candidate references into the valid
// subset and the rejects. A reference is valid when it is
// syntactically well formed and resolves to an existing task or
// subtask in tg. Callers are responsible for warning about and
// dropping the rejects; nothing here throws on bad input.
func ValidateDependencies(candidates []task.DepRef, tg *task.Tag) (valid []task.DepRef, invalid []InvalidDep) {
	seen := make(map[string]bool, len(candidates))
	for _, ref := range candidates {
		if !ref.IsParseable() {
			invalid = append(invalid, InvalidDep{Ref: ref, Reason: "not a task or subtask id"})
			continue
		}
		if seen[ref.String()] {
			invalid = append(invalid, InvalidDep{Ref: ref, Reason: "duplicate"})
			continue
		}
		if reason := resolve(ref, tg); reason != "" {
			invalid = append(invalid, InvalidDep{Ref: ref, Reason: reason})
			continue
		}
		seen[ref.String()] = true
		valid = append(valid, ref)
	}
	return valid, invalid
}

// resolve returns an empty string when ref exists in tg, otherwise
// the reason it does not.
func resolve(ref task.DepRef, tg *task.Tag) string {
	t := tg.Task(ref.Task)
	if t == nil {
		return fmt.Sprintf("task %d does not exist", ref.Task)
	}
	if ref.IsSubtask() && t.Subtask(ref.Sub) == nil {
		return fmt.Sprintf("task %d has no subtask %d", ref.Task, ref.Sub)
	}
	return ""
}

// adjacency builds the dependency edge map for every task and subtask
// in the tag, keyed by canonical reference string. Unresolvable edges
// are skipped; validation reports them separately.
func adjacency(tg *task.Tag) map[string][]task.DepRef {
	adj := make(map[string][]task.DepRef)
	for i := range tg.Tasks {
		t := &tg.Tasks[i]
		adj[task.TaskRef(t.ID).String()] = resolvedDeps(t.Dependencies, tg)
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			adj[task.SubtaskRef(t.ID, st.ID).String()] = resolvedDeps(st.Dependencies, tg)
		}
	}
	return adj
}

func resolvedDeps(deps []task.DepRef, tg *task.Tag) []task.DepRef {
	out := make([]task.DepRef, 0, len(deps))
	for _, d := range deps {
		if d.IsParseable() && resolve(d, tg) == "" {
			out = append(out, d)
		}
	}
	return out
}

// DetectCircular reports whether making child a dependent of parent
// (including converting child into a subtask of parent) would close a
// dependency cycle. The new edge runs child -> parent, so a cycle
// closes exactly when parent already reaches child through existing
// dependency edges, or parent and child are the same node. Callers
// must reject the mutation outright when this returns true.
func DetectCircular(tg *task.Tag, parent, child task.DepRef) bool {
	if parent == child {
		return true
	}
	adj := adjacency(tg)
	target := child.String()

	// Worklist DFS from parent; the visited set guarantees
	// termination even when the existing graph already has cycles.
	visited := map[string]bool{parent.String(): true}
	stack := []task.DepRef{parent}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range adj[cur.String()] {
			key := next.String()
			if key == target {
				return true
			}
			if visited[key] {
				continue
			}
			visited[key] = true
			stack = append(stack, next)
		}
	}
	return false
}

// Subgraph is the result of a traversal from a root: the set of
// reachable references and the minimum depth at which each was first
// reached.
type Subgraph struct {
	// Order lists reachable references in breadth-first order,
	// ties at equal depth broken by reference string for determinism.
	Order []task.DepRef
	// Depth maps canonical reference strings to their minimum depth
	// from the root (root is 0).
	Depth map[string]int
}

// BuildSubgraph walks the dependency graph from root up to maxDepth
// levels (MaxDepth when maxDepth <= 0). Revisited nodes are skipped,
// which both terminates cyclic input and keeps the recorded depth
// minimal: breadth-first order reaches every node at its shallowest
// depth first.
func BuildSubgraph(tg *task.Tag, root task.DepRef, maxDepth int) *Subgraph {
	if maxDepth <= 0 {
		maxDepth = MaxDepth
	}
	if resolve(root, tg) != "" {
		return nil
	}
	adj := adjacency(tg)

	sg := &Subgraph{Depth: map[string]int{root.String(): 0}}
	sg.Order = append(sg.Order, root)

	frontier := []task.DepRef{root}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []task.DepRef
		for _, cur := range frontier {
			for _, dep := range adj[cur.String()] {
				key := dep.String()
				if _, ok := sg.Depth[key]; ok {
					continue
				}
				sg.Depth[key] = depth
				next = append(next, dep)
			}
		}
		sort.Slice(next, func(i, j int) bool {
			a, b := next[i], next[j]
			if a.Task != b.Task {
				return a.Task < b.Task
			}
			return a.Sub < b.Sub
		})
		sg.Order = append(sg.Order, next...)
		frontier = next
	}
	return sg
}

// CleanupReport lists what a dependency cleanup pass removed.
type CleanupReport struct {
	// Removed maps the owning reference ("5" or "5.2") to the
	// dependency entries dropped from it.
	Removed map[string][]InvalidDep
}

// Total returns the number of removed entries.
func (r *CleanupReport) Total() int {
	n := 0
	for _, deps := range r.Removed {
		n += len(deps)
	}
	return n
}

// Cleanup drops dangling, duplicate, and self dependencies across the
// whole tag, in place, and reports what was removed. It never errors:
// expected-absence conditions produce removal records, not failures.
func Cleanup(tg *task.Tag) *CleanupReport {
	report := &CleanupReport{Removed: make(map[string][]InvalidDep)}
	for i := range tg.Tasks {
		t := &tg.Tasks[i]
		owner := task.TaskRef(t.ID)
		t.Dependencies = cleanDeps(owner, t.Dependencies, tg, report)
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			stOwner := task.SubtaskRef(t.ID, st.ID)
			st.Dependencies = cleanDeps(stOwner, st.Dependencies, tg, report)
		}
	}
	if report.Total() == 0 {
		report.Removed = nil
	}
	return report
}

func cleanDeps(owner task.DepRef, deps []task.DepRef, tg *task.Tag, report *CleanupReport) []task.DepRef {
	if len(deps) == 0 {
		return deps
	}
	valid, invalid := ValidateDependencies(deps, tg)
	kept := valid[:0]
	for _, d := range valid {
		if d == owner {
			invalid = append(invalid, InvalidDep{Ref: d, Reason: "depends on itself"})
			continue
		}
		kept = append(kept, d)
	}
	if len(invalid) > 0 {
		report.Removed[owner.String()] = invalid
	}
	return kept
}
