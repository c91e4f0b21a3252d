package ops

import (
	"github.com/tasknest/tasknest/internal/depgraph"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// depList returns a pointer to the dependency slice addressed by ref.
func depList(tg *task.Tag, ref task.DepRef) (*[]task.DepRef, error) {
	t := tg.Task(ref.Task)
	if t == nil {
		return nil, taskerr.NotFoundf("task %d not found", ref.Task)
	}
	if !ref.IsSubtask() {
		return &t.Dependencies, nil
	}
	st := t.Subtask(ref.Sub)
	if st == nil {
		return nil, taskerr.NotFoundf("subtask %s not found", ref)
	}
	return &st.Dependencies, nil
}

// DependencyResult reports one dependency mutation.
type DependencyResult struct {
	Target    string `json:"target"`
	DependsOn string `json:"dependsOn"`
	Skipped   bool   `json:"skipped,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// AddDependency makes target depend on dependsOn. The mutation is
// rejected outright when either endpoint is missing, when the edge
// already exists, or when it would close a cycle; the document is
// never partially updated.
func (s *Service) AddDependency(tagName string, target, dependsOn task.DepRef) (*DependencyResult, error) {
	if target == dependsOn {
		return nil, taskerr.Validationf("%s cannot depend on itself", target)
	}

	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}
	deps, err := depList(tg, target)
	if err != nil {
		return nil, err
	}
	if _, err := depList(tg, dependsOn); err != nil {
		return nil, err
	}

	for _, d := range *deps {
		if d == dependsOn {
			return &DependencyResult{
				Target:    target.String(),
				DependsOn: dependsOn.String(),
				Skipped:   true,
				Reason:    "dependency already exists",
			}, nil
		}
	}

	if depgraph.DetectCircular(tg, dependsOn, target) {
		return nil, taskerr.Circularf("adding dependency %s -> %s would create a cycle", target, dependsOn)
	}

	*deps = append(*deps, dependsOn)
	if err := s.save(doc, tg); err != nil {
		return nil, err
	}
	return &DependencyResult{Target: target.String(), DependsOn: dependsOn.String()}, nil
}

// RemoveDependency removes the edge from target to dependsOn. A
// missing edge is a skipped record, not an error.
func (s *Service) RemoveDependency(tagName string, target, dependsOn task.DepRef) (*DependencyResult, error) {
	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}
	deps, err := depList(tg, target)
	if err != nil {
		return nil, err
	}

	found := false
	kept := (*deps)[:0]
	for _, d := range *deps {
		if d == dependsOn {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return &DependencyResult{
			Target:    target.String(),
			DependsOn: dependsOn.String(),
			Skipped:   true,
			Reason:    "no such dependency",
		}, nil
	}

	*deps = kept
	if err := s.save(doc, tg); err != nil {
		return nil, err
	}
	return &DependencyResult{Target: target.String(), DependsOn: dependsOn.String()}, nil
}

// DependencyIssue is one invalid reference found by CheckDependencies.
type DependencyIssue struct {
	Owner  string `json:"owner"`
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// CheckDependencies scans the tag for invalid dependency references
// without modifying anything.
func (s *Service) CheckDependencies(tagName string) ([]DependencyIssue, error) {
	_, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}

	var issues []DependencyIssue
	collect := func(owner task.DepRef, deps []task.DepRef) {
		_, invalid := depgraph.ValidateDependencies(deps, tg)
		for _, d := range invalid {
			issues = append(issues, DependencyIssue{
				Owner:  owner.String(),
				Ref:    d.Ref.String(),
				Reason: d.Reason,
			})
		}
	}
	for i := range tg.Tasks {
		t := &tg.Tasks[i]
		collect(task.TaskRef(t.ID), t.Dependencies)
		for j := range t.Subtasks {
			st := &t.Subtasks[j]
			collect(task.SubtaskRef(t.ID, st.ID), st.Dependencies)
		}
	}
	return issues, nil
}

// FixDependencies removes dangling, duplicate, and self dependencies
// across the tag and persists the result when anything changed.
func (s *Service) FixDependencies(tagName string) (*depgraph.CleanupReport, error) {
	doc, tg, err := s.load(tagName)
	if err != nil {
		return nil, err
	}
	report := depgraph.Cleanup(tg)
	if report.Total() > 0 {
		if err := s.save(doc, tg); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// Subgraph builds the dependency subgraph reachable from root, for
// context assembly and display. Depth is bounded by
// depgraph.MaxDepth.
func (s *Service) Subgraph(tagName string, root task.DepRef) (*depgraph.Subgraph, error) {
	doc, _, err := store.Load(s.TasksPath)
	if err != nil {
		return nil, err
	}
	tg := doc.Tag(tagName)
	if tg == nil {
		return nil, taskerr.NotFoundf("tag %q not found", tagName)
	}
	sg := depgraph.BuildSubgraph(tg, root, 0)
	if sg == nil {
		return nil, taskerr.NotFoundf("%s not found", root)
	}
	return sg, nil
}
