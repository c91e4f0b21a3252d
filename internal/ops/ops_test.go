package ops

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")

	doc := task.NewDocument()
	doc.Tags[task.MasterTag].Tasks = []task.Task{
		{ID: 1, Title: "base", Status: task.StatusDone, Dependencies: []task.DepRef{}},
		{
			ID:           2,
			Title:        "build",
			Status:       task.StatusPending,
			Priority:     task.PriorityHigh,
			Dependencies: []task.DepRef{task.TaskRef(1)},
			Subtasks: []task.Subtask{
				{ID: 1, Title: "design", Status: task.StatusDone},
				{ID: 2, Title: "implement", Status: task.StatusPending,
					Dependencies: []task.DepRef{task.SubtaskRef(2, 1)}},
			},
		},
		{
			ID:           3,
			Title:        "ship",
			Status:       task.StatusPending,
			Dependencies: []task.DepRef{task.TaskRef(2)},
		},
	}
	require.NoError(t, store.Save(path, doc))
	return NewService(path, "")
}

func reload(t *testing.T, s *Service) *task.Tag {
	t.Helper()
	doc, _, err := store.Load(s.TasksPath)
	require.NoError(t, err)
	tg := doc.Tag(task.MasterTag)
	require.NotNil(t, tg)
	return tg
}

func TestAddTask(t *testing.T) {
	s := newTestService(t)

	res, err := s.AddTask(task.MasterTag, AddTaskInput{
		Title:        "new work",
		Priority:     task.PriorityLow,
		Dependencies: []task.DepRef{task.TaskRef(1), task.TaskRef(99)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Task.ID)
	// The dangling reference is filtered with a warning, not kept.
	assert.Len(t, res.Task.Dependencies, 1)
	assert.NotEmpty(t, res.Warnings)

	tg := reload(t, s)
	added := tg.Task(4)
	require.NotNil(t, added)
	assert.Equal(t, []task.DepRef{task.TaskRef(1)}, added.Dependencies)
}

func TestAddTaskValidation(t *testing.T) {
	s := newTestService(t)

	_, err := s.AddTask(task.MasterTag, AddTaskInput{})
	assert.Equal(t, taskerr.CodeValidation, taskerr.CodeOf(err))

	_, err = s.AddTask(task.MasterTag, AddTaskInput{Title: "x", Priority: "urgent"})
	assert.Equal(t, taskerr.CodeValidation, taskerr.CodeOf(err))

	_, err = s.AddTask("nope", AddTaskInput{Title: "x"})
	assert.Equal(t, taskerr.CodeNotFound, taskerr.CodeOf(err))
}

func TestRemoveTasks(t *testing.T) {
	s := newTestService(t)

	results, err := s.RemoveTasks(task.MasterTag, []int{2, 42})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Skipped)
	// Task 3 depended on 2 and is unblocked by the removal.
	assert.Contains(t, results[0].Unblocked, "3")
	assert.True(t, results[1].Skipped)

	tg := reload(t, s)
	assert.Nil(t, tg.Task(2))
	assert.Empty(t, tg.Task(3).Dependencies)
}

func TestSetStatus(t *testing.T) {
	s := newTestService(t)

	results, err := s.SetStatus(task.MasterTag,
		[]task.DepRef{task.TaskRef(3), task.SubtaskRef(2, 2), task.TaskRef(42)},
		task.StatusInProgress)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, task.StatusPending, results[0].From)
	assert.False(t, results[0].Skipped)
	assert.False(t, results[1].Skipped)
	assert.True(t, results[2].Skipped)

	tg := reload(t, s)
	assert.Equal(t, task.StatusInProgress, tg.Task(3).Status)
	assert.Equal(t, task.StatusInProgress, tg.Task(2).Subtask(2).Status)
}

func TestSetStatusRejectsLegacyCompleted(t *testing.T) {
	s := newTestService(t)
	_, err := s.SetStatus(task.MasterTag, []task.DepRef{task.TaskRef(3)}, task.StatusCompleted)
	assert.Equal(t, taskerr.CodeValidation, taskerr.CodeOf(err))
}

func TestNextTask(t *testing.T) {
	s := newTestService(t)

	next, err := s.NextTask(task.MasterTag, false)
	require.NoError(t, err)
	require.NotNil(t, next)
	// 2 is the only task whose dependencies are all done.
	assert.Equal(t, 2, next.ID)

	next, err = s.NextTask(task.MasterTag, true)
	require.NoError(t, err)
	assert.Greater(t, next.ComplexityScore, 0.0)
}

func TestAddDependency(t *testing.T) {
	s := newTestService(t)

	res, err := s.AddDependency(task.MasterTag, task.TaskRef(3), task.TaskRef(1))
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	tg := reload(t, s)
	assert.Contains(t, tg.Task(3).Dependencies, task.TaskRef(1))

	// Duplicate edges are skipped, not errors.
	res, err = s.AddDependency(task.MasterTag, task.TaskRef(3), task.TaskRef(1))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	s := newTestService(t)

	// 3 depends on 2; making 2 depend on 3 closes a cycle.
	_, err := s.AddDependency(task.MasterTag, task.TaskRef(2), task.TaskRef(3))
	require.Error(t, err)
	assert.Equal(t, taskerr.CodeCircularDependency, taskerr.CodeOf(err))

	// Nothing was persisted.
	tg := reload(t, s)
	assert.NotContains(t, tg.Task(2).Dependencies, task.TaskRef(3))
}

func TestAddDependencyRejectsSelfAndMissing(t *testing.T) {
	s := newTestService(t)

	_, err := s.AddDependency(task.MasterTag, task.TaskRef(3), task.TaskRef(3))
	assert.Equal(t, taskerr.CodeValidation, taskerr.CodeOf(err))

	_, err = s.AddDependency(task.MasterTag, task.TaskRef(3), task.TaskRef(99))
	assert.Equal(t, taskerr.CodeNotFound, taskerr.CodeOf(err))

	_, err = s.AddDependency(task.MasterTag, task.TaskRef(99), task.TaskRef(1))
	assert.Equal(t, taskerr.CodeNotFound, taskerr.CodeOf(err))
}

func TestRemoveDependency(t *testing.T) {
	s := newTestService(t)

	res, err := s.RemoveDependency(task.MasterTag, task.TaskRef(3), task.TaskRef(2))
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Empty(t, reload(t, s).Task(3).Dependencies)

	// Removing an absent edge is a skip.
	res, err = s.RemoveDependency(task.MasterTag, task.TaskRef(3), task.TaskRef(2))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
}

func TestCheckAndFixDependencies(t *testing.T) {
	s := newTestService(t)

	// Plant a dangling reference directly.
	doc, _, err := store.Load(s.TasksPath)
	require.NoError(t, err)
	tg := doc.Tag(task.MasterTag)
	tg.Task(3).Dependencies = append(tg.Task(3).Dependencies, task.TaskRef(77))
	require.NoError(t, store.Save(s.TasksPath, doc))

	issues, err := s.CheckDependencies(task.MasterTag)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "3", issues[0].Owner)
	assert.Equal(t, "77", issues[0].Ref)

	report, err := s.FixDependencies(task.MasterTag)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total())

	issues, err = s.CheckDependencies(task.MasterTag)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateService(t *testing.T) {
	s := newTestService(t)
	result, err := s.Validate()
	require.NoError(t, err)
	assert.True(t, result.Valid)
}
