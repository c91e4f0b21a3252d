package cmd

import (
	"flag"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/ops"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
	"github.com/tasknest/tasknest/internal/ui"
)

// listCommand lists the tasks of the active tag.
func listCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest list", flag.ContinueOnError)
	statusFilter := fs.String("status", "", "Filter by status (pending|done|in-progress|review|deferred|cancelled)")
	withSubtasks := fs.Bool("with-subtasks", false, "Show subtasks under each task")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	tagName := resolveTag(cfg)
	doc, info, err := store.Load(cfg.TasksFile)
	if err != nil {
		return fail(*jsonOut, err)
	}
	tg := doc.Tag(tagName)
	if tg == nil {
		return fail(*jsonOut, taskerr.NotFoundf("tag %q not found", tagName))
	}

	tasks := tg.Tasks
	if *statusFilter != "" {
		status := task.Status(*statusFilter)
		if !status.IsValid() {
			return fail(*jsonOut, taskerr.Validationf("invalid status %q", *statusFilter))
		}
		var filtered []task.Task
		for i := range tasks {
			if tasks[i].Status == status {
				filtered = append(filtered, tasks[i])
			}
		}
		tasks = filtered
	}

	if *jsonOut {
		return emitJSON(map[string]any{
			"tag":    tagName,
			"tasks":  tasks,
			"legacy": info.Legacy,
		})
	}
	if info.Legacy {
		fmt.Println("Note: task file is in the legacy single-list format; it will be upgraded on the next write.")
	}
	fmt.Print(ui.RenderTaskList(tagName, tasks, *withSubtasks))
	return nil
}

// nextCommand shows the scheduler's pick.
func nextCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest next", flag.ContinueOnError)
	withScore := fs.Bool("with-score", false, "Attach an advisory complexity score")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	tagName := resolveTag(cfg)
	next, err := newService(cfg).NextTask(tagName, *withScore)
	if err != nil {
		return fail(*jsonOut, err)
	}
	if *jsonOut {
		return emitJSON(map[string]any{"tag": tagName, "next": next})
	}
	fmt.Print(ui.RenderNextTask(next))
	return nil
}

// showCommand shows one task with its dependency subgraph.
func showCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest show", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return taskerr.Validationf("show takes exactly one task or subtask reference")
	}
	ref := task.ParseDepRef(fs.Arg(0))
	if !ref.IsParseable() {
		return fail(*jsonOut, taskerr.Validationf("invalid reference %q", fs.Arg(0)))
	}

	tagName := resolveTag(cfg)
	doc, _, err := store.Load(cfg.TasksFile)
	if err != nil {
		return fail(*jsonOut, err)
	}
	tg := doc.Tag(tagName)
	if tg == nil {
		return fail(*jsonOut, taskerr.NotFoundf("tag %q not found", tagName))
	}
	t := tg.Task(ref.Task)
	if t == nil {
		return fail(*jsonOut, taskerr.NotFoundf("task %d not found in tag %q", ref.Task, tagName))
	}

	sub, err := newService(cfg).Subgraph(tagName, ref)
	if err != nil {
		return fail(*jsonOut, err)
	}
	if *jsonOut {
		return emitJSON(map[string]any{
			"tag":      tagName,
			"task":     t,
			"subgraph": sub.Order,
			"depths":   sub.Depth,
		})
	}

	fmt.Printf("#%d %s\n", t.ID, t.Title)
	fmt.Printf("  Status: %s  Priority: %s\n", t.Status, t.Priority)
	if t.Description != "" {
		fmt.Printf("  %s\n", t.Description)
	}
	if t.Details != "" {
		fmt.Printf("  Details: %s\n", t.Details)
	}
	if t.TestStrategy != "" {
		fmt.Printf("  Test strategy: %s\n", t.TestStrategy)
	}
	for i := range t.Subtasks {
		st := &t.Subtasks[i]
		fmt.Printf("  %d.%d [%s] %s\n", t.ID, st.ID, st.Status, st.Title)
	}
	if len(sub.Order) > 1 {
		fmt.Println("  Depends (transitively) on:")
		for _, r := range sub.Order[1:] {
			fmt.Printf("    %s (depth %d)\n", r.String(), sub.Depth[r.String()])
		}
	}
	return nil
}

// addCommand adds a task to the active tag.
func addCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest add", flag.ContinueOnError)
	title := fs.String("title", "", "Task title (required)")
	description := fs.String("description", "", "Short description")
	details := fs.String("details", "", "Implementation details")
	testStrategy := fs.String("test-strategy", "", "Verification notes")
	priority := fs.String("priority", "", "Priority (high|medium|low)")
	deps := fs.String("deps", "", "Comma separated dependency references, e.g. 1,2,3.1")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if *title == "" && len(remaining) > 0 {
		*title = strings.Join(remaining, " ")
		remaining = nil
	}
	if len(remaining) > 0 {
		return fmt.Errorf("unexpected arguments: %v", remaining)
	}
	if *priority == "" {
		*priority = cfg.DefaultPriority
	}
	depRefs, err := parseDepList(*deps)
	if err != nil {
		return fail(*jsonOut, err)
	}

	tagName := resolveTag(cfg)
	res, err := newService(cfg).AddTask(tagName, ops.AddTaskInput{
		Title:        *title,
		Description:  *description,
		Details:      *details,
		TestStrategy: *testStrategy,
		Priority:     task.Priority(*priority),
		Dependencies: depRefs,
	})
	if err != nil {
		return fail(*jsonOut, err)
	}
	recordAudit(cfg, logr, "add", tagName, task.TaskRef(res.Task.ID).String(), res.Task.Title)

	if *jsonOut {
		return emitJSON(res)
	}
	for _, w := range res.Warnings {
		logr.Warn(w)
	}
	fmt.Printf("Added task #%d %q to tag %q\n", res.Task.ID, res.Task.Title, tagName)
	return nil
}

// removeCommand removes tasks and strips references to them.
func removeCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest remove", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids, err := parseIDs(fs.Args())
	if err != nil {
		return fail(*jsonOut, err)
	}

	tagName := resolveTag(cfg)
	results, err := newService(cfg).RemoveTasks(tagName, ids)
	if err != nil {
		return fail(*jsonOut, err)
	}
	for _, r := range results {
		if !r.Skipped {
			recordAudit(cfg, logr, "remove", tagName, task.TaskRef(r.ID).String(), "")
		}
	}

	if *jsonOut {
		return emitJSON(map[string]any{"tag": tagName, "removed": results})
	}
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("Skipped #%d: %s\n", r.ID, r.Reason)
			continue
		}
		fmt.Printf("Removed #%d\n", r.ID)
		for _, owner := range r.Unblocked {
			fmt.Printf("  unblocked %s\n", owner)
		}
	}
	return nil
}

// setStatusCommand updates statuses of tasks and subtasks.
func setStatusCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest set-status", flag.ContinueOnError)
	status := fs.String("status", "", "New status (pending|done|in-progress|review|deferred|cancelled)")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *status == "" {
		return fail(*jsonOut, taskerr.Validationf("-status is required"))
	}
	refs, err := parseRefs(fs.Args())
	if err != nil {
		return fail(*jsonOut, err)
	}

	tagName := resolveTag(cfg)
	results, err := newService(cfg).SetStatus(tagName, refs, task.Status(*status))
	if err != nil {
		return fail(*jsonOut, err)
	}
	for _, r := range results {
		if !r.Skipped {
			recordAudit(cfg, logr, "set-status", tagName, r.Ref, string(r.To))
		}
	}

	if *jsonOut {
		return emitJSON(map[string]any{"tag": tagName, "updated": results})
	}
	for _, r := range results {
		if r.Skipped {
			fmt.Printf("Skipped %s: %s\n", r.Ref, r.Reason)
			continue
		}
		fmt.Printf("%s: %s -> %s\n", r.Ref, r.From, r.To)
	}
	return nil
}
