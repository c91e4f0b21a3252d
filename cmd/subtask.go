package cmd

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/ops"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// addSubtaskCommand creates a subtask, or converts an existing task
// into one with -task-id.
func addSubtaskCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest add-subtask", flag.ContinueOnError)
	parent := fs.Int("parent", 0, "Parent task id (required)")
	taskID := fs.Int("task-id", 0, "Convert this existing task into a subtask of -parent")
	title := fs.String("title", "", "Subtask title")
	description := fs.String("description", "", "Short description")
	details := fs.String("details", "", "Implementation details")
	testStrategy := fs.String("test-strategy", "", "Verification notes")
	deps := fs.String("deps", "", "Comma separated dependency references, e.g. 1,2,3.1")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if *parent <= 0 {
		return fail(*jsonOut, taskerr.Validationf("-parent is required"))
	}

	tagName := resolveTag(cfg)
	svc := newService(cfg)

	var res *ops.AddSubtaskResult
	var err error
	if *taskID > 0 {
		if *title != "" {
			return fail(*jsonOut, taskerr.Validationf("-task-id and -title are mutually exclusive"))
		}
		res, err = svc.ConvertToSubtask(tagName, *parent, *taskID)
	} else {
		depRefs, derr := parseDepList(*deps)
		if derr != nil {
			return fail(*jsonOut, derr)
		}
		res, err = svc.AddSubtask(tagName, *parent, ops.AddSubtaskInput{
			Title:        *title,
			Description:  *description,
			Details:      *details,
			TestStrategy: *testStrategy,
			Dependencies: depRefs,
		})
	}
	if err != nil {
		return fail(*jsonOut, err)
	}
	ref := task.SubtaskRef(res.Parent, res.Subtask.ID)
	recordAudit(cfg, logr, "add-subtask", tagName, ref.String(), res.Subtask.Title)

	if *jsonOut {
		return emitJSON(res)
	}
	for _, w := range res.Warnings {
		logr.Warn(w)
	}
	if *taskID > 0 {
		fmt.Printf("Converted task #%d into subtask %s\n", *taskID, ref.String())
	} else {
		fmt.Printf("Added subtask %s %q\n", ref.String(), res.Subtask.Title)
	}
	return nil
}

// removeSubtaskCommand removes subtasks, optionally promoting them
// back to top-level tasks.
func removeSubtaskCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest remove-subtask", flag.ContinueOnError)
	promote := fs.Bool("promote", false, "Convert the subtask into a top-level task instead of deleting it")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	refs, err := parseRefs(fs.Args())
	if err != nil {
		return fail(*jsonOut, err)
	}

	tagName := resolveTag(cfg)
	results, err := newService(cfg).RemoveSubtasks(tagName, refs, *promote)
	if err != nil {
		return fail(*jsonOut, err)
	}
	for _, r := range results {
		if !r.Skipped {
			recordAudit(cfg, logr, "remove-subtask", tagName, r.Ref, "")
		}
	}

	if *jsonOut {
		return emitJSON(map[string]any{"tag": tagName, "removed": results})
	}
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Printf("Skipped %s: %s\n", r.Ref, r.Reason)
		case r.Promoted > 0:
			fmt.Printf("Promoted %s to task #%d\n", r.Ref, r.Promoted)
		default:
			fmt.Printf("Removed %s\n", r.Ref)
		}
	}
	return nil
}
