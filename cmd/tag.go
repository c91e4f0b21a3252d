package cmd

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/tags"
	"github.com/tasknest/tasknest/internal/taskerr"
	"github.com/tasknest/tasknest/internal/ui"
)

// tagsCommand lists every tag with task counts.
func tagsCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest tags", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	infos, err := newTags(cfg).List()
	if err != nil {
		return fail(*jsonOut, err)
	}
	if *jsonOut {
		return emitJSON(map[string]any{"tags": infos})
	}
	fmt.Print(ui.RenderTagList(infos))
	return nil
}

// tagCommand dispatches the tag lifecycle subcommands.
func tagCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	if len(args) == 0 {
		return taskerr.Validationf("tag requires a subcommand (add|use|rename|copy|delete)")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		return tagAddCommand(cfg, logr, rest)
	case "use":
		return tagUseCommand(cfg, logr, rest)
	case "rename":
		return tagRenameCommand(cfg, logr, rest)
	case "copy":
		return tagCopyCommand(cfg, logr, rest)
	case "delete":
		return tagDeleteCommand(cfg, logr, rest)
	default:
		return taskerr.Validationf("unknown tag subcommand %q", sub)
	}
}

// tagAddCommand creates a tag, empty or copied. With -from-branch
// the tag is named after the checked-out git branch instead of a
// positional name.
func tagAddCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest tag add", flag.ContinueOnError)
	copyFrom := fs.String("copy-from", "", "Deep-copy tasks from this tag")
	copyFromCurrent := fs.Bool("copy-from-current", false, "Deep-copy tasks from the current tag")
	fromBranch := fs.Bool("from-branch", false, "Name the tag after the checked-out git branch")
	description := fs.String("description", "", "Tag description")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts := tags.CreateOptions{
		CopyFrom:        *copyFrom,
		CopyFromCurrent: *copyFromCurrent,
		Description:     *description,
	}

	var res *tags.CreateResult
	var err error
	if *fromBranch {
		if len(fs.Args()) != 0 {
			return taskerr.Validationf("tag add -from-branch takes no tag name")
		}
		res, err = newTags(cfg).CreateFromBranch(opts)
	} else {
		if len(fs.Args()) != 1 {
			return taskerr.Validationf("tag add takes exactly one tag name")
		}
		res, err = newTags(cfg).Create(fs.Arg(0), opts)
	}
	if err != nil {
		return fail(*jsonOut, err)
	}
	recordAudit(cfg, logr, "tag-add", res.Name, "", res.CopiedFrom)

	if *jsonOut {
		return emitJSON(res)
	}
	if res.CopiedFrom != "" {
		fmt.Printf("Created tag %q with %d tasks copied from %q\n", res.Name, res.TaskCount, res.CopiedFrom)
	} else {
		fmt.Printf("Created empty tag %q\n", res.Name)
	}
	return nil
}

// tagUseCommand switches the current tag.
func tagUseCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest tag use", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return taskerr.Validationf("tag use takes exactly one tag name")
	}

	res, err := newTags(cfg).Switch(fs.Arg(0))
	if err != nil {
		return fail(*jsonOut, err)
	}
	recordAudit(cfg, logr, "tag-use", res.Name, "", "previous "+res.Previous)

	if *jsonOut {
		return emitJSON(res)
	}
	fmt.Printf("Switched to tag %q (was %q)\n", res.Name, res.Previous)
	return nil
}

// tagRenameCommand renames a tag.
func tagRenameCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest tag rename", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 2 {
		return taskerr.Validationf("tag rename takes old and new tag names")
	}

	res, err := newTags(cfg).Rename(fs.Arg(0), fs.Arg(1))
	if err != nil {
		return fail(*jsonOut, err)
	}
	recordAudit(cfg, logr, "tag-rename", res.To, "", "from "+res.From)

	if *jsonOut {
		return emitJSON(res)
	}
	fmt.Printf("Renamed tag %q to %q\n", res.From, res.To)
	if res.WasCurrent {
		fmt.Printf("Current tag is now %q\n", res.To)
	}
	return nil
}

// tagCopyCommand duplicates a tag.
func tagCopyCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest tag copy", flag.ContinueOnError)
	description := fs.String("description", "", "Description for the new tag")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 2 {
		return taskerr.Validationf("tag copy takes source and destination tag names")
	}

	res, err := newTags(cfg).Copy(fs.Arg(0), fs.Arg(1), *description)
	if err != nil {
		return fail(*jsonOut, err)
	}
	recordAudit(cfg, logr, "tag-copy", res.Name, "", "from "+res.CopiedFrom)

	if *jsonOut {
		return emitJSON(res)
	}
	fmt.Printf("Copied tag %q to %q (%d tasks)\n", res.CopiedFrom, res.Name, res.TaskCount)
	return nil
}

// tagDeleteCommand deletes a tag. Deleting a non-empty tag needs -yes
// (or -force); the first call without it only reports the task count.
func tagDeleteCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest tag delete", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Confirm deleting a non-empty tag")
	force := fs.Bool("force", false, "Skip confirmation and guards")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) != 1 {
		return taskerr.Validationf("tag delete takes exactly one tag name")
	}

	res, err := newTags(cfg).Delete(fs.Arg(0), tags.DeleteOptions{Confirmed: *yes, Force: *force})
	if err != nil {
		return fail(*jsonOut, err)
	}
	if !res.NeedsConfirmation {
		recordAudit(cfg, logr, "tag-delete", res.Name, "", fmt.Sprintf("%d tasks", res.TaskCount))
	}

	if *jsonOut {
		return emitJSON(res)
	}
	if res.NeedsConfirmation {
		fmt.Printf("Tag %q has %d tasks. Re-run with -yes to delete it.\n", res.Name, res.TaskCount)
		return nil
	}
	fmt.Printf("Deleted tag %q (%d tasks)\n", res.Name, res.TaskCount)
	if res.SwitchedToMaster {
		fmt.Println("Current tag is now \"master\"")
	}
	return nil
}

// branchTagCommand switches the current tag based on the checked-out
// git branch.
func branchTagCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest branch-tag", flag.ContinueOnError)
	tag := fs.String("tag", "", "Map the current branch to this tag before switching")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	res, err := newTags(cfg).SwitchBranchTag(*tag)
	if err != nil {
		return fail(*jsonOut, err)
	}
	if !res.Skipped {
		recordAudit(cfg, logr, "branch-tag", res.Tag, res.Branch, "")
	}

	if *jsonOut {
		return emitJSON(res)
	}
	if res.Skipped {
		fmt.Println("Not inside a git work tree; nothing to do.")
		return nil
	}
	if res.Mapped {
		fmt.Printf("Mapped branch %q to tag %q\n", res.Branch, res.Tag)
	}
	fmt.Printf("Switched to tag %q for branch %q\n", res.Tag, res.Branch)
	return nil
}
