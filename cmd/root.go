// Package cmd implements the CLI command structure for tasknest.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/logging"
	"github.com/tasknest/tasknest/internal/ops"
	"github.com/tasknest/tasknest/internal/tags"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
	"github.com/tasknest/tasknest/internal/ui"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Run executes the tasknest CLI.
func Run(ctx context.Context, args []string) error {
	// Create a flag set for global options
	fs := flag.NewFlagSet("tasknest", flag.ContinueOnError)
	fs.Usage = func() {
		printUsage(fs, os.Stderr)
	}
	help := fs.Bool("help", false, "Show help")
	fs.BoolVar(help, "h", false, "Show help")
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")

	// Global flags
	cfg, err := config.Load(fs, args)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *help {
		printUsage(fs, os.Stdout)
		return nil
	}
	if *showVersion {
		return versionCommand()
	}

	logr := logging.FromSettings(cfg.LogLevel, cfg.LogFormat, cfg.LogTimestamps, cfg.LogCaller)

	// Determine the subcommand; list is the default.
	subcommand := "list"
	remainingArgs := fs.Args()
	if len(remainingArgs) > 0 && !strings.HasPrefix(remainingArgs[0], "-") {
		subcommand = remainingArgs[0]
		remainingArgs = remainingArgs[1:]
	}

	switch subcommand {
	case "list", "ls":
		return listCommand(cfg, remainingArgs)
	case "next":
		return nextCommand(cfg, remainingArgs)
	case "show":
		return showCommand(cfg, remainingArgs)
	case "add":
		return addCommand(cfg, logr, remainingArgs)
	case "remove", "rm":
		return removeCommand(cfg, logr, remainingArgs)
	case "set-status":
		return setStatusCommand(cfg, logr, remainingArgs)
	case "add-subtask":
		return addSubtaskCommand(cfg, logr, remainingArgs)
	case "remove-subtask":
		return removeSubtaskCommand(cfg, logr, remainingArgs)
	case "add-dependency":
		return addDependencyCommand(cfg, logr, remainingArgs)
	case "remove-dependency":
		return removeDependencyCommand(cfg, logr, remainingArgs)
	case "check-dependencies":
		return checkDependenciesCommand(cfg, remainingArgs)
	case "fix-dependencies":
		return fixDependenciesCommand(cfg, logr, remainingArgs)
	case "validate":
		return validateCommand(cfg, remainingArgs)
	case "tags":
		return tagsCommand(cfg, remainingArgs)
	case "tag":
		return tagCommand(cfg, logr, remainingArgs)
	case "branch-tag":
		return branchTagCommand(cfg, logr, remainingArgs)
	case "doctor":
		return doctorCommand(cfg, args, remainingArgs)
	case "tui":
		return tuiCommand(ctx, cfg, remainingArgs)
	case "version", "--version", "-v":
		return versionCommand()
	case "help", "--help", "-h":
		printUsage(fs, os.Stdout)
		return nil
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subcommand)
		printUsage(fs, os.Stderr)
		return fmt.Errorf("unknown command: %s", subcommand)
	}
}

// newService builds the operation service from config.
func newService(cfg *config.Config) *ops.Service {
	return ops.NewService(cfg.TasksFile, cfg.SchemaFile)
}

// newTags builds the tag context from config.
func newTags(cfg *config.Config) *tags.Context {
	return tags.NewContext(cfg.TasksFile, cfg.StateFile, cfg.ProjectRoot)
}

// resolveTag returns the tag a command should operate on: the -tag
// override when given, otherwise the current tag from side state.
func resolveTag(cfg *config.Config) string {
	if cfg.Tag != "" {
		return cfg.Tag
	}
	return newTags(cfg).Current()
}

// recordAudit appends a mutation record to the audit log. Failures
// are logged, never fatal; the mutation itself already persisted.
func recordAudit(cfg *config.Config, logr *log.Logger, operation, tag, target, detail string) {
	if !cfg.AuditLog {
		return
	}
	al, err := logging.NewAuditLogger(cfg.LogDir, cfg.ProjectRoot)
	if err != nil {
		logr.Warn("audit log unavailable", "err", err)
		return
	}
	defer al.Close()
	entry := logging.AuditEntry{Operation: operation, Tag: tag, Target: target, Detail: detail}
	if err := al.Record(entry); err != nil {
		logr.Warn("audit record failed", "err", err)
	}
}

// parseIDs parses positional task ids, accepting both space and
// comma separated forms.
func parseIDs(args []string) ([]int, error) {
	var ids []int
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil || id <= 0 {
				return nil, taskerr.Validationf("invalid task id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, taskerr.Validationf("at least one task id is required")
	}
	return ids, nil
}

// parseRefs parses positional task or subtask references ("5",
// "5.2"), accepting both space and comma separated forms.
func parseRefs(args []string) ([]task.DepRef, error) {
	var refs []task.DepRef
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			ref := task.ParseDepRef(part)
			if !ref.IsParseable() {
				return nil, taskerr.Validationf("invalid reference %q (expected \"5\" or \"5.2\")", part)
			}
			refs = append(refs, ref)
		}
	}
	if len(refs) == 0 {
		return nil, taskerr.Validationf("at least one reference is required")
	}
	return refs, nil
}

// parseDepList parses a comma separated -deps flag value.
func parseDepList(s string) ([]task.DepRef, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return parseRefs([]string{s})
}

// tuiCommand launches the read-only task board.
func tuiCommand(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest tui", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if !ui.IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a terminal")
	}
	return ui.RunBoard(ctx, cfg.TasksFile, cfg.StateFile)
}

// versionCommand prints version information.
func versionCommand() error {
	fmt.Printf("tasknest version %s\n", Version)
	return nil
}

// printUsage prints the usage message.
func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Tasknest - A tagged task store with dependency-aware scheduling")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  tasknest [command] [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list                 List tasks in the current tag (default command)")
	fmt.Fprintln(w, "  next                 Show the next eligible task")
	fmt.Fprintln(w, "  show <id>            Show a task and its dependency subgraph")
	fmt.Fprintln(w, "  add                  Add a task")
	fmt.Fprintln(w, "  remove <ids>         Remove tasks and strip references to them")
	fmt.Fprintln(w, "  set-status <refs>    Set status of tasks or subtasks (\"5\", \"5.2\")")
	fmt.Fprintln(w, "  add-subtask          Add a subtask, or convert a task with -task-id")
	fmt.Fprintln(w, "  remove-subtask <refs> Remove subtasks, optionally promoting them")
	fmt.Fprintln(w, "  add-dependency       Add a dependency edge")
	fmt.Fprintln(w, "  remove-dependency    Remove a dependency edge")
	fmt.Fprintln(w, "  check-dependencies   Report invalid dependency references")
	fmt.Fprintln(w, "  fix-dependencies     Remove invalid dependency references")
	fmt.Fprintln(w, "  validate             Validate the task file against the schema")
	fmt.Fprintln(w, "  tags                 List tags")
	fmt.Fprintln(w, "  tag <subcommand>     Manage tags (add|use|rename|copy|delete)")
	fmt.Fprintln(w, "  branch-tag           Switch tag based on the checked-out git branch")
	fmt.Fprintln(w, "  doctor               Check config, files, and task file validity")
	fmt.Fprintln(w, "  tui                  Launch the terminal task board")
	fmt.Fprintln(w, "  version              Show version information")
	fmt.Fprintln(w, "  help                 Show this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Most commands accept -json to emit a machine-readable result envelope.")
}
