package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/store"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/ui"
)

// validateCommand validates the task file against the schema and the
// structural invariants.
func validateCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest validate", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	result, err := newService(cfg).Validate()
	if err != nil {
		return fail(*jsonOut, err)
	}

	if *jsonOut {
		errs := make([]string, len(result.Errors))
		for i, e := range result.Errors {
			errs[i] = e.Error()
		}
		if err := emitJSON(map[string]any{
			"valid":    result.Valid,
			"errors":   errs,
			"warnings": result.Warnings,
		}); err != nil {
			return err
		}
		if !result.Valid {
			return errReported
		}
		return nil
	}

	fmt.Print(ui.RenderValidation(result))
	if !result.Valid {
		return fmt.Errorf("validation failed")
	}
	return nil
}

// doctorCommand checks config, files, and task file validity. rawArgs
// are the original CLI arguments, re-parsed to recover per-field
// config sources.
func doctorCommand(cfg *config.Config, rawArgs, args []string) error {
	fs := flag.NewFlagSet("tasknest doctor", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	fmt.Println("Tasknest Doctor")
	fmt.Println("===============")
	fmt.Println()

	allOK := true

	// Check project root
	fmt.Printf("Project root: %s\n", cfg.ProjectRoot)
	if _, err := os.Stat(cfg.ProjectRoot); err != nil {
		fmt.Printf("  ❌ Error: %v\n", err)
		allOK = false
	} else {
		fmt.Println("  ✅ OK")
	}
	fmt.Println()

	// Config with sources
	fmt.Println("Config:")
	sourceFS := flag.NewFlagSet("tasknest", flag.ContinueOnError)
	sourceFS.SetOutput(io.Discard)
	sourceFS.Bool("help", false, "")
	sourceFS.Bool("h", false, "")
	sourceFS.Bool("version", false, "")
	sourceFS.Bool("v", false, "")
	if cws, err := config.LoadWithSources(sourceFS, rawArgs); err == nil {
		printConfigLine("tasks_file", cws.Config.TasksFile, cws.Sources["tasks_file"])
		printConfigLine("state_file", cws.Config.StateFile, cws.Sources["state_file"])
		printConfigLine("schema_file", cws.Config.SchemaFile, cws.Sources["schema_file"])
		printConfigLine("log_dir", cws.Config.LogDir, cws.Sources["log_dir"])
		printConfigLine("default_priority", cws.Config.DefaultPriority, cws.Sources["default_priority"])
		printConfigLine("audit_log", fmt.Sprintf("%t", cws.Config.AuditLog), cws.Sources["audit_log"])
		printConfigLine("log_level", cws.Config.LogLevel, cws.Sources["log_level"])
		printConfigLine("log_format", cws.Config.LogFormat, cws.Sources["log_format"])
	} else {
		fmt.Printf("  ⚠️  Source detail unavailable: %v\n", err)
	}
	if !task.Priority(cfg.DefaultPriority).IsValid() {
		fmt.Printf("  ❌ default_priority: %s (expected high|medium|low)\n", cfg.DefaultPriority)
		allOK = false
	}
	fmt.Println()

	// Check task file
	fmt.Printf("Task file: %s\n", cfg.TasksFile)
	doc, info, err := store.Load(cfg.TasksFile)
	if err != nil {
		fmt.Printf("  ❌ Load error: %v\n", err)
		allOK = false
	} else {
		switch {
		case info.Missing:
			fmt.Println("  ⚠️  Not found (an empty document will be created on first write)")
		case info.Legacy:
			fmt.Println("  ⚠️  Legacy single-list format (upgraded on the next write)")
		default:
			fmt.Println("  ✅ OK")
		}
		if info.NormalizedRefs > 0 {
			fmt.Printf("  ⚠️  %d legacy subtask references normalized in memory\n", info.NormalizedRefs)
		}
		result := doc.Validate(task.ValidationOptions{SchemaPath: cfg.SchemaFile})
		for _, w := range result.Warnings {
			fmt.Printf("  ⚠️  %s\n", w)
		}
		if result.Valid {
			fmt.Println("  ✅ Valid")
		} else {
			fmt.Println("  ❌ Validation failed:")
			for _, e := range result.Errors {
				fmt.Printf("     - %v\n", e)
			}
			allOK = false
		}
		if *verbose {
			for _, name := range doc.TagNames() {
				tg := doc.Tags[name]
				fmt.Printf("  Tag %q: %d tasks\n", name, len(tg.Tasks))
				for i := range tg.Tasks {
					t := &tg.Tasks[i]
					fmt.Printf("    - [%s] #%d %s\n", t.Status, t.ID, t.Title)
				}
			}
		}
	}
	fmt.Println()

	// Check state file
	fmt.Printf("State file: %s\n", cfg.StateFile)
	if err := store.ProbeState(cfg.StateFile); err != nil {
		fmt.Printf("  ⚠️  %v (defaults to tag \"master\")\n", err)
	} else {
		st := store.LoadState(cfg.StateFile)
		fmt.Printf("  ✅ OK (current tag %q)\n", st.CurrentTag)
	}
	fmt.Println()

	// Check schema override
	if cfg.SchemaFile != "" {
		fmt.Printf("Schema file: %s\n", cfg.SchemaFile)
		if fi, err := os.Stat(cfg.SchemaFile); err != nil {
			fmt.Printf("  ⚠️  %v (embedded schema used instead)\n", err)
		} else if fi.IsDir() {
			fmt.Println("  ❌ Error: path is a directory")
			allOK = false
		} else {
			fmt.Println("  ✅ OK")
		}
		fmt.Println()
	}

	// Check log directory
	fmt.Printf("Log directory: %s\n", cfg.LogDir)
	if _, err := os.Stat(cfg.LogDir); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("  ⚠️  Not found (created on first audit write)")
		} else {
			fmt.Printf("  ❌ Error: %v\n", err)
			allOK = false
		}
	} else {
		fmt.Println("  ✅ OK")
	}
	fmt.Println()

	// Check git branch
	branch := newTags(cfg).CurrentBranch()
	if branch == "" {
		fmt.Println("Git: not inside a work tree (branch-tag disabled)")
	} else {
		fmt.Printf("Git: branch %q\n", branch)
	}
	fmt.Println()

	if allOK {
		fmt.Println("✅ All checks passed!")
		return nil
	}
	fmt.Println("⚠️  Some checks failed. Tasknest may not function correctly.")
	return fmt.Errorf("doctor checks failed")
}

func printConfigLine(key, value string, source config.ConfigSource) {
	if value == "" {
		value = "(unset)"
	}
	fmt.Printf("  %-18s %s (%s)\n", key, value, source)
}
