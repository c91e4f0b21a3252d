package cmd

import (
	"flag"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// parseEdge parses the -id and -depends-on flags shared by the
// dependency commands.
func parseEdge(id, dependsOn string) (task.DepRef, task.DepRef, error) {
	if id == "" || dependsOn == "" {
		return task.DepRef{}, task.DepRef{}, taskerr.Validationf("-id and -depends-on are required")
	}
	target := task.ParseDepRef(id)
	if !target.IsParseable() {
		return task.DepRef{}, task.DepRef{}, taskerr.Validationf("invalid reference %q", id)
	}
	dep := task.ParseDepRef(dependsOn)
	if !dep.IsParseable() {
		return task.DepRef{}, task.DepRef{}, taskerr.Validationf("invalid reference %q", dependsOn)
	}
	return target, dep, nil
}

// addDependencyCommand adds a dependency edge.
func addDependencyCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest add-dependency", flag.ContinueOnError)
	id := fs.String("id", "", "Task or subtask that gains the dependency (\"5\" or \"5.2\")")
	dependsOn := fs.String("depends-on", "", "Task or subtask it must wait for")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	target, dep, err := parseEdge(*id, *dependsOn)
	if err != nil {
		return fail(*jsonOut, err)
	}

	tagName := resolveTag(cfg)
	res, err := newService(cfg).AddDependency(tagName, target, dep)
	if err != nil {
		return fail(*jsonOut, err)
	}
	if !res.Skipped {
		recordAudit(cfg, logr, "add-dependency", tagName, res.Target, "depends on "+res.DependsOn)
	}

	if *jsonOut {
		return emitJSON(res)
	}
	if res.Skipped {
		fmt.Printf("Skipped: %s\n", res.Reason)
		return nil
	}
	fmt.Printf("%s now depends on %s\n", res.Target, res.DependsOn)
	return nil
}

// removeDependencyCommand removes a dependency edge.
func removeDependencyCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest remove-dependency", flag.ContinueOnError)
	id := fs.String("id", "", "Task or subtask that loses the dependency (\"5\" or \"5.2\")")
	dependsOn := fs.String("depends-on", "", "Dependency reference to remove")
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	target, dep, err := parseEdge(*id, *dependsOn)
	if err != nil {
		return fail(*jsonOut, err)
	}

	tagName := resolveTag(cfg)
	res, err := newService(cfg).RemoveDependency(tagName, target, dep)
	if err != nil {
		return fail(*jsonOut, err)
	}
	if !res.Skipped {
		recordAudit(cfg, logr, "remove-dependency", tagName, res.Target, "no longer depends on "+res.DependsOn)
	}

	if *jsonOut {
		return emitJSON(res)
	}
	if res.Skipped {
		fmt.Printf("Skipped: %s\n", res.Reason)
		return nil
	}
	fmt.Printf("%s no longer depends on %s\n", res.Target, res.DependsOn)
	return nil
}

// checkDependenciesCommand reports invalid references without
// modifying anything.
func checkDependenciesCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tasknest check-dependencies", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	tagName := resolveTag(cfg)
	issues, err := newService(cfg).CheckDependencies(tagName)
	if err != nil {
		return fail(*jsonOut, err)
	}

	if *jsonOut {
		return emitJSON(map[string]any{"tag": tagName, "issues": issues})
	}
	if len(issues) == 0 {
		fmt.Println("All dependency references are valid.")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("%s -> %s: %s\n", issue.Owner, issue.Ref, issue.Reason)
	}
	return nil
}

// fixDependenciesCommand removes invalid references.
func fixDependenciesCommand(cfg *config.Config, logr *log.Logger, args []string) error {
	fs := flag.NewFlagSet("tasknest fix-dependencies", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Emit a JSON result envelope")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(fs.Args()) > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	tagName := resolveTag(cfg)
	report, err := newService(cfg).FixDependencies(tagName)
	if err != nil {
		return fail(*jsonOut, err)
	}
	if report.Total() > 0 {
		recordAudit(cfg, logr, "fix-dependencies", tagName, "", fmt.Sprintf("removed %d references", report.Total()))
	}

	if *jsonOut {
		return emitJSON(map[string]any{"tag": tagName, "report": report})
	}
	if report.Total() == 0 {
		fmt.Println("Nothing to fix.")
		return nil
	}
	fmt.Printf("Removed %d invalid references:\n", report.Total())
	for owner, dropped := range report.Removed {
		for _, d := range dropped {
			fmt.Printf("  %s -> %s (%s)\n", owner, d.Ref.String(), d.Reason)
		}
	}
	return nil
}
