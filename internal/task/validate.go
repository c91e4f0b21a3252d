package task

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed tasks.schema.json
var embeddedSchema string

// ValidationError represents a validation error with context.
type ValidationError struct {
	Path string // JSON path to the error location
	Err  error  // Underlying error
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ValidationOptions controls validation behavior.
type ValidationOptions struct {
	// SchemaPath overrides the embedded JSON Schema. If the file is
	// missing or unreadable the embedded schema is used and a warning
	// is recorded.
	SchemaPath string
	// SkipSchema disables JSON Schema validation, leaving only the
	// structural checks.
	SkipSchema bool
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Valid      bool
	Errors     []error
	Warnings   []string
	UsedSchema bool
}

// Validate checks the document against the JSON Schema and the
// structural invariants the schema cannot express (unique task ids per
// tag, unique subtask ids per task, valid tag names).
func (d *Document) Validate(opts ValidationOptions) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		Errors:   make([]error, 0),
		Warnings: make([]string, 0),
	}

	if !opts.SkipSchema {
		d.validateSchema(opts.SchemaPath, result)
	}
	d.validateStructure(result)
	return result
}

// validateSchema marshals the document back to JSON and checks it
// against the compiled schema.
func (d *Document) validateSchema(schemaPath string, result *ValidationResult) {
	schema, warn := compileSchema(schemaPath)
	if warn != "" {
		result.Warnings = append(result.Warnings, warn)
	}
	if schema == nil {
		return
	}
	result.UsedSchema = true

	data, err := json.Marshal(d)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("marshal document for validation: %w", err),
		})
		return
	}
	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("unmarshal document for validation: %w", err),
		})
		return
	}
	if err := schema.Validate(obj); err != nil {
		result.Valid = false
		appendSchemaErrors(result, err)
	}
}

// compileSchema compiles the override schema when given, falling back
// to the embedded one.
func compileSchema(schemaPath string) (*jsonschema.Schema, string) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if schemaPath != "" {
		abs, err := filepath.Abs(schemaPath)
		if err == nil {
			if _, statErr := os.Stat(abs); statErr == nil {
				if schema, cerr := compiler.Compile(abs); cerr == nil {
					return schema, ""
				} else {
					return nil, fmt.Sprintf("invalid schema file %s: %v", abs, cerr)
				}
			}
		}
	}

	if err := compiler.AddResource("tasks.schema.json", strings.NewReader(embeddedSchema)); err != nil {
		return nil, fmt.Sprintf("embedded schema unavailable: %v", err)
	}
	schema, err := compiler.Compile("tasks.schema.json")
	if err != nil {
		return nil, fmt.Sprintf("embedded schema unavailable: %v", err)
	}
	if schemaPath != "" {
		return schema, fmt.Sprintf("schema file not found: %s (using built-in schema)", schemaPath)
	}
	return schema, ""
}

// validateStructure enforces the invariants that live outside the
// schema's reach.
func (d *Document) validateStructure(result *ValidationResult) {
	if len(d.Tags) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Err: fmt.Errorf("document has no tags"),
		})
		return
	}

	for _, name := range d.TagNames() {
		tg := d.Tags[name]
		if name != MasterTag && !tagNameRe.MatchString(name) {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: name,
				Err:  fmt.Errorf("invalid tag name"),
			})
		}

		seen := make(map[int]bool, len(tg.Tasks))
		for i := range tg.Tasks {
			t := &tg.Tasks[i]
			path := fmt.Sprintf("%s.tasks[%d]", name, i)
			if t.ID <= 0 {
				result.Valid = false
				result.Errors = append(result.Errors, &ValidationError{
					Path: path + ".id",
					Err:  fmt.Errorf("must be a positive integer, got %d", t.ID),
				})
				continue
			}
			if seen[t.ID] {
				result.Valid = false
				result.Errors = append(result.Errors, &ValidationError{
					Path: path + ".id",
					Err:  fmt.Errorf("duplicate task id %d", t.ID),
				})
			}
			seen[t.ID] = true
			validateTaskStructure(t, path, result)
		}
	}
}

func validateTaskStructure(t *Task, path string, result *ValidationResult) {
	if t.Title == "" {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: path + ".title",
			Err:  fmt.Errorf("missing required field"),
		})
	}
	if !t.Status.IsValid() {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: path + ".status",
			Err:  fmt.Errorf("invalid status %q", t.Status),
		})
	}
	if !t.Priority.IsValid() {
		result.Valid = false
		result.Errors = append(result.Errors, &ValidationError{
			Path: path + ".priority",
			Err:  fmt.Errorf("invalid priority %q", t.Priority),
		})
	}

	seen := make(map[int]bool, len(t.Subtasks))
	for i := range t.Subtasks {
		st := &t.Subtasks[i]
		stPath := fmt.Sprintf("%s.subtasks[%d]", path, i)
		if st.ID <= 0 {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: stPath + ".id",
				Err:  fmt.Errorf("must be a positive integer, got %d", st.ID),
			})
			continue
		}
		if seen[st.ID] {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: stPath + ".id",
				Err:  fmt.Errorf("duplicate subtask id %d", st.ID),
			})
		}
		seen[st.ID] = true
		if st.Title == "" {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: stPath + ".title",
				Err:  fmt.Errorf("missing required field"),
			})
		}
		if !st.Status.IsValid() {
			result.Valid = false
			result.Errors = append(result.Errors, &ValidationError{
				Path: stPath + ".status",
				Err:  fmt.Errorf("invalid status %q", st.Status),
			})
		}
	}
}

func appendSchemaErrors(result *ValidationResult, err error) {
	if err == nil {
		return
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		result.Errors = append(result.Errors, err)
		return
	}
	collectSchemaErrors(result, ve)
}

func collectSchemaErrors(result *ValidationResult, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}
	if len(err.Causes) == 0 {
		result.Errors = append(result.Errors, &ValidationError{
			Path: jsonPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(result, cause)
	}
}

// jsonPointerToPath converts an RFC 6901 pointer to dot notation for
// human-readable error locations.
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}

	parts := strings.Split(ptr, "/")
	path := ""
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			path += fmt.Sprintf("[%d]", idx)
			continue
		}
		if path == "" {
			path = part
		} else {
			path += "." + part
		}
	}
	return path
}
