package logging

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AuditEntry is one JSONL record describing a mutation of the task
// document or side state.
type AuditEntry struct {
	Time      time.Time `json:"time"`
	Operation string    `json:"operation"`
	Tag       string    `json:"tag,omitempty"`
	Target    string    `json:"target,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// AuditLogger appends mutation records to a per-project JSONL file.
// One file per day keeps the directory greppable without rotation
// machinery.
type AuditLogger struct {
	Dir  string
	path string
	file *os.File
}

// NewAuditLogger opens (creating if needed) the audit log for the
// project rooted at projectRoot, under baseDir.
func NewAuditLogger(baseDir, projectRoot string) (*AuditLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("audit base dir is empty")
	}
	root := projectRoot
	if root == "" {
		root = "."
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	dir := filepath.Join(baseDir, projectSlug(root))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format("20060102")+".audit.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	return &AuditLogger{Dir: dir, path: path, file: file}, nil
}

// Record appends one entry. Append failures are returned but callers
// treat them as advisory; a failed audit write never fails the
// command that already persisted its data.
func (a *AuditLogger) Record(entry AuditEntry) error {
	if a == nil || a.file == nil {
		return nil
	}
	if entry.Time.IsZero() {
		entry.Time = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	data = append(data, '\n')
	if _, err := a.file.Write(data); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Path returns the current audit file path.
func (a *AuditLogger) Path() string {
	if a == nil {
		return ""
	}
	return a.path
}

// Close closes the audit file.
func (a *AuditLogger) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}

// projectSlug builds a stable, filesystem-safe directory name for a
// project root: base name slug plus a short path hash to keep
// same-named projects apart.
func projectSlug(projectRoot string) string {
	name := filepath.Base(projectRoot)
	return fmt.Sprintf("%s-%s", slugify(name), hashPath(projectRoot))
}

func slugify(input string) string {
	if strings.TrimSpace(input) == "" {
		return "project"
	}

	var b strings.Builder
	lastUnderscore := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		valid := (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '.' || c == '_' || c == '-'
		if !valid {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		b.WriteByte(c)
		lastUnderscore = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		return "project"
	}
	return slug
}

func hashPath(input string) string {
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])[:8]
}
