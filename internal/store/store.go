// Package store persists the tagged task document and its side state.
// Both files are always rewritten in full; partial writes that could
// drop unrelated tags are never performed. Writes go through a temp
// file and rename so a crash mid-write leaves the previous content
// intact. Concurrent writers are not arbitrated: last writer wins.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tasknest/tasknest/internal/task"
	"github.com/tasknest/tasknest/internal/taskerr"
)

// LoadInfo describes what Load had to do to present the document.
type LoadInfo struct {
	// Legacy is true when the file was in the single-namespace shape
	// and was presented as a master tag. The file itself is not
	// rewritten until the next Save.
	Legacy bool
	// NormalizedRefs counts legacy sibling-subtask dependency entries
	// rewritten to explicit parent.sub references.
	NormalizedRefs int
	// Missing is true when the file did not exist and a default empty
	// document was returned.
	Missing bool
}

// Load reads the task document at path. A missing file yields a
// default empty document, never an error. Malformed content yields a
// parse error.
func Load(path string) (*task.Document, *LoadInfo, error) {
	info := &LoadInfo{}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			info.Missing = true
			return task.NewDocument(), info, nil
		}
		return nil, nil, fmt.Errorf("read task file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, taskerr.Parse(path, err)
	}

	doc := &task.Document{}
	if isLegacyShape(raw) {
		// Present {tasks:[...]} as {master:{tasks:[...]}} in memory.
		var tg task.Tag
		if err := json.Unmarshal(data, &tg); err != nil {
			return nil, nil, taskerr.Parse(path, err)
		}
		doc.Tags = map[string]*task.Tag{task.MasterTag: &tg}
		info.Legacy = true
	} else if err := json.Unmarshal(data, doc); err != nil {
		return nil, nil, taskerr.Parse(path, err)
	}

	doc.EnsureMaster()
	if info.Legacy {
		// The bare-int sibling convention only ever existed in the
		// single-namespace shape. Tagged files use the same bare
		// number for a subtask's dependency on an absolute task, so
		// normalizing them would corrupt valid edges.
		for _, tg := range doc.Tags {
			for i := range tg.Tasks {
				info.NormalizedRefs += task.NormalizeSubtaskDeps(&tg.Tasks[i])
			}
		}
	}
	return doc, info, nil
}

// isLegacyShape reports whether the raw object is the old
// single-namespace file: a top-level "tasks" array instead of tag
// keys.
func isLegacyShape(raw map[string]json.RawMessage) bool {
	tasks, ok := raw["tasks"]
	if !ok {
		return false
	}
	var arr []json.RawMessage
	return json.Unmarshal(tasks, &arr) == nil
}

// Save serializes the entire multi-tag document and atomically
// replaces path with it.
func Save(path string, doc *task.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal task file: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data to a sibling temp file and renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
