package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tasknest/tasknest/internal/task"
)

// State is the small side-state file tracking which tag commands
// implicitly target, plus the optional VCS branch to tag mapping.
type State struct {
	CurrentTag           string            `json:"currentTag"`
	LastSwitched         *time.Time        `json:"lastSwitched,omitempty"`
	BranchTagMapping     map[string]string `json:"branchTagMapping,omitempty"`
	MigrationNoticeShown bool              `json:"migrationNoticeShown,omitempty"`
}

// DefaultState returns the bootstrap state: master, no mapping.
func DefaultState() *State {
	return &State{CurrentTag: task.MasterTag}
}

// LoadState reads state.json. A missing or malformed file falls back
// to the default state, never an error; side state is advisory and a
// corrupt copy must not take commands down with it.
func LoadState(path string) *State {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultState()
	}
	st := &State{}
	if err := json.Unmarshal(data, st); err != nil {
		return DefaultState()
	}
	if st.CurrentTag == "" {
		st.CurrentTag = task.MasterTag
	}
	return st
}

// SaveState atomically rewrites state.json.
func SaveState(path string, st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state file: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

// SwitchTag updates the current tag and the switch timestamp.
func (s *State) SwitchTag(tag string, now time.Time) {
	s.CurrentTag = tag
	s.LastSwitched = &now
}

// BranchTag returns the tag mapped to the given VCS branch, if any.
func (s *State) BranchTag(branch string) (string, bool) {
	if s.BranchTagMapping == nil {
		return "", false
	}
	tag, ok := s.BranchTagMapping[branch]
	return tag, ok
}

// MapBranch records branch as belonging to tag.
func (s *State) MapBranch(branch, tag string) {
	if s.BranchTagMapping == nil {
		s.BranchTagMapping = make(map[string]string)
	}
	s.BranchTagMapping[branch] = tag
}

// RenameTagRefs rewrites every reference to old so that state stays
// consistent when a tag is renamed or deleted.
func (s *State) RenameTagRefs(old, new string) {
	if s.CurrentTag == old {
		s.CurrentTag = new
	}
	for branch, tag := range s.BranchTagMapping {
		if tag == old {
			s.BranchTagMapping[branch] = new
		}
	}
}

// errStateMissing is kept for callers that need to distinguish a
// truly absent state file from a corrupt one in diagnostics.
var errStateMissing = errors.New("state file missing")

// ProbeState reports whether the state file exists and parses. Used
// by the doctor command only; normal loads always succeed.
func ProbeState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errStateMissing
		}
		return err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("state file corrupt (defaults will be used): %w", err)
	}
	return nil
}
