// Package identity implements the small persistent JSON sets the TUI
// collaborator uses to track which agents a human has already seen
// (viewed), hidden (dismissed), or brought back (revived) across restarts.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Identity is the stable tuple used to recognize the same agent across a
// refresh even when its raw suffix text changes shape (e.g. PID filled in).
type Identity struct {
	AgentType string `json:"agent_type"`
	CLName    string `json:"cl_name"`
	RawSuffix string `json:"raw_suffix,omitempty"`
}

// Key renders an Identity as a flat string suitable for use as a set
// member/map key.
func (id Identity) Key() string {
	return id.AgentType + "\x1f" + id.CLName + "\x1f" + id.RawSuffix
}

// Set is a small JSON-backed set of Identity keys persisted to a single
// file under ~/.gai/tui/.
type Set struct {
	path    string
	members map[string]bool
}

// OpenSet loads path's JSON array of identity keys, treating a missing or
// unparseable file as an empty set.
func OpenSet(path string) *Set {
	members := map[string]bool{}
	data, err := os.ReadFile(path)
	if err == nil {
		var keys []string
		if json.Unmarshal(data, &keys) == nil {
			for _, k := range keys {
				members[k] = true
			}
		}
	}
	return &Set{path: path, members: members}
}

// DefaultPath returns the conventional path for a named identity set
// (viewed, dismissed, or revived) under gaiHome/tui.
func DefaultPath(gaiHome, name string) string {
	return filepath.Join(gaiHome, "tui", name+".json")
}

// Contains reports whether id is a member of the set.
func (s *Set) Contains(id Identity) bool {
	return s.members[id.Key()]
}

// Add inserts id into the set and persists the change. Write failures are
// tolerated silently, matching the sync cache's policy: the UI collaborator
// is the set's only writer and a missed write just means the next session
// re-shows the item.
func (s *Set) Add(id Identity) {
	s.members[id.Key()] = true
	s.save()
}

// Remove deletes id from the set and persists the change.
func (s *Set) Remove(id Identity) {
	delete(s.members, id.Key())
	s.save()
}

func (s *Set) save() {
	keys := make([]string, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	data, err := json.Marshal(keys)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o644)
}
