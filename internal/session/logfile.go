// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// logFile is the on-disk representation of a session log. Saving the log
// lets a later CLI invocation replay and inspect entries without
// re-issuing provider calls; loading never resumes appends into the old
// process's session semantics, it simply reconstructs the log.
type logFile struct {
	Entries []Entry `yaml:"entries"`
}

// WriteFile saves the session log to a YAML file.
func (s *Store) WriteFile(path string) error {
	s.mu.RLock()
	lf := logFile{Entries: append([]Entry{}, s.entries...)}
	s.mu.RUnlock()

	data, err := yaml.Marshal(&lf)
	if err != nil {
		return fmt.Errorf("marshaling session log: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile loads a previously saved session log from disk.
func ReadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading session log: %w", err)
	}
	var lf logFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing session log: %w", err)
	}

	s := New()
	s.entries = lf.Entries
	return s, nil
}
