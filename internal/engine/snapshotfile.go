// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litsearch/pkg/types"
)

// SnapshotFile is the on-disk representation of a terminal loop result.
// The researcher can save a run to a file and reload the candidate set
// later without re-querying the provider.
type SnapshotFile struct {
	Topic    string              `yaml:"topic"`
	Snapshot types.MergeSnapshot `yaml:"snapshot"`
	Summary  SnapshotSummary     `yaml:"summary"`
}

// SnapshotSummary stores run statistics and a timestamp.
type SnapshotSummary struct {
	Converged  bool      `yaml:"converged"`
	Iterations int       `yaml:"iterations"`
	Succeeded  int       `yaml:"queries_succeeded"`
	Failed     int       `yaml:"queries_failed"`
	Timestamp  time.Time `yaml:"timestamp"`
}

// WriteSnapshotFile saves a loop result to a YAML file.
func WriteSnapshotFile(path, topic string, result *LoopResult) error {
	sf := SnapshotFile{
		Topic:    topic,
		Snapshot: *result.Snapshot,
		Summary: SnapshotSummary{
			Converged:  result.Converged,
			Iterations: result.Iterations,
			Succeeded:  result.Succeeded,
			Failed:     result.Failed,
			Timestamp:  time.Now(),
		},
	}

	data, err := yaml.Marshal(&sf)
	if err != nil {
		return fmt.Errorf("marshaling snapshot file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshotFile loads a previously saved snapshot file from disk.
func ReadSnapshotFile(path string) (*SnapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	var sf SnapshotFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing snapshot file: %w", err)
	}
	return &sf, nil
}
