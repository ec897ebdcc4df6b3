package input

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadSnapshot loads a planner input snapshot from a YAML file. If the path
// is a directory, snapshot.yaml inside it is read.
func LoadSnapshot(snapshotPath string) (*PlannerInput, error) {
	path := snapshotPath
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, "snapshot.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var in PlannerInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot YAML: %w", err)
	}

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}

	return &in, nil
}

// SaveSnapshot writes a planner input snapshot to a YAML file
func SaveSnapshot(in *PlannerInput, path string) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}

	data, err := yaml.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return nil
}
