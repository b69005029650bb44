package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/JaimeStill/microtravel/pkg/archive"
)

// writeArtifact stores artifact in dir through a temporary .part file so an
// interrupted write never leaves a truncated zip under the final name.
func writeArtifact(dir string, artifact *archive.Artifact) (string, error) {
	name := archive.EntryName(artifact.Name)
	if name == "" {
		return "", fmt.Errorf("artifact has no usable name")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	final := filepath.Join(dir, name)
	part := final + ".part"

	if err := os.WriteFile(part, artifact.Data, 0o644); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("write %s: %w", part, err)
	}
	if err := os.Rename(part, final); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("rename %s: %w", part, err)
	}
	return final, nil
}
