package logs

import (
	"fmt"
	"os"
	"path/filepath"
)

// UnknownRunID names exports made before any run was selected.
const UnknownRunID = "unknown"

// Artifact is a downloadable plain-text export of the displayed view.
type Artifact struct {
	Name        string
	ContentType string
	Content     string
}

// Export wraps viewText as a text file named after runID.
func Export(runID, viewText string) Artifact {
	if runID == "" {
		runID = UnknownRunID
	}
	return Artifact{
		Name:        fmt.Sprintf("run-%s-logs.txt", runID),
		ContentType: "text/plain",
		Content:     viewText,
	}
}

// WriteFile writes the artifact into dir and returns the path written.
func (a Artifact) WriteFile(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, a.Name)
	if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
