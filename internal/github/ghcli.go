package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/kyleking/gh-runtail/internal/exec"
)

// CLILogs reads run logs through `gh run view --log`. It serves hosts where
// the archive download is blocked but the gh CLI is authenticated.
type CLILogs struct {
	executor exec.CommandExecutor
	repo     string
}

// NewCLILogs creates a gh-backed log reader for repo (owner/name).
func NewCLILogs(executor exec.CommandExecutor, repo string) *CLILogs {
	return &CLILogs{executor: executor, repo: repo}
}

// RunLogLines returns the run's log as "[job/step] line" lines.
func (c *CLILogs) RunLogLines(ctx context.Context, runID int64) ([]string, error) {
	stdout, stderr, err := c.executor.Execute(ctx, "gh", exec.GHRunLogArgs(runID, c.repo)...)
	if err != nil {
		return nil, fmt.Errorf("gh command failed: %w (stderr: %s)", err, strings.TrimSpace(stderr))
	}
	return CLILines(stdout), nil
}

// CLILines converts `gh run view --log` output, which separates job, step
// and text with tabs, into labelled lines.
func CLILines(output string) []string {
	var lines []string
	for _, raw := range strings.Split(output, "\n") {
		raw = strings.TrimRight(raw, "\r")
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, "\t", 3)
		if len(parts) != 3 {
			lines = append(lines, raw)
			continue
		}
		lines = append(lines, "["+parts[0]+"/"+parts[1]+"] "+parts[2])
	}
	return lines
}
