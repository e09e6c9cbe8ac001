// Package exec runs external commands behind an interface so callers can be
// tested without the commands installed.
package exec

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandExecutor runs a command and returns its stdout and stderr.
type CommandExecutor interface {
	Execute(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

// RealExecutor executes actual system commands.
type RealExecutor struct{}

// NewRealExecutor creates an executor that runs real commands.
func NewRealExecutor() *RealExecutor {
	return &RealExecutor{}
}

// Execute runs the command, killing it when ctx is done.
func (e *RealExecutor) Execute(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// LookPath reports whether name can be found on PATH.
func LookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}
