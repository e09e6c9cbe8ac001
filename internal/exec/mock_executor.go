package exec

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockExecutor simulates command execution for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands maps command patterns to responses.
	// Key format: "command arg1 arg2"; "*" matches one argument.
	Commands map[string]*CommandResult

	// DefaultResult is returned when no specific command matches.
	DefaultResult *CommandResult

	// ExecutedCommands tracks all commands that were executed.
	ExecutedCommands []ExecutedCommand
}

// CommandResult represents the result of a command execution.
type CommandResult struct {
	Stdout string
	Stderr string
	Error  error
}

// ExecutedCommand tracks a command that was executed.
type ExecutedCommand struct {
	Name string
	Args []string
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:         make(map[string]*CommandResult),
		ExecutedCommands: make([]ExecutedCommand, 0),
	}
}

// Execute looks the command up in Commands.
func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecutedCommands = append(m.ExecutedCommands, ExecutedCommand{
		Name: name,
		Args: args,
	})

	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	cmdKey := buildCommandKey(name, args)

	if result, ok := m.Commands[cmdKey]; ok {
		return result.Stdout, result.Stderr, result.Error
	}

	for pattern, result := range m.Commands {
		if matchesPattern(cmdKey, pattern) {
			return result.Stdout, result.Stderr, result.Error
		}
	}

	if m.DefaultResult != nil {
		return m.DefaultResult.Stdout, m.DefaultResult.Stderr, m.DefaultResult.Error
	}

	return "", "", fmt.Errorf("mock executor: no result configured for command: %s", cmdKey)
}

// AddCommand registers a command response.
func (m *MockExecutor) AddCommand(name string, args []string, stdout, stderr string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands[buildCommandKey(name, args)] = &CommandResult{
		Stdout: stdout,
		Stderr: stderr,
		Error:  err,
	}
}

// AddGHRunLog registers the output of `gh run view <run> --log --repo <repo>`.
func (m *MockExecutor) AddGHRunLog(runID int64, repo, logOutput string) {
	m.AddCommand("gh", GHRunLogArgs(runID, repo), logOutput, "", nil)
}

// AddGHRunLogError registers a failing `gh run view` for runID.
func (m *MockExecutor) AddGHRunLogError(runID int64, repo, stderr string, err error) {
	m.AddCommand("gh", GHRunLogArgs(runID, repo), "", stderr, err)
}

// Executed returns a copy of the executed commands.
func (m *MockExecutor) Executed() []ExecutedCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutedCommand, len(m.ExecutedCommands))
	copy(out, m.ExecutedCommands)
	return out
}

// Reset clears all command history and configurations.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make(map[string]*CommandResult)
	m.ExecutedCommands = make([]ExecutedCommand, 0)
	m.DefaultResult = nil
}

// GHRunLogArgs builds the gh arguments that print the full log of a run.
func GHRunLogArgs(runID int64, repo string) []string {
	args := []string{"run", "view", fmt.Sprintf("%d", runID), "--log"}
	if repo != "" {
		args = append(args, "--repo", repo)
	}
	return args
}

func buildCommandKey(name string, args []string) string {
	parts := append([]string{name}, args...)
	return strings.Join(parts, " ")
}

// matchesPattern checks if a command matches a pattern (simple wildcard support).
func matchesPattern(cmd, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return cmd == pattern
	}

	patternParts := strings.Split(pattern, " ")
	cmdParts := strings.Split(cmd, " ")

	if len(patternParts) != len(cmdParts) {
		return false
	}

	for i, pp := range patternParts {
		if pp == "*" {
			continue
		}
		if pp != cmdParts[i] {
			return false
		}
	}

	return true
}
