package executor

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// Result holds what an external command left behind
type Result struct {
	ExitCode int
	Output   []byte
}

// String returns the trimmed combined output
func (r *Result) String() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(string(r.Output))
}

// CommandExecutor is the boundary to external tools (docker, ssh, rsync)
type CommandExecutor interface {
	// Run executes a command and returns its exit code and combined output.
	// A non-zero exit is reported as an EXTERNAL error alongside the result.
	Run(ctx context.Context, name string, args ...string) (*Result, error)

	// LookPath searches for an executable in the directories named by the PATH
	LookPath(file string) (string, error)
}

// SystemExecutor implements CommandExecutor using os/exec
type SystemExecutor struct{}

// NewSystemExecutor creates a new SystemExecutor
func NewSystemExecutor() *SystemExecutor {
	return &SystemExecutor{}
}

// Run runs a command and returns combined output
func (e *SystemExecutor) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	logger.DebugFields("exec", map[string]interface{}{
		"cmd":  name,
		"args": strings.Join(args, " "),
	})

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	res := &Result{Output: out}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nberrors.External(name, res.ExitCode, string(out), err)
	}
	res.ExitCode = -1
	return res, nberrors.WrapSubject(nberrors.ErrCodeExternal, name, err)
}

// LookPath searches for an executable
func (e *SystemExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// MockExecutor is a mock implementation for testing
type MockExecutor struct {
	RunFunc      func(name string, args ...string) (*Result, error)
	LookPathFunc func(file string) (string, error)
	Calls        []CommandCall
}

// CommandCall records a command execution for verification
type CommandCall struct {
	Name string
	Args []string
}

// Line returns the call as a single space-joined command line
func (c CommandCall) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Run calls the mock function
func (m *MockExecutor) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	m.Calls = append(m.Calls, CommandCall{Name: name, Args: args})
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return &Result{}, nil
}

// LookPath calls the mock function
func (m *MockExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	return "/usr/bin/" + file, nil
}
