package executor

import (
	"context"
	"errors"
	"testing"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

func TestSystemExecutor_Run(t *testing.T) {
	exec := NewSystemExecutor()
	ctx := context.Background()

	t.Run("echo command", func(t *testing.T) {
		res, err := exec.Run(ctx, "echo", "hello")
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if string(res.Output) != "hello\n" {
			t.Errorf("expected 'hello\\n', got '%s'", string(res.Output))
		}
		if res.ExitCode != 0 {
			t.Errorf("expected exit code 0, got %d", res.ExitCode)
		}
		if res.String() != "hello" {
			t.Errorf("expected trimmed 'hello', got '%s'", res.String())
		}
	})

	t.Run("non-zero exit", func(t *testing.T) {
		res, err := exec.Run(ctx, "sh", "-c", "echo oops; exit 3")
		if err == nil {
			t.Fatal("expected error for non-zero exit")
		}
		if !nberrors.Is(err, nberrors.ErrExternal) {
			t.Errorf("expected EXTERNAL error, got %v", err)
		}
		if res.ExitCode != 3 {
			t.Errorf("expected exit code 3, got %d", res.ExitCode)
		}
		if res.String() != "oops" {
			t.Errorf("expected output 'oops', got '%s'", res.String())
		}
	})

	t.Run("nonexistent command", func(t *testing.T) {
		res, err := exec.Run(ctx, "nonexistent-command-xyz-12345")
		if err == nil {
			t.Error("expected error for nonexistent command")
		}
		if res.ExitCode != -1 {
			t.Errorf("expected exit code -1, got %d", res.ExitCode)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := exec.Run(cctx, "sleep", "5"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestSystemExecutor_LookPath(t *testing.T) {
	exec := NewSystemExecutor()

	t.Run("find sh", func(t *testing.T) {
		path, err := exec.LookPath("sh")
		if err != nil {
			t.Fatalf("LookPath failed: %v", err)
		}
		if path == "" {
			t.Error("expected non-empty path")
		}
	})

	t.Run("nonexistent command", func(t *testing.T) {
		_, err := exec.LookPath("nonexistent-command-xyz-12345")
		if err == nil {
			t.Error("expected error for nonexistent command")
		}
	})
}

func TestResult_StringNil(t *testing.T) {
	var r *Result
	if r.String() != "" {
		t.Errorf("nil result should render empty, got %q", r.String())
	}
}

func TestMockExecutor_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("default behavior", func(t *testing.T) {
		mock := &MockExecutor{}
		res, err := mock.Run(ctx, "docker", "exec", "acme.sh")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(res.Output) != 0 {
			t.Errorf("expected empty output, got '%s'", string(res.Output))
		}
		if len(mock.Calls) != 1 {
			t.Fatalf("expected 1 call, got %d", len(mock.Calls))
		}
		if mock.Calls[0].Line() != "docker exec acme.sh" {
			t.Errorf("unexpected call line '%s'", mock.Calls[0].Line())
		}
	})

	t.Run("custom function", func(t *testing.T) {
		mock := &MockExecutor{
			RunFunc: func(name string, args ...string) (*Result, error) {
				return &Result{Output: []byte("mocked output")}, nil
			},
		}
		res, err := mock.Run(ctx, "rsync")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if string(res.Output) != "mocked output" {
			t.Errorf("expected 'mocked output', got '%s'", string(res.Output))
		}
	})

	t.Run("error case", func(t *testing.T) {
		mock := &MockExecutor{
			RunFunc: func(name string, args ...string) (*Result, error) {
				return &Result{ExitCode: 1, Output: []byte("error output")}, errors.New("mock error")
			},
		}
		res, err := mock.Run(ctx, "ssh")
		if err == nil {
			t.Error("expected error")
		}
		if res.String() != "error output" {
			t.Errorf("expected 'error output', got '%s'", res.String())
		}
	})
}

func TestMockExecutor_LookPath(t *testing.T) {
	t.Run("default behavior", func(t *testing.T) {
		mock := &MockExecutor{}
		path, err := mock.LookPath("rsync")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if path != "/usr/bin/rsync" {
			t.Errorf("expected '/usr/bin/rsync', got '%s'", path)
		}
	})

	t.Run("custom function", func(t *testing.T) {
		mock := &MockExecutor{
			LookPathFunc: func(file string) (string, error) {
				if file == "docker" {
					return "/usr/local/bin/docker", nil
				}
				return "", errors.New("not found")
			},
		}

		path, err := mock.LookPath("docker")
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if path != "/usr/local/bin/docker" {
			t.Errorf("expected '/usr/local/bin/docker', got '%s'", path)
		}

		_, err = mock.LookPath("unknown")
		if err == nil {
			t.Error("expected error for unknown command")
		}
	})
}
