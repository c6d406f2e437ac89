package certsync

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/executor"
)

func testSync() config.Sync {
	return config.Sync{
		Host:   "root@10.147.17.2",
		Port:   2222,
		Source: "/acme.sh/example.com_ecc/",
		Dest:   "/etc/nginx/ssl/example.com/",
	}
}

func TestRsyncArgs(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Sync)
		dryRun bool
		want   []string
	}{
		{
			name: "minimal",
			want: []string{"-az", "-e", "ssh -p 2222 -o BatchMode=yes -o ConnectTimeout=10",
				"/acme.sh/example.com_ecc/", "root@10.147.17.2:/etc/nginx/ssl/example.com/"},
		},
		{
			name:   "delete identity dry-run",
			modify: func(s *config.Sync) { s.Delete = true; s.Identity = "/root/.ssh/id_ed25519" },
			dryRun: true,
			want: []string{"-az", "--delete", "--dry-run", "--itemize-changes",
				"-e", "ssh -p 2222 -i /root/.ssh/id_ed25519 -o BatchMode=yes -o ConnectTimeout=10",
				"/acme.sh/example.com_ecc/", "root@10.147.17.2:/etc/nginx/ssl/example.com/"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSync()
			if tt.modify != nil {
				tt.modify(&cfg)
			}
			got := New(cfg, &executor.MockExecutor{}).RsyncArgs(tt.dryRun)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RsyncArgs() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestSSHArgs_DefaultPort(t *testing.T) {
	cfg := testSync()
	cfg.Port = 0
	got := New(cfg, &executor.MockExecutor{}).SSHArgs("systemctl reload nginx")
	want := []string{"-p", "22", "-o", "BatchMode=yes", "-o", "ConnectTimeout=10", "root@10.147.17.2", "systemctl reload nginx"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SSHArgs() = %q, want %q", got, want)
	}
}

func TestSync(t *testing.T) {
	t.Run("sync then reload", func(t *testing.T) {
		mock := &executor.MockExecutor{}
		cfg := testSync()
		cfg.Reload = "systemctl reload nginx"

		res, err := New(cfg, mock).Sync(context.Background(), false)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if len(mock.Calls) != 2 {
			t.Fatalf("expected rsync and ssh, got %d calls", len(mock.Calls))
		}
		if mock.Calls[0].Name != "rsync" || mock.Calls[1].Name != "ssh" {
			t.Errorf("unexpected call order: %s, %s", mock.Calls[0].Name, mock.Calls[1].Name)
		}
		if !res.Reloaded {
			t.Error("expected Reloaded")
		}
	})

	t.Run("dry run skips reload", func(t *testing.T) {
		mock := &executor.MockExecutor{}
		cfg := testSync()
		cfg.Reload = "systemctl reload nginx"

		res, err := New(cfg, mock).Sync(context.Background(), true)
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if len(mock.Calls) != 1 || res.Reloaded {
			t.Errorf("dry run must not reload: calls=%d reloaded=%v", len(mock.Calls), res.Reloaded)
		}
	})

	t.Run("rsync failure stops before reload", func(t *testing.T) {
		mock := &executor.MockExecutor{
			RunFunc: func(name string, args ...string) (*executor.Result, error) {
				return &executor.Result{ExitCode: 23, Output: []byte("partial transfer")},
					nberrors.External(name, 23, "partial transfer", errors.New("exit status 23"))
			},
		}
		cfg := testSync()
		cfg.Reload = "systemctl reload nginx"

		res, err := New(cfg, mock).Sync(context.Background(), false)
		if !nberrors.Is(err, nberrors.ErrExternal) {
			t.Fatalf("expected EXTERNAL error, got %v", err)
		}
		if nberrors.ExitCode(err) != 5 {
			t.Errorf("ExitCode = %d, want 5", nberrors.ExitCode(err))
		}
		if len(mock.Calls) != 1 {
			t.Errorf("reload must not run after a failed transfer")
		}
		if res.Output != "partial transfer" {
			t.Errorf("Output = %q", res.Output)
		}
	})

	t.Run("not configured", func(t *testing.T) {
		mock := &executor.MockExecutor{}
		_, err := New(config.Sync{Port: 22}, mock).Sync(context.Background(), false)
		if !nberrors.Is(err, nberrors.ErrValidation) {
			t.Errorf("expected VALIDATION error, got %v", err)
		}
		if len(mock.Calls) != 0 {
			t.Error("nothing should run")
		}
	})

	t.Run("rsync missing", func(t *testing.T) {
		mock := &executor.MockExecutor{
			LookPathFunc: func(file string) (string, error) {
				if file == "rsync" {
					return "", errors.New("not found")
				}
				return "/usr/bin/" + file, nil
			},
		}
		_, err := New(testSync(), mock).Sync(context.Background(), false)
		if !nberrors.Is(err, nberrors.ErrExternal) {
			t.Errorf("expected EXTERNAL error, got %v", err)
		}
		if len(mock.Calls) != 0 {
			t.Error("nothing should run")
		}
	})
}

func TestCheck(t *testing.T) {
	mock := &executor.MockExecutor{}
	if err := New(testSync(), mock).Check(context.Background()); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if got := mock.Calls[0].Line(); got != "ssh -p 2222 -o BatchMode=yes -o ConnectTimeout=10 root@10.147.17.2 true" {
		t.Errorf("command = %q", got)
	}

	if err := New(config.Sync{}, mock).Check(context.Background()); !nberrors.Is(err, nberrors.ErrValidation) {
		t.Errorf("expected VALIDATION error, got %v", err)
	}
}
