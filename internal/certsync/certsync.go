// Package certsync pushes renewed certificates to a remote host with rsync
// over ssh, then optionally runs a reload command there.
package certsync

import (
	"context"
	"strconv"
	"strings"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/executor"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// ConnectTimeout is passed to ssh as ConnectTimeout, in seconds
const ConnectTimeout = 10

// Result describes one sync run
type Result struct {
	Host     string `json:"host"`
	Source   string `json:"source"`
	Dest     string `json:"dest"`
	DryRun   bool   `json:"dry_run"`
	Reloaded bool   `json:"reloaded"`
	Output   string `json:"output,omitempty"`
}

// Syncer runs rsync and ssh through a CommandExecutor
type Syncer struct {
	cfg  config.Sync
	exec executor.CommandExecutor
}

// New creates a Syncer for the given target
func New(cfg config.Sync, exec executor.CommandExecutor) *Syncer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &Syncer{cfg: cfg, exec: exec}
}

// Sync copies Source to Host:Dest. The reload command runs only after a
// real (non dry-run) transfer succeeds.
func (s *Syncer) Sync(ctx context.Context, dryRun bool) (*Result, error) {
	if !s.cfg.Configured() {
		return nil, nberrors.Validation("sync is not configured: set sync.host, sync.source and sync.dest")
	}
	if err := s.requireTools("rsync", "ssh"); err != nil {
		return nil, err
	}

	result := &Result{Host: s.cfg.Host, Source: s.cfg.Source, Dest: s.cfg.Dest, DryRun: dryRun}

	res, err := s.exec.Run(ctx, "rsync", s.RsyncArgs(dryRun)...)
	result.Output = res.String()
	if err != nil {
		return result, err
	}
	logger.Info("Synced %s to %s:%s", s.cfg.Source, s.cfg.Host, s.cfg.Dest)

	if s.cfg.Reload == "" || dryRun {
		return result, nil
	}

	res, err = s.exec.Run(ctx, "ssh", s.SSHArgs(s.cfg.Reload)...)
	if out := res.String(); out != "" {
		result.Output = strings.TrimSpace(result.Output + "\n" + out)
	}
	if err != nil {
		return result, err
	}
	result.Reloaded = true
	logger.Info("Ran %q on %s", s.cfg.Reload, s.cfg.Host)
	return result, nil
}

// Check verifies non-interactive ssh access to the host
func (s *Syncer) Check(ctx context.Context) error {
	if s.cfg.Host == "" {
		return nberrors.Validation("sync.host is not set")
	}
	if err := s.requireTools("ssh"); err != nil {
		return err
	}
	_, err := s.exec.Run(ctx, "ssh", s.SSHArgs("true")...)
	return err
}

// RsyncArgs builds the rsync argument vector
func (s *Syncer) RsyncArgs(dryRun bool) []string {
	args := []string{"-az"}
	if s.cfg.Delete {
		args = append(args, "--delete")
	}
	if dryRun {
		args = append(args, "--dry-run", "--itemize-changes")
	}
	args = append(args, "-e", strings.Join(s.sshOptions(), " "), s.cfg.Source, s.cfg.Host+":"+s.cfg.Dest)
	return args
}

// SSHArgs builds the ssh argument vector for a remote command
func (s *Syncer) SSHArgs(remote string) []string {
	args := s.sshOptions()[1:]
	return append(args, s.cfg.Host, remote)
}

// sshOptions returns the ssh command line, program name first
func (s *Syncer) sshOptions() []string {
	opts := []string{"ssh", "-p", strconv.Itoa(s.cfg.Port)}
	if s.cfg.Identity != "" {
		opts = append(opts, "-i", s.cfg.Identity)
	}
	return append(opts,
		"-o", "BatchMode=yes",
		"-o", "ConnectTimeout="+strconv.Itoa(ConnectTimeout),
	)
}

func (s *Syncer) requireTools(tools ...string) error {
	for _, tool := range tools {
		if _, err := s.exec.LookPath(tool); err != nil {
			return nberrors.Wrap(nberrors.ErrCodeExternal, tool+" is not installed", err)
		}
	}
	return nil
}
