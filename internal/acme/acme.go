package acme

import (
	"context"
	"fmt"
	"strings"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/executor"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// acme.sh exits with 2 when a certificate is not yet due for renewal
const exitRenewSkipped = 2

// Cert is one row of `acme.sh --list`
type Cert struct {
	Domain    string   `json:"domain"`
	KeyLength string   `json:"key_length"`
	SANs      []string `json:"san_domains,omitempty"`
	CA        string   `json:"ca"`
	Created   string   `json:"created"`
	Renew     string   `json:"renew"`
}

// RenewResult describes one renewal run
type RenewResult struct {
	Domain  string `json:"domain"`
	Skipped bool   `json:"skipped"`
	Output  string `json:"output,omitempty"`
}

// Manager drives acme.sh inside its container
type Manager struct {
	cfg  config.ACME
	exec ContainerExec
}

// New creates a Manager over an explicit exec backend
func New(cfg config.ACME, exec ContainerExec) *Manager {
	return &Manager{cfg: cfg, exec: exec}
}

// NewFromConfig picks the exec backend named by cfg.Backend
func NewFromConfig(cfg config.ACME) (*Manager, error) {
	switch cfg.Backend {
	case "", config.BackendCLI:
		return New(cfg, &CLIExec{}), nil
	case config.BackendAPI:
		api, err := NewAPIExec()
		if err != nil {
			return nil, err
		}
		return New(cfg, api), nil
	default:
		return nil, nberrors.Validation(fmt.Sprintf("unknown acme backend %q", cfg.Backend))
	}
}

// Available reports whether the container runtime can be reached
func (m *Manager) Available(ctx context.Context) error {
	return m.exec.Available(ctx)
}

// Renew renews one certificate. A certificate that is not yet due is
// reported as skipped, not as an error.
func (m *Manager) Renew(ctx context.Context, domain string, force bool) (*RenewResult, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, nberrors.Validation("domain cannot be empty")
	}

	args := []string{"--renew", "-d", domain}
	if force {
		args = append(args, "--force")
	}
	if m.cfg.ECC {
		args = append(args, "--ecc")
	}

	res, err := m.run(ctx, args...)
	out := &RenewResult{Domain: domain, Output: res.String()}
	if err != nil {
		if res != nil && res.ExitCode == exitRenewSkipped {
			logger.Info("Certificate for %s is not due for renewal", domain)
			out.Skipped = true
			return out, nil
		}
		return out, err
	}
	logger.Info("Renewed certificate for %s", domain)
	return out, nil
}

// RenewAll runs acme.sh's cron job, which renews every due certificate
func (m *Manager) RenewAll(ctx context.Context, force bool) (*RenewResult, error) {
	args := []string{"--cron"}
	if force {
		args = append(args, "--force")
	}
	res, err := m.run(ctx, args...)
	return &RenewResult{Domain: "*", Output: res.String()}, err
}

// RenewConfigured renews every domain in the profile, or runs the cron job
// when none are listed. Every domain is attempted; errors are joined.
func (m *Manager) RenewConfigured(ctx context.Context, force bool) ([]*RenewResult, error) {
	if len(m.cfg.Domains) == 0 {
		res, err := m.RenewAll(ctx, force)
		return []*RenewResult{res}, err
	}

	var (
		results []*RenewResult
		errs    []error
	)
	for _, d := range m.cfg.Domains {
		res, err := m.Renew(ctx, d, force)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, nberrors.Join(errs...)
}

// List returns the certificates acme.sh manages
func (m *Manager) List(ctx context.Context) ([]Cert, error) {
	res, err := m.run(ctx, "--list")
	if err != nil {
		return nil, err
	}
	return ParseList(string(res.Output)), nil
}

func (m *Manager) run(ctx context.Context, args ...string) (*executor.Result, error) {
	cmd := append([]string{"acme.sh"}, args...)
	if m.cfg.Home != "" {
		cmd = append(cmd, "--home", m.cfg.Home)
	}
	return m.exec.Exec(ctx, m.cfg.Container, cmd...)
}

// ParseList parses `acme.sh --list` output. The header row and blank lines
// are skipped; quoted key lengths are unquoted.
func ParseList(out string) []Cert {
	var certs []Cert
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || fields[0] == "Main_Domain" {
			continue
		}

		c := Cert{Domain: fields[0]}
		if len(fields) > 1 {
			c.KeyLength = strings.Trim(fields[1], `"`)
		}
		if len(fields) > 2 && fields[2] != "no" {
			c.SANs = strings.Split(fields[2], ",")
		}
		if len(fields) > 3 {
			c.CA = fields[3]
		}
		if len(fields) > 4 {
			c.Created = fields[4]
		}
		if len(fields) > 5 {
			c.Renew = fields[5]
		}
		certs = append(certs, c)
	}
	return certs
}
