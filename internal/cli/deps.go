package cli

import (
	"context"
	"os"
	"time"

	"github.com/nasbridge/nasbridge/internal/acme"
	"github.com/nasbridge/nasbridge/internal/certcheck"
	"github.com/nasbridge/nasbridge/internal/config"
	"github.com/nasbridge/nasbridge/internal/executor"
	"github.com/nasbridge/nasbridge/internal/input"
	"github.com/nasbridge/nasbridge/internal/notifier"
)

// Dependencies aggregates all CLI external dependencies for testability
type Dependencies struct {
	ConfigLoader    ConfigLoader
	Env             EnvSource
	NotifierFactory NotifierFactory
	Executor        executor.CommandExecutor
	ACMEFactory     ACMEFactory
	CertChecker     CertChecker
	StdinReader     input.Reader
	Clock           func() time.Time
}

// ConfigLoader handles profile loading and saving.
// An empty path means the default location.
type ConfigLoader interface {
	Load(path string) (*config.Config, error)
	Save(cfg *config.Config, path string) error
}

// EnvSource loads the .env file and resolves keys
type EnvSource interface {
	Load(path string) error
	Lookup(key string) (string, bool)
}

// NotifierFactory builds a channel notifier from environment configuration.
// Create validates configuration and must not touch the network.
type NotifierFactory interface {
	Create(channel notifier.Channel, lookup config.LookupFunc) (notifier.Notifier, error)
	Ping(ctx context.Context, lookup config.LookupFunc) (string, error)
}

// ACMEManager is the subset of acme.Manager the CLI drives
type ACMEManager interface {
	Available(ctx context.Context) error
	Renew(ctx context.Context, domain string, force bool) (*acme.RenewResult, error)
	RenewAll(ctx context.Context, force bool) (*acme.RenewResult, error)
	RenewConfigured(ctx context.Context, force bool) ([]*acme.RenewResult, error)
	List(ctx context.Context) ([]acme.Cert, error)
}

// ACMEFactory creates the renewal manager for a profile
type ACMEFactory interface {
	Create(cfg config.ACME) (ACMEManager, error)
}

// CertChecker reads certificate expiry for targets
type CertChecker interface {
	CheckAll(ctx context.Context, targets []string) []certcheck.Status
}

// Package-level dependencies (can be overridden for testing)
var deps = &Dependencies{
	ConfigLoader:    &realConfigLoader{},
	Env:             &realEnv{},
	NotifierFactory: &realNotifierFactory{},
	Executor:        executor.NewSystemExecutor(),
	ACMEFactory:     &realACMEFactory{},
	CertChecker:     certcheck.NewChecker(config.DefaultTimeout),
	StdinReader:     input.NewStdinReader(),
	Clock:           time.Now,
}

// SetDeps replaces the package dependencies (for testing)
func SetDeps(d *Dependencies) {
	deps = d
}

// GetDeps returns the current dependencies (for testing)
func GetDeps() *Dependencies {
	return deps
}

// Real implementations that delegate to existing functions

type realConfigLoader struct{}

func (r *realConfigLoader) Load(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

func (r *realConfigLoader) Save(cfg *config.Config, path string) error {
	if path == "" {
		return cfg.Save()
	}
	return cfg.SaveTo(path)
}

type realEnv struct{}

func (r *realEnv) Load(path string) error {
	return config.LoadEnv(path)
}

func (r *realEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

type realNotifierFactory struct{}

func (r *realNotifierFactory) Create(channel notifier.Channel, lookup config.LookupFunc) (notifier.Notifier, error) {
	switch channel {
	case notifier.ChannelTelegram:
		cfg, err := config.TelegramFromEnv(lookup)
		if err != nil {
			return nil, err
		}
		tg, err := notifier.NewTelegram(cfg)
		if err != nil {
			return nil, err
		}
		return tg, nil
	case notifier.ChannelEmail:
		cfg, err := config.EmailFromEnv(lookup)
		if err != nil {
			return nil, err
		}
		return notifier.NewEmail(cfg), nil
	default:
		_, err := notifier.ParseChannels([]string{string(channel)})
		return nil, err
	}
}

func (r *realNotifierFactory) Ping(ctx context.Context, lookup config.LookupFunc) (string, error) {
	cfg, err := config.TelegramFromEnv(lookup)
	if err != nil {
		return "", err
	}
	tg, err := notifier.NewTelegram(cfg)
	if err != nil {
		return "", err
	}
	return tg.Ping(ctx)
}

type realACMEFactory struct{}

func (r *realACMEFactory) Create(cfg config.ACME) (ACMEManager, error) {
	return acme.NewFromConfig(cfg)
}
