package cli

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nasbridge/nasbridge/internal/acme"
	"github.com/nasbridge/nasbridge/internal/certcheck"
	"github.com/nasbridge/nasbridge/internal/config"
	"github.com/nasbridge/nasbridge/internal/executor"
	"github.com/nasbridge/nasbridge/internal/input"
	"github.com/nasbridge/nasbridge/internal/notifier"
)

// MockConfigLoader is a test double for ConfigLoader
type MockConfigLoader struct {
	Cfg       *config.Config
	LoadErr   error
	SaveErr   error
	SaveCalls int
	SavedPath string
}

func (m *MockConfigLoader) Load(path string) (*config.Config, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Cfg == nil {
		m.Cfg = config.New()
	}
	return m.Cfg, nil
}

func (m *MockConfigLoader) Save(cfg *config.Config, path string) error {
	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Cfg = cfg
	m.SavedPath = path
	return nil
}

// MockEnv is a test double for EnvSource backed by a map
type MockEnv struct {
	Vars      map[string]string
	LoadErr   error
	LoadCalls []string
}

func (m *MockEnv) Load(path string) error {
	m.LoadCalls = append(m.LoadCalls, path)
	return m.LoadErr
}

func (m *MockEnv) Lookup(key string) (string, bool) {
	v, ok := m.Vars[key]
	return v, ok
}

// MockNotifierFactory hands out MockNotifiers, one per channel, and fails
// the channels listed in Errs
type MockNotifierFactory struct {
	Notifiers map[notifier.Channel]*notifier.MockNotifier
	Errs      map[notifier.Channel]error
	PingName  string
	PingErr   error

	mu      sync.Mutex
	Created []notifier.Channel
	Pings   int
}

func (m *MockNotifierFactory) Create(channel notifier.Channel, lookup config.LookupFunc) (notifier.Notifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.Errs[channel]; err != nil {
		return nil, err
	}
	m.Created = append(m.Created, channel)
	n, ok := m.Notifiers[channel]
	if !ok {
		return nil, errors.New("no mock notifier for " + string(channel))
	}
	return n, nil
}

func (m *MockNotifierFactory) Ping(ctx context.Context, lookup config.LookupFunc) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pings++
	if m.PingErr != nil {
		return "", m.PingErr
	}
	return m.PingName, nil
}

// MockACME is a test double for ACMEManager
type MockACME struct {
	AvailableErr    error
	RenewFunc       func(domain string, force bool) (*acme.RenewResult, error)
	RenewAllFunc    func(force bool) (*acme.RenewResult, error)
	ConfiguredFunc  func(force bool) ([]*acme.RenewResult, error)
	Certs           []acme.Cert
	ListErr         error
	RenewCalls      []string
	RenewAllCalls   int
	ConfiguredCalls int
}

func (m *MockACME) Available(ctx context.Context) error {
	return m.AvailableErr
}

func (m *MockACME) Renew(ctx context.Context, domain string, force bool) (*acme.RenewResult, error) {
	m.RenewCalls = append(m.RenewCalls, domain)
	if m.RenewFunc != nil {
		return m.RenewFunc(domain, force)
	}
	return &acme.RenewResult{Domain: domain}, nil
}

func (m *MockACME) RenewAll(ctx context.Context, force bool) (*acme.RenewResult, error) {
	m.RenewAllCalls++
	if m.RenewAllFunc != nil {
		return m.RenewAllFunc(force)
	}
	return &acme.RenewResult{Domain: "*"}, nil
}

func (m *MockACME) RenewConfigured(ctx context.Context, force bool) ([]*acme.RenewResult, error) {
	m.ConfiguredCalls++
	if m.ConfiguredFunc != nil {
		return m.ConfiguredFunc(force)
	}
	return nil, nil
}

func (m *MockACME) List(ctx context.Context) ([]acme.Cert, error) {
	return m.Certs, m.ListErr
}

// MockACMEFactory returns the same MockACME for every profile
type MockACMEFactory struct {
	Manager *MockACME
	Err     error
}

func (m *MockACMEFactory) Create(cfg config.ACME) (ACMEManager, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Manager, nil
}

// MockCertChecker returns canned statuses keyed by target; unknown targets
// fail with a connect error
type MockCertChecker struct {
	Statuses map[string]certcheck.Status
	Checked  []string
}

func (m *MockCertChecker) CheckAll(ctx context.Context, targets []string) []certcheck.Status {
	out := make([]certcheck.Status, 0, len(targets))
	for _, t := range targets {
		m.Checked = append(m.Checked, t)
		st, ok := m.Statuses[t]
		if !ok {
			st = certcheck.Status{Target: t, Kind: certcheck.KindConnect, Error: "connection refused"}
		}
		out = append(out, st)
	}
	return out
}

// MockDependenciesBuilder helps create mock dependencies for tests
type MockDependenciesBuilder struct {
	deps *Dependencies
}

// NewMockDeps creates a new MockDependenciesBuilder with sensible defaults
func NewMockDeps() *MockDependenciesBuilder {
	return &MockDependenciesBuilder{
		deps: &Dependencies{
			ConfigLoader:    &MockConfigLoader{Cfg: config.New()},
			Env:             &MockEnv{Vars: map[string]string{}},
			NotifierFactory: &MockNotifierFactory{},
			Executor:        &executor.MockExecutor{},
			ACMEFactory:     &MockACMEFactory{Manager: &MockACME{}},
			CertChecker:     &MockCertChecker{},
			StdinReader:     input.NewStringReader(),
			Clock:           time.Now,
		},
	}
}

// WithConfig sets the profile for the mock
func (b *MockDependenciesBuilder) WithConfig(cfg *config.Config) *MockDependenciesBuilder {
	b.deps.ConfigLoader = &MockConfigLoader{Cfg: cfg}
	return b
}

// WithConfigLoader sets a custom config loader
func (b *MockDependenciesBuilder) WithConfigLoader(loader ConfigLoader) *MockDependenciesBuilder {
	b.deps.ConfigLoader = loader
	return b
}

// WithEnv sets the environment variables
func (b *MockDependenciesBuilder) WithEnv(vars map[string]string) *MockDependenciesBuilder {
	b.deps.Env = &MockEnv{Vars: vars}
	return b
}

// WithNotifierFactory sets a custom notifier factory
func (b *MockDependenciesBuilder) WithNotifierFactory(f NotifierFactory) *MockDependenciesBuilder {
	b.deps.NotifierFactory = f
	return b
}

// WithExecutor sets the command executor
func (b *MockDependenciesBuilder) WithExecutor(e executor.CommandExecutor) *MockDependenciesBuilder {
	b.deps.Executor = e
	return b
}

// WithACME sets the renewal manager
func (b *MockDependenciesBuilder) WithACME(m *MockACME) *MockDependenciesBuilder {
	b.deps.ACMEFactory = &MockACMEFactory{Manager: m}
	return b
}

// WithCertChecker sets the expiry checker
func (b *MockDependenciesBuilder) WithCertChecker(c CertChecker) *MockDependenciesBuilder {
	b.deps.CertChecker = c
	return b
}

// WithStdinInput sets the stdin input for the mock
func (b *MockDependenciesBuilder) WithStdinInput(lines ...string) *MockDependenciesBuilder {
	b.deps.StdinReader = input.NewStringReader(lines...)
	return b
}

// WithClock fixes the clock
func (b *MockDependenciesBuilder) WithClock(now time.Time) *MockDependenciesBuilder {
	b.deps.Clock = func() time.Time { return now }
	return b
}

// Build returns the configured Dependencies
func (b *MockDependenciesBuilder) Build() *Dependencies {
	return b.deps
}

// TestHelper provides utilities for CLI tests
type TestHelper struct {
	T interface {
		Helper()
		Cleanup(func())
	}
	OldDeps  *Dependencies
	Telegram *notifier.MockNotifier
	Email    *notifier.MockNotifier
	Factory  *MockNotifierFactory
	Env      *MockEnv
	Config   *MockConfigLoader
	ACME     *MockACME
	Checker  *MockCertChecker
	Executor *executor.MockExecutor
}

// NewTestHelper installs mock dependencies with one Telegram chat and one
// email receiver, and restores the previous dependencies and flags on cleanup
func NewTestHelper(t interface {
	Helper()
	Cleanup(func())
}) *TestHelper {
	t.Helper()

	h := &TestHelper{
		T:        t,
		OldDeps:  deps,
		Telegram: notifier.NewMockNotifier(notifier.ChannelTelegram, "111"),
		Email:    notifier.NewMockNotifier(notifier.ChannelEmail, "ops@example.com"),
		Env:      &MockEnv{Vars: map[string]string{}},
		Config:   &MockConfigLoader{Cfg: testProfile()},
		ACME:     &MockACME{},
		Checker:  &MockCertChecker{Statuses: map[string]certcheck.Status{}},
		Executor: &executor.MockExecutor{},
	}
	h.Factory = &MockNotifierFactory{
		Notifiers: map[notifier.Channel]*notifier.MockNotifier{
			notifier.ChannelTelegram: h.Telegram,
			notifier.ChannelEmail:    h.Email,
		},
		Errs:     map[notifier.Channel]error{},
		PingName: "nasbridge_bot",
	}

	deps = NewMockDeps().
		WithConfigLoader(h.Config).
		WithNotifierFactory(h.Factory).
		WithExecutor(h.Executor).
		WithACME(h.ACME).
		WithCertChecker(h.Checker).
		Build()
	deps.Env = h.Env

	saved := saveFlags()
	t.Cleanup(func() {
		deps = h.OldDeps
		saved.restore()
	})

	return h
}

// testProfile is the default profile without file outputs
func testProfile() *config.Config {
	cfg := config.New()
	cfg.Check.StatusFile = ""
	return cfg
}

// SetStdinInput sets the stdin input
func (h *TestHelper) SetStdinInput(lines ...string) {
	deps.StdinReader = input.NewStringReader(lines...)
}

// SetClock fixes the clock
func (h *TestHelper) SetClock(now time.Time) {
	deps.Clock = func() time.Time { return now }
}

// GetConfig returns the current mock profile
func (h *TestHelper) GetConfig() *config.Config {
	return h.Config.Cfg
}

// flagState snapshots the package-level flag variables
type flagState struct {
	jsonOutput       bool
	verbose          bool
	envFile          string
	configPath       string
	notifyChannels   []string
	notifyLog        bool
	notifySubject    string
	notifyAttach     []string
	notifyPing       bool
	notifySilent     bool
	renewAll         bool
	renewForce       bool
	renewNotify      bool
	syncDryRun       bool
	syncCheckOnly    bool
	syncNotify       bool
	checkNoNotify    bool
	checkWarnDays    int
	checkDomainsFile string
	scheduleList     bool
	scheduleRunNow   []string
	doctorOffline    bool
	configInitForce  bool
}

func saveFlags() flagState {
	return flagState{
		jsonOutput:       jsonOutput,
		verbose:          verbose,
		envFile:          envFile,
		configPath:       configPath,
		notifyChannels:   notifyChannels,
		notifyLog:        notifyLog,
		notifySubject:    notifySubject,
		notifyAttach:     notifyAttach,
		notifyPing:       notifyPing,
		notifySilent:     notifySilent,
		renewAll:         renewAll,
		renewForce:       renewForce,
		renewNotify:      renewNotify,
		syncDryRun:       syncDryRun,
		syncCheckOnly:    syncCheckOnly,
		syncNotify:       syncNotify,
		checkNoNotify:    checkNoNotify,
		checkWarnDays:    checkWarnDays,
		checkDomainsFile: checkDomainsFile,
		scheduleList:     scheduleList,
		scheduleRunNow:   scheduleRunNow,
		doctorOffline:    doctorOffline,
		configInitForce:  configInitForce,
	}
}

func (s flagState) restore() {
	jsonOutput = s.jsonOutput
	verbose = s.verbose
	envFile = s.envFile
	configPath = s.configPath
	notifyChannels = s.notifyChannels
	notifyLog = s.notifyLog
	notifySubject = s.notifySubject
	notifyAttach = s.notifyAttach
	notifyPing = s.notifyPing
	notifySilent = s.notifySilent
	renewAll = s.renewAll
	renewForce = s.renewForce
	renewNotify = s.renewNotify
	syncDryRun = s.syncDryRun
	syncCheckOnly = s.syncCheckOnly
	syncNotify = s.syncNotify
	checkNoNotify = s.checkNoNotify
	checkWarnDays = s.checkWarnDays
	checkDomainsFile = s.checkDomainsFile
	scheduleList = s.scheduleList
	scheduleRunNow = s.scheduleRunNow
	doctorOffline = s.doctorOffline
	configInitForce = s.configInitForce
}
