package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nasbridge/nasbridge/internal/config"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/nasbridge/nasbridge/internal/scheduler"
	"github.com/spf13/cobra"
)

var doctorOffline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system status and diagnose issues",
	Long: `Run diagnostic checks on the environment and profile.

Checks:
  - docker, rsync and ssh on PATH
  - acme.sh container reachable
  - Telegram and email keys present (and the bot token valid)
  - LOG_DIR readable
  - profile valid, schedule specs parse

Examples:
  nasbridge doctor
  nasbridge doctor --offline --json`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "Skip checks that contact Telegram or Docker")
	rootCmd.AddCommand(doctorCmd)
}

// Check result statuses
const (
	statusSuccess = "success"
	statusWarning = "warning"
	statusError   = "error"
)

// CheckResult represents a single diagnostic check result
type CheckResult struct {
	Status  string `json:"status"` // "success", "warning", "error"
	Message string `json:"message"`
}

// DoctorReport contains all diagnostic results
type DoctorReport struct {
	System        []CheckResult `json:"system"`
	Environment   []CheckResult `json:"environment"`
	Configuration []CheckResult `json:"configuration"`
}

// Healthy reports whether no check ended in error
func (r *DoctorReport) Healthy() bool {
	for _, group := range [][]CheckResult{r.System, r.Environment, r.Configuration} {
		for _, c := range group {
			if c.Status == statusError {
				return false
			}
		}
	}
	return true
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	envErr := loadEnv()
	cfg, cfgErr := loadProfile()

	report := &DoctorReport{}
	report.Configuration = checkConfiguration(cfg, cfgErr)
	if cfg == nil {
		cfg = config.New()
	}
	report.System = checkSystemRequirements(ctx, cfg, !doctorOffline)
	report.Environment = checkEnvironment(ctx, envErr, !doctorOffline)

	if jsonOutput {
		return output.JSON(report)
	}

	displayDoctorResults(report)
	if report.Healthy() {
		output.Success("No blocking problems found")
	} else {
		output.Error("Some checks failed, see above")
	}
	return nil
}

func checkSystemRequirements(ctx context.Context, cfg *config.Config, online bool) []CheckResult {
	results := []CheckResult{}

	tools := []struct {
		name     string
		optional bool
	}{
		{"docker", cfg.ACME.Backend == config.BackendAPI},
		{"rsync", !cfg.Sync.Configured()},
		{"ssh", !cfg.Sync.Configured()},
	}
	for _, tool := range tools {
		if path, err := deps.Executor.LookPath(tool.name); err == nil {
			results = append(results, CheckResult{statusSuccess, fmt.Sprintf("%s found (%s)", tool.name, path)})
			continue
		}
		status, suffix := statusError, ""
		if tool.optional {
			status, suffix = statusWarning, " (optional)"
		}
		results = append(results, CheckResult{status, fmt.Sprintf("%s not installed%s", tool.name, suffix)})
	}

	if !online {
		return results
	}
	mgr, err := deps.ACMEFactory.Create(cfg.ACME)
	if err == nil {
		err = mgr.Available(ctx)
	}
	if err != nil {
		results = append(results, CheckResult{statusError, fmt.Sprintf("acme.sh container %s unreachable: %v", cfg.ACME.Container, err)})
	} else {
		results = append(results, CheckResult{statusSuccess, fmt.Sprintf("Docker reachable (%s backend)", cfg.ACME.Backend)})
	}
	return results
}

func checkEnvironment(ctx context.Context, envErr error, online bool) []CheckResult {
	results := []CheckResult{}
	if envErr != nil {
		results = append(results, CheckResult{statusError, envErr.Error()})
	}

	lookup := deps.Env.Lookup
	if missing := config.MissingKeys(lookup, config.TelegramKeys...); len(missing) > 0 {
		results = append(results, CheckResult{statusWarning, "Telegram not configured: missing " + strings.Join(missing, ", ")})
	} else if _, err := config.TelegramFromEnv(lookup); err != nil {
		results = append(results, CheckResult{statusError, err.Error()})
	} else if online {
		if name, err := deps.NotifierFactory.Ping(ctx, lookup); err != nil {
			results = append(results, CheckResult{statusError, fmt.Sprintf("Telegram bot token rejected: %v", err)})
		} else {
			results = append(results, CheckResult{statusSuccess, fmt.Sprintf("Telegram bot @%s reachable", name)})
		}
	} else {
		results = append(results, CheckResult{statusSuccess, "Telegram configured"})
	}

	if missing := config.MissingKeys(lookup, config.EmailKeys...); len(missing) > 0 {
		results = append(results, CheckResult{statusWarning, "Email not configured: missing " + strings.Join(missing, ", ")})
	} else if cfg, err := config.EmailFromEnv(lookup); err != nil {
		results = append(results, CheckResult{statusError, err.Error()})
	} else {
		results = append(results, CheckResult{statusSuccess, fmt.Sprintf("Email configured (%s:%d, %d receiver(s))", cfg.Server, cfg.Port, len(cfg.Receivers))})
	}

	dir := config.LogFromEnv(lookup).Dir
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		results = append(results, CheckResult{statusWarning, fmt.Sprintf("Log directory %s not found", dir)})
	} else {
		results = append(results, CheckResult{statusSuccess, fmt.Sprintf("Log directory %s exists", dir)})
	}
	return results
}

func checkConfiguration(cfg *config.Config, loadErr error) []CheckResult {
	results := []CheckResult{}

	path := configPath
	if path == "" {
		if p, err := config.ConfigPath(); err == nil {
			path = p
		}
	}
	if loadErr != nil {
		return append(results, CheckResult{statusError, fmt.Sprintf("Profile invalid: %v", loadErr)})
	}
	if _, err := os.Stat(path); err == nil {
		displayPath := strings.Replace(path, os.Getenv("HOME"), "~", 1)
		results = append(results, CheckResult{statusSuccess, fmt.Sprintf("Profile loaded (%s)", displayPath)})
	} else {
		results = append(results, CheckResult{statusWarning, "No profile found, using defaults (run 'nasbridge config init')"})
	}

	if err := validateSchedule(cfg); err != nil {
		results = append(results, CheckResult{statusError, err.Error()})
	} else if n := len(cfg.Schedule.Jobs()); n > 0 {
		results = append(results, CheckResult{statusSuccess, fmt.Sprintf("%d scheduled job(s) valid", n)})
	}

	if !cfg.Sync.Configured() {
		results = append(results, CheckResult{statusWarning, "Certificate sync not configured"})
	}
	if len(cfg.Check.Targets) == 0 && cfg.Check.DomainsFile == "" {
		results = append(results, CheckResult{statusWarning, "No expiry check targets configured"})
	}
	return results
}

// validateSchedule parses every spec without registering real jobs
func validateSchedule(cfg *config.Config) error {
	s := scheduler.New()
	for name, spec := range cfg.Schedule.Jobs() {
		if _, err := s.Add(name, spec, func(context.Context) error { return nil }); err != nil {
			return err
		}
	}
	return nil
}

func displayDoctorResults(report *DoctorReport) {
	sections := []struct {
		title  string
		checks []CheckResult
	}{
		{"Checking system requirements...", report.System},
		{"Checking environment...", report.Environment},
		{"Checking profile...", report.Configuration},
	}
	for _, s := range sections {
		output.Print("%s", s.title)
		for _, check := range s.checks {
			displayCheck(check)
		}
		output.Print("")
	}
}

func displayCheck(check CheckResult) {
	switch check.Status {
	case statusSuccess:
		output.Success("%s", check.Message)
	case statusWarning:
		output.Warn("%s", check.Message)
	case statusError:
		output.Error("%s", check.Message)
	}
}
