package config

import "strings"

// Container exec backends for acme.sh
const (
	BackendCLI = "cli" // docker exec through the local docker binary
	BackendAPI = "api" // Docker Engine API
)

// ACME describes the acme.sh container used for renewals
type ACME struct {
	Container string   `yaml:"container"`
	Backend   string   `yaml:"backend"`         // cli, api
	Home      string   `yaml:"home,omitempty"`  // --home inside the container
	Domains   []string `yaml:"domains,omitempty"`
	ECC       bool     `yaml:"ecc"`
}

// Sync describes where renewed certificates are pushed
type Sync struct {
	Host     string `yaml:"host,omitempty"` // user@host
	Port     int    `yaml:"port"`
	Identity string `yaml:"identity,omitempty"`
	Source   string `yaml:"source,omitempty"`
	Dest     string `yaml:"dest,omitempty"`
	Reload   string `yaml:"reload,omitempty"` // remote command run after a sync
	Delete   bool   `yaml:"delete"`
}

// Configured reports whether a sync target is set up
func (s Sync) Configured() bool {
	return s.Host != "" && s.Source != "" && s.Dest != ""
}

// Check describes the TLS expiry check
type Check struct {
	Targets     []string `yaml:"targets,omitempty"`
	DomainsFile string   `yaml:"domains_file,omitempty"`
	WarnDays    int      `yaml:"warn_days"`
	StatusFile  string   `yaml:"status_file"`
	ICSDir      string   `yaml:"ics_dir,omitempty"`
	Channels    []string `yaml:"channels"`
}

// Schedule holds cron specs; empty entries are disabled
type Schedule struct {
	Check string `yaml:"check,omitempty"`
	Renew string `yaml:"renew,omitempty"`
	Sync  string `yaml:"sync,omitempty"`
}

// Jobs returns the enabled job names mapped to their cron specs
func (s Schedule) Jobs() map[string]string {
	jobs := make(map[string]string)
	for name, spec := range map[string]string{"check": s.Check, "renew": s.Renew, "sync": s.Sync} {
		if strings.TrimSpace(spec) != "" {
			jobs[name] = strings.TrimSpace(spec)
		}
	}
	return jobs
}

// ValidBackends returns all valid acme backends
func ValidBackends() []string {
	return []string{BackendCLI, BackendAPI}
}

// IsValidBackend checks if the given backend is valid
func IsValidBackend(b string) bool {
	for _, valid := range ValidBackends() {
		if b == valid {
			return true
		}
	}
	return false
}
