package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/nasbridge/nasbridge/internal/acme"
	"github.com/nasbridge/nasbridge/internal/certsync"
	"github.com/nasbridge/nasbridge/internal/config"
	"github.com/nasbridge/nasbridge/internal/logger"
	"github.com/nasbridge/nasbridge/internal/notifier"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/spf13/cobra"
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Certificate renewal, sync and expiry checks",
	Long:  `Renew certificates with acme.sh in Docker, push them to a remote host and check TLS expiry.`,
}

var certRenewCmd = &cobra.Command{
	Use:   "renew [domain]",
	Short: "Renew certificate(s) with acme.sh",
	Long: `Renew certificates with acme.sh running inside the configured container.

Without a domain, every domain listed under acme.domains is renewed; with
--all, acme.sh decides through its own cron run. Certificates that are not
yet due are reported as skipped.

Examples:
  nasbridge cert renew nas.example.com
  nasbridge cert renew --all --force
  nasbridge cert renew --notify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCertRenew,
}

var certListCmd = &cobra.Command{
	Use:   "list",
	Short: "List certificates managed by acme.sh",
	Args:  cobra.NoArgs,
	RunE:  runCertList,
}

var certSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push certificates to the remote host",
	Long: `Copy sync.source to sync.host:sync.dest with rsync over ssh, then run
sync.reload on the remote host.

Examples:
  nasbridge cert sync --dry-run
  nasbridge cert sync --check`,
	Args: cobra.NoArgs,
	RunE: runCertSync,
}

var (
	renewAll    bool
	renewForce  bool
	renewNotify bool

	syncDryRun    bool
	syncCheckOnly bool
	syncNotify    bool
)

func init() {
	certRenewCmd.Flags().BoolVar(&renewAll, "all", false, "Let acme.sh renew every certificate it manages")
	certRenewCmd.Flags().BoolVar(&renewForce, "force", false, "Renew even if the certificate is not due")
	certRenewCmd.Flags().BoolVar(&renewNotify, "notify", false, "Send the outcome to check.channels")

	certSyncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would be transferred")
	certSyncCmd.Flags().BoolVar(&syncCheckOnly, "check", false, "Only test the ssh connection")
	certSyncCmd.Flags().BoolVar(&syncNotify, "notify", false, "Send the outcome to check.channels")

	certCmd.AddCommand(certRenewCmd)
	certCmd.AddCommand(certListCmd)
	certCmd.AddCommand(certSyncCmd)
	certCmd.AddCommand(certCheckCmd)

	rootCmd.AddCommand(certCmd)
}

// renewOptions selects what a renewal run covers
type renewOptions struct {
	domain string
	all    bool
	force  bool
}

func performRenew(ctx context.Context, cfg *config.Config, opts renewOptions) ([]*acme.RenewResult, error) {
	mgr, err := deps.ACMEFactory.Create(cfg.ACME)
	if err != nil {
		return nil, err
	}
	if err := mgr.Available(ctx); err != nil {
		return nil, err
	}

	switch {
	case opts.domain != "":
		res, err := mgr.Renew(ctx, opts.domain, opts.force)
		if res == nil {
			return nil, err
		}
		return []*acme.RenewResult{res}, err
	case opts.all:
		res, err := mgr.RenewAll(ctx, opts.force)
		if res == nil {
			return nil, err
		}
		return []*acme.RenewResult{res}, err
	default:
		return mgr.RenewConfigured(ctx, opts.force)
	}
}

func runCertRenew(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadProfile()
	if err != nil {
		return err
	}
	opts := renewOptions{all: renewAll, force: renewForce}
	if len(args) == 1 {
		opts.domain = args[0]
	}
	if renewNotify {
		if err := loadEnv(); err != nil {
			return err
		}
	}

	results, renewErr := performRenew(ctx, cfg, opts)

	if renewNotify {
		if err := notifyOps(ctx, cfg, "Certificate renewal", renewSummary(results, renewErr)); err != nil {
			logger.Warn("Renewal notification failed: %v", err)
		}
	}

	if jsonOutput {
		if err := output.JSON(map[string]interface{}{"success": renewErr == nil, "results": results}); err != nil {
			return err
		}
		return renewErr
	}
	for _, r := range results {
		if r.Skipped {
			output.Info("%s: not due for renewal, skipped", r.Domain)
		} else {
			output.Success("%s: renewed", r.Domain)
		}
	}
	return renewErr
}

func renewSummary(results []*acme.RenewResult, err error) string {
	var lines []string
	for _, r := range results {
		state := "renewed"
		if r.Skipped {
			state = "skipped (not due)"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", r.Domain, state))
	}
	if err != nil {
		lines = append(lines, "❌ "+err.Error())
	}
	if len(lines) == 0 {
		return "No certificates renewed"
	}
	return strings.Join(lines, "\n")
}

func runCertList(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadProfile()
	if err != nil {
		return err
	}
	mgr, err := deps.ACMEFactory.Create(cfg.ACME)
	if err != nil {
		return err
	}
	certs, err := mgr.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(certs)
	}
	if len(certs) == 0 {
		output.Info("No certificates managed by acme.sh in %s", cfg.ACME.Container)
		return nil
	}

	headers := []string{"DOMAIN", "KEY", "SAN", "CREATED", "RENEW"}
	rows := make([][]string, 0, len(certs))
	for _, c := range certs {
		san := strings.Join(c.SANs, ",")
		if san == "" {
			san = "-"
		}
		rows = append(rows, []string{c.Domain, c.KeyLength, san, c.Created, c.Renew})
	}
	output.Table(headers, rows)
	return nil
}

func performSync(ctx context.Context, cfg *config.Config, dryRun bool) (*certsync.Result, error) {
	return certsync.New(cfg.Sync, deps.Executor).Sync(ctx, dryRun)
}

func runCertSync(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadProfile()
	if err != nil {
		return err
	}
	syncer := certsync.New(cfg.Sync, deps.Executor)

	if syncCheckOnly {
		if err := syncer.Check(ctx); err != nil {
			return err
		}
		return outputResult(map[string]interface{}{"success": true, "host": cfg.Sync.Host},
			"ssh connection to %s OK", cfg.Sync.Host)
	}

	if syncNotify {
		if err := loadEnv(); err != nil {
			return err
		}
	}

	res, syncErr := syncer.Sync(ctx, syncDryRun)

	if syncNotify && !syncDryRun {
		if err := notifyOps(ctx, cfg, "Certificate sync", syncSummary(cfg, res, syncErr)); err != nil {
			logger.Warn("Sync notification failed: %v", err)
		}
	}

	if jsonOutput {
		if err := output.JSON(map[string]interface{}{"success": syncErr == nil, "result": res}); err != nil {
			return err
		}
		return syncErr
	}
	if res != nil && res.Output != "" {
		output.Print("%s", res.Output)
	}
	if syncErr != nil {
		return syncErr
	}
	switch {
	case res.DryRun:
		output.Info("Dry run only, nothing was transferred")
	case res.Reloaded:
		output.Success("Synced to %s:%s and reloaded", res.Host, res.Dest)
	default:
		output.Success("Synced to %s:%s", res.Host, res.Dest)
	}
	return nil
}

func syncSummary(cfg *config.Config, res *certsync.Result, err error) string {
	if err != nil {
		return fmt.Sprintf("❌ sync to %s failed: %v", cfg.Sync.Host, err)
	}
	msg := fmt.Sprintf("✅ certificates synced to %s:%s", res.Host, res.Dest)
	if res.Reloaded {
		msg += " (reloaded)"
	}
	return msg
}

// notifyOps sends a plain text operator message on the profile's check channels
func notifyOps(ctx context.Context, cfg *config.Config, subject, text string) error {
	channels, err := channelsFrom(cfg.Check.Channels, string(notifier.ChannelTelegram))
	if err != nil {
		return err
	}
	notifiers, err := buildNotifiers(channels)
	if err != nil {
		return err
	}
	_, err = dispatch(ctx, notifiers, func(notifier.Channel) (*notifier.Message, error) {
		return &notifier.Message{Subject: subject, Body: text}, nil
	})
	return err
}
