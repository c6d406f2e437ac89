package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nasbridge/nasbridge/internal/certcheck"
	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
	"github.com/nasbridge/nasbridge/internal/notifier"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/spf13/cobra"
)

var certCheckCmd = &cobra.Command{
	Use:   "check [target...]",
	Short: "Check TLS certificate expiry",
	Long: `Connect to each target, verify its certificate and report how long it
remains valid. Targets are host or host:port (default 443).

Without arguments, targets come from check.targets and check.domains_file.
Results are merged into check.status_file, and a summary is sent to
check.channels unless --no-notify is given. When check.ics_dir is set, a
calendar with the expiring certificates is written there and attached to
the email.

Examples:
  nasbridge cert check
  nasbridge cert check nas.example.com example.com:8443 --no-notify
  nasbridge cert check --domains-file domains.conf --warn-days 20`,
	RunE: runCertCheck,
}

var (
	checkNoNotify    bool
	checkWarnDays    int
	checkDomainsFile string
)

func init() {
	certCheckCmd.Flags().BoolVar(&checkNoNotify, "no-notify", false, "Only print results, send nothing")
	certCheckCmd.Flags().IntVar(&checkWarnDays, "warn-days", 0, "Warn when fewer days remain (default check.warn_days)")
	certCheckCmd.Flags().StringVar(&checkDomainsFile, "domains-file", "", "File with one target per line (default check.domains_file)")
}

// checkOptions overrides the profile for one check run
type checkOptions struct {
	targets     []string
	domainsFile string
	warnDays    int
	notify      bool
}

// CheckReport is the outcome of a check run
type CheckReport struct {
	Alert    bool               `json:"alert"`
	Statuses []certcheck.Status `json:"statuses"`
	Warnings []string           `json:"warnings,omitempty"`
	Calendar string             `json:"calendar,omitempty"`
	Reports  []*notifier.Report `json:"reports,omitempty"`
}

func checkTargets(cfg *config.Config, opts checkOptions) ([]string, error) {
	if len(opts.targets) > 0 {
		return opts.targets, nil
	}
	targets := append([]string(nil), cfg.Check.Targets...)

	file := opts.domainsFile
	if file == "" {
		file = cfg.Check.DomainsFile
	}
	if file != "" {
		fromFile, err := certcheck.LoadDomains(file)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	if len(targets) == 0 {
		return nil, nberrors.Validation("no targets: pass them as arguments or set check.targets / check.domains_file")
	}
	return targets, nil
}

func performCheck(ctx context.Context, cfg *config.Config, opts checkOptions) (*CheckReport, error) {
	targets, err := checkTargets(cfg, opts)
	if err != nil {
		return nil, err
	}

	var notifiers []notifier.Notifier
	if opts.notify {
		channels, err := channelsFrom(cfg.Check.Channels, string(notifier.ChannelTelegram))
		if err != nil {
			return nil, err
		}
		if notifiers, err = buildNotifiers(channels); err != nil {
			return nil, err
		}
	}

	warnDays := opts.warnDays
	if warnDays <= 0 {
		warnDays = cfg.Check.WarnDays
	}

	statuses := deps.CertChecker.CheckAll(ctx, targets)
	now := deps.Clock()

	if cfg.Check.StatusFile != "" {
		if err := certcheck.UpdateStatusFile(cfg.Check.StatusFile, statuses, now); err != nil {
			logger.Warn("Cannot update status file %s: %v", cfg.Check.StatusFile, err)
		}
	}

	summary := certcheck.Summarize(statuses, warnDays)
	report := &CheckReport{Alert: summary.Alert, Statuses: statuses, Warnings: summary.Warnings}

	var attachments []notifier.Attachment
	if len(summary.Expiring) > 0 {
		attachments = append(attachments, notifier.Attachment{
			Name:        certcheck.CalendarFile,
			ContentType: certcheck.CalendarContentType,
			Data:        certcheck.BuildCalendar(summary.Expiring, now),
		})
		if cfg.Check.ICSDir != "" {
			path, err := certcheck.WriteCalendar(cfg.Check.ICSDir, summary.Expiring, now)
			if err != nil {
				logger.Warn("Cannot write calendar: %v", err)
			} else {
				report.Calendar = path
			}
		}
	}

	if !opts.notify {
		return report, nil
	}
	reports, sendErr := dispatch(ctx, notifiers, func(ch notifier.Channel) (*notifier.Message, error) {
		msg := &notifier.Message{Subject: summary.Subject, Body: summary.Text}
		if ch == notifier.ChannelEmail {
			msg.Attachments = attachments
		}
		return msg, nil
	})
	report.Reports = reports
	return report, sendErr
}

func runCertCheck(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadProfile()
	if err != nil {
		return err
	}
	opts := checkOptions{
		targets:     args,
		domainsFile: checkDomainsFile,
		warnDays:    checkWarnDays,
		notify:      !checkNoNotify,
	}
	if opts.notify {
		if err := loadEnv(); err != nil {
			return err
		}
	}

	report, err := performCheck(ctx, cfg, opts)
	if report == nil {
		return err
	}

	if jsonOutput {
		if jerr := output.JSON(report); jerr != nil {
			return jerr
		}
		return err
	}

	headers := []string{"TARGET", "EXPIRES", "DAYS", "STATUS"}
	rows := make([][]string, 0, len(report.Statuses))
	for _, st := range report.Statuses {
		rows = append(rows, statusRow(st))
	}
	output.Table(headers, rows)
	output.Print("")
	if report.Alert {
		output.Warn("%d target(s) need attention", len(report.Warnings))
	} else {
		output.Success("All certificates are valid")
	}
	if report.Calendar != "" {
		output.Info("Calendar written to %s", report.Calendar)
	}
	printReports(report.Reports)
	return err
}

func statusRow(st certcheck.Status) []string {
	if st.Failed() {
		return []string{st.Target, "-", "-", fmt.Sprintf("error (%s)", st.Kind)}
	}
	state := "expired"
	if st.Valid {
		state = fmt.Sprintf("valid, %s left", certcheck.FormatRemaining(st.Remaining))
	}
	return []string{st.Target, st.NotAfter.Format("2006-01-02"), strconv.Itoa(st.DaysLeft), state}
}
