package cli

import (
	"context"

	"github.com/nasbridge/nasbridge/internal/acme"
	"github.com/nasbridge/nasbridge/internal/config"
	"github.com/nasbridge/nasbridge/internal/logger"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/nasbridge/nasbridge/internal/scheduler"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the configured jobs on their cron schedules",
	Long: `Run the check, renew and sync jobs from the profile's schedule section
until interrupted. Specs use five-field cron syntax or descriptors such as
@daily and "@every 12h"; an empty spec disables the job.

A failing job is logged and reported on check.channels; the scheduler keeps
running.

Examples:
  nasbridge schedule
  nasbridge schedule --run-now check
  nasbridge schedule --list`,
	Args: cobra.NoArgs,
	RunE: runSchedule,
}

var (
	scheduleList   bool
	scheduleRunNow []string
)

func init() {
	scheduleCmd.Flags().BoolVar(&scheduleList, "list", false, "Show the enabled jobs and exit")
	scheduleCmd.Flags().StringSliceVar(&scheduleRunNow, "run-now", nil, "Run these jobs once before starting (check, renew, sync)")

	rootCmd.AddCommand(scheduleCmd)
}

// buildScheduler registers every job that has a spec
func buildScheduler(cfg *config.Config) (*scheduler.Scheduler, error) {
	s := scheduler.New()
	jobs := []struct {
		name string
		spec string
		fn   scheduler.JobFunc
	}{
		{"check", cfg.Schedule.Check, func(ctx context.Context) error {
			_, err := performCheck(ctx, cfg, checkOptions{notify: true})
			return err
		}},
		{"renew", cfg.Schedule.Renew, func(ctx context.Context) error {
			results, err := performRenew(ctx, cfg, renewOptions{})
			if err != nil || renewedAny(results) {
				reportJob(ctx, cfg, "Certificate renewal", renewSummary(results, err))
			}
			return err
		}},
		{"sync", cfg.Schedule.Sync, func(ctx context.Context) error {
			res, err := performSync(ctx, cfg, false)
			if err != nil {
				reportJob(ctx, cfg, "Certificate sync", syncSummary(cfg, res, err))
			}
			return err
		}},
	}
	for _, j := range jobs {
		if _, err := s.Add(j.name, j.spec, j.fn); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func renewedAny(results []*acme.RenewResult) bool {
	for _, r := range results {
		if !r.Skipped {
			return true
		}
	}
	return false
}

func reportJob(ctx context.Context, cfg *config.Config, subject, text string) {
	if err := notifyOps(ctx, cfg, subject, text); err != nil {
		logger.Warn("%s notification failed: %v", subject, err)
	}
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	cfg, err := loadProfile()
	if err != nil {
		return err
	}
	if err := loadEnv(); err != nil {
		return err
	}
	s, err := buildScheduler(cfg)
	if err != nil {
		return err
	}

	entries := s.Entries()
	if scheduleList {
		if jsonOutput {
			return output.JSON(entries)
		}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Name, e.Spec})
		}
		output.Table([]string{"JOB", "SCHEDULE"}, rows)
		return nil
	}

	for _, name := range scheduleRunNow {
		if err := s.Trigger(ctx, name); err != nil {
			output.Warn("Job %s failed: %v", name, err)
		}
	}

	for _, e := range entries {
		output.Info("%s: %s", e.Name, e.Spec)
	}
	return s.Run(ctx)
}
