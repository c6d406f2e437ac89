package cli

import (
	"context"
	"fmt"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
	"github.com/nasbridge/nasbridge/internal/notifier"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/spf13/cobra"
)

// commandContext returns the command's context, or Background when the
// command was invoked directly (as in tests)
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// loadEnv reads the --env file into the process environment
func loadEnv() error {
	return deps.Env.Load(envFile)
}

// loadProfile reads the --config profile
func loadProfile() (*config.Config, error) {
	cfg, err := deps.ConfigLoader.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildNotifiers validates configuration for every channel before anything
// is sent, so a missing key never results in a partial dispatch
func buildNotifiers(channels []notifier.Channel) ([]notifier.Notifier, error) {
	var (
		out  []notifier.Notifier
		errs []error
	)
	for _, ch := range channels {
		n, err := deps.NotifierFactory.Create(ch, deps.Env.Lookup)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		out = append(out, n)
	}
	if len(errs) > 0 {
		return nil, nberrors.Join(errs...)
	}
	return out, nil
}

// composeFunc builds the message for one channel
type composeFunc func(ch notifier.Channel) (*notifier.Message, error)

// dispatch sends one composed message per notifier and joins the delivery
// errors of every channel
func dispatch(ctx context.Context, notifiers []notifier.Notifier, compose composeFunc) ([]*notifier.Report, error) {
	messages := make([]*notifier.Message, len(notifiers))
	for i, n := range notifiers {
		msg, err := compose(n.Channel())
		if err != nil {
			return nil, err
		}
		messages[i] = msg
	}

	var (
		reports []*notifier.Report
		errs    []error
	)
	for i, n := range notifiers {
		logger.DebugFields("Dispatching", map[string]interface{}{
			"channel":    string(n.Channel()),
			"recipients": len(n.Recipients()),
		})
		report := n.Send(ctx, messages[i])
		reports = append(reports, report)
		if err := report.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return reports, nberrors.Join(errs...)
}

// printReports writes one line per recipient
func printReports(reports []*notifier.Report) {
	for _, r := range reports {
		for _, res := range r.Results {
			if res.Sent {
				output.Success("%s %s: sent", r.Channel, res.Recipient)
			} else {
				output.Error("%s %s: %s", r.Channel, res.Recipient, res.Error)
			}
		}
	}
}

// outputResult handles JSON or human-readable output
func outputResult(data interface{}, successMsg string, args ...interface{}) error {
	if jsonOutput {
		return output.JSON(data)
	}
	output.Success(successMsg, args...)
	return nil
}

// channelsFrom parses channel names, falling back to def when none are given
func channelsFrom(names []string, def ...string) ([]notifier.Channel, error) {
	if len(names) == 0 {
		names = def
	}
	return notifier.ParseChannels(names)
}
