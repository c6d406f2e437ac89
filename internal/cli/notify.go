package cli

import (
	"fmt"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/input"
	"github.com/nasbridge/nasbridge/internal/logger"
	"github.com/nasbridge/nasbridge/internal/logsel"
	"github.com/nasbridge/nasbridge/internal/notifier"
	"github.com/nasbridge/nasbridge/internal/output"
	"github.com/nasbridge/nasbridge/internal/template"
	"github.com/spf13/cobra"
)

var (
	notifyChannels []string
	notifyLog      bool
	notifySubject  string
	notifyAttach   []string
	notifyPing     bool
	notifySilent   bool
)

var notifyCmd = &cobra.Command{
	Use:   "notify [message...]",
	Short: "Send a notification or a dated log file",
	Long: `Send a message to every configured recipient of the selected channels.

With --log, the positional argument is a date (YYYY-MM-DD, default today)
and the matching .log file in LOG_DIR is sent instead of a message.

Configuration for every selected channel is validated before anything is
sent. Each recipient is reported separately; the command fails if any
recipient could not be reached.

Examples:
  nasbridge notify "backup finished"
  echo "disk almost full" | nasbridge notify -
  nasbridge notify -c telegram,email --subject "Backup" "backup finished"
  nasbridge notify --log 2026-02-03 -c email
  nasbridge notify --ping`,
	RunE: runNotify,
}

func init() {
	notifyCmd.Flags().StringSliceVarP(&notifyChannels, "channel", "c", nil, "Channels to use: telegram, email (default telegram)")
	notifyCmd.Flags().BoolVar(&notifyLog, "log", false, "Send the log file for the given date instead of a message")
	notifyCmd.Flags().StringVarP(&notifySubject, "subject", "s", "", "Email subject")
	notifyCmd.Flags().StringSliceVarP(&notifyAttach, "attach", "a", nil, "File to attach to the email (repeatable)")
	notifyCmd.Flags().BoolVar(&notifyPing, "ping", false, "Check the Telegram bot token with getMe and exit")
	notifyCmd.Flags().BoolVar(&notifySilent, "silent", false, "Send Telegram messages without a notification sound")

	rootCmd.AddCommand(notifyCmd)
}

// NotifyResult is the JSON form of a notify run
type NotifyResult struct {
	Success bool               `json:"success"`
	Log     *LogInfo           `json:"log,omitempty"`
	Reports []*notifier.Report `json:"reports"`
}

// LogInfo describes the log file that was sent
type LogInfo struct {
	Path    string `json:"path"`
	Date    string `json:"date"`
	Matches int    `json:"matches"`
}

func runNotify(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	if err := loadEnv(); err != nil {
		return err
	}
	if notifyPing {
		return runPing(cmd)
	}

	channels, err := channelsFrom(notifyChannels, string(notifier.ChannelTelegram))
	if err != nil {
		return err
	}
	notifiers, err := buildNotifiers(channels)
	if err != nil {
		return err
	}

	var (
		compose composeFunc
		logInfo *LogInfo
	)
	if notifyLog {
		rec, err := selectLog(args)
		if err != nil {
			return err
		}
		logInfo = &LogInfo{Path: rec.Path, Date: rec.Date, Matches: rec.Matches}
		compose = logMessage(rec)
	} else {
		text, err := input.Message(args, deps.StdinReader)
		if err != nil {
			return nberrors.Wrap(nberrors.ErrCodeValidation, "cannot read message", err)
		}
		if text == "" {
			return nberrors.Validation("message is empty")
		}
		compose = textMessage(text)
	}

	attachments := loadAttachments(notifyAttach)
	withExtras := func(ch notifier.Channel) (*notifier.Message, error) {
		msg, err := compose(ch)
		if err != nil {
			return nil, err
		}
		msg.Silent = notifySilent
		if ch == notifier.ChannelEmail {
			msg.Attachments = attachments
			if notifySubject != "" {
				msg.Subject = notifySubject
			}
		}
		return msg, nil
	}

	reports, sendErr := dispatch(ctx, notifiers, withExtras)
	if jsonOutput {
		if err := output.JSON(NotifyResult{Success: sendErr == nil, Log: logInfo, Reports: reports}); err != nil {
			return err
		}
		return sendErr
	}

	if logInfo != nil {
		output.Info("Sending %s", logInfo.Path)
	}
	printReports(reports)
	return sendErr
}

func runPing(cmd *cobra.Command) error {
	name, err := deps.NotifierFactory.Ping(commandContext(cmd), deps.Env.Lookup)
	if err != nil {
		return nberrors.Delivery(string(notifier.ChannelTelegram), "getMe", err)
	}
	return outputResult(map[string]interface{}{"success": true, "bot": name}, "Telegram bot @%s is reachable", name)
}

// selectLog picks the log file for the optional date argument
func selectLog(args []string) (*logsel.Record, error) {
	if len(args) > 1 {
		return nil, nberrors.Validation("--log takes at most one date argument")
	}
	date := ""
	if len(args) == 1 {
		date = args[0]
	}

	sel := logsel.New(config.LogFromEnv(deps.Env.Lookup).Dir)
	sel.Now = deps.Clock
	return sel.Read(date)
}

func logMessage(rec *logsel.Record) composeFunc {
	entry := template.LogEntry{Name: rec.Name, Content: string(rec.Content)}
	return func(ch notifier.Channel) (*notifier.Message, error) {
		if ch == notifier.ChannelEmail {
			body, err := template.EmailLogs(rec.Date, entry)
			if err != nil {
				return nil, err
			}
			return &notifier.Message{Subject: fmt.Sprintf("Log report %s", rec.Date), Body: body, HTML: true}, nil
		}
		body, err := template.TelegramLogs(rec.Date, entry)
		if err != nil {
			return nil, err
		}
		return &notifier.Message{Body: body}, nil
	}
}

func textMessage(text string) composeFunc {
	return func(ch notifier.Channel) (*notifier.Message, error) {
		if ch == notifier.ChannelEmail {
			body, err := template.EmailMessage(text)
			if err != nil {
				return nil, err
			}
			return &notifier.Message{Body: body, HTML: true}, nil
		}
		return &notifier.Message{Body: text, HTML: true}, nil
	}
}

// loadAttachments reads each file; unreadable files are skipped with a warning
func loadAttachments(paths []string) []notifier.Attachment {
	var out []notifier.Attachment
	for _, p := range paths {
		a, err := notifier.FileAttachment(p)
		if err != nil {
			output.Warn("Skipping attachment %s: %v", p, err)
			logger.Debug("attachment error: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out
}
