package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// DefaultEnvFile is read from the working directory when no --env is given
const DefaultEnvFile = ".env"

// Recognized environment keys
const (
	KeyTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	KeyTelegramUserIDs  = "TELEGRAM_USER_IDS"
	KeyTelegramAPIURL   = "TELEGRAM_API_URL"
	KeyTelegramTimeout  = "TELEGRAM_TIMEOUT"
	KeySMTPServer       = "SMTP_SERVER"
	KeySMTPPort         = "SMTP_PORT"
	KeySMTPUsername     = "SMTP_USERNAME"
	KeySMTPPassword     = "SMTP_PASSWORD"
	KeySMTPTimeout      = "SMTP_TIMEOUT"
	KeyEmailSender      = "EMAIL_SENDER"
	KeyEmailReceivers   = "EMAIL_RECEIVERS"
	KeyLogDir           = "LOG_DIR"
)

// Defaults for optional keys
const (
	DefaultSMTPPort       = 587
	DefaultLogDir         = "/var/log"
	DefaultTelegramAPIURL = "https://api.telegram.org"
	DefaultTimeout        = 10 * time.Second
)

// TelegramKeys must be present and non-empty before a Telegram dispatch
var TelegramKeys = []string{KeyTelegramBotToken, KeyTelegramUserIDs}

// EmailKeys must be present and non-empty before an email dispatch
var EmailKeys = []string{KeySMTPServer, KeySMTPUsername, KeySMTPPassword, KeyEmailSender, KeyEmailReceivers}

// LookupFunc resolves an environment key; os.LookupEnv in production
type LookupFunc func(key string) (string, bool)

// TelegramConfig is the validated Telegram dispatch configuration
type TelegramConfig struct {
	BotToken string
	ChatIDs  []int64
	APIURL   string
	Timeout  time.Duration
}

// EmailConfig is the validated SMTP dispatch configuration
type EmailConfig struct {
	Server    string
	Port      int
	Username  string
	Password  string
	Sender    string
	Receivers []string
	Timeout   time.Duration
}

// LogConfig locates the dated log files forwarded by --log
type LogConfig struct {
	Dir string
}

// LoadEnv populates the process environment from a .env file.
// Variables already set in the environment win over the file.
// An empty path reads DefaultEnvFile and tolerates its absence.
func LoadEnv(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			logger.Debug("No %s in working directory, using process environment", path)
			return nil
		}
		return nberrors.Wrap(nberrors.ErrCodeConfig, "cannot read env file "+path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return nberrors.Wrap(nberrors.ErrCodeConfig, "failed to parse env file "+path, err)
	}
	logger.Debug("Loaded environment from %s", path)
	return nil
}

// MissingKeys returns every key that is unset or blank, in the given order
func MissingKeys(lookup LookupFunc, keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if v, ok := lookup(k); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// RequireKeys fails with MISSING_CONFIG naming all absent keys
func RequireKeys(lookup LookupFunc, keys ...string) error {
	if missing := MissingKeys(lookup, keys...); len(missing) > 0 {
		return nberrors.MissingConfig(missing...)
	}
	return nil
}

// TelegramFromEnv builds and validates the Telegram configuration
func TelegramFromEnv(lookup LookupFunc) (*TelegramConfig, error) {
	if err := RequireKeys(lookup, TelegramKeys...); err != nil {
		return nil, err
	}

	ids, err := ParseChatIDs(get(lookup, KeyTelegramUserIDs))
	if err != nil {
		return nil, err
	}
	timeout, err := parseTimeout(lookup, KeyTelegramTimeout)
	if err != nil {
		return nil, err
	}

	apiURL := get(lookup, KeyTelegramAPIURL)
	if apiURL == "" {
		apiURL = DefaultTelegramAPIURL
	}

	return &TelegramConfig{
		BotToken: get(lookup, KeyTelegramBotToken),
		ChatIDs:  ids,
		APIURL:   strings.TrimRight(apiURL, "/"),
		Timeout:  timeout,
	}, nil
}

// EmailFromEnv builds and validates the SMTP configuration
func EmailFromEnv(lookup LookupFunc) (*EmailConfig, error) {
	if err := RequireKeys(lookup, EmailKeys...); err != nil {
		return nil, err
	}

	port := DefaultSMTPPort
	if raw := get(lookup, KeySMTPPort); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p <= 0 || p > 65535 {
			return nil, nberrors.Validation("invalid " + KeySMTPPort + ": " + raw)
		}
		port = p
	}

	receivers := SplitList(get(lookup, KeyEmailReceivers))
	if len(receivers) == 0 {
		return nil, nberrors.MissingConfig(KeyEmailReceivers)
	}

	timeout, err := parseTimeout(lookup, KeySMTPTimeout)
	if err != nil {
		return nil, err
	}

	return &EmailConfig{
		Server:    get(lookup, KeySMTPServer),
		Port:      port,
		Username:  get(lookup, KeySMTPUsername),
		Password:  get(lookup, KeySMTPPassword),
		Sender:    get(lookup, KeyEmailSender),
		Receivers: receivers,
		Timeout:   timeout,
	}, nil
}

// LogFromEnv returns the log directory, defaulting to /var/log
func LogFromEnv(lookup LookupFunc) LogConfig {
	dir := get(lookup, KeyLogDir)
	if dir == "" {
		dir = DefaultLogDir
	}
	return LogConfig{Dir: dir}
}

// ParseChatIDs parses a comma-separated list of numeric chat IDs
func ParseChatIDs(raw string) ([]int64, error) {
	parts := SplitList(raw)
	if len(parts) == 0 {
		return nil, nberrors.MissingConfig(KeyTelegramUserIDs)
	}
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, nberrors.Validation("invalid chat id in " + KeyTelegramUserIDs + ": " + p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SplitList splits a comma-separated value, trimming blanks
func SplitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func get(lookup LookupFunc, key string) string {
	v, _ := lookup(key)
	return strings.TrimSpace(v)
}

// parseTimeout accepts Go durations ("15s") or whole seconds ("15")
func parseTimeout(lookup LookupFunc, key string) (time.Duration, error) {
	raw := get(lookup, key)
	if raw == "" {
		return DefaultTimeout, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, nberrors.Validation("invalid " + key + ": " + raw)
	}
	return d, nil
}
