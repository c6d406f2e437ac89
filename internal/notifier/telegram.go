package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// MaxMessageLength is the Bot API limit for one text message, in characters
const MaxMessageLength = 4096

// SendsPerSecond paces outbound sendMessage calls across all chats
const SendsPerSecond = 20

// Telegram sends messages through the Bot API to a fixed list of chats
type Telegram struct {
	bot     *tele.Bot
	chatIDs []int64
	limiter *rate.Limiter
}

// NewTelegram creates an offline bot client; no request is made until Send or Ping
func NewTelegram(cfg *config.TelegramConfig) (*Telegram, error) {
	bot, err := tele.NewBot(tele.Settings{
		URL:     cfg.APIURL,
		Token:   cfg.BotToken,
		Offline: true,
		Client:  &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "cannot create telegram client", err)
	}

	return &Telegram{
		bot:     bot,
		chatIDs: cfg.ChatIDs,
		limiter: rate.NewLimiter(rate.Limit(SendsPerSecond), SendsPerSecond),
	}, nil
}

func (t *Telegram) Channel() Channel {
	return ChannelTelegram
}

func (t *Telegram) Recipients() []string {
	out := make([]string, len(t.chatIDs))
	for i, id := range t.chatIDs {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

// Send delivers msg to every chat in order. A failed chat does not stop the
// remaining ones.
func (t *Telegram) Send(ctx context.Context, msg *Message) *Report {
	report := &Report{Channel: ChannelTelegram}
	chunks := SplitMessage(msg.Body, MaxMessageLength)

	// Chunks cut through tags, so a split HTML body goes out as plain text.
	opts := &tele.SendOptions{DisableNotification: msg.Silent}
	switch {
	case msg.HTML && len(chunks) == 1:
		opts.ParseMode = tele.ModeHTML
	case msg.HTML:
		logger.Debug("HTML message split into %d chunks, sending as plain text", len(chunks))
	}

	for _, id := range t.chatIDs {
		recipient := strconv.FormatInt(id, 10)
		if err := t.sendChunks(ctx, id, chunks, opts); err != nil {
			logger.WarnFields("Telegram delivery failed", map[string]interface{}{
				"recipient": recipient,
				"error":     err.Error(),
			})
			report.failure(recipient, nberrors.Delivery(string(ChannelTelegram), recipient, err))
			continue
		}
		logger.DebugFields("Telegram message sent", map[string]interface{}{
			"recipient": recipient,
			"chunks":    len(chunks),
		})
		report.success(recipient)
	}
	return report
}

func (t *Telegram) sendChunks(ctx context.Context, chatID int64, chunks []string, opts *tele.SendOptions) error {
	for _, chunk := range chunks {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}
		if _, err := t.bot.Send(tele.ChatID(chatID), chunk, opts); err != nil {
			return err
		}
	}
	return nil
}

// Ping calls getMe and returns the bot's username. A cancelled ctx returns
// immediately; the request itself ends at the client timeout.
func (t *Telegram) Ping(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	type reply struct {
		data []byte
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		data, err := t.bot.Raw("getMe", map[string]string{})
		done <- reply{data, err}
	}()

	var r reply
	select {
	case r = <-done:
	case <-ctx.Done():
		return "", nberrors.Delivery(string(ChannelTelegram), "getMe", ctx.Err())
	}
	if r.err != nil {
		return "", nberrors.Delivery(string(ChannelTelegram), "getMe", r.err)
	}

	var resp struct {
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
	}
	if err := json.Unmarshal(r.data, &resp); err != nil {
		return "", nberrors.Delivery(string(ChannelTelegram), "getMe", err)
	}
	return resp.Result.Username, nil
}

// SplitMessage breaks text into chunks of at most limit runes, cutting on
// line boundaries where possible. Lines longer than limit are cut mid-line.
func SplitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		n      int
	)
	flush := func() {
		if strings.TrimSpace(cur.String()) != "" {
			chunks = append(chunks, cur.String())
		}
		cur.Reset()
		n = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		size := utf8.RuneCountInString(line)
		if n+size > limit {
			flush()
		}
		for size > limit {
			r := []rune(line)
			cur.WriteString(string(r[:limit]))
			n = limit
			flush()
			line = string(r[limit:])
			size -= limit
		}
		cur.WriteString(line)
		n += size
	}
	flush()
	return chunks
}
