// Package notifier delivers operator notifications over Telegram and SMTP.
//
// Each channel sends one Message to its configured recipients and returns a
// Report with one Result per recipient. Delivery is best-effort and never
// retried: a failure is recorded on the Report and the caller decides what
// to do with it (see Report.Err).
package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

// Channel identifies a dispatch channel
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

// ValidChannels lists every supported channel
var ValidChannels = []Channel{ChannelTelegram, ChannelEmail}

// ParseChannels parses a comma-separated channel list, dropping duplicates
func ParseChannels(names []string) ([]Channel, error) {
	var out []Channel
	seen := make(map[Channel]bool)
	for _, raw := range names {
		for _, part := range strings.Split(raw, ",") {
			name := Channel(strings.ToLower(strings.TrimSpace(part)))
			if name == "" {
				continue
			}
			if !IsValidChannel(name) {
				return nil, nberrors.Validation(fmt.Sprintf("unknown channel %q (valid: telegram, email)", name))
			}
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	if len(out) == 0 {
		return nil, nberrors.Validation("no channel selected")
	}
	return out, nil
}

// IsValidChannel reports whether c is a supported channel
func IsValidChannel(c Channel) bool {
	for _, v := range ValidChannels {
		if v == c {
			return true
		}
	}
	return false
}

// Attachment is a named blob sent alongside an email.
// Telegram ignores attachments.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileAttachment reads path into an Attachment named after the file
func FileAttachment(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, nberrors.Wrap(nberrors.ErrCodeValidation, "cannot read attachment", err)
	}
	return Attachment{Name: filepath.Base(path), Data: data}, nil
}

func (a Attachment) copyTo(w io.Writer) error {
	_, err := w.Write(a.Data)
	return err
}

// Message is a single notification payload.
// Body is HTML when HTML is set, plain text otherwise.
type Message struct {
	Subject     string
	Body        string
	HTML        bool
	Silent      bool
	Attachments []Attachment
}

// Result is the delivery outcome for one recipient
type Result struct {
	Recipient string `json:"recipient"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
	err       error
}

// Err returns the delivery error, if any
func (r Result) Err() error {
	return r.err
}

// Report collects per-recipient outcomes for one channel
type Report struct {
	Channel Channel  `json:"channel"`
	Results []Result `json:"results"`
}

func (r *Report) success(recipient string) {
	r.Results = append(r.Results, Result{Recipient: recipient, Sent: true})
}

func (r *Report) failure(recipient string, err error) {
	r.Results = append(r.Results, Result{Recipient: recipient, Error: err.Error(), err: err})
}

// OK reports whether every recipient received the message
func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Sent returns the recipients that received the message
func (r *Report) Sent() []string {
	var out []string
	for _, res := range r.Results {
		if res.Sent {
			out = append(out, res.Recipient)
		}
	}
	return out
}

// Failed returns the results that did not deliver
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Sent {
			out = append(out, res)
		}
	}
	return out
}

// Err joins the per-recipient DELIVERY errors, or returns nil when all were sent
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		err := res.err
		switch {
		case err == nil:
			err = nberrors.Delivery(string(r.Channel), res.Recipient, fmt.Errorf("%s", res.Error))
		case !nberrors.Is(err, nberrors.ErrDelivery):
			err = nberrors.Delivery(string(r.Channel), res.Recipient, err)
		}
		errs = append(errs, err)
	}
	return nberrors.Join(errs...)
}

// Notifier sends a message on one channel
type Notifier interface {
	Channel() Channel
	Recipients() []string
	Send(ctx context.Context, msg *Message) *Report
}
