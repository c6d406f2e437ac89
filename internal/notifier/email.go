package notifier

import (
	"context"
	"crypto/tls"
	"io"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/nasbridge/nasbridge/internal/config"
	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// SenderName is the display name on outgoing mail
const SenderName = "NASBridge Bot"

// DefaultSubject is used when a Message has no subject
const DefaultSubject = "NASBridge Notification"

// Dialer opens an SMTP session and sends messages in it.
// *gomail.Dialer satisfies it; tests substitute a fake.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Email sends one message to all receivers in a single SMTP session
type Email struct {
	cfg    *config.EmailConfig
	dialer Dialer
}

// NewEmail creates an SMTP notifier. The session upgrades with STARTTLS when
// the server offers it, and uses implicit TLS on port 465.
func NewEmail(cfg *config.EmailConfig) *Email {
	return &Email{
		cfg: cfg,
		dialer: &smtpDialer{
			Dialer:  gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password),
			timeout: cfg.Timeout,
		},
	}
}

// NewEmailWithDialer creates an Email notifier over a custom dialer
func NewEmailWithDialer(cfg *config.EmailConfig, d Dialer) *Email {
	return &Email{cfg: cfg, dialer: d}
}

func (e *Email) Channel() Channel {
	return ChannelEmail
}

func (e *Email) Recipients() []string {
	return append([]string(nil), e.cfg.Receivers...)
}

// Send builds one message addressed to every receiver. Any dial, auth or
// send failure marks all receivers failed.
func (e *Email) Send(ctx context.Context, msg *Message) *Report {
	report := &Report{Channel: ChannelEmail}

	m := e.build(msg)
	err := e.dialAndSend(ctx, m)
	for _, rcpt := range e.cfg.Receivers {
		if err != nil {
			report.failure(rcpt, nberrors.Delivery(string(ChannelEmail), rcpt, err))
		} else {
			report.success(rcpt)
		}
	}

	if err != nil {
		logger.WarnFields("Email delivery failed", map[string]interface{}{
			"server": e.cfg.Server,
			"error":  err.Error(),
		})
	} else {
		logger.DebugFields("Email sent", map[string]interface{}{
			"server":      e.cfg.Server,
			"receivers":   len(e.cfg.Receivers),
			"attachments": len(msg.Attachments),
		})
	}
	return report
}

func (e *Email) build(msg *Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(e.cfg.Sender, SenderName))
	m.SetHeader("To", e.cfg.Receivers...)

	subject := msg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	m.SetHeader("Subject", subject)

	if msg.HTML {
		m.SetBody("text/html", msg.Body)
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	for _, a := range msg.Attachments {
		ctype := a.ContentType
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		m.Attach(a.Name,
			gomail.SetCopyFunc(func(w io.Writer) error { return a.copyTo(w) }),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {mime.FormatMediaType(ctype, map[string]string{"name": a.Name})},
			}),
		)
	}
	return m
}

// dialAndSend bounds the whole SMTP exchange by the configured timeout
func (e *Email) dialAndSend(ctx context.Context, m *gomail.Message) error {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() { done <- e.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// smtpDialer runs the gomail session over a connection with a deadline, so
// a stalled server ends the session instead of holding it open.
type smtpDialer struct {
	*gomail.Dialer
	timeout time.Duration
}

func (d *smtpDialer) DialAndSend(msgs ...*gomail.Message) error {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), d.timeout)
	if err != nil {
		return err
	}
	if d.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(d.timeout)); err != nil {
			conn.Close()
			return err
		}
	}

	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: d.Host}
	}
	if d.SSL {
		conn = tls.Client(conn, tlsConfig)
	}

	c, err := smtp.NewClient(conn, d.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if d.LocalName != "" {
		if err := c.Hello(d.LocalName); err != nil {
			return err
		}
	}
	if !d.SSL {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return err
			}
		}
	}

	auth := d.Auth
	if auth == nil && d.Username != "" {
		if ok, mechs := c.Extension("AUTH"); ok {
			if strings.Contains(mechs, "CRAM-MD5") {
				auth = smtp.CRAMMD5Auth(d.Username, d.Password)
			} else {
				auth = smtp.PlainAuth("", d.Username, d.Password, d.Host)
			}
		}
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}

	if err := gomail.Send(&smtpSender{c}, msgs...); err != nil {
		return err
	}
	return c.Quit()
}

// smtpSender adapts an smtp.Client to gomail.Sender
type smtpSender struct {
	c *smtp.Client
}

func (s *smtpSender) Send(from string, to []string, msg io.WriterTo) error {
	if err := s.c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.c.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := s.c.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
