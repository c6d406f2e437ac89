package certcheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	"github.com/nasbridge/nasbridge/internal/logger"
)

// Error kinds recorded on a Status
const (
	KindVerify  = "verify"  // certificate chain or hostname rejected
	KindDNS     = "dns"     // host did not resolve
	KindConnect = "connect" // anything else: refused, timeout, handshake
)

// ExpiryLayout formats certificate expiry times in messages
const ExpiryLayout = "2006-01-02 15:04:05 GMT"

// Status is the outcome of checking one target
type Status struct {
	Target   string    `json:"target"`
	Host     string    `json:"host"`
	Port     int       `json:"port"`
	NotAfter time.Time `json:"not_after,omitempty"`
	Valid    bool      `json:"valid"`
	DaysLeft int       `json:"days_left"`
	Kind     string    `json:"error_kind,omitempty"`
	Error    string    `json:"error,omitempty"`

	// Remaining is the time left until NotAfter at check time
	Remaining time.Duration `json:"-"`
}

// Failed reports whether the certificate could not be read at all
func (s Status) Failed() bool {
	return s.Error != ""
}

// Checker dials targets and reads their leaf certificate expiry
type Checker struct {
	Timeout time.Duration
	Now     func() time.Time
	RootCAs *x509.CertPool // nil uses the system pool
}

// NewChecker creates a Checker with the given dial timeout
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{Timeout: timeout, Now: time.Now}
}

// Check verifies one target. Failures are recorded on the Status.
func (c *Checker) Check(ctx context.Context, target string) Status {
	st := Status{Target: target}

	host, port, err := ParseTarget(target)
	if err != nil {
		st.Kind, st.Error = KindConnect, err.Error()
		return st
	}
	st.Host, st.Port = host, port

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.Timeout},
		Config:    &tls.Config{ServerName: host, RootCAs: c.RootCAs},
	}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		st.Kind, st.Error = classify(err), err.Error()
		logger.DebugFields("TLS check failed", map[string]interface{}{"target": target, "error": err.Error()})
		return st
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		st.Kind, st.Error = KindVerify, "no peer certificate"
		return st
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	st.NotAfter = certs[0].NotAfter.UTC()
	st.Remaining = st.NotAfter.Sub(now())
	st.Valid = st.Remaining > 0
	st.DaysLeft = daysLeft(st.Remaining)
	return st
}

// CheckAll checks targets in order
func (c *Checker) CheckAll(ctx context.Context, targets []string) []Status {
	out := make([]Status, 0, len(targets))
	for _, t := range targets {
		out = append(out, c.Check(ctx, t))
	}
	return out
}

func classify(err error) string {
	var (
		dnsErr      *net.DNSError
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verifyErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostErr), errors.As(err, &invalidErr):
		return KindVerify
	case errors.As(err, &dnsErr):
		return KindDNS
	default:
		return KindConnect
	}
}

// daysLeft floors toward negative infinity, so an hour past expiry is -1
func daysLeft(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

// FormatRemaining renders time left as months, days or hours
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	days := daysLeft(d)
	switch {
	case days > 30:
		return plural(days/30, "month")
	case days > 0:
		return plural(days, "day")
	default:
		return plural(int(d.Hours()), "hour")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
