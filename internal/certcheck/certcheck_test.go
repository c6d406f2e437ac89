package certcheck

import (
	"context"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in       string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"example.com", "example.com", 443, false},
		{"example.com:8443", "example.com", 8443, false},
		{"https://example.com", "example.com", 443, false},
		{"https://example.com:9443/path", "example.com", 9443, false},
		{"  nas.local  ", "nas.local", 443, false},
		{"[::1]:8443", "::1", 8443, false},
		{"example.com:abc", "", 0, true},
		{"example.com:70000", "", 0, true},
		{"", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, err := ParseTarget(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !nberrors.Is(err, nberrors.ErrValidation) {
					t.Errorf("expected VALIDATION error, got %v", err)
				}
				return
			}
			if host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got %s:%d, want %s:%d", host, port, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestLoadDomains(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	content := "# production\nexample.com\n\n  nas.example.com:8443  \n#disabled.example.com\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadDomains(path)
	if err != nil {
		t.Fatalf("LoadDomains failed: %v", err)
	}
	want := []string{"example.com", "nas.example.com:8443"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := LoadDomains(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func newTLSServer(t *testing.T) (*httptest.Server, *x509.CertPool) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	return srv, pool
}

func TestChecker_Check(t *testing.T) {
	srv, pool := newTLSServer(t)
	notAfter := srv.Certificate().NotAfter.UTC()
	now := notAfter.Add(-45 * 24 * time.Hour)

	c := &Checker{Timeout: 5 * time.Second, Now: func() time.Time { return now }, RootCAs: pool}
	st := c.Check(context.Background(), srv.Listener.Addr().String())

	if st.Failed() {
		t.Fatalf("unexpected failure: %s (%s)", st.Error, st.Kind)
	}
	if !st.NotAfter.Equal(notAfter) {
		t.Errorf("NotAfter = %v, want %v", st.NotAfter, notAfter)
	}
	if !st.Valid {
		t.Error("expected valid certificate")
	}
	if st.DaysLeft != 45 {
		t.Errorf("DaysLeft = %d, want 45", st.DaysLeft)
	}
	if st.Host != "127.0.0.1" {
		t.Errorf("Host = %s", st.Host)
	}
}

func TestChecker_Expired(t *testing.T) {
	srv, pool := newTLSServer(t)
	notAfter := srv.Certificate().NotAfter.UTC()

	// the handshake verifies against the real clock; only the expiry math uses Now
	c := &Checker{Timeout: 5 * time.Second, Now: func() time.Time { return notAfter.Add(time.Hour) }, RootCAs: pool}
	st := c.Check(context.Background(), srv.Listener.Addr().String())

	if st.Failed() {
		t.Fatalf("unexpected failure: %s", st.Error)
	}
	if st.Valid {
		t.Error("expected expired certificate")
	}
	if st.DaysLeft != -1 {
		t.Errorf("DaysLeft = %d, want -1", st.DaysLeft)
	}
}

func TestChecker_UntrustedCertificate(t *testing.T) {
	srv, _ := newTLSServer(t)
	c := NewChecker(5 * time.Second)

	st := c.Check(context.Background(), srv.Listener.Addr().String())
	if !st.Failed() {
		t.Fatal("expected verification failure")
	}
	if st.Kind != KindVerify {
		t.Errorf("Kind = %s, want %s", st.Kind, KindVerify)
	}
}

func TestChecker_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	st := NewChecker(time.Second).Check(context.Background(), addr)
	if st.Kind != KindConnect {
		t.Errorf("Kind = %s, want %s (error %s)", st.Kind, KindConnect, st.Error)
	}
}

func TestChecker_CheckAllKeepsOrder(t *testing.T) {
	srv, pool := newTLSServer(t)
	c := &Checker{Timeout: time.Second, Now: time.Now, RootCAs: pool}

	targets := []string{srv.Listener.Addr().String(), "bad:port"}
	got := c.CheckAll(context.Background(), targets)
	if len(got) != 2 || got[0].Target != targets[0] || got[1].Target != targets[1] {
		t.Fatalf("unexpected statuses %+v", got)
	}
	if got[0].Failed() || !got[1].Failed() {
		t.Errorf("expected first ok and second failed: %+v", got)
	}
}

func TestFormatRemaining(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		in   time.Duration
		want string
	}{
		{90 * day, "3 months"},
		{31 * day, "1 month"},
		{30 * day, "30 days"},
		{day + time.Hour, "1 day"},
		{5 * time.Hour, "5 hours"},
		{90 * time.Minute, "1 hour"},
		{0, "expired"},
		{-day, "expired"},
	}
	for _, tt := range tests {
		if got := FormatRemaining(tt.in); got != tt.want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func expiring(target string, days int, now time.Time) Status {
	notAfter := now.Add(time.Duration(days)*24*time.Hour + time.Hour)
	return Status{
		Target:    target,
		Host:      target,
		Port:      443,
		NotAfter:  notAfter,
		Valid:     notAfter.After(now),
		DaysLeft:  daysLeft(notAfter.Sub(now)),
		Remaining: notAfter.Sub(now),
	}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	statuses := []Status{
		expiring("ok.example.com", 60, now),
		expiring("soon.example.com", 3, now),
		{Target: "bad.example.com", Kind: KindVerify, Error: "x509: certificate signed by unknown authority"},
		{Target: "gone.example.com", Kind: KindDNS, Error: "no such host"},
	}

	s := Summarize(statuses, 10)
	if !s.Alert || s.Subject != SubjectWarning {
		t.Fatalf("expected alert, got %+v", s)
	}
	if len(s.Warnings) != 3 {
		t.Fatalf("expected 3 warnings, got %q", s.Warnings)
	}
	if len(s.Expiring) != 1 || s.Expiring[0].Target != "soon.example.com" {
		t.Errorf("Expiring = %+v", s.Expiring)
	}
	for _, want := range []string{
		"🔒 " + SubjectWarning,
		"⚠️ https://soon.example.com",
		"Status: expiring soon",
		"Remaining: 3 days",
		"❌ bad.example.com: certificate verification failed",
		"❌ gone.example.com: cannot connect - DNS resolution failed",
	} {
		if !strings.Contains(s.Text, want) {
			t.Errorf("summary missing %q:\n%s", want, s.Text)
		}
	}
	if strings.Contains(s.Text, "ok.example.com") {
		t.Error("healthy target should not be reported")
	}
}

func TestSummarize_AllClear(t *testing.T) {
	now := time.Now()
	s := Summarize([]Status{expiring("ok.example.com", 60, now)}, 10)
	if s.Alert || s.Text != AllClearText || s.Subject != SubjectOK {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestUpdateStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ssl_status.json")
	now := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)

	first := []Status{
		expiring("a.example.com", 60, now),
		{Target: "b.example.com", Kind: KindConnect, Error: "connection refused"},
	}
	if err := UpdateStatusFile(path, first, now); err != nil {
		t.Fatalf("UpdateStatusFile failed: %v", err)
	}

	later := now.Add(time.Hour)
	if err := UpdateStatusFile(path, []Status{expiring("b.example.com", 20, later)}, later); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	entries, err := ReadStatusFile(path)
	if err != nil {
		t.Fatalf("ReadStatusFile failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected entries to be merged, got %v", entries)
	}
	a := entries["a.example.com"]
	if a.CheckTime != "2026-03-01 08:30:00 UTC" {
		t.Errorf("a.CheckTime = %s", a.CheckTime)
	}
	if !strings.HasPrefix(a.Status, "valid, expires ") || !strings.Contains(a.Status, "remaining 2 months") {
		t.Errorf("a.Status = %s", a.Status)
	}
	b := entries["b.example.com"]
	if b.CheckTime != "2026-03-01 09:30:00 UTC" || !strings.HasPrefix(b.Status, "valid") {
		t.Errorf("b should be overwritten by the later run: %+v", b)
	}
}

func TestReadStatusFile(t *testing.T) {
	dir := t.TempDir()

	entries, err := ReadStatusFile(filepath.Join(dir, "missing.json"))
	if err != nil || len(entries) != 0 {
		t.Errorf("missing file: entries=%v err=%v", entries, err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte("{not json"), 0644)
	if _, err := ReadStatusFile(bad); !nberrors.Is(err, nberrors.ErrConfigInvalid) {
		t.Errorf("expected CONFIG error, got %v", err)
	}
}

func TestStatusLine_Error(t *testing.T) {
	got := StatusLine(Status{Target: "x", Kind: KindConnect, Error: "timeout"})
	if got != "error: timeout" {
		t.Errorf("StatusLine = %q", got)
	}
}

func TestBuildCalendar(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	notAfter := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	statuses := []Status{
		{Target: "a.example.com", Host: "a.example.com", NotAfter: notAfter, Valid: true},
		{Target: "b.example.com", Kind: KindDNS, Error: "no such host"},
	}

	cal := unfold(string(BuildCalendar(statuses, now)))

	if !strings.HasPrefix(cal, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(cal, "END:VCALENDAR\r\n") {
		t.Errorf("calendar not framed:\n%s", cal)
	}
	if n := strings.Count(cal, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("expected 1 event, got %d", n)
	}
	for _, want := range []string{
		"VERSION:2.0",
		"PRODID:-//NASBridge//SSL Expiry//EN",
		"UID:a.example.com-20260305T120000Z@ssl-expiry",
		"DTSTAMP:20260301T000000Z",
		"DTSTART:20260305T110000Z",
		"DTEND:20260305T120000Z",
		"SUMMARY:SSL certificate expiring: a.example.com",
	} {
		if !strings.Contains(cal, want+"\r\n") {
			t.Errorf("calendar missing %q", want)
		}
	}
}

func TestBuildCalendar_FoldsLongLines(t *testing.T) {
	target := "very-long-subdomain-name.internal.example.com:8443"
	statuses := []Status{{
		Target:   target,
		Host:     "very-long-subdomain-name.internal.example.com",
		NotAfter: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
	}}

	raw := string(BuildCalendar(statuses, time.Now()))

	for _, line := range strings.Split(strings.TrimSuffix(raw, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("line of %d octets: %q", len(line), line)
		}
	}
	if !strings.Contains(unfold(raw), "The certificate for "+target+" expires on 2026-03-05 12:00:00 GMT") {
		t.Errorf("description lost in folding:\n%s", raw)
	}
}

// unfold joins RFC 5545 continuation lines
func unfold(s string) string {
	return strings.ReplaceAll(s, "\r\n ", "")
}

func TestWriteCalendar(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ics")
	path, err := WriteCalendar(dir, nil, time.Now())
	if err != nil {
		t.Fatalf("WriteCalendar failed: %v", err)
	}
	if filepath.Base(path) != CalendarFile {
		t.Errorf("path = %s", path)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "BEGIN:VCALENDAR") {
		t.Error("calendar file is empty")
	}
}
