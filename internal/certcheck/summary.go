package certcheck

import (
	"fmt"
	"strings"
)

// Subjects used for the report email
const (
	SubjectWarning = "SSL certificate status warning"
	SubjectOK      = "SSL certificate status notification"
)

// AllClearText is sent when no target needs attention
const AllClearText = "✅ All SSL certificates passed the check"

// Summary is the operator-facing digest of a check run
type Summary struct {
	Alert    bool
	Subject  string
	Text     string
	Warnings []string
	Expiring []Status
}

// Summarize flags failed targets and certificates with fewer than warnDays left
func Summarize(statuses []Status, warnDays int) Summary {
	var s Summary
	for _, st := range statuses {
		if st.Failed() {
			s.Warnings = append(s.Warnings, fmt.Sprintf("❌ %s: %s", st.Target, describeFailure(st)))
			continue
		}
		if st.DaysLeft < warnDays {
			s.Expiring = append(s.Expiring, st)
			s.Warnings = append(s.Warnings, describeExpiring(st))
		}
	}

	if len(s.Warnings) == 0 {
		s.Subject = SubjectOK
		s.Text = AllClearText
		return s
	}
	s.Alert = true
	s.Subject = SubjectWarning
	s.Text = "🔒 " + SubjectWarning + "\n\n" + strings.Join(s.Warnings, "\n\n")
	return s
}

func describeFailure(st Status) string {
	switch st.Kind {
	case KindVerify:
		return "certificate verification failed - " + st.Error
	case KindDNS:
		return "cannot connect - DNS resolution failed"
	default:
		return "check failed - " + st.Error
	}
}

func describeExpiring(st Status) string {
	state := "expiring soon"
	if !st.Valid {
		state = "expired"
	}
	return fmt.Sprintf("⚠️ https://%s\n    Status: %s\n    Expires: %s\n    Remaining: %s",
		st.Target, state, st.NotAfter.Format(ExpiryLayout), FormatRemaining(st.Remaining))
}
