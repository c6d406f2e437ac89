package certcheck

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

const (
	// CalendarFile is the name of the generated calendar in the ICS directory
	CalendarFile = "ssl_expiry.ics"
	// CalendarContentType is the MIME type for calendar attachments
	CalendarContentType = "text/calendar"

	uidLayout = "20060102T150405Z"
	prodID    = "-//NASBridge//SSL Expiry//EN"
)

// BuildCalendar renders one VEVENT per status that has an expiry date.
// Each event ends at expiry and starts one hour earlier.
func BuildCalendar(statuses []Status, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(prodID)

	for _, st := range statuses {
		if st.NotAfter.IsZero() {
			continue
		}
		end := st.NotAfter.UTC()
		ev := cal.AddEvent(fmt.Sprintf("%s-%s@ssl-expiry", st.Host, end.Format(uidLayout)))
		ev.SetDtStampTime(now)
		ev.SetStartAt(end.Add(-time.Hour))
		ev.SetEndAt(end)
		ev.SetSummary("SSL certificate expiring: " + st.Target)
		ev.SetDescription(fmt.Sprintf("The certificate for %s expires on %s", st.Target, end.Format(ExpiryLayout)))
	}
	return []byte(cal.Serialize())
}

// WriteCalendar writes the calendar for statuses into dir and returns its path
func WriteCalendar(dir string, statuses []Status, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nberrors.Wrap(nberrors.ErrCodeConfig, "cannot create ICS directory", err)
	}
	path := filepath.Join(dir, CalendarFile)
	if err := os.WriteFile(path, BuildCalendar(statuses, now), 0644); err != nil {
		return "", nberrors.Wrap(nberrors.ErrCodeConfig, "cannot write calendar", err)
	}
	return path, nil
}
