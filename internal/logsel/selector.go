// Package logsel maps an optional date to a log file by filename convention.
//
// A file matches a date when it is a regular file directly inside the log
// directory, its name ends in ".log" and contains the date as YYYY-MM-DD:
//
//	backup-2024-03-20.log     matches 2024-03-20
//	2024-03-20.nightly.log    matches 2024-03-20
//	backup-2024-03-20.log.gz  does not match
//
// When several files match, the first in lexical order wins and the number
// of candidates is reported on the Record.
package logsel

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
	"github.com/nasbridge/nasbridge/internal/logger"
)

// DateLayout is the date stamp expected in log filenames
const DateLayout = "2006-01-02"

// Record is the content of one selected log file
type Record struct {
	Path    string
	Name    string
	Date    string
	Content []byte
	Matches int // candidates that matched Date, including this one
}

// Selector finds dated log files in a single directory
type Selector struct {
	Dir string
	Now func() time.Time
}

// New creates a Selector over dir using the wall clock
func New(dir string) *Selector {
	return &Selector{Dir: dir, Now: time.Now}
}

// EffectiveDate validates date, or returns today's date when it is empty
func (s *Selector) EffectiveDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		return now().Format(DateLayout), nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return "", nberrors.Validation("invalid date " + date + ", expected YYYY-MM-DD (e.g. 2024-03-20)")
	}
	return date, nil
}

// Candidates returns every matching file name for date, sorted
func (s *Selector) Candidates(date string) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nberrors.LogNotFound(s.Dir, date)
		}
		return nil, nberrors.Wrap(nberrors.ErrCodeLogNotFound, "cannot read log directory "+s.Dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if Matches(e.Name(), date) {
			names = append(names, e.Name())
		}
	}
	// os.ReadDir sorts by filename
	return names, nil
}

// Find returns the path of the file selected for date
func (s *Selector) Find(date string) (string, int, error) {
	date, err := s.EffectiveDate(date)
	if err != nil {
		return "", 0, err
	}
	return s.find(date)
}

// find expects a date already passed through EffectiveDate
func (s *Selector) find(date string) (string, int, error) {
	logger.Debug("Searching %s for *%s*.log", s.Dir, date)
	names, err := s.Candidates(date)
	if err != nil {
		return "", 0, err
	}
	if len(names) == 0 {
		return "", 0, nberrors.LogNotFound(s.Dir, date)
	}
	if len(names) > 1 {
		logger.Warn("%d log files match %s in %s, using %s", len(names), date, s.Dir, names[0])
	}
	return filepath.Join(s.Dir, names[0]), len(names), nil
}

// Read selects the log for date and returns its exact content
func (s *Selector) Read(date string) (*Record, error) {
	date, err := s.EffectiveDate(date)
	if err != nil {
		return nil, err
	}
	path, n, err := s.find(date)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeLogNotFound, "cannot read "+path, err)
	}

	return &Record{
		Path:    path,
		Name:    filepath.Base(path),
		Date:    date,
		Content: content,
		Matches: n,
	}, nil
}

// Matches reports whether name follows the dated log convention for date
func Matches(name, date string) bool {
	return strings.HasSuffix(name, ".log") && strings.Contains(name, date)
}
