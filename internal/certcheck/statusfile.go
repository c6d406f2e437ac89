package certcheck

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

// CheckTimeLayout is the timestamp format written to the status file
const CheckTimeLayout = "2006-01-02 15:04:05 UTC"

// StatusEntry is one target's record in the status file
type StatusEntry struct {
	CheckTime string `json:"check_time"`
	Status    string `json:"status"`
}

// StatusLine renders the one-line status stored for a target
func StatusLine(st Status) string {
	if st.Failed() {
		return "error: " + st.Error
	}
	state := "valid"
	if !st.Valid {
		state = "expired"
	}
	return fmt.Sprintf("%s, expires %s (remaining %s)",
		state, st.NotAfter.Format(ExpiryLayout), FormatRemaining(st.Remaining))
}

// ReadStatusFile loads the status file. A missing file yields an empty map.
func ReadStatusFile(path string) (map[string]StatusEntry, error) {
	entries := make(map[string]StatusEntry)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "cannot read status file", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nberrors.Wrap(nberrors.ErrCodeConfig, "status file is not valid JSON", err)
	}
	return entries, nil
}

// UpdateStatusFile merges statuses into the file at path, keeping entries for
// targets that were not checked this run
func UpdateStatusFile(path string, statuses []Status, now time.Time) error {
	entries, err := ReadStatusFile(path)
	if err != nil {
		return err
	}
	checked := now.UTC().Format(CheckTimeLayout)
	for _, st := range statuses {
		entries[st.Target] = StatusEntry{CheckTime: checked, Status: StatusLine(st)}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nberrors.Wrap(nberrors.ErrCodeConfig, "cannot create status directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return nberrors.Wrap(nberrors.ErrCodeConfig, "cannot write status file", err)
	}
	return os.Rename(tmp, path)
}
