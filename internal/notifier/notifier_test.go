package notifier

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	nberrors "github.com/nasbridge/nasbridge/internal/errors"
)

func TestParseChannels(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []Channel
		wantErr bool
	}{
		{"single", []string{"telegram"}, []Channel{ChannelTelegram}, false},
		{"comma list", []string{"telegram,email"}, []Channel{ChannelTelegram, ChannelEmail}, false},
		{"repeated flags", []string{"email", "telegram"}, []Channel{ChannelEmail, ChannelTelegram}, false},
		{"duplicates and case", []string{" Email ,email"}, []Channel{ChannelEmail}, false},
		{"unknown", []string{"slack"}, nil, true},
		{"empty", []string{" , "}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseChannels(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !nberrors.Is(err, nberrors.ErrValidation) {
					t.Errorf("expected VALIDATION error, got %v", err)
				}
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	r := &Report{Channel: ChannelTelegram}
	r.success("111")
	r.failure("222", errors.New("chat not found"))
	r.success("333")

	if r.OK() {
		t.Error("report with a failure should not be OK")
	}
	if got := r.Sent(); !reflect.DeepEqual(got, []string{"111", "333"}) {
		t.Errorf("Sent() = %v", got)
	}
	failed := r.Failed()
	if len(failed) != 1 || failed[0].Recipient != "222" {
		t.Fatalf("Failed() = %+v", failed)
	}
	if failed[0].Error != "chat not found" {
		t.Errorf("Error = %q", failed[0].Error)
	}

	err := r.Err()
	if !nberrors.Is(err, nberrors.ErrDelivery) {
		t.Fatalf("expected DELIVERY error, got %v", err)
	}
	if nberrors.ExitCode(err) != 4 {
		t.Errorf("ExitCode = %d, want 4", nberrors.ExitCode(err))
	}
}

func TestReport_AllSent(t *testing.T) {
	r := &Report{Channel: ChannelEmail}
	r.success("a@example.com")
	if !r.OK() {
		t.Error("expected OK")
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestFileAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssl.ics")
	if err := os.WriteFile(path, []byte("BEGIN:VCALENDAR"), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := FileAttachment(path)
	if err != nil {
		t.Fatalf("FileAttachment failed: %v", err)
	}
	if a.Name != "ssl.ics" || string(a.Data) != "BEGIN:VCALENDAR" {
		t.Errorf("unexpected attachment %+v", a)
	}

	if _, err := FileAttachment(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestMockNotifier(t *testing.T) {
	m := NewMockNotifier(ChannelTelegram, "1", "2")
	m.Fail["1"] = nil

	report := m.Send(context.Background(), &Message{Body: "hi"})
	if got := report.Sent(); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("Sent() = %v", got)
	}
	if len(m.Messages()) != 1 || m.Messages()[0].Body != "hi" {
		t.Errorf("Messages() = %v", m.Messages())
	}
	if !nberrors.Is(report.Err(), nberrors.ErrDelivery) {
		t.Errorf("mock failures should surface as DELIVERY, got %v", report.Err())
	}
}
