package notifier

import (
	"context"
	"errors"
	"sync"
)

// MockNotifier records sent messages and fails the recipients listed in Fail
type MockNotifier struct {
	Name Channel
	To   []string
	Fail map[string]error

	mu   sync.Mutex
	sent []*Message
}

// NewMockNotifier creates a MockNotifier for channel c delivering to recipients
func NewMockNotifier(c Channel, recipients ...string) *MockNotifier {
	return &MockNotifier{Name: c, To: recipients, Fail: make(map[string]error)}
}

func (m *MockNotifier) Channel() Channel     { return m.Name }
func (m *MockNotifier) Recipients() []string { return m.To }

func (m *MockNotifier) Send(ctx context.Context, msg *Message) *Report {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()

	report := &Report{Channel: m.Name}
	for _, r := range m.To {
		if err, ok := m.Fail[r]; ok {
			if err == nil {
				err = errors.New("mock failure")
			}
			report.failure(r, err)
			continue
		}
		report.success(r)
	}
	return report
}

// Messages returns every message passed to Send
func (m *MockNotifier) Messages() []*Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Message(nil), m.sent...)
}
