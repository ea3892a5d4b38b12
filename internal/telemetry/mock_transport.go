package telemetry

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// MockTransport is an in-memory sentry.Transport for tests. Events are
// recorded synchronously, so they can be inspected right after a capture.
type MockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
	closed bool
}

// NewMockTransport returns an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

//nolint:gocritic // hugeParam: interface requirement, cannot change signature
func (t *MockTransport) Configure(_ sentry.ClientOptions) {}

func (t *MockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.events = append(t.events, event)
	}
}

func (t *MockTransport) Flush(time.Duration) bool { return true }

func (t *MockTransport) FlushWithContext(ctx context.Context) bool { return ctx.Err() == nil }

// Close stops recording; later events are dropped.
func (t *MockTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// GetEvents returns the recorded events in capture order.
func (t *MockTransport) GetEvents() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.events)
}

func (t *MockTransport) GetEventCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// GetLastEvent returns the most recent event, or nil.
func (t *MockTransport) GetLastEvent() *sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	return t.events[len(t.events)-1]
}

// FindEventByMessage returns the first message event with text message, or nil.
func (t *MockTransport) FindEventByMessage(message string) *sentry.Event {
	return t.find(func(e *sentry.Event) bool { return e.Message == message })
}

// FindEventByTag returns the first event tagged key=value, or nil. Reported
// exceptions carry their component and category as tags.
func (t *MockTransport) FindEventByTag(key, value string) *sentry.Event {
	return t.find(func(e *sentry.Event) bool { return e.Tags[key] == value })
}

func (t *MockTransport) find(match func(*sentry.Event) bool) *sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i := slices.IndexFunc(t.events, match); i >= 0 {
		return t.events[i]
	}
	return nil
}
