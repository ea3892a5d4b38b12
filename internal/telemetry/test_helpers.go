package telemetry

import (
	"github.com/getsentry/sentry-go"
)

// TestingTB is a common interface for *testing.T and *testing.B
type TestingTB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// InitForTesting returns a SentryReporter backed by a MockTransport. Nothing
// leaves the process and the privacy filter is applied as in production.
func InitForTesting(t TestingTB) (*SentryReporter, *MockTransport) {
	t.Helper()

	transport := NewMockTransport()
	reporter, err := newSentryReporter(sentry.ClientOptions{
		Dsn:         "",
		Transport:   transport,
		Environment: "test",
		Release:     "lcbimport@test",
		SampleRate:  1.0,
		BeforeSend:  applyPrivacyFilters,
	})
	if err != nil {
		t.Fatalf("failed to initialize sentry for testing: %v", err)
	}
	return reporter, transport
}
