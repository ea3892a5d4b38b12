package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
)

func TestCaptureExceptionAttachesRunContext(t *testing.T) {
	t.Parallel()

	reporter, transport := InitForTesting(t)

	err := errors.New(fmt.Errorf("commit failed")).
		Component("importer").
		Category(errors.CategoryPersistence).
		Context("operation", "commit_recipes").
		Build()

	reporter.CaptureException(err, map[string]any{"user_id": "u-1", "include_stock_recipes": false})
	require.True(t, reporter.Flush(time.Second))

	require.Equal(t, 1, transport.GetEventCount())
	event := transport.GetLastEvent()
	assert.Equal(t, "importer", event.Tags["component"])
	assert.Equal(t, "persistence", event.Tags["category"])
	assert.Equal(t, "Importer Persistence Error Commit Recipes", event.Tags["error_title"])
	assert.Equal(t, "u-1", event.Contexts["run"]["user_id"])
	assert.True(t, err.IsReported())

	// Already reported errors are not sent twice.
	reporter.CaptureException(err, nil)
	assert.Equal(t, 1, transport.GetEventCount())
}

func TestCaptureMessageLevel(t *testing.T) {
	t.Parallel()

	reporter, transport := InitForTesting(t)

	reporter.CaptureMessage("LCB Metrics", LevelInfo, map[string]any{"tSqliteFetched": 1234})
	reporter.CaptureMessage("More than one lcb database found", LevelWarning, nil)

	info := transport.FindEventByMessage("LCB Metrics")
	require.NotNil(t, info)
	assert.Equal(t, sentry.LevelInfo, info.Level)
	assert.Contains(t, info.Contexts, "run")

	warn := transport.FindEventByMessage("More than one lcb database found")
	require.NotNil(t, warn)
	assert.Equal(t, sentry.LevelWarning, warn.Level)
}

func TestPrivacyFilterScrubsSecrets(t *testing.T) {
	t.Parallel()

	reporter, transport := InitForTesting(t)
	reporter.CaptureMessage("upload to https://bucket.s3.amazonaws.com/k?X-Amz-Signature=abc failed, password=hunter2", LevelError, nil)

	event := transport.GetLastEvent()
	require.NotNil(t, event)
	assert.NotContains(t, event.Message, "abc")
	assert.NotContains(t, event.Message, "hunter2")
	assert.Empty(t, event.ServerName)
}

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		absent  string
		present string
	}{
		{"dial mysql://root:secret@db:3306/recipes", "secret", "[REDACTED]@"},
		{"Error at https://api.example.com?api_key=secret123", "secret123", "https://api.example.com?[REDACTED]"},
		{"token=abc123 rejected", "abc123", "[REDACTED]"},
	}
	for _, tt := range tests {
		out := scrubMessage(tt.in)
		assert.NotContains(t, out, tt.absent, tt.in)
		assert.Contains(t, out, tt.present, tt.in)
	}
}

func TestInitSentryDisabled(t *testing.T) {
	t.Parallel()

	reporter, err := InitSentry(&conf.Settings{})
	require.NoError(t, err)
	assert.IsType(t, NopReporter{}, reporter)

	reporter, err = InitSentry(&conf.Settings{
		Environment: conf.EnvironmentDev,
		Sentry:      conf.SentrySettings{Enabled: true, DSN: "https://k@o1.ingest.sentry.io/1"},
	})
	require.NoError(t, err)
	assert.IsType(t, NopReporter{}, reporter)
}
