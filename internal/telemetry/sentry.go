// Package telemetry provides privacy-aware error tracking for import runs.
package telemetry

import (
	"fmt"
	"maps"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

// Level is the severity attached to captured messages.
type Level = sentry.Level

const (
	LevelDebug   = sentry.LevelDebug
	LevelInfo    = sentry.LevelInfo
	LevelWarning = sentry.LevelWarning
	LevelError   = sentry.LevelError
)

// flushTimeout bounds how long process exit waits for queued events.
const flushTimeout = 2 * time.Second

// Reporter receives exceptions and informational messages of an import run.
type Reporter interface {
	CaptureException(err error, extra map[string]any)
	CaptureMessage(msg string, level Level, extra map[string]any)
	Flush(timeout time.Duration) bool
}

// NopReporter discards everything; used when telemetry is disabled.
type NopReporter struct{}

func (NopReporter) CaptureException(error, map[string]any) {}
func (NopReporter) CaptureMessage(string, Level, map[string]any) {}
func (NopReporter) Flush(time.Duration) bool { return true }

// SentryReporter reports to Sentry through an isolated hub, so several
// reporters (and tests) never share scope state.
type SentryReporter struct {
	hub *sentry.Hub
}

// InitSentry returns a Reporter for settings. Sentry is opt-in and is never
// enabled in development environments; in both cases a NopReporter is returned.
func InitSentry(settings *conf.Settings) (Reporter, error) {
	log := GetLogger()

	if !settings.Sentry.Enabled {
		log.Debug("sentry telemetry is disabled (opt-in required)")
		return NopReporter{}, nil
	}
	if settings.IsDev() {
		log.Info("sentry telemetry suppressed in development environment",
			logger.String("environment", settings.Environment))
		return NopReporter{}, nil
	}

	reporter, err := newSentryReporter(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		Debug:            settings.Sentry.Debug,
		SampleRate:       settings.Sentry.SampleRate,
		AttachStacktrace: true,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("lcbimport@%s", settings.Version),
		BeforeSend:       applyPrivacyFilters,
	})
	if err != nil {
		return nil, err
	}

	log.Info("sentry telemetry initialized",
		logger.String("environment", settings.Environment))
	return reporter, nil
}

func newSentryReporter(opts sentry.ClientOptions) (*SentryReporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("application", "lcbimport")
	})
	return &SentryReporter{hub: hub}, nil
}

// CaptureException reports err. Enhanced errors contribute their component,
// category and context as tags and contexts; extra is attached as the "run" context.
func (r *SentryReporter) CaptureException(err error, extra map[string]any) {
	if err == nil {
		return
	}

	var ee *errors.EnhancedError
	enhanced := errors.As(err, &ee)
	if enhanced && ee.IsReported() {
		return
	}

	r.hub.WithScope(func(scope *sentry.Scope) {
		if len(extra) > 0 {
			scope.SetContext("run", maps.Clone(extra))
		}

		if enhanced {
			title := ee.Title()
			scope.SetTag("component", ee.Component)
			scope.SetTag("category", string(ee.Category))
			scope.SetTag("error_title", title)
			if ee.Priority != "" {
				scope.SetTag("priority", ee.Priority)
			}
			if errCtx := ee.GetContext(); len(errCtx) > 0 {
				scope.SetContext("error", errCtx)
			}
			scope.SetFingerprint([]string{title, ee.Component, string(ee.Category)})
		}

		r.hub.CaptureException(err)
	})

	if enhanced {
		ee.MarkReported()
	}
}

// CaptureMessage reports an informational or warning message.
func (r *SentryReporter) CaptureMessage(msg string, level Level, extra map[string]any) {
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		if len(extra) > 0 {
			scope.SetContext("run", maps.Clone(extra))
		}
		r.hub.CaptureMessage(msg)
	})
}

// Flush waits up to timeout for queued events to be delivered.
func (r *SentryReporter) Flush(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = flushTimeout
	}
	return r.hub.Flush(timeout)
}

// GetLogger returns the module logger of the telemetry package.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
