package importer

import (
	"context"
	"fmt"

	"github.com/tphakala/lcbimport/internal/archive"
	"github.com/tphakala/lcbimport/internal/datastore"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/legacy"
	"github.com/tphakala/lcbimport/internal/mdb"
)

// ErrorCode classifies a failed run.
type ErrorCode int

const (
	// ErrUnknown is a failure outside the known stages
	ErrUnknown ErrorCode = iota
	// ErrExtraction means the archive could not be extracted
	ErrExtraction
	// ErrCorruptArchive means the upload is not a readable zip archive
	ErrCorruptArchive
	// ErrMissingDatabase means the archive holds no legacy database
	ErrMissingDatabase
	// ErrConversion means the legacy database could not be converted or read
	ErrConversion
	// ErrTableExport means a single legacy table failed to export
	ErrTableExport
	// ErrPersistence means the recipes could not be stored
	ErrPersistence
	// ErrCanceled means the run was canceled or timed out
	ErrCanceled
)

func (c ErrorCode) String() string {
	switch c {
	case ErrExtraction:
		return "extraction"
	case ErrCorruptArchive:
		return "corrupt_archive"
	case ErrMissingDatabase:
		return "missing_database"
	case ErrConversion:
		return "conversion"
	case ErrTableExport:
		return "table_export"
	case ErrPersistence:
		return "persistence"
	case ErrCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is a failed import run.
type Error struct {
	Code    ErrorCode
	Message string
	Table   string // set for ErrTableExport and table read failures
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Table != "" {
		msg = fmt.Sprintf("%s (table %s)", msg, e.Table)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new import error
func NewError(code ErrorCode, message string, err error) error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if err is an import error with the given code
func IsErrorCode(err error, code ErrorCode) bool {
	var importErr *Error
	if err == nil {
		return false
	}
	if errors.As(err, &importErr) {
		return importErr.Code == code
	}
	return false
}

// IsCorruptArchive checks if err reports an unreadable archive
func IsCorruptArchive(err error) bool {
	return IsErrorCode(err, ErrCorruptArchive)
}

// Process exit codes.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitCorruptArchive = 3
)

// ExitCode maps the outcome of a run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case IsCorruptArchive(err), archive.IsCorrupt(err):
		return ExitCorruptArchive
	default:
		return ExitFailure
	}
}

// classify turns a stage failure into an *Error.
func classify(state State, err error) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}

	var (
		tableErr *mdb.TableError
		convErr  *mdb.ConversionError
		loadErr  *legacy.LoadError
		persErr  *datastore.PersistenceError
		extrErr  *archive.ExtractionError
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: ErrCanceled, Message: "import canceled", Err: err}
	case archive.IsCorrupt(err):
		return &Error{Code: ErrCorruptArchive, Message: "archive is corrupt", Err: err}
	case errors.Is(err, archive.ErrMissingDatabase):
		return &Error{Code: ErrMissingDatabase, Message: "no legacy database in archive", Err: err}
	case errors.As(err, &extrErr):
		return &Error{Code: ErrExtraction, Message: "failed to extract archive", Err: err}
	case errors.As(err, &tableErr):
		return &Error{Code: ErrTableExport, Message: "failed to export legacy table", Table: tableErr.Table, Err: err}
	case errors.As(err, &convErr):
		return &Error{Code: ErrConversion, Message: "failed to convert legacy database", Err: err}
	case errors.As(err, &loadErr):
		return &Error{Code: ErrConversion, Message: "failed to read legacy table", Table: loadErr.Table, Err: err}
	case errors.As(err, &persErr):
		return &Error{Code: ErrPersistence, Message: "failed to store recipes", Err: err}
	}

	switch state {
	case StateStaging:
		return &Error{Code: ErrExtraction, Message: "failed to stage archive", Err: err}
	case StateConverting, StateLoading:
		return &Error{Code: ErrConversion, Message: "failed to convert legacy database", Err: err}
	case StateCommitting:
		return &Error{Code: ErrPersistence, Message: "failed to store recipes", Err: err}
	default:
		return &Error{Code: ErrUnknown, Message: fmt.Sprintf("import failed while %s", state), Err: err}
	}
}
