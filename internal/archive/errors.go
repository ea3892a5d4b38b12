package archive

import (
	"fmt"

	"github.com/tphakala/lcbimport/internal/errors"
)

// ErrMissingDatabase is returned by Stage when the extracted tree holds no legacy database.
var ErrMissingDatabase = errors.NewStd("no legacy database found in archive")

// ExtractionError reports a failure to unpack an archive. Corrupt is set when
// the archive could not be opened at all because its end of central directory
// record is missing.
type ExtractionError struct {
	Path    string
	Corrupt bool
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Corrupt {
		return fmt.Sprintf("archive %s is corrupt: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("failed to extract archive %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *ExtractionError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryArchive
}

// IsCorrupt reports whether err is an ExtractionError for a corrupt archive.
func IsCorrupt(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Corrupt
}
