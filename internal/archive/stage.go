package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
	"github.com/tphakala/lcbimport/internal/telemetry"
)

const legacyDatabaseExt = ".mdb"

// Layout names the working paths of one import run.
type Layout struct {
	Archive    string // uploaded zip, removed after extraction
	ExtractDir string // extracted tree
	Database   string // fixed path the legacy database is moved to
}

// Stager extracts an archive and moves its legacy database into place.
type Stager struct {
	checkDisk bool
	reporter  telemetry.Reporter
	log       logger.Logger
}

// NewStager returns a Stager. reporter receives a warning when an archive
// holds more than one legacy database; nil disables it.
func NewStager(checkDisk bool, reporter telemetry.Reporter) *Stager {
	if reporter == nil {
		reporter = telemetry.NopReporter{}
	}
	return &Stager{
		checkDisk: checkDisk,
		reporter:  reporter,
		log:       GetLogger(),
	}
}

// Stage extracts layout.Archive into layout.ExtractDir, removes the archive,
// and moves the legacy database to layout.Database. When several databases
// are present the lexicographically first path is used.
func (s *Stager) Stage(ctx context.Context, layout Layout) error {
	if err := Extract(ctx, layout.Archive, layout.ExtractDir, s.checkDisk); err != nil {
		return err
	}

	if err := os.Remove(layout.Archive); err != nil && !os.IsNotExist(err) {
		return &ExtractionError{Path: layout.Archive, Err: fmt.Errorf("failed to remove archive: %w", err)}
	}

	candidates, err := FindFiles(layout.ExtractDir, isLegacyDatabase)
	if err != nil {
		return &ExtractionError{Path: layout.Archive, Err: err}
	}
	if len(candidates) == 0 {
		return errors.New(ErrMissingDatabase).
			Component("archive").
			Category(errors.CategoryNotFound).
			Context("extract_dir", layout.ExtractDir).
			Build()
	}

	chosen := candidates[0]
	if len(candidates) > 1 {
		s.log.Warn("more than one legacy database in archive",
			logger.Any("candidates", candidates),
			logger.String("chosen", chosen))
		s.reporter.CaptureMessage("More than one lcbdb path", telemetry.LevelWarning, map[string]any{
			"candidates": candidates,
			"chosen":     chosen,
		})
	}

	if err := moveFile(chosen, layout.Database); err != nil {
		return &ExtractionError{Path: layout.Archive, Err: fmt.Errorf("failed to move legacy database: %w", err)}
	}

	s.log.Info("legacy database staged", logger.String("path", layout.Database))
	return nil
}

func isLegacyDatabase(path string) bool {
	return strings.EqualFold(filepath.Ext(path), legacyDatabaseExt)
}

// moveFile renames src to dst, copying when they sit on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) //nolint:gosec // path comes from our own extraction tree
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions) //nolint:gosec // fixed working path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// GetLogger returns the module logger of the archive package.
func GetLogger() logger.Logger {
	return logger.Global().Module("archive")
}
