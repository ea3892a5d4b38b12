// Package archive unpacks uploaded Living Cookbook exports and locates the
// legacy database inside them.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
	copyBufferSize  = 32 * 1024
)

// diskUsage is replaced in tests.
var diskUsage = disk.Usage

// Extract unpacks the zip archive at archivePath into destDir. Entries that
// would land outside destDir are rejected. When checkDisk is set, the
// uncompressed size of all entries must fit the free space of destDir's
// filesystem.
func Extract(ctx context.Context, archivePath, destDir string, checkDisk bool) error {
	log := GetLogger().With(logger.String("archive", archivePath))

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return &ExtractionError{
			Path:    archivePath,
			Corrupt: errors.Is(err, zip.ErrFormat),
			Err:     err,
		}
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Debug("failed to close archive", logger.Error(err))
		}
	}()

	if err := os.MkdirAll(destDir, dirPermissions); err != nil {
		return &ExtractionError{Path: archivePath, Err: err}
	}

	if checkDisk {
		if err := checkFreeSpace(r.File, destDir, log); err != nil {
			return &ExtractionError{Path: archivePath, Err: err}
		}
	}

	root, err := filepath.Abs(destDir)
	if err != nil {
		return &ExtractionError{Path: archivePath, Err: err}
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return &ExtractionError{Path: archivePath, Err: err}
		}
		if err := extractFile(f, root); err != nil {
			return &ExtractionError{Path: archivePath, Err: err}
		}
	}

	log.Debug("archive extracted",
		logger.String("destination", destDir),
		logger.Int("entries", len(r.File)))
	return nil
}

func checkFreeSpace(files []*zip.File, destDir string, log logger.Logger) error {
	var required uint64
	for _, f := range files {
		required += f.UncompressedSize64
	}

	usage, err := diskUsage(destDir)
	if err != nil {
		log.Warn("disk usage probe failed, skipping free space check", logger.Error(err))
		return nil
	}
	if usage.Free < required {
		return errors.Newf("insufficient disk space: need %d bytes, have %d", required, usage.Free).
			Component("archive").
			Category(errors.CategoryDiskUsage).
			Context("required_bytes", required).
			Context("free_bytes", usage.Free).
			Build()
	}
	return nil
}

// safeJoin resolves name below root, rejecting absolute names and names that
// climb out of root.
func safeJoin(root, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("illegal absolute path in archive: %s", name)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal path in archive: %s", name)
	}
	return target, nil
}

func extractFile(f *zip.File, root string) error {
	target, err := safeJoin(root, f.Name)
	if err != nil {
		return err
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, dirPermissions)
	}
	if !f.Mode().IsRegular() {
		// symlinks and devices are skipped
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(target), dirPermissions); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermissions) //nolint:gosec // target validated by safeJoin
	if err != nil {
		return err
	}

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		_ = dst.Close()
		return fmt.Errorf("failed to write %s: %w", f.Name, err)
	}
	return dst.Close()
}
