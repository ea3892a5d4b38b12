package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
)

const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// LocalStore writes images into a directory served under a public base URL.
type LocalStore struct {
	path    string
	baseURL string
}

// NewLocalStore creates the target directory if needed.
func NewLocalStore(settings conf.LocalStorageSettings) (*LocalStore, error) {
	if settings.Path == "" {
		return nil, errors.Newf("local: path is required").
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := os.MkdirAll(settings.Path, dirPermissions); err != nil {
		return nil, errors.New(err).
			Component("storage").
			Category(errors.CategoryFileIO).
			Context("path", settings.Path).
			Build()
	}

	baseURL := settings.BaseURL
	if baseURL == "" {
		abs, err := filepath.Abs(settings.Path)
		if err != nil {
			return nil, fmt.Errorf("local: failed to resolve path: %w", err)
		}
		baseURL = "file://" + filepath.ToSlash(abs)
	}
	return &LocalStore{path: settings.Path, baseURL: baseURL}, nil
}

// Name implements ObjectStore.
func (s *LocalStore) Name() string { return "local" }

// Put implements ObjectStore.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, uploadError(err, s.Name(), key)
	}

	target := filepath.Join(s.path, key)
	err := atomicWriteFile(target, ".upload-*", filePermissions, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
	if err != nil {
		return nil, uploadError(err, s.Name(), key)
	}
	return newObject(key, len(data), contentType, joinURL(s.baseURL, key)), nil
}

// validateKey rejects keys that would leave the store directory.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

// atomicWriteFile writes to a temporary file next to targetPath and renames
// it into place.
func atomicWriteFile(targetPath, tempPattern string, perm os.FileMode, write func(*os.File) error) error {
	tempFile, err := os.CreateTemp(filepath.Dir(targetPath), tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	if err := tempFile.Chmod(perm); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	if err := write(tempFile); err != nil {
		return err
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tempPath, targetPath); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	success = true
	return nil
}
