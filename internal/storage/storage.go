// Package storage uploads converted recipe images to an object store and
// describes the stored objects.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

const (
	// ACLPublicRead is the canned ACL every image is stored with.
	ACLPublicRead = "public-read"
	// CacheControl marks stored images as immutable.
	CacheControl = "public,max-age=31536000,immutable"

	imageFieldName    = "image"
	imageOriginalName = "recipe-sage-img.jpg"
)

// Object describes a stored image. Its JSON form is persisted on the recipe.
type Object struct {
	FieldName    string            `json:"fieldname"`
	OriginalName string            `json:"originalname"`
	MimeType     string            `json:"mimetype"`
	Size         int               `json:"size"`
	Bucket       string            `json:"bucket,omitempty"`
	Key          string            `json:"key"`
	ACL          string            `json:"acl,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Location     string            `json:"location"`
	ETag         string            `json:"etag,omitempty"`
}

// ObjectStore stores a blob under key and returns its descriptor.
type ObjectStore interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error)
}

// NewKey returns a fresh object key. The millisecond prefix keeps keys
// roughly time ordered and the uuid suffix keeps concurrent keys distinct.
func NewKey(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString())
}

// newObject fills the descriptor fields shared by all backends.
func newObject(key string, size int, contentType, location string) *Object {
	return &Object{
		FieldName:    imageFieldName,
		OriginalName: imageOriginalName,
		MimeType:     contentType,
		Size:         size,
		Key:          key,
		ACL:          ACLPublicRead,
		Metadata:     map[string]string{"fieldName": imageFieldName},
		Location:     location,
	}
}

// joinURL appends key to a public base URL.
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// New returns the object store selected by settings.Type.
func New(ctx context.Context, settings *conf.StorageSettings) (ObjectStore, error) {
	switch settings.Type {
	case "s3":
		return NewS3Store(ctx, settings.S3)
	case "local":
		return NewLocalStore(settings.Local)
	case "ftp":
		return NewFTPStore(settings.FTP)
	case "sftp":
		return NewSFTPStore(settings.SFTP)
	default:
		return nil, errors.Newf("unsupported storage type %q", settings.Type).
			Component("storage").
			Category(errors.CategoryConfiguration).
			Context("storage_type", settings.Type).
			Build()
	}
}

// uploadError wraps a backend failure.
func uploadError(err error, backend, key string) error {
	return errors.New(err).
		Component("storage").
		Category(errors.CategoryImageUpload).
		Context("backend", backend).
		Context("key", key).
		Build()
}

// GetLogger returns the module logger of the storage package.
func GetLogger() logger.Logger {
	return logger.Global().Module("storage")
}
