package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

const (
	defaultFTPPort  = 21
	defaultSFTPPort = 22
	defaultTimeout  = 30 * time.Second
	defaultMaxConns = 5
	tempFilePrefix  = "tmp-"
)

// FTPStore uploads images to an FTP server. Connections are pooled because
// one upload batch puts many images concurrently.
type FTPStore struct {
	config   conf.RemoteStorageSettings
	connPool chan *ftp.ServerConn
	log      logger.Logger
}

// NewFTPStore validates settings and fills in defaults.
func NewFTPStore(settings conf.RemoteStorageSettings) (*FTPStore, error) {
	if settings.Host == "" {
		return nil, errors.Newf("ftp: host is required").
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Port == 0 {
		settings.Port = defaultFTPPort
	}
	if settings.Timeout == 0 {
		settings.Timeout = defaultTimeout
	}
	settings.Path = strings.TrimRight(settings.Path, "/")

	return &FTPStore{
		config:   settings,
		connPool: make(chan *ftp.ServerConn, defaultMaxConns),
		log:      GetLogger().With(logger.String("backend", "ftp")),
	}, nil
}

// Name implements ObjectStore.
func (s *FTPStore) Name() string { return "ftp" }

// Put implements ObjectStore. The image is uploaded under a temporary name
// and renamed so readers never see a partial file.
func (s *FTPStore) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, uploadError(err, s.Name(), key)
	}

	conn, err := s.getConnection(ctx)
	if err != nil {
		return nil, uploadError(err, s.Name(), key)
	}

	remotePath := path.Join(s.config.Path, key)
	tempPath := path.Join(s.config.Path, tempFilePrefix+key)

	if err := conn.Stor(tempPath, bytes.NewReader(data)); err != nil {
		_ = conn.Delete(tempPath)
		_ = conn.Quit()
		return nil, uploadError(fmt.Errorf("ftp: failed to upload: %w", err), s.Name(), key)
	}
	if err := conn.Rename(tempPath, remotePath); err != nil {
		_ = conn.Delete(tempPath)
		_ = conn.Quit()
		return nil, uploadError(fmt.Errorf("ftp: failed to rename temporary file: %w", err), s.Name(), key)
	}
	s.returnConnection(conn)

	return newObject(key, len(data), contentType, joinURL(s.config.BaseURL, key)), nil
}

// Close closes all pooled connections.
func (s *FTPStore) Close() error {
	var lastErr error
	for {
		select {
		case conn := <-s.connPool:
			if err := conn.Quit(); err != nil {
				lastErr = err
			}
		default:
			return lastErr
		}
	}
}

func (s *FTPStore) getConnection(ctx context.Context) (*ftp.ServerConn, error) {
	select {
	case conn := <-s.connPool:
		if conn.NoOp() == nil {
			return conn, nil
		}
		_ = conn.Quit()
	default:
	}
	return s.connect(ctx)
}

func (s *FTPStore) returnConnection(conn *ftp.ServerConn) {
	select {
	case s.connPool <- conn:
	default:
		if err := conn.Quit(); err != nil {
			s.log.Debug("failed to close ftp connection", logger.Error(err))
		}
	}
}

func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	conn, err := ftp.Dial(addr, ftp.DialWithTimeout(s.config.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("ftp: connection failed: %w", err)
	}

	if s.config.Username != "" {
		if err := conn.Login(s.config.Username, s.config.Password); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftp: login failed: %w", err)
		}
	}

	if err := s.createDirectory(conn, s.config.Path); err != nil {
		_ = conn.Quit()
		return nil, err
	}
	return conn, nil
}

func (s *FTPStore) createDirectory(conn *ftp.ServerConn, dirPath string) error {
	if dirPath == "" {
		return nil
	}
	current, err := conn.CurrentDir()
	if err != nil {
		return fmt.Errorf("ftp: failed to get current directory: %w", err)
	}
	if err := conn.ChangeDir(dirPath); err == nil {
		_ = conn.ChangeDir(current)
		return nil
	}

	if err := conn.MakeDir(dirPath); err != nil && !isDirectoryExistsError(err) {
		return fmt.Errorf("ftp: failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

func isDirectoryExistsError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "file exists") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "550")
}
