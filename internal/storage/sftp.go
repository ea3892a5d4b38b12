package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
)

// SFTPStore uploads images over SFTP. Each Put opens its own session.
type SFTPStore struct {
	config conf.RemoteStorageSettings
}

// NewSFTPStore validates settings and fills in defaults.
func NewSFTPStore(settings conf.RemoteStorageSettings) (*SFTPStore, error) {
	if settings.Host == "" {
		return nil, errors.Newf("sftp: host is required").
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.KeyFile == "" && settings.Password == "" {
		return nil, errors.Newf("sftp: key file or password is required").
			Component("storage").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Port == 0 {
		settings.Port = defaultSFTPPort
	}
	if settings.Timeout == 0 {
		settings.Timeout = defaultTimeout
	}
	return &SFTPStore{config: settings}, nil
}

// Name implements ObjectStore.
func (s *SFTPStore) Name() string { return "sftp" }

// Put implements ObjectStore.
func (s *SFTPStore) Put(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if err := validateKey(key); err != nil {
		return nil, uploadError(err, s.Name(), key)
	}

	client, closeFn, err := s.connect(ctx)
	if err != nil {
		return nil, uploadError(err, s.Name(), key)
	}
	defer closeFn()

	if s.config.Path != "" {
		if err := client.MkdirAll(s.config.Path); err != nil {
			return nil, uploadError(fmt.Errorf("sftp: failed to create directory %s: %w", s.config.Path, err), s.Name(), key)
		}
	}

	remotePath := path.Join(s.config.Path, key)
	tempPath := path.Join(s.config.Path, tempFilePrefix+key)
	if err := writeRemote(client, tempPath, data); err != nil {
		_ = client.Remove(tempPath)
		return nil, uploadError(err, s.Name(), key)
	}
	if err := client.PosixRename(tempPath, remotePath); err != nil {
		_ = client.Remove(tempPath)
		return nil, uploadError(fmt.Errorf("sftp: failed to rename temporary file: %w", err), s.Name(), key)
	}

	return newObject(key, len(data), contentType, joinURL(s.config.BaseURL, key)), nil
}

func writeRemote(client *sftp.Client, remotePath string, data []byte) error {
	f, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: failed to create file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		_ = f.Close()
		return fmt.Errorf("sftp: failed to write file: %w", err)
	}
	return f.Close()
}

func (s *SFTPStore) clientConfig() (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:    s.config.Username,
		Timeout: s.config.Timeout,
	}

	if s.config.KnownHostsFile != "" {
		callback, err := knownhosts.New(s.config.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to read known hosts: %w", err)
		}
		config.HostKeyCallback = callback
	} else {
		GetLogger().Warn("sftp host key verification disabled, set storage.sftp.knownhostsfile")
		config.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via settings
	}

	switch {
	case s.config.KeyFile != "":
		key, err := os.ReadFile(s.config.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: failed to parse private key: %w", err)
		}
		config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	default:
		config.Auth = []ssh.AuthMethod{ssh.Password(s.config.Password)}
	}
	return config, nil
}

// connect returns a client and a function closing it with its ssh connection.
func (s *SFTPStore) connect(ctx context.Context) (*sftp.Client, func(), error) {
	config, err := s.clientConfig()
	if err != nil {
		return nil, nil, err
	}

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	dialer := net.Dialer{Timeout: s.config.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("sftp: failed to connect: %w", err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		_ = netConn.Close()
		return nil, nil, fmt.Errorf("sftp: ssh handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("sftp: failed to create client: %w", err)
	}
	return client, func() {
		_ = client.Close()
		_ = sshClient.Close()
	}, nil
}
