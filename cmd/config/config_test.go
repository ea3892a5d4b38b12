package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lcbimport/internal/conf"
)

func testSettings() *conf.Settings {
	s := &conf.Settings{Environment: conf.EnvironmentProduction}
	s.Store.Type = "mysql"
	s.Store.MySQL.Password = "hunter2"
	s.Storage.Type = "s3"
	s.Storage.S3.Bucket = "recipes"
	s.Storage.S3.SecretAccessKey = "secret"
	s.Sentry.DSN = "https://key@sentry.example.com/1"
	return s
}

func TestShowRedactsCredentials(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	cmd := Command(settings)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "recipes")
	assert.NotContains(t, out.String(), "hunter2")
	assert.NotContains(t, out.String(), "secret")
	assert.NotContains(t, out.String(), "sentry.example.com")
	assert.Equal(t, "hunter2", settings.Store.MySQL.Password, "settings are not modified")
}

func TestSaveWritesConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cmd := Command(testSettings())
	cmd.SetArgs([]string{"save", path})
	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "recipes")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
