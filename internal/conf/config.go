// config.go: settings struct of the importer and functions to load and save it.
package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

// Environment names. Telemetry is never sent from EnvironmentDev.
const (
	EnvironmentProduction = "production"
	EnvironmentDev        = "dev"
)

// ImportSettings holds defaults for a single import run.
type ImportSettings struct {
	BatchSize           int    // images uploaded concurrently per batch
	IncludeStockRecipes bool   // import recipes that ship with Living Cookbook
	IncludeTechniques   bool   // append technique comments to recipe notes
	ExcludeImages       bool   // skip the image upload stage
	DiskCheck           bool   // refuse to extract archives larger than free disk space
	Timeout             string // overall run timeout, e.g. "30m"; empty disables
}

// MDBSettings names the mdbtools binaries used to read the legacy database.
type MDBSettings struct {
	SchemaTool string // mdb-schema
	ExportTool string // mdb-export
	TablesTool string // mdb-tables
}

// SQLiteSettings contains settings for the SQLite target store.
type SQLiteSettings struct {
	Path string
}

// MySQLSettings contains settings for the MySQL target store.
type MySQLSettings struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StoreSettings selects and configures the target recipe store.
type StoreSettings struct {
	Type        string // "sqlite" or "mysql"
	AutoMigrate bool   // create tables on startup
	BatchSize   int    // rows per INSERT when creating recipes and label links
	SlowQuery   time.Duration
	SQLite      SQLiteSettings
	MySQL       MySQLSettings
}

// S3Settings configures the S3 object store.
type S3Settings struct {
	Bucket          string
	Region          string
	Endpoint        string // optional, for S3 compatible services
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// LocalStorageSettings configures the filesystem object store.
type LocalStorageSettings struct {
	Path    string // directory images are written to
	BaseURL string // public URL prefix the directory is served under
}

// RemoteStorageSettings configures the FTP and SFTP object stores.
type RemoteStorageSettings struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string // sftp only
	KnownHostsFile string // sftp only
	Path           string // remote directory
	BaseURL        string // public URL prefix the remote directory is served under
	Timeout        time.Duration
}

// StorageSettings selects the object store images are uploaded to.
type StorageSettings struct {
	Type  string // "s3", "local", "ftp" or "sftp"
	S3    S3Settings
	Local LocalStorageSettings
	FTP   RemoteStorageSettings
	SFTP  RemoteStorageSettings
}

// SentrySettings contains opt-in error tracking settings.
type SentrySettings struct {
	Enabled    bool
	DSN        string
	Debug      bool
	SampleRate float64
}

// MetricsSettings configures the Prometheus Pushgateway used to publish run metrics.
type MetricsSettings struct {
	PushGateway string // empty disables pushing
	Job         string
}

// Settings is the root configuration of the importer.
type Settings struct {
	Debug       bool
	Environment string
	Version     string `yaml:"-"`

	Logging logger.LoggingConfig
	Import  ImportSettings
	MDB     MDBSettings
	Store   StoreSettings
	Storage StorageSettings
	Sentry  SentrySettings
	Metrics MetricsSettings
}

// IsDev reports whether the importer runs in a development environment.
func (s *Settings) IsDev() bool {
	switch s.Environment {
	case EnvironmentDev, "development", "test":
		return true
	default:
		return false
	}
}

// RunTimeout parses Import.Timeout; zero means no timeout.
func (s *Settings) RunTimeout() time.Duration {
	if s.Import.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.Import.Timeout)
	if err != nil {
		return 0
	}
	return d
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration. configFile may be empty, in which case the
// default search paths are used and a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults, environment bindings and reads the config file.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment variable issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("config_file", configFile).
				Build()
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range GetDefaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			GetLogger().Debug("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("config file loaded", logger.String("path", viper.ConfigFileUsed()))
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lcbimport"))
	}
	return append(paths, "/etc/lcbimport")
}

// GetSettings returns the most recently loaded settings, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath, replacing the file atomically.
// Comments and ordering of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Config may hold credentials.
	if err := os.Chmod(tempFileName, 0o600); err != nil {
		return fmt.Errorf("error setting config permissions: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// GetLogger returns the module logger of the conf package.
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}
