// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateEnvironment(settings.Environment); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateImportSettings(&settings.Import); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateMDBSettings(&settings.MDB); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateStoreSettings(&settings.Store); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateStorageSettings(&settings.Storage); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateSentrySettings(&settings.Sentry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateMetricsSettings(&settings.Metrics); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateEnvironment(env string) error {
	if env == "" {
		return nil
	}
	return validateEnvEnvironment(env)
}

func validateImportSettings(s *ImportSettings) error {
	var errs []string
	if s.BatchSize <= 0 {
		errs = append(errs, "import.batchsize must be greater than zero")
	}
	if s.Timeout != "" {
		if d, err := time.ParseDuration(s.Timeout); err != nil || d < 0 {
			errs = append(errs, fmt.Sprintf("import.timeout %q is not a valid duration", s.Timeout))
		}
	}
	return joinErrors(errs)
}

func validateMDBSettings(s *MDBSettings) error {
	var errs []string
	if s.SchemaTool == "" {
		errs = append(errs, "mdb.schematool must be set")
	}
	if s.ExportTool == "" {
		errs = append(errs, "mdb.exporttool must be set")
	}
	if s.TablesTool == "" {
		errs = append(errs, "mdb.tablestool must be set")
	}
	return joinErrors(errs)
}

func validateStoreSettings(s *StoreSettings) error {
	var errs []string
	switch s.Type {
	case "sqlite":
		if s.SQLite.Path == "" {
			errs = append(errs, "store.sqlite.path must be set")
		}
	case "mysql":
		if s.MySQL.Host == "" || s.MySQL.Database == "" {
			errs = append(errs, "store.mysql.host and store.mysql.database must be set")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.type %q must be sqlite or mysql", s.Type))
	}
	if s.BatchSize <= 0 {
		errs = append(errs, "store.batchsize must be greater than zero")
	}
	return joinErrors(errs)
}

func validateStorageSettings(s *StorageSettings) error {
	var errs []string
	switch s.Type {
	case "s3":
		if s.S3.Bucket == "" {
			errs = append(errs, "storage.s3.bucket must be set")
		}
		if s.S3.Region == "" {
			errs = append(errs, "storage.s3.region must be set")
		}
		if s.S3.Endpoint != "" {
			if err := validateEnvURL(s.S3.Endpoint); err != nil {
				errs = append(errs, fmt.Sprintf("storage.s3.endpoint: %v", err))
			}
		}
	case "local":
		if s.Local.Path == "" {
			errs = append(errs, "storage.local.path must be set")
		}
	case "ftp", "sftp":
		remote := s.FTP
		if s.Type == "sftp" {
			remote = s.SFTP
		}
		if remote.Host == "" {
			errs = append(errs, fmt.Sprintf("storage.%s.host must be set", s.Type))
		}
		if remote.Port <= 0 || remote.Port > 65535 {
			errs = append(errs, fmt.Sprintf("storage.%s.port %d is out of range", s.Type, remote.Port))
		}
		if remote.BaseURL == "" {
			errs = append(errs, fmt.Sprintf("storage.%s.baseurl must be set", s.Type))
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.type %q must be s3, local, ftp or sftp", s.Type))
	}
	return joinErrors(errs)
}

func validateSentrySettings(s *SentrySettings) error {
	if !s.Enabled {
		return nil
	}
	var errs []string
	if s.DSN == "" {
		errs = append(errs, "sentry.dsn must be set when sentry is enabled")
	} else if _, err := url.Parse(s.DSN); err != nil {
		errs = append(errs, fmt.Sprintf("sentry.dsn: %v", err))
	}
	if s.SampleRate < 0 || s.SampleRate > 1 {
		errs = append(errs, "sentry.samplerate must be between 0 and 1")
	}
	return joinErrors(errs)
}

func validateMetricsSettings(s *MetricsSettings) error {
	if s.PushGateway == "" {
		return nil
	}
	if err := validateEnvURL(s.PushGateway); err != nil {
		return fmt.Errorf("metrics.pushgateway: %w", err)
	}
	if s.Job == "" {
		return fmt.Errorf("metrics.job must be set when metrics.pushgateway is configured")
	}
	return nil
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
