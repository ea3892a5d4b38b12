// env.go - environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix applies to every key through AutomaticEnv, e.g. LCBIMPORT_STORE_TYPE.
const envPrefix = "LCBIMPORT"

var envKeyReplacer = strings.NewReplacer(".", "_")

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the variables honoured without the LCBIMPORT_ prefix,
// matching the names the recipe backend deployment already exports.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"environment", "NODE_ENV", validateEnvEnvironment},
		{"sentry.dsn", "SENTRY_DSN", validateEnvURL},
		{"storage.s3.bucket", "AWS_BUCKET", nil},
		{"storage.s3.region", "AWS_REGION", nil},
		{"storage.s3.accesskeyid", "AWS_ACCESS_KEY_ID", nil},
		{"storage.s3.secretaccesskey", "AWS_SECRET_ACCESS_KEY", nil},
		{"import.batchsize", "LCBIMPORT_BATCH_SIZE", validateEnvPositiveInt},
		{"store.mysql.password", "LCBIMPORT_DB_PASSWORD", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar, envPrefix+"_"+envKeyReplacer.Replace(strings.ToUpper(binding.ConfigKey))); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvEnvironment(value string) error {
	switch value {
	case EnvironmentProduction, EnvironmentDev, "development", "test":
		return nil
	default:
		return fmt.Errorf("unknown environment %q", value)
	}
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}
