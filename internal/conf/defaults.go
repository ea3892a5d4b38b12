// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUploadBatchSize = 50
	DefaultInsertBatchSize = 100
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("environment", EnvironmentProduction)

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/lcbimport.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("import.batchsize", DefaultUploadBatchSize)
	viper.SetDefault("import.includestockrecipes", false)
	viper.SetDefault("import.includetechniques", false)
	viper.SetDefault("import.excludeimages", false)
	viper.SetDefault("import.diskcheck", true)
	viper.SetDefault("import.timeout", "")

	viper.SetDefault("mdb.schematool", "mdb-schema")
	viper.SetDefault("mdb.exporttool", "mdb-export")
	viper.SetDefault("mdb.tablestool", "mdb-tables")

	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.automigrate", true)
	viper.SetDefault("store.batchsize", DefaultInsertBatchSize)
	viper.SetDefault("store.slowquery", 500*time.Millisecond)
	viper.SetDefault("store.sqlite.path", "recipes.db")
	viper.SetDefault("store.mysql.host", "localhost")
	viper.SetDefault("store.mysql.port", "3306")
	viper.SetDefault("store.mysql.database", "recipesage")

	viper.SetDefault("storage.type", "s3")
	viper.SetDefault("storage.s3.region", "us-west-2")
	viper.SetDefault("storage.s3.usepathstyle", false)
	viper.SetDefault("storage.local.path", "images")
	viper.SetDefault("storage.ftp.port", 21)
	viper.SetDefault("storage.ftp.timeout", 30*time.Second)
	viper.SetDefault("storage.sftp.port", 22)
	viper.SetDefault("storage.sftp.timeout", 30*time.Second)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("metrics.pushgateway", "")
	viper.SetDefault("metrics.job", "lcbimport")
}
