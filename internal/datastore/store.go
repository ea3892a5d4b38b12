package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

// Open connects to the target store selected by settings.Type and migrates
// the schema when settings.AutoMigrate is set.
func Open(settings *conf.StoreSettings, log logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = GetLogger()
	}

	var dialector gorm.Dialector
	var connectionInfo string
	switch settings.Type {
	case "sqlite":
		if dir := filepath.Dir(settings.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, openError(err, settings.Type, settings.SQLite.Path)
			}
		}
		dialector = sqlite.Open(settings.SQLite.Path)
		connectionInfo = settings.SQLite.Path
	case "mysql":
		dialector = mysql.Open(MySQLDSN(&settings.MySQL))
		connectionInfo = fmt.Sprintf("%s:%s/%s", settings.MySQL.Host, settings.MySQL.Port, settings.MySQL.Database)
	default:
		return nil, errors.Newf("unsupported store type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	slow := settings.SlowQuery
	if slow <= 0 {
		slow = 500 * time.Millisecond
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module(settings.Type), slow),
	})
	if err != nil {
		log.Error("failed to open target store",
			logger.String("db_type", settings.Type),
			logger.String("connection", connectionInfo),
			logger.Error(err))
		return nil, openError(err, settings.Type, connectionInfo)
	}

	if settings.AutoMigrate {
		if err := performAutoMigration(db, settings.Type, log); err != nil {
			_ = Close(db)
			return nil, err
		}
	}
	return db, nil
}

// MySQLDSN builds the go-sql-driver DSN for s.
func MySQLDSN(s *conf.MySQLSettings) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		s.Username, s.Password, s.Host, s.Port, s.Database)
}

func performAutoMigration(db *gorm.DB, dbType string, log logger.Logger) error {
	start := time.Now()
	if err := db.AutoMigrate(Models()...); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Context("operation", "auto_migrate").
			Build()
	}
	log.Debug("target store migrated",
		logger.String("db_type", dbType),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Close closes the connection pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func openError(err error, dbType, connectionInfo string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("db_type", dbType).
		Context("connection", connectionInfo).
		Context("operation", "open").
		Build()
}

// GetLogger returns the module logger of the datastore package.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
