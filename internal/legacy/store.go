package legacy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

const slowQueryThreshold = 2 * time.Second

// LoadError reports a failed read of one legacy table.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to read legacy table %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *LoadError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryLegacyConversion
}

// OpenStore opens (creating if needed) the disposable SQLite store at path.
func OpenStore(path string, log logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = GetLogger()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log.Module("sqlite"), slowQueryThreshold),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryDatabase).
			Context("path", path).
			Context("operation", "open_disposable_store").
			Build()
	}
	return db, nil
}

// CloseStore closes the connection pool behind db.
func CloseStore(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load reads every row of tables. Tables are read concurrently and each
// reader fills only its own slot; the first failure cancels the others.
func Load(ctx context.Context, db *gorm.DB, tables []string) (Tables, error) {
	start := time.Now()
	slots := make([][]Row, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			var records []map[string]any
			if err := db.WithContext(gctx).Table(table).Find(&records).Error; err != nil {
				return &LoadError{Table: table, Err: err}
			}
			rows := make([]Row, len(records))
			for j, rec := range records {
				rows[j] = normalizeRow(rec)
			}
			slots[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(Tables, len(tables))
	total := 0
	for i, table := range tables {
		result[table] = slots[i]
		total += len(slots[i])
	}

	GetLogger().Debug("legacy tables loaded",
		logger.Int("tables", len(tables)),
		logger.Int("rows", total),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// GetLogger returns the module logger of the legacy package.
func GetLogger() logger.Logger {
	return logger.Global().Module("legacy")
}
