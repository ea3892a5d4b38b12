package mdb

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

// ConversionError reports a failed schema translation or table listing.
type ConversionError struct {
	Step string // "schema" or "tables"
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("legacy %s conversion failed: %v", e.Step, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *ConversionError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryLegacyConversion
}

// TableError reports a failed export of one legacy table.
type TableError struct {
	Table string
	Err   error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("failed to export table %s: %v", e.Table, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *TableError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryTableExport
}

// Converter materializes the required legacy tables into a disposable store.
type Converter struct {
	runner ToolRunner
	tools  conf.MDBSettings
	log    logger.Logger
}

// NewConverter returns a Converter using runner to invoke the configured tools.
func NewConverter(runner ToolRunner, tools conf.MDBSettings) *Converter {
	if runner == nil {
		runner = ExecRunner{}
	}
	if tools.SchemaTool == "" {
		tools.SchemaTool = "mdb-schema"
	}
	if tools.ExportTool == "" {
		tools.ExportTool = "mdb-export"
	}
	if tools.TablesTool == "" {
		tools.TablesTool = "mdb-tables"
	}
	return &Converter{
		runner: runner,
		tools:  tools,
		log:    GetLogger(),
	}
}

// Convert creates the legacy schema in store and copies every required table
// found in the database at mdbPath. Tables are exported one after another,
// each inside its own transaction. It returns the converted table names.
func (c *Converter) Convert(ctx context.Context, mdbPath string, store *gorm.DB) ([]string, error) {
	start := time.Now()
	db := store.WithContext(ctx)

	schema, err := c.runner.Run(ctx, c.tools.SchemaTool, mdbPath, "sqlite")
	if err != nil {
		return nil, &ConversionError{Step: "schema", Err: err}
	}
	if strings.TrimSpace(string(schema)) != "" {
		if err := db.Exec(string(schema)).Error; err != nil {
			return nil, &ConversionError{Step: "schema", Err: fmt.Errorf("failed to apply schema: %w", err)}
		}
	}

	out, err := c.runner.Run(ctx, c.tools.TablesTool, "-1", mdbPath)
	if err != nil {
		return nil, &ConversionError{Step: "tables", Err: err}
	}
	available := parseTableList(out)
	tables := SelectTables(available)

	c.log.Debug("legacy tables selected",
		logger.Int("available", len(available)),
		logger.Any("tables", tables))

	for _, table := range tables {
		if err := c.exportTable(ctx, db, mdbPath, table); err != nil {
			return nil, err
		}
	}

	c.log.Info("legacy database converted",
		logger.Int("tables", len(tables)),
		logger.Duration("elapsed", time.Since(start)))
	return tables, nil
}

func (c *Converter) exportTable(ctx context.Context, db *gorm.DB, mdbPath, table string) error {
	inserts, err := c.runner.Run(ctx, c.tools.ExportTool, "-I", "sqlite", mdbPath, table)
	if err != nil {
		return &TableError{Table: table, Err: err}
	}
	if len(bytes.TrimSpace(inserts)) == 0 {
		c.log.Debug("legacy table is empty", logger.String("table", table))
		return nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return tx.Exec(string(inserts)).Error
	})
	if err != nil {
		return &TableError{Table: table, Err: err}
	}

	c.log.Trace("legacy table exported",
		logger.String("table", table),
		logger.Int("bytes", len(inserts)))
	return nil
}

// GetLogger returns the module logger of the mdb package.
func GetLogger() logger.Logger {
	return logger.Global().Module("mdb")
}
