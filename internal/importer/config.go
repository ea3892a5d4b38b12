package importer

import (
	"strings"

	"github.com/tphakala/lcbimport/internal/archive"
	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
)

// Suffixes appended to the archive path to derive the work paths of a run.
const (
	extractSuffix  = "-extract"
	databaseSuffix = "-livingcookbook.mdb"
	sqliteSuffix   = "-sqlite.db"
)

// RunConfig describes one import run.
type RunConfig struct {
	ArchivePath         string
	UserID              string
	IncludeStockRecipes bool
	ExcludeImages       bool
	IncludeTechniques   bool
	UploadBatchSize     int
	DiskCheck           bool
}

// NewRunConfig returns a RunConfig for archivePath and userID with the
// defaults from settings.
func NewRunConfig(archivePath, userID string, settings *conf.ImportSettings) RunConfig {
	return RunConfig{
		ArchivePath:         archivePath,
		UserID:              userID,
		IncludeStockRecipes: settings.IncludeStockRecipes,
		ExcludeImages:       settings.ExcludeImages,
		IncludeTechniques:   settings.IncludeTechniques,
		UploadBatchSize:     settings.BatchSize,
		DiskCheck:           settings.DiskCheck,
	}
}

// ExtractDir is where the archive is extracted to.
func (c RunConfig) ExtractDir() string { return c.ArchivePath + extractSuffix }

// DatabasePath is where the legacy database is moved to.
func (c RunConfig) DatabasePath() string { return c.ArchivePath + databaseSuffix }

// SQLitePath is the disposable store the legacy tables are converted into.
func (c RunConfig) SQLitePath() string { return c.ArchivePath + sqliteSuffix }

// Layout returns the work paths for the archive stager.
func (c RunConfig) Layout() archive.Layout {
	return archive.Layout{
		Archive:    c.ArchivePath,
		ExtractDir: c.ExtractDir(),
		Database:   c.DatabasePath(),
	}
}

// Validate checks the run parameters.
func (c RunConfig) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ArchivePath) == "" {
		missing = append(missing, "archive path")
	}
	if strings.TrimSpace(c.UserID) == "" {
		missing = append(missing, "user id")
	}
	if len(missing) > 0 {
		return errors.Newf("missing %s", strings.Join(missing, " and ")).
			Component("importer").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Fields returns the run parameters for logs and telemetry.
func (c RunConfig) Fields() map[string]any {
	return map[string]any{
		"path":               c.ArchivePath,
		"user_id":            c.UserID,
		"include_stock":      c.IncludeStockRecipes,
		"exclude_images":     c.ExcludeImages,
		"include_techniques": c.IncludeTechniques,
		"upload_batch_size":  c.UploadBatchSize,
		"disk_check":         c.DiskCheck,
	}
}
