// Package importer runs a Living Cookbook archive import from upload to
// stored recipes and reports its outcome.
package importer

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tphakala/lcbimport/internal/archive"
	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/datastore"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/images"
	"github.com/tphakala/lcbimport/internal/imaging"
	"github.com/tphakala/lcbimport/internal/legacy"
	"github.com/tphakala/lcbimport/internal/logger"
	"github.com/tphakala/lcbimport/internal/mdb"
	"github.com/tphakala/lcbimport/internal/observability"
	"github.com/tphakala/lcbimport/internal/observability/metrics"
	"github.com/tphakala/lcbimport/internal/recipe"
	"github.com/tphakala/lcbimport/internal/storage"
	"github.com/tphakala/lcbimport/internal/telemetry"
)

// MetricsMessage is the telemetry message sent after a successful run.
const MetricsMessage = "LCB Metrics"

const pushTimeout = 10 * time.Second

// Result summarizes a finished run.
type Result struct {
	RunID          string
	State          State
	Tables         []string
	RecipesFound   int // recipes selected for import
	RecipesSaved   int
	LabelsSaved    int
	ImagesUploaded int
	ImagesFailed   int
	Metrics        Metrics
}

// Importer coordinates import runs. It holds the long-lived collaborators;
// everything that belongs to a single run is passed to Run.
type Importer struct {
	settings  *conf.Settings
	target    *gorm.DB
	runner    mdb.ToolRunner
	converter imaging.Converter
	store     storage.ObjectStore
	reporter  telemetry.Reporter
	metrics   *observability.Metrics
	recorder  metrics.Recorder
	now       func() time.Time
	log       logger.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithToolRunner replaces the runner used to invoke the mdbtools binaries.
func WithToolRunner(r mdb.ToolRunner) Option {
	return func(imp *Importer) { imp.runner = r }
}

// WithImageConverter replaces the image converter.
func WithImageConverter(c imaging.Converter) Option {
	return func(imp *Importer) { imp.converter = c }
}

// WithObjectStore sets the store images are uploaded to.
func WithObjectStore(s storage.ObjectStore) Option {
	return func(imp *Importer) { imp.store = s }
}

// WithReporter sets the telemetry reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(imp *Importer) {
		if r != nil {
			imp.reporter = r
		}
	}
}

// WithMetrics records stage metrics into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(imp *Importer) {
		imp.metrics = m
		if m != nil {
			imp.recorder = m.Import
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(imp *Importer) { imp.now = now }
}

// New returns an Importer writing recipes to target.
func New(settings *conf.Settings, target *gorm.DB, opts ...Option) *Importer {
	imp := &Importer{
		settings:  settings,
		target:    target,
		runner:    mdb.ExecRunner{},
		converter: imaging.NewJPEGConverter(),
		reporter:  telemetry.NopReporter{},
		recorder:  metrics.NopRecorder{},
		now:       time.Now,
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// run is the state of one import.
type run struct {
	cfg     RunConfig
	sm      stateMachine
	metrics Metrics
	result  Result
	store   *gorm.DB // disposable legacy store
}

// Run imports the archive described by cfg. Work files are removed whether
// the run succeeds or not. Image failures never fail a run.
func (imp *Importer) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r := &run{cfg: cfg}
	r.result.RunID = uuid.NewString()
	r.metrics.Started = imp.now()
	ctx = logger.WithRunID(ctx, r.result.RunID)
	log := imp.log.WithContext(ctx).With(logger.String("user_id", cfg.UserID), logger.String("archive", cfg.ArchivePath))
	log.Info("import started", logger.Bool("include_stock", cfg.IncludeStockRecipes),
		logger.Bool("exclude_images", cfg.ExcludeImages),
		logger.Bool("include_techniques", cfg.IncludeTechniques))

	err := imp.execute(ctx, r, log)
	imp.cleanup(r, log)

	r.result.Metrics = r.metrics
	if err != nil {
		failedIn := r.sm.current
		_ = r.sm.transition(StateFailed)
		r.result.State = r.sm.current
		return &r.result, imp.fail(r, failedIn, err, log)
	}

	r.result.State = r.sm.current
	imp.succeed(ctx, r, log)
	return &r.result, nil
}

func (imp *Importer) execute(ctx context.Context, r *run, log logger.Logger) error {
	cfg := r.cfg

	if err := imp.enter(r, StateStaging); err != nil {
		return err
	}
	stager := archive.NewStager(cfg.DiskCheck, imp.reporter)
	if err := imp.timed(r, func() error { return stager.Stage(ctx, cfg.Layout()) }); err != nil {
		return err
	}
	r.metrics.Extracted = imp.now()

	if err := imp.enter(r, StateConverting); err != nil {
		return err
	}
	store, err := legacy.OpenStore(cfg.SQLitePath(), nil)
	if err != nil {
		return err
	}
	r.store = store
	converter := mdb.NewConverter(imp.runner, imp.settings.MDB)
	if err := imp.timed(r, func() error {
		r.result.Tables, err = converter.Convert(ctx, cfg.DatabasePath(), store)
		return err
	}); err != nil {
		return err
	}
	r.metrics.Exported = imp.now()

	if err := imp.enter(r, StateLoading); err != nil {
		return err
	}
	r.metrics.SQLiteStored = imp.now()
	var tables legacy.Tables
	if err := imp.timed(r, func() error {
		tables, err = legacy.Load(ctx, store, r.result.Tables)
		return err
	}); err != nil {
		return err
	}
	r.metrics.SQLiteFetched = imp.now()

	if err := imp.enter(r, StateAggregating); err != nil {
		return err
	}
	var aggregates []recipe.Aggregate
	_ = imp.timed(r, func() error {
		idx := legacy.BuildIndices(tables)
		aggregates = recipe.BuildAll(tables[legacy.TableRecipe], idx, recipe.Options{
			UserID:            cfg.UserID,
			IncludeStock:      cfg.IncludeStockRecipes,
			IncludeTechniques: cfg.IncludeTechniques,
		}, imp.now())
		return nil
	})
	r.result.RecipesFound = len(aggregates)
	r.metrics.RecipeDataAssembled = imp.now()
	log.Info("recipes assembled",
		logger.Int("legacy_recipes", len(tables[legacy.TableRecipe])),
		logger.Int("selected", len(aggregates)))

	if err := imp.enter(r, StateUploadingImages); err != nil {
		return err
	}
	_ = imp.timed(r, func() error {
		imp.uploadImages(ctx, r, aggregates, log)
		return nil
	})
	r.metrics.ImagesUploaded = imp.now()

	pending := make([]datastore.PendingRecipe, len(aggregates))
	for i := range aggregates {
		pending[i] = aggregates[i].Pending()
	}
	r.metrics.RecipesProcessed = imp.now()

	if err := imp.enter(r, StateCommitting); err != nil {
		return err
	}
	var committed *datastore.CommitResult
	if err := imp.timed(r, func() error {
		committed, err = datastore.NewCommitter(imp.target, imp.settings.Store.BatchSize).Commit(ctx, cfg.UserID, pending)
		return err
	}); err != nil {
		return err
	}
	r.metrics.RecipesSaved = committed.RecipesSaved
	r.metrics.LabelsSaved = committed.LabelsSaved
	r.result.RecipesSaved = len(committed.RecipeIDs)
	r.result.LabelsSaved = committed.Labels

	return imp.enter(r, StateDone)
}

// uploadImages attaches an uploaded image to every aggregate whose image
// could be stored. Upload errors are logged and counted, then dropped.
func (imp *Importer) uploadImages(ctx context.Context, r *run, aggregates []recipe.Aggregate, log logger.Logger) {
	if r.cfg.ExcludeImages {
		log.Debug("image upload skipped by request")
		return
	}
	if imp.store == nil {
		log.Warn("no object store configured, recipes are imported without images")
		return
	}

	var jobs []images.Job
	for i := range aggregates {
		if len(aggregates[i].ImageCandidates) > 0 {
			jobs = append(jobs, images.Job{Index: i, Candidates: aggregates[i].ImageCandidates})
		}
	}
	if len(jobs) == 0 {
		return
	}

	uploader := images.NewUploader(images.NewResolver(), imp.converter, imp.store, r.cfg.UploadBatchSize)
	for _, res := range uploader.UploadAll(ctx, r.cfg.ExtractDir(), jobs) {
		if res.Err != nil {
			r.result.ImagesFailed++
			status := metrics.StatusError
			if errors.Is(res.Err, images.ErrImageNotFound) {
				status = metrics.StatusSkipped
			}
			imp.recorder.RecordOperation("image_upload", status)
			log.Debug("recipe image not uploaded",
				logger.String("legacy_id", aggregates[res.Index].LegacyID),
				logger.Error(res.Err))
			continue
		}
		aggregates[res.Index].Recipe.Image = res.Object
		r.result.ImagesUploaded++
		imp.recorder.RecordOperation("image_upload", metrics.StatusSuccess)
	}
}

func (imp *Importer) enter(r *run, next State) error {
	if err := r.sm.transition(next); err != nil {
		return err
	}
	if next != StateDone {
		imp.log.Debug("import stage started", logger.String("stage", next.String()))
	}
	return nil
}

// timed runs fn for the current stage and records its outcome.
func (imp *Importer) timed(r *run, fn func() error) error {
	stage := r.sm.current.String()
	start := time.Now()
	err := fn()
	imp.recorder.RecordDuration(stage, time.Since(start).Seconds())
	if err != nil {
		imp.recorder.RecordOperation(stage, metrics.StatusError)
		return err
	}
	imp.recorder.RecordOperation(stage, metrics.StatusSuccess)
	return nil
}

// cleanup closes the disposable store and removes every work file.
func (imp *Importer) cleanup(r *run, log logger.Logger) {
	if err := legacy.CloseStore(r.store); err != nil {
		log.Warn("failed to close disposable store", logger.Error(err))
	}
	for _, path := range []string{r.cfg.SQLitePath(), r.cfg.ArchivePath, r.cfg.ExtractDir(), r.cfg.DatabasePath()} {
		if err := os.RemoveAll(path); err != nil {
			log.Warn("failed to remove work file", logger.String("path", path), logger.Error(err))
		}
	}
}

func (imp *Importer) succeed(ctx context.Context, r *run, log logger.Logger) {
	d := r.metrics.Durations()
	log.Info("import completed",
		logger.Int("recipes_found", r.result.RecipesFound),
		logger.Int("recipes_saved", r.result.RecipesSaved),
		logger.Int("labels_saved", r.result.LabelsSaved),
		logger.Int("images_uploaded", r.result.ImagesUploaded),
		logger.Int("images_failed", r.result.ImagesFailed),
		logger.Duration("total", d.Total))

	imp.reporter.CaptureMessage(MetricsMessage, telemetry.LevelInfo, map[string]any{
		"run_id":     r.result.RunID,
		"run_config": r.cfg.Fields(),
		"metrics":    r.metrics.Fields(),
		"user_id":    r.cfg.UserID,
	})

	imp.publishMetrics(ctx, r, true, log)
}

func (imp *Importer) fail(r *run, failedIn State, err error, log logger.Logger) error {
	importErr := classify(failedIn, err)
	imp.recorder.RecordError(failedIn.String(), importErr.Code.String())

	enhanced := errors.New(importErr).
		Component("importer").
		Context("state", failedIn.String()).
		Context("error_code", importErr.Code.String()).
		Context("user_id", r.cfg.UserID).
		Build()
	if importErr.Table != "" {
		enhanced.Context["table"] = importErr.Table
	}

	log.Error("import failed",
		logger.String("state", failedIn.String()),
		logger.String("error_code", importErr.Code.String()),
		logger.Error(err))

	imp.reporter.CaptureException(enhanced, map[string]any{
		"run_id":     r.result.RunID,
		"run_config": r.cfg.Fields(),
		"user_id":    r.cfg.UserID,
	})
	imp.publishMetrics(context.Background(), r, false, log)
	return enhanced
}

// publishMetrics sets the run gauges and pushes them when a Pushgateway is configured.
func (imp *Importer) publishMetrics(ctx context.Context, r *run, success bool, log logger.Logger) {
	if imp.metrics == nil {
		return
	}
	imp.metrics.Import.SetRunResult(success, r.result.RecipesFound, r.result.RecipesSaved, r.result.LabelsSaved)

	gateway := imp.settings.Metrics.PushGateway
	if gateway == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := imp.metrics.Push(pushCtx, gateway, imp.settings.Metrics.Job, r.cfg.UserID); err != nil {
		log.Warn("failed to push metrics", logger.Error(err))
	}
}

// GetLogger returns the module logger of the importer package.
func GetLogger() logger.Logger {
	return logger.Global().Module("importer")
}
