// Package importer provides the import command.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/datastore"
	"github.com/tphakala/lcbimport/internal/importer"
	"github.com/tphakala/lcbimport/internal/logger"
	"github.com/tphakala/lcbimport/internal/observability"
	"github.com/tphakala/lcbimport/internal/storage"
	"github.com/tphakala/lcbimport/internal/telemetry"
)

const telemetryFlushTimeout = 5 * time.Second

// Command creates and returns the import command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <archive.zip> <user-id>",
		Short: "Import a Living Cookbook archive for a user",
		Long: `Import extracts a Living Cookbook export archive, converts its database,
uploads recipe images and stores the user's recipes and labels in a single
transaction. The archive and every intermediate file are removed afterwards.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), settings, args[0], args[1])
		},
	}

	setupFlags(cmd)
	return cmd
}

func setupFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("include-stock-recipes", false, "Import recipes that were never modified by the user")
	flags.Bool("exclude-images", false, "Do not upload recipe images")
	flags.Bool("include-techniques", false, "Append technique notes to recipe notes")
	flags.Int("batch-size", conf.DefaultUploadBatchSize, "Number of images uploaded concurrently")
	flags.String("timeout", "", "Abort the import after this duration, e.g. 30m")

	bindings := map[string]string{
		"import.includestockrecipes": "include-stock-recipes",
		"import.excludeimages":       "exclude-images",
		"import.includetechniques":   "include-techniques",
		"import.batchsize":           "batch-size",
		"import.timeout":             "timeout",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("error binding flag %s: %v", flag, err))
		}
	}
}

func runImport(ctx context.Context, settings *conf.Settings, archivePath, userID string) error {
	log := logger.Global().Module("main")

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := settings.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reporter, err := telemetry.InitSentry(settings)
	if err != nil {
		log.Warn("failed to initialize telemetry, continuing without it", logger.Error(err))
		reporter = telemetry.NopReporter{}
	}
	defer reporter.Flush(telemetryFlushTimeout)

	db, err := datastore.Open(&settings.Store, log.Module("datastore"))
	if err != nil {
		return err
	}
	defer func() {
		if err := datastore.Close(db); err != nil {
			log.Warn("failed to close recipe store", logger.Error(err))
		}
	}()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	cfg := importer.NewRunConfig(archivePath, userID, &settings.Import)
	opts := []importer.Option{
		importer.WithReporter(reporter),
		importer.WithMetrics(metrics),
	}

	if !cfg.ExcludeImages && settings.Storage.Type != "" {
		store, err := storage.New(ctx, &settings.Storage)
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer func() { _ = closer.Close() }()
		}
		opts = append(opts, importer.WithObjectStore(store))
	}

	result, err := importer.New(settings, db, opts...).Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d recipes (%d labels, %d images", result.RecipesSaved, result.RecipesFound,
		result.LabelsSaved, result.ImagesUploaded)
	if result.ImagesFailed > 0 {
		fmt.Printf(", %d images skipped", result.ImagesFailed)
	}
	fmt.Printf(") in %s\n", result.Metrics.Durations().Total.Round(time.Millisecond))
	return nil
}
