package images

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/imaging"
	"github.com/tphakala/lcbimport/internal/logger"
	"github.com/tphakala/lcbimport/internal/storage"
)

// ErrImageNotFound is returned for jobs whose image is not in the archive.
var ErrImageNotFound = errors.NewStd("image not found in archive")

// Job asks for the image of one recipe. Index identifies the recipe to the caller.
type Job struct {
	Index      int
	Candidates []string
}

// Result is the outcome of one Job. Exactly one of Object and Err is set.
type Result struct {
	Index  int
	Object *storage.Object
	Err    error
}

// Uploader converts and uploads recipe images.
type Uploader struct {
	resolver  *Resolver
	converter imaging.Converter
	store     storage.ObjectStore
	profile   imaging.Profile
	batchSize int
	now       func() time.Time
	log       logger.Logger
}

// NewUploader returns an Uploader running up to batchSize uploads at a time.
func NewUploader(resolver *Resolver, converter imaging.Converter, store storage.ObjectStore, batchSize int) *Uploader {
	if batchSize <= 0 {
		batchSize = conf.DefaultUploadBatchSize
	}
	return &Uploader{
		resolver:  resolver,
		converter: converter,
		store:     store,
		profile:   imaging.HighRes,
		batchSize: batchSize,
		now:       time.Now,
		log:       GetLogger(),
	}
}

// UploadAll processes jobs in consecutive batches. The uploads of a batch run
// concurrently and the next batch starts only after all of them settled.
// Results are returned in job order; failures are reported per result and
// never abort the other jobs.
func (u *Uploader) UploadAll(ctx context.Context, root string, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	start := time.Now()

	for i, bounds := range batches(len(jobs), u.batchSize) {
		var wg sync.WaitGroup
		for j := bounds[0]; j < bounds[1]; j++ {
			wg.Go(func() {
				obj, err := u.upload(ctx, root, jobs[j])
				results[j] = Result{Index: jobs[j].Index, Object: obj, Err: err}
			})
		}
		wg.Wait()

		u.log.Debug("image batch settled",
			logger.Int("batch", i+1),
			logger.Int("size", bounds[1]-bounds[0]))
	}

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
		}
	}
	u.log.Info("images uploaded",
		logger.Int("jobs", len(jobs)),
		logger.Int("failed", failed),
		logger.Duration("elapsed", time.Since(start)))
	return results
}

func (u *Uploader) upload(ctx context.Context, root string, job Job) (*storage.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, ok := u.resolver.Resolve(root, job.Candidates)
	if !ok {
		return nil, ErrImageNotFound
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	converted, err := u.converter.Convert(data, u.profile)
	if err != nil {
		return nil, err
	}

	return u.store.Put(ctx, storage.NewKey(u.now()), converted, imaging.ContentType)
}

// batches splits n items into [start, end) ranges of at most size items.
func batches(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}
