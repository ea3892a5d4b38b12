package images

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/imaging"
	"github.com/tphakala/lcbimport/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// passthroughConverter returns its input unchanged.
type passthroughConverter struct{}

func (passthroughConverter) Convert(data []byte, _ imaging.Profile) ([]byte, error) {
	return data, nil
}

type failingConverter struct{}

func (failingConverter) Convert([]byte, imaging.Profile) ([]byte, error) {
	return nil, errors.NewStd("corrupt image")
}

// recordingStore keeps every stored payload.
type recordingStore struct {
	mu   sync.Mutex
	puts map[string]string
	err  error
}

func (s *recordingStore) Name() string { return "recording" }

func (s *recordingStore) Put(_ context.Context, key string, data []byte, contentType string) (*storage.Object, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.puts == nil {
		s.puts = make(map[string]string)
	}
	s.puts[key] = string(data)
	return &storage.Object{Key: key, MimeType: contentType, Size: len(data), Location: "https://img/" + key}, nil
}

func TestResolve(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Images/PIE.JPG":       "a",
		"other/pie.jpg":        "b",
		"Images/cake.jpg":      "c",
		"Images/applepie.jpg":  "d",
		"Images/nested/x.png":  "e",
		"Images/second.jpg":    "f",
		"Images/readme.txt.gz": "g",
	})

	r := NewResolver()

	got, ok := r.Resolve(root, []string{"pie.jpg"})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "Images", "PIE.JPG"), got, "first match in path order, case-insensitive")

	got, ok = r.Resolve(root, []string{"X.PNG"})
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "Images", "nested", "x.png"), got)

	_, ok = r.Resolve(root, []string{"missing.jpg", "cake.jpg"})
	assert.False(t, ok, "only the first candidate is searched")

	_, ok = r.Resolve(root, nil)
	assert.False(t, ok)

	_, ok = r.Resolve(filepath.Join(root, "nope"), []string{"pie.jpg"})
	assert.False(t, ok)
}

func TestResolverCachesListing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.jpg": "a"})

	r := NewResolver()
	_, ok := r.Resolve(root, []string{"a.jpg"})
	require.True(t, ok)

	writeFiles(t, root, map[string]string{"b.jpg": "b"})
	_, ok = r.Resolve(root, []string{"b.jpg"})
	assert.False(t, ok, "listing is read once per root")

	r.Forget(root)
	_, ok = r.Resolve(root, []string{"b.jpg"})
	assert.True(t, ok)
}

func TestBatches(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][2]int{{0, 50}, {50, 100}, {100, 120}}, batches(120, 50))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 50))
	assert.Empty(t, batches(0, 50))
}

func TestUploadAll(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"pics/one.jpg": "first", "pics/two.jpg": "second"})

	store := &recordingStore{}
	u := NewUploader(NewResolver(), passthroughConverter{}, store, 2)
	results := u.UploadAll(t.Context(), root, []Job{
		{Index: 4, Candidates: []string{"one.jpg"}},
		{Index: 7, Candidates: []string{"absent.jpg"}},
		{Index: 9, Candidates: []string{"TWO.jpg", "one.jpg"}},
	})

	require.Len(t, results, 3)
	assert.Equal(t, 4, results[0].Index)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "first", store.puts[results[0].Object.Key])
	assert.Equal(t, imaging.ContentType, results[0].Object.MimeType)

	assert.Equal(t, 7, results[1].Index)
	require.ErrorIs(t, results[1].Err, ErrImageNotFound)
	assert.Nil(t, results[1].Object)

	require.NoError(t, results[2].Err)
	assert.Equal(t, "second", store.puts[results[2].Object.Key])
	assert.NotEqual(t, results[0].Object.Key, results[2].Object.Key)
}

func TestUploadAllFailuresAreReportedPerJob(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.jpg": "a", "b.jpg": "b"})
	jobs := []Job{{Index: 0, Candidates: []string{"a.jpg"}}, {Index: 1, Candidates: []string{"b.jpg"}}}

	failingStore := &recordingStore{err: errors.NewStd("bucket unavailable")}
	for _, u := range []*Uploader{
		NewUploader(NewResolver(), passthroughConverter{}, failingStore, 50),
		NewUploader(NewResolver(), failingConverter{}, &recordingStore{}, 50),
	} {
		results := u.UploadAll(t.Context(), root, jobs)
		require.Len(t, results, 2)
		for _, res := range results {
			require.Error(t, res.Err)
			assert.Nil(t, res.Object)
		}
	}
}

func TestUploadAllCanceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.jpg": "a"})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	results := NewUploader(NewResolver(), passthroughConverter{}, &recordingStore{}, 50).
		UploadAll(ctx, root, []Job{{Candidates: []string{"a.jpg"}}})
	require.ErrorIs(t, results[0].Err, context.Canceled)
}

// batchProbeStore blocks every upload until all uploads of its batch have
// started, and records start and end events.
type batchProbeStore struct {
	batchSize int
	arrivals  []*sync.WaitGroup

	mu     sync.Mutex
	events []string
}

func newBatchProbeStore(total, batchSize int) *batchProbeStore {
	s := &batchProbeStore{batchSize: batchSize}
	for _, b := range batches(total, batchSize) {
		wg := &sync.WaitGroup{}
		wg.Add(b[1] - b[0])
		s.arrivals = append(s.arrivals, wg)
	}
	return s
}

func (s *batchProbeStore) Name() string { return "probe" }

func (s *batchProbeStore) record(event string) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *batchProbeStore) Put(_ context.Context, key string, data []byte, _ string) (*storage.Object, error) {
	var job int
	if _, err := fmt.Sscanf(string(data), "job-%d", &job); err != nil {
		return nil, err
	}
	s.record(fmt.Sprintf("start %d", job))
	defer s.record(fmt.Sprintf("end %d", job))

	arrival := s.arrivals[job/s.batchSize]
	arrival.Done()

	all := make(chan struct{})
	go func() {
		arrival.Wait()
		close(all)
	}()
	select {
	case <-all:
	case <-time.After(10 * time.Second):
		return nil, fmt.Errorf("batch of job %d never ran concurrently", job)
	}
	return &storage.Object{Key: key}, nil
}

func TestUploadAllBatchesAreSequential(t *testing.T) {
	t.Parallel()

	const total, batchSize = 120, 50
	root := t.TempDir()
	files := make(map[string]string, total)
	jobs := make([]Job, total)
	for i := range total {
		name := fmt.Sprintf("img_%03d.jpg", i)
		files[name] = fmt.Sprintf("job-%d", i)
		jobs[i] = Job{Index: i, Candidates: []string{name}}
	}
	writeFiles(t, root, files)

	store := newBatchProbeStore(total, batchSize)
	results := NewUploader(NewResolver(), passthroughConverter{}, store, batchSize).UploadAll(t.Context(), root, jobs)

	for i, res := range results {
		require.NoError(t, res.Err, "job %d", i)
		assert.Equal(t, i, res.Index)
	}

	// Position of each event per batch.
	firstStart := map[int]int{}
	lastEnd := map[int]int{}
	sizes := map[int]int{}
	for pos, ev := range store.events {
		var job int
		batch := -1
		switch {
		case strings.HasPrefix(ev, "start "):
			_, _ = fmt.Sscanf(ev, "start %d", &job)
			batch = job / batchSize
			if _, ok := firstStart[batch]; !ok {
				firstStart[batch] = pos
			}
			sizes[batch]++
		case strings.HasPrefix(ev, "end "):
			_, _ = fmt.Sscanf(ev, "end %d", &job)
			batch = job / batchSize
			lastEnd[batch] = pos
		}
		require.NotEqual(t, -1, batch)
	}

	assert.Equal(t, map[int]int{0: 50, 1: 50, 2: 20}, sizes)
	assert.Less(t, lastEnd[0], firstStart[1], "batch 2 started before batch 1 settled")
	assert.Less(t, lastEnd[1], firstStart[2], "batch 3 started before batch 2 settled")
}
