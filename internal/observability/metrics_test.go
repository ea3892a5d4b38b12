package observability

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsPush(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	m, err := NewMetrics()
	require.NoError(t, err)
	m.Import.SetRunResult(true, 3, 3, 2)

	require.NoError(t, m.Push(t.Context(), srv.URL, "lcbimport", "user-1"))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "PUT /metrics/job/lcbimport/user_id/user-1", paths[0])
}

func TestMetricsPushFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	m, err := NewMetrics()
	require.NoError(t, err)

	err = m.Push(t.Context(), srv.URL, "lcbimport", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}
