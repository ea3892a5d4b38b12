package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/telemetry"
)

// writeZip creates a zip archive at path containing files (name -> content).
func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func testLayout(t *testing.T) Layout {
	t.Helper()
	dir := t.TempDir()
	archive := filepath.Join(dir, "upload.zip")
	return Layout{
		Archive:    archive,
		ExtractDir: archive + "-extract",
		Database:   archive + "-livingcookbook.mdb",
	}
}

func TestExtract(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{
		"Cookbook/Data.mdb":       "db",
		"Cookbook/Images/pie.jpg": "jpeg",
		"Cookbook/Images/Sub/":    "",
		"Cookbook/readme.txt":     "hello",
	})

	require.NoError(t, Extract(t.Context(), layout.Archive, layout.ExtractDir, false))

	data, err := os.ReadFile(filepath.Join(layout.ExtractDir, "Cookbook", "Images", "pie.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))
	assert.DirExists(t, filepath.Join(layout.ExtractDir, "Cookbook", "Images", "Sub"))
}

func TestExtractCorruptArchive(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	require.NoError(t, os.WriteFile(layout.Archive, []byte("definitely not a zip archive"), 0o600))

	err := Extract(t.Context(), layout.Archive, layout.ExtractDir, false)
	require.Error(t, err)
	assert.True(t, IsCorrupt(err))
	assert.True(t, errors.Is(err, zip.ErrFormat))
}

func TestExtractMissingArchiveIsNotCorrupt(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	err := Extract(t.Context(), layout.Archive, layout.ExtractDir, false)

	var ee *ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.False(t, ee.Corrupt)
	assert.Equal(t, errors.CategoryArchive, ee.ErrorCategory())
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{
		"../escaped.txt": "nope",
	})

	err := Extract(t.Context(), layout.Archive, layout.ExtractDir, false)
	require.Error(t, err)
	assert.False(t, IsCorrupt(err))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(layout.ExtractDir), "escaped.txt"))
}

func TestSafeJoin(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(os.PathSeparator), "work", "extract")
	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{"plain file", "a.txt", false},
		{"nested", "dir/b.jpg", false},
		{"dot segments inside root", "dir/../c.txt", false},
		{"parent", "../x", true},
		{"deep parent", "dir/../../x", true},
		{"absolute", "/etc/passwd", true},
		{"dotdot prefix name", "..data/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := safeJoin(root, tt.entry)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, root))
		})
	}
}

// The disk check tests replace diskUsage and must not run in parallel.
func TestExtractInsufficientDiskSpace(t *testing.T) {
	orig := diskUsage
	t.Cleanup(func() { diskUsage = orig })
	diskUsage = func(string) (*disk.UsageStat, error) {
		return &disk.UsageStat{Free: 3}, nil
	}

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{"big.mdb": "more than three bytes"})

	err := Extract(t.Context(), layout.Archive, layout.ExtractDir, true)
	require.Error(t, err)
	assert.False(t, IsCorrupt(err))
	assert.True(t, errors.IsCategory(err, errors.CategoryDiskUsage))
}

func TestExtractDiskProbeFailureIgnored(t *testing.T) {
	orig := diskUsage
	t.Cleanup(func() { diskUsage = orig })
	diskUsage = func(string) (*disk.UsageStat, error) {
		return nil, errors.NewStd("statfs failed")
	}

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{"db.mdb": "x"})

	assert.NoError(t, Extract(t.Context(), layout.Archive, layout.ExtractDir, true))
}

func TestFindFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for _, p := range []string{"b/one.MDB", "a/two.mdb", "a/three.txt"} {
		full := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o600))
	}

	got, err := FindFiles(root, isLegacyDatabase)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "two.mdb"),
		filepath.Join(root, "b", "one.MDB"),
	}, got)

	missing, err := FindFiles(filepath.Join(root, "missing"), isLegacyDatabase)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStage(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{
		"Export/COOKBOOK.MDB": "legacy",
		"Export/img/pie.jpg":  "jpeg",
	})

	stager := NewStager(false, nil)
	require.NoError(t, stager.Stage(t.Context(), layout))

	assert.NoFileExists(t, layout.Archive)
	assert.NoFileExists(t, filepath.Join(layout.ExtractDir, "Export", "COOKBOOK.MDB"))
	data, err := os.ReadFile(layout.Database)
	require.NoError(t, err)
	assert.Equal(t, "legacy", string(data))
	assert.FileExists(t, filepath.Join(layout.ExtractDir, "Export", "img", "pie.jpg"))
}

func TestStageMissingDatabase(t *testing.T) {
	t.Parallel()

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{"notes.txt": "no db here"})

	err := NewStager(false, nil).Stage(t.Context(), layout)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDatabase)
	assert.False(t, IsCorrupt(err))
	assert.NoFileExists(t, layout.Archive)
}

func TestStageMultipleDatabasesPicksFirst(t *testing.T) {
	t.Parallel()

	reporter, transport := telemetry.InitForTesting(t)

	layout := testLayout(t)
	writeZip(t, layout.Archive, map[string]string{
		"z/second.mdb": "second",
		"a/first.mdb":  "first",
	})

	require.NoError(t, NewStager(false, reporter).Stage(t.Context(), layout))

	data, err := os.ReadFile(layout.Database)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	event := transport.FindEventByMessage("More than one lcbdb path")
	require.NotNil(t, event)
	assert.Equal(t, sentry.LevelWarning, event.Level)
}
