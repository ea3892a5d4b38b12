package importer

import "time"

// Metrics holds the wall-clock time at which each stage of a run completed.
// Zero values mark stages the run never reached.
type Metrics struct {
	Started             time.Time
	Extracted           time.Time
	Exported            time.Time
	SQLiteStored        time.Time
	SQLiteFetched       time.Time
	RecipeDataAssembled time.Time
	ImagesUploaded      time.Time
	RecipesProcessed    time.Time
	RecipesSaved        time.Time
	LabelsSaved         time.Time
}

// StageDurations are the time spent between consecutive Metrics marks.
type StageDurations struct {
	Extract            time.Duration
	Export             time.Duration
	SQLiteStore        time.Duration
	SQLiteFetch        time.Duration
	RecipeDataAssemble time.Duration
	ImagesUpload       time.Duration
	RecipesProcess     time.Duration
	RecipesSave        time.Duration
	LabelsSave         time.Duration
	Total              time.Duration
}

// Durations derives the per-stage durations. A stage that did not complete
// has zero duration.
func (m *Metrics) Durations() StageDurations {
	last := m.LabelsSaved
	if last.IsZero() {
		last = m.latest()
	}
	return StageDurations{
		Extract:            between(m.Started, m.Extracted),
		Export:             between(m.Extracted, m.Exported),
		SQLiteStore:        between(m.Exported, m.SQLiteStored),
		SQLiteFetch:        between(m.SQLiteStored, m.SQLiteFetched),
		RecipeDataAssemble: between(m.SQLiteFetched, m.RecipeDataAssembled),
		ImagesUpload:       between(m.RecipeDataAssembled, m.ImagesUploaded),
		RecipesProcess:     between(m.ImagesUploaded, m.RecipesProcessed),
		RecipesSave:        between(m.RecipesProcessed, m.RecipesSaved),
		LabelsSave:         between(m.RecipesSaved, m.LabelsSaved),
		Total:              between(m.Started, last),
	}
}

// Fields returns the marks and durations, in milliseconds, for telemetry.
func (m *Metrics) Fields() map[string]any {
	d := m.Durations()
	return map[string]any{
		"started":                   m.Started,
		"t_extract_ms":              d.Extract.Milliseconds(),
		"t_export_ms":               d.Export.Milliseconds(),
		"t_sqlite_store_ms":         d.SQLiteStore.Milliseconds(),
		"t_sqlite_fetch_ms":         d.SQLiteFetch.Milliseconds(),
		"t_recipe_data_assemble_ms": d.RecipeDataAssemble.Milliseconds(),
		"t_images_upload_ms":        d.ImagesUpload.Milliseconds(),
		"t_recipes_process_ms":      d.RecipesProcess.Milliseconds(),
		"t_recipes_save_ms":         d.RecipesSave.Milliseconds(),
		"t_labels_save_ms":          d.LabelsSave.Milliseconds(),
		"t_total_ms":                d.Total.Milliseconds(),
	}
}

func (m *Metrics) latest() time.Time {
	latest := m.Started
	for _, t := range []time.Time{
		m.Extracted, m.Exported, m.SQLiteStored, m.SQLiteFetched, m.RecipeDataAssembled,
		m.ImagesUploaded, m.RecipesProcessed, m.RecipesSaved, m.LabelsSaved,
	} {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}

func between(from, to time.Time) time.Duration {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0
	}
	return to.Sub(from)
}
