// Package recipe turns legacy recipe rows and their related rows into
// recipe drafts ready to be stored.
package recipe

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tphakala/lcbimport/internal/datastore"
	"github.com/tphakala/lcbimport/internal/legacy"
)

const (
	lineSeparator      = "\r\n"
	paragraphSeparator = "\r\n\r\n"

	// maxDescriptionLength is the longest single author note, in characters,
	// that is used as the description instead of going to the notes.
	maxDescriptionLength = 150
)

// Options control how recipes are built.
type Options struct {
	UserID            string
	IncludeStock      bool // keep recipes never modified by the user
	IncludeTechniques bool // append technique comments to the notes
}

// Aggregate is one legacy recipe flattened into a recipe draft.
type Aggregate struct {
	LegacyID        string
	Recipe          datastore.Recipe
	Labels          []string // lower-cased, trimmed, unique, in first-seen order
	ImageCandidates []string // image file names in image order; not stored
}

// Pending returns the aggregate in the form the committer stores.
func (a *Aggregate) Pending() datastore.PendingRecipe {
	return datastore.PendingRecipe{Recipe: a.Recipe, Labels: a.Labels}
}

// IsUserRecipe reports whether row should be imported. Recipes without an id
// are dropped. Recipes never modified are stock recipes shipped with Living
// Cookbook and are only kept with includeStock.
func IsUserRecipe(row legacy.Row, includeStock bool) bool {
	return row.Present("recipeid") && (includeStock || row.Present("modifieddate"))
}

// FilterRecipes keeps the rows accepted by IsUserRecipe, in order.
func FilterRecipes(rows []legacy.Row, includeStock bool) []legacy.Row {
	out := make([]legacy.Row, 0, len(rows))
	for _, row := range rows {
		if IsUserRecipe(row, includeStock) {
			out = append(out, row)
		}
	}
	return out
}

// BuildAll filters rows and builds one aggregate per remaining row.
func BuildAll(rows []legacy.Row, idx legacy.Indices, opts Options, now time.Time) []Aggregate {
	filtered := FilterRecipes(rows, opts.IncludeStock)
	out := make([]Aggregate, len(filtered))
	for i, row := range filtered {
		out[i] = Build(row, idx, opts, now)
	}
	return out
}

// Build flattens a single recipe row. Missing related rows and columns fall
// back to empty values; Build never fails.
func Build(row legacy.Row, idx legacy.Indices, opts Options, now time.Time) Aggregate {
	id := row.String("recipeid")

	authorNotes := sortedTexts(idx.AuthorNotesByRecipe[id], "authornoteindex", "authornotetext")
	tips := sortedTexts(idx.TipsByRecipe[id], "tipindex", "tiptext")

	var techniqueNotes []string
	if opts.IncludeTechniques {
		techniqueNotes = formatTechniques(idx.TechniquesByRecipe[id])
	}

	var description string
	var notes []string
	if comments := row.String("comments"); comments != "" {
		notes = append(notes, comments)
	}
	if len(authorNotes) == 1 && utf8.RuneCountInString(authorNotes[0]) <= maxDescriptionLength {
		description = authorNotes[0]
	} else {
		notes = append(notes, authorNotes...)
	}
	notes = append(notes, tips...)
	notes = append(notes, techniqueNotes...)

	return Aggregate{
		LegacyID: id,
		Recipe: datastore.Recipe{
			UserID:       opts.UserID,
			Title:        row.String("recipename"),
			Description:  description,
			Yield:        row.String("yield"),
			ActiveTime:   row.String("preparationtime"),
			TotalTime:    totalTime(row),
			Source:       row.String("source"),
			URL:          row.String("webpage"),
			Notes:        strings.Join(notes, paragraphSeparator),
			Ingredients:  formatIngredients(idx.IngredientsByRecipe[id]),
			Instructions: strings.Join(sortedTexts(idx.InstructionsByRecipe[id], "procedureindex", "proceduretext"), lineSeparator),
			Folder:       datastore.DefaultFolder,
			CreatedAt:    timeOr(row, "createdate", now),
			UpdatedAt:    timeOr(row, "modifieddate", now),
		},
		Labels:          Labels(row, idx.CookbooksByID),
		ImageCandidates: ImageCandidates(idx.ImagesByRecipe[id]),
	}
}

// sortByIndex returns a stably sorted copy of rows ordered by indexCol.
func sortByIndex(rows []legacy.Row, indexCol string) []legacy.Row {
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b legacy.Row) int {
		return legacy.CompareLegacy(a.Value(indexCol), b.Value(indexCol))
	})
	return sorted
}

// sortedTexts returns the non-empty textCol values ordered by indexCol.
func sortedTexts(rows []legacy.Row, indexCol, textCol string) []string {
	var out []string
	for _, row := range sortByIndex(rows, indexCol) {
		if text := row.String(textCol); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// formatIngredients renders one "quantity unit ingredient" line per row.
// Empty parts keep their separating spaces.
func formatIngredients(rows []legacy.Row) string {
	sorted := sortByIndex(rows, "ingredientindex")
	lines := make([]string, len(sorted))
	for i, row := range sorted {
		lines[i] = row.String("quantitytext") + " " + row.String("unittext") + " " + row.String("ingredienttext")
	}
	return strings.Join(lines, lineSeparator)
}

func formatTechniques(techniques []legacy.Technique) []string {
	var out []string
	for _, t := range techniques {
		if t.Comments == "" {
			continue
		}
		out = append(out, t.Name+":"+lineSeparator+t.Comments)
	}
	return out
}

// totalTime combines the ready-in and cooking times, e.g. "1 hour (40 minutes cooking time)".
func totalTime(row legacy.Row) string {
	total := strings.TrimSpace(row.String("readyintime"))
	if row.Present("cookingtime") {
		total += " (" + strings.TrimSpace(row.String("cookingtime")) + " cooking time)"
	}
	return strings.TrimSpace(total)
}

func timeOr(row legacy.Row, col string, fallback time.Time) time.Time {
	if t, ok := row.Time(col); ok {
		return t
	}
	return fallback
}
