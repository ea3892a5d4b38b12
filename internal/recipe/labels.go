package recipe

import (
	"cmp"
	"slices"
	"strings"

	"github.com/tphakala/lcbimport/internal/legacy"
)

// Labels derives the label titles of a recipe from its comma separated
// recipe types and the names of its cookbooks.
func Labels(row legacy.Row, cookbooksByID map[string][]legacy.Row) []string {
	var raw []string
	if types := row.String("recipetypes"); types != "" {
		raw = append(raw, strings.Split(types, ",")...)
	}
	for _, book := range cookbooksByID[row.String("cookbookid")] {
		raw = append(raw, book.String("name"))
	}
	return NormalizeLabels(raw)
}

// NormalizeLabels trims and lower-cases titles, drops empty ones and removes
// duplicates keeping the first occurrence.
func NormalizeLabels(titles []string) []string {
	seen := make(map[string]struct{}, len(titles))
	var out []string
	for _, title := range titles {
		title = strings.ToLower(strings.TrimSpace(title))
		if title == "" {
			continue
		}
		if _, ok := seen[title]; ok {
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	return out
}

// ImageCandidates orders the linked images by image index and returns their
// non-empty file names.
func ImageCandidates(images []legacy.ImageRef) []string {
	sorted := slices.Clone(images)
	slices.SortStableFunc(sorted, func(a, b legacy.ImageRef) int {
		return cmp.Compare(a.Index, b.Index)
	})

	var out []string
	for _, img := range sorted {
		if img.Filename != "" {
			out = append(out, img.Filename)
		}
	}
	return out
}
