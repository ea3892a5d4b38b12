package recipe

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/lcbimport/internal/legacy"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{UserID: "user-1"}
}

func TestFilterRecipes(t *testing.T) {
	t.Parallel()

	modified := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []legacy.Row{
		{"recipeid": int64(1), "modifieddate": modified},
		{"recipeid": int64(2), "modifieddate": nil},
		{"recipeid": nil, "modifieddate": modified},
		{"recipeid": "", "modifieddate": modified},
		{"recipeid": int64(3), "modifieddate": "01/02/16 10:00:00"},
		{"modifieddate": modified},
	}

	userOnly := FilterRecipes(rows, false)
	require.Len(t, userOnly, 2)
	assert.Equal(t, "1", userOnly[0].String("recipeid"))
	assert.Equal(t, "3", userOnly[1].String("recipeid"))

	withStock := FilterRecipes(rows, true)
	require.Len(t, withStock, 3)
	assert.Equal(t, "2", withStock[1].String("recipeid"))

	for _, row := range withStock {
		assert.True(t, row.Present("recipeid"), "rows without a legacy id are never imported")
	}
}

func TestBuildAllHonoursStockFlag(t *testing.T) {
	t.Parallel()

	rows := []legacy.Row{
		{"recipeid": int64(1), "recipename": "Mine", "modifieddate": "03/14/15 09:26:53"},
		{"recipeid": int64(2), "recipename": "Stock"},
		{"recipeid": nil, "recipename": "Broken", "modifieddate": "03/14/15 09:26:53"},
	}
	idx := legacy.BuildIndices(legacy.Tables{})

	got := BuildAll(rows, idx, testOptions(), testNow)
	require.Len(t, got, 1)
	assert.Equal(t, "Mine", got[0].Recipe.Title)

	opts := testOptions()
	opts.IncludeStock = true
	got = BuildAll(rows, idx, opts, testNow)
	require.Len(t, got, 2)
	assert.Equal(t, "Stock", got[1].Recipe.Title)
	assert.Equal(t, testNow, got[1].Recipe.UpdatedAt, "missing modified date defaults to now")
}

func TestBuildFields(t *testing.T) {
	t.Parallel()

	row := legacy.Row{
		"recipeid":        int64(7),
		"recipename":      "Apple pie",
		"yield":           float64(8),
		"preparationtime": "20 minutes",
		"readyintime":     " 1 hour ",
		"cookingtime":     " 40 minutes ",
		"source":          "Grandma",
		"webpage":         "https://example.com/pie",
		"comments":        "Family favourite",
		"createdate":      "03/14/15 09:26:53",
		"modifieddate":    "03/15/15 10:00:00",
		"recipetypes":     "Dessert, Baking,,dessert",
		"cookbookid":      int64(3),
	}
	idx := legacy.BuildIndices(legacy.Tables{
		legacy.TableCookbook: {{"cookbookid": int64(3), "name": " Family "}},
		legacy.TableRecipeProcedure: {
			{"recipeid": int64(7), "procedureindex": int64(2), "proceduretext": "Bake."},
			{"recipeid": int64(7), "procedureindex": int64(1), "proceduretext": "Mix."},
			{"recipeid": int64(7), "procedureindex": int64(3), "proceduretext": ""},
		},
		legacy.TableImage: {
			{"imageid": int64(1), "filename": "b.jpg"},
			{"imageid": int64(2), "filename": "a.jpg"},
			{"imageid": int64(3), "filename": ""},
		},
		legacy.TableRecipeImage: {
			{"recipeid": int64(7), "imageid": int64(1), "imageindex": int64(2)},
			{"recipeid": int64(7), "imageid": int64(2), "imageindex": int64(1)},
			{"recipeid": int64(7), "imageid": int64(3), "imageindex": int64(0)},
		},
	})

	agg := Build(row, idx, testOptions(), testNow)
	r := agg.Recipe

	assert.Equal(t, "7", agg.LegacyID)
	assert.Equal(t, "user-1", r.UserID)
	assert.Equal(t, "Apple pie", r.Title)
	assert.Equal(t, "8", r.Yield)
	assert.Equal(t, "20 minutes", r.ActiveTime)
	assert.Equal(t, "1 hour (40 minutes cooking time)", r.TotalTime)
	assert.Equal(t, "Grandma", r.Source)
	assert.Equal(t, "https://example.com/pie", r.URL)
	assert.Equal(t, "Family favourite", r.Notes)
	assert.Equal(t, "Mix.\r\nBake.", r.Instructions)
	assert.Equal(t, "main", r.Folder)
	assert.Nil(t, r.FromUserID)
	assert.Nil(t, r.Image)
	assert.Equal(t, time.Date(2015, 3, 14, 9, 26, 53, 0, time.Local), r.CreatedAt)
	assert.Equal(t, time.Date(2015, 3, 15, 10, 0, 0, 0, time.Local), r.UpdatedAt)

	assert.Equal(t, []string{"dessert", "baking", "family"}, agg.Labels)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, agg.ImageCandidates)

	pending := agg.Pending()
	assert.Equal(t, agg.Labels, pending.Labels)
	assert.Equal(t, "Apple pie", pending.Recipe.Title)
}

func TestBuildEmptyRow(t *testing.T) {
	t.Parallel()

	agg := Build(legacy.Row{"recipeid": int64(1)}, legacy.BuildIndices(legacy.Tables{}), testOptions(), testNow)
	r := agg.Recipe

	assert.Empty(t, r.Title)
	assert.Empty(t, r.TotalTime)
	assert.Empty(t, r.Ingredients)
	assert.Empty(t, r.Instructions)
	assert.Empty(t, r.Notes)
	assert.Empty(t, agg.Labels, "a recipe without a known cookbook has no labels")
	assert.Empty(t, agg.ImageCandidates)
	assert.Equal(t, testNow, r.CreatedAt)
	assert.Equal(t, testNow, r.UpdatedAt)
}

func TestTotalTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		row  legacy.Row
		want string
	}{
		{"ready only", legacy.Row{"readyintime": " 1 hour "}, "1 hour"},
		{"cooking only", legacy.Row{"cookingtime": "30 min"}, "(30 min cooking time)"},
		{"both", legacy.Row{"readyintime": "1h", "cookingtime": "30m"}, "1h (30m cooking time)"},
		{"neither", legacy.Row{}, ""},
		{"numeric", legacy.Row{"readyintime": int64(45)}, "45"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, totalTime(tt.row))
		})
	}
}

func TestAuthorNoteSplit(t *testing.T) {
	t.Parallel()

	row := legacy.Row{"recipeid": int64(1), "comments": "Comment"}

	t.Run("single short note becomes description", func(t *testing.T) {
		t.Parallel()
		idx := legacy.BuildIndices(legacy.Tables{legacy.TableAuthorNote: {
			{"recipeid": int64(1), "authornoteindex": int64(1), "authornotetext": "A short note"},
		}})
		r := Build(row, idx, testOptions(), testNow).Recipe
		assert.Equal(t, "A short note", r.Description)
		assert.Equal(t, "Comment", r.Notes)
		assert.NotContains(t, r.Notes, "A short note")
	})

	t.Run("several notes go to notes after comments", func(t *testing.T) {
		t.Parallel()
		idx := legacy.BuildIndices(legacy.Tables{legacy.TableAuthorNote: {
			{"recipeid": int64(1), "authornoteindex": int64(2), "authornotetext": "B"},
			{"recipeid": int64(1), "authornoteindex": int64(1), "authornotetext": "A"},
		}})
		r := Build(row, idx, testOptions(), testNow).Recipe
		assert.Empty(t, r.Description)
		assert.Equal(t, "Comment\r\n\r\nA\r\n\r\nB", r.Notes)
	})

	t.Run("long single note goes to notes", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("é", 151)
		idx := legacy.BuildIndices(legacy.Tables{legacy.TableAuthorNote: {
			{"recipeid": int64(1), "authornoteindex": int64(1), "authornotetext": long},
		}})
		r := Build(row, idx, testOptions(), testNow).Recipe
		assert.Empty(t, r.Description)
		assert.Equal(t, "Comment\r\n\r\n"+long, r.Notes)
	})

	t.Run("150 characters still fit", func(t *testing.T) {
		t.Parallel()
		note := strings.Repeat("é", 150)
		idx := legacy.BuildIndices(legacy.Tables{legacy.TableAuthorNote: {
			{"recipeid": int64(1), "authornotetext": note},
		}})
		r := Build(row, idx, testOptions(), testNow).Recipe
		assert.Equal(t, note, r.Description)
	})
}

func TestNotesOrder(t *testing.T) {
	t.Parallel()

	row := legacy.Row{"recipeid": int64(1), "comments": "C"}
	idx := legacy.BuildIndices(legacy.Tables{
		legacy.TableAuthorNote: {
			{"recipeid": int64(1), "authornoteindex": int64(1), "authornotetext": "N1"},
			{"recipeid": int64(1), "authornoteindex": int64(2), "authornotetext": "N2"},
		},
		legacy.TableRecipeTip: {
			{"recipeid": int64(1), "tipindex": int64(2), "tiptext": "T2"},
			{"recipeid": int64(1), "tipindex": int64(1), "tiptext": "T1"},
			{"recipeid": int64(1), "tipindex": int64(3), "tiptext": nil},
		},
		legacy.TableTechnique: {
			{"techniqueid": int64(1), "name": "Blanch", "comments": "Boil briefly"},
			{"techniqueid": int64(2), "name": "Fold", "comments": ""},
		},
		legacy.TableRecipeTechnique: {
			{"recipeid": int64(1), "techniqueid": int64(1)},
			{"recipeid": int64(1), "techniqueid": int64(2)},
		},
	})

	r := Build(row, idx, testOptions(), testNow).Recipe
	assert.Equal(t, "C\r\n\r\nN1\r\n\r\nN2\r\n\r\nT1\r\n\r\nT2", r.Notes, "techniques are off by default")

	opts := testOptions()
	opts.IncludeTechniques = true
	r = Build(row, idx, opts, testNow).Recipe
	assert.Equal(t, "C\r\n\r\nN1\r\n\r\nN2\r\n\r\nT1\r\n\r\nT2\r\n\r\nBlanch:\r\nBoil briefly", r.Notes)
}

func TestIngredientOrdering(t *testing.T) {
	t.Parallel()

	t.Run("numeric indices", func(t *testing.T) {
		t.Parallel()
		rows := []legacy.Row{
			{"ingredientindex": int64(2), "ingredienttext": "salt"},
			{"ingredientindex": int64(1), "ingredienttext": "flour"},
		}
		assert.Equal(t, "  flour\r\n  salt", formatIngredients(rows))
	})

	t.Run("textual indices sort lexicographically and stably", func(t *testing.T) {
		t.Parallel()
		rows := []legacy.Row{
			{"ingredientindex": "10", "quantitytext": "1", "unittext": "cup", "ingredienttext": "sugar"},
			{"ingredientindex": "9", "quantitytext": "2", "ingredienttext": "eggs"},
			{"ingredientindex": "10", "quantitytext": "1", "unittext": "cup", "ingredienttext": "milk"},
			{"ingredientindex": "1", "quantitytext": "3", "unittext": "cups", "ingredienttext": "flour"},
		}
		want := "3 cups flour\r\n1 cup sugar\r\n1 cup milk\r\n2  eggs"
		assert.Equal(t, want, formatIngredients(rows))
		assert.Equal(t, want, formatIngredients(rows), "formatting does not reorder its input")
		assert.Equal(t, "sugar", rows[0].String("ingredienttext"))
	})

	t.Run("through build", func(t *testing.T) {
		t.Parallel()
		idx := legacy.BuildIndices(legacy.Tables{legacy.TableRecipeIngredient: {
			{"recipeid": int64(5), "ingredientindex": int64(2), "ingredienttext": "salt"},
			{"recipeid": int64(5), "ingredientindex": int64(1), "quantitytext": "1", "unittext": "kg", "ingredienttext": "flour"},
		}})
		r := Build(legacy.Row{"recipeid": int64(5)}, idx, testOptions(), testNow).Recipe
		assert.Equal(t, "1 kg flour\r\n  salt", r.Ingredients)
	})
}

func TestLabelsAreIdempotent(t *testing.T) {
	t.Parallel()

	row := legacy.Row{"recipeid": int64(1), "recipetypes": " Soup , MAIN,soup, ", "cookbookid": int64(9)}
	books := legacy.CookbooksByID([]legacy.Row{
		{"cookbookid": int64(9), "name": "Main"},
		{"cookbookid": int64(9), "name": "Winter"},
	})

	first := Labels(row, books)
	second := Labels(row, books)
	assert.Equal(t, []string{"soup", "main", "winter"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, NormalizeLabels(first))
}

func TestImageCandidates(t *testing.T) {
	t.Parallel()

	got := ImageCandidates([]legacy.ImageRef{
		{Filename: "c.jpg", Index: 3},
		{Filename: "", Index: 0},
		{Filename: "a.jpg", Index: 1},
		{Filename: "b.jpg", Index: 1},
	})
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, got)
	assert.Empty(t, ImageCandidates(nil))
}
