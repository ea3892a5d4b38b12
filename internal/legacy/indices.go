package legacy

// Legacy table names.
const (
	TableCookbook         = "t_cookbook"
	TableAuthorNote       = "t_authornote"
	TableImage            = "t_image"
	TableRecipe           = "t_recipe"
	TableRecipeImage      = "t_recipeimage"
	TableRecipeIngredient = "t_recipeingredient"
	TableRecipeProcedure  = "t_recipeprocedure"
	TableTechnique        = "t_technique"
	TableRecipeTechnique  = "t_recipetechnique"
	TableRecipeTip        = "t_recipetip"
)

const (
	recipeIDColumn    = "recipeid"
	imageIDColumn     = "imageid"
	techniqueIDColumn = "techniqueid"
	cookbookIDColumn  = "cookbookid"
)

// ImageRef is an image linked to a recipe.
type ImageRef struct {
	Filename string
	Index    int
}

// Technique is a technique linked to a recipe.
type Technique struct {
	Name     string
	Comments string
}

// Indices holds the per-recipe lookups built from the legacy tables. Every
// map is built fresh by its constructor and is not modified afterwards.
type Indices struct {
	ImagesByRecipe       map[string][]ImageRef
	TechniquesByRecipe   map[string][]Technique
	IngredientsByRecipe  map[string][]Row
	InstructionsByRecipe map[string][]Row
	TipsByRecipe         map[string][]Row
	AuthorNotesByRecipe  map[string][]Row
	CookbooksByID        map[string][]Row
}

// BuildIndices builds all indices from t. Missing tables give empty indices.
func BuildIndices(t Tables) Indices {
	return Indices{
		ImagesByRecipe:       ImagesByRecipe(t[TableImage], t[TableRecipeImage]),
		TechniquesByRecipe:   TechniquesByRecipe(t[TableTechnique], t[TableRecipeTechnique]),
		IngredientsByRecipe:  GroupByRecipe(t[TableRecipeIngredient]),
		InstructionsByRecipe: GroupByRecipe(t[TableRecipeProcedure]),
		TipsByRecipe:         GroupByRecipe(t[TableRecipeTip]),
		AuthorNotesByRecipe:  GroupByRecipe(t[TableAuthorNote]),
		CookbooksByID:        CookbooksByID(t[TableCookbook]),
	}
}

// keyBy indexes rows by col; later rows win on duplicate keys.
func keyBy(rows []Row, col string) map[string]Row {
	m := make(map[string]Row, len(rows))
	for _, row := range rows {
		if id := row.String(col); id != "" {
			m[id] = row
		}
	}
	return m
}

// ImagesByRecipe joins the recipe to image link table with the image table.
// Links to unknown images are dropped and an unparsable imageindex counts as 0.
func ImagesByRecipe(images, links []Row) map[string][]ImageRef {
	byID := keyBy(images, imageIDColumn)
	out := make(map[string][]ImageRef)
	for _, link := range links {
		recipeID := link.String(recipeIDColumn)
		image, ok := byID[link.String(imageIDColumn)]
		if recipeID == "" || !ok {
			continue
		}
		index, _ := link.Int("imageindex")
		out[recipeID] = append(out[recipeID], ImageRef{
			Filename: image.String("filename"),
			Index:    index,
		})
	}
	return out
}

// TechniquesByRecipe joins the recipe to technique link table with the
// technique table. Links to unknown techniques are dropped.
func TechniquesByRecipe(techniques, links []Row) map[string][]Technique {
	byID := keyBy(techniques, techniqueIDColumn)
	out := make(map[string][]Technique)
	for _, link := range links {
		recipeID := link.String(recipeIDColumn)
		technique, ok := byID[link.String(techniqueIDColumn)]
		if recipeID == "" || !ok {
			continue
		}
		out[recipeID] = append(out[recipeID], Technique{
			Name:     technique.String("name"),
			Comments: technique.String("comments"),
		})
	}
	return out
}

// GroupByRecipe groups rows by their recipeid in source order. Rows without
// a recipe id are dropped.
func GroupByRecipe(rows []Row) map[string][]Row {
	return groupBy(rows, recipeIDColumn)
}

// CookbooksByID groups cookbook rows by cookbookid.
func CookbooksByID(rows []Row) map[string][]Row {
	return groupBy(rows, cookbookIDColumn)
}

func groupBy(rows []Row, col string) map[string][]Row {
	out := make(map[string][]Row)
	for _, row := range rows {
		if id := row.String(col); id != "" {
			out[id] = append(out[id], row)
		}
	}
	return out
}
