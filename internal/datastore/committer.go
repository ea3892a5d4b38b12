package datastore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/lcbimport/internal/conf"
	"github.com/tphakala/lcbimport/internal/errors"
	"github.com/tphakala/lcbimport/internal/logger"
)

// Commit stages, reported in PersistenceError.
const (
	StageRecipes      = "recipes"
	StageLabels       = "labels"
	StageRecipeLabels = "recipe_labels"
)

// PersistenceError reports a failed commit. Nothing of the batch was stored.
type PersistenceError struct {
	Stage string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Stage, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrorCategory implements errors.CategorizedError.
func (e *PersistenceError) ErrorCategory() errors.ErrorCategory {
	return errors.CategoryPersistence
}

// PendingRecipe is a recipe waiting to be stored with its label titles.
type PendingRecipe struct {
	Recipe Recipe
	Labels []string
}

// LabelBatch maps a label title to the ids of the recipes carrying it.
type LabelBatch map[string][]string

// Add links recipeID to title.
func (b LabelBatch) Add(title, recipeID string) {
	ids := b[title]
	if n := len(ids); n > 0 && ids[n-1] == recipeID {
		return
	}
	b[title] = append(ids, recipeID)
}

// Titles returns the titles in sorted order.
func (b LabelBatch) Titles() []string {
	return slices.Sorted(maps.Keys(b))
}

// CommitResult describes a successful commit.
type CommitResult struct {
	RecipeIDs    []string // in input order
	Labels       int      // distinct label titles touched
	RecipeLabels int
	RecipesSaved time.Time
	LabelsSaved  time.Time
}

// Committer writes import batches to the target store.
type Committer struct {
	db        *gorm.DB
	batchSize int
	log       logger.Logger
}

// NewCommitter returns a Committer inserting batchSize rows per statement.
func NewCommitter(db *gorm.DB, batchSize int) *Committer {
	if batchSize <= 0 {
		batchSize = conf.DefaultInsertBatchSize
	}
	return &Committer{db: db, batchSize: batchSize, log: GetLogger()}
}

// Commit stores the recipes, their labels and the links between them in one
// transaction. Existing labels of the user are reused.
func (c *Committer) Commit(ctx context.Context, userID string, pending []PendingRecipe) (*CommitResult, error) {
	result := &CommitResult{}
	start := time.Now()

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipes := make([]Recipe, len(pending))
		for i := range pending {
			recipes[i] = pending[i].Recipe
			recipes[i].UserID = userID
		}

		if len(recipes) > 0 {
			if err := tx.CreateInBatches(&recipes, c.batchSize).Error; err != nil {
				return &PersistenceError{Stage: StageRecipes, Err: err}
			}
		}
		result.RecipeIDs = make([]string, len(recipes))
		for i := range recipes {
			result.RecipeIDs[i] = recipes[i].ID
		}
		result.RecipesSaved = time.Now()

		batch := make(LabelBatch)
		for i := range pending {
			for _, title := range pending[i].Labels {
				batch.Add(title, recipes[i].ID)
			}
		}

		var links []RecipeLabel
		titles := batch.Titles()
		for _, title := range titles {
			var label Label
			if err := tx.Where(Label{UserID: userID, Title: title}).FirstOrCreate(&label).Error; err != nil {
				return &PersistenceError{Stage: StageLabels, Err: err}
			}
			for _, recipeID := range batch[title] {
				links = append(links, RecipeLabel{RecipeID: recipeID, LabelID: label.ID})
			}
		}

		if len(links) > 0 {
			if err := tx.CreateInBatches(&links, c.batchSize).Error; err != nil {
				return &PersistenceError{Stage: StageRecipeLabels, Err: err}
			}
		}
		result.Labels = len(titles)
		result.RecipeLabels = len(links)
		result.LabelsSaved = time.Now()
		return nil
	})
	if err != nil {
		var pe *PersistenceError
		if !errors.As(err, &pe) {
			err = &PersistenceError{Stage: "commit", Err: err}
		}
		c.log.Error("import batch rolled back",
			logger.String("user_id", userID),
			logger.Int("recipes", len(pending)),
			logger.Error(err))
		return nil, err
	}

	c.log.Info("import batch committed",
		logger.String("user_id", userID),
		logger.Int("recipes", len(result.RecipeIDs)),
		logger.Int("labels", result.Labels),
		logger.Int("recipe_labels", result.RecipeLabels),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}
