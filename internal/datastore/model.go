// model.go defines the tables of the target recipe store.
package datastore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tphakala/lcbimport/internal/storage"
)

// DefaultFolder is the folder imported recipes are filed under.
const DefaultFolder = "main"

// Recipe is a recipe owned by a user.
type Recipe struct {
	ID           string          `gorm:"primaryKey;size:36"`
	UserID       string          `gorm:"size:36;not null;index:idx_recipes_user_folder"`
	FromUserID   *string         `gorm:"size:36"` // set for recipes shared by another user
	Title        string          `gorm:"type:text"`
	Description  string          `gorm:"type:text"`
	Yield        string          `gorm:"type:text"`
	ActiveTime   string          `gorm:"type:text"`
	TotalTime    string          `gorm:"type:text"`
	Source       string          `gorm:"type:text"`
	URL          string          `gorm:"column:url;type:text"`
	Notes        string          `gorm:"type:text"`
	Ingredients  string          `gorm:"type:text"`
	Instructions string          `gorm:"type:text"`
	Image        *storage.Object `gorm:"serializer:json;type:text"`
	Folder       string          `gorm:"size:32;not null;default:main;index:idx_recipes_user_folder"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BeforeCreate assigns a uuid primary key.
func (r *Recipe) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Label is a user's tag. Titles are unique per user.
type Label struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:idx_labels_user_title"`
	Title     string `gorm:"size:255;not null;uniqueIndex:idx_labels_user_title"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a uuid primary key.
func (l *Label) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// RecipeLabel links a recipe to a label.
type RecipeLabel struct {
	ID        string `gorm:"primaryKey;size:36"`
	RecipeID  string `gorm:"size:36;not null;uniqueIndex:idx_recipe_labels_pair"`
	LabelID   string `gorm:"size:36;not null;uniqueIndex:idx_recipe_labels_pair;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a uuid primary key.
func (rl *RecipeLabel) BeforeCreate(_ *gorm.DB) error {
	if rl.ID == "" {
		rl.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table managed by AutoMigrate.
func Models() []any {
	return []any{&Recipe{}, &Label{}, &RecipeLabel{}}
}
