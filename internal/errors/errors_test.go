package errors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tableErr struct{ table string }

func (e *tableErr) Error() string                { return "export failed for " + e.table }
func (e *tableErr) ErrorCategory() ErrorCategory { return CategoryTableExport }

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
	assert.False(t, ee.IsReported())
}

func TestBuildDetectsCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"categorized error", fmt.Errorf("wrap: %w", &tableErr{table: "t_recipe"}), CategoryTableExport},
		{"nested enhanced", New(NewStd("x")).Category(CategoryPersistence).Build(), CategoryPersistence},
		{"cancelled", fmt.Errorf("stage: %w", context.Canceled), CategoryCancellation},
		{"plain", NewStd("plain"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, New(tt.err).Build().Category)
		})
	}
}

func TestBuilderContextAndTitle(t *testing.T) {
	t.Parallel()

	ee := Newf("commit of %d recipes failed", 3).
		Component("importer").
		Category(CategoryPersistence).
		Priority("bogus").
		Context("user_id", "u-1").
		Timing("commit_recipes", 1500*time.Millisecond).
		Build()

	assert.Equal(t, PriorityMedium, ee.Priority)
	ctx := ee.GetContext()
	assert.Equal(t, "u-1", ctx["user_id"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])
	assert.Equal(t, "Importer Persistence Error Commit Recipes", ee.Title())

	ctx["user_id"] = "mutated"
	assert.Equal(t, "u-1", ee.GetContext()["user_id"])
}

func TestCategoryHelpers(t *testing.T) {
	t.Parallel()

	base := NewStd("missing")
	ee := New(base).Category(CategoryNotFound).Build()
	wrapped := fmt.Errorf("lookup: %w", ee)

	require.True(t, IsNotFound(wrapped))
	assert.True(t, IsCategory(wrapped, CategoryNotFound))
	assert.False(t, IsCategory(wrapped, CategoryArchive))
	assert.True(t, Is(wrapped, base))
	assert.True(t, Is(wrapped, &EnhancedError{Category: CategoryNotFound}))

	ee.MarkReported()
	assert.True(t, ee.IsReported())
}
