//go:build integration

package datastore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/lcbimport/internal/conf"
)

// TestMySQLCommit runs the committer against a real MySQL server.
func TestMySQLCommit(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	ctx := t.Context()
	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("recipes"),
		mysql.WithUsername("importer"),
		mysql.WithPassword("importer"),
	)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	db, err := Open(&conf.StoreSettings{
		Type:        "mysql",
		AutoMigrate: true,
		SlowQuery:   time.Second,
		MySQL: conf.MySQLSettings{
			Host:     host,
			Port:     port.Port(),
			Username: "importer",
			Password: "importer",
			Database: "recipes",
		},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	c := NewCommitter(db, 2)
	res, err := c.Commit(ctx, testUser, []PendingRecipe{
		pendingRecipe("Apple pie", "dessert", "family"),
		pendingRecipe("Soup", "dessert"),
		pendingRecipe("Bread"),
	})
	require.NoError(t, err)
	assert.Len(t, res.RecipeIDs, 3)

	_, err = c.Commit(ctx, testUser, []PendingRecipe{pendingRecipe("Cake", "dessert")})
	require.NoError(t, err)

	assert.EqualValues(t, 4, count(t, db, &Recipe{}))
	assert.EqualValues(t, 2, count(t, db, &Label{}))
	assert.EqualValues(t, 4, count(t, db, &RecipeLabel{}))
}
