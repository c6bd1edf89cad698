// Package testutil provides database fixtures for integration tests.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edukoala/internal/repository"
	"github.com/noah-isme/edukoala/internal/seed"
	"github.com/noah-isme/edukoala/pkg/database"
)

// NewDB opens a private in-memory SQLite database with all migrations
// applied. It is closed when the test ends.
func NewDB(t *testing.T) *sqlx.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	// Every pooled connection must see the same in-memory database.
	db.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewSeededDB is NewDB with the fixed course catalog inserted.
func NewSeededDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db := NewDB(t)
	_, err := seed.Catalog(context.Background(), repository.NewCourseRepository(db), nil, nil)
	require.NoError(t, err)
	return db
}
