// Package sqlitetest opens throwaway migrated databases for tests.
package sqlitetest

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/matsubo/internal/sqlite"
)

// New returns a migrated database in a temp file that is closed when the test
// ends. A file is used since every connection to :memory: gets its own database.
func New(t *testing.T) *sqlx.DB {
	t.Helper()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "matsubo.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })

	return dbx
}
