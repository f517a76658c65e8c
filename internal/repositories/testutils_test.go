package repositories_test

import (
	"context"
	"github.com/mkarhu/inquest/internal/sqlite"
	"github.com/mkarhu/inquest/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

// newTestDB opens a fresh in-memory database for a test.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	dbs, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err, "open test database")
	t.Cleanup(func() {
		_ = dbs.Close()
	})
	return dbs
}
