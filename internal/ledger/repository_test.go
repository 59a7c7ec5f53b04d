package ledger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The memory fake never runs the SQL, so a drifted column name would only
// surface against a live database. Cross-check the column list against the
// migration instead.
func TestMovementColumnsMatchMigration(t *testing.T) {
	table := createTableBlock(t, "stock_movements")
	for _, col := range strings.Split("id, "+movementColumns, ",") {
		col = strings.TrimSpace(col)
		require.Regexp(t, `(?m)^\s+`+col+`\s`, table, "stock_movements has no column %q", col)
	}
}

func createTableBlock(t *testing.T, name string) string {
	t.Helper()
	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.up.sql"))
	require.NoError(t, err)
	start := strings.Index(string(schema), "CREATE TABLE "+name+" (")
	require.GreaterOrEqual(t, start, 0, "no CREATE TABLE for %s", name)
	rest := string(schema)[start:]
	end := strings.Index(rest, ";")
	require.GreaterOrEqual(t, end, 0)
	return rest[:end]
}
