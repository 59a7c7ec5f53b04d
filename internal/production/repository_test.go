package production

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Column drift between the queries and the migration only shows up against a
// live database; the fake-backed tests never run this SQL. Keep the shared
// column list honest against the schema.
func TestOrderColumnsMatchMigration(t *testing.T) {
	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.up.sql"))
	require.NoError(t, err)
	start := strings.Index(string(schema), "CREATE TABLE production_orders (")
	require.GreaterOrEqual(t, start, 0)
	rest := string(schema)[start:]
	table := rest[:strings.Index(rest, ";")]

	for _, col := range strings.Split(orderColumns, ",") {
		col = strings.TrimSpace(col)
		require.Regexp(t, `(?m)^\s+`+col+`\s`, table, "production_orders has no column %q", col)
	}
}
