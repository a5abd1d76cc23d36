package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crosscheck/internal/config"
	"github.com/roach88/crosscheck/internal/store"
	"github.com/roach88/crosscheck/internal/testutil"
)

const testToken = "cli-token"

// testEnv is an items API over a SQLite file plus a config file pointing
// crosscheck at both.
type testEnv struct {
	dir        string
	dbPath     string
	configPath string
	server     *httptest.Server
	api        *testutil.ItemsAPI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "items.db")

	st, err := store.Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, URL: dbPath})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	api, err := testutil.NewItemsAPI(ctx, st, testToken)
	require.NoError(t, err)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	configPath := writeTestFile(t, dir, "crosscheck.yaml", fmt.Sprintf(`
auth:
  token: %s
database:
  driver: sqlite3
  url: %s
target:
  base_url: %s
  endpoint: /items
log:
  level: error
`, testToken, dbPath, srv.URL))

	return &testEnv{dir: dir, dbPath: dbPath, configPath: configPath, server: srv, api: api}
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// executeRoot runs the full command tree and returns stdout and the error.
func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// commandWithContext gives direct runX calls a command to write to.
func commandWithContext(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}

const passingSuite = `
name: cli_items
preconditions:
  - name: seed
    statements:
      - INSERT INTO items (id, value) VALUES (1, 'hello')
checks:
  - {name: read_item, kind: read, table: items, column: value, depends_on: [seed]}
  - {name: delete_item, kind: delete, table: items, id_column: id, depends_on: [seed]}
`

const failingSuite = `
name: cli_failing
checks:
  - {name: create_item, kind: create, expect: {body: somethingElse}}
`
