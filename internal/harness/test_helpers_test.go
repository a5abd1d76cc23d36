package harness

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crosscheck/internal/auth"
	"github.com/roach88/crosscheck/internal/config"
	"github.com/roach88/crosscheck/internal/logging"
	"github.com/roach88/crosscheck/internal/store"
	"github.com/roach88/crosscheck/internal/testutil"
)

const testToken = "test-token"

// fixture is an items API and a session sharing one in-memory database, so
// the API's writes are visible to the checks' reads.
type fixture struct {
	session *Session
	store   *store.Store
	api     *testutil.ItemsAPI
	server  *httptest.Server
	target  Target
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	api, err := testutil.NewItemsAPI(ctx, st, testToken)
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	s := NewSession(auth.Token{Value: testToken, Source: auth.SourceStatic}, st, srv.Client(), logging.Nop())
	s.RunID = "test-run"

	return &fixture{
		session: s,
		store:   st,
		api:     api,
		server:  srv,
		target:  Target{BaseURL: srv.URL, Endpoint: "/items"},
	}
}

func (f *fixture) seed(t *testing.T, id int, value string) {
	t.Helper()
	_, err := f.store.Exec(context.Background(), `INSERT INTO items (id, value) VALUES (?, ?)`, id, value)
	require.NoError(t, err)
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	n, err := f.store.CountRows(context.Background(), store.Selector{Table: "items"})
	require.NoError(t, err)
	return n
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func eventTypes(trace []TraceEvent) []string {
	types := make([]string, len(trace))
	for i, ev := range trace {
		types[i] = ev.Type
	}
	return types
}
