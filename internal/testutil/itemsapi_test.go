package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crosscheck/internal/config"
	"github.com/roach88/crosscheck/internal/store"
)

func newItemsServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, config.DatabaseConfig{Driver: config.DriverSQLite, URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	api, err := NewItemsAPI(ctx, st, "tok")
	require.NoError(t, err)
	ts := httptest.NewServer(api.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func call(t *testing.T, method, url, token, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestItemsAPI_RequiresToken(t *testing.T) {
	ts, _ := newItemsServer(t)

	status, _ := call(t, http.MethodGet, ts.URL+"/items", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, http.MethodGet, ts.URL+"/items", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestItemsAPI_Lifecycle(t *testing.T) {
	ts, st := newItemsServer(t)
	ctx := context.Background()

	status, body := call(t, http.MethodPost, ts.URL+"/items", "tok", `{"key":"value"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "expectedValue", body)

	status, body = call(t, http.MethodGet, ts.URL+"/items", "tok", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "value", body)

	status, body = call(t, http.MethodPut, ts.URL+"/items/1", "tok", `{"key":"newValue"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"id":1,"key":"newValue"}`, body)

	v, err := st.QueryValue(ctx, store.Selector{Table: "items", Where: map[string]any{"id": 1}}, "value")
	require.NoError(t, err)
	assert.Equal(t, "newValue", v)

	status, _ = call(t, http.MethodDelete, ts.URL+"/items/1", "tok", "")
	assert.Equal(t, http.StatusNoContent, status)

	n, err := st.CountRows(ctx, store.Selector{Table: "items"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestItemsAPI_MissingItem(t *testing.T) {
	ts, _ := newItemsServer(t)

	status, _ := call(t, http.MethodDelete, ts.URL+"/items/9", "tok", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, http.MethodPut, ts.URL+"/items/9", "tok", `{"key":"x"}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestItemsAPI_BadRequests(t *testing.T) {
	ts, _ := newItemsServer(t)

	status, _ := call(t, http.MethodPost, ts.URL+"/items", "tok", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, http.MethodDelete, ts.URL+"/items/abc", "tok", "")
	assert.Equal(t, http.StatusBadRequest, status)
}
