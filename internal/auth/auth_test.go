package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crosscheck/internal/config"
	"github.com/roach88/crosscheck/internal/logging"
)

var testSigningKey = []byte("crosscheck-test-key")

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "alice",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString(testSigningKey)
	require.NoError(t, err)
	return s
}

// newTokenServer answers password grants for alice/s3cret.
func newTokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("grant_type") != "password" ||
			r.PostForm.Get("username") != "alice" ||
			r.PostForm.Get("password") != "s3cret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": accessToken,
			"token_type":   "bearer",
		})
	}))
}

func TestAuthenticate_StaticToken(t *testing.T) {
	a := New(config.AuthConfig{Token: "opaque"}, nil, logging.Nop())

	tok, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "opaque", tok.Value)
	assert.Equal(t, SourceStatic, tok.Source)
	assert.True(t, tok.ExpiresAt.IsZero())
}

func TestAuthenticate_PasswordGrant(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, exp)
	srv := newTokenServer(t, access)
	defer srv.Close()

	a := New(config.AuthConfig{
		URL:      srv.URL,
		Username: "alice",
		Password: "s3cret",
		ClientID: "crosscheck",
	}, srv.Client(), logging.Nop())

	tok, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, access, tok.Value)
	assert.Equal(t, SourceOAuth2, tok.Source)
	assert.True(t, exp.Equal(tok.ExpiresAt), "expiry read from JWT exp claim")
}

func TestAuthenticate_BadCredentialsFail(t *testing.T) {
	srv := newTokenServer(t, "unused")
	defer srv.Close()

	a := New(config.AuthConfig{URL: srv.URL, Username: "alice", Password: "wrong"}, srv.Client(), logging.Nop())

	_, err := a.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password grant")
}

func TestAuthenticate_FallbackOnFailure(t *testing.T) {
	srv := newTokenServer(t, "unused")
	defer srv.Close()

	a := New(config.AuthConfig{
		URL:           srv.URL,
		Username:      "alice",
		Password:      "wrong",
		FallbackToken: "your_bearer_token",
	}, srv.Client(), logging.Nop())

	tok, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "your_bearer_token", tok.Value)
	assert.Equal(t, SourceFallback, tok.Source)
}

func TestAuthenticate_NoCredentials(t *testing.T) {
	a := New(config.AuthConfig{}, nil, logging.Nop())

	_, err := a.Authenticate(context.Background())
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestAuthenticate_OnlyFallback(t *testing.T) {
	a := New(config.AuthConfig{FallbackToken: "placeholder"}, nil, logging.Nop())

	tok, err := a.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "placeholder", tok.Value)
	assert.Equal(t, SourceFallback, tok.Source)
}

func TestJWTExpiry(t *testing.T) {
	exp := time.Unix(1900000000, 0)
	assert.True(t, exp.Equal(jwtExpiry(signedToken(t, exp))))
	assert.True(t, jwtExpiry("not-a-jwt").IsZero())
}
