// Package auth obtains the bearer token a crosscheck run attaches to every
// API request.
//
// A run authenticates once. The token comes from, in order:
//
//   - auth.token, used verbatim
//   - an OAuth2 resource owner password grant against auth.url
//   - auth.fallback_token, only when the above is unavailable or fails
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/roach88/crosscheck/internal/config"
)

// Token sources.
const (
	SourceStatic   = "static"
	SourceOAuth2   = "oauth2"
	SourceFallback = "fallback"
)

// ErrNoCredentials is returned when no token source is configured.
var ErrNoCredentials = errors.New("no token, auth url or fallback token configured")

// Token is the session credential.
type Token struct {
	Value     string
	Source    string
	ExpiresAt time.Time // zero when unknown
}

// Authenticator exchanges configured credentials for a Token.
type Authenticator struct {
	cfg    config.AuthConfig
	client *http.Client
	logger *slog.Logger
}

// New creates an Authenticator. client is used for the token request and may
// be nil for http.DefaultClient.
func New(cfg config.AuthConfig, client *http.Client, logger *slog.Logger) *Authenticator {
	if client == nil {
		client = http.DefaultClient
	}
	return &Authenticator{cfg: cfg, client: client, logger: logger}
}

// Authenticate returns the session token.
func (a *Authenticator) Authenticate(ctx context.Context) (Token, error) {
	if a.cfg.Token != "" {
		tok := Token{Value: a.cfg.Token, Source: SourceStatic, ExpiresAt: jwtExpiry(a.cfg.Token)}
		a.logToken(tok)
		return tok, nil
	}

	var err error
	if a.cfg.URL != "" {
		var tok Token
		tok, err = a.passwordGrant(ctx)
		if err == nil {
			a.logToken(tok)
			return tok, nil
		}
	} else {
		err = ErrNoCredentials
	}

	if a.cfg.FallbackToken == "" {
		return Token{}, err
	}
	a.logger.Warn("authentication failed, continuing with fallback token", "auth_url", a.cfg.URL, "error", err)
	return Token{Value: a.cfg.FallbackToken, Source: SourceFallback}, nil
}

func (a *Authenticator) passwordGrant(ctx context.Context) (Token, error) {
	oc := &oauth2.Config{
		ClientID:     a.cfg.ClientID,
		ClientSecret: a.cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: a.cfg.URL},
		Scopes:       a.cfg.Scopes,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.client)
	ot, err := oc.PasswordCredentialsToken(ctx, a.cfg.Username, a.cfg.Password)
	if err != nil {
		return Token{}, fmt.Errorf("password grant against %s: %w", a.cfg.URL, err)
	}
	if ot.AccessToken == "" {
		return Token{}, fmt.Errorf("password grant against %s: empty access token", a.cfg.URL)
	}

	expiry := ot.Expiry
	if expiry.IsZero() {
		expiry = jwtExpiry(ot.AccessToken)
	}
	return Token{Value: ot.AccessToken, Source: SourceOAuth2, ExpiresAt: expiry}, nil
}

func (a *Authenticator) logToken(tok Token) {
	if tok.ExpiresAt.IsZero() {
		a.logger.Info("authenticated", "source", tok.Source)
		return
	}
	a.logger.Info("authenticated", "source", tok.Source, "expires_at", tok.ExpiresAt.UTC().Format(time.RFC3339))
}

// jwtExpiry reads the exp claim of a JWT without verifying its signature.
// Opaque tokens yield the zero time.
func jwtExpiry(raw string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
