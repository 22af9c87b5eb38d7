package identity

import (
	"context"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/sessions"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	GoogleIssuer   = "https://accounts.google.com"
	googleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// GoogleProvider signs users in with Google using the authorization code flow
// with PKCE, and verifies the returned ID token.
type GoogleProvider struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

type GoogleProviderOption func(*GoogleProvider)

// WithEndpoint overrides the Google authorization and token endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) GoogleProviderOption {
	return func(p *GoogleProvider) {
		p.oauth.Endpoint = endpoint
	}
}

// WithVerifier replaces the ID token verifier.
func WithVerifier(verifier *oidc.IDTokenVerifier) GoogleProviderOption {
	return func(p *GoogleProvider) {
		p.verifier = verifier
	}
}

// NewGoogleProvider builds a provider for the given OAuth client. Google's
// signing keys are fetched lazily on first verification, so construction
// makes no network calls.
func NewGoogleProvider(ctx context.Context, clientID, clientSecret, redirectURL string, options ...GoogleProviderOption) *GoogleProvider {
	p := &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       append([]string(nil), Scopes...),
		},
	}

	for _, opt := range options {
		opt(p)
	}

	if p.verifier == nil {
		keySet := oidc.NewRemoteKeySet(ctx, googleCertsURL)
		p.verifier = oidc.NewVerifier(GoogleIssuer, keySet, &oidc.Config{ClientID: clientID})
	}
	return p
}

func (p *GoogleProvider) AuthCodeURL(state, nonce, codeVerifier string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oidc.Nonce(nonce),
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

// Exchange redeems the code. A rejected code or a failed ID token check is
// ErrInvalidGrant; anything else is ErrTransport. The ID token is optional,
// but when present it must verify and carry the expected nonce.
func (p *GoogleProvider) Exchange(ctx context.Context, code, codeVerifier, nonce string) (*sessions.Grant, error) {
	if code == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[GoogleProvider Exchange] missing authorization code")
	}

	tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		var rerr *oauth2.RetrieveError
		if apperrors.As(err, &rerr) {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[GoogleProvider Exchange] code rejected: %v", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrTransport, "[GoogleProvider Exchange] token request failed: %v", err)
	}
	if tok.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[GoogleProvider Exchange] no access token in response")
	}

	grant := &sessions.Grant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       grantedScopes(tok, p.oauth.Scopes),
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return grant, nil
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[GoogleProvider Exchange] id token verification failed: %v", err)
	}
	if idToken.Nonce != nonce {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[GoogleProvider Exchange] nonce mismatch")
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[GoogleProvider Exchange] failed to read id token claims: %v", err)
	}

	grant.IDToken = rawIDToken
	grant.Identity = sessions.Identity{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
	}
	return grant, nil
}

// grantedScopes prefers the scope list the token endpoint reports and falls
// back to what was requested.
func grantedScopes(tok *oauth2.Token, requested []string) []string {
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		return strings.Fields(scope)
	}
	return append([]string(nil), requested...)
}
