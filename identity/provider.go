package identity

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/home-logistic/sessions"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
)

// Scopes is the consent requested at sign-in: identity, full Drive access and
// mail-send. It is fixed for the lifetime of a grant.
var Scopes = []string{
	oidc.ScopeOpenID,
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	drivev3.DriveScope,
	gmail.GmailSendScope,
}

// Provider is the boundary to the external identity provider.
type Provider interface {
	// AuthCodeURL returns the consent URL the browser is sent to.
	AuthCodeURL(state, nonce, codeVerifier string) string
	// Exchange trades an authorization code for a grant. The returned grant
	// always carries an access token.
	Exchange(ctx context.Context, code, codeVerifier, nonce string) (*sessions.Grant, error)
}
