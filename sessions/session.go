package sessions

import "time"

// Lifetime is the fixed absolute lifetime of a session. Activity never
// extends it.
const Lifetime = 12 * time.Hour

// Identity carries the claims taken from a verified ID token.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

// Grant is the set of tokens obtained from a single OAuth authorization exchange.
type Grant struct {
	AccessToken  string
	RefreshToken string // Absent when the provider did not issue one
	IDToken      string
	Scopes       []string
	Identity     Identity
}

// Session is the signed, time-bounded artifact derived from a grant. A Session
// is never mutated after it is created; Manager returns a new value instead.
type Session struct {
	ID           string // Unique session identifier (UUID), used for sign-out
	Identity     Identity
	AccessToken  string
	RefreshToken string `json:"-"` // Never leaves the signed artifact
	IDToken      string
	Scopes       []string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// PublicView is the caller-facing projection of a Session. It has no refresh
// token field.
type PublicView struct {
	AccessToken string    `json:"accessToken"`
	IDToken     string    `json:"idToken,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// HasRefreshToken reports whether the session can be used for offline access.
func (s *Session) HasRefreshToken() bool {
	return s.RefreshToken != ""
}

func (s *Session) clone() *Session {
	c := *s
	c.Scopes = append([]string(nil), s.Scopes...)
	return &c
}
