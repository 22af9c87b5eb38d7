package sessions

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/token"
)

// Manager issues, renews and reads signed sessions. The signer and its key
// are fixed for the lifetime of the Manager.
type Manager struct {
	signer  token.Signer
	revoked token.RevokedSessionCache
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithRevokedSessionCache(cache token.RevokedSessionCache) ManagerOption {
	return func(m *Manager) {
		m.revoked = cache
	}
}

func NewManager(signer token.Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	if m.revoked == nil {
		m.revoked = token.NewInMemoryRevokedSessionCacheWithClock(m.nowFunc)
	}
	return m
}

// Issue creates a new session from a completed grant. The grant must carry an
// access token; missing refresh and ID tokens are stored as empty.
func (m *Manager) Issue(grant Grant) (*Session, error) {
	if grant.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[Manager Issue] grant has no access token")
	}

	now := m.nowFunc()
	return &Session{
		ID:           uuid.New().String(),
		Identity:     grant.Identity,
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		IDToken:      grant.IDToken,
		Scopes:       append([]string(nil), grant.Scopes...),
		IssuedAt:     now,
		ExpiresAt:    now.Add(Lifetime),
	}, nil
}

// RefreshClaims builds a replacement for an active session from a newer grant.
// A token field is only overwritten when the grant supplies a non-empty value,
// so a re-consent without a refresh token keeps the stored one. The lifetime
// restarts from now. The existing session is left untouched.
func (m *Manager) RefreshClaims(existing *Session, grant Grant) (*Session, error) {
	if existing == nil {
		return m.Issue(grant)
	}

	now := m.nowFunc()
	s := existing.clone()
	s.ID = uuid.New().String()
	if grant.AccessToken != "" {
		s.AccessToken = grant.AccessToken
	}
	if grant.RefreshToken != "" {
		s.RefreshToken = grant.RefreshToken
	}
	if grant.IDToken != "" {
		s.IDToken = grant.IDToken
	}
	if grant.Identity.Subject != "" {
		s.Identity = grant.Identity
	}
	if len(grant.Scopes) > 0 {
		s.Scopes = append([]string(nil), grant.Scopes...)
	}
	if s.AccessToken == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidGrant, "[Manager RefreshClaims] no access token available")
	}
	s.IssuedAt = now
	s.ExpiresAt = now.Add(Lifetime)
	return s, nil
}

// CurrentAccessToken returns the session's access token, or ErrExpired once
// now >= ExpiresAt. It never refreshes the token.
func (m *Manager) CurrentAccessToken(s *Session) (string, error) {
	if s == nil {
		return "", apperrors.ErrInvalidSession
	}
	if !m.nowFunc().Before(s.ExpiresAt) {
		return "", apperrors.ErrExpired
	}
	return s.AccessToken, nil
}

// PublicView strips the refresh token from a session.
func (m *Manager) PublicView(s *Session) PublicView {
	return PublicView{
		AccessToken: s.AccessToken,
		IDToken:     s.IDToken,
		ExpiresAt:   s.ExpiresAt,
	}
}

// Revoke marks a session as signed out until it would have expired.
func (m *Manager) Revoke(s *Session) error {
	if s == nil || s.ID == "" {
		return nil
	}
	return m.revoked.Add(s.ID, s.ExpiresAt)
}

// RemainingLifetime returns how long the session stays valid, never negative.
func (m *Manager) RemainingLifetime(s *Session) time.Duration {
	remaining := s.ExpiresAt.Sub(m.nowFunc())
	if remaining < 0 {
		return 0
	}
	return remaining
}

const (
	claimID           = "jti"
	claimSubject      = "sub"
	claimEmail        = "email"
	claimName         = "name"
	claimAccessToken  = "access_token"
	claimRefreshToken = "refresh_token"
	claimIDToken      = "id_token"
	claimScope        = "scope"
	claimIssuedAt     = "iat"
	claimExpiry       = "exp"
	claimIssuedAtNano = "issued_at"
	claimExpiresAt    = "expires_at"
)

// Encode signs the whole session into an opaque token for the session cookie.
func (m *Manager) Encode(s *Session) (string, error) {
	if s == nil {
		return "", apperrors.ErrInvalidSession
	}
	claims := jwt.MapClaims{
		claimID:           s.ID,
		claimSubject:      s.Identity.Subject,
		claimEmail:        s.Identity.Email,
		claimName:         s.Identity.Name,
		claimAccessToken:  s.AccessToken,
		claimRefreshToken: s.RefreshToken,
		claimIDToken:      s.IDToken,
		claimScope:        strings.Join(s.Scopes, " "),
		claimIssuedAt:     s.IssuedAt.Unix(),
		claimExpiry:       s.ExpiresAt.Unix(),
		claimIssuedAtNano: s.IssuedAt.UTC().Format(time.RFC3339Nano),
		claimExpiresAt:    s.ExpiresAt.UTC().Format(time.RFC3339Nano),
	}
	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("[Manager Encode] %w", err)
	}
	return signed, nil
}

// Decode verifies a session token and rebuilds the session. Expiry is not
// checked here; callers go through CurrentAccessToken.
func (m *Manager) Decode(raw string) (*Session, error) {
	if raw == "" {
		return nil, apperrors.ErrInvalidSession
	}
	claims, err := m.signer.Verify(raw)
	if err != nil {
		return nil, fmt.Errorf("[Manager Decode] %w: %v", apperrors.ErrInvalidSession, err)
	}

	issuedAt, err := timeClaim(claims, claimIssuedAtNano)
	if err != nil {
		return nil, err
	}
	expiresAt, err := timeClaim(claims, claimExpiresAt)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID: stringClaim(claims, claimID),
		Identity: Identity{
			Subject: stringClaim(claims, claimSubject),
			Email:   stringClaim(claims, claimEmail),
			Name:    stringClaim(claims, claimName),
		},
		AccessToken:  stringClaim(claims, claimAccessToken),
		RefreshToken: stringClaim(claims, claimRefreshToken),
		IDToken:      stringClaim(claims, claimIDToken),
		Scopes:       strings.Fields(stringClaim(claims, claimScope)),
		IssuedAt:     issuedAt,
		ExpiresAt:    expiresAt,
	}
	if s.ID == "" || s.AccessToken == "" {
		return nil, fmt.Errorf("[Manager Decode] %w: missing required claims", apperrors.ErrInvalidSession)
	}
	if m.revoked.IsRevoked(s.ID) {
		return nil, apperrors.ErrSessionRevoked
	}
	return s, nil
}

func stringClaim(claims jwt.MapClaims, name string) string {
	v, _ := claims[name].(string)
	return v
}

func timeClaim(claims jwt.MapClaims, name string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, stringClaim(claims, name))
	if err != nil {
		return time.Time{}, fmt.Errorf("[Manager Decode] %w: bad %s claim", apperrors.ErrInvalidSession, name)
	}
	return t, nil
}
