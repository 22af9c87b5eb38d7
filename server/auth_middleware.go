package server

import (
	"context"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/sessions"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the authenticated *sessions.Session
const ContextKeySession ContextKey = "session"

type authMode int

const (
	// authModeAPI answers 401 with a reauthenticate hint.
	authModeAPI authMode = iota
	// authModeBrowser redirects to the sign-in flow.
	authModeBrowser
)

// RequireSession admits requests carrying a valid, unexpired and unrevoked
// session cookie. Expiry is judged with the same clock the session manager
// uses, so the cookie stops working at exactly expiresAt.
func (s *Server) RequireSession(mode authMode) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, err := s.liveSession(r)
			if err != nil {
				zerolog.Ctx(r.Context()).Debug().Err(err).Msg("session rejected")
				s.clearSessionCookie(w, r)
				if mode == authModeBrowser {
					http.Redirect(w, r, RouteAuthLogin+"?return_to="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "reauthenticate")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

// liveSession returns the request's session only if its access token may
// still be used.
func (s *Server) liveSession(r *http.Request) (*sessions.Session, error) {
	session, err := s.sessionFromCookie(r)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.CurrentAccessToken(session); err != nil {
		return nil, err
	}
	return session, nil
}

// SessionFromContext returns the session stored by RequireSession.
func SessionFromContext(ctx context.Context) (*sessions.Session, error) {
	session, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	if !ok || session == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "no session in context")
	}
	return session, nil
}
