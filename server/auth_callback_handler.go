package server

import (
	"net/http"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/server/authflowrepo"
	"github.com/jrsteele09/home-logistic/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// LoginHandler starts the authorization code flow: it remembers a fresh
// state, nonce and PKCE verifier, then redirects to the consent screen.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		state, err := generateRandomString(32)
		if err != nil {
			logger.Err(err).Msg("Login: failed to generate state")
			http.Error(w, "Failed to start sign-in", http.StatusInternalServerError)
			return
		}
		nonce, err := generateRandomString(32)
		if err != nil {
			logger.Err(err).Msg("Login: failed to generate nonce")
			http.Error(w, "Failed to start sign-in", http.StatusInternalServerError)
			return
		}
		verifier := oauth2.GenerateVerifier()

		err = s.authState.Upsert(state, &authflowrepo.AuthFlowState{
			CodeVerifier: verifier,
			Nonce:        nonce,
			ReturnURL:    safeReturnURL(r.URL.Query().Get("return_to")),
			CreatedAt:    s.nowFunc(),
		})
		if err != nil {
			logger.Err(err).Msg("Login: failed to store auth state")
			http.Error(w, "Failed to start sign-in", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, s.identity.AuthCodeURL(state, nonce, verifier), http.StatusFound)
	}
}

// OAuthCallbackHandler completes sign-in. A valid session for the same user
// is renewed with RefreshClaims so a re-consent without a refresh token keeps
// the stored one; otherwise a new session is issued. Either way the previous
// cookie's session id is revoked.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")

		if errorParam != "" {
			logger.Warn().Str("error", errorParam).Str("description", r.FormValue("error_description")).Msg("Callback: authorization failed")
			http.Error(w, "Authorization failed: "+errorParam, http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		flow, err := s.authState.Consume(state)
		if err != nil {
			logger.Warn().Err(err).Msg("Callback: unknown or expired state")
			http.Error(w, "Invalid or expired state parameter", http.StatusBadRequest)
			return
		}

		grant, err := s.identity.Exchange(r.Context(), code, flow.CodeVerifier, flow.Nonce)
		if err != nil {
			logger.Err(err).Msg("Callback: token exchange failed")
			if apperrors.Is(err, apperrors.ErrInvalidGrant) {
				http.Error(w, "Sign-in was rejected, please try again", http.StatusBadRequest)
				return
			}
			http.Error(w, "Identity provider unavailable", http.StatusBadGateway)
			return
		}

		previous, _ := s.liveSession(r)

		var session *sessions.Session
		if previous != nil && grant.Identity.Subject != "" && previous.Identity.Subject == grant.Identity.Subject {
			session, err = s.sessions.RefreshClaims(previous, *grant)
		} else {
			session, err = s.sessions.Issue(*grant)
		}
		if err != nil {
			logger.Err(err).Msg("Callback: failed to create session")
			http.Error(w, "Failed to create session", http.StatusBadRequest)
			return
		}

		raw, err := s.sessions.Encode(session)
		if err != nil {
			logger.Err(err).Msg("Callback: failed to sign session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		if previous != nil {
			if err := s.sessions.Revoke(previous); err != nil {
				logger.Err(err).Msg("Callback: failed to revoke replaced session")
			}
		}

		s.setSessionCookie(w, r, raw, s.sessions.RemainingLifetime(session))
		logger.Info().Str("session_id", session.ID).Str("subject", session.Identity.Subject).Msg("signed in")
		http.Redirect(w, r, flow.ReturnURL, http.StatusSeeOther)
	}
}

// LogoutHandler revokes the current session and clears the cookie. An
// optional return_to redirects afterwards.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if session, err := s.sessionFromCookie(r); err == nil {
			if err := s.sessions.Revoke(session); err != nil {
				zerolog.Ctx(r.Context()).Err(err).Msg("Logout: failed to revoke session")
			}
		}
		s.clearSessionCookie(w, r)

		if returnTo := r.FormValue("return_to"); returnTo != "" {
			http.Redirect(w, r, safeReturnURL(returnTo), http.StatusSeeOther)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
