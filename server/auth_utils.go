package server

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
	"github.com/jrsteele09/home-logistic/sessions"
)

// generateRandomString creates a random base64url string from length bytes
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate random string: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// setSessionCookie writes the signed session. The cookie lives exactly as long
// as the session it carries.
func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
		Expires:  s.nowFunc().Add(maxAge),
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// sessionFromCookie decodes the session cookie. It does not check expiry.
func (s *Server) sessionFromCookie(r *http.Request) (*sessions.Session, error) {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil || cookie.Value == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidSession, "no session cookie")
	}
	return s.sessions.Decode(cookie.Value)
}

// safeReturnURL only accepts local absolute paths so the callback cannot be
// used as an open redirect.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return defaultReturnURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" {
		return defaultReturnURL
	}
	return u.RequestURI()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
