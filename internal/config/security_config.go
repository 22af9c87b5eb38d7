package config

import (
	"time"

	"github.com/jrsteele09/home-logistic/sessions"
)

const (
	sessionSecretVar = "SESSION_SECRET"
	authSecretVar    = "AUTH_SECRET"
	sessionCookieVar = "SESSION_COOKIE"
)

type Security struct {
	file *FileSettings
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionSecret() string {
	if secret := GetEnv(sessionSecretVar, ""); secret != "" {
		return secret
	}
	return GetEnv(authSecretVar, s.file.Session.Secret)
}

// GetMaxSessionAge is fixed and cannot be configured.
func (Security) GetMaxSessionAge() time.Duration {
	return sessions.Lifetime
}

func (s Security) GetSessionCookieName() string {
	return GetEnv(sessionCookieVar, orDefault(s.file.Session.CookieName, "hl_session"))
}

func (Security) GetAuthStateTimeout() time.Duration {
	return 10 * time.Minute
}
