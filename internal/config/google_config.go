package config

import "strings"

const (
	googleClientIDVar     = "GOOGLE_CLIENT_ID"
	googleClientSecretVar = "GOOGLE_CLIENT_SECRET"
	googleRedirectURLVar  = "GOOGLE_REDIRECT_URL"

	// CallbackPath is where the OAuth provider redirects after consent.
	CallbackPath = "/callback"
)

type Google struct {
	file *FileSettings
	env  EnvVars
}

var _ GoogleConfig = Google{}

func (g Google) GetGoogleClientID() string {
	return GetEnv(googleClientIDVar, g.file.Google.ClientID)
}

func (g Google) GetGoogleClientSecret() string {
	return GetEnv(googleClientSecretVar, g.file.Google.ClientSecret)
}

func (g Google) GetRedirectURL() string {
	if redirect := GetEnv(googleRedirectURLVar, g.file.Google.RedirectURL); redirect != "" {
		return redirect
	}
	return strings.TrimSuffix(g.env.GetBaseURL(), "/") + CallbackPath
}
