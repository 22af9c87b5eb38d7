package google

import (
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// AccessTokenOption authenticates a Google API client with a caller supplied
// access token. The token is never refreshed; an expired token surfaces as an
// unauthorized error from the API.
func AccessTokenOption(accessToken string) option.ClientOption {
	return option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
}
