package config

import (
	"os"
	"sort"
	"strings"
)

const allowedOriginsVar = "ALLOWED_ORIGINS"

type Cors struct {
	file *FileSettings
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	sort.Strings(origins)
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins reads a comma separated ALLOWED_ORIGINS list, falling back
// to the config file. No origins are allowed by default.
func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := c.file.AllowedOrigins
	if env := os.Getenv(allowedOriginsVar); env != "" {
		origins = strings.Split(env, ",")
	}

	allowed := AllowedOrigins{}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = nullValue{}
		}
	}
	return allowed
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
