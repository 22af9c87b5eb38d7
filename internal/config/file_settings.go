package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileSettings mirrors the optional TOML configuration file. Empty values fall
// through to the built-in defaults; environment variables always win.
type FileSettings struct {
	Port           string          `toml:"port"`
	AppName        string          `toml:"app_name"`
	BaseURL        string          `toml:"base_url"`
	Env            string          `toml:"env"`
	LogLevel       string          `toml:"log_level"`
	AllowedOrigins []string        `toml:"allowed_origins"`
	Google         GoogleSettings  `toml:"google"`
	Session        SessionSettings `toml:"session"`
	Setup          SetupSettings   `toml:"setup"`
}

type GoogleSettings struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURL  string `toml:"redirect_url"`
}

type SessionSettings struct {
	Secret     string `toml:"secret"`
	CookieName string `toml:"cookie_name"`
}

type SetupSettings struct {
	FolderName             string  `toml:"folder_name"`
	SheetName              string  `toml:"sheet_name"`
	FileRequestRecipient   string  `toml:"file_request_recipient"`
	DriveRequestsPerSecond float64 `toml:"drive_requests_per_second"`
	DriveBurst             int     `toml:"drive_burst"`
}

// LoadFile decodes a TOML settings file. Unknown keys are rejected so that a
// misspelt key does not silently fall back to a default.
func LoadFile(path string) (*FileSettings, error) {
	settings := &FileSettings{}
	md, err := toml.DecodeFile(path, settings)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	return settings, nil
}
