package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

type Config interface {
	EnvConfig
	CorsConfig
	GoogleConfig
	SecurityConfig
	ProvisioningConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetRedirectURL() string
}

type SecurityConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetSessionCookieName() string
	GetAuthStateTimeout() time.Duration
}

type ProvisioningConfig interface {
	GetSetupFolderName() string
	GetSetupSheetName() string
	GetFileRequestRecipient() string
	GetDriveRequestsPerSecond() float64
	GetDriveBurst() int
}

type mainConfig struct {
	EnvVars
	Cors
	Google
	Security
	Provisioning
}

// New returns a Config resolved from environment variables and built-in defaults.
func New() Config {
	return newConfig(&FileSettings{})
}

// Load returns a Config resolved from environment variables, the TOML file at path
// and built-in defaults, in that order. An empty path or a missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	settings, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return newConfig(settings), nil
}

func newConfig(settings *FileSettings) Config {
	return mainConfig{
		EnvVars:      EnvVars{file: settings},
		Cors:         Cors{file: settings},
		Google:       Google{file: settings, env: EnvVars{file: settings}},
		Security:     Security{file: settings},
		Provisioning: Provisioning{file: settings},
	}
}

// Validate checks the settings the server cannot start without.
func Validate(c Config) error {
	var errs []error
	if c.GetSessionSecret() == "" {
		errs = append(errs, fmt.Errorf("%s (or %s) is required", sessionSecretVar, authSecretVar))
	}
	if c.GetGoogleClientID() == "" {
		errs = append(errs, fmt.Errorf("%s is required", googleClientIDVar))
	}
	if c.GetGoogleClientSecret() == "" {
		errs = append(errs, fmt.Errorf("%s is required", googleClientSecretVar))
	}
	if c.GetSetupFolderName() == "" || c.GetSetupSheetName() == "" {
		errs = append(errs, errors.New("setup folder and sheet names must not be empty"))
	}
	return errors.Join(errs...)
}
