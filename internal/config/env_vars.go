package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	baseURLVar     = "BASE_URL"
	envVar         = "ENV"
	logLevelVar    = "LOG_LEVEL"
	ConfigFileVar  = "CONFIG_FILE"
	defaultAppName = "Home Logistic"
)

type EnvVars struct {
	file *FileSettings
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, orDefault(e.file.Port, "8080"))
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return GetEnv(appNameVar, orDefault(e.file.AppName, defaultAppName))
}

// GetBaseURL returns the externally visible base URL (e.g., "https://lists.example.com").
// The OAuth redirect URI is derived from it unless configured explicitly.
func (e EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, orDefault(e.file.BaseURL, "http://localhost:8080"))
}

func (e EnvVars) GetEnv() string {
	return GetEnv(envVar, orDefault(e.file.Env, "DEV"))
}

func (e EnvVars) GetLogLevel() string {
	level := GetEnv(logLevelVar, e.file.LogLevel)
	if level == "" && e.GetEnv() == "DEV" {
		return "debug"
	}
	return orDefault(level, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(envVar string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(envVar), 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func orDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
