package config

import (
	"os"
	"strings"
)

const (
	defaultAPIURL = "http://localhost:8080"
	envAPIURL     = "ACCOUNT_API_URL"
)

// APIURL returns the base URL for the account API without a trailing slash.
// It can be overridden with the ACCOUNT_API_URL environment variable.
func APIURL() string {
	if v := os.Getenv(envAPIURL); v != "" {
		return strings.TrimRight(v, "/")
	}
	return defaultAPIURL
}
