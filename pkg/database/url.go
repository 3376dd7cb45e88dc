package database

import (
	"fmt"
	"net/url"
	"strings"
)

// ElideCredentials strips user info from a connection URL so it can appear
// in logs: scheme, host, port, and database name survive, credentials do not.
func ElideCredentials(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		// Not URL-shaped (key=value DSN or file path); redact wholesale
		// rather than risk leaking a password fragment.
		if strings.Contains(rawURL, "password") || strings.Contains(rawURL, "@") {
			return "[redacted connection string]"
		}
		return rawURL
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}

// DatabaseName extracts the database name from a connection URL.
func DatabaseName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("unparseable database URL: %w", err)
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("database URL %s has no database name", ElideCredentials(rawURL))
	}
	return name, nil
}

// ReplaceDatabase returns rawURL pointing at a different database on the
// same server. Used to reach the maintenance database for provisioning.
func ReplaceDatabase(rawURL, database string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("unparseable database URL: %w", err)
	}
	u.Path = "/" + database
	return u.String(), nil
}
