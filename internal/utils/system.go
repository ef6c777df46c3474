package utils

import (
	"os"
	"os/user"
	"regexp"
	"strings"
)

var (
	actorInvalidChars = regexp.MustCompile(`[^a-z0-9@.\-_]`)
	repeatedHyphens   = regexp.MustCompile(`-+`)
)

// GetUsername returns the current username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// GetHostname returns the system hostname.
func GetHostname() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	return hostname, nil
}

// SanitizeActorID normalizes an actor id for the audit log: lowercase,
// spaces become hyphens and anything outside [a-z0-9@._-] is dropped.
func SanitizeActorID(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	name = actorInvalidChars.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	if name == "" {
		name = "unknown"
	}
	return name
}

// DefaultActorID returns user@host for the audit log, falling back to
// whichever half is available.
func DefaultActorID() string {
	username, userErr := GetUsername()
	hostname, hostErr := GetHostname()

	switch {
	case userErr == nil && hostErr == nil:
		return SanitizeActorID(username + "@" + hostname)
	case userErr == nil:
		return SanitizeActorID(username)
	case hostErr == nil:
		return SanitizeActorID(hostname)
	default:
		return "unknown"
	}
}
