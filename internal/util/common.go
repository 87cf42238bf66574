package util

import (
	"errors"
	"strings"
	"time"
)

// Common timeout durations
const (
	DefaultFetchTimeout   = 10 * time.Second
	DefaultConnectTimeout = 5 * time.Second
	ShortTimeout          = 2 * time.Second
)

// NormalizeBaseURL trims whitespace and trailing slashes from a service base
// URL and defaults the scheme to https when none is given. Paths are joined
// onto the result with a leading slash, so "api.example.org/" and
// "https://api.example.org" normalize to the same thing.
func NormalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

// ValidateUserID validates and normalizes a user id used in URL paths and
// room names. Returns the trimmed id and an error if invalid.
func ValidateUserID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("user id is empty")
	}
	if strings.ContainsAny(id, `/\ ?#`) || strings.Contains(id, "..") {
		return "", errors.New("user id must not contain spaces, slashes or '..'")
	}
	return id, nil
}
