// Package model defines the domain vocabulary shared by the registry,
// dispatcher, and protocol layers.
package model

import (
	"errors"
	"strings"
)

// Sentinel errors for the login/dispatch failure modes. The dispatcher maps
// each one onto its wire-level ERR token.
var (
	ErrUsernameInvalid = errors.New("username must not be empty")
	ErrUsernameTaken   = errors.New("username is already taken")
	ErrAlreadyLoggedIn = errors.New("session already has a username")
	ErrNotLoggedIn     = errors.New("session is not logged in")
	ErrSessionNotFound = errors.New("no such session")
	ErrUserNotFound    = errors.New("no such user")
)

// ValidateUsername rejects names that are empty or whitespace-only after
// trimming. Anything else is acceptable; uniqueness is the registry's job.
func ValidateUsername(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrUsernameInvalid
	}
	return nil
}
