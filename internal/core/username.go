package core

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	// UsernameMinLength and UsernameMaxLength bound accepted usernames.
	UsernameMinLength = 3
	UsernameMaxLength = 30
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// ValidateUsername enforces the input contract callers must satisfy before
// probing: 3-30 characters, lowercase alphanumeric with optional inner
// dots, underscores, or hyphens. The engine itself does not re-validate.
func ValidateUsername(username string) error {
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return fmt.Errorf("username must be %d-%d characters", UsernameMinLength, UsernameMaxLength)
	}

	if !usernamePattern.MatchString(username) {
		return errors.New("username must be lowercase alphanumeric with optional inner dots, underscores, or hyphens")
	}

	return nil
}
