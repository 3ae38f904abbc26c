package middleware

import (
	"errors"
	"regexp"
)

var (
	platformPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)
	chatIDPattern   = regexp.MustCompile(`^-?[0-9A-Za-z_]{1,64}$`)
)

// ValidatePlatform validates a platform tag such as "telegram".
func ValidatePlatform(platform string) error {
	if !platformPattern.MatchString(platform) {
		return errors.New("invalid platform")
	}
	return nil
}

// ValidateChatID validates a chat identifier.
func ValidateChatID(id string) error {
	if !chatIDPattern.MatchString(id) {
		return errors.New("invalid chat ID format")
	}
	return nil
}
