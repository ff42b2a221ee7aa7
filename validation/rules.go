// Package validation holds the input rules shared by the HTTP layer and the
// services: event name/duration, username charset and birth year plausibility.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	MaxEventNameLength = 124
	MinAge             = 5
	MaxAge             = 120
)

var errBirthYear = errors.New("Check the birth year.")

func ValidateEventName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("Event name must not be empty.")
	}
	if utf8.RuneCountInString(name) > MaxEventNameLength {
		return fmt.Errorf("Event name must not exceed %d characters.", MaxEventNameLength)
	}
	return nil
}

func ValidateDuration(minutes int) error {
	if minutes <= 0 {
		return errors.New("Enter a valid event duration.")
	}
	return nil
}

// isUsernameRune reports whether r matches [\w.@+-].
func isUsernameRune(r rune) bool {
	switch r {
	case '_', '.', '@', '+', '-':
		return true
	}
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// InvalidUsernameChars returns each disallowed character once, in the order it
// first appears.
func InvalidUsernameChars(username string) []string {
	var out []string
	seen := make(map[rune]bool)
	for _, r := range username {
		if isUsernameRune(r) || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, string(r))
	}
	return out
}

func ValidateUsername(username string) error {
	if bad := InvalidUsernameChars(username); len(bad) > 0 {
		return fmt.Errorf("Characters %s are not allowed.", strings.Join(bad, ""))
	}
	return nil
}

// ValidateBirthYear rejects years that are not in the past. With strict set it
// also rejects implied ages below MinAge or above MaxAge; without it the age
// bound is never applied, matching the historical behaviour of the API.
func ValidateBirthYear(year int, now time.Time, strict bool) error {
	current := now.Year()
	if year >= current {
		return errBirthYear
	}
	age := current - year
	if strict && (age < MinAge || age > MaxAge) {
		return errBirthYear
	}
	return nil
}
