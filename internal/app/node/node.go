/*
Package node contains the core data types for monitored Tor relay nodes.

It defines the Fingerprint identifier and its syntax validation, plus the
UserID type keying the per-user watch registry.
*/
package node

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// UserID is the opaque stable identifier of a chat participant. The Telegram
// transport maps chat IDs onto it directly.
type UserID int64

// String renders the ID in decimal, mainly for log fields and map keys.
func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Fingerprint is the 40-character alphanumeric identifier of a relay.
// Case is preserved as entered; comparisons are case-sensitive.
type Fingerprint string

// ErrInvalidFingerprint is returned when a candidate string does not match
// the fingerprint syntax.
var ErrInvalidFingerprint = errors.New("invalid fingerprint format")

var fingerprintPattern = regexp.MustCompile(`^[A-Za-z0-9]{40}$`)

// ParseFingerprint trims surrounding whitespace and validates that the
// remainder is exactly 40 ASCII letters or digits.
func ParseFingerprint(text string) (Fingerprint, error) {
	trimmed := strings.TrimSpace(text)
	if !fingerprintPattern.MatchString(trimmed) {
		return "", ErrInvalidFingerprint
	}
	return Fingerprint(trimmed), nil
}
