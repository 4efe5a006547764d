// Package geoid turns Census geography codes into tract identifiers.
package geoid

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// TractPrefix is the summary-level prefix Census puts on tract GEO_IDs.
	TractPrefix = "1400000US"
	// NationCode is the GEO_ID of the nation-level aggregate row.
	NationCode = "0100000US"
	// HeaderEcho is the value the descriptive header row leaves in the GEO_ID column.
	HeaderEcho = "Geography"
	// Length of a tract identifier: 2-digit state, 3-digit county, 6-digit tract.
	Length = 11
	// CookCounty is the state+county FIPS code of Cook County, Illinois.
	CookCounty = "17031"
)

var (
	// ErrNotTract means the code lacks the tract summary-level prefix.
	ErrNotTract = errors.New("geography code is not tract-level")
	// ErrMalformed means the prefix was present but the remainder is not 11 digits.
	ErrMalformed = errors.New("malformed tract identifier")
)

// IsTract reports whether raw carries the tract prefix.
func IsTract(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), TractPrefix)
}

// IsMetadata reports whether raw marks a header-echo or nation-level row.
func IsMetadata(raw string) bool {
	s := strings.TrimSpace(raw)
	return s == HeaderEcho || s == NationCode
}

// Normalize strips TractPrefix and returns the 11-digit tract identifier,
// e.g. "1400000US17031010100" -> "17031010100".
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, TractPrefix) {
		return "", fmt.Errorf("%w: %q", ErrNotTract, raw)
	}
	id := strings.TrimPrefix(s, TractPrefix)
	if !Valid(id) {
		return "", fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	return id, nil
}

// Valid reports whether id is exactly Length ASCII digits.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}

// County returns the 5-digit state+county FIPS part of a valid identifier.
func County(id string) string {
	if len(id) < 5 {
		return ""
	}
	return id[:5]
}
