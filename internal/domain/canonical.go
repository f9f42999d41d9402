package domain

import (
	"unicode/utf8"

	"golang.org/x/net/idna"
)

// CanonicalForm returns the ASCII-compatible (Punycode) form of s.
// ASCII input is returned unchanged. If IDNA encoding fails, s is returned
// unchanged with ok set to false.
func CanonicalForm(s string) (canonical string, ok bool) {
	if IsASCII(s) {
		return s, true
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil || ascii == "" {
		return s, false
	}
	return ascii, true
}

func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
