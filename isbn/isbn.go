// Package isbn normalizes book identifiers to ISBN-13 and deduplicates them.
package isbn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentifier is returned for values that are not a well-formed
// ISBN-10 or ISBN-13.
var ErrInvalidIdentifier = errors.New("invalid identifier")

// prefixes some catalogs put in front of the number
var prefixes = []string{"ISBN-13", "ISBN-10", "ISBN13", "ISBN10", "ISBN"}

// Canonical returns the leading ISBN-like part of a raw catalog value, with
// hyphens and separating spaces removed and the check character uppercased.
// Trailing qualifiers like "(kart.)" or a second number are ignored.
// Canonical does not validate.
func Canonical(s string) string {
	s = strings.TrimSpace(s)
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			s = strings.TrimLeft(s[len(p):], ": ")
			break
		}
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	// the first field may carry a suffix, e.g. "3-16-148410-X(kart.)"
	result, clean := canonicalField(fields[0])
	for _, f := range fields[1:] {
		if !clean || complete(result) {
			break
		}
		v, ok := canonicalField(f)
		if !ok || v == "" || len(result)+len(v) > 13 {
			break
		}
		result += v
	}
	return result
}

// canonicalField returns the leading digits and check characters of f,
// without hyphens. It reports whether f consisted of those only.
func canonicalField(f string) (string, bool) {
	var sb strings.Builder
	for _, c := range f {
		switch {
		case c >= '0' && c <= '9':
			sb.WriteRune(c)
		case c == 'x' || c == 'X':
			sb.WriteByte('X')
		case c == '-':
		default:
			return sb.String(), false
		}
	}
	return sb.String(), true
}

// complete reports whether s needs no further digits.
func complete(s string) bool {
	return len(s) >= 13 || (len(s) == 10 && Valid10(s))
}

// Valid10 checks length, character set and the mod 11 checksum.
func Valid10(s string) bool {
	if len(s) != 10 {
		return false
	}
	var sum int
	for i := 0; i < 10; i++ {
		var v int
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += (10 - i) * v
	}
	return sum%11 == 0
}

// Valid13 checks length, prefix and the mod 10 checksum.
func Valid13(s string) bool {
	if len(s) != 13 {
		return false
	}
	if !strings.HasPrefix(s, "978") && !strings.HasPrefix(s, "979") {
		return false
	}
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return checkDigit13(s[:12]) == s[12]
}

// checkDigit13 computes the ISBN-13 check digit for 12 leading digits.
func checkDigit13(s string) byte {
	var sum int
	for i := 0; i < 12; i++ {
		v := int(s[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return byte('0' + (10-sum%10)%10)
}

// To13 converts a canonical ISBN-10 to ISBN-13.
func To13(s string) (string, error) {
	if !Valid10(s) {
		return "", fmt.Errorf("%w: %q is not an ISBN-10", ErrInvalidIdentifier, s)
	}
	head := "978" + s[:9]
	return head + string(checkDigit13(head)), nil
}

// Normalize turns a raw ISBN-10 or ISBN-13 value into a validated, canonical
// ISBN-13. Normalizing the result again returns it unchanged.
func Normalize(s string) (string, error) {
	c := Canonical(s)
	switch len(c) {
	case 10:
		return To13(c)
	case 13:
		if Valid13(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, s)
}

// Unique removes duplicates, keeping the first occurrence of each value.
func Unique(vs []string) (result []string) {
	seen := make(map[string]struct{}, len(vs))
	for _, v := range vs {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
