package ncf

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// PrefixLength is the number of characters before the counter.
	PrefixLength = 3
	// CounterWidth is the zero-padded width of the counter.
	CounterWidth = 8
	// Length is the total length of a formatted NCF.
	Length = PrefixLength + CounterWidth
	// MaxCounter is the largest counter an 8-digit NCF can carry.
	MaxCounter = 99_999_999
)

// NormalizePrefix trims and upper-cases a prefix and checks that it is
// exactly three ASCII letters or digits.
func NormalizePrefix(prefix string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(prefix))
	if len(p) != PrefixLength {
		return "", fmt.Errorf("prefix must be exactly %d characters, got %q", PrefixLength, prefix)
	}
	for i := 0; i < len(p); i++ {
		if !isAlnum(p[i]) {
			return "", fmt.Errorf("prefix must be alphanumeric, got %q", prefix)
		}
	}
	return p, nil
}

// Format renders prefix followed by n zero-padded to eight digits.
func Format(prefix string, n int64) string {
	return fmt.Sprintf("%s%0*d", prefix, CounterWidth, n)
}

// Parse splits an NCF into its prefix and counter. It is the inverse of
// Format for any valid prefix and n in [0, MaxCounter].
func Parse(number string) (string, int64, error) {
	s := strings.ToUpper(strings.TrimSpace(number))
	if len(s) != Length {
		return "", 0, fmt.Errorf("NCF must be %d characters, got %d", Length, len(s))
	}
	prefix, err := NormalizePrefix(s[:PrefixLength])
	if err != nil {
		return "", 0, err
	}
	digits := s[PrefixLength:]
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return "", 0, fmt.Errorf("NCF counter must be %d digits, got %q", CounterWidth, digits)
		}
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("parse NCF counter: %w", err)
	}
	return prefix, n, nil
}

// Valid reports whether number is a well-formed NCF.
func Valid(number string) bool {
	_, _, err := Parse(number)
	return err == nil
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
