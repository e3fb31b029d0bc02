// Package validate holds the pure input checks applied before admission.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	nameRe  = regexp.MustCompile(`^[A-Za-zÀ-ÿ\s]+$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	digitRe = regexp.MustCompile(`[^\d]`)
)

// NormalizeNationalID strips punctuation from a formatted national ID.
func NormalizeNationalID(s string) string {
	return digitRe.ReplaceAllString(s, "")
}

// NationalID validates the 11-digit national registry number with its
// two check digits (weighted sum mod 11). All-repeated-digit sequences are
// rejected up front: some of them pass the arithmetic but are not valid IDs.
func NationalID(raw string) (bool, string) {
	id := NormalizeNationalID(raw)

	if len(id) != 11 {
		return false, "member ID must have 11 digits"
	}

	if allSameDigit(id) {
		return false, "invalid member ID"
	}

	if digit(id[9]) != checkDigit(id, 9) {
		return false, "invalid member ID"
	}
	if digit(id[10]) != checkDigit(id, 10) {
		return false, "invalid member ID"
	}

	return true, ""
}

// checkDigit computes the check digit at position pos from the preceding
// digits, weights counting down from pos+1.
func checkDigit(id string, pos int) int {
	sum := 0
	for i := 0; i < pos; i++ {
		sum += digit(id[i]) * (pos + 1 - i)
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

func digit(b byte) int { return int(b - '0') }

func allSameDigit(id string) bool {
	for i := 1; i < len(id); i++ {
		if id[i] != id[0] {
			return false
		}
	}
	return true
}

// HolderName requires 2-100 characters of letters and spaces, accents
// included.
func HolderName(name string) (bool, string) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < 2 {
		return false, "name must have at least 2 characters"
	}
	if utf8.RuneCountInString(name) > 100 {
		return false, "name must have at most 100 characters"
	}
	if !nameRe.MatchString(name) {
		return false, "name must contain only letters and spaces"
	}
	return true, ""
}

func Email(email string) (bool, string) {
	if !emailRe.MatchString(strings.TrimSpace(email)) {
		return false, "invalid email format"
	}
	return true, ""
}

// GuestCount checks the party size against the configured limit.
func GuestCount(n, max int) (bool, string) {
	if n < 1 {
		return false, "at least 1 person is required"
	}
	if n > max {
		return false, "guest count exceeds the allowed maximum"
	}
	return true, ""
}
