package id

import (
	"strconv"
)

// DefaultFirstAccountNumber is the number handed out when a ledger has no
// numeric account numbers yet.
const DefaultFirstAccountNumber = 1001

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NextAccountNumber returns one past the highest all-digit number in
// existing, but never less than first. Non-numeric numbers are ignored.
// "1001", "1007", "AC-9" -> "1008"
func NextAccountNumber(existing []string, first int) string {
	next := first
	for _, n := range existing {
		if !IsNumeric(n) {
			continue
		}
		v, err := strconv.Atoi(n)
		if err != nil {
			// Too long for an int.
			continue
		}
		if v+1 > next {
			next = v + 1
		}
	}
	return strconv.Itoa(next)
}
