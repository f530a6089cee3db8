// Package core provides the budget domain model, the aggregation functions
// and the selection state machine that drives the linked dashboard views.
//
// This file contains parsing of locale-formatted amounts as they appear in
// the budget feed.
package core

import (
	"strconv"
	"strings"
)

// ParseLocaleAmount converts a de-DE formatted decimal string to a whole amount.
//
// Thousands separators (.) are removed and everything from the decimal
// separator (,) onwards is discarded, so the value is truncated toward zero.
// An optional leading sign is accepted. The part before the decimal separator
// must be a non-empty digit run.
//
// Examples:
//
//	ParseLocaleAmount("1.234.567,89") -> 1234567, nil
//	ParseLocaleAmount("-12,7")        -> -12, nil
//	ParseLocaleAmount("0")            -> 0, nil
//	ParseLocaleAmount(",5")           -> 0, ErrInvalidAmount
func ParseLocaleAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ".", "")
	intPart, _, _ := strings.Cut(s, ",")

	digits := intPart
	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if digits == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, ErrInvalidAmount
		}
	}

	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
