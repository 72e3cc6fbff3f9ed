package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"bus-listing-backend/internal/model"
)

// Reason names why a field could not be converted.
type Reason string

const (
	ReasonMissing    Reason = "missing"
	ReasonEmpty      Reason = "empty"
	ReasonUnparsable Reason = "unparsable"
	ReasonOutOfRange Reason = "out_of_range"
)

// Error is returned by every conversion in this package.
type Error struct {
	Reason Reason
	Raw    string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s value %q", e.Reason, e.Raw)
	}
	return fmt.Sprintf("%s value %q: %s", e.Reason, e.Raw, e.Detail)
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	decimalRe  = regexp.MustCompile(`[-+]?(?:\d+(?:\.\d+)?|\.\d+)`)
	leadIntRe  = regexp.MustCompile(`^[-+]?\d+`)
	currencyRe = regexp.MustCompile(`(?i)(?:rs\.?|inr|₹)`)
)

// Missing is the error for a sub-field the element does not carry.
func Missing() *Error {
	return &Error{Reason: ReasonMissing}
}

// Text collapses internal whitespace and trims the result.
func Text(raw string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))
}

// RequiredText is Text that rejects an empty result.
func RequiredText(raw string) (string, error) {
	s := Text(raw)
	if s == "" {
		return "", &Error{Reason: ReasonEmpty, Raw: raw}
	}
	return s, nil
}

// Rating reads the first decimal number in raw, e.g. "4.3" or "4.3 (120)".
func Rating(raw string) (float64, error) {
	if Text(raw) == "" {
		return 0, &Error{Reason: ReasonEmpty, Raw: raw}
	}
	loc := decimalRe.FindStringIndex(raw)
	if loc == nil {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: "no number"}
	}
	// A second decimal point, as in "4.5.1", makes the number ambiguous.
	if rest := raw[loc[1]:]; strings.HasPrefix(rest, ".") {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: "malformed number"}
	}
	match := raw[loc[0]:loc[1]]
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: err.Error()}
	}
	if v < 0 || v > model.MaxStarRating {
		return 0, &Error{Reason: ReasonOutOfRange, Raw: raw, Detail: "rating must be within [0, 5]"}
	}
	return v, nil
}

// Price strips currency markers and thousands separators, so that
// "Rs 1,250" and "INR 1250.00" both give 1250.
func Price(raw string) (float64, error) {
	s := currencyRe.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, ",", "")
	s = Text(s)
	if s == "" {
		return 0, &Error{Reason: ReasonEmpty, Raw: raw}
	}
	if decimalRe.FindString(s) != s {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: "not a number"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: err.Error()}
	}
	if v < 0 {
		return 0, &Error{Reason: ReasonOutOfRange, Raw: raw, Detail: "price must not be negative"}
	}
	return v, nil
}

// Seats reads the leading integer of texts like "23 Seats left".
func Seats(raw string) (int, error) {
	s := Text(raw)
	if s == "" {
		return 0, &Error{Reason: ReasonEmpty, Raw: raw}
	}
	match := leadIntRe.FindString(s)
	if match == "" {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: "no leading integer"}
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, &Error{Reason: ReasonUnparsable, Raw: raw, Detail: err.Error()}
	}
	if n < 0 {
		return 0, &Error{Reason: ReasonOutOfRange, Raw: raw, Detail: "seat count must not be negative"}
	}
	return n, nil
}
