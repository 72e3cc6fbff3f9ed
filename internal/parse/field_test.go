package parse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertReason(t *testing.T, err error, want Reason) {
	t.Helper()
	var perr *Error
	require.True(t, errors.As(err, &perr), "expected *parse.Error, got %v", err)
	assert.Equal(t, want, perr.Reason)
}

func TestText(t *testing.T) {
	assert.Equal(t, "Bangalore to Chennai", Text("  Bangalore \n to\tChennai "))
	assert.Equal(t, "", Text(" \n "))

	_, err := RequiredText("   ")
	assertReason(t, err, ReasonEmpty)

	s, err := RequiredText(" SRS  Travels ")
	require.NoError(t, err)
	assert.Equal(t, "SRS Travels", s)
}

func TestRating(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected float64
		reason   Reason
	}{
		{name: "Plain", raw: "4.3", expected: 4.3},
		{name: "With review count", raw: "3.9 (120)", expected: 3.9},
		{name: "Integer", raw: "5", expected: 5},
		{name: "Zero", raw: "0.0", expected: 0},
		{name: "Leading dot", raw: ".5", expected: 0.5},
		{name: "Leading dot with count", raw: ".5 (3)", expected: 0.5},
		{name: "Two decimal points", raw: "4.5.1", reason: ReasonUnparsable},
		{name: "Trailing dot", raw: "4.", reason: ReasonUnparsable},
		{name: "Empty", raw: "  ", reason: ReasonEmpty},
		{name: "Not rated", raw: "New", reason: ReasonUnparsable},
		{name: "Above scale", raw: "6.1", reason: ReasonOutOfRange},
		{name: "Negative", raw: "-1", reason: ReasonOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Rating(tc.raw)
			if tc.reason != "" {
				assertReason(t, err, tc.reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestPrice(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected float64
		reason   Reason
	}{
		{name: "Rs prefix", raw: "Rs 650", expected: 650},
		{name: "Rs without space", raw: "Rs650", expected: 650},
		{name: "Thousands separator", raw: "INR 1,250.50", expected: 1250.50},
		{name: "Rupee sign", raw: "₹ 999", expected: 999},
		{name: "Bare number", raw: "100", expected: 100},
		{name: "Leading dot", raw: ".5", expected: 0.5},
		{name: "Two decimal points", raw: "Rs 1.2.3", reason: ReasonUnparsable},
		{name: "Free", raw: "0", expected: 0},
		{name: "Only currency", raw: "Rs ", reason: ReasonEmpty},
		{name: "Words", raw: "Sold out", reason: ReasonUnparsable},
		{name: "Trailing text", raw: "Rs 500 onwards", reason: ReasonUnparsable},
		{name: "Negative", raw: "Rs -20", reason: ReasonOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Price(tc.raw)
			if tc.reason != "" {
				assertReason(t, err, tc.reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestSeats(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected int
		reason   Reason
	}{
		{name: "Seats left", raw: "23 Seats left", expected: 23},
		{name: "Single seat", raw: "1 Seat left", expected: 1},
		{name: "Bare number", raw: "0", expected: 0},
		{name: "Empty", raw: "", reason: ReasonEmpty},
		{name: "No number", raw: "Few seats left", reason: ReasonUnparsable},
		{name: "Negative", raw: "-3 seats", reason: ReasonOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Seats(tc.raw)
			if tc.reason != "" {
				assertReason(t, err, tc.reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
