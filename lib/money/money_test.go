package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		input    any
		expected string
	}{
		{input: 12.5, expected: "12.50"},
		{input: "12.5", expected: "12.50"},
		{input: "$1,234.50 MXN", expected: "1234.50"},
		{input: "$122.00", expected: "122.00"},
		{input: 150, expected: "150.00"},
		{input: nil, expected: Placeholder},
		{input: true, expected: Placeholder},
		{input: "sin precio", expected: Placeholder},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, Format(Parse(tc.input)), "input: %v", tc.input)
	}
}

func TestFormat(t *testing.T) {
	d := decimal.NewFromFloat(12.5)
	require.Equal(t, "12.50", Format(&d))
	require.Equal(t, "-", Format(nil))

	d = decimal.NewFromInt(200)
	require.Equal(t, "200.00", Format(&d))
}
