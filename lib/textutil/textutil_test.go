package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigits(t *testing.T) {
	require.Equal(t, "7501234567890", Digits("750-1234-567890"))
	require.Equal(t, "7501234567890", Digits(" 7501234567890 "))
	require.Equal(t, "", Digits("no digits here"))
	require.Equal(t, "", Digits(""))
}

func TestDigitsIdempotent(t *testing.T) {
	inputs := []string{"750-1234", "abc123", "0000000000", ""}
	for _, in := range inputs {
		once := Digits(in)
		require.Equal(t, once, Digits(once))
	}
}
