package upclist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	upcs, err := Parse([]byte(`["7501234567890", "0000000000"]`))
	require.NoError(t, err)
	require.Equal(t, []string{"7501234567890", "0000000000"}, upcs)

	upcs, err = Parse([]byte(`{"upcs": ["7501234567890"]}`))
	require.NoError(t, err)
	require.Equal(t, []string{"7501234567890"}, upcs)

	upcs, err = Parse([]byte(`[7501031311309]`))
	require.NoError(t, err)
	require.Equal(t, []string{"7501031311309"}, upcs)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{"codes": []}`))
	require.Error(t, err)

	_, err = Parse([]byte(`"just a string"`))
	require.Error(t, err)

	_, err = Parse([]byte(`not json`))
	require.Error(t, err)

	_, err = Parse([]byte(`[{"upc": "123"}]`))
	require.Error(t, err)
}
