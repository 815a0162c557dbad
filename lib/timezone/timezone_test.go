package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowPinnedToMexicoCity(t *testing.T) {
	now := Now()
	require.Equal(t, "America/Mexico_City", now.Location().String())

	// same instant as the machine clock, only the location differs
	require.WithinDuration(t, time.Now(), now, time.Second)
}
