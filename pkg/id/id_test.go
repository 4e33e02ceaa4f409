package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUniqueAndSorted(t *testing.T) {
	t.Parallel()

	prev := ""
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		v := New()
		require.Len(t, v, 26)
		require.False(t, seen[v], "duplicate id %s", v)
		seen[v] = true
		if prev != "" {
			assert.Greater(t, v, prev)
		}
		prev = v
	}
}

func TestNewAtRoundTripsTime(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	got, err := Time(NewAt(at))
	require.NoError(t, err)
	assert.Equal(t, at.Truncate(time.Millisecond), got)

	_, err = Time("not-an-id")
	assert.Error(t, err)
}
