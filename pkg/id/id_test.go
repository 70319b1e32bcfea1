package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortable(t *testing.T) {
	prev := New()
	for i := 0; i < 1000; i++ {
		next := New()
		require.Len(t, next, 26)
		require.Less(t, prev, next)
		prev = next
	}
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2016, 2, 5, 12, 30, 0, 250*int(time.Millisecond), time.UTC)
	got, err := Time(At(at))
	require.NoError(t, err)
	assert.True(t, at.Equal(got), "%s != %s", at, got)

	_, err = Time("not-an-id")
	assert.Error(t, err)
}
