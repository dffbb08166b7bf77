package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-03-04", "04-03-2026", "04/03/2026", " 2026-03-04T00:00:00Z "} {
		got, err := ParseTime(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
		assert.True(t, IsDateOnly(got), in)
	}

	got, err := ParseTime("2026-03-04 17:30:00")
	require.NoError(t, err)
	assert.False(t, IsDateOnly(got))

	_, err = ParseTime("March 4th")
	assert.Error(t, err)
}
