package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReal_NowIsUTC(t *testing.T) {
	now := Real{}.Now()
	require.Equal(t, time.UTC, now.Location())
	require.WithinDuration(t, time.Now(), now, time.Second)
}

func TestMock(t *testing.T) {
	start := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	m := NewMock(start)

	require.Equal(t, start, m.Now())

	m.Advance(90 * time.Second)
	require.Equal(t, start.Add(90*time.Second), m.Now())

	later := start.Add(time.Hour)
	m.Set(later)
	require.Equal(t, later, m.Now())
}
