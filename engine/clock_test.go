package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameClock_StartsAtFrameZero(t *testing.T) {
	c := NewFrameClock(60)
	assert.Equal(t, int64(0), c.Frame())
	assert.Equal(t, 60.0, c.RefreshRate())
}

func TestFrameClock_Advance(t *testing.T) {
	c := NewFrameClock(60)

	assert.Equal(t, int64(1), c.Advance())
	assert.Equal(t, int64(2), c.Advance())
	assert.Equal(t, int64(2), c.Frame())
}

func TestFrameClock_SyntheticTime(t *testing.T) {
	base := time.Unix(1000, 0)
	now := base
	c := NewFrameClock(144, WithNowFunc(func() time.Time { return now }))

	assert.Equal(t, base, c.Now())
	assert.Equal(t, time.Duration(0), c.Elapsed())

	now = base.Add(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, c.Elapsed())

	// The frame counter is independent of wall time: it moves only on
	// Advance.
	assert.Equal(t, int64(0), c.Frame())
}
