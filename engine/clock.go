package engine

import "time"

// FrameClock is the host loop's single time source. It pairs the monotone
// frame counter with the wall clock; the two are passed separately into every
// timing computation and never derived from one another, so flicker phase
// stays frame-locked while phase durations stay in human seconds.
type FrameClock struct {
	start   time.Time
	nowFn   func() time.Time
	frame   int64
	refresh float64
}

// FrameClockOption configures a FrameClock.
type FrameClockOption func(*FrameClock)

// WithNowFunc substitutes the wall-clock source. Tests use it to drive the
// protocol with synthetic time.
func WithNowFunc(fn func() time.Time) FrameClockOption {
	return func(c *FrameClock) {
		c.nowFn = fn
	}
}

// NewFrameClock creates a clock at frame 0 with the given refresh-rate
// estimate in Hz.
func NewFrameClock(refreshHz float64, opts ...FrameClockOption) *FrameClock {
	c := &FrameClock{nowFn: time.Now, refresh: refreshHz}
	for _, opt := range opts {
		opt(c)
	}
	c.start = c.nowFn()
	return c
}

// Frame returns the current frame index.
func (c *FrameClock) Frame() int64 {
	return c.frame
}

// Advance increments the frame counter after a present and returns the new
// index.
func (c *FrameClock) Advance() int64 {
	c.frame++
	return c.frame
}

// Now returns the current wall time.
func (c *FrameClock) Now() time.Time {
	return c.nowFn()
}

// Elapsed returns the wall time since the clock was created.
func (c *FrameClock) Elapsed() time.Duration {
	return c.nowFn().Sub(c.start)
}

// RefreshRate returns the display refresh estimate in Hz.
func (c *FrameClock) RefreshRate() float64 {
	return c.refresh
}
