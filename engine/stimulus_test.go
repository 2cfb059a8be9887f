package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStimulus() *Stimulus {
	return NewStimulus(ShapeSquare, 0, 0, 0.15, Color{B: 1})
}

func TestSampleAlpha_MatchesSinusoid(t *testing.T) {
	base := time.Unix(0, 0)

	tests := []struct {
		name    string
		freq    float64
		phase   float64
		refresh float64
	}{
		{name: "1Hz at 60Hz refresh", freq: 1.0, refresh: 60.0},
		{name: "8.5Hz at 60Hz refresh", freq: 8.5, refresh: 60.0},
		{name: "12Hz at 144Hz refresh", freq: 12.0, refresh: 144.0},
		{name: "30Hz with phase offset", freq: 30.0, phase: math.Pi / 2, refresh: 60.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStimulus()
			require.NoError(t, s.StartFlicker(tt.freq, tt.phase, 0, 0, base))

			for frame := int64(0); frame < 240; frame++ {
				want := 0.5 * (1 + math.Sin(2*math.Pi*tt.freq*float64(frame)/tt.refresh+tt.phase))
				got := s.SampleAlpha(frame, tt.refresh, base)
				assert.InDelta(t, want, got, 1e-12, "frame %d", frame)
				assert.GreaterOrEqual(t, got, 0.0)
				assert.LessOrEqual(t, got, 1.0)
			}
		})
	}
}

func TestSampleAlpha_FrameLockedUnderWallClockJitter(t *testing.T) {
	base := time.Unix(0, 0)

	fast := testStimulus()
	slow := testStimulus()
	require.NoError(t, fast.StartFlicker(10, 0, 0, 0, base))
	require.NoError(t, slow.StartFlicker(10, 0, 0, 0, base))

	// Same frame sequence sampled at very different wall-clock speeds must
	// produce identical alphas: phase depends on frames, not elapsed time.
	for frame := int64(0); frame < 120; frame++ {
		fastNow := base.Add(time.Duration(frame) * time.Millisecond)
		slowNow := base.Add(time.Duration(frame) * time.Minute)
		assert.Equal(t, fast.SampleAlpha(frame, 60, fastNow), slow.SampleAlpha(frame, 60, slowNow))
	}
}

func TestSampleAlpha_NotFlickering(t *testing.T) {
	s := testStimulus()
	assert.Equal(t, 1.0, s.SampleAlpha(100, 60, time.Now()))
}

func TestSampleAlpha_BadRefreshRateDegradesOpaque(t *testing.T) {
	base := time.Unix(0, 0)
	s := testStimulus()
	require.NoError(t, s.StartFlicker(10, 0, 0, 0, base))

	assert.Equal(t, 1.0, s.SampleAlpha(10, 0, base))
	assert.Equal(t, 1.0, s.SampleAlpha(10, -60, base))
	assert.True(t, s.IsFlickering(), "degraded sample must not clear the flicker")
}

func TestSampleAlpha_DurationExpiry(t *testing.T) {
	base := time.Unix(0, 0)
	s := testStimulus()
	require.NoError(t, s.StartFlicker(10, 0, time.Second, 0, base))

	// Still inside the duration: flickering.
	s.SampleAlpha(54, 60, base.Add(900*time.Millisecond))
	assert.True(t, s.IsFlickering())

	// Past the duration: this sample reads opaque and stops the flicker.
	assert.Equal(t, 1.0, s.SampleAlpha(90, 60, base.Add(1500*time.Millisecond)))
	assert.False(t, s.IsFlickering())

	// Later samples stay opaque.
	assert.Equal(t, 1.0, s.SampleAlpha(120, 60, base.Add(2*time.Second)))
}

func TestStartFlicker_RejectsNonPositiveFrequency(t *testing.T) {
	s := testStimulus()
	assert.Error(t, s.StartFlicker(0, 0, 0, 0, time.Now()))
	assert.Error(t, s.StartFlicker(-5, 0, 0, 0, time.Now()))
	assert.False(t, s.IsFlickering())
}

func TestStopFlicker_Idempotent(t *testing.T) {
	s := testStimulus()
	require.NoError(t, s.StartFlicker(10, 0, 0, 0, time.Now()))

	s.StopFlicker()
	assert.False(t, s.IsFlickering())
	s.StopFlicker()
	assert.False(t, s.IsFlickering())
}

func TestStartFlicker_ResetsPhaseReference(t *testing.T) {
	base := time.Unix(0, 0)
	s := testStimulus()
	require.NoError(t, s.StartFlicker(7, 0, 0, 0, base))
	atStart := s.SampleAlpha(0, 60, base)

	// Restarting at a later frame anchors the phase there: sampling the new
	// start frame matches sampling frame 0 after the first start.
	require.NoError(t, s.StartFlicker(7, 0, 0, 100, base))
	assert.Equal(t, atStart, s.SampleAlpha(100, 60, base))
}

func TestBorderFlash_VisibleWindow(t *testing.T) {
	base := time.Unix(0, 0)
	s := testStimulus()
	s.StartBorderFlash(ColorFeedback, base)

	assert.Equal(t, ColorFeedback, s.BorderColor)
	assert.True(t, s.SampleBorderVisible(base))
	assert.True(t, s.SampleBorderVisible(base.Add(DefaultBorderFlashDuration)))

	// Past the duration: invisible and cleared.
	assert.False(t, s.SampleBorderVisible(base.Add(DefaultBorderFlashDuration+time.Millisecond)))
	assert.False(t, s.SampleBorderVisible(base))
}

func TestBorderFlash_ProtocolOverridesDuration(t *testing.T) {
	base := time.Unix(0, 0)
	s := testStimulus()
	s.StartBorderFlash(ColorCue, base)
	s.BorderDuration = 2 * time.Second

	assert.True(t, s.SampleBorderVisible(base.Add(1900*time.Millisecond)))
	assert.False(t, s.SampleBorderVisible(base.Add(2100*time.Millisecond)))
}

func TestParseShapeKind(t *testing.T) {
	for _, kind := range []ShapeKind{ShapeSquare, ShapeTriangle, ShapeCircle} {
		parsed, err := ParseShapeKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseShapeKind("hexagon")
	assert.Error(t, err)
}
