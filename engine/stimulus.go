package engine

import (
	"fmt"
	"math"
	"time"
)

// Color is an RGB triple with components in [0,1], matching the normalized
// colors stored in layout files.
type Color struct {
	R, G, B float32
}

var (
	// ColorCue is the border color of the attended target during CUE.
	ColorCue = Color{R: 1.0}
	// ColorFeedback is the border color of the classifier result during FEEDBACK.
	ColorFeedback = Color{G: 1.0}
)

// ShapeKind selects the vertex fan used to draw a stimulus. Shapes are a
// closed set; there is no subclassing, the renderer switches on the tag.
type ShapeKind int

const (
	ShapeSquare ShapeKind = iota
	ShapeTriangle
	ShapeCircle
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeSquare:
		return "square"
	case ShapeTriangle:
		return "triangle"
	case ShapeCircle:
		return "circle"
	}
	return "unknown"
}

// ParseShapeKind maps a layout-file shape name to its tag.
func ParseShapeKind(s string) (ShapeKind, error) {
	switch s {
	case "square":
		return ShapeSquare, nil
	case "triangle":
		return ShapeTriangle, nil
	case "circle":
		return ShapeCircle, nil
	}
	return 0, fmt.Errorf("unknown shape kind %q", s)
}

// DefaultBorderFlashDuration applies when a border flash is triggered
// manually. The protocol overrides it with the cue or feedback phase length.
const DefaultBorderFlashDuration = 200 * time.Millisecond

// Stimulus is one flickering shape on screen.
//
// Flicker phase is a function of the frame counter and the display refresh
// rate, never of wall-clock time, so the visual frequency stays locked to the
// refresh cycle under scheduling jitter. Wall time is used only for the
// human-facing expiry of a timed flicker and of the border flash.
type Stimulus struct {
	Shape ShapeKind
	X, Y  float32 // center, normalized device coordinates [-1,1]
	Size  float32 // edge/diameter, in normalized units
	Color Color

	FlickerFreq  float64 // Hz
	FlickerPhase float64 // radians

	flickering        bool
	flickerStartFrame int64
	flickerStart      time.Time
	flickerDuration   time.Duration // 0 = until StopFlicker

	borderFlashing bool
	borderStart    time.Time
	BorderDuration time.Duration
	BorderColor    Color
}

// NewStimulus creates a stimulus with a 1 Hz default flicker frequency, like
// a freshly placed layout entry.
func NewStimulus(shape ShapeKind, x, y, size float32, color Color) *Stimulus {
	return &Stimulus{
		Shape:          shape,
		X:              x,
		Y:              y,
		Size:           size,
		Color:          color,
		FlickerFreq:    1.0,
		BorderDuration: DefaultBorderFlashDuration,
		BorderColor:    ColorCue,
	}
}

// StartFlicker begins flickering at freqHz, anchoring the phase to frame.
// A non-zero duration makes the flicker expire on its own; zero means it runs
// until StopFlicker. Restarting resets the phase reference to the new frame.
func (s *Stimulus) StartFlicker(freqHz, phase float64, duration time.Duration, frame int64, now time.Time) error {
	if freqHz <= 0 {
		return fmt.Errorf("flicker frequency must be positive, got %g", freqHz)
	}
	s.FlickerFreq = freqHz
	s.FlickerPhase = phase
	s.flickerDuration = duration
	s.flickerStartFrame = frame
	s.flickerStart = now
	s.flickering = true
	return nil
}

// StopFlicker clears the flicker flag. Idempotent.
func (s *Stimulus) StopFlicker() {
	s.flickering = false
}

// IsFlickering reports whether the stimulus is currently flickering.
func (s *Stimulus) IsFlickering() bool {
	return s.flickering
}

// SampleAlpha returns the render intensity in [0,1] for the given frame.
//
// During flicker the intensity follows
//
//	0.5 * (1 + sin(2π·f·(frame-startFrame)/refreshHz + phase))
//
// which is the stimulus's defining visual contract. Outside flicker, or on
// any inconsistent input (refresh rate ≤ 0), the sample degrades to fully
// opaque. A timed flicker that has outlived its duration is cleared here as
// a side effect.
func (s *Stimulus) SampleAlpha(frame int64, refreshHz float64, now time.Time) float64 {
	if !s.flickering || refreshHz <= 0 {
		return 1.0
	}
	if s.flickerDuration > 0 && now.Sub(s.flickerStart) > s.flickerDuration {
		s.flickering = false
		return 1.0
	}
	t := float64(frame-s.flickerStartFrame) / refreshHz
	return 0.5 * (1 + math.Sin(2*math.Pi*s.FlickerFreq*t+s.FlickerPhase))
}

// StartBorderFlash shows the border in the given color starting now. The
// flash lasts BorderDuration, which callers may override after this call.
func (s *Stimulus) StartBorderFlash(color Color, now time.Time) {
	s.BorderColor = color
	s.borderStart = now
	s.borderFlashing = true
}

// SampleBorderVisible reports whether the border is visible this frame,
// clearing the flash once its duration has passed.
func (s *Stimulus) SampleBorderVisible(now time.Time) bool {
	if !s.borderFlashing {
		return false
	}
	if now.Sub(s.borderStart) > s.BorderDuration {
		s.borderFlashing = false
		return false
	}
	return true
}
