package engine

import (
	"encoding/json"
	"fmt"
	"os"
)

// StimulusSpec is the on-disk form of one stimulus. Positions and sizes are
// in normalized device coordinates, colors are [0,1] RGB.
type StimulusSpec struct {
	Shape string     `json:"shape"`
	X     float32    `json:"x"`
	Y     float32    `json:"y"`
	Size  float32    `json:"size"`
	Color [3]float32 `json:"color"`
	Freq  float64    `json:"flicker_freq"`
	Phase float64    `json:"flicker_phase"`
}

func (sp StimulusSpec) build() (*Stimulus, error) {
	shape, err := ParseShapeKind(sp.Shape)
	if err != nil {
		return nil, err
	}
	if sp.Size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %g", sp.Size)
	}
	if sp.Freq <= 0 {
		return nil, fmt.Errorf("flicker frequency must be positive, got %g", sp.Freq)
	}
	s := NewStimulus(shape, sp.X, sp.Y, sp.Size, Color{R: sp.Color[0], G: sp.Color[1], B: sp.Color[2]})
	s.FlickerFreq = sp.Freq
	s.FlickerPhase = sp.Phase
	return s, nil
}

func specOf(s *Stimulus) StimulusSpec {
	return StimulusSpec{
		Shape: s.Shape.String(),
		X:     s.X,
		Y:     s.Y,
		Size:  s.Size,
		Color: [3]float32{s.Color.R, s.Color.G, s.Color.B},
		Freq:  s.FlickerFreq,
		Phase: s.FlickerPhase,
	}
}

// LoadLayout reads an ordered stimulus list from a JSON layout file.
func LoadLayout(path string) ([]*Stimulus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", path, err)
	}
	var specs []StimulusSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("layout %s contains no stimuli", path)
	}
	stimuli := make([]*Stimulus, len(specs))
	for i, sp := range specs {
		s, err := sp.build()
		if err != nil {
			return nil, fmt.Errorf("layout %s: stimulus %d: %w", path, i, err)
		}
		stimuli[i] = s
	}
	return stimuli, nil
}

// SaveLayout writes the stimulus list as a JSON layout file.
func SaveLayout(path string, stimuli []*Stimulus) error {
	specs := make([]StimulusSpec, len(stimuli))
	for i, s := range stimuli {
		specs[i] = specOf(s)
	}
	data, err := json.MarshalIndent(specs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// DefaultLayout lays n square stimuli on a two-row grid spanning the screen,
// with flicker frequencies spaced 1 Hz apart from 8 Hz, inside the band
// commonly used for SSVEP stimulation.
func DefaultLayout(n int) []*Stimulus {
	if n < 1 {
		n = 1
	}
	step := float32(1.6)
	if n > 1 {
		step = 1.6 / float32(n-1)
	}
	stimuli := make([]*Stimulus, n)
	for i := 0; i < n; i++ {
		x := -0.8 + float32(i)*step
		y := -0.5 + float32(i%2)*0.5
		color := Color{R: 0.1 * float32(i), G: 0.5, B: 1 - 0.1*float32(i)}
		s := NewStimulus(ShapeSquare, x, y, 0.15, color)
		s.FlickerFreq = 8 + float64(i)
		stimuli[i] = s
	}
	return stimuli
}
