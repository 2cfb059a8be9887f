package engine

import (
	"math"
	"time"

	"github.com/Zyko0/go-sdl3/sdl"
)

const (
	circleSegments = 36
	// borderScale enlarges the border fan behind the shape, leaving a
	// visible rim.
	borderScale = 1.2
)

func ndcToPixel(x, y float32, w, h int) (float32, float32) {
	return (x + 1) * 0.5 * float32(w), (1 - y) * 0.5 * float32(h)
}

// shapeVertices returns a triangle fan for kind centered at (cx, cy) with
// half-extent r pixels, plus the index list for RenderGeometry.
func shapeVertices(kind ShapeKind, cx, cy, r float32, color sdl.FColor) ([]sdl.Vertex, []int32) {
	var verts []sdl.Vertex
	point := func(x, y float32) {
		verts = append(verts, sdl.Vertex{
			Position: sdl.FPoint{X: x, Y: y},
			Color:    color,
		})
	}

	switch kind {
	case ShapeSquare:
		point(cx+r, cy-r)
		point(cx+r, cy+r)
		point(cx-r, cy+r)
		point(cx-r, cy-r)
	case ShapeTriangle:
		point(cx, cy-r)
		point(cx-r, cy+r)
		point(cx+r, cy+r)
	case ShapeCircle:
		point(cx, cy)
		for i := 0; i <= circleSegments; i++ {
			angle := 2 * math.Pi * float64(i) / circleSegments
			point(cx+r*float32(math.Cos(angle)), cy+r*float32(math.Sin(angle)))
		}
	}

	return verts, fanIndices(len(verts))
}

func fanIndices(n int) []int32 {
	var idx []int32
	for i := int32(1); i < int32(n)-1; i++ {
		idx = append(idx, 0, i, i+1)
	}
	return idx
}

// DrawStimulus samples the timing model for this frame and draws the border
// (if flashing) behind the alpha-modulated body. Sampling happens here, once
// per stimulus per frame, after the protocol update.
func DrawStimulus(renderer *sdl.Renderer, s *Stimulus, frame int64, refreshHz float64, now time.Time, w, h int) error {
	alpha := s.SampleAlpha(frame, refreshHz, now)
	cx, cy := ndcToPixel(s.X, s.Y, w, h)
	half := s.Size * float32(h) / 4

	if s.SampleBorderVisible(now) {
		bc := sdl.FColor{R: s.BorderColor.R, G: s.BorderColor.G, B: s.BorderColor.B, A: 1}
		verts, idx := shapeVertices(s.Shape, cx, cy, half*borderScale, bc)
		if err := renderer.RenderGeometry(nil, verts, idx); err != nil {
			return err
		}
	}

	fc := sdl.FColor{R: s.Color.R, G: s.Color.G, B: s.Color.B, A: float32(alpha)}
	verts, idx := shapeVertices(s.Shape, cx, cy, half, fc)
	return renderer.RenderGeometry(nil, verts, idx)
}
