package detector

import (
	"fmt"
	"image"
	"math"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/transform"
)

// Edge-search tuning. Transitions are located along the edge normal within
// searchRange frame pixels, in searchStep increments, and accepted above
// minEdgeGradient luminance difference per step.
const (
	searchRange     = 3.0
	searchStep      = 0.5
	minEdgeGradient = 10.0

	// Fraction of the spike edge that is sampled, measured from the tip
	// toward the base. The edge loses contrast where it meets the outer
	// disk, and the tip itself rounds off in print and blur.
	edgeSampleLo = 0.08
	edgeSampleHi = 0.35
	edgeSamples  = 10
)

// RefineCorners locates the tag's four boundary corners to sub-pixel
// precision. Each corner is the tip of a spike whose two edges are fitted
// as lines through luminance transitions; the corner is their
// intersection. It returns the corners and the homography rebuilt from
// them.
func (d *Detector) RefineCorners(img *image.Gray, h *transform.PerspectiveTransform) (gptag.Corners, *transform.PerspectiveTransform, error) {
	var corners gptag.Corners
	spikes := d.template.Geometry.Spikes()
	for i, spike := range spikes {
		line1, err := d.fitSpikeEdge(img, h, spike.TipX, spike.TipY, spike.B1X, spike.B1Y)
		if err != nil {
			return corners, nil, err
		}
		line2, err := d.fitSpikeEdge(img, h, spike.TipX, spike.TipY, spike.B2X, spike.B2Y)
		if err != nil {
			return corners, nil, err
		}
		x, y, ok := intersect(line1, line2)
		if !ok {
			return corners, nil, fmt.Errorf("detector: corner %d edges near parallel: %w", i, gptag.ErrBoundaryNotFound)
		}
		corners[i] = gptag.Point{X: x, Y: y}
	}

	if err := d.validateCorners(corners); err != nil {
		return corners, nil, err
	}

	tpl := d.template.Corners()
	refined := transform.QuadrilateralToQuadrilateral(
		tpl[0][0], tpl[0][1], tpl[1][0], tpl[1][1], tpl[2][0], tpl[2][1], tpl[3][0], tpl[3][1],
		corners[0].X, corners[0].Y, corners[1].X, corners[1].Y,
		corners[2].X, corners[2].Y, corners[3].X, corners[3].Y)
	if refined.IsDegenerate() {
		return corners, nil, fmt.Errorf("detector: refined homography degenerate: %w", gptag.ErrGeometryInvalid)
	}
	return corners, refined, nil
}

// fittedLine is a point and unit direction in frame coordinates.
type fittedLine struct {
	px, py float64
	dx, dy float64
}

// fitSpikeEdge samples the template-space edge from the spike tip toward a
// base point, locates the luminance transition along each sample's normal
// in the frame, and fits a line through the transitions.
func (d *Detector) fitSpikeEdge(img *image.Gray, h *transform.PerspectiveTransform, tipX, tipY, baseX, baseY float64) (fittedLine, error) {
	var xs, ys []float64
	for i := 0; i < edgeSamples; i++ {
		t := edgeSampleLo + (edgeSampleHi-edgeSampleLo)*float64(i)/float64(edgeSamples-1)
		tx := tipX + t*(baseX-tipX)
		ty := tipY + t*(baseY-tipY)

		// Edge tangent in the frame, from a small template-space step.
		const eps = 0.5
		x0, y0 := h.Apply(tx, ty)
		x1, y1 := h.Apply(tx+eps*(baseX-tipX)/edgeLen(tipX, tipY, baseX, baseY),
			ty+eps*(baseY-tipY)/edgeLen(tipX, tipY, baseX, baseY))
		tanX, tanY := x1-x0, y1-y0
		norm := math.Hypot(tanX, tanY)
		if norm == 0 {
			continue
		}
		nx, ny := -tanY/norm, tanX/norm

		ex, ey, ok := locateTransition(img, x0, y0, nx, ny)
		if !ok {
			continue
		}
		xs = append(xs, ex)
		ys = append(ys, ey)
	}
	if len(xs) < edgeSamples/2 {
		return fittedLine{}, fmt.Errorf("detector: %d edge transitions of %d samples: %w",
			len(xs), edgeSamples, gptag.ErrBoundaryNotFound)
	}
	return fitLineTLS(xs, ys), nil
}

func edgeLen(ax, ay, bx, by float64) float64 {
	return math.Hypot(bx-ax, by-ay)
}

// locateTransition walks the normal through (x, y) and returns the
// sub-pixel position of the strongest luminance gradient.
func locateTransition(img *image.Gray, x, y, nx, ny float64) (float64, float64, bool) {
	steps := int(2*searchRange/searchStep) + 1
	values := make([]float64, steps)
	for i := 0; i < steps; i++ {
		s := -searchRange + float64(i)*searchStep
		values[i] = gptag.SampleBilinear(img, x+s*nx, y+s*ny)
	}

	bestIdx := -1
	bestGrad := 0.0
	for i := 1; i < steps-1; i++ {
		grad := math.Abs(values[i+1] - values[i-1])
		if grad > bestGrad {
			bestGrad = grad
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestGrad < 2*minEdgeGradient {
		return 0, 0, false
	}

	// Parabolic refinement over the gradient magnitudes.
	offset := 0.0
	if bestIdx > 1 && bestIdx < steps-2 {
		g0 := math.Abs(values[bestIdx] - values[bestIdx-2])
		g1 := bestGrad
		g2 := math.Abs(values[bestIdx+2] - values[bestIdx])
		denom := g0 - 2*g1 + g2
		if denom < 0 {
			offset = 0.5 * (g0 - g2) / denom
			if offset > 1 {
				offset = 1
			} else if offset < -1 {
				offset = -1
			}
		}
	}
	s := -searchRange + (float64(bestIdx)+offset)*searchStep
	return x + s*nx, y + s*ny, true
}

// fitLineTLS fits a line through the points by total least squares: the
// centroid plus the principal direction of the scatter.
func fitLineTLS(xs, ys []float64) fittedLine {
	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n
	var sxx, sxy, syy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	angle := 0.5 * math.Atan2(2*sxy, sxx-syy)
	return fittedLine{px: mx, py: my, dx: math.Cos(angle), dy: math.Sin(angle)}
}

// intersect returns the intersection of two parametric lines.
func intersect(a, b fittedLine) (float64, float64, bool) {
	det := a.dx*b.dy - a.dy*b.dx
	if math.Abs(det) < 1e-6 {
		return 0, 0, false
	}
	t := ((b.px-a.px)*b.dy - (b.py-a.py)*b.dx) / det
	return a.px + t*a.dx, a.py + t*a.dy, true
}

func (d *Detector) validateCorners(corners gptag.Corners) error {
	if !corners.IsConvex() {
		return fmt.Errorf("detector: refined boundary not convex: %w", gptag.ErrGeometryInvalid)
	}
	if angle := corners.MinInteriorAngle(); angle < d.cfg.MinInteriorAngleDeg*math.Pi/180 {
		return fmt.Errorf("detector: min interior angle %.1f deg: %w",
			angle*180/math.Pi, gptag.ErrGeometryInvalid)
	}
	if area := corners.Area(); area < d.cfg.MinArea {
		return fmt.Errorf("detector: boundary area %.0f px: %w", area, gptag.ErrGeometryInvalid)
	}
	return nil
}
