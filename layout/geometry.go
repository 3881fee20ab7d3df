package layout

import "math"

// Radii of the circular features, in cell units from the tag center. The
// data grid's corner diagonal reaches RingInner; the orientation ring band
// occupies RingInner..RingOuter and the solid black rim extends to
// OuterRadius.
const (
	RingInner   = 15.0
	RingMiddle  = 16.0
	RingOuter   = 17.0
	OuterRadius = 18.0

	// Ring bits are sampled midway through each band.
	InnerSampleRadius  = 15.5
	MiddleSampleRadius = 16.5

	// GridHalfSpan is half the data grid's side length, in cell units. The
	// spike triangle bases end at this offset on the grid border axes.
	GridHalfSpan = 10.5
)

// ExpectedRingCodes holds the ring code of each quadrant in a canonically
// oriented tag. Quadrant q spans angles [90q, 90(q+1)) degrees, measured
// clockwise on screen from the +x axis with y growing downward, so quadrant
// 0 is the bottom-right.
var ExpectedRingCodes = [4]int{3, 2, 1, 0}

// RingCode combines the two ring band samples of a quadrant into its code.
func RingCode(middleBlack, innerBlack bool) int {
	code := 0
	if middleBlack {
		code |= 2
	}
	if innerBlack {
		code |= 1
	}
	return code
}

// Geometry maps cell coordinates onto template pixel coordinates for a
// given unit size.
type Geometry struct {
	U                float64
	CenterX, CenterY float64
}

// Canonical returns the geometry of an upright template rendered at u pixels
// per cell, centered in its own image.
func Canonical(u float64) Geometry {
	return Geometry{U: u, CenterX: OuterRadius * u, CenterY: OuterRadius * u}
}

// ImageSize returns the side length of the template image in pixels.
func (g Geometry) ImageSize() float64 {
	return FullGridSize * g.U
}

// CellCenter returns the pixel center of a data grid cell.
func (g Geometry) CellCenter(c Cell) (float64, float64) {
	return g.CenterX + (float64(c.X)-10)*g.U, g.CenterY + (float64(c.Y)-10)*g.U
}

// FullGridCellCenter returns the pixel center of a cell addressed in the
// 36-wide full grid, as used by the identifier cell pairs.
func (g Geometry) FullGridCellCenter(c Cell) (float64, float64) {
	return g.CenterX + (float64(c.X)-18)*g.U, g.CenterY + (float64(c.Y)-18)*g.U
}

// RingSample returns the pixel position for sampling a quadrant's ring band
// at the given radius. frac in [0, 1) selects the angle within the
// quadrant's 90-degree span.
func (g Geometry) RingSample(quadrant int, frac, radiusCells float64) (float64, float64) {
	angle := (float64(quadrant) + frac) * math.Pi / 2
	r := radiusCells * g.U
	return g.CenterX + r*math.Cos(angle), g.CenterY + r*math.Sin(angle)
}

// Corners returns the tag's boundary corners, the spike tips, in top-left,
// top-right, bottom-right, bottom-left order.
func (g Geometry) Corners() [4][2]float64 {
	r := OuterRadius * g.U
	return [4][2]float64{
		{g.CenterX - r, g.CenterY - r},
		{g.CenterX + r, g.CenterY - r},
		{g.CenterX + r, g.CenterY + r},
		{g.CenterX - r, g.CenterY + r},
	}
}

// Spike is one of the four black triangles joining the outer disk to an
// image corner. Tip is the corner; the base runs from (B1X, B1Y) to
// (B2X, B2Y) on the grid border axes.
type Spike struct {
	TipX, TipY float64
	B1X, B1Y   float64
	B2X, B2Y   float64
}

// Spikes returns the four spike triangles in top-left, top-right,
// bottom-right, bottom-left order, matching Corners.
func (g Geometry) Spikes() [4]Spike {
	tips := g.Corners()
	h := GridHalfSpan * g.U
	top := [2]float64{g.CenterX, g.CenterY - h}
	right := [2]float64{g.CenterX + h, g.CenterY}
	bottom := [2]float64{g.CenterX, g.CenterY + h}
	left := [2]float64{g.CenterX - h, g.CenterY}
	bases := [4][2][2]float64{
		{top, left},
		{right, top},
		{bottom, right},
		{left, bottom},
	}
	var out [4]Spike
	for i := range out {
		out[i] = Spike{
			TipX: tips[i][0], TipY: tips[i][1],
			B1X: bases[i][0][0], B1Y: bases[i][0][1],
			B2X: bases[i][1][0], B2Y: bases[i][1][1],
		}
	}
	return out
}

// InSpike reports whether the pixel lies inside any spike triangle.
func (g Geometry) InSpike(x, y float64) bool {
	for _, s := range g.Spikes() {
		if pointInTriangle(x, y, s.TipX, s.TipY, s.B1X, s.B1Y, s.B2X, s.B2Y) {
			return true
		}
	}
	return false
}

func pointInTriangle(px, py, ax, ay, bx, by, cx, cy float64) bool {
	d1 := sign(px, py, ax, ay, bx, by)
	d2 := sign(px, py, bx, by, cx, cy)
	d3 := sign(px, py, cx, cy, ax, ay)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func sign(px, py, ax, ay, bx, by float64) float64 {
	return (px-bx)*(ay-by) - (ax-bx)*(py-by)
}
