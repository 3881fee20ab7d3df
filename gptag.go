// Package gptag implements detection and decoding of GP-Tag fiducial
// markers: printed tags that encode a global position (latitude, longitude,
// altitude), an orientation quaternion and physical scale, protected by
// Reed-Solomon error correction.
package gptag

import (
	"math"
	"time"
)

// Point is a sub-pixel image coordinate.
type Point struct {
	X, Y float64
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// CrossProductZ computes the z component of the cross product between vectors
// (b-a) and (c-a). Positive means c lies counterclockwise of ab in image
// coordinates (y down).
func CrossProductZ(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Corners holds the four refined outer spike tips of a tag, ordered
// top-left, top-right, bottom-right, bottom-left in the tag's canonical
// orientation.
type Corners [4]Point

// Area returns the quadrilateral area via the shoelace formula.
func (c Corners) Area() float64 {
	sum := 0.0
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		sum += c[i].X*c[j].Y - c[j].X*c[i].Y
	}
	return math.Abs(sum) / 2
}

// IsConvex reports whether the corners form a convex quadrilateral. All four
// cross products must share a sign; a zero cross product means three corners
// are collinear and the quadrilateral is degenerate.
func (c Corners) IsConvex() bool {
	sign := 0
	for i := 0; i < 4; i++ {
		z := CrossProductZ(c[i], c[(i+1)%4], c[(i+2)%4])
		if z == 0 {
			return false
		}
		s := 1
		if z < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// MinInteriorAngle returns the smallest interior angle in radians.
func (c Corners) MinInteriorAngle() float64 {
	minAngle := math.Pi
	for i := 0; i < 4; i++ {
		prev := c[(i+3)%4]
		next := c[(i+1)%4]
		v1x, v1y := prev.X-c[i].X, prev.Y-c[i].Y
		v2x, v2y := next.X-c[i].X, next.Y-c[i].Y
		dot := v1x*v2x + v1y*v2y
		n1 := math.Hypot(v1x, v1y)
		n2 := math.Hypot(v2x, v2y)
		if n1 == 0 || n2 == 0 {
			return 0
		}
		cos := dot / (n1 * n2)
		if cos > 1 {
			cos = 1
		} else if cos < -1 {
			cos = -1
		}
		if a := math.Acos(cos); a < minAngle {
			minAngle = a
		}
	}
	return minAngle
}

// Result encapsulates a successfully decoded tag.
type Result struct {
	// Payload is the 23-byte main data block after error correction.
	Payload []byte

	// Data holds the unpacked payload fields, including the tag and version
	// identifiers recovered from the ID block.
	Data *TagData

	// Corners are the refined outer corners in frame coordinates, ordered
	// for the resolved canonical orientation.
	Corners Corners

	// Confidence is the inlier ratio of the candidate homography.
	Confidence float64

	// ErrorsCorrected is the number of symbol errors corrected in the main
	// data block; IDErrorsCorrected likewise for the ID block.
	ErrorsCorrected   int
	IDErrorsCorrected int

	Timestamp time.Time
}
