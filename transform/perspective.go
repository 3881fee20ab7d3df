// Package transform provides planar projective (homography) math for mapping
// canonical tag coordinates to observed frame coordinates.
package transform

import "math"

// PerspectiveTransform is an 8-parameter planar projective transform. It maps
// source-plane points to destination-plane points; for tag work the source
// plane is the canonical template and the destination is the camera frame.
type PerspectiveTransform struct {
	a11, a12, a13 float64
	a21, a22, a23 float64
	a31, a32, a33 float64
}

// Apply transforms a single point.
func (pt *PerspectiveTransform) Apply(x, y float64) (float64, float64) {
	denominator := pt.a13*x + pt.a23*y + pt.a33
	return (pt.a11*x + pt.a21*y + pt.a31) / denominator,
		(pt.a12*x + pt.a22*y + pt.a32) / denominator
}

// TransformPoints transforms pairs of (x, y) coordinates in place.
// points must have even length: [x0, y0, x1, y1, ...].
func (pt *PerspectiveTransform) TransformPoints(points []float64) {
	maxI := len(points) - 1
	for i := 0; i < maxI; i += 2 {
		points[i], points[i+1] = pt.Apply(points[i], points[i+1])
	}
}

// QuadrilateralToQuadrilateral computes the transform mapping one
// quadrilateral onto another. This is the minimal 4-point homography solve
// used both for RANSAC model hypotheses and for rebuilding the transform
// from refined corners.
func QuadrilateralToQuadrilateral(
	x0, y0, x1, y1, x2, y2, x3, y3 float64,
	x0p, y0p, x1p, y1p, x2p, y2p, x3p, y3p float64,
) *PerspectiveTransform {
	qToS := QuadrilateralToSquare(x0, y0, x1, y1, x2, y2, x3, y3)
	sToQ := SquareToQuadrilateral(x0p, y0p, x1p, y1p, x2p, y2p, x3p, y3p)
	return sToQ.Times(qToS)
}

// SquareToQuadrilateral computes the transform from the unit square to a
// quadrilateral.
func SquareToQuadrilateral(x0, y0, x1, y1, x2, y2, x3, y3 float64) *PerspectiveTransform {
	dx3 := x0 - x1 + x2 - x3
	dy3 := y0 - y1 + y2 - y3
	if dx3 == 0 && dy3 == 0 {
		// Affine
		return &PerspectiveTransform{
			a11: x1 - x0, a21: x2 - x1, a31: x0,
			a12: y1 - y0, a22: y2 - y1, a32: y0,
			a13: 0, a23: 0, a33: 1,
		}
	}
	dx1 := x1 - x2
	dx2 := x3 - x2
	dy1 := y1 - y2
	dy2 := y3 - y2
	denominator := dx1*dy2 - dx2*dy1
	a13 := (dx3*dy2 - dx2*dy3) / denominator
	a23 := (dx1*dy3 - dx3*dy1) / denominator
	return &PerspectiveTransform{
		a11: x1 - x0 + a13*x1, a21: x3 - x0 + a23*x3, a31: x0,
		a12: y1 - y0 + a13*y1, a22: y3 - y0 + a23*y3, a32: y0,
		a13: a13, a23: a23, a33: 1,
	}
}

// QuadrilateralToSquare computes the transform from a quadrilateral to the
// unit square.
func QuadrilateralToSquare(x0, y0, x1, y1, x2, y2, x3, y3 float64) *PerspectiveTransform {
	return SquareToQuadrilateral(x0, y0, x1, y1, x2, y2, x3, y3).BuildAdjoint()
}

// BuildAdjoint returns the adjoint (transpose of the cofactor matrix), which
// inverts the transform up to scale.
func (pt *PerspectiveTransform) BuildAdjoint() *PerspectiveTransform {
	return &PerspectiveTransform{
		a11: pt.a22*pt.a33 - pt.a23*pt.a32,
		a21: pt.a23*pt.a31 - pt.a21*pt.a33,
		a31: pt.a21*pt.a32 - pt.a22*pt.a31,
		a12: pt.a13*pt.a32 - pt.a12*pt.a33,
		a22: pt.a11*pt.a33 - pt.a13*pt.a31,
		a32: pt.a12*pt.a31 - pt.a11*pt.a32,
		a13: pt.a12*pt.a23 - pt.a13*pt.a22,
		a23: pt.a13*pt.a21 - pt.a11*pt.a23,
		a33: pt.a11*pt.a22 - pt.a12*pt.a21,
	}
}

// Times returns this * other. Applying the product applies other first.
func (pt *PerspectiveTransform) Times(other *PerspectiveTransform) *PerspectiveTransform {
	return &PerspectiveTransform{
		a11: pt.a11*other.a11 + pt.a21*other.a12 + pt.a31*other.a13,
		a21: pt.a11*other.a21 + pt.a21*other.a22 + pt.a31*other.a23,
		a31: pt.a11*other.a31 + pt.a21*other.a32 + pt.a31*other.a33,
		a12: pt.a12*other.a11 + pt.a22*other.a12 + pt.a32*other.a13,
		a22: pt.a12*other.a21 + pt.a22*other.a22 + pt.a32*other.a23,
		a32: pt.a12*other.a31 + pt.a22*other.a32 + pt.a32*other.a33,
		a13: pt.a13*other.a11 + pt.a23*other.a12 + pt.a33*other.a13,
		a23: pt.a13*other.a21 + pt.a23*other.a22 + pt.a33*other.a23,
		a33: pt.a13*other.a31 + pt.a23*other.a32 + pt.a33*other.a33,
	}
}

// RotationAbout returns the transform rotating the plane by quarterTurns
// 90-degree steps clockwise (in image coordinates, y down) about (cx, cy).
// Used to enumerate the tag's four rotation hypotheses.
func RotationAbout(cx, cy float64, quarterTurns int) *PerspectiveTransform {
	quarterTurns = ((quarterTurns % 4) + 4) % 4
	var cos, sin float64
	switch quarterTurns {
	case 0:
		cos, sin = 1, 0
	case 1:
		cos, sin = 0, 1
	case 2:
		cos, sin = -1, 0
	case 3:
		cos, sin = 0, -1
	}
	// p' = R(p - c) + c, with R = [cos -sin; sin cos] in y-down coordinates.
	return &PerspectiveTransform{
		a11: cos, a21: -sin, a31: cx - cos*cx + sin*cy,
		a12: sin, a22: cos, a32: cy - sin*cx - cos*cy,
		a13: 0, a23: 0, a33: 1,
	}
}

// IsDegenerate reports whether the transform collapses the plane: the
// determinant of the linear part is (near) zero relative to its scale.
func (pt *PerspectiveTransform) IsDegenerate() bool {
	det := pt.a11*(pt.a22*pt.a33-pt.a23*pt.a32) -
		pt.a21*(pt.a12*pt.a33-pt.a13*pt.a32) +
		pt.a31*(pt.a12*pt.a23-pt.a13*pt.a22)
	norm := math.Abs(pt.a11) + math.Abs(pt.a12) + math.Abs(pt.a21) +
		math.Abs(pt.a22) + math.Abs(pt.a31) + math.Abs(pt.a32) + math.Abs(pt.a33)
	if norm == 0 {
		return true
	}
	return math.Abs(det) < 1e-9*norm*norm*norm
}

// Matrix returns the nine coefficients in row-major [a11 a21 a31; a12 a22
// a32; a13 a23 a33] order, i.e. the conventional homography matrix H with
// [x' y' w']^T = H [x y 1]^T.
func (pt *PerspectiveTransform) Matrix() [9]float64 {
	return [9]float64{
		pt.a11, pt.a21, pt.a31,
		pt.a12, pt.a22, pt.a32,
		pt.a13, pt.a23, pt.a33,
	}
}
