// Package pose recovers the camera-relative 6-DoF pose of a decoded tag
// from its homography, the camera intrinsics and the tag's printed scale.
package pose

import (
	"errors"
	"math"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/layout"
	"github.com/S-SB/gp-tag-mobile/transform"
)

// ErrDegenerate is returned when the homography cannot be decomposed into
// a rigid pose.
var ErrDegenerate = errors.New("pose: degenerate homography")

// Intrinsics is the pinhole camera model, in pixels.
type Intrinsics struct {
	Fx, Fy float64
	Cx, Cy float64
}

// DefaultIntrinsics matches a 1080p mobile camera with a normal lens.
var DefaultIntrinsics = Intrinsics{Fx: 1344, Fy: 1344, Cx: 960, Cy: 540}

// Pose is a tag's position and orientation in the camera frame: x right,
// y down, z forward.
type Pose struct {
	// Translation is the tag center in millimeters.
	Translation [3]float64

	// Rotation is the tag-to-camera rotation as a quaternion in
	// x, y, z, w order.
	Rotation [4]float64
}

// Distance returns the straight-line distance to the tag center in
// millimeters.
func (p Pose) Distance() float64 {
	return math.Sqrt(p.Translation[0]*p.Translation[0] +
		p.Translation[1]*p.Translation[1] +
		p.Translation[2]*p.Translation[2])
}

// Estimate decomposes a template-to-frame homography into a pose. scale is
// the tag's printed density in cells per millimeter, as decoded from the
// payload; g is the template geometry the homography maps from.
func Estimate(h *transform.PerspectiveTransform, g layout.Geometry, scale float64, k Intrinsics) (Pose, error) {
	if scale <= 0 || k.Fx == 0 || k.Fy == 0 {
		return Pose{}, ErrDegenerate
	}

	// Template pixels per millimeter on the printed tag.
	s := g.U * scale
	// Metric plane (millimeters, origin at the tag center) to frame pixels.
	metric := h.Times(transform.SquareToQuadrilateral(
		g.CenterX, g.CenterY,
		g.CenterX+s, g.CenterY,
		g.CenterX+s, g.CenterY+s,
		g.CenterX, g.CenterY+s))

	// Remove the intrinsics: M = K^-1 * H, columns [r1 r2 t] up to scale.
	m := metric.Matrix()
	var a [3][3]float64
	for col := 0; col < 3; col++ {
		u := m[0+col]
		v := m[3+col]
		w := m[6+col]
		a[0][col] = (u - k.Cx*w) / k.Fx
		a[1][col] = (v - k.Cy*w) / k.Fy
		a[2][col] = w
	}

	n1 := colNorm(a, 0)
	n2 := colNorm(a, 1)
	if n1 < 1e-12 || n2 < 1e-12 {
		return Pose{}, ErrDegenerate
	}
	lambda := 2 / (n1 + n2)

	var r1, r2, t [3]float64
	for i := 0; i < 3; i++ {
		r1[i] = lambda * a[i][0]
		r2[i] = lambda * a[i][1]
		t[i] = lambda * a[i][2]
	}
	// The tag must be in front of the camera.
	if t[2] < 0 {
		for i := 0; i < 3; i++ {
			r1[i], r2[i], t[i] = -r1[i], -r2[i], -t[i]
		}
	}

	r1, r2 = orthonormalize(r1, r2)
	r3 := cross(r1, r2)

	return Pose{
		Translation: t,
		Rotation:    quaternionFromColumns(r1, r2, r3),
	}, nil
}

// EstimateFromCorners rebuilds the oriented homography from the four
// refined boundary corners of a decode result and decomposes it.
func EstimateFromCorners(corners gptag.Corners, g layout.Geometry, scale float64, k Intrinsics) (Pose, error) {
	tc := g.Corners()
	h := transform.QuadrilateralToQuadrilateral(
		tc[0][0], tc[0][1], tc[1][0], tc[1][1],
		tc[2][0], tc[2][1], tc[3][0], tc[3][1],
		corners[0].X, corners[0].Y,
		corners[1].X, corners[1].Y,
		corners[2].X, corners[2].Y,
		corners[3].X, corners[3].Y)
	return Estimate(h, g, scale, k)
}

func colNorm(a [3][3]float64, col int) float64 {
	return math.Sqrt(a[0][col]*a[0][col] + a[1][col]*a[1][col] + a[2][col]*a[2][col])
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v [3]float64) [3]float64 {
	n := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	return [3]float64{v[0] / n, v[1] / n, v[2] / n}
}

// orthonormalize balances the first two rotation columns so they become
// exactly orthogonal unit vectors while moving each as little as possible.
func orthonormalize(r1, r2 [3]float64) ([3]float64, [3]float64) {
	c := normalize([3]float64{r1[0] + r2[0], r1[1] + r2[1], r1[2] + r2[2]})
	p := cross(r1, r2)
	d := normalize(cross(c, p))
	inv := 1 / math.Sqrt2
	out1 := [3]float64{(c[0] + d[0]) * inv, (c[1] + d[1]) * inv, (c[2] + d[2]) * inv}
	out2 := [3]float64{(c[0] - d[0]) * inv, (c[1] - d[1]) * inv, (c[2] - d[2]) * inv}
	return out1, out2
}

// quaternionFromColumns converts a rotation matrix given by its columns to
// a quaternion in x, y, z, w order.
func quaternionFromColumns(c1, c2, c3 [3]float64) [4]float64 {
	r := [3][3]float64{
		{c1[0], c2[0], c3[0]},
		{c1[1], c2[1], c3[1]},
		{c1[2], c2[2], c3[2]},
	}
	trace := r[0][0] + r[1][1] + r[2][2]
	var q [4]float64
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q[3] = 0.25 / s
		q[0] = (r[2][1] - r[1][2]) * s
		q[1] = (r[0][2] - r[2][0]) * s
		q[2] = (r[1][0] - r[0][1]) * s
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := 2 * math.Sqrt(1+r[0][0]-r[1][1]-r[2][2])
		q[3] = (r[2][1] - r[1][2]) / s
		q[0] = 0.25 * s
		q[1] = (r[0][1] + r[1][0]) / s
		q[2] = (r[0][2] + r[2][0]) / s
	case r[1][1] > r[2][2]:
		s := 2 * math.Sqrt(1+r[1][1]-r[0][0]-r[2][2])
		q[3] = (r[0][2] - r[2][0]) / s
		q[0] = (r[0][1] + r[1][0]) / s
		q[1] = 0.25 * s
		q[2] = (r[1][2] + r[2][1]) / s
	default:
		s := 2 * math.Sqrt(1+r[2][2]-r[0][0]-r[1][1])
		q[3] = (r[1][0] - r[0][1]) / s
		q[0] = (r[0][2] + r[2][0]) / s
		q[1] = (r[1][2] + r[2][1]) / s
		q[2] = 0.25 * s
	}
	if q[3] < 0 {
		for i := range q {
			q[i] = -q[i]
		}
	}
	return q
}

// EulerNegY converts a quaternion in x, y, z, w order to roll, pitch, yaw
// in degrees, with pitch negated for the y-down camera frame.
func EulerNegY(q [4]float64) (roll, pitch, yaw float64) {
	sinrCosp := 2 * (q[3]*q[0] + q[1]*q[2])
	cosrCosp := 1 - 2*(q[0]*q[0]+q[1]*q[1])
	roll = math.Atan2(sinrCosp, cosrCosp)

	sinp := 2 * (q[3]*q[1] - q[2]*q[0])
	if math.Abs(sinp) >= 1 {
		pitch = math.Copysign(math.Pi/2, sinp)
	} else {
		pitch = math.Asin(sinp)
	}

	sinyCosp := 2 * (q[3]*q[2] + q[0]*q[1])
	cosyCosp := 1 - 2*(q[1]*q[1]+q[2]*q[2])
	yaw = math.Atan2(sinyCosp, cosyCosp)

	deg := 180 / math.Pi
	return roll * deg, -pitch * deg, yaw * deg
}
