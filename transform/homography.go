package transform

import (
	"errors"
	"math"
	"math/rand"
)

// ErrEstimateFailed is returned when no geometrically consistent homography
// can be estimated from a match set. This is an expected outcome for frames
// that contain no tag.
var ErrEstimateFailed = errors.New("transform: homography estimation failed")

// Match is a point correspondence from the source plane (template) to the
// destination plane (frame).
type Match struct {
	SrcX, SrcY float64
	DstX, DstY float64
}

// RANSACConfig tunes robust homography estimation.
type RANSACConfig struct {
	// Iterations is the number of random minimal-sample hypotheses to try.
	Iterations int

	// InlierThreshold is the maximum reprojection distance in destination
	// pixels for a match to count as an inlier.
	InlierThreshold float64

	// MinInliers is the minimum consensus size for a model to be accepted.
	// Four matches determine a homography, so anything useful is higher.
	MinInliers int

	// Seed makes the sampling deterministic; zero selects a fixed default.
	Seed int64
}

// DefaultRANSACConfig returns the tuning used by the candidate detector.
func DefaultRANSACConfig() RANSACConfig {
	return RANSACConfig{
		Iterations:      500,
		InlierThreshold: 3.0,
		MinInliers:      8,
	}
}

// EstimateRANSAC robustly fits a homography to a set of noisy matches using
// random minimal samples and consensus counting, then refines the winning
// model by least squares over its inliers. It returns the model and the
// indices of the inlier matches.
func EstimateRANSAC(matches []Match, cfg RANSACConfig) (*PerspectiveTransform, []int, error) {
	if cfg.Iterations <= 0 {
		cfg = DefaultRANSACConfig()
	}
	if len(matches) < 4 || len(matches) < cfg.MinInliers {
		return nil, nil, ErrEstimateFailed
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	thrSq := cfg.InlierThreshold * cfg.InlierThreshold
	var best *PerspectiveTransform
	bestInliers := 0

	for iter := 0; iter < cfg.Iterations; iter++ {
		idx, ok := sampleFour(rng, len(matches))
		if !ok {
			break
		}
		s := [4]Match{matches[idx[0]], matches[idx[1]], matches[idx[2]], matches[idx[3]]}
		if sampleDegenerate(s) {
			continue
		}
		model := QuadrilateralToQuadrilateral(
			s[0].SrcX, s[0].SrcY, s[1].SrcX, s[1].SrcY, s[2].SrcX, s[2].SrcY, s[3].SrcX, s[3].SrcY,
			s[0].DstX, s[0].DstY, s[1].DstX, s[1].DstY, s[2].DstX, s[2].DstY, s[3].DstX, s[3].DstY)
		if model.IsDegenerate() {
			continue
		}
		count := countInliers(model, matches, thrSq, nil)
		if count > bestInliers {
			bestInliers = count
			best = model
		}
	}

	if best == nil || bestInliers < cfg.MinInliers {
		return nil, nil, ErrEstimateFailed
	}

	inliers := make([]int, 0, bestInliers)
	countInliers(best, matches, thrSq, &inliers)

	// Least-squares refinement over the consensus set. Kept only when it does
	// not shrink the consensus.
	if refined := fitLeastSquares(selectMatches(matches, inliers)); refined != nil && !refined.IsDegenerate() {
		if countInliers(refined, matches, thrSq, nil) >= bestInliers {
			best = refined
			inliers = inliers[:0]
			countInliers(best, matches, thrSq, &inliers)
		}
	}

	if len(inliers) < cfg.MinInliers {
		return nil, nil, ErrEstimateFailed
	}
	return best, inliers, nil
}

func sampleFour(rng *rand.Rand, n int) ([4]int, bool) {
	var idx [4]int
	if n < 4 {
		return idx, false
	}
	for i := 0; i < 4; i++ {
	retry:
		v := rng.Intn(n)
		for j := 0; j < i; j++ {
			if idx[j] == v {
				goto retry
			}
		}
		idx[i] = v
	}
	return idx, true
}

// sampleDegenerate rejects minimal samples where any three source or
// destination points are (near) collinear.
func sampleDegenerate(s [4]Match) bool {
	collinear := func(x0, y0, x1, y1, x2, y2 float64) bool {
		area := (x1-x0)*(y2-y0) - (y1-y0)*(x2-x0)
		d01 := math.Hypot(x1-x0, y1-y0)
		d02 := math.Hypot(x2-x0, y2-y0)
		scale := d01 * d02
		return scale == 0 || math.Abs(area) < 1e-3*scale
	}
	for i := 0; i < 2; i++ {
		for j := i + 1; j < 3; j++ {
			for k := j + 1; k < 4; k++ {
				if collinear(s[i].SrcX, s[i].SrcY, s[j].SrcX, s[j].SrcY, s[k].SrcX, s[k].SrcY) {
					return true
				}
				if collinear(s[i].DstX, s[i].DstY, s[j].DstX, s[j].DstY, s[k].DstX, s[k].DstY) {
					return true
				}
			}
		}
	}
	return false
}

func countInliers(model *PerspectiveTransform, matches []Match, thrSq float64, out *[]int) int {
	count := 0
	for i, m := range matches {
		px, py := model.Apply(m.SrcX, m.SrcY)
		dx := px - m.DstX
		dy := py - m.DstY
		if dx*dx+dy*dy <= thrSq {
			count++
			if out != nil {
				*out = append(*out, i)
			}
		}
	}
	return count
}

func selectMatches(matches []Match, idx []int) []Match {
	out := make([]Match, len(idx))
	for i, j := range idx {
		out[i] = matches[j]
	}
	return out
}

// fitLeastSquares solves the direct linear transform over all given matches
// with Hartley-style coordinate normalization for conditioning. Returns nil
// when the system is singular.
func fitLeastSquares(matches []Match) *PerspectiveTransform {
	if len(matches) < 4 {
		return nil
	}

	srcNorm := normalization(matches, true)
	dstNorm := normalization(matches, false)

	// Normal equations A^T A h = A^T b for the eight homography parameters
	// with a33 fixed to 1.
	var ata [8][8]float64
	var atb [8]float64
	addRow := func(row [8]float64, rhs float64) {
		for i := 0; i < 8; i++ {
			if row[i] == 0 {
				continue
			}
			for j := 0; j < 8; j++ {
				ata[i][j] += row[i] * row[j]
			}
			atb[i] += row[i] * rhs
		}
	}
	for _, m := range matches {
		x, y := srcNorm.Apply(m.SrcX, m.SrcY)
		xp, yp := dstNorm.Apply(m.DstX, m.DstY)
		addRow([8]float64{x, y, 1, 0, 0, 0, -xp * x, -xp * y}, xp)
		addRow([8]float64{0, 0, 0, x, y, 1, -yp * x, -yp * y}, yp)
	}

	h, ok := solve8(ata, atb)
	if !ok {
		return nil
	}
	hn := &PerspectiveTransform{
		a11: h[0], a21: h[1], a31: h[2],
		a12: h[3], a22: h[4], a32: h[5],
		a13: h[6], a23: h[7], a33: 1,
	}
	return denormalize(dstNorm).Times(hn.Times(srcNorm))
}

// normalization returns the similarity transform moving the point set to a
// zero centroid with average distance sqrt(2).
func normalization(matches []Match, src bool) *PerspectiveTransform {
	var cx, cy float64
	for _, m := range matches {
		if src {
			cx += m.SrcX
			cy += m.SrcY
		} else {
			cx += m.DstX
			cy += m.DstY
		}
	}
	n := float64(len(matches))
	cx /= n
	cy /= n
	var meanDist float64
	for _, m := range matches {
		if src {
			meanDist += math.Hypot(m.SrcX-cx, m.SrcY-cy)
		} else {
			meanDist += math.Hypot(m.DstX-cx, m.DstY-cy)
		}
	}
	meanDist /= n
	s := 1.0
	if meanDist > 0 {
		s = math.Sqrt2 / meanDist
	}
	return &PerspectiveTransform{
		a11: s, a21: 0, a31: -s * cx,
		a12: 0, a22: s, a32: -s * cy,
		a13: 0, a23: 0, a33: 1,
	}
}

// denormalize inverts a scale-and-translate normalizer.
func denormalize(n *PerspectiveTransform) *PerspectiveTransform {
	return &PerspectiveTransform{
		a11: 1 / n.a11, a21: 0, a31: -n.a31 / n.a11,
		a12: 0, a22: 1 / n.a22, a32: -n.a32 / n.a22,
		a13: 0, a23: 0, a33: 1,
	}
}

// solve8 performs Gaussian elimination with partial pivoting on an 8x8
// system.
func solve8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	const n = 8
	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return b, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]
		for row := col + 1; row < n; row++ {
			f := a[row][col] / a[col][col]
			for k := col; k < n; k++ {
				a[row][k] -= f * a[col][k]
			}
			b[row] -= f * b[col]
		}
	}
	var x [8]float64
	for row := n - 1; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < n; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, true
}
