package transform

import (
	"math"
	"math/rand"
	"testing"
)

func TestSquareToQuadrilateral(t *testing.T) {
	pt := SquareToQuadrilateral(2, 3, 10, 4, 16, 15, 4, 9)
	checks := [][4]float64{
		{0, 0, 2, 3},
		{1, 0, 10, 4},
		{1, 1, 16, 15},
		{0, 1, 4, 9},
	}
	for _, c := range checks {
		x, y := pt.Apply(c[0], c[1])
		if math.Abs(x-c[2]) > 1e-9 || math.Abs(y-c[3]) > 1e-9 {
			t.Errorf("Apply(%v, %v) = (%v, %v), want (%v, %v)", c[0], c[1], x, y, c[2], c[3])
		}
	}
}

func TestQuadrilateralToQuadrilateral(t *testing.T) {
	pt := QuadrilateralToQuadrilateral(
		0, 0, 100, 0, 100, 100, 0, 100,
		10, 20, 90, 15, 105, 110, 5, 95)
	x, y := pt.Apply(100, 100)
	if math.Abs(x-105) > 1e-6 || math.Abs(y-110) > 1e-6 {
		t.Errorf("corner maps to (%v, %v), want (105, 110)", x, y)
	}
	// Interior points stay interior.
	x, y = pt.Apply(50, 50)
	if x < 5 || x > 105 || y < 15 || y > 110 {
		t.Errorf("interior point escaped: (%v, %v)", x, y)
	}
}

func TestTransformPoints(t *testing.T) {
	pt := SquareToQuadrilateral(0, 0, 2, 0, 2, 2, 0, 2)
	points := []float64{0.5, 0.5, 1, 0}
	pt.TransformPoints(points)
	want := []float64{1, 1, 2, 0}
	for i := range want {
		if math.Abs(points[i]-want[i]) > 1e-9 {
			t.Errorf("points[%d] = %v, want %v", i, points[i], want[i])
		}
	}
}

func TestRotationAbout(t *testing.T) {
	// One quarter turn clockwise about (10, 10) in y-down coordinates takes a
	// point to the right of the center to a point below it.
	rot := RotationAbout(10, 10, 1)
	x, y := rot.Apply(15, 10)
	if math.Abs(x-10) > 1e-9 || math.Abs(y-15) > 1e-9 {
		t.Errorf("quarter turn: (15,10) -> (%v, %v), want (10, 15)", x, y)
	}

	// Four quarter turns compose to identity.
	composed := RotationAbout(10, 10, 0)
	for i := 0; i < 4; i++ {
		composed = RotationAbout(10, 10, 1).Times(composed)
	}
	x, y = composed.Apply(3, 7)
	if math.Abs(x-3) > 1e-9 || math.Abs(y-7) > 1e-9 {
		t.Errorf("four quarter turns: (3,7) -> (%v, %v), want identity", x, y)
	}

	// Negative turns normalize.
	a := RotationAbout(0, 0, -1)
	b := RotationAbout(0, 0, 3)
	ax, ay := a.Apply(1, 2)
	bx, by := b.Apply(1, 2)
	if math.Abs(ax-bx) > 1e-9 || math.Abs(ay-by) > 1e-9 {
		t.Errorf("RotationAbout(-1) != RotationAbout(3): (%v,%v) vs (%v,%v)", ax, ay, bx, by)
	}
}

func TestIsDegenerate(t *testing.T) {
	good := SquareToQuadrilateral(0, 0, 1, 0, 1, 1, 0, 1)
	if good.IsDegenerate() {
		t.Error("identity-like transform reported degenerate")
	}
	// All four corners collinear collapses the plane.
	bad := SquareToQuadrilateral(0, 0, 1, 1, 2, 2, 3, 3)
	if !bad.IsDegenerate() {
		t.Error("collapsing transform not reported degenerate")
	}
}

func syntheticMatches(model *PerspectiveTransform, n int, rng *rand.Rand) []Match {
	matches := make([]Match, n)
	for i := range matches {
		sx := rng.Float64() * 200
		sy := rng.Float64() * 200
		dx, dy := model.Apply(sx, sy)
		matches[i] = Match{SrcX: sx, SrcY: sy, DstX: dx, DstY: dy}
	}
	return matches
}

func TestEstimateRANSACRecoversModel(t *testing.T) {
	truth := QuadrilateralToQuadrilateral(
		0, 0, 200, 0, 200, 200, 0, 200,
		310, 140, 520, 160, 500, 390, 300, 370)
	rng := rand.New(rand.NewSource(7))
	matches := syntheticMatches(truth, 40, rng)

	// Contaminate a third of the matches with gross outliers.
	for i := 0; i < 13; i++ {
		matches[i*3].DstX += 50 + rng.Float64()*100
		matches[i*3].DstY -= 50 + rng.Float64()*100
	}

	model, inliers, err := EstimateRANSAC(matches, DefaultRANSACConfig())
	if err != nil {
		t.Fatalf("EstimateRANSAC: %v", err)
	}
	if len(inliers) < 27 {
		t.Errorf("inliers = %d, want >= 27", len(inliers))
	}
	for _, pt := range [][2]float64{{0, 0}, {200, 0}, {100, 100}, {200, 200}} {
		wx, wy := truth.Apply(pt[0], pt[1])
		gx, gy := model.Apply(pt[0], pt[1])
		if math.Hypot(gx-wx, gy-wy) > 1.0 {
			t.Errorf("point %v maps to (%v, %v), want (%v, %v)", pt, gx, gy, wx, wy)
		}
	}
}

func TestLeastSquaresFitOffsetCoordinates(t *testing.T) {
	truth := QuadrilateralToQuadrilateral(
		1000, 2000, 1200, 2000, 1200, 2200, 1000, 2200,
		5310, 7140, 5520, 7160, 5500, 7390, 5300, 7370)
	rng := rand.New(rand.NewSource(5))
	matches := make([]Match, 20)
	for i := range matches {
		sx := 1000 + rng.Float64()*200
		sy := 2000 + rng.Float64()*200
		dx, dy := truth.Apply(sx, sy)
		matches[i] = Match{SrcX: sx, SrcY: sy, DstX: dx, DstY: dy}
	}

	model := fitLeastSquares(matches)
	if model == nil {
		t.Fatal("nil fit on exact correspondences")
	}
	// Far-from-origin coordinates exercise the normalize/denormalize pair;
	// exact correspondences must come back essentially exact.
	for _, pt := range [][2]float64{{1000, 2000}, {1100, 2100}, {1200, 2200}} {
		wx, wy := truth.Apply(pt[0], pt[1])
		gx, gy := model.Apply(pt[0], pt[1])
		if math.Hypot(gx-wx, gy-wy) > 1e-5 {
			t.Errorf("point %v maps to (%v, %v), want (%v, %v)", pt, gx, gy, wx, wy)
		}
	}
}

func TestEstimateRANSACNoisyInliers(t *testing.T) {
	truth := QuadrilateralToQuadrilateral(
		0, 0, 200, 0, 200, 200, 0, 200,
		100, 100, 400, 120, 380, 420, 90, 400)
	rng := rand.New(rand.NewSource(11))
	matches := syntheticMatches(truth, 60, rng)
	for i := range matches {
		matches[i].DstX += rng.NormFloat64() * 0.5
		matches[i].DstY += rng.NormFloat64() * 0.5
	}

	model, inliers, err := EstimateRANSAC(matches, DefaultRANSACConfig())
	if err != nil {
		t.Fatalf("EstimateRANSAC: %v", err)
	}
	if len(inliers) < 50 {
		t.Errorf("inliers = %d, want >= 50", len(inliers))
	}
	wx, wy := truth.Apply(100, 100)
	gx, gy := model.Apply(100, 100)
	if math.Hypot(gx-wx, gy-wy) > 1.5 {
		t.Errorf("center maps to (%v, %v), want near (%v, %v)", gx, gy, wx, wy)
	}
}

func TestEstimateRANSACTooFewMatches(t *testing.T) {
	matches := []Match{
		{0, 0, 0, 0}, {1, 0, 1, 0}, {1, 1, 1, 1},
	}
	if _, _, err := EstimateRANSAC(matches, DefaultRANSACConfig()); err == nil {
		t.Error("expected error for 3 matches")
	}
}

func TestEstimateRANSACPureNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	matches := make([]Match, 30)
	for i := range matches {
		matches[i] = Match{
			SrcX: rng.Float64() * 500, SrcY: rng.Float64() * 500,
			DstX: rng.Float64() * 500, DstY: rng.Float64() * 500,
		}
	}
	cfg := DefaultRANSACConfig()
	cfg.MinInliers = 12
	if _, _, err := EstimateRANSAC(matches, cfg); err == nil {
		t.Error("expected estimation failure on uncorrelated matches")
	}
}
