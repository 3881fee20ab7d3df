package feature

import (
	"image"
	"math"
	"math/rand"
	"testing"
)

func fillRect(img *image.Gray, x0, y0, x1, y1 int, v uint8) {
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if x >= 0 && y >= 0 && x < img.Bounds().Dx() && y < img.Bounds().Dy() {
				img.Pix[y*img.Stride+x] = v
			}
		}
	}
}

func TestHalve(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 2))
	copy(src.Pix, []uint8{
		10, 20, 100, 100,
		30, 40, 100, 104,
	})
	dst := halve(src)
	if dst.Bounds().Dx() != 2 || dst.Bounds().Dy() != 1 {
		t.Fatalf("halved size = %v", dst.Bounds())
	}
	if dst.Pix[0] != 25 {
		t.Errorf("pixel 0 = %d, want 25", dst.Pix[0])
	}
	if dst.Pix[1] != 101 {
		t.Errorf("pixel 1 = %d, want 101", dst.Pix[1])
	}
}

func TestBuildPyramid(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 160))
	levels := BuildPyramid(img, 3)
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(levels))
	}
	wantScales := []float64{1, 0.5, 0.25}
	wantWidths := []int{200, 100, 50}
	for i, l := range levels {
		if l.Scale != wantScales[i] {
			t.Errorf("level %d scale = %v, want %v", i, l.Scale, wantScales[i])
		}
		if l.Img.Bounds().Dx() != wantWidths[i] {
			t.Errorf("level %d width = %d, want %d", i, l.Img.Bounds().Dx(), wantWidths[i])
		}
	}

	tiny := image.NewGray(image.Rect(0, 0, 70, 70))
	if got := len(BuildPyramid(tiny, 3)); got != 2 {
		t.Errorf("pyramid of 70px image has %d levels, want 2", got)
	}
}

func TestDetectFASTFindsSquareCorners(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	fillRect(img, 0, 0, 64, 64, 255)
	fillRect(img, 20, 20, 41, 41, 0)

	corners := detectFAST(img, 20)
	if len(corners) == 0 {
		t.Fatal("no corners detected on a black square")
	}
	wantCorners := [][2]int{{20, 20}, {40, 20}, {20, 40}, {40, 40}}
	for _, w := range wantCorners {
		found := false
		for _, c := range corners {
			if math.Hypot(float64(c.x-w[0]), float64(c.y-w[1])) <= 2 {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no corner detected near (%d, %d)", w[0], w[1])
		}
	}
	// Straight edges are not corners.
	for _, c := range corners {
		if c.y == 30 && (c.x == 20 || c.x == 40) {
			t.Errorf("edge midpoint detected as corner: (%d, %d)", c.x, c.y)
		}
	}
}

func TestOrientationPointsTowardMass(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	fillRect(img, 32, 0, 64, 64, 255)
	if angle := orientation(img, 32, 32); math.Abs(angle) > 0.1 {
		t.Errorf("bright right half: angle = %v, want ~0", angle)
	}
	img2 := image.NewGray(image.Rect(0, 0, 64, 64))
	fillRect(img2, 0, 0, 64, 32, 255)
	if angle := orientation(img2, 32, 32); math.Abs(angle+math.Pi/2) > 0.1 {
		t.Errorf("bright top half: angle = %v, want ~-pi/2", angle)
	}
}

func TestHammingDistance(t *testing.T) {
	var a, b Descriptor
	if HammingDistance(a, b) != 0 {
		t.Error("identical descriptors should have distance 0")
	}
	b[0] = 0xF
	b[3] = 1 << 63
	if got := HammingDistance(a, b); got != 5 {
		t.Errorf("distance = %d, want 5", got)
	}
}

func TestMatchRatioRejectsAmbiguity(t *testing.T) {
	var q Descriptor
	q[0] = 0xFFFF
	near := q
	near[0] ^= 0x3 // distance 2
	train := []Descriptor{near, near}
	if got := MatchDescriptors([]Descriptor{q}, train, DefaultMatchConfig()); len(got) != 0 {
		t.Errorf("ambiguous match not rejected: %v", got)
	}

	var far Descriptor
	far[1] = ^uint64(0)
	train = []Descriptor{near, far}
	got := MatchDescriptors([]Descriptor{q}, train, DefaultMatchConfig())
	if len(got) != 1 || got[0].Train != 0 || got[0].Distance != 2 {
		t.Errorf("unambiguous match = %v, want train 0 at distance 2", got)
	}
}

// randomScene draws seeded random dark rectangles, offset by (dx, dy).
func randomScene(w, h, dx, dy int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	fillRect(img, 0, 0, w, h, 230)
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < 24; i++ {
		x := rng.Intn(w-40) + 8
		y := rng.Intn(h-40) + 8
		rw := rng.Intn(18) + 6
		rh := rng.Intn(18) + 6
		shade := uint8(rng.Intn(60))
		fillRect(img, x+dx, y+dy, x+dx+rw, y+dy+rh, shade)
	}
	return img
}

func TestExtractAndMatchTranslation(t *testing.T) {
	const dx, dy = 7, 4
	a := randomScene(240, 180, 0, 0)
	b := randomScene(240, 180, dx, dy)

	ex := NewExtractor(DefaultExtractorConfig())
	fa := ex.Extract(a)
	fb := ex.Extract(b)
	if len(fa.Keypoints) < 20 || len(fb.Keypoints) < 20 {
		t.Fatalf("too few keypoints: %d, %d", len(fa.Keypoints), len(fb.Keypoints))
	}
	if len(fa.Keypoints) != len(fa.Descriptors) {
		t.Fatal("keypoint/descriptor count mismatch")
	}

	matches := MatchDescriptors(fa.Descriptors, fb.Descriptors, DefaultMatchConfig())
	if len(matches) < 10 {
		t.Fatalf("matches = %d, want >= 10", len(matches))
	}
	consistent := 0
	for _, m := range matches {
		ka := fa.Keypoints[m.Query]
		kb := fb.Keypoints[m.Train]
		if math.Abs(kb.X-ka.X-dx) < 2 && math.Abs(kb.Y-ka.Y-dy) < 2 {
			consistent++
		}
	}
	if consistent*2 < len(matches) {
		t.Errorf("only %d of %d matches consistent with the translation", consistent, len(matches))
	}
}

func TestExtractOrdersByResponse(t *testing.T) {
	img := randomScene(240, 180, 0, 0)
	f := NewExtractor(ExtractorConfig{Levels: 2, FASTThreshold: 20, MaxFeatures: 30}).Extract(img)
	if len(f.Keypoints) > 30 {
		t.Fatalf("cap not applied: %d keypoints", len(f.Keypoints))
	}
	for i := 1; i < len(f.Keypoints); i++ {
		if f.Keypoints[i].Response > f.Keypoints[i-1].Response {
			t.Fatal("keypoints not sorted by response")
		}
	}
}
