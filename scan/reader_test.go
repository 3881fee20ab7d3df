package scan

import (
	"image"
	"math"
	"testing"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/detector"
	"github.com/S-SB/gp-tag-mobile/encoder"
)

func testData() *gptag.TagData {
	return &gptag.TagData{
		Latitude:   63.8203894,
		Longitude:  20.3058847,
		Altitude:   45.16,
		Quaternion: [4]float64{0.707, 0, 0.707, 0},
		Accuracy:   2,
		Scale:      0.36,
		TagID:      123,
		VersionID:  3,
	}
}

// tagFrame renders the test tag at the detector's template resolution onto
// a white canvas.
func tagFrame(t *testing.T, frameSize, offset int) *image.Gray {
	t.Helper()
	tag, err := encoder.Render(testData(), detector.DefaultConfig().TemplateUnit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	frame := image.NewGray(image.Rect(0, 0, frameSize, frameSize))
	for i := range frame.Pix {
		frame.Pix[i] = 255
	}
	size := tag.Bounds().Dx()
	for y := 0; y < size; y++ {
		copy(frame.Pix[(y+offset)*frame.Stride+offset:], tag.Pix[y*tag.Stride:y*tag.Stride+size])
	}
	return frame
}

func rotateCW(src *image.Gray) *image.Gray {
	size := src.Bounds().Dx()
	dst := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dst.Pix[y*dst.Stride+x] = src.Pix[(size-1-x)*src.Stride+y]
		}
	}
	return dst
}

func TestReadGrayFullPipeline(t *testing.T) {
	r := NewReader(detector.DefaultConfig())
	frame := tagFrame(t, 420, 60)

	result, err := r.ReadGray(frame)
	if err != nil {
		t.Fatalf("ReadGray: %v", err)
	}
	in := testData()
	if result.Data.TagID != in.TagID || result.Data.VersionID != in.VersionID {
		t.Errorf("id = %d/%d, want %d/%d",
			result.Data.TagID, result.Data.VersionID, in.TagID, in.VersionID)
	}
	if math.Abs(result.Data.Latitude-in.Latitude) > 1e-6 {
		t.Errorf("latitude = %v, want %v", result.Data.Latitude, in.Latitude)
	}
	if result.ErrorsCorrected != 0 {
		t.Errorf("corrected = %d, want 0", result.ErrorsCorrected)
	}
	if result.Confidence <= 0 || result.Confidence > 1 {
		t.Errorf("confidence = %v", result.Confidence)
	}
	// The tag spans offset..offset+288 in the frame.
	want := gptag.Corners{
		{X: 60, Y: 60}, {X: 348, Y: 60}, {X: 348, Y: 348}, {X: 60, Y: 348},
	}
	for i := range want {
		if dist := result.Corners[i].Distance(want[i]); dist > 2 {
			t.Errorf("corner %d = %v, want %v", i, result.Corners[i], want[i])
		}
	}
	if result.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

// remap compresses a rendered frame's dynamic range so black becomes lo and
// white becomes hi.
func remap(frame *image.Gray, lo, hi uint8) *image.Gray {
	out := image.NewGray(frame.Bounds())
	for i, v := range frame.Pix {
		if v < 128 {
			out.Pix[i] = lo
		} else {
			out.Pix[i] = hi
		}
	}
	return out
}

func TestReadGrayFixedThreshold(t *testing.T) {
	// Black prints at 100 and white at 200, so only a cut between the two
	// separates the cells.
	frame := remap(tagFrame(t, 420, 60), 100, 200)
	in := testData()

	good := NewReaderConfig(Config{
		Detector: detector.DefaultConfig(),
		Strategy: StrategyFixed,
		FixedCut: 150,
	})
	result, err := good.ReadGray(frame)
	if err != nil {
		t.Fatalf("ReadGray with cut 150: %v", err)
	}
	if result.Data.TagID != in.TagID {
		t.Errorf("tag id = %d, want %d", result.Data.TagID, in.TagID)
	}

	// A cut below the black level classifies every cell white; the same
	// frame must no longer yield the payload.
	low := NewReaderConfig(Config{
		Detector: detector.DefaultConfig(),
		Strategy: StrategyFixed,
		FixedCut: 90,
	})
	if result, err := low.ReadGray(frame); err == nil && result.Data.TagID == in.TagID {
		t.Error("cut 90 on a 100/200 frame still decoded the payload; the configured cut is not applied")
	}
}

func TestReadGrayGlobalThreshold(t *testing.T) {
	r := NewReaderConfig(Config{
		Detector: detector.DefaultConfig(),
		Strategy: StrategyGlobal,
	})
	frame := remap(tagFrame(t, 420, 60), 100, 200)
	result, err := r.ReadGray(frame)
	if err != nil {
		t.Fatalf("ReadGray: %v", err)
	}
	if result.Data.TagID != testData().TagID {
		t.Errorf("tag id = %d, want %d", result.Data.TagID, testData().TagID)
	}
}

func TestParseStrategy(t *testing.T) {
	for _, name := range []string{"reference", "global", "fixed"} {
		s, err := ParseStrategy(name)
		if err != nil || string(s) != name {
			t.Errorf("ParseStrategy(%q) = %q, %v", name, s, err)
		}
	}
	if _, err := ParseStrategy("adaptive"); err == nil {
		t.Error("expected error for unknown strategy name")
	}
}

func TestReadGrayRotatedFrame(t *testing.T) {
	r := NewReader(detector.DefaultConfig())
	frame := rotateCW(tagFrame(t, 420, 60))

	result, err := r.ReadGray(frame)
	if err != nil {
		t.Fatalf("ReadGray on rotated frame: %v", err)
	}
	if result.Data.TagID != testData().TagID {
		t.Errorf("tag id = %d, want %d", result.Data.TagID, testData().TagID)
	}
}

func TestReadGrayEmptyFrame(t *testing.T) {
	r := NewReader(detector.DefaultConfig())
	flat := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range flat.Pix {
		flat.Pix[i] = 180
	}
	_, err := r.ReadGray(flat)
	if err == nil {
		t.Fatal("expected error on empty frame")
	}
	if !IsNoTag(err) {
		t.Errorf("IsNoTag(%v) = false, want true", err)
	}
}

func TestReadConvertsColor(t *testing.T) {
	r := NewReader(detector.DefaultConfig())
	gray := tagFrame(t, 420, 60)
	rgba := image.NewRGBA(gray.Bounds())
	for y := 0; y < 420; y++ {
		for x := 0; x < 420; x++ {
			v := gray.GrayAt(x, y).Y
			i := rgba.PixOffset(x, y)
			rgba.Pix[i] = v
			rgba.Pix[i+1] = v
			rgba.Pix[i+2] = v
			rgba.Pix[i+3] = 255
		}
	}
	result, err := r.Read(rgba)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if result.Data.TagID != testData().TagID {
		t.Errorf("tag id = %d, want %d", result.Data.TagID, testData().TagID)
	}
}

func TestIsNoTag(t *testing.T) {
	if !IsNoTag(gptag.ErrNoCandidate) || !IsNoTag(gptag.ErrUncorrectable) {
		t.Error("pipeline sentinels should classify as no-tag")
	}
	if IsNoTag(image.ErrFormat) {
		t.Error("unrelated error should not classify as no-tag")
	}
}
