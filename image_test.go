package gptag

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func TestToGrayLuminanceWeights(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 1))
	src.Set(0, 0, color.RGBA{R: 255, A: 255})
	src.Set(1, 0, color.RGBA{G: 255, A: 255})
	src.Set(2, 0, color.RGBA{B: 255, A: 255})
	gray := ToGray(src)
	want := []uint8{
		uint8((306*255 + 0x200) >> 10),
		uint8((601*255 + 0x200) >> 10),
		uint8((117*255 + 0x200) >> 10),
	}
	for i, w := range want {
		if got := gray.GrayAt(i, 0).Y; got != w {
			t.Errorf("channel %d luminance = %d, want %d", i, got, w)
		}
	}
}

func TestToGrayPassThrough(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 4))
	if ToGray(src) != src {
		t.Error("gray input should be returned unchanged")
	}
}

func TestToGrayYCbCrUsesLuma(t *testing.T) {
	src := image.NewYCbCr(image.Rect(0, 0, 4, 2), image.YCbCrSubsampleRatio420)
	for i := range src.Y {
		src.Y[i] = uint8(i * 10)
	}
	gray := ToGray(src)
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			if gray.GrayAt(x, y).Y != src.Y[y*src.YStride+x] {
				t.Fatalf("luma mismatch at (%d, %d)", x, y)
			}
		}
	}
}

func TestSampleBilinear(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 100})
	img.SetGray(0, 1, color.Gray{Y: 200})
	img.SetGray(1, 1, color.Gray{Y: 100})

	// Pixel centers return exact values.
	if got := SampleBilinear(img, 0.5, 0.5); got != 0 {
		t.Errorf("sample at (0.5, 0.5) = %v, want 0", got)
	}
	if got := SampleBilinear(img, 1.5, 1.5); got != 100 {
		t.Errorf("sample at (1.5, 1.5) = %v, want 100", got)
	}
	// Midpoint of the four pixels averages them.
	if got := SampleBilinear(img, 1, 1); math.Abs(got-100) > 1e-9 {
		t.Errorf("sample at (1, 1) = %v, want 100", got)
	}
	// Out-of-bounds clamps to the edge.
	if got := SampleBilinear(img, -5, 0.5); got != 0 {
		t.Errorf("clamped sample = %v, want 0", got)
	}
	if got := SampleBilinear(img, 5, 5); got != 100 {
		t.Errorf("clamped sample = %v, want 100", got)
	}
}
