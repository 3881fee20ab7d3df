// Package feature detects and describes interest points for template
// matching: FAST corners over an image pyramid, orientation by intensity
// centroid, and 256-bit binary descriptors compared by Hamming distance.
package feature

import "image"

// Level is one pyramid layer. Scale maps level coordinates back to the
// original image: fullX = x / Scale.
type Level struct {
	Img   *image.Gray
	Scale float64
}

// BuildPyramid returns successive half-resolution layers, starting with the
// original image at scale 1. Levels too small to hold a descriptor patch
// are dropped.
func BuildPyramid(img *image.Gray, levels int) []Level {
	out := make([]Level, 0, levels)
	cur := img
	scale := 1.0
	for i := 0; i < levels; i++ {
		if cur.Bounds().Dx() < 2*patchRadius+3 || cur.Bounds().Dy() < 2*patchRadius+3 {
			break
		}
		out = append(out, Level{Img: cur, Scale: scale})
		cur = halve(cur)
		scale /= 2
	}
	return out
}

// halve downsamples by averaging 2x2 pixel blocks.
func halve(src *image.Gray) *image.Gray {
	w := src.Bounds().Dx() / 2
	h := src.Bounds().Dy() / 2
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		srcRow0 := src.Pix[(2*y)*src.Stride:]
		srcRow1 := src.Pix[(2*y+1)*src.Stride:]
		dstRow := dst.Pix[y*dst.Stride:]
		for x := 0; x < w; x++ {
			sum := uint32(srcRow0[2*x]) + uint32(srcRow0[2*x+1]) +
				uint32(srcRow1[2*x]) + uint32(srcRow1[2*x+1])
			dstRow[x] = uint8((sum + 2) / 4)
		}
	}
	return dst
}

// boxBlur3 smooths with a 3x3 box filter, used before descriptor sampling
// to make the binary tests less noise-sensitive.
func boxBlur3(src *image.Gray) *image.Gray {
	w := src.Bounds().Dx()
	h := src.Bounds().Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := y-1, y+1
		if y0 < 0 {
			y0 = 0
		}
		if y1 >= h {
			y1 = h - 1
		}
		for x := 0; x < w; x++ {
			x0, x1 := x-1, x+1
			if x0 < 0 {
				x0 = 0
			}
			if x1 >= w {
				x1 = w - 1
			}
			var sum uint32
			for yy := y0; yy <= y1; yy++ {
				row := src.Pix[yy*src.Stride:]
				sum += uint32(row[x0]) + uint32(row[x]) + uint32(row[x1])
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum / 9)
		}
	}
	return dst
}
