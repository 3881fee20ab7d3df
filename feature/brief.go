package feature

import (
	"image"
	"math"
	"math/rand"
)

// patchRadius bounds both the orientation patch and the descriptor test
// pattern around a keypoint.
const patchRadius = 15

// descriptorBits is the descriptor length; Descriptor packs it into four
// 64-bit words.
const descriptorBits = 256

// Descriptor is a 256-bit binary descriptor.
type Descriptor [4]uint64

// testPattern holds the point pairs compared by the descriptor, generated
// once from a fixed seed so every extraction uses the same pattern.
var testPattern [descriptorBits][4]float64

func init() {
	rng := rand.New(rand.NewSource(0x6270))
	sample := func() float64 {
		// Gaussian spread clipped to the patch, concentrating tests near
		// the keypoint.
		for {
			v := rng.NormFloat64() * float64(patchRadius) / 2.5
			if v > -patchRadius && v < patchRadius {
				return v
			}
		}
	}
	for i := range testPattern {
		testPattern[i] = [4]float64{sample(), sample(), sample(), sample()}
	}
}

// orientation returns the intensity-centroid angle of the circular patch
// around (x, y).
func orientation(img *image.Gray, x, y int) float64 {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	var m10, m01 float64
	for dy := -patchRadius; dy <= patchRadius; dy++ {
		py := y + dy
		if py < 0 || py >= h {
			continue
		}
		row := img.Pix[py*img.Stride:]
		for dx := -patchRadius; dx <= patchRadius; dx++ {
			px := x + dx
			if px < 0 || px >= w {
				continue
			}
			if dx*dx+dy*dy > patchRadius*patchRadius {
				continue
			}
			v := float64(row[px])
			m10 += float64(dx) * v
			m01 += float64(dy) * v
		}
	}
	return math.Atan2(m01, m10)
}

// describe computes the rotated binary descriptor at (x, y) with the given
// patch angle. img should be pre-smoothed.
func describe(img *image.Gray, x, y int, angle float64) Descriptor {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	sin, cos := math.Sincos(angle)

	at := func(dx, dy float64) uint8 {
		rx := x + int(math.Round(cos*dx-sin*dy))
		ry := y + int(math.Round(sin*dx+cos*dy))
		if rx < 0 {
			rx = 0
		} else if rx >= w {
			rx = w - 1
		}
		if ry < 0 {
			ry = 0
		} else if ry >= h {
			ry = h - 1
		}
		return img.Pix[ry*img.Stride+rx]
	}

	var d Descriptor
	for i, t := range testPattern {
		if at(t[0], t[1]) < at(t[2], t[3]) {
			d[i>>6] |= 1 << uint(i&63)
		}
	}
	return d
}
