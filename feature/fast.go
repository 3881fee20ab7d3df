package feature

import "image"

// Bresenham circle of radius 3 around the candidate pixel, the FAST
// segment test ring, clockwise from 12 o'clock.
var circleOffsets = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// segment test arc length for FAST-9.
const fastArc = 9

type corner struct {
	x, y     int
	response float64
}

// detectFAST runs the FAST-9 segment test over the interior of img and
// returns corners surviving 3x3 non-maximum suppression on response.
func detectFAST(img *image.Gray, threshold int) []corner {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w < 7 || h < 7 {
		return nil
	}

	ringOff := [16]int{}
	for i, o := range circleOffsets {
		ringOff[i] = o[1]*img.Stride + o[0]
	}

	responses := make([]float64, w*h)
	var corners []corner
	for y := 3; y < h-3; y++ {
		rowBase := y * img.Stride
		for x := 3; x < w-3; x++ {
			center := int(img.Pix[rowBase+x])
			high := center + threshold
			low := center - threshold

			// Cheap reject using the four compass points.
			p0 := int(img.Pix[rowBase+x+ringOff[0]])
			p8 := int(img.Pix[rowBase+x+ringOff[8]])
			p4 := int(img.Pix[rowBase+x+ringOff[4]])
			p12 := int(img.Pix[rowBase+x+ringOff[12]])
			brighter := 0
			darker := 0
			for _, p := range [4]int{p0, p4, p8, p12} {
				if p > high {
					brighter++
				} else if p < low {
					darker++
				}
			}
			if brighter < 3 && darker < 3 {
				continue
			}

			if r := segmentTest(img.Pix, rowBase+x, ringOff, center, threshold); r > 0 {
				responses[y*w+x] = r
				corners = append(corners, corner{x: x, y: y, response: r})
			}
		}
	}

	// Non-maximum suppression over the 8-neighborhood.
	out := corners[:0]
	for _, c := range corners {
		r := responses[c.y*w+c.x]
		maximal := true
		for dy := -1; dy <= 1 && maximal; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				n := responses[(c.y+dy)*w+c.x+dx]
				if n > r || (n == r && (dy < 0 || (dy == 0 && dx < 0))) {
					maximal = false
					break
				}
			}
		}
		if maximal {
			out = append(out, c)
		}
	}
	return out
}

// segmentTest checks for a contiguous arc of at least fastArc ring pixels
// all brighter or all darker than the center by the threshold. It returns
// the corner response, the summed absolute ring differences, or 0.
func segmentTest(pix []uint8, centerIdx int, ringOff [16]int, center, threshold int) float64 {
	var diffs [16]int
	for i, off := range ringOff {
		diffs[i] = int(pix[centerIdx+off]) - center
	}

	ok := func(brighter bool) bool {
		run := 0
		// Walk the ring twice to catch arcs wrapping past index 15.
		for i := 0; i < 32; i++ {
			d := diffs[i&15]
			hit := d > threshold
			if !brighter {
				hit = d < -threshold
			}
			if hit {
				run++
				if run >= fastArc {
					return true
				}
			} else {
				run = 0
			}
		}
		return false
	}

	if !ok(true) && !ok(false) {
		return 0
	}
	sum := 0
	for _, d := range diffs {
		if d < 0 {
			sum -= d
		} else {
			sum += d
		}
	}
	return float64(sum)
}
