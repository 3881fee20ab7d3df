package detector

import (
	"fmt"
	"image"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/layout"
	"github.com/S-SB/gp-tag-mobile/transform"
)

// Calibration is the luminance reference measured from the finder
// patterns, used to threshold data cell samples.
type Calibration struct {
	Black, White float64
}

// ValidateFinders samples all four finder blocks under the homography and
// checks every cell against the expected pattern. On success it returns
// the measured black and white reference luminances.
func (d *Detector) ValidateFinders(img *image.Gray, h *transform.PerspectiveTransform) (Calibration, error) {
	g := d.template.Geometry
	var blackSum, whiteSum float64
	var blackN, whiteN int
	type sample struct {
		value float64
		black bool
	}
	samples := make([]sample, 0, 100)

	for _, origin := range layout.FinderOrigins {
		for dy := 0; dy < 5; dy++ {
			for dx := 0; dx < 5; dx++ {
				cell := layout.Cell{X: origin.X + dx, Y: origin.Y + dy}
				tx, ty := g.CellCenter(cell)
				fx, fy := h.Apply(tx, ty)
				v := gptag.SampleBilinear(img, fx, fy)
				expectBlack := layout.FinderPattern[dy][dx]
				samples = append(samples, sample{value: v, black: expectBlack})
				if expectBlack {
					blackSum += v
					blackN++
				} else {
					whiteSum += v
					whiteN++
				}
			}
		}
	}

	cal := Calibration{Black: blackSum / float64(blackN), White: whiteSum / float64(whiteN)}
	if cal.White-cal.Black < 16 {
		return cal, fmt.Errorf("detector: finder contrast %.1f: %w",
			cal.White-cal.Black, gptag.ErrFinderMismatch)
	}
	cut := (cal.Black + cal.White) / 2
	for i, s := range samples {
		if (s.value < cut) != s.black {
			return cal, fmt.Errorf("detector: finder cell %d misclassified: %w", i, gptag.ErrFinderMismatch)
		}
	}
	return cal, nil
}
