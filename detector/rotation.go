package detector

import (
	"fmt"
	"image"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/layout"
	"github.com/S-SB/gp-tag-mobile/transform"
)

// ResolveRotation disambiguates the tag's four-fold boundary symmetry by
// reading the orientation ring. It tries all four quarter-turn hypotheses
// and returns the homography whose ring codes match the canonical layout,
// along with the number of quarter turns applied. Exactly one hypothesis
// must validate.
func (d *Detector) ResolveRotation(img *image.Gray, h *transform.PerspectiveTransform, cal Calibration) (*transform.PerspectiveTransform, int, error) {
	g := d.template.Geometry
	cut := (cal.Black + cal.White) / 2

	validTurns := -1
	var validH *transform.PerspectiveTransform
	for k := 0; k < 4; k++ {
		hk := h.Times(transform.RotationAbout(g.CenterX, g.CenterY, k))
		if d.ringCodesMatch(img, hk, cut) {
			if validTurns >= 0 {
				return nil, 0, fmt.Errorf("detector: turns %d and %d both validate: %w",
					validTurns, k, gptag.ErrAmbiguousOrientation)
			}
			validTurns = k
			validH = hk
		}
	}
	if validTurns < 0 {
		return nil, 0, fmt.Errorf("detector: no quarter turn matches the ring: %w", gptag.ErrNoValidRotation)
	}
	return validH, validTurns, nil
}

// ringCodesMatch reads both ring bands in each quadrant by majority vote
// over the configured sample angles and compares against the canonical
// codes.
func (d *Detector) ringCodesMatch(img *image.Gray, h *transform.PerspectiveTransform, cut float64) bool {
	for q := 0; q < 4; q++ {
		middle := d.sampleBand(img, h, q, layout.MiddleSampleRadius, cut)
		inner := d.sampleBand(img, h, q, layout.InnerSampleRadius, cut)
		if layout.RingCode(middle, inner) != layout.ExpectedRingCodes[q] {
			return false
		}
	}
	return true
}

// sampleBand reads one quadrant of one ring band, returning the majority
// black/white classification.
func (d *Detector) sampleBand(img *image.Gray, h *transform.PerspectiveTransform, quadrant int, radiusCells, cut float64) bool {
	g := d.template.Geometry
	blackVotes := 0
	for _, frac := range d.cfg.RingSampleFracs {
		tx, ty := g.RingSample(quadrant, frac, radiusCells)
		fx, fy := h.Apply(tx, ty)
		if gptag.SampleBilinear(img, fx, fy) < cut {
			blackVotes++
		}
	}
	return 2*blackVotes > len(d.cfg.RingSampleFracs)
}
