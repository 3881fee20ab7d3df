// Package detector locates tags in camera frames: feature matching against
// a rendered template proposes candidate homographies, which are then
// corner-refined, finder-validated and rotation-resolved before decoding.
package detector

import (
	"image"

	"github.com/S-SB/gp-tag-mobile/encoder"
	"github.com/S-SB/gp-tag-mobile/feature"
	"github.com/S-SB/gp-tag-mobile/layout"
)

// Template is the canonical tag rendering the detector matches frames
// against, with its keypoints extracted once up front. The data area is
// blank; matching relies on the payload-independent structure.
type Template struct {
	Unit     int
	Image    *image.Gray
	Features *feature.Features
	Geometry layout.Geometry
}

// NewTemplate renders the matching template at u pixels per cell and
// extracts its features.
func NewTemplate(u int, extractor *feature.Extractor) *Template {
	img := encoder.RenderTemplate(u)
	return &Template{
		Unit:     u,
		Image:    img,
		Features: extractor.Extract(img),
		Geometry: layout.Canonical(float64(u)),
	}
}

// Corners returns the template's boundary corners in top-left, top-right,
// bottom-right, bottom-left order.
func (t *Template) Corners() [4][2]float64 {
	return t.Geometry.Corners()
}
