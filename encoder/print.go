package encoder

import (
	"math"

	"github.com/S-SB/gp-tag-mobile/layout"
)

const mmPerInch = 25.4

// ScaleForUnit returns the scale field value, in cells per millimeter, for
// a tag printed at the given DPI with u pixels per cell.
func ScaleForUnit(dpi float64, u int) float64 {
	return dpi / (mmPerInch * float64(u))
}

// UnitForSize returns the unit size and scale for a tag printed at the
// given DPI with the given physical side length in millimeters.
func UnitForSize(dpi, sizeMM float64) (u int, scale float64) {
	dotsPerMM := dpi / mmPerInch
	u = int(math.Round(sizeMM * dotsPerMM / layout.FullGridSize))
	return u, layout.FullGridSize / sizeMM
}
