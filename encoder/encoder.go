// Package encoder renders tags as grayscale images. The detector uses it
// for its matching template and the generator tool uses it to produce
// printable markers.
package encoder

import (
	"fmt"
	"image"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/bitutil"
	"github.com/S-SB/gp-tag-mobile/layout"
	"github.com/S-SB/gp-tag-mobile/reedsolomon"
)

const (
	black = 0x00
	white = 0xFF
)

// Ring band colors per quadrant in canonical orientation; index 0 is the
// bottom-right quadrant.
var (
	middleRingBlack = [4]bool{true, true, false, false}
	innerRingBlack  = [4]bool{true, false, true, false}
)

// Render draws a complete tag for the given payload at u pixels per cell.
// The image is layout.FullGridSize*u pixels square.
func Render(data *gptag.TagData, u int) (*image.Gray, error) {
	if u < 1 {
		return nil, fmt.Errorf("encoder: unit size %d, want >= 1", u)
	}
	payload, err := data.Pack()
	if err != nil {
		return nil, err
	}
	coded := reedsolomon.EncodeBlock(payload, gptag.MainParityBytes)
	idCoded := reedsolomon.EncodeBlock(data.PackID(), gptag.IDParityBytes)
	return render(buildGrid(coded), idBits(idCoded), u), nil
}

// RenderTemplate draws the payload-independent template: finder, timing,
// ring band and spikes, with every data and identifier cell white.
func RenderTemplate(u int) *image.Gray {
	return render(buildGrid(make([]byte, gptag.MainBlockBytes)), [layout.IDBits]bool{}, u)
}

// buildGrid fills the 21x21 cell grid from the coded main block; a set bit
// is black. Reserved cells take their fixed pattern colors.
func buildGrid(coded []byte) *bitutil.BitMatrix {
	grid := bitutil.NewBitMatrix(layout.GridSize)
	for y := 0; y < layout.GridSize; y++ {
		for x := 0; x < layout.GridSize; x++ {
			if layout.IsReserved(x, y) {
				grid.SetBool(x, y, layout.ReservedBlack(x, y))
			}
		}
	}
	for i, c := range layout.DataScanOrder() {
		grid.SetBool(c.X, c.Y, bitutil.ReadBits(coded, i, 1) == 1)
	}
	return grid
}

func idBits(idCoded []byte) [layout.IDBits]bool {
	var bits [layout.IDBits]bool
	for i := range bits {
		bits[i] = bitutil.ReadBits(idCoded, i, 1) == 1
	}
	return bits
}

func render(grid *bitutil.BitMatrix, id [layout.IDBits]bool, u int) *image.Gray {
	g := layout.Canonical(float64(u))
	size := layout.FullGridSize * u
	img := image.NewGray(image.Rect(0, 0, size, size))

	idCells := make(map[layout.Cell]bool, 2*layout.IDBits)
	for i := 0; i < layout.IDBits; i++ {
		for _, c := range layout.IDCellPairs[i] {
			idCells[c] = id[i]
		}
	}

	fu := float64(u)
	for py := 0; py < size; py++ {
		for px := 0; px < size; px++ {
			x := float64(px) + 0.5
			y := float64(py) + 0.5
			img.Pix[py*img.Stride+px] = pixel(g, grid, idCells, x, y, fu)
		}
	}
	return img
}

func pixel(g layout.Geometry, grid *bitutil.BitMatrix,
	idCells map[layout.Cell]bool, x, y, u float64) uint8 {

	dx := x - g.CenterX
	dy := y - g.CenterY
	d := dx*dx + dy*dy
	r := func(cells float64) float64 {
		v := cells * u
		return v * v
	}

	switch {
	case d <= r(layout.RingInner):
		// Identifier cells sit between the grid border and the ring band and
		// take priority over everything beneath them.
		fx := int((x - (g.CenterX - 18.5*u)) / u)
		fy := int((y - (g.CenterY - 18.5*u)) / u)
		if black, ok := idCells[layout.Cell{X: fx, Y: fy}]; ok {
			return colorOf(black)
		}
		half := layout.GridHalfSpan * u
		if dx >= -half && dx < half && dy >= -half && dy < half {
			cx := int((dx + half) / u)
			cy := int((dy + half) / u)
			return colorOf(grid.Get(cx, cy))
		}
		return colorOf(g.InSpike(x, y))
	case d <= r(layout.RingMiddle):
		return colorOf(innerRingBlack[quadrant(dx, dy)])
	case d <= r(layout.RingOuter):
		return colorOf(middleRingBlack[quadrant(dx, dy)])
	case d <= r(layout.OuterRadius):
		return black
	default:
		return colorOf(g.InSpike(x, y))
	}
}

// quadrant maps an offset from the center to its 90-degree sector, counted
// clockwise on screen from the +x axis.
func quadrant(dx, dy float64) int {
	if dy >= 0 {
		if dx >= 0 {
			return 0
		}
		return 1
	}
	if dx < 0 {
		return 2
	}
	return 3
}

func colorOf(isBlack bool) uint8 {
	if isBlack {
		return black
	}
	return white
}
