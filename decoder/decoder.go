// Package decoder samples a located tag through its homography and decodes
// the Reed-Solomon protected payload and identifier blocks.
package decoder

import (
	"errors"
	"fmt"
	"image"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/binarizer"
	"github.com/S-SB/gp-tag-mobile/bitutil"
	"github.com/S-SB/gp-tag-mobile/layout"
	"github.com/S-SB/gp-tag-mobile/reedsolomon"
	"github.com/S-SB/gp-tag-mobile/transform"
)

// Decoded is a successfully decoded tag payload.
type Decoded struct {
	Data gptag.TagData

	// Payload is the corrected 23-byte main payload.
	Payload []byte

	// MainCorrected and IDCorrected count Reed-Solomon corrections in the
	// two blocks.
	MainCorrected int
	IDCorrected   int
}

// Decoder reads tag bits through a homography expressed in the given
// template geometry.
type Decoder struct {
	geometry layout.Geometry
}

// New returns a Decoder for homographies mapping from the given canonical
// geometry to frame coordinates.
func New(g layout.Geometry) *Decoder {
	return &Decoder{geometry: g}
}

// Decode samples all data and identifier cells of an oriented tag and
// decodes both blocks. The homography must already be rotation-resolved.
func (d *Decoder) Decode(img *image.Gray, h *transform.PerspectiveTransform, th binarizer.Threshold) (*Decoded, error) {
	block := d.sampleDataBlock(img, h, th)
	payload, mainCorrected, err := reedsolomon.DecodeBlock(block, gptag.MainParityBytes)
	if err != nil {
		return nil, fmt.Errorf("decoder: main block: %w", uncorrectable(err))
	}

	out := &Decoded{Payload: payload, MainCorrected: mainCorrected}
	if err := out.Data.Unpack(payload); err != nil {
		return nil, err
	}

	idBlock := d.sampleIDBlock(img, h, th)
	idPayload, idCorrected, err := reedsolomon.DecodeBlock(idBlock, gptag.IDParityBytes)
	if err != nil {
		return nil, fmt.Errorf("decoder: id block: %w", uncorrectable(err))
	}
	out.IDCorrected = idCorrected
	if err := out.Data.UnpackID(idPayload); err != nil {
		return nil, err
	}
	return out, nil
}

// sampleDataBlock reads the 280 data cells in scan order into the 35-byte
// coded main block.
func (d *Decoder) sampleDataBlock(img *image.Gray, h *transform.PerspectiveTransform, th binarizer.Threshold) []byte {
	ba := bitutil.NewBitArray()
	for _, cell := range layout.DataScanOrder() {
		tx, ty := d.geometry.CellCenter(cell)
		fx, fy := h.Apply(tx, ty)
		ba.AppendBit(th.IsBlack(gptag.SampleBilinear(img, fx, fy)))
	}
	return ba.ToBytes()
}

// sampleIDBlock reads the 24 mirrored identifier cell pairs, averaging
// each pair's luminance before classification.
func (d *Decoder) sampleIDBlock(img *image.Gray, h *transform.PerspectiveTransform, th binarizer.Threshold) []byte {
	ba := bitutil.NewBitArray()
	for i := 0; i < layout.IDBits; i++ {
		var sum float64
		for _, cell := range layout.IDCellPairs[i] {
			tx, ty := d.geometry.FullGridCellCenter(cell)
			fx, fy := h.Apply(tx, ty)
			sum += gptag.SampleBilinear(img, fx, fy)
		}
		ba.AppendBit(th.IsBlack(sum / 2))
	}
	return ba.ToBytes()
}

func uncorrectable(err error) error {
	if errors.Is(err, reedsolomon.ErrCorrupted) {
		return fmt.Errorf("%v: %w", err, gptag.ErrUncorrectable)
	}
	return err
}
