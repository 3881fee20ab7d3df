package decoder

import (
	"errors"
	"image"
	"math"
	"testing"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/binarizer"
	"github.com/S-SB/gp-tag-mobile/encoder"
	"github.com/S-SB/gp-tag-mobile/layout"
	"github.com/S-SB/gp-tag-mobile/transform"
)

const unit = 10

func testData() *gptag.TagData {
	return &gptag.TagData{
		Latitude:   -33.8688,
		Longitude:  151.2093,
		Altitude:   19.5,
		Quaternion: [4]float64{0, 0, 0.3826834, 0.9238795},
		Accuracy:   1,
		Scale:      0.36,
		TagID:      2047,
		VersionID:  1,
	}
}

func identity() *transform.PerspectiveTransform {
	return transform.RotationAbout(0, 0, 0)
}

// paintCell inverts one data grid cell in a rendered tag.
func paintCell(img *image.Gray, g layout.Geometry, c layout.Cell) {
	cx, cy := g.CellCenter(c)
	for y := int(cy - g.U/2); y < int(cy+g.U/2); y++ {
		for x := int(cx - g.U/2); x < int(cx+g.U/2); x++ {
			img.Pix[y*img.Stride+x] = 255 - img.Pix[y*img.Stride+x]
		}
	}
}

func TestDecodeCleanTag(t *testing.T) {
	in := testData()
	img, err := encoder.Render(in, unit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	dec := New(layout.Canonical(unit))
	got, err := dec.Decode(img, identity(), binarizer.Fixed{Cut: 128})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.MainCorrected != 0 || got.IDCorrected != 0 {
		t.Errorf("corrections = %d/%d, want 0/0", got.MainCorrected, got.IDCorrected)
	}
	if len(got.Payload) != gptag.PayloadBytes {
		t.Errorf("payload length = %d, want %d", len(got.Payload), gptag.PayloadBytes)
	}
	if got.Data.TagID != in.TagID || got.Data.VersionID != in.VersionID {
		t.Errorf("id = %d/%d, want %d/%d", got.Data.TagID, got.Data.VersionID, in.TagID, in.VersionID)
	}
	if math.Abs(got.Data.Latitude-in.Latitude) > 1e-6 {
		t.Errorf("latitude = %v, want %v", got.Data.Latitude, in.Latitude)
	}
	if math.Abs(got.Data.Longitude-in.Longitude) > 1e-6 {
		t.Errorf("longitude = %v, want %v", got.Data.Longitude, in.Longitude)
	}
	if math.Abs(got.Data.Altitude-in.Altitude) > 1e-3 {
		t.Errorf("altitude = %v, want %v", got.Data.Altitude, in.Altitude)
	}
	for i := range in.Quaternion {
		if math.Abs(got.Data.Quaternion[i]-in.Quaternion[i]) > 1e-4 {
			t.Errorf("quaternion[%d] = %v, want %v", i, got.Data.Quaternion[i], in.Quaternion[i])
		}
	}
	if got.Data.Accuracy != in.Accuracy {
		t.Errorf("accuracy = %d, want %d", got.Data.Accuracy, in.Accuracy)
	}
}

func TestDecodeCorrectsCellErrors(t *testing.T) {
	in := testData()
	img, err := encoder.Render(in, unit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	g := layout.Canonical(unit)
	scan := layout.DataScanOrder()
	// Three inverted cells corrupt at most three codewords.
	for _, idx := range []int{3, 100, 250} {
		paintCell(img, g, scan[idx])
	}

	dec := New(g)
	got, err := dec.Decode(img, identity(), binarizer.Fixed{Cut: 128})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.MainCorrected < 1 || got.MainCorrected > 3 {
		t.Errorf("corrected = %d, want 1..3", got.MainCorrected)
	}
	if got.Data.TagID != in.TagID {
		t.Errorf("tag id = %d, want %d", got.Data.TagID, in.TagID)
	}
	if math.Abs(got.Data.Latitude-in.Latitude) > 1e-6 {
		t.Errorf("latitude = %v, want %v", got.Data.Latitude, in.Latitude)
	}
}

func TestDecodeUncorrectable(t *testing.T) {
	img, err := encoder.Render(testData(), unit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	g := layout.Canonical(unit)
	scan := layout.DataScanOrder()
	// Inverting every fourth cell overwhelms the correction radius.
	for i := 0; i < len(scan); i += 4 {
		paintCell(img, g, scan[i])
	}

	_, err = New(g).Decode(img, identity(), binarizer.Fixed{Cut: 128})
	if !errors.Is(err, gptag.ErrUncorrectable) {
		t.Errorf("err = %v, want ErrUncorrectable", err)
	}
}

func TestDecodeIDBlockDamage(t *testing.T) {
	img, err := encoder.Render(testData(), unit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	g := layout.Canonical(unit)
	// Invert both cells of one identifier pair: the single parity byte can
	// only detect, not correct.
	for _, c := range layout.IDCellPairs[5] {
		cx, cy := g.FullGridCellCenter(c)
		for y := int(cy - g.U/2); y < int(cy+g.U/2); y++ {
			for x := int(cx - g.U/2); x < int(cx+g.U/2); x++ {
				img.Pix[y*img.Stride+x] = 255 - img.Pix[y*img.Stride+x]
			}
		}
	}

	_, err = New(g).Decode(img, identity(), binarizer.Fixed{Cut: 128})
	if !errors.Is(err, gptag.ErrUncorrectable) {
		t.Errorf("err = %v, want ErrUncorrectable", err)
	}
}
