package gptag

import (
	"fmt"

	"github.com/S-SB/gp-tag-mobile/bitutil"
)

// Bit widths of the main payload fields, in packing order.
const (
	latBits      = 35
	lonBits      = 36
	altBits      = 25
	quatBits     = 16 // per component, x y z w
	accuracyBits = 2
	scaleBits    = 16

	payloadBits = latBits + lonBits + altBits + 4*quatBits + accuracyBits + scaleBits
)

// Code parameters. The main block protects the 23-byte payload with 12
// Reed-Solomon parity bytes (correction radius 6); the ID block protects the
// 2-byte tag/version identifier with a single parity byte. Decoder and
// generator must agree on these bit for bit.
const (
	PayloadBytes    = (payloadBits + 7) / 8 // 23
	MainParityBytes = 12
	MainBlockBytes  = PayloadBytes + MainParityBytes // 35

	IDPayloadBytes = 2
	IDParityBytes  = 1
	IDBlockBytes   = IDPayloadBytes + IDParityBytes // 3
)

// Field quantization ranges. Values are mapped linearly onto the full
// unsigned range of their bit width.
const (
	maxAltitude = 10000.0 // meters, symmetric about zero
	maxScale    = 3.6     // cells per millimeter
)

// TagData holds the decoded (or to-be-encoded) contents of a tag.
type TagData struct {
	Latitude  float64 // degrees, [-90, 90]
	Longitude float64 // degrees, [-180, 180]
	Altitude  float64 // meters, [-10000, 10000]

	// Quaternion is the tag's orientation in x, y, z, w order, each
	// component in [-1, 1].
	Quaternion [4]float64

	Accuracy int     // 0..3, coarse position-accuracy class
	Scale    float64 // cells per millimeter, (0, 3.6]

	TagID     int // 12 bits, carried in the ID block
	VersionID int // 4 bits, carried in the ID block
}

// Validate checks every field against its encodable range.
func (d *TagData) Validate() error {
	switch {
	case d.Latitude < -90 || d.Latitude > 90:
		return fmt.Errorf("gptag: latitude %v out of range [-90, 90]", d.Latitude)
	case d.Longitude < -180 || d.Longitude > 180:
		return fmt.Errorf("gptag: longitude %v out of range [-180, 180]", d.Longitude)
	case d.Altitude < -maxAltitude || d.Altitude > maxAltitude:
		return fmt.Errorf("gptag: altitude %v out of range [-10000, 10000]", d.Altitude)
	case d.Accuracy < 0 || d.Accuracy > 3:
		return fmt.Errorf("gptag: accuracy %d out of range [0, 3]", d.Accuracy)
	case d.Scale < 0 || d.Scale > maxScale:
		return fmt.Errorf("gptag: scale %v out of range [0, 3.6]", d.Scale)
	case d.TagID < 0 || d.TagID > 0xFFF:
		return fmt.Errorf("gptag: tag id %d out of range [0, 4095]", d.TagID)
	case d.VersionID < 0 || d.VersionID > 0xF:
		return fmt.Errorf("gptag: version id %d out of range [0, 15]", d.VersionID)
	}
	for i, q := range d.Quaternion {
		if q < -1 || q > 1 {
			return fmt.Errorf("gptag: quaternion[%d] = %v out of range [-1, 1]", i, q)
		}
	}
	return nil
}

func quantize(value, min, max float64, bits int) uint64 {
	maxCode := float64(uint64(1)<<uint(bits) - 1)
	v := (value - min) * maxCode / (max - min)
	if v < 0 {
		v = 0
	} else if v > maxCode {
		v = maxCode
	}
	return uint64(v)
}

func dequantize(code uint64, min, max float64, bits int) float64 {
	maxCode := float64(uint64(1)<<uint(bits) - 1)
	return min + float64(code)*(max-min)/maxCode
}

// Pack serializes the main payload fields into PayloadBytes bytes. The 178
// field bits are packed MSB first with 6 leading zero pad bits, matching the
// big-endian byte layout the generator prints.
func (d *TagData) Pack() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	ba := bitutil.NewBitArray()
	ba.AppendBits(0, PayloadBytes*8-payloadBits) // pad
	ba.AppendBits(quantize(d.Latitude, -90, 90, latBits), latBits)
	ba.AppendBits(quantize(d.Longitude, -180, 180, lonBits), lonBits)
	ba.AppendBits(quantize(d.Altitude, -maxAltitude, maxAltitude, altBits), altBits)
	for _, q := range d.Quaternion {
		ba.AppendBits(quantize(q, -1, 1, quatBits), quatBits)
	}
	ba.AppendBits(uint64(d.Accuracy), accuracyBits)
	ba.AppendBits(quantize(d.Scale, 0, maxScale, scaleBits), scaleBits)
	return ba.ToBytes(), nil
}

// Unpack deserializes a PayloadBytes-long main payload into d, leaving the
// ID-block fields untouched.
func (d *TagData) Unpack(payload []byte) error {
	if len(payload) != PayloadBytes {
		return fmt.Errorf("gptag: payload length %d, want %d", len(payload), PayloadBytes)
	}
	pos := PayloadBytes*8 - payloadBits
	read := func(n int) uint64 {
		v := bitutil.ReadBits(payload, pos, n)
		pos += n
		return v
	}
	d.Latitude = dequantize(read(latBits), -90, 90, latBits)
	d.Longitude = dequantize(read(lonBits), -180, 180, lonBits)
	d.Altitude = dequantize(read(altBits), -maxAltitude, maxAltitude, altBits)
	for i := range d.Quaternion {
		d.Quaternion[i] = dequantize(read(quatBits), -1, 1, quatBits)
	}
	d.Accuracy = int(read(accuracyBits))
	d.Scale = dequantize(read(scaleBits), 0, maxScale, scaleBits)
	return nil
}

// PackID serializes the tag and version identifiers into the 2-byte ID
// payload: 12 bits of tag id followed by 4 bits of version.
func (d *TagData) PackID() []byte {
	ba := bitutil.NewBitArray()
	ba.AppendBits(uint64(d.TagID), 12)
	ba.AppendBits(uint64(d.VersionID), 4)
	return ba.ToBytes()
}

// UnpackID deserializes the 2-byte ID payload into d.
func (d *TagData) UnpackID(idPayload []byte) error {
	if len(idPayload) != IDPayloadBytes {
		return fmt.Errorf("gptag: id payload length %d, want %d", len(idPayload), IDPayloadBytes)
	}
	d.TagID = int(bitutil.ReadBits(idPayload, 0, 12))
	d.VersionID = int(bitutil.ReadBits(idPayload, 12, 4))
	return nil
}
