// Package bitutil provides bit-level primitives for tag encoding and decoding.
package bitutil

import "strings"

// BitMatrix represents a 2D matrix of bits. x is the column position, y is
// the row position; the origin is at the top-left.
type BitMatrix struct {
	width   int
	height  int
	rowSize int
	data    []uint32
}

// NewBitMatrix creates a new square BitMatrix with the given dimension.
func NewBitMatrix(dimension int) *BitMatrix {
	return NewBitMatrixWithSize(dimension, dimension)
}

// NewBitMatrixWithSize creates a new BitMatrix with the given width and height.
func NewBitMatrixWithSize(width, height int) *BitMatrix {
	if width < 1 || height < 1 {
		panic("bitutil: dimensions must be greater than 0")
	}
	rowSize := (width + 31) / 32
	return &BitMatrix{
		width:   width,
		height:  height,
		rowSize: rowSize,
		data:    make([]uint32, rowSize*height),
	}
}

// Get returns true if the bit at (x, y) is set.
func (bm *BitMatrix) Get(x, y int) bool {
	offset := y*bm.rowSize + x/32
	return (bm.data[offset]>>uint(x&0x1f))&1 != 0
}

// Set sets the bit at (x, y).
func (bm *BitMatrix) Set(x, y int) {
	offset := y*bm.rowSize + x/32
	bm.data[offset] |= 1 << uint(x&0x1f)
}

// Unset clears the bit at (x, y).
func (bm *BitMatrix) Unset(x, y int) {
	offset := y*bm.rowSize + x/32
	bm.data[offset] &^= 1 << uint(x&0x1f)
}

// SetBool sets or clears the bit at (x, y).
func (bm *BitMatrix) SetBool(x, y int, value bool) {
	if value {
		bm.Set(x, y)
	} else {
		bm.Unset(x, y)
	}
}

// Flip inverts the bit at (x, y).
func (bm *BitMatrix) Flip(x, y int) {
	offset := y*bm.rowSize + x/32
	bm.data[offset] ^= 1 << uint(x&0x1f)
}

// FlipAll inverts every bit in the matrix.
func (bm *BitMatrix) FlipAll() {
	for i := range bm.data {
		bm.data[i] = ^bm.data[i]
	}
}

// Width returns the width of the matrix.
func (bm *BitMatrix) Width() int { return bm.width }

// Height returns the height of the matrix.
func (bm *BitMatrix) Height() int { return bm.height }

// Clone returns a deep copy of the matrix.
func (bm *BitMatrix) Clone() *BitMatrix {
	data := make([]uint32, len(bm.data))
	copy(data, bm.data)
	return &BitMatrix{width: bm.width, height: bm.height, rowSize: bm.rowSize, data: data}
}

// Equal reports whether two matrices have identical dimensions and contents.
func (bm *BitMatrix) Equal(other *BitMatrix) bool {
	if bm.width != other.width || bm.height != other.height {
		return false
	}
	for y := 0; y < bm.height; y++ {
		for x := 0; x < bm.width; x++ {
			if bm.Get(x, y) != other.Get(x, y) {
				return false
			}
		}
	}
	return true
}

// String renders the matrix with "X " for set bits and "  " for unset bits.
func (bm *BitMatrix) String() string {
	var sb strings.Builder
	for y := 0; y < bm.height; y++ {
		for x := 0; x < bm.width; x++ {
			if bm.Get(x, y) {
				sb.WriteString("X ")
			} else {
				sb.WriteString("  ")
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
