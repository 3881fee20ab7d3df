package bitutil

// BitArray is a growable array of bits with append semantics, used to build
// codewords field by field. Bit 0 is the most significant bit of the first
// byte produced by ToBytes.
type BitArray struct {
	bits []uint32
	size int
}

// NewBitArray creates an empty BitArray.
func NewBitArray() *BitArray {
	return &BitArray{}
}

// Size returns the number of bits in the array.
func (ba *BitArray) Size() int { return ba.size }

// SizeInBytes returns the number of bytes needed to hold the bits.
func (ba *BitArray) SizeInBytes() int { return (ba.size + 7) / 8 }

// Get returns true if bit i is set.
func (ba *BitArray) Get(i int) bool {
	return (ba.bits[i/32]>>uint(31-i&0x1f))&1 != 0
}

func (ba *BitArray) ensureCapacity(newSize int) {
	need := (newSize + 31) / 32
	for len(ba.bits) < need {
		ba.bits = append(ba.bits, 0)
	}
}

// AppendBit appends a single bit.
func (ba *BitArray) AppendBit(bit bool) {
	ba.ensureCapacity(ba.size + 1)
	if bit {
		ba.bits[ba.size/32] |= 1 << uint(31-ba.size&0x1f)
	}
	ba.size++
}

// AppendBits appends the numBits least significant bits of value, most
// significant first. numBits may be up to 64.
func (ba *BitArray) AppendBits(value uint64, numBits int) {
	if numBits < 0 || numBits > 64 {
		panic("bitutil: numBits out of range")
	}
	for i := numBits - 1; i >= 0; i-- {
		ba.AppendBit((value>>uint(i))&1 != 0)
	}
}

// ToBytes packs the bits into bytes, most significant bit first. The final
// byte is zero-padded on the right if the size is not a multiple of 8.
func (ba *BitArray) ToBytes() []byte {
	out := make([]byte, ba.SizeInBytes())
	for i := 0; i < ba.size; i++ {
		if ba.Get(i) {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	return out
}

// ReadBits extracts n bits starting at bit position pos from a byte slice,
// most significant bit first, returning them as the low bits of a uint64.
func ReadBits(data []byte, pos, n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		bit := (data[(pos+i)/8] >> uint(7-(pos+i)%8)) & 1
		v = v<<1 | uint64(bit)
	}
	return v
}
