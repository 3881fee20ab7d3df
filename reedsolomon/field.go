// Package reedsolomon implements the Reed-Solomon code protecting the tag
// payloads: GF(256) over the polynomial x^8 + x^4 + x^3 + x^2 + 1 with
// generator roots starting at alpha^0.
package reedsolomon

// field is GF(256) with log/antilog tables for fast multiplication.
type field struct {
	expTable [256]int
	logTable [256]int
}

const primitive = 0x011D

var fld = newField()

func newField() *field {
	f := &field{}
	x := 1
	for i := 0; i < 256; i++ {
		f.expTable[i] = x
		x *= 2
		if x >= 256 {
			x ^= primitive
			x &= 255
		}
	}
	for i := 0; i < 255; i++ {
		f.logTable[f.expTable[i]] = i
	}
	return f
}

// exp returns 2^a.
func (f *field) exp(a int) int {
	return f.expTable[a]
}

// inverse returns the multiplicative inverse of a; a must be nonzero.
func (f *field) inverse(a int) int {
	if a == 0 {
		panic("reedsolomon: inverse(0)")
	}
	return f.expTable[255-f.logTable[a]]
}

// mul multiplies two field elements.
func (f *field) mul(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return f.expTable[(f.logTable[a]+f.logTable[b])%255]
}

// add is addition and subtraction in GF(2^8).
func add(a, b int) int {
	return a ^ b
}
