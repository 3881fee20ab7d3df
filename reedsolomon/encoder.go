package reedsolomon

import "sync"

var (
	generatorMu     sync.Mutex
	generatorsCache = []*gfPoly{polyOne}
)

// generator returns the degree-n generator polynomial, products of
// (x - alpha^i) for i in [0, n).
func generator(degree int) *gfPoly {
	generatorMu.Lock()
	defer generatorMu.Unlock()
	last := generatorsCache[len(generatorsCache)-1]
	for d := len(generatorsCache); d <= degree; d++ {
		last = last.times(newPoly([]int{1, fld.exp(d - 1)}))
		generatorsCache = append(generatorsCache, last)
	}
	return generatorsCache[degree]
}

// Encode fills the final parity positions of block. The leading
// len(block) - parity values are the data codewords.
func Encode(block []int, parity int) {
	if parity <= 0 {
		panic("reedsolomon: no parity codewords")
	}
	dataLen := len(block) - parity
	if dataLen <= 0 {
		panic("reedsolomon: no data codewords")
	}
	info := make([]int, dataLen)
	copy(info, block[:dataLen])
	remainder := newPoly(info).timesMonomial(parity, 1).remainderDividedBy(generator(parity))

	coefficients := remainder.coefficients
	if remainder.isZero() {
		coefficients = nil
	}
	numZero := parity - len(coefficients)
	for i := 0; i < numZero; i++ {
		block[dataLen+i] = 0
	}
	copy(block[dataLen+numZero:], coefficients)
}

// EncodeBlock returns data followed by the given number of parity bytes.
func EncodeBlock(data []byte, parity int) []byte {
	block := make([]int, len(data)+parity)
	for i, b := range data {
		block[i] = int(b)
	}
	Encode(block, parity)
	out := make([]byte, len(block))
	for i, v := range block {
		out[i] = byte(v)
	}
	return out
}
