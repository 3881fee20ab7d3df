package reedsolomon

import "errors"

// ErrCorrupted is returned when a block holds more errors than its parity
// can correct.
var ErrCorrupted = errors.New("reedsolomon: uncorrectable block")

// Decode corrects errors in block in place and returns the number of
// codewords corrected. parity is the number of parity codewords; up to
// parity/2 errors are correctable.
func Decode(block []int, parity int) (int, error) {
	received := newPoly(append([]int(nil), block...))
	syndromes := make([]int, parity)
	clean := true
	for i := 0; i < parity; i++ {
		eval := received.evaluateAt(fld.exp(i))
		syndromes[parity-1-i] = eval
		if eval != 0 {
			clean = false
		}
	}
	if clean {
		return 0, nil
	}

	sigma, omega, err := euclidean(monomial(parity, 1), newPoly(syndromes), parity)
	if err != nil {
		return 0, err
	}
	locations, err := errorLocations(sigma)
	if err != nil {
		return 0, err
	}
	magnitudes := errorMagnitudes(omega, locations)
	for i, loc := range locations {
		position := len(block) - 1 - fld.logTable[loc]
		if position < 0 {
			return 0, ErrCorrupted
		}
		block[position] = add(block[position], magnitudes[i])
	}
	return len(locations), nil
}

// DecodeBlock corrects a byte block and returns its data bytes (parity
// stripped) with the number of corrected codewords.
func DecodeBlock(block []byte, parity int) ([]byte, int, error) {
	codewords := make([]int, len(block))
	for i, b := range block {
		codewords[i] = int(b)
	}
	corrected, err := Decode(codewords, parity)
	if err != nil {
		return nil, 0, err
	}
	data := make([]byte, len(block)-parity)
	for i := range data {
		data[i] = byte(codewords[i])
	}
	return data, corrected, nil
}

// euclidean runs the extended Euclidean algorithm, producing the error
// locator sigma and error evaluator omega.
func euclidean(a, b *gfPoly, r int) (sigma, omega *gfPoly, err error) {
	if a.degree() < b.degree() {
		a, b = b, a
	}

	rLast, rCur := a, b
	tLast, tCur := polyZero, polyOne

	for 2*rCur.degree() >= r {
		rLastLast, tLastLast := rLast, tLast
		rLast, tLast = rCur, tCur

		if rLast.isZero() {
			return nil, nil, ErrCorrupted
		}
		rCur = rLastLast
		q := polyZero
		inverseLeading := fld.inverse(rLast.coefficient(rLast.degree()))
		for rCur.degree() >= rLast.degree() && !rCur.isZero() {
			degreeDiff := rCur.degree() - rLast.degree()
			scale := fld.mul(rCur.coefficient(rCur.degree()), inverseLeading)
			q = q.plus(monomial(degreeDiff, scale))
			rCur = rCur.plus(rLast.timesMonomial(degreeDiff, scale))
		}
		tCur = q.times(tLast).plus(tLastLast)

		if rCur.degree() >= rLast.degree() {
			return nil, nil, ErrCorrupted
		}
	}

	sigmaAtZero := tCur.coefficient(0)
	if sigmaAtZero == 0 {
		return nil, nil, ErrCorrupted
	}
	inverse := fld.inverse(sigmaAtZero)
	return tCur.timesScalar(inverse), rCur.timesScalar(inverse), nil
}

func errorLocations(sigma *gfPoly) ([]int, error) {
	numErrors := sigma.degree()
	if numErrors == 0 {
		// Nonzero syndromes but no locatable error: more errors than the
		// parity can express. Single-parity blocks land here on any error.
		return nil, ErrCorrupted
	}
	if numErrors == 1 {
		return []int{sigma.coefficient(1)}, nil
	}
	result := make([]int, 0, numErrors)
	for i := 1; i < 256 && len(result) < numErrors; i++ {
		if sigma.evaluateAt(i) == 0 {
			result = append(result, fld.inverse(i))
		}
	}
	if len(result) != numErrors {
		return nil, ErrCorrupted
	}
	return result, nil
}

func errorMagnitudes(omega *gfPoly, locations []int) []int {
	result := make([]int, len(locations))
	for i, loc := range locations {
		xiInverse := fld.inverse(loc)
		denominator := 1
		for j, other := range locations {
			if i == j {
				continue
			}
			term := fld.mul(other, xiInverse)
			denominator = fld.mul(denominator, add(term, 1))
		}
		result[i] = fld.mul(omega.evaluateAt(xiInverse), fld.inverse(denominator))
	}
	return result
}
