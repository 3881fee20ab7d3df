package reedsolomon

// gfPoly is a polynomial with GF(256) coefficients, ordered from
// highest-degree to lowest. Instances are immutable.
type gfPoly struct {
	coefficients []int
}

var (
	polyZero = &gfPoly{coefficients: []int{0}}
	polyOne  = &gfPoly{coefficients: []int{1}}
)

func newPoly(coefficients []int) *gfPoly {
	if len(coefficients) == 0 {
		panic("reedsolomon: empty coefficients")
	}
	if len(coefficients) > 1 && coefficients[0] == 0 {
		firstNonZero := 1
		for firstNonZero < len(coefficients) && coefficients[firstNonZero] == 0 {
			firstNonZero++
		}
		if firstNonZero == len(coefficients) {
			return polyZero
		}
		trimmed := make([]int, len(coefficients)-firstNonZero)
		copy(trimmed, coefficients[firstNonZero:])
		coefficients = trimmed
	}
	return &gfPoly{coefficients: coefficients}
}

// monomial returns coefficient * x^degree.
func monomial(degree, coefficient int) *gfPoly {
	if degree < 0 {
		panic("reedsolomon: negative degree")
	}
	if coefficient == 0 {
		return polyZero
	}
	coefficients := make([]int, degree+1)
	coefficients[0] = coefficient
	return newPoly(coefficients)
}

func (p *gfPoly) degree() int {
	return len(p.coefficients) - 1
}

func (p *gfPoly) isZero() bool {
	return p.coefficients[0] == 0
}

func (p *gfPoly) coefficient(degree int) int {
	return p.coefficients[len(p.coefficients)-1-degree]
}

func (p *gfPoly) evaluateAt(a int) int {
	if a == 0 {
		return p.coefficient(0)
	}
	if a == 1 {
		result := 0
		for _, c := range p.coefficients {
			result = add(result, c)
		}
		return result
	}
	result := p.coefficients[0]
	for i := 1; i < len(p.coefficients); i++ {
		result = add(fld.mul(a, result), p.coefficients[i])
	}
	return result
}

func (p *gfPoly) plus(other *gfPoly) *gfPoly {
	if p.isZero() {
		return other
	}
	if other.isZero() {
		return p
	}
	smaller, larger := p.coefficients, other.coefficients
	if len(smaller) > len(larger) {
		smaller, larger = larger, smaller
	}
	sum := make([]int, len(larger))
	diff := len(larger) - len(smaller)
	copy(sum, larger[:diff])
	for i := diff; i < len(larger); i++ {
		sum[i] = add(smaller[i-diff], larger[i])
	}
	return newPoly(sum)
}

func (p *gfPoly) times(other *gfPoly) *gfPoly {
	if p.isZero() || other.isZero() {
		return polyZero
	}
	product := make([]int, len(p.coefficients)+len(other.coefficients)-1)
	for i, ac := range p.coefficients {
		for j, bc := range other.coefficients {
			product[i+j] = add(product[i+j], fld.mul(ac, bc))
		}
	}
	return newPoly(product)
}

func (p *gfPoly) timesScalar(scalar int) *gfPoly {
	if scalar == 0 {
		return polyZero
	}
	if scalar == 1 {
		return p
	}
	product := make([]int, len(p.coefficients))
	for i, c := range p.coefficients {
		product[i] = fld.mul(c, scalar)
	}
	return newPoly(product)
}

func (p *gfPoly) timesMonomial(degree, coefficient int) *gfPoly {
	if degree < 0 {
		panic("reedsolomon: negative degree")
	}
	if coefficient == 0 {
		return polyZero
	}
	product := make([]int, len(p.coefficients)+degree)
	for i, c := range p.coefficients {
		product[i] = fld.mul(c, coefficient)
	}
	return newPoly(product)
}

// remainderDividedBy returns the remainder of p divided by other.
func (p *gfPoly) remainderDividedBy(other *gfPoly) *gfPoly {
	if other.isZero() {
		panic("reedsolomon: divide by zero")
	}
	remainder := p
	inverseLeading := fld.inverse(other.coefficient(other.degree()))
	for remainder.degree() >= other.degree() && !remainder.isZero() {
		degreeDiff := remainder.degree() - other.degree()
		scale := fld.mul(remainder.coefficient(remainder.degree()), inverseLeading)
		remainder = remainder.plus(other.timesMonomial(degreeDiff, scale))
	}
	return remainder
}
