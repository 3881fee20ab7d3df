// Package binarizer provides threshold strategies for classifying sampled
// luminances as black or white.
package binarizer

import (
	"errors"
	"fmt"
	"image"
)

// ErrNoContrast is returned when a luminance histogram has no two distinct
// peaks to separate.
var ErrNoContrast = errors.New("binarizer: luminance histogram has no distinct peaks")

// Threshold classifies a sampled luminance; lower values are darker.
type Threshold interface {
	IsBlack(value float64) bool
}

// Fixed is a constant cut threshold.
type Fixed struct {
	Cut float64
}

// IsBlack reports whether the value falls below the cut.
func (f Fixed) IsBlack(value float64) bool {
	return value < f.Cut
}

// NewReference builds a threshold halfway between measured black and white
// reference luminances, as calibrated from the finder patterns. It fails
// when the references are too close to separate reliably.
func NewReference(black, white float64) (Fixed, error) {
	const minSpread = 16
	if white-black < minSpread {
		return Fixed{}, fmt.Errorf("binarizer: reference spread %.1f too small: %w",
			white-black, ErrNoContrast)
	}
	return Fixed{Cut: (black + white) / 2}, nil
}

const (
	luminanceBits    = 5
	luminanceShift   = 8 - luminanceBits
	luminanceBuckets = 1 << luminanceBits
)

// NewGlobal estimates a threshold from the image's luminance histogram by
// finding the valley between its two dominant peaks.
func NewGlobal(img *image.Gray) (Fixed, error) {
	bounds := img.Bounds()
	var buckets [luminanceBuckets]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[(y-bounds.Min.Y)*img.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			buckets[row[x]>>luminanceShift]++
		}
	}
	cut, err := estimateBlackPoint(buckets[:])
	if err != nil {
		return Fixed{}, err
	}
	return Fixed{Cut: float64(cut)}, nil
}

// estimateBlackPoint finds the best valley between the histogram's dominant
// peak and the strongest distance-weighted second peak.
func estimateBlackPoint(buckets []int) (int, error) {
	numBuckets := len(buckets)
	maxBucketCount := 0
	firstPeak := 0
	firstPeakSize := 0
	for x := 0; x < numBuckets; x++ {
		if buckets[x] > firstPeakSize {
			firstPeak = x
			firstPeakSize = buckets[x]
		}
		if buckets[x] > maxBucketCount {
			maxBucketCount = buckets[x]
		}
	}

	secondPeak := 0
	secondPeakScore := 0
	for x := 0; x < numBuckets; x++ {
		dist := x - firstPeak
		score := buckets[x] * dist * dist
		if score > secondPeakScore {
			secondPeak = x
			secondPeakScore = score
		}
	}

	if firstPeak > secondPeak {
		firstPeak, secondPeak = secondPeak, firstPeak
	}
	if secondPeak-firstPeak <= numBuckets/16 {
		return 0, ErrNoContrast
	}

	bestValley := secondPeak - 1
	bestValleyScore := -1
	for x := secondPeak - 1; x > firstPeak; x-- {
		fromFirst := x - firstPeak
		score := fromFirst * fromFirst * (secondPeak - x) * (maxBucketCount - buckets[x])
		if score > bestValleyScore {
			bestValley = x
			bestValleyScore = score
		}
	}
	return bestValley << luminanceShift, nil
}
