// Package scan wires the detection and decoding stages into a single
// frame-to-result reader.
package scan

import (
	"errors"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/binarizer"
	"github.com/S-SB/gp-tag-mobile/decoder"
	"github.com/S-SB/gp-tag-mobile/detector"
)

// Strategy selects how sampled cell luminances are classified during
// payload decoding.
type Strategy string

const (
	// StrategyReference derives the cut from the finder-pattern calibration
	// of each candidate, falling back to a histogram estimate when the
	// calibrated spread is too small.
	StrategyReference Strategy = "reference"
	// StrategyGlobal always estimates the cut from the frame's luminance
	// histogram.
	StrategyGlobal Strategy = "global"
	// StrategyFixed uses a constant cut.
	StrategyFixed Strategy = "fixed"
)

// ParseStrategy maps a strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyReference, StrategyGlobal, StrategyFixed:
		return s, nil
	}
	return "", fmt.Errorf("scan: unknown threshold strategy %q", name)
}

// Config tunes a Reader.
type Config struct {
	Detector detector.Config
	// Strategy selects the threshold source; empty means StrategyReference.
	Strategy Strategy
	// FixedCut is the luminance cut used by StrategyFixed.
	FixedCut float64
}

// Reader runs the full pipeline: candidate detection, corner refinement,
// finder validation, rotation resolution and payload decoding. A Reader is
// safe for concurrent use.
type Reader struct {
	det      *detector.Detector
	dec      *decoder.Decoder
	strategy Strategy
	fixedCut float64
	log      *zap.Logger
}

// NewReader builds a Reader with the given detector tuning and the
// reference threshold strategy.
func NewReader(cfg detector.Config) *Reader {
	return NewReaderConfig(Config{Detector: cfg})
}

// NewReaderConfig builds a Reader with the full tuning.
func NewReaderConfig(cfg Config) *Reader {
	det := detector.New(cfg.Detector)
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyReference
	}
	return &Reader{
		det:      det,
		dec:      decoder.New(det.Template().Geometry),
		strategy: strategy,
		fixedCut: cfg.FixedCut,
		log:      zap.L().Named("scan"),
	}
}

// Detector exposes the underlying detector, mainly for tools that want to
// run individual stages.
func (r *Reader) Detector() *detector.Detector {
	return r.det
}

// Read converts the image to grayscale and scans it for a tag.
func (r *Reader) Read(img image.Image) (*gptag.Result, error) {
	return r.ReadGray(gptag.ToGray(img))
}

// ReadGray scans a grayscale frame and returns the first tag that survives
// every stage. Candidates are tried strongest first; the error of the last
// failing stage is returned when none succeeds.
func (r *Reader) ReadGray(img *image.Gray) (*gptag.Result, error) {
	candidates, err := r.det.Detect(img)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for i, cand := range candidates {
		result, err := r.readCandidate(img, cand)
		if err != nil {
			r.log.Debug("candidate rejected",
				zap.Int("candidate", i),
				zap.Int("inliers", cand.Inliers),
				zap.Stringer("stage", gptag.StageFor(err)),
				zap.Error(err))
			lastErr = err
			continue
		}
		r.log.Debug("tag decoded",
			zap.Int("candidate", i),
			zap.Int("tag_id", result.Data.TagID),
			zap.Int("corrected", result.ErrorsCorrected),
			zap.Float64("confidence", result.Confidence))
		return result, nil
	}
	return nil, fmt.Errorf("scan: all %d candidates rejected: %w", len(candidates), lastErr)
}

func (r *Reader) readCandidate(img *image.Gray, cand detector.Candidate) (*gptag.Result, error) {
	corners, refined, err := r.det.RefineCorners(img, cand.H)
	if err != nil {
		return nil, err
	}
	cal, err := r.det.ValidateFinders(img, refined)
	if err != nil {
		return nil, err
	}
	oriented, turns, err := r.det.ResolveRotation(img, refined, cal)
	if err != nil {
		return nil, err
	}

	threshold, err := r.threshold(img, cal)
	if err != nil {
		return nil, err
	}

	decoded, err := r.dec.Decode(img, oriented, threshold)
	if err != nil {
		return nil, err
	}

	return &gptag.Result{
		Payload:           decoded.Payload,
		Data:              &decoded.Data,
		Corners:           orientCorners(corners, turns),
		Confidence:        cand.Confidence,
		ErrorsCorrected:   decoded.MainCorrected,
		IDErrorsCorrected: decoded.IDCorrected,
		Timestamp:         time.Now(),
	}, nil
}

// threshold builds the configured cut for one candidate.
func (r *Reader) threshold(img *image.Gray, cal detector.Calibration) (binarizer.Threshold, error) {
	switch r.strategy {
	case StrategyFixed:
		return binarizer.Fixed{Cut: r.fixedCut}, nil
	case StrategyGlobal:
		return binarizer.NewGlobal(img)
	default:
		threshold, err := binarizer.NewReference(cal.Black, cal.White)
		if err != nil {
			// The finder validation already proved contrast, but fall back
			// to a histogram estimate rather than fail outright.
			global, gerr := binarizer.NewGlobal(img)
			if gerr != nil {
				return nil, err
			}
			return global, nil
		}
		return threshold, nil
	}
}

// orientCorners reindexes the boundary corners so index 0 is the tag's own
// top-left after rotation resolution.
func orientCorners(corners gptag.Corners, turns int) gptag.Corners {
	var out gptag.Corners
	for i := range out {
		out[i] = corners[(i+turns)%4]
	}
	return out
}

// IsNoTag reports whether the error only means the frame contains no
// readable tag, as opposed to an I/O or configuration failure.
func IsNoTag(err error) bool {
	for _, target := range []error{
		gptag.ErrNoCandidate,
		gptag.ErrBoundaryNotFound,
		gptag.ErrGeometryInvalid,
		gptag.ErrFinderMismatch,
		gptag.ErrNoValidRotation,
		gptag.ErrAmbiguousOrientation,
		gptag.ErrUncorrectable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
