package gptag

import "errors"

// Rejection reasons. These are expected, non-fatal outcomes of scanning
// hostile real-world frames; every stage reports the specific reason it
// stopped at so callers can tell "no tag visible" from "tag visible but
// unreadable".
var (
	// ErrNoCandidate is returned when no keypoint match set meets the
	// confidence floor.
	ErrNoCandidate = errors.New("gptag: no candidate region found")

	// ErrBoundaryNotFound is returned when a spike edge cannot be localized
	// during corner refinement.
	ErrBoundaryNotFound = errors.New("gptag: tag boundary not found")

	// ErrGeometryInvalid is returned when refined corners form a degenerate
	// or out-of-bounds quadrilateral.
	ErrGeometryInvalid = errors.New("gptag: refined geometry invalid")

	// ErrFinderMismatch is returned when a finder pattern does not match the
	// expected signature; usually a false positive from keypoint matching.
	ErrFinderMismatch = errors.New("gptag: finder pattern mismatch")

	// ErrNoValidRotation is returned when no annulus rotation hypothesis
	// validates.
	ErrNoValidRotation = errors.New("gptag: no valid rotation")

	// ErrAmbiguousOrientation is returned when more than one rotation
	// hypothesis validates. A well-formed tag never produces this; treat it
	// as a data-integrity signal.
	ErrAmbiguousOrientation = errors.New("gptag: ambiguous orientation")

	// ErrUncorrectable is returned when a codeword exceeds the Reed-Solomon
	// correction radius. A corrupted guess is never returned in its place.
	ErrUncorrectable = errors.New("gptag: uncorrectable errors in data")
)

// Stage identifies the pipeline stage at which a frame's processing stopped.
type Stage int

const (
	StageDetect Stage = iota
	StageRefine
	StageFinder
	StageRotation
	StageData
	StageDone
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageDetect:
		return "detect"
	case StageRefine:
		return "refine"
	case StageFinder:
		return "finder"
	case StageRotation:
		return "rotation"
	case StageData:
		return "data"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// StageFor maps a rejection reason to the stage that produces it.
func StageFor(err error) Stage {
	switch {
	case errors.Is(err, ErrNoCandidate):
		return StageDetect
	case errors.Is(err, ErrBoundaryNotFound), errors.Is(err, ErrGeometryInvalid):
		return StageRefine
	case errors.Is(err, ErrFinderMismatch):
		return StageFinder
	case errors.Is(err, ErrNoValidRotation), errors.Is(err, ErrAmbiguousOrientation):
		return StageRotation
	default:
		return StageData
	}
}
