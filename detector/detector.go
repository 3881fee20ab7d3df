package detector

import (
	"fmt"
	"image"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/feature"
	"github.com/S-SB/gp-tag-mobile/transform"
)

// Candidate is a proposed tag location: a homography from template
// coordinates to frame coordinates with its supporting evidence.
type Candidate struct {
	H          *transform.PerspectiveTransform
	Inliers    int
	Confidence float64
}

// Config tunes the detector.
type Config struct {
	// TemplateUnit is the pixels-per-cell resolution of the matching
	// template.
	TemplateUnit int

	// MaxCandidates bounds how many distinct tag hypotheses a single frame
	// can yield.
	MaxCandidates int

	Extractor feature.ExtractorConfig
	Matcher   feature.MatchConfig
	RANSAC    transform.RANSACConfig

	// MinInteriorAngleDeg and MinArea reject refined boundaries that are
	// too skewed or too small to decode.
	MinInteriorAngleDeg float64
	MinArea             float64

	// RingSampleFracs are the angular sample positions within each
	// quadrant of the orientation ring, as fractions of the quadrant span.
	RingSampleFracs []float64
}

// DefaultConfig returns the standard detector tuning.
func DefaultConfig() Config {
	return Config{
		TemplateUnit:        8,
		MaxCandidates:       4,
		Extractor:           feature.DefaultExtractorConfig(),
		Matcher:             feature.DefaultMatchConfig(),
		RANSAC:              transform.DefaultRANSACConfig(),
		MinInteriorAngleDeg: 25,
		MinArea:             32 * 32,
		RingSampleFracs:     []float64{0.15, 0.3, 0.5, 0.7, 0.85},
	}
}

// Detector finds tag candidates in grayscale frames. A Detector is safe
// for concurrent use.
type Detector struct {
	cfg       Config
	extractor *feature.Extractor
	template  *Template
}

// New builds a Detector; zero config fields fall back to defaults.
func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.TemplateUnit <= 0 {
		cfg.TemplateUnit = def.TemplateUnit
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.MinInteriorAngleDeg <= 0 {
		cfg.MinInteriorAngleDeg = def.MinInteriorAngleDeg
	}
	if cfg.MinArea <= 0 {
		cfg.MinArea = def.MinArea
	}
	if len(cfg.RingSampleFracs) == 0 {
		cfg.RingSampleFracs = def.RingSampleFracs
	}
	if cfg.RANSAC.Iterations <= 0 {
		cfg.RANSAC = def.RANSAC
	}
	extractor := feature.NewExtractor(cfg.Extractor)
	return &Detector{
		cfg:       cfg,
		extractor: extractor,
		template:  NewTemplate(cfg.TemplateUnit, extractor),
	}
}

// Template returns the detector's matching template.
func (d *Detector) Template() *Template {
	return d.template
}

// Detect proposes candidate tag locations in the frame, strongest first.
// It returns ErrNoCandidate when the frame yields no consistent
// correspondence with the template.
func (d *Detector) Detect(img *image.Gray) ([]Candidate, error) {
	frame := d.extractor.Extract(img)
	matches := feature.MatchDescriptors(d.template.Features.Descriptors, frame.Descriptors, d.cfg.Matcher)
	if len(matches) < d.cfg.RANSAC.MinInliers {
		return nil, fmt.Errorf("detector: %d descriptor matches: %w", len(matches), gptag.ErrNoCandidate)
	}

	pool := make([]transform.Match, len(matches))
	for i, m := range matches {
		tk := d.template.Features.Keypoints[m.Query]
		fk := frame.Keypoints[m.Train]
		pool[i] = transform.Match{SrcX: tk.X, SrcY: tk.Y, DstX: fk.X, DstY: fk.Y}
	}

	var candidates []Candidate
	for len(candidates) < d.cfg.MaxCandidates {
		h, inliers, err := transform.EstimateRANSAC(pool, d.cfg.RANSAC)
		if err != nil {
			break
		}
		candidates = append(candidates, Candidate{
			H:          h,
			Inliers:    len(inliers),
			Confidence: float64(len(inliers)) / float64(len(pool)),
		})

		// Drop this candidate's support and look for further tags.
		remaining := make([]transform.Match, 0, len(pool)-len(inliers))
		drop := make(map[int]bool, len(inliers))
		for _, idx := range inliers {
			drop[idx] = true
		}
		for i, m := range pool {
			if !drop[i] {
				remaining = append(remaining, m)
			}
		}
		pool = remaining
		if len(pool) < d.cfg.RANSAC.MinInliers {
			break
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("detector: no consensus homography: %w", gptag.ErrNoCandidate)
	}
	return candidates, nil
}
