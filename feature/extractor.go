package feature

import (
	"image"
	"sort"
)

// Keypoint is a detected interest point in full-resolution image
// coordinates.
type Keypoint struct {
	X, Y     float64
	Angle    float64
	Response float64
	Level    int
}

// Features pairs keypoints with their descriptors, index for index.
type Features struct {
	Keypoints   []Keypoint
	Descriptors []Descriptor
}

// ExtractorConfig tunes feature extraction.
type ExtractorConfig struct {
	// Levels is the pyramid depth; each level halves the resolution.
	Levels int

	// FASTThreshold is the minimum center/ring intensity difference for
	// the corner segment test.
	FASTThreshold int

	// MaxFeatures caps the keypoint count, keeping the strongest
	// responses. Zero means no cap.
	MaxFeatures int
}

// DefaultExtractorConfig returns the tuning used by the detector.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Levels:        3,
		FASTThreshold: 20,
		MaxFeatures:   1000,
	}
}

// Extractor detects corners over an image pyramid and describes them with
// rotated binary descriptors. An Extractor is safe for concurrent use.
type Extractor struct {
	cfg ExtractorConfig
}

// NewExtractor returns an Extractor with the given tuning; zero fields fall
// back to defaults.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	def := DefaultExtractorConfig()
	if cfg.Levels <= 0 {
		cfg.Levels = def.Levels
	}
	if cfg.FASTThreshold <= 0 {
		cfg.FASTThreshold = def.FASTThreshold
	}
	if cfg.MaxFeatures < 0 {
		cfg.MaxFeatures = 0
	}
	return &Extractor{cfg: cfg}
}

// Extract returns the image's keypoints and descriptors, strongest
// responses first.
func (e *Extractor) Extract(img *image.Gray) *Features {
	f := &Features{}
	for levelIdx, level := range BuildPyramid(img, e.cfg.Levels) {
		corners := detectFAST(level.Img, e.cfg.FASTThreshold)
		if len(corners) == 0 {
			continue
		}
		smoothed := boxBlur3(level.Img)
		for _, c := range corners {
			// Descriptor patches must fit inside the level.
			if c.x < patchRadius || c.y < patchRadius ||
				c.x >= level.Img.Bounds().Dx()-patchRadius ||
				c.y >= level.Img.Bounds().Dy()-patchRadius {
				continue
			}
			angle := orientation(level.Img, c.x, c.y)
			f.Keypoints = append(f.Keypoints, Keypoint{
				X:        (float64(c.x) + 0.5) / level.Scale,
				Y:        (float64(c.y) + 0.5) / level.Scale,
				Angle:    angle,
				Response: c.response,
				Level:    levelIdx,
			})
			f.Descriptors = append(f.Descriptors, describe(smoothed, c.x, c.y, angle))
		}
	}

	order := make([]int, len(f.Keypoints))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return f.Keypoints[order[i]].Response > f.Keypoints[order[j]].Response
	})
	if e.cfg.MaxFeatures > 0 && len(order) > e.cfg.MaxFeatures {
		order = order[:e.cfg.MaxFeatures]
	}

	sorted := &Features{
		Keypoints:   make([]Keypoint, len(order)),
		Descriptors: make([]Descriptor, len(order)),
	}
	for i, idx := range order {
		sorted.Keypoints[i] = f.Keypoints[idx]
		sorted.Descriptors[i] = f.Descriptors[idx]
	}
	return sorted
}
