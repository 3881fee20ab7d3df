// Package pipeline runs the scanner as a continuous frame loop: a source
// feeds camera frames through a latest-frame slot into worker goroutines,
// and every frame produces an Outcome for the sink. Stale frames are
// dropped rather than queued so results always describe the present.
package pipeline

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/monitor"
	"github.com/S-SB/gp-tag-mobile/pose"
	"github.com/S-SB/gp-tag-mobile/scan"
)

// Frame is one camera frame entering the pipeline.
type Frame struct {
	ID       string
	Image    image.Image
	Captured time.Time
}

// NewFrame wraps an image with a fresh identifier and capture time.
func NewFrame(img image.Image) Frame {
	return Frame{ID: uuid.NewString(), Image: img, Captured: time.Now()}
}

// Outcome is the pipeline's verdict on one frame.
type Outcome struct {
	FrameID string

	// Result is set when the frame decoded to a tag; Err holds the last
	// rejection reason otherwise.
	Result *gptag.Result
	Err    error

	// Pose is the camera-relative tag pose, set only on success and when
	// the pipeline has camera intrinsics.
	Pose *pose.Pose

	// Stage is the pipeline stage reached: StageDone on success, otherwise
	// the stage that rejected the frame.
	Stage gptag.Stage

	Elapsed time.Duration
}

// Source produces frames. Next blocks until a frame is available or the
// context is cancelled.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Sink consumes outcomes. Handle is called from worker goroutines and must
// be safe for concurrent use.
type Sink interface {
	Handle(Outcome)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Outcome)

// Handle calls f.
func (f SinkFunc) Handle(o Outcome) { f(o) }

// Config tunes the frame loop.
type Config struct {
	// Workers is the number of concurrent scan goroutines.
	Workers int

	// DetectInterval is the minimum spacing between processed frames.
	// Frames arriving faster are dropped at the slot.
	DetectInterval time.Duration

	// Intrinsics enables pose estimation for decoded tags.
	Intrinsics *pose.Intrinsics
}

// Pipeline owns the slot, the workers and their shared reader.
type Pipeline struct {
	reader *scan.Reader
	sink   Sink
	cfg    Config
	slot   *Slot
	log    *zap.Logger
	wg     sync.WaitGroup
}

// New builds a pipeline around an existing reader.
func New(reader *scan.Reader, sink Sink, cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Pipeline{
		reader: reader,
		sink:   sink,
		cfg:    cfg,
		slot:   NewSlot(),
		log:    zap.L().Named("pipeline"),
	}
}

// Run pumps frames from the source and blocks until the context is
// cancelled and all workers have drained.
func (p *Pipeline) Run(ctx context.Context, src Source) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.runWorker(ctx, i)
	}
	p.pump(ctx, src)
	p.wg.Wait()
}

// Offer hands a frame to the workers directly, bypassing any source.
// Returns true when a stale frame was dropped to make room.
func (p *Pipeline) Offer(f Frame) bool {
	return p.slot.Offer(f)
}

func (p *Pipeline) pump(ctx context.Context, src Source) {
	var lastOffer time.Time
	for {
		frame, err := src.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.Warn("frame source stopped", zap.Error(err))
			}
			return
		}
		if p.cfg.DetectInterval > 0 && time.Since(lastOffer) < p.cfg.DetectInterval {
			continue
		}
		lastOffer = time.Now()
		if p.slot.Offer(frame) {
			p.log.Debug("dropped stale frame")
		}
	}
}

func (p *Pipeline) runWorker(ctx context.Context, workerID int) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic, restarting in 1s",
				zap.Int("worker", workerID), zap.Any("panic", r))
			time.Sleep(1 * time.Second)
			if ctx.Err() == nil {
				go p.runWorker(ctx, workerID)
				return
			}
			p.wg.Done()
			return
		}
		p.wg.Done()
	}()
	p.log.Info("worker started", zap.Int("worker", workerID))
	for {
		frame, err := p.slot.Take(ctx)
		if err != nil {
			return
		}
		p.sink.Handle(p.Process(frame))
	}
}

// Process scans one frame synchronously, recording metrics and estimating
// the pose when configured. Safe for concurrent use.
func (p *Pipeline) Process(frame Frame) Outcome {
	monitor.ObserveFrame()
	start := time.Now()
	out := Outcome{FrameID: frame.ID}

	result, err := p.reader.Read(frame.Image)
	out.Elapsed = time.Since(start)
	monitor.ObserveLatency(out.Elapsed)
	if err != nil {
		out.Err = err
		out.Stage = gptag.StageFor(err)
		monitor.ObserveReject(err)
		return out
	}

	out.Result = result
	out.Stage = gptag.StageDone
	monitor.ObserveDecoded()
	if p.cfg.Intrinsics != nil {
		if tagPose, err := p.estimatePose(result); err == nil {
			out.Pose = tagPose
		} else {
			p.log.Debug("pose estimation failed",
				zap.String("frame", frame.ID), zap.Error(err))
		}
	}
	return out
}

// estimatePose decomposes the refined corner geometry with the decoded
// physical scale.
func (p *Pipeline) estimatePose(result *gptag.Result) (*pose.Pose, error) {
	g := p.reader.Detector().Template().Geometry
	tagPose, err := pose.EstimateFromCorners(result.Corners, g, result.Data.Scale, *p.cfg.Intrinsics)
	if err != nil {
		return nil, err
	}
	return &tagPose, nil
}
