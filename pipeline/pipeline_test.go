package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	gptag "github.com/S-SB/gp-tag-mobile"
	"github.com/S-SB/gp-tag-mobile/detector"
	"github.com/S-SB/gp-tag-mobile/encoder"
	"github.com/S-SB/gp-tag-mobile/pose"
	"github.com/S-SB/gp-tag-mobile/scan"
)

func testData() *gptag.TagData {
	return &gptag.TagData{
		Latitude:   63.8203894,
		Longitude:  20.3058847,
		Altitude:   45.16,
		Quaternion: [4]float64{0.707, 0, 0.707, 0},
		Accuracy:   2,
		Scale:      0.36,
		TagID:      123,
		VersionID:  3,
	}
}

func tagFrame(t *testing.T) *image.Gray {
	t.Helper()
	tag, err := encoder.Render(testData(), detector.DefaultConfig().TemplateUnit)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	frame := image.NewGray(image.Rect(0, 0, 420, 420))
	for i := range frame.Pix {
		frame.Pix[i] = 255
	}
	size := tag.Bounds().Dx()
	for y := 0; y < size; y++ {
		copy(frame.Pix[(y+60)*frame.Stride+60:], tag.Pix[y*tag.Stride:y*tag.Stride+size])
	}
	return frame
}

func flatFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	return img
}

// sliceSource serves a fixed list of frames, then blocks until cancelled.
type sliceSource struct {
	frames []Frame
	next   int
}

func (s *sliceSource) Next(ctx context.Context) (Frame, error) {
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		return f, nil
	}
	<-ctx.Done()
	return Frame{}, ctx.Err()
}

// collectSink gathers outcomes and signals when enough arrived.
type collectSink struct {
	mu       sync.Mutex
	outcomes []Outcome
	done     chan struct{}
	want     int
}

func newCollectSink(want int) *collectSink {
	return &collectSink{done: make(chan struct{}), want: want}
}

func (c *collectSink) Handle(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
	if len(c.outcomes) == c.want {
		close(c.done)
	}
}

func (c *collectSink) results() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outcome(nil), c.outcomes...)
}

func TestSlotReplacesStale(t *testing.T) {
	s := NewSlot()
	if dropped := s.Offer(Frame{ID: "a"}); dropped {
		t.Error("first offer reported a drop")
	}
	if dropped := s.Offer(Frame{ID: "b"}); !dropped {
		t.Error("second offer should drop the stale frame")
	}
	f, err := s.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if f.ID != "b" {
		t.Errorf("took frame %q, want the newest %q", f.ID, "b")
	}
}

func TestSlotTakeCancelled(t *testing.T) {
	s := NewSlot()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Take(ctx); err == nil {
		t.Error("expected context error from empty slot")
	}
}

func TestPipelineDecodesFrame(t *testing.T) {
	reader := scan.NewReader(detector.DefaultConfig())
	sink := newCollectSink(1)
	k := pose.DefaultIntrinsics
	p := New(reader, sink, Config{Workers: 1, Intrinsics: &k})

	ctx, cancel := context.WithCancel(context.Background())
	src := &sliceSource{frames: []Frame{NewFrame(tagFrame(t))}}
	go p.Run(ctx, src)

	select {
	case <-sink.done:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
	cancel()

	outcomes := sink.results()
	o := outcomes[0]
	if o.Err != nil {
		t.Fatalf("outcome error: %v", o.Err)
	}
	if o.Stage != gptag.StageDone {
		t.Errorf("stage = %v, want done", o.Stage)
	}
	if o.Result == nil || o.Result.Data.TagID != testData().TagID {
		t.Errorf("result = %+v", o.Result)
	}
	if o.Pose == nil {
		t.Error("pose not estimated despite intrinsics")
	} else if o.Pose.Translation[2] <= 0 {
		t.Errorf("pose z = %v, want positive", o.Pose.Translation[2])
	}
	if o.Elapsed <= 0 {
		t.Error("elapsed not recorded")
	}
	if o.FrameID == "" {
		t.Error("frame id not set")
	}
}

func TestPipelineRejectsEmptyFrame(t *testing.T) {
	reader := scan.NewReader(detector.DefaultConfig())
	sink := newCollectSink(1)
	p := New(reader, sink, Config{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx, &sliceSource{frames: []Frame{NewFrame(flatFrame())}})

	select {
	case <-sink.done:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
	cancel()

	o := sink.results()[0]
	if o.Err == nil {
		t.Fatal("expected rejection outcome")
	}
	if o.Result != nil || o.Pose != nil {
		t.Error("rejected outcome carries a result")
	}
	if o.Stage == gptag.StageDone {
		t.Error("rejected outcome reports done stage")
	}
}

func TestPipelineDetectInterval(t *testing.T) {
	reader := scan.NewReader(detector.DefaultConfig())
	sink := newCollectSink(1)
	p := New(reader, sink, Config{Workers: 1, DetectInterval: time.Hour})

	frames := []Frame{NewFrame(flatFrame()), NewFrame(flatFrame()), NewFrame(flatFrame())}
	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx, &sliceSource{frames: frames})

	select {
	case <-sink.done:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
	// Give the pump a moment to (incorrectly) forward the later frames.
	time.Sleep(100 * time.Millisecond)
	cancel()

	if got := len(sink.results()); got != 1 {
		t.Errorf("processed %d frames within the interval, want 1", got)
	}
}

func TestOfferDirect(t *testing.T) {
	reader := scan.NewReader(detector.DefaultConfig())
	sink := newCollectSink(1)
	p := New(reader, sink, Config{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, &sliceSource{})
	p.Offer(NewFrame(flatFrame()))

	select {
	case <-sink.done:
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
}
