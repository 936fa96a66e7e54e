package featrack

import (
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MatchSink consumes matched frame pairs (e.g. renders them). It must not modify frames
type MatchSink interface {
	ConsumeMatches(previous, current *Frame, matches []Match)
}

// MatchSinkFunc is an adapter to allow the use of ordinary functions as match sinks
type MatchSinkFunc func(previous, current *Frame, matches []Match)

// ConsumeMatches calls f(previous, current, matches)
func (f MatchSinkFunc) ConsumeMatches(previous, current *Frame, matches []Match) {
	f(previous, current, matches)
}

// Option configures Pipeline
type Option func(*Pipeline)

// WithLogger sets logger. Default is no-op logger
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMatchSink sets consumer of matched frame pairs
func WithMatchSink(sink MatchSink) Option {
	return func(p *Pipeline) {
		p.sink = sink
	}
}

// WithClock replaces time source used for stage timings
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline turns images into frames with keypoints, descriptors and matches against previous frame.
// Process calls are serialized: frame i is fully processed before frame i+1 starts
type Pipeline struct {
	mu        sync.Mutex
	cfg       Config
	buffer    *FrameBuffer
	detector  Detector
	extractor Extractor
	filter    KeypointFilter
	matcher   *Matcher
	sink      MatchSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline validates configuration and resolves detector and extractor from registry
func NewPipeline(cfg Config, registry *Registry, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline configuration")
	}
	if registry == nil {
		registry = NewRegistry()
	}
	var detector Detector
	var err error
	if cfg.Detector == DetectorHarris {
		detector, err = NewHarris(cfg.Harris)
	} else {
		detector, err = registry.Detector(cfg.Detector)
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't resolve detector")
	}
	extractor, err := registry.Extractor(cfg.Extractor)
	if err != nil {
		return nil, errors.Wrap(err, "can't resolve extractor")
	}
	matcher, err := NewMatcher(cfg.Matcher)
	if err != nil {
		return nil, errors.Wrap(err, "can't create matcher")
	}
	p := &Pipeline{
		cfg:       cfg,
		buffer:    NewFrameBuffer(cfg.BufferCapacity),
		detector:  detector,
		extractor: extractor,
		filter:    KeypointFilter{ROI: cfg.ROI, Budget: cfg.Budget},
		matcher:   matcher,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if cfg.BufferCapacity < 2 {
		p.logger.Warn("Buffer holds single frame, matching is disabled", zap.Int("capacity", cfg.BufferCapacity))
	}
	return p, nil
}

// Config returns copy of pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Process runs detection, filtering, description and matching for image.
// On error the buffer is left untouched.
// Returned frame is valid until the next Process call
func (p *Pipeline) Process(img *image.Gray) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if img == nil {
		return nil, errors.New("image is nil")
	}
	frame := NewFrame(img)
	log := p.logger.With(zap.String("frame_id", frame.ID.String()))

	start := p.now()
	kps, err := p.detector.Detect(img)
	if err != nil {
		return nil, errors.Wrapf(err, "%s detection failed", p.cfg.Detector)
	}
	frame.Stats.DetectTime = p.now().Sub(start)
	frame.Stats.Detected = len(kps)

	kps, frame.Stats.AfterROI, frame.Stats.AfterBudget = p.filter.Apply(kps)

	start = p.now()
	kps, descriptors, err := p.extractor.Compute(img, kps)
	if err != nil {
		return nil, errors.Wrapf(err, "%s description failed", p.cfg.Extractor)
	}
	if descriptors.Len() != len(kps) {
		return nil, errors.Wrapf(ErrShapeMismatch, "%s extractor returned %d keypoints and %d descriptors", p.cfg.Extractor, len(kps), descriptors.Len())
	}
	frame.Stats.DescribeTime = p.now().Sub(start)
	frame.Stats.Described = len(kps)
	frame.Keypoints = kps
	frame.Descriptors = descriptors

	log.Debug("Keypoints described",
		zap.String("detector", p.cfg.Detector.String()),
		zap.String("extractor", p.cfg.Extractor.String()),
		zap.Int("detected", frame.Stats.Detected),
		zap.Int("after_roi", frame.Stats.AfterROI),
		zap.Int("after_budget", frame.Stats.AfterBudget),
		zap.Int("described", frame.Stats.Described),
		zap.Duration("detect_time", frame.Stats.DetectTime),
		zap.Duration("describe_time", frame.Stats.DescribeTime),
	)

	// Buffer's newest frame becomes previous one once this frame is appended
	var previous *Frame
	if p.buffer.Cap() > 1 {
		previous = p.buffer.Current()
	}
	if previous != nil {
		start = p.now()
		matches, stats, err := p.matcher.Match(previous.Keypoints, frame.Keypoints, previous.Descriptors, frame.Descriptors)
		if err != nil {
			return nil, errors.Wrap(err, "matching failed")
		}
		frame.Stats.MatchTime = p.now().Sub(start)
		frame.Stats.Match = stats
		frame.Matches = matches
		log.Debug("Descriptors matched",
			zap.String("previous_frame_id", previous.ID.String()),
			zap.String("metric", p.cfg.Matcher.Metric.String()),
			zap.String("strategy", p.cfg.Matcher.Strategy.String()),
			zap.String("selection", p.cfg.Matcher.Selection.String()),
			zap.Int("matches", len(matches)),
			zap.Float64("rejected_percent", stats.RejectedPercent),
			zap.Duration("match_time", frame.Stats.MatchTime),
		)
	}

	p.buffer.Append(frame)
	if previous != nil && p.sink != nil {
		p.sink.ConsumeMatches(previous, frame, frame.Matches)
	}
	return frame, nil
}

// Buffer returns underlying ring buffer. It must not be used concurrently with Process
func (p *Pipeline) Buffer() *FrameBuffer {
	return p.buffer
}

// Reset drops every buffered frame
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffer.Reset()
}
