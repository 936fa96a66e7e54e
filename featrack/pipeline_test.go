package featrack

import (
	"image"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// grayWithShift returns image whose first pixel tells fake detector how far keypoints moved
func grayWithShift(shift uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	img.Pix[0] = shift
	return img
}

// shiftingDetector emits three keypoints moved right by value of the first pixel
var shiftingDetector = DetectorFunc(func(img *image.Gray) ([]KeyPoint, error) {
	shift := float64(img.Pix[0])
	return []KeyPoint{
		NewKeyPoint(10+shift, 10, 7, 3),
		NewKeyPoint(30+shift, 40, 7, 1),
		NewKeyPoint(50+shift, 20, 7, 2),
	}, nil
})

// positionExtractor describes keypoints by their coordinates
var positionExtractor = ExtractorFunc(func(img *image.Gray, kps []KeyPoint) ([]KeyPoint, *Descriptors, error) {
	rows := make([][]float32, len(kps))
	for i, kp := range kps {
		rows[i] = []float32{float32(kp.X), float32(kp.Y)}
	}
	desc, err := NewFloatDescriptors(rows)
	return kps, desc, err
})

func testPipelineConfig() Config {
	cfg := DefaultConfig()
	cfg.ROI.Enabled = false
	cfg.Matcher = MatcherConfig{
		Metric:    MetricFloating,
		Strategy:  StrategyExhaustive,
		Selection: SelectionNearest,
	}
	return cfg
}

func testRegistry() *Registry {
	registry := NewRegistry()
	registry.RegisterDetector(DetectorFAST, shiftingDetector)
	registry.RegisterExtractor(ExtractorSIFT, positionExtractor)
	return registry
}

func TestPipelineProcess(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var sinkCalls int
	sink := MatchSinkFunc(func(previous, current *Frame, matches []Match) {
		sinkCalls++
		assert.Equal(t, uint64(0), previous.Seq)
		assert.Equal(t, uint64(1), current.Seq)
		assert.Len(t, matches, 3)
	})
	pipeline, err := NewPipeline(testPipelineConfig(), testRegistry(), WithLogger(zap.New(core)), WithMatchSink(sink))
	require.NoError(t, err)

	first, err := pipeline.Process(grayWithShift(0))
	require.NoError(t, err)
	assert.Len(t, first.Keypoints, 3)
	assert.Equal(t, 3, first.Descriptors.Len())
	assert.Empty(t, first.Matches)
	assert.Equal(t, 0, sinkCalls)

	second, err := pipeline.Process(grayWithShift(2))
	require.NoError(t, err)
	expected := []Match{
		{QueryIdx: 0, TrainIdx: 0, Distance: 2},
		{QueryIdx: 1, TrainIdx: 1, Distance: 2},
		{QueryIdx: 2, TrainIdx: 2, Distance: 2},
	}
	if diff := cmp.Diff(expected, second.Matches); diff != "" {
		t.Errorf("Wrong matches (-want +got):\n%s", diff)
	}
	assert.Equal(t, MatchStats{Queries: 3, Emitted: 3, RejectedPercent: 0}, second.Stats.Match)
	assert.Equal(t, 1, sinkCalls)

	assert.Equal(t, 2, pipeline.Buffer().Len())
	assert.Same(t, second, pipeline.Buffer().Current())
	assert.Same(t, first, pipeline.Buffer().Previous())

	assert.Equal(t, 2, logs.FilterMessage("Keypoints described").Len())
	assert.Equal(t, 1, logs.FilterMessage("Descriptors matched").Len())
}

func TestPipelineFilters(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.ROI = ROIConfig{Enabled: true, X: 0, Y: 0, Width: 60, Height: 30}
	cfg.Budget = BudgetConfig{Enabled: true, MaxKeypoints: 1}
	pipeline, err := NewPipeline(cfg, testRegistry())
	require.NoError(t, err)

	frame, err := pipeline.Process(grayWithShift(0))
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Stats.Detected)
	assert.Equal(t, 2, frame.Stats.AfterROI)
	assert.Equal(t, 1, frame.Stats.AfterBudget)
	assert.Equal(t, 1, frame.Stats.Described)
	require.Len(t, frame.Keypoints, 1)
	assert.Equal(t, 3.0, frame.Keypoints[0].Response)
}

func TestPipelineFailureKeepsBuffer(t *testing.T) {
	registry := testRegistry()
	fail := false
	registry.RegisterExtractor(ExtractorSIFT, ExtractorFunc(func(img *image.Gray, kps []KeyPoint) ([]KeyPoint, *Descriptors, error) {
		if fail {
			return nil, nil, errors.New("extractor is broken")
		}
		return positionExtractor(img, kps)
	}))
	pipeline, err := NewPipeline(testPipelineConfig(), registry)
	require.NoError(t, err)

	first, err := pipeline.Process(grayWithShift(0))
	require.NoError(t, err)

	fail = true
	_, err = pipeline.Process(grayWithShift(1))
	assert.Error(t, err)
	assert.Equal(t, 1, pipeline.Buffer().Len())
	assert.Same(t, first, pipeline.Buffer().Current())

	_, err = pipeline.Process(nil)
	assert.Error(t, err)
	assert.Equal(t, 1, pipeline.Buffer().Len())
}

func TestPipelineMisalignedExtractor(t *testing.T) {
	registry := testRegistry()
	registry.RegisterExtractor(ExtractorSIFT, ExtractorFunc(func(img *image.Gray, kps []KeyPoint) ([]KeyPoint, *Descriptors, error) {
		_, desc, err := positionExtractor(img, kps)
		return kps[1:], desc, err
	}))
	pipeline, err := NewPipeline(testPipelineConfig(), registry)
	require.NoError(t, err)

	_, err = pipeline.Process(grayWithShift(0))
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, 0, pipeline.Buffer().Len())
}

func TestPipelineSingleFrameBuffer(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg := testPipelineConfig()
	cfg.BufferCapacity = 1
	pipeline, err := NewPipeline(cfg, testRegistry(), WithLogger(zap.New(core)))
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len())

	for i := 0; i < 3; i++ {
		frame, err := pipeline.Process(grayWithShift(uint8(i)))
		require.NoError(t, err)
		assert.Empty(t, frame.Matches)
	}
	assert.Equal(t, 1, pipeline.Buffer().Len())
}

func TestPipelineUnregisteredCapability(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Extractor = ExtractorFREAK
	_, err := NewPipeline(cfg, testRegistry())
	assert.ErrorIs(t, err, ErrNotRegistered)

	cfg = testPipelineConfig()
	cfg.Detector = DetectorSIFT
	_, err = NewPipeline(cfg, testRegistry())
	assert.ErrorIs(t, err, ErrNotRegistered)

	cfg = testPipelineConfig()
	cfg.BufferCapacity = 0
	_, err = NewPipeline(cfg, testRegistry())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPipelineHarrisFromConfig(t *testing.T) {
	cfg := testPipelineConfig()
	cfg.Detector = DetectorHarris
	cfg.Harris.MinResponse = 200
	pipeline, err := NewPipeline(cfg, testRegistry())
	require.NoError(t, err)

	frame, err := pipeline.Process(squareImage(40, 10, 30))
	require.NoError(t, err)
	require.NotEmpty(t, frame.Keypoints)
	for _, kp := range frame.Keypoints {
		assert.Greater(t, kp.Response, 200.0)
	}
}

func TestPipelineTimings(t *testing.T) {
	current := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		current = current.Add(time.Millisecond)
		return current
	}
	pipeline, err := NewPipeline(testPipelineConfig(), testRegistry(), WithClock(clock))
	require.NoError(t, err)

	_, err = pipeline.Process(grayWithShift(0))
	require.NoError(t, err)
	frame, err := pipeline.Process(grayWithShift(1))
	require.NoError(t, err)
	assert.Equal(t, time.Millisecond, frame.Stats.DetectTime)
	assert.Equal(t, time.Millisecond, frame.Stats.DescribeTime)
	assert.Equal(t, time.Millisecond, frame.Stats.MatchTime)

	pipeline.Reset()
	assert.Equal(t, 0, pipeline.Buffer().Len())
}
