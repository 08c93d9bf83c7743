package segment

import (
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func newPipeline(t *testing.T, mutate func(*Config)) *Pipeline {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPipelineAllFieldFrame(t *testing.T) {
	p := newPipeline(t, nil)
	frame := pitchFrame(t)
	defer frame.Close()
	original := frame.ToBytes()

	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)

	assert.Empty(t, res.Detections)
	assert.Zero(t, res.Rejected)
	assert.Zero(t, res.Foreground)
	assert.Equal(t, original, frame.ToBytes())
}

func TestPipelineSinglePlayer(t *testing.T) {
	p := newPipeline(t, nil)
	frame := pitchFrame(t, image.Rect(10, 10, 30, 50))
	defer frame.Close()

	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)

	d := res.Detections[0]
	assert.Equal(t, image.Rect(10, 10, 30, 50), d.Rect)
	assert.Greater(t, d.FillRatio(), 0.9)
	assert.Greater(t, int(d.Color.R), 200)
	assert.Less(t, int(d.Color.G), 50)
	assert.Less(t, int(d.Color.B), 50)

	//box drawn 5px outside the player in the sampled colour
	assert.Equal(t, []uint8{d.Color.R, d.Color.G, d.Color.B, 255}, pixelAt(frame, 5, 30))
	assert.Equal(t, []uint8{0, 255, 0, 255}, pixelAt(frame, 70, 70))

	assert.Equal(t, Bootstrap, res.Phase)
	assert.Equal(t, d.Color, res.Tentative)
}

func TestPipelineDiscardsSmallBlob(t *testing.T) {
	p := newPipeline(t, nil)
	frame := pitchFrame(t, image.Rect(10, 10, 15, 15))
	defer frame.Close()

	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)

	assert.Empty(t, res.Detections)
	assert.Zero(t, res.Foreground)
	assert.Zero(t, p.State().Snapshot().Samples)
}

func TestPipelineMergesOverlappingRectangles(t *testing.T) {
	p := newPipeline(t, nil)
	a, b := image.Rect(10, 10, 30, 50), image.Rect(25, 40, 55, 60)
	frame := pitchFrame(t, a, b)
	defer frame.Close()

	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)

	d := res.Detections[0]
	assert.Equal(t, a.Union(b), d.Rect)

	occupied := float64(20*40 + 30*20 - 5*10)
	box := float64(a.Union(b).Dx() * a.Union(b).Dy())
	assert.InDelta(t, occupied/box, d.FillRatio(), 0.06)
	assert.Less(t, d.FillRatio(), 0.9)
}

func TestPipelineOtherViewKeepsSlivers(t *testing.T) {
	sliver := image.Rect(40, 10, 46, 80)

	lateral := newPipeline(t, nil)
	frame := pitchFrame(t, sliver)
	defer frame.Close()
	res, err := lateral.Process(&frame, Lateral)
	require.NoError(t, err)
	assert.Empty(t, res.Detections)
	assert.Equal(t, 1, res.Rejected)

	other := newPipeline(t, nil)
	frame2 := pitchFrame(t, sliver)
	defer frame2.Close()
	res, err = other.Process(&frame2, Other)
	require.NoError(t, err)
	assert.Len(t, res.Detections, 1)
}

func TestPipelineRejectsSizeChange(t *testing.T) {
	p := newPipeline(t, nil)
	frame := pitchFrame(t)
	defer frame.Close()
	_, err := p.Process(&frame, Lateral)
	require.NoError(t, err)

	small := toMat(t, newImage(50, 50, fieldGreen))
	defer small.Close()
	_, err = p.Process(&small, Lateral)
	assert.True(t, errors.Is(err, ErrInputShape))
	assert.Equal(t, 1, p.State().Snapshot().Frames)
}

type failingStage struct{}

func (failingStage) Name() string                    { return "failing" }
func (failingStage) Apply(gocv.Mat, *gocv.Mat) error { return errors.New("boom") }

func TestPipelineFailedFrameKeepsState(t *testing.T) {
	p := newPipeline(t, func(c *Config) { c.Lock = LockTrigger{AfterFrames: 2} })

	frame := pitchFrame(t, image.Rect(10, 10, 30, 50))
	defer frame.Close()
	_, err := p.Process(&frame, Lateral)
	require.NoError(t, err)
	before := p.State().Snapshot()

	p.pre = append(p.pre, failingStage{})
	frame2 := pitchFrame(t, image.Rect(10, 10, 30, 50))
	defer frame2.Close()
	_, err = p.Process(&frame2, Lateral)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")

	assert.Equal(t, before, p.State().Snapshot())
	assert.Equal(t, Bootstrap, p.State().Phase())
}

func TestPipelineLocksAndReusesColour(t *testing.T) {
	p := newPipeline(t, func(c *Config) { c.Lock = LockTrigger{AfterFrames: 1} })

	frame := pitchFrame(t, image.Rect(10, 10, 30, 50))
	defer frame.Close()
	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)
	assert.Equal(t, Locked, res.Phase)
	locked, ok := p.State().Locked()
	require.True(t, ok)

	//a blue player is now drawn in the locked red
	img := newImage(100, 100, fieldGreen)
	fillRect(img, image.Rect(60, 20, 80, 60), color.RGBA{B: 255, A: 255})
	frame2 := toMat(t, img)
	defer frame2.Close()
	res, err = p.Process(&frame2, Lateral)
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	assert.Equal(t, locked, res.Detections[0].Color)
}

func TestPipelineRemoveField(t *testing.T) {
	p := newPipeline(t, func(c *Config) { c.RemoveField = true })
	frame := pitchFrame(t, image.Rect(10, 10, 30, 50), image.Rect(80, 80, 83, 83))
	defer frame.Close()

	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)

	assert.Equal(t, []uint8{255, 0, 0, 255}, pixelAt(frame, 20, 30))
	assert.Equal(t, []uint8{0, 0, 0, 255}, pixelAt(frame, 70, 70))
}

func TestPipelineWithPreprocessors(t *testing.T) {
	p := newPipeline(t, func(c *Config) { c.Preprocess.Stages = []string{"popularity", "blur"} })
	frame := pitchFrame(t, image.Rect(10, 10, 30, 50))
	defer frame.Close()

	res, err := p.Process(&frame, Lateral)
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	//blurring widens the silhouette by a pixel of field, but the colour still comes from the
	//original frame: pure red and green only, the quantized palette would carry some blue
	c := res.Detections[0].Color
	assert.Greater(t, int(c.R), 180)
	assert.Zero(t, c.B)
	assert.InDelta(t, 255, int(c.R)+int(c.G), 1)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Kernel = 0
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Preprocess.Stages = []string{"sharpen"}
	_, err = New(cfg)
	assert.Error(t, err)
}
