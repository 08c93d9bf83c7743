package video

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/segment"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	fieldGreen = color.RGBA{G: 255, A: 255}
	shirtRed   = color.RGBA{R: 255, A: 255}
)

//bgrFrame is a size x size BGR pitch with red rectangles, as a capture device would deliver it
func bgrFrame(t *testing.T, size int, rects ...image.Rectangle) gocv.Mat {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: fieldGreen}, image.Point{}, draw.Src)
	for _, r := range rects {
		draw.Draw(img, r, &image.Uniform{C: shirtRed}, image.Point{}, draw.Src)
	}

	rgba, err := segment.FromRGBA(img)
	require.NoError(t, err)
	defer rgba.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
	return bgr
}

func bgrAt(m gocv.Mat, x, y int) []uint8 {
	data := m.ToBytes()
	off := (y*m.Cols() + x) * 3
	return data[off : off+3]
}

//fakeSource replays frames in order
type fakeSource struct {
	frames []gocv.Mat
	next   int
}

func (s *fakeSource) Read(m *gocv.Mat) bool {
	if s.next >= len(s.frames) {
		return false
	}
	s.frames[s.next].CopyTo(m)
	s.next++
	return true
}

func (s *fakeSource) Close() {
	for _, f := range s.frames {
		f.Close()
	}
}

//fakeSink keeps a copy of every written frame and fails from failAt on, when set
type fakeSink struct {
	frames []gocv.Mat
	failAt int
}

func (s *fakeSink) Write(m gocv.Mat) error {
	if s.failAt > 0 && len(s.frames)+1 >= s.failAt {
		return errors.New("disk full")
	}
	s.frames = append(s.frames, m.Clone())
	return nil
}

func (s *fakeSink) Close() {
	for _, f := range s.frames {
		f.Close()
	}
}

func replay(t *testing.T, n int, rects ...image.Rectangle) *fakeSource {
	t.Helper()
	src := &fakeSource{}
	for i := 0; i < n; i++ {
		src.frames = append(src.frames, bgrFrame(t, 100, rects...))
	}
	t.Cleanup(src.Close)
	return src
}

func newDriver(t *testing.T, mutate func(*segment.Config)) *Driver {
	t.Helper()
	cfg := segment.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	p, err := segment.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return &Driver{Pipeline: p, Mode: segment.Lateral}
}
