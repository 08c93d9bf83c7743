package segment

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	fieldGreen = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	shirtRed   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

//newImage returns a w x h image filled with c
func newImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func toMat(t *testing.T, img *image.RGBA) gocv.Mat {
	t.Helper()
	m, err := FromRGBA(img)
	require.NoError(t, err)
	return m
}

//pitchFrame is a 100x100 green frame with red rectangles on it
func pitchFrame(t *testing.T, rects ...image.Rectangle) gocv.Mat {
	t.Helper()
	img := newImage(100, 100, fieldGreen)
	for _, r := range rects {
		fillRect(img, r, shirtRed)
	}
	return toMat(t, img)
}

//pixelAt returns the channels of m at (x, y)
func pixelAt(m gocv.Mat, x, y int) []uint8 {
	ch := m.Channels()
	data := m.ToBytes()
	off := (y*m.Cols() + x) * ch
	return data[off : off+ch]
}

func onlyBinary(t *testing.T, mask gocv.Mat) {
	t.Helper()
	for _, v := range mask.ToBytes() {
		if v != 0 && v != 255 {
			t.Fatalf("mask holds value %d", v)
		}
	}
}
