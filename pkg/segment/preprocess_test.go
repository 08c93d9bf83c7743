package segment

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func distinctColors(m gocv.Mat) int {
	ch := m.Channels()
	data := m.ToBytes()
	seen := make(map[[3]uint8]bool)
	for i := 0; i+2 < len(data); i += ch {
		seen[[3]uint8{data[i], data[i+1], data[i+2]}] = true
	}
	return len(seen)
}

func TestNewPreprocessor(t *testing.T) {
	cfg := DefaultConfig().Preprocess

	for _, name := range []string{"blur", "kmeans", "popularity"} {
		p, err := NewPreprocessor(name, cfg)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := NewPreprocessor("median", cfg)
	assert.Error(t, err)
}

func TestPopularityPaletteOrder(t *testing.T) {
	q := PopularityQuantizer{Colors: 2, Bits: 4}
	//three greens, two reds, one blue
	data := []byte{
		0, 255, 0, 255, 0, 250, 0, 255, 1, 252, 2, 255,
		255, 0, 0, 255, 250, 3, 3, 255,
		0, 0, 255, 255,
	}

	palette := q.Palette(data, 4)
	require.Len(t, palette, 2)
	assert.Equal(t, [3]uint8{8, 248, 8}, palette[0])
	assert.Equal(t, [3]uint8{248, 8, 8}, palette[1])

	//equal counts fall back to bucket order, so repeated calls agree
	assert.Equal(t, q.Palette(data, 4), palette)
}

func TestPopularityQuantizerApply(t *testing.T) {
	img := newImage(20, 20, fieldGreen)
	fillRect(img, image.Rect(0, 0, 5, 20), shirtRed)
	img.Set(10, 10, image.White)
	frame := toMat(t, img)
	defer frame.Close()

	out := gocv.NewMat()
	defer out.Close()
	require.NoError(t, PopularityQuantizer{Colors: 2, Bits: 3}.Apply(frame, &out))

	assert.Equal(t, frame.Rows(), out.Rows())
	assert.Equal(t, frame.Type(), out.Type())
	assert.LessOrEqual(t, distinctColors(out), 2)
	//alpha untouched
	assert.Equal(t, uint8(255), pixelAt(out, 10, 10)[3])

	assert.Error(t, PopularityQuantizer{Colors: 2, Bits: 0}.Apply(frame, &out))
}

func TestKMeansQuantizerApply(t *testing.T) {
	img := newImage(16, 16, fieldGreen)
	fillRect(img, image.Rect(0, 0, 8, 16), shirtRed)
	img.Set(12, 12, image.White)
	frame := toMat(t, img)
	defer frame.Close()

	out := gocv.NewMat()
	defer out.Close()
	require.NoError(t, KMeansQuantizer{K: 2, MaxIter: 5}.Apply(frame, &out))

	assert.Equal(t, frame.Cols(), out.Cols())
	assert.LessOrEqual(t, distinctColors(out), 2)

	assert.Error(t, KMeansQuantizer{K: 0, MaxIter: 5}.Apply(frame, &out))
}

func TestBoxBlurKeepsShape(t *testing.T) {
	frame := pitchFrame(t, image.Rect(10, 10, 30, 50))
	defer frame.Close()

	out := gocv.NewMat()
	defer out.Close()
	require.NoError(t, BoxBlur{Size: 7}.Apply(frame, &out))

	assert.Equal(t, frame.Rows(), out.Rows())
	assert.Equal(t, frame.Type(), out.Type())
	assert.Equal(t, []uint8{0, 255, 0, 255}, pixelAt(out, 80, 80))
	assert.NotEqual(t, pixelAt(frame, 10, 30), pixelAt(out, 10, 30))

	assert.Error(t, BoxBlur{}.Apply(frame, &out))
}
