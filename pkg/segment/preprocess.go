package segment

import (
	"image"
	"sort"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

//Preprocessor is an optional stage run on the frame before thresholding. Only the thresholder sees its
//output; sampling and drawing always use the original frame.
type Preprocessor interface {
	Name() string
	Apply(src gocv.Mat, dst *gocv.Mat) error
}

//BoxBlur averages every pixel over a Size x Size window
type BoxBlur struct {
	Size int
}

func (b BoxBlur) Name() string { return "blur" }

func (b BoxBlur) Apply(src gocv.Mat, dst *gocv.Mat) error {
	if b.Size <= 0 {
		return errors.Errorf("blur: size %d", b.Size)
	}
	gocv.Blur(src, dst, image.Pt(b.Size, b.Size))
	return nil
}

//KMeansQuantizer reduces the frame to K colours picked by k-means over its RGB pixels
type KMeansQuantizer struct {
	K       int
	MaxIter int
}

func (q KMeansQuantizer) Name() string { return "kmeans" }

func (q KMeansQuantizer) Apply(src gocv.Mat, dst *gocv.Mat) error {
	if q.K <= 0 || q.MaxIter <= 0 {
		return errors.Errorf("kmeans: k %d, iterations %d", q.K, q.MaxIter)
	}

	rows, cols, ch := src.Rows(), src.Cols(), src.Channels()
	data := src.ToBytes()
	n := rows * cols
	if n < q.K {
		return errors.Errorf("kmeans: %d pixels for %d clusters", n, q.K)
	}

	//reshape for k-means: (h*w) x 3 float32
	pixels := gocv.NewMatWithSize(n, 3, gocv.MatTypeCV32F)
	defer pixels.Close()
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			pixels.SetFloatAt(i, c, float32(data[i*ch+c]))
		}
	}

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.EPS+gocv.MaxIter, q.MaxIter, 1.0)
	gocv.KMeans(pixels, q.K, &labels, criteria, 1, gocv.KMeansRandomCenters, &centers)

	for i := 0; i < n; i++ {
		center := int(labels.GetIntAt(i, 0))
		for c := 0; c < 3; c++ {
			data[i*ch+c] = clampByte(centers.GetFloatAt(center, c))
		}
	}

	return writeBytes(src, data, dst)
}

//PopularityQuantizer keeps the Colors most frequent colours, each channel reduced to its top Bits bits,
//and maps every pixel to the nearest of them
type PopularityQuantizer struct {
	Colors int
	Bits   uint
}

func (q PopularityQuantizer) Name() string { return "popularity" }

func (q PopularityQuantizer) Apply(src gocv.Mat, dst *gocv.Mat) error {
	if q.Colors <= 0 || q.Bits == 0 || q.Bits > 8 {
		return errors.Errorf("popularity: colors %d, bits %d", q.Colors, q.Bits)
	}

	ch := src.Channels()
	data := src.ToBytes()
	palette := q.Palette(data, ch)
	if len(palette) == 0 {
		return errors.New("popularity: empty frame")
	}

	shift := 8 - q.Bits
	lookup := make(map[int][3]uint8, len(palette))
	for i := 0; i+2 < len(data); i += ch {
		key := bucketKey(data[i], data[i+1], data[i+2], shift)
		c, ok := lookup[key]
		if !ok {
			c = nearest(palette, data[i], data[i+1], data[i+2])
			lookup[key] = c
		}
		data[i], data[i+1], data[i+2] = c[0], c[1], c[2]
	}

	return writeBytes(src, data, dst)
}

//Palette returns the centres of the most popular buckets of the interleaved pixel data.
//Buckets with equal counts are ordered by their index so the result is deterministic.
func (q PopularityQuantizer) Palette(data []byte, channels int) [][3]uint8 {
	shift := 8 - q.Bits
	counts := make(map[int]int)
	for i := 0; i+2 < len(data); i += channels {
		counts[bucketKey(data[i], data[i+1], data[i+2], shift)]++
	}

	keys := make([]int, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > q.Colors {
		keys = keys[:q.Colors]
	}

	half := uint8(0)
	if shift > 0 {
		half = 1 << (shift - 1)
	}
	mask := 1<<q.Bits - 1
	palette := make([][3]uint8, 0, len(keys))
	for _, k := range keys {
		r := uint8((k>>(2*q.Bits))&mask)<<shift | half
		g := uint8((k>>q.Bits)&mask)<<shift | half
		b := uint8(k&mask)<<shift | half
		palette = append(palette, [3]uint8{r, g, b})
	}
	return palette
}

func bucketKey(r, g, b uint8, shift uint) int {
	bits := 8 - shift
	return int(r>>shift)<<(2*bits) | int(g>>shift)<<bits | int(b>>shift)
}

func nearest(palette [][3]uint8, r, g, b uint8) [3]uint8 {
	best, bestDist := palette[0], -1
	for _, p := range palette {
		dr, dg, db := int(p[0])-int(r), int(p[1])-int(g), int(p[2])-int(b)
		if d := dr*dr + dg*dg + db*db; bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func clampByte(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

//writeBytes builds a Mat shaped like like from data and copies it into dst
func writeBytes(like gocv.Mat, data []byte, dst *gocv.Mat) error {
	out, err := gocv.NewMatFromBytes(like.Rows(), like.Cols(), like.Type(), data)
	if err != nil {
		return err
	}
	defer out.Close()

	out.CopyTo(dst)
	return nil
}

//PreprocessConfig holds the parameters of every preprocessor, Stages lists the ones to run in order
type PreprocessConfig struct {
	Stages     []string `mapstructure:"stages"`
	Blur       int      `mapstructure:"blur"`
	KMeansK    int      `mapstructure:"kmeans_k"`
	KMeansIter int      `mapstructure:"kmeans_iterations"`
	Colors     int      `mapstructure:"popularity_colors"`
	Bits       uint     `mapstructure:"popularity_bits"`
}

//NewPreprocessor builds the stage called name
func NewPreprocessor(name string, cfg PreprocessConfig) (Preprocessor, error) {
	switch name {
	case "blur":
		return BoxBlur{Size: cfg.Blur}, nil
	case "kmeans":
		return KMeansQuantizer{K: cfg.KMeansK, MaxIter: cfg.KMeansIter}, nil
	case "popularity":
		return PopularityQuantizer{Colors: cfg.Colors, Bits: cfg.Bits}, nil
	}
	return nil, errors.Errorf("segment: unknown preprocessor %q", name)
}
