package segment

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var whiteRGB = color.RGBA{R: 255, G: 255, B: 255, A: 255}

//DrawOptions controls how detections are drawn
type DrawOptions struct {
	Margin int  //pixels added on every side of the bounding rectangle
	Stroke int  //line thickness
	Labels bool //write the detection index above its box
}

//RemoveField returns a copy of frame where every pixel outside the foreground mask is opaque black
func RemoveField(frame gocv.Mat, foreground gocv.Mat) gocv.Mat {
	out := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 255), frame.Rows(), frame.Cols(), frame.Type())
	frame.CopyToWithMask(&out, foreground)
	return out
}

//DrawDetections strokes the (expanded) bounding rectangle of every detection onto frame in its colour
func DrawDetections(frame *gocv.Mat, detections []Detection, opts DrawOptions) {
	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())

	for i, d := range detections {
		rect := d.Rect.Inset(-opts.Margin).Intersect(bounds)
		if rect.Empty() {
			continue
		}

		plotColor := frameColor(d.Color)
		gocv.Rectangle(frame, rect, plotColor, opts.Stroke)

		if opts.Labels {
			plotLabel(frame, rect, fmt.Sprintf("#%d", i+1), plotColor)
		}
	}
}

//plotLabel writes text on a filled background box sitting on top of rect
func plotLabel(frame *gocv.Mat, rect image.Rectangle, text string, background color.RGBA) {
	size := gocv.GetTextSize(text, gocv.FontHersheyPlain, 1, 1)
	startPoint := image.Pt(rect.Min.X, rect.Min.Y-4)
	textBackgroundRect := image.Rect(startPoint.X, startPoint.Y-size.Y-4, startPoint.X+size.X+4, rect.Min.Y)

	gocv.Rectangle(frame, textBackgroundRect, background, -1) //thickness -1 == filled rectangle
	gocv.PutText(frame, text, image.Pt(startPoint.X+2, startPoint.Y), gocv.FontHersheyPlain, 1, frameColor(whiteRGB), 1)
}

//frameColor maps an RGBA colour onto the scalar gocv builds for drawing. gocv writes B,G,R,A
//into channels 0..3 while our frames are R,G,B,A, so red and blue swap.
func frameColor(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.B, G: c.G, B: c.R, A: c.A}
}

//FromRGBA copies img into a new CV8UC4 Mat in RGBA channel order
func FromRGBA(img *image.RGBA) (gocv.Mat, error) {
	b := img.Bounds()
	if b.Empty() {
		return gocv.NewMat(), ErrInputShape
	}

	//re-pack when img is a sub image with a wider stride
	pix := img.Pix
	if img.Stride != 4*b.Dx() {
		packed := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(packed.Pix[y*packed.Stride:(y+1)*packed.Stride], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		pix = packed.Pix
	}

	view, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, pix)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer view.Close()

	return view.Clone(), nil
}

//ToRGBA copies an RGBA (or RGB) Mat into an image.RGBA
func ToRGBA(m gocv.Mat) (*image.RGBA, error) {
	if err := checkFrame(m); err != nil {
		return nil, err
	}

	src := m
	if m.Channels() == 3 {
		rgba := gocv.NewMat()
		defer rgba.Close()
		gocv.CvtColor(m, &rgba, gocv.ColorBGRToBGRA)
		src = rgba
	}

	img := image.NewRGBA(image.Rect(0, 0, src.Cols(), src.Rows()))
	copy(img.Pix, src.ToBytes())
	return img, nil
}
