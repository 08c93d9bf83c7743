package segment

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

//checkFrame validates a frame independently of any session
func checkFrame(frame gocv.Mat) error {
	if frame.Empty() || frame.Rows() == 0 || frame.Cols() == 0 {
		return errors.Wrap(ErrInputShape, "empty frame")
	}
	if ch := frame.Channels(); ch != 3 && ch != 4 {
		return errors.Wrapf(ErrInputShape, "%d channels", ch)
	}
	return nil
}

//Threshold marks with 255 every pixel whose HSV value lies inside r on all three channels, 0 otherwise.
//frame is RGBA, or RGB which is treated as fully opaque. The returned mask must be closed by the caller.
func Threshold(frame gocv.Mat, r ColorRange) (gocv.Mat, error) {
	if err := checkFrame(frame); err != nil {
		return gocv.NewMat(), err
	}

	hsv := gocv.NewMat()
	defer hsv.Close()

	if frame.Channels() == 4 {
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(frame, &rgb, gocv.ColorBGRAToBGR)
		gocv.CvtColor(rgb, &hsv, gocv.ColorRGBToHSV)
	} else {
		gocv.CvtColor(frame, &hsv, gocv.ColorRGBToHSV)
	}

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(r.Lower.H, r.Lower.S, r.Lower.V, 0),
		gocv.NewScalar(r.Upper.H, r.Upper.S, r.Upper.V, 0),
		&mask)

	return mask, nil
}
