package segment

import (
	"image"
	"image/color"
	"strings"

	"github.com/pkg/errors"
)

//ErrInputShape is returned for frames the pipeline refuses to touch: empty, zero sized,
//unsupported channel count or a size different from the first frame of the session
var ErrInputShape = errors.New("segment: invalid frame shape")

//ViewMode selects which rule set the classifier applies to a frame
type ViewMode int

const (
	//Lateral is a side-on camera, players are narrow upright silhouettes
	Lateral ViewMode = iota
	//Other is any other camera angle, only very large blobs are rejected
	Other
)

func (m ViewMode) String() string {
	switch m {
	case Lateral:
		return "lateral"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

//ParseViewMode accepts "lateral" or "other" (case insensitive)
func ParseViewMode(s string) (ViewMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lateral":
		return Lateral, nil
	case "other":
		return Other, nil
	}
	return Lateral, errors.Errorf("segment: unknown view mode %q", s)
}

//HSV is a point in OpenCV's 8 bit HSV space (H 0-180, S and V 0-255)
type HSV struct {
	H float64 `mapstructure:"h"`
	S float64 `mapstructure:"s"`
	V float64 `mapstructure:"v"`
}

//ColorRange is the inclusive HSV box describing the field colour
type ColorRange struct {
	Lower HSV `mapstructure:"lower"`
	Upper HSV `mapstructure:"upper"`
}

func (r ColorRange) valid() bool {
	return r.Lower.H >= 0 && r.Upper.H <= 180 && r.Lower.H <= r.Upper.H &&
		r.Lower.S >= 0 && r.Upper.S <= 255 && r.Lower.S <= r.Upper.S &&
		r.Lower.V >= 0 && r.Upper.V <= 255 && r.Lower.V <= r.Upper.V
}

//Region is one external contour of the foreground mask with its derived geometry
type Region struct {
	Points []image.Point
	Rect   image.Rectangle
	Area   float64 //contour area, not the bounding box area
}

//BoxArea is width*height of the bounding rectangle
func (r Region) BoxArea() int {
	return r.Rect.Dx() * r.Rect.Dy()
}

//AspectRatio is width/height of the bounding rectangle, 0 for a flat rectangle
func (r Region) AspectRatio() float64 {
	if r.Rect.Dy() == 0 {
		return 0
	}
	return float64(r.Rect.Dx()) / float64(r.Rect.Dy())
}

//FillRatio is the contour area over the bounding box area. A degenerate box yields 0,
//which the normal rules then reject.
func (r Region) FillRatio() float64 {
	boxArea := r.BoxArea()
	if boxArea <= 0 {
		return 0
	}
	return r.Area / float64(boxArea)
}

//Detection is a kept region together with the colour it is rendered with
type Detection struct {
	Region
	Color color.RGBA
}

//Result summarises one processed frame
type Result struct {
	Detections []Detection
	Rejected   int
	Foreground int //non-zero pixels of the classified foreground mask
	Phase      Phase
	Tentative  color.RGBA
}
