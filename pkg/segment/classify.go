package segment

import "github.com/pkg/errors"

//LateralRules are the rejection thresholds for a side-on view. They were tuned by hand on
//person sized players, any single rule firing rejects the region.
type LateralRules struct {
	Tallness  int     `mapstructure:"tallness"`   //reject if width*Tallness < height
	Flatness  int     `mapstructure:"flatness"`   //reject if height*Flatness < width
	MaxSide   int     `mapstructure:"max_side"`   //reject if width or height > MaxSide
	MinHeight int     `mapstructure:"min_height"` //reject if height < MinHeight
	MinBox    int     `mapstructure:"min_box"`    //reject if width*height < MinBox
	MinArea   float64 `mapstructure:"min_area"`   //reject if contour area < MinArea
	MinFill   float64 `mapstructure:"min_fill"`   //reject if fill ratio < MinFill
	MaxAspect float64 `mapstructure:"max_aspect"` //reject if width/height > MaxAspect
}

//OtherRules are the rejection thresholds for every non lateral view
type OtherRules struct {
	MaxSide int `mapstructure:"max_side"` //reject if width or height > MaxSide
}

//Rules holds both rule sets, the view mode of each frame picks one
type Rules struct {
	Lateral LateralRules `mapstructure:"lateral"`
	Other   OtherRules   `mapstructure:"other"`
}

//DefaultRules returns the tuned thresholds
func DefaultRules() Rules {
	return Rules{
		Lateral: LateralRules{
			Tallness:  6,
			Flatness:  3,
			MaxSide:   200,
			MinHeight: 12,
			MinBox:    110,
			MinArea:   70,
			MinFill:   0.26,
			MaxAspect: 3.2,
		},
		Other: OtherRules{
			MaxSide: 100,
		},
	}
}

func (r Rules) validate() error {
	l := r.Lateral
	if l.Tallness <= 0 || l.Flatness <= 0 || l.MaxSide <= 0 || l.MaxAspect <= 0 {
		return errors.New("segment: lateral rules need positive tallness, flatness, max_side and max_aspect")
	}
	if l.MinFill < 0 || l.MinFill > 1 {
		return errors.Errorf("segment: lateral min_fill %v out of [0,1]", l.MinFill)
	}
	if r.Other.MaxSide <= 0 {
		return errors.New("segment: other rules need a positive max_side")
	}
	return nil
}

//Reject returns the name of the first rule that discards reg under mode, or "" when reg is kept.
//All rules are a plain OR, their order only decides which name gets reported.
func (r Rules) Reject(reg Region, mode ViewMode) string {
	w, h := reg.Rect.Dx(), reg.Rect.Dy()

	if mode != Lateral {
		if w > r.Other.MaxSide || h > r.Other.MaxSide {
			return "max_side"
		}
		return ""
	}

	l := r.Lateral
	switch {
	case w*l.Tallness < h:
		return "tallness"
	case h*l.Flatness < w:
		return "flatness"
	case w > l.MaxSide || h > l.MaxSide:
		return "max_side"
	case h < l.MinHeight:
		return "min_height"
	case w*h < l.MinBox:
		return "min_box"
	case reg.Area < l.MinArea:
		return "min_area"
	case reg.FillRatio() < l.MinFill:
		return "min_fill"
	case reg.AspectRatio() > l.MaxAspect:
		return "max_aspect"
	}
	return ""
}

//Keep reports whether reg passes the rule set of mode
func (r Rules) Keep(reg Region, mode ViewMode) bool {
	return r.Reject(reg, mode) == ""
}
