package segment

import (
	"image"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

//Pipeline segments and annotates the frames of a single stream. It is not safe for concurrent use:
//frames are processed one at a time in arrival order.
type Pipeline struct {
	cfg    Config
	kernel gocv.Mat
	pre    []Preprocessor
	state  *ColorState
	size   image.Point //size of the first frame, zero until then
}

//New validates cfg and allocates the pipeline's resources. Close must be called when the stream ends.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pre := make([]Preprocessor, 0, len(cfg.Preprocess.Stages))
	for _, name := range cfg.Preprocess.Stages {
		p, err := NewPreprocessor(name, cfg.Preprocess)
		if err != nil {
			return nil, err
		}
		pre = append(pre, p)
	}

	return &Pipeline{
		cfg:    cfg,
		kernel: NewKernel(cfg.Kernel),
		pre:    pre,
		state:  NewColorState(cfg.Lock),
	}, nil
}

//Close releases the structuring element
func (p *Pipeline) Close() error {
	return p.kernel.Close()
}

//State exposes the colour state, e.g. to request a lock from another goroutine
func (p *Pipeline) State() *ColorState {
	return p.state
}

//Config returns the configuration the pipeline was built with
func (p *Pipeline) Config() Config {
	return p.cfg
}

func (p *Pipeline) checkShape(frame gocv.Mat) error {
	if err := checkFrame(frame); err != nil {
		return err
	}

	size := image.Pt(frame.Cols(), frame.Rows())
	if p.size == (image.Point{}) {
		p.size = size
		return nil
	}
	if size != p.size {
		return errors.Wrapf(ErrInputShape, "frame is %v, stream is %v", size, p.size)
	}
	return nil
}

//Process runs one frame through the pipeline and annotates it in place. When it fails the colour state
//is left exactly as it was after the previous successful frame.
func (p *Pipeline) Process(frame *gocv.Mat, mode ViewMode) (res Result, err error) {
	if err := p.checkShape(*frame); err != nil {
		return Result{}, err
	}

	p.state.BeginFrame()
	defer func() {
		if err != nil {
			p.state.Discard()
			return
		}
		p.state.Commit()
		res.Phase = p.state.Phase()
		res.Tentative = p.state.Tentative()
	}()

	src := *frame
	if len(p.pre) > 0 {
		scratch, err := p.preprocess(*frame)
		if err != nil {
			return Result{}, err
		}
		defer scratch.Close()
		src = scratch
	}

	field, err := Threshold(src, p.cfg.Range)
	if err != nil {
		return Result{}, errors.Wrap(err, "threshold")
	}
	defer field.Close()

	cleaned := cleanWithKernel(field, p.kernel)
	defer cleaned.Close()

	foreground := Invert(cleaned)
	defer foreground.Close()

	for _, region := range ExtractRegions(foreground) {
		if rule := p.cfg.Rules.Reject(region, mode); rule != "" {
			fillRegion(&foreground, region, maskOff)
			res.Rejected++
			log.Trace().Str("rule", rule).Str("mode", mode.String()).Interface("rect", region.Rect).Msg("Process: region rejected")
			continue
		}

		res.Detections = append(res.Detections, Detection{
			Region: region,
			Color:  p.state.Sample(*frame, region),
		})
	}

	res.Foreground = gocv.CountNonZero(foreground)

	if p.cfg.RemoveField {
		view := RemoveField(*frame, foreground)
		defer view.Close()
		view.CopyTo(frame)
	}

	DrawDetections(frame, res.Detections, DrawOptions{
		Margin: p.cfg.Margin,
		Stroke: p.cfg.Stroke,
		Labels: p.cfg.Labels,
	})

	return res, nil
}

//preprocess chains every configured stage on a copy of frame
func (p *Pipeline) preprocess(frame gocv.Mat) (gocv.Mat, error) {
	scratch := frame.Clone()
	for _, stage := range p.pre {
		next := gocv.NewMat()
		if err := stage.Apply(scratch, &next); err != nil {
			next.Close()
			scratch.Close()
			return gocv.NewMat(), errors.Wrap(err, stage.Name())
		}
		scratch.Close()
		scratch = next
	}
	return scratch, nil
}
