package video

import (
	"context"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/segment"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"
)

//FrameReader yields BGR frames in arrival order, *gocv.VideoCapture satisfies it
type FrameReader interface {
	Read(m *gocv.Mat) bool
}

//FrameWriter receives the annotated BGR frames, *gocv.VideoWriter satisfies it
type FrameWriter interface {
	Write(m gocv.Mat) error
}

//Stats counts what a driver run did
type Stats struct {
	Frames     int `json:"frames"`     //frames read from the source
	Failed     int `json:"failed"`     //frames the pipeline could not process, written unannotated
	Detections int `json:"detections"` //detections drawn over all frames
}

//Driver feeds frames from a source through a pipeline, one at a time, and writes them to a sink
type Driver struct {
	Pipeline  *segment.Pipeline
	Mode      segment.ViewMode
	MaxFrames int //stop after this many frames, 0 means until the source ends

	//OnFrame, when set, is called after each frame with its index and result (zero Result on failure)
	OnFrame func(n int, res segment.Result, err error)
}

//Run processes src until it ends, MaxFrames is reached or ctx is cancelled. Cancellation is only checked
//between frames. A frame the pipeline rejects is logged and written as read; a sink error stops the run.
func (d *Driver) Run(ctx context.Context, src FrameReader, dst FrameWriter) (Stats, error) {
	var stats Stats

	bgr := gocv.NewMat()
	defer bgr.Close()
	rgba := gocv.NewMat()
	defer rgba.Close()

	for d.MaxFrames <= 0 || stats.Frames < d.MaxFrames {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if ok := src.Read(&bgr); !ok || bgr.Empty() {
			break
		}
		n := stats.Frames
		stats.Frames++

		gocv.CvtColor(bgr, &rgba, gocv.ColorBGRToRGBA)
		res, err := d.Pipeline.Process(&rgba, d.Mode)
		if err != nil {
			stats.Failed++
			log.Error().Err(err).Int("frame", n).Str("mode", d.Mode.String()).Msg("Run: could not process frame")
		} else {
			stats.Detections += len(res.Detections)
			gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR)
		}

		if d.OnFrame != nil {
			d.OnFrame(n, res, err)
		}

		if err := dst.Write(bgr); err != nil {
			return stats, errors.Wrapf(err, "frame %d", n)
		}
	}

	return stats, nil
}
