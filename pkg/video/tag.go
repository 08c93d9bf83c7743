package video

import (
	"context"
	"os"
	"os/exec"
	"path"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gocv.io/x/gocv"
)

//Source is an open video file or camera device
type Source struct {
	cap    *gocv.VideoCapture
	FPS    float64
	Width  int
	Height int
	Frames int //frame count reported by the container, -1 for devices and unknown lengths
}

//OpenFile opens a video file for reading
func OpenFile(srcPath string) (*Source, error) {
	cap, err := gocv.VideoCaptureFile(srcPath)
	if err != nil {
		return nil, errors.Wrapf(err, "OpenFile: could not open '%s'", srcPath)
	}
	return newSource(cap), nil
}

//OpenDevice opens a camera by its index
func OpenDevice(id int) (*Source, error) {
	cap, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, errors.Wrapf(err, "OpenDevice: could not open device %d", id)
	}
	s := newSource(cap)
	s.Frames = -1
	return s, nil
}

func newSource(cap *gocv.VideoCapture) *Source {
	s := &Source{
		cap:    cap,
		FPS:    cap.Get(gocv.VideoCaptureFPS),
		Width:  int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(cap.Get(gocv.VideoCaptureFrameHeight)),
		Frames: int(cap.Get(gocv.VideoCaptureFrameCount)),
	}
	if s.FPS <= 0 {
		s.FPS = utils.FallbackFPS
	}
	if s.Frames <= 0 {
		s.Frames = -1
	}
	return s
}

//Read grabs the next BGR frame
func (s *Source) Read(m *gocv.Mat) bool {
	return s.cap.Read(m)
}

//Close releases the capture
func (s *Source) Close() error {
	return s.cap.Close()
}

//NewWriter opens an XVID (== MPEG-4 codec) writer at dstPath sized and timed like the source
func (s *Source) NewWriter(dstPath string) (*gocv.VideoWriter, error) {
	w, err := gocv.VideoWriterFile(dstPath, utils.TempVideoCodec, s.FPS, s.Width, s.Height, true)
	if err != nil {
		return nil, errors.Wrapf(err, "NewWriter: could not open '%s'", dstPath)
	}
	return w, nil
}

//Annotate runs d over src and writes the annotated frames to dstPath
func Annotate(ctx context.Context, src *Source, dstPath string, d *Driver) (Stats, error) {
	w, err := src.NewWriter(dstPath)
	if err != nil {
		return Stats{}, err
	}
	defer w.Close()

	return d.Run(ctx, src, w)
}

//Tag reads a video from the 'source' directory of the configuration file, annotates every frame and stores the
//result, converted to the production format, in the 'ready' directory. The annotated frames are first written to
//an '.avi' file in the 'temp' directory. srcVideoName should include file's extension ('.mp4', etc.)
func Tag(ctx context.Context, srcVideoName string, d *Driver) (Stats, error) {
	baseName := utils.BaseName(srcVideoName)
	srcVideoPath := path.Join(viper.GetString("directory.source"), srcVideoName)
	tmpVideoPath := path.Join(viper.GetString("directory.temp"), baseName+"."+utils.TempVideoExt)
	outputVideoPath := path.Join(viper.GetString("directory.ready"), baseName+"."+viper.GetString("video.prod_format"))

	src, err := OpenFile(srcVideoPath)
	if err != nil {
		return Stats{}, err
	}
	defer src.Close()

	defer os.Remove(tmpVideoPath) //remove '.avi' temp file at the end of this function
	stats, err := Annotate(ctx, src, tmpVideoPath, d)
	if err != nil {
		return stats, err
	}

	//Convert from 'avi' to the production format. example: ffmpeg -y -i match.avi match.mp4
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-loglevel", "error", "-i", tmpVideoPath, outputVideoPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Error().Err(err).Str("output", string(out)).Msg("Tag: ffmpeg failed")
		return stats, errors.Wrap(err, "Tag: ffmpeg")
	}

	log.Info().Str("video", srcVideoName).Int("frames", stats.Frames).Int("failed", stats.Failed).Msg("Tag: done")
	return stats, nil
}
