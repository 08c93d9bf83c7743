package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/segment"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/utils"
	"github.com/chenBenjamin97/pitch-segmenter/pkg/video"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//annotateOptions are the flags of the annotate command
type annotateOptions struct {
	Input     string
	Device    int
	Output    string
	Mode      string
	MaxFrames int
	LockAfter int
}

var annotateOpts annotateOptions

var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotates a video file or a camera stream into an .avi file",
	Long: `Annotates a video file (-i) or a camera device (--device) frame by frame and writes the result to -o.
While the marker colour is still being learned, send SIGUSR1 to lock it.`,
	Args: cobra.NoArgs,
	RunE: runAnnotate,
}

func init() {
	f := annotateCmd.Flags()
	f.StringVarP(&annotateOpts.Input, "input", "i", "", "video file to annotate")
	f.IntVar(&annotateOpts.Device, "device", -1, "camera device index to annotate instead of a file")
	f.StringVarP(&annotateOpts.Output, "output", "o", "", "annotated XVID output file")
	f.StringVar(&annotateOpts.Mode, "mode", utils.DefaultViewMode, "camera view: lateral or other")
	f.IntVar(&annotateOpts.MaxFrames, "max-frames", 0, "stop after this many frames (0 = whole source)")
	f.IntVar(&annotateOpts.LockAfter, "lock-after", 0, "lock the marker colour after this many frames (overrides segment.lock)")
	_ = annotateCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	opts := annotateOpts
	if (opts.Input == "") == (opts.Device < 0) {
		return errors.New("annotate: give exactly one of --input or --device")
	}

	mode, err := segment.ParseViewMode(opts.Mode)
	if err != nil {
		return err
	}

	cfg, err := segment.LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("lock-after") {
		cfg.Lock = segment.LockTrigger{AfterFrames: opts.LockAfter}
	}

	p, err := segment.New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	var src *video.Source
	if opts.Input != "" {
		src, err = video.OpenFile(opts.Input)
	} else {
		src, err = video.OpenDevice(opts.Device)
	}
	if err != nil {
		return err
	}
	defer src.Close()

	stopLock := lockOnSignal(p.State())
	defer stopLock()

	total := src.Frames
	if opts.MaxFrames > 0 && (total < 0 || opts.MaxFrames < total) {
		total = opts.MaxFrames
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Annotating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	d := &video.Driver{
		Pipeline:  p,
		Mode:      mode,
		MaxFrames: opts.MaxFrames,
		OnFrame: func(int, segment.Result, error) {
			_ = bar.Add(1)
		},
	}

	stats, err := video.Annotate(cmd.Context(), src, opts.Output, d)
	_ = bar.Finish()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	snap := p.State().Snapshot()
	log.Info().
		Str("output", opts.Output).
		Int("frames", stats.Frames).
		Int("failed", stats.Failed).
		Int("detections", stats.Detections).
		Str("phase", snap.Phase.String()).
		Msg("annotate: done")
	return nil
}

//lockOnSignal locks state's colour whenever SIGUSR1 arrives, until the returned func is called
func lockOnSignal(state *segment.ColorState) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGUSR1)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-sigs:
				log.Info().Msg("annotate: lock requested")
				state.RequestLock()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
