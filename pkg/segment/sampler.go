package segment

import (
	"image/color"
	"sync"
	"sync/atomic"

	"gocv.io/x/gocv"
)

//Phase tells the sampler whether it is still learning the marker colour
type Phase int

const (
	//Bootstrap samples a fresh mean colour for every kept region and accumulates it
	Bootstrap Phase = iota
	//Locked reuses the learned colour, the accumulator is frozen
	Locked
)

func (p Phase) String() string {
	if p == Locked {
		return "locked"
	}
	return "bootstrap"
}

//FallbackColor is the locked colour when nothing was ever sampled
var FallbackColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}

//LockTrigger decides when Bootstrap turns into Locked. Either non-zero bound firing locks,
//both zero means only an explicit Lock/RequestLock does.
type LockTrigger struct {
	AfterFrames  int `mapstructure:"after_frames"`  //committed bootstrap frames
	AfterSamples int `mapstructure:"after_samples"` //accumulated region samples
}

//ColorAccumulator holds the running sums of every sampled region colour
type ColorAccumulator struct {
	SumR, SumG, SumB int64
	Count            int64
}

func (a *ColorAccumulator) add(c color.RGBA) {
	a.SumR += int64(c.R)
	a.SumG += int64(c.G)
	a.SumB += int64(c.B)
	a.Count++
}

func (a *ColorAccumulator) merge(o ColorAccumulator) {
	a.SumR += o.SumR
	a.SumG += o.SumG
	a.SumB += o.SumB
	a.Count += o.Count
}

//Mean returns the truncated running mean, ok is false when nothing was accumulated
func (a ColorAccumulator) Mean() (c color.RGBA, ok bool) {
	if a.Count == 0 {
		return FallbackColor, false
	}
	return color.RGBA{
		R: uint8(a.SumR / a.Count),
		G: uint8(a.SumG / a.Count),
		B: uint8(a.SumB / a.Count),
		A: 255,
	}, true
}

//StateSnapshot is a copy of ColorState safe to hand to other goroutines
type StateSnapshot struct {
	Phase     Phase
	Frames    int
	Samples   int64
	Tentative color.RGBA
	Locked    color.RGBA
}

//ColorState is the only state that outlives a frame: the accumulator, the phase and the locked colour.
//One state belongs to one stream. Frame methods (BeginFrame, Sample, Commit, Discard) must be called
//from a single goroutine; RequestLock and Snapshot may be called from anywhere.
type ColorState struct {
	mu      sync.Mutex
	trigger LockTrigger

	phase     Phase
	acc       ColorAccumulator
	staged    ColorAccumulator //samples of the frame in progress
	frames    int
	tentative color.RGBA
	locked    color.RGBA

	lockRequested atomic.Bool
}

//NewColorState starts a stream in Bootstrap phase
func NewColorState(trigger LockTrigger) *ColorState {
	return &ColorState{
		trigger:   trigger,
		tentative: FallbackColor,
	}
}

//BeginFrame applies a pending lock request and clears the per-frame staging
func (s *ColorState) BeginFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = ColorAccumulator{}
	if s.lockRequested.Swap(false) {
		s.lockLocked()
	}
}

//Sample resolves the colour r is drawn with. In Bootstrap it is the mean frame colour under the
//region's silhouette, which is also staged for the accumulator; in Locked it is the locked colour.
func (s *ColorState) Sample(frame gocv.Mat, r Region) color.RGBA {
	if locked, ok := s.Locked(); ok {
		return locked
	}

	c := MeanColor(frame, r)
	s.Observe(c)
	return c
}

//Observe stages one region colour for the frame in progress. Ignored once Locked.
func (s *ColorState) Observe(c color.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Locked {
		return
	}
	s.staged.add(c)
}

//Commit folds the frame's samples into the accumulator, refreshes the tentative colour and
//locks when the trigger fires
func (s *ColorState) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Locked {
		s.staged = ColorAccumulator{}
		return
	}

	s.acc.merge(s.staged)
	s.staged = ColorAccumulator{}
	s.frames++
	s.tentative, _ = s.acc.Mean()

	if (s.trigger.AfterFrames > 0 && s.frames >= s.trigger.AfterFrames) ||
		(s.trigger.AfterSamples > 0 && s.acc.Count >= int64(s.trigger.AfterSamples)) {
		s.lockLocked()
	}
}

//Discard drops the frame's samples, leaving the state exactly as after the last committed frame
func (s *ColorState) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = ColorAccumulator{}
}

//Lock switches to Locked immediately. With an empty accumulator the locked colour is FallbackColor.
func (s *ColorState) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lockLocked()
}

//RequestLock asks for a lock at the start of the next frame, safe to call concurrently
func (s *ColorState) RequestLock() {
	s.lockRequested.Store(true)
}

//lockLocked expects s.mu to be held
func (s *ColorState) lockLocked() {
	if s.phase == Locked {
		return
	}
	s.locked, _ = s.acc.Mean()
	s.tentative = s.locked
	s.phase = Locked
}

//Phase returns the current phase
func (s *ColorState) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase
}

//Locked returns the locked colour, ok is false while still in Bootstrap
func (s *ColorState) Locked() (color.RGBA, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.locked, s.phase == Locked
}

//Tentative is the running mean of all committed samples, FallbackColor before the first one
func (s *ColorState) Tentative() color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tentative
}

//Snapshot copies the state for reporting
func (s *ColorState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StateSnapshot{
		Phase:     s.phase,
		Frames:    s.frames,
		Samples:   s.acc.Count,
		Tentative: s.tentative,
		Locked:    s.locked,
	}
}

//MeanColor is the mean colour of frame under r's silhouette (not its bounding box), truncated to integers
func MeanColor(frame gocv.Mat, r Region) color.RGBA {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), frame.Rows(), frame.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()

	fillRegion(&mask, r, maskOn)

	mean := frame.MeanWithMask(mask)
	return color.RGBA{
		R: uint8(mean.Val1),
		G: uint8(mean.Val2),
		B: uint8(mean.Val3),
		A: 255,
	}
}
