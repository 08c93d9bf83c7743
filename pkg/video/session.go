package video

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/chenBenjamin97/pitch-segmenter/pkg/segment"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//RunFunc annotates video with d, Tag is the one used in production
type RunFunc func(ctx context.Context, video string, d *Driver) (Stats, error)

//Status is what the API reports about a session
type Status struct {
	ID        string    `json:"id"`
	Video     string    `json:"video"`
	Mode      string    `json:"mode"`
	Started   time.Time `json:"started"`
	Phase     string    `json:"phase"`
	Tentative string    `json:"tentative"`
	Locked    string    `json:"locked,omitempty"`
	Samples   int64     `json:"samples"`
	Stats     Stats     `json:"stats"`
	Done      bool      `json:"done"`
	Err       string    `json:"error,omitempty"`
}

//Session is one annotation job with its own pipeline
type Session struct {
	ID      uuid.UUID
	Video   string
	Mode    segment.ViewMode
	Started time.Time

	pipeline *segment.Pipeline
	cancel   context.CancelFunc
	done     chan struct{}

	mu    sync.Mutex
	stats Stats
	err   error
}

//RequestLock asks the session's pipeline to lock its marker colour at the next frame
func (s *Session) RequestLock() {
	s.pipeline.State().RequestLock()
}

//Cancel stops the session before its next frame
func (s *Session) Cancel() {
	s.cancel()
}

//Done is closed once the session stopped
func (s *Session) Done() <-chan struct{} {
	return s.done
}

//Status snapshots the session, safe to call while it runs
func (s *Session) Status() Status {
	snap := s.pipeline.State().Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ID:        s.ID.String(),
		Video:     s.Video,
		Mode:      s.Mode.String(),
		Started:   s.Started,
		Phase:     snap.Phase.String(),
		Tentative: hexColor(snap.Tentative),
		Samples:   snap.Samples,
		Stats:     s.stats,
	}
	if snap.Phase == segment.Locked {
		st.Locked = hexColor(snap.Locked)
	}

	select {
	case <-s.done:
		st.Done = true
	default:
	}
	if s.err != nil {
		st.Err = s.err.Error()
	}
	return st
}

func (s *Session) onFrame(n int, res segment.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Frames = n + 1
	if err != nil {
		s.stats.Failed++
		return
	}
	s.stats.Detections += len(res.Detections)
}

func (s *Session) finish(stats Stats, err error) {
	s.mu.Lock()
	s.stats = stats
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

//Registry keeps every session started since the server came up
type Registry struct {
	cfg segment.Config
	run RunFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

//NewRegistry returns a registry building its pipelines from cfg. A nil run uses Tag.
func NewRegistry(cfg segment.Config, run RunFunc) *Registry {
	if run == nil {
		run = Tag
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:      cfg,
		run:      run,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*Session),
	}
}

//Start creates a session for video and runs it in the background
func (r *Registry) Start(video string, mode segment.ViewMode) (*Session, error) {
	p, err := segment.New(r.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Start: could not build pipeline")
	}

	ctx, cancel := context.WithCancel(r.ctx)
	s := &Session{
		ID:       uuid.New(),
		Video:    video,
		Mode:     mode,
		Started:  time.Now(),
		pipeline: p,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	d := &Driver{Pipeline: p, Mode: mode, OnFrame: s.onFrame}
	go func() {
		defer p.Close()
		defer cancel()

		logger := log.With().Str("session", s.ID.String()).Str("video", video).Logger()
		logger.Info().Str("mode", mode.String()).Msg("Start: session started")

		stats, err := r.run(ctx, video, d)
		if err != nil {
			logger.Error().Err(err).Msg("Start: session failed")
		}
		s.finish(stats, err)
	}()

	return s, nil
}

//Get looks a session up by its textual id
func (r *Registry) Get(id string) (*Session, bool) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

//List returns the status of every session
func (r *Registry) List() []Status {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	statuses := make([]Status, 0, len(sessions))
	for _, s := range sessions {
		statuses = append(statuses, s.Status())
	}
	return statuses
}

//Close cancels every running session
func (r *Registry) Close() {
	r.cancel()
}
