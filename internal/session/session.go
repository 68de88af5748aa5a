// Package session ties the grid history, the camera animator and a step
// trigger into one explicit visualizer context.
//
// A Session owns all mutable state. Renderers call Frame once per drawn
// frame and read the state back through accessors; the tempo trigger steps
// from its own goroutine. One mutex serialises the two.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/camera"
	"github.com/san-kum/gridstep/internal/config"
	"github.com/san-kum/gridstep/internal/grid"
	"github.com/san-kum/gridstep/internal/trigger"
)

// ErrWrongMode is returned for operations the active trigger mode does not
// support, such as changing the tempo of a peak-driven session.
var ErrWrongMode = errors.New("session: operation not available in this mode")

// StepEvent records one fired step.
type StepEvent struct {
	Index    int
	At       time.Duration // since the session was created
	Playback float64       // audio position in seconds, 0 without a source
	Camera   camera.Vec3   // camera target after the step
}

// FrameState is what a renderer needs after Frame.
type FrameState struct {
	Camera   camera.Vec3
	Steps    int
	Energy   float64
	Peak     bool
	Fired    bool
	Analyzed bool
	Analysis analysis.Frame
}

type Session struct {
	mu sync.Mutex

	cfg     *config.Config
	mode    string
	pointer string

	gen     *grid.Generator
	history *grid.History
	cam     *camera.Animator
	eye     camera.Vec3
	center  camera.Vec3
	up      camera.Vec3

	tempo *trigger.Tempo
	peak  *trigger.Peak

	source   trigger.Source
	analyzer FrameSource
	resumer  trigger.Resumer
	clock    func() time.Time
	logger   *slog.Logger
	muted    bool

	started   time.Time
	steps     []StepEvent
	observers []func(StepEvent)
	pending   []StepEvent
}

// New validates cfg and builds a session. The config is copied.
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	seed := cfg.Seed
	if o.seeded {
		seed = o.seed
	}

	axis, err := camera.ParseAxis(cfg.Camera.Axis)
	if err != nil {
		return nil, err
	}
	policy, err := camera.ParseReentry(cfg.Camera.Reentry)
	if err != nil {
		return nil, err
	}

	c := *cfg
	s := &Session{
		cfg:      &c,
		mode:     c.Mode,
		pointer:  c.PointerAction(),
		gen:      grid.NewGenerator(c.GridSize, seed),
		history:  grid.NewHistory(),
		eye:      camera.FromArray(c.Camera.Eye),
		center:   camera.FromArray(c.Camera.Center),
		up:       camera.FromArray(c.Camera.Up),
		source:   o.source,
		analyzer: o.analyzer,
		resumer:  o.resumer,
		clock:    o.clock,
		logger:   o.logger.With("component", "session"),
	}
	s.cam = camera.NewAnimator(s.eye, axis, policy)
	s.started = s.clock()

	switch c.Mode {
	case config.ModeTempo:
		s.tempo, err = trigger.NewTempo(c.Tempo.BPM, s.source, func() { s.Step() })
	case config.ModePeak:
		s.peak, err = trigger.NewPeak(s.stepLocked, trigger.PeakConfig{
			Sensitivity:     c.Peak.Sensitivity,
			EnergyThreshold: c.Peak.EnergyThreshold,
			Cooldown:        time.Duration(c.Peak.CooldownMs) * time.Millisecond,
			BandLow:         c.Peak.BandLow,
			BandHigh:        c.Peak.BandHigh,
		}, s.source, s.resumer, o.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("session: build %s trigger: %w", c.Mode, err)
	}

	s.logger.Info("session created",
		"mode", s.mode,
		"pointer", s.pointer,
		"grid", c.GridSize,
		"seed", seed,
	)
	return s, nil
}

// Step appends a new random layer and advances the camera by one cube.
func (s *Session) Step() StepEvent {
	s.mu.Lock()
	s.stepLocked()
	ev := s.steps[len(s.steps)-1]
	s.mu.Unlock()

	s.flush()
	return ev
}

func (s *Session) stepLocked() {
	now := s.clock()
	s.history.Append(s.gen.Next())
	s.cam.BeginStep(s.cfg.CubeSize, now)

	ev := StepEvent{
		Index:  len(s.steps),
		At:     now.Sub(s.started),
		Camera: s.cam.Target(),
	}
	if s.source != nil {
		ev.Playback = s.source.CurrentTime()
	}
	s.steps = append(s.steps, ev)
	s.pending = append(s.pending, ev)

	s.logger.Debug("step",
		"index", ev.Index,
		"at", ev.At,
		"playback", ev.Playback,
	)
}

func (s *Session) flush() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	observers := s.observers
	s.mu.Unlock()

	for _, ev := range pending {
		for _, fn := range observers {
			fn(ev)
		}
	}
}

// Frame advances the camera animation and, when an analyzer is attached,
// consumes one spectral frame. In peak mode that frame may fire a step.
// A missing analyzer, an unready frame or a paused source skips triggering
// for the frame. Smoothing state is dropped when playback resumes.
func (s *Session) Frame() FrameState {
	s.mu.Lock()
	now := s.clock()
	s.cam.Tick(now)

	var st FrameState
	switch {
	case s.analyzer == nil:
	case s.source != nil && !s.source.IsPlaying():
		s.muted = true
	default:
		if s.muted {
			if r, ok := s.analyzer.(interface{ Reset() }); ok {
				r.Reset()
			}
			s.muted = false
		}
		if f, ok := s.analyzer.Analyze(); ok {
			st.Analyzed = true
			st.Analysis = f
			if s.peak != nil {
				st.Fired = s.peak.Update(f, now)
				st.Energy = s.peak.Energy()
				st.Peak = s.peak.Detected()
			} else {
				st.Energy = f.Energy(s.cfg.Peak.BandLow, s.cfg.Peak.BandHigh)
			}
		} else {
			s.logger.Debug("analysis frame not ready")
		}
	}
	st.Camera = s.cam.Position()
	st.Steps = len(s.steps)
	s.mu.Unlock()

	s.flush()
	return st
}

// Pointer handles a click or key press according to the pointer mapping.
func (s *Session) Pointer() {
	if s.pointer == config.PointerStep {
		s.Step()
		return
	}
	s.Toggle()
}

// Toggle flips the trigger: a running tempo stops and pauses, a stopped
// one starts; in peak mode the audio output is resumed and playback flips.
func (s *Session) Toggle() {
	switch {
	case s.tempo != nil:
		if s.tempo.Running() {
			s.Stop()
		} else {
			s.tempo.Start()
		}
	case s.peak != nil:
		s.peak.Toggle()
	default:
		if s.source != nil {
			if s.source.IsPlaying() {
				s.source.Pause()
			} else {
				s.source.Play()
			}
		}
	}
}

// Start begins playback and, in tempo mode, the beat schedule.
func (s *Session) Start() {
	switch {
	case s.tempo != nil:
		if !s.tempo.Running() {
			s.tempo.Start()
		}
	case s.source != nil && !s.source.IsPlaying():
		s.Toggle()
	}
}

// Stop halts the beat schedule and pauses playback. No tempo step fires
// after Stop returns.
func (s *Session) Stop() {
	if s.tempo != nil {
		s.tempo.Stop()
	}
	if s.source != nil && s.source.IsPlaying() {
		s.source.Pause()
	}
}

// SetTempo changes the bpm of a tempo-mode session.
func (s *Session) SetTempo(bpm float64) error {
	if s.tempo == nil {
		return ErrWrongMode
	}
	if err := s.tempo.SetTempo(bpm); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg.Tempo.BPM = bpm
	s.mu.Unlock()
	s.logger.Info("tempo changed", "bpm", bpm)
	return nil
}

// BPM is the current tempo, or 0 outside tempo mode.
func (s *Session) BPM() float64 {
	if s.tempo == nil {
		return 0
	}
	return s.tempo.BPM()
}

// Running reports whether steps are currently being produced automatically.
func (s *Session) Running() bool {
	switch {
	case s.tempo != nil:
		return s.tempo.Running()
	case s.source != nil:
		return s.source.IsPlaying()
	}
	return false
}

func (s *Session) Mode() string        { return s.mode }
func (s *Session) PointerMode() string { return s.pointer }

// Config returns a copy of the active configuration.
func (s *Session) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cfg
}

// Grids returns the snapshot history, oldest first.
func (s *Session) Grids() []*grid.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.All()
}

func (s *Session) Camera() camera.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cam.Position()
}

// View returns the eye, the look-at centre and the up vector. The centre
// moves with the eye so the view direction stays fixed.
func (s *Session) View() (eye, center, up camera.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eye = s.cam.Position()
	center = s.center.Add(eye.Sub(s.eye))
	return eye, center, s.up
}

func (s *Session) Steps() []StepEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StepEvent, len(s.steps))
	copy(out, s.steps)
	return out
}

// AddObserver registers fn for every future step. Observers run after the
// session lock is released and must not call Start, Stop or SetTempo.
func (s *Session) AddObserver(fn func(StepEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}
