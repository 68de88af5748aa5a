package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/audio"
	"github.com/san-kum/gridstep/internal/config"
	"github.com/san-kum/gridstep/internal/metrics"
	"github.com/san-kum/gridstep/internal/session"
	"github.com/san-kum/gridstep/internal/storage"
	"github.com/san-kum/gridstep/internal/trigger"
)

var ErrNoTrack = errors.New("experiment: no track")

// Config describes one headless run over a decoded track.
type Config struct {
	Session  *config.Config
	Track    *audio.Track
	Duration time.Duration // 0 plays the whole track
	FPS      int           // 0 uses the session render fps
	Seed     int64

	// DetectNotes records the dominant note of every onset frame.
	DetectNotes bool
	Logger      *slog.Logger
}

type Result struct {
	Steps    []session.StepEvent
	Times    []float64 // frame times in seconds
	Energy   []float64 // band energy per frame, 0..255
	Peaks    []bool
	Notes    []storage.TimedNote
	Metrics  map[string]float64
	Duration float64
	Grids    int
}

// Experiment drives a Session frame by frame on a virtual clock, with a
// Cursor standing in for the audio device.
type Experiment struct {
	cfg      Config
	sess     *session.Session
	cursor   *audio.Cursor
	analyzer *analysis.Analyzer
	metrics  []metrics.Metric
	now      time.Time
	logger   *slog.Logger
}

func New(cfg Config) (*Experiment, error) {
	if cfg.Track == nil || len(cfg.Track.Mono) == 0 {
		return nil, ErrNoTrack
	}
	if cfg.Session == nil {
		cfg.Session = config.DefaultConfig()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = cfg.Session.Render.FPS
	}
	if cfg.FPS <= 0 {
		cfg.FPS = config.DefaultFPS
	}
	if cfg.Duration <= 0 || cfg.Duration > cfg.Track.Duration() {
		cfg.Duration = cfg.Track.Duration()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Experiment{
		cfg:    cfg,
		cursor: audio.NewCursor(cfg.Track),
		now:    time.Unix(0, 0),
		logger: cfg.Logger.With("component", "experiment"),
	}
	e.analyzer = analysis.NewAnalyzer(e.cursor, cfg.Session.Analysis.Smoothing, cfg.Session.Analysis.Bins)

	opts := []session.Option{
		session.WithSource(e.cursor),
		session.WithAnalyzer(e.analyzer),
		session.WithClock(e.clock),
		session.WithLogger(cfg.Logger),
	}
	if cfg.Seed != 0 {
		opts = append(opts, session.WithSeed(cfg.Seed))
	}

	sess, err := session.New(cfg.Session, opts...)
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	e.sess = sess
	return e, nil
}

func (e *Experiment) clock() time.Time { return e.now }

func (e *Experiment) AddMetric(m metrics.Metric) {
	e.metrics = append(e.metrics, m)
}

func (e *Experiment) Session() *session.Session { return e.sess }

// Run plays the track to the configured duration. Tempo mode steps on the
// beat of the virtual clock; peak mode steps wherever the analyzer finds an
// onset. Cancellation is checked between frames.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	dt := time.Second / time.Duration(e.cfg.FPS)
	frames := int(e.cfg.Duration / dt)
	start := e.now

	var period time.Duration
	nextBeat := time.Duration(-1)
	if e.sess.Mode() == config.ModeTempo {
		period = trigger.PeriodFor(e.sess.Config().Tempo.BPM)
		nextBeat = period
	}

	ms := e.metrics
	if len(ms) == 0 {
		ms = metrics.Defaults()
	}

	res := &Result{
		Times:  make([]float64, 0, frames),
		Energy: make([]float64, 0, frames),
		Peaks:  make([]bool, 0, frames),
	}

	e.cursor.Play()
	e.logger.Info("run started",
		"mode", e.sess.Mode(),
		"frames", frames,
		"fps", e.cfg.FPS,
	)

	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		e.cursor.Advance(dt)
		e.now = e.now.Add(dt)
		elapsed := e.now.Sub(start)

		for nextBeat > 0 && elapsed >= nextBeat {
			e.sess.Step()
			nextBeat += period
		}

		st := e.sess.Frame()
		res.Times = append(res.Times, elapsed.Seconds())
		res.Energy = append(res.Energy, st.Energy)
		res.Peaks = append(res.Peaks, st.Peak)

		if e.cfg.DetectNotes && st.Analyzed && (st.Fired || st.Peak) {
			if note, ok := dominantNote(st.Analysis); ok {
				res.Notes = append(res.Notes, storage.TimedNote{
					At:       elapsed,
					Note:     note,
					Velocity: velocityFor(st.Energy),
				})
			}
		}
	}
	e.cursor.Pause()

	res.Steps = e.sess.Steps()
	res.Grids = len(e.sess.Grids())
	res.Duration = e.now.Sub(start).Seconds()

	for _, m := range ms {
		m.Reset()
	}
	metrics.ObserveAll(ms, res.Steps)
	res.Metrics = metrics.Collect(ms)

	e.logger.Info("run finished",
		"steps", len(res.Steps),
		"duration", res.Duration,
	)
	return res, nil
}

const noteFloor = 100

func dominantNote(f analysis.Frame) (analysis.Note, bool) {
	freq, err := analysis.DominantFrequency(f, noteFloor)
	if err != nil {
		return analysis.Note{}, false
	}
	note, err := analysis.NoteFor(freq)
	if err != nil {
		return analysis.Note{}, false
	}
	return note, true
}

func velocityFor(energy float64) uint8 {
	v := int(energy / 2)
	if v < 1 {
		v = 1
	}
	if v > 127 {
		v = 127
	}
	return uint8(v)
}
