package session

import (
	"log/slog"
	"time"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/trigger"
)

// FrameSource produces one spectral frame per render frame. ok is false
// while the underlying audio has not buffered a full window yet.
type FrameSource interface {
	Analyze() (analysis.Frame, bool)
}

type options struct {
	source   trigger.Source
	analyzer FrameSource
	resumer  trigger.Resumer
	clock    func() time.Time
	logger   *slog.Logger
	seed     int64
	seeded   bool
}

type Option func(*options)

// WithSource sets the audio transport the triggers toggle and whose
// playback position is stamped on every step.
func WithSource(src trigger.Source) Option {
	return func(o *options) { o.source = src }
}

func WithAnalyzer(a FrameSource) Option {
	return func(o *options) { o.analyzer = a }
}

func WithResumer(r trigger.Resumer) Option {
	return func(o *options) { o.resumer = r }
}

// WithClock replaces time.Now. Offline runs use it to drive a virtual clock.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSeed overrides the config seed.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}
