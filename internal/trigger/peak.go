package trigger

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/gridstep/internal/analysis"
)

// PeakConfig holds the onset thresholds. Fields are used as given; start
// from DefaultPeakConfig to override only some of them. A zero Cooldown lets
// every onset fire and a zero EnergyThreshold fires on any band energy.
type PeakConfig struct {
	// Sensitivity is the PeakDetector threshold on the normalised 0..1 scale.
	Sensitivity float64
	// EnergyThreshold is a 0..255 band level that fires on its own.
	EnergyThreshold float64
	Cooldown        time.Duration
	BandLow         float64
	BandHigh        float64
}

func DefaultPeakConfig() PeakConfig {
	return PeakConfig{
		Sensitivity:     0.3,
		EnergyThreshold: 150,
		Cooldown:        300 * time.Millisecond,
		BandLow:         1,
		BandHigh:        240,
	}
}

func (c PeakConfig) validate() error {
	switch {
	case c.Sensitivity <= 0 || c.Sensitivity > 1,
		c.EnergyThreshold < 0 || c.EnergyThreshold > 255,
		c.Cooldown < 0,
		c.BandLow < 0 || c.BandHigh <= c.BandLow:
		return fmt.Errorf("%w: %+v", ErrInvalidPeakConfig, c)
	}
	return nil
}

// Peak fires its callback on spectral onsets, at most once per cooldown.
type Peak struct {
	mu       sync.Mutex
	cfg      PeakConfig
	detector *analysis.PeakDetector
	fn       func()
	source   Source
	resumer  Resumer
	logger   *slog.Logger

	fired    bool
	lastFire time.Time
	energy   float64
	peak     bool
}

func NewPeak(fn func(), cfg PeakConfig, source Source, resumer Resumer, logger *slog.Logger) (*Peak, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Peak{
		cfg:      cfg,
		detector: analysis.NewPeakDetector(cfg.Sensitivity),
		fn:       fn,
		source:   source,
		resumer:  resumer,
		logger:   loggerOrDefault(logger),
	}, nil
}

func (p *Peak) Config() PeakConfig { return p.cfg }

// Update feeds one analysis frame observed at now and reports whether the
// callback fired. The cooldown is measured against now, so callers driving
// a virtual clock get deterministic results.
func (p *Peak) Update(frame analysis.Frame, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.peak = p.detector.Update(frame)
	p.energy = frame.Energy(p.cfg.BandLow, p.cfg.BandHigh)

	if !p.peak && p.energy <= p.cfg.EnergyThreshold {
		return false
	}
	if p.fired && now.Sub(p.lastFire) < p.cfg.Cooldown {
		return false
	}

	p.fired = true
	p.lastFire = now
	p.logger.Debug("peak trigger fired",
		"energy", p.energy,
		"peak", p.peak,
	)
	p.fn()
	return true
}

// Energy is the band energy of the last frame, on the 0..255 scale.
func (p *Peak) Energy() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.energy
}

// Detected reports whether the last frame held a detector peak.
func (p *Peak) Detected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peak
}

// Toggle resumes the audio output and then flips playback. When resuming
// fails the toggle is abandoned and playback is left as it was.
func (p *Peak) Toggle() {
	if p.resumer != nil {
		if err := p.resumer.Resume(); err != nil {
			p.logger.Error("resume audio output", "error", err)
			return
		}
	}
	togglePlayback(p.source)
}
