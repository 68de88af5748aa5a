// Package trigger decides when a visualizer step fires.
//
// Two interchangeable policies are provided: [Tempo] fires on a fixed
// beats-per-minute schedule, [Peak] fires when a frame of spectral analysis
// shows an onset. Both drive a plain func() callback and both can toggle the
// playback of an associated audio [Source].
package trigger

import (
	"errors"
	"log/slog"
)

var (
	// ErrInvalidTempo indicates a non-positive or non-finite BPM.
	ErrInvalidTempo = errors.New("trigger: tempo must be a positive, finite bpm")

	// ErrNilCallback indicates a trigger was built without a step callback.
	ErrNilCallback = errors.New("trigger: step callback is nil")

	// ErrInvalidPeakConfig indicates an out-of-range onset threshold.
	ErrInvalidPeakConfig = errors.New("trigger: invalid peak config")
)

// Source is the audio transport a trigger toggles.
type Source interface {
	Play()
	Pause()
	IsPlaying() bool
	CurrentTime() float64
}

// Resumer brings a suspended audio output back to life before playback.
type Resumer interface {
	Resume() error
}

func togglePlayback(src Source) {
	if src == nil {
		return
	}
	if src.IsPlaying() {
		src.Pause()
	} else {
		src.Play()
	}
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
