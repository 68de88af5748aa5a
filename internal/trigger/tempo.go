package trigger

import (
	"math"
	"sync"
	"time"
)

// Tempo fires its callback once per beat.
//
// The callback runs on the ticker goroutine while the trigger's lock is
// held, so Stop and SetTempo wait for an in-flight callback and no stale
// tick can fire once they return. The callback must not call back into the
// same Tempo.
type Tempo struct {
	mu      sync.Mutex
	bpm     float64
	source  Source
	fn      func()
	gen     uint64
	cancel  chan struct{}
	running bool
}

func NewTempo(bpm float64, source Source, fn func()) (*Tempo, error) {
	if err := validateBPM(bpm); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilCallback
	}
	return &Tempo{bpm: bpm, source: source, fn: fn}, nil
}

func validateBPM(bpm float64) error {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return ErrInvalidTempo
	}
	return nil
}

// PeriodFor is the beat length for bpm: 60000/bpm milliseconds.
func PeriodFor(bpm float64) time.Duration {
	return time.Duration(60 / bpm * float64(time.Second))
}

func (t *Tempo) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return PeriodFor(t.bpm)
}

func (t *Tempo) BPM() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bpm
}

func (t *Tempo) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Start toggles playback of the source and (re)schedules the beat. A
// schedule that is already running is cancelled first.
func (t *Tempo) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	togglePlayback(t.source)
	t.cancelLocked()
	t.scheduleLocked()
}

// Stop cancels the schedule. It is safe to call when not running.
func (t *Tempo) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

// SetTempo changes the bpm. When running, the next beat lands one new
// period after this call.
func (t *Tempo) SetTempo(bpm float64) error {
	if err := validateBPM(bpm); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.bpm = bpm
	if t.running {
		t.cancelLocked()
		t.scheduleLocked()
	}
	return nil
}

// Trigger fires one manual step immediately.
func (t *Tempo) Trigger() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fn()
}

func (t *Tempo) cancelLocked() {
	if t.cancel != nil {
		close(t.cancel)
		t.cancel = nil
	}
	t.gen++
	t.running = false
}

func (t *Tempo) scheduleLocked() {
	t.gen++
	gen := t.gen
	cancel := make(chan struct{})
	t.cancel = cancel
	t.running = true

	ticker := time.NewTicker(PeriodFor(t.bpm))
	go t.loop(gen, cancel, ticker)
}

func (t *Tempo) loop(gen uint64, cancel <-chan struct{}, ticker *time.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			t.mu.Lock()
			if t.gen != gen {
				t.mu.Unlock()
				return
			}
			t.fn()
			t.mu.Unlock()
		}
	}
}
