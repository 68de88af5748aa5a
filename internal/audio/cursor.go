package audio

import (
	"sync"
	"time"
)

// Cursor is a virtual playhead over a decoded track. Nothing is sent to a
// device; the owner moves it with Advance. Offline runs use it as both the
// transport and the analyzer input.
type Cursor struct {
	mu      sync.Mutex
	track   *Track
	pos     int
	playing bool
}

func NewCursor(track *Track) *Cursor {
	return &Cursor{track: track}
}

func (c *Cursor) Play() {
	c.mu.Lock()
	c.playing = true
	c.mu.Unlock()
}

func (c *Cursor) Pause() {
	c.mu.Lock()
	c.playing = false
	c.mu.Unlock()
}

func (c *Cursor) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

func (c *Cursor) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return float64(c.pos) / float64(c.track.SampleRate)
}

// Advance moves the playhead by d while playing. Playback stops at the end
// of the track.
func (c *Cursor) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.playing {
		return
	}
	c.pos += int(d.Seconds() * float64(c.track.SampleRate))
	if c.pos >= len(c.track.Mono) {
		c.pos = len(c.track.Mono)
		c.playing = false
	}
}

// Done reports whether the playhead reached the end of the track.
func (c *Cursor) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos >= len(c.track.Mono)
}

func (c *Cursor) SampleRate() int { return c.track.SampleRate }

// Samples returns up to n samples ending at the playhead.
func (c *Cursor) Samples(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.pos - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, c.pos-start)
	copy(out, c.track.Mono[start:c.pos])
	return out
}
