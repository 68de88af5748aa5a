package trigger_test

import (
	"errors"
	"sync"
	"time"
)

type fakeSource struct {
	mu      sync.Mutex
	playing bool
	plays   int
	pauses  int
}

func (s *fakeSource) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.plays++
}

func (s *fakeSource) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.pauses++
}

func (s *fakeSource) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *fakeSource) CurrentTime() float64 { return 0 }

type fakeResumer struct {
	err   error
	calls int
}

func (r *fakeResumer) Resume() error {
	r.calls++
	return r.err
}

var errSuspended = errors.New("output suspended")

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// stamps records the wall time of every callback.
type stamps struct {
	mu sync.Mutex
	at []time.Time
}

func (s *stamps) record() {
	s.mu.Lock()
	s.at = append(s.at, time.Now())
	s.mu.Unlock()
}

func (s *stamps) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.at)
}

func (s *stamps) all() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.at...)
}
