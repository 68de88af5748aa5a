package session_test

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/config"
	"github.com/san-kum/gridstep/internal/session"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	mu      sync.Mutex
	playing bool
	pos     float64
}

func (s *fakeSource) Play()  { s.mu.Lock(); s.playing = true; s.mu.Unlock() }
func (s *fakeSource) Pause() { s.mu.Lock(); s.playing = false; s.mu.Unlock() }
func (s *fakeSource) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}
func (s *fakeSource) CurrentTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

type failingResumer struct{}

func (failingResumer) Resume() error { return errors.New("suspended") }

// scriptedAnalyzer replays a fixed list of low-band levels, then reports
// not-ready.
type scriptedAnalyzer struct {
	levels []float64
}

func (a *scriptedAnalyzer) Analyze() (analysis.Frame, bool) {
	if len(a.levels) == 0 {
		return analysis.Frame{}, false
	}
	level := a.levels[0]
	a.levels = a.levels[1:]

	f := analysis.Frame{Spectrum: make([]float64, 1024), SampleRate: 44100}
	for k := range f.Spectrum {
		if f.BinFrequency(k) <= 240 {
			f.Spectrum[k] = level
		}
	}
	return f, true
}

// loudAnalyzer returns the same loud low-band frame forever, the way a
// paused track keeps exposing its last window.
type loudAnalyzer struct {
	resets int
}

func (a *loudAnalyzer) Analyze() (analysis.Frame, bool) {
	return (&scriptedAnalyzer{levels: []float64{220}}).Analyze()
}

func (a *loudAnalyzer) Reset() { a.resets++ }

func configFor(mode string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = mode
	cfg.Seed = 7
	return cfg
}

var _ = Describe("Session", func() {
	var clock *fakeClock

	BeforeEach(func() {
		clock = newFakeClock()
	})

	It("rejects an invalid config", func() {
		cfg := configFor(config.ModeTempo)
		cfg.Tempo.BPM = 0
		_, err := session.New(cfg)
		Expect(errors.Is(err, config.ErrInvalidConfig)).To(BeTrue())
	})

	It("grows the history by one full layer per step", func() {
		s, err := session.New(configFor(config.ModeManual), session.WithClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())

		for i := 0; i < 5; i++ {
			ev := s.Step()
			Expect(ev.Index).To(Equal(i))
			clock.Advance(time.Second)
		}

		grids := s.Grids()
		Expect(grids).To(HaveLen(5))
		for _, g := range grids {
			Expect(g.Size()).To(Equal(15))
			Expect(g.Cells()).To(HaveLen(225))
		}
	})

	It("moves the camera one cube along z per step", func() {
		s, err := session.New(configFor(config.ModeManual), session.WithClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())
		start := s.Camera()

		for i := 0; i < 3; i++ {
			s.Step()
			clock.Advance(600 * time.Millisecond)
			s.Frame()
		}

		end := s.Camera()
		Expect(end.Z - start.Z).To(BeNumerically("~", 150, 1e-9))
		Expect(end.X).To(Equal(start.X))
		Expect(end.Y).To(Equal(start.Y))
	})

	It("keeps the view direction while the eye moves", func() {
		s, err := session.New(configFor(config.ModeManual), session.WithClock(clock.Now))
		Expect(err).NotTo(HaveOccurred())
		eye0, center0, _ := s.View()

		s.Step()
		clock.Advance(time.Second)
		s.Frame()

		eye1, center1, _ := s.View()
		Expect(eye1.Sub(center1)).To(Equal(eye0.Sub(center0)))
	})

	It("is reproducible for a fixed seed", func() {
		a, err := session.New(configFor(config.ModeManual), session.WithSeed(42))
		Expect(err).NotTo(HaveOccurred())
		b, err := session.New(configFor(config.ModeManual), session.WithSeed(42))
		Expect(err).NotTo(HaveOccurred())

		a.Step()
		b.Step()
		Expect(a.Grids()[0].Cells()).To(Equal(b.Grids()[0].Cells()))
	})

	It("notifies observers with the playback position", func() {
		src := &fakeSource{pos: 12.5}
		s, err := session.New(configFor(config.ModeManual),
			session.WithClock(clock.Now), session.WithSource(src))
		Expect(err).NotTo(HaveOccurred())

		var seen []session.StepEvent
		s.AddObserver(func(ev session.StepEvent) { seen = append(seen, ev) })

		clock.Advance(250 * time.Millisecond)
		s.Step()

		Expect(seen).To(HaveLen(1))
		Expect(seen[0].Playback).To(Equal(12.5))
		Expect(seen[0].At).To(Equal(250 * time.Millisecond))
		Expect(s.Steps()).To(Equal(seen))
	})

	Describe("peak mode", func() {
		It("never fires without an analyzer", func() {
			s, err := session.New(configFor(config.ModePeak), session.WithClock(clock.Now))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 100; i++ {
				st := s.Frame()
				Expect(st.Fired).To(BeFalse())
				Expect(st.Analyzed).To(BeFalse())
				clock.Advance(16 * time.Millisecond)
			}
			Expect(s.Grids()).To(BeEmpty())
		})

		It("skips frames the analyzer is not ready for", func() {
			s, err := session.New(configFor(config.ModePeak),
				session.WithClock(clock.Now), session.WithAnalyzer(&scriptedAnalyzer{}))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Frame().Analyzed).To(BeFalse())
			Expect(s.Grids()).To(BeEmpty())
		})

		It("steps on loud frames and honours the cooldown", func() {
			levels := []float64{0, 200, 200, 200, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 200}
			s, err := session.New(configFor(config.ModePeak),
				session.WithClock(clock.Now), session.WithAnalyzer(&scriptedAnalyzer{levels: levels}))
			Expect(err).NotTo(HaveOccurred())

			fired := 0
			for range levels {
				if s.Frame().Fired {
					fired++
				}
				clock.Advance(20 * time.Millisecond)
			}

			Expect(fired).To(Equal(2))
			steps := s.Steps()
			Expect(steps).To(HaveLen(2))
			Expect(steps[1].At - steps[0].At).To(BeNumerically(">=", 300*time.Millisecond))
		})

		It("maps the pointer to a playback toggle by default", func() {
			src := &fakeSource{}
			s, err := session.New(configFor(config.ModePeak), session.WithSource(src))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.PointerMode()).To(Equal(config.PointerToggle))

			s.Pointer()
			Expect(src.IsPlaying()).To(BeTrue())
			s.Pointer()
			Expect(src.IsPlaying()).To(BeFalse())
			Expect(s.Grids()).To(BeEmpty())
		})

		It("leaves playback alone when the output cannot resume", func() {
			src := &fakeSource{}
			s, err := session.New(configFor(config.ModePeak),
				session.WithSource(src), session.WithResumer(failingResumer{}))
			Expect(err).NotTo(HaveOccurred())

			s.Pointer()
			Expect(src.IsPlaying()).To(BeFalse())
		})

		It("stops stepping while playback is paused", func() {
			src := &fakeSource{}
			a := &loudAnalyzer{}
			s, err := session.New(configFor(config.ModePeak),
				session.WithClock(clock.Now), session.WithSource(src), session.WithAnalyzer(a))
			Expect(err).NotTo(HaveOccurred())

			frame := func() int {
				clock.Advance(16 * time.Millisecond)
				return s.Frame().Steps
			}

			s.Pointer()
			Expect(src.IsPlaying()).To(BeTrue())
			for i := 0; i < 60; i++ {
				frame()
			}
			before := len(s.Steps())
			Expect(before).To(BeNumerically(">=", 2))

			s.Pointer()
			Expect(src.IsPlaying()).To(BeFalse())
			Consistently(frame).WithTimeout(200 * time.Millisecond).WithPolling(time.Millisecond).
				Should(Equal(before))
			Expect(s.Frame().Analyzed).To(BeFalse())

			s.Pointer()
			Expect(a.resets).To(BeZero())
			frame()
			Expect(a.resets).To(Equal(1))
		})

		It("keeps an explicit zero cooldown", func() {
			cfg := configFor(config.ModePeak)
			cfg.Peak.CooldownMs = 0
			s, err := session.New(cfg,
				session.WithClock(clock.Now), session.WithAnalyzer(&loudAnalyzer{}))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 3; i++ {
				Expect(s.Frame().Fired).To(BeTrue())
			}
			Expect(s.Steps()).To(HaveLen(3))
		})

		It("refuses tempo changes", func() {
			s, err := session.New(configFor(config.ModePeak))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.SetTempo(120)).To(MatchError(session.ErrWrongMode))
		})
	})

	Describe("tempo mode", func() {
		It("maps the pointer to a manual step by default", func() {
			s, err := session.New(configFor(config.ModeTempo))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.PointerMode()).To(Equal(config.PointerStep))

			s.Pointer()
			Expect(s.Grids()).To(HaveLen(1))
			Expect(s.Running()).To(BeFalse())
		})

		It("steps on the beat until stopped", func() {
			cfg := configFor(config.ModeTempo)
			cfg.Tempo.BPM = 1200
			src := &fakeSource{}
			s, err := session.New(cfg, session.WithSource(src))
			Expect(err).NotTo(HaveOccurred())

			s.Start()
			Expect(src.IsPlaying()).To(BeTrue())
			Eventually(func() int { return len(s.Grids()) }, "2s", "10ms").Should(BeNumerically(">=", 3))

			s.Stop()
			Expect(src.IsPlaying()).To(BeFalse())
			n := len(s.Grids())
			Consistently(func() int { return len(s.Grids()) }, "200ms", "20ms").Should(Equal(n))
		})

		It("toggles the schedule with the pointer in toggle mapping", func() {
			cfg := configFor(config.ModeTempo)
			cfg.Pointer = config.PointerToggle
			cfg.Tempo.BPM = 1200
			s, err := session.New(cfg)
			Expect(err).NotTo(HaveOccurred())

			s.Pointer()
			Expect(s.Running()).To(BeTrue())
			s.Pointer()
			Expect(s.Running()).To(BeFalse())
		})

		It("validates tempo changes", func() {
			s, err := session.New(configFor(config.ModeTempo))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.SetTempo(-1)).To(HaveOccurred())
			Expect(s.BPM()).To(Equal(config.DefaultBPM))
			Expect(s.SetTempo(120)).To(Succeed())
			Expect(s.BPM()).To(Equal(120.0))
			Expect(s.Config().Tempo.BPM).To(Equal(120.0))
		})
	})
})
