package trigger_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/trigger"
)

// bandFrame has every bin up to cutoff Hz at level and the rest silent.
func bandFrame(level, cutoff float64) analysis.Frame {
	f := analysis.Frame{Spectrum: make([]float64, 1024), SampleRate: 44100}
	for k := range f.Spectrum {
		if f.BinFrequency(k) <= cutoff {
			f.Spectrum[k] = level
		}
	}
	return f
}

var _ = Describe("Peak", func() {
	var (
		steps *counter
		epoch time.Time
	)

	BeforeEach(func() {
		steps = &counter{}
		epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	newPeak := func(src trigger.Source, r trigger.Resumer) *trigger.Peak {
		p, err := trigger.NewPeak(steps.inc, trigger.DefaultPeakConfig(), src, r, nil)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	It("rejects a nil callback", func() {
		_, err := trigger.NewPeak(nil, trigger.DefaultPeakConfig(), nil, nil, nil)
		Expect(err).To(MatchError(trigger.ErrNilCallback))
	})

	It("keeps an explicit zero cooldown and threshold", func() {
		cfg := trigger.DefaultPeakConfig()
		cfg.Cooldown = 0
		cfg.EnergyThreshold = 0
		cfg.BandLow = 0

		p, err := trigger.NewPeak(steps.inc, cfg, nil, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Config()).To(Equal(cfg))

		loud := bandFrame(200, 240)
		Expect(p.Update(loud, epoch)).To(BeTrue())
		Expect(p.Update(loud, epoch)).To(BeTrue())
		Expect(steps.count()).To(Equal(2))
	})

	It("rejects out-of-range thresholds", func() {
		for _, mutate := range []func(*trigger.PeakConfig){
			func(c *trigger.PeakConfig) { c.Sensitivity = 0 },
			func(c *trigger.PeakConfig) { c.EnergyThreshold = 300 },
			func(c *trigger.PeakConfig) { c.Cooldown = -time.Millisecond },
			func(c *trigger.PeakConfig) { c.BandHigh = c.BandLow },
		} {
			cfg := trigger.DefaultPeakConfig()
			mutate(&cfg)
			_, err := trigger.NewPeak(steps.inc, cfg, nil, nil, nil)
			Expect(err).To(MatchError(trigger.ErrInvalidPeakConfig))
		}
	})

	It("stays quiet on silence", func() {
		p := newPeak(nil, nil)
		for i := 0; i < 30; i++ {
			Expect(p.Update(bandFrame(0, 240), epoch.Add(time.Duration(i)*16*time.Millisecond))).To(BeFalse())
		}
		Expect(steps.count()).To(BeZero())
	})

	It("fires on low band energy above the threshold", func() {
		p := newPeak(nil, nil)
		Expect(p.Update(bandFrame(200, 240), epoch)).To(BeTrue())
		Expect(p.Energy()).To(BeNumerically(">", 150))
		Expect(steps.count()).To(Equal(1))
	})

	It("fires at most once per cooldown", func() {
		p := newPeak(nil, nil)
		loud := bandFrame(200, 240)

		Expect(p.Update(loud, epoch)).To(BeTrue())
		Expect(p.Update(loud, epoch.Add(100*time.Millisecond))).To(BeFalse())
		Expect(p.Update(loud, epoch.Add(299*time.Millisecond))).To(BeFalse())
		Expect(p.Update(loud, epoch.Add(300*time.Millisecond))).To(BeTrue())
		Expect(steps.count()).To(Equal(2))
	})

	It("fires on a broadband detector peak even with a quiet low band", func() {
		p := newPeak(nil, nil)
		f := analysis.Frame{Spectrum: make([]float64, 1024), SampleRate: 44100}
		for k := range f.Spectrum {
			if f.BinFrequency(k) > 1000 {
				f.Spectrum[k] = 220
			}
		}

		Expect(p.Update(f, epoch)).To(BeTrue())
		Expect(p.Detected()).To(BeTrue())
		Expect(p.Energy()).To(BeNumerically("<", 150))
	})

	Describe("Toggle", func() {
		It("resumes the output then starts playback", func() {
			src, r := &fakeSource{}, &fakeResumer{}
			p := newPeak(src, r)

			p.Toggle()
			Expect(r.calls).To(Equal(1))
			Expect(src.IsPlaying()).To(BeTrue())

			p.Toggle()
			Expect(src.IsPlaying()).To(BeFalse())
		})

		It("leaves playback untouched when resuming fails", func() {
			src, r := &fakeSource{}, &fakeResumer{err: errSuspended}
			p := newPeak(src, r)

			p.Toggle()
			Expect(r.calls).To(Equal(1))
			Expect(src.IsPlaying()).To(BeFalse())
			Expect(src.plays).To(BeZero())
		})

		It("treats a missing resumer as resumed", func() {
			src := &fakeSource{}
			newPeak(src, nil).Toggle()
			Expect(src.IsPlaying()).To(BeTrue())
		})
	})
})
