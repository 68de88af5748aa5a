package trigger_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridstep/internal/trigger"
)

var _ = Describe("Tempo", func() {
	var (
		src   *fakeSource
		steps *counter
	)

	BeforeEach(func() {
		src = &fakeSource{}
		steps = &counter{}
	})

	It("rejects non-positive and non-finite tempos", func() {
		for _, bpm := range []float64{0, -10, math.NaN(), math.Inf(1)} {
			_, err := trigger.NewTempo(bpm, src, steps.inc)
			Expect(err).To(MatchError(trigger.ErrInvalidTempo))
		}
	})

	It("rejects a nil callback", func() {
		_, err := trigger.NewTempo(86, src, nil)
		Expect(err).To(MatchError(trigger.ErrNilCallback))
	})

	It("derives the period from bpm", func() {
		t, err := trigger.NewTempo(86, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Period().Seconds() * 1000).To(BeNumerically("~", 697.674, 0.001))
		Expect(trigger.PeriodFor(120)).To(Equal(500 * time.Millisecond))
	})

	It("fires repeatedly once started and toggles playback", func() {
		t, err := trigger.NewTempo(1200, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		t.Start()
		DeferCleanup(t.Stop)

		Expect(src.IsPlaying()).To(BeTrue())
		Expect(t.Running()).To(BeTrue())
		Eventually(steps.count, "2s", "10ms").Should(BeNumerically(">=", 3))
	})

	It("fires nothing after Stop returns", func() {
		t, err := trigger.NewTempo(3000, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		t.Start()
		Eventually(steps.count, "2s", "5ms").Should(BeNumerically(">=", 2))
		t.Stop()
		Expect(t.Running()).To(BeFalse())

		stopped := steps.count()
		Consistently(steps.count, "200ms", "10ms").Should(Equal(stopped))
	})

	It("tolerates Stop before Start and repeated Stops", func() {
		t, err := trigger.NewTempo(86, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		Expect(t.Stop).NotTo(Panic())
		Expect(t.Stop).NotTo(Panic())
		Expect(steps.count()).To(BeZero())
	})

	It("does not leak the previous schedule on restart", func() {
		t, err := trigger.NewTempo(600, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		t.Start()
		t.Start()
		t.Start()
		DeferCleanup(t.Stop)

		// One live schedule at 100ms gives about 5 beats in 500ms; three
		// leaked schedules would give about 15.
		time.Sleep(520 * time.Millisecond)
		Expect(steps.count()).To(BeNumerically("<=", 7))
	})

	It("reschedules with the new period when the tempo changes", func() {
		beats := &stamps{}
		t, err := trigger.NewTempo(6, src, beats.record)
		Expect(err).NotTo(HaveOccurred())

		t.Start()
		DeferCleanup(t.Stop)
		time.Sleep(50 * time.Millisecond)

		changed := time.Now()
		Expect(t.SetTempo(600)).To(Succeed())
		Expect(t.BPM()).To(Equal(600.0))
		Expect(t.Running()).To(BeTrue())

		Eventually(beats.count, "1s", "5ms").Should(BeNumerically(">=", 2))
		got := beats.all()
		Expect(got[0].Sub(changed)).To(BeNumerically("~", 100*time.Millisecond, 40*time.Millisecond))
		Expect(got[1].Sub(got[0])).To(BeNumerically("~", 100*time.Millisecond, 40*time.Millisecond))
	})

	It("keeps the old tempo when the new one is invalid", func() {
		t, err := trigger.NewTempo(86, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		Expect(t.SetTempo(0)).To(MatchError(trigger.ErrInvalidTempo))
		Expect(t.BPM()).To(Equal(86.0))
	})

	It("changes tempo without starting when stopped", func() {
		t, err := trigger.NewTempo(86, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		Expect(t.SetTempo(3000)).To(Succeed())
		Expect(t.Running()).To(BeFalse())
		Consistently(steps.count, "100ms", "10ms").Should(BeZero())
	})

	It("fires a manual step synchronously", func() {
		t, err := trigger.NewTempo(86, nil, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		t.Trigger()
		t.Trigger()
		Expect(steps.count()).To(Equal(2))
	})

	It("pauses a playing source on Start", func() {
		src.Play()
		t, err := trigger.NewTempo(86, src, steps.inc)
		Expect(err).NotTo(HaveOccurred())

		t.Start()
		DeferCleanup(t.Stop)
		Expect(src.IsPlaying()).To(BeFalse())
	})
})
