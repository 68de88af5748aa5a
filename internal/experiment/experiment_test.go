package experiment_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gridstep/internal/audio"
	"github.com/san-kum/gridstep/internal/config"
	"github.com/san-kum/gridstep/internal/experiment"
)

func peakConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModePeak
	cfg.Seed = 3
	cfg.Analysis.Smoothing = 0
	cfg.Peak.EnergyThreshold = 80
	return cfg
}

var _ = Describe("Run", func() {
	It("steps about once per click and never inside the cooldown", func() {
		e, err := experiment.New(experiment.Config{
			Session: peakConfig(),
			Track:   audio.ClickTrack(60, 6*time.Second, audio.SampleRate),
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := e.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(len(res.Steps)).To(BeNumerically("~", 6, 1))
		Expect(res.Grids).To(Equal(len(res.Steps)))
		for i := 1; i < len(res.Steps); i++ {
			gap := res.Steps[i].At - res.Steps[i-1].At
			Expect(gap).To(BeNumerically(">=", 300*time.Millisecond))
		}
		Expect(res.Metrics["steps"]).To(Equal(float64(len(res.Steps))))
		Expect(res.Metrics["mean_interval_ms"]).To(BeNumerically("~", 1000, 100))
	})

	It("records one energy sample per frame", func() {
		e, err := experiment.New(experiment.Config{
			Session:  peakConfig(),
			Track:    audio.ClickTrack(60, 2*time.Second, audio.SampleRate),
			FPS:      30,
			Duration: time.Second,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := e.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Energy).To(HaveLen(30))
		Expect(res.Times).To(HaveLen(30))
		Expect(res.Peaks).To(HaveLen(30))
		Expect(res.Duration).To(BeNumerically("~", 1, 0.05))
	})

	It("never steps on silence", func() {
		r := experiment.NewRegistry()
		tr, err := r.Track("silence", 3*time.Second)
		Expect(err).NotTo(HaveOccurred())

		e, err := experiment.New(experiment.Config{Session: peakConfig(), Track: tr})
		Expect(err).NotTo(HaveOccurred())

		res, err := e.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Steps).To(BeEmpty())
	})

	It("steps on the virtual beat in tempo mode", func() {
		cfg := config.DefaultConfig()
		cfg.Mode = config.ModeTempo
		cfg.Tempo.BPM = 120

		e, err := experiment.New(experiment.Config{
			Session: cfg,
			Track:   audio.ClickTrack(120, 3*time.Second, audio.SampleRate),
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := e.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Steps).To(HaveLen(5))
		Expect(res.Metrics["mean_interval_ms"]).To(BeNumerically("~", 500, 20))
		last := res.Steps[len(res.Steps)-1]
		Expect(last.Camera.Z - cfg.Camera.Eye[2]).To(BeNumerically("~", 5*cfg.CubeSize, 1e-9))
	})

	It("labels onset frames with notes when asked", func() {
		e, err := experiment.New(experiment.Config{
			Session:     peakConfig(),
			Track:       audio.ClickTrack(60, 3*time.Second, audio.SampleRate),
			DetectNotes: true,
		})
		Expect(err).NotTo(HaveOccurred())

		res, err := e.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Notes).NotTo(BeEmpty())
		for _, n := range res.Notes {
			Expect(n.Note.Frequency).To(BeNumerically("<", 300))
			Expect(n.Velocity).To(BeNumerically(">=", 1))
		}
	})

	It("stops when the context is cancelled", func() {
		e, err := experiment.New(experiment.Config{
			Session: peakConfig(),
			Track:   audio.ClickTrack(60, 2*time.Second, audio.SampleRate),
		})
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = e.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("requires a track", func() {
		_, err := experiment.New(experiment.Config{})
		Expect(err).To(MatchError(experiment.ErrNoTrack))
	})
})

var _ = Describe("Ensemble", func() {
	It("renders every seed with the same step timing", func() {
		cfg := experiment.Config{
			Session: peakConfig(),
			Track:   audio.ClickTrack(60, 3*time.Second, audio.SampleRate),
		}
		results, err := experiment.NewEnsemble(cfg, 3, 10).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))

		for _, r := range results[1:] {
			Expect(r.Steps).To(HaveLen(len(results[0].Steps)))
			for i := range r.Steps {
				Expect(r.Steps[i].At).To(Equal(results[0].Steps[i].At))
			}
		}
	})

	It("keeps results in config order", func() {
		track := audio.ClickTrack(120, 2*time.Second, audio.SampleRate)
		tempo := func(bpm float64) experiment.Config {
			cfg := config.DefaultConfig()
			cfg.Mode = config.ModeTempo
			cfg.Tempo.BPM = bpm
			return experiment.Config{Session: cfg, Track: track}
		}

		results, err := experiment.RunAll(context.Background(), []experiment.Config{tempo(60), tempo(120)})
		Expect(err).NotTo(HaveOccurred())
		Expect(len(results[0].Steps)).To(BeNumerically("<", len(results[1].Steps)))
	})

	It("fails when any run fails", func() {
		_, err := experiment.RunAll(context.Background(), []experiment.Config{{Track: nil}})
		Expect(err).To(MatchError(experiment.ErrNoTrack))
	})
})

var _ = Describe("Registry", func() {
	var r *experiment.Registry

	BeforeEach(func() {
		r = experiment.NewRegistry()
	})

	It("synthesises named tracks of the requested length", func() {
		tr, err := r.Track("click", 2*time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(tr.Duration()).To(Equal(2 * time.Second))
		Expect(r.ListTracks()).To(Equal([]string{"click", "silence"}))
	})

	It("parses a click tempo", func() {
		_, err := r.Track("click@140", time.Second)
		Expect(err).NotTo(HaveOccurred())

		_, err = r.Track("click@fast", time.Second)
		Expect(err).To(HaveOccurred())
	})

	It("fails on a missing file", func() {
		_, err := r.Track("does-not-exist.mp3", 0)
		Expect(err).To(HaveOccurred())
	})
})
