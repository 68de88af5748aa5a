package analysis

import (
	"errors"
	"math"
	"testing"
)

type sineSource struct {
	freq, amp float64
	rate      int
}

func (s sineSource) SampleRate() int { return s.rate }
func (s sineSource) Samples(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = s.amp * math.Sin(2*math.Pi*s.freq*float64(i)/float64(s.rate))
	}
	return out
}

type shortSource struct{}

func (shortSource) SampleRate() int         { return 44100 }
func (shortSource) Samples(n int) []float64 { return make([]float64, n/2) }

func flatFrame(level float64) Frame {
	spec := make([]float64, 1024)
	for i := range spec {
		spec[i] = level
	}
	return Frame{Spectrum: spec, SampleRate: 44100}
}

func TestAnalyzerDominantSine(t *testing.T) {
	a := NewAnalyzer(sineSource{freq: 440, amp: 0.01, rate: 44100}, 0, 1024)
	frame, ok := a.Analyze()
	if !ok {
		t.Fatal("expected a frame")
	}
	if len(frame.Spectrum) != 1024 || len(frame.Waveform) != 2048 {
		t.Fatalf("unexpected frame shape: %d bins, %d samples", len(frame.Spectrum), len(frame.Waveform))
	}

	freq, err := DominantFrequency(frame, 0)
	if err != nil {
		t.Fatalf("dominant frequency: %v", err)
	}
	binWidth := 44100.0 / 2048
	if math.Abs(freq-440) > binWidth {
		t.Errorf("expected ~440Hz, got %.1f", freq)
	}

	near := frame.Energy(400, 480)
	far := frame.Energy(5000, 8000)
	if near <= far {
		t.Errorf("expected band around 440Hz to dominate: near=%.1f far=%.1f", near, far)
	}
	for _, v := range frame.Spectrum {
		if v < 0 || v > 255 {
			t.Fatalf("spectrum value out of byte range: %f", v)
		}
	}
}

func TestAnalyzerSilence(t *testing.T) {
	a := NewAnalyzer(sineSource{freq: 440, amp: 0, rate: 44100}, 0.8, 256)
	frame, ok := a.Analyze()
	if !ok {
		t.Fatal("expected a frame")
	}
	if e := frame.Energy(1, 20000); e != 0 {
		t.Errorf("expected zero energy for silence, got %f", e)
	}
}

func TestAnalyzerNotReady(t *testing.T) {
	if _, ok := NewAnalyzer(shortSource{}, 0.8, 1024).Analyze(); ok {
		t.Error("expected no frame from a short source")
	}
	if _, ok := NewAnalyzer(nil, 0.8, 1024).Analyze(); ok {
		t.Error("expected no frame from a nil source")
	}
}

func TestAnalyzerSmoothing(t *testing.T) {
	src := &switchSource{rate: 44100, amp: 0.01}
	first, _ := NewAnalyzer(src, 0.8, 256).Analyze()
	raw, _ := NewAnalyzer(src, 0, 256).Analyze()

	if first.Energy(400, 480) >= raw.Energy(400, 480) {
		t.Errorf("smoothed onset should lag the raw spectrum: %.1f >= %.1f",
			first.Energy(400, 480), raw.Energy(400, 480))
	}
}

type switchSource struct {
	amp  float64
	rate int
}

func (s *switchSource) SampleRate() int { return s.rate }
func (s *switchSource) Samples(n int) []float64 {
	return sineSource{freq: 440, amp: s.amp, rate: s.rate}.Samples(n)
}

func TestFrameEnergy(t *testing.T) {
	f := flatFrame(0)
	for k := range f.Spectrum {
		if f.BinFrequency(k) <= 240 {
			f.Spectrum[k] = 200
		}
	}

	if e := f.Energy(1, 240); e < 190 {
		t.Errorf("expected low band near 200, got %.1f", e)
	}
	if e := f.Energy(1000, 2000); e != 0 {
		t.Errorf("expected empty band, got %.1f", e)
	}
	if f.Energy(240, 1) != f.Energy(1, 240) {
		t.Error("swapped band bounds should be normalised")
	}
	if (Frame{}).Energy(1, 240) != 0 {
		t.Error("empty frame should have zero energy")
	}
}

func TestPeakDetector(t *testing.T) {
	d := NewPeakDetector(0.3)

	if d.Update(flatFrame(10)) {
		t.Error("quiet frame should not peak")
	}
	if !d.Update(flatFrame(200)) {
		t.Fatal("rising loud frame should peak")
	}
	if d.Update(flatFrame(210)) {
		t.Error("frame under the raised cutoff should not peak")
	}

	for i := 0; i < 60; i++ {
		d.Update(flatFrame(10))
	}
	if d.Cutoff() != d.Threshold {
		t.Errorf("cutoff should decay back to threshold, got %f", d.Cutoff())
	}
	if !d.Update(flatFrame(200)) {
		t.Error("expected a new peak after decay")
	}
}

func TestPeakDetectorBelowThreshold(t *testing.T) {
	d := NewPeakDetector(0.9)
	for _, level := range []float64{0, 50, 100, 150, 200} {
		if d.Update(flatFrame(level)) {
			t.Errorf("level %.0f should not exceed threshold 0.9", level)
		}
	}
}

func TestNoteFor(t *testing.T) {
	tests := []struct {
		freq   float64
		name   string
		octave int
		key    uint8
	}{
		{440, "A", 4, 69},
		{261.63, "C", 4, 60},
		{466.16, "A#", 4, 70},
		{82.41, "E", 2, 40},
	}

	for _, tt := range tests {
		n, err := NoteFor(tt.freq)
		if err != nil {
			t.Fatalf("NoteFor(%.2f): %v", tt.freq, err)
		}
		if n.Name != tt.name || n.Octave != tt.octave || n.Key != tt.key {
			t.Errorf("NoteFor(%.2f) = %s%d key %d, expected %s%d key %d",
				tt.freq, n.Name, n.Octave, n.Key, tt.name, tt.octave, tt.key)
		}
		if math.Abs(n.Cents) > 50 {
			t.Errorf("cents out of range: %f", n.Cents)
		}
	}

	if _, err := NoteFor(0); !errors.Is(err, ErrNoPitch) {
		t.Errorf("expected ErrNoPitch, got %v", err)
	}
}

func TestDominantFrequencyNone(t *testing.T) {
	if _, err := DominantFrequency(flatFrame(0), 10); !errors.Is(err, ErrNoPitch) {
		t.Errorf("expected ErrNoPitch, got %v", err)
	}
}
