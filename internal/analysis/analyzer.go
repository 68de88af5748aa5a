package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	MinDecibels = -100.0
	MaxDecibels = -30.0
)

// SampleSource yields the most recent mono samples in chronological order.
type SampleSource interface {
	Samples(n int) []float64
	SampleRate() int
}

// Analyzer turns the tail of a sample stream into byte-scaled spectra the
// way a browser AnalyserNode does: Blackman window, magnitude smoothing over
// time, then a dB range squeezed into 0..255.
type Analyzer struct {
	src       SampleSource
	smoothing float64
	bins      int
	win       []float64
	smoothed  []float64
}

// NewAnalyzer reads 2*bins samples per frame. bins must be a power of two.
func NewAnalyzer(src SampleSource, smoothing float64, bins int) *Analyzer {
	return &Analyzer{
		src:       src,
		smoothing: smoothing,
		bins:      bins,
		win:       window.Blackman(2 * bins),
		smoothed:  make([]float64, bins),
	}
}

func (a *Analyzer) Bins() int { return a.bins }

// Analyze returns false when the source cannot yet provide a full window.
func (a *Analyzer) Analyze() (Frame, bool) {
	if a.src == nil {
		return Frame{}, false
	}
	n := 2 * a.bins
	samples := a.src.Samples(n)
	if len(samples) < n {
		return Frame{}, false
	}

	wave := make([]float64, n)
	copy(wave, samples)

	windowed := make([]float64, n)
	for i, v := range samples {
		windowed[i] = v * a.win[i]
	}
	spectrum := fft.FFTReal(windowed)

	bytes := make([]float64, a.bins)
	for k := 0; k < a.bins; k++ {
		mag := cmplx.Abs(spectrum[k]) / float64(n)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		bytes[k] = toByte(a.smoothed[k])
	}

	return Frame{Spectrum: bytes, Waveform: wave, SampleRate: a.src.SampleRate()}, true
}

// Reset clears the smoothing state.
func (a *Analyzer) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

func toByte(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := 255 * (db - MinDecibels) / (MaxDecibels - MinDecibels)
	return math.Max(0, math.Min(255, math.Floor(v)))
}
