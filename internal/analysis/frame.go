package analysis

import "math"

// Frame is one analysis snapshot. Spectrum values are on the 0..255 byte
// scale; Waveform holds the raw samples the spectrum was computed from.
type Frame struct {
	Spectrum   []float64
	Waveform   []float64
	SampleRate int
}

func (f Frame) Nyquist() float64 { return float64(f.SampleRate) / 2 }

// BinFrequency is the centre frequency of spectrum bin k.
func (f Frame) BinFrequency(k int) float64 {
	if len(f.Spectrum) == 0 {
		return 0
	}
	return float64(k) * f.Nyquist() / float64(len(f.Spectrum))
}

func (f Frame) binIndex(freq float64) int {
	idx := int(math.Round(freq / f.Nyquist() * float64(len(f.Spectrum))))
	if idx < 0 {
		return 0
	}
	if idx >= len(f.Spectrum) {
		return len(f.Spectrum) - 1
	}
	return idx
}

// Energy is the mean byte value over the bins spanning [lo, hi] Hz.
func (f Frame) Energy(lo, hi float64) float64 {
	if len(f.Spectrum) == 0 || f.SampleRate <= 0 {
		return 0
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	low, high := f.binIndex(lo), f.binIndex(hi)

	total := 0.0
	for i := low; i <= high; i++ {
		total += f.Spectrum[i]
	}
	return total / float64(high-low+1)
}

// RMS is the root mean square of the waveform.
func (f Frame) RMS() float64 {
	if len(f.Waveform) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range f.Waveform {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(f.Waveform)))
}
