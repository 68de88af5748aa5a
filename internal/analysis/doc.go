// Package analysis turns raw audio samples into the per-frame signals the
// step triggers consume.
//
//   - [Analyzer]: windowed FFT over the tail of a [SampleSource], producing a
//     byte-scaled [Frame]
//   - [Frame.Energy]: mean spectrum level over a frequency band
//   - [PeakDetector]: adaptive-cutoff onset flag
//   - [NoteFor], [DominantFrequency]: experimental pitch-to-note display
//
// # Scale
//
// Spectrum values follow the browser AnalyserNode convention: magnitudes are
// smoothed over time, converted to dB and mapped from [-100, -30] dB onto
// 0..255. Energy thresholds in the config are expressed on that scale.
package analysis
