// Package audio provides the sound collaborators of a session: decoded
// tracks, an oto playback transport, a virtual playhead for offline runs
// and live portaudio capture. Each of them feeds a Tap that the spectral
// analyzer reads from.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

const (
	SampleRate = 44100
	BufferSize = 1024

	// bytesPerFrame is one stereo frame of signed 16-bit little endian PCM.
	bytesPerFrame = 4
)

var ErrNoAudio = errors.New("audio: no audio data")

// Track is a fully decoded song.
type Track struct {
	PCM        []byte    // s16le stereo, as oto expects
	Mono       []float64 // channel average in -1..1
	SampleRate int
}

// Decode reads an mp3 stream to the end.
func Decode(r io.Reader) (*Track, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("audio: decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("audio: decode mp3: %w", err)
	}
	if len(pcm) < bytesPerFrame {
		return nil, ErrNoAudio
	}
	pcm = pcm[:len(pcm)-len(pcm)%bytesPerFrame]
	return &Track{PCM: pcm, Mono: pcmToMono(pcm), SampleRate: d.SampleRate()}, nil
}

func DecodeFile(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// FromMono builds a track from mono samples, duplicating them on both
// channels. Samples are clipped to -1..1.
func FromMono(samples []float64, sampleRate int) *Track {
	pcm := make([]byte, len(samples)*bytesPerFrame)
	mono := make([]float64, len(samples))
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		s := int16(math.Round(v * 32767))
		binary.LittleEndian.PutUint16(pcm[i*4:], uint16(s))
		binary.LittleEndian.PutUint16(pcm[i*4+2:], uint16(s))
		mono[i] = float64(s) / 32768
	}
	return &Track{PCM: pcm, Mono: mono, SampleRate: sampleRate}
}

func (t *Track) Duration() time.Duration {
	if t.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(t.Mono)) / float64(t.SampleRate) * float64(time.Second))
}

func pcmToMono(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/bytesPerFrame)
	for i := range out {
		l := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
		out[i] = (float64(l) + float64(r)) / 2 / 32768
	}
	return out
}

// ClickTrack synthesises a metronome: a short decaying low chord on every
// beat. It stands in for real songs in offline runs and tests.
func ClickTrack(bpm float64, length time.Duration, sampleRate int) *Track {
	n := int(length.Seconds() * float64(sampleRate))
	samples := make([]float64, n)
	beat := int(60 / bpm * float64(sampleRate))
	click := sampleRate / 20
	if beat <= 0 {
		return FromMono(samples, sampleRate)
	}

	for start := 0; start < n; start += beat {
		for i := 0; i < click && start+i < n; i++ {
			t := float64(i) / float64(sampleRate)
			env := math.Exp(-t * 60)
			v := 0.0
			for _, f := range []float64{50, 100, 150, 200} {
				v += math.Sin(2 * math.Pi * f * t)
			}
			samples[start+i] = 0.2 * env * v
		}
	}
	return FromMono(samples, sampleRate)
}
