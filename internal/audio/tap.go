package audio

import (
	"encoding/binary"
	"sync"
)

// Tap is a ring buffer of the most recent mono samples. Audio threads write
// into it and the analyzer reads the tail.
type Tap struct {
	mu     sync.Mutex
	buf    []float64
	pos    int
	filled int
	rate   int
}

func NewTap(size, sampleRate int) *Tap {
	return &Tap{buf: make([]float64, size), rate: sampleRate}
}

func (t *Tap) SampleRate() int { return t.rate }

func (t *Tap) Write(samples []float64) {
	t.mu.Lock()
	for _, v := range samples {
		t.push(v)
	}
	t.mu.Unlock()
}

// WriteFloat32 mixes interleaved frames of the given channel count to mono.
func (t *Tap) WriteFloat32(in []float32, channels int) {
	if channels <= 0 {
		return
	}
	t.mu.Lock()
	for i := 0; i+channels <= len(in); i += channels {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(in[i+c])
		}
		t.push(sum / float64(channels))
	}
	t.mu.Unlock()
}

// WritePCM consumes s16le stereo bytes. A trailing partial frame is dropped.
func (t *Tap) WritePCM(pcm []byte) {
	t.mu.Lock()
	for i := 0; i+bytesPerFrame <= len(pcm); i += bytesPerFrame {
		l := int16(binary.LittleEndian.Uint16(pcm[i:]))
		r := int16(binary.LittleEndian.Uint16(pcm[i+2:]))
		t.push((float64(l) + float64(r)) / 2 / 32768)
	}
	t.mu.Unlock()
}

func (t *Tap) push(v float64) {
	t.buf[t.pos] = v
	t.pos = (t.pos + 1) % len(t.buf)
	if t.filled < len(t.buf) {
		t.filled++
	}
}

// Samples returns up to n of the latest samples in chronological order.
// Fewer are returned until the buffer has seen n samples.
func (t *Tap) Samples(n int) []float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n > t.filled {
		n = t.filled
	}
	size := len(t.buf)
	out := make([]float64, n)
	start := (t.pos - n + size) % size
	for i := range out {
		out[i] = t.buf[(start+i)%size]
	}
	return out
}

func (t *Tap) Reset() {
	t.mu.Lock()
	t.pos, t.filled = 0, 0
	t.mu.Unlock()
}
