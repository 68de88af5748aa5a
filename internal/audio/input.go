package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Input captures the default input device (a guitar interface or a mic)
// into a Tap. It satisfies the same transport contract as Player so live
// input can drive a session directly.
type Input struct {
	mu      sync.Mutex
	stream  captureStream
	tap     *Tap
	logger  *slog.Logger
	started time.Time
	elapsed time.Duration
	playing bool
}

// captureStream is the part of a portaudio stream Input drives.
type captureStream interface {
	Start() error
	Stop() error
	Close() error
}

func OpenInput(logger *slog.Logger) (*Input, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audio: init portaudio: %w", err)
	}

	in := newInput(nil, logger)
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, BufferSize, in.process)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("audio: open input stream: %w", err)
	}
	in.stream = stream
	return in, nil
}

func newInput(stream captureStream, logger *slog.Logger) *Input {
	if logger == nil {
		logger = slog.Default()
	}
	return &Input{
		stream: stream,
		tap:    NewTap(8*BufferSize, SampleRate),
		logger: logger.With("component", "input"),
	}
}

func (in *Input) process(samples []float32) {
	in.tap.WriteFloat32(samples, 1)
}

func (in *Input) Tap() *Tap { return in.tap }

func (in *Input) Play() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.playing {
		return
	}
	if err := in.stream.Start(); err != nil {
		in.logger.Error("start input stream", "error", err)
		return
	}
	in.started = time.Now()
	in.playing = true
}

func (in *Input) Pause() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if !in.playing {
		return
	}
	if err := in.stream.Stop(); err != nil {
		in.logger.Error("stop input stream", "error", err)
	}
	in.elapsed += time.Since(in.started)
	in.playing = false
}

func (in *Input) IsPlaying() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.playing
}

// CurrentTime is the total time spent capturing, in seconds.
func (in *Input) CurrentTime() float64 {
	in.mu.Lock()
	defer in.mu.Unlock()
	d := in.elapsed
	if in.playing {
		d += time.Since(in.started)
	}
	return d.Seconds()
}

func (in *Input) Close() error {
	in.Pause()
	err := in.stream.Close()
	portaudio.Terminate()
	return err
}
