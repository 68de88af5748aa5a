package audio

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// Player plays a track on the default output device and copies everything
// the device pulls into its Tap.
type Player struct {
	ctx    *oto.Context
	player *oto.Player
	src    *tapReader
	rate   int
	tap    *Tap

	mu sync.Mutex
}

// tapReader counts consumed bytes and mirrors them into the tap.
type tapReader struct {
	r        *bytes.Reader
	tap      *Tap
	consumed atomic.Int64
}

func (t *tapReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.tap.WritePCM(p[:n])
		t.consumed.Add(int64(n))
	}
	return n, err
}

func (t *tapReader) Seek(offset int64, whence int) (int64, error) {
	return t.r.Seek(offset, whence)
}

// NewPlayer opens the output device. Only one oto context may exist per
// process, so only one Player can be created.
func NewPlayer(track *Track) (*Player, error) {
	if track == nil || len(track.PCM) == 0 {
		return nil, ErrNoAudio
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   track.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: open output: %w", err)
	}
	<-ready

	tap := NewTap(8*BufferSize, track.SampleRate)
	src := &tapReader{r: bytes.NewReader(track.PCM), tap: tap}
	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(src),
		src:    src,
		rate:   track.SampleRate,
		tap:    tap,
	}, nil
}

func (p *Player) Tap() *Tap { return p.tap }

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.player.Play()
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.player.Pause()
}

func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player.IsPlaying()
}

// CurrentTime is the audible position in seconds: bytes handed to the
// device minus what it still holds in its buffer.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	buffered := p.player.BufferedSize()
	p.mu.Unlock()

	played := p.src.consumed.Load() - int64(buffered)
	if played < 0 {
		played = 0
	}
	return float64(played) / float64(p.rate*bytesPerFrame)
}

// Resume wakes a suspended output context.
func (p *Player) Resume() error {
	if err := p.ctx.Resume(); err != nil {
		return fmt.Errorf("audio: resume output: %w", err)
	}
	return nil
}

// Rewind seeks back to the start of the track.
func (p *Player) Rewind() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.player.Seek(0, io.SeekStart); err != nil {
		return err
	}
	p.src.consumed.Store(0)
	p.tap.Reset()
	return nil
}

func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player.Close()
}
