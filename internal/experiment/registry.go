package experiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/gridstep/internal/audio"
)

const defaultSynthLength = 30 * time.Second

// Registry resolves a song name to a track. Names registered here are
// synthesised; anything else is treated as an mp3 path.
type Registry struct {
	tracks map[string]func(length time.Duration) *audio.Track
}

func NewRegistry() *Registry {
	r := &Registry{
		tracks: make(map[string]func(time.Duration) *audio.Track),
	}

	r.tracks["click"] = func(d time.Duration) *audio.Track {
		return audio.ClickTrack(86, d, audio.SampleRate)
	}
	r.tracks["silence"] = func(d time.Duration) *audio.Track {
		return audio.FromMono(make([]float64, int(d.Seconds()*audio.SampleRate)), audio.SampleRate)
	}

	return r
}

// Track loads name. "click@120" picks the click tempo; length bounds the
// synthetic tracks and is ignored for files.
func (r *Registry) Track(name string, length time.Duration) (*audio.Track, error) {
	if length <= 0 {
		length = defaultSynthLength
	}

	base, arg, hasArg := strings.Cut(name, "@")
	if base == "click" && hasArg {
		bpm, err := strconv.ParseFloat(arg, 64)
		if err != nil || bpm <= 0 {
			return nil, fmt.Errorf("invalid click tempo: %s", arg)
		}
		return audio.ClickTrack(bpm, length, audio.SampleRate), nil
	}

	if fn, ok := r.tracks[name]; ok {
		return fn(length), nil
	}

	tr, err := audio.DecodeFile(name)
	if err != nil {
		return nil, fmt.Errorf("load song %q: %w", name, err)
	}
	return tr, nil
}

func (r *Registry) ListTracks() []string {
	names := make([]string, 0, len(r.tracks))
	for name := range r.tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
