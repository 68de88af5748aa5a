package analysis

import (
	"errors"
	"fmt"
	"math"
)

var ErrNoPitch = errors.New("analysis: no dominant pitch")

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a pitch snapped to the nearest equal-tempered semitone (A4 = 440Hz).
type Note struct {
	Name      string
	Octave    int
	Key       uint8 // MIDI key, A4 = 69
	Cents     float64
	Frequency float64
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// NoteFor snaps freq to a note. Frequencies outside the MIDI key range are
// clamped to keys 0 and 127.
func NoteFor(freq float64) (Note, error) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return Note{}, ErrNoPitch
	}
	semitones := 12 * math.Log2(freq/440.0)
	rounded := math.Round(semitones)

	key := 69 + int(rounded)
	if key < 0 {
		key = 0
	}
	if key > 127 {
		key = 127
	}

	return Note{
		Name:      noteNames[key%12],
		Octave:    key/12 - 1,
		Key:       uint8(key),
		Cents:     100 * (semitones - rounded),
		Frequency: freq,
	}, nil
}

// DominantFrequency returns the centre frequency of the loudest bin above
// minLevel, ignoring DC. Experimental: it is a coarse stand-in for a real
// pitch tracker and is unreliable on chords.
func DominantFrequency(f Frame, minLevel float64) (float64, error) {
	best, bestIdx := minLevel, -1
	for k := 1; k < len(f.Spectrum); k++ {
		if f.Spectrum[k] > best {
			best, bestIdx = f.Spectrum[k], k
		}
	}
	if bestIdx < 0 {
		return 0, ErrNoPitch
	}
	return f.BinFrequency(bestIdx), nil
}
