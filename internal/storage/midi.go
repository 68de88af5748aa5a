package storage

import (
	"io"
	"math"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/san-kum/gridstep/internal/analysis"
	"github.com/san-kum/gridstep/internal/session"
)

const (
	midiResolution = 480
	stepKey        = 60 // middle C
	stepVelocity   = 100
)

// TimedNote is a detected note at an offset into the song.
type TimedNote struct {
	At       time.Duration
	Length   time.Duration
	Note     analysis.Note
	Velocity uint8
}

type midiEvent struct {
	at  time.Duration
	msg midi.Message
}

// WriteMIDI renders every step as a short middle C so the step timing can
// be inspected in a sequencer.
func WriteMIDI(w io.Writer, steps []session.StepEvent, bpm float64) error {
	events := make([]midiEvent, 0, 2*len(steps))
	for _, ev := range steps {
		events = append(events,
			midiEvent{ev.At, midi.NoteOn(0, stepKey, stepVelocity)},
			midiEvent{ev.At + 100*time.Millisecond, midi.NoteOff(0, stepKey)},
		)
	}
	return writeSMF(w, events, bpm)
}

// WriteNotesMIDI renders detected notes on their own keys.
func WriteNotesMIDI(w io.Writer, notes []TimedNote, bpm float64) error {
	events := make([]midiEvent, 0, 2*len(notes))
	for _, n := range notes {
		vel := n.Velocity
		if vel == 0 {
			vel = stepVelocity
		}
		length := n.Length
		if length <= 0 {
			length = 100 * time.Millisecond
		}
		events = append(events,
			midiEvent{n.At, midi.NoteOn(0, n.Note.Key, vel)},
			midiEvent{n.At + length, midi.NoteOff(0, n.Note.Key)},
		)
	}
	return writeSMF(w, events, bpm)
}

func writeSMF(w io.Writer, events []midiEvent, bpm float64) error {
	if bpm <= 0 {
		bpm = 120
	}
	sortEvents(events)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(bpm))
	last := uint32(0)
	for _, ev := range events {
		tick := ticksAt(ev.at, bpm)
		tr.Add(tick-last, ev.msg)
		last = tick
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(midiResolution)
	if err := s.Add(tr); err != nil {
		return err
	}
	_, err := s.WriteTo(w)
	return err
}

func ticksAt(d time.Duration, bpm float64) uint32 {
	beats := d.Seconds() * bpm / 60
	return uint32(math.Round(beats * midiResolution))
}

// sortEvents orders by time, note-offs first on ties so retriggered keys
// are released before they sound again.
func sortEvents(events []midiEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at != events[j].at {
			return events[i].at < events[j].at
		}
		return isNoteOff(events[i].msg) && !isNoteOff(events[j].msg)
	})
}

func isNoteOff(m midi.Message) bool {
	var ch, key, vel uint8
	if m.GetNoteEnd(&ch, &key) {
		return true
	}
	return m.GetNoteOn(&ch, &key, &vel) && vel == 0
}
