package metrics

import (
	"math"

	"github.com/san-kum/gridstep/internal/session"
)

// Metric accumulates a statistic over the steps of a run.
type Metric interface {
	Name() string
	Observe(ev session.StepEvent)
	Value() float64
	Reset()
}

// Defaults is the set stored with every offline run.
func Defaults() []Metric {
	return []Metric{
		NewStepCount(),
		NewStepRate(),
		NewMeanInterval(),
		NewJitter(),
		NewTravel(),
	}
}

// Collect reads every metric into a map keyed by name.
func Collect(ms []Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}

// ObserveAll feeds a whole run through ms.
func ObserveAll(ms []Metric, steps []session.StepEvent) {
	for _, ev := range steps {
		for _, m := range ms {
			m.Observe(ev)
		}
	}
}

type StepCount struct {
	n int
}

func NewStepCount() *StepCount { return &StepCount{} }

func (c *StepCount) Name() string                 { return "steps" }
func (c *StepCount) Observe(ev session.StepEvent) { c.n++ }
func (c *StepCount) Value() float64               { return float64(c.n) }
func (c *StepCount) Reset()                       { c.n = 0 }

// StepRate is steps per minute between the first and the last step.
type StepRate struct {
	first, last float64
	n           int
}

func NewStepRate() *StepRate { return &StepRate{} }

func (r *StepRate) Name() string { return "steps_per_min" }

func (r *StepRate) Observe(ev session.StepEvent) {
	t := ev.At.Seconds()
	if r.n == 0 {
		r.first = t
	}
	r.last = t
	r.n++
}

func (r *StepRate) Value() float64 {
	span := r.last - r.first
	if r.n < 2 || span <= 0 {
		return 0
	}
	return float64(r.n-1) / span * 60
}

func (r *StepRate) Reset() { *r = StepRate{} }

// intervals tracks the gaps between consecutive steps in milliseconds.
type intervals struct {
	prev float64
	seen bool
	n    int
	mean float64
	m2   float64
}

func (iv *intervals) observe(ev session.StepEvent) {
	t := float64(ev.At.Microseconds()) / 1000
	if iv.seen {
		// Welford
		d := t - iv.prev
		iv.n++
		delta := d - iv.mean
		iv.mean += delta / float64(iv.n)
		iv.m2 += delta * (d - iv.mean)
	}
	iv.prev = t
	iv.seen = true
}

type MeanInterval struct {
	iv intervals
}

func NewMeanInterval() *MeanInterval { return &MeanInterval{} }

func (m *MeanInterval) Name() string                 { return "mean_interval_ms" }
func (m *MeanInterval) Observe(ev session.StepEvent) { m.iv.observe(ev) }
func (m *MeanInterval) Value() float64               { return m.iv.mean }
func (m *MeanInterval) Reset()                       { m.iv = intervals{} }

// Jitter is the standard deviation of the step interval in milliseconds. A
// perfectly steady tempo has zero jitter.
type Jitter struct {
	iv intervals
}

func NewJitter() *Jitter { return &Jitter{} }

func (j *Jitter) Name() string                 { return "jitter_ms" }
func (j *Jitter) Observe(ev session.StepEvent) { j.iv.observe(ev) }

func (j *Jitter) Value() float64 {
	if j.iv.n < 2 {
		return 0
	}
	return math.Sqrt(j.iv.m2 / float64(j.iv.n))
}

func (j *Jitter) Reset() { j.iv = intervals{} }

// Travel is the camera distance covered between the first and last step.
type Travel struct {
	first, last session.StepEvent
	seen        bool
}

func NewTravel() *Travel { return &Travel{} }

func (t *Travel) Name() string { return "camera_travel" }

func (t *Travel) Observe(ev session.StepEvent) {
	if !t.seen {
		t.first = ev
		t.seen = true
	}
	t.last = ev
}

func (t *Travel) Value() float64 {
	if !t.seen {
		return 0
	}
	return t.last.Camera.Sub(t.first.Camera).Length()
}

func (t *Travel) Reset() { *t = Travel{} }
