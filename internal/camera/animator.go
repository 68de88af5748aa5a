package camera

import (
	"fmt"
	"time"
)

// StepDuration is the length of one camera advance.
const StepDuration = 500 * time.Millisecond

// Reentry decides what BeginStep does while an advance is still in flight.
type Reentry int

const (
	// ReentryExtend restarts from the current position toward the previous
	// target plus the new distance, so no displacement is dropped.
	ReentryExtend Reentry = iota
	// ReentryRestart starts a fresh advance of one distance from wherever the
	// camera is now.
	ReentryRestart
	// ReentryIgnore rejects the new step.
	ReentryIgnore
)

func ParseReentry(s string) (Reentry, error) {
	switch s {
	case "extend", "":
		return ReentryExtend, nil
	case "restart":
		return ReentryRestart, nil
	case "ignore":
		return ReentryIgnore, nil
	}
	return ReentryExtend, fmt.Errorf("camera: unknown reentry policy %q", s)
}

func (r Reentry) String() string {
	switch r {
	case ReentryExtend:
		return "extend"
	case ReentryRestart:
		return "restart"
	case ReentryIgnore:
		return "ignore"
	}
	return fmt.Sprintf("Reentry(%d)", int(r))
}

type animation struct {
	start, target Vec3
	began         time.Time
	duration      time.Duration
}

func (a *animation) progress(now time.Time) float64 {
	p := float64(now.Sub(a.began)) / float64(a.duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Animator moves the camera eye along one axis, one step at a time. It owns
// no scheduling loop; the host calls Tick once per frame.
type Animator struct {
	pos    Vec3
	axis   Axis
	policy Reentry
	anim   *animation
}

func NewAnimator(pos Vec3, axis Axis, policy Reentry) *Animator {
	return &Animator{pos: pos, axis: axis, policy: policy}
}

func (a *Animator) Position() Vec3  { return a.pos }
func (a *Animator) Animating() bool { return a.anim != nil }
func (a *Animator) Axis() Axis      { return a.axis }

// Target is where the camera will rest once the pending advance completes.
func (a *Animator) Target() Vec3 {
	if a.anim == nil {
		return a.pos
	}
	return a.anim.target
}

// BeginStep starts an advance of distance along the axis at time now. It
// reports whether a new animation was started.
func (a *Animator) BeginStep(distance float64, now time.Time) bool {
	delta := a.axis.Unit().Scale(distance)

	if a.anim != nil {
		switch a.policy {
		case ReentryIgnore:
			return false
		case ReentryExtend:
			a.Tick(now)
			if a.anim != nil {
				a.anim = &animation{
					start:    a.pos,
					target:   a.anim.target.Add(delta),
					began:    now,
					duration: StepDuration,
				}
				return true
			}
		case ReentryRestart:
			a.Tick(now)
		}
	}

	a.anim = &animation{
		start:    a.pos,
		target:   a.pos.Add(delta),
		began:    now,
		duration: StepDuration,
	}
	return true
}

// Tick interpolates the position for time now. done is true exactly once,
// on the tick where progress reaches 1.
func (a *Animator) Tick(now time.Time) (pos Vec3, done bool) {
	if a.anim == nil {
		return a.pos, false
	}
	p := a.anim.progress(now)
	if p >= 1 {
		a.pos = a.anim.target
		a.anim = nil
		return a.pos, true
	}
	a.pos = a.anim.start.Lerp(a.anim.target, p)
	return a.pos, false
}
