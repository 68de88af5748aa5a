// Package viz renders a session in the terminal.
//
// The grid history is drawn as coloured cubes through a perspective
// [Projector] onto a half-block true-colour [Canvas], next to a panel with
// the trigger state, the band energy and the spectrum. [Model] is the
// Bubble Tea program that drives the session once per frame.
//
// # Key Bindings
//
//	Space  - Pointer action (step or toggle playback)
//	Click  - Pointer action
//	S      - Step once
//	+/-    - Tempo up/down by 5 bpm
//	T      - Cycle color themes
//	?      - Show help overlay
//	Q      - Quit
package viz
