// Package grid holds the coloured layers that make up the visualizer's
// stacked cube field.
//
// A [Snapshot] is one gridSize×gridSize layer and is never modified after
// construction. A [History] is the ordered, append-only stack of layers; the
// insertion index of a snapshot is its depth along the camera's travel axis.
package grid

import (
	"fmt"
	"math/rand"
	"time"
)

// Color is an RGB triple with 8-bit channels.
type Color struct {
	R, G, B uint8
}

func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Normalized returns the channels scaled to [0,1], as shader uniforms expect.
func (c Color) Normalized() [3]float64 {
	return [3]float64{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255}
}

type Snapshot struct {
	size  int
	cells []Color
}

// NewSnapshot copies cells (row-major, size*size long) into a new snapshot.
func NewSnapshot(size int, cells []Color) (*Snapshot, error) {
	if size <= 0 {
		return nil, fmt.Errorf("grid: size must be positive, got %d", size)
	}
	if len(cells) != size*size {
		return nil, fmt.Errorf("grid: expected %d cells, got %d", size*size, len(cells))
	}
	c := make([]Color, len(cells))
	copy(c, cells)
	return &Snapshot{size: size, cells: c}, nil
}

func (s *Snapshot) Size() int { return s.size }

// At returns the colour at column i, row j.
func (s *Snapshot) At(i, j int) Color {
	return s.cells[i*s.size+j]
}

// Cells returns a copy of the row-major cell slice.
func (s *Snapshot) Cells() []Color {
	c := make([]Color, len(s.cells))
	copy(c, s.cells)
	return c
}

type History struct {
	snaps []*Snapshot
}

func NewHistory() *History {
	return &History{snaps: make([]*Snapshot, 0, 64)}
}

func (h *History) Append(s *Snapshot) { h.snaps = append(h.snaps, s) }
func (h *History) Len() int           { return len(h.snaps) }

// All returns the layers in insertion order. The returned slice is a copy.
func (h *History) All() []*Snapshot {
	out := make([]*Snapshot, len(h.snaps))
	copy(out, h.snaps)
	return out
}

func (h *History) Last() *Snapshot {
	if len(h.snaps) == 0 {
		return nil
	}
	return h.snaps[len(h.snaps)-1]
}

// Generator draws every cell independently and uniformly from {0..255}^3.
// Spectral data is not an input.
type Generator struct {
	size int
	rng  *rand.Rand
}

// NewGenerator returns a generator for size×size layers. A zero seed is
// replaced by the current time.
func NewGenerator(size int, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{size: size, rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Size() int { return g.size }

func (g *Generator) Next() *Snapshot {
	cells := make([]Color, g.size*g.size)
	for i := range cells {
		cells[i] = Color{
			R: uint8(g.rng.Intn(256)),
			G: uint8(g.rng.Intn(256)),
			B: uint8(g.rng.Intn(256)),
		}
	}
	return &Snapshot{size: g.size, cells: cells}
}
