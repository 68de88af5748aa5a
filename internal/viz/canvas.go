package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/gridstep/internal/grid"
)

// Each terminal cell holds two vertically stacked pixels drawn with the
// upper half block: the top pixel is the foreground, the bottom one the
// background. Pixel coordinates are therefore (Width) x (Height*2).
const halfBlock = "▀"

type pixel struct {
	color grid.Color
	depth float64
	set   bool
}

// Canvas is a depth-buffered true-colour pixel grid.
type Canvas struct {
	Width, Height int
	Background    grid.Color
	pix           [][]pixel
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h}
	c.pix = make([][]pixel, h*2)
	for i := range c.pix {
		c.pix[i] = make([]pixel, w)
	}
	return c
}

// PixelSize is the canvas size in pixels.
func (c *Canvas) PixelSize() (int, int) { return c.Width, c.Height * 2 }

// Set paints (x, y) unless something nearer is already there.
func (c *Canvas) Set(x, y int, col grid.Color, depth float64) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height*2 {
		return
	}
	p := &c.pix[y][x]
	if p.set && p.depth <= depth {
		return
	}
	*p = pixel{color: col, depth: depth, set: true}
}

// At reports the colour at (x, y) and whether anything was drawn there.
func (c *Canvas) At(x, y int) (grid.Color, bool) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height*2 {
		return grid.Color{}, false
	}
	p := c.pix[y][x]
	return p.color, p.set
}

// FillRect paints a w x h block centred on (cx, cy) at one depth.
func (c *Canvas) FillRect(cx, cy, w, h int, col grid.Color, depth float64) {
	x0, y0 := cx-w/2, cy-h/2
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			c.Set(x, y, col, depth)
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm, interpolating depth.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, col grid.Color, d0, d1 float64) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	total := math.Max(float64(dx), float64(dy))
	n := 0.0

	for {
		depth := d0
		if total > 0 {
			depth = d0 + (d1-d0)*n/total
		}
		c.Set(x0, y0, col, depth)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
		n++
	}
}

func (c *Canvas) Clear() {
	for y := range c.pix {
		for x := range c.pix[y] {
			c.pix[y][x] = pixel{}
		}
	}
}

func (c *Canvas) colorAt(x, y int) lipgloss.Color {
	if p := c.pix[y][x]; p.set {
		return lipgloss.Color(p.color.Hex())
	}
	return lipgloss.Color(c.Background.Hex())
}

func (c *Canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.Height; row++ {
		for x := 0; x < c.Width; x++ {
			style := lipgloss.NewStyle().
				Foreground(c.colorAt(x, 2*row)).
				Background(c.colorAt(x, 2*row+1))
			b.WriteString(style.Render(halfBlock))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
