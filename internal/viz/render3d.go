package viz

import (
	"math"

	"github.com/san-kum/gridstep/internal/camera"
	"github.com/san-kum/gridstep/internal/grid"
)

const (
	defaultFOV  = math.Pi / 3
	nearPlane   = 1.0
	axisLength  = 3000.0
	axisSegs    = 60
	maxLayers   = 48
	minCubeSize = 1
)

var (
	axisX = grid.Color{R: 255}
	axisY = grid.Color{G: 255}
	axisZ = grid.Color{B: 255}
)

// Projector is a perspective look-at camera.
type Projector struct {
	Eye, Center, Up camera.Vec3
	FOV             float64

	fwd, right, up camera.Vec3
}

func NewProjector(eye, center, up camera.Vec3) *Projector {
	p := &Projector{FOV: defaultFOV}
	p.LookAt(eye, center, up)
	return p
}

// LookAt rebuilds the camera basis.
func (p *Projector) LookAt(eye, center, up camera.Vec3) {
	p.Eye, p.Center, p.Up = eye, center, up
	p.fwd = center.Sub(eye).Normalize()
	p.right = p.fwd.Cross(up).Normalize()
	p.up = p.right.Cross(p.fwd)
}

// Project maps a world point onto a w x h pixel screen. depth is the
// distance along the view direction; ok is false behind the near plane.
func (p *Projector) Project(pt camera.Vec3, w, h int) (x, y int, depth float64, ok bool) {
	d := pt.Sub(p.Eye)
	z := d.Dot(p.fwd)
	if z < nearPlane {
		return 0, 0, z, false
	}
	focal := p.focal(h)
	sx := float64(w)/2 + d.Dot(p.right)/z*focal
	sy := float64(h)/2 - d.Dot(p.up)/z*focal
	return int(math.Round(sx)), int(math.Round(sy)), z, true
}

func (p *Projector) focal(h int) float64 {
	return float64(h) / 2 / math.Tan(p.FOV/2)
}

// ScreenSize is how many pixels a world length spans at depth.
func (p *Projector) ScreenSize(length, depth float64, h int) int {
	if depth <= 0 {
		return 0
	}
	return int(math.Ceil(length / depth * p.focal(h)))
}

// RenderHistory draws the axes and every layer as a sheet of coloured
// cubes: cell (i, j) of layer l sits at (i, j, l) * cube. Only the most
// recent layers are drawn.
func RenderHistory(c *Canvas, p *Projector, layers []*grid.Snapshot, cube float64) {
	if c == nil || p == nil {
		return
	}
	w, h := c.PixelSize()

	drawAxis(c, p, camera.V(-axisLength, 0, 0), camera.V(axisLength, 0, 0), axisX, w, h)
	drawAxis(c, p, camera.V(0, -axisLength, 0), camera.V(0, axisLength, 0), axisY, w, h)
	drawAxis(c, p, camera.V(0, 0, -axisLength), camera.V(0, 0, axisLength), axisZ, w, h)

	first := 0
	if len(layers) > maxLayers {
		first = len(layers) - maxLayers
	}
	for l := first; l < len(layers); l++ {
		layer := layers[l]
		for i := 0; i < layer.Size(); i++ {
			for j := 0; j < layer.Size(); j++ {
				centre := camera.V(float64(i)*cube, float64(j)*cube, float64(l)*cube)
				x, y, depth, ok := p.Project(centre, w, h)
				if !ok {
					continue
				}
				size := p.ScreenSize(cube, depth, h)
				if size < minCubeSize {
					size = minCubeSize
				}
				c.FillRect(x, y, size, size, layer.At(i, j), depth)
			}
		}
	}
}

// drawAxis splits the axis into short segments so parts behind the
// camera can be dropped without clipping.
func drawAxis(c *Canvas, p *Projector, from, to camera.Vec3, col grid.Color, w, h int) {
	for s := 0; s < axisSegs; s++ {
		a := from.Lerp(to, float64(s)/axisSegs)
		b := from.Lerp(to, float64(s+1)/axisSegs)
		x0, y0, d0, ok0 := p.Project(a, w, h)
		x1, y1, d1, ok1 := p.Project(b, w, h)
		if !ok0 || !ok1 {
			continue
		}
		if absInt(x1-x0) > 4*w || absInt(y1-y0) > 4*h {
			continue
		}
		c.DrawLine(x0, y0, x1, y1, col, d0, d1)
	}
}
