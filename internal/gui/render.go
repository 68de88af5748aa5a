package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/gridstep/internal/camera"
	"github.com/san-kum/gridstep/internal/grid"
)

// worldScale maps scene units into raylib's default clip range.
const (
	worldScale = 0.01
	axisLength = 3000.0
	cubeGap    = 0.98
	maxLayers  = 200
)

var (
	axisX = rl.NewColor(255, 0, 0, 255)
	axisY = rl.NewColor(0, 255, 0, 255)
	axisZ = rl.NewColor(0, 0, 255, 255)
)

func toVector3(v camera.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v.X*worldScale), float32(v.Y*worldScale), float32(v.Z*worldScale))
}

func toColor(c grid.Color) rl.Color {
	return rl.NewColor(c.R, c.G, c.B, 255)
}

// cellCenter is the scene position of cell (i, j) in layer l.
func cellCenter(i, j, l int, cube float64) camera.Vec3 {
	return camera.V(float64(i)*cube, float64(j)*cube, float64(l)*cube)
}

// firstVisibleLayer bounds the number of layers drawn per frame.
func firstVisibleLayer(n int) int {
	if n > maxLayers {
		return n - maxLayers
	}
	return 0
}

func drawAxes() {
	rl.DrawLine3D(toVector3(camera.V(-axisLength, 0, 0)), toVector3(camera.V(axisLength, 0, 0)), axisX)
	rl.DrawLine3D(toVector3(camera.V(0, -axisLength, 0)), toVector3(camera.V(0, axisLength, 0)), axisY)
	rl.DrawLine3D(toVector3(camera.V(0, 0, -axisLength)), toVector3(camera.V(0, 0, axisLength)), axisZ)
}

func drawHistory(layers []*grid.Snapshot, cube float64) {
	side := float32(cube * worldScale * cubeGap)
	for l := firstVisibleLayer(len(layers)); l < len(layers); l++ {
		layer := layers[l]
		for i := 0; i < layer.Size(); i++ {
			for j := 0; j < layer.Size(); j++ {
				rl.DrawCube(toVector3(cellCenter(i, j, l, cube)), side, side, side, toColor(layer.At(i, j)))
			}
		}
	}
}

func (a *App) drawEnergy(x, y int32, energy float64) {
	const width = 200
	filled := int32(energy / 255 * width)
	rl.DrawRectangle(x, y, width, 12, rl.NewColor(230, 230, 230, 255))
	rl.DrawRectangle(x, y, filled, 12, ColAccent)
	a.drawText(fmt.Sprintf("energy %.0f", energy), x, y+18, 14, ColTextDim)
}

// drawSpectrum draws the spectrum as vertical bars, averaging bins into
// one bar per two pixels.
func (a *App) drawSpectrum(x, y, w, h int32, spectrum []float64) {
	bars := int(w / 2)
	if len(spectrum) == 0 || bars == 0 {
		return
	}
	per := len(spectrum) / bars
	if per < 1 {
		per = 1
	}
	for b := 0; b < bars && b*per < len(spectrum); b++ {
		sum := 0.0
		end := min(len(spectrum), (b+1)*per)
		for _, v := range spectrum[b*per : end] {
			sum += v
		}
		bh := int32(sum / float64(end-b*per) / 255 * float64(h))
		rl.DrawRectangle(x+int32(b)*2, y+h-bh, 1, bh, ColAccent)
	}
}
