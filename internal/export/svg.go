package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/gridstep/internal/grid"
)

const layerGap = 1

// HistoryToSVG lays every layer out left to right, oldest first, one cell
// pixels wide per grid cell. Row i of a layer is drawn as column i so the
// sheet reads the same way the cubes are placed along x.
func HistoryToSVG(layers []*grid.Snapshot, cell float64) string {
	if len(layers) == 0 || cell <= 0 {
		return ""
	}

	size := layers[0].Size()
	layerW := float64(size) * cell
	width := float64(len(layers))*(layerW+layerGap*cell) - layerGap*cell
	height := layerW

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for l, layer := range layers {
		offset := float64(l) * (layerW + layerGap*cell)
		sb.WriteString(fmt.Sprintf("<g id=\"layer-%d\">\n", l))
		for i := 0; i < layer.Size(); i++ {
			for j := 0; j < layer.Size(); j++ {
				sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>
`, offset+float64(i)*cell, float64(j)*cell, cell, cell, layer.At(i, j).Hex()))
			}
		}
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// Point is one sample of a plotted series.
type Point struct{ X, Y float64 }

// SeriesToSVG plots a line, such as band energy over time, with step
// markers drawn as vertical ticks at the given x positions.
func SeriesToSVG(points []Point, markers []float64, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeY = maxY - minY

	sx := func(x float64) float64 { return (x - minX) / rangeX * float64(width) }

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for _, m := range markers {
		if m < minX || m > maxX {
			continue
		}
		x := sx(m)
		sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="0" x2="%.1f" y2="%d" stroke="#444444" stroke-width="1"/>
`, x, x, height))
	}

	sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor))
	for i, p := range points {
		x := sx(p.X)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
