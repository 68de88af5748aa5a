package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/gridstep/internal/grid"
)

var (
	spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	sparkLevels   = []rune("▁▂▃▄▅▆▇█")
)

// panelStyles is the side panel rendered in one theme. It is rebuilt
// whenever the theme changes.
type panelStyles struct {
	theme Theme

	panel   lipgloss.Style
	label   lipgloss.Style
	value   lipgloss.Style
	muted   lipgloss.Style
	graph   lipgloss.Style
	help    lipgloss.Style
	errText lipgloss.Style

	running lipgloss.Style
	paused  lipgloss.Style
	fired   lipgloss.Style

	high, mid, low lipgloss.Style
}

func newPanelStyles(t Theme) panelStyles {
	fg := func(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }
	return panelStyles{
		theme: t,
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(1, 2).
			Width(panelWidth),
		label:   fg(t.Muted).Width(12),
		value:   fg(t.Text),
		muted:   fg(t.Muted).Italic(true),
		graph:   fg(t.Secondary).Padding(1, 0),
		help:    fg(t.Muted).MarginTop(1),
		errText: fg(t.Warning).Bold(true),
		running: fg(t.Success).Bold(true),
		paused:  fg(t.Warning).Bold(true),
		fired:   fg(t.Accent).Bold(true).Reverse(true),
		high:    fg(t.Accent),
		mid:     fg(t.Secondary),
		low:     fg(t.Primary),
	}
}

// title blends the theme's primary colour into its secondary across text.
func (p panelStyles) title(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return ""
	}
	from, to := toColorful(p.theme.Primary), toColorful(p.theme.Secondary)

	var b strings.Builder
	for i, r := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		c := lipgloss.Color(from.BlendLab(to, t).Clamped().Hex())
		b.WriteString(lipgloss.NewStyle().Foreground(c).Bold(true).Render(string(r)))
	}
	return b.String()
}

// spinner is shown while the analyzer waits for a full window.
func (p panelStyles) spinner(frame int) string {
	return p.muted.Render(spinnerFrames[frame%len(spinnerFrames)])
}

// level picks the spark style for a 0..1 value.
func (p panelStyles) level(v float64) lipgloss.Style {
	switch {
	case v > 0.7:
		return p.high
	case v > 0.3:
		return p.mid
	}
	return p.low
}

// meter renders frac of width as a filled bar.
func (p panelStyles) meter(frac float64, width int) string {
	frac = clamp01(frac)
	filled := int(frac * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return p.level(frac).Render(bar)
}

// sparkline maps byte-scaled values (0..255) onto width block characters,
// keeping the maximum of every bucket so narrow peaks survive.
func (p panelStyles) sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return p.muted.Render(strings.Repeat("─", width))
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		lo := i * len(values) / width
		hi := (i + 1) * len(values) / width
		if hi <= lo {
			hi = lo + 1
		}
		if lo >= len(values) {
			break
		}
		peak := 0.0
		for _, v := range values[lo:min(hi, len(values))] {
			peak = max(peak, v)
		}
		norm := clamp01(peak / 255)
		b.WriteString(p.level(norm).Render(string(sparkLevels[int(norm*float64(len(sparkLevels)-1))])))
	}
	return b.String()
}

func (p panelStyles) separator(width int) string {
	side := max(width/2-2, 0)
	return p.muted.Render(strings.Repeat("─", side) + " ◆ " + strings.Repeat("─", side))
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// toColorful parses a "#rrggbb" lipgloss colour, falling back to white.
func toColorful(c lipgloss.Color) colorful.Color {
	col, err := colorful.Hex(string(c))
	if err != nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	return col
}

func toGridColor(c lipgloss.Color) grid.Color {
	r, g, b := toColorful(c).RGB255()
	return grid.Color{R: r, G: g, B: b}
}
