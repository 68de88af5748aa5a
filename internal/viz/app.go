package viz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gridstep/internal/session"
)

const (
	defaultWidth    = 80
	defaultHeight   = 24
	panelWidth      = 45
	minCanvasWidth  = 20
	minCanvasHeight = 8
	historyCapacity = 240
	tempoStep       = 5.0
	spectrumWidth   = 30
)

const helpOverlay = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pointer action           ║
║  Click    - Pointer action           ║
║  S        - Step once                ║
║  + / -    - Tempo +5 / -5 bpm        ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║  Q        - Quit                     ║
╚══════════════════════════════════════╝
`

type TickMsg time.Time

// Model is the terminal front end of a session.
type Model struct {
	sess      *session.Session
	canvas    *Canvas
	projector *Projector
	theme     Theme
	styles    panelStyles
	fps       int

	width, height int
	frame         int
	state         session.FrameState
	energy        []float64
	lastErr       error
	showHelp      bool
}

func NewModel(sess *session.Session) Model {
	cfg := sess.Config()
	fps := cfg.Render.FPS
	if fps <= 0 {
		fps = 60
	}
	m := Model{
		sess:      sess,
		projector: NewProjector(sess.View()),
		theme:     GetTheme(cfg.Render.Theme),
		styles:    newPanelStyles(GetTheme(cfg.Render.Theme)),
		fps:       fps,
		energy:    make([]float64, 0, historyCapacity),
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.sess.Stop()
			return m, tea.Quit
		case " ":
			m.sess.Pointer()
		case "s":
			m.sess.Step()
		case "+", "=":
			m.adjustTempo(tempoStep)
		case "-", "_":
			m.adjustTempo(-tempoStep)
		case "t":
			m.theme = NextTheme(m.theme.Name)
			m.styles = newPanelStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.sess.Pointer()
		}
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case TickMsg:
		m.advance()
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) adjustTempo(delta float64) {
	bpm := m.sess.BPM() + delta
	if err := m.sess.SetTempo(bpm); err != nil {
		m.lastErr = err
		return
	}
	m.lastErr = nil
}

// advance runs one session frame and records the band energy.
func (m *Model) advance() {
	m.frame++
	m.state = m.sess.Frame()
	if !m.state.Analyzed {
		return
	}
	m.energy = append(m.energy, m.state.Energy)
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	cw := w - panelWidth - 4
	if cw < minCanvasWidth {
		cw = minCanvasWidth
	}
	ch := h - 2
	if ch < minCanvasHeight {
		ch = minCanvasHeight
	}
	m.canvas = NewCanvas(cw, ch)
}

func (m Model) draw() string {
	m.canvas.Clear()
	m.canvas.Background = m.theme.Backdrop()
	m.projector.LookAt(m.sess.View())
	RenderHistory(m.canvas, m.projector, m.sess.Grids(), m.sess.Config().CubeSize)
	return m.canvas.String()
}

func (m Model) View() string {
	canvasView := m.draw()

	st := m.styles
	row := func(label, value string) string {
		return st.label.Render(label) + value + "\n"
	}

	var s strings.Builder
	s.WriteString(st.title("GRIDSTEP") + "\n\n")

	status := st.paused.Render("PAUSED")
	if m.sess.Running() {
		status = st.running.Render("RUNNING")
	}
	if m.state.Fired {
		status += " " + st.fired.Render("STEP")
	}
	s.WriteString(status + "\n\n")

	s.WriteString(row("Mode", st.value.Render(m.sess.Mode())))
	s.WriteString(row("Pointer", st.value.Render(m.sess.PointerMode())))
	if bpm := m.sess.BPM(); bpm > 0 {
		s.WriteString(row("Tempo", st.value.Render(fmt.Sprintf("%.0f bpm", bpm))))
	}
	s.WriteString(row("Steps", st.value.Render(fmt.Sprintf("%d", m.state.Steps))))
	s.WriteString(row("Camera", st.value.Render(m.state.Camera.String())))
	s.WriteString(row("Theme", st.value.Render(m.theme.Name)))

	s.WriteString("\n" + st.separator(panelWidth-6) + "\n")
	if !m.state.Analyzed {
		s.WriteString(row("Energy", st.spinner(m.frame)+st.muted.Render(" waiting for audio")))
	} else {
		s.WriteString(row("Energy", st.meter(m.state.Energy/255, 20)+st.value.Render(fmt.Sprintf(" %.0f", m.state.Energy))))
		s.WriteString(row("Spectrum", st.sparkline(m.state.Analysis.Spectrum, spectrumWidth)))
	}
	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy,
			asciigraph.Height(4),
			asciigraph.Width(30),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(255),
			asciigraph.Caption("Band energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	if m.lastErr != nil {
		msg := m.lastErr.Error()
		if errors.Is(m.lastErr, session.ErrWrongMode) {
			msg = "tempo keys need tempo mode"
		}
		s.WriteString(st.errText.Render(msg) + "\n")
	}

	s.WriteString(st.help.Render("SP:Pointer S:Step +/-:Tempo\nT:Theme ?:Help Q:Quit"))
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.panel.Render(s.String()))
	if m.showHelp {
		return helpOverlay + "\n" + mainView
	}
	return mainView
}

// Run starts the session and blocks until the user quits.
func Run(sess *session.Session) error {
	sess.Start()
	defer sess.Stop()

	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
