// Package gui is the windowed front end of a session, drawn with raylib.
package gui

import (
	"fmt"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/gridstep/internal/session"
)

const (
	screenWidth  = 1280
	screenHeight = 720
	fovY         = 60.0
	fontPath     = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"
	tempoStep    = 5.0
)

var (
	ColBg      = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(40, 40, 40, 255)
	ColTextDim = rl.NewColor(140, 140, 140, 255)
	ColAccent  = rl.NewColor(0, 136, 255, 255)
	ColFired   = rl.NewColor(255, 68, 68, 255)
)

type App struct {
	Session *session.Session
	Camera  rl.Camera3D
	Font    rl.Font
	Logger  *slog.Logger

	cube     float64
	state    session.FrameState
	lastErr  error
	showHelp bool
}

func initWindow(fps int) {
	rl.SetConfigFlags(rl.FlagMsaa4xHint | rl.FlagWindowResizable)
	rl.InitWindow(screenWidth, screenHeight, "gridstep")
	rl.SetTargetFPS(int32(fps))
	rl.SetExitKey(rl.KeyQ)
}

// loadFont falls back to the raylib default when the system font is missing.
func loadFont() rl.Font {
	if _, err := os.Stat(fontPath); err != nil {
		return rl.GetFontDefault()
	}
	font := rl.LoadFontEx(fontPath, 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

func NewApp(sess *session.Session, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Session: sess,
		Font:    loadFont(),
		Logger:  logger.With("component", "gui"),
		cube:    sess.Config().CubeSize,
	}
	a.Camera = rl.NewCamera3D(
		rl.NewVector3(0, 0, 1),
		rl.NewVector3(0, 0, 0),
		rl.NewVector3(0, 1, 0),
		fovY,
		rl.CameraPerspective,
	)
	a.syncCamera()
	return a
}

// Run opens the window, starts the session and blocks until the window
// is closed.
func Run(sess *session.Session, logger *slog.Logger) {
	initWindow(sess.Config().Render.FPS)
	defer rl.CloseWindow()

	app := NewApp(sess, logger)
	sess.Start()
	defer sess.Stop()
	app.RunLoop()
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		a.Update()
		a.Draw()
	}
}

func (a *App) syncCamera() {
	eye, center, up := a.Session.View()
	a.Camera.Position = toVector3(eye)
	a.Camera.Target = toVector3(center)
	a.Camera.Up = toVector3(up)
}

func (a *App) Update() {
	if rl.IsMouseButtonPressed(rl.MouseLeftButton) || rl.IsKeyPressed(rl.KeySpace) {
		a.Session.Pointer()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		a.Session.Step()
	}
	if rl.IsKeyPressed(rl.KeyUp) {
		a.adjustTempo(tempoStep)
	}
	if rl.IsKeyPressed(rl.KeyDown) {
		a.adjustTempo(-tempoStep)
	}
	if rl.IsKeyPressed(rl.KeySlash) {
		a.showHelp = !a.showHelp
	}

	a.state = a.Session.Frame()
	a.syncCamera()
}

func (a *App) adjustTempo(delta float64) {
	a.lastErr = a.Session.SetTempo(a.Session.BPM() + delta)
	if a.lastErr != nil {
		a.Logger.Warn("tempo change rejected", "error", a.lastErr)
	}
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(a.Camera)
	drawAxes()
	drawHistory(a.Session.Grids(), a.cube)
	rl.EndMode3D()

	a.DrawHUD()
	rl.EndDrawing()
}

func (a *App) DrawHUD() {
	a.drawText("gridstep", 30, 30, 24, ColText)
	a.drawText(fmt.Sprintf(":: %s", a.Session.Mode()), 150, 34, 16, ColTextDim)

	status, col := "PAUSED", ColTextDim
	if a.Session.Running() {
		status, col = "RUNNING", ColText
	}
	if a.state.Fired {
		status, col = "STEP", ColFired
	}
	a.drawText(status, 1150, 30, 16, col)

	a.drawText(fmt.Sprintf("steps %d", a.state.Steps), 30, 70, 16, ColText)
	if bpm := a.Session.BPM(); bpm > 0 {
		a.drawText(fmt.Sprintf("tempo %.0f bpm", bpm), 30, 92, 16, ColText)
	}
	if a.state.Analyzed {
		a.drawEnergy(30, 630, a.state.Energy)
		a.drawSpectrum(screenWidth-330, 600, 300, 60, a.state.Analysis.Spectrum)
	} else {
		a.drawText("NO AUDIO", 30, 650, 14, ColTextDim)
	}
	if a.lastErr != nil {
		a.drawText(a.lastErr.Error(), 30, 114, 14, ColFired)
	}

	a.drawText("[CLICK/SPACE] POINTER  [S] STEP  [UP/DOWN] TEMPO  [?] HELP  [Q] QUIT", 560, 690, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, 690, 14, ColTextDim)

	if a.showHelp {
		a.drawHelp()
	}
}

func (a *App) drawHelp() {
	rl.DrawRectangle(440, 220, 400, 200, rl.NewColor(255, 255, 255, 230))
	rl.DrawRectangleLines(440, 220, 400, 200, ColTextDim)
	lines := []string{
		"click / space   pointer action (" + a.Session.PointerMode() + ")",
		"s               step once",
		"up / down       tempo +5 / -5 bpm",
		"?               toggle help",
		"q / esc         quit",
	}
	for i, l := range lines {
		a.drawText(l, 460, 240+int32(i)*30, 16, ColText)
	}
}

func (a *App) drawText(text string, x, y int32, size float32, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), size, 1, color)
}
