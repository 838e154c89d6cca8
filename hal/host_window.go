//go:build !tinygo && cgo

package hal

import (
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// RunWindow opens a desktop window whose frame loop is the timer: each frame
// steps t once, at cfg.Hz frames per second. status is drawn as text every
// frame. Space pauses the clock, period single-steps it while paused.
// It blocks until the window closes or done is closed.
func RunWindow(cfg WindowConfig, t *StepTimer, status func() []string, done <-chan struct{}) error {
	cfg.fill()
	g := &monitor{cfg: cfg, timer: t, status: status, done: done}
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(cfg.Width*cfg.Scale, cfg.Height*cfg.Scale)
	ebiten.SetTPS(cfg.Hz)
	err := ebiten.RunGame(g)
	if err == ebiten.Termination {
		return nil
	}
	return err
}

type monitor struct {
	cfg    WindowConfig
	timer  *StepTimer
	status func() []string
	done   <-chan struct{}
	paused bool
}

func (g *monitor) Update() error {
	select {
	case <-g.done:
		return ebiten.Termination
	default:
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if !g.paused || inpututil.IsKeyJustPressed(ebiten.KeyPeriod) {
		g.timer.Step(1)
	}
	return nil
}

var monitorBackground = color.RGBA{R: 0x10, G: 0x12, B: 0x18, A: 0xFF}

func (g *monitor) Draw(screen *ebiten.Image) {
	screen.Fill(monitorBackground)
	if g.status == nil {
		return
	}
	lines := g.status()
	if g.paused {
		lines = append([]string{"[paused]"}, lines...)
	}
	ebitenutil.DebugPrint(screen, strings.Join(lines, "\n"))
}

func (g *monitor) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Width, g.cfg.Height
}
