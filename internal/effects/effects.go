// Package effects renders procedural frames into the channel buffer when no
// network source owns it. Channels are treated as consecutive RGB pixels.
package effects

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"
)

var ErrUnknownEffect = errors.New("unknown effect")

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// Params tune an effect.
type Params struct {
	Color      Color
	Brightness float64 // 0..1
	Speed      int     // 1..10
	Reverse    bool
	Mirror     bool
	AllLeds    bool
}

// Effect renders one frame for the given step.
type Effect interface {
	Name() string
	Render(buf []byte, p Params, step uint32)
}

// Engine holds the running effect and advances it on each frame.
type Engine struct {
	registry map[string]Effect
	current  Effect
	params   Params
	start    time.Time
}

// NewEngine returns an engine with the built-in effects registered.
func NewEngine() *Engine {
	e := &Engine{registry: map[string]Effect{}}
	for _, eff := range []Effect{solid{}, blink{}, flash{}, chase{}, rainbow{}, breathe{}} {
		e.Register(eff)
	}
	return e
}

// Register adds or replaces an effect. Names are case-insensitive.
func (e *Engine) Register(eff Effect) {
	e.registry[strings.ToLower(eff.Name())] = eff
}

// Names lists the registered effects.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.registry))
	for _, eff := range e.registry {
		names = append(names, eff.Name())
	}
	sort.Strings(names)
	return names
}

// Set starts an effect. Step counting restarts at now.
func (e *Engine) Set(name string, p Params, now time.Time) error {
	eff, ok := e.registry[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	e.current = eff
	e.params = p
	e.start = now
	return nil
}

// Clear stops the running effect; later frames are dark.
func (e *Engine) Clear() {
	e.current = nil
}

// Current returns the running effect name, empty when none.
func (e *Engine) Current() (string, Params) {
	if e.current == nil {
		return "", e.params
	}
	return e.current.Name(), e.params
}

// ProduceFrame renders the running effect into buf.
func (e *Engine) ProduceFrame(buf []byte, now time.Time) {
	if e.current == nil {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	e.current.Render(buf, e.params, e.step(now))
}

func (e *Engine) step(now time.Time) uint32 {
	elapsed := now.Sub(e.start)
	if elapsed < 0 {
		return 0
	}
	return uint32(elapsed / stepInterval(e.params.Speed))
}

// stepInterval maps speed 1..10 to 500ms..50ms.
func stepInterval(speed int) time.Duration {
	if speed < 1 {
		speed = 1
	}
	if speed > 10 {
		speed = 10
	}
	return time.Duration(500/speed) * time.Millisecond
}

func scale(c Color, brightness float64) Color {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 1 {
		brightness = 1
	}
	return Color{
		R: uint8(float64(c.R)*brightness + 0.5),
		G: uint8(float64(c.G)*brightness + 0.5),
		B: uint8(float64(c.B)*brightness + 0.5),
	}
}

func setPixel(buf []byte, i int, c Color) {
	rgb := [3]uint8{c.R, c.G, c.B}
	// the last pixel may be cut short by the channel count
	for j, o := 0, i*3; j < 3 && o+j < len(buf); j++ {
		buf[o+j] = rgb[j]
	}
}

func pixels(buf []byte) int {
	return (len(buf) + 2) / 3
}

func fill(buf []byte, c Color) {
	for i := 0; i < pixels(buf); i++ {
		setPixel(buf, i, c)
	}
}

// wheel returns a fully saturated color for pos 0..255.
func wheel(pos uint8) Color {
	switch {
	case pos < 85:
		return Color{R: 255 - pos*3, G: pos * 3, B: 0}
	case pos < 170:
		pos -= 85
		return Color{R: 0, G: 255 - pos*3, B: pos * 3}
	default:
		pos -= 170
		return Color{R: pos * 3, G: 0, B: 255 - pos*3}
	}
}

type solid struct{}

func (solid) Name() string { return "Solid" }

func (solid) Render(buf []byte, p Params, _ uint32) {
	fill(buf, scale(p.Color, p.Brightness))
}

type blink struct{}

func (blink) Name() string { return "Blink" }

func (blink) Render(buf []byte, p Params, step uint32) {
	if step%2 == 0 {
		fill(buf, scale(p.Color, p.Brightness))
		return
	}
	fill(buf, Color{})
}

type flash struct{}

func (flash) Name() string { return "Flash" }

// Render picks a random color per step, off on odd steps.
func (flash) Render(buf []byte, p Params, step uint32) {
	if step%2 == 1 {
		fill(buf, Color{})
		return
	}
	r := rand.New(rand.NewSource(int64(step)))
	fill(buf, scale(wheel(uint8(r.Intn(256))), p.Brightness))
}

type chase struct{}

func (chase) Name() string { return "Chase" }

func (chase) Render(buf []byte, p Params, step uint32) {
	n := pixels(buf)
	if n == 0 {
		return
	}
	fill(buf, Color{})
	pos := int(step % uint32(n))
	if p.Mirror {
		pos = int(step % uint32((n+1)/2))
	}
	if p.Reverse {
		pos = n - 1 - pos
	}
	c := scale(p.Color, p.Brightness)
	setPixel(buf, pos, c)
	if p.Mirror {
		setPixel(buf, n-1-pos, c)
	}
}

type rainbow struct{}

func (rainbow) Name() string { return "Rainbow" }

func (rainbow) Render(buf []byte, p Params, step uint32) {
	n := pixels(buf)
	for i := 0; i < n; i++ {
		idx := i
		if p.Mirror && i >= (n+1)/2 {
			idx = n - 1 - i
		}
		var hue uint32
		if !p.AllLeds {
			hue = uint32(idx * 256 / n)
		}
		if p.Reverse {
			hue -= step
		} else {
			hue += step
		}
		setPixel(buf, i, scale(wheel(uint8(hue)), p.Brightness))
	}
}

type breathe struct{}

func (breathe) Name() string { return "Breathe" }

// Render fades the color along a sine over 64 steps.
func (breathe) Render(buf []byte, p Params, step uint32) {
	level := (1 - math.Cos(2*math.Pi*float64(step%64)/64)) / 2
	fill(buf, scale(p.Color, p.Brightness*level))
}
