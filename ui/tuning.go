package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// TuningValues are the live parameters the panel edits.
type TuningValues struct {
	CurlStrength float32
	NoiseScale   float32
	Persistence  float32
	Boost        float32
}

// Slider describes one row of the tuning panel.
type Slider struct {
	Label    string
	Min, Max float32
	Get      func(*TuningValues) *float32
}

// TuningSliders lists the panel rows in draw order.
var TuningSliders = []Slider{
	{Label: "Curl strength", Min: 0, Max: 3, Get: func(v *TuningValues) *float32 { return &v.CurlStrength }},
	{Label: "Noise scale", Min: 0.01, Max: 0.4, Get: func(v *TuningValues) *float32 { return &v.NoiseScale }},
	{Label: "Persistence", Min: 0, Max: 1, Get: func(v *TuningValues) *float32 { return &v.Persistence }},
	{Label: "Boost", Min: 0, Max: 3, Get: func(v *TuningValues) *float32 { return &v.Boost }},
}

// Clamp pulls every value into its slider range.
func (v TuningValues) Clamp() TuningValues {
	for _, s := range TuningSliders {
		p := s.Get(&v)
		if *p < s.Min || *p != *p {
			*p = s.Min
		}
		if *p > s.Max {
			*p = s.Max
		}
	}
	return v
}

// TuningPanel edits the field parameters with raygui sliders.
type TuningPanel struct {
	renderer *Renderer
	x, y     float32
	width    float32
	visible  bool
	initial  TuningValues
}

// NewTuningPanel creates a hidden panel. initial is restored by Reset.
func NewTuningPanel(x, y, width float32, initial TuningValues) *TuningPanel {
	return &TuningPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		initial:  initial.Clamp(),
	}
}

// Toggle switches panel visibility.
func (p *TuningPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// IsVisible returns whether the panel is shown.
func (p *TuningPanel) IsVisible() bool { return p.visible }

// SetPosition moves the panel.
func (p *TuningPanel) SetPosition(x, y float32) {
	p.x, p.y = x, y
}

// Draw renders the sliders for cur and returns the edited values and
// whether anything changed.
func (p *TuningPanel) Draw(cur TuningValues) (TuningValues, bool) {
	if !p.visible {
		return cur, false
	}
	r := p.renderer
	height := int32(len(TuningSliders))*44 + 70
	r.DrawPanel(int32(p.x)-8, int32(p.y)-8, int32(p.width)+16, height)

	y := float32(r.DrawSectionHeader(int32(p.x), int32(p.y), "Field Tuning"))
	next := cur
	for _, s := range TuningSliders {
		v := s.Get(&next)
		rl.DrawText(s.Label, int32(p.x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		y += 16
		*v = gui.SliderBar(
			rl.Rectangle{X: p.x, Y: y, Width: p.width - 60, Height: 18},
			"", "",
			*v, s.Min, s.Max,
		)
		rl.DrawText(fmt.Sprintf("%.2f", *v), int32(p.x+p.width-52), int32(y+2), r.Theme.FontSize, r.Theme.ValueColor)
		y += 28
	}

	if gui.Button(rl.Rectangle{X: p.x, Y: y, Width: 120, Height: 24}, "Reset") {
		next = p.initial
	}
	return next, next != cur
}
