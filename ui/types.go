// Package ui draws the ride HUD and the live tuning panel.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	BarBg          rl.Color
	BarFill        rl.Color
	BarFillLow     rl.Color
	BarFillMedium  rl.Color
	BarFillHigh    rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	BarHeight      int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 12, G: 14, B: 24, A: 220},
		PanelBorder:    rl.Color{R: 70, G: 60, B: 110, A: 255},
		SectionHeader:  rl.Color{R: 240, G: 200, B: 90, A: 255},
		LabelColor:     rl.LightGray,
		ValueColor:     rl.RayWhite,
		BarBg:          rl.Color{R: 40, G: 40, B: 50, A: 255},
		BarFill:        rl.Color{R: 140, G: 110, B: 230, A: 255},
		BarFillLow:     rl.Color{R: 210, G: 90, B: 90, A: 255},
		BarFillMedium:  rl.Color{R: 220, G: 180, B: 90, A: 255},
		BarFillHigh:    rl.Color{R: 100, G: 210, B: 120, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     80,
		BarHeight:      10,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}

// LoadColor picks the bar color for a utilization ratio: green while there
// is headroom, red near the limit.
func (t Theme) LoadColor(ratio float32) rl.Color {
	switch {
	case ratio >= 0.9:
		return t.BarFillLow
	case ratio >= 0.6:
		return t.BarFillMedium
	default:
		return t.BarFillHigh
	}
}
