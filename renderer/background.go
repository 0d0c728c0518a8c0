package renderer

import (
	"errors"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/renderer/shaders"
)

// SkyRenderer draws a noisy gradient behind the ride that brightens with the
// track pulse.
type SkyRenderer struct {
	shader        rl.Shader
	timeLoc       int32
	resolutionLoc int32
	baseColorLoc  int32
	pulseLoc      int32

	screenW, screenH float32
	baseColor        [3]float32
}

// NewSkyRenderer compiles the sky shader. Call after the window exists.
func NewSkyRenderer(screenW, screenH int32, baseR, baseG, baseB uint8) (*SkyRenderer, error) {
	shader := rl.LoadShaderFromMemory("", shaders.Sky)
	if !rl.IsShaderValid(shader) || shader.ID == rl.GetShaderIdDefault() {
		return nil, errors.New("renderer: sky shader failed to compile")
	}
	s := &SkyRenderer{
		shader:        shader,
		timeLoc:       rl.GetShaderLocation(shader, "time"),
		resolutionLoc: rl.GetShaderLocation(shader, "resolution"),
		baseColorLoc:  rl.GetShaderLocation(shader, "baseColor"),
		pulseLoc:      rl.GetShaderLocation(shader, "pulse"),
		baseColor: [3]float32{
			float32(baseR) / 255.0,
			float32(baseG) / 255.0,
			float32(baseB) / 255.0,
		},
	}
	s.Resize(screenW, screenH)
	rl.SetShaderValue(s.shader, s.baseColorLoc, s.baseColor[:], rl.ShaderUniformVec3)
	return s, nil
}

// Resize updates the viewport the gradient spans.
func (s *SkyRenderer) Resize(w, h int32) {
	s.screenW, s.screenH = float32(w), float32(h)
	rl.SetShaderValue(s.shader, s.resolutionLoc, []float32{s.screenW, s.screenH}, rl.ShaderUniformVec2)
}

// Draw fills the screen. Call outside BeginMode3D.
func (s *SkyRenderer) Draw(time, pulse float32) {
	rl.BeginShaderMode(s.shader)
	rl.SetShaderValue(s.shader, s.timeLoc, []float32{time}, rl.ShaderUniformFloat)
	rl.SetShaderValue(s.shader, s.pulseLoc, []float32{pulse}, rl.ShaderUniformFloat)
	rl.DrawRectangle(0, 0, int32(s.screenW), int32(s.screenH), rl.White)
	rl.EndShaderMode()
}

// Unload frees the shader.
func (s *SkyRenderer) Unload() {
	rl.UnloadShader(s.shader)
}
