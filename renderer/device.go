package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/gpu"
	"github.com/pthm-cable/railfield/renderer/shaders"
)

// Sources returns the GLSL kernels for the engine.
func Sources() gpu.Sources {
	return gpu.Sources{Velocity: shaders.Velocity, Position: shaders.Position}
}

// floatTarget is an RGBA32F texture attached to its own framebuffer.
type floatTarget struct {
	fbo      uint32
	tex      rl.Texture2D
	side     int
	released bool
}

func (t *floatTarget) Side() int { return t.side }

func (t *floatTarget) renderTexture() rl.RenderTexture2D {
	return rl.RenderTexture2D{ID: t.fbo, Texture: t.tex}
}

// TextureOf returns the texture behind a target created by RaylibDevice.
func TextureOf(t gpu.Target) (rl.Texture2D, bool) {
	ft, ok := t.(*floatTarget)
	if !ok || ft.released {
		return rl.Texture2D{}, false
	}
	return ft.tex, true
}

// kernel is a compiled simulation pass and its uniform locations.
type kernel struct {
	shader rl.Shader
	locs   map[string]int32
}

var kernelUniforms = []string{
	"positions", "velocities",
	"time", "deltaTime", "audioForce",
	"curlStrength", "noiseScale", "noiseSpeed",
	"gravity", "damping", "pulseRate", "impulseGain",
	"bands", "bandWeights",
	"floorY", "hiddenY",
}

// RaylibDevice runs the simulation passes as fragment shaders on float
// render textures. It must be created after the window and used only from
// the goroutine that created it.
type RaylibDevice struct {
	kernels   map[gpu.Kernel]*kernel
	seed      rl.Shader
	seedValue int32
	caps      gpu.Capabilities
}

// NewRaylibDevice loads the texel seeding shader. maxSide is reported as the
// largest target side; 0 leaves the limit to the engine config.
func NewRaylibDevice(maxSide int) (*RaylibDevice, error) {
	d := &RaylibDevice{
		kernels: make(map[gpu.Kernel]*kernel),
		caps: gpu.Capabilities{
			Renderer:       glName(rl.GetVersion()),
			Vendor:         "raylib",
			MaxTextureSize: maxSide,
		},
	}
	seed, err := loadShader(shaders.Seed)
	if err != nil {
		return nil, fmt.Errorf("loading seed shader: %w", err)
	}
	d.seed = seed
	d.seedValue = rl.GetShaderLocation(seed, "value")
	return d, nil
}

// Probe builds a small float framebuffer and checks it is complete.
func (d *RaylibDevice) Probe(ctx context.Context) (gpu.Capabilities, error) {
	if err := ctx.Err(); err != nil {
		return d.caps, err
	}
	caps := d.caps
	switch rl.GetVersion() {
	case rl.Opengl11, rl.OpenglEs20:
		caps.FloatTargets = false
		return caps, nil
	}
	t, err := d.NewTarget(4)
	if err != nil {
		slog.Debug("float_probe_failed", "renderer", caps.Renderer, "error", err)
		caps.FloatTargets = false
		return caps, nil
	}
	d.Release(t)
	caps.FloatTargets = true
	return caps, nil
}

func (d *RaylibDevice) NewTarget(side int) (gpu.Target, error) {
	if side <= 0 {
		return nil, fmt.Errorf("raylib device: invalid target side %d", side)
	}
	tex, err := loadFloatTexture(side, nil)
	if err != nil {
		return nil, err
	}
	fbo := rl.LoadFramebuffer()
	if fbo == 0 {
		rl.UnloadTexture(tex)
		return nil, errors.New("raylib device: framebuffer creation failed")
	}
	rl.FramebufferAttach(fbo, tex.ID, rl.AttachmentColorChannel0, rl.AttachmentTexture2d, 0)
	if !rl.FramebufferComplete(fbo) {
		rl.UnloadFramebuffer(fbo)
		rl.UnloadTexture(tex)
		return nil, errors.New("raylib device: float framebuffer incomplete")
	}
	return &floatTarget{fbo: fbo, tex: tex, side: side}, nil
}

func (d *RaylibDevice) Compile(k gpu.Kernel, source string) error {
	sh, err := loadShader(source)
	if err != nil {
		return fmt.Errorf("compiling %s kernel: %w", k, err)
	}
	if old, ok := d.kernels[k]; ok {
		rl.UnloadShader(old.shader)
	}
	kn := &kernel{shader: sh, locs: make(map[string]int32, len(kernelUniforms))}
	for _, name := range kernelUniforms {
		kn.locs[name] = rl.GetShaderLocation(sh, name)
	}
	d.kernels[k] = kn
	return nil
}

func (d *RaylibDevice) Run(k gpu.Kernel, dst gpu.Target, in gpu.PassInputs, u *gpu.Uniforms) error {
	kn, ok := d.kernels[k]
	if !ok {
		return fmt.Errorf("raylib device: %s kernel not compiled", k)
	}
	out, err := d.target(dst)
	if err != nil {
		return err
	}
	pos, err := d.target(in.Position)
	if err != nil {
		return err
	}
	vel, err := d.target(in.Velocity)
	if err != nil {
		return err
	}
	if out == pos || out == vel {
		return errors.New("raylib device: pass writes one of its inputs")
	}

	pass(out, kn.shader, func() {
		rl.SetShaderValueTexture(kn.shader, kn.locs["positions"], pos.tex)
		rl.SetShaderValueTexture(kn.shader, kn.locs["velocities"], vel.tex)
		kn.setFloat("time", u.Time)
		kn.setFloat("deltaTime", u.DeltaTime)
		kn.setFloat("audioForce", u.AudioForce)
		kn.setFloat("curlStrength", u.CurlStrength)
		kn.setFloat("noiseScale", u.NoiseScale)
		kn.setFloat("noiseSpeed", u.NoiseSpeed)
		kn.setFloat("gravity", u.Gravity)
		kn.setFloat("damping", u.Damping)
		kn.setFloat("pulseRate", u.PulseRate)
		kn.setFloat("impulseGain", u.ImpulseGain)
		kn.setFloat("floorY", u.Floor)
		kn.setFloat("hiddenY", u.HiddenY)
		kn.setArray("bands", u.Bands[:])
		kn.setArray("bandWeights", u.BandWeights[:])
		rl.DrawRectangle(0, 0, int32(out.side), int32(out.side), rl.White)
	})
	return nil
}

// Upload replaces the whole texture of a target.
func (d *RaylibDevice) Upload(dst gpu.Target, texels []float32) error {
	t, err := d.target(dst)
	if err != nil {
		return err
	}
	if len(texels) != t.side*t.side*gpu.TexelStride {
		return fmt.Errorf("raylib device: upload of %d floats into side %d", len(texels), t.side)
	}
	tex, err := loadFloatTexture(t.side, texels)
	if err != nil {
		return err
	}
	rl.FramebufferAttach(t.fbo, tex.ID, rl.AttachmentColorChannel0, rl.AttachmentTexture2d, 0)
	if !rl.FramebufferComplete(t.fbo) {
		rl.FramebufferAttach(t.fbo, t.tex.ID, rl.AttachmentColorChannel0, rl.AttachmentTexture2d, 0)
		rl.UnloadTexture(tex)
		return errors.New("raylib device: framebuffer incomplete after upload")
	}
	rl.UnloadTexture(t.tex)
	t.tex = tex
	return nil
}

// WriteTexels draws one texel-sized quad per write with the seed shader.
func (d *RaylibDevice) WriteTexels(dst gpu.Target, writes []gpu.TexelWrite) error {
	t, err := d.target(dst)
	if err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}
	pass(t, d.seed, func() {
		for _, w := range writes {
			row, col := gpu.TexelCoords(w.Index, t.side)
			if row >= t.side {
				continue
			}
			rl.SetShaderValue(d.seed, d.seedValue, w.Value[:], rl.ShaderUniformVec4)
			rl.DrawRectangle(int32(col), int32(drawRow(row, t.side)), 1, 1, rl.White)
			// The uniform is read when the batch is drawn, so flush per texel
			rl.DrawRenderBatchActive()
		}
	})
	return nil
}

func (d *RaylibDevice) Release(t gpu.Target) {
	ft, ok := t.(*floatTarget)
	if !ok || ft.released {
		return
	}
	rl.UnloadFramebuffer(ft.fbo)
	rl.UnloadTexture(ft.tex)
	ft.released = true
}

// Close unloads every shader. Targets must be released by their owner first.
func (d *RaylibDevice) Close() {
	for k, kn := range d.kernels {
		rl.UnloadShader(kn.shader)
		delete(d.kernels, k)
	}
	rl.UnloadShader(d.seed)
}

func (d *RaylibDevice) target(t gpu.Target) (*floatTarget, error) {
	ft, ok := t.(*floatTarget)
	if !ok {
		return nil, fmt.Errorf("raylib device: foreign target %T", t)
	}
	if ft.released {
		return nil, errors.New("raylib device: target released")
	}
	return ft, nil
}

func (kn *kernel) setFloat(name string, v float32) {
	if loc := kn.locs[name]; loc >= 0 {
		rl.SetShaderValue(kn.shader, loc, []float32{v}, rl.ShaderUniformFloat)
	}
}

func (kn *kernel) setArray(name string, v []float32) {
	if loc := kn.locs[name]; loc >= 0 {
		rl.SetShaderValueV(kn.shader, loc, v, rl.ShaderUniformFloat, int32(len(v)))
	}
}

// pass draws into a target with blending off, so the flag channel is
// written as is instead of acting as alpha.
func pass(t *floatTarget, shader rl.Shader, draw func()) {
	rl.BeginTextureMode(t.renderTexture())
	rl.DisableColorBlend()
	rl.BeginShaderMode(shader)
	draw()
	rl.EndShaderMode()
	rl.EnableColorBlend()
	rl.EndTextureMode()
}

// loadShader compiles a fragment shader with the default vertex stage.
// raylib substitutes its default shader on failure, which is reported here
// as an error.
func loadShader(fragment string) (rl.Shader, error) {
	sh := rl.LoadShaderFromMemory("", fragment)
	if !rl.IsShaderValid(sh) || sh.ID == rl.GetShaderIdDefault() {
		return rl.Shader{}, errors.New("shader failed to compile")
	}
	return sh, nil
}

func loadFloatTexture(side int, texels []float32) (rl.Texture2D, error) {
	if texels == nil {
		texels = make([]float32, side*side*gpu.TexelStride)
	}
	img := rl.NewImage(float32Bytes(texels), int32(side), int32(side), 1, rl.UncompressedR32g32b32a32)
	tex := rl.LoadTextureFromImage(img)
	runtime.KeepAlive(texels)
	if tex.ID == 0 {
		return rl.Texture2D{}, fmt.Errorf("raylib device: float texture %dx%d rejected", side, side)
	}
	rl.SetTextureFilter(tex, rl.FilterPoint)
	return tex, nil
}

// float32Bytes views a float slice as bytes in native order, which is the
// layout GL expects for RGBA32F uploads.
func float32Bytes(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*4)
}

// drawRow converts a texel row to the y coordinate used inside
// BeginTextureMode, whose projection puts y = 0 at the top row.
func drawRow(row, side int) int {
	return side - 1 - row
}

func glName(version int32) string {
	switch version {
	case rl.Opengl11:
		return "opengl-1.1"
	case rl.Opengl21:
		return "opengl-2.1"
	case rl.Opengl33:
		return "opengl-3.3"
	case rl.Opengl43:
		return "opengl-4.3"
	case rl.OpenglEs20:
		return "opengl-es-2.0"
	default:
		return fmt.Sprintf("opengl-%d", version)
	}
}
