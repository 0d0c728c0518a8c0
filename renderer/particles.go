package renderer

import (
	"errors"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/field"
	"github.com/pthm-cable/railfield/renderer/shaders"
	"github.com/pthm-cable/railfield/spawner"
)

// Mesh vertex buffer slots as laid out by raylib's UploadMesh.
const (
	bufferColors     = 3
	bufferTexcoords2 = 5
)

const vertsPerQuad = 6

var quadCorners = [vertsPerQuad][2]float32{
	{-1, -1}, {1, -1}, {1, 1},
	{-1, -1}, {1, 1}, {-1, 1},
}

// ParticleRenderer draws the field. In GPU mode every slot is a billboard
// whose vertex shader reads the position texture; in CPU mode it draws small
// cubes from the fallback positions.
type ParticleRenderer struct {
	capacity int
	side     int

	shader   rl.Shader
	material rl.Material
	mesh     rl.Mesh
	pulseLoc int32

	verts  []float32
	uvs    []float32
	colors []uint8   // rgba per vertex
	extra  []float32 // scale, tag per vertex
}

// NewParticleRenderer builds the quad mesh for capacity slots laid out on
// side x side position texels.
func NewParticleRenderer(capacity, side int) (*ParticleRenderer, error) {
	if capacity <= 0 || side*side < capacity {
		return nil, errors.New("renderer: texture side does not cover capacity")
	}
	shader := rl.LoadShaderFromMemory(shaders.ParticleVertex, shaders.ParticleFragment)
	if !rl.IsShaderValid(shader) || shader.ID == rl.GetShaderIdDefault() {
		return nil, errors.New("renderer: particle shader failed to compile")
	}

	r := &ParticleRenderer{
		capacity: capacity,
		side:     side,
		shader:   shader,
		pulseLoc: rl.GetShaderLocation(shader, "pulse"),
		colors:   make([]uint8, capacity*vertsPerQuad*4),
		extra:    make([]float32, capacity*vertsPerQuad*2),
	}
	r.verts, r.uvs = buildQuads(capacity, side)

	r.mesh = rl.Mesh{
		VertexCount:   int32(capacity * vertsPerQuad),
		TriangleCount: int32(capacity * 2),
		Vertices:      &r.verts[0],
		Texcoords:     &r.uvs[0],
		Texcoords2:    &r.extra[0],
		Colors:        &r.colors[0],
	}
	rl.UploadMesh(&r.mesh, true)
	// The GPU holds the data now; drop the Go pointers so the mesh can be
	// passed to C by value.
	r.mesh.Vertices, r.mesh.Texcoords, r.mesh.Texcoords2, r.mesh.Colors = nil, nil, nil, nil

	r.material = rl.LoadMaterialDefault()
	r.material.Shader = shader
	return r, nil
}

// buildQuads returns the corner offsets and texel coordinates of every
// vertex. Texel coordinates address the center of the slot's texel.
func buildQuads(capacity, side int) (verts, uvs []float32) {
	verts = make([]float32, capacity*vertsPerQuad*3)
	uvs = make([]float32, capacity*vertsPerQuad*2)
	inv := 1 / float32(side)
	for i := 0; i < capacity; i++ {
		row, col := i/side, i%side
		u := (float32(col) + 0.5) * inv
		v := (float32(row) + 0.5) * inv
		for k, c := range quadCorners {
			n := i*vertsPerQuad + k
			verts[n*3+0] = c[0]
			verts[n*3+1] = c[1]
			uvs[n*2+0] = u
			uvs[n*2+1] = v
		}
	}
	return verts, uvs
}

// packAttributes copies slots [lo, hi) into the per-vertex color and extra
// arrays.
func packAttributes(a *spawner.Attributes, lo, hi int, colors []uint8, extra []float32) {
	for i := lo; i < hi; i++ {
		r := toByte(a.Colors[i*3+0])
		g := toByte(a.Colors[i*3+1])
		b := toByte(a.Colors[i*3+2])
		for k := 0; k < vertsPerQuad; k++ {
			n := i*vertsPerQuad + k
			colors[n*4+0] = r
			colors[n*4+1] = g
			colors[n*4+2] = b
			colors[n*4+3] = 255
			extra[n*2+0] = a.Scales[i]
			extra[n*2+1] = a.Tags[i]
		}
	}
}

// Sync uploads the attribute slots changed since the last call.
func (r *ParticleRenderer) Sync(a *spawner.Attributes) {
	lo, hi, full := a.Dirty()
	if full {
		lo, hi = 0, r.capacity
	}
	if hi > r.capacity {
		hi = r.capacity
	}
	if lo >= hi {
		a.ClearDirty()
		return
	}
	packAttributes(a, lo, hi, r.colors, r.extra)

	c0, c1 := lo*vertsPerQuad*4, hi*vertsPerQuad*4
	rl.UpdateMeshBuffer(r.mesh, bufferColors, r.colors[c0:c1], c0)
	e0, e1 := lo*vertsPerQuad*2, hi*vertsPerQuad*2
	rl.UpdateMeshBuffer(r.mesh, bufferTexcoords2, float32Bytes(r.extra[e0:e1]), e0*4)
	a.ClearDirty()
}

// Draw renders one frame of the field. Call it inside BeginMode3D.
func (r *ParticleRenderer) Draw(out field.Output) {
	if out.Mode == field.ModeGPU {
		tex, ok := TextureOf(out.Sampler)
		if !ok {
			return
		}
		r.material.GetMap(rl.MapAlbedo).Texture = tex
		rl.SetShaderValue(r.shader, r.pulseLoc, []float32{out.Pulse}, rl.ShaderUniformFloat)
		rl.BeginBlendMode(rl.BlendAdditive)
		rl.DrawMesh(r.mesh, r.material, rl.MatrixIdentity())
		rl.EndBlendMode()
		return
	}

	a := out.Attributes
	if a == nil || out.Positions == nil {
		return
	}
	grow := 1 + 0.35*out.Pulse
	for i := 0; i < r.capacity; i++ {
		s := a.Scales[i]
		if s <= 0 {
			continue
		}
		s *= grow
		pos := rl.Vector3{X: out.Positions[i*3], Y: out.Positions[i*3+1], Z: out.Positions[i*3+2]}
		col := rl.Color{
			R: toByte(a.Colors[i*3]),
			G: toByte(a.Colors[i*3+1]),
			B: toByte(a.Colors[i*3+2]),
			A: 220,
		}
		rl.DrawCube(pos, s, s, s, col)
	}
}

// Unload releases the mesh and shader.
func (r *ParticleRenderer) Unload() {
	// Point the material back at the default texture so unloading it does
	// not free a simulation target.
	r.material.GetMap(rl.MapAlbedo).Texture = rl.Texture2D{
		ID:      rl.GetTextureIdDefault(),
		Width:   1,
		Height:  1,
		Mipmaps: 1,
		Format:  rl.UncompressedR8g8b8a8,
	}
	rl.UnloadMaterial(r.material) // Also unloads the shader
	rl.UnloadMesh(&r.mesh)
}

func toByte(v float32) uint8 {
	if v <= 0 || v != v {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
