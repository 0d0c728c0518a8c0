package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/railfield/features"
	"github.com/pthm-cable/railfield/spawner"
)

func TestBuildQuadsTexelCenters(t *testing.T) {
	verts, uvs := buildQuads(5, 3)
	if len(verts) != 5*vertsPerQuad*3 || len(uvs) != 5*vertsPerQuad*2 {
		t.Fatalf("sizes = %d, %d", len(verts), len(uvs))
	}
	tests := []struct {
		slot int
		u, v float32
	}{
		{0, 0.5 / 3, 0.5 / 3},
		{2, 2.5 / 3, 0.5 / 3},
		{4, 1.5 / 3, 1.5 / 3},
	}
	for _, tt := range tests {
		for k := 0; k < vertsPerQuad; k++ {
			n := tt.slot*vertsPerQuad + k
			if math.Abs(float64(uvs[n*2]-tt.u)) > 1e-6 || math.Abs(float64(uvs[n*2+1]-tt.v)) > 1e-6 {
				t.Errorf("slot %d vertex %d uv = (%v, %v), want (%v, %v)", tt.slot, k, uvs[n*2], uvs[n*2+1], tt.u, tt.v)
			}
		}
	}
}

func TestBuildQuadsCorners(t *testing.T) {
	verts, _ := buildQuads(1, 1)
	var sumX, sumY float32
	for k := 0; k < vertsPerQuad; k++ {
		x, y, z := verts[k*3], verts[k*3+1], verts[k*3+2]
		if z != 0 {
			t.Errorf("vertex %d z = %v", k, z)
		}
		if (x != 1 && x != -1) || (y != 1 && y != -1) {
			t.Errorf("vertex %d = (%v, %v), want a unit corner", k, x, y)
		}
		sumX += x
		sumY += y
	}
	// Two triangles sharing the (-1,-1)/(1,1) diagonal.
	if sumX != 0 || sumY != 0 {
		t.Errorf("corner sums = (%v, %v), want (0, 0)", sumX, sumY)
	}
}

func TestPackAttributes(t *testing.T) {
	a := spawner.NewAttributes(4)
	a.Set(2, features.Color{R: 1, G: 0.5, B: 0}, 0.75, features.Mid)

	colors := make([]uint8, 4*vertsPerQuad*4)
	extra := make([]float32, 4*vertsPerQuad*2)
	packAttributes(a, 2, 3, colors, extra)

	for k := 0; k < vertsPerQuad; k++ {
		n := 2*vertsPerQuad + k
		if got := colors[n*4 : n*4+4]; got[0] != 255 || got[1] != 128 || got[2] != 0 || got[3] != 255 {
			t.Errorf("vertex %d color = %v", k, got)
		}
		if extra[n*2] != 0.75 || extra[n*2+1] != float32(features.Mid) {
			t.Errorf("vertex %d extra = %v", k, extra[n*2:n*2+2])
		}
	}
	for i, c := range colors[:2*vertsPerQuad*4] {
		if c != 0 {
			t.Fatalf("slot outside range written at byte %d", i)
		}
	}
}

func TestToByte(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{3, 255},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := toByte(tt.in); got != tt.want {
			t.Errorf("toByte(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFloat32Bytes(t *testing.T) {
	if float32Bytes(nil) != nil {
		t.Error("empty slice should map to nil")
	}
	b := float32Bytes([]float32{1.5, -2})
	if len(b) != 8 {
		t.Fatalf("len = %d", len(b))
	}
	if got := math.Float32frombits(binary.NativeEndian.Uint32(b[4:])); got != -2 {
		t.Errorf("second value = %v", got)
	}
}

func TestDrawRow(t *testing.T) {
	if got := drawRow(0, 8); got != 7 {
		t.Errorf("drawRow(0, 8) = %d", got)
	}
	if got := drawRow(7, 8); got != 0 {
		t.Errorf("drawRow(7, 8) = %d", got)
	}
}

func TestGLName(t *testing.T) {
	tests := []struct {
		version int32
		want    string
	}{
		{rl.Opengl11, "opengl-1.1"},
		{rl.Opengl33, "opengl-3.3"},
	}
	for _, tt := range tests {
		if got := glName(tt.version); got != tt.want {
			t.Errorf("glName(%d) = %q, want %q", tt.version, got, tt.want)
		}
	}
}
