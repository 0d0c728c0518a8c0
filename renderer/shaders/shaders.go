// Package shaders embeds the GLSL programs for the raylib device and the
// particle draw.
package shaders

import _ "embed"

// Velocity is the velocity integration pass.
//
//go:embed velocity.fs
var Velocity string

// Position is the position integration pass.
//
//go:embed position.fs
var Position string

// Seed writes a single uniform value into the bound target.
//
//go:embed seed.fs
var Seed string

// ParticleVertex billboards one quad per slot at its simulated position.
//
//go:embed particle.vs
var ParticleVertex string

//go:embed particle.fs
var ParticleFragment string

// Sky is the screen-space backdrop behind the field.
//
//go:embed sky.fs
var Sky string
