// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sprite is the CPU side model of a population of moving
// sprites and its GPU instance data layout.
package sprite

import (
	"github.com/go-gl/mathgl/mgl32"

	"cogentcore.org/vsprite/gpu"
)

// Transform is the 2D placement and motion of a sprite.
type Transform struct {
	Translation mgl32.Vec2

	// Scale is used isotropically: only X is applied.
	Scale mgl32.Vec2

	// Rotation in radians. It is carried but not yet applied
	// by the motion model or the instance data.
	Rotation float32

	// Velocity in units per second.
	Velocity mgl32.Vec2
}

// Sprite is one simulated entity.
type Sprite struct {
	Transform Transform

	// Color is the RGB tint.
	Color mgl32.Vec3

	// Mesh is a shared reference to the quad mesh, taken with Mesh.Ref.
	Mesh *gpu.Mesh

	// Texture is not owned by the sprite.
	Texture *gpu.Texture
}

// Step advances the translation by velocity * dt.
func (sp *Sprite) Step(dt float32) {
	sp.Transform.Translation = sp.Transform.Translation.Add(sp.Transform.Velocity.Mul(dt))
}

// Generate returns n sprites at random positions in [-0.5, 0.5] with
// random velocities in the same range, drawn from rng in the order
// x, y, vx, vy for each sprite. Scale is 0.5, rotation 0 and color white.
// Each sprite takes a reference to mesh, if not nil.
func Generate(n int, rng *Rand, mesh *gpu.Mesh, tex *gpu.Texture) []Sprite {
	sprites := make([]Sprite, n)
	for i := range sprites {
		sp := &sprites[i]
		sp.Color = mgl32.Vec3{1, 1, 1}
		sp.Transform.Translation = mgl32.Vec2{rng.Range(-0.5, 0.5), rng.Range(-0.5, 0.5)}
		sp.Transform.Scale = mgl32.Vec2{0.5, 0.5}
		sp.Transform.Rotation = 0
		sp.Transform.Velocity = mgl32.Vec2{rng.Range(-0.5, 0.5), rng.Range(-0.5, 0.5)}
		if mesh != nil {
			sp.Mesh = mesh.Ref()
		}
		sp.Texture = tex
	}
	return sprites
}
