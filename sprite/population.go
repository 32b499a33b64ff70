// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sprite

import (
	"log/slog"

	"cogentcore.org/vsprite/gpu"
)

// Population is the ordered, authoritative list of sprites that the
// instance data on the GPU mirrors. It is owned and mutated by a
// single render system.
type Population struct {
	sprites []Sprite

	// frozen is set once the instance buffer has been sized to
	// the current count, after which the set of sprites is fixed.
	frozen bool
}

// Len returns the number of sprites.
func (pp *Population) Len() int {
	return len(pp.sprites)
}

// At returns a pointer to sprite i.
func (pp *Population) At(i int) *Sprite {
	return &pp.sprites[i]
}

// Sprites returns the sprites; the slice must not be appended to.
func (pp *Population) Sprites() []Sprite {
	return pp.sprites
}

// Frozen returns true if the population can no longer be replaced.
func (pp *Population) Frozen() bool {
	return pp.frozen
}

// Freeze fixes the set of sprites: Set fails after this.
func (pp *Population) Freeze() {
	pp.frozen = true
}

// Set replaces the sprites, releasing the mesh references of the
// previous ones. It fails once the population is frozen.
func (pp *Population) Set(sprites []Sprite) error {
	if pp.frozen {
		return gpu.NewPreconditionError("sprite population already sized on the GPU with %d sprites", len(pp.sprites))
	}
	pp.release()
	pp.sprites = sprites
	slog.Info("sprite.Population loaded", "sprites", len(sprites))
	return nil
}

// Mesh returns the mesh shared by the sprites, nil if there are none.
func (pp *Population) Mesh() *gpu.Mesh {
	if len(pp.sprites) == 0 {
		return nil
	}
	return pp.sprites[0].Mesh
}

// Texture returns the texture shared by the sprites, nil if there are none.
func (pp *Population) Texture() *gpu.Texture {
	if len(pp.sprites) == 0 {
		return nil
	}
	return pp.sprites[0].Texture
}

// Step advances every sprite by dt.
func (pp *Population) Step(dt float32) {
	for i := range pp.sprites {
		pp.sprites[i].Step(dt)
	}
}

// Records returns the instance records for all sprites, in order.
func (pp *Population) Records() []InstanceRecord {
	recs := make([]InstanceRecord, len(pp.sprites))
	for i := range pp.sprites {
		recs[i] = NewInstanceRecord(&pp.sprites[i])
	}
	return recs
}

// Clear removes all sprites, releasing their mesh references,
// and unfreezes the population.
func (pp *Population) Clear() {
	pp.release()
	pp.sprites = nil
	pp.frozen = false
}

func (pp *Population) release() {
	for i := range pp.sprites {
		if ms := pp.sprites[i].Mesh; ms != nil {
			ms.Release()
			pp.sprites[i].Mesh = nil
		}
	}
}
