// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sprite

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogentcore.org/vsprite/gpu"
	"cogentcore.org/vsprite/gpu/gputest"
)

func newQuad(t *testing.T) (*gputest.Device, *gpu.Mesh) {
	dev := gputest.NewDevice()
	ms, err := gpu.NewQuadMesh(dev)
	require.NoError(t, err)
	return dev, ms
}

func TestGenerate(t *testing.T) {
	_, ms := newQuad(t)
	sprites := Generate(1000, NewRand(DefaultSeed), ms, nil)
	require.Len(t, sprites, 1000)
	assert.Equal(t, 1001, ms.Refs())

	first := sprites[0].Transform
	assert.InDelta(t, 0.132128, first.Translation.X(), 1e-5)
	assert.InDelta(t, 0.021264, first.Translation.Y(), 1e-5)
	assert.InDelta(t, -0.208944, first.Velocity.X(), 1e-5)
	assert.InDelta(t, 0.389436, first.Velocity.Y(), 1e-5)

	for i := range sprites {
		sp := &sprites[i]
		for _, v := range []float32{sp.Transform.Translation.X(), sp.Transform.Translation.Y(), sp.Transform.Velocity.X(), sp.Transform.Velocity.Y()} {
			assert.GreaterOrEqual(t, v, float32(-0.5))
			assert.LessOrEqual(t, v, float32(0.5))
		}
		assert.Equal(t, mgl32.Vec2{0.5, 0.5}, sp.Transform.Scale)
		assert.Equal(t, float32(0), sp.Transform.Rotation)
		assert.Equal(t, mgl32.Vec3{1, 1, 1}, sp.Color)
		assert.Same(t, ms, sp.Mesh)
	}
}

func TestGenerateReproducible(t *testing.T) {
	a := Generate(50, NewRand(7), nil, nil)
	b := Generate(50, NewRand(7), nil, nil)
	assert.Equal(t, a, b)
	c := Generate(50, NewRand(8), nil, nil)
	assert.NotEqual(t, a, c)
}

func TestStep(t *testing.T) {
	sp := Sprite{
		Transform: Transform{
			Translation: mgl32.Vec2{1, -2},
			Scale:       mgl32.Vec2{0.5, 0.5},
			Rotation:    0.3,
			Velocity:    mgl32.Vec2{0.25, 0.5},
		},
		Color: mgl32.Vec3{0.1, 0.2, 0.3},
	}
	sp.Step(2)
	assert.Equal(t, mgl32.Vec2{1.5, -1}, sp.Transform.Translation)
	assert.Equal(t, mgl32.Vec2{0.5, 0.5}, sp.Transform.Scale)
	assert.Equal(t, float32(0.3), sp.Transform.Rotation)
	assert.Equal(t, mgl32.Vec3{0.1, 0.2, 0.3}, sp.Color)

	sp.Step(0)
	assert.Equal(t, mgl32.Vec2{1.5, -1}, sp.Transform.Translation)
}

func TestPopulation(t *testing.T) {
	_, ms := newQuad(t)
	var pop Population
	assert.Nil(t, pop.Mesh())
	assert.Nil(t, pop.Texture())

	require.NoError(t, pop.Set(Generate(10, NewRand(DefaultSeed), ms, nil)))
	assert.Equal(t, 10, pop.Len())
	assert.Same(t, ms, pop.Mesh())
	assert.Equal(t, 11, ms.Refs())

	before := make([]Transform, pop.Len())
	for i := range before {
		before[i] = pop.At(i).Transform
	}
	pop.Step(0.016)
	for i, tr := range before {
		want := tr.Translation.Add(tr.Velocity.Mul(0.016))
		assert.Equal(t, want, pop.At(i).Transform.Translation)
		assert.Equal(t, tr.Velocity, pop.At(i).Transform.Velocity)
	}

	recs := pop.Records()
	require.Len(t, recs, 10)
	for i := range recs {
		assert.Equal(t, pop.At(i).Transform.Translation, recs[i].Translation)
	}

	pop.Freeze()
	assert.True(t, pop.Frozen())
	err := pop.Set(nil)
	assert.ErrorIs(t, err, gpu.ErrPrecondition)
	assert.Equal(t, 10, pop.Len())

	pop.Clear()
	assert.False(t, pop.Frozen())
	assert.Equal(t, 0, pop.Len())
	assert.Equal(t, 1, ms.Refs())
	assert.True(t, ms.Valid())
}

func TestPopulationSetReleases(t *testing.T) {
	dev, ms := newQuad(t)
	var pop Population
	require.NoError(t, pop.Set(Generate(3, NewRand(1), ms, nil)))
	ms.Release()
	assert.Equal(t, 3, ms.Refs())

	live := dev.Live()
	require.NoError(t, pop.Set(nil))
	assert.Equal(t, 0, ms.Refs())
	assert.False(t, ms.Valid())
	assert.Equal(t, live-2, dev.Live())
}
