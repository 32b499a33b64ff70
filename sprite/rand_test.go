// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sprite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandSequence(t *testing.T) {
	rn := NewRand(DefaultSeed)
	want := []uint32{2714967881, 2238813396, 1250077441, 3820100336, 3177519686, 3684138832}
	for i, w := range want {
		assert.Equal(t, w, rn.Uint32(), "value %d", i)
	}
}

func TestRandZeroSeed(t *testing.T) {
	a := NewRand(0)
	b := NewRand(DefaultSeed)
	for range 10 {
		assert.Equal(t, b.Uint32(), a.Uint32())
	}
}

func TestRandRange(t *testing.T) {
	rn := NewRand(DefaultSeed)
	assert.InDelta(t, 0.132128, rn.Range(-0.5, 0.5), 1e-5)
	assert.InDelta(t, 0.021264, rn.Range(-0.5, 0.5), 1e-5)

	rn = NewRand(42)
	for range 1000 {
		f := rn.Float32()
		assert.GreaterOrEqual(t, f, float32(0))
		assert.LessOrEqual(t, f, float32(1))
		r := rn.Range(2, 3)
		assert.GreaterOrEqual(t, r, float32(2))
		assert.LessOrEqual(t, r, float32(3))
	}
}
