// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sprite

import "math"

// DefaultSeed is the seed used when none is configured.
const DefaultSeed = 123456789

// Rand is a xorshift32 pseudorandom generator with shifts 13, 17, 5.
// A given seed always produces the same sequence.
// The zero state is a fixed point, so a zero seed is replaced by [DefaultSeed].
type Rand struct {
	State uint32
}

// NewRand returns a generator starting from seed.
func NewRand(seed uint32) *Rand {
	if seed == 0 {
		seed = DefaultSeed
	}
	return &Rand{State: seed}
}

// Uint32 advances the state and returns it.
func (rn *Rand) Uint32() uint32 {
	x := rn.State
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	rn.State = x
	return x
}

// Float32 returns a value in [0, 1].
func (rn *Rand) Float32() float32 {
	return float32(rn.Uint32()) / float32(math.MaxUint32)
}

// Range returns a value in [min, max].
func (rn *Rand) Range(min, max float32) float32 {
	return min + (max-min)*rn.Float32()
}
