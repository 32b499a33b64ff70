// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sprite

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// InstanceRecord is the per-sprite data read by the vertex shader from
// the instance storage buffer, with std430 offsets:
//
//	translation  vec2  @0
//	transform    mat2  @8
//	color        vec3  @32
//	textureIndex uint  @44
//	velocity     vec2  @48
//
// padded to 64 bytes.
type InstanceRecord struct {
	Translation mgl32.Vec2

	// Transform is the 2x2 matrix from the uniform scale.
	// Rotation is not encoded.
	Transform mgl32.Mat2

	_ [2]float32

	Color mgl32.Vec3

	// TextureIndex selects a layer of a texture array; always 0
	// while a single texture is bound.
	TextureIndex uint32

	Velocity mgl32.Vec2

	_ [2]float32
}

// InstanceRecordSize is the size of [InstanceRecord] in the buffer.
const InstanceRecordSize = int(unsafe.Sizeof(InstanceRecord{}))

// NewInstanceRecord returns the record for the sprite.
func NewInstanceRecord(sp *Sprite) InstanceRecord {
	s := sp.Transform.Scale.X()
	return InstanceRecord{
		Translation: sp.Transform.Translation,
		Transform:   mgl32.Mat2{s, 0, 0, s},
		Color:       sp.Color,
		Velocity:    sp.Transform.Velocity,
	}
}

// Sprite returns a sprite with the translation, uniform scale, color
// and velocity of the record; it has no mesh or texture.
func (ir *InstanceRecord) Sprite() Sprite {
	s := ir.Transform[0]
	return Sprite{
		Transform: Transform{
			Translation: ir.Translation,
			Scale:       mgl32.Vec2{s, s},
			Velocity:    ir.Velocity,
		},
		Color: ir.Color,
	}
}

// EncodeRecords returns the bytes of the records as laid out in
// the instance buffer. The result aliases recs.
func EncodeRecords(recs []InstanceRecord) []byte {
	if len(recs) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&recs[0])), len(recs)*InstanceRecordSize)
}

// DecodeRecords reads records back from instance buffer bytes.
func DecodeRecords(b []byte) ([]InstanceRecord, error) {
	if len(b)%InstanceRecordSize != 0 {
		return nil, fmt.Errorf("sprite.DecodeRecords: %d bytes is not a multiple of the record size %d", len(b), InstanceRecordSize)
	}
	recs := make([]InstanceRecord, len(b)/InstanceRecordSize)
	if len(recs) == 0 {
		return recs, nil
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, recs); err != nil {
		return nil, err
	}
	return recs, nil
}
