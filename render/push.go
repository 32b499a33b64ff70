// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"image"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Push is the push constant data sent with each draw.
type Push struct {
	// Projection maps world coordinates to clip space.
	Projection mgl32.Mat4
}

// PushSize is the size of [Push] in bytes, and of the push constant
// range of the pipeline layout.
const PushSize = int(unsafe.Sizeof(Push{}))

// Ortho returns the push data for an orthographic projection that keeps
// [-1, 1] visible vertically and scales the horizontal range by the
// aspect ratio of the extent.
func Ortho(extent image.Point) Push {
	aspect := float32(1)
	if extent.Y > 0 {
		aspect = float32(extent.X) / float32(extent.Y)
	}
	return Push{Projection: mgl32.Ortho(-aspect, aspect, -1, 1, -1, 1)}
}

// Bytes returns the bytes of the push data, column major.
func (ps *Push) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ps)), PushSize)
}
