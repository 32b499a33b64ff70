// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"log/slog"
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex is one vertex of a mesh, as laid out in the vertex buffer.
type Vertex struct {
	Pos      mgl32.Vec2
	Color    mgl32.Vec3
	TexCoord mgl32.Vec2
}

// VertexSize is the stride of [Vertex] in the vertex buffer.
const VertexSize = int(unsafe.Sizeof(Vertex{}))

// VertexLayout returns the vertex input description for [Vertex]:
// binding 0, with position, color and texture coordinates at
// locations 0, 1 and 2.
func VertexLayout() VertexInput {
	return VertexInput{
		Bindings: []VertexBinding{{Binding: 0, Stride: VertexSize}},
		Attributes: []VertexAttribute{
			{Location: 0, Binding: 0, Format: Float32Vector2, Offset: int(unsafe.Offsetof(Vertex{}.Pos))},
			{Location: 1, Binding: 0, Format: Float32Vector3, Offset: int(unsafe.Offsetof(Vertex{}.Color))},
			{Location: 2, Binding: 0, Format: Float32Vector2, Offset: int(unsafe.Offsetof(Vertex{}.TexCoord))},
		},
	}
}

// QuadVertices are the corners of the unit quad centered on the origin.
var QuadVertices = []Vertex{
	{Pos: mgl32.Vec2{-0.5, -0.5}, Color: mgl32.Vec3{1, 0, 0}, TexCoord: mgl32.Vec2{0, 0}},
	{Pos: mgl32.Vec2{0.5, -0.5}, Color: mgl32.Vec3{0, 1, 0}, TexCoord: mgl32.Vec2{1, 0}},
	{Pos: mgl32.Vec2{0.5, 0.5}, Color: mgl32.Vec3{0, 0, 1}, TexCoord: mgl32.Vec2{1, 1}},
	{Pos: mgl32.Vec2{-0.5, 0.5}, Color: mgl32.Vec3{1, 1, 1}, TexCoord: mgl32.Vec2{0, 1}},
}

// QuadIndices are the two triangles of the quad.
var QuadIndices = []uint32{0, 1, 2, 2, 3, 0}

// Mesh is an indexed triangle mesh in device local memory.
// A Mesh is shared: every holder takes a reference with [Mesh.Ref]
// and gives it back with [Mesh.Release]; the buffers are destroyed
// when the last reference is released.
type Mesh struct {
	Name string

	// VertexCount is the number of vertices.
	VertexCount int

	// IndexCount is the number of indices, 0 if not indexed.
	IndexCount int

	vertices *Buffer
	indices  *Buffer
	refs     atomic.Int32
}

// NewMesh uploads the vertices and indices to the device, returning
// a mesh holding one reference.
func NewMesh(dev Device, name string, vertices []Vertex, indices []uint32) (*Mesh, error) {
	if len(vertices) == 0 {
		return nil, NewPreconditionError("mesh %q has no vertices", name)
	}
	ms := &Mesh{Name: name, VertexCount: len(vertices), IndexCount: len(indices)}
	vb := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), len(vertices)*VertexSize)
	var err error
	ms.vertices, err = NewDeviceBuffer(dev, name+".vertices", vb, VertexUsage, 1)
	if err != nil {
		return nil, err
	}
	if len(indices) > 0 {
		ib := unsafe.Slice((*byte)(unsafe.Pointer(&indices[0])), len(indices)*4)
		ms.indices, err = NewDeviceBuffer(dev, name+".indices", ib, IndexUsage, 1)
		if err != nil {
			ms.vertices.Destroy()
			return nil, err
		}
	}
	ms.refs.Store(1)
	return ms, nil
}

// NewQuadMesh returns the shared sprite quad: 4 vertices and 6 indices.
func NewQuadMesh(dev Device) (*Mesh, error) {
	return NewMesh(dev, "quad", QuadVertices, QuadIndices)
}

// Ref takes a new reference to the mesh and returns it.
func (ms *Mesh) Ref() *Mesh {
	ms.refs.Add(1)
	return ms
}

// Refs returns the current number of references.
func (ms *Mesh) Refs() int {
	return int(ms.refs.Load())
}

// Release gives back a reference, destroying the device buffers when
// none remain. It returns true if the mesh was destroyed.
func (ms *Mesh) Release() bool {
	n := ms.refs.Add(-1)
	switch {
	case n > 0:
		return false
	case n < 0:
		slog.Error("gpu.Mesh: released more often than referenced", "mesh", ms.Name)
		return false
	}
	ms.vertices.Destroy()
	ms.indices.Destroy()
	slog.Debug("gpu.Mesh destroyed", "mesh", ms.Name)
	return true
}

// Valid returns true if the mesh still has its device buffers.
func (ms *Mesh) Valid() bool {
	return ms != nil && ms.vertices != nil && ms.vertices.Handle != 0
}

// Bind binds the vertex and index buffers.
func (ms *Mesh) Bind(cmd CommandBuffer) {
	cmd.BindVertexBuffers(0, []BufferHandle{ms.vertices.Handle}, []int{0})
	if ms.indices != nil {
		cmd.BindIndexBuffer(ms.indices.Handle, 0, IndexUint32)
	}
}

// Draw draws instances copies of the mesh; Bind must have been called.
func (ms *Mesh) Draw(cmd CommandBuffer, instances int) {
	if ms.indices != nil {
		cmd.DrawIndexed(ms.IndexCount, instances, 0, 0, 0)
		return
	}
	cmd.Draw(ms.VertexCount, instances, 0, 0)
}
