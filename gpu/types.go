// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

// Handles are opaque references to objects owned by a [Device].
// The zero value of every handle type is the null handle.
type (
	BufferHandle              uint64
	MemoryHandle              uint64
	ImageHandle               uint64
	ImageViewHandle           uint64
	SamplerHandle             uint64
	ShaderModuleHandle        uint64
	DescriptorSetLayoutHandle uint64
	DescriptorPoolHandle      uint64
	DescriptorSetHandle       uint64
	PipelineLayoutHandle      uint64
	PipelineHandle            uint64
	RenderPassHandle          uint64
)

// BufferUsages are bit flags for how a buffer will be used.
type BufferUsages int32

const (
	TransferSrc BufferUsages = 1 << iota
	TransferDst
	StorageUsage
	VertexUsage
	IndexUsage
	UniformUsage
)

// Has returns true if all of the given flags are set.
func (bu BufferUsages) Has(flags BufferUsages) bool {
	return bu&flags == flags
}

// MemoryProps are bit flags for the kind of memory backing a buffer.
type MemoryProps int32

const (
	// DeviceLocal memory is fastest for the GPU but is not host visible.
	DeviceLocal MemoryProps = 1 << iota

	// HostVisible memory can be mapped into the address space of the program.
	HostVisible

	// HostCoherent memory does not need explicit flushes after writes.
	HostCoherent
)

// Has returns true if all of the given flags are set.
func (mp MemoryProps) Has(flags MemoryProps) bool {
	return mp&flags == flags
}

// ShaderStages are bit flags for shader stages that use a resource.
type ShaderStages int32

const (
	VertexStage ShaderStages = 1 << iota
	FragmentStage
)

// DescriptorTypes are the kinds of resources bound through a descriptor.
type DescriptorTypes int32

const (
	StorageBuffer DescriptorTypes = iota
	CombinedImageSampler
	UniformBuffer
)

func (dt DescriptorTypes) String() string {
	switch dt {
	case StorageBuffer:
		return "StorageBuffer"
	case CombinedImageSampler:
		return "CombinedImageSampler"
	case UniformBuffer:
		return "UniformBuffer"
	}
	return "UnknownDescriptorType"
}

// BlendFactors are the multipliers in the color blend equation.
type BlendFactors int32

const (
	BlendZero BlendFactors = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

// BlendOps combine the weighted source and destination colors.
type BlendOps int32

const (
	BlendOpAdd BlendOps = iota
	BlendOpSubtract
)

// CullModes determine which triangle faces are discarded.
type CullModes int32

const (
	CullNone CullModes = iota
	CullFront
	CullBack
)

// FrontFaces is the winding order of a front facing triangle.
type FrontFaces int32

const (
	FrontFaceCCW FrontFaces = iota
	FrontFaceCW
)

// Topologies are the primitive assembly modes for vertex data.
type Topologies int32

const (
	TriangleList Topologies = iota
	TriangleStrip
	LineList
	PointList
)

// CompareOps are depth comparison functions.
type CompareOps int32

const (
	CompareNever CompareOps = iota
	CompareLess
	CompareLessOrEqual
	CompareAlways
)

// DynamicStates are pipeline states set on the command buffer
// at draw time instead of being baked into the pipeline.
type DynamicStates int32

const (
	DynamicViewport DynamicStates = iota
	DynamicScissor
)

// IndexTypes are the element types of an index buffer.
type IndexTypes int32

const (
	IndexUint16 IndexTypes = iota
	IndexUint32
)

// Bytes returns the size of one index.
func (it IndexTypes) Bytes() int {
	if it == IndexUint16 {
		return 2
	}
	return 4
}

// VertexFormats are the formats of vertex attributes.
type VertexFormats int32

const (
	Float32Vector2 VertexFormats = iota
	Float32Vector3
	Float32Vector4
)

// Bytes returns the size of one attribute of this format.
func (vf VertexFormats) Bytes() int {
	switch vf {
	case Float32Vector2:
		return 8
	case Float32Vector3:
		return 12
	}
	return 16
}

// SamplerModes determine what happens when sampling beyond the image edge.
type SamplerModes int32

const (
	// Repeat the texture when going beyond the image dimensions.
	Repeat SamplerModes = iota

	// Like repeat, but inverts the coordinates to mirror the image when going beyond the dimensions.
	MirroredRepeat

	// Take the color of the edge closest to the coordinate beyond the image dimensions.
	ClampToEdge
)

// Limits are the device limits that affect resource layout.
type Limits struct {
	// MinStorageBufferOffsetAlignment is the required alignment of
	// storage buffer offsets and sizes.
	MinStorageBufferOffsetAlignment int

	// MaxStorageBufferRange is the largest range bindable as a storage buffer.
	MaxStorageBufferRange int

	// MaxPushConstantsSize is the maximum size of all push constant ranges.
	MaxPushConstantsSize int
}

// MemSizeAlign returns the size aligned according to align byte increments
// e.g., if align = 16 and size = 12, it returns 16
func MemSizeAlign(size, align int) int {
	if align <= 1 || size%align == 0 {
		return size
	}
	nb := size / align
	return (nb + 1) * align
}
