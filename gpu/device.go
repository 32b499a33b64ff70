// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"image"
)

// Device allocates GPU objects and moves memory between the host and the GPU.
// Implementations never silently truncate: every failure, including
// running out of memory, is returned as an error.
// All methods are called from a single thread.
type Device interface {
	// CreateBuffer creates a buffer of given size and usage, backed by
	// newly allocated memory with the given properties.
	CreateBuffer(size int, usage BufferUsages, props MemoryProps) (BufferHandle, MemoryHandle, error)

	// DestroyBuffer destroys the buffer and frees its memory.
	DestroyBuffer(buf BufferHandle, mem MemoryHandle)

	// MapMemory maps size bytes of host visible memory.
	// The returned slice is only valid until UnmapMemory.
	MapMemory(mem MemoryHandle, size int) ([]byte, error)

	// UnmapMemory unmaps memory previously mapped with MapMemory.
	UnmapMemory(mem MemoryHandle)

	// CopyBuffer copies size bytes from src to dst on the device,
	// and waits for the copy to complete.
	CopyBuffer(src, dst BufferHandle, size int) error

	// Limits returns the device limits.
	Limits() Limits

	CreateShaderModule(code []byte) (ShaderModuleHandle, error)
	DestroyShaderModule(sm ShaderModuleHandle)

	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayoutHandle, error)
	DestroyDescriptorSetLayout(dl DescriptorSetLayoutHandle)

	CreatePipelineLayout(sets []DescriptorSetLayoutHandle, push []PushConstantRange) (PipelineLayoutHandle, error)
	DestroyPipelineLayout(pl PipelineLayoutHandle)

	CreateDescriptorPool(maxSets int, sizes []DescriptorPoolSize) (DescriptorPoolHandle, error)
	DestroyDescriptorPool(dp DescriptorPoolHandle)

	// AllocateDescriptorSet allocates one descriptor set from the pool.
	// Sets are freed when their pool is destroyed.
	AllocateDescriptorSet(pool DescriptorPoolHandle, layout DescriptorSetLayoutHandle) (DescriptorSetHandle, error)

	// UpdateDescriptorSet writes resource bindings into the set.
	UpdateDescriptorSet(set DescriptorSetHandle, writes []DescriptorWrite)

	CreateGraphicsPipeline(desc *GraphicsPipelineDesc) (PipelineHandle, error)
	DestroyPipeline(pl PipelineHandle)

	// CreateTexture uploads the image into a device local image in
	// shader read only layout, and creates a view and sampler for it.
	CreateTexture(img *image.RGBA, sampler SamplerDesc) (TextureHandles, error)
	DestroyTexture(th TextureHandles)

	// WaitIdle waits until the device has finished all submitted work.
	WaitIdle() error
}

// CommandBuffer records drawing commands between the start and
// end of a render pass.
type CommandBuffer interface {
	BindPipeline(pl PipelineHandle)
	BindVertexBuffers(first int, bufs []BufferHandle, offsets []int)
	BindIndexBuffer(buf BufferHandle, offset int, typ IndexTypes)
	BindDescriptorSets(layout PipelineLayoutHandle, first int, sets ...DescriptorSetHandle)
	PushConstants(layout PipelineLayoutHandle, stages ShaderStages, offset int, data []byte)
	SetViewport(vp Viewport)
	SetScissor(rect image.Rectangle)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance int)
	DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int)
}

// Viewport is the region of the render target that is drawn to.
type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

// ViewportForExtent returns a viewport covering the full extent.
func ViewportForExtent(extent image.Point) Viewport {
	return Viewport{Width: float32(extent.X), Height: float32(extent.Y), MaxDepth: 1}
}

// DescriptorBinding describes one binding slot of a descriptor set layout.
type DescriptorBinding struct {
	Binding int
	Type    DescriptorTypes
	Count   int
	Stages  ShaderStages
}

// DescriptorPoolSize is the number of descriptors of a type in a pool.
type DescriptorPoolSize struct {
	Type  DescriptorTypes
	Count int
}

// PushConstantRange is a range of push constant memory visible to stages.
type PushConstantRange struct {
	Stages ShaderStages
	Offset int
	Size   int
}

// ImageLayouts are the layouts an image can be in when bound.
type ImageLayouts int32

const (
	LayoutUndefined ImageLayouts = iota
	LayoutShaderReadOnly
)

// DescriptorWrite binds either a buffer range or an image and sampler
// to a binding of a descriptor set.
type DescriptorWrite struct {
	Binding int
	Type    DescriptorTypes

	// Buffer range, for buffer descriptor types.
	Buffer BufferHandle
	Offset int
	Range  int

	// Image view and sampler, for image descriptor types.
	View    ImageViewHandle
	Sampler SamplerHandle
	Layout  ImageLayouts
}

// SamplerDesc configures a texture sampler.
type SamplerDesc struct {
	UMode, VMode SamplerModes
	Linear       bool
}

// DefaultSampler is linear filtering with repeat addressing.
var DefaultSampler = SamplerDesc{UMode: Repeat, VMode: Repeat, Linear: true}

// TextureHandles are the device objects that make up a texture.
type TextureHandles struct {
	Image   ImageHandle
	Memory  MemoryHandle
	View    ImageViewHandle
	Sampler SamplerHandle
}

// IsNil returns true if no image has been created.
func (th TextureHandles) IsNil() bool {
	return th.Image == 0
}
