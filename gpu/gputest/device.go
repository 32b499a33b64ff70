// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gputest provides an in-memory [gpu.Device] and
// [gpu.CommandBuffer] that record what is done to them, for tests
// that need no GPU.
package gputest

import (
	"fmt"
	"image"
	"slices"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/vsprite/gpu"
)

// Buffer is the state of a buffer created on a [Device].
// Data is the actual content, so uploads can be checked.
type Buffer struct {
	Size   int
	Usage  gpu.BufferUsages
	Props  gpu.MemoryProps
	Memory gpu.MemoryHandle
	Data   []byte
	Mapped bool
}

// Pool is the state of a descriptor pool.
type Pool struct {
	MaxSets int
	Sizes   []gpu.DescriptorPoolSize
	Sets    []gpu.DescriptorSetHandle
}

// PipelineLayout is the state of a pipeline layout.
type PipelineLayout struct {
	Sets []gpu.DescriptorSetLayoutHandle
	Push []gpu.PushConstantRange
}

// Texture is the state of a texture.
type Texture struct {
	Handles gpu.TextureHandles
	Size    image.Point
	Sampler gpu.SamplerDesc
}

// Device is a [gpu.Device] that keeps everything in memory.
// Every call is appended to Calls by method name, and a method
// listed in Fail returns the given error instead of doing anything.
type Device struct {
	// Calls are the names of the methods called, in order.
	Calls []string

	// Fail maps method names to errors they return.
	Fail map[string]error

	// DeviceLimits is returned by Limits.
	DeviceLimits gpu.Limits

	Buffers         map[gpu.BufferHandle]*Buffer
	Shaders         map[gpu.ShaderModuleHandle][]byte
	SetLayouts      map[gpu.DescriptorSetLayoutHandle][]gpu.DescriptorBinding
	PipelineLayouts map[gpu.PipelineLayoutHandle]*PipelineLayout
	Pools           map[gpu.DescriptorPoolHandle]*Pool
	Sets            map[gpu.DescriptorSetHandle]map[int]gpu.DescriptorWrite
	Pipelines       map[gpu.PipelineHandle]*gpu.GraphicsPipelineDesc
	Textures        map[gpu.ImageHandle]*Texture

	next uint64
}

// NewDevice returns a new empty device with a 256 byte storage
// buffer alignment.
func NewDevice() *Device {
	return &Device{
		Fail:            map[string]error{},
		DeviceLimits:    gpu.Limits{MinStorageBufferOffsetAlignment: 256, MaxStorageBufferRange: 1 << 27, MaxPushConstantsSize: 128},
		Buffers:         map[gpu.BufferHandle]*Buffer{},
		Shaders:         map[gpu.ShaderModuleHandle][]byte{},
		SetLayouts:      map[gpu.DescriptorSetLayoutHandle][]gpu.DescriptorBinding{},
		PipelineLayouts: map[gpu.PipelineLayoutHandle]*PipelineLayout{},
		Pools:           map[gpu.DescriptorPoolHandle]*Pool{},
		Sets:            map[gpu.DescriptorSetHandle]map[int]gpu.DescriptorWrite{},
		Pipelines:       map[gpu.PipelineHandle]*gpu.GraphicsPipelineDesc{},
		Textures:        map[gpu.ImageHandle]*Texture{},
	}
}

func (dv *Device) call(name string) error {
	dv.Calls = append(dv.Calls, name)
	return dv.Fail[name]
}

func (dv *Device) handle() uint64 {
	dv.next++
	return dv.next
}

// Count returns the number of times the named method was called.
func (dv *Device) Count(name string) int {
	n := 0
	for _, c := range dv.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// CallsSince returns the calls made after the first n.
func (dv *Device) CallsSince(n int) []string {
	return slices.Clone(dv.Calls[n:])
}

// Live returns the total number of objects still alive on the device.
func (dv *Device) Live() int {
	return len(dv.Buffers) + len(dv.Shaders) + len(dv.SetLayouts) + len(dv.PipelineLayouts) +
		len(dv.Pools) + len(dv.Pipelines) + len(dv.Textures)
}

// BufferData returns the content of the buffer, or nil if it does not exist.
func (dv *Device) BufferData(h gpu.BufferHandle) []byte {
	bf, ok := dv.Buffers[h]
	if !ok {
		return nil
	}
	return bf.Data
}

func (dv *Device) CreateBuffer(size int, usage gpu.BufferUsages, props gpu.MemoryProps) (gpu.BufferHandle, gpu.MemoryHandle, error) {
	if err := dv.call("CreateBuffer"); err != nil {
		return 0, 0, err
	}
	h := gpu.BufferHandle(dv.handle())
	mem := gpu.MemoryHandle(dv.handle())
	dv.Buffers[h] = &Buffer{Size: size, Usage: usage, Props: props, Memory: mem, Data: make([]byte, size)}
	return h, mem, nil
}

func (dv *Device) DestroyBuffer(buf gpu.BufferHandle, mem gpu.MemoryHandle) {
	dv.call("DestroyBuffer")
	bf, ok := dv.Buffers[buf]
	if !ok || bf.Memory != mem {
		panic(fmt.Sprintf("gputest: DestroyBuffer of unknown buffer %d / memory %d", buf, mem))
	}
	delete(dv.Buffers, buf)
}

func (dv *Device) memBuffer(mem gpu.MemoryHandle) *Buffer {
	for _, bf := range dv.Buffers {
		if bf.Memory == mem {
			return bf
		}
	}
	return nil
}

func (dv *Device) MapMemory(mem gpu.MemoryHandle, size int) ([]byte, error) {
	if err := dv.call("MapMemory"); err != nil {
		return nil, err
	}
	bf := dv.memBuffer(mem)
	switch {
	case bf == nil:
		return nil, errors.New("gputest: MapMemory of unknown memory")
	case !bf.Props.Has(gpu.HostVisible):
		return nil, errors.New("gputest: MapMemory of memory that is not host visible")
	case bf.Mapped:
		return nil, errors.New("gputest: memory already mapped")
	case size > bf.Size:
		return nil, fmt.Errorf("gputest: MapMemory of %d bytes beyond size %d", size, bf.Size)
	}
	bf.Mapped = true
	return bf.Data[:size], nil
}

func (dv *Device) UnmapMemory(mem gpu.MemoryHandle) {
	dv.call("UnmapMemory")
	if bf := dv.memBuffer(mem); bf != nil {
		bf.Mapped = false
	}
}

func (dv *Device) CopyBuffer(src, dst gpu.BufferHandle, size int) error {
	if err := dv.call("CopyBuffer"); err != nil {
		return err
	}
	sb, dbf := dv.Buffers[src], dv.Buffers[dst]
	switch {
	case sb == nil || dbf == nil:
		return errors.New("gputest: CopyBuffer with unknown buffer")
	case !sb.Usage.Has(gpu.TransferSrc) || !dbf.Usage.Has(gpu.TransferDst):
		return errors.New("gputest: CopyBuffer without transfer usage")
	case size > sb.Size || size > dbf.Size:
		return fmt.Errorf("gputest: CopyBuffer of %d bytes out of range", size)
	}
	copy(dbf.Data[:size], sb.Data[:size])
	return nil
}

func (dv *Device) Limits() gpu.Limits {
	return dv.DeviceLimits
}

func (dv *Device) CreateShaderModule(code []byte) (gpu.ShaderModuleHandle, error) {
	if err := dv.call("CreateShaderModule"); err != nil {
		return 0, err
	}
	h := gpu.ShaderModuleHandle(dv.handle())
	dv.Shaders[h] = slices.Clone(code)
	return h, nil
}

func (dv *Device) DestroyShaderModule(sm gpu.ShaderModuleHandle) {
	dv.call("DestroyShaderModule")
	delete(dv.Shaders, sm)
}

func (dv *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayoutHandle, error) {
	if err := dv.call("CreateDescriptorSetLayout"); err != nil {
		return 0, err
	}
	h := gpu.DescriptorSetLayoutHandle(dv.handle())
	dv.SetLayouts[h] = slices.Clone(bindings)
	return h, nil
}

func (dv *Device) DestroyDescriptorSetLayout(dl gpu.DescriptorSetLayoutHandle) {
	dv.call("DestroyDescriptorSetLayout")
	delete(dv.SetLayouts, dl)
}

func (dv *Device) CreatePipelineLayout(sets []gpu.DescriptorSetLayoutHandle, push []gpu.PushConstantRange) (gpu.PipelineLayoutHandle, error) {
	if err := dv.call("CreatePipelineLayout"); err != nil {
		return 0, err
	}
	h := gpu.PipelineLayoutHandle(dv.handle())
	dv.PipelineLayouts[h] = &PipelineLayout{Sets: slices.Clone(sets), Push: slices.Clone(push)}
	return h, nil
}

func (dv *Device) DestroyPipelineLayout(pl gpu.PipelineLayoutHandle) {
	dv.call("DestroyPipelineLayout")
	delete(dv.PipelineLayouts, pl)
}

func (dv *Device) CreateDescriptorPool(maxSets int, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPoolHandle, error) {
	if err := dv.call("CreateDescriptorPool"); err != nil {
		return 0, err
	}
	h := gpu.DescriptorPoolHandle(dv.handle())
	dv.Pools[h] = &Pool{MaxSets: maxSets, Sizes: slices.Clone(sizes)}
	return h, nil
}

func (dv *Device) DestroyDescriptorPool(dp gpu.DescriptorPoolHandle) {
	dv.call("DestroyDescriptorPool")
	if pl, ok := dv.Pools[dp]; ok {
		for _, st := range pl.Sets {
			delete(dv.Sets, st)
		}
	}
	delete(dv.Pools, dp)
}

func (dv *Device) AllocateDescriptorSet(pool gpu.DescriptorPoolHandle, layout gpu.DescriptorSetLayoutHandle) (gpu.DescriptorSetHandle, error) {
	if err := dv.call("AllocateDescriptorSet"); err != nil {
		return 0, err
	}
	pl, ok := dv.Pools[pool]
	if !ok {
		return 0, errors.New("gputest: AllocateDescriptorSet from unknown pool")
	}
	if _, ok := dv.SetLayouts[layout]; !ok {
		return 0, errors.New("gputest: AllocateDescriptorSet with unknown layout")
	}
	if len(pl.Sets) >= pl.MaxSets {
		return 0, errors.New("gputest: out of pool memory")
	}
	h := gpu.DescriptorSetHandle(dv.handle())
	pl.Sets = append(pl.Sets, h)
	dv.Sets[h] = map[int]gpu.DescriptorWrite{}
	return h, nil
}

func (dv *Device) UpdateDescriptorSet(set gpu.DescriptorSetHandle, writes []gpu.DescriptorWrite) {
	dv.call("UpdateDescriptorSet")
	st, ok := dv.Sets[set]
	if !ok {
		panic(fmt.Sprintf("gputest: UpdateDescriptorSet of unknown set %d", set))
	}
	for _, w := range writes {
		st[w.Binding] = w
	}
}

func (dv *Device) CreateGraphicsPipeline(desc *gpu.GraphicsPipelineDesc) (gpu.PipelineHandle, error) {
	if err := dv.call("CreateGraphicsPipeline"); err != nil {
		return 0, err
	}
	for _, st := range desc.Stages {
		if _, ok := dv.Shaders[st.Module]; !ok {
			return 0, errors.New("gputest: pipeline stage with unknown shader module")
		}
	}
	if _, ok := dv.PipelineLayouts[desc.Layout]; !ok {
		return 0, errors.New("gputest: pipeline with unknown layout")
	}
	h := gpu.PipelineHandle(dv.handle())
	cp := *desc
	dv.Pipelines[h] = &cp
	return h, nil
}

func (dv *Device) DestroyPipeline(pl gpu.PipelineHandle) {
	dv.call("DestroyPipeline")
	delete(dv.Pipelines, pl)
}

func (dv *Device) CreateTexture(img *image.RGBA, sampler gpu.SamplerDesc) (gpu.TextureHandles, error) {
	if err := dv.call("CreateTexture"); err != nil {
		return gpu.TextureHandles{}, err
	}
	th := gpu.TextureHandles{
		Image:   gpu.ImageHandle(dv.handle()),
		Memory:  gpu.MemoryHandle(dv.handle()),
		View:    gpu.ImageViewHandle(dv.handle()),
		Sampler: gpu.SamplerHandle(dv.handle()),
	}
	dv.Textures[th.Image] = &Texture{Handles: th, Size: img.Bounds().Size(), Sampler: sampler}
	return th, nil
}

func (dv *Device) DestroyTexture(th gpu.TextureHandles) {
	dv.call("DestroyTexture")
	delete(dv.Textures, th.Image)
}

func (dv *Device) WaitIdle() error {
	return dv.call("WaitIdle")
}
