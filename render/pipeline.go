// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"log/slog"

	"cogentcore.org/vsprite/gpu"
	"cogentcore.org/vsprite/sprite"
)

// PoolCapacity is the fixed number of descriptor sets, and of each
// kind of descriptor, in the pool of a [Pipeline]. It is never grown.
const PoolCapacity = 1000

// Binding slots of the sprite descriptor set.
const (
	// InstanceBinding is the storage buffer of [sprite.InstanceRecord]s.
	InstanceBinding = 0

	// TextureBinding is the combined image sampler of the sprite texture.
	TextureBinding = 1
)

// SetBindings are the bindings of the sprite descriptor set layout.
var SetBindings = []gpu.DescriptorBinding{
	{Binding: InstanceBinding, Type: gpu.StorageBuffer, Count: 1, Stages: gpu.VertexStage},
	{Binding: TextureBinding, Type: gpu.CombinedImageSampler, Count: 1, Stages: gpu.FragmentStage},
}

// PushStages are the shader stages that read the [Push] data.
const PushStages = gpu.VertexStage | gpu.FragmentStage

// Pipeline is the graphics pipeline for instanced sprites, together with
// its layouts and the descriptor pool that sets binding the instance
// buffer and texture are allocated from. It is immutable once created,
// except for the texture it loads and owns.
type Pipeline struct {
	// Name is used in diagnostics.
	Name string

	VertShader *gpu.Shader
	FragShader *gpu.Shader

	// Handle is the device pipeline.
	Handle gpu.PipelineHandle

	// Desc is the description the pipeline was created from.
	Desc gpu.GraphicsPipelineDesc

	layout    gpu.PipelineLayoutHandle
	setLayout gpu.DescriptorSetLayoutHandle
	pool      gpu.DescriptorPoolHandle

	// descriptors allocated from the pool so far, per type
	allocated map[gpu.DescriptorTypes]int
	sets      int

	texture *gpu.Texture
	device  gpu.Device
}

// NewPipeline creates the sprite pipeline from the compiled vertex and
// fragment programs at the given paths, compatible with target.
// Failures are fatal: everything created so far is destroyed and the
// error, of kind [gpu.ErrIO] or [gpu.ErrResourceCreation], is returned.
func NewPipeline(dev gpu.Device, vertPath, fragPath string, target gpu.RenderTarget) (*Pipeline, error) {
	pl := &Pipeline{Name: "sprites", device: dev, allocated: map[gpu.DescriptorTypes]int{}}
	if err := pl.create(vertPath, fragPath, target); err != nil {
		pl.Destroy()
		return nil, err
	}
	slog.Info("render.Pipeline created", "pipeline", pl.Name, "vert", vertPath, "frag", fragPath)
	return pl, nil
}

func (pl *Pipeline) create(vertPath, fragPath string, target gpu.RenderTarget) error {
	dev := pl.device
	var err error
	pl.VertShader, err = gpu.OpenShader(dev, pl.Name+".vert", gpu.VertexStage, vertPath)
	if err != nil {
		return err
	}
	pl.FragShader, err = gpu.OpenShader(dev, pl.Name+".frag", gpu.FragmentStage, fragPath)
	if err != nil {
		return err
	}

	pl.setLayout, err = dev.CreateDescriptorSetLayout(SetBindings)
	if err != nil {
		return gpu.NewResourceError("descriptor set layout", err)
	}
	slog.Debug("render.Pipeline descriptor set layout created", "bindings", len(SetBindings))

	pushSize := gpu.MemSizeAlign(PushSize, 4)
	if mx := dev.Limits().MaxPushConstantsSize; mx > 0 && pushSize > mx {
		return gpu.NewResourceError("pipeline layout", fmt.Errorf("push constants of %d bytes exceed the device maximum of %d", pushSize, mx))
	}
	push := []gpu.PushConstantRange{{Stages: PushStages, Offset: 0, Size: pushSize}}
	pl.layout, err = dev.CreatePipelineLayout([]gpu.DescriptorSetLayoutHandle{pl.setLayout}, push)
	if err != nil {
		return gpu.NewResourceError("pipeline layout", err)
	}

	sizes := []gpu.DescriptorPoolSize{
		{Type: gpu.CombinedImageSampler, Count: PoolCapacity},
		{Type: gpu.StorageBuffer, Count: PoolCapacity},
	}
	pl.pool, err = dev.CreateDescriptorPool(PoolCapacity, sizes)
	if err != nil {
		return gpu.NewResourceError("descriptor pool", err)
	}
	slog.Debug("render.Pipeline descriptor pool created", "capacity", PoolCapacity)

	if target.Samples == 0 {
		target.Samples = 1
	}
	pl.Desc = gpu.GraphicsPipelineDesc{
		Name:        pl.Name,
		Stages:      []gpu.ShaderStageDesc{pl.VertShader.StageDesc(), pl.FragShader.StageDesc()},
		VertexInput: gpu.VertexLayout(),
		Topology:    gpu.TriangleList,
		Raster: gpu.RasterState{
			CullMode:  gpu.CullNone,
			FrontFace: gpu.FrontFaceCW,
			LineWidth: 1,
		},
		Blend:         gpu.AlphaBlend,
		Depth:         gpu.DepthState{CompareOp: gpu.CompareLess},
		DynamicStates: []gpu.DynamicStates{gpu.DynamicViewport, gpu.DynamicScissor},
		Layout:        pl.layout,
		Target:        target,
	}
	pl.Handle, err = dev.CreateGraphicsPipeline(&pl.Desc)
	if err != nil {
		return gpu.NewResourceError("graphics pipeline "+pl.Name, err)
	}
	return nil
}

// Bind binds the pipeline for subsequent draw commands.
func (pl *Pipeline) Bind(cmd gpu.CommandBuffer) {
	cmd.BindPipeline(pl.Handle)
}

// Layout returns the pipeline layout: one descriptor set and one
// push constant range of [PushSize] bytes.
func (pl *Pipeline) Layout() gpu.PipelineLayoutHandle {
	return pl.layout
}

// SetLayout returns the layout of the sprite descriptor set.
func (pl *Pipeline) SetLayout() gpu.DescriptorSetLayoutHandle {
	return pl.setLayout
}

// Device returns the device the pipeline was created on.
func (pl *Pipeline) Device() gpu.Device {
	return pl.device
}

// Texture returns the texture loaded by [Pipeline.LoadSprites], if any.
func (pl *Pipeline) Texture() *gpu.Texture {
	return pl.texture
}

// PoolUsage returns the number of descriptor sets allocated so far.
func (pl *Pipeline) PoolUsage() int {
	return pl.sets
}

// AllocateDescriptorSet allocates a sprite descriptor set from the pool,
// using one descriptor of each type of [SetBindings]. It fails with
// [gpu.ErrPoolExhausted] once the capacity of the pool is reached,
// without asking the device.
func (pl *Pipeline) AllocateDescriptorSet() (gpu.DescriptorSetHandle, error) {
	if pl.pool == 0 {
		return 0, gpu.NewPreconditionError("descriptor set allocated from destroyed pipeline %q", pl.Name)
	}
	full := pl.sets >= PoolCapacity
	for _, b := range SetBindings {
		if pl.allocated[b.Type]+b.Count > PoolCapacity {
			full = true
		}
	}
	if full {
		return 0, &gpu.ResourceError{Kind: gpu.ErrResourceCreation, Object: "descriptor set of " + pl.Name, Err: gpu.ErrPoolExhausted}
	}
	set, err := pl.device.AllocateDescriptorSet(pl.pool, pl.setLayout)
	if err != nil {
		return 0, gpu.NewResourceError("descriptor set of "+pl.Name, err)
	}
	pl.sets++
	for _, b := range SetBindings {
		pl.allocated[b.Type] += b.Count
	}
	return set, nil
}

// LoadOptions configure the initial sprite population.
type LoadOptions struct {
	// Count is the number of sprites.
	Count int

	// Seed of the generator for positions and velocities.
	Seed uint32

	// TexturePath is the image file of the texture shared by all sprites.
	TexturePath string
}

// LoadSprites fills pop with opts.Count sprites sharing a new quad mesh
// and the texture at opts.TexturePath, which is loaded on first use and
// owned by the pipeline. The sprites hold the only references to the mesh.
// It fails with [gpu.ErrPrecondition] once pop is frozen.
func (pl *Pipeline) LoadSprites(pop *sprite.Population, opts LoadOptions) error {
	if pop.Frozen() {
		return gpu.NewPreconditionError("sprites loaded after the instance buffer was sized for %d", pop.Len())
	}
	if opts.Count <= 0 {
		return gpu.NewPreconditionError("sprite count %d", opts.Count)
	}
	if pl.texture == nil {
		tx, err := gpu.OpenTexture(pl.device, opts.TexturePath)
		if err != nil {
			return err
		}
		pl.texture = tx
	}
	mesh, err := gpu.NewQuadMesh(pl.device)
	if err != nil {
		return err
	}
	sprites := sprite.Generate(opts.Count, sprite.NewRand(opts.Seed), mesh, pl.texture)
	mesh.Release()
	if err := pop.Set(sprites); err != nil {
		for i := range sprites {
			sprites[i].Mesh.Release()
		}
		return err
	}
	return nil
}

// Destroy destroys the shader modules, pipeline, pipeline layout,
// descriptor set layout and descriptor pool, in that order, and then
// the texture. It is safe to call more than once.
func (pl *Pipeline) Destroy() {
	dev := pl.device
	pl.VertShader.Destroy()
	pl.FragShader.Destroy()
	if pl.Handle != 0 {
		dev.DestroyPipeline(pl.Handle)
		pl.Handle = 0
		slog.Info("render.Pipeline destroyed", "pipeline", pl.Name)
	}
	if pl.layout != 0 {
		dev.DestroyPipelineLayout(pl.layout)
		pl.layout = 0
	}
	if pl.setLayout != 0 {
		dev.DestroyDescriptorSetLayout(pl.setLayout)
		pl.setLayout = 0
	}
	if pl.pool != 0 {
		dev.DestroyDescriptorPool(pl.pool)
		pl.pool = 0
		pl.sets = 0
		clear(pl.allocated)
	}
	if pl.texture != nil {
		pl.texture.Destroy()
		pl.texture = nil
	}
}
