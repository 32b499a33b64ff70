// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render draws a population of sprites with a single instanced
// draw call per frame.
package render

import (
	"image"
	"log/slog"
	"math"

	"cogentcore.org/core/base/errors"

	"cogentcore.org/vsprite/gpu"
	"cogentcore.org/vsprite/sprite"
)

// Frames begins and ends the frames of a swapchain.
type Frames interface {
	// BeginFrame waits until the previous frame has finished on the
	// device, and begins the render pass of the next one. It returns
	// false if no frame can be drawn now.
	BeginFrame() (gpu.CommandBuffer, bool, error)

	// EndFrame submits and presents the frame begun by BeginFrame.
	EndFrame() error
}

// Viewport provides the current drawable extent of the render target.
type Viewport interface {
	Extent() image.Point
}

// SystemOptions are the shader programs of the sprite pipeline.
type SystemOptions struct {
	// VertShader is the path of the compiled vertex program.
	VertShader string

	// FragShader is the path of the compiled fragment program.
	FragShader string
}

// Stats are counters of the work done by a [System].
type Stats struct {
	// Frames is the number of frames drawn.
	Frames int

	// Degraded is the number of frames skipped because something
	// needed for drawing was missing.
	Degraded int

	// Uploads is the number of uploads of the instance buffer.
	Uploads int
}

// System renders a [sprite.Population] as instances of one quad mesh
// with one texture. It goes through three phases, in order:
// [NewSystem] creates the [Pipeline]; [System.Initialize] creates the
// instance buffer and descriptor set for the loaded sprites; then every
// frame calls [System.UpdateSprites] and [System.RenderSprites], which
// [System.DrawFrame] does in the required order. Updates overwrite the
// instance buffer, so they must follow the wait on the previous frame's
// fence. A System is used from a single goroutine, between the frame
// synchronization points of the swapchain.
type System struct {
	population sprite.Population
	pipeline   *Pipeline

	// mesh is the reference to the quad mesh held by the system
	mesh *gpu.Mesh

	instances *gpu.Buffer
	set       gpu.DescriptorSetHandle

	viewport    Viewport
	device      gpu.Device
	initialized bool
	destroyed   bool
	stats       Stats
}

// NewSystem creates the sprite pipeline for target. The viewport
// is asked for its extent every frame.
func NewSystem(dev gpu.Device, viewport Viewport, target gpu.RenderTarget, opts SystemOptions) (*System, error) {
	pl, err := NewPipeline(dev, opts.VertShader, opts.FragShader, target)
	if err != nil {
		return nil, err
	}
	return &System{pipeline: pl, viewport: viewport, device: dev}, nil
}

// LoadSprites loads the initial sprite population, see [Pipeline.LoadSprites].
// It must be called before [System.Initialize].
func (sy *System) LoadSprites(opts LoadOptions) error {
	if sy.initialized {
		return gpu.NewPreconditionError("sprites loaded after initialize")
	}
	if err := sy.pipeline.LoadSprites(&sy.population, opts); err != nil {
		return err
	}
	if sy.mesh != nil {
		sy.mesh.Release()
	}
	sy.mesh = sy.population.Mesh().Ref()
	return nil
}

// Initialize uploads the instance records of the loaded sprites into
// a new storage buffer sized exactly for them, and writes the
// descriptor set binding that buffer and the texture. The population
// is frozen from then on. It fails with [gpu.ErrPrecondition] if there
// are no sprites or no texture, or if the system is already initialized.
func (sy *System) Initialize() error {
	switch {
	case sy.destroyed:
		return gpu.NewPreconditionError("initialize after destroy")
	case sy.initialized:
		return gpu.NewPreconditionError("initialize called twice, instance buffer already sized for %d sprites", sy.population.Len())
	case sy.population.Len() == 0:
		return gpu.NewPreconditionError("initialize with no sprites")
	case sy.pipeline.Texture() == nil:
		return gpu.NewPreconditionError("initialize with no texture")
	}
	data := sprite.EncodeRecords(sy.population.Records())
	lim := sy.device.Limits()
	if lim.MaxStorageBufferRange > 0 && len(data) > lim.MaxStorageBufferRange {
		return gpu.NewResourceError("sprite instances", errors.New("instance data exceeds the maximum storage buffer range"))
	}
	ib, err := gpu.NewDeviceBuffer(sy.device, "sprite instances", data, gpu.StorageUsage, lim.MinStorageBufferOffsetAlignment)
	if err != nil {
		return err
	}
	sy.instances = ib
	sy.stats.Uploads++
	if err := sy.writeDescriptorSet(); err != nil {
		sy.instances.Destroy()
		sy.instances = nil
		return err
	}
	sy.population.Freeze()
	sy.initialized = true
	slog.Info("render.System initialized", "sprites", sy.population.Len(), "instanceBytes", ib.Size, "recordBytes", sprite.InstanceRecordSize)
	return nil
}

// writeDescriptorSet allocates the descriptor set if needed and binds
// the whole instance buffer and the texture to it.
func (sy *System) writeDescriptorSet() error {
	if sy.instances == nil {
		return gpu.NewPreconditionError("descriptor set written before the instance buffer exists")
	}
	tx := sy.pipeline.Texture()
	if !tx.Valid() {
		return gpu.NewPreconditionError("descriptor set written with no texture")
	}
	if sy.set == 0 {
		set, err := sy.pipeline.AllocateDescriptorSet()
		if err != nil {
			return err
		}
		sy.set = set
	}
	sy.device.UpdateDescriptorSet(sy.set, []gpu.DescriptorWrite{
		{Binding: InstanceBinding, Type: gpu.StorageBuffer, Buffer: sy.instances.Handle, Offset: 0, Range: sy.instances.Size},
		{Binding: TextureBinding, Type: gpu.CombinedImageSampler, View: tx.View(), Sampler: tx.Sampler(), Layout: gpu.LayoutShaderReadOnly},
	})
	return nil
}

// UpdateSprites moves every sprite by its velocity times dt, and uploads
// all of the instance records again. There is no partial update.
func (sy *System) UpdateSprites(dt float32) error {
	if !sy.initialized {
		return gpu.NewPreconditionError("update before initialize")
	}
	sy.population.Step(dt)
	if err := gpu.Upload(sy.instances, sprite.EncodeRecords(sy.population.Records())); err != nil {
		return err
	}
	sy.stats.Uploads++
	return nil
}

// DrawFrame draws one frame on fr: it begins the frame, and only then
// moves the sprites by dt and uploads them, so that the upload never
// overwrites instance data still read by the previous frame. It returns
// false if fr had no frame to draw, in which case the sprites are not moved.
func (sy *System) DrawFrame(fr Frames, dt float32) (bool, error) {
	cmd, ok, err := fr.BeginFrame()
	if err != nil || !ok {
		return false, err
	}
	if err := sy.UpdateSprites(dt); err != nil {
		errors.Log(fr.EndFrame())
		return false, err
	}
	sy.RenderSprites(cmd)
	return true, fr.EndFrame()
}

// RenderSprites records the draw of all sprites into cmd, which must be
// within a render pass compatible with the pipeline. If anything needed
// is missing the frame is skipped with a diagnostic, and no draw is
// recorded.
func (sy *System) RenderSprites(cmd gpu.CommandBuffer) {
	if sy.destroyed {
		sy.degrade("system destroyed")
		return
	}
	sy.pipeline.Bind(cmd)
	n := sy.population.Len()
	var ext image.Point
	if sy.viewport != nil {
		ext = sy.viewport.Extent()
	}
	switch {
	case n == 0:
		sy.degrade("no sprites")
		return
	case !sy.mesh.Valid():
		sy.degrade("no mesh")
		return
	case sy.set == 0:
		sy.degrade("no descriptor set")
		return
	case ext.X <= 0 || ext.Y <= 0:
		sy.degrade("empty viewport")
		return
	}
	layout := sy.pipeline.Layout()
	sy.mesh.Bind(cmd)
	cmd.SetViewport(gpu.ViewportForExtent(ext))
	cmd.SetScissor(image.Rectangle{Max: ext})
	cmd.BindDescriptorSets(layout, 0, sy.set)
	push := Ortho(ext)
	cmd.PushConstants(layout, PushStages, 0, push.Bytes())
	sy.mesh.Draw(cmd, min(n, math.MaxUint32))
	sy.stats.Frames++
}

func (sy *System) degrade(reason string) {
	sy.stats.Degraded++
	slog.Warn("render.System: "+gpu.ErrDegradedFrame.Error(), "reason", reason)
}

// Population returns the sprites.
func (sy *System) Population() *sprite.Population {
	return &sy.population
}

// Pipeline returns the sprite pipeline.
func (sy *System) Pipeline() *Pipeline {
	return sy.pipeline
}

// InstanceBuffer returns the instance storage buffer, nil before
// [System.Initialize].
func (sy *System) InstanceBuffer() *gpu.Buffer {
	return sy.instances
}

// DescriptorSet returns the descriptor set binding the instance
// buffer and texture.
func (sy *System) DescriptorSet() gpu.DescriptorSetHandle {
	return sy.set
}

// Initialized returns true once [System.Initialize] has succeeded.
func (sy *System) Initialized() bool {
	return sy.initialized
}

// Stats returns the counters.
func (sy *System) Stats() Stats {
	return sy.stats
}

// SetViewport sets the provider of the drawable extent.
func (sy *System) SetViewport(vp Viewport) {
	sy.viewport = vp
}

// Destroy waits for the device to be idle and then destroys everything:
// the sprites and their mesh, the instance buffer and the pipeline.
// It is safe to call more than once.
func (sy *System) Destroy() {
	if sy.destroyed {
		return
	}
	sy.destroyed = true
	errors.Log(sy.device.WaitIdle())
	sy.population.Clear()
	if sy.mesh != nil {
		sy.mesh.Release()
		sy.mesh = nil
	}
	sy.instances.Destroy()
	sy.instances = nil
	sy.set = 0
	sy.pipeline.Destroy()
	sy.initialized = false
	slog.Info("render.System destroyed", "frames", sy.stats.Frames, "degraded", sy.stats.Degraded)
}
