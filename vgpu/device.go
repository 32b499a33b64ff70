// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"unsafe"

	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

// Device holds the logical device and its queue, and implements
// [gpu.Device] on them. The handles it gives out index registries
// of the vulkan objects it has created.
type Device struct {
	// GPU is the physical device this device was made on.
	GPU *GPU

	// Device is the logical device.
	Device vk.Device

	// QueueIndex is the queue family index.
	QueueIndex uint32

	// Queue is used for both graphics and transfers.
	Queue vk.Queue

	// CmdPool allocates the one time command buffers for transfers.
	CmdPool CmdPool

	buffers    registry[gpu.BufferHandle, vk.Buffer]
	memory     registry[gpu.MemoryHandle, vk.DeviceMemory]
	images     registry[gpu.ImageHandle, vk.Image]
	views      registry[gpu.ImageViewHandle, vk.ImageView]
	samplers   registry[gpu.SamplerHandle, vk.Sampler]
	shaders    registry[gpu.ShaderModuleHandle, vk.ShaderModule]
	setLayouts registry[gpu.DescriptorSetLayoutHandle, vk.DescriptorSetLayout]
	pools      registry[gpu.DescriptorPoolHandle, vk.DescriptorPool]
	sets       registry[gpu.DescriptorSetHandle, descriptorSet]
	layouts    registry[gpu.PipelineLayoutHandle, vk.PipelineLayout]
	pipelines  registry[gpu.PipelineHandle, vk.Pipeline]
	passes     registry[gpu.RenderPassHandle, vk.RenderPass]
}

// descriptorSet is a set and the pool it was allocated from.
type descriptorSet struct {
	set  vk.DescriptorSet
	pool gpu.DescriptorPoolHandle
}

var _ gpu.Device = (*Device)(nil)

// ErrUnknownHandle is returned for handles the device did not give out.
var ErrUnknownHandle = errors.New("vgpu: unknown handle")

// Init initializes a device on a queue with the given flags.
func (dv *Device) Init(gp *GPU, flags vk.QueueFlagBits) error {
	if err := dv.FindQueue(gp, flags); err != nil {
		return err
	}
	return dv.MakeDevice(gp)
}

// FindQueue finds a queue family for given flag bits and sets it in
// QueueIndex. It returns an error if none is found.
func (dv *Device) FindQueue(gp *GPU, flags vk.QueueFlagBits) error {
	return dv.findQueue(gp, func(i uint32, props vk.QueueFamilyProperties) bool {
		return props.QueueFlags&vk.QueueFlags(flags) != 0
	})
}

// FindSurfaceQueue finds a queue family with graphics capabilities that
// can also present to the surface.
func (dv *Device) FindSurfaceQueue(gp *GPU, surface vk.Surface) error {
	return dv.findQueue(gp, func(i uint32, props vk.QueueFamilyProperties) bool {
		if props.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			return false
		}
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(gp.GPU, i, surface, &supportsPresent)
		return supportsPresent.B()
	})
}

func (dv *Device) findQueue(gp *GPU, ok func(i uint32, props vk.QueueFamilyProperties) bool) error {
	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &queueCount, nil)
	if queueCount == 0 {
		return fmt.Errorf("vgpu: no queue families found on %q", gp.DeviceName)
	}
	queueProperties := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gp.GPU, &queueCount, queueProperties)
	for i := uint32(0); i < queueCount; i++ {
		queueProperties[i].Deref()
		if ok(i, queueProperties[i]) {
			dv.QueueIndex = i
			return nil
		}
	}
	return fmt.Errorf("vgpu: could not find a suitable queue on %q", gp.DeviceName)
}

// MakeDevice makes the device, its queue and transfer command pool,
// based on QueueIndex.
func (dv *Device) MakeDevice(gp *GPU) error {
	dv.GPU = gp
	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: dv.QueueIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}
	exts := SafeStrings(gp.DeviceExts)
	info := &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
	}
	if gp.Debug {
		layers := SafeStrings(gp.ValidationLayers)
		info.EnabledLayerCount = uint32(len(layers))
		info.PpEnabledLayerNames = layers
	}
	var device vk.Device
	if err := NewError(vk.CreateDevice(gp.GPU, info, nil, &device)); err != nil {
		return fmt.Errorf("vgpu: creating device: %w", err)
	}
	dv.Device = device

	var queue vk.Queue
	vk.GetDeviceQueue(dv.Device, dv.QueueIndex, 0, &queue)
	dv.Queue = queue
	return dv.CmdPool.Init(dv, vk.CommandPoolCreateResetCommandBufferBit)
}

// Limits returns the limits of the physical device.
func (dv *Device) Limits() gpu.Limits {
	return dv.GPU.Limits()
}

// WaitIdle waits until the device has finished all submitted work.
func (dv *Device) WaitIdle() error {
	return NewError(vk.DeviceWaitIdle(dv.Device))
}

// Live returns the number of objects created and not yet destroyed.
func (dv *Device) Live() int {
	return dv.buffers.len() + dv.images.len() + dv.views.len() + dv.samplers.len() +
		dv.shaders.len() + dv.setLayouts.len() + dv.pools.len() + dv.layouts.len() + dv.pipelines.len()
}

// Destroy waits for the device to be idle and destroys it, together
// with its command pool. Objects not destroyed by their owners are
// reported.
func (dv *Device) Destroy() {
	if dv.Device == nil {
		return
	}
	vk.DeviceWaitIdle(dv.Device)
	if n := dv.Live(); n > 0 {
		slog.Warn("vgpu.Device destroyed with live objects", "count", n)
	}
	dv.CmdPool.Destroy(dv.Device)
	vk.DestroyDevice(dv.Device, nil)
	dv.Device = nil
}

////////	Buffers

// CreateBuffer creates a buffer with memory of the given properties bound to it.
func (dv *Device) CreateBuffer(size int, usage gpu.BufferUsages, props gpu.MemoryProps) (gpu.BufferHandle, gpu.MemoryHandle, error) {
	var buffer vk.Buffer
	ret := vk.CreateBuffer(dv.Device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Usage:       BufferUsageFlags(usage),
		Size:        vk.DeviceSize(size),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer)
	if err := NewError(ret); err != nil {
		return 0, 0, err
	}
	mem, err := dv.AllocBuffMem(buffer, MemoryPropertyFlags(props))
	if err != nil {
		vk.DestroyBuffer(dv.Device, buffer, nil)
		return 0, 0, err
	}
	return dv.buffers.add(buffer), dv.memory.add(mem), nil
}

// AllocBuffMem allocates memory for given buffer, with given properties,
// and binds it to the buffer.
func (dv *Device) AllocBuffMem(buffer vk.Buffer, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(dv.Device, buffer, &memReqs)
	memReqs.Deref()
	memory, err := dv.allocMem(memReqs, props)
	if err != nil {
		return nil, err
	}
	if err := NewError(vk.BindBufferMemory(dv.Device, buffer, memory, 0)); err != nil {
		vk.FreeMemory(dv.Device, memory, nil)
		return nil, err
	}
	return memory, nil
}

func (dv *Device) allocMem(memReqs vk.MemoryRequirements, props vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	memType, ok := FindRequiredMemoryType(dv.GPU.MemoryProps, vk.MemoryPropertyFlagBits(memReqs.MemoryTypeBits), props)
	if !ok {
		return nil, fmt.Errorf("vgpu: no memory type with properties %#x", props)
	}
	var memory vk.DeviceMemory
	ret := vk.AllocateMemory(dv.Device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &memory)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return memory, nil
}

// FindRequiredMemoryType returns the index of the first memory type
// allowed by deviceRequirements that has all of the hostRequirements.
func FindRequiredMemoryType(props vk.PhysicalDeviceMemoryProperties,
	deviceRequirements, hostRequirements vk.MemoryPropertyFlagBits) (uint32, bool) {

	for i := uint32(0); i < props.MemoryTypeCount && i < vk.MaxMemoryTypes; i++ {
		if deviceRequirements&(vk.MemoryPropertyFlagBits(1)<<i) != 0 {
			props.MemoryTypes[i].Deref()
			flags := props.MemoryTypes[i].PropertyFlags
			if flags&vk.MemoryPropertyFlags(hostRequirements) == vk.MemoryPropertyFlags(hostRequirements) {
				return i, true
			}
		}
	}
	return 0, false
}

// DestroyBuffer destroys the buffer and frees its memory.
func (dv *Device) DestroyBuffer(buf gpu.BufferHandle, mem gpu.MemoryHandle) {
	if vb, ok := dv.buffers.remove(buf); ok {
		vk.DestroyBuffer(dv.Device, vb, nil)
	}
	if vm, ok := dv.memory.remove(mem); ok {
		vk.FreeMemory(dv.Device, vm, nil)
	}
}

// MapMemory maps the start of the memory, returning it as a byte slice.
func (dv *Device) MapMemory(mem gpu.MemoryHandle, size int) ([]byte, error) {
	vm, ok := dv.memory.get(mem)
	if !ok {
		return nil, ErrUnknownHandle
	}
	var ptr unsafe.Pointer
	ret := vk.MapMemory(dv.Device, vm, 0, vk.DeviceSize(size), 0, &ptr)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

func (dv *Device) UnmapMemory(mem gpu.MemoryHandle) {
	if vm, ok := dv.memory.get(mem); ok {
		vk.UnmapMemory(dv.Device, vm)
	}
}

// CopyBuffer copies on the queue and waits for it to finish.
func (dv *Device) CopyBuffer(src, dst gpu.BufferHandle, size int) error {
	sb, ok := dv.buffers.get(src)
	db, ok2 := dv.buffers.get(dst)
	if !ok || !ok2 {
		return ErrUnknownHandle
	}
	cmd, err := dv.CmdPool.BeginSingle(dv)
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(cmd, sb, db, 1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
	return dv.CmdPool.EndSingle(dv, cmd)
}

////////	Shaders, layouts and descriptors

func (dv *Device) CreateShaderModule(code []byte) (gpu.ShaderModuleHandle, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(dv.Device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    RepackUint32(code),
	}, nil, &module)
	if err := NewError(ret); err != nil {
		return 0, err
	}
	return dv.shaders.add(module), nil
}

func (dv *Device) DestroyShaderModule(sm gpu.ShaderModuleHandle) {
	if module, ok := dv.shaders.remove(sm); ok {
		vk.DestroyShaderModule(dv.Device, module, nil)
	}
}

func (dv *Device) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayoutHandle, error) {
	vbs := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vbs[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Binding),
			DescriptorType:  VulkanDescriptorTypes[b.Type],
			DescriptorCount: uint32(b.Count),
			StageFlags:      ShaderStageFlags(b.Stages),
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(dv.Device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vbs)),
		PBindings:    vbs,
	}, nil, &layout)
	if err := NewError(ret); err != nil {
		return 0, err
	}
	return dv.setLayouts.add(layout), nil
}

func (dv *Device) DestroyDescriptorSetLayout(dl gpu.DescriptorSetLayoutHandle) {
	if layout, ok := dv.setLayouts.remove(dl); ok {
		vk.DestroyDescriptorSetLayout(dv.Device, layout, nil)
	}
}

func (dv *Device) CreatePipelineLayout(sets []gpu.DescriptorSetLayoutHandle, push []gpu.PushConstantRange) (gpu.PipelineLayoutHandle, error) {
	vsets := make([]vk.DescriptorSetLayout, len(sets))
	for i, s := range sets {
		layout, ok := dv.setLayouts.get(s)
		if !ok {
			return 0, ErrUnknownHandle
		}
		vsets[i] = layout
	}
	vpush := make([]vk.PushConstantRange, len(push))
	for i, p := range push {
		vpush[i] = vk.PushConstantRange{
			StageFlags: ShaderStageFlags(p.Stages),
			Offset:     uint32(p.Offset),
			Size:       uint32(p.Size),
		}
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(dv.Device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(vsets)),
		PSetLayouts:            vsets,
		PushConstantRangeCount: uint32(len(vpush)),
		PPushConstantRanges:    vpush,
	}, nil, &layout)
	if err := NewError(ret); err != nil {
		return 0, err
	}
	return dv.layouts.add(layout), nil
}

func (dv *Device) DestroyPipelineLayout(pl gpu.PipelineLayoutHandle) {
	if layout, ok := dv.layouts.remove(pl); ok {
		vk.DestroyPipelineLayout(dv.Device, layout, nil)
	}
}

func (dv *Device) CreateDescriptorPool(maxSets int, sizes []gpu.DescriptorPoolSize) (gpu.DescriptorPoolHandle, error) {
	vsizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		vsizes[i] = vk.DescriptorPoolSize{
			Type:            VulkanDescriptorTypes[s.Type],
			DescriptorCount: uint32(s.Count),
		}
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(dv.Device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(maxSets),
		PoolSizeCount: uint32(len(vsizes)),
		PPoolSizes:    vsizes,
	}, nil, &pool)
	if err := NewError(ret); err != nil {
		return 0, err
	}
	return dv.pools.add(pool), nil
}

// DestroyDescriptorPool destroys the pool, freeing all of the sets
// allocated from it.
func (dv *Device) DestroyDescriptorPool(dp gpu.DescriptorPoolHandle) {
	pool, ok := dv.pools.remove(dp)
	if !ok {
		return
	}
	for h, ds := range dv.sets.objs {
		if ds.pool == dp {
			dv.sets.remove(h)
		}
	}
	vk.DestroyDescriptorPool(dv.Device, pool, nil)
}

// AllocateDescriptorSet allocates one set. If the pool is out of
// memory the error matches [gpu.ErrPoolExhausted].
func (dv *Device) AllocateDescriptorSet(pool gpu.DescriptorPoolHandle, layout gpu.DescriptorSetLayoutHandle) (gpu.DescriptorSetHandle, error) {
	vpool, ok := dv.pools.get(pool)
	vlayout, ok2 := dv.setLayouts.get(layout)
	if !ok || !ok2 {
		return 0, ErrUnknownHandle
	}
	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(dv.Device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vpool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{vlayout},
	}, &set)
	switch ret {
	case vk.Success:
	case vk.ErrorOutOfPoolMemory, vk.ErrorFragmentedPool:
		return 0, fmt.Errorf("%w: %w", gpu.ErrPoolExhausted, NewError(ret))
	default:
		return 0, NewError(ret)
	}
	return dv.sets.add(descriptorSet{set: set, pool: pool}), nil
}

// UpdateDescriptorSet writes the bindings. Writes that refer to
// unknown handles are skipped with a warning.
func (dv *Device) UpdateDescriptorSet(set gpu.DescriptorSetHandle, writes []gpu.DescriptorWrite) {
	ds, ok := dv.sets.get(set)
	if !ok {
		slog.Warn("vgpu.Device: update of unknown descriptor set", "set", set)
		return
	}
	vws := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		vw := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          ds.set,
			DstBinding:      uint32(w.Binding),
			DescriptorCount: 1,
			DescriptorType:  VulkanDescriptorTypes[w.Type],
		}
		if w.Type == gpu.CombinedImageSampler {
			view, ok := dv.views.get(w.View)
			samp, ok2 := dv.samplers.get(w.Sampler)
			if !ok || !ok2 {
				slog.Warn("vgpu.Device: descriptor write with unknown image", "binding", w.Binding)
				continue
			}
			vw.PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     samp,
				ImageView:   view,
				ImageLayout: VulkanImageLayouts[w.Layout],
			}}
		} else {
			buf, ok := dv.buffers.get(w.Buffer)
			if !ok {
				slog.Warn("vgpu.Device: descriptor write with unknown buffer", "binding", w.Binding)
				continue
			}
			vw.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: buf,
				Offset: vk.DeviceSize(w.Offset),
				Range:  vk.DeviceSize(w.Range),
			}}
		}
		vws = append(vws, vw)
	}
	if len(vws) == 0 {
		return
	}
	vk.UpdateDescriptorSets(dv.Device, uint32(len(vws)), vws, 0, nil)
}

////////	Render passes

// AddRenderPass registers a render pass created elsewhere, e.g. by
// a [Surface], so that pipelines can be made compatible with it.
func (dv *Device) AddRenderPass(rp vk.RenderPass) gpu.RenderPassHandle {
	return dv.passes.add(rp)
}

// RemoveRenderPass unregisters a render pass, returning it
// for its owner to destroy.
func (dv *Device) RemoveRenderPass(h gpu.RenderPassHandle) (vk.RenderPass, bool) {
	return dv.passes.remove(h)
}
