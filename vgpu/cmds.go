// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import vk "github.com/goki/vulkan"

// CmdPool is a command pool and a buffer allocated from it.
type CmdPool struct {
	Pool vk.CommandPool
	Buff vk.CommandBuffer
}

// Init initializes the pool on the queue of the device.
func (cp *CmdPool) Init(dv *Device, flags vk.CommandPoolCreateFlagBits) error {
	var cmdPool vk.CommandPool
	ret := vk.CreateCommandPool(dv.Device, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: dv.QueueIndex,
		Flags:            vk.CommandPoolCreateFlags(flags),
	}, nil, &cmdPool)
	if err := NewError(ret); err != nil {
		return err
	}
	cp.Pool = cmdPool
	return nil
}

// NewBuffer allocates a primary buffer in the pool.
func (cp *CmdPool) NewBuffer(dv *Device) (vk.CommandBuffer, error) {
	cmdBuff := make([]vk.CommandBuffer, 1)
	ret := vk.AllocateCommandBuffers(dv.Device, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        cp.Pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, cmdBuff)
	if err := NewError(ret); err != nil {
		return nil, err
	}
	return cmdBuff[0], nil
}

// BeginSingle allocates and begins a buffer for one time submission.
func (cp *CmdPool) BeginSingle(dv *Device) (vk.CommandBuffer, error) {
	cmd, err := cp.NewBuffer(dv)
	if err != nil {
		return nil, err
	}
	ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := NewError(ret); err != nil {
		cp.FreeBuffer(dv, cmd)
		return nil, err
	}
	return cmd, nil
}

// EndSingle ends cmd, submits it and waits for the queue to be idle.
// The buffer is freed in any case.
func (cp *CmdPool) EndSingle(dv *Device, cmd vk.CommandBuffer) error {
	defer cp.FreeBuffer(dv, cmd)
	if err := NewError(vk.EndCommandBuffer(cmd)); err != nil {
		return err
	}
	ret := vk.QueueSubmit(dv.Queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cmd},
	}}, vk.NullFence)
	if err := NewError(ret); err != nil {
		return err
	}
	return NewError(vk.QueueWaitIdle(dv.Queue))
}

// FreeBuffer frees a buffer allocated from the pool.
func (cp *CmdPool) FreeBuffer(dv *Device, cmd vk.CommandBuffer) {
	vk.FreeCommandBuffers(dv.Device, cp.Pool, 1, []vk.CommandBuffer{cmd})
}

// Destroy
func (cp *CmdPool) Destroy(dv vk.Device) {
	if cp.Pool == nil {
		return
	}
	vk.DestroyCommandPool(dv, cp.Pool, nil)
	cp.Pool = nil
	cp.Buff = nil
}
