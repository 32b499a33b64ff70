// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"image"
	"log/slog"
	"unsafe"

	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

// CommandBuffer records into a vulkan command buffer, resolving the
// handles of its [Device]. Commands with unknown handles are dropped
// with a warning.
type CommandBuffer struct {
	Cmd    vk.CommandBuffer
	Device *Device
}

var _ gpu.CommandBuffer = (*CommandBuffer)(nil)

func (cb *CommandBuffer) unknown(cmd string) {
	slog.Warn("vgpu.CommandBuffer: unknown handle, command dropped", "command", cmd)
}

func (cb *CommandBuffer) BindPipeline(pl gpu.PipelineHandle) {
	vp, ok := cb.Device.pipelines.get(pl)
	if !ok {
		cb.unknown("BindPipeline")
		return
	}
	vk.CmdBindPipeline(cb.Cmd, vk.PipelineBindPointGraphics, vp)
}

func (cb *CommandBuffer) BindVertexBuffers(first int, bufs []gpu.BufferHandle, offsets []int) {
	vbufs := make([]vk.Buffer, len(bufs))
	voffs := make([]vk.DeviceSize, len(bufs))
	for i, b := range bufs {
		vb, ok := cb.Device.buffers.get(b)
		if !ok {
			cb.unknown("BindVertexBuffers")
			return
		}
		vbufs[i] = vb
		if i < len(offsets) {
			voffs[i] = vk.DeviceSize(offsets[i])
		}
	}
	vk.CmdBindVertexBuffers(cb.Cmd, uint32(first), uint32(len(vbufs)), vbufs, voffs)
}

func (cb *CommandBuffer) BindIndexBuffer(buf gpu.BufferHandle, offset int, typ gpu.IndexTypes) {
	vb, ok := cb.Device.buffers.get(buf)
	if !ok {
		cb.unknown("BindIndexBuffer")
		return
	}
	vk.CmdBindIndexBuffer(cb.Cmd, vb, vk.DeviceSize(offset), VulkanIndexTypes[typ])
}

func (cb *CommandBuffer) BindDescriptorSets(layout gpu.PipelineLayoutHandle, first int, sets ...gpu.DescriptorSetHandle) {
	vl, ok := cb.Device.layouts.get(layout)
	if !ok {
		cb.unknown("BindDescriptorSets")
		return
	}
	vsets := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		ds, ok := cb.Device.sets.get(s)
		if !ok {
			cb.unknown("BindDescriptorSets")
			return
		}
		vsets[i] = ds.set
	}
	vk.CmdBindDescriptorSets(cb.Cmd, vk.PipelineBindPointGraphics, vl, uint32(first), uint32(len(vsets)), vsets, 0, nil)
}

func (cb *CommandBuffer) PushConstants(layout gpu.PipelineLayoutHandle, stages gpu.ShaderStages, offset int, data []byte) {
	vl, ok := cb.Device.layouts.get(layout)
	if !ok || len(data) == 0 {
		cb.unknown("PushConstants")
		return
	}
	vk.CmdPushConstants(cb.Cmd, vl, ShaderStageFlags(stages), uint32(offset), uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (cb *CommandBuffer) SetViewport(vp gpu.Viewport) {
	vk.CmdSetViewport(cb.Cmd, 0, 1, []vk.Viewport{{
		X:        vp.X,
		Y:        vp.Y,
		Width:    vp.Width,
		Height:   vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}})
}

func (cb *CommandBuffer) SetScissor(rect image.Rectangle) {
	vk.CmdSetScissor(cb.Cmd, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: int32(rect.Min.X), Y: int32(rect.Min.Y)},
		Extent: vk.Extent2D{Width: uint32(rect.Dx()), Height: uint32(rect.Dy())},
	}})
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	vk.CmdDraw(cb.Cmd, uint32(vertexCount), uint32(instanceCount), uint32(firstVertex), uint32(firstInstance))
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	vk.CmdDrawIndexed(cb.Cmd, uint32(indexCount), uint32(instanceCount), uint32(firstIndex), int32(vertexOffset), uint32(firstInstance))
}
