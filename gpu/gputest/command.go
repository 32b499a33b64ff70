// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gputest

import (
	"image"
	"slices"

	"cogentcore.org/vsprite/gpu"
)

var (
	_ gpu.Device        = (*Device)(nil)
	_ gpu.CommandBuffer = (*CommandBuffer)(nil)
)

// Cmd is one recorded command. Only the fields relevant to Op are set.
type Cmd struct {
	Op        string
	Pipeline  gpu.PipelineHandle
	Layout    gpu.PipelineLayoutHandle
	Buffers   []gpu.BufferHandle
	Sets      []gpu.DescriptorSetHandle
	Stages    gpu.ShaderStages
	Data      []byte
	Viewport  gpu.Viewport
	Scissor   image.Rectangle
	Count     int
	Instances int
}

// CommandBuffer is a [gpu.CommandBuffer] that records commands.
type CommandBuffer struct {
	Cmds []Cmd
}

// Ops returns the names of the recorded commands in order.
func (cb *CommandBuffer) Ops() []string {
	ops := make([]string, len(cb.Cmds))
	for i, c := range cb.Cmds {
		ops[i] = c.Op
	}
	return ops
}

// Find returns the first command with the given op, and whether there is one.
func (cb *CommandBuffer) Find(op string) (Cmd, bool) {
	for _, c := range cb.Cmds {
		if c.Op == op {
			return c, true
		}
	}
	return Cmd{}, false
}

// Reset clears the recorded commands.
func (cb *CommandBuffer) Reset() {
	cb.Cmds = nil
}

func (cb *CommandBuffer) BindPipeline(pl gpu.PipelineHandle) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "BindPipeline", Pipeline: pl})
}

func (cb *CommandBuffer) BindVertexBuffers(first int, bufs []gpu.BufferHandle, offsets []int) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "BindVertexBuffers", Buffers: slices.Clone(bufs), Count: first})
}

func (cb *CommandBuffer) BindIndexBuffer(buf gpu.BufferHandle, offset int, typ gpu.IndexTypes) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "BindIndexBuffer", Buffers: []gpu.BufferHandle{buf}})
}

func (cb *CommandBuffer) BindDescriptorSets(layout gpu.PipelineLayoutHandle, first int, sets ...gpu.DescriptorSetHandle) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "BindDescriptorSets", Layout: layout, Sets: slices.Clone(sets), Count: first})
}

func (cb *CommandBuffer) PushConstants(layout gpu.PipelineLayoutHandle, stages gpu.ShaderStages, offset int, data []byte) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "PushConstants", Layout: layout, Stages: stages, Data: slices.Clone(data), Count: offset})
}

func (cb *CommandBuffer) SetViewport(vp gpu.Viewport) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "SetViewport", Viewport: vp})
}

func (cb *CommandBuffer) SetScissor(rect image.Rectangle) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "SetScissor", Scissor: rect})
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance int) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "Draw", Count: vertexCount, Instances: instanceCount})
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex, vertexOffset, firstInstance int) {
	cb.Cmds = append(cb.Cmds, Cmd{Op: "DrawIndexed", Count: indexCount, Instances: instanceCount})
}

// Frames begins and ends frames on a [CommandBuffer], appending
// "BeginFrame" and "EndFrame" to the Calls of Device so that their
// order relative to device calls can be checked.
type Frames struct {
	Device *Device
	Cmd    CommandBuffer

	// Skip makes BeginFrame return false, as for a minimized window.
	Skip bool

	// Ended is the number of frames ended.
	Ended int
}

func (fr *Frames) BeginFrame() (gpu.CommandBuffer, bool, error) {
	if err := fr.Device.call("BeginFrame"); err != nil {
		return nil, false, err
	}
	if fr.Skip {
		return nil, false, nil
	}
	fr.Cmd.Reset()
	return &fr.Cmd, true, nil
}

func (fr *Frames) EndFrame() error {
	if err := fr.Device.call("EndFrame"); err != nil {
		return err
	}
	fr.Ended++
	return nil
}
