// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

// CreateGraphicsPipeline creates a vulkan pipeline from the description.
// The viewport and scissor counts are always one; their values must
// be set dynamically.
func (dv *Device) CreateGraphicsPipeline(desc *gpu.GraphicsPipelineDesc) (gpu.PipelineHandle, error) {
	layout, ok := dv.layouts.get(desc.Layout)
	if !ok {
		return 0, ErrUnknownHandle
	}
	renderPass, ok := dv.passes.get(desc.Target.RenderPass)
	if !ok {
		return 0, ErrUnknownHandle
	}

	stages := make([]vk.PipelineShaderStageCreateInfo, len(desc.Stages))
	for i, st := range desc.Stages {
		module, ok := dv.shaders.get(st.Module)
		if !ok {
			return 0, ErrUnknownHandle
		}
		stages[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  ShaderStageBit(st.Stage),
			Module: module,
			PName:  SafeString(st.Entry),
		}
	}

	vbinds := make([]vk.VertexInputBindingDescription, len(desc.VertexInput.Bindings))
	for i, b := range desc.VertexInput.Bindings {
		vbinds[i] = vk.VertexInputBindingDescription{
			Binding:   uint32(b.Binding),
			Stride:    uint32(b.Stride),
			InputRate: vk.VertexInputRateVertex,
		}
	}
	vattrs := make([]vk.VertexInputAttributeDescription, len(desc.VertexInput.Attributes))
	for i, a := range desc.VertexInput.Attributes {
		vattrs[i] = vk.VertexInputAttributeDescription{
			Location: uint32(a.Location),
			Binding:  uint32(a.Binding),
			Format:   VulkanVertexFormats[a.Format],
			Offset:   uint32(a.Offset),
		}
	}

	dynamics := make([]vk.DynamicState, len(desc.DynamicStates))
	for i, ds := range desc.DynamicStates {
		dynamics[i] = VulkanDynamicStates[ds]
	}

	bl := desc.Blend
	blend := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask:      0xF,
		BlendEnable:         vkBool(bl.Enable),
		SrcColorBlendFactor: VulkanBlendFactors[bl.SrcColorFactor],
		DstColorBlendFactor: VulkanBlendFactors[bl.DstColorFactor],
		ColorBlendOp:        VulkanBlendOps[bl.ColorOp],
		SrcAlphaBlendFactor: VulkanBlendFactors[bl.SrcAlphaFactor],
		DstAlphaBlendFactor: VulkanBlendFactors[bl.DstAlphaFactor],
		AlphaBlendOp:        VulkanBlendOps[bl.AlphaOp],
	}

	lineWidth := desc.Raster.LineWidth
	if lineWidth == 0 {
		lineWidth = 1
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(vbinds)),
			PVertexBindingDescriptions:      vbinds,
			VertexAttributeDescriptionCount: uint32(len(vattrs)),
			PVertexAttributeDescriptions:    vattrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: VulkanTopologies[desc.Topology],
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(VulkanCullModes[desc.Raster.CullMode]),
			FrontFace:   VulkanFrontFaces[desc.Raster.FrontFace],
			LineWidth:   lineWidth,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: SampleCount(desc.Target.Samples),
			MinSampleShading:     1,
		},
		PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
			SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:  vkBool(desc.Depth.TestEnable),
			DepthWriteEnable: vkBool(desc.Depth.WriteEnable),
			DepthCompareOp:   VulkanCompareOps[desc.Depth.CompareOp],
			MaxDepthBounds:   1,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			LogicOp:         vk.LogicOpCopy,
			AttachmentCount: 1,
			PAttachments:    []vk.PipelineColorBlendAttachmentState{blend},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(dynamics)),
			PDynamicStates:    dynamics,
		},
		Layout:            layout,
		RenderPass:        renderPass,
		Subpass:           uint32(desc.Target.Subpass),
		BasePipelineIndex: -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(dv.Device, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if err := NewError(ret); err != nil {
		return 0, err
	}
	return dv.pipelines.add(pipelines[0]), nil
}

func (dv *Device) DestroyPipeline(pl gpu.PipelineHandle) {
	if vp, ok := dv.pipelines.remove(pl); ok {
		vk.DestroyPipeline(dv.Device, vp, nil)
	}
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
