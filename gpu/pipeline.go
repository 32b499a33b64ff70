// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

// ShaderStageDesc is one programmable stage of a pipeline.
type ShaderStageDesc struct {
	Stage  ShaderStages
	Module ShaderModuleHandle
	Entry  string
}

// VertexAttribute is one attribute read from a vertex binding.
type VertexAttribute struct {
	Location int
	Binding  int
	Format   VertexFormats
	Offset   int
}

// VertexBinding is a per-vertex buffer binding.
type VertexBinding struct {
	Binding int
	Stride  int
}

// VertexInput describes how vertex buffers feed the vertex shader.
type VertexInput struct {
	Bindings   []VertexBinding
	Attributes []VertexAttribute
}

// RasterState configures rasterization.
type RasterState struct {
	CullMode  CullModes
	FrontFace FrontFaces
	LineWidth float32
}

// BlendState configures color blending for the single color attachment.
type BlendState struct {
	Enable         bool
	SrcColorFactor BlendFactors
	DstColorFactor BlendFactors
	ColorOp        BlendOps
	SrcAlphaFactor BlendFactors
	DstAlphaFactor BlendFactors
	AlphaOp        BlendOps
}

// AlphaBlend is standard alpha-over blending: the source color is
// weighted by its alpha and the destination by one minus that alpha.
var AlphaBlend = BlendState{
	Enable:         true,
	SrcColorFactor: BlendSrcAlpha,
	DstColorFactor: BlendOneMinusSrcAlpha,
	ColorOp:        BlendOpAdd,
	SrcAlphaFactor: BlendOne,
	DstAlphaFactor: BlendZero,
	AlphaOp:        BlendOpAdd,
}

// DepthState configures the depth test.
type DepthState struct {
	TestEnable  bool
	WriteEnable bool
	CompareOp   CompareOps
}

// RenderTarget is the render pass compatibility information a
// graphics pipeline is built against.
type RenderTarget struct {
	RenderPass RenderPassHandle
	Subpass    int
	Samples    int
}

// GraphicsPipelineDesc is the complete, immutable description of a
// graphics pipeline.
type GraphicsPipelineDesc struct {
	Name          string
	Stages        []ShaderStageDesc
	VertexInput   VertexInput
	Topology      Topologies
	Raster        RasterState
	Blend         BlendState
	Depth         DepthState
	DynamicStates []DynamicStates
	Layout        PipelineLayoutHandle
	Target        RenderTarget
}

// HasDynamicState returns true if the given state is set dynamically.
func (pd *GraphicsPipelineDesc) HasDynamicState(ds DynamicStates) bool {
	for _, d := range pd.DynamicStates {
		if d == ds {
			return true
		}
	}
	return false
}
