// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

var VulkanBufferUsages = map[gpu.BufferUsages]vk.BufferUsageFlagBits{
	gpu.TransferSrc:  vk.BufferUsageTransferSrcBit,
	gpu.TransferDst:  vk.BufferUsageTransferDstBit,
	gpu.StorageUsage: vk.BufferUsageStorageBufferBit,
	gpu.VertexUsage:  vk.BufferUsageVertexBufferBit,
	gpu.IndexUsage:   vk.BufferUsageIndexBufferBit,
	gpu.UniformUsage: vk.BufferUsageUniformBufferBit,
}

// BufferUsageFlags returns the vulkan flags for all of the usages set.
func BufferUsageFlags(bu gpu.BufferUsages) vk.BufferUsageFlags {
	var fl vk.BufferUsageFlagBits
	for u, vu := range VulkanBufferUsages {
		if bu.Has(u) {
			fl |= vu
		}
	}
	return vk.BufferUsageFlags(fl)
}

var VulkanMemoryProps = map[gpu.MemoryProps]vk.MemoryPropertyFlagBits{
	gpu.DeviceLocal:  vk.MemoryPropertyDeviceLocalBit,
	gpu.HostVisible:  vk.MemoryPropertyHostVisibleBit,
	gpu.HostCoherent: vk.MemoryPropertyHostCoherentBit,
}

// MemoryPropertyFlags returns the vulkan flags for all of the props set.
func MemoryPropertyFlags(mp gpu.MemoryProps) vk.MemoryPropertyFlagBits {
	var fl vk.MemoryPropertyFlagBits
	for p, vp := range VulkanMemoryProps {
		if mp.Has(p) {
			fl |= vp
		}
	}
	return fl
}

// ShaderStageFlags returns the vulkan flags for the stages.
func ShaderStageFlags(ss gpu.ShaderStages) vk.ShaderStageFlags {
	var fl vk.ShaderStageFlagBits
	if ss&gpu.VertexStage != 0 {
		fl |= vk.ShaderStageVertexBit
	}
	if ss&gpu.FragmentStage != 0 {
		fl |= vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageFlags(fl)
}

// ShaderStageBit returns the single vulkan stage for ss.
func ShaderStageBit(ss gpu.ShaderStages) vk.ShaderStageFlagBits {
	if ss == gpu.FragmentStage {
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageVertexBit
}

var VulkanDescriptorTypes = map[gpu.DescriptorTypes]vk.DescriptorType{
	gpu.StorageBuffer:        vk.DescriptorTypeStorageBuffer,
	gpu.CombinedImageSampler: vk.DescriptorTypeCombinedImageSampler,
	gpu.UniformBuffer:        vk.DescriptorTypeUniformBuffer,
}

var VulkanBlendFactors = map[gpu.BlendFactors]vk.BlendFactor{
	gpu.BlendZero:             vk.BlendFactorZero,
	gpu.BlendOne:              vk.BlendFactorOne,
	gpu.BlendSrcAlpha:         vk.BlendFactorSrcAlpha,
	gpu.BlendOneMinusSrcAlpha: vk.BlendFactorOneMinusSrcAlpha,
}

var VulkanBlendOps = map[gpu.BlendOps]vk.BlendOp{
	gpu.BlendOpAdd:      vk.BlendOpAdd,
	gpu.BlendOpSubtract: vk.BlendOpSubtract,
}

var VulkanCullModes = map[gpu.CullModes]vk.CullModeFlagBits{
	gpu.CullNone:  vk.CullModeNone,
	gpu.CullFront: vk.CullModeFrontBit,
	gpu.CullBack:  vk.CullModeBackBit,
}

var VulkanFrontFaces = map[gpu.FrontFaces]vk.FrontFace{
	gpu.FrontFaceCCW: vk.FrontFaceCounterClockwise,
	gpu.FrontFaceCW:  vk.FrontFaceClockwise,
}

var VulkanTopologies = map[gpu.Topologies]vk.PrimitiveTopology{
	gpu.TriangleList:  vk.PrimitiveTopologyTriangleList,
	gpu.TriangleStrip: vk.PrimitiveTopologyTriangleStrip,
	gpu.LineList:      vk.PrimitiveTopologyLineList,
	gpu.PointList:     vk.PrimitiveTopologyPointList,
}

var VulkanCompareOps = map[gpu.CompareOps]vk.CompareOp{
	gpu.CompareNever:       vk.CompareOpNever,
	gpu.CompareLess:        vk.CompareOpLess,
	gpu.CompareLessOrEqual: vk.CompareOpLessOrEqual,
	gpu.CompareAlways:      vk.CompareOpAlways,
}

var VulkanDynamicStates = map[gpu.DynamicStates]vk.DynamicState{
	gpu.DynamicViewport: vk.DynamicStateViewport,
	gpu.DynamicScissor:  vk.DynamicStateScissor,
}

var VulkanIndexTypes = map[gpu.IndexTypes]vk.IndexType{
	gpu.IndexUint16: vk.IndexTypeUint16,
	gpu.IndexUint32: vk.IndexTypeUint32,
}

var VulkanVertexFormats = map[gpu.VertexFormats]vk.Format{
	gpu.Float32Vector2: vk.FormatR32g32Sfloat,
	gpu.Float32Vector3: vk.FormatR32g32b32Sfloat,
	gpu.Float32Vector4: vk.FormatR32g32b32a32Sfloat,
}

var VulkanSamplerModes = map[gpu.SamplerModes]vk.SamplerAddressMode{
	gpu.Repeat:         vk.SamplerAddressModeRepeat,
	gpu.MirroredRepeat: vk.SamplerAddressModeMirroredRepeat,
	gpu.ClampToEdge:    vk.SamplerAddressModeClampToEdge,
}

var VulkanImageLayouts = map[gpu.ImageLayouts]vk.ImageLayout{
	gpu.LayoutUndefined:      vk.ImageLayoutUndefined,
	gpu.LayoutShaderReadOnly: vk.ImageLayoutShaderReadOnlyOptimal,
}

// SampleCount returns the vulkan sample count bit for n samples.
func SampleCount(n int) vk.SampleCountFlagBits {
	switch {
	case n >= 8:
		return vk.SampleCount8Bit
	case n >= 4:
		return vk.SampleCount4Bit
	case n >= 2:
		return vk.SampleCount2Bit
	}
	return vk.SampleCount1Bit
}

// RepackUint32 returns the SPIR-V code as 32 bit words, in host order.
func RepackUint32(data []byte) []uint32 {
	buf := make([]uint32, len(data)/4)
	if len(buf) > 0 {
		vk.Memcopy(unsafe.Pointer(&buf[0]), data[:len(buf)*4])
	}
	return buf
}
