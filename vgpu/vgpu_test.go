// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"encoding/binary"
	"image/color"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"cogentcore.org/vsprite/gpu"
)

func TestSafeStrings(t *testing.T) {
	assert.Equal(t, "VK_KHR_swapchain\x00", SafeString("VK_KHR_swapchain"))
	assert.Equal(t, "main\x00", SafeString("main\x00"))
	in := []string{"a", "b\x00"}
	out := SafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0])
}

func TestBufferUsageFlags(t *testing.T) {
	fl := BufferUsageFlags(gpu.StorageUsage | gpu.TransferDst)
	assert.Equal(t, vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit|vk.BufferUsageTransferDstBit), fl)
	assert.Equal(t, vk.BufferUsageFlags(0), BufferUsageFlags(0))
}

func TestMemoryPropertyFlags(t *testing.T) {
	fl := MemoryPropertyFlags(gpu.HostVisible | gpu.HostCoherent)
	assert.Equal(t, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, fl)
	assert.Equal(t, vk.MemoryPropertyDeviceLocalBit, MemoryPropertyFlags(gpu.DeviceLocal))
}

func TestShaderStages(t *testing.T) {
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit),
		ShaderStageFlags(gpu.VertexStage|gpu.FragmentStage))
	assert.Equal(t, vk.ShaderStageFragmentBit, ShaderStageBit(gpu.FragmentStage))
	assert.Equal(t, vk.ShaderStageVertexBit, ShaderStageBit(gpu.VertexStage))
}

func TestTables(t *testing.T) {
	assert.Equal(t, vk.DescriptorTypeStorageBuffer, VulkanDescriptorTypes[gpu.StorageBuffer])
	assert.Equal(t, vk.DescriptorTypeCombinedImageSampler, VulkanDescriptorTypes[gpu.CombinedImageSampler])
	assert.Equal(t, vk.BlendFactorOneMinusSrcAlpha, VulkanBlendFactors[gpu.AlphaBlend.DstColorFactor])
	assert.Equal(t, vk.CullModeNone, VulkanCullModes[gpu.CullNone])
	assert.Equal(t, vk.FrontFaceClockwise, VulkanFrontFaces[gpu.FrontFaceCW])
	assert.Equal(t, vk.PrimitiveTopologyTriangleList, VulkanTopologies[gpu.TriangleList])
	assert.Equal(t, vk.CompareOpLess, VulkanCompareOps[gpu.CompareLess])
	assert.Equal(t, vk.IndexTypeUint32, VulkanIndexTypes[gpu.IndexUint32])
	assert.Equal(t, vk.FormatR32g32b32Sfloat, VulkanVertexFormats[gpu.Float32Vector3])
	assert.Equal(t, vk.SamplerAddressModeRepeat, VulkanSamplerModes[gpu.DefaultSampler.UMode])
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, VulkanImageLayouts[gpu.LayoutShaderReadOnly])

	// every vertex attribute format used by meshes has a vulkan format
	for _, a := range gpu.VertexLayout().Attributes {
		_, ok := VulkanVertexFormats[a.Format]
		assert.True(t, ok, "format %v", a.Format)
	}
}

func TestSampleCount(t *testing.T) {
	assert.Equal(t, vk.SampleCount1Bit, SampleCount(0))
	assert.Equal(t, vk.SampleCount1Bit, SampleCount(1))
	assert.Equal(t, vk.SampleCount4Bit, SampleCount(4))
	assert.Equal(t, vk.SampleCount8Bit, SampleCount(16))
}

func TestRepackUint32(t *testing.T) {
	code := make([]byte, 8)
	binary.NativeEndian.PutUint32(code[0:], 0x07230203)
	binary.NativeEndian.PutUint32(code[4:], 0x00010000)
	words := RepackUint32(code)
	assert.Equal(t, []uint32{0x07230203, 0x00010000}, words)
	assert.Empty(t, RepackUint32(nil))
}

func TestFindRequiredMemoryType(t *testing.T) {
	var props vk.PhysicalDeviceMemoryProperties
	props.MemoryTypeCount = 3
	props.MemoryTypes[0].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	props.MemoryTypes[1].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	props.MemoryTypes[2].PropertyFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

	host := vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	i, ok := FindRequiredMemoryType(props, 0b111, host)
	assert.True(t, ok)
	assert.Equal(t, uint32(2), i)

	i, ok = FindRequiredMemoryType(props, 0b111, vk.MemoryPropertyDeviceLocalBit)
	assert.True(t, ok)
	assert.Equal(t, uint32(0), i)

	// type 2 not allowed by the device requirements
	_, ok = FindRequiredMemoryType(props, 0b011, host)
	assert.False(t, ok)
}

func TestClearValues(t *testing.T) {
	assert.Equal(t, []float32{1, 0, 0, 1}, ClearValues(color.RGBA{255, 0, 0, 255}))
	assert.Equal(t, []float32{0, 0, 0, 1}, ClearValues(color.Black))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, uint32(10), clamp(5, 10, 20))
	assert.Equal(t, uint32(20), clamp(50, 10, 20))
	assert.Equal(t, uint32(15), clamp(15, 10, 20))
}

func TestRegistry(t *testing.T) {
	var rg registry[gpu.BufferHandle, string]
	a := rg.add("a")
	b := rg.add("b")
	assert.NotEqual(t, gpu.BufferHandle(0), a)
	assert.NotEqual(t, a, b)
	v, ok := rg.get(b)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	v, ok = rg.remove(a)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
	_, ok = rg.remove(a)
	assert.False(t, ok)
	assert.Equal(t, 1, rg.len())
	// handles are not reused
	assert.Greater(t, rg.add("c"), b)
}
