// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"errors"
	"image"

	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

// TextureFormat is the format of texture images: 8 bit sRGB with alpha,
// matching the layout of [image.RGBA].
const TextureFormat = vk.FormatR8g8b8a8Srgb

// CreateTexture copies img through a staging buffer into a device local
// image, transitions it to shader read only layout, and makes a view
// and sampler for it. On failure everything made so far is destroyed.
func (dv *Device) CreateTexture(img *image.RGBA, sd gpu.SamplerDesc) (th gpu.TextureHandles, err error) {
	size := img.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return th, errors.New("vgpu: empty texture image")
	}
	rowBytes := size.X * 4
	nbytes := rowBytes * size.Y
	sb, smem, err := dv.CreateBuffer(nbytes, gpu.TransferSrc, gpu.HostVisible|gpu.HostCoherent)
	if err != nil {
		return th, err
	}
	defer dv.DestroyBuffer(sb, smem)
	mapped, err := dv.MapMemory(smem, nbytes)
	if err != nil {
		return th, err
	}
	for y := 0; y < size.Y; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(mapped[y*rowBytes:(y+1)*rowBytes], img.Pix[off:off+rowBytes])
	}
	dv.UnmapMemory(smem)

	defer func() {
		if err != nil {
			dv.DestroyTexture(th)
			th = gpu.TextureHandles{}
		}
	}()

	vimg, vmem, err := dv.newImage(uint32(size.X), uint32(size.Y))
	if err != nil {
		return th, err
	}
	th.Image = dv.images.add(vimg)
	th.Memory = dv.memory.add(vmem)

	if err = dv.copyToImage(sb, vimg, uint32(size.X), uint32(size.Y)); err != nil {
		return th, err
	}

	var view vk.ImageView
	ret := vk.CreateImageView(dv.Device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vimg,
		ViewType: vk.ImageViewType2d,
		Format:   TextureFormat,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: colorSubresource,
	}, nil, &view)
	if err = NewError(ret); err != nil {
		return th, err
	}
	th.View = dv.views.add(view)

	filter := vk.FilterNearest
	if sd.Linear {
		filter = vk.FilterLinear
	}
	var samp vk.Sampler
	ret = vk.CreateSampler(dv.Device, &vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		AddressModeU:            VulkanSamplerModes[sd.UMode],
		AddressModeV:            VulkanSamplerModes[sd.VMode],
		AddressModeW:            VulkanSamplerModes[sd.UMode],
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntTransparentBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		MipmapMode:              vk.SamplerMipmapModeLinear,
	}, nil, &samp)
	if err = NewError(ret); err != nil {
		return th, err
	}
	th.Sampler = dv.samplers.add(samp)
	return th, nil
}

var colorSubresource = vk.ImageSubresourceRange{
	AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
	LevelCount: 1,
	LayerCount: 1,
}

// newImage makes an optimally tiled device local texture image.
func (dv *Device) newImage(w, h uint32) (vk.Image, vk.DeviceMemory, error) {
	var img vk.Image
	ret := vk.CreateImage(dv.Device, &vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        TextureFormat,
		Extent:        vk.Extent3D{Width: w, Height: h, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if err := NewError(ret); err != nil {
		return nil, nil, err
	}
	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(dv.Device, img, &memReqs)
	memReqs.Deref()
	mem, err := dv.allocMem(memReqs, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(dv.Device, img, nil)
		return nil, nil, err
	}
	if err := NewError(vk.BindImageMemory(dv.Device, img, mem, 0)); err != nil {
		vk.FreeMemory(dv.Device, mem, nil)
		vk.DestroyImage(dv.Device, img, nil)
		return nil, nil, err
	}
	return img, mem, nil
}

// copyToImage records the layout transitions around the copy of the
// staging buffer into the image, and waits for them to finish.
func (dv *Device) copyToImage(sb gpu.BufferHandle, img vk.Image, w, h uint32) error {
	buf, ok := dv.buffers.get(sb)
	if !ok {
		return ErrUnknownHandle
	}
	cmd, err := dv.CmdPool.BeginSingle(dv)
	if err != nil {
		return err
	}
	imageBarrier(cmd, img, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	vk.CmdCopyBufferToImage(cmd, buf, img, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: w, Height: h, Depth: 1},
	}})
	imageBarrier(cmd, img, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	return dv.CmdPool.EndSingle(dv, cmd)
}

// imageBarrier records a layout transition for a texture upload:
// undefined to transfer destination, or transfer destination to
// shader read only.
func imageBarrier(cmd vk.CommandBuffer, img vk.Image, oldLayout, newLayout vk.ImageLayout) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img,
		SubresourceRange:    colorSubresource,
	}
	var src, dst vk.PipelineStageFlagBits
	if oldLayout == vk.ImageLayoutUndefined {
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		src = vk.PipelineStageTopOfPipeBit
		dst = vk.PipelineStageTransferBit
	} else {
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		src = vk.PipelineStageTransferBit
		dst = vk.PipelineStageFragmentShaderBit
	}
	vk.CmdPipelineBarrier(cmd, vk.PipelineStageFlags(src), vk.PipelineStageFlags(dst), 0,
		0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// DestroyTexture destroys whichever of the texture objects exist.
func (dv *Device) DestroyTexture(th gpu.TextureHandles) {
	if samp, ok := dv.samplers.remove(th.Sampler); ok {
		vk.DestroySampler(dv.Device, samp, nil)
	}
	if view, ok := dv.views.remove(th.View); ok {
		vk.DestroyImageView(dv.Device, view, nil)
	}
	if img, ok := dv.images.remove(th.Image); ok {
		vk.DestroyImage(dv.Device, img, nil)
	}
	if mem, ok := dv.memory.remove(th.Memory); ok {
		vk.FreeMemory(dv.Device, mem, nil)
	}
}
