// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"cogentcore.org/core/colors"
	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

// Surface manages the device for a window surface, the swapchain
// presenting its images, and one render pass that clears and draws
// into them. One frame is in flight at a time.
type Surface struct {
	// GPU is the physical device, for convenience.
	GPU *GPU

	// Device for this surface: each window surface has its own device,
	// configured for presenting to that surface.
	Device Device

	// Surface is the vulkan surface of the window.
	Surface vk.Surface

	// Swapchain is the vulkan swapchain.
	Swapchain vk.Swapchain

	// Format of the swapchain images.
	Format vk.SurfaceFormat

	// Size is the current size of the swapchain images.
	Size image.Point

	// NFrames is the number of images in the swapchain,
	// initially the number requested.
	NFrames int

	// ClearColor is what each frame is cleared to.
	ClearColor color.Color

	// FramebufferSize returns the current size of the window framebuffer,
	// used when the surface does not determine the swapchain size.
	FramebufferSize func() image.Point

	RenderPass   vk.RenderPass
	Images       []vk.Image
	Views        []vk.ImageView
	Framebuffers []vk.Framebuffer

	renderPass    gpu.RenderPassHandle
	cmd           CommandBuffer
	imageAcquired vk.Semaphore
	drawComplete  vk.Semaphore
	inFlight      vk.Fence
	imageIndex    uint32
	recording     bool
}

// NewSurface makes the device, swapchain, render pass and frame
// synchronization for the vulkan surface of a window, obtained from the
// window system first (e.g., via glfw). size is the requested size.
func NewSurface(gp *GPU, vs vk.Surface, size image.Point) (*Surface, error) {
	sf := &Surface{GPU: gp, Surface: vs, Size: size, NFrames: 2, ClearColor: color.Black}
	sf.FramebufferSize = func() image.Point { return size }
	if err := sf.init(); err != nil {
		sf.Destroy()
		return nil, err
	}
	slog.Info("vgpu.Surface created", "size", sf.Size, "frames", sf.NFrames)
	return sf, nil
}

func (sf *Surface) init() error {
	if err := sf.Device.FindSurfaceQueue(sf.GPU, sf.Surface); err != nil {
		return err
	}
	if err := sf.Device.MakeDevice(sf.GPU); err != nil {
		return err
	}
	if err := sf.InitSwapchain(); err != nil {
		return err
	}
	if err := sf.initRenderPass(); err != nil {
		return err
	}
	if err := sf.initFrames(); err != nil {
		return err
	}
	if err := sf.initSync(); err != nil {
		return err
	}
	cmd, err := sf.Device.CmdPool.NewBuffer(&sf.Device)
	if err != nil {
		return err
	}
	sf.Device.CmdPool.Buff = cmd
	sf.cmd = CommandBuffer{Cmd: cmd, Device: &sf.Device}
	return nil
}

// InitSwapchain initializes the swapchain for the surface.
func (sf *Surface) InitSwapchain() error {
	dev := sf.Device.Device
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(sf.GPU.GPU, sf.Surface, &caps)
	if err := NewError(ret); err != nil {
		return err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(sf.GPU.GPU, sf.Surface, &formatCount, nil)
	if formatCount == 0 {
		return errors.New("vgpu.Surface: surface has no pixel formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(sf.GPU.GPU, sf.Surface, &formatCount, formats)
	sf.Format = ChooseSurfaceFormat(formats)

	var extent vk.Extent2D
	if caps.CurrentExtent.Width == vk.MaxUint32 {
		sz := sf.FramebufferSize()
		extent.Width = clamp(uint32(sz.X), caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
		extent.Height = clamp(uint32(sz.Y), caps.MinImageExtent.Height, caps.MaxImageExtent.Height)
	} else {
		extent = caps.CurrentExtent
	}

	// The FIFO present mode is guaranteed to be supported, without tearing.
	presentMode := vk.PresentModeFifo

	images := uint32(sf.NFrames)
	if images < caps.MinImageCount {
		images = caps.MinImageCount
	}
	if caps.MaxImageCount > 0 && images > caps.MaxImageCount {
		images = caps.MaxImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	// one of these is guaranteed to be set
	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, ca := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(ca) != 0 {
			compositeAlpha = ca
			break
		}
	}

	var swapchain vk.Swapchain
	oldSwapchain := sf.Swapchain
	ret = vk.CreateSwapchain(dev, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          sf.Surface,
		MinImageCount:    images,
		ImageFormat:      sf.Format.Format,
		ImageColorSpace:  sf.Format.ColorSpace,
		ImageExtent:      extent,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		PresentMode:      presentMode,
		OldSwapchain:     oldSwapchain,
		Clipped:          vk.True,
	}, nil, &swapchain)
	if err := NewError(ret); err != nil {
		return fmt.Errorf("vgpu.Surface: creating swapchain: %w", err)
	}
	if oldSwapchain != vk.NullSwapchain {
		vk.DestroySwapchain(dev, oldSwapchain, nil)
	}
	sf.Swapchain = swapchain
	sf.Size = image.Point{int(extent.Width), int(extent.Height)}

	var imageCount uint32
	if err := NewError(vk.GetSwapchainImages(dev, sf.Swapchain, &imageCount, nil)); err != nil {
		return err
	}
	sf.Images = make([]vk.Image, imageCount)
	if err := NewError(vk.GetSwapchainImages(dev, sf.Swapchain, &imageCount, sf.Images)); err != nil {
		return err
	}
	sf.NFrames = int(imageCount)
	return nil
}

// ChooseSurfaceFormat prefers 8 bit BGRA sRGB, and otherwise takes
// the first format available.
func ChooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Srgb && formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return formats[i]
		}
	}
	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Srgb
	}
	return format
}

func clamp(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}

// initRenderPass makes the render pass with one color attachment
// that is cleared and then presented.
func (sf *Surface) initRenderPass() error {
	var rp vk.RenderPass
	ret := vk.CreateRenderPass(sf.Device.Device, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments: []vk.AttachmentDescription{{
			Format:         sf.Format.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		}},
		SubpassCount: 1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: 1,
			PColorAttachments: []vk.AttachmentReference{{
				Attachment: 0,
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			}},
		}},
		DependencyCount: 1,
		PDependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		}},
	}, nil, &rp)
	if err := NewError(ret); err != nil {
		return fmt.Errorf("vgpu.Surface: creating render pass: %w", err)
	}
	sf.RenderPass = rp
	sf.renderPass = sf.Device.AddRenderPass(rp)
	return nil
}

// initFrames makes an image view and framebuffer for each swapchain image.
func (sf *Surface) initFrames() error {
	dev := sf.Device.Device
	sf.Views = make([]vk.ImageView, 0, len(sf.Images))
	sf.Framebuffers = make([]vk.Framebuffer, 0, len(sf.Images))
	for _, img := range sf.Images {
		var view vk.ImageView
		ret := vk.CreateImageView(dev, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   sf.Format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: colorSubresource,
		}, nil, &view)
		if err := NewError(ret); err != nil {
			return err
		}
		sf.Views = append(sf.Views, view)

		var fb vk.Framebuffer
		ret = vk.CreateFramebuffer(dev, &vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      sf.RenderPass,
			AttachmentCount: 1,
			PAttachments:    []vk.ImageView{view},
			Width:           uint32(sf.Size.X),
			Height:          uint32(sf.Size.Y),
			Layers:          1,
		}, nil, &fb)
		if err := NewError(ret); err != nil {
			return err
		}
		sf.Framebuffers = append(sf.Framebuffers, fb)
	}
	return nil
}

func (sf *Surface) initSync() error {
	dev := sf.Device.Device
	semInfo := &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	if err := NewError(vk.CreateSemaphore(dev, semInfo, nil, &sf.imageAcquired)); err != nil {
		return err
	}
	if err := NewError(vk.CreateSemaphore(dev, semInfo, nil, &sf.drawComplete)); err != nil {
		return err
	}
	return NewError(vk.CreateFence(dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &sf.inFlight))
}

// FreeSwapchain frees the framebuffers, views and swapchain,
// for ReInit or Destroy.
func (sf *Surface) FreeSwapchain() {
	dev := sf.Device.Device
	if dev == nil {
		return
	}
	vk.DeviceWaitIdle(dev)
	for _, fb := range sf.Framebuffers {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
	sf.Framebuffers = nil
	for _, view := range sf.Views {
		vk.DestroyImageView(dev, view, nil)
	}
	sf.Views = nil
	sf.Images = nil
	if sf.Swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(dev, sf.Swapchain, nil)
		sf.Swapchain = vk.NullSwapchain
	}
}

// ReInitSwapchain does a re-initialize of swapchain, freeing existing.
// This must be called when the window is resized; it is called
// automatically when presenting finds the swapchain out of date.
func (sf *Surface) ReInitSwapchain() error {
	sf.FreeSwapchain()
	if err := sf.InitSwapchain(); err != nil {
		return err
	}
	slog.Debug("vgpu.Surface swapchain reinitialized", "size", sf.Size)
	return sf.initFrames()
}

// Extent returns the current size of the images drawn into.
func (sf *Surface) Extent() image.Point {
	return sf.Size
}

// RenderTarget returns what pipelines drawing to this surface
// must be compatible with.
func (sf *Surface) RenderTarget() gpu.RenderTarget {
	return gpu.RenderTarget{RenderPass: sf.renderPass, Samples: 1}
}

// BeginFrame waits for the previous frame, acquires the next swapchain
// image, and begins the render pass on it. It returns false without an
// error if no frame can be drawn now, e.g. when the window is minimized
// or the swapchain had to be recreated.
func (sf *Surface) BeginFrame() (*CommandBuffer, bool, error) {
	if sz := sf.FramebufferSize(); sz.X <= 0 || sz.Y <= 0 {
		return nil, false, nil
	}
	dev := sf.Device.Device
	fences := []vk.Fence{sf.inFlight}
	if err := NewError(vk.WaitForFences(dev, 1, fences, vk.True, vk.MaxUint64)); err != nil {
		return nil, false, err
	}
	var idx uint32
	ret := vk.AcquireNextImage(dev, sf.Swapchain, vk.MaxUint64, sf.imageAcquired, vk.NullFence, &idx)
	switch ret {
	case vk.ErrorOutOfDate:
		return nil, false, sf.ReInitSwapchain()
	case vk.Success, vk.Suboptimal:
	default:
		return nil, false, NewError(ret)
	}
	sf.imageIndex = idx
	vk.ResetFences(dev, 1, fences)

	cmd := sf.cmd.Cmd
	vk.ResetCommandBuffer(cmd, 0)
	ret = vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})
	if err := NewError(ret); err != nil {
		return nil, false, err
	}
	vk.CmdBeginRenderPass(cmd, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  sf.RenderPass,
		Framebuffer: sf.Framebuffers[idx],
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: uint32(sf.Size.X), Height: uint32(sf.Size.Y)},
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(ClearValues(sf.ClearColor))},
	}, vk.SubpassContentsInline)
	sf.recording = true
	return &sf.cmd, true, nil
}

// EndFrame ends the render pass begun by [Surface.BeginFrame], submits
// the commands and presents the image.
func (sf *Surface) EndFrame() error {
	if !sf.recording {
		return nil
	}
	sf.recording = false
	cmd := sf.cmd.Cmd
	vk.CmdEndRenderPass(cmd)
	if err := NewError(vk.EndCommandBuffer(cmd)); err != nil {
		return err
	}
	ret := vk.QueueSubmit(sf.Device.Queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sf.imageAcquired},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cmd},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{sf.drawComplete},
	}}, sf.inFlight)
	if err := NewError(ret); err != nil {
		return err
	}
	ret = vk.QueuePresent(sf.Device.Queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{sf.drawComplete},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sf.Swapchain},
		PImageIndices:      []uint32{sf.imageIndex},
	})
	switch ret {
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return sf.ReInitSwapchain()
	case vk.Success:
		return nil
	}
	return NewError(ret)
}

// Frames draws on a [Surface] through the [gpu.CommandBuffer] interface.
type Frames struct {
	*Surface
}

// BeginFrame is [Surface.BeginFrame], returning the command buffer
// as a [gpu.CommandBuffer], nil when there is no frame.
func (fr Frames) BeginFrame() (gpu.CommandBuffer, bool, error) {
	cmd, ok, err := fr.Surface.BeginFrame()
	if err != nil || !ok {
		return nil, false, err
	}
	return cmd, true, nil
}

// ClearValues returns the color as float RGBA components.
func ClearValues(c color.Color) []float32 {
	rgba := colors.AsRGBA(c)
	return []float32{float32(rgba.R) / 255, float32(rgba.G) / 255, float32(rgba.B) / 255, float32(rgba.A) / 255}
}

// Destroy destroys everything made for the surface, including its
// device and the vulkan surface itself.
func (sf *Surface) Destroy() {
	dev := sf.Device.Device
	sf.FreeSwapchain()
	if dev != nil {
		if sf.imageAcquired != nil {
			vk.DestroySemaphore(dev, sf.imageAcquired, nil)
			sf.imageAcquired = nil
		}
		if sf.drawComplete != nil {
			vk.DestroySemaphore(dev, sf.drawComplete, nil)
			sf.drawComplete = nil
		}
		if sf.inFlight != nil {
			vk.DestroyFence(dev, sf.inFlight, nil)
			sf.inFlight = nil
		}
		if rp, ok := sf.Device.RemoveRenderPass(sf.renderPass); ok {
			vk.DestroyRenderPass(dev, rp, nil)
		}
		sf.RenderPass = nil
	}
	sf.Device.Destroy()
	if sf.Surface != vk.NullSurface && sf.GPU != nil {
		vk.DestroySurface(sf.GPU.Instance, sf.Surface, nil)
		sf.Surface = vk.NullSurface
	}
	sf.GPU = nil
}
