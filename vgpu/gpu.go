// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vgpu implements the gpu Device and CommandBuffer on Vulkan,
// with a window Surface that presents frames through a swapchain.
package vgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	vk "github.com/goki/vulkan"

	"cogentcore.org/vsprite/gpu"
)

// Debug enables the validation layers for GPUs created after it is set.
var Debug = false

// GPU represents the Vulkan instance and the physical device it uses.
// Each window Surface makes its own logical [Device] on it.
type GPU struct {
	// Instance is the vulkan instance.
	Instance vk.Instance

	// GPU is the physical device.
	GPU vk.PhysicalDevice

	// Name is the name of the application, given to the instance.
	Name string

	// DeviceName is the name of the physical device.
	DeviceName string

	// Debug enables the validation layers.
	Debug bool

	// InstanceExts are the instance extensions to enable.
	InstanceExts []string

	// DeviceExts are the device extensions to enable.
	DeviceExts []string

	// InstanceFlags are flags for creating the instance.
	InstanceFlags vk.InstanceCreateFlags

	// ValidationLayers are the layers enabled when Debug is on.
	ValidationLayers []string

	// GPUProps are the properties of the physical device.
	GPUProps vk.PhysicalDeviceProperties

	// MemoryProps are the memory properties of the physical device.
	MemoryProps vk.PhysicalDeviceMemoryProperties
}

// NewGPU returns a new GPU with default extensions, which must then be
// configured with [GPU.Config]. instanceExts are the extensions required
// by the window system, e.g. from glfw.
func NewGPU(name string, instanceExts ...string) *GPU {
	gp := &GPU{Name: name, Debug: Debug}
	gp.InstanceExts = append(gp.InstanceExts, instanceExts...)
	gp.DeviceExts = []string{"VK_KHR_swapchain"}
	gp.ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}
	PlatformDefaults(gp)
	return gp
}

// Config creates the instance and selects the physical device,
// preferring a discrete GPU.
func (gp *GPU) Config() error {
	exts := SafeStrings(gp.InstanceExts)
	info := &vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			PApplicationName:   SafeString(gp.Name),
			ApplicationVersion: vk.MakeVersion(1, 0, 0),
			PEngineName:        "vsprite\x00",
			EngineVersion:      vk.MakeVersion(1, 0, 0),
			ApiVersion:         vk.ApiVersion10,
		},
		Flags:                   gp.InstanceFlags,
		EnabledExtensionCount:   uint32(len(exts)),
		PpEnabledExtensionNames: exts,
	}
	if gp.Debug {
		layers := SafeStrings(gp.ValidationLayers)
		info.EnabledLayerCount = uint32(len(layers))
		info.PpEnabledLayerNames = layers
	}
	var instance vk.Instance
	if err := NewError(vk.CreateInstance(info, nil, &instance)); err != nil {
		return fmt.Errorf("vgpu.GPU: creating instance: %w", err)
	}
	gp.Instance = instance
	if err := vk.InitInstance(instance); err != nil {
		return fmt.Errorf("vgpu.GPU: loading instance functions: %w", err)
	}

	var count uint32
	if err := NewError(vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return errors.New("vgpu.GPU: no physical devices found")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := NewError(vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return err
	}
	gp.GPU = devices[gp.pickDevice(devices)]

	vk.GetPhysicalDeviceProperties(gp.GPU, &gp.GPUProps)
	gp.GPUProps.Deref()
	gp.GPUProps.Limits.Deref()
	vk.GetPhysicalDeviceMemoryProperties(gp.GPU, &gp.MemoryProps)
	gp.MemoryProps.Deref()
	gp.DeviceName = vk.ToString(gp.GPUProps.DeviceName[:])
	slog.Info("vgpu.GPU configured", "device", gp.DeviceName, "debug", gp.Debug)
	return nil
}

// pickDevice returns the index of the first discrete GPU, or 0.
func (gp *GPU) pickDevice(devices []vk.PhysicalDevice) int {
	for i, dev := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()
		if props.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu {
			return i
		}
	}
	return 0
}

// Limits returns the device limits used for resource layout.
func (gp *GPU) Limits() gpu.Limits {
	lm := gp.GPUProps.Limits
	return gpu.Limits{
		MinStorageBufferOffsetAlignment: int(lm.MinStorageBufferOffsetAlignment),
		MaxStorageBufferRange:           int(lm.MaxStorageBufferRange),
		MaxPushConstantsSize:            int(lm.MaxPushConstantsSize),
	}
}

// Destroy destroys the instance. All surfaces and devices must
// have been destroyed first.
func (gp *GPU) Destroy() {
	if gp.Instance == nil {
		return
	}
	vk.DestroyInstance(gp.Instance, nil)
	gp.Instance = nil
}

// SafeString returns s terminated by a null byte, as vulkan requires.
func SafeString(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}

// SafeStrings returns a copy of list with every string null terminated.
func SafeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = SafeString(s)
	}
	return out
}
