// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build (darwin && !ios) || windows || (linux && !android) || dragonfly || openbsd

package vgpu

import (
	"image"

	"cogentcore.org/core/base/errors"
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
)

// note: this file contains the glfw dependencies, for desktop platform builds

// Init initializes vulkan system for Display-enabled use, using glfw.
// Must call before doing any vgpu stuff.
// Calls glfw.Init and sets the Vulkan instance proc addr and calls Init.
// IMPORTANT: must be called on the main initial thread!
func Init() error {
	err := glfw.Init()
	if err != nil {
		return errors.Log(err)
	}
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	return errors.Log(vk.Init())
}

// Terminate shuts down the vulkan system -- call as last thing before quitting.
// IMPORTANT: must be called on the main initial thread!
func Terminate() {
	glfw.Terminate()
}

// NewWindow opens a window for vulkan rendering, with no client API.
func NewWindow(width, height int, title string) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	return glfw.CreateWindow(width, height, title, nil, nil)
}

// NewWindowGPU makes a GPU with the instance extensions that glfw needs
// for presenting to windows, and configures it.
func NewWindowGPU(name string, win *glfw.Window) (*GPU, error) {
	gp := NewGPU(name, win.GetRequiredInstanceExtensions()...)
	if err := gp.Config(); err != nil {
		gp.Destroy()
		return nil, err
	}
	return gp, nil
}

// NewWindowSurface makes the vulkan surface for the window,
// and a [Surface] on it that follows the window framebuffer size.
func NewWindowSurface(gp *GPU, win *glfw.Window) (*Surface, error) {
	surfPtr, err := win.CreateWindowSurface(gp.Instance, nil)
	if err != nil {
		return nil, err
	}
	w, h := win.GetFramebufferSize()
	sf, err := NewSurface(gp, vk.SurfaceFromPointer(surfPtr), image.Point{w, h})
	if err != nil {
		return nil, err
	}
	sf.FramebufferSize = func() image.Point {
		w, h := win.GetFramebufferSize()
		return image.Point{w, h}
	}
	return sf, nil
}
