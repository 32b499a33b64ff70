// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command vsprite draws a field of moving textured sprites in a window,
// with one instanced draw call per frame.
package main

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"cogentcore.org/core/cli"
	"github.com/go-gl/glfw/v3.3/glfw"

	"cogentcore.org/vsprite/config"
	"cogentcore.org/vsprite/render"
	"cogentcore.org/vsprite/vgpu"
)

func init() {
	// must lock main thread for gpu!
	runtime.LockOSThread()
}

func main() {
	opts := cli.DefaultOptions("vsprite", "Draws instanced sprites with Vulkan.")
	opts.DefaultFiles = []string{config.DefaultFile}
	cli.Run(opts, config.New(), Run)
}

// Run opens the window and draws the sprites until it is closed.
func Run(cfg *config.Config) error { //cli:cmd -root
	if cfg.WriteConfig != "" {
		return cfg.Save(cfg.WriteConfig)
	}
	slog.SetLogLoggerLevel(cfg.Level())

	vert, err := cfg.Resolve(cfg.VertShader)
	if err != nil {
		return err
	}
	frag, err := cfg.Resolve(cfg.FragShader)
	if err != nil {
		return err
	}
	tex, err := cfg.Resolve(cfg.Texture)
	if err != nil {
		return err
	}

	if err := vgpu.Init(); err != nil {
		return err
	}
	defer vgpu.Terminate()

	win, err := vgpu.NewWindow(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer win.Destroy()

	vgpu.Debug = cfg.Debug
	gp, err := vgpu.NewWindowGPU("vsprite", win)
	if err != nil {
		return err
	}
	defer gp.Destroy()

	sf, err := vgpu.NewWindowSurface(gp, win)
	if err != nil {
		return err
	}
	defer sf.Destroy()
	sf.ClearColor = cfg.Clear()

	sy, err := render.NewSystem(&sf.Device, sf, sf.RenderTarget(), render.SystemOptions{VertShader: vert, FragShader: frag})
	if err != nil {
		return err
	}
	defer sy.Destroy()

	err = sy.LoadSprites(render.LoadOptions{Count: cfg.Sprites, Seed: cfg.Seed, TexturePath: tex})
	if err != nil {
		return err
	}
	if err := sy.Initialize(); err != nil {
		return err
	}
	return loop(win, sf, sy)
}

// loop runs the frames until the window should close.
func loop(win *glfw.Window, sf *vgpu.Surface, sy *render.System) error {
	last := time.Now()
	frames := 0
	stTime := last
	fr := vgpu.Frames{Surface: sf}
	for !win.ShouldClose() {
		glfw.PollEvents()
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		ok, err := sy.DrawFrame(fr, dt)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		frames++
		if dur := now.Sub(stTime); dur > 10*time.Second {
			st := sy.Stats()
			slog.Debug("vsprite", "fps", fmt.Sprintf("%.0f", float64(frames)/dur.Seconds()), "frames", st.Frames, "degraded", st.Degraded)
			frames = 0
			stTime = now
		}
	}
	return nil
}

