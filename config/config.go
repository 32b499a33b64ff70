// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config contains the configuration of the vsprite app.
package config

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"

	"cogentcore.org/core/base/errors"
	"cogentcore.org/core/base/fsx"
	"cogentcore.org/core/base/iox/tomlx"
	"cogentcore.org/core/cli"
	"cogentcore.org/core/colors"
	"github.com/pelletier/go-toml/v2"

	"cogentcore.org/vsprite/gpu"
)

// DefaultFile is the config file looked for in the current directory.
const DefaultFile = "vsprite.toml"

// Config is the configuration of the vsprite app.
type Config struct {

	// Sprites is the number of sprites to draw.
	Sprites int `default:"1000"`

	// Seed of the generator for sprite positions and velocities.
	Seed uint32 `default:"123456789"`

	// Texture is the image file shared by all sprites.
	Texture string `default:"logo.jpg"`

	// VertShader is the compiled SPIR-V vertex program.
	VertShader string `default:"triangle.vert.spv"`

	// FragShader is the compiled SPIR-V fragment program.
	FragShader string `default:"triangle.frag.spv"`

	// Width of the window.
	Width int `default:"800"`

	// Height of the window.
	Height int `default:"600"`

	// Title of the window.
	Title string `default:"Vulkan Sprites"`

	// ClearColor is the background, as a hex color.
	ClearColor string `default:"#000000"`

	// Debug enables the vulkan validation layers.
	Debug bool

	// LogLevel is the minimum level logged: debug, info, warn or error.
	LogLevel string `default:"info"`

	// AssetPaths are the directories searched for the texture and
	// shader files, in order. The current directory is used if empty.
	AssetPaths []string

	// WriteConfig is a file to save the resulting config to, as TOML.
	// The app exits after saving it.
	WriteConfig string `flag:"write-config"`
}

// New returns a config with the default values.
func New() *Config {
	cfg := &Config{}
	errors.Log(cli.SetFromDefaults(cfg))
	return cfg
}

// Open returns a config with the default values, overridden by
// those in the given TOML files, in order.
func Open(files ...string) (*Config, error) {
	cfg := New()
	if len(files) == 0 {
		return cfg, nil
	}
	if err := tomlx.OpenFiles(cfg, files...); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config as TOML to the file.
func (cfg *Config) Save(filename string) error {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0666)
}

// Resolve returns the path of the named asset file, looking in each of
// the AssetPaths in turn. Absolute names are returned as is.
// A missing file is a [gpu.ErrIO] error.
func (cfg *Config) Resolve(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return name, nil
	}
	paths := cfg.AssetPaths
	if len(paths) == 0 {
		paths = []string{"."}
	}
	files := fsx.FindFilesOnPaths(paths, name)
	if len(files) == 0 {
		return "", gpu.NewIOError(name, fmt.Errorf("not found on asset paths %v: %w", paths, os.ErrNotExist))
	}
	return files[0], nil
}

// Level returns the LogLevel, defaulting to info if it is not valid.
func (cfg *Config) Level() slog.Level {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		errors.Log(fmt.Errorf("config: log level: %w", err))
		return slog.LevelInfo
	}
	return lv
}

// Clear returns the ClearColor, defaulting to black if it is not valid.
func (cfg *Config) Clear() color.RGBA {
	c, err := colors.FromHex(cfg.ClearColor)
	if err != nil {
		errors.Log(fmt.Errorf("config: clear color: %w", err))
		return color.RGBA{A: 255}
	}
	return c
}
