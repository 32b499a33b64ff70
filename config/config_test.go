// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogentcore.org/vsprite/gpu"
)

func TestDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, 1000, cfg.Sprites)
	assert.Equal(t, uint32(123456789), cfg.Seed)
	assert.Equal(t, "logo.jpg", cfg.Texture)
	assert.Equal(t, "triangle.vert.spv", cfg.VertShader)
	assert.Equal(t, "triangle.frag.spv", cfg.FragShader)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
	assert.False(t, cfg.Debug)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, cfg.Clear())
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(fn, []byte("Sprites = 50\nTexture = \"star.png\"\nLogLevel = \"debug\"\n"), 0666))

	cfg, err := Open(fn)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Sprites)
	assert.Equal(t, "star.png", cfg.Texture)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	// not in the file
	assert.Equal(t, uint32(123456789), cfg.Seed)
	assert.Equal(t, 800, cfg.Width)

	cfg, err = Open()
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Sprites)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "saved.toml")
	cfg := New()
	cfg.Sprites = 7
	cfg.ClearColor = "#ff0000"
	cfg.AssetPaths = []string{"assets", "."}
	require.NoError(t, cfg.Save(fn))

	got, err := Open(fn)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Sprites)
	assert.Equal(t, []string{"assets", "."}, got.AssetPaths)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, got.Clear())
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(assets, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "logo.jpg"), []byte("x"), 0666))

	cfg := New()
	cfg.AssetPaths = []string{dir, assets}
	p, err := cfg.Resolve("logo.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(assets, "logo.jpg"), p)

	_, err = cfg.Resolve("missing.spv")
	assert.ErrorIs(t, err, gpu.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "missing.spv")

	abs := filepath.Join(dir, "abs.spv")
	p, err = cfg.Resolve(abs)
	require.NoError(t, err)
	assert.Equal(t, abs, p)
}

func TestBadValues(t *testing.T) {
	cfg := New()
	cfg.LogLevel = "loud"
	cfg.ClearColor = "not a color"
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, color.RGBA{A: 255}, cfg.Clear())
}
