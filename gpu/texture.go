// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"image"
	"log/slog"
)

// Texture is an image in device memory with a view and sampler,
// ready to be bound as a combined image sampler.
type Texture struct {
	// Name of the texture, the file path if opened from a file.
	Name string

	// Size of the image in pixels.
	Size image.Point

	// Handles of the device objects.
	Handles TextureHandles

	device Device
}

// NewTexture uploads img to the device.
func NewTexture(dev Device, name string, img *image.RGBA, sampler SamplerDesc) (*Texture, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, NewPreconditionError("texture %q has no pixels", name)
	}
	th, err := dev.CreateTexture(img, sampler)
	if err != nil {
		return nil, NewResourceError("texture "+name, err)
	}
	tx := &Texture{Name: name, Size: img.Bounds().Size(), Handles: th, device: dev}
	slog.Info("gpu.Texture created", "texture", name, "width", tx.Size.X, "height", tx.Size.Y)
	return tx, nil
}

// OpenTexture opens the image file at path and uploads it to the device
// with the [DefaultSampler].
func OpenTexture(dev Device, path string) (*Texture, error) {
	img, err := OpenImage(path)
	if err != nil {
		return nil, err
	}
	return NewTexture(dev, path, img, DefaultSampler)
}

// View returns the image view handle.
func (tx *Texture) View() ImageViewHandle {
	return tx.Handles.View
}

// Sampler returns the sampler handle.
func (tx *Texture) Sampler() SamplerHandle {
	return tx.Handles.Sampler
}

// Valid returns true if the texture is still allocated.
func (tx *Texture) Valid() bool {
	return tx != nil && !tx.Handles.IsNil()
}

// Destroy destroys the device objects. It is safe to call more than once.
func (tx *Texture) Destroy() {
	if !tx.Valid() {
		return
	}
	tx.device.DestroyTexture(tx.Handles)
	tx.Handles = TextureHandles{}
}
