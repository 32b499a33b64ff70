// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"log/slog"
)

// Buffer is a GPU buffer together with the memory backing it.
// It is owned by a single object, which destroys it.
type Buffer struct {
	// Name is used for diagnostics.
	Name string

	// Size is the size of the buffer in bytes.
	Size int

	// Usage of the buffer.
	Usage BufferUsages

	// Props of the backing memory.
	Props MemoryProps

	// AlignBytes is the required alignment of offsets into this buffer,
	// e.g. the minimum storage buffer offset alignment.
	AlignBytes int

	// Handle is the device buffer handle.
	Handle BufferHandle

	// Memory is the device memory backing the buffer.
	Memory MemoryHandle

	device Device
}

// NewBuffer creates a buffer of given size on the device.
func NewBuffer(dev Device, name string, size int, usage BufferUsages, props MemoryProps, align int) (*Buffer, error) {
	if size <= 0 {
		return nil, NewPreconditionError("buffer %q has size %d", name, size)
	}
	h, mem, err := dev.CreateBuffer(size, usage, props)
	if err != nil {
		return nil, NewResourceError("buffer "+name, err)
	}
	return &Buffer{Name: name, Size: size, Usage: usage, Props: props, AlignBytes: align, Handle: h, Memory: mem, device: dev}, nil
}

// Device returns the device the buffer was created on.
func (bf *Buffer) Device() Device {
	return bf.device
}

// Destroy destroys the buffer and frees its memory.
// It is safe to call more than once.
func (bf *Buffer) Destroy() {
	if bf == nil || bf.Handle == 0 {
		return
	}
	bf.device.DestroyBuffer(bf.Handle, bf.Memory)
	bf.Handle = 0
	bf.Memory = 0
}

// Upload copies data into the device local buffer dst, through a
// staging buffer that is created for this call and destroyed before
// it returns: create host visible staging, map, copy, unmap,
// device copy staging to dst, destroy staging.
// No staging memory is kept between calls.
func Upload(dst *Buffer, data []byte) error {
	if dst == nil || dst.Handle == 0 {
		return NewPreconditionError("upload into a nil buffer")
	}
	if len(data) == 0 {
		return NewPreconditionError("upload of no data into %q", dst.Name)
	}
	if len(data) > dst.Size {
		return NewPreconditionError("upload of %d bytes into %q of size %d", len(data), dst.Name, dst.Size)
	}
	dev := dst.device
	size := len(data)
	sh, smem, err := dev.CreateBuffer(size, TransferSrc, HostVisible|HostCoherent)
	if err != nil {
		return NewResourceError("staging buffer for "+dst.Name, err)
	}
	defer dev.DestroyBuffer(sh, smem)

	mapped, err := dev.MapMemory(smem, size)
	if err != nil {
		return NewResourceError("staging map for "+dst.Name, err)
	}
	copy(mapped, data)
	dev.UnmapMemory(smem)

	if err := dev.CopyBuffer(sh, dst.Handle, size); err != nil {
		return NewResourceError("staging copy into "+dst.Name, err)
	}
	slog.Debug("gpu.Upload", "buffer", dst.Name, "bytes", size)
	return nil
}

// NewDeviceBuffer creates a device local buffer sized exactly to data
// with the given usage plus TransferDst, and uploads data into it.
func NewDeviceBuffer(dev Device, name string, data []byte, usage BufferUsages, align int) (*Buffer, error) {
	bf, err := NewBuffer(dev, name, len(data), usage|TransferDst, DeviceLocal, align)
	if err != nil {
		return nil, err
	}
	if err := Upload(bf, data); err != nil {
		bf.Destroy()
		return nil, err
	}
	return bf, nil
}
