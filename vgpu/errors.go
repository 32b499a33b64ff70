// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vgpu

import (
	"fmt"
	"path/filepath"
	"runtime"

	vk "github.com/goki/vulkan"
)

// IsError returns true if ret is not a success code.
func IsError(ret vk.Result) bool {
	return ret != vk.Success
}

// NewError returns nil for a success code, and otherwise an error
// naming the result and the function that got it.
func NewError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return fmt.Errorf("vulkan error: %w (%d)", vk.Error(ret), ret)
	}
	fn := "unknown"
	if f := runtime.FuncForPC(pc); f != nil {
		fn = filepath.Base(f.Name())
	}
	return fmt.Errorf("vulkan error: %w (%d) on %s", vk.Error(ret), ret, fn)
}
