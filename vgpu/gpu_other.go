// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !darwin

package vgpu

// PlatformDefaults does nothing on this platform.
func PlatformDefaults(gp *GPU) {}
