// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gpu

import (
	"fmt"
	"os"
)

// Shader is a compiled shader program module for one stage.
type Shader struct {
	Name   string
	Stage  ShaderStages
	Module ShaderModuleHandle

	device Device
}

// OpenShader reads the compiled SPIR-V program at path and creates a
// shader module from it. The code is opaque: only that it can be read
// and has a whole number of 32 bit words is checked.
func OpenShader(dev Device, name string, stage ShaderStages, path string) (*Shader, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, NewIOError(path, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, NewIOError(path, fmt.Errorf("invalid SPIR-V length %d", len(code)))
	}
	return NewShader(dev, name, stage, code)
}

// NewShader creates a shader module from SPIR-V code.
func NewShader(dev Device, name string, stage ShaderStages, code []byte) (*Shader, error) {
	sm, err := dev.CreateShaderModule(code)
	if err != nil {
		return nil, NewResourceError("shader module "+name, err)
	}
	return &Shader{Name: name, Stage: stage, Module: sm, device: dev}, nil
}

// StageDesc returns the pipeline stage for this shader, using the
// main entry point.
func (sh *Shader) StageDesc() ShaderStageDesc {
	return ShaderStageDesc{Stage: sh.Stage, Module: sh.Module, Entry: "main"}
}

// Destroy destroys the module. It is safe to call more than once.
func (sh *Shader) Destroy() {
	if sh == nil || sh.Module == 0 {
		return
	}
	sh.device.DestroyShaderModule(sh.Module)
	sh.Module = 0
}
