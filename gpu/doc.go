// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package gpu is the backend neutral vocabulary for explicit GPU APIs
such as Vulkan, used by the sprite renderer.

A [Device] creates and destroys GPU objects, identified by opaque
typed handles, and moves memory between the host and the GPU.
A [CommandBuffer] records draw commands within a render pass.
The vgpu package implements both on Vulkan, and gputest implements
them in memory for tests.

On top of these, this package provides:

  - [Buffer]: a buffer and its memory, with [Upload] copying host data
    into device local memory through a transient staging buffer.
  - [Mesh]: an indexed mesh shared by reference counting.
  - [Texture]: an image with a view and sampler, loaded with [OpenTexture].
  - [Shader]: a compiled SPIR-V module, loaded with [OpenShader].

All errors are classified by one of the sentinel errors such as
[ErrResourceCreation] and [ErrIO], which [errors.Is] matches through
[ResourceError].
*/
package gpu
