// Copyright (c) 2025, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogentcore.org/vsprite/gpu"
	"cogentcore.org/vsprite/gpu/gputest"
	"cogentcore.org/vsprite/sprite"
)

type extent image.Point

func (ex extent) Extent() image.Point { return image.Point(ex) }

type assets struct {
	vert, frag, texture string
}

// spirv is the SPIR-V magic number followed by a version word.
var spirv = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func writeAssets(t *testing.T) assets {
	dir := t.TempDir()
	as := assets{
		vert:    filepath.Join(dir, "triangle.vert.spv"),
		frag:    filepath.Join(dir, "triangle.frag.spv"),
		texture: filepath.Join(dir, "logo.png"),
	}
	require.NoError(t, os.WriteFile(as.vert, spirv, 0o644))
	require.NoError(t, os.WriteFile(as.frag, spirv, 0o644))
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range 4 {
		img.SetRGBA(i, i, color.RGBA{255, 0, 0, 255})
	}
	f, err := os.Create(as.texture)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return as
}

func newSystem(t *testing.T, sz image.Point) (*gputest.Device, *System, assets) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	sy, err := NewSystem(dev, extent(sz), gpu.RenderTarget{RenderPass: 99}, SystemOptions{VertShader: as.vert, FragShader: as.frag})
	require.NoError(t, err)
	return dev, sy, as
}

func loadOptions(as assets, n int) LoadOptions {
	return LoadOptions{Count: n, Seed: sprite.DefaultSeed, TexturePath: as.texture}
}

func TestOrtho(t *testing.T) {
	assert.Equal(t, 64, PushSize)
	ps := Ortho(image.Pt(800, 600))
	assert.InDelta(t, 0.75, ps.Projection[0], 1e-6)
	assert.InDelta(t, 1, ps.Projection[5], 1e-6)
	assert.InDelta(t, -1, ps.Projection[10], 1e-6)
	assert.InDelta(t, 1, ps.Projection[15], 1e-6)
	assert.Len(t, ps.Bytes(), PushSize)

	sq := Ortho(image.Pt(100, 100))
	assert.Equal(t, mgl32.Ortho(-1, 1, -1, 1, -1, 1), sq.Projection)
	assert.Equal(t, sq, Ortho(image.Pt(100, 0)))
}

func TestNewPipeline(t *testing.T) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	pl, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{RenderPass: 7})
	require.NoError(t, err)

	assert.Equal(t, SetBindings, dev.SetLayouts[pl.SetLayout()])
	lay := dev.PipelineLayouts[pl.Layout()]
	require.NotNil(t, lay)
	assert.Equal(t, []gpu.DescriptorSetLayoutHandle{pl.SetLayout()}, lay.Sets)
	assert.Equal(t, []gpu.PushConstantRange{{Stages: gpu.VertexStage | gpu.FragmentStage, Size: 64}}, lay.Push)

	require.Len(t, dev.Pools, 1)
	for _, pool := range dev.Pools {
		assert.Equal(t, PoolCapacity, pool.MaxSets)
		assert.ElementsMatch(t, []gpu.DescriptorPoolSize{
			{Type: gpu.StorageBuffer, Count: 1000},
			{Type: gpu.CombinedImageSampler, Count: 1000},
		}, pool.Sizes)
	}

	desc := dev.Pipelines[pl.Handle]
	require.NotNil(t, desc)
	require.Len(t, desc.Stages, 2)
	assert.Equal(t, gpu.VertexStage, desc.Stages[0].Stage)
	assert.Equal(t, gpu.FragmentStage, desc.Stages[1].Stage)
	assert.Equal(t, "main", desc.Stages[0].Entry)
	assert.Equal(t, gpu.TriangleList, desc.Topology)
	assert.Equal(t, gpu.CullNone, desc.Raster.CullMode)
	assert.Equal(t, gpu.FrontFaceCW, desc.Raster.FrontFace)
	assert.Equal(t, gpu.AlphaBlend, desc.Blend)
	assert.Equal(t, gpu.BlendSrcAlpha, desc.Blend.SrcColorFactor)
	assert.Equal(t, gpu.BlendOneMinusSrcAlpha, desc.Blend.DstColorFactor)
	assert.False(t, desc.Depth.TestEnable)
	assert.False(t, desc.Depth.WriteEnable)
	assert.True(t, desc.HasDynamicState(gpu.DynamicViewport))
	assert.True(t, desc.HasDynamicState(gpu.DynamicScissor))
	assert.Equal(t, gpu.RenderTarget{RenderPass: 7, Samples: 1}, desc.Target)
	assert.Equal(t, gpu.VertexLayout(), desc.VertexInput)

	cmd := &gputest.CommandBuffer{}
	pl.Bind(cmd)
	assert.Equal(t, []gputest.Cmd{{Op: "BindPipeline", Pipeline: pl.Handle}}, cmd.Cmds)
}

func TestNewPipelineMissingShader(t *testing.T) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	_, err := NewPipeline(dev, as.vert, filepath.Join(t.TempDir(), "none.spv"), gpu.RenderTarget{})
	assert.ErrorIs(t, err, gpu.ErrIO)
	assert.Zero(t, dev.Live(), "the vertex shader must be destroyed")
}

func TestNewPipelineFailures(t *testing.T) {
	as := writeAssets(t)
	for _, op := range []string{"CreateShaderModule", "CreateDescriptorSetLayout", "CreatePipelineLayout", "CreateDescriptorPool", "CreateGraphicsPipeline"} {
		t.Run(op, func(t *testing.T) {
			dev := gputest.NewDevice()
			cause := errors.New(op + " failed")
			dev.Fail[op] = cause
			_, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{})
			assert.ErrorIs(t, err, gpu.ErrResourceCreation)
			assert.ErrorIs(t, err, cause)
			assert.Zero(t, dev.Live())
		})
	}
}

func TestNewPipelinePushLimit(t *testing.T) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	dev.DeviceLimits.MaxPushConstantsSize = 32
	_, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{})
	assert.ErrorIs(t, err, gpu.ErrResourceCreation)
	assert.Zero(t, dev.Count("CreatePipelineLayout"))
	assert.Zero(t, dev.Live())

	dev.DeviceLimits.MaxPushConstantsSize = PushSize
	pl, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{})
	require.NoError(t, err)
	pl.Destroy()
	assert.Zero(t, dev.Live())
}

func TestPipelineDestroyOrder(t *testing.T) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	pl, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{})
	require.NoError(t, err)
	var pop sprite.Population
	require.NoError(t, pl.LoadSprites(&pop, loadOptions(as, 2)))
	pop.Clear()

	n := len(dev.Calls)
	pl.Destroy()
	assert.Equal(t, []string{
		"DestroyShaderModule", "DestroyShaderModule", "DestroyPipeline", "DestroyPipelineLayout",
		"DestroyDescriptorSetLayout", "DestroyDescriptorPool", "DestroyTexture",
	}, dev.CallsSince(n))
	assert.Zero(t, dev.Live())

	n = len(dev.Calls)
	pl.Destroy()
	assert.Empty(t, dev.CallsSince(n))
}

func TestPoolCapacity(t *testing.T) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	pl, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{})
	require.NoError(t, err)
	for range PoolCapacity {
		_, err := pl.AllocateDescriptorSet()
		require.NoError(t, err)
	}
	assert.Equal(t, PoolCapacity, pl.PoolUsage())

	_, err = pl.AllocateDescriptorSet()
	assert.ErrorIs(t, err, gpu.ErrPoolExhausted)
	assert.ErrorIs(t, err, gpu.ErrResourceCreation)
	assert.Equal(t, PoolCapacity, dev.Count("AllocateDescriptorSet"))

	pl.Destroy()
	_, err = pl.AllocateDescriptorSet()
	assert.ErrorIs(t, err, gpu.ErrPrecondition)
}

func TestLoadSprites(t *testing.T) {
	as := writeAssets(t)
	dev := gputest.NewDevice()
	pl, err := NewPipeline(dev, as.vert, as.frag, gpu.RenderTarget{})
	require.NoError(t, err)

	var pop sprite.Population
	require.NoError(t, pl.LoadSprites(&pop, loadOptions(as, 1000)))
	assert.Equal(t, 1000, pop.Len())
	require.NotNil(t, pl.Texture())
	assert.Equal(t, 1000, pop.Mesh().Refs())
	assert.Same(t, pl.Texture(), pop.Texture())
	assert.Equal(t, 4, pop.Mesh().VertexCount)
	assert.Equal(t, 6, pop.Mesh().IndexCount)

	want := sprite.Generate(1, sprite.NewRand(sprite.DefaultSeed), nil, nil)[0]
	assert.Equal(t, want.Transform, pop.At(0).Transform)

	pop.Freeze()
	assert.ErrorIs(t, pl.LoadSprites(&pop, loadOptions(as, 10)), gpu.ErrPrecondition)

	var other sprite.Population
	assert.ErrorIs(t, pl.LoadSprites(&other, loadOptions(as, 0)), gpu.ErrPrecondition)

	pl2, err := NewPipeline(gputest.NewDevice(), as.vert, as.frag, gpu.RenderTarget{})
	require.NoError(t, err)
	err = pl2.LoadSprites(&other, LoadOptions{Count: 10, TexturePath: filepath.Join(t.TempDir(), "logo.jpg")})
	assert.ErrorIs(t, err, gpu.ErrIO)
	assert.Zero(t, other.Len())
}

func TestSystemInitialize(t *testing.T) {
	dev, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 1000)))
	assert.Equal(t, 1001, sy.Population().Mesh().Refs())

	require.NoError(t, sy.Initialize())
	assert.True(t, sy.Initialized())
	assert.True(t, sy.Population().Frozen())

	ib := sy.InstanceBuffer()
	require.NotNil(t, ib)
	assert.Equal(t, 1000*sprite.InstanceRecordSize, ib.Size)
	assert.Equal(t, 256, ib.AlignBytes)
	assert.True(t, ib.Usage.Has(gpu.StorageUsage|gpu.TransferDst))

	recs, err := sprite.DecodeRecords(dev.BufferData(ib.Handle))
	require.NoError(t, err)
	assert.Len(t, recs, 1000)
	assert.Equal(t, sy.Population().Records(), recs)

	set := dev.Sets[sy.DescriptorSet()]
	require.NotNil(t, set)
	b0 := set[InstanceBinding]
	assert.Equal(t, gpu.StorageBuffer, b0.Type)
	assert.Equal(t, ib.Handle, b0.Buffer)
	assert.Equal(t, ib.Size, b0.Range)
	b1 := set[TextureBinding]
	tx := sy.Pipeline().Texture()
	assert.Equal(t, gpu.CombinedImageSampler, b1.Type)
	assert.Equal(t, tx.View(), b1.View)
	assert.Equal(t, tx.Sampler(), b1.Sampler)
	assert.Equal(t, gpu.LayoutShaderReadOnly, b1.Layout)
}

func TestSystemPreconditions(t *testing.T) {
	dev, sy, as := newSystem(t, image.Pt(800, 600))
	assert.ErrorIs(t, sy.Initialize(), gpu.ErrPrecondition, "no sprites")
	assert.ErrorIs(t, sy.UpdateSprites(0.1), gpu.ErrPrecondition, "not initialized")
	assert.ErrorIs(t, sy.writeDescriptorSet(), gpu.ErrPrecondition, "no instance buffer")

	require.NoError(t, sy.LoadSprites(loadOptions(as, 5)))
	require.NoError(t, sy.Initialize())
	buffers := len(dev.Buffers)
	assert.ErrorIs(t, sy.Initialize(), gpu.ErrPrecondition, "second initialize")
	assert.ErrorIs(t, sy.LoadSprites(loadOptions(as, 5)), gpu.ErrPrecondition)
	assert.Len(t, dev.Buffers, buffers)
	assert.Equal(t, 5*sprite.InstanceRecordSize, sy.InstanceBuffer().Size)

	sy.Destroy()
	assert.ErrorIs(t, sy.Initialize(), gpu.ErrPrecondition)
}

func TestSystemInitializeFailure(t *testing.T) {
	dev, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 5)))
	dev.Fail["AllocateDescriptorSet"] = errors.New("out of pool memory")
	err := sy.Initialize()
	assert.ErrorIs(t, err, gpu.ErrResourceCreation)
	assert.False(t, sy.Initialized())
	assert.Nil(t, sy.InstanceBuffer())
	assert.False(t, sy.Population().Frozen())

	delete(dev.Fail, "AllocateDescriptorSet")
	require.NoError(t, sy.Initialize())
}

func TestUpdateSprites(t *testing.T) {
	dev, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 100)))
	require.NoError(t, sy.Initialize())

	before := make([]sprite.Transform, 100)
	for i := range before {
		before[i] = sy.Population().At(i).Transform
	}
	buffers := len(dev.Buffers)
	n := len(dev.Calls)
	require.NoError(t, sy.UpdateSprites(0.5))
	assert.Equal(t, []string{"CreateBuffer", "MapMemory", "UnmapMemory", "CopyBuffer", "DestroyBuffer"}, dev.CallsSince(n))
	assert.Len(t, dev.Buffers, buffers)

	recs, err := sprite.DecodeRecords(dev.BufferData(sy.InstanceBuffer().Handle))
	require.NoError(t, err)
	require.Len(t, recs, 100)
	for i, tr := range before {
		sp := sy.Population().At(i)
		want := tr.Translation.Add(tr.Velocity.Mul(0.5))
		assert.Equal(t, want, sp.Transform.Translation)
		assert.Equal(t, tr.Scale, sp.Transform.Scale)
		assert.Equal(t, want, recs[i].Translation)
		assert.Equal(t, tr.Velocity, recs[i].Velocity)
		assert.Equal(t, mgl32.Vec3{1, 1, 1}, recs[i].Color)
	}
	assert.Equal(t, 2, sy.Stats().Uploads)

	dev.Fail["CopyBuffer"] = errors.New("device lost")
	assert.ErrorIs(t, sy.UpdateSprites(0.5), gpu.ErrResourceCreation)
	assert.Len(t, dev.Buffers, buffers)
}

func TestRenderSprites(t *testing.T) {
	_, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 1000)))
	require.NoError(t, sy.Initialize())

	cmd := &gputest.CommandBuffer{}
	sy.RenderSprites(cmd)
	assert.Equal(t, []string{
		"BindPipeline", "BindVertexBuffers", "BindIndexBuffer", "SetViewport", "SetScissor",
		"BindDescriptorSets", "PushConstants", "DrawIndexed",
	}, cmd.Ops())

	vp, _ := cmd.Find("SetViewport")
	assert.Equal(t, gpu.Viewport{Width: 800, Height: 600, MaxDepth: 1}, vp.Viewport)
	sc, _ := cmd.Find("SetScissor")
	assert.Equal(t, image.Rect(0, 0, 800, 600), sc.Scissor)
	ds, _ := cmd.Find("BindDescriptorSets")
	assert.Equal(t, []gpu.DescriptorSetHandle{sy.DescriptorSet()}, ds.Sets)
	assert.Equal(t, sy.Pipeline().Layout(), ds.Layout)
	pc, _ := cmd.Find("PushConstants")
	push := Ortho(image.Pt(800, 600))
	assert.Equal(t, push.Bytes(), pc.Data)
	assert.Equal(t, PushStages, pc.Stages)
	dc, _ := cmd.Find("DrawIndexed")
	assert.Equal(t, 6, dc.Count)
	assert.Equal(t, 1000, dc.Instances)

	assert.Equal(t, Stats{Frames: 1, Uploads: 1}, sy.Stats())
}

func TestRenderSpritesDegraded(t *testing.T) {
	_, sy, as := newSystem(t, image.Pt(800, 600))
	cmd := &gputest.CommandBuffer{}
	sy.RenderSprites(cmd)
	assert.Equal(t, []string{"BindPipeline"}, cmd.Ops())
	assert.Equal(t, 1, sy.Stats().Degraded)

	// loaded but not initialized: no descriptor set
	require.NoError(t, sy.LoadSprites(loadOptions(as, 10)))
	cmd.Reset()
	sy.RenderSprites(cmd)
	_, drawn := cmd.Find("DrawIndexed")
	assert.False(t, drawn)

	require.NoError(t, sy.Initialize())
	sy.SetViewport(extent{})
	cmd.Reset()
	sy.RenderSprites(cmd)
	_, drawn = cmd.Find("DrawIndexed")
	assert.False(t, drawn)
	assert.Equal(t, 3, sy.Stats().Degraded)
	assert.Zero(t, sy.Stats().Frames)

	sy.SetViewport(extent{X: 10, Y: 10})
	cmd.Reset()
	sy.RenderSprites(cmd)
	_, drawn = cmd.Find("DrawIndexed")
	assert.True(t, drawn)
}

func TestRenderSpritesNoMesh(t *testing.T) {
	_, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 10)))
	require.NoError(t, sy.Initialize())
	mesh := sy.Population().Mesh()
	for mesh.Refs() > 0 {
		mesh.Release()
	}
	require.False(t, mesh.Valid())
	require.Equal(t, 10, sy.Population().Len())

	cmd := &gputest.CommandBuffer{}
	sy.RenderSprites(cmd)
	assert.Equal(t, []string{"BindPipeline"}, cmd.Ops())
	_, drawn := cmd.Find("DrawIndexed")
	assert.False(t, drawn)
	assert.Equal(t, 1, sy.Stats().Degraded)
	assert.Zero(t, sy.Stats().Frames)
}

func TestDrawFrame(t *testing.T) {
	dev, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 20)))
	require.NoError(t, sy.Initialize())
	before := sy.Population().At(0).Transform.Translation

	// the upload comes after the frame has begun, and before it ends
	fr := &gputest.Frames{Device: dev}
	n := len(dev.Calls)
	ok, err := sy.DrawFrame(fr, 0.5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"BeginFrame", "CreateBuffer", "MapMemory", "UnmapMemory", "CopyBuffer", "DestroyBuffer", "EndFrame"}, dev.CallsSince(n))
	_, drawn := fr.Cmd.Find("DrawIndexed")
	assert.True(t, drawn)
	assert.Equal(t, 1, fr.Ended)
	assert.Equal(t, 1, sy.Stats().Frames)
	assert.NotEqual(t, before, sy.Population().At(0).Transform.Translation)

	// no frame to draw: nothing is uploaded and the sprites stay put
	fr.Skip = true
	moved := sy.Population().At(0).Transform.Translation
	uploads := sy.Stats().Uploads
	n = len(dev.Calls)
	ok, err = sy.DrawFrame(fr, 0.5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"BeginFrame"}, dev.CallsSince(n))
	assert.Equal(t, uploads, sy.Stats().Uploads)
	assert.Equal(t, moved, sy.Population().At(0).Transform.Translation)

	// a failed upload still ends the frame
	fr.Skip = false
	cause := errors.New("copy failed")
	dev.Fail["CopyBuffer"] = cause
	ok, err = sy.DrawFrame(fr, 0.5)
	assert.ErrorIs(t, err, cause)
	assert.False(t, ok)
	assert.Equal(t, 2, fr.Ended)
	assert.Equal(t, 1, sy.Stats().Frames)
}

func TestSystemDestroy(t *testing.T) {
	dev, sy, as := newSystem(t, image.Pt(800, 600))
	require.NoError(t, sy.LoadSprites(loadOptions(as, 50)))
	require.NoError(t, sy.Initialize())
	mesh := sy.Population().Mesh()

	sy.Destroy()
	assert.Zero(t, dev.Live())
	assert.Equal(t, 1, dev.Count("WaitIdle"))
	assert.Zero(t, mesh.Refs())
	assert.False(t, mesh.Valid())
	assert.Zero(t, sy.Population().Len())

	n := len(dev.Calls)
	sy.Destroy()
	assert.Empty(t, dev.CallsSince(n))

	cmd := &gputest.CommandBuffer{}
	sy.RenderSprites(cmd)
	assert.Empty(t, cmd.Cmds)
}
