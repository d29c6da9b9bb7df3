// Package wgpu implements render.Backend on top of a WebGPU device. Surface
// pixels are uploaded into per-window storage buffers and sampled manually
// in the fragment shader, since the bound wgpu package exposes no
// buffer-to-texture copy: CommandEncoder only offers CopyBufferToBuffer, so
// a conventional CreateTexture+WriteTexture upload path isn't reachable
// through its public surface.
package wgpu

import (
	"fmt"
	"math"

	"github.com/axiomwm/axiom/internal/geom"
	"github.com/axiomwm/axiom/internal/ids"
	"github.com/axiomwm/axiom/internal/render"
	gpu "github.com/gogpu/wgpu"
	gputypes "github.com/gogpu/gputypes"
)

const quadShaderWGSL = `
struct VertexOut {
	@builtin(position) position: vec4<f32>,
	@location(0) uv: vec2<f32>,
}

struct DrawParams {
	dst_origin: vec2<f32>,
	dst_size: vec2<f32>,
	output_size: vec2<f32>,
	src_size: vec2<f32>,
	opacity: f32,
}

@group(0) @binding(0) var<uniform> params: DrawParams;
@group(0) @binding(1) var<storage, read> pixels: array<u32>;

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VertexOut {
	var corners = array<vec2<f32>, 6>(
		vec2<f32>(0.0, 0.0), vec2<f32>(1.0, 0.0), vec2<f32>(0.0, 1.0),
		vec2<f32>(0.0, 1.0), vec2<f32>(1.0, 0.0), vec2<f32>(1.0, 1.0),
	);
	let corner = corners[idx];
	let screen = params.dst_origin + corner * params.dst_size;
	let ndc = vec2<f32>(
		(screen.x / params.output_size.x) * 2.0 - 1.0,
		1.0 - (screen.y / params.output_size.y) * 2.0,
	);
	var out: VertexOut;
	out.position = vec4<f32>(ndc, 0.0, 1.0);
	out.uv = corner;
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	let texel = vec2<u32>(in.uv * params.src_size);
	let idx = texel.y * u32(params.src_size.x) + texel.x;
	let packed = pixels[idx];
	let r = f32((packed >> 0u) & 0xffu) / 255.0;
	let g = f32((packed >> 8u) & 0xffu) / 255.0;
	let b = f32((packed >> 16u) & 0xffu) / 255.0;
	let a = f32((packed >> 24u) & 0xffu) / 255.0;
	return vec4<f32>(r, g, b, a * params.opacity);
}
`

type drawParams struct {
	dstOriginX, dstOriginY   float32
	dstSizeX, dstSizeY       float32
	outputSizeX, outputSizeY float32
	srcSizeX, srcSizeY       float32
	opacity                  float32
	_pad                     [3]float32 // keep struct a multiple of 16 bytes for std140-style uniform layout
}

type windowResource struct {
	pixels   *gpu.Buffer
	uniform  *gpu.Buffer
	bindGrp  *gpu.BindGroup
	width    uint32
	height   uint32
}

// Backend drives a wgpu device and presents compositor frames onto a
// configured surface, sized to the output.
type Backend struct {
	instance *gpu.Instance
	adapter  *gpu.Adapter
	device   *gpu.Device
	surface  *gpu.Surface

	layout   *gpu.BindGroupLayout
	pipeline *gpu.RenderPipeline

	windows map[ids.TextureID]*windowResource
	vsyncCB func()
}

// New opens a device against the best available adapter and configures a
// surface for the given platform window handles.
func New(displayHandle, windowHandle uintptr, width, height uint32) (*Backend, error) {
	instance, err := gpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(&gpu.DeviceDescriptor{Label: "axiom-compositor"})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	surface, err := instance.CreateSurface(displayHandle, windowHandle)
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	if err := surface.Configure(device, &gpu.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      gpu.TextureFormatBGRA8UnormSrgb,
		Usage:       gpu.TextureUsageRenderAttachment,
		PresentMode: gpu.PresentModeFifo,
		AlphaMode:   gputypes.CompositeAlphaModeOpaque,
	}); err != nil {
		return nil, fmt.Errorf("configure surface: %w", err)
	}

	b := &Backend{
		instance: instance,
		adapter:  adapter,
		device:   device,
		surface:  surface,
		windows:  make(map[ids.TextureID]*windowResource),
	}
	if err := b.buildPipeline(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) buildPipeline() error {
	shader, err := b.device.CreateShaderModule(&gpu.ShaderModuleDescriptor{Label: "quad", WGSL: quadShaderWGSL})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	layout, err := b.device.CreateBindGroupLayout(&gpu.BindGroupLayoutDescriptor{
		Label: "window-bind-layout",
		Entries: []gpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gpu.ShaderStageVertex | gpu.ShaderStageFragment, Buffer: gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gpu.ShaderStageFragment, Buffer: gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&gpu.PipelineLayoutDescriptor{
		Label:            "window-pipeline-layout",
		BindGroupLayouts: []*gpu.BindGroupLayout{layout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	pipeline, err := b.device.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{
		Label:  "window-quad",
		Layout: pipelineLayout,
		Vertex: gpu.VertexState{Module: shader, EntryPoint: "vs_main"},
		Fragment: &gpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets:    []gpu.ColorTargetState{{Format: gpu.TextureFormatBGRA8UnormSrgb}},
		},
		Primitive: gpu.PrimitiveState{Topology: gputypes.PrimitiveTopologyTriangleList},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	b.layout = layout
	b.pipeline = pipeline
	return nil
}

func (b *Backend) resourceFor(id ids.TextureID, width, height uint32) (*windowResource, error) {
	res, ok := b.windows[id]
	if ok && res.width == width && res.height == height {
		return res, nil
	}
	if ok {
		b.destroyResource(res)
	}
	pixelsBuf, err := b.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: "window-pixels",
		Size:  uint64(width) * uint64(height) * 4,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create pixel buffer: %w", err)
	}
	uniformBuf, err := b.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: "window-params",
		Size:  64,
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create uniform buffer: %w", err)
	}
	bindGrp, err := b.device.CreateBindGroup(&gpu.BindGroupDescriptor{
		Label:  "window-bind-group",
		Layout: b.layout,
		Entries: []gpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf},
			{Binding: 1, Buffer: pixelsBuf},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	res = &windowResource{pixels: pixelsBuf, uniform: uniformBuf, bindGrp: bindGrp, width: width, height: height}
	b.windows[id] = res
	return res, nil
}

func (b *Backend) destroyResource(res *windowResource) {
	res.pixels.Release()
	res.uniform.Release()
}

// UploadTexture writes pixels into the per-window storage buffer, ignoring
// damage (the whole buffer is overwritten; a partial-row write would still
// require the same full WriteBuffer round trip on this binding).
func (b *Backend) UploadTexture(id ids.TextureID, pixelsRGBA8 []byte, width, height uint32, _ *geom.Rect) error {
	res, err := b.resourceFor(id, width, height)
	if err != nil {
		return err
	}
	return b.device.Queue().WriteBuffer(res.pixels, 0, pixelsRGBA8)
}

func (b *Backend) DestroyTexture(id ids.TextureID) {
	if res, ok := b.windows[id]; ok {
		b.destroyResource(res)
		delete(b.windows, id)
	}
}

func (b *Backend) OnVsync(cb func()) { b.vsyncCB = cb }

func uniformBytes(p drawParams) []byte {
	out := make([]byte, 64)
	vals := []float32{p.dstOriginX, p.dstOriginY, p.dstSizeX, p.dstSizeY, p.outputSizeX, p.outputSizeY, p.srcSizeX, p.srcSizeY, p.opacity}
	for i, v := range vals {
		bits := math.Float32bits(v)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}

// PresentFrame acquires the surface's current texture, draws each window
// quad through the storage-buffer-sampling pipeline clipped to its damage
// scissor, then presents.
func (b *Backend) PresentFrame(outputSize geom.Size, draws []render.Draw) error {
	surfaceTex, _, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTex.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create surface view: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(&gpu.CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	pass, err := encoder.BeginRenderPass(&gpu.RenderPassDescriptor{
		ColorAttachments: []gpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gpu.Color{R: 0, G: 0, B: 0, A: 1},
		}},
	})
	if err != nil {
		return fmt.Errorf("begin render pass: %w", err)
	}

	pass.SetPipeline(b.pipeline)
	for _, d := range draws {
		res, ok := b.windows[d.Texture]
		if !ok {
			continue
		}
		params := drawParams{
			dstOriginX: float32(d.DstRect.X), dstOriginY: float32(d.DstRect.Y),
			dstSizeX: float32(d.DstRect.W), dstSizeY: float32(d.DstRect.H),
			outputSizeX: float32(outputSize.W), outputSizeY: float32(outputSize.H),
			srcSizeX: float32(res.width), srcSizeY: float32(res.height),
			opacity: d.Opacity,
		}
		if err := b.device.Queue().WriteBuffer(res.uniform, 0, uniformBytes(params)); err != nil {
			return fmt.Errorf("write draw params: %w", err)
		}
		pass.SetScissorRect(uint32(d.Scissor.X), uint32(d.Scissor.Y), uint32(d.Scissor.W), uint32(d.Scissor.H))
		pass.SetBindGroup(0, res.bindGrp, nil)
		pass.Draw(6, 1, 0, 0)
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("end render pass: %w", err)
	}
	cmdBuf, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	if err := b.device.Queue().Submit(cmdBuf); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := b.surface.Present(surfaceTex); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	if b.vsyncCB != nil {
		b.vsyncCB()
	}
	return nil
}

// Close releases the device, surface, and adapter.
func (b *Backend) Close() {
	for _, res := range b.windows {
		b.destroyResource(res)
	}
	b.surface.Unconfigure()
	b.surface.Release()
	b.device.Release()
	b.adapter.Release()
	b.instance.Release()
}

var _ render.Backend = (*Backend)(nil)
