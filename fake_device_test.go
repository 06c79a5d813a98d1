package vkrender

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

var errFakeDeadlock = errors.New("fake: waiting on a fence nothing will signal")

type fakeBinding struct {
	mem    *DeviceMemory
	offset uint64
}

type fakeBlit struct {
	src, dst             uint32
	srcExtent, dstExtent vk.Extent2D
}

type fakeSubmission struct {
	Submission
	ops      []func()
	executed bool
}

// fakeDevice is an in-memory Device. Recorded commands run when the
// submission they belong to is reached by a fence wait or an idle wait, in
// submission order.
type fakeDevice struct {
	types    []MemoryType
	features map[vk.Format]FormatFeatures
	limits   DeviceLimits

	allocErr error
	endErr   error

	memory    map[*DeviceMemory][]byte
	buffers   map[*Buffer]fakeBinding
	images    map[*Image]fakeBinding
	imageData map[*Image][]byte
	fences    map[*Fence]bool
	recording map[*CommandBuffer][]func()
	inFlight  map[*CommandBuffer]bool
	live      map[string]int

	pending     []*fakeSubmission
	submissions []*fakeSubmission
	barriers    []Barrier
	blits       []fakeBlit
	samplers    []SamplerDescriptor
	events      []string

	// onWait is called before every fence wait
	onWait func(f *Fence)
}

func newFakeDevice() *fakeDevice {
	samples := vk.SampleCountFlags(vk.SampleCount1Bit | vk.SampleCount2Bit | vk.SampleCount4Bit)
	return &fakeDevice{
		types: []MemoryType{
			{Flags: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)},
			{Flags: hostCoherentVisibleMemFlag, HeapIndex: 1},
		},
		features: map[vk.Format]FormatFeatures{
			vk.FormatD32Sfloat: {Optimal: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)},
			TextureFormat: {Optimal: vk.FormatFeatureFlags(vk.FormatFeatureSampledImageBit |
				vk.FormatFeatureSampledImageFilterLinearBit | vk.FormatFeatureBlitSrcBit | vk.FormatFeatureBlitDstBit)},
		},
		limits: DeviceLimits{
			MaxSamplerAnisotropy: 16,
			ColorSampleCounts:    samples,
			DepthSampleCounts:    samples,
		},
		memory:    make(map[*DeviceMemory][]byte),
		buffers:   make(map[*Buffer]fakeBinding),
		images:    make(map[*Image]fakeBinding),
		imageData: make(map[*Image][]byte),
		fences:    make(map[*Fence]bool),
		recording: make(map[*CommandBuffer][]func()),
		inFlight:  make(map[*CommandBuffer]bool),
		live:      make(map[string]int),
	}
}

var _ Device = (*fakeDevice)(nil)

func (d *fakeDevice) created(kind string)   { d.live[kind]++ }
func (d *fakeDevice) destroyed(kind string) { d.live[kind]-- }

// leaks lists the kinds of objects that are still alive
func (d *fakeDevice) leaks() []string {
	var ret []string
	for kind, n := range d.live {
		if n != 0 {
			ret = append(ret, fmt.Sprintf("%s: %d", kind, n))
		}
	}
	sort.Strings(ret)
	return ret
}

func (d *fakeDevice) record(cb *CommandBuffer, op func()) {
	d.recording[cb] = append(d.recording[cb], op)
}

func (d *fakeDevice) bufferBytes(b *Buffer) []byte {
	bind := d.buffers[b]
	return d.memory[bind.mem][bind.offset : bind.offset+b.Size]
}

func (d *fakeDevice) MemoryTypes() []MemoryType { return d.types }

func (d *fakeDevice) FormatFeatures(format vk.Format) FormatFeatures { return d.features[format] }

func (d *fakeDevice) Limits() DeviceLimits { return d.limits }

func (d *fakeDevice) CreateBuffer(size uint64, usage vk.BufferUsageFlags) (*Buffer, MemoryRequirements, error) {
	d.created("buffer")
	return &Buffer{Size: size, Usage: usage}, MemoryRequirements{Size: size, Alignment: 256, TypeBits: 0b11}, nil
}

func (d *fakeDevice) DestroyBuffer(b *Buffer) {
	delete(d.buffers, b)
	d.destroyed("buffer")
}

func (d *fakeDevice) CreateImage(desc ImageDescriptor) (*Image, MemoryRequirements, error) {
	d.created("image")
	size := uint64(desc.Extent.Width) * uint64(desc.Extent.Height) * 4
	if desc.MipLevels > 1 {
		size *= 2
	}
	return newImage(vk.NullImage, desc), MemoryRequirements{Size: size, Alignment: 1024, TypeBits: 0b01}, nil
}

func (d *fakeDevice) DestroyImage(i *Image) {
	delete(d.images, i)
	delete(d.imageData, i)
	d.destroyed("image")
}

func (d *fakeDevice) AllocateMemory(size uint64, typeIndex uint32) (*DeviceMemory, error) {
	if d.allocErr != nil {
		return nil, d.allocErr
	}
	d.created("memory")
	m := &DeviceMemory{Size: size, TypeIndex: typeIndex}
	d.memory[m] = make([]byte, size)
	return m, nil
}

func (d *fakeDevice) FreeMemory(m *DeviceMemory) {
	delete(d.memory, m)
	d.destroyed("memory")
}

func (d *fakeDevice) MapMemory(m *DeviceMemory) ([]byte, error) {
	if d.types[m.TypeIndex].Flags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) == 0 {
		return nil, errors.New("fake: mapping device local memory")
	}
	d.created("mapping")
	return d.memory[m], nil
}

func (d *fakeDevice) UnmapMemory(m *DeviceMemory) { d.destroyed("mapping") }

func (d *fakeDevice) BindBufferMemory(b *Buffer, m *DeviceMemory, offset uint64) error {
	if offset+b.Size > m.Size {
		return errors.New("fake: buffer binding out of range")
	}
	d.buffers[b] = fakeBinding{mem: m, offset: offset}
	return nil
}

func (d *fakeDevice) BindImageMemory(i *Image, m *DeviceMemory, offset uint64) error {
	d.images[i] = fakeBinding{mem: m, offset: offset}
	return nil
}

func (d *fakeDevice) CreateImageView(i *Image, aspect vk.ImageAspectFlags) (*ImageView, error) {
	d.created("view")
	return &ImageView{Image: i}, nil
}

func (d *fakeDevice) DestroyImageView(v *ImageView) { d.destroyed("view") }

func (d *fakeDevice) CreateSampler(desc SamplerDescriptor) (*Sampler, error) {
	d.created("sampler")
	d.samplers = append(d.samplers, desc)
	return &Sampler{}, nil
}

func (d *fakeDevice) DestroySampler(s *Sampler) { d.destroyed("sampler") }

func (d *fakeDevice) CreateCommandPool(queueFamily uint32) (*CommandPool, error) {
	d.created("pool")
	return &CommandPool{QueueFamily: queueFamily}, nil
}

func (d *fakeDevice) DestroyCommandPool(p *CommandPool) { d.destroyed("pool") }

func (d *fakeDevice) AllocateCommandBuffers(p *CommandPool, count int) ([]*CommandBuffer, error) {
	ret := make([]*CommandBuffer, count)
	for i := range ret {
		d.created("commandbuffer")
		ret[i] = &CommandBuffer{Pool: p}
	}
	return ret, nil
}

func (d *fakeDevice) FreeCommandBuffers(p *CommandPool, buffers []*CommandBuffer) {
	for _, cb := range buffers {
		delete(d.recording, cb)
		d.destroyed("commandbuffer")
	}
}

func (d *fakeDevice) BeginCommandBuffer(cb *CommandBuffer, oneTime bool) error {
	if d.inFlight[cb] {
		return errors.New("fake: command buffer begun while pending")
	}
	d.recording[cb] = nil
	return nil
}

func (d *fakeDevice) EndCommandBuffer(cb *CommandBuffer) error { return d.endErr }

func (d *fakeDevice) ResetCommandBuffer(cb *CommandBuffer) error {
	if d.inFlight[cb] {
		return errors.New("fake: command buffer reset while pending")
	}
	d.recording[cb] = nil
	return nil
}

func (d *fakeDevice) CmdPipelineBarrier(cb *CommandBuffer, b Barrier) {
	d.barriers = append(d.barriers, b)
}

func (d *fakeDevice) CmdCopyBuffer(cb *CommandBuffer, src, dst *Buffer, size uint64) {
	d.record(cb, func() {
		copy(d.bufferBytes(dst)[:size], d.bufferBytes(src)[:size])
	})
}

func (d *fakeDevice) CmdCopyBufferToImage(cb *CommandBuffer, src *Buffer, dst *Image, extent vk.Extent2D) {
	d.record(cb, func() {
		n := uint64(extent.Width) * uint64(extent.Height) * 4
		d.imageData[dst] = append([]byte(nil), d.bufferBytes(src)[:n]...)
	})
}

func (d *fakeDevice) CmdBlitImage(cb *CommandBuffer, i *Image, srcLevel uint32, srcExtent vk.Extent2D, dstLevel uint32, dstExtent vk.Extent2D) {
	d.blits = append(d.blits, fakeBlit{src: srcLevel, dst: dstLevel, srcExtent: srcExtent, dstExtent: dstExtent})
}

func (d *fakeDevice) CmdBeginRenderPass(cb *CommandBuffer, rp *RenderPass, fb *Framebuffer, extent vk.Extent2D) {
	d.events = append(d.events, "begin-render-pass")
}

func (d *fakeDevice) CmdEndRenderPass(cb *CommandBuffer) {
	d.events = append(d.events, "end-render-pass")
}

func (d *fakeDevice) CmdBindPipeline(cb *CommandBuffer, p *Pipeline)   {}
func (d *fakeDevice) CmdBindVertexBuffer(cb *CommandBuffer, b *Buffer) {}
func (d *fakeDevice) CmdBindIndexBuffer(cb *CommandBuffer, b *Buffer)  {}

func (d *fakeDevice) CmdBindDescriptorSet(cb *CommandBuffer, p *Pipeline, set *DescriptorSet) {}

func (d *fakeDevice) CmdSetViewportScissor(cb *CommandBuffer, extent vk.Extent2D) {}

func (d *fakeDevice) CmdDrawIndexed(cb *CommandBuffer, indexCount uint32) {
	d.events = append(d.events, fmt.Sprintf("draw %d", indexCount))
}

func (d *fakeDevice) CreateFence(signaled bool) (*Fence, error) {
	d.created("fence")
	f := &Fence{}
	d.fences[f] = signaled
	return f, nil
}

func (d *fakeDevice) DestroyFence(f *Fence) {
	delete(d.fences, f)
	d.destroyed("fence")
}

func (d *fakeDevice) WaitForFence(f *Fence, timeout time.Duration) error {
	if d.onWait != nil {
		d.onWait(f)
	}
	if d.fences[f] {
		return nil
	}
	for i, s := range d.pending {
		if s.Fence == f {
			d.run(i + 1)
			return nil
		}
	}
	return errFakeDeadlock
}

func (d *fakeDevice) ResetFence(f *Fence) error {
	d.fences[f] = false
	return nil
}

// pendingFor reports whether a pending submission will signal f
func (d *fakeDevice) pendingFor(f *Fence) bool {
	for _, s := range d.pending {
		if s.Fence == f {
			return true
		}
	}
	return false
}

func (d *fakeDevice) CreateSemaphore() (*Semaphore, error) {
	d.created("semaphore")
	return &Semaphore{}, nil
}

func (d *fakeDevice) DestroySemaphore(s *Semaphore) { d.destroyed("semaphore") }

func (d *fakeDevice) QueueSubmit(q *Queue, s Submission) error {
	if s.Fence != nil && d.fences[s.Fence] {
		return errors.New("fake: submitted with a signaled fence")
	}
	sub := &fakeSubmission{Submission: s, ops: d.recording[s.CommandBuffer]}
	d.inFlight[s.CommandBuffer] = true
	d.pending = append(d.pending, sub)
	d.submissions = append(d.submissions, sub)
	return nil
}

// run executes the first n pending submissions
func (d *fakeDevice) run(n int) {
	for _, s := range d.pending[:n] {
		for _, op := range s.ops {
			op()
		}
		d.inFlight[s.CommandBuffer] = false
		if s.Fence != nil {
			d.fences[s.Fence] = true
		}
		s.executed = true
	}
	d.pending = d.pending[n:]
}

func (d *fakeDevice) QueueWaitIdle(q *Queue) error {
	d.run(len(d.pending))
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.run(len(d.pending))
	return nil
}

func (d *fakeDevice) CreateRenderPass(desc RenderPassDescriptor) (*RenderPass, error) {
	d.created("renderpass")
	return &RenderPass{Descriptor: desc}, nil
}

func (d *fakeDevice) DestroyRenderPass(rp *RenderPass) { d.destroyed("renderpass") }

func (d *fakeDevice) CreateFramebuffer(rp *RenderPass, views []*ImageView, extent vk.Extent2D) (*Framebuffer, error) {
	d.created("framebuffer")
	return &Framebuffer{Extent: extent}, nil
}

func (d *fakeDevice) DestroyFramebuffer(fb *Framebuffer) { d.destroyed("framebuffer") }

// fakeSurface presents round robin over its images. Acquire and present
// results can be scripted, unscripted calls succeed.
type fakeSurface struct {
	device  *fakeDevice
	caps    SurfaceCapabilities
	formats []SurfaceFormat
	modes   []vk.PresentMode

	acquireResults []vk.Result
	presentResults []vk.Result

	created   []SwapchainDescriptor
	current   SwapchainDescriptor
	nextImage uint32
	acquired  []uint32
	presented []uint32
}

func newFakeSurface(device *fakeDevice, width, height uint32) *fakeSurface {
	return &fakeSurface{
		device: device,
		caps: SurfaceCapabilities{
			MinImageCount:  2,
			MaxImageCount:  8,
			CurrentExtent:  vk.Extent2D{Width: width, Height: height},
			MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
			MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
			Transform:      vk.SurfaceTransformIdentityBit,
		},
		formats: []SurfaceFormat{
			{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorspaceSrgbNonlinear},
			{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorspaceSrgbNonlinear},
		},
		modes: []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox},
	}
}

var _ Surface = (*fakeSurface)(nil)

func (s *fakeSurface) Capabilities() (SurfaceCapabilities, error) { return s.caps, nil }
func (s *fakeSurface) Formats() ([]SurfaceFormat, error)          { return s.formats, nil }
func (s *fakeSurface) PresentModes() ([]vk.PresentMode, error)    { return s.modes, nil }

func (s *fakeSurface) CreateSwapchain(desc SwapchainDescriptor) (*Swapchain, error) {
	s.device.created("swapchain")
	s.created = append(s.created, desc)
	s.current = desc
	s.nextImage = 0
	return &Swapchain{Format: desc.Format.Format, Extent: desc.Extent}, nil
}

func (s *fakeSurface) DestroySwapchain(sc *Swapchain) { s.device.destroyed("swapchain") }

func (s *fakeSurface) SwapchainImages(sc *Swapchain) ([]*Image, error) {
	ret := make([]*Image, s.current.ImageCount)
	for i := range ret {
		ret[i] = newImage(vk.NullImage, ImageDescriptor{
			Extent:    sc.Extent,
			Format:    sc.Format,
			MipLevels: 1,
			Samples:   vk.SampleCount1Bit,
		})
	}
	return ret, nil
}

func (s *fakeSurface) AcquireNextImage(sc *Swapchain, signal *Semaphore) (uint32, vk.Result) {
	res := vk.Success
	if len(s.acquireResults) > 0 {
		res = s.acquireResults[0]
		s.acquireResults = s.acquireResults[1:]
		if res != vk.Success && res != vk.Suboptimal {
			s.device.events = append(s.device.events, "acquire-failed")
			return 0, res
		}
	}
	i := s.nextImage
	s.nextImage = (s.nextImage + 1) % s.current.ImageCount
	s.acquired = append(s.acquired, i)
	s.device.events = append(s.device.events, "acquire")
	return i, res
}

func (s *fakeSurface) QueuePresent(sc *Swapchain, imageIndex uint32, wait *Semaphore) vk.Result {
	s.presented = append(s.presented, imageIndex)
	s.device.events = append(s.device.events, "present")
	if len(s.presentResults) > 0 {
		res := s.presentResults[0]
		s.presentResults = s.presentResults[1:]
		return res
	}
	return vk.Success
}

// testOptions keeps memory blocks small so the fake does not hold on to
// large byte slices
func testOptions(framesInFlight int) RendererOptions {
	o := DefaultRendererOptions()
	o.FramesInFlight = framesInFlight
	o.MemoryBlockSize = 1 << 20
	o.DedicatedThreshold = 1 << 19
	return o
}

var testQueue = &Queue{Family: 0}

func newTestResources(d *fakeDevice, framesInFlight int) (*ResourceManager, error) {
	return NewResourceManager(d, Queues{Graphics: testQueue}, testOptions(framesInFlight))
}

func quadModel() *ModelStorage {
	return NewModelStorage([]Vertex{
		{Pos: lin.Vec3{-0.5, -0.5, 0}, Color: lin.Vec3{1, 0, 0}, TexCoord: lin.Vec2{1, 0}},
		{Pos: lin.Vec3{0.5, -0.5, 0}, Color: lin.Vec3{0, 1, 0}, TexCoord: lin.Vec2{0, 0}},
		{Pos: lin.Vec3{0.5, 0.5, 0}, Color: lin.Vec3{0, 0, 1}, TexCoord: lin.Vec2{0, 1}},
		{Pos: lin.Vec3{-0.5, 0.5, 0}, Color: lin.Vec3{1, 1, 1}, TexCoord: lin.Vec2{1, 1}},
	}, []uint32{0, 1, 2, 2, 3, 0})
}
