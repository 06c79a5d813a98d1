package vkrender

import (
	"time"

	vk "github.com/vulkan-go/vulkan"
)

// MemoryType describes one of the memory types a physical device exposes
type MemoryType struct {
	Flags     vk.MemoryPropertyFlags
	HeapIndex uint32
}

// MemoryRequirements is the size, alignment and allowed memory types of a buffer or image
type MemoryRequirements struct {
	Size      uint64
	Alignment uint64
	TypeBits  uint32
}

// FormatFeatures are the features a format supports for each tiling mode
type FormatFeatures struct {
	Linear  vk.FormatFeatureFlags
	Optimal vk.FormatFeatureFlags
}

// DeviceLimits is the subset of device limits the renderer consults
type DeviceLimits struct {
	MaxSamplerAnisotropy float32
	ColorSampleCounts    vk.SampleCountFlags
	DepthSampleCounts    vk.SampleCountFlags
}

// ImageDescriptor describes a 2D image to create
type ImageDescriptor struct {
	Extent    vk.Extent2D
	Format    vk.Format
	MipLevels uint32
	Samples   vk.SampleCountFlagBits
	Tiling    vk.ImageTiling
	Usage     vk.ImageUsageFlags
}

// SamplerDescriptor describes a texture sampler
type SamplerDescriptor struct {
	Filter        vk.Filter
	AddressMode   vk.SamplerAddressMode
	MaxAnisotropy float32
	MaxLod        float32
}

// Submission is a single command buffer submitted to a queue along with the
// semaphores it waits on and signals and the fence signaled on completion
type Submission struct {
	CommandBuffer *CommandBuffer
	Wait          *Semaphore
	WaitStage     vk.PipelineStageFlags
	Signal        *Semaphore
	Fence         *Fence
}

// AttachmentDescriptor describes a single render pass attachment
type AttachmentDescriptor struct {
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
}

// RenderPassDescriptor describes a single subpass render pass. Resolve is -1
// when the pass has no resolve attachment.
type RenderPassDescriptor struct {
	Attachments []AttachmentDescriptor
	Color       int
	Depth       int
	Resolve     int
}

// Device is the set of device operations the renderer needs. It is implemented
// on top of Vulkan by NewVulkanDevice.
type Device interface {
	MemoryTypes() []MemoryType
	FormatFeatures(format vk.Format) FormatFeatures
	Limits() DeviceLimits

	CreateBuffer(size uint64, usage vk.BufferUsageFlags) (*Buffer, MemoryRequirements, error)
	DestroyBuffer(b *Buffer)
	CreateImage(desc ImageDescriptor) (*Image, MemoryRequirements, error)
	DestroyImage(i *Image)

	AllocateMemory(size uint64, typeIndex uint32) (*DeviceMemory, error)
	FreeMemory(m *DeviceMemory)
	MapMemory(m *DeviceMemory) ([]byte, error)
	UnmapMemory(m *DeviceMemory)
	BindBufferMemory(b *Buffer, m *DeviceMemory, offset uint64) error
	BindImageMemory(i *Image, m *DeviceMemory, offset uint64) error

	CreateImageView(i *Image, aspect vk.ImageAspectFlags) (*ImageView, error)
	DestroyImageView(v *ImageView)
	CreateSampler(desc SamplerDescriptor) (*Sampler, error)
	DestroySampler(s *Sampler)

	CreateCommandPool(queueFamily uint32) (*CommandPool, error)
	DestroyCommandPool(p *CommandPool)
	AllocateCommandBuffers(p *CommandPool, count int) ([]*CommandBuffer, error)
	FreeCommandBuffers(p *CommandPool, buffers []*CommandBuffer)
	BeginCommandBuffer(cb *CommandBuffer, oneTime bool) error
	EndCommandBuffer(cb *CommandBuffer) error
	ResetCommandBuffer(cb *CommandBuffer) error

	CmdPipelineBarrier(cb *CommandBuffer, b Barrier)
	CmdCopyBuffer(cb *CommandBuffer, src, dst *Buffer, size uint64)
	CmdCopyBufferToImage(cb *CommandBuffer, src *Buffer, dst *Image, extent vk.Extent2D)
	CmdBlitImage(cb *CommandBuffer, i *Image, srcLevel uint32, srcExtent vk.Extent2D, dstLevel uint32, dstExtent vk.Extent2D)
	CmdBeginRenderPass(cb *CommandBuffer, rp *RenderPass, fb *Framebuffer, extent vk.Extent2D)
	CmdEndRenderPass(cb *CommandBuffer)
	CmdBindPipeline(cb *CommandBuffer, p *Pipeline)
	CmdBindVertexBuffer(cb *CommandBuffer, b *Buffer)
	CmdBindIndexBuffer(cb *CommandBuffer, b *Buffer)
	CmdBindDescriptorSet(cb *CommandBuffer, p *Pipeline, set *DescriptorSet)
	CmdSetViewportScissor(cb *CommandBuffer, extent vk.Extent2D)
	CmdDrawIndexed(cb *CommandBuffer, indexCount uint32)

	CreateFence(signaled bool) (*Fence, error)
	DestroyFence(f *Fence)
	WaitForFence(f *Fence, timeout time.Duration) error
	ResetFence(f *Fence) error
	CreateSemaphore() (*Semaphore, error)
	DestroySemaphore(s *Semaphore)

	QueueSubmit(q *Queue, s Submission) error
	QueueWaitIdle(q *Queue) error
	WaitIdle() error

	CreateRenderPass(desc RenderPassDescriptor) (*RenderPass, error)
	DestroyRenderPass(rp *RenderPass)
	CreateFramebuffer(rp *RenderPass, views []*ImageView, extent vk.Extent2D) (*Framebuffer, error)
	DestroyFramebuffer(fb *Framebuffer)
}

// SurfaceCapabilities is the subset of the surface capabilities used to size a swapchain
type SurfaceCapabilities struct {
	MinImageCount  uint32
	MaxImageCount  uint32
	CurrentExtent  vk.Extent2D
	MinImageExtent vk.Extent2D
	MaxImageExtent vk.Extent2D
	Transform      vk.SurfaceTransformFlagBits
}

// SurfaceFormat is a format and color space pair supported by a surface
type SurfaceFormat struct {
	Format     vk.Format
	ColorSpace vk.ColorSpace
}

// SwapchainDescriptor describes the swapchain to create
type SwapchainDescriptor struct {
	Format      SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	Transform   vk.SurfaceTransformFlagBits
}

// Surface is a presentable surface and the swapchain operations bound to it
type Surface interface {
	Capabilities() (SurfaceCapabilities, error)
	Formats() ([]SurfaceFormat, error)
	PresentModes() ([]vk.PresentMode, error)

	CreateSwapchain(desc SwapchainDescriptor) (*Swapchain, error)
	DestroySwapchain(s *Swapchain)
	SwapchainImages(s *Swapchain) ([]*Image, error)
	AcquireNextImage(s *Swapchain, signal *Semaphore) (uint32, vk.Result)
	QueuePresent(s *Swapchain, imageIndex uint32, wait *Semaphore) vk.Result
}

// Buffer is a device buffer and the memory allocation backing it
type Buffer struct {
	VKBuffer   vk.Buffer
	Size       uint64
	Usage      vk.BufferUsageFlags
	Allocation *Allocation
}

// Bytes returns the host mapping of a buffer allocated from host visible memory, or nil
func (b *Buffer) Bytes() []byte {
	if b.Allocation == nil {
		return nil
	}
	m := b.Allocation.Mapped()
	if m == nil {
		return nil
	}
	return m[:b.Size]
}

// Image is a device image. The layout of each mip level is tracked as
// transitions are recorded against it.
type Image struct {
	VKImage    vk.Image
	Format     vk.Format
	Extent     vk.Extent2D
	MipLevels  uint32
	Samples    vk.SampleCountFlagBits
	Usage      vk.ImageUsageFlags
	Allocation *Allocation

	layouts []vk.ImageLayout
}

func newImage(vkImage vk.Image, desc ImageDescriptor) *Image {
	levels := desc.MipLevels
	if levels == 0 {
		levels = 1
	}
	img := &Image{
		VKImage:   vkImage,
		Format:    desc.Format,
		Extent:    desc.Extent,
		MipLevels: levels,
		Samples:   desc.Samples,
		Usage:     desc.Usage,
	}
	img.layouts = make([]vk.ImageLayout, levels)
	for i := range img.layouts {
		img.layouts[i] = vk.ImageLayoutUndefined
	}
	return img
}

// Layout returns the tracked layout of a mip level
func (i *Image) Layout(level uint32) vk.ImageLayout {
	if int(level) >= len(i.layouts) {
		return vk.ImageLayoutUndefined
	}
	return i.layouts[level]
}

type ImageView struct {
	VKImageView vk.ImageView
	Image       *Image
}

type Sampler struct {
	VKSampler vk.Sampler
}

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the host or on the device
type DeviceMemory struct {
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	TypeIndex      uint32
}

type Fence struct {
	VKFence vk.Fence
}

type Semaphore struct {
	VKSemaphore vk.Semaphore
}

type CommandPool struct {
	VKCommandPool vk.CommandPool
	QueueFamily   uint32
}

// CommandBuffers describe a sequence of commands that will be executed
// upon being sent to a device queue.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
	Pool            *CommandPool
}

type Queue struct {
	VKQueue vk.Queue
	Family  uint32
}

type Swapchain struct {
	VKSwapchain vk.Swapchain
	Format      vk.Format
	Extent      vk.Extent2D
}

type RenderPass struct {
	VKRenderPass vk.RenderPass
	Descriptor   RenderPassDescriptor
}

type Framebuffer struct {
	VKFramebuffer vk.Framebuffer
	Extent        vk.Extent2D
}

// Pipeline is a graphics pipeline and the layout descriptor sets are bound against
type Pipeline struct {
	VKPipeline       vk.Pipeline
	VKPipelineLayout vk.PipelineLayout
}

type DescriptorSet struct {
	VKDescriptorSet vk.DescriptorSet
}
