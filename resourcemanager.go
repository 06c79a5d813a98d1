package vkrender

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// RendererOptions tune resource creation and frame scheduling
type RendererOptions struct {
	// FramesInFlight is the number of frames, F, whose GPU work may be
	// outstanding at once. It may not exceed the presentable image count.
	FramesInFlight int
	PresentMode    Optional[vk.PresentMode]
	// MSAASamples is the requested sample count for the color and depth
	// targets, clamped to what the device supports
	MSAASamples        vk.SampleCountFlagBits
	MaxAnisotropy      float32
	MinImageCount      uint32
	MemoryBlockSize    uint64
	DedicatedThreshold uint64
}

// DefaultRendererOptions returns the options used when none are given
func DefaultRendererOptions() RendererOptions {
	return DefaultConfig().RendererOptions()
}

// ChainOptions returns the presentation chain options implied by o
func (o RendererOptions) ChainOptions(framebufferSize func() (int, int)) ChainOptions {
	return ChainOptions{
		PresentMode:     o.PresentMode,
		MinImageCount:   o.MinImageCount,
		FramebufferSize: framebufferSize,
	}
}

// Queues are the queues the renderer submits to. Transfer may be nil, in
// which case uploads go through the graphics queue.
type Queues struct {
	Graphics *Queue
	Transfer *Queue
}

// DepthFormatCandidates are the depth formats tried, in order, by FindDepthFormat
var DepthFormatCandidates = []vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint}

// ResourceManager owns every buffer and image the renderer uses, the command
// pools and buffers, and the per frame synchronization objects.
type ResourceManager struct {
	device    Device
	options   RendererOptions
	Allocator *MemoryAllocator

	graphicsQueue *Queue
	transferQueue *Queue
	graphicsPool  *CommandPool
	transferPool  *CommandPool

	VertexBuffer   *Buffer
	IndexBuffer    *Buffer
	UniformBuffers []*Buffer

	Samples     vk.SampleCountFlagBits
	DepthFormat vk.Format
	ColorImage  *Image
	ColorView   *ImageView
	DepthImage  *Image
	DepthView   *ImageView

	RenderPass   *RenderPass
	Framebuffers []*Framebuffer

	CommandBuffers []*CommandBuffer

	InFlightFences []*Fence
	// ImageAvailable are signaled by acquisition and rotate by their own index
	ImageAvailable []*Semaphore
	// RenderFinished are indexed by the acquired image index
	RenderFinished []*Semaphore
}

// NewResourceManager creates the allocator and command pools for device
func NewResourceManager(device Device, queues Queues, options RendererOptions) (*ResourceManager, error) {
	if queues.Graphics == nil {
		return nil, errors.New("a graphics queue is required")
	}
	if options.FramesInFlight < 1 {
		return nil, errors.Wrapf(ErrInvalidFrameCount, "%d frames in flight", options.FramesInFlight)
	}

	r := &ResourceManager{
		device:        device,
		options:       options,
		Allocator:     NewMemoryAllocator(device, options.MemoryBlockSize, options.DedicatedThreshold),
		graphicsQueue: queues.Graphics,
		transferQueue: queues.Transfer,
	}
	if r.transferQueue == nil {
		r.transferQueue = queues.Graphics
	}

	var err error
	r.graphicsPool, err = device.CreateCommandPool(r.graphicsQueue.Family)
	if err != nil {
		return nil, errors.Wrap(err, "creating graphics command pool")
	}
	if r.transferQueue.Family != r.graphicsQueue.Family {
		r.transferPool, err = device.CreateCommandPool(r.transferQueue.Family)
		if err != nil {
			device.DestroyCommandPool(r.graphicsPool)
			return nil, errors.Wrap(err, "creating transfer command pool")
		}
	} else {
		r.transferPool = r.graphicsPool
	}
	return r, nil
}

func (r *ResourceManager) Device() Device {
	return r.device
}

func (r *ResourceManager) Options() RendererOptions {
	return r.options
}

func (r *ResourceManager) FramesInFlight() int {
	return r.options.FramesInFlight
}

func (r *ResourceManager) GraphicsQueue() *Queue {
	return r.graphicsQueue
}

func (r *ResourceManager) TransferQueue() *Queue {
	return r.transferQueue
}

// FindSupportedFormat returns the first candidate supporting features with the given tiling
func (r *ResourceManager) FindSupportedFormat(candidates []vk.Format, tiling vk.ImageTiling, features vk.FormatFeatureFlags) (vk.Format, error) {
	for _, format := range candidates {
		props := r.device.FormatFeatures(format)
		if tiling == vk.ImageTilingLinear && props.Linear&features == features {
			return format, nil
		} else if tiling == vk.ImageTilingOptimal && props.Optimal&features == features {
			return format, nil
		}
	}
	return vk.FormatUndefined, errors.Wrapf(ErrFormatNotFound, "tiling %d, features %#x", tiling, features)
}

// FindDepthFormat picks a depth format usable as an optimally tiled depth attachment
func (r *ResourceManager) FindDepthFormat() (vk.Format, error) {
	return r.FindSupportedFormat(DepthFormatCandidates, vk.ImageTilingOptimal,
		vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit))
}

// CreateBuffer allocates a buffer through the memory allocator
func (r *ResourceManager) CreateBuffer(size uint64, usage vk.BufferUsageFlags, intent MemoryIntent) (*Buffer, error) {
	return r.Allocator.AllocateBuffer(size, usage, intent)
}

func (r *ResourceManager) DestroyBuffer(b *Buffer) {
	r.Allocator.FreeBuffer(b)
}

// RunOneTime records a single use command buffer with record, submits it to
// queue and blocks until the queue is idle
func (r *ResourceManager) RunOneTime(queue *Queue, record func(cb *CommandBuffer) error) error {
	pool := r.graphicsPool
	if queue.Family == r.transferQueue.Family {
		pool = r.transferPool
	}

	cbs, err := r.device.AllocateCommandBuffers(pool, 1)
	if err != nil {
		return errors.Wrap(err, "allocating command buffer")
	}
	defer r.device.FreeCommandBuffers(pool, cbs)
	cb := cbs[0]

	if err := r.device.BeginCommandBuffer(cb, true); err != nil {
		return errors.Wrap(err, "beginning command buffer")
	}
	if err := record(cb); err != nil {
		return err
	}
	if err := r.device.EndCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "ending command buffer")
	}
	if err := r.device.QueueSubmit(queue, Submission{CommandBuffer: cb}); err != nil {
		return errors.Wrap(err, "submitting command buffer")
	}
	return errors.Wrap(r.device.QueueWaitIdle(queue), "waiting for queue idle")
}

// stage copies data into a new host visible transfer source buffer
func (r *ResourceManager) stage(data []byte) (*Buffer, error) {
	staging, err := r.Allocator.AllocateBuffer(uint64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), MemoryHostSequentialWrite)
	if err != nil {
		return nil, errors.Wrap(err, "allocating staging buffer")
	}
	copy(staging.Bytes(), data)
	return staging, nil
}

// CopyViaStaging uploads data to the start of dst through a transient staging
// buffer. It blocks until the copy has completed on the transfer queue, so it
// is meant for initialization, not per frame updates.
func (r *ResourceManager) CopyViaStaging(data []byte, dst *Buffer) error {
	if len(data) == 0 {
		return nil
	}
	if uint64(len(data)) > dst.Size {
		return errors.Errorf("payload of %d bytes does not fit buffer of %d bytes", len(data), dst.Size)
	}

	staging, err := r.stage(data)
	if err != nil {
		return err
	}
	defer r.Allocator.FreeBuffer(staging)

	err = r.RunOneTime(r.transferQueue, func(cb *CommandBuffer) error {
		r.device.CmdCopyBuffer(cb, staging, dst, uint64(len(data)))
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "copying staging buffer")
	}

	Logger().WithFields(logrus.Fields{"bytes": len(data)}).Debug("uploaded buffer")
	return nil
}

func (r *ResourceManager) createDeviceBuffer(data []byte, usage vk.BufferUsageFlags) (*Buffer, error) {
	b, err := r.Allocator.AllocateBuffer(uint64(len(data)),
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), MemoryDeviceLocal)
	if err != nil {
		return nil, err
	}
	if err := r.CopyViaStaging(data, b); err != nil {
		r.Allocator.FreeBuffer(b)
		return nil, err
	}
	return b, nil
}

// CreateVertexBuffer uploads the model's vertices into a device local vertex buffer
func (r *ResourceManager) CreateVertexBuffer(model *ModelStorage) error {
	if len(model.Vertices) == 0 {
		return errors.New("model has no vertices")
	}
	b, err := r.createDeviceBuffer(model.Vertices.Bytes(), vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return errors.Wrap(err, "creating vertex buffer")
	}
	r.VertexBuffer = b
	return nil
}

// CreateIndexBuffer uploads the model's indices into a device local index buffer
func (r *ResourceManager) CreateIndexBuffer(model *ModelStorage) error {
	if len(model.Indices) == 0 {
		return errors.New("model has no indices")
	}
	b, err := r.createDeviceBuffer(model.Indices.Bytes(), vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		return errors.Wrap(err, "creating index buffer")
	}
	r.IndexBuffer = b
	return nil
}

// CreateUniformBuffers creates one persistently mapped uniform buffer per frame in flight
func (r *ResourceManager) CreateUniformBuffers(size uint64) error {
	r.UniformBuffers = make([]*Buffer, r.options.FramesInFlight)
	for i := range r.UniformBuffers {
		b, err := r.Allocator.AllocateBuffer(size, vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), MemoryHostSequentialWrite)
		if err != nil {
			return errors.Wrapf(err, "creating uniform buffer %d", i)
		}
		r.UniformBuffers[i] = b
	}
	return nil
}

func (r *ResourceManager) chooseSamples() vk.SampleCountFlagBits {
	limits := r.device.Limits()
	supported := limits.ColorSampleCounts & limits.DepthSampleCounts
	for s := r.options.MSAASamples; s > vk.SampleCount1Bit; s >>= 1 {
		if supported&vk.SampleCountFlags(s) != 0 {
			return s
		}
	}
	return vk.SampleCount1Bit
}

// CreateRenderPass creates the render pass drawing into the chain's images.
// With multisampling the color target resolves into the presentable image.
// The presentable image is expected in the color attachment layout when the
// pass begins and is left there, the frame transitions it around the pass.
func (r *ResourceManager) CreateRenderPass(chain *PresentationChain) error {
	if r.DepthFormat == vk.FormatUndefined {
		format, err := r.FindDepthFormat()
		if err != nil {
			return err
		}
		r.DepthFormat = format
	}
	if r.Samples == 0 {
		r.Samples = r.chooseSamples()
	}

	depth := AttachmentDescriptor{
		Format:        r.DepthFormat,
		Samples:       r.Samples,
		LoadOp:        vk.AttachmentLoadOpClear,
		StoreOp:       vk.AttachmentStoreOpDontCare,
		InitialLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		FinalLayout:   vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	var desc RenderPassDescriptor
	if r.Samples > vk.SampleCount1Bit {
		desc = RenderPassDescriptor{
			Attachments: []AttachmentDescriptor{
				{
					Format:        chain.SurfaceFormat.Format,
					Samples:       r.Samples,
					LoadOp:        vk.AttachmentLoadOpClear,
					StoreOp:       vk.AttachmentStoreOpDontCare,
					InitialLayout: vk.ImageLayoutUndefined,
					FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
				},
				depth,
				{
					Format:        chain.SurfaceFormat.Format,
					Samples:       vk.SampleCount1Bit,
					LoadOp:        vk.AttachmentLoadOpDontCare,
					StoreOp:       vk.AttachmentStoreOpStore,
					InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
					FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
				},
			},
			Color:   0,
			Depth:   1,
			Resolve: 2,
		}
	} else {
		desc = RenderPassDescriptor{
			Attachments: []AttachmentDescriptor{
				{
					Format:        chain.SurfaceFormat.Format,
					Samples:       vk.SampleCount1Bit,
					LoadOp:        vk.AttachmentLoadOpClear,
					StoreOp:       vk.AttachmentStoreOpStore,
					InitialLayout: vk.ImageLayoutColorAttachmentOptimal,
					FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
				},
				depth,
			},
			Color:   0,
			Depth:   1,
			Resolve: -1,
		}
	}

	rp, err := r.device.CreateRenderPass(desc)
	if err != nil {
		return errors.Wrap(err, "creating render pass")
	}
	r.RenderPass = rp

	Logger().WithFields(logrus.Fields{
		"format":  chain.SurfaceFormat.Format,
		"depth":   r.DepthFormat,
		"samples": r.Samples,
	}).Debug("created render pass")
	return nil
}

// CreateAttachments creates the multisampled color target and the depth
// target sized to the chain's extent. The depth target is transitioned into
// the depth attachment layout before returning.
func (r *ResourceManager) CreateAttachments(chain *PresentationChain) error {
	if r.RenderPass == nil {
		return errors.New("render pass must be created before attachments")
	}

	if r.Samples > vk.SampleCount1Bit {
		color, err := r.Allocator.AllocateImage(ImageDescriptor{
			Extent:    chain.Extent,
			Format:    chain.SurfaceFormat.Format,
			MipLevels: 1,
			Samples:   r.Samples,
			Tiling:    vk.ImageTilingOptimal,
			Usage:     vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit | vk.ImageUsageColorAttachmentBit),
		}, MemoryDeviceLocal)
		if err != nil {
			return errors.Wrap(err, "creating color target")
		}
		r.ColorImage = color

		r.ColorView, err = r.device.CreateImageView(color, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			return errors.Wrap(err, "creating color target view")
		}
	}

	depth, err := r.Allocator.AllocateImage(ImageDescriptor{
		Extent:    chain.Extent,
		Format:    r.DepthFormat,
		MipLevels: 1,
		Samples:   r.Samples,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
	}, MemoryDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "creating depth target")
	}
	r.DepthImage = depth

	r.DepthView, err = r.device.CreateImageView(depth, AspectFor(r.DepthFormat, vk.ImageLayoutDepthStencilAttachmentOptimal))
	if err != nil {
		return errors.Wrap(err, "creating depth target view")
	}

	err = r.RunOneTime(r.graphicsQueue, func(cb *CommandBuffer) error {
		return r.Transition(cb, depth, AllMips(depth), vk.ImageLayoutUndefined,
			vk.ImageLayoutDepthStencilAttachmentOptimal, Optional[BarrierOverride]{})
	})
	if err != nil {
		return errors.Wrap(err, "transitioning depth target")
	}

	Logger().WithFields(logrus.Fields{
		"width":  chain.Extent.Width,
		"height": chain.Extent.Height,
	}).Debug("created attachments")
	return nil
}

// CreateFramebuffers creates one framebuffer per presentable image
func (r *ResourceManager) CreateFramebuffers(chain *PresentationChain) error {
	r.Framebuffers = make([]*Framebuffer, 0, len(chain.Views))
	for i, view := range chain.Views {
		var views []*ImageView
		if r.RenderPass.Descriptor.Resolve >= 0 {
			views = []*ImageView{r.ColorView, r.DepthView, view}
		} else {
			views = []*ImageView{view, r.DepthView}
		}
		fb, err := r.device.CreateFramebuffer(r.RenderPass, views, chain.Extent)
		if err != nil {
			return errors.Wrapf(err, "creating framebuffer %d", i)
		}
		r.Framebuffers = append(r.Framebuffers, fb)
	}
	return nil
}

// RebuildAttachments releases and recreates everything sized by the chain's
// extent. When the surface format changed the render pass is recreated too,
// and pipelines built against the old one must be rebuilt by the caller. The
// device must be idle, which PresentationChain.Recreate ensures.
func (r *ResourceManager) RebuildAttachments(chain *PresentationChain) error {
	r.destroyFramebuffers()
	r.destroyAttachments()

	if r.RenderPass != nil && r.RenderPass.Descriptor.Attachments[0].Format != chain.SurfaceFormat.Format {
		Logger().WithFields(logrus.Fields{
			"from": r.RenderPass.Descriptor.Attachments[0].Format,
			"to":   chain.SurfaceFormat.Format,
		}).Info("surface format changed, recreating render pass")
		r.device.DestroyRenderPass(r.RenderPass)
		r.RenderPass = nil
	}
	if r.RenderPass == nil {
		if err := r.CreateRenderPass(chain); err != nil {
			return err
		}
	}

	if err := r.CreateAttachments(chain); err != nil {
		return err
	}
	return r.CreateFramebuffers(chain)
}

// CreateFrameCommandBuffers allocates one resettable command buffer per frame in flight
func (r *ResourceManager) CreateFrameCommandBuffers() error {
	cbs, err := r.device.AllocateCommandBuffers(r.graphicsPool, r.options.FramesInFlight)
	if err != nil {
		return errors.Wrap(err, "allocating frame command buffers")
	}
	r.CommandBuffers = cbs
	return nil
}

// CreateSyncObjects creates imageCount acquisition and render finished
// semaphores, and if not yet created one signaled fence per frame in flight.
// Existing semaphores are destroyed first, so it must only be called with the
// device idle.
func (r *ResourceManager) CreateSyncObjects(imageCount int) error {
	if r.options.FramesInFlight > imageCount {
		return errors.Wrapf(ErrInvalidFrameCount, "%d frames in flight with %d presentable images", r.options.FramesInFlight, imageCount)
	}

	r.destroySemaphores()

	r.ImageAvailable = make([]*Semaphore, imageCount)
	r.RenderFinished = make([]*Semaphore, imageCount)
	for i := 0; i < imageCount; i++ {
		var err error
		if r.ImageAvailable[i], err = r.device.CreateSemaphore(); err != nil {
			return errors.Wrap(err, "creating image available semaphore")
		}
		if r.RenderFinished[i], err = r.device.CreateSemaphore(); err != nil {
			return errors.Wrap(err, "creating render finished semaphore")
		}
	}

	if r.InFlightFences == nil {
		r.InFlightFences = make([]*Fence, r.options.FramesInFlight)
		for i := range r.InFlightFences {
			var err error
			// signaled, so the first wait on each frame returns immediately
			if r.InFlightFences[i], err = r.device.CreateFence(true); err != nil {
				return errors.Wrap(err, "creating in flight fence")
			}
		}
	}
	return nil
}

// Prepare creates everything a FrameScheduler draws with: the model's vertex
// and index buffers, one uniform buffer per frame in flight, the render pass,
// the attachments and framebuffers sized by chain, the frame command buffers
// and the synchronization objects.
func (r *ResourceManager) Prepare(chain *PresentationChain, model *ModelStorage) error {
	if chain.State() != ChainReady {
		return errors.Errorf("presentation chain is %s", chain.State())
	}
	if r.options.FramesInFlight > chain.ImageCount() {
		return errors.Wrapf(ErrInvalidFrameCount, "%d frames in flight with %d presentable images", r.options.FramesInFlight, chain.ImageCount())
	}

	if err := r.CreateVertexBuffer(model); err != nil {
		return err
	}
	if err := r.CreateIndexBuffer(model); err != nil {
		return err
	}
	if err := r.CreateUniformBuffers(UniformBufferSize); err != nil {
		return err
	}
	if err := r.CreateRenderPass(chain); err != nil {
		return err
	}
	if err := r.CreateAttachments(chain); err != nil {
		return err
	}
	if err := r.CreateFramebuffers(chain); err != nil {
		return err
	}
	if err := r.CreateFrameCommandBuffers(); err != nil {
		return err
	}
	if err := r.CreateSyncObjects(chain.ImageCount()); err != nil {
		return err
	}

	stats := r.Allocator.Stats()
	Logger().WithFields(logrus.Fields{
		"frames":   r.options.FramesInFlight,
		"images":   chain.ImageCount(),
		"blocks":   stats.Blocks,
		"reserved": stats.Reserved,
	}).Info("prepared frame resources")
	return nil
}

func (r *ResourceManager) destroySemaphores() {
	for _, s := range r.ImageAvailable {
		if s != nil {
			r.device.DestroySemaphore(s)
		}
	}
	for _, s := range r.RenderFinished {
		if s != nil {
			r.device.DestroySemaphore(s)
		}
	}
	r.ImageAvailable = nil
	r.RenderFinished = nil
}

func (r *ResourceManager) destroyFramebuffers() {
	for _, fb := range r.Framebuffers {
		r.device.DestroyFramebuffer(fb)
	}
	r.Framebuffers = nil
}

func (r *ResourceManager) destroyAttachments() {
	if r.ColorView != nil {
		r.device.DestroyImageView(r.ColorView)
		r.ColorView = nil
	}
	if r.ColorImage != nil {
		r.Allocator.FreeImage(r.ColorImage)
		r.ColorImage = nil
	}
	if r.DepthView != nil {
		r.device.DestroyImageView(r.DepthView)
		r.DepthView = nil
	}
	if r.DepthImage != nil {
		r.Allocator.FreeImage(r.DepthImage)
		r.DepthImage = nil
	}
}

// Destroy releases everything owned by the manager in reverse order of
// creation. The device must be idle.
func (r *ResourceManager) Destroy() {
	r.destroySemaphores()
	for _, f := range r.InFlightFences {
		r.device.DestroyFence(f)
	}
	r.InFlightFences = nil

	if r.CommandBuffers != nil {
		r.device.FreeCommandBuffers(r.graphicsPool, r.CommandBuffers)
		r.CommandBuffers = nil
	}

	r.destroyFramebuffers()
	r.destroyAttachments()
	if r.RenderPass != nil {
		r.device.DestroyRenderPass(r.RenderPass)
		r.RenderPass = nil
	}

	for _, b := range r.UniformBuffers {
		r.Allocator.FreeBuffer(b)
	}
	r.UniformBuffers = nil
	r.Allocator.FreeBuffer(r.IndexBuffer)
	r.IndexBuffer = nil
	r.Allocator.FreeBuffer(r.VertexBuffer)
	r.VertexBuffer = nil

	if r.transferPool != nil && r.transferPool != r.graphicsPool {
		r.device.DestroyCommandPool(r.transferPool)
	}
	r.transferPool = nil
	if r.graphicsPool != nil {
		r.device.DestroyCommandPool(r.graphicsPool)
		r.graphicsPool = nil
	}

	r.Allocator.Destroy()
}
