package vkrender

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// ChainState is the lifecycle state of a PresentationChain
type ChainState int

const (
	ChainUninitialized ChainState = iota
	ChainReady
	ChainResizing
	ChainRetired
)

func (s ChainState) String() string {
	switch s {
	case ChainUninitialized:
		return "uninitialized"
	case ChainReady:
		return "ready"
	case ChainResizing:
		return "resizing"
	case ChainRetired:
		return "retired"
	}
	return "unknown"
}

// DefaultMinImageCount is the number of presentable images requested unless
// the surface requires more
const DefaultMinImageCount = 3

// ChainOptions configure a PresentationChain
type ChainOptions struct {
	// PresentMode is the preferred present mode, mailbox when unset. FIFO is
	// used if the surface does not support it.
	PresentMode Optional[vk.PresentMode]
	// MinImageCount is the number of images requested, at least DefaultMinImageCount
	MinImageCount uint32
	// FramebufferSize reports the window size in pixels, it is used when the
	// surface leaves the extent up to the application
	FramebufferSize func() (width, height int)
}

// PresentationChain owns the swapchain, its images and their views. The images
// belong to the presentation engine and are never freed individually.
type PresentationChain struct {
	device  Device
	surface Surface
	options ChainOptions
	state   ChainState

	Swapchain     *Swapchain
	Images        []*Image
	Views         []*ImageView
	SurfaceFormat SurfaceFormat
	PresentMode   vk.PresentMode
	Extent        vk.Extent2D
}

// NewPresentationChain creates an uninitialized chain for surface, call Create
// to build the swapchain
func NewPresentationChain(device Device, surface Surface, options ChainOptions) *PresentationChain {
	options.MinImageCount = max(options.MinImageCount, DefaultMinImageCount)
	if !options.PresentMode.HasValue() {
		options.PresentMode.Set(vk.PresentModeMailbox)
	}
	return &PresentationChain{device: device, surface: surface, options: options}
}

func (c *PresentationChain) State() ChainState {
	return c.state
}

// ImageCount is the number of presentable images, M
func (c *PresentationChain) ImageCount() int {
	return len(c.Images)
}

// Create builds the swapchain from the current surface capabilities. It
// returns ErrSurfaceMinimized when the surface has no area.
func (c *PresentationChain) Create() error {
	if c.state == ChainRetired {
		return ErrChainRetired
	}

	caps, err := c.surface.Capabilities()
	if err != nil {
		return errors.Wrap(err, "querying surface capabilities")
	}
	formats, err := c.surface.Formats()
	if err != nil {
		return errors.Wrap(err, "querying surface formats")
	}
	modes, err := c.surface.PresentModes()
	if err != nil {
		return errors.Wrap(err, "querying present modes")
	}

	var width, height int
	if c.options.FramebufferSize != nil {
		width, height = c.options.FramebufferSize()
		if width == 0 || height == 0 {
			return ErrSurfaceMinimized
		}
	}
	extent := ChooseExtent(caps, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		return ErrSurfaceMinimized
	}

	format, err := ChooseSurfaceFormat(formats)
	if err != nil {
		return err
	}

	desc := SwapchainDescriptor{
		Format:      format,
		PresentMode: ChoosePresentMode(modes, c.options.PresentMode.Get()),
		Extent:      extent,
		ImageCount:  ChooseImageCount(caps, c.options.MinImageCount),
		Transform:   caps.Transform,
	}

	swapchain, err := c.surface.CreateSwapchain(desc)
	if err != nil {
		return errors.Wrap(err, "creating swapchain")
	}

	images, err := c.surface.SwapchainImages(swapchain)
	if err != nil {
		c.surface.DestroySwapchain(swapchain)
		return errors.Wrap(err, "getting swapchain images")
	}

	views := make([]*ImageView, 0, len(images))
	for _, img := range images {
		view, err := c.device.CreateImageView(img, vk.ImageAspectFlags(vk.ImageAspectColorBit))
		if err != nil {
			for _, v := range views {
				c.device.DestroyImageView(v)
			}
			c.surface.DestroySwapchain(swapchain)
			return errors.Wrap(err, "creating swapchain image view")
		}
		views = append(views, view)
	}

	c.Swapchain = swapchain
	c.Images = images
	c.Views = views
	c.SurfaceFormat = format
	c.PresentMode = desc.PresentMode
	c.Extent = extent
	c.state = ChainReady

	Logger().WithFields(logrus.Fields{
		"width":   extent.Width,
		"height":  extent.Height,
		"images":  len(images),
		"format":  format.Format,
		"present": desc.PresentMode,
	}).Info("created presentation chain")

	return nil
}

// Recreate waits for the device to go idle, releases the current swapchain
// and builds a new one. Attachments sized by the extent must be rebuilt by the
// caller afterwards.
func (c *PresentationChain) Recreate() error {
	if c.state == ChainRetired {
		return ErrChainRetired
	}
	c.state = ChainResizing

	if err := c.device.WaitIdle(); err != nil {
		return errors.Wrap(err, "waiting for device idle")
	}
	c.release()

	return c.Create()
}

func (c *PresentationChain) release() {
	for _, v := range c.Views {
		c.device.DestroyImageView(v)
	}
	c.Views = nil
	c.Images = nil
	if c.Swapchain != nil {
		c.surface.DestroySwapchain(c.Swapchain)
		c.Swapchain = nil
	}
}

// Destroy releases the chain, it may not be used afterwards
func (c *PresentationChain) Destroy() {
	c.release()
	c.state = ChainRetired
}

// Acquire acquires the next presentable image, signaling signal when it is ready
func (c *PresentationChain) Acquire(signal *Semaphore) (uint32, vk.Result) {
	return c.surface.AcquireNextImage(c.Swapchain, signal)
}

// Present queues an image for presentation once wait is signaled
func (c *PresentationChain) Present(imageIndex uint32, wait *Semaphore) vk.Result {
	return c.surface.QueuePresent(c.Swapchain, imageIndex, wait)
}

// ChooseSurfaceFormat prefers 8 bit BGRA sRGB, otherwise the first format reported
func ChooseSurfaceFormat(formats []SurfaceFormat) (SurfaceFormat, error) {
	if len(formats) == 0 {
		return SurfaceFormat{}, errors.Wrap(ErrFormatNotFound, "surface reports no formats")
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorspaceSrgbNonlinear {
			return f, nil
		}
	}
	return formats[0], nil
}

// ChoosePresentMode returns preferred when the surface supports it, FIFO otherwise
func ChoosePresentMode(modes []vk.PresentMode, preferred vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == preferred {
			return m
		}
	}
	return vk.PresentModeFifo
}

// ChooseExtent returns the surface's current extent, or when the surface leaves
// it to the application the window size clamped to the supported range
func ChooseExtent(caps SurfaceCapabilities, width, height int) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(uint32(max(width, 0)), caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(uint32(max(height, 0)), caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// ChooseImageCount returns max(requested, caps.MinImageCount) clamped to the
// surface maximum, a maximum of zero means no limit
func ChooseImageCount(caps SurfaceCapabilities, requested uint32) uint32 {
	n := max(requested, caps.MinImageCount)
	if caps.MaxImageCount > 0 && n > caps.MaxImageCount {
		n = caps.MaxImageCount
	}
	return n
}

func clamp(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
