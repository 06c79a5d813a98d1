package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// VulkanSurface implements Surface on a window surface, presenting on a
// dedicated present queue
type VulkanSurface struct {
	device       *VulkanDevice
	VKSurface    vk.Surface
	presentQueue *Queue
	// families swapchain images are used on
	families []uint32
}

var _ Surface = (*VulkanSurface)(nil)

// NewVulkanSurface wraps surface. Swapchain images are shared between the
// graphics queue family and the present queue's family.
func NewVulkanSurface(device *VulkanDevice, surface vk.Surface, graphicsFamily uint32, presentQueue *Queue) *VulkanSurface {
	s := &VulkanSurface{
		device:       device,
		VKSurface:    surface,
		presentQueue: presentQueue,
		families:     []uint32{graphicsFamily},
	}
	if presentQueue.Family != graphicsFamily {
		s.families = append(s.families, presentQueue.Family)
	}
	return s
}

func (s *VulkanSurface) Capabilities() (SurfaceCapabilities, error) {
	caps, err := s.device.PhysicalDevice.GetSurfaceCapabilities(s.VKSurface)
	if err != nil {
		return SurfaceCapabilities{}, err
	}
	return SurfaceCapabilities{
		MinImageCount:  caps.MinImageCount,
		MaxImageCount:  caps.MaxImageCount,
		CurrentExtent:  caps.CurrentExtent,
		MinImageExtent: caps.MinImageExtent,
		MaxImageExtent: caps.MaxImageExtent,
		Transform:      caps.CurrentTransform,
	}, nil
}

func (s *VulkanSurface) Formats() ([]SurfaceFormat, error) {
	formats, err := s.device.PhysicalDevice.GetSurfaceFormats(s.VKSurface)
	if err != nil {
		return nil, err
	}
	ret := make([]SurfaceFormat, len(formats))
	for i, f := range formats {
		ret[i] = SurfaceFormat{Format: f.Format, ColorSpace: f.ColorSpace}
	}
	return ret, nil
}

func (s *VulkanSurface) PresentModes() ([]vk.PresentMode, error) {
	return s.device.PhysicalDevice.GetSurfacePresentModes(s.VKSurface)
}

func (s *VulkanSurface) CreateSwapchain(desc SwapchainDescriptor) (*Swapchain, error) {
	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.VKSurface,
		MinImageCount:    desc.ImageCount,
		ImageFormat:      desc.Format.Format,
		ImageColorSpace:  desc.Format.ColorSpace,
		ImageExtent:      desc.Extent,
		PresentMode:      desc.PresentMode,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageArrayLayers: 1,
		Clipped:          vk.True,
		PreTransform:     desc.Transform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		OldSwapchain:     vk.NullSwapchain,
	}

	if len(s.families) > 1 {
		createInfo.QueueFamilyIndexCount = uint32(len(s.families))
		createInfo.PQueueFamilyIndices = s.families
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	err := vk.Error(vk.CreateSwapchain(s.device.VKDevice, createInfo, nil, &swapchain))
	if err != nil {
		return nil, err
	}
	return &Swapchain{VKSwapchain: swapchain, Format: desc.Format.Format, Extent: desc.Extent}, nil
}

func (s *VulkanSurface) DestroySwapchain(sc *Swapchain) {
	vk.DestroySwapchain(s.device.VKDevice, sc.VKSwapchain, nil)
}

// SwapchainImages returns the presentable images of sc. They are owned by the
// swapchain and must not be destroyed.
func (s *VulkanSurface) SwapchainImages(sc *Swapchain) ([]*Image, error) {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(s.device.VKDevice, sc.VKSwapchain, &imageCount, nil))
	if err != nil {
		return nil, err
	}

	swapchainImages := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(s.device.VKDevice, sc.VKSwapchain, &imageCount, swapchainImages))
	if err != nil {
		return nil, err
	}
	if imageCount == 0 {
		return nil, errors.New("swapchain has no images")
	}

	ret := make([]*Image, imageCount)
	for i := range ret {
		ret[i] = newImage(swapchainImages[i], ImageDescriptor{
			Extent:    sc.Extent,
			Format:    sc.Format,
			MipLevels: 1,
			Samples:   vk.SampleCount1Bit,
			Tiling:    vk.ImageTilingOptimal,
			Usage:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		})
	}
	return ret, nil
}

func (s *VulkanSurface) AcquireNextImage(sc *Swapchain, signal *Semaphore) (uint32, vk.Result) {
	var imageIndex uint32
	res := vk.AcquireNextImage(s.device.VKDevice, sc.VKSwapchain, vk.MaxUint64, signal.VKSemaphore, vk.Fence(vk.NullHandle), &imageIndex)
	return imageIndex, res
}

func (s *VulkanSurface) QueuePresent(sc *Swapchain, imageIndex uint32, wait *Semaphore) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.VKSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.VKSwapchain},
		PImageIndices:      []uint32{imageIndex},
	}
	return vk.QueuePresent(s.presentQueue.VKQueue, &presentInfo)
}

// Destroy releases the surface, every swapchain created on it must have been destroyed
func (s *VulkanSurface) Destroy(instance *Instance) {
	vk.DestroySurface(instance.VKInstance, s.VKSurface, nil)
}
