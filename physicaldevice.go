package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// IsDiscrete reports whether the device is a discrete GPU
func (p *PhysicalDevice) IsDiscrete() bool {
	return p.VKPhysicalDeviceProperties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
}

func (p *PhysicalDevice) GetSurfacePresentModes(surface vk.Surface) ([]vk.PresentMode, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.PresentMode, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}
	return f[:count], nil
}

func (p *PhysicalDevice) GetSurfaceFormats(surface vk.Surface) ([]vk.SurfaceFormat, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.SurfaceFormat, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}
	for i := range f {
		f[i].Deref()
	}
	return f[:count], nil
}

func (p *PhysicalDevice) GetSurfaceCapabilities(surface vk.Surface) (*vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps))
	if err != nil {
		return nil, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()
	return &caps, nil
}

type CreateDeviceOptions struct {
	EnabledExtensions []string
	EnabledLayers     []string
}

// CreateLogicalDevice creates a device with one queue from each of the given
// families and every feature the physical device supports enabled
func (p *PhysicalDevice) CreateLogicalDevice(families []uint32, options *CreateDeviceOptions) (vk.Device, error) {
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for j, f := range families {
		queueCreateInfos[j] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: f,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	deviceFeatures := p.VKPhysicalDeviceFeatures()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),
		PQueueCreateInfos:    queueCreateInfos,
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	if options != nil {
		if options.EnabledExtensions != nil {
			deviceCreateInfo.EnabledExtensionCount = uint32(len(options.EnabledExtensions))
			deviceCreateInfo.PpEnabledExtensionNames = SafeStrings(options.EnabledExtensions)
		}
		if options.EnabledLayers != nil {
			deviceCreateInfo.EnabledLayerCount = uint32(len(options.EnabledLayers))
			deviceCreateInfo.PpEnabledLayerNames = SafeStrings(options.EnabledLayers)
		}
	}

	var ldevice vk.Device
	err := vk.Error(vk.CreateDevice(p.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice))
	if err != nil {
		return nil, errors.Wrapf(err, "creating logical device on %s", p)
	}
	return ldevice, nil
}

func (p *PhysicalDevice) VKPhysicalDeviceFeatures() vk.PhysicalDeviceFeatures {
	var deviceFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &deviceFeatures)
	return deviceFeatures
}

func (p *PhysicalDevice) MemoryTypes() []vk.MemoryType {
	var mp vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &mp)
	mp.Deref()

	ret := make([]vk.MemoryType, 0, mp.MemoryTypeCount)
	for i := uint32(0); i < mp.MemoryTypeCount; i++ {
		mt := mp.MemoryTypes[i]
		mt.Deref()
		ret = append(ret, mt)
	}
	return ret
}

// MemoryHeaps returns the device's memory heaps
func (p *PhysicalDevice) MemoryHeaps() []vk.MemoryHeap {
	var mp vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &mp)
	mp.Deref()

	ret := make([]vk.MemoryHeap, 0, mp.MemoryHeapCount)
	for i := uint32(0); i < mp.MemoryHeapCount; i++ {
		h := mp.MemoryHeaps[i]
		h.Deref()
		ret = append(ret, h)
	}
	return ret
}

func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil))
	if err != nil {
		return nil, err
	}

	ext := make([]vk.ExtensionProperties, count)
	err = vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, ext))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ext))
	for _, e := range ext {
		e.Deref()
		names = append(names, vk.ToString(e.ExtensionName[:]))
	}
	return names, nil
}

// SupportsExtensions reports whether every named extension is available
func (p *PhysicalDevice) SupportsExtensions(required ...string) bool {
	available, err := p.SupportedExtensions()
	if err != nil {
		return false
	}
	have := make(map[string]bool, len(available))
	for _, name := range available {
		have[name] = true
	}
	for _, name := range required {
		if !have[name] {
			return false
		}
	}
	return true
}
