package vkrender

import (
	"fmt"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// VulkanDevice implements Device on a Vulkan logical device
type VulkanDevice struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device

	// queue families buffers and images are shared between, when there is
	// more than one resources are created with concurrent sharing
	queueFamilies []uint32
	memoryTypes   []MemoryType
	limits        DeviceLimits
}

var _ Device = (*VulkanDevice)(nil)

// NewVulkanDevice wraps a logical device created from physical. queueFamilies
// are the families of the queues resources are used on.
func NewVulkanDevice(physical *PhysicalDevice, device vk.Device, queueFamilies ...uint32) *VulkanDevice {
	d := &VulkanDevice{
		PhysicalDevice: physical,
		VKDevice:       device,
	}

	seen := map[uint32]bool{}
	for _, f := range queueFamilies {
		if !seen[f] {
			seen[f] = true
			d.queueFamilies = append(d.queueFamilies, f)
		}
	}

	for _, mt := range physical.MemoryTypes() {
		d.memoryTypes = append(d.memoryTypes, MemoryType{Flags: mt.PropertyFlags, HeapIndex: mt.HeapIndex})
	}

	limits := physical.VKPhysicalDeviceProperties.Limits
	limits.Deref()
	d.limits = DeviceLimits{
		MaxSamplerAnisotropy: limits.MaxSamplerAnisotropy,
		ColorSampleCounts:    limits.FramebufferColorSampleCounts,
		DepthSampleCounts:    limits.FramebufferDepthSampleCounts,
	}
	features := physical.VKPhysicalDeviceFeatures()
	features.Deref()
	if features.SamplerAnisotropy != vk.True {
		d.limits.MaxSamplerAnisotropy = 1
	}
	return d
}

func (d *VulkanDevice) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

func (d *VulkanDevice) MemoryTypes() []MemoryType {
	return d.memoryTypes
}

func (d *VulkanDevice) Limits() DeviceLimits {
	return d.limits
}

func (d *VulkanDevice) FormatFeatures(format vk.Format) FormatFeatures {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice.VKPhysicalDevice, format, &props)
	props.Deref()
	return FormatFeatures{Linear: props.LinearTilingFeatures, Optimal: props.OptimalTilingFeatures}
}

// GetQueue returns the first queue of a family
func (d *VulkanDevice) GetQueue(family uint32) *Queue {
	var vkq vk.Queue
	vk.GetDeviceQueue(d.VKDevice, family, 0, &vkq)
	return &Queue{VKQueue: vkq, Family: family}
}

func (d *VulkanDevice) WaitIdle() error {
	return errors.Wrap(vk.Error(vk.DeviceWaitIdle(d.VKDevice)), "device wait idle")
}

func (d *VulkanDevice) Destroy() {
	vk.DestroyDevice(d.VKDevice, nil)
}

func (d *VulkanDevice) sharing() (vk.SharingMode, []uint32) {
	if len(d.queueFamilies) > 1 {
		return vk.SharingModeConcurrent, d.queueFamilies
	}
	return vk.SharingModeExclusive, nil
}
