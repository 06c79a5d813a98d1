package vkrender

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

func (d *VulkanDevice) AllocateMemory(size uint64, typeIndex uint32) (*DeviceMemory, error) {
	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: typeIndex,
	}

	var deviceMemory vk.DeviceMemory
	if res := vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory); res != vk.Success {
		return nil, allocationError(res)
	}

	return &DeviceMemory{VKDeviceMemory: deviceMemory, Size: size, TypeIndex: typeIndex}, nil
}

func (d *VulkanDevice) FreeMemory(m *DeviceMemory) {
	vk.FreeMemory(d.VKDevice, m.VKDeviceMemory, nil)
}

// MapMemory maps the entirety of m, the mapping stays valid until UnmapMemory
func (d *VulkanDevice) MapMemory(m *DeviceMemory) ([]byte, error) {
	var ptr unsafe.Pointer
	err := vk.Error(vk.MapMemory(d.VKDevice, m.VKDeviceMemory, 0, vk.DeviceSize(m.Size), 0, &ptr))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), m.Size), nil
}

func (d *VulkanDevice) UnmapMemory(m *DeviceMemory) {
	vk.UnmapMemory(d.VKDevice, m.VKDeviceMemory)
}
