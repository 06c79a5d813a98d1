package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

func (d *VulkanDevice) CreateBuffer(size uint64, usage vk.BufferUsageFlags) (*Buffer, MemoryRequirements, error) {
	sharing, families := d.sharing()
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:                 vk.StructureTypeBufferCreateInfo,
		Size:                  vk.DeviceSize(size),
		Usage:                 usage,
		SharingMode:           sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
	}

	var buffer vk.Buffer
	if res := vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer); res != vk.Success {
		return nil, MemoryRequirements{}, allocationError(res)
	}

	var mr vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, buffer, &mr)
	mr.Deref()

	return &Buffer{VKBuffer: buffer, Size: size, Usage: usage}, memoryRequirements(mr), nil
}

func (d *VulkanDevice) DestroyBuffer(b *Buffer) {
	vk.DestroyBuffer(d.VKDevice, b.VKBuffer, nil)
}

func (d *VulkanDevice) BindBufferMemory(b *Buffer, memory *DeviceMemory, offset uint64) error {
	return vk.Error(vk.BindBufferMemory(d.VKDevice, b.VKBuffer, memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

func (d *VulkanDevice) CmdCopyBuffer(cb *CommandBuffer, src, dst *Buffer, size uint64) {
	vk.CmdCopyBuffer(cb.VKCommandBuffer, src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      vk.DeviceSize(size),
	}})
}

func (d *VulkanDevice) CmdBindVertexBuffer(cb *CommandBuffer, b *Buffer) {
	vk.CmdBindVertexBuffers(cb.VKCommandBuffer, 0, 1, []vk.Buffer{b.VKBuffer}, []vk.DeviceSize{0})
}

func (d *VulkanDevice) CmdBindIndexBuffer(cb *CommandBuffer, b *Buffer) {
	vk.CmdBindIndexBuffer(cb.VKCommandBuffer, b.VKBuffer, 0, vk.IndexTypeUint32)
}

// DSInfo describes the whole buffer for a descriptor write
func (b *Buffer) DSInfo() vk.DescriptorBufferInfo {
	return vk.DescriptorBufferInfo{
		Buffer: b.VKBuffer,
		Offset: 0,
		Range:  vk.DeviceSize(b.Size),
	}
}

func memoryRequirements(mr vk.MemoryRequirements) MemoryRequirements {
	return MemoryRequirements{
		Size:      uint64(mr.Size),
		Alignment: uint64(mr.Alignment),
		TypeBits:  mr.MemoryTypeBits,
	}
}
