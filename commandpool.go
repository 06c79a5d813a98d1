package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateCommandPool creates a pool whose buffers can be reset individually
func (d *VulkanDevice) CreateCommandPool(queueFamily uint32) (*CommandPool, error) {
	commandPoolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: queueFamily,
	}

	var commandPool vk.CommandPool
	err := vk.Error(vk.CreateCommandPool(d.VKDevice, &commandPoolCreateInfo, nil, &commandPool))
	if err != nil {
		return nil, err
	}
	return &CommandPool{VKCommandPool: commandPool, QueueFamily: queueFamily}, nil
}

func (d *VulkanDevice) DestroyCommandPool(p *CommandPool) {
	vk.DestroyCommandPool(d.VKDevice, p.VKCommandPool, nil)
}

func (d *VulkanDevice) AllocateCommandBuffers(p *CommandPool, count int) ([]*CommandBuffer, error) {
	commandBufferAllocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        p.VKCommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}

	cmdBuffers := make([]vk.CommandBuffer, count)
	err := vk.Error(vk.AllocateCommandBuffers(d.VKDevice, &commandBufferAllocateInfo, cmdBuffers))
	if err != nil {
		return nil, err
	}

	ret := make([]*CommandBuffer, count)
	for i := range ret {
		ret[i] = &CommandBuffer{VKCommandBuffer: cmdBuffers[i], Pool: p}
	}
	return ret, nil
}

func (d *VulkanDevice) FreeCommandBuffers(p *CommandPool, buffers []*CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}
	vk.FreeCommandBuffers(d.VKDevice, p.VKCommandPool, uint32(len(b)), b)
}
