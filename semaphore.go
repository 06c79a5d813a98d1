package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

func (d *VulkanDevice) CreateSemaphore() (*Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var sema vk.Semaphore
	err := vk.Error(vk.CreateSemaphore(d.VKDevice, &semaphoreCreateInfo, nil, &sema))
	if err != nil {
		return nil, err
	}
	return &Semaphore{VKSemaphore: sema}, nil
}

func (d *VulkanDevice) DestroySemaphore(s *Semaphore) {
	vk.DestroySemaphore(d.VKDevice, s.VKSemaphore, nil)
}
