package vkrender

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

func (q *Queue) String() string {
	return fmt.Sprintf("{ Family: %d }", q.Family)
}

// QueueSubmit submits a single command buffer. The wait and signal semaphores
// and the fence of s are optional.
func (d *VulkanDevice) QueueSubmit(q *Queue, s Submission) error {
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{s.CommandBuffer.VKCommandBuffer},
	}
	if s.Wait != nil {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{s.Wait.VKSemaphore}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{s.WaitStage}
	}
	if s.Signal != nil {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{s.Signal.VKSemaphore}
	}

	fence := vk.Fence(vk.NullHandle)
	if s.Fence != nil {
		fence = s.Fence.VKFence
	}
	return vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, fence))
}

func (d *VulkanDevice) QueueWaitIdle(q *Queue) error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}
