package vkrender

import (
	"time"

	vk "github.com/vulkan-go/vulkan"
)

func (d *VulkanDevice) CreateFence(signaled bool) (*Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, err
	}
	return &Fence{VKFence: fence}, nil
}

func (d *VulkanDevice) DestroyFence(f *Fence) {
	vk.DestroyFence(d.VKDevice, f.VKFence, nil)
}

// WaitForFence blocks until f is signaled or timeout elapses. NoTimeout, or
// any negative duration, waits indefinitely.
func (d *VulkanDevice) WaitForFence(f *Fence, timeout time.Duration) error {
	ts := uint64(vk.MaxUint64)
	if timeout >= 0 && timeout != NoTimeout {
		ts = uint64(timeout.Nanoseconds())
	}
	return vk.Error(vk.WaitForFences(d.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, ts))
}

func (d *VulkanDevice) ResetFence(f *Fence) error {
	return vk.Error(vk.ResetFences(d.VKDevice, 1, []vk.Fence{f.VKFence}))
}

// FenceSignaled polls the status of f without blocking
func (d *VulkanDevice) FenceSignaled(f *Fence) bool {
	return vk.GetFenceStatus(d.VKDevice, f.VKFence) == vk.Success
}
