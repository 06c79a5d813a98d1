package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorPool is a pool descriptor sets are allocated from
type DescriptorPool struct {
	VKDescriptorPool     vk.DescriptorPool
	VKDescriptorPoolSize []vk.DescriptorPoolSize
	MaxSets              int
}

// AddPoolSize reserves count descriptors of dtype in the pool
func (p *DescriptorPool) AddPoolSize(dtype vk.DescriptorType, count int) *DescriptorPool {
	p.VKDescriptorPoolSize = append(p.VKDescriptorPoolSize, vk.DescriptorPoolSize{
		Type:            dtype,
		DescriptorCount: uint32(count),
	})
	return p
}

// FramePool sizes a pool for one FrameSetLayout set per frame in flight
func FramePool(framesInFlight int) *DescriptorPool {
	p := &DescriptorPool{MaxSets: framesInFlight}
	p.AddPoolSize(vk.DescriptorTypeUniformBuffer, framesInFlight)
	p.AddPoolSize(vk.DescriptorTypeCombinedImageSampler, framesInFlight)
	return p
}

// CreateDescriptorPool creates the native pool sized by p
func (d *VulkanDevice) CreateDescriptorPool(p *DescriptorPool) error {
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(p.MaxSets),
		PoolSizeCount: uint32(len(p.VKDescriptorPoolSize)),
		PPoolSizes:    p.VKDescriptorPoolSize,
	}

	var pool vk.DescriptorPool
	err := vk.Error(vk.CreateDescriptorPool(d.VKDevice, &createInfo, nil, &pool))
	if err != nil {
		return err
	}
	p.VKDescriptorPool = pool
	return nil
}

// AllocateDescriptorSets allocates count sets with layout from p
func (d *VulkanDevice) AllocateDescriptorSets(p *DescriptorPool, layout *DescriptorSetLayout, count int) ([]*DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, count)
	for i := range layouts {
		layouts[i] = layout.VKDescriptorSetLayout
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.VKDescriptorPool,
		DescriptorSetCount: uint32(count),
		PSetLayouts:        layouts,
	}

	sets := make([]vk.DescriptorSet, count)
	err := vk.Error(vk.AllocateDescriptorSets(d.VKDevice, &allocInfo, &sets[0]))
	if err != nil {
		return nil, errors.Wrap(err, "allocating descriptor sets")
	}

	ret := make([]*DescriptorSet, count)
	for i, s := range sets {
		ret[i] = &DescriptorSet{VKDescriptorSet: s}
	}
	return ret, nil
}

// DestroyDescriptorPool destroys p and frees every set allocated from it
func (d *VulkanDevice) DestroyDescriptorPool(p *DescriptorPool) {
	vk.DestroyDescriptorPool(d.VKDevice, p.VKDescriptorPool, nil)
}
