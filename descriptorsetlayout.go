package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorSetLayout describes the layout of a descriptor set
type DescriptorSetLayout struct {
	VKDescriptorSetLayout         vk.DescriptorSetLayout
	VKDescriptorSetLayoutBindings []vk.DescriptorSetLayoutBinding
}

// AddBinding adds a binding of count descriptors visible to stages
func (l *DescriptorSetLayout) AddBinding(binding uint32, dtype vk.DescriptorType, stages vk.ShaderStageFlagBits) *DescriptorSetLayout {
	l.VKDescriptorSetLayoutBindings = append(l.VKDescriptorSetLayoutBindings, vk.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  dtype,
		DescriptorCount: 1,
		StageFlags:      vk.ShaderStageFlags(stages),
	})
	return l
}

// FrameSetLayout is the layout the frame descriptor sets use, a uniform
// buffer at binding 0 read by the vertex stage and a combined image sampler
// at binding 1 read by the fragment stage
func FrameSetLayout() *DescriptorSetLayout {
	l := &DescriptorSetLayout{}
	l.AddBinding(0, vk.DescriptorTypeUniformBuffer, vk.ShaderStageVertexBit)
	l.AddBinding(1, vk.DescriptorTypeCombinedImageSampler, vk.ShaderStageFragmentBit)
	return l
}

// CreateDescriptorSetLayout creates the native layout for l's bindings
func (d *VulkanDevice) CreateDescriptorSetLayout(l *DescriptorSetLayout) error {
	createInfo := &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(l.VKDescriptorSetLayoutBindings)),
		PBindings:    l.VKDescriptorSetLayoutBindings,
	}

	var layout vk.DescriptorSetLayout
	err := vk.Error(vk.CreateDescriptorSetLayout(d.VKDevice, createInfo, nil, &layout))
	if err != nil {
		return err
	}
	l.VKDescriptorSetLayout = layout
	return nil
}

func (d *VulkanDevice) DestroyDescriptorSetLayout(l *DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.VKDevice, l.VKDescriptorSetLayout, nil)
}
