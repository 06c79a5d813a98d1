package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreatePipelineLayout creates a pipeline layout over the given descriptor set layouts
func (d *VulkanDevice) CreatePipelineLayout(descriptorSetLayouts ...*DescriptorSetLayout) (vk.PipelineLayout, error) {
	l := make([]vk.DescriptorSetLayout, len(descriptorSetLayouts))
	for i, dsl := range descriptorSetLayouts {
		l[i] = dsl.VKDescriptorSetLayout
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(l)),
		PSetLayouts:    l,
	}

	var pipelineLayout vk.PipelineLayout
	err := vk.Error(vk.CreatePipelineLayout(d.VKDevice, &createInfo, nil, &pipelineLayout))
	if err != nil {
		return vk.NullPipelineLayout, err
	}
	return pipelineLayout, nil
}
