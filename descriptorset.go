package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// DescriptorWrites collects the updates applied to a descriptor set
type DescriptorWrites struct {
	VKWriteDescriptorSet []vk.WriteDescriptorSet
}

// AddBuffer binds the whole of b at binding
func (w *DescriptorWrites) AddBuffer(binding uint32, dtype vk.DescriptorType, b *Buffer) *DescriptorWrites {
	w.VKWriteDescriptorSet = append(w.VKWriteDescriptorSet, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  dtype,
		PBufferInfo:     []vk.DescriptorBufferInfo{b.DSInfo()},
	})
	return w
}

// AddCombinedImageSampler binds a texture, read in the shader read only layout, at binding
func (w *DescriptorWrites) AddCombinedImageSampler(binding uint32, tex *Texture) *DescriptorWrites {
	w.VKWriteDescriptorSet = append(w.VKWriteDescriptorSet, vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageView:   tex.View.VKImageView,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			Sampler:     tex.Sampler.VKSampler,
		}},
	})
	return w
}

// FrameDescriptorWrites binds frame's uniform buffer and tex to a set with
// the FrameSetLayout layout
func (r *ResourceManager) FrameDescriptorWrites(frame int, tex *Texture) *DescriptorWrites {
	w := &DescriptorWrites{}
	w.AddBuffer(0, vk.DescriptorTypeUniformBuffer, r.UniformBuffers[frame])
	w.AddCombinedImageSampler(1, tex)
	return w
}

// UpdateDescriptorSet applies w to set
func (d *VulkanDevice) UpdateDescriptorSet(set *DescriptorSet, w *DescriptorWrites) {
	for i := range w.VKWriteDescriptorSet {
		w.VKWriteDescriptorSet[i].DstSet = set.VKDescriptorSet
	}
	vk.UpdateDescriptorSets(d.VKDevice, uint32(len(w.VKWriteDescriptorSet)), w.VKWriteDescriptorSet, 0, nil)
}
