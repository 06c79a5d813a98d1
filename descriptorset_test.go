package vkrender

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestFrameSetLayout(t *testing.T) {
	bindings := FrameSetLayout().VKDescriptorSetLayoutBindings
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if b := bindings[0]; b.Binding != 0 || b.DescriptorType != vk.DescriptorTypeUniformBuffer ||
		b.StageFlags != vk.ShaderStageFlags(vk.ShaderStageVertexBit) {
		t.Errorf("unexpected uniform binding %+v", b)
	}
	if b := bindings[1]; b.Binding != 1 || b.DescriptorType != vk.DescriptorTypeCombinedImageSampler ||
		b.StageFlags != vk.ShaderStageFlags(vk.ShaderStageFragmentBit) {
		t.Errorf("unexpected sampler binding %+v", b)
	}
}

func TestFramePool(t *testing.T) {
	p := FramePool(3)
	if p.MaxSets != 3 || len(p.VKDescriptorPoolSize) != 2 {
		t.Fatalf("unexpected pool %+v", p)
	}
	for _, size := range p.VKDescriptorPoolSize {
		if size.DescriptorCount != 3 {
			t.Errorf("expected 3 descriptors of type %d, got %d", size.Type, size.DescriptorCount)
		}
	}
}

func TestFrameDescriptorWrites(t *testing.T) {
	tr := newTestRenderer(t, 2, nil)
	tex := &Texture{View: &ImageView{}, Sampler: &Sampler{}}

	w := tr.resources.FrameDescriptorWrites(1, tex)
	if len(w.VKWriteDescriptorSet) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(w.VKWriteDescriptorSet))
	}

	ubo := w.VKWriteDescriptorSet[0]
	if ubo.DstBinding != 0 || ubo.DescriptorType != vk.DescriptorTypeUniformBuffer {
		t.Errorf("unexpected uniform write %+v", ubo)
	}
	if r := ubo.PBufferInfo[0].Range; r != vk.DeviceSize(UniformBufferSize) {
		t.Errorf("expected range %d, got %d", UniformBufferSize, r)
	}

	sampler := w.VKWriteDescriptorSet[1]
	if sampler.DstBinding != 1 || sampler.PImageInfo[0].ImageLayout != vk.ImageLayoutShaderReadOnlyOptimal {
		t.Errorf("unexpected sampler write %+v", sampler)
	}
	tr.destroy(t)
}
