package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateImageView creates a 2D view over every mip level of i
func (d *VulkanDevice) CreateImageView(i *Image, aspect vk.ImageAspectFlags) (*ImageView, error) {
	createInfo := &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.VKImage,
		ViewType: vk.ImageViewType2d,
		Format:   i.Format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: i.MipLevels,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	err := vk.Error(vk.CreateImageView(d.VKDevice, createInfo, nil, &view))
	if err != nil {
		return nil, err
	}
	return &ImageView{VKImageView: view, Image: i}, nil
}

func (d *VulkanDevice) DestroyImageView(v *ImageView) {
	vk.DestroyImageView(d.VKDevice, v.VKImageView, nil)
}

func (d *VulkanDevice) CreateSampler(desc SamplerDescriptor) (*Sampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               desc.Filter,
		MinFilter:               desc.Filter,
		AddressModeU:            desc.AddressMode,
		AddressModeV:            desc.AddressMode,
		AddressModeW:            desc.AddressMode,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0,
		MinLod:                  0,
		MaxLod:                  desc.MaxLod,
	}
	if desc.MaxAnisotropy > 1 {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = desc.MaxAnisotropy
	}

	var sampler vk.Sampler
	err := vk.Error(vk.CreateSampler(d.VKDevice, &samplerInfo, nil, &sampler))
	if err != nil {
		return nil, err
	}
	return &Sampler{VKSampler: sampler}, nil
}

func (d *VulkanDevice) DestroySampler(s *Sampler) {
	vk.DestroySampler(d.VKDevice, s.VKSampler, nil)
}
