package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

func (d *VulkanDevice) CreateImage(desc ImageDescriptor) (*Image, MemoryRequirements, error) {
	sharing, families := d.sharing()
	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    desc.Format,
		Extent: vk.Extent3D{
			Width:  desc.Extent.Width,
			Height: desc.Extent.Height,
			Depth:  1,
		},
		MipLevels:             max(desc.MipLevels, 1),
		ArrayLayers:           1,
		Samples:               desc.Samples,
		Tiling:                desc.Tiling,
		Usage:                 desc.Usage,
		SharingMode:           sharing,
		QueueFamilyIndexCount: uint32(len(families)),
		PQueueFamilyIndices:   families,
		InitialLayout:         vk.ImageLayoutUndefined,
	}
	if imageInfo.Samples == 0 {
		imageInfo.Samples = vk.SampleCount1Bit
	}

	var image vk.Image
	if res := vk.CreateImage(d.VKDevice, &imageInfo, nil, &image); res != vk.Success {
		return nil, MemoryRequirements{}, allocationError(res)
	}

	var mr vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.VKDevice, image, &mr)
	mr.Deref()

	desc.Samples = imageInfo.Samples
	return newImage(image, desc), memoryRequirements(mr), nil
}

func (d *VulkanDevice) DestroyImage(i *Image) {
	vk.DestroyImage(d.VKDevice, i.VKImage, nil)
}

func (d *VulkanDevice) BindImageMemory(i *Image, memory *DeviceMemory, offset uint64) error {
	return vk.Error(vk.BindImageMemory(d.VKDevice, i.VKImage, memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

func (d *VulkanDevice) CmdPipelineBarrier(cb *CommandBuffer, b Barrier) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       b.SrcAccess,
		DstAccessMask:       b.DstAccess,
		OldLayout:           b.OldLayout,
		NewLayout:           b.NewLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               b.Image.VKImage,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     b.Aspect,
			BaseMipLevel:   b.Mips.Base,
			LevelCount:     b.Mips.Count,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	vk.CmdPipelineBarrier(cb.VKCommandBuffer, b.SrcStage, b.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func (d *VulkanDevice) CmdCopyBufferToImage(cb *CommandBuffer, src *Buffer, dst *Image, extent vk.Extent2D) {
	vk.CmdCopyBufferToImage(cb.VKCommandBuffer, src.VKBuffer, dst.VKImage, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
	}})
}

// CmdBlitImage blits one mip level of i into another with linear filtering.
// The source level must be in the transfer source layout and the destination
// level in the transfer destination layout.
func (d *VulkanDevice) CmdBlitImage(cb *CommandBuffer, i *Image, srcLevel uint32, srcExtent vk.Extent2D, dstLevel uint32, dstExtent vk.Extent2D) {
	layers := func(level uint32) vk.ImageSubresourceLayers {
		return vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       level,
			BaseArrayLayer: 0,
			LayerCount:     1,
		}
	}
	corner := func(e vk.Extent2D) vk.Offset3D {
		return vk.Offset3D{X: int32(e.Width), Y: int32(e.Height), Z: 1}
	}

	vk.CmdBlitImage(cb.VKCommandBuffer,
		i.VKImage, vk.ImageLayoutTransferSrcOptimal,
		i.VKImage, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{{
			SrcSubresource: layers(srcLevel),
			SrcOffsets:     [2]vk.Offset3D{{}, corner(srcExtent)},
			DstSubresource: layers(dstLevel),
			DstOffsets:     [2]vk.Offset3D{{}, corner(dstExtent)},
		}},
		vk.FilterLinear)
}
