package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// CreateRenderPass creates a single subpass render pass from desc
func (d *VulkanDevice) CreateRenderPass(desc RenderPassDescriptor) (*RenderPass, error) {
	attachments := make([]vk.AttachmentDescription, len(desc.Attachments))
	for i, a := range desc.Attachments {
		attachments[i] = vk.AttachmentDescription{
			Format:         a.Format,
			Samples:        a.Samples,
			LoadOp:         a.LoadOp,
			StoreOp:        a.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  a.InitialLayout,
			FinalLayout:    a.FinalLayout,
		}
	}

	colorRef := vk.AttachmentReference{
		Attachment: uint32(desc.Color),
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}
	depthRef := vk.AttachmentReference{
		Attachment: uint32(desc.Depth),
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colorRef},
		PDepthStencilAttachment: &depthRef,
	}
	if desc.Resolve >= 0 {
		subpass.PResolveAttachments = []vk.AttachmentReference{{
			Attachment: uint32(desc.Resolve),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(d.VKDevice, &createInfo, nil, &renderPass))
	if err != nil {
		return nil, err
	}
	return &RenderPass{VKRenderPass: renderPass, Descriptor: desc}, nil
}

func (d *VulkanDevice) DestroyRenderPass(rp *RenderPass) {
	vk.DestroyRenderPass(d.VKDevice, rp.VKRenderPass, nil)
}

// CreateFramebuffer creates a framebuffer for rp, views are given in
// attachment order
func (d *VulkanDevice) CreateFramebuffer(rp *RenderPass, views []*ImageView, extent vk.Extent2D) (*Framebuffer, error) {
	attachments := make([]vk.ImageView, len(views))
	for i, v := range views {
		attachments[i] = v.VKImageView
	}

	fbCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.VKRenderPass,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		Width:           extent.Width,
		Height:          extent.Height,
		Layers:          1,
	}

	var framebuffer vk.Framebuffer
	err := vk.Error(vk.CreateFramebuffer(d.VKDevice, &fbCreateInfo, nil, &framebuffer))
	if err != nil {
		return nil, err
	}
	return &Framebuffer{VKFramebuffer: framebuffer, Extent: extent}, nil
}

func (d *VulkanDevice) DestroyFramebuffer(fb *Framebuffer) {
	vk.DestroyFramebuffer(d.VKDevice, fb.VKFramebuffer, nil)
}
