package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

// BeginCommandBuffer begins capturing work, oneTime marks a buffer that is
// submitted once and then freed
func (d *VulkanDevice) BeginCommandBuffer(cb *CommandBuffer, oneTime bool) error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if oneTime {
		beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	return vk.Error(vk.BeginCommandBuffer(cb.VKCommandBuffer, &beginInfo))
}

func (d *VulkanDevice) EndCommandBuffer(cb *CommandBuffer) error {
	return vk.Error(vk.EndCommandBuffer(cb.VKCommandBuffer))
}

func (d *VulkanDevice) ResetCommandBuffer(cb *CommandBuffer) error {
	return vk.Error(vk.ResetCommandBuffer(cb.VKCommandBuffer, 0))
}

// CmdBeginRenderPass begins rp on fb, clearing color attachments to opaque
// black and depth attachments to 1
func (d *VulkanDevice) CmdBeginRenderPass(cb *CommandBuffer, rp *RenderPass, fb *Framebuffer, extent vk.Extent2D) {
	clearValues := make([]vk.ClearValue, len(rp.Descriptor.Attachments))
	for i := range clearValues {
		if i == rp.Descriptor.Depth {
			clearValues[i] = vk.NewClearDepthStencil(1.0, 0)
		} else {
			clearValues[i] = vk.NewClearValue([]float32{0, 0, 0, 1})
		}
	}

	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.VKRenderPass,
		Framebuffer: fb.VKFramebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cb.VKCommandBuffer, &renderPassInfo, vk.SubpassContentsInline)
}

func (d *VulkanDevice) CmdEndRenderPass(cb *CommandBuffer) {
	vk.CmdEndRenderPass(cb.VKCommandBuffer)
}

func (d *VulkanDevice) CmdBindPipeline(cb *CommandBuffer, p *Pipeline) {
	vk.CmdBindPipeline(cb.VKCommandBuffer, vk.PipelineBindPointGraphics, p.VKPipeline)
}

func (d *VulkanDevice) CmdBindDescriptorSet(cb *CommandBuffer, p *Pipeline, set *DescriptorSet) {
	vk.CmdBindDescriptorSets(cb.VKCommandBuffer, vk.PipelineBindPointGraphics,
		p.VKPipelineLayout, 0, 1, []vk.DescriptorSet{set.VKDescriptorSet}, 0, nil)
}

// CmdSetViewportScissor sets the dynamic viewport and scissor to cover extent
func (d *VulkanDevice) CmdSetViewportScissor(cb *CommandBuffer, extent vk.Extent2D) {
	vk.CmdSetViewport(cb.VKCommandBuffer, 0, 1, []vk.Viewport{{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}})
	vk.CmdSetScissor(cb.VKCommandBuffer, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}})
}

func (d *VulkanDevice) CmdDrawIndexed(cb *CommandBuffer, indexCount uint32) {
	vk.CmdDrawIndexed(cb.VKCommandBuffer, indexCount, 1, 0, 0, 0)
}
