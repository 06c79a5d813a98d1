package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// CreateGraphicsPipeline creates the pipeline described by cfg, along with
// its layout, for subpass 0 of rp
func (d *VulkanDevice) CreateGraphicsPipeline(cfg *GraphicsPipelineConfig, rp *RenderPass) (*Pipeline, error) {
	layout, err := d.CreatePipelineLayout(cfg.DescriptorSetLayouts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating pipeline layout")
	}

	createInfo, err := cfg.VKGraphicsPipelineCreateInfo(layout, rp)
	if err != nil {
		vk.DestroyPipelineLayout(d.VKDevice, layout, nil)
		return nil, err
	}

	pipelines := make([]vk.Pipeline, 1)
	err = vk.Error(vk.CreateGraphicsPipelines(d.VKDevice, vk.PipelineCache(vk.NullHandle), 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines))
	if err != nil {
		vk.DestroyPipelineLayout(d.VKDevice, layout, nil)
		return nil, errors.Wrap(err, "creating graphics pipeline")
	}

	return &Pipeline{VKPipeline: pipelines[0], VKPipelineLayout: layout}, nil
}

// DestroyPipeline destroys p and its layout
func (d *VulkanDevice) DestroyPipeline(p *Pipeline) {
	vk.DestroyPipeline(d.VKDevice, p.VKPipeline, nil)
	vk.DestroyPipelineLayout(d.VKDevice, p.VKPipelineLayout, nil)
}
