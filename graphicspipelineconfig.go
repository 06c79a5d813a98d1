package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// GraphicsPipelineConfig is a utility object to ease construction of graphics pipelines
type GraphicsPipelineConfig struct {
	ShaderStages         []vk.PipelineShaderStageCreateInfo
	DescriptorSetLayouts []*DescriptorSetLayout

	// PrimitiveTopology defaults to VK_PRIMITIVE_TOPOLOGY_TRIANGLE_LIST
	PrimitiveTopology vk.PrimitiveTopology

	// PolygonMode defaults to VK_POLYGON_MODE_FILL
	PolygonMode vk.PolygonMode

	// LineWidth of rasterized lines, defaults to 1.0
	LineWidth float32

	// CullMode defaults to vk.CullModeBackBit
	CullMode vk.CullModeFlagBits

	// FrontFace defaults to vk.FrontFaceCounterClockwise, the projection
	// used by SpinningModel flips Y
	FrontFace vk.FrontFace

	// DynamicState defaults to viewport and scissor, which the frame sets
	// from the current extent so the pipeline survives a resize
	DynamicState []vk.DynamicState

	// Samples must match the render pass attachments
	Samples vk.SampleCountFlagBits

	DepthTestEnable  bool
	DepthWriteEnable bool

	VertexInputBindingDescriptions   []vk.VertexInputBindingDescription
	VertexInputAttributeDescriptions []vk.VertexInputAttributeDescription
}

// NewGraphicsPipelineConfig creates a config with the defaults used by the renderer
func NewGraphicsPipelineConfig() *GraphicsPipelineConfig {
	return &GraphicsPipelineConfig{
		PrimitiveTopology: vk.PrimitiveTopologyTriangleList,
		PolygonMode:       vk.PolygonModeFill,
		LineWidth:         1.0,
		CullMode:          vk.CullModeBackBit,
		FrontFace:         vk.FrontFaceCounterClockwise,
		DynamicState:      []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor},
		Samples:           vk.SampleCount1Bit,
		DepthTestEnable:   true,
		DepthWriteEnable:  true,
	}
}

// AddShaderStage adds a shader stage using the "main" entry point
func (g *GraphicsPipelineConfig) AddShaderStage(shader *ShaderModule, stage vk.ShaderStageFlagBits) *GraphicsPipelineConfig {
	g.ShaderStages = append(g.ShaderStages, shader.StageInfo(stage, "main"))
	return g
}

// AddVertexSource adds the binding and attributes of v
func (g *GraphicsPipelineConfig) AddVertexSource(v VertexSource) *GraphicsPipelineConfig {
	g.VertexInputBindingDescriptions = append(g.VertexInputBindingDescriptions, v.BindingDescription())
	g.VertexInputAttributeDescriptions = append(g.VertexInputAttributeDescriptions, v.AttributeDescriptions()...)
	return g
}

// AddDescriptorSetLayout adds a specific DescriptorSetLayout
func (g *GraphicsPipelineConfig) AddDescriptorSetLayout(l *DescriptorSetLayout) *GraphicsPipelineConfig {
	g.DescriptorSetLayouts = append(g.DescriptorSetLayouts, l)
	return g
}

// ForResources matches the sample count to the render pass created by r
func (g *GraphicsPipelineConfig) ForResources(r *ResourceManager) *GraphicsPipelineConfig {
	if r.Samples != 0 {
		g.Samples = r.Samples
	}
	return g
}

func bool32(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

// VKGraphicsPipelineCreateInfo builds the create info for a pipeline with
// layout used in subpass 0 of rp
func (g *GraphicsPipelineConfig) VKGraphicsPipelineCreateInfo(layout vk.PipelineLayout, rp *RenderPass) (vk.GraphicsPipelineCreateInfo, error) {
	if len(g.ShaderStages) == 0 {
		return vk.GraphicsPipelineCreateInfo{}, errors.New("pipeline has no shader stages")
	}
	if len(g.VertexInputBindingDescriptions) == 0 {
		return vk.GraphicsPipelineCreateInfo{}, errors.New("pipeline has no vertex input")
	}

	vertexInputState := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(g.VertexInputBindingDescriptions)),
		PVertexBindingDescriptions:      g.VertexInputBindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(g.VertexInputAttributeDescriptions)),
		PVertexAttributeDescriptions:    g.VertexInputAttributeDescriptions,
	}

	inputAssemblyState := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               g.PrimitiveTopology,
		PrimitiveRestartEnable: vk.False,
	}

	// viewport and scissor are dynamic, only the counts matter
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterState := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             g.PolygonMode,
		LineWidth:               g.LineWidth,
		CullMode:                vk.CullModeFlags(g.CullMode),
		FrontFace:               g.FrontFace,
		DepthBiasEnable:         vk.False,
	}

	multisampleState := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: g.Samples,
	}

	blendAttachments := []vk.PipelineColorBlendAttachmentState{{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:    vk.False,
	}}
	colorBlendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		PDynamicStates:    g.DynamicState,
		DynamicStateCount: uint32(len(g.DynamicState)),
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       bool32(g.DepthTestEnable),
		DepthWriteEnable:      bool32(g.DepthWriteEnable),
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		MinDepthBounds:        0.0,
		MaxDepthBounds:        1.0,
		StencilTestEnable:     vk.False,
	}

	return vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(g.ShaderStages)),
		PStages:             g.ShaderStages,
		PVertexInputState:   &vertexInputState,
		PInputAssemblyState: &inputAssemblyState,
		PDepthStencilState:  &depthStencil,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterState,
		PMultisampleState:   &multisampleState,
		PColorBlendState:    &colorBlendState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          rp.VKRenderPass,
		Subpass:             0,
	}, nil
}
