package vkrender

import (
	vk "github.com/vulkan-go/vulkan"
)

type BufferObject interface {
	Bytes() []byte
}

type IndexSource interface {
	BufferObject
	IndexType() vk.IndexType
	Count() uint32
}

type VertexSource interface {
	BufferObject
	BindingDescription() vk.VertexInputBindingDescription
	AttributeDescriptions() []vk.VertexInputAttributeDescription
}
