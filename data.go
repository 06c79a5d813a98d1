package vkrender

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// Vertex is a single vertex of a textured mesh
type Vertex struct {
	Pos      lin.Vec3
	Color    lin.Vec3
	TexCoord lin.Vec2
}

type VertexSlice []Vertex

func (v VertexSlice) Bytes() []byte {
	if len(v) == 0 {
		return nil
	}
	return ToBytes(unsafe.Pointer(&v[0]), len(v)*int(unsafe.Sizeof(Vertex{})))
}

func (v VertexSlice) BindingDescription() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vk.VertexInputRateVertex,
	}
}

func (v VertexSlice) AttributeDescriptions() []vk.VertexInputAttributeDescription {
	attr := make([]vk.VertexInputAttributeDescription, 3)

	attr[0].Binding = 0
	attr[0].Location = 0
	attr[0].Format = vk.FormatR32g32b32Sfloat
	attr[0].Offset = uint32(unsafe.Offsetof(Vertex{}.Pos))

	attr[1].Binding = 0
	attr[1].Location = 1
	attr[1].Format = vk.FormatR32g32b32Sfloat
	attr[1].Offset = uint32(unsafe.Offsetof(Vertex{}.Color))

	attr[2].Binding = 0
	attr[2].Location = 2
	attr[2].Format = vk.FormatR32g32Sfloat
	attr[2].Offset = uint32(unsafe.Offsetof(Vertex{}.TexCoord))

	return attr
}

type IndexSliceUint32 []uint32

func (i IndexSliceUint32) Bytes() []byte {
	if len(i) == 0 {
		return nil
	}
	size := len(i) * int(unsafe.Sizeof(uint32(1)))
	return ToBytes(unsafe.Pointer(&i[0]), size)
}

func (i IndexSliceUint32) IndexType() vk.IndexType {
	return vk.IndexTypeUint32
}

func (i IndexSliceUint32) Count() uint32 {
	return uint32(len(i))
}
