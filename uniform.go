package vkrender

import (
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
	lin "github.com/xlab/linmath"
)

// UniformBufferObject holds the transforms written to a frame's uniform buffer
type UniformBufferObject struct {
	Model lin.Mat4x4
	View  lin.Mat4x4
	Proj  lin.Mat4x4
}

// UniformBufferSize is the size in bytes of a UniformBufferObject
const UniformBufferSize = uint64(unsafe.Sizeof(UniformBufferObject{}))

func (u *UniformBufferObject) Bytes() []byte {
	return ToBytes(unsafe.Pointer(u), int(UniformBufferSize))
}

// UniformSource computes the uniform data for a frame given the time since the
// scheduler started and the current extent
type UniformSource func(elapsed time.Duration, extent vk.Extent2D) []byte

// SpinningModel rotates the model about Z at 90 degrees a second, looking at
// the origin from (2, 2, 2)
func SpinningModel(elapsed time.Duration, extent vk.Extent2D) []byte {
	var ubo UniformBufferObject

	var identity lin.Mat4x4
	identity.Identity()
	ubo.Model.Rotate(&identity, 0, 0, 1, float32(elapsed.Seconds())*lin.DegreesToRadians(90))

	ubo.View.LookAt(&lin.Vec3{2, 2, 2}, &lin.Vec3{0, 0, 0}, &lin.Vec3{0, 0, 1})

	ratio := float32(1)
	if extent.Height != 0 {
		ratio = float32(extent.Width) / float32(extent.Height)
	}
	ubo.Proj.Perspective(lin.DegreesToRadians(45), ratio, 0.1, 10.0)
	// flip Y, clip space Y points down
	ubo.Proj[1][1] *= -1

	return ubo.Bytes()
}
