package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

var (
	// ErrOutOfDeviceMemory is returned when the device reports it has no memory left for a request.
	ErrOutOfDeviceMemory = errors.New("out of device memory")
	// ErrAllocationFailed is returned for any other failed device allocation.
	ErrAllocationFailed = errors.New("device allocation failed")
	// ErrMemoryTypeNotFound is returned when no memory type satisfies a request's type bits and intent.
	ErrMemoryTypeNotFound = errors.New("no matching memory type found")

	ErrUnsupportedTransition = errors.New("unsupported image layout transition")
	ErrLayoutMismatch        = errors.New("image layout does not match tracked layout")
	ErrUnsupportedBlit       = errors.New("format does not support linear blits")
	ErrFormatNotFound        = errors.New("no supported format found")
	ErrTextureLoad           = errors.New("unable to load texture")

	// ErrSurfaceMinimized is returned when the surface has a zero sized extent and no chain can be built.
	ErrSurfaceMinimized = errors.New("surface is minimized")
	ErrChainRetired     = errors.New("presentation chain has been retired")

	// ErrInvalidFrameCount is returned when frames in flight is zero or exceeds the presentable image count.
	ErrInvalidFrameCount = errors.New("invalid frames in flight")
)

// allocationError maps a native allocation result onto the allocator errors
func allocationError(res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfHostMemory:
		return errors.Wrap(ErrOutOfDeviceMemory, vk.Error(res).Error())
	default:
		return errors.Wrap(ErrAllocationFailed, vk.Error(res).Error())
	}
}
