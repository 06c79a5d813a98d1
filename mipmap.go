package vkrender

import (
	"math/bits"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// MipLevels returns the number of levels in a full mip chain for an image of
// the given size, floor(log2(max(width, height))) + 1
func MipLevels(width, height uint32) uint32 {
	m := width
	if height > m {
		m = height
	}
	if m == 0 {
		return 1
	}
	return uint32(bits.Len32(m))
}

// MipExtent returns the size of the given level of a mip chain, never smaller than 1x1
func MipExtent(extent vk.Extent2D, level uint32) vk.Extent2D {
	w := extent.Width >> level
	h := extent.Height >> level
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return vk.Extent2D{Width: w, Height: h}
}

var (
	dstToSrc = FullOverride(StageAccess{
		SrcStage:  stage(vk.PipelineStageTransferBit),
		SrcAccess: access(vk.AccessTransferWriteBit),
		DstStage:  stage(vk.PipelineStageTransferBit),
		DstAccess: access(vk.AccessTransferReadBit),
	})
	srcToShaderRead = FullOverride(StageAccess{
		SrcStage:  stage(vk.PipelineStageTransferBit),
		SrcAccess: access(vk.AccessTransferReadBit),
		DstStage:  stage(vk.PipelineStageFragmentShaderBit),
		DstAccess: access(vk.AccessShaderReadBit),
	})
)

// GenerateMipmaps fills levels 1..n-1 of img by repeatedly blitting each level
// into the next at half size. Every level must be in the transfer destination
// layout with level 0 holding the image data, all levels finish in the shader
// read only layout.
func (r *ResourceManager) GenerateMipmaps(cb *CommandBuffer, img *Image) error {
	features := r.device.FormatFeatures(img.Format)
	if features.Optimal&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return errors.Wrapf(ErrUnsupportedBlit, "format %d", img.Format)
	}

	for level := uint32(1); level < img.MipLevels; level++ {
		err := r.Transition(cb, img, Mip(level-1), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, Some(dstToSrc))
		if err != nil {
			return err
		}
		r.device.CmdBlitImage(cb, img, level-1, MipExtent(img.Extent, level-1), level, MipExtent(img.Extent, level))
	}

	last := img.MipLevels - 1
	err := r.Transition(cb, img, Mip(last), vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, Some(dstToSrc))
	if err != nil {
		return err
	}

	return r.Transition(cb, img, AllMips(img), vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, Some(srcToShaderRead))
}
