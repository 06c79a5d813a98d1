package vkrender

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// StageAccess is the source and destination half of a pipeline barrier
type StageAccess struct {
	SrcStage  vk.PipelineStageFlags
	SrcAccess vk.AccessFlags
	DstStage  vk.PipelineStageFlags
	DstAccess vk.AccessFlags
}

// BarrierOverride replaces individual fields of a deduced barrier. A
// transition that is not in the table must set all four.
type BarrierOverride struct {
	SrcStage  Optional[vk.PipelineStageFlags]
	SrcAccess Optional[vk.AccessFlags]
	DstStage  Optional[vk.PipelineStageFlags]
	DstAccess Optional[vk.AccessFlags]
}

// Complete reports whether every field is overridden
func (o BarrierOverride) Complete() bool {
	return o.SrcStage.HasValue() && o.SrcAccess.HasValue() && o.DstStage.HasValue() && o.DstAccess.HasValue()
}

func (o BarrierOverride) apply(sa StageAccess) StageAccess {
	return StageAccess{
		SrcStage:  o.SrcStage.Or(sa.SrcStage),
		SrcAccess: o.SrcAccess.Or(sa.SrcAccess),
		DstStage:  o.DstStage.Or(sa.DstStage),
		DstAccess: o.DstAccess.Or(sa.DstAccess),
	}
}

// FullOverride builds an override that sets every field
func FullOverride(sa StageAccess) BarrierOverride {
	return BarrierOverride{
		SrcStage:  Some(sa.SrcStage),
		SrcAccess: Some(sa.SrcAccess),
		DstStage:  Some(sa.DstStage),
		DstAccess: Some(sa.DstAccess),
	}
}

// MipRange is a range of mip levels of an image
type MipRange struct {
	Base  uint32
	Count uint32
}

// AllMips covers every mip level of img
func AllMips(img *Image) MipRange {
	return MipRange{Base: 0, Count: img.MipLevels}
}

// Mip covers a single mip level
func Mip(level uint32) MipRange {
	return MipRange{Base: level, Count: 1}
}

// Barrier is a fully resolved image memory barrier
type Barrier struct {
	Image     *Image
	Aspect    vk.ImageAspectFlags
	Mips      MipRange
	OldLayout vk.ImageLayout
	NewLayout vk.ImageLayout
	StageAccess
}

type layoutPair struct {
	old, new vk.ImageLayout
}

func stage(s vk.PipelineStageFlagBits) vk.PipelineStageFlags { return vk.PipelineStageFlags(s) }
func access(a vk.AccessFlagBits) vk.AccessFlags              { return vk.AccessFlags(a) }

var transitionTable = map[layoutPair]StageAccess{
	{vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal}: {
		SrcStage:  stage(vk.PipelineStageTopOfPipeBit),
		DstStage:  stage(vk.PipelineStageTransferBit),
		DstAccess: access(vk.AccessTransferWriteBit),
	},
	{vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal}: {
		SrcStage:  stage(vk.PipelineStageTransferBit),
		SrcAccess: access(vk.AccessTransferWriteBit),
		DstStage:  stage(vk.PipelineStageFragmentShaderBit),
		DstAccess: access(vk.AccessShaderReadBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal}: {
		SrcStage:  stage(vk.PipelineStageTopOfPipeBit),
		DstStage:  stage(vk.PipelineStageColorAttachmentOutputBit),
		DstAccess: access(vk.AccessColorAttachmentWriteBit),
	},
	{vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc}: {
		SrcStage:  stage(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccess: access(vk.AccessColorAttachmentWriteBit),
		DstStage:  stage(vk.PipelineStageBottomOfPipeBit),
	},
	{vk.ImageLayoutUndefined, vk.ImageLayoutDepthStencilAttachmentOptimal}: {
		SrcStage:  stage(vk.PipelineStageTopOfPipeBit),
		DstStage:  stage(vk.PipelineStageEarlyFragmentTestsBit),
		DstAccess: access(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
	},
}

// DeduceBarrier looks up the stages and access masks for a layout transition
func DeduceBarrier(oldLayout, newLayout vk.ImageLayout) (StageAccess, bool) {
	sa, ok := transitionTable[layoutPair{oldLayout, newLayout}]
	return sa, ok
}

// ResolveBarrier combines the table entry for a transition with an override.
// Transitions missing from the table are only allowed with a complete override.
func ResolveBarrier(oldLayout, newLayout vk.ImageLayout, override Optional[BarrierOverride]) (StageAccess, error) {
	sa, ok := DeduceBarrier(oldLayout, newLayout)
	if !ok {
		if !override.HasValue() || !override.Get().Complete() {
			return StageAccess{}, errors.Wrapf(ErrUnsupportedTransition, "%d -> %d", oldLayout, newLayout)
		}
	}
	if override.HasValue() {
		sa = override.Get().apply(sa)
	}
	return sa, nil
}

// HasStencil reports whether a depth format carries a stencil component
func HasStencil(format vk.Format) bool {
	switch format {
	case vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16UnormS8Uint, vk.FormatS8Uint:
		return true
	}
	return false
}

func isDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD16Unorm, vk.FormatD16UnormS8Uint, vk.FormatX8D24UnormPack32:
		return true
	}
	return false
}

// AspectFor returns the aspect mask used to address an image of the given
// format in the given layout
func AspectFor(format vk.Format, layout vk.ImageLayout) vk.ImageAspectFlags {
	if layout == vk.ImageLayoutDepthStencilAttachmentOptimal || isDepthFormat(format) {
		aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if HasStencil(format) {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
		return aspect
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// Transition records a layout transition of the given mip levels of img into
// cb. oldLayout must match the layout tracked for every level in the range
// unless it is undefined, which discards the contents.
func (r *ResourceManager) Transition(cb *CommandBuffer, img *Image, mips MipRange, oldLayout, newLayout vk.ImageLayout, override Optional[BarrierOverride]) error {
	if mips.Count == 0 || mips.Base+mips.Count > img.MipLevels {
		return errors.Errorf("mip range %d+%d out of bounds for %d levels", mips.Base, mips.Count, img.MipLevels)
	}

	sa, err := ResolveBarrier(oldLayout, newLayout, override)
	if err != nil {
		return err
	}

	if oldLayout != vk.ImageLayoutUndefined {
		for level := mips.Base; level < mips.Base+mips.Count; level++ {
			if tracked := img.layouts[level]; tracked != oldLayout {
				return errors.Wrapf(ErrLayoutMismatch, "mip %d is in layout %d, not %d", level, tracked, oldLayout)
			}
		}
	}

	r.device.CmdPipelineBarrier(cb, Barrier{
		Image:       img,
		Aspect:      AspectFor(img.Format, newLayout),
		Mips:        mips,
		OldLayout:   oldLayout,
		NewLayout:   newLayout,
		StageAccess: sa,
	})

	for level := mips.Base; level < mips.Base+mips.Count; level++ {
		img.layouts[level] = newLayout
	}
	return nil
}
