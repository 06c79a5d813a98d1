package vkrender

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// NoTimeout waits on a fence until it is signaled
const NoTimeout = time.Duration(math.MaxInt64)

// FrameStats counts what the scheduler has done since it was created
type FrameStats struct {
	Drawn       uint64
	Skipped     uint64
	Recreations uint64
}

// PipelineBuilder rebuilds the pipeline drawn with after the render pass has
// been recreated. It owns the old pipeline and releases it.
type PipelineBuilder func(renderPass *RenderPass) (*Pipeline, error)

// FrameScheduler drives one frame per call to DrawFrame: wait for the frame
// slot, acquire an image, record, submit and present. It keeps two counters,
// the frame slot which wraps at the number of frames in flight and the
// acquisition semaphore index which wraps at the number of presentable images.
type FrameScheduler struct {
	resources      *ResourceManager
	chain          *PresentationChain
	model          *ModelStorage
	pipeline       *Pipeline
	descriptorSets []*DescriptorSet
	uniforms       UniformSource
	rebuild        PipelineBuilder

	start          time.Time
	currentFrame   int
	semaphoreIndex int
	resized        bool
	stats          FrameStats
}

// NewFrameScheduler creates a scheduler drawing model with pipeline. sets holds
// one descriptor set per frame in flight. When uniforms is nil SpinningModel
// is used. resources must have been prepared for chain.
func NewFrameScheduler(resources *ResourceManager, chain *PresentationChain, model *ModelStorage,
	pipeline *Pipeline, sets []*DescriptorSet, uniforms UniformSource) (*FrameScheduler, error) {
	if len(sets) != resources.FramesInFlight() {
		return nil, errors.Errorf("%d descriptor sets for %d frames in flight", len(sets), resources.FramesInFlight())
	}
	if len(resources.CommandBuffers) != resources.FramesInFlight() || len(resources.InFlightFences) != resources.FramesInFlight() {
		return nil, errors.New("resources have not been prepared")
	}
	if uniforms == nil {
		uniforms = SpinningModel
	}
	return &FrameScheduler{
		resources:      resources,
		chain:          chain,
		model:          model,
		pipeline:       pipeline,
		descriptorSets: sets,
		uniforms:       uniforms,
		start:          time.Now(),
	}, nil
}

// CurrentFrame is the frame slot the next DrawFrame uses
func (s *FrameScheduler) CurrentFrame() int {
	return s.currentFrame
}

// SemaphoreIndex is the acquisition semaphore the next DrawFrame uses
func (s *FrameScheduler) SemaphoreIndex() int {
	return s.semaphoreIndex
}

func (s *FrameScheduler) Stats() FrameStats {
	return s.stats
}

// OnRenderPassChanged sets the builder called when a change of surface format
// recreates the render pass. Without one such a change fails the frame.
func (s *FrameScheduler) OnRenderPassChanged(build PipelineBuilder) {
	s.rebuild = build
}

// FramebufferResized marks the chain for recreation after the next present
func (s *FrameScheduler) FramebufferResized() {
	s.resized = true
}

// DrawFrame renders and presents one frame. A frame that cannot be drawn
// because the chain is out of date or the surface is minimized is skipped
// without error.
func (s *FrameScheduler) DrawFrame() error {
	r := s.resources
	device := r.device

	if s.chain.State() != ChainReady {
		if err := s.recreate(); err != nil {
			if errors.Is(err, ErrSurfaceMinimized) {
				s.stats.Skipped++
				return nil
			}
			return err
		}
	}

	fence := r.InFlightFences[s.currentFrame]
	if err := device.WaitForFence(fence, NoTimeout); err != nil {
		return errors.Wrap(err, "waiting for frame fence")
	}

	imageIndex, res := s.chain.Acquire(r.ImageAvailable[s.semaphoreIndex])
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		s.stats.Skipped++
		return s.recreateOrSkip()
	default:
		return errors.Wrap(vk.Error(res), "acquiring swapchain image")
	}

	cb := r.CommandBuffers[s.currentFrame]
	if err := device.ResetCommandBuffer(cb); err != nil {
		return errors.Wrap(err, "resetting command buffer")
	}
	if err := s.record(cb, imageIndex); err != nil {
		return err
	}

	ubo := s.uniforms(time.Since(s.start), s.chain.Extent)
	copy(r.UniformBuffers[s.currentFrame].Bytes(), ubo)

	// reset last so a failed recording leaves the slot's fence signaled
	if err := device.ResetFence(fence); err != nil {
		return errors.Wrap(err, "resetting frame fence")
	}
	err := device.QueueSubmit(r.graphicsQueue, Submission{
		CommandBuffer: cb,
		Wait:          r.ImageAvailable[s.semaphoreIndex],
		WaitStage:     vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		Signal:        r.RenderFinished[imageIndex],
		Fence:         fence,
	})
	if err != nil {
		return errors.Wrap(err, "submitting frame")
	}

	res = s.chain.Present(imageIndex, r.RenderFinished[imageIndex])
	s.stats.Drawn++

	s.semaphoreIndex = (s.semaphoreIndex + 1) % len(r.ImageAvailable)
	s.currentFrame = (s.currentFrame + 1) % r.FramesInFlight()

	switch {
	case res == vk.ErrorOutOfDate || res == vk.Suboptimal || s.resized:
		s.resized = false
		return s.recreateOrSkip()
	case res != vk.Success:
		return errors.Wrap(vk.Error(res), "presenting swapchain image")
	}
	return nil
}

func (s *FrameScheduler) recreateOrSkip() error {
	err := s.recreate()
	if errors.Is(err, ErrSurfaceMinimized) {
		return nil
	}
	return err
}

// recreate rebuilds the chain and everything sized by it. The acquisition
// semaphores are recreated as well, since one may have been left signaled by
// an acquisition whose frame was skipped.
func (s *FrameScheduler) recreate() error {
	r := s.resources
	s.stats.Recreations++

	if err := s.chain.Recreate(); err != nil {
		if errors.Is(err, ErrSurfaceMinimized) {
			Logger().Debug("surface minimized, skipping frame")
		}
		return err
	}
	renderPass := r.RenderPass
	if err := r.RebuildAttachments(s.chain); err != nil {
		return errors.Wrap(err, "rebuilding attachments")
	}
	if r.RenderPass != renderPass {
		if s.rebuild == nil {
			return errors.New("render pass recreated without a pipeline builder")
		}
		pipeline, err := s.rebuild(r.RenderPass)
		if err != nil {
			return errors.Wrap(err, "rebuilding pipeline")
		}
		s.pipeline = pipeline
	}
	if err := r.CreateSyncObjects(s.chain.ImageCount()); err != nil {
		return err
	}
	s.semaphoreIndex = 0

	Logger().WithFields(logrus.Fields{
		"width":  s.chain.Extent.Width,
		"height": s.chain.Extent.Height,
	}).Info("recreated presentation chain")
	return nil
}

func (s *FrameScheduler) record(cb *CommandBuffer, imageIndex uint32) error {
	r := s.resources
	device := r.device
	image := s.chain.Images[imageIndex]

	if err := device.BeginCommandBuffer(cb, false); err != nil {
		return errors.Wrap(err, "beginning frame command buffer")
	}

	// the previous contents are discarded, nothing has to be waited on
	err := r.Transition(cb, image, AllMips(image), vk.ImageLayoutUndefined, vk.ImageLayoutColorAttachmentOptimal, Optional[BarrierOverride]{})
	if err != nil {
		return err
	}

	device.CmdBeginRenderPass(cb, r.RenderPass, r.Framebuffers[imageIndex], s.chain.Extent)
	device.CmdBindPipeline(cb, s.pipeline)
	device.CmdBindVertexBuffer(cb, r.VertexBuffer)
	device.CmdBindIndexBuffer(cb, r.IndexBuffer)
	device.CmdBindDescriptorSet(cb, s.pipeline, s.descriptorSets[s.currentFrame])
	device.CmdSetViewportScissor(cb, s.chain.Extent)
	device.CmdDrawIndexed(cb, s.model.IndexCount())
	device.CmdEndRenderPass(cb)

	err = r.Transition(cb, image, AllMips(image), vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc, Optional[BarrierOverride]{})
	if err != nil {
		return err
	}

	return errors.Wrap(device.EndCommandBuffer(cb), "ending frame command buffer")
}

// Close waits for all submitted frames to finish
func (s *FrameScheduler) Close() error {
	Logger().WithFields(logrus.Fields{
		"drawn":       s.stats.Drawn,
		"skipped":     s.stats.Skipped,
		"recreations": s.stats.Recreations,
	}).Info("frame scheduler closing")
	return errors.Wrap(s.resources.device.WaitIdle(), "waiting for device idle")
}
