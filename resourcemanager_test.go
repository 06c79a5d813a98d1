package vkrender

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestNewResourceManagerValidation(t *testing.T) {
	d := newFakeDevice()
	if _, err := newTestResources(d, 0); !errors.Is(err, ErrInvalidFrameCount) {
		t.Errorf("expected ErrInvalidFrameCount, got %v", err)
	}
	if _, err := NewResourceManager(d, Queues{}, testOptions(2)); err == nil {
		t.Error("expected missing graphics queue to fail")
	}
}

func TestNewResourceManagerTransferQueue(t *testing.T) {
	d := newFakeDevice()
	transfer := &Queue{Family: 2}
	r, err := NewResourceManager(d, Queues{Graphics: testQueue, Transfer: transfer}, testOptions(2))
	if err != nil {
		t.Fatal(err)
	}
	if r.TransferQueue() != transfer {
		t.Error("expected the dedicated transfer queue")
	}
	if d.live["pool"] != 2 {
		t.Errorf("expected a command pool per family, got %d", d.live["pool"])
	}

	b, err := r.CreateBuffer(16, vk.BufferUsageFlags(vk.BufferUsageTransferDstBit), MemoryDeviceLocal)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.CopyViaStaging([]byte("0123456789abcdef"), b); err != nil {
		t.Fatal(err)
	}
	last := d.submissions[len(d.submissions)-1]
	if last.CommandBuffer.Pool.QueueFamily != transfer.Family {
		t.Errorf("expected the upload on the transfer family, got %d", last.CommandBuffer.Pool.QueueFamily)
	}

	r.DestroyBuffer(b)
	r.Destroy()
	if leaks := d.leaks(); len(leaks) != 0 {
		t.Errorf("leaked objects: %v", leaks)
	}
}

func TestCopyViaStagingIdempotent(t *testing.T) {
	d := newFakeDevice()
	r, err := newTestResources(d, 2)
	if err != nil {
		t.Fatal(err)
	}

	payload := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef, 0x01}, 100)
	dst, err := r.CreateBuffer(uint64(len(payload)), vk.BufferUsageFlags(vk.BufferUsageTransferDstBit|vk.BufferUsageVertexBufferBit), MemoryDeviceLocal)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.CopyViaStaging(payload, dst); err != nil {
		t.Fatal(err)
	}
	first := append([]byte(nil), d.bufferBytes(dst)...)
	if !bytes.Equal(first, payload) {
		t.Fatal("destination does not hold the payload")
	}

	if err := r.CopyViaStaging(payload, dst); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d.bufferBytes(dst), first) {
		t.Error("second upload of the same payload changed the destination")
	}

	// staging buffers are released once the copy completes
	if d.live["buffer"] != 1 {
		t.Errorf("expected only the destination buffer alive, got %d", d.live["buffer"])
	}
	if d.live["commandbuffer"] != 0 {
		t.Errorf("expected one time command buffers freed, got %d", d.live["commandbuffer"])
	}

	if err := r.CopyViaStaging(append(payload, 0), dst); err == nil {
		t.Error("expected an oversized payload to fail")
	}
}

func TestFindDepthFormat(t *testing.T) {
	depthAttachment := FormatFeatures{Optimal: vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)}

	tests := []struct {
		name     string
		features map[vk.Format]FormatFeatures
		want     vk.Format
		err      error
	}{
		{"first candidate", map[vk.Format]FormatFeatures{vk.FormatD32Sfloat: depthAttachment, vk.FormatD24UnormS8Uint: depthAttachment}, vk.FormatD32Sfloat, nil},
		{"later candidate", map[vk.Format]FormatFeatures{vk.FormatD24UnormS8Uint: depthAttachment}, vk.FormatD24UnormS8Uint, nil},
		{"linear only", map[vk.Format]FormatFeatures{vk.FormatD32Sfloat: {Linear: depthAttachment.Optimal}}, vk.FormatUndefined, ErrFormatNotFound},
		{"not a candidate", map[vk.Format]FormatFeatures{vk.FormatD16Unorm: depthAttachment}, vk.FormatUndefined, ErrFormatNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDevice()
			d.features = tt.features
			r, err := newTestResources(d, 2)
			if err != nil {
				t.Fatal(err)
			}
			got, err := r.FindDepthFormat()
			if tt.err != nil {
				if !errors.Is(err, tt.err) {
					t.Fatalf("expected %v, got %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected format %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFindSupportedFormatLinear(t *testing.T) {
	d := newFakeDevice()
	blit := vk.FormatFeatureFlags(vk.FormatFeatureBlitSrcBit)
	d.features = map[vk.Format]FormatFeatures{
		vk.FormatR8g8b8a8Unorm: {Optimal: blit},
		vk.FormatB8g8r8a8Unorm: {Linear: blit},
	}
	r, err := newTestResources(d, 2)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.FindSupportedFormat([]vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatB8g8r8a8Unorm}, vk.ImageTilingLinear, blit)
	if err != nil {
		t.Fatal(err)
	}
	if got != vk.FormatB8g8r8a8Unorm {
		t.Errorf("expected the linearly tiled format, got %d", got)
	}
}

func prepareTestResources(t *testing.T, d *fakeDevice, framesInFlight int) (*ResourceManager, *PresentationChain) {
	t.Helper()
	s := newFakeSurface(d, 64, 48)
	chain := NewPresentationChain(d, s, ChainOptions{})
	if err := chain.Create(); err != nil {
		t.Fatal(err)
	}
	r, err := newTestResources(d, framesInFlight)
	if err != nil {
		t.Fatal(err)
	}
	return r, chain
}

func TestPrepare(t *testing.T) {
	d := newFakeDevice()
	r, chain := prepareTestResources(t, d, 2)
	model := quadModel()

	if err := r.Prepare(chain, model); err != nil {
		t.Fatal(err)
	}

	m := chain.ImageCount()
	if len(r.ImageAvailable) != m || len(r.RenderFinished) != m {
		t.Errorf("expected %d semaphores of each kind, got %d and %d", m, len(r.ImageAvailable), len(r.RenderFinished))
	}
	if len(r.InFlightFences) != 2 || len(r.CommandBuffers) != 2 || len(r.UniformBuffers) != 2 {
		t.Errorf("expected per frame objects for 2 frames, got %d fences %d command buffers %d uniform buffers",
			len(r.InFlightFences), len(r.CommandBuffers), len(r.UniformBuffers))
	}
	for i, f := range r.InFlightFences {
		if !d.fences[f] {
			t.Errorf("fence %d was not created signaled", i)
		}
	}
	if len(r.Framebuffers) != m {
		t.Errorf("expected %d framebuffers, got %d", m, len(r.Framebuffers))
	}

	if r.Samples != vk.SampleCount4Bit {
		t.Errorf("expected 4 samples, got %d", r.Samples)
	}
	desc := r.RenderPass.Descriptor
	if len(desc.Attachments) != 3 || desc.Resolve != 2 {
		t.Fatalf("expected color, depth and resolve attachments, got %+v", desc)
	}
	resolve := desc.Attachments[desc.Resolve]
	if resolve.InitialLayout != vk.ImageLayoutColorAttachmentOptimal || resolve.FinalLayout != vk.ImageLayoutColorAttachmentOptimal {
		t.Errorf("unexpected presentable attachment layouts %d -> %d", resolve.InitialLayout, resolve.FinalLayout)
	}
	if r.DepthImage.Layout(0) != vk.ImageLayoutDepthStencilAttachmentOptimal {
		t.Errorf("expected depth target in the attachment layout, got %d", r.DepthImage.Layout(0))
	}
	if r.ColorImage == nil || r.ColorImage.Samples != vk.SampleCount4Bit {
		t.Error("expected a multisampled color target")
	}

	if !bytes.Equal(d.bufferBytes(r.VertexBuffer), model.Vertices.Bytes()) {
		t.Error("vertex buffer does not hold the model's vertices")
	}
	if !bytes.Equal(d.bufferBytes(r.IndexBuffer), model.Indices.Bytes()) {
		t.Error("index buffer does not hold the model's indices")
	}
	for i, b := range r.UniformBuffers {
		if b.Size != UniformBufferSize || len(b.Bytes()) != int(UniformBufferSize) {
			t.Errorf("uniform buffer %d is not mapped at %d bytes", i, UniformBufferSize)
		}
	}

	r.Destroy()
	chain.Destroy()
	if leaks := d.leaks(); len(leaks) != 0 {
		t.Errorf("leaked objects: %v", leaks)
	}
}

func TestPrepareWithoutMultisampling(t *testing.T) {
	d := newFakeDevice()
	d.limits.ColorSampleCounts = vk.SampleCountFlags(vk.SampleCount1Bit)
	r, chain := prepareTestResources(t, d, 2)

	if err := r.Prepare(chain, quadModel()); err != nil {
		t.Fatal(err)
	}
	if r.Samples != vk.SampleCount1Bit {
		t.Errorf("expected 1 sample, got %d", r.Samples)
	}
	if r.RenderPass.Descriptor.Resolve != -1 || len(r.RenderPass.Descriptor.Attachments) != 2 {
		t.Errorf("expected color and depth attachments only, got %+v", r.RenderPass.Descriptor)
	}
	if r.ColorImage != nil {
		t.Error("expected no separate color target")
	}
}

func TestPrepareTooManyFrames(t *testing.T) {
	d := newFakeDevice()
	r, chain := prepareTestResources(t, d, 4)
	if chain.ImageCount() >= 4 {
		t.Fatalf("expected fewer than 4 images, got %d", chain.ImageCount())
	}
	if err := r.Prepare(chain, quadModel()); !errors.Is(err, ErrInvalidFrameCount) {
		t.Errorf("expected ErrInvalidFrameCount, got %v", err)
	}
	if err := r.CreateSyncObjects(chain.ImageCount()); !errors.Is(err, ErrInvalidFrameCount) {
		t.Errorf("expected ErrInvalidFrameCount, got %v", err)
	}
}

func TestRebuildAttachments(t *testing.T) {
	d := newFakeDevice()
	r, chain := prepareTestResources(t, d, 2)
	if err := r.Prepare(chain, quadModel()); err != nil {
		t.Fatal(err)
	}
	oldDepth := r.DepthImage

	chain.surface.(*fakeSurface).caps.CurrentExtent = vk.Extent2D{Width: 128, Height: 96}
	if err := chain.Recreate(); err != nil {
		t.Fatal(err)
	}
	if err := r.RebuildAttachments(chain); err != nil {
		t.Fatal(err)
	}
	if r.DepthImage == oldDepth || r.DepthImage.Extent.Width != 128 {
		t.Error("expected a new depth target at the new extent")
	}
	for i, fb := range r.Framebuffers {
		if fb.Extent.Width != 128 || fb.Extent.Height != 96 {
			t.Errorf("framebuffer %d has extent %dx%d", i, fb.Extent.Width, fb.Extent.Height)
		}
	}
	if d.live["framebuffer"] != chain.ImageCount() {
		t.Errorf("expected old framebuffers destroyed, %d alive", d.live["framebuffer"])
	}

	oldPass := r.RenderPass
	chain.SurfaceFormat.Format = vk.FormatR8g8b8a8Unorm
	if err := r.RebuildAttachments(chain); err != nil {
		t.Fatal(err)
	}
	if r.RenderPass == oldPass {
		t.Fatal("expected the render pass recreated for the new surface format")
	}
	desc := r.RenderPass.Descriptor
	if desc.Attachments[0].Format != vk.FormatR8g8b8a8Unorm || desc.Attachments[desc.Resolve].Format != vk.FormatR8g8b8a8Unorm {
		t.Errorf("expected color attachments in the new format, got %+v", desc.Attachments)
	}
	if r.ColorImage.Format != vk.FormatR8g8b8a8Unorm {
		t.Errorf("expected the color target in the new format, got %d", r.ColorImage.Format)
	}
	if d.live["renderpass"] != 1 {
		t.Errorf("expected the old render pass destroyed, %d alive", d.live["renderpass"])
	}

	r.Destroy()
	chain.Destroy()
	if leaks := d.leaks(); len(leaks) != 0 {
		t.Errorf("leaked objects: %v", leaks)
	}
}
