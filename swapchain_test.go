package vkrender

import (
	"testing"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

func TestChooseSurfaceFormat(t *testing.T) {
	srgb := SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorspaceSrgbNonlinear}
	unorm := SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorspaceSrgbNonlinear}
	rgba := SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorspaceSrgbNonlinear}

	tests := []struct {
		name    string
		formats []SurfaceFormat
		want    SurfaceFormat
	}{
		{"prefers bgra srgb", []SurfaceFormat{unorm, rgba, srgb}, srgb},
		{"falls back to first", []SurfaceFormat{rgba, unorm}, rgba},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChooseSurfaceFormat(tt.formats)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if _, err := ChooseSurfaceFormat(nil); !errors.Is(err, ErrFormatNotFound) {
		t.Errorf("expected ErrFormatNotFound, got %v", err)
	}
}

func TestChoosePresentMode(t *testing.T) {
	tests := []struct {
		modes     []vk.PresentMode
		preferred vk.PresentMode
		want      vk.PresentMode
	}{
		{[]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}, vk.PresentModeMailbox, vk.PresentModeMailbox},
		{[]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, vk.PresentModeMailbox, vk.PresentModeFifo},
		{[]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, vk.PresentModeImmediate, vk.PresentModeImmediate},
		{nil, vk.PresentModeMailbox, vk.PresentModeFifo},
	}
	for _, tt := range tests {
		if got := ChoosePresentMode(tt.modes, tt.preferred); got != tt.want {
			t.Errorf("modes %v preferring %d: expected %d, got %d", tt.modes, tt.preferred, tt.want, got)
		}
	}
}

func TestChooseExtent(t *testing.T) {
	caps := SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: vk.MaxUint32, Height: vk.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 16, Height: 16},
		MaxImageExtent: vk.Extent2D{Width: 2048, Height: 1024},
	}

	tests := []struct {
		name          string
		width, height int
		want          vk.Extent2D
	}{
		{"inside range", 800, 600, vk.Extent2D{Width: 800, Height: 600}},
		{"clamped to max", 4000, 4000, vk.Extent2D{Width: 2048, Height: 1024}},
		{"clamped to min", 4, 8, vk.Extent2D{Width: 16, Height: 16}},
		{"negative", -1, 600, vk.Extent2D{Width: 16, Height: 600}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseExtent(caps, tt.width, tt.height); got != tt.want {
				t.Errorf("expected %dx%d, got %dx%d", tt.want.Width, tt.want.Height, got.Width, got.Height)
			}
		})
	}

	caps.CurrentExtent = vk.Extent2D{Width: 640, Height: 480}
	if got := ChooseExtent(caps, 800, 600); got.Width != 640 || got.Height != 480 {
		t.Errorf("expected the surface's extent, got %dx%d", got.Width, got.Height)
	}
}

func TestChooseImageCount(t *testing.T) {
	tests := []struct {
		min, max, requested uint32
		want                uint32
	}{
		{2, 8, 3, 3},
		{4, 8, 3, 4},
		{2, 2, 3, 2},
		{1, 0, 3, 3},
	}
	for _, tt := range tests {
		caps := SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
		if got := ChooseImageCount(caps, tt.requested); got != tt.want {
			t.Errorf("min %d max %d requested %d: expected %d, got %d", tt.min, tt.max, tt.requested, tt.want, got)
		}
	}
}

func TestPresentationChainMinImageCount(t *testing.T) {
	tests := []struct {
		name      string
		requested uint32
		want      uint32
	}{
		{"unset", 0, DefaultMinImageCount},
		{"below the default", 1, DefaultMinImageCount},
		{"two", 2, DefaultMinImageCount},
		{"above the default", 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newFakeDevice()
			s := newFakeSurface(d, 640, 480)
			s.caps.MinImageCount = 2
			chain := NewPresentationChain(d, s, ChainOptions{MinImageCount: tt.requested})
			if err := chain.Create(); err != nil {
				t.Fatal(err)
			}
			if got := s.created[0].ImageCount; got != tt.want {
				t.Errorf("expected %d images requested, got %d", tt.want, got)
			}
			chain.Destroy()
		})
	}
}

func TestPresentationChainLifecycle(t *testing.T) {
	d := newFakeDevice()
	s := newFakeSurface(d, 640, 480)
	chain := NewPresentationChain(d, s, ChainOptions{})

	if chain.State() != ChainUninitialized {
		t.Fatalf("expected uninitialized, got %s", chain.State())
	}
	if err := chain.Create(); err != nil {
		t.Fatal(err)
	}
	if chain.State() != ChainReady {
		t.Errorf("expected ready, got %s", chain.State())
	}
	if chain.ImageCount() != DefaultMinImageCount || len(chain.Views) != chain.ImageCount() {
		t.Errorf("expected %d images and views, got %d and %d", DefaultMinImageCount, chain.ImageCount(), len(chain.Views))
	}
	if chain.SurfaceFormat.Format != vk.FormatB8g8r8a8Srgb {
		t.Errorf("expected bgra srgb, got %d", chain.SurfaceFormat.Format)
	}
	if chain.PresentMode != vk.PresentModeMailbox {
		t.Errorf("expected mailbox, got %d", chain.PresentMode)
	}

	s.caps.CurrentExtent = vk.Extent2D{Width: 320, Height: 200}
	if err := chain.Recreate(); err != nil {
		t.Fatal(err)
	}
	if chain.Extent.Width != 320 || chain.Extent.Height != 200 {
		t.Errorf("expected the new extent, got %dx%d", chain.Extent.Width, chain.Extent.Height)
	}
	if len(s.created) != 2 {
		t.Errorf("expected 2 swapchains created, got %d", len(s.created))
	}
	if d.live["swapchain"] != 1 || d.live["view"] != chain.ImageCount() {
		t.Errorf("expected the old swapchain and views released, live: %v", d.live)
	}

	chain.Destroy()
	if chain.State() != ChainRetired {
		t.Errorf("expected retired, got %s", chain.State())
	}
	if err := chain.Create(); !errors.Is(err, ErrChainRetired) {
		t.Errorf("expected ErrChainRetired, got %v", err)
	}
	if leaks := d.leaks(); len(leaks) != 0 {
		t.Errorf("leaked objects: %v", leaks)
	}
}

func TestPresentationChainMinimized(t *testing.T) {
	d := newFakeDevice()
	s := newFakeSurface(d, vk.MaxUint32, vk.MaxUint32)
	width, height := 0, 0
	chain := NewPresentationChain(d, s, ChainOptions{
		FramebufferSize: func() (int, int) { return width, height },
	})

	if err := chain.Create(); !errors.Is(err, ErrSurfaceMinimized) {
		t.Fatalf("expected ErrSurfaceMinimized, got %v", err)
	}
	if len(s.created) != 0 {
		t.Error("expected no swapchain for a minimized surface")
	}

	width, height = 1024, 768
	if err := chain.Create(); err != nil {
		t.Fatal(err)
	}
	if chain.Extent.Width != 1024 || chain.Extent.Height != 768 {
		t.Errorf("expected 1024x768, got %dx%d", chain.Extent.Width, chain.Extent.Height)
	}
}

func TestPresentationChainPresentModeFallback(t *testing.T) {
	d := newFakeDevice()
	s := newFakeSurface(d, 640, 480)
	s.modes = []vk.PresentMode{vk.PresentModeFifo}
	chain := NewPresentationChain(d, s, ChainOptions{PresentMode: Some(vk.PresentModeImmediate)})
	if err := chain.Create(); err != nil {
		t.Fatal(err)
	}
	if chain.PresentMode != vk.PresentModeFifo {
		t.Errorf("expected fifo, got %d", chain.PresentMode)
	}
}
