package vkrender

import (
	"image"
	"os"

	// Load the png and jpeg image loaders
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/image/draw"
)

// TextureFormat is the format textures are uploaded in
const TextureFormat = vk.FormatR8g8b8a8Srgb

// Texture is a sampled image with a full mip chain, its view and sampler
type Texture struct {
	Image   *Image
	View    *ImageView
	Sampler *Sampler
}

// TextureUploader uploads decoded images into device local, mipmapped textures
type TextureUploader struct {
	resources *ResourceManager
}

func NewTextureUploader(resources *ResourceManager) *TextureUploader {
	return &TextureUploader{resources: resources}
}

// LoadImage decodes an image file into RGBA pixels
func LoadImage(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(ErrTextureLoad, err.Error())
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(ErrTextureLoad, "decoding %s: %v", path, err)
	}
	return toRGBA(src), nil
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := src.Bounds()
	m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), src, b.Min, draw.Src)
	return m
}

// LoadTexture decodes the image at path and uploads it
func (t *TextureUploader) LoadTexture(path string) (*Texture, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	tex, err := t.Upload(img)
	if err != nil {
		return nil, errors.Wrapf(err, "uploading %s", path)
	}
	return tex, nil
}

// Upload copies img into a new device local image through a staging buffer,
// generates its mip chain and creates a view and sampler for it. The upload
// completes before Upload returns.
func (t *TextureUploader) Upload(img *image.RGBA) (*Texture, error) {
	img = toRGBA(img)
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Wrap(ErrTextureLoad, "image has no pixels")
	}

	r := t.resources
	extent := vk.Extent2D{Width: uint32(b.Dx()), Height: uint32(b.Dy())}
	levels := MipLevels(extent.Width, extent.Height)

	// check before anything is allocated
	if r.device.FormatFeatures(TextureFormat).Optimal&vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit) == 0 {
		return nil, errors.Wrapf(ErrUnsupportedBlit, "format %d", TextureFormat)
	}

	staging, err := r.stage(img.Pix)
	if err != nil {
		return nil, err
	}
	defer r.Allocator.FreeBuffer(staging)

	texImg, err := r.Allocator.AllocateImage(ImageDescriptor{
		Extent:    extent,
		Format:    TextureFormat,
		MipLevels: levels,
		Samples:   vk.SampleCount1Bit,
		Tiling:    vk.ImageTilingOptimal,
		Usage:     vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
	}, MemoryDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "creating texture image")
	}

	// blits need a graphics queue
	err = r.RunOneTime(r.graphicsQueue, func(cb *CommandBuffer) error {
		err := r.Transition(cb, texImg, AllMips(texImg), vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, Optional[BarrierOverride]{})
		if err != nil {
			return err
		}
		r.device.CmdCopyBufferToImage(cb, staging, texImg, extent)
		return r.GenerateMipmaps(cb, texImg)
	})
	if err != nil {
		r.Allocator.FreeImage(texImg)
		return nil, err
	}

	tex := &Texture{Image: texImg}

	tex.View, err = r.device.CreateImageView(texImg, vk.ImageAspectFlags(vk.ImageAspectColorBit))
	if err != nil {
		t.Destroy(tex)
		return nil, errors.Wrap(err, "creating texture view")
	}

	anisotropy := r.options.MaxAnisotropy
	if limit := r.device.Limits().MaxSamplerAnisotropy; anisotropy > limit {
		anisotropy = limit
	}
	tex.Sampler, err = r.device.CreateSampler(SamplerDescriptor{
		Filter:        vk.FilterLinear,
		AddressMode:   vk.SamplerAddressModeRepeat,
		MaxAnisotropy: anisotropy,
		MaxLod:        float32(levels),
	})
	if err != nil {
		t.Destroy(tex)
		return nil, errors.Wrap(err, "creating texture sampler")
	}

	Logger().WithFields(logrus.Fields{
		"width":  extent.Width,
		"height": extent.Height,
		"mips":   levels,
	}).Info("uploaded texture")

	return tex, nil
}

// Destroy releases the texture's sampler, view and image
func (t *TextureUploader) Destroy(tex *Texture) {
	r := t.resources
	if tex.Sampler != nil {
		r.device.DestroySampler(tex.Sampler)
		tex.Sampler = nil
	}
	if tex.View != nil {
		r.device.DestroyImageView(tex.View)
		tex.View = nil
	}
	if tex.Image != nil {
		r.Allocator.FreeImage(tex.Image)
		tex.Image = nil
	}
}
