package upload

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/memory"
)

// FormatSupport reports format capabilities of the physical device
type FormatSupport interface {
	SupportsLinearBlit(format core1_0.Format) bool
}

// Options configure an Uploader
type Options struct {
	// Queue is the queue one-shot uploads are submitted to. It must support transfer operations and, for
	// textures, blits
	Queue core1_0.Queue
	// QueueFamilyIndex is the family Queue belongs to
	QueueFamilyIndex int
	// MaxAnisotropy enables anisotropic filtering on texture samplers when greater than 1
	MaxAnisotropy float32
	// Formats is consulted before a mip chain is generated. It may be left nil, in which case every
	// format is assumed to support linear blits
	Formats FormatSupport
}

// Uploader moves host data into device-local buffers and images through host-coherent staging buffers.
// Every upload blocks until the GPU has finished with it, after which the staging buffer is released.
type Uploader struct {
	logger    *slog.Logger
	allocator *memory.Allocator
	driver    core1_0.CoreDeviceDriver
	options   Options
}

// NewUploader creates an Uploader that allocates from allocator
func NewUploader(logger *slog.Logger, allocator *memory.Allocator, options Options) *Uploader {
	return &Uploader{
		logger:    logger,
		allocator: allocator,
		driver:    allocator.Driver(),
		options:   options,
	}
}

func (u *Uploader) stage(data []byte) (*memory.Buffer, error) {
	staging, err := u.allocator.CreateBuffer(memory.BufferCreateInfo{
		Size:  len(data),
		Usage: core1_0.BufferUsageTransferSrc,
	}, memory.AllocationCreateInfo{
		RequiredFlags: memory.HostCoherent,
		Name:          "staging",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create staging buffer")
	}

	err = staging.CopyHostData(data)
	if err != nil {
		u.releaseStaging(staging)
		return nil, err
	}

	return staging, nil
}

func (u *Uploader) releaseStaging(staging *memory.Buffer) {
	err := staging.Destroy()
	if err != nil {
		u.logger.Debug("Uploader::releaseStaging: failed to destroy staging buffer", slog.String("Error", err.Error()))
	}
}

func (u *Uploader) run(record func(commandBuffer core1_0.CommandBuffer) error) error {
	return Run(u.logger, u.driver, u.options.Queue, u.options.QueueFamilyIndex, record)
}

// UploadBuffer creates a device-local buffer with usage (plus transfer-dst) holding data
func (u *Uploader) UploadBuffer(data []byte, usage core1_0.BufferUsageFlags, name string) (*memory.Buffer, error) {
	u.logger.Debug("Uploader::UploadBuffer", slog.Int("Size", len(data)), slog.String("Name", name))

	if len(data) == 0 {
		return nil, errors.Newf("attempted to upload an empty buffer %q", name)
	}

	staging, err := u.stage(data)
	if err != nil {
		return nil, err
	}
	defer u.releaseStaging(staging)

	buffer, err := u.allocator.CreateBuffer(memory.BufferCreateInfo{
		Size:  len(data),
		Usage: usage | core1_0.BufferUsageTransferDst,
	}, memory.AllocationCreateInfo{
		RequiredFlags: core1_0.MemoryPropertyDeviceLocal,
		Name:          name,
	})
	if err != nil {
		return nil, err
	}

	err = u.run(func(commandBuffer core1_0.CommandBuffer) error {
		return CopyBuffer(u.driver, commandBuffer, staging.Handle(), buffer.Handle(), len(data))
	})
	if err != nil {
		_ = buffer.Destroy()
		return nil, err
	}

	return buffer, nil
}

// Texture is a sampled image with a full mip chain, a view covering every level, and a linear sampler
type Texture struct {
	driver core1_0.DeviceDriver

	Image     *memory.Image
	View      core1_0.ImageView
	Sampler   core1_0.Sampler
	MipLevels int
}

// Destroy releases the sampler, the view and the image, in that order
func (t *Texture) Destroy() error {
	if t.Image == nil {
		return nil
	}

	t.driver.DestroySampler(t.Sampler, nil)
	t.driver.DestroyImageView(t.View, nil)
	err := t.Image.Destroy()
	t.Image = nil

	return err
}

// UploadTexture creates a sampled device-local image from width x height tightly packed pixels of a
// four-byte-per-texel format. Level 0 is copied from a staging buffer and the remaining levels of a full mip chain are generated by
// blitting on the GPU.
func (u *Uploader) UploadTexture(pixels []byte, width, height int, format core1_0.Format) (*Texture, error) {
	u.logger.Debug("Uploader::UploadTexture", slog.Int("Width", width), slog.Int("Height", height))

	if width <= 0 || height <= 0 {
		return nil, errors.Newf("attempted to upload a %dx%d texture", width, height)
	}
	if len(pixels) != width*height*4 {
		return nil, errors.Newf("a %dx%d texture needs %d bytes of pixels, but %d were provided", width, height, width*height*4, len(pixels))
	}

	if u.options.Formats != nil && !u.options.Formats.SupportsLinearBlit(format) {
		return nil, errors.Wrapf(ErrLinearBlitUnsupported, "format %s", format)
	}

	levels := MipLevels(width, height)

	staging, err := u.stage(pixels)
	if err != nil {
		return nil, err
	}
	defer u.releaseStaging(staging)

	image, err := u.allocator.CreateImage(core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     levels,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageTransferSrc | core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	}, memory.AllocationCreateInfo{
		RequiredFlags: core1_0.MemoryPropertyDeviceLocal,
		Name:          "texture",
	})
	if err != nil {
		return nil, err
	}

	err = u.run(func(commandBuffer core1_0.CommandBuffer) error {
		err := TransitionImage(u.driver, commandBuffer, image.Handle(), ColorRange(0, 1),
			core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
		if err != nil {
			return err
		}

		err = CopyBufferToImage(u.driver, commandBuffer, staging.Handle(), image.Handle(), width, height)
		if err != nil {
			return err
		}

		err = TransitionImage(u.driver, commandBuffer, image.Handle(), ColorRange(0, 1),
			core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutTransferSrcOptimal)
		if err != nil {
			return err
		}

		return GenerateMipmaps(u.driver, commandBuffer, image.Handle(), width, height, levels)
	})
	if err != nil {
		_ = image.Destroy()
		return nil, err
	}

	view, _, err := u.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:            image.Handle(),
		ViewType:         core1_0.ImageViewType2D,
		Format:           format,
		SubresourceRange: ColorRange(0, levels),
	})
	if err != nil {
		_ = image.Destroy()
		return nil, errors.Wrap(err, "failed to create texture image view")
	}

	sampler, _, err := u.driver.CreateSampler(nil, u.samplerInfo(levels))
	if err != nil {
		u.driver.DestroyImageView(view, nil)
		_ = image.Destroy()
		return nil, errors.Wrap(err, "failed to create texture sampler")
	}

	return &Texture{
		driver:    u.driver,
		Image:     image,
		View:      view,
		Sampler:   sampler,
		MipLevels: levels,
	}, nil
}

func (u *Uploader) samplerInfo(levels int) core1_0.SamplerCreateInfo {
	info := core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
		MinLod:     0,
		MaxLod:     float32(levels),
	}

	if u.options.MaxAnisotropy > 1 {
		info.AnisotropyEnable = true
		info.MaxAnisotropy = u.options.MaxAnisotropy
	}

	return info
}
