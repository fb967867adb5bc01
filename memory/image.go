package memory

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Image is a VkImage bound at offset 0 to its own exclusive Allocation
type Image struct {
	allocator  *Allocator
	image      core1_0.Image
	info       core1_0.ImageCreateInfo
	allocation *Allocation
	destroyed  bool
}

// CreateImage creates an image, allocates memory of exactly the size the device reports for it from the first
// memory type that qualifies, and binds the two at offset 0. If any step fails, everything created so far is
// destroyed before the error is returned.
func (a *Allocator) CreateImage(imageInfo core1_0.ImageCreateInfo, allocInfo AllocationCreateInfo) (*Image, error) {
	a.logger.Debug("Allocator::CreateImage",
		slog.Int("Width", imageInfo.Extent.Width),
		slog.Int("Height", imageInfo.Extent.Height),
		slog.Int("MipLevels", imageInfo.MipLevels),
	)

	if imageInfo.Extent.Width <= 0 || imageInfo.Extent.Height <= 0 {
		return nil, errors.Newf("attempted to create an image with extent %dx%d", imageInfo.Extent.Width, imageInfo.Extent.Height)
	}

	image, _, err := a.driver.CreateImage(nil, imageInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create image")
	}

	requirements := a.driver.GetImageMemoryRequirements(image)

	allocation, err := a.AllocateMemory(requirements, allocInfo)
	if err != nil {
		a.driver.DestroyImage(image, nil)
		return nil, err
	}

	_, err = a.driver.BindImageMemory(image, allocation.memory, 0)
	if err != nil {
		a.driver.DestroyImage(image, nil)
		_ = allocation.Free()
		return nil, errors.Wrap(err, "failed to bind image memory")
	}

	return &Image{
		allocator:  a,
		image:      image,
		info:       imageInfo,
		allocation: allocation,
	}, nil
}

// Handle is the underlying VkImage
func (i *Image) Handle() core1_0.Image { return i.image }

// Format is the format the image was created with
func (i *Image) Format() core1_0.Format { return i.info.Format }

// Extent is the extent the image was created with
func (i *Image) Extent() core1_0.Extent3D { return i.info.Extent }

// MipLevels is the number of mip levels the image was created with
func (i *Image) MipLevels() int { return i.info.MipLevels }

// Allocation is the memory the image is bound to
func (i *Image) Allocation() *Allocation { return i.allocation }

// Destroy destroys the image and then frees its memory. It is idempotent. If the memory cannot be freed
// the allocation is kept and a later Destroy retries the free.
func (i *Image) Destroy() error {
	if i.allocation == nil {
		return nil
	}

	i.allocator.logger.Debug("Image::Destroy")

	if !i.destroyed {
		i.allocator.driver.DestroyImage(i.image, nil)
		i.destroyed = true
	}

	err := i.allocation.Free()
	if err != nil {
		return err
	}

	i.allocation = nil
	return nil
}
