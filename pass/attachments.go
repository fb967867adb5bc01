package pass

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/memory"
)

// Attachments are the extent-dependent images a framebuffer renders into besides the swapchain image: a
// transient multisampled colour target when the layout is multisampled, and the depth buffer
type Attachments struct {
	driver core1_0.DeviceDriver
	layout Layout
	extent core1_0.Extent2D

	color     *memory.Image
	colorView core1_0.ImageView
	depth     *memory.Image
	depthView core1_0.ImageView
}

func (a *Attachments) createTarget(allocator *memory.Allocator, format core1_0.Format, usage core1_0.ImageUsageFlags, aspect core1_0.ImageAspectFlags, name string) (*memory.Image, core1_0.ImageView, error) {
	image, err := allocator.CreateImage(core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  a.extent.Width,
			Height: a.extent.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       a.layout.Samples,
	}, memory.AllocationCreateInfo{
		RequiredFlags: core1_0.MemoryPropertyDeviceLocal,
		Name:          name,
	})
	if err != nil {
		return nil, core1_0.ImageView{}, errors.Wrapf(err, "failed to create %s image", name)
	}

	view, _, err := a.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image.Handle(),
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		_ = image.Destroy()
		return nil, core1_0.ImageView{}, errors.Wrapf(err, "failed to create %s image view", name)
	}

	return image, view, nil
}

// NewAttachments creates the attachment images for layout at extent
func NewAttachments(allocator *memory.Allocator, layout Layout, extent core1_0.Extent2D) (*Attachments, error) {
	attachments := &Attachments{
		driver: allocator.Driver(),
		layout: layout,
		extent: extent,
	}

	var err error
	if layout.Multisampled() {
		attachments.color, attachments.colorView, err = attachments.createTarget(allocator,
			layout.ColorFormat,
			core1_0.ImageUsageTransientAttachment|core1_0.ImageUsageColorAttachment,
			core1_0.ImageAspectColor,
			"msaa color")
		if err != nil {
			return nil, err
		}
	}

	attachments.depth, attachments.depthView, err = attachments.createTarget(allocator,
		layout.DepthFormat,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.ImageAspectDepth,
		"depth")
	if err != nil {
		attachments.Destroy()
		return nil, err
	}

	return attachments, nil
}

func (a *Attachments) Extent() core1_0.Extent2D {
	return a.extent
}

// ColorView is the multisampled colour view, or a zero view for single-sampled layouts
func (a *Attachments) ColorView() core1_0.ImageView {
	return a.colorView
}

func (a *Attachments) DepthView() core1_0.ImageView {
	return a.depthView
}

// Destroy destroys the views and then the images
func (a *Attachments) Destroy() {
	if a.depth != nil {
		a.driver.DestroyImageView(a.depthView, nil)
		_ = a.depth.Destroy()
		a.depth = nil
	}

	if a.color != nil {
		a.driver.DestroyImageView(a.colorView, nil)
		_ = a.color.Destroy()
		a.color = nil
	}
}
