package pass

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Framebuffers holds one framebuffer per swapchain image
type Framebuffers struct {
	driver       core1_0.DeviceDriver
	framebuffers []core1_0.Framebuffer
}

// NewFramebuffers creates a framebuffer for each of swapchainViews, sharing the attachment images
func NewFramebuffers(driver core1_0.DeviceDriver, renderPass *RenderPass, attachments *Attachments, swapchainViews []core1_0.ImageView) (*Framebuffers, error) {
	framebuffers := &Framebuffers{driver: driver}
	layout := renderPass.Layout()
	extent := attachments.Extent()

	for _, view := range swapchainViews {
		framebuffer, _, err := driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass:  renderPass.Handle(),
			Layers:      1,
			Attachments: layout.FramebufferViews(attachments.ColorView(), attachments.DepthView(), view),
			Width:       extent.Width,
			Height:      extent.Height,
		})
		if err != nil {
			framebuffers.Destroy()
			return nil, errors.Wrap(err, "failed to create framebuffer")
		}

		framebuffers.framebuffers = append(framebuffers.framebuffers, framebuffer)
	}

	return framebuffers, nil
}

func (f *Framebuffers) Count() int {
	return len(f.framebuffers)
}

// Framebuffer is the framebuffer for swapchain image index
func (f *Framebuffers) Framebuffer(index int) core1_0.Framebuffer {
	return f.framebuffers[index]
}

func (f *Framebuffers) Destroy() {
	for _, framebuffer := range f.framebuffers {
		f.driver.DestroyFramebuffer(framebuffer, nil)
	}
	f.framebuffers = nil
}
