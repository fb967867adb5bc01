package pass

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// RenderPass is the render pass built from a Layout
type RenderPass struct {
	driver core1_0.DeviceDriver
	handle core1_0.RenderPass
	layout Layout
}

func NewRenderPass(driver core1_0.DeviceDriver, layout Layout) (*RenderPass, error) {
	handle, _, err := driver.CreateRenderPass(nil, layout.RenderPassInfo())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create render pass")
	}

	return &RenderPass{
		driver: driver,
		handle: handle,
		layout: layout,
	}, nil
}

func (p *RenderPass) Handle() core1_0.RenderPass {
	return p.handle
}

func (p *RenderPass) Layout() Layout {
	return p.layout
}

func (p *RenderPass) Destroy() {
	if p.driver == nil {
		return
	}

	p.driver.DestroyRenderPass(p.handle, nil)
	p.driver = nil
}
