package renderer

import (
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/device"
	"github.com/vkngwrapper/renderer/frame"
	"github.com/vkngwrapper/renderer/memory"
	"github.com/vkngwrapper/renderer/mesh"
	"github.com/vkngwrapper/renderer/pass"
	"github.com/vkngwrapper/renderer/surface"
	"github.com/vkngwrapper/renderer/swapchain"
	"github.com/vkngwrapper/renderer/texture"
	"github.com/vkngwrapper/renderer/upload"
)

// Options configure New
type Options struct {
	// FramesInFlight is the number of frame slots. It is also the minimum swapchain image count. It
	// defaults to 2.
	FramesInFlight int
	// Samples is the requested MSAA sample count. The largest count the device supports for both colour
	// and depth attachments that does not exceed it is used. It defaults to 8.
	Samples core1_0.SampleCountFlags

	// VertexShader and FragmentShader are SPIR-V words, as returned by pass.LoadShader
	VertexShader   []uint32
	FragmentShader []uint32

	Mesh    *mesh.Mesh
	Texture *texture.Image

	Camera Camera

	// Clock returns a monotonic time. It defaults to hrtime.Now.
	Clock func() time.Duration
}

// Renderer draws a textured mesh into a swapchain. It owns every Vulkan object it creates; the device
// context and the surface remain owned by the caller.
type Renderer struct {
	logger  *slog.Logger
	context Device
	driver  core1_0.DeviceDriver

	camera Camera
	clock  func() time.Duration
	start  time.Duration

	allocator    *memory.Allocator
	swapchain    *swapchain.Swapchain
	renderPass   *pass.RenderPass
	pipeline     *pass.Pipeline
	attachments  *pass.Attachments
	framebuffers *pass.Framebuffers
	commandPool  core1_0.CommandPool
	slots        *frame.Slots

	vertexBuffer *memory.Buffer
	indexBuffer  *memory.Buffer
	indexCount   int
	texture      *upload.Texture

	uniforms    *uniformRing
	descriptors *descriptors

	engine *frame.Engine
}

var _ frame.Backend = &Renderer{}

// Device is the logical device and queue a Renderer draws with
type Device interface {
	DeviceDriver() core1_0.CoreDeviceDriver
	PhysicalDevice() core1_0.PhysicalDevice
	Properties() *core1_0.PhysicalDeviceProperties
	Queue() core1_0.Queue
	QueueFamilyIndex() int
	MaxAnisotropy() float32
	MaxSampleCount(requested core1_0.SampleCountFlags) core1_0.SampleCountFlags
	FindDepthFormat() (core1_0.Format, error)
	SupportsLinearBlit(format core1_0.Format) bool
	WaitIdle() error
}

var _ Device = &device.Context{}

// New builds every resource needed to draw options.Mesh with options.Texture into surf at extent
func New(logger *slog.Logger, ctx Device, surf *surface.Surface, swapchainDriver swapchain.Driver, extent core1_0.Extent2D, options Options) (*Renderer, error) {
	if options.FramesInFlight == 0 {
		options.FramesInFlight = 2
	}
	if options.Samples == 0 {
		options.Samples = core1_0.Samples8
	}
	if options.Clock == nil {
		options.Clock = hrtime.Now
	}
	if options.Mesh == nil || len(options.Mesh.Indices) == 0 {
		return nil, errors.New("renderer.New: a mesh with at least one index is required")
	}
	if options.Texture == nil {
		return nil, errors.New("renderer.New: a texture is required")
	}

	r := &Renderer{
		logger:  logger,
		context: ctx,
		driver:  ctx.DeviceDriver(),
		camera:  options.Camera,
		clock:   options.Clock,
	}

	err := r.build(surf, swapchainDriver, extent, options)
	if err != nil {
		_ = r.release()
		return nil, err
	}

	r.start = r.clock()
	return r, nil
}

func (r *Renderer) build(surf *surface.Surface, swapchainDriver swapchain.Driver, extent core1_0.Extent2D, options Options) error {
	var err error
	r.allocator, err = memory.New(r.logger, r.context.DeviceDriver(), r.context.PhysicalDevice(), memory.CreateOptions{})
	if err != nil {
		return err
	}

	r.swapchain, err = swapchain.Create(r.logger, r.driver, swapchainDriver, surf, options.FramesInFlight, extent)
	if err != nil {
		return err
	}

	depthFormat, err := r.context.FindDepthFormat()
	if err != nil {
		return err
	}

	layout := pass.Layout{
		ColorFormat: r.swapchain.Format(),
		DepthFormat: depthFormat,
		Samples:     r.context.MaxSampleCount(options.Samples),
	}

	r.renderPass, err = pass.NewRenderPass(r.driver, layout)
	if err != nil {
		return err
	}

	r.pipeline, err = pass.NewPipeline(r.logger, r.driver, r.renderPass, pass.PipelineOptions{
		VertexShader:     options.VertexShader,
		FragmentShader:   options.FragmentShader,
		VertexBindings:   mesh.BindingDescriptions(),
		VertexAttributes: mesh.AttributeDescriptions(),
	})
	if err != nil {
		return err
	}

	err = r.createTargets()
	if err != nil {
		return err
	}

	r.commandPool, _, err = r.driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: r.context.QueueFamilyIndex(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create frame command pool")
	}

	r.slots, err = frame.NewSlots(r.driver, r.commandPool, options.FramesInFlight)
	if err != nil {
		return err
	}

	err = r.uploadScene(options)
	if err != nil {
		return err
	}

	r.uniforms, err = newUniformRing(r.logger, r.allocator, options.FramesInFlight, r.context.Properties().Limits.MinUniformBufferOffsetAlignment)
	if err != nil {
		return err
	}

	r.descriptors, err = newDescriptors(r.driver, r.pipeline.DescriptorSetLayout(), r.uniforms, r.texture)
	if err != nil {
		return err
	}

	r.engine, err = frame.NewEngine(r.logger, r, frame.Options{
		FramesInFlight: options.FramesInFlight,
		Extent:         extent,
	})
	return err
}

func (r *Renderer) uploadScene(options Options) error {
	uploader := upload.NewUploader(r.logger, r.allocator, upload.Options{
		Queue:            r.context.Queue(),
		QueueFamilyIndex: r.context.QueueFamilyIndex(),
		MaxAnisotropy:    r.context.MaxAnisotropy(),
		Formats:          r.context,
	})

	var err error
	r.vertexBuffer, err = uploader.UploadBuffer(options.Mesh.VertexBytes(), core1_0.BufferUsageVertexBuffer, "vertices")
	if err != nil {
		return err
	}

	r.indexBuffer, err = uploader.UploadBuffer(options.Mesh.IndexBytes(), core1_0.BufferUsageIndexBuffer, "indices")
	if err != nil {
		return err
	}
	r.indexCount = len(options.Mesh.Indices)

	r.texture, err = uploader.UploadTexture(options.Texture.Pixels, options.Texture.Width, options.Texture.Height, core1_0.FormatR8G8B8A8SRGB)
	return err
}

func (r *Renderer) createTargets() error {
	var err error
	r.attachments, err = pass.NewAttachments(r.allocator, r.renderPass.Layout(), r.swapchain.Extent())
	if err != nil {
		return err
	}

	r.framebuffers, err = pass.NewFramebuffers(r.driver, r.renderPass, r.attachments, r.swapchain.Views())
	return err
}

func (r *Renderer) destroyTargets() {
	if r.framebuffers != nil {
		r.framebuffers.Destroy()
		r.framebuffers = nil
	}
	if r.attachments != nil {
		r.attachments.Destroy()
		r.attachments = nil
	}
}

// WaitSlot blocks until the slot's previous submission has completed
func (r *Renderer) WaitSlot(slot int) error {
	return r.slots.Wait(slot)
}

func (r *Renderer) Acquire(slot int) (int, swapchain.Status, error) {
	return r.swapchain.Acquire(r.slots.Slot(slot).ImageAvailable)
}

// Record updates the slot's uniform block and re-records its command buffer to draw into image
func (r *Renderer) Record(slot, image int, extent core1_0.Extent2D) error {
	elapsed := (r.clock() - r.start).Seconds()
	err := r.uniforms.Write(slot, r.camera.Uniforms(elapsed, extent))
	if err != nil {
		return err
	}

	commandBuffer := r.slots.Slot(slot).CommandBuffer

	_, err = r.driver.BeginCommandBuffer(commandBuffer, core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin frame command buffer")
	}

	renderArea := core1_0.Rect2D{
		Offset: core1_0.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}

	err = r.driver.CmdBeginRenderPass(commandBuffer, core1_0.SubpassContentsInline, core1_0.RenderPassBeginInfo{
		RenderPass:  r.renderPass.Handle(),
		Framebuffer: r.framebuffers.Framebuffer(image),
		RenderArea:  renderArea,
		ClearValues: r.renderPass.Layout().ClearValues(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to begin render pass")
	}

	r.driver.CmdSetViewport(commandBuffer, core1_0.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	r.driver.CmdSetScissor(commandBuffer, renderArea)

	r.driver.CmdBindPipeline(commandBuffer, core1_0.PipelineBindPointGraphics, r.pipeline.Handle())
	r.driver.CmdBindVertexBuffers(commandBuffer, 0, []core1_0.Buffer{r.vertexBuffer.Handle()}, []int{0})
	r.driver.CmdBindIndexBuffer(commandBuffer, r.indexBuffer.Handle(), 0, core1_0.IndexTypeUInt32)
	r.driver.CmdBindDescriptorSets(commandBuffer, core1_0.PipelineBindPointGraphics, r.pipeline.Layout(), 0, []core1_0.DescriptorSet{
		r.descriptors.Set(slot),
	}, nil)
	r.driver.CmdDrawIndexed(commandBuffer, r.indexCount, 1, 0, 0, 0)
	r.driver.CmdEndRenderPass(commandBuffer)

	_, err = r.driver.EndCommandBuffer(commandBuffer)
	if err != nil {
		return errors.Wrap(err, "failed to end frame command buffer")
	}

	return nil
}

// Submit resets the slot's fence and queues its command buffer behind the image-available semaphore
func (r *Renderer) Submit(slot, image int) error {
	err := r.slots.Reset(slot)
	if err != nil {
		return errors.Wrap(err, "failed to reset in flight fence")
	}

	s := r.slots.Slot(slot)
	_, err = r.driver.QueueSubmit(r.context.Queue(), &s.InFlight, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{s.ImageAvailable},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{s.CommandBuffer},
		SignalSemaphores: []core1_0.Semaphore{s.RenderFinished},
	})
	if err != nil {
		return errors.Wrap(err, "failed to submit frame")
	}

	return nil
}

func (r *Renderer) Present(slot, image int) (swapchain.Status, error) {
	return r.swapchain.Present(r.context.Queue(), r.slots.Slot(slot).RenderFinished, image)
}

// Rebuild waits for the device to go idle, then recreates the swapchain and everything sized to it
func (r *Renderer) Rebuild(extent core1_0.Extent2D) error {
	err := r.context.WaitIdle()
	if err != nil {
		return err
	}

	r.destroyTargets()

	err = r.swapchain.Rebuild(extent)
	if err != nil {
		return err
	}

	return r.createTargets()
}

func (r *Renderer) Extent() core1_0.Extent2D {
	return r.swapchain.Extent()
}

// RenderFrame renders one frame at extent. It returns false when nothing was presented.
func (r *Renderer) RenderFrame(extent core1_0.Extent2D) (bool, error) {
	return r.engine.RenderFrame(extent)
}

func (r *Renderer) OnResize(width, height int) error {
	return r.engine.OnResize(width, height)
}

func (r *Renderer) Engine() *frame.Engine {
	return r.engine
}

// AllocatorStats is a JSON dump of every live allocation
func (r *Renderer) AllocatorStats() string {
	return r.allocator.BuildStatsString()
}

// Close waits for the device to go idle and destroys everything New created, in reverse order
func (r *Renderer) Close() error {
	err := r.context.WaitIdle()
	if err != nil {
		return err
	}

	return r.release()
}

func (r *Renderer) release() error {
	var errs []error

	if r.descriptors != nil {
		r.descriptors.Destroy()
		r.descriptors = nil
	}
	if r.uniforms != nil {
		errs = append(errs, r.uniforms.Destroy())
		r.uniforms = nil
	}
	if r.texture != nil {
		errs = append(errs, r.texture.Destroy())
		r.texture = nil
	}
	if r.indexBuffer != nil {
		errs = append(errs, r.indexBuffer.Destroy())
		r.indexBuffer = nil
	}
	if r.vertexBuffer != nil {
		errs = append(errs, r.vertexBuffer.Destroy())
		r.vertexBuffer = nil
	}
	if r.slots != nil {
		r.slots.Destroy()
		r.slots = nil
	}
	if r.commandPool.Initialized() {
		r.driver.DestroyCommandPool(r.commandPool, nil)
		r.commandPool = core1_0.CommandPool{}
	}

	r.destroyTargets()

	if r.pipeline != nil {
		r.pipeline.Destroy()
		r.pipeline = nil
	}
	if r.renderPass != nil {
		r.renderPass.Destroy()
		r.renderPass = nil
	}
	if r.swapchain != nil {
		r.swapchain.Destroy()
		r.swapchain = nil
	}
	if r.allocator != nil {
		errs = append(errs, r.allocator.Destroy())
		r.allocator = nil
	}

	var combined error
	for _, err := range errs {
		combined = errors.CombineErrors(combined, err)
	}
	return combined
}
