package pass

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// Layout fixes the attachment formats and sample count shared by the render pass, the pipeline, the
// attachment images and the framebuffers
type Layout struct {
	ColorFormat core1_0.Format
	DepthFormat core1_0.Format
	Samples     core1_0.SampleCountFlags
}

// Multisampled is true when the pass renders into a multisampled colour image and resolves into the
// swapchain image
func (l Layout) Multisampled() bool {
	return l.Samples > core1_0.Samples1
}

// AttachmentCount is the number of framebuffer attachments the pass uses
func (l Layout) AttachmentCount() int {
	if l.Multisampled() {
		return 3
	}
	return 2
}

func (l Layout) depthAttachment() core1_0.AttachmentDescription {
	return core1_0.AttachmentDescription{
		Format:         l.DepthFormat,
		Samples:        l.Samples,
		LoadOp:         core1_0.AttachmentLoadOpClear,
		StoreOp:        core1_0.AttachmentStoreOpDontCare,
		StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
		StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
		InitialLayout:  core1_0.ImageLayoutUndefined,
		FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
	}
}

func (l Layout) presentAttachment(loadOp core1_0.AttachmentLoadOp) core1_0.AttachmentDescription {
	return core1_0.AttachmentDescription{
		Format:         l.ColorFormat,
		Samples:        core1_0.Samples1,
		LoadOp:         loadOp,
		StoreOp:        core1_0.AttachmentStoreOpStore,
		StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
		StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
		InitialLayout:  core1_0.ImageLayoutUndefined,
		FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
	}
}

// RenderPassInfo describes the single-subpass render pass for l.
//
// Multisampled attachments are the transient MSAA colour image (0), depth (1) and the swapchain image
// receiving the resolve (2). Single-sampled attachments are the swapchain image (0) and depth (1).
func (l Layout) RenderPassInfo() core1_0.RenderPassCreateInfo {
	colorReference := core1_0.AttachmentReference{
		Attachment: 0,
		Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
	}
	depthReference := core1_0.AttachmentReference{
		Attachment: 1,
		Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := core1_0.SubpassDescription{
		PipelineBindPoint:      core1_0.PipelineBindPointGraphics,
		ColorAttachments:       []core1_0.AttachmentReference{colorReference},
		DepthStencilAttachment: &depthReference,
	}

	var attachments []core1_0.AttachmentDescription
	if l.Multisampled() {
		attachments = []core1_0.AttachmentDescription{
			{
				Format:         l.ColorFormat,
				Samples:        l.Samples,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutColorAttachmentOptimal,
			},
			l.depthAttachment(),
			l.presentAttachment(core1_0.AttachmentLoadOpClear),
		}

		subpass.ResolveAttachments = []core1_0.AttachmentReference{
			{
				Attachment: 2,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		}
	} else {
		attachments = []core1_0.AttachmentDescription{
			l.presentAttachment(core1_0.AttachmentLoadOpClear),
			l.depthAttachment(),
		}
	}

	return core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass:    core1_0.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: core1_0.AccessColorAttachmentWrite,
				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
			{
				SrcSubpass:    core1_0.SubpassExternal,
				DstSubpass:    0,
				SrcStageMask:  core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
				SrcAccessMask: core1_0.AccessDepthStencilAttachmentWrite,
				DstStageMask:  core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
				DstAccessMask: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	}
}

// ClearValues returns one clear value per attachment in RenderPassInfo order: black opaque colour and a
// depth of 1
func (l Layout) ClearValues() []core1_0.ClearValue {
	color := core1_0.ClearValueFloat{0, 0, 0, 1}
	depth := core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0}

	if l.Multisampled() {
		return []core1_0.ClearValue{color, depth, color}
	}

	return []core1_0.ClearValue{color, depth}
}

// FramebufferViews orders views to match RenderPassInfo. color is ignored for single-sampled layouts.
func (l Layout) FramebufferViews(color, depth, swapchain core1_0.ImageView) []core1_0.ImageView {
	if l.Multisampled() {
		return []core1_0.ImageView{color, depth, swapchain}
	}

	return []core1_0.ImageView{swapchain, depth}
}
