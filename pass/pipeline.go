package pass

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// PipelineState is the fixed-function configuration of the graphics pipeline
type PipelineState struct {
	Layout           Layout
	VertexBindings   []core1_0.VertexInputBindingDescription
	VertexAttributes []core1_0.VertexInputAttributeDescription
}

// DescriptorSetLayoutInfo declares a uniform buffer at binding 0 for the vertex stage and a combined image
// sampler at binding 1 for the fragment stage
func DescriptorSetLayoutInfo() core1_0.DescriptorSetLayoutCreateInfo {
	return core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: []core1_0.DescriptorSetLayoutBinding{
			{
				Binding:         0,
				DescriptorType:  core1_0.DescriptorTypeUniformBuffer,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageVertex,
			},
			{
				Binding:         1,
				DescriptorType:  core1_0.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				StageFlags:      core1_0.StageFragment,
			},
		},
	}
}

// GraphicsPipelineInfo describes an opaque, depth-tested, back-face-culled triangle list pipeline. Viewport
// and scissor are dynamic; the single placeholder entries only fix their counts.
func GraphicsPipelineInfo(state PipelineState, vertexShader, fragmentShader core1_0.ShaderModule, pipelineLayout core1_0.PipelineLayout, renderPass core1_0.RenderPass) core1_0.GraphicsPipelineCreateInfo {
	return core1_0.GraphicsPipelineCreateInfo{
		Stages: []core1_0.PipelineShaderStageCreateInfo{
			{
				Stage:  core1_0.StageVertex,
				Module: vertexShader,
				Name:   "main",
			},
			{
				Stage:  core1_0.StageFragment,
				Module: fragmentShader,
				Name:   "main",
			},
		},
		VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
			VertexBindingDescriptions:   state.VertexBindings,
			VertexAttributeDescriptions: state.VertexAttributes,
		},
		InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
			Topology:               core1_0.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: false,
		},
		ViewportState: &core1_0.PipelineViewportStateCreateInfo{
			Viewports: []core1_0.Viewport{{MaxDepth: 1}},
			Scissors:  []core1_0.Rect2D{{}},
		},
		RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
			PolygonMode: core1_0.PolygonModeFill,
			CullMode:    core1_0.CullModeBack,
			FrontFace:   core1_0.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
			RasterizationSamples: state.Layout.Samples,
			MinSampleShading:     1.0,
		},
		DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompareOp:   core1_0.CompareOpLess,
		},
		ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
			LogicOp: core1_0.LogicOpCopy,
			Attachments: []core1_0.PipelineColorBlendAttachmentState{
				{
					BlendEnabled:   false,
					ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
				},
			},
		},
		DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
			DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
		},
		Layout:            pipelineLayout,
		RenderPass:        renderPass,
		Subpass:           0,
		BasePipelineIndex: -1,
	}
}

// PipelineOptions configure NewPipeline
type PipelineOptions struct {
	VertexShader   []uint32
	FragmentShader []uint32

	VertexBindings   []core1_0.VertexInputBindingDescription
	VertexAttributes []core1_0.VertexInputAttributeDescription
}

// Pipeline owns the graphics pipeline and the layouts it was built with
type Pipeline struct {
	driver core1_0.DeviceDriver

	descriptorSetLayout core1_0.DescriptorSetLayout
	layout              core1_0.PipelineLayout
	handle              core1_0.Pipeline
	destroyed           bool
}

func (p *Pipeline) createShader(code []uint32) (core1_0.ShaderModule, error) {
	module, _, err := p.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	return module, err
}

// NewPipeline creates the descriptor set layout, the pipeline layout and the graphics pipeline for
// renderPass. The shader modules only live for the duration of the call.
func NewPipeline(logger *slog.Logger, driver core1_0.DeviceDriver, renderPass *RenderPass, options PipelineOptions) (*Pipeline, error) {
	pipeline := &Pipeline{driver: driver}

	var err error
	pipeline.descriptorSetLayout, _, err = driver.CreateDescriptorSetLayout(nil, DescriptorSetLayoutInfo())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create descriptor set layout")
	}

	pipeline.layout, _, err = driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{pipeline.descriptorSetLayout},
	})
	if err != nil {
		driver.DestroyDescriptorSetLayout(pipeline.descriptorSetLayout, nil)
		return nil, errors.Wrap(err, "failed to create pipeline layout")
	}

	err = pipeline.build(renderPass, options)
	if err != nil {
		driver.DestroyPipelineLayout(pipeline.layout, nil)
		driver.DestroyDescriptorSetLayout(pipeline.descriptorSetLayout, nil)
		return nil, err
	}

	logger.Debug("Pipeline::NewPipeline", slog.Int("Samples", int(renderPass.Layout().Samples)))

	return pipeline, nil
}

func (p *Pipeline) build(renderPass *RenderPass, options PipelineOptions) error {
	vertexShader, err := p.createShader(options.VertexShader)
	if err != nil {
		return errors.Wrap(err, "failed to create vertex shader module")
	}
	defer p.driver.DestroyShaderModule(vertexShader, nil)

	fragmentShader, err := p.createShader(options.FragmentShader)
	if err != nil {
		return errors.Wrap(err, "failed to create fragment shader module")
	}
	defer p.driver.DestroyShaderModule(fragmentShader, nil)

	state := PipelineState{
		Layout:           renderPass.Layout(),
		VertexBindings:   options.VertexBindings,
		VertexAttributes: options.VertexAttributes,
	}

	pipelines, _, err := p.driver.CreateGraphicsPipelines(nil, nil,
		GraphicsPipelineInfo(state, vertexShader, fragmentShader, p.layout, renderPass.Handle()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create graphics pipeline")
	}

	p.handle = pipelines[0]
	return nil
}

func (p *Pipeline) Handle() core1_0.Pipeline {
	return p.handle
}

func (p *Pipeline) Layout() core1_0.PipelineLayout {
	return p.layout
}

func (p *Pipeline) DescriptorSetLayout() core1_0.DescriptorSetLayout {
	return p.descriptorSetLayout
}

// Destroy destroys the pipeline and then its layouts
func (p *Pipeline) Destroy() {
	if p.destroyed {
		return
	}

	p.driver.DestroyPipeline(p.handle, nil)
	p.driver.DestroyPipelineLayout(p.layout, nil)
	p.driver.DestroyDescriptorSetLayout(p.descriptorSetLayout, nil)
	p.destroyed = true
}
