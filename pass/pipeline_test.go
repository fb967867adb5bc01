package pass

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_2"
	"github.com/vkngwrapper/renderer/memory"
	"go.uber.org/mock/gomock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var testLayout = Layout{
	ColorFormat: core1_0.FormatB8G8R8A8SRGB,
	DepthFormat: core1_0.FormatD32SignedFloat,
	Samples:     core1_0.Samples4,
}

func TestGraphicsPipelineInfo(t *testing.T) {
	bindings := []core1_0.VertexInputBindingDescription{{Binding: 0, Stride: 20, InputRate: core1_0.VertexInputRateVertex}}

	info := GraphicsPipelineInfo(PipelineState{Layout: testLayout, VertexBindings: bindings}, core1_0.ShaderModule{}, core1_0.ShaderModule{}, core1_0.PipelineLayout{}, core1_0.RenderPass{})

	require.Len(t, info.Stages, 2)
	require.Equal(t, core1_0.StageVertex, info.Stages[0].Stage)
	require.Equal(t, core1_0.StageFragment, info.Stages[1].Stage)
	require.Equal(t, "main", info.Stages[0].Name)

	require.Equal(t, bindings, info.VertexInputState.VertexBindingDescriptions)
	require.Equal(t, core1_0.PrimitiveTopologyTriangleList, info.InputAssemblyState.Topology)
	require.Equal(t, core1_0.CullModeBack, info.RasterizationState.CullMode)
	require.Equal(t, core1_0.FrontFaceCounterClockwise, info.RasterizationState.FrontFace)
	require.Equal(t, core1_0.Samples4, info.MultisampleState.RasterizationSamples)
	require.True(t, info.DepthStencilState.DepthTestEnable)
	require.True(t, info.DepthStencilState.DepthWriteEnable)
	require.Equal(t, core1_0.CompareOpLess, info.DepthStencilState.DepthCompareOp)
	require.False(t, info.ColorBlendState.Attachments[0].BlendEnabled)

	require.Equal(t, []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor}, info.DynamicState.DynamicStates)
	require.Len(t, info.ViewportState.Viewports, 1)
	require.Len(t, info.ViewportState.Scissors, 1)
	require.Equal(t, -1, info.BasePipelineIndex)
}

func TestNewPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks1_2.NewMockCoreDeviceDriver(ctrl)

	renderPass := &RenderPass{driver: driver, layout: testLayout}
	options := PipelineOptions{
		VertexShader:   []uint32{SpirvMagic, 1},
		FragmentShader: []uint32{SpirvMagic, 2},
	}

	driver.EXPECT().CreateDescriptorSetLayout(nil, DescriptorSetLayoutInfo()).Return(core1_0.DescriptorSetLayout{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreatePipelineLayout(nil, gomock.Any()).Return(core1_0.PipelineLayout{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{Code: options.VertexShader}).Return(core1_0.ShaderModule{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{Code: options.FragmentShader}).Return(core1_0.ShaderModule{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreateGraphicsPipelines(nil, nil, gomock.Any()).Return([]core1_0.Pipeline{{}}, core1_0.VKSuccess, nil)
	// Shader modules are released as soon as the pipeline exists
	driver.EXPECT().DestroyShaderModule(gomock.Any(), nil).Times(2)

	pipeline, err := NewPipeline(testLogger(), driver, renderPass, options)
	require.NoError(t, err)

	driver.EXPECT().DestroyPipeline(gomock.Any(), nil)
	driver.EXPECT().DestroyPipelineLayout(gomock.Any(), nil)
	driver.EXPECT().DestroyDescriptorSetLayout(gomock.Any(), nil)
	pipeline.Destroy()
	pipeline.Destroy()
}

func TestNewPipelineReleasesLayoutsOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks1_2.NewMockCoreDeviceDriver(ctrl)

	renderPass := &RenderPass{driver: driver, layout: testLayout}

	driver.EXPECT().CreateDescriptorSetLayout(nil, gomock.Any()).Return(core1_0.DescriptorSetLayout{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreatePipelineLayout(nil, gomock.Any()).Return(core1_0.PipelineLayout{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreateShaderModule(nil, gomock.Any()).Return(core1_0.ShaderModule{}, core1_0.VKSuccess, nil).Times(2)
	driver.EXPECT().CreateGraphicsPipelines(nil, nil, gomock.Any()).Return(nil, core1_0.VKErrorOutOfDeviceMemory, errors.New("out of memory"))
	driver.EXPECT().DestroyShaderModule(gomock.Any(), nil).Times(2)
	driver.EXPECT().DestroyPipelineLayout(gomock.Any(), nil)
	driver.EXPECT().DestroyDescriptorSetLayout(gomock.Any(), nil)

	_, err := NewPipeline(testLogger(), driver, renderPass, PipelineOptions{})
	require.Error(t, err)
}

func TestNewRenderPass(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks1_2.NewMockCoreDeviceDriver(ctrl)

	driver.EXPECT().CreateRenderPass(nil, testLayout.RenderPassInfo()).Return(core1_0.RenderPass{}, core1_0.VKSuccess, nil)

	renderPass, err := NewRenderPass(driver, testLayout)
	require.NoError(t, err)
	require.Equal(t, testLayout, renderPass.Layout())

	driver.EXPECT().DestroyRenderPass(gomock.Any(), nil)
	renderPass.Destroy()
	renderPass.Destroy()
}

func readyAllocator(t *testing.T, ctrl *gomock.Controller) (*mocks1_2.MockCoreDeviceDriver, *memory.Allocator) {
	mockInstance := mocks1_2.NewMockCoreInstanceDriver(ctrl)
	mockCore := mocks1_2.NewMockCoreDeviceDriver(ctrl)
	mockCore.EXPECT().InstanceDriver().Return(mockInstance).AnyTimes()

	instance := mocks.NewDummyInstance(common.Vulkan1_2, []string{})
	physicalDevice := mocks.NewDummyPhysicalDevice(instance, common.Vulkan1_2)
	device := mocks.NewDummyDevice(common.Vulkan1_2, []string{})

	mockInstance.EXPECT().Instance().Return(instance).AnyTimes()
	mockCore.EXPECT().Device().Return(device).AnyTimes()
	mockInstance.EXPECT().GetPhysicalDeviceMemoryProperties(physicalDevice).Return(&core1_0.PhysicalDeviceMemoryProperties{
		MemoryTypes: []core1_0.MemoryType{
			{
				PropertyFlags: core1_0.MemoryPropertyDeviceLocal,
				HeapIndex:     0,
			},
		},
		MemoryHeaps: []core1_0.MemoryHeap{
			{
				Size:  64 * 1024 * 1024,
				Flags: core1_0.MemoryHeapDeviceLocal,
			},
		},
	}).AnyTimes()

	allocator, err := memory.New(testLogger(), mockCore, physicalDevice, memory.CreateOptions{})
	require.NoError(t, err)

	return mockCore, allocator
}

func expectTarget(driver *mocks1_2.MockCoreDeviceDriver, format core1_0.Format, usage core1_0.ImageUsageFlags, aspect core1_0.ImageAspectFlags) (core1_0.Image, core1_0.DeviceMemory) {
	image := mocks.NewDummyImage(driver.Device())
	memory := mocks.NewDummyDeviceMemory(driver.Device(), 4096)

	driver.EXPECT().CreateImage(gomock.Any(), core1_0.ImageCreateInfo{
		ImageType:     core1_0.ImageType2D,
		Extent:        core1_0.Extent3D{Width: 640, Height: 480, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples4,
	}).Return(image, core1_0.VKSuccess, nil)
	driver.EXPECT().GetImageMemoryRequirements(image).Return(&core1_0.MemoryRequirements{
		Size:           4096,
		Alignment:      256,
		MemoryTypeBits: 1,
	})
	driver.EXPECT().AllocateMemory(gomock.Any(), core1_0.MemoryAllocateInfo{
		AllocationSize:  4096,
		MemoryTypeIndex: 0,
	}).Return(memory, core1_0.VKSuccess, nil)
	driver.EXPECT().BindImageMemory(image, memory, 0).Return(core1_0.VKSuccess, nil)
	driver.EXPECT().CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}).Return(core1_0.ImageView{}, core1_0.VKSuccess, nil)

	return image, memory
}

func TestAttachmentsAndFramebuffers(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, allocator := readyAllocator(t, ctrl)
	extent := core1_0.Extent2D{Width: 640, Height: 480}

	colorImage, colorMemory := expectTarget(driver, testLayout.ColorFormat, core1_0.ImageUsageTransientAttachment|core1_0.ImageUsageColorAttachment, core1_0.ImageAspectColor)
	depthImage, depthMemory := expectTarget(driver, testLayout.DepthFormat, core1_0.ImageUsageDepthStencilAttachment, core1_0.ImageAspectDepth)

	attachments, err := NewAttachments(allocator, testLayout, extent)
	require.NoError(t, err)
	require.Equal(t, extent, attachments.Extent())
	require.Equal(t, 2, allocator.LiveAllocations())

	renderPass := &RenderPass{driver: driver, layout: testLayout}
	swapchainViews := []core1_0.ImageView{{}, {}, {}}

	driver.EXPECT().CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  core1_0.RenderPass{},
		Layers:      1,
		Attachments: []core1_0.ImageView{{}, {}, {}},
		Width:       640,
		Height:      480,
	}).Return(core1_0.Framebuffer{}, core1_0.VKSuccess, nil).Times(3)

	framebuffers, err := NewFramebuffers(driver, renderPass, attachments, swapchainViews)
	require.NoError(t, err)
	require.Equal(t, 3, framebuffers.Count())

	driver.EXPECT().DestroyFramebuffer(gomock.Any(), nil).Times(3)
	framebuffers.Destroy()
	require.Equal(t, 0, framebuffers.Count())

	driver.EXPECT().DestroyImageView(gomock.Any(), nil).Times(2)
	driver.EXPECT().DestroyImage(depthImage, nil)
	driver.EXPECT().FreeMemory(depthMemory, nil)
	driver.EXPECT().DestroyImage(colorImage, nil)
	driver.EXPECT().FreeMemory(colorMemory, nil)
	attachments.Destroy()
	attachments.Destroy()

	require.NoError(t, allocator.Destroy())
}

func TestFramebuffersReleaseOnFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver := mocks1_2.NewMockCoreDeviceDriver(ctrl)

	layout := Layout{Samples: core1_0.Samples1}
	renderPass := &RenderPass{driver: driver, layout: layout}
	attachments := &Attachments{layout: layout, extent: core1_0.Extent2D{Width: 8, Height: 8}}

	gomock.InOrder(
		driver.EXPECT().CreateFramebuffer(nil, gomock.Any()).Return(core1_0.Framebuffer{}, core1_0.VKSuccess, nil),
		driver.EXPECT().CreateFramebuffer(nil, gomock.Any()).Return(core1_0.Framebuffer{}, core1_0.VKErrorOutOfHostMemory, errors.New("out of memory")),
	)
	driver.EXPECT().DestroyFramebuffer(gomock.Any(), nil).Times(1)

	_, err := NewFramebuffers(driver, renderPass, attachments, []core1_0.ImageView{{}, {}, {}})
	require.Error(t, err)
}
