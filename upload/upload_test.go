package upload

import (
	"io"
	"log/slog"
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/core/v3/mocks"
	"github.com/vkngwrapper/core/v3/mocks/mocks1_2"
	"github.com/vkngwrapper/renderer/memory"
	"go.uber.org/mock/gomock"
)

const testQueueFamily = 3

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
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
				PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
				HeapIndex:     1,
			},
			{
				PropertyFlags: core1_0.MemoryPropertyDeviceLocal,
				HeapIndex:     0,
			},
		},
		MemoryHeaps: []core1_0.MemoryHeap{
			{
				Size:  1000000,
				Flags: core1_0.MemoryHeapDeviceLocal,
			},
			{
				Size:  1000000,
				Flags: 0,
			},
		},
	}).AnyTimes()

	allocator, err := memory.New(testLogger(), mockCore, physicalDevice, memory.CreateOptions{})
	require.NoError(t, err)

	return mockCore, allocator
}

func expectOneShot(driver *mocks1_2.MockCoreDeviceDriver, record func()) {
	driver.EXPECT().CreateCommandPool(gomock.Any(), core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: testQueueFamily,
	}).Return(core1_0.CommandPool{}, core1_0.VKSuccess, nil)
	driver.EXPECT().AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        core1_0.CommandPool{},
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}).Return([]core1_0.CommandBuffer{{}}, core1_0.VKSuccess, nil)

	begin := driver.EXPECT().BeginCommandBuffer(gomock.Any(), core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	}).Return(core1_0.VKSuccess, nil)
	if record != nil {
		record()
	}
	end := driver.EXPECT().EndCommandBuffer(gomock.Any()).Return(core1_0.VKSuccess, nil).After(begin)
	submit := driver.EXPECT().QueueSubmit(gomock.Any(), nil, gomock.Any()).Return(core1_0.VKSuccess, nil).After(end)
	wait := driver.EXPECT().QueueWaitIdle(gomock.Any()).Return(core1_0.VKSuccess, nil).After(submit)
	driver.EXPECT().DestroyCommandPool(gomock.Any(), nil).After(wait)
}

func TestRunSubmitsAndReleasesPool(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, _ := readyAllocator(t, ctrl)

	expectOneShot(driver, nil)

	recorded := false
	err := Run(testLogger(), driver, core1_0.Queue{}, testQueueFamily, func(commandBuffer core1_0.CommandBuffer) error {
		recorded = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, recorded)
}

func TestRunCancelsOnRecordError(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, _ := readyAllocator(t, ctrl)

	driver.EXPECT().CreateCommandPool(gomock.Any(), gomock.Any()).Return(core1_0.CommandPool{}, core1_0.VKSuccess, nil)
	driver.EXPECT().AllocateCommandBuffers(gomock.Any()).Return([]core1_0.CommandBuffer{{}}, core1_0.VKSuccess, nil)
	driver.EXPECT().BeginCommandBuffer(gomock.Any(), gomock.Any()).Return(core1_0.VKSuccess, nil)
	// Nothing is submitted, but the pool is still destroyed
	driver.EXPECT().DestroyCommandPool(gomock.Any(), nil)

	recordErr := errors.New("record failed")
	err := Run(testLogger(), driver, core1_0.Queue{}, testQueueFamily, func(commandBuffer core1_0.CommandBuffer) error {
		return recordErr
	})
	require.True(t, errors.Is(err, recordErr))
}

func TestOneShotFinishReleasesPoolOnSubmitFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, _ := readyAllocator(t, ctrl)

	driver.EXPECT().CreateCommandPool(gomock.Any(), gomock.Any()).Return(core1_0.CommandPool{}, core1_0.VKSuccess, nil)
	driver.EXPECT().AllocateCommandBuffers(gomock.Any()).Return([]core1_0.CommandBuffer{{}}, core1_0.VKSuccess, nil)
	driver.EXPECT().BeginCommandBuffer(gomock.Any(), gomock.Any()).Return(core1_0.VKSuccess, nil)
	driver.EXPECT().EndCommandBuffer(gomock.Any()).Return(core1_0.VKSuccess, nil)
	driver.EXPECT().QueueSubmit(gomock.Any(), nil, gomock.Any()).
		Return(core1_0.VKErrorDeviceLost, core1_0.VKErrorDeviceLost.ToError())
	driver.EXPECT().DestroyCommandPool(gomock.Any(), nil)

	oneShot, err := Begin(testLogger(), driver, core1_0.Queue{}, testQueueFamily)
	require.NoError(t, err)

	require.Error(t, oneShot.Finish())
	// Cancel after Finish does nothing, and a second Finish is refused
	oneShot.Cancel()
	require.True(t, errors.Is(oneShot.Finish(), ErrOneShotFinished))
}

func TestTransitionImageRejectsUnknownTransition(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, _ := readyAllocator(t, ctrl)

	image := mocks.NewDummyImage(driver.Device())
	err := TransitionImage(driver, core1_0.CommandBuffer{}, image, ColorRange(0, 1),
		core1_0.ImageLayoutShaderReadOnlyOptimal, core1_0.ImageLayoutTransferDstOptimal)
	require.True(t, errors.Is(err, ErrUnsupportedTransition))
}

func inOrder(calls ...*gomock.Call) {
	for i := 1; i < len(calls); i++ {
		calls[i].After(calls[i-1])
	}
}

func barrier(image core1_0.Image, baseLevel, levelCount int, oldLayout, newLayout core1_0.ImageLayout, srcAccess, dstAccess core1_0.AccessFlags) []core1_0.ImageMemoryBarrier {
	return []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange:    ColorRange(baseLevel, levelCount),
			SrcAccessMask:       srcAccess,
			DstAccessMask:       dstAccess,
		},
	}
}

func TestGenerateMipmapsOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, _ := readyAllocator(t, ctrl)

	image := mocks.NewDummyImage(driver.Device())

	var expected []*gomock.Call
	for _, step := range PlanMipChain(4, 4, 3) {
		expected = append(expected,
			driver.EXPECT().CmdPipelineBarrier(gomock.Any(),
				core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTransfer, gomock.Any(), nil, nil,
				barrier(image, step.DstLevel, 1,
					core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal,
					0, core1_0.AccessTransferWrite),
			).Return(nil),
			driver.EXPECT().CmdBlitImage(gomock.Any(),
				image, core1_0.ImageLayoutTransferSrcOptimal, image, core1_0.ImageLayoutTransferDstOptimal,
				[]core1_0.ImageBlit{
					{
						SrcSubresource: core1_0.ImageSubresourceLayers{AspectMask: core1_0.ImageAspectColor, MipLevel: step.SrcLevel, LayerCount: 1},
						SrcOffsets:     [2]core1_0.Offset3D{{}, {X: step.SrcWidth, Y: step.SrcHeight, Z: 1}},
						DstSubresource: core1_0.ImageSubresourceLayers{AspectMask: core1_0.ImageAspectColor, MipLevel: step.DstLevel, LayerCount: 1},
						DstOffsets:     [2]core1_0.Offset3D{{}, {X: step.DstWidth, Y: step.DstHeight, Z: 1}},
					},
				}, core1_0.FilterLinear,
			).Return(nil),
			driver.EXPECT().CmdPipelineBarrier(gomock.Any(),
				core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, gomock.Any(), nil, nil,
				barrier(image, step.DstLevel, 1,
					core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutTransferSrcOptimal,
					core1_0.AccessTransferWrite, core1_0.AccessTransferRead),
			).Return(nil),
		)
	}

	// One barrier over the whole chain once every level is written
	expected = append(expected,
		driver.EXPECT().CmdPipelineBarrier(gomock.Any(),
			core1_0.PipelineStageTransfer, core1_0.PipelineStageFragmentShader, gomock.Any(), nil, nil,
			barrier(image, 0, 3,
				core1_0.ImageLayoutTransferSrcOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal,
				core1_0.AccessTransferRead, core1_0.AccessShaderRead),
		).Return(nil),
	)
	inOrder(expected...)

	require.NoError(t, GenerateMipmaps(driver, core1_0.CommandBuffer{}, image, 4, 4, 3))
}

type stagedMemory struct {
	memory  core1_0.DeviceMemory
	backing []byte
}

// expectBuffer sets up the creation of one buffer with its own memory of the given type
func expectBuffer(driver *mocks1_2.MockCoreDeviceDriver, size int, usage core1_0.BufferUsageFlags, memoryType int) (core1_0.Buffer, stagedMemory) {
	buffer := mocks.NewDummyBuffer(driver.Device())
	staged := stagedMemory{
		memory:  mocks.NewDummyDeviceMemory(driver.Device(), size),
		backing: make([]byte, size),
	}

	driver.EXPECT().CreateBuffer(gomock.Any(), core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	}).Return(buffer, core1_0.VKSuccess, nil)
	driver.EXPECT().GetBufferMemoryRequirements(buffer).Return(&core1_0.MemoryRequirements{
		Size:           size,
		Alignment:      4,
		MemoryTypeBits: 0b11,
	})
	driver.EXPECT().AllocateMemory(gomock.Any(), core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryType,
	}).Return(staged.memory, core1_0.VKSuccess, nil)
	driver.EXPECT().BindBufferMemory(buffer, staged.memory, 0).Return(core1_0.VKSuccess, nil)

	if memoryType == 0 {
		driver.EXPECT().MapMemory(staged.memory, 0, size, core1_0.MemoryMapFlags(0)).
			Return(unsafe.Pointer(&staged.backing[0]), core1_0.VKSuccess, nil)
		driver.EXPECT().UnmapMemory(staged.memory)
	}

	return buffer, staged
}

func TestUploadBufferRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, allocator := readyAllocator(t, ctrl)

	data := []byte{10, 20, 30, 40, 50, 60, 70, 80}

	stagingBuffer, staging := expectBuffer(driver, len(data), core1_0.BufferUsageTransferSrc, 0)
	deviceBuffer, device := expectBuffer(driver, len(data), core1_0.BufferUsageVertexBuffer|core1_0.BufferUsageTransferDst, 1)

	expectOneShot(driver, func() {
		driver.EXPECT().CmdCopyBuffer(gomock.Any(), stagingBuffer, deviceBuffer, core1_0.BufferCopy{Size: len(data)}).
			DoAndReturn(func(commandBuffer core1_0.CommandBuffer, src core1_0.Buffer, dst core1_0.Buffer, regions ...core1_0.BufferCopy) error {
				copy(device.backing, staging.backing[:regions[0].Size])
				return nil
			})
	})

	// The staging buffer is released once the upload has completed
	driver.EXPECT().DestroyBuffer(stagingBuffer, nil)
	driver.EXPECT().FreeMemory(staging.memory, nil)

	uploader := NewUploader(testLogger(), allocator, Options{QueueFamilyIndex: testQueueFamily})
	buffer, err := uploader.UploadBuffer(data, core1_0.BufferUsageVertexBuffer, "vertices")
	require.NoError(t, err)
	require.Equal(t, deviceBuffer, buffer.Handle())
	require.Equal(t, data, device.backing)
	require.Equal(t, 1, allocator.LiveAllocations())

	driver.EXPECT().DestroyBuffer(deviceBuffer, nil)
	driver.EXPECT().FreeMemory(device.memory, nil)
	require.NoError(t, buffer.Destroy())
	require.NoError(t, allocator.Destroy())
}

type noLinearBlit struct{}

func (noLinearBlit) SupportsLinearBlit(format core1_0.Format) bool { return false }

func TestUploadTextureRequiresLinearBlit(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, allocator := readyAllocator(t, ctrl)

	uploader := NewUploader(testLogger(), allocator, Options{Formats: noLinearBlit{}})
	_, err := uploader.UploadTexture(make([]byte, 16), 2, 2, core1_0.FormatR8G8B8A8SRGB)
	require.True(t, errors.Is(err, ErrLinearBlitUnsupported))

	// The pixel count must match the extent
	uploader = NewUploader(testLogger(), allocator, Options{})
	_, err = uploader.UploadTexture(make([]byte, 15), 2, 2, core1_0.FormatR8G8B8A8SRGB)
	require.Error(t, err)
}

func TestUploadTexture(t *testing.T) {
	ctrl := gomock.NewController(t)
	driver, allocator := readyAllocator(t, ctrl)

	pixels := make([]byte, 4*2*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}

	stagingBuffer, staging := expectBuffer(driver, len(pixels), core1_0.BufferUsageTransferSrc, 0)

	image := mocks.NewDummyImage(driver.Device())
	imageMemory := mocks.NewDummyDeviceMemory(driver.Device(), 4096)
	driver.EXPECT().CreateImage(gomock.Any(), core1_0.ImageCreateInfo{
		ImageType:     core1_0.ImageType2D,
		Extent:        core1_0.Extent3D{Width: 4, Height: 2, Depth: 1},
		MipLevels:     3,
		ArrayLayers:   1,
		Format:        core1_0.FormatR8G8B8A8SRGB,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         core1_0.ImageUsageTransferSrc | core1_0.ImageUsageTransferDst | core1_0.ImageUsageSampled,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	}).Return(image, core1_0.VKSuccess, nil)
	driver.EXPECT().GetImageMemoryRequirements(image).Return(&core1_0.MemoryRequirements{
		Size:           4096,
		Alignment:      256,
		MemoryTypeBits: 0b11,
	})
	driver.EXPECT().AllocateMemory(gomock.Any(), core1_0.MemoryAllocateInfo{
		AllocationSize:  4096,
		MemoryTypeIndex: 1,
	}).Return(imageMemory, core1_0.VKSuccess, nil)
	driver.EXPECT().BindImageMemory(image, imageMemory, 0).Return(core1_0.VKSuccess, nil)

	var texels []byte
	expectOneShot(driver, func() {
		gomock.InOrder(
			driver.EXPECT().CmdPipelineBarrier(gomock.Any(),
				core1_0.PipelineStageTopOfPipe, core1_0.PipelineStageTransfer, gomock.Any(), nil, nil,
				barrier(image, 0, 1,
					core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal,
					0, core1_0.AccessTransferWrite),
			).Return(nil),
			driver.EXPECT().CmdCopyBufferToImage(gomock.Any(), stagingBuffer, image, core1_0.ImageLayoutTransferDstOptimal, gomock.Any()).
				DoAndReturn(func(commandBuffer core1_0.CommandBuffer, buffer core1_0.Buffer, image core1_0.Image, layout core1_0.ImageLayout, regions ...core1_0.BufferImageCopy) error {
					extent := regions[0].ImageExtent
					texels = append([]byte(nil), staging.backing[:extent.Width*extent.Height*4]...)
					return nil
				}),
			driver.EXPECT().CmdPipelineBarrier(gomock.Any(),
				core1_0.PipelineStageTransfer, core1_0.PipelineStageTransfer, gomock.Any(), nil, nil,
				barrier(image, 0, 1,
					core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutTransferSrcOptimal,
					core1_0.AccessTransferWrite, core1_0.AccessTransferRead),
			).Return(nil),
		)
		// Two levels beyond the base: transition in, blit, transition out for each, then the final barrier
		driver.EXPECT().CmdPipelineBarrier(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), nil, nil, gomock.Any()).
			Return(nil).Times(5)
		driver.EXPECT().CmdBlitImage(gomock.Any(), image, gomock.Any(), image, gomock.Any(), gomock.Any(), core1_0.FilterLinear).
			Return(nil).Times(2)
	})

	driver.EXPECT().DestroyBuffer(stagingBuffer, nil)
	driver.EXPECT().FreeMemory(staging.memory, nil)

	driver.EXPECT().CreateImageView(gomock.Any(), core1_0.ImageViewCreateInfo{
		Image:            image,
		ViewType:         core1_0.ImageViewType2D,
		Format:           core1_0.FormatR8G8B8A8SRGB,
		SubresourceRange: ColorRange(0, 3),
	}).Return(core1_0.ImageView{}, core1_0.VKSuccess, nil)
	driver.EXPECT().CreateSampler(gomock.Any(), core1_0.SamplerCreateInfo{
		MagFilter:        core1_0.FilterLinear,
		MinFilter:        core1_0.FilterLinear,
		AddressModeU:     core1_0.SamplerAddressModeRepeat,
		AddressModeV:     core1_0.SamplerAddressModeRepeat,
		AddressModeW:     core1_0.SamplerAddressModeRepeat,
		AnisotropyEnable: true,
		MaxAnisotropy:    16,
		BorderColor:      core1_0.BorderColorIntOpaqueBlack,
		MipmapMode:       core1_0.SamplerMipmapModeLinear,
		MaxLod:           3,
	}).Return(core1_0.Sampler{}, core1_0.VKSuccess, nil)

	uploader := NewUploader(testLogger(), allocator, Options{
		QueueFamilyIndex: testQueueFamily,
		MaxAnisotropy:    16,
	})
	texture, err := uploader.UploadTexture(pixels, 4, 2, core1_0.FormatR8G8B8A8SRGB)
	require.NoError(t, err)
	require.Equal(t, 3, texture.MipLevels)
	require.Equal(t, pixels, texels)

	gomock.InOrder(
		driver.EXPECT().DestroySampler(gomock.Any(), nil),
		driver.EXPECT().DestroyImageView(gomock.Any(), nil),
		driver.EXPECT().DestroyImage(image, nil),
	)
	driver.EXPECT().FreeMemory(imageMemory, nil)
	require.NoError(t, texture.Destroy())
	require.NoError(t, texture.Destroy())
}
