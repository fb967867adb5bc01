package upload

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type layoutTransition struct {
	oldLayout core1_0.ImageLayout
	newLayout core1_0.ImageLayout
}

type transitionMasks struct {
	srcAccess core1_0.AccessFlags
	dstAccess core1_0.AccessFlags
	srcStage  core1_0.PipelineStageFlags
	dstStage  core1_0.PipelineStageFlags
}

var transitions = map[layoutTransition]transitionMasks{
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal}: {
		srcAccess: 0,
		dstAccess: core1_0.AccessTransferWrite,
		srcStage:  core1_0.PipelineStageTopOfPipe,
		dstStage:  core1_0.PipelineStageTransfer,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutTransferSrcOptimal}: {
		srcAccess: core1_0.AccessTransferWrite,
		dstAccess: core1_0.AccessTransferRead,
		srcStage:  core1_0.PipelineStageTransfer,
		dstStage:  core1_0.PipelineStageTransfer,
	},
	{core1_0.ImageLayoutTransferSrcOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: core1_0.AccessTransferRead,
		dstAccess: core1_0.AccessShaderRead,
		srcStage:  core1_0.PipelineStageTransfer,
		dstStage:  core1_0.PipelineStageFragmentShader,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		srcAccess: core1_0.AccessTransferWrite,
		dstAccess: core1_0.AccessShaderRead,
		srcStage:  core1_0.PipelineStageTransfer,
		dstStage:  core1_0.PipelineStageFragmentShader,
	},
}

// ColorRange is the subresource range covering levelCount mip levels of a single-layer colour image,
// beginning at baseLevel
func ColorRange(baseLevel, levelCount int) core1_0.ImageSubresourceRange {
	return core1_0.ImageSubresourceRange{
		AspectMask:     core1_0.ImageAspectColor,
		BaseMipLevel:   baseLevel,
		LevelCount:     levelCount,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// TransitionImage records a pipeline barrier moving subresources of image from oldLayout to newLayout.
// Only the transitions used by uploads are supported: undefined to transfer-dst, transfer-dst to
// transfer-src, transfer-src to shader-read and transfer-dst to shader-read. Anything else returns
// ErrUnsupportedTransition without recording.
func TransitionImage(driver core1_0.DeviceDriver, commandBuffer core1_0.CommandBuffer, image core1_0.Image, subresources core1_0.ImageSubresourceRange, oldLayout, newLayout core1_0.ImageLayout) error {
	masks, ok := transitions[layoutTransition{oldLayout, newLayout}]
	if !ok {
		return errors.Wrapf(ErrUnsupportedTransition, "%s -> %s", oldLayout, newLayout)
	}

	err := driver.CmdPipelineBarrier(commandBuffer, masks.srcStage, masks.dstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
		{
			OldLayout:           oldLayout,
			NewLayout:           newLayout,
			SrcQueueFamilyIndex: -1,
			DstQueueFamilyIndex: -1,
			Image:               image,
			SubresourceRange:    subresources,
			SrcAccessMask:       masks.srcAccess,
			DstAccessMask:       masks.dstAccess,
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to record %s -> %s barrier", oldLayout, newLayout)
	}

	return nil
}

// CopyBuffer records a copy of the first size bytes of src into the start of dst
func CopyBuffer(driver core1_0.DeviceDriver, commandBuffer core1_0.CommandBuffer, src, dst core1_0.Buffer, size int) error {
	err := driver.CmdCopyBuffer(commandBuffer, src, dst, core1_0.BufferCopy{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	})
	if err != nil {
		return errors.Wrap(err, "failed to record buffer copy")
	}

	return nil
}

// CopyBufferToImage records a copy of tightly packed pixels from buffer into mip level 0 of image, which
// must be in the transfer-dst layout
func CopyBufferToImage(driver core1_0.DeviceDriver, commandBuffer core1_0.CommandBuffer, buffer core1_0.Buffer, image core1_0.Image, width, height int) error {
	err := driver.CmdCopyBufferToImage(commandBuffer, buffer, image, core1_0.ImageLayoutTransferDstOptimal,
		core1_0.BufferImageCopy{
			BufferOffset:      0,
			BufferRowLength:   0,
			BufferImageHeight: 0,

			ImageSubresource: core1_0.ImageSubresourceLayers{
				AspectMask:     core1_0.ImageAspectColor,
				MipLevel:       0,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
			ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to record buffer to image copy")
	}

	return nil
}

// GenerateMipmaps records the blits that fill levels 1 through levels-1 of image from level 0. Level 0 must
// already be in the transfer-src layout. Each level is moved from undefined to transfer-dst, filled with a
// linear blit from the level above it, and moved to transfer-src so the next level can read it. Once every
// level is written, a single barrier over the whole chain moves it to shader-read.
func GenerateMipmaps(driver core1_0.DeviceDriver, commandBuffer core1_0.CommandBuffer, image core1_0.Image, width, height, levels int) error {
	for _, step := range PlanMipChain(width, height, levels) {
		err := TransitionImage(driver, commandBuffer, image, ColorRange(step.DstLevel, 1),
			core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
		if err != nil {
			return err
		}

		err = driver.CmdBlitImage(commandBuffer, image, core1_0.ImageLayoutTransferSrcOptimal, image, core1_0.ImageLayoutTransferDstOptimal, []core1_0.ImageBlit{
			{
				SrcSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       step.SrcLevel,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcOffsets: [2]core1_0.Offset3D{
					{X: 0, Y: 0, Z: 0},
					{X: step.SrcWidth, Y: step.SrcHeight, Z: 1},
				},

				DstSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       step.DstLevel,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				DstOffsets: [2]core1_0.Offset3D{
					{X: 0, Y: 0, Z: 0},
					{X: step.DstWidth, Y: step.DstHeight, Z: 1},
				},
			},
		}, core1_0.FilterLinear)
		if err != nil {
			return errors.Wrapf(err, "failed to record blit into mip level %d", step.DstLevel)
		}

		err = TransitionImage(driver, commandBuffer, image, ColorRange(step.DstLevel, 1),
			core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutTransferSrcOptimal)
		if err != nil {
			return err
		}
	}

	return TransitionImage(driver, commandBuffer, image, ColorRange(0, levels),
		core1_0.ImageLayoutTransferSrcOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
}
