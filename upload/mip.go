package upload

import "math/bits"

// MipLevels is the number of levels in a full mip chain for a w x h image: floor(log2(max(w, h))) + 1
func MipLevels(width, height int) int {
	largest := width
	if height > largest {
		largest = height
	}
	if largest < 1 {
		return 1
	}

	return bits.Len(uint(largest))
}

// MipExtent is the extent of the requested level of a mip chain rooted at w x h. Neither dimension is ever
// smaller than 1
func MipExtent(width, height, level int) (int, int) {
	mipWidth := width >> level
	if mipWidth < 1 {
		mipWidth = 1
	}

	mipHeight := height >> level
	if mipHeight < 1 {
		mipHeight = 1
	}

	return mipWidth, mipHeight
}

// MipStep is one blit of a mip chain: level SrcLevel is downsampled into level DstLevel
type MipStep struct {
	SrcLevel  int
	SrcWidth  int
	SrcHeight int

	DstLevel  int
	DstWidth  int
	DstHeight int
}

// PlanMipChain lists the blits that generate levels 1 through levels-1 from level 0, each level from the
// level before it
func PlanMipChain(width, height, levels int) []MipStep {
	if levels <= 1 {
		return nil
	}

	steps := make([]MipStep, 0, levels-1)
	for level := 1; level < levels; level++ {
		srcWidth, srcHeight := MipExtent(width, height, level-1)
		dstWidth, dstHeight := MipExtent(width, height, level)

		steps = append(steps, MipStep{
			SrcLevel:  level - 1,
			SrcWidth:  srcWidth,
			SrcHeight: srcHeight,
			DstLevel:  level,
			DstWidth:  dstWidth,
			DstHeight: dstHeight,
		})
	}

	return steps
}
