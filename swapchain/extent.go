package swapchain

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// ValidateImageCount checks that count lies within the surface's image count limits. A maximum of 0 means
// there is no upper limit.
func ValidateImageCount(capabilities *khr_surface.SurfaceCapabilities, count int) error {
	if count < capabilities.MinImageCount {
		return errors.Wrapf(ErrImageCount, "%d images requested, surface requires at least %d", count, capabilities.MinImageCount)
	}

	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		return errors.Wrapf(ErrImageCount, "%d images requested, surface allows at most %d", count, capabilities.MaxImageCount)
	}

	return nil
}

func clamp(value, minimum, maximum int) int {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}

// ResolveExtent returns the surface's current extent when it is defined, otherwise requested clamped to the
// surface's extent limits
func ResolveExtent(capabilities *khr_surface.SurfaceCapabilities, requested core1_0.Extent2D) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(requested.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(requested.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}
