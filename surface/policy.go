package surface

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"golang.org/x/exp/slices"
)

// Policy is the fixed presentation configuration a surface must support
type Policy struct {
	Format      khr_surface.SurfaceFormat
	PresentMode khr_surface.PresentMode
	// FallbackPresentModes are tried in order when PresentMode is not offered. Empty means fail fast.
	FallbackPresentModes []khr_surface.PresentMode
}

// DefaultPolicy is B8G8R8A8_SRGB in the sRGB non-linear colour space, presented immediately
func DefaultPolicy() Policy {
	return Policy{
		Format: khr_surface.SurfaceFormat{
			Format:     core1_0.FormatB8G8R8A8SRGB,
			ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
		},
		PresentMode: khr_surface.PresentModeImmediate,
	}
}

var presentModeNames = map[string]khr_surface.PresentMode{
	"immediate": khr_surface.PresentModeImmediate,
	"mailbox":   khr_surface.PresentModeMailbox,
	"fifo":      khr_surface.PresentModeFIFO,
}

// ParsePresentMode maps a configuration name (immediate, mailbox, fifo) to a present mode
func ParsePresentMode(name string) (khr_surface.PresentMode, error) {
	mode, ok := presentModeNames[strings.ToLower(name)]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownPresentMode, "%q", name)
	}

	return mode, nil
}

// ChooseFormat returns want if the surface offers exactly that format and colour space
func ChooseFormat(available []khr_surface.SurfaceFormat, want khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	for _, format := range available {
		if format.Format == want.Format && format.ColorSpace == want.ColorSpace {
			return format, nil
		}
	}

	return khr_surface.SurfaceFormat{}, errors.Wrapf(ErrFormatUnsupported, "format %v, colour space %v", want.Format, want.ColorSpace)
}

// ChoosePresentMode returns want if it is available, else the first available entry of fallbacks
func ChoosePresentMode(available []khr_surface.PresentMode, want khr_surface.PresentMode, fallbacks []khr_surface.PresentMode) (khr_surface.PresentMode, error) {
	if slices.Contains(available, want) {
		return want, nil
	}

	for _, fallback := range fallbacks {
		if slices.Contains(available, fallback) {
			return fallback, nil
		}
	}

	return 0, errors.Wrapf(ErrPresentModeUnsupported, "present mode %v", want)
}

var compositeAlphaOrder = []khr_surface.CompositeAlphaFlags{
	khr_surface.CompositeAlphaOpaque,
	khr_surface.CompositeAlphaPreMultiplied,
	khr_surface.CompositeAlphaPostMultiplied,
	khr_surface.CompositeAlphaInherit,
}

// ChooseCompositeAlpha returns the first supported mode of opaque, pre-multiplied, post-multiplied and
// inherit. Opaque is returned if the surface reports none.
func ChooseCompositeAlpha(supported khr_surface.CompositeAlphaFlags) khr_surface.CompositeAlphaFlags {
	for _, mode := range compositeAlphaOrder {
		if supported&mode != 0 {
			return mode
		}
	}

	return khr_surface.CompositeAlphaOpaque
}
