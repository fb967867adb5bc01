package surface

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// Querier is the query subset of khr_surface.ExtensionDriver
type Querier interface {
	GetPhysicalDeviceSurfaceCapabilities(surface khr_surface.Surface, device core1_0.PhysicalDevice) (*khr_surface.SurfaceCapabilities, common.VkResult, error)
	GetPhysicalDeviceSurfaceFormats(surface khr_surface.Surface, device core1_0.PhysicalDevice) ([]khr_surface.SurfaceFormat, common.VkResult, error)
	GetPhysicalDeviceSurfacePresentModes(surface khr_surface.Surface, device core1_0.PhysicalDevice) ([]khr_surface.PresentMode, common.VkResult, error)
}

// Surface is a presentation surface that has been checked against a Policy for one physical device
type Surface struct {
	logger    *slog.Logger
	querier   Querier
	extension khr_surface.ExtensionDriver

	handle         khr_surface.Surface
	physicalDevice core1_0.PhysicalDevice

	format         khr_surface.SurfaceFormat
	presentMode    khr_surface.PresentMode
	compositeAlpha khr_surface.CompositeAlphaFlags
}

// Query resolves policy against what the surface offers on physicalDevice. Query does not take ownership
// of handle: Surface.Destroy is a no-op for surfaces built this way.
func Query(logger *slog.Logger, querier Querier, handle khr_surface.Surface, physicalDevice core1_0.PhysicalDevice, policy Policy) (*Surface, error) {
	formats, _, err := querier.GetPhysicalDeviceSurfaceFormats(handle, physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface formats")
	}

	format, err := ChooseFormat(formats, policy.Format)
	if err != nil {
		return nil, err
	}

	presentModes, _, err := querier.GetPhysicalDeviceSurfacePresentModes(handle, physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface present modes")
	}

	presentMode, err := ChoosePresentMode(presentModes, policy.PresentMode, policy.FallbackPresentModes)
	if err != nil {
		return nil, err
	}

	capabilities, _, err := querier.GetPhysicalDeviceSurfaceCapabilities(handle, physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface capabilities")
	}

	surface := &Surface{
		logger:         logger,
		querier:        querier,
		handle:         handle,
		physicalDevice: physicalDevice,
		format:         format,
		presentMode:    presentMode,
		compositeAlpha: ChooseCompositeAlpha(capabilities.SupportedCompositeAlpha),
	}

	logger.Debug("Surface::Query",
		slog.Any("Format", format.Format),
		slog.Any("PresentMode", presentMode),
		slog.Any("CompositeAlpha", surface.compositeAlpha),
	)

	return surface, nil
}

// Open is Query over a real extension driver. The returned Surface owns handle and destroys it in Destroy.
func Open(logger *slog.Logger, extension khr_surface.ExtensionDriver, handle khr_surface.Surface, physicalDevice core1_0.PhysicalDevice, policy Policy) (*Surface, error) {
	surface, err := Query(logger, extension, handle, physicalDevice, policy)
	if err != nil {
		return nil, err
	}

	surface.extension = extension
	return surface, nil
}

func (s *Surface) Handle() khr_surface.Surface {
	return s.handle
}

func (s *Surface) PhysicalDevice() core1_0.PhysicalDevice {
	return s.physicalDevice
}

func (s *Surface) Format() khr_surface.SurfaceFormat {
	return s.format
}

func (s *Surface) PresentMode() khr_surface.PresentMode {
	return s.presentMode
}

func (s *Surface) CompositeAlpha() khr_surface.CompositeAlphaFlags {
	return s.compositeAlpha
}

// Capabilities re-queries the surface capabilities. They change with the window size, so every swapchain
// build calls this.
func (s *Surface) Capabilities() (*khr_surface.SurfaceCapabilities, error) {
	capabilities, _, err := s.querier.GetPhysicalDeviceSurfaceCapabilities(s.handle, s.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface capabilities")
	}

	return capabilities, nil
}

// Destroy destroys the surface handle if this Surface owns it
func (s *Surface) Destroy() {
	if s.extension == nil {
		return
	}

	s.extension.DestroySurface(s.handle, nil)
	s.extension = nil
}
