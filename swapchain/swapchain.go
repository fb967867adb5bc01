package swapchain

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/renderer/surface"
)

// Swapchain is the presentation swapchain for one surface along with a colour view of each of its images.
// Creation and rebuilding share one build path, so a rebuilt swapchain always has the same format, present
// mode and minimum image count as the first one.
type Swapchain struct {
	logger       *slog.Logger
	deviceDriver core1_0.DeviceDriver
	driver       Driver
	surface      *surface.Surface

	minImageCount int

	handle khr_swapchain.Swapchain
	built  bool
	extent core1_0.Extent2D
	images []core1_0.Image
	views  []core1_0.ImageView
}

// Create builds a swapchain of at least minImageCount images, sized to extent unless the surface dictates
// its own extent
func Create(logger *slog.Logger, deviceDriver core1_0.DeviceDriver, driver Driver, surf *surface.Surface, minImageCount int, extent core1_0.Extent2D) (*Swapchain, error) {
	swapchain := &Swapchain{
		logger:        logger,
		deviceDriver:  deviceDriver,
		driver:        driver,
		surface:       surf,
		minImageCount: minImageCount,
	}

	err := swapchain.build(extent)
	if err != nil {
		return nil, err
	}

	return swapchain, nil
}

func (s *Swapchain) build(requested core1_0.Extent2D) error {
	capabilities, err := s.surface.Capabilities()
	if err != nil {
		return err
	}

	err = ValidateImageCount(capabilities, s.minImageCount)
	if err != nil {
		return err
	}

	extent := ResolveExtent(capabilities, requested)
	if extent.Width <= 0 || extent.Height <= 0 {
		return errors.Wrapf(ErrZeroExtent, "%dx%d", extent.Width, extent.Height)
	}

	format := s.surface.Format()
	handle, _, err := s.driver.CreateSwapchain(khr_swapchain.SwapchainCreateInfo{
		Surface: s.surface.Handle(),

		MinImageCount:    s.minImageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,
		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: s.surface.CompositeAlpha(),
		PresentMode:    s.surface.PresentMode(),
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}

	images, _, err := s.driver.GetSwapchainImages(handle)
	if err != nil {
		s.driver.DestroySwapchain(handle)
		return errors.Wrap(err, "failed to get swapchain images")
	}

	views := make([]core1_0.ImageView, 0, len(images))
	for _, image := range images {
		view, _, err := s.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   format.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			for _, created := range views {
				s.deviceDriver.DestroyImageView(created, nil)
			}
			s.driver.DestroySwapchain(handle)
			return errors.Wrap(err, "failed to create swapchain image view")
		}

		views = append(views, view)
	}

	s.handle = handle
	s.built = true
	s.extent = extent
	s.images = images
	s.views = views

	s.logger.Debug("Swapchain::build",
		slog.Int("Width", extent.Width),
		slog.Int("Height", extent.Height),
		slog.Int("Images", len(images)),
	)

	return nil
}

func (s *Swapchain) release() {
	for _, view := range s.views {
		s.deviceDriver.DestroyImageView(view, nil)
	}
	s.views = nil
	s.images = nil

	if s.built {
		s.driver.DestroySwapchain(s.handle)
		s.handle = khr_swapchain.Swapchain{}
		s.built = false
	}
}

// Rebuild destroys the views and the swapchain and builds them again at extent. The device must be idle.
func (s *Swapchain) Rebuild(extent core1_0.Extent2D) error {
	s.release()
	return s.build(extent)
}

// Acquire requests the next presentable image, signalling semaphore when it is ready
func (s *Swapchain) Acquire(semaphore core1_0.Semaphore) (int, Status, error) {
	imageIndex, res, err := s.driver.AcquireNextImage(s.handle, semaphore)
	status, err := StatusOf(res, err)
	if err != nil {
		return -1, status, errors.Wrap(err, "failed to acquire swapchain image")
	}

	return imageIndex, status, nil
}

// Present queues imageIndex for presentation once wait is signalled
func (s *Swapchain) Present(queue core1_0.Queue, wait core1_0.Semaphore, imageIndex int) (Status, error) {
	res, err := s.driver.QueuePresent(queue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait},
		Swapchains:     []khr_swapchain.Swapchain{s.handle},
		ImageIndices:   []int{imageIndex},
	})
	status, err := StatusOf(res, err)
	if err != nil {
		return status, errors.Wrap(err, "failed to present swapchain image")
	}

	return status, nil
}

func (s *Swapchain) Handle() khr_swapchain.Swapchain {
	return s.handle
}

func (s *Swapchain) Extent() core1_0.Extent2D {
	return s.extent
}

func (s *Swapchain) Format() core1_0.Format {
	return s.surface.Format().Format
}

func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

func (s *Swapchain) Images() []core1_0.Image {
	return s.images
}

func (s *Swapchain) Views() []core1_0.ImageView {
	return s.views
}

// Destroy destroys every view and the swapchain
func (s *Swapchain) Destroy() {
	s.release()
}
