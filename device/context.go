package device

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// PresentSupport answers whether a queue family of a physical device can present to a surface. It is
// satisfied by khr_surface.ExtensionDriver
type PresentSupport interface {
	GetPhysicalDeviceSurfaceSupport(surface khr_surface.Surface, physicalDevice core1_0.PhysicalDevice, queueFamilyIndex int) (bool, common.VkResult, error)
}

// ContextOptions configure Instance.CreateContext
type ContextOptions struct {
	// DeviceExtensions are required in addition to khr_swapchain
	DeviceExtensions []string
}

// Context is the logical device, its physical device, and the single queue used for graphics, transfer
// and presentation
type Context struct {
	logger         *slog.Logger
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver
	physicalDevice core1_0.PhysicalDevice
	properties     *core1_0.PhysicalDeviceProperties

	queue             core1_0.Queue
	queueFamilyIndex  int
	samplerAnisotropy bool
	enabledExtensions []string
}

type candidate struct {
	physicalDevice   core1_0.PhysicalDevice
	queueFamilyIndex int
	extensions       []string
	anisotropy       bool
}

func (i *Instance) evaluate(presentSupport PresentSupport, surface khr_surface.Surface, physicalDevice core1_0.PhysicalDevice, required []string) (*candidate, error) {
	var families []core1_0.QueueFlags
	for _, family := range i.driver.GetPhysicalDeviceQueueFamilyProperties(physicalDevice) {
		families = append(families, family.QueueFlags)
	}

	queueFamilyIndex, found, err := SelectQueueFamily(families, func(queueFamilyIndex int) (bool, error) {
		supported, _, err := presentSupport.GetPhysicalDeviceSurfaceSupport(surface, physicalDevice, queueFamilyIndex)
		return supported, err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query surface support")
	}
	if !found {
		return nil, nil
	}

	available, _, err := i.driver.EnumerateDeviceExtensionProperties(physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate device extensions")
	}

	missing := MissingNames(available, required)
	if len(missing) > 0 {
		i.logger.Debug("Instance::CreateContext: device is missing extensions", slog.Any("Missing", missing))
		return nil, nil
	}

	extensions := append([]string{}, required...)

	// Portability implementations require the subset extension to be enabled when they expose it
	_, portability := available[khr_portability_subset.ExtensionName]
	if portability {
		extensions = append(extensions, khr_portability_subset.ExtensionName)
	}

	features := i.driver.GetPhysicalDeviceFeatures(physicalDevice)

	return &candidate{
		physicalDevice:   physicalDevice,
		queueFamilyIndex: queueFamilyIndex,
		extensions:       extensions,
		anisotropy:       features != nil && features.SamplerAnisotropy,
	}, nil
}

// CreateContext picks the first physical device, in enumeration order, that has a queue family with graphics
// and present support for surface and exposes the required device extensions, then creates a logical
// device with one queue from that family
func (i *Instance) CreateContext(presentSupport PresentSupport, surface khr_surface.Surface, options ContextOptions) (*Context, error) {
	physicalDevices, _, err := i.driver.EnumeratePhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate physical devices")
	}

	required := append([]string{khr_swapchain.ExtensionName}, options.DeviceExtensions...)

	var selected *candidate
	for _, physicalDevice := range physicalDevices {
		selected, err = i.evaluate(presentSupport, surface, physicalDevice, required)
		if err != nil {
			return nil, err
		}
		if selected != nil {
			break
		}
	}

	if selected == nil {
		return nil, errors.Wrapf(ErrNoSuitableDevice, "%d physical devices considered", len(physicalDevices))
	}

	properties, err := i.driver.GetPhysicalDeviceProperties(selected.physicalDevice)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query physical device properties")
	}

	i.logger.Info("selected physical device",
		slog.String("Name", properties.DeviceName),
		slog.Int("QueueFamilyIndex", selected.queueFamilyIndex),
	)

	deviceDriver, _, err := i.driver.CreateDevice(selected.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: selected.queueFamilyIndex,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: selected.anisotropy,
		},
		EnabledExtensionNames: selected.extensions,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create logical device")
	}

	return &Context{
		logger:            i.logger,
		instanceDriver:    i.driver,
		deviceDriver:      deviceDriver,
		physicalDevice:    selected.physicalDevice,
		properties:        properties,
		queue:             deviceDriver.GetQueue(selected.queueFamilyIndex, 0),
		queueFamilyIndex:  selected.queueFamilyIndex,
		samplerAnisotropy: selected.anisotropy,
		enabledExtensions: selected.extensions,
	}, nil
}

// InstanceDriver is the driver of the instance the context was created from
func (c *Context) InstanceDriver() core1_0.CoreInstanceDriver { return c.instanceDriver }

// DeviceDriver is the logical device driver
func (c *Context) DeviceDriver() core1_0.CoreDeviceDriver { return c.deviceDriver }

// PhysicalDevice is the selected physical device
func (c *Context) PhysicalDevice() core1_0.PhysicalDevice { return c.physicalDevice }

// Properties are the selected physical device's properties
func (c *Context) Properties() *core1_0.PhysicalDeviceProperties { return c.properties }

// Queue is the one queue used for graphics, transfer and presentation
func (c *Context) Queue() core1_0.Queue { return c.queue }

// QueueFamilyIndex is the family Queue belongs to
func (c *Context) QueueFamilyIndex() int { return c.queueFamilyIndex }

// MaxAnisotropy is the sampler anisotropy to use, or 0 if the device does not support anisotropic filtering
func (c *Context) MaxAnisotropy() float32 {
	if !c.samplerAnisotropy {
		return 0
	}
	return c.properties.Limits.MaxSamplerAnisotropy
}

// MaxSampleCount returns the highest sample count no higher than requested that the device supports for both
// colour and depth attachments
func (c *Context) MaxSampleCount(requested core1_0.SampleCountFlags) core1_0.SampleCountFlags {
	limits := c.properties.Limits
	return MaxSampleCount(limits.FramebufferColorSampleCounts, limits.FramebufferDepthSampleCounts, requested)
}

func (c *Context) optimalTilingFeatures(format core1_0.Format) core1_0.FormatFeatureFlags {
	return c.instanceDriver.GetPhysicalDeviceFormatProperties(c.physicalDevice, format).OptimalTilingFeatures
}

// FindDepthFormat returns the first of DepthFormatCandidates usable as an optimal-tiling depth attachment
func (c *Context) FindDepthFormat() (core1_0.Format, error) {
	format, ok := ChooseFormat(DepthFormatCandidates, c.optimalTilingFeatures, core1_0.FormatFeatureDepthStencilAttachment)
	if !ok {
		return 0, errors.Wrap(ErrNoSupportedFormat, "depth attachment")
	}

	return format, nil
}

// SupportsLinearBlit reports whether optimal-tiling images of format can be blitted with linear filtering
func (c *Context) SupportsLinearBlit(format core1_0.Format) bool {
	return c.optimalTilingFeatures(format)&core1_0.FormatFeatureSampledImageFilterLinear != 0
}

// WaitIdle blocks until the device has finished all submitted work
func (c *Context) WaitIdle() error {
	_, err := c.deviceDriver.DeviceWaitIdle()
	return err
}

// Destroy destroys the logical device. Everything created from it must already be destroyed
func (c *Context) Destroy() {
	if c.deviceDriver == nil {
		return
	}

	c.deviceDriver.DestroyDevice(nil)
	c.deviceDriver = nil
}
