package device

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
)

// DefaultValidationLayers are enabled when InstanceOptions.EnableValidation is set and no layers are named
var DefaultValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// InstanceOptions configure NewInstance
type InstanceOptions struct {
	// ApplicationName is reported to the driver in the application info
	ApplicationName string
	// WindowExtensions are the instance extensions the windowing system needs to create a surface
	WindowExtensions []string
	// EnableValidation turns on the validation layers and routes their messages into the logger
	EnableValidation bool
	// ValidationLayers overrides DefaultValidationLayers
	ValidationLayers []string
}

// Instance owns a Vulkan instance and, when validation is on, its debug messenger
type Instance struct {
	logger *slog.Logger
	driver core1_0.CoreInstanceDriver

	debugDriver ext_debug_utils.ExtensionDriver
	messenger   ext_debug_utils.DebugUtilsMessenger
}

func instanceCreateInfo[E any, L any](logger *slog.Logger, options InstanceOptions, extensions map[string]E, layers map[string]L) (core1_0.InstanceCreateInfo, error) {
	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    options.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "vkngwrapper renderer",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	requiredExtensions := append([]string{}, options.WindowExtensions...)
	if options.EnableValidation {
		requiredExtensions = append(requiredExtensions, ext_debug_utils.ExtensionName)
	}

	missing := MissingNames(extensions, requiredExtensions)
	if len(missing) > 0 {
		return createInfo, errors.Wrapf(ErrMissingExtension, "instance extensions %v", missing)
	}
	createInfo.EnabledExtensionNames = requiredExtensions

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		createInfo.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if options.EnableValidation {
		validationLayers := options.ValidationLayers
		if len(validationLayers) == 0 {
			validationLayers = DefaultValidationLayers
		}

		missing = MissingNames(layers, validationLayers)
		if len(missing) > 0 {
			return createInfo, errors.Wrapf(ErrMissingLayer, "layers %v: install the Vulkan SDK or disable validation", missing)
		}
		createInfo.EnabledLayerNames = validationLayers

		createInfo.Next = debugMessengerCreateInfo(logger)
	}

	return createInfo, nil
}

// NewInstance creates a Vulkan 1.2 instance with the window system's extensions, portability enumeration
// when the loader offers it, and optionally the validation layers. With validation on, a debug messenger
// is chained into instance creation and then created for the instance's lifetime.
func NewInstance(logger *slog.Logger, globalDriver core1_0.GlobalDriver, options InstanceOptions) (*Instance, error) {
	extensions, _, err := globalDriver.AvailableExtensions()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate instance extensions")
	}

	layers, _, err := globalDriver.AvailableLayers()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate instance layers")
	}

	logger.Debug("Instance::NewInstance",
		slog.Any("AvailableExtensions", sortedKeys(extensions)),
		slog.Any("AvailableLayers", sortedKeys(layers)),
	)

	createInfo, err := instanceCreateInfo(logger, options, extensions, layers)
	if err != nil {
		return nil, err
	}

	instanceDriver, _, err := globalDriver.CreateInstance(nil, createInfo)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create instance")
	}

	instance := &Instance{
		logger: logger,
		driver: instanceDriver,
	}

	if options.EnableValidation {
		instance.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(instanceDriver)
		instance.messenger, _, err = instance.debugDriver.CreateDebugUtilsMessenger(nil, debugMessengerCreateInfo(logger))
		if err != nil {
			instanceDriver.DestroyInstance(nil)
			return nil, errors.Wrap(err, "failed to create debug messenger")
		}
	}

	return instance, nil
}

// Driver is the instance driver
func (i *Instance) Driver() core1_0.CoreInstanceDriver {
	return i.driver
}

// Handle is the instance handle
func (i *Instance) Handle() core1_0.Instance {
	return i.driver.Instance()
}

// Destroy destroys the debug messenger, if any, and then the instance
func (i *Instance) Destroy() {
	if i.messenger.Initialized() {
		i.debugDriver.DestroyDebugUtilsMessenger(i.messenger, nil)
		i.messenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	if i.driver != nil {
		i.driver.DestroyInstance(nil)
		i.driver = nil
	}
}
