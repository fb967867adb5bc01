package swapchain

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// Driver is the part of khr_swapchain.ExtensionDriver a Swapchain uses, without allocation callbacks
type Driver interface {
	CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, common.VkResult, error)
	DestroySwapchain(swapchain khr_swapchain.Swapchain)
	GetSwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, common.VkResult, error)
	// AcquireNextImage waits without a timeout and signals semaphore when the image is ready
	AcquireNextImage(swapchain khr_swapchain.Swapchain, semaphore core1_0.Semaphore) (int, common.VkResult, error)
	QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error)
}

type extensionDriver struct {
	extension khr_swapchain.ExtensionDriver
}

// NewDriver adapts a khr_swapchain extension driver to Driver
func NewDriver(extension khr_swapchain.ExtensionDriver) Driver {
	return extensionDriver{extension: extension}
}

func (d extensionDriver) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, common.VkResult, error) {
	return d.extension.CreateSwapchain(nil, info)
}

func (d extensionDriver) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	d.extension.DestroySwapchain(swapchain, nil)
}

func (d extensionDriver) GetSwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, common.VkResult, error) {
	return d.extension.GetSwapchainImages(swapchain)
}

func (d extensionDriver) AcquireNextImage(swapchain khr_swapchain.Swapchain, semaphore core1_0.Semaphore) (int, common.VkResult, error) {
	return d.extension.AcquireNextImage(swapchain, common.NoTimeout, &semaphore, nil)
}

func (d extensionDriver) QueuePresent(queue core1_0.Queue, info khr_swapchain.PresentInfo) (common.VkResult, error) {
	return d.extension.QueuePresent(queue, info)
}
