package frame

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/swapchain"
)

// Backend performs the GPU side of each frame step for an Engine. Slot indices are in
// [0, FramesInFlight) and image indices are swapchain image indices returned by Acquire.
type Backend interface {
	// WaitSlot blocks until the GPU has finished the last submission made from slot
	WaitSlot(slot int) error
	// Acquire requests the next swapchain image, signalling the slot's image-available semaphore
	Acquire(slot int) (int, swapchain.Status, error)
	// Record writes the slot's per-frame data and records its command buffer for image
	Record(slot, image int, extent core1_0.Extent2D) error
	// Submit resets the slot's fence and queues the recorded commands to signal it
	Submit(slot, image int) error
	// Present queues image for presentation after the slot's render-finished semaphore
	Present(slot, image int) (swapchain.Status, error)
	// Rebuild recreates every extent-dependent resource for extent. The engine only calls it with a
	// non-zero extent.
	Rebuild(extent core1_0.Extent2D) error
	// Extent is the extent the swapchain-dependent resources were last built for
	Extent() core1_0.Extent2D
}
