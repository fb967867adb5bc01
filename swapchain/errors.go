package swapchain

import "github.com/cockroachdb/errors"

var (
	// ErrImageCount is returned when the requested minimum image count is outside the surface's limits
	ErrImageCount = errors.New("image count outside surface limits")
	// ErrZeroExtent is returned when a swapchain would be built with zero width or height
	ErrZeroExtent = errors.New("swapchain extent has zero area")
)
