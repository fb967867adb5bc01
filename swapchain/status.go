package swapchain

import (
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// Status is the presentation state reported by acquire and present. Suboptimal and out-of-date are
// expected while the window changes and are not errors.
type Status int

const (
	StatusOptimal Status = iota
	// StatusSuboptimal means the image was acquired or presented but the swapchain should be rebuilt
	StatusSuboptimal
	// StatusOutOfDate means the swapchain can no longer be used and must be rebuilt
	StatusOutOfDate
)

var statusNames = map[Status]string{
	StatusOptimal:    "Optimal",
	StatusSuboptimal: "Suboptimal",
	StatusOutOfDate:  "OutOfDate",
}

func (s Status) String() string {
	name, ok := statusNames[s]
	if !ok {
		return "Unknown"
	}
	return name
}

// NeedsRebuild is true for suboptimal and out-of-date
func (s Status) NeedsRebuild() bool {
	return s != StatusOptimal
}

// StatusOf folds the presentation result codes into a Status. Any other failure is returned as an error.
func StatusOf(res common.VkResult, err error) (Status, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return StatusOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return StatusSuboptimal, nil
	}

	if err != nil {
		return StatusOptimal, err
	}

	return StatusOptimal, nil
}
