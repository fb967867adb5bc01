package memory

import "github.com/cockroachdb/errors"

var (
	// ErrNoMemoryType is returned when no memory type on the device satisfies both a resource's memory
	// requirements and the requested property flags
	ErrNoMemoryType = errors.New("no suitable memory type")
	// ErrNotHostVisible is returned when a host copy is attempted against memory that is not both
	// HOST_VISIBLE and HOST_COHERENT
	ErrNotHostVisible = errors.New("memory is not host visible and host coherent")
	// ErrHeapLimit is returned when an allocation would exceed CreateOptions.HeapSizeLimits
	ErrHeapLimit = errors.New("allocation exceeds heap size limit")
)
