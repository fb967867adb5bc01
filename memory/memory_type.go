package memory

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// HostCoherent is the property mask required of memory used for staging and host copies
const HostCoherent = core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent

// FindMemoryTypeIndex scans the device memory types in order and returns the first one whose bit is set in
// memoryTypeBits and whose property flags contain every flag in required. ErrNoMemoryType is returned if no
// memory type qualifies.
func FindMemoryTypeIndex(properties *core1_0.PhysicalDeviceMemoryProperties, memoryTypeBits uint32, required core1_0.MemoryPropertyFlags) (int, error) {
	for typeIndex, memoryType := range properties.MemoryTypes {
		typeBit := uint32(1) << typeIndex
		if memoryTypeBits&typeBit == 0 {
			continue
		}

		if memoryType.PropertyFlags&required == required {
			return typeIndex, nil
		}
	}

	return -1, errors.Wrapf(ErrNoMemoryType, "memory type bits %#x, required properties %s", memoryTypeBits, required)
}
