package memory

import "github.com/vkngwrapper/core/v3/core1_0"

// AllocationCreateInfo is used to parameterize the memory behind a buffer or image
type AllocationCreateInfo struct {
	// Flags is a bitmask of AllocationCreateFlags
	Flags AllocationCreateFlags
	// RequiredFlags indicates what memory properties the selected memory type must carry. The first
	// memory type, in device order, that is permitted by the resource and carries all of these flags
	// is selected.
	RequiredFlags core1_0.MemoryPropertyFlags
	// Name is an optional label that is included in the allocator's statistics dump
	Name string
}

// BufferCreateInfo describes a buffer to be created by Allocator.CreateBuffer. The buffer is always
// created with exclusive sharing.
type BufferCreateInfo struct {
	// Size is the size of the buffer in bytes
	Size int
	// Usage is a bitmask of the ways the buffer will be used
	Usage core1_0.BufferUsageFlags
}
