package memory

import "github.com/vkngwrapper/core/v3/common"

// AllocationCreateFlags exposes options for allocation behavior
type AllocationCreateFlags int32

var allocationCreateFlagsMapping = common.NewFlagStringMapping[AllocationCreateFlags]()

func (f AllocationCreateFlags) Register(str string) {
	allocationCreateFlagsMapping.Register(f, str)
}
func (f AllocationCreateFlags) String() string {
	return allocationCreateFlagsMapping.FlagsToString(f)
}

const (
	// AllocationCreateMapped instructs the allocator to map the memory when it is allocated and keep it
	// mapped until the resource is destroyed. The pointer is available via Allocation.MappedData.
	//
	// The selected memory type must be HOST_VISIBLE.
	AllocationCreateMapped AllocationCreateFlags = 1 << iota
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

var allocatorCreateFlagsMapping = common.NewFlagStringMapping[CreateFlags]()

func (f CreateFlags) Register(str string) {
	allocatorCreateFlagsMapping.Register(f, str)
}
func (f CreateFlags) String() string {
	return allocatorCreateFlagsMapping.FlagsToString(f)
}

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator and all objects created from it
	// will not be synchronized internally. The consumer must guarantee they are used from only one
	// thread at a time.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
)

func init() {
	AllocationCreateMapped.Register("AllocationCreateMapped")
	AllocatorCreateExternallySynchronized.Register("AllocatorCreateExternallySynchronized")
}
