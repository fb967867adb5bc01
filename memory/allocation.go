package memory

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/internal/utils"
)

// Allocation is a single DeviceMemory object owned by one buffer or image
type Allocation struct {
	parentAllocator *Allocator

	name            string
	memory          core1_0.DeviceMemory
	size            int
	memoryTypeIndex int
	heapIndex       int
	propertyFlags   core1_0.MemoryPropertyFlags

	mapMutex      utils.OptionalMutex
	mapReferences int
	mapData       unsafe.Pointer
	persistentMap bool

	freed bool
	prev  *Allocation
	next  *Allocation
}

func (a *Allocation) init(
	parent *Allocator,
	memory core1_0.DeviceMemory,
	size int,
	memoryTypeIndex int,
	heapIndex int,
	propertyFlags core1_0.MemoryPropertyFlags,
	name string,
) {
	*a = Allocation{
		parentAllocator: parent,
		name:            name,
		memory:          memory,
		size:            size,
		memoryTypeIndex: memoryTypeIndex,
		heapIndex:       heapIndex,
		propertyFlags:   propertyFlags,
		mapMutex: utils.OptionalMutex{
			UseMutex: parent.useMutex,
		},
	}
}

// Name is the label provided in AllocationCreateInfo
func (a *Allocation) Name() string { return a.name }

// Size is the size of the underlying DeviceMemory in bytes
func (a *Allocation) Size() int { return a.size }

// MemoryTypeIndex is the index of the memory type this allocation was made from
func (a *Allocation) MemoryTypeIndex() int { return a.memoryTypeIndex }

// MemoryPropertyFlags are the property flags of the memory type this allocation was made from
func (a *Allocation) MemoryPropertyFlags() core1_0.MemoryPropertyFlags { return a.propertyFlags }

// Memory is the underlying DeviceMemory object
func (a *Allocation) Memory() core1_0.DeviceMemory { return a.memory }

// IsHostCoherent reports whether the allocation's memory is both HOST_VISIBLE and HOST_COHERENT
func (a *Allocation) IsHostCoherent() bool {
	return a.propertyFlags&HostCoherent == HostCoherent
}

// MappedData returns the host pointer of the allocation if it is currently mapped, or nil
func (a *Allocation) MappedData() unsafe.Pointer {
	a.mapMutex.Lock()
	defer a.mapMutex.Unlock()

	return a.mapData
}

// Map maps the whole allocation into host memory and returns the pointer. Mapping is reference counted: only
// the first Map calls vkMapMemory, and later calls return the same pointer. Every call to Map should be
// balanced by a call to Unmap.
func (a *Allocation) Map() (unsafe.Pointer, common.VkResult, error) {
	a.mapMutex.Lock()
	defer a.mapMutex.Unlock()

	if a.freed {
		return nil, core1_0.VKErrorUnknown, errors.New("attempted to map an allocation that has already been freed")
	}

	if a.propertyFlags&core1_0.MemoryPropertyHostVisible == 0 {
		return nil, core1_0.VKErrorMemoryMapFailed, errors.Wrapf(ErrNotHostVisible, "memory type %d", a.memoryTypeIndex)
	}

	if a.mapReferences > 0 {
		if a.mapData == nil {
			return nil, core1_0.VKErrorUnknown, errors.New("the allocation is showing existing memory mapping references, but no mapped memory")
		}

		a.mapReferences++
		return a.mapData, core1_0.VKSuccess, nil
	}

	mappedData, res, err := a.parentAllocator.driver.MapMemory(a.memory, 0, a.size, 0)
	if err != nil {
		return nil, res, errors.Wrapf(err, "failed to map memory type %d", a.memoryTypeIndex)
	}

	a.mapData = mappedData
	a.mapReferences = 1
	a.parentAllocator.heapStats.AddMapping(a.heapIndex)

	return mappedData, res, nil
}

// Unmap releases one reference acquired with Map. The memory is unmapped when the last reference is released
func (a *Allocation) Unmap() error {
	a.mapMutex.Lock()
	defer a.mapMutex.Unlock()

	return a.unmapLocked()
}

func (a *Allocation) unmapLocked() error {
	if a.mapReferences == 0 {
		return errors.New("attempted to unmap an allocation that is not mapped")
	}

	a.mapReferences--
	if a.mapReferences == 0 {
		a.parentAllocator.driver.UnmapMemory(a.memory)
		a.mapData = nil
		a.parentAllocator.heapStats.RemoveMapping(a.heapIndex)
	}

	return nil
}

// Free unmaps (if necessary) and frees the allocation's memory. It is idempotent. Buffers and images free
// their allocations when they are destroyed, so this only needs to be called for memory obtained
// from Allocator.AllocateMemory
func (a *Allocation) Free() error {
	a.mapMutex.Lock()
	if a.freed {
		a.mapMutex.Unlock()
		return nil
	}

	if a.mapReferences > 0 {
		if !a.persistentMap || a.mapReferences > 1 {
			a.mapMutex.Unlock()
			return errors.Newf("attempted to free an allocation with %d outstanding map references", a.mapReferences)
		}

		err := a.unmapLocked()
		if err != nil {
			a.mapMutex.Unlock()
			return err
		}
	}

	a.freed = true
	a.mapMutex.Unlock()

	a.parentAllocator.freeMemory(a)
	return nil
}

// PrintParameters writes the allocation's parameters to a JSON object
func (a *Allocation) PrintParameters(json *jwriter.ObjectState) {
	a.mapMutex.Lock()
	defer a.mapMutex.Unlock()

	json.Name("Name").String(a.name)
	json.Name("Size").Int(a.size)
	json.Name("MemoryTypeIndex").Int(a.memoryTypeIndex)
	json.Name("HeapIndex").Int(a.heapIndex)
	json.Name("PropertyFlags").String(a.propertyFlags.String())
	json.Name("Mapped").Bool(a.mapReferences > 0)
	json.Name("PersistentMap").Bool(a.persistentMap)
}
