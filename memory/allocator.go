package memory

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/memutils"
)

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags

	// HeapSizeLimits can be left empty. If it is provided, though, it must be a slice
	// with a number of entries corresponding to the number of heaps in the PhysicalDevice
	// used to create this Allocator. Each entry must be either the maximum number of bytes
	// that should be allocated from the corresponding device memory heap, or -1 indicating
	// no limit.
	//
	// Heap memory limits are enforced at allocation time: CreateBuffer and CreateImage fail
	// with ErrHeapLimit rather than allocating past them.
	HeapSizeLimits []int
}

// Allocator creates buffers and images, each paired with exactly one exclusive DeviceMemory
// object sized to the resource's reported memory requirements. There is no suballocation.
type Allocator struct {
	useMutex       bool
	logger         *slog.Logger
	driver         core1_0.CoreDeviceDriver
	physicalDevice core1_0.PhysicalDevice

	memoryProperties *core1_0.PhysicalDeviceMemoryProperties
	heapLimits       []int
	heapStats        memutils.HeapStatistics

	allocations allocationList
}

// New creates a new Allocator
//
// driver - The device driver that memory will be allocated from. Its InstanceDriver is used to query
// the memory properties of physicalDevice
//
// physicalDevice - The PhysicalDevice that owns the device behind driver
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, driver core1_0.CoreDeviceDriver, physicalDevice core1_0.PhysicalDevice, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		return nil, errors.New("memory.New: logger cannot be nil")
	}
	if driver == nil {
		return nil, errors.New("memory.New: driver cannot be nil")
	}

	useMutex := options.Flags&AllocatorCreateExternallySynchronized == 0

	memoryProperties := driver.InstanceDriver().GetPhysicalDeviceMemoryProperties(physicalDevice)
	heapCount := len(memoryProperties.MemoryHeaps)
	if heapCount > common.MaxMemoryHeaps {
		return nil, errors.Newf("physical device reports %d memory heaps, more than the maximum of %d", heapCount, common.MaxMemoryHeaps)
	}

	heapLimits := make([]int, heapCount)
	if len(options.HeapSizeLimits) > 0 {
		if len(options.HeapSizeLimits) != heapCount {
			return nil, errors.Newf("memory.CreateOptions.HeapSizeLimits has %d entries, but the physical device has %d memory heaps", len(options.HeapSizeLimits), heapCount)
		}

		for heapIndex, limit := range options.HeapSizeLimits {
			if limit == 0 || limit < -1 {
				return nil, errors.Newf("memory.CreateOptions.HeapSizeLimits[%d] is %d: it must be positive or -1", heapIndex, limit)
			}
			heapLimits[heapIndex] = limit
		}
	}

	allocator := &Allocator{
		useMutex:         useMutex,
		logger:           logger,
		driver:           driver,
		physicalDevice:   physicalDevice,
		memoryProperties: memoryProperties,
		heapLimits:       heapLimits,
	}
	allocator.allocations.Init(useMutex)

	return allocator, nil
}

// Driver is the device driver this allocator creates resources with
func (a *Allocator) Driver() core1_0.CoreDeviceDriver {
	return a.driver
}

// MemoryProperties returns the memory types and heaps of the allocator's physical device
func (a *Allocator) MemoryProperties() *core1_0.PhysicalDeviceMemoryProperties {
	return a.memoryProperties
}

// FindMemoryTypeIndex returns the first memory type on this allocator's device that is permitted by
// memoryTypeBits and carries every flag in required
func (a *Allocator) FindMemoryTypeIndex(memoryTypeBits uint32, required core1_0.MemoryPropertyFlags) (int, error) {
	a.logger.Debug("Allocator::FindMemoryTypeIndex")

	return FindMemoryTypeIndex(a.memoryProperties, memoryTypeBits, required)
}

// AllocateMemory allocates a DeviceMemory object of exactly requirements.Size bytes from the first memory
// type permitted by requirements that carries createInfo.RequiredFlags. It is the primitive that CreateBuffer
// and CreateImage build on; it is rarely called directly.
func (a *Allocator) AllocateMemory(requirements *core1_0.MemoryRequirements, createInfo AllocationCreateInfo) (*Allocation, error) {
	a.logger.Debug("Allocator::AllocateMemory")

	if requirements == nil {
		return nil, errors.New("requirements cannot be nil")
	}
	if requirements.Size <= 0 {
		return nil, errors.Newf("memory requirements report a size of %d", requirements.Size)
	}

	required := createInfo.RequiredFlags
	if createInfo.Flags&AllocationCreateMapped != 0 {
		required |= core1_0.MemoryPropertyHostVisible
	}

	memoryTypeIndex, err := a.FindMemoryTypeIndex(requirements.MemoryTypeBits, required)
	if err != nil {
		return nil, err
	}

	return a.allocateMemoryOfType(requirements.Size, memoryTypeIndex, createInfo)
}

func (a *Allocator) allocateMemoryOfType(size int, memoryTypeIndex int, createInfo AllocationCreateInfo) (*Allocation, error) {
	a.logger.Debug("Allocator::allocateMemoryOfType",
		slog.Int("MemoryTypeIndex", memoryTypeIndex),
		slog.Int("Size", size),
	)

	memoryType := a.memoryProperties.MemoryTypes[memoryTypeIndex]
	heapIndex := memoryType.HeapIndex

	_, err := a.heapStats.Reserve(heapIndex, size, a.heapLimits[heapIndex])
	if err != nil {
		return nil, errors.Wrapf(ErrHeapLimit, "heap %d: %d bytes requested over a limit of %d", heapIndex, size, a.heapLimits[heapIndex])
	}

	memory, _, err := a.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		a.heapStats.Release(heapIndex, size)
		return nil, errors.Wrapf(err, "failed to allocate %d bytes from memory type %d", size, memoryTypeIndex)
	}

	allocation := &Allocation{}
	allocation.init(a, memory, size, memoryTypeIndex, heapIndex, memoryType.PropertyFlags, createInfo.Name)

	if createInfo.Flags&AllocationCreateMapped != 0 {
		_, _, err = allocation.Map()
		if err != nil {
			a.driver.FreeMemory(memory, nil)
			a.heapStats.Release(heapIndex, size)
			return nil, err
		}
		allocation.persistentMap = true
	}

	a.allocations.Register(allocation)

	return allocation, nil
}

func (a *Allocator) freeMemory(allocation *Allocation) {
	a.logger.Debug("Allocator::freeMemory",
		slog.Int("MemoryTypeIndex", allocation.memoryTypeIndex),
		slog.Int("Size", allocation.size),
	)

	a.allocations.Unregister(allocation)
	a.driver.FreeMemory(allocation.memory, nil)
	a.heapStats.Release(allocation.heapIndex, allocation.size)
}

// Statistics returns the allocation counts of each memory heap on the device, indexed by heap
func (a *Allocator) Statistics() []memutils.Statistics {
	stats := make([]memutils.Statistics, len(a.memoryProperties.MemoryHeaps))
	for heapIndex := range stats {
		stats[heapIndex] = a.heapStats.Snapshot(heapIndex)
	}

	return stats
}

// TotalStatistics returns the allocation counts of the whole device
func (a *Allocator) TotalStatistics() memutils.Statistics {
	var total memutils.Statistics
	for _, heapStats := range a.Statistics() {
		total.AddStatistics(&heapStats)
	}

	return total
}

// LiveAllocations returns the number of allocations that have not yet been freed
func (a *Allocator) LiveAllocations() int {
	return a.allocations.Count()
}

// Validate checks the internal consistency of the allocator's bookkeeping
func (a *Allocator) Validate() error {
	err := a.allocations.Validate()
	if err != nil {
		return err
	}

	total := a.TotalStatistics()
	if total.AllocationCount != a.allocations.Count() {
		return errors.Newf("heap statistics report %d allocations but %d are registered", total.AllocationCount, a.allocations.Count())
	}

	return nil
}

// Destroy ends the allocator's lifetime. It fails without doing anything if any buffer, image or allocation
// created from this allocator is still alive
func (a *Allocator) Destroy() error {
	a.logger.Debug("Allocator::Destroy")
	memutils.DebugValidate(a)

	if !a.allocations.IsEmpty() {
		return errors.Newf("the allocator still has %d live allocations", a.allocations.Count())
	}

	return nil
}
