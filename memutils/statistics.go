package memutils

import (
	"fmt"
	"sync/atomic"

	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Statistics is a point-in-time summary of the device memory owned by an allocator
type Statistics struct {
	// AllocationCount is the number of live DeviceMemory objects
	AllocationCount int
	// AllocationBytes is the total size of all live DeviceMemory objects
	AllocationBytes int
	// MappedCount is the number of live DeviceMemory objects that are currently mapped
	MappedCount int
}

func (s *Statistics) Clear() {
	s.AllocationCount = 0
	s.AllocationBytes = 0
	s.MappedCount = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.AllocationCount += other.AllocationCount
	s.AllocationBytes += other.AllocationBytes
	s.MappedCount += other.MappedCount
}

// HeapStatistics tracks allocation counts for each memory heap. It is safe for concurrent use.
type HeapStatistics struct {
	allocationCount [common.MaxMemoryHeaps]int32
	allocationBytes [common.MaxMemoryHeaps]int64
	mappedCount     [common.MaxMemoryHeaps]int32
}

// Reserve records an allocation of size bytes against heapIndex. If limit is positive and the reservation
// would carry the heap past it, nothing is recorded and core1_0.VKErrorOutOfDeviceMemory is returned.
func (h *HeapStatistics) Reserve(heapIndex int, size int, limit int) (common.VkResult, error) {
	for {
		current := atomic.LoadInt64(&h.allocationBytes[heapIndex])
		target := current + int64(size)

		if limit > 0 && target > int64(limit) {
			return core1_0.VKErrorOutOfDeviceMemory, core1_0.VKErrorOutOfDeviceMemory.ToError()
		}

		if atomic.CompareAndSwapInt64(&h.allocationBytes[heapIndex], current, target) {
			break
		}
	}

	atomic.AddInt32(&h.allocationCount[heapIndex], 1)
	return core1_0.VKSuccess, nil
}

// Release reverses a previous Reserve
func (h *HeapStatistics) Release(heapIndex int, size int) {
	newBytes := atomic.AddInt64(&h.allocationBytes[heapIndex], int64(-size))
	if newBytes < 0 {
		panic(fmt.Sprintf("allocation bytes for heap %d went negative", heapIndex))
	}

	newCount := atomic.AddInt32(&h.allocationCount[heapIndex], -1)
	if newCount < 0 {
		panic(fmt.Sprintf("allocation count for heap %d went negative", heapIndex))
	}
}

func (h *HeapStatistics) AddMapping(heapIndex int) {
	atomic.AddInt32(&h.mappedCount[heapIndex], 1)
}

func (h *HeapStatistics) RemoveMapping(heapIndex int) {
	if atomic.AddInt32(&h.mappedCount[heapIndex], -1) < 0 {
		panic(fmt.Sprintf("mapped count for heap %d went negative", heapIndex))
	}
}

// Snapshot reads the counters for heapIndex
func (h *HeapStatistics) Snapshot(heapIndex int) Statistics {
	return Statistics{
		AllocationCount: int(atomic.LoadInt32(&h.allocationCount[heapIndex])),
		AllocationBytes: int(atomic.LoadInt64(&h.allocationBytes[heapIndex])),
		MappedCount:     int(atomic.LoadInt32(&h.mappedCount[heapIndex])),
	}
}
