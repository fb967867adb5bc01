package memory

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// BuildStatsString returns a JSON document describing every heap of the device and every live
// allocation made by this allocator
func (a *Allocator) BuildStatsString() string {
	writer := jwriter.NewWriter()

	obj := writer.Object()

	total := a.TotalStatistics()
	totalObj := obj.Name("Total").Object()
	totalObj.Name("AllocationCount").Int(total.AllocationCount)
	totalObj.Name("AllocationBytes").Int(total.AllocationBytes)
	totalObj.Name("MappedCount").Int(total.MappedCount)
	totalObj.End()

	heaps := obj.Name("Heaps").Array()
	for heapIndex, heapStats := range a.Statistics() {
		heap := a.memoryProperties.MemoryHeaps[heapIndex]

		heapObj := heaps.Object()
		heapObj.Name("Size").Int(heap.Size)
		heapObj.Name("Flags").String(heap.Flags.String())
		heapObj.Name("Limit").Int(a.heapLimits[heapIndex])
		heapObj.Name("AllocationCount").Int(heapStats.AllocationCount)
		heapObj.Name("AllocationBytes").Int(heapStats.AllocationBytes)
		heapObj.Name("MappedCount").Int(heapStats.MappedCount)
		heapObj.End()
	}
	heaps.End()

	a.allocations.BuildStatsString(obj.Name("Allocations"))

	obj.End()

	return string(writer.Bytes())
}
