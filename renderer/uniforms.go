package renderer

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/memory"
	"github.com/vkngwrapper/renderer/memutils"
)

// uniformStride is the distance between two slots' uniform blocks in the ring
func uniformStride(minOffsetAlignment int) int {
	return memutils.AlignUp(uniformSize, minOffsetAlignment)
}

// uniformRing is a single persistently mapped buffer holding one uniform block per frame slot
type uniformRing struct {
	buffer *memory.Buffer
	stride int
	count  int
}

func newUniformRing(logger *slog.Logger, allocator *memory.Allocator, count, minOffsetAlignment int) (*uniformRing, error) {
	if minOffsetAlignment > 0 {
		err := memutils.CheckPow2(minOffsetAlignment, "minUniformBufferOffsetAlignment")
		if err != nil {
			return nil, err
		}
	}

	stride := uniformStride(minOffsetAlignment)
	buffer, err := allocator.CreateBuffer(memory.BufferCreateInfo{
		Size:  stride * count,
		Usage: core1_0.BufferUsageUniformBuffer,
	}, memory.AllocationCreateInfo{
		Flags:         memory.AllocationCreateMapped,
		RequiredFlags: memory.HostCoherent,
		Name:          "uniforms",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create uniform ring")
	}

	logger.Debug("uniformRing::new", slog.Int("Slots", count), slog.Int("Stride", stride))

	return &uniformRing{
		buffer: buffer,
		stride: stride,
		count:  count,
	}, nil
}

func (u *uniformRing) Offset(slot int) int {
	return slot * u.stride
}

func (u *uniformRing) BufferInfo(slot int) core1_0.DescriptorBufferInfo {
	return core1_0.DescriptorBufferInfo{
		Buffer: u.buffer.Handle(),
		Offset: u.Offset(slot),
		Range:  uniformSize,
	}
}

// Write stores ubo in slot's region. The slot's previous submission must have completed.
func (u *uniformRing) Write(slot int, ubo UniformBufferObject) error {
	return u.buffer.Write(u.Offset(slot), memory.SliceBytes([]UniformBufferObject{ubo}))
}

func (u *uniformRing) Destroy() error {
	return u.buffer.Destroy()
}
