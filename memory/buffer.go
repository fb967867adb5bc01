package memory

import (
	"log/slog"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Buffer is a VkBuffer bound at offset 0 to its own exclusive Allocation
type Buffer struct {
	allocator  *Allocator
	buffer     core1_0.Buffer
	size       int
	usage      core1_0.BufferUsageFlags
	allocation *Allocation
	destroyed  bool
}

// CreateBuffer creates a buffer with exclusive sharing, allocates memory of exactly the size the device
// reports for it from the first memory type that qualifies, and binds the two at offset 0. If any step
// fails, everything created so far is destroyed before the error is returned.
func (a *Allocator) CreateBuffer(bufferInfo BufferCreateInfo, allocInfo AllocationCreateInfo) (*Buffer, error) {
	a.logger.Debug("Allocator::CreateBuffer",
		slog.Int("Size", bufferInfo.Size),
		slog.String("Usage", bufferInfo.Usage.String()),
	)

	if bufferInfo.Size <= 0 {
		return nil, errors.Newf("attempted to create a buffer of size %d", bufferInfo.Size)
	}

	buffer, _, err := a.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        bufferInfo.Size,
		Usage:       bufferInfo.Usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create buffer")
	}

	requirements := a.driver.GetBufferMemoryRequirements(buffer)

	allocation, err := a.AllocateMemory(requirements, allocInfo)
	if err != nil {
		a.driver.DestroyBuffer(buffer, nil)
		return nil, err
	}

	_, err = a.driver.BindBufferMemory(buffer, allocation.memory, 0)
	if err != nil {
		a.driver.DestroyBuffer(buffer, nil)
		_ = allocation.Free()
		return nil, errors.Wrap(err, "failed to bind buffer memory")
	}

	return &Buffer{
		allocator:  a,
		buffer:     buffer,
		size:       bufferInfo.Size,
		usage:      bufferInfo.Usage,
		allocation: allocation,
	}, nil
}

// Handle is the underlying VkBuffer
func (b *Buffer) Handle() core1_0.Buffer { return b.buffer }

// Size is the size the buffer was created with. The allocation may be larger
func (b *Buffer) Size() int { return b.size }

// Usage is the usage the buffer was created with
func (b *Buffer) Usage() core1_0.BufferUsageFlags { return b.usage }

// Allocation is the memory the buffer is bound to
func (b *Buffer) Allocation() *Allocation { return b.allocation }

func (b *Buffer) checkHostAccess(length int) error {
	if b.allocation == nil || b.destroyed {
		return errors.New("the buffer has been destroyed")
	}
	if !b.allocation.IsHostCoherent() {
		return errors.Wrapf(ErrNotHostVisible, "buffer memory type %d", b.allocation.memoryTypeIndex)
	}
	if length > b.size {
		return errors.Newf("attempted to access %d bytes of a %d byte buffer", length, b.size)
	}

	return nil
}

// CopyHostData maps the buffer's memory, copies data to the start of it, and unmaps it again. The buffer's
// memory must be HOST_VISIBLE and HOST_COHERENT, and data cannot be larger than the buffer.
func (b *Buffer) CopyHostData(data []byte) error {
	err := b.checkHostAccess(len(data))
	if err != nil {
		return err
	}

	if len(data) == 0 {
		return nil
	}

	ptr, _, err := b.allocation.Map()
	if err != nil {
		return err
	}

	copy(unsafe.Slice((*byte)(ptr), b.size), data)

	return b.allocation.Unmap()
}

// ReadHostData maps the buffer's memory and copies len(out) bytes from the start of it into out
func (b *Buffer) ReadHostData(out []byte) error {
	err := b.checkHostAccess(len(out))
	if err != nil {
		return err
	}

	if len(out) == 0 {
		return nil
	}

	ptr, _, err := b.allocation.Map()
	if err != nil {
		return err
	}

	copy(out, unsafe.Slice((*byte)(ptr), b.size))

	return b.allocation.Unmap()
}

// Write copies data into a buffer created with AllocationCreateMapped at the provided offset. The memory is
// not re-mapped.
func (b *Buffer) Write(offset int, data []byte) error {
	if b.allocation == nil || b.destroyed {
		return errors.New("the buffer has been destroyed")
	}
	if offset < 0 || offset+len(data) > b.size {
		return errors.Newf("write of %d bytes at offset %d overflows a %d byte buffer", len(data), offset, b.size)
	}

	ptr := b.allocation.MappedData()
	if ptr == nil {
		return errors.New("attempted to write to a buffer that is not persistently mapped")
	}

	copy(unsafe.Slice((*byte)(ptr), b.size)[offset:], data)
	return nil
}

// CopyHostSlice copies a slice of plain values into a host-coherent buffer via Buffer.CopyHostData
func CopyHostSlice[T any](buffer *Buffer, data []T) error {
	return buffer.CopyHostData(SliceBytes(data))
}

// SliceBytes reinterprets a slice of plain values as its underlying bytes
func SliceBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}

	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*int(unsafe.Sizeof(zero)))
}

// Destroy destroys the buffer and then frees its memory. It is idempotent. If the memory cannot be freed
// the allocation is kept and a later Destroy retries the free without destroying the buffer again.
func (b *Buffer) Destroy() error {
	if b.allocation == nil {
		return nil
	}

	b.allocator.logger.Debug("Buffer::Destroy", slog.Int("Size", b.size))

	if !b.destroyed {
		b.allocator.driver.DestroyBuffer(b.buffer, nil)
		b.destroyed = true
	}

	err := b.allocation.Free()
	if err != nil {
		return err
	}

	b.allocation = nil
	return nil
}
