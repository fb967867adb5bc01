package frame

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// Slot is the GPU state owned by one frame in flight
type Slot struct {
	CommandBuffer  core1_0.CommandBuffer
	ImageAvailable core1_0.Semaphore
	RenderFinished core1_0.Semaphore
	InFlight       core1_0.Fence
}

// Slots is the ring of frame slots. Fences are created signalled so the first wait on each slot returns
// immediately.
type Slots struct {
	driver core1_0.DeviceDriver
	slots  []Slot
}

func NewSlots(driver core1_0.DeviceDriver, pool core1_0.CommandPool, count int) (*Slots, error) {
	commandBuffers, _, err := driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate frame command buffers")
	}

	slots := &Slots{driver: driver}
	for i := 0; i < count; i++ {
		slot, err := slots.createSlot(commandBuffers[i])
		if err != nil {
			slots.Destroy()
			driver.FreeCommandBuffers(commandBuffers[i:]...)
			return nil, errors.Wrapf(err, "frame slot %d", i)
		}

		slots.slots = append(slots.slots, slot)
	}

	return slots, nil
}

func (s *Slots) createSlot(commandBuffer core1_0.CommandBuffer) (Slot, error) {
	slot := Slot{CommandBuffer: commandBuffer}

	var err error
	slot.ImageAvailable, _, err = s.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		return slot, errors.Wrap(err, "failed to create image available semaphore")
	}

	slot.RenderFinished, _, err = s.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err != nil {
		s.driver.DestroySemaphore(slot.ImageAvailable, nil)
		return slot, errors.Wrap(err, "failed to create render finished semaphore")
	}

	slot.InFlight, _, err = s.driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: core1_0.FenceCreateSignaled,
	})
	if err != nil {
		s.driver.DestroySemaphore(slot.RenderFinished, nil)
		s.driver.DestroySemaphore(slot.ImageAvailable, nil)
		return slot, errors.Wrap(err, "failed to create in flight fence")
	}

	return slot, nil
}

func (s *Slots) Count() int {
	return len(s.slots)
}

func (s *Slots) Slot(index int) Slot {
	return s.slots[index]
}

// Wait blocks without a timeout until the slot's last submission has completed
func (s *Slots) Wait(index int) error {
	_, err := s.driver.WaitForFences(true, common.NoTimeout, s.slots[index].InFlight)
	return err
}

// Reset unsignals the slot's fence. Call it only immediately before a submission that signals it.
func (s *Slots) Reset(index int) error {
	_, err := s.driver.ResetFences(s.slots[index].InFlight)
	return err
}

// Destroy destroys every slot's synchronisation objects and frees the command buffers
func (s *Slots) Destroy() {
	var commandBuffers []core1_0.CommandBuffer
	for _, slot := range s.slots {
		s.driver.DestroyFence(slot.InFlight, nil)
		s.driver.DestroySemaphore(slot.RenderFinished, nil)
		s.driver.DestroySemaphore(slot.ImageAvailable, nil)
		commandBuffers = append(commandBuffers, slot.CommandBuffer)
	}

	if len(commandBuffers) > 0 {
		s.driver.FreeCommandBuffers(commandBuffers...)
	}
	s.slots = nil
}
