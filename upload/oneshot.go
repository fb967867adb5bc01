package upload

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// OneShot is a primary command buffer recorded once, submitted once, and waited on synchronously. Its
// command pool exists only for the lifetime of the OneShot, so every path out of it must call Finish or
// Cancel.
type OneShot struct {
	logger *slog.Logger
	driver core1_0.DeviceDriver
	queue  core1_0.Queue

	pool          core1_0.CommandPool
	commandBuffer core1_0.CommandBuffer
	done          bool
}

// Begin creates a transient command pool on queueFamilyIndex, allocates a single primary command buffer
// from it, and begins recording with the one-time-submit usage
func Begin(logger *slog.Logger, driver core1_0.DeviceDriver, queue core1_0.Queue, queueFamilyIndex int) (*OneShot, error) {
	logger.Debug("OneShot::Begin", slog.Int("QueueFamilyIndex", queueFamilyIndex))

	pool, _, err := driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: queueFamilyIndex,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create one-shot command pool")
	}

	buffers, _, err := driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		driver.DestroyCommandPool(pool, nil)
		return nil, errors.Wrap(err, "failed to allocate one-shot command buffer")
	}

	_, err = driver.BeginCommandBuffer(buffers[0], core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		driver.DestroyCommandPool(pool, nil)
		return nil, errors.Wrap(err, "failed to begin one-shot command buffer")
	}

	return &OneShot{
		logger:        logger,
		driver:        driver,
		queue:         queue,
		pool:          pool,
		commandBuffer: buffers[0],
	}, nil
}

// CommandBuffer is the buffer being recorded
func (o *OneShot) CommandBuffer() core1_0.CommandBuffer {
	return o.commandBuffer
}

// Finish ends recording, submits the command buffer with no fence, blocks until the queue is idle, and
// destroys the command pool. The pool is destroyed even if a step fails.
func (o *OneShot) Finish() error {
	if o.done {
		return ErrOneShotFinished
	}
	o.done = true
	defer o.driver.DestroyCommandPool(o.pool, nil)

	o.logger.Debug("OneShot::Finish")

	_, err := o.driver.EndCommandBuffer(o.commandBuffer)
	if err != nil {
		return errors.Wrap(err, "failed to end one-shot command buffer")
	}

	_, err = o.driver.QueueSubmit(o.queue, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{o.commandBuffer},
	})
	if err != nil {
		return errors.Wrap(err, "failed to submit one-shot command buffer")
	}

	_, err = o.driver.QueueWaitIdle(o.queue)
	if err != nil {
		return errors.Wrap(err, "failed to wait for one-shot command buffer")
	}

	return nil
}

// Cancel destroys the command pool without submitting anything. It does nothing after Finish
func (o *OneShot) Cancel() {
	if o.done {
		return
	}
	o.done = true

	o.logger.Debug("OneShot::Cancel")
	o.driver.DestroyCommandPool(o.pool, nil)
}

// Run records commands with record inside a OneShot and finishes it. If record fails, the OneShot is
// cancelled and the record error is returned
func Run(logger *slog.Logger, driver core1_0.DeviceDriver, queue core1_0.Queue, queueFamilyIndex int, record func(commandBuffer core1_0.CommandBuffer) error) error {
	oneShot, err := Begin(logger, driver, queue, queueFamilyIndex)
	if err != nil {
		return err
	}

	err = record(oneShot.CommandBuffer())
	if err != nil {
		oneShot.Cancel()
		return err
	}

	return oneShot.Finish()
}
