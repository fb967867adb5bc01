package frame

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/renderer/memutils"
	"github.com/vkngwrapper/renderer/swapchain"
)

// SlotState tracks where a frame slot is in its cycle
type SlotState int

const (
	// SlotIdle slots have no work in flight that the engine has not waited on
	SlotIdle SlotState = iota
	// SlotRecording slots have acquired an image and are recording commands
	SlotRecording
	// SlotSubmitted slots have work queued on the GPU
	SlotSubmitted
)

var slotStateNames = map[SlotState]string{
	SlotIdle:      "Idle",
	SlotRecording: "Recording",
	SlotSubmitted: "Submitted",
}

func (s SlotState) String() string {
	return slotStateNames[s]
}

// Stats count what RenderFrame has done since the engine was created
type Stats struct {
	Rendered int
	Skipped  int
	Rebuilds int
}

// Options configure NewEngine
type Options struct {
	// FramesInFlight is the number of frames the CPU may get ahead of the GPU. It defaults to 2.
	FramesInFlight int
	// Extent is the window extent the backend was first built for. The backend may have clamped it. It
	// defaults to the backend's Extent.
	Extent core1_0.Extent2D
}

// Engine drives the acquire, record, submit and present cycle over a ring of frame slots and applies the
// resize protocol. It is not safe for concurrent use.
type Engine struct {
	logger  *slog.Logger
	backend Backend

	framesInFlight int
	requested      core1_0.Extent2D
	slot           int
	frame          uint64
	states         []SlotState

	rebuildPending bool
	minimized      bool
	stats          Stats
}

func NewEngine(logger *slog.Logger, backend Backend, options Options) (*Engine, error) {
	if options.FramesInFlight == 0 {
		options.FramesInFlight = 2
	}

	if options.FramesInFlight < 1 {
		return nil, errors.Newf("frames in flight must be at least 1, got %d", options.FramesInFlight)
	}

	if zeroArea(options.Extent) {
		options.Extent = backend.Extent()
	}

	return &Engine{
		logger:         logger,
		backend:        backend,
		framesInFlight: options.FramesInFlight,
		requested:      options.Extent,
		states:         make([]SlotState, options.FramesInFlight),
	}, nil
}

func zeroArea(extent core1_0.Extent2D) bool {
	return extent.Width <= 0 || extent.Height <= 0
}

// rebuild rebuilds the backend for extent. It reports false without an error when the surface turned out
// to have zero area, which leaves the engine minimized with the rebuild still pending.
func (e *Engine) rebuild(extent core1_0.Extent2D) (bool, error) {
	e.logger.Debug("Engine::rebuild", slog.Int("Width", extent.Width), slog.Int("Height", extent.Height))

	err := e.backend.Rebuild(extent)
	if errors.Is(err, swapchain.ErrZeroExtent) {
		e.logger.Debug("Engine::rebuild: surface has zero area", slog.Int("Width", extent.Width), slog.Int("Height", extent.Height))
		e.rebuildPending = true
		e.minimized = true
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to rebuild swapchain resources")
	}

	e.requested = extent
	e.rebuildPending = false
	e.stats.Rebuilds++

	return true, nil
}

// RenderFrame renders and presents one frame at extent. It returns false without touching the GPU when the
// extent has zero area, false when a rebuild finds the surface has zero area, and false when the swapchain
// turned out to be out of date on acquire. In the last two cases the next call rebuilds first.
func (e *Engine) RenderFrame(extent core1_0.Extent2D) (bool, error) {
	if zeroArea(extent) {
		e.minimized = true
		e.stats.Skipped++
		return false, nil
	}
	e.minimized = false

	if e.rebuildPending || extent != e.requested {
		rebuilt, err := e.rebuild(extent)
		if err != nil {
			return false, err
		}
		if !rebuilt {
			e.stats.Skipped++
			return false, nil
		}
	}

	slot := e.slot

	err := e.backend.WaitSlot(slot)
	if err != nil {
		return false, errors.Wrapf(err, "failed to wait for frame slot %d", slot)
	}
	e.states[slot] = SlotIdle

	image, status, err := e.backend.Acquire(slot)
	if err != nil {
		return false, err
	}

	if status == swapchain.StatusOutOfDate {
		// Nothing was submitted, so the slot's fence stays signalled for the next attempt
		e.logger.Debug("Engine::RenderFrame: out of date on acquire", slog.Int("Slot", slot))
		e.rebuildPending = true
		e.stats.Skipped++
		return false, nil
	}
	if status == swapchain.StatusSuboptimal {
		e.rebuildPending = true
	}

	e.states[slot] = SlotRecording
	err = e.backend.Record(slot, image, e.backend.Extent())
	if err != nil {
		e.states[slot] = SlotIdle
		return false, errors.Wrapf(err, "failed to record frame slot %d", slot)
	}

	err = e.backend.Submit(slot, image)
	if err != nil {
		e.states[slot] = SlotIdle
		return false, errors.Wrapf(err, "failed to submit frame slot %d", slot)
	}
	e.states[slot] = SlotSubmitted

	status, err = e.backend.Present(slot, image)
	if err != nil {
		return false, err
	}
	if status.NeedsRebuild() {
		e.rebuildPending = true
	}

	e.slot = (e.slot + 1) % e.framesInFlight
	e.frame++
	e.stats.Rendered++

	memutils.DebugValidate(e)

	return true, nil
}

// OnResize applies a window size change. A zero area marks the engine minimized; an unchanged extent with
// no rebuild pending does nothing; anything else rebuilds immediately.
func (e *Engine) OnResize(width, height int) error {
	extent := core1_0.Extent2D{Width: width, Height: height}
	if zeroArea(extent) {
		e.minimized = true
		return nil
	}
	e.minimized = false

	if !e.rebuildPending && extent == e.requested {
		return nil
	}

	_, err := e.rebuild(extent)
	return err
}

// Slot is the slot the next frame will use
func (e *Engine) Slot() int {
	return e.slot
}

// Frame is the number of frames presented
func (e *Engine) Frame() uint64 {
	return e.frame
}

func (e *Engine) FramesInFlight() int {
	return e.framesInFlight
}

func (e *Engine) SlotState(slot int) SlotState {
	return e.states[slot]
}

func (e *Engine) Minimized() bool {
	return e.minimized
}

func (e *Engine) RebuildPending() bool {
	return e.rebuildPending
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// Validate checks the engine's bookkeeping. Between frames the current slot is in range, at most one slot
// is recording, and the current slot is never mid-recording.
func (e *Engine) Validate() error {
	if e.slot < 0 || e.slot >= e.framesInFlight {
		return errors.Newf("current slot %d out of range [0, %d)", e.slot, e.framesInFlight)
	}

	if uint64(e.stats.Rendered) != e.frame {
		return errors.Newf("rendered count %d does not match frame counter %d", e.stats.Rendered, e.frame)
	}

	if e.frame%uint64(e.framesInFlight) != uint64(e.slot) {
		return errors.Newf("slot %d is not frame %d modulo %d", e.slot, e.frame, e.framesInFlight)
	}

	recording := 0
	for _, state := range e.states {
		if state == SlotRecording {
			recording++
		}
	}
	if recording > 0 {
		return errors.Newf("%d slots left recording between frames", recording)
	}

	return nil
}
