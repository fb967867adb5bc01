package upload

import "github.com/cockroachdb/errors"

var (
	// ErrUnsupportedTransition is returned when TransitionImage is asked for a layout change it has no
	// access and stage masks for
	ErrUnsupportedTransition = errors.New("unsupported image layout transition")
	// ErrLinearBlitUnsupported is returned when a texture format cannot be blitted with linear filtering,
	// which mip chain generation requires
	ErrLinearBlitUnsupported = errors.New("format does not support linear blitting")
	// ErrOneShotFinished is returned when a finished or cancelled OneShot is used again
	ErrOneShotFinished = errors.New("one-shot command buffer has already been finished")
)
