package surface

import "github.com/cockroachdb/errors"

var (
	// ErrFormatUnsupported is returned when the surface does not offer the policy's format and colour space
	ErrFormatUnsupported = errors.New("surface format not supported")
	// ErrPresentModeUnsupported is returned when neither the policy's present mode nor any fallback is offered
	ErrPresentModeUnsupported = errors.New("present mode not supported")
	// ErrUnknownPresentMode is returned by ParsePresentMode for names it does not recognise
	ErrUnknownPresentMode = errors.New("unknown present mode")
)
