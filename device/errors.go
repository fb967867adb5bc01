package device

import "github.com/cockroachdb/errors"

var (
	// ErrNoSuitableDevice is returned when no physical device has a queue family that can both render and
	// present to the surface, or none exposes the required device extensions
	ErrNoSuitableDevice = errors.New("failed to find a suitable GPU")
	// ErrMissingExtension is returned when a required instance extension is unavailable
	ErrMissingExtension = errors.New("required extension not available")
	// ErrMissingLayer is returned when validation is requested but a validation layer is not installed
	ErrMissingLayer = errors.New("required layer not available")
	// ErrNoSupportedFormat is returned when none of a list of candidate formats has the requested features
	ErrNoSupportedFormat = errors.New("no candidate format supports the requested features")
)
