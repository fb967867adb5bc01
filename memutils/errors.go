package memutils

import "github.com/cockroachdb/errors"

// ErrPowerOfTwo is returned from CheckPow2 when the number being tested is not a power of two
var ErrPowerOfTwo = errors.New("number must be a power of two")
