package pass

import "github.com/cockroachdb/errors"

// ErrShaderCode is returned for a shader blob that is not SPIR-V
var ErrShaderCode = errors.New("invalid SPIR-V shader code")
