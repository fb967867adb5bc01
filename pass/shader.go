package pass

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
)

// SpirvMagic is the first word of every SPIR-V module
const SpirvMagic uint32 = 0x07230203

// DecodeShader converts a little-endian SPIR-V blob into words
func DecodeShader(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, errors.Wrapf(ErrShaderCode, "length %d is not a positive multiple of 4", len(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(code[i*4:])
	}

	if words[0] != SpirvMagic {
		return nil, errors.Wrapf(ErrShaderCode, "magic number %#08x", words[0])
	}

	return words, nil
}

// LoadShader reads and decodes the SPIR-V file at path
func LoadShader(path string) ([]uint32, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read shader %s", path)
	}

	words, err := DecodeShader(code)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}

	return words, nil
}
