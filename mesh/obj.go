package mesh

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
)

// DecodeOBJ builds a mesh from Wavefront OBJ data. materials may be nil. Every face corner must carry a
// texture coordinate.
func DecodeOBJ(objData io.Reader, materials io.Reader) (*Mesh, error) {
	decoder, err := obj.DecodeReader(objData, materials)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode obj")
	}

	builder := NewBuilder(decoder.Vertices, decoder.Uvs)
	for _, object := range decoder.Objects {
		for faceIndex, face := range object.Faces {
			corners := make([]Corner, len(face.Vertices))
			for i, position := range face.Vertices {
				if i >= len(face.Uvs) || face.Uvs[i] < 0 {
					return nil, errors.Newf("object %s face %d has no texture coordinates", object.Name, faceIndex)
				}
				corners[i] = Corner{Position: position, UV: face.Uvs[i]}
			}

			err = builder.AddPolygon(corners)
			if err != nil {
				return nil, errors.Wrapf(err, "object %s face %d", object.Name, faceIndex)
			}
		}
	}

	return builder.Build(), nil
}

// LoadOBJ decodes the OBJ file at path. The material library at mtlPath is optional: an empty path or a
// missing file is skipped.
func LoadOBJ(path string, mtlPath string) (*Mesh, error) {
	objFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open mesh %s", path)
	}
	defer objFile.Close()

	var materials io.Reader
	if mtlPath != "" {
		mtlFile, err := os.Open(mtlPath)
		if err == nil {
			defer mtlFile.Close()
			materials = mtlFile
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "failed to open material library %s", mtlPath)
		}
	}

	mesh, err := DecodeOBJ(objFile, materials)
	if err != nil {
		return nil, errors.Wrapf(err, "mesh %s", path)
	}

	return mesh, nil
}
