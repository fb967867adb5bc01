package mesh

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	vkngmath "github.com/vkngwrapper/math"
	"github.com/vkngwrapper/renderer/memory"
)

// Corner identifies one face corner by its position and texture coordinate indices
type Corner struct {
	Position int
	UV       int
}

// Mesh is an indexed triangle list
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
}

// VertexBytes is the vertex buffer contents
func (m *Mesh) VertexBytes() []byte {
	return memory.SliceBytes(m.Vertices)
}

// IndexBytes is the index buffer contents, as 32-bit indices
func (m *Mesh) IndexBytes() []byte {
	return memory.SliceBytes(m.Indices)
}

// Builder deduplicates face corners into vertices. Two corners share a vertex exactly when they have the
// same position and texture coordinate indices, and vertices are numbered in order of first use.
type Builder struct {
	positions []float32
	uvs       []float32

	seen     *swiss.Map[Corner, uint32]
	vertices []Vertex
	indices  []uint32
}

// NewBuilder indexes into flat position (xyz) and texture coordinate (uv) arrays
func NewBuilder(positions, uvs []float32) *Builder {
	return &Builder{
		positions: positions,
		uvs:       uvs,
		seen:      swiss.NewMap[Corner, uint32](uint32(len(positions) / 3)),
	}
}

// Add appends the index of corner's vertex, creating the vertex on first use. The V coordinate is flipped
// so image row 0 is the top of the texture.
func (b *Builder) Add(corner Corner) error {
	index, ok := b.seen.Get(corner)
	if !ok {
		if corner.Position < 0 || corner.Position*3+2 >= len(b.positions) {
			return errors.Newf("position index %d out of range", corner.Position)
		}
		if corner.UV < 0 || corner.UV*2+1 >= len(b.uvs) {
			return errors.Newf("texture coordinate index %d out of range", corner.UV)
		}

		index = uint32(len(b.vertices))
		b.vertices = append(b.vertices, Vertex{
			Position: vkngmath.Vec3[float32]{
				b.positions[corner.Position*3],
				b.positions[corner.Position*3+1],
				b.positions[corner.Position*3+2],
			},
			TexCoord: vkngmath.Vec2[float32]{
				b.uvs[corner.UV*2],
				1.0 - b.uvs[corner.UV*2+1],
			},
		})
		b.seen.Put(corner, index)
	}

	b.indices = append(b.indices, index)
	return nil
}

// AddPolygon triangulates a convex polygon as a fan around its first corner
func (b *Builder) AddPolygon(corners []Corner) error {
	if len(corners) < 3 {
		return errors.Newf("polygon has %d corners", len(corners))
	}

	for i := 2; i < len(corners); i++ {
		for _, corner := range []Corner{corners[0], corners[i-1], corners[i]} {
			err := b.Add(corner)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (b *Builder) Build() *Mesh {
	return &Mesh{
		Vertices: b.vertices,
		Indices:  b.indices,
	}
}
