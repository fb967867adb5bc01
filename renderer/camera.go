package renderer

import (
	"math"
	"unsafe"

	"github.com/vkngwrapper/core/v3/core1_0"
	vkngmath "github.com/vkngwrapper/math"
)

// UniformBufferObject is the per-frame uniform block read by the vertex shader at binding 0
type UniformBufferObject struct {
	Model vkngmath.Mat4x4[float32]
	View  vkngmath.Mat4x4[float32]
	Proj  vkngmath.Mat4x4[float32]
}

const uniformSize = int(unsafe.Sizeof(UniformBufferObject{}))

// Camera describes the fixed viewpoint and the model's spin
type Camera struct {
	Eye    vkngmath.Vec3[float32]
	Target vkngmath.Vec3[float32]
	Up     vkngmath.Vec3[float32]

	// FovY is the vertical field of view in radians
	FovY float64
	Near float32
	Far  float32

	// Spin is the model's rotation speed about Z in radians per second
	Spin float64
}

// DefaultCamera looks at the origin from slightly above and behind it
func DefaultCamera() Camera {
	return Camera{
		Eye:    vkngmath.Vec3[float32]{X: 0, Y: 1.5, Z: -1.5},
		Target: vkngmath.Vec3[float32]{X: 0, Y: 0, Z: 0},
		Up:     vkngmath.Vec3[float32]{X: 0, Y: 1, Z: 0},
		FovY:   math.Pi / 2.5,
		Near:   0.1,
		Far:    100,
		Spin:   1,
	}
}

// Uniforms computes the uniform block elapsed seconds after start for a target of the given extent
func (c Camera) Uniforms(elapsed float64, extent core1_0.Extent2D) UniformBufferObject {
	aspectRatio := float32(1)
	if extent.Height > 0 {
		aspectRatio = float32(extent.Width) / float32(extent.Height)
	}

	ubo := UniformBufferObject{}
	ubo.Model.SetRotationZ(c.Spin * elapsed)
	ubo.View.SetLookAt(&c.Eye, &c.Target, &c.Up)
	ubo.Proj.SetPerspective(c.FovY, aspectRatio, c.Near, c.Far)

	return ubo
}
