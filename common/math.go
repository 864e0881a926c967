package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// clipDepthCorrection remaps the [-1, 1] clip-space depth produced by mgl32 projections
// onto the [0, 1] range WebGPU expects: z' = 0.5*z + 0.5*w.
var clipDepthCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// PerspectiveFov creates a perspective projection matrix from a vertical field of view and
// the framebuffer dimensions, in WebGPU clip space.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - width: framebuffer width in pixels
//   - height: framebuffer height in pixels (a zero height is treated as 1)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func PerspectiveFov(fovY, width, height, near, far float32) mgl32.Mat4 {
	if height <= 0 {
		height = 1
	}
	return clipDepthCorrection.Mul4(mgl32.Perspective(fovY, width/height, near, far))
}

// Ortho creates an orthographic projection matrix in WebGPU clip space.
//
// Parameters:
//   - left, right: horizontal extents of the view volume
//   - bottom, top: vertical extents of the view volume
//   - near, far: depth extents of the view volume
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Ortho(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	return clipDepthCorrection.Mul4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// Ortho2D creates an orthographic projection with a [-1, 1] depth range, matching the
// four-argument form used for the top-down terrain view.
//
// Parameters:
//   - left, right: horizontal extents of the view volume
//   - bottom, top: vertical extents of the view volume
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func Ortho2D(left, right, bottom, top float32) mgl32.Mat4 {
	return Ortho(left, right, bottom, top, -1, 1)
}

// LookAt creates a view matrix that positions and orients a camera.
//
// Parameters:
//   - eye: camera position in world space
//   - center: target point the camera looks at
//   - up: up vector defining camera orientation
//
// Returns:
//   - mgl32.Mat4: the column-major view matrix
func LookAt(eye, center, up mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, center, up)
}

// SurfaceWorldMatrix returns scale(I, s) * translate(offset). Grid meshes live in the unit
// square, so a scale of 2 and an offset of (-0.5, 0, -0.5) centers them on the origin.
func SurfaceWorldMatrix(scale float32, offset mgl32.Vec3) mgl32.Mat4 {
	return mgl32.Scale3D(scale, scale, scale).Mul4(mgl32.Translate3D(offset[0], offset[1], offset[2]))
}

// NormalMatrix returns the inverse-transpose of the upper 3x3 of world, widened to a 4x4 so
// it can be uploaded without WGSL mat3 padding rules.
func NormalMatrix(world mgl32.Mat4) mgl32.Mat4 {
	return world.Mat3().Inv().Transpose().Mat4()
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// StructToBytes reinterprets a pointer to a struct as a raw byte slice using unsafe.
// The returned slice has length equal to the struct's size in memory.
//
// Parameters:
//   - v: pointer to the struct to reinterpret
//
// Returns:
//   - []byte: byte slice view of the struct's memory
func StructToBytes[T any](v *T) []byte {
	size := unsafe.Sizeof(*v)
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), int(size))
}
