package scene

import "github.com/go-gl/mathgl/mgl32"

// The structs below mirror the WGSL uniform blocks byte for byte (std140-compatible ordering,
// explicit trailing padding) and are uploaded with common.StructToBytes.

// WaterMapUniforms is the water_map.wgsl uniform block (192 bytes).
type WaterMapUniforms struct {
	World      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// TopViewUniforms is the top_view.wgsl uniform block (128 bytes).
type TopViewUniforms struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// SkyUniforms is the sky.wgsl uniform block (64 bytes).
type SkyUniforms struct {
	InverseViewProjection mgl32.Mat4
}

// GroundUniforms is the ground.wgsl uniform block (416 bytes).
type GroundUniforms struct {
	World              mgl32.Mat4
	NormalMatrix       mgl32.Mat4
	View               mgl32.Mat4
	Projection         mgl32.Mat4
	WaterMapView       mgl32.Mat4
	WaterMapProjection mgl32.Mat4
	LightPosition      mgl32.Vec4
	Time               float32
	GrassScale         float32
	SandScale          float32
	_                  float32
}

// WaterUniforms is the water.wgsl uniform block (416 bytes).
type WaterUniforms struct {
	World           mgl32.Mat4
	NormalMatrix    mgl32.Mat4
	View            mgl32.Mat4
	Projection      mgl32.Mat4
	TopView         mgl32.Mat4
	TopProjection   mgl32.Mat4
	CameraPosition  mgl32.Vec4
	FramebufferSize mgl32.Vec2
	DeltaTime       float32
	Time            float32
}

// NormalsUniforms is the normals.wgsl uniform block (224 bytes).
type NormalsUniforms struct {
	World        mgl32.Mat4
	View         mgl32.Mat4
	Projection   mgl32.Mat4
	Color        mgl32.Vec4
	NormalLength float32
	_            [3]float32
}
