// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Linear marks data that must not be sRGB-decoded on sampling (noise, normal and lookup textures).
	Linear bool
}

// Valid reports whether the staging data has non-zero dimensions and a pixel buffer of the right length.
func (t TextureStagingData) Valid() bool {
	return t.Width > 0 && t.Height > 0 && len(t.Pixels) == int(t.Width*t.Height*4)
}

// CubemapStagingData holds the six faces of a cubemap in +X, -X, +Y, -Y, +Z, -Z order.
// Every face must share the same square size.
type CubemapStagingData struct {
	Faces [6]TextureStagingData
}

// Size returns the edge length of the cubemap faces.
func (c CubemapStagingData) Size() uint32 {
	return c.Faces[0].Width
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero fields fall back to linear filtering with repeat addressing when the sampler is created.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level.
	MaxAnisotropy uint16
}

// ClampSampler is the sampler configuration used for lookup textures and the sky cubemap.
var ClampSampler = SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
}

// RepeatSampler is the sampler configuration used for tiling surface textures.
var RepeatSampler = SamplerStagingData{
	AddressModeU: wgpu.AddressModeRepeat,
	AddressModeV: wgpu.AddressModeRepeat,
	AddressModeW: wgpu.AddressModeRepeat,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
	MipmapFilter: wgpu.MipmapFilterModeLinear,
}

// DecodeImage decodes PNG, JPEG or BMP data into RGBA staging data.
// When size is non-zero the image is resampled to size x size, which is how cubemap faces
// of differing resolutions are brought to a common edge length.
//
// Parameters:
//   - r: the encoded image stream
//   - size: optional square output size in pixels, 0 keeps the source dimensions
//
// Returns:
//   - TextureStagingData: decoded pixels
//   - error: error if decoding fails
func DecodeImage(r io.Reader, size int) (TextureStagingData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return TextureStagingData{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	dst := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if size > 0 {
		dst = image.Rect(0, 0, size, size)
	}
	if dst.Empty() {
		return TextureStagingData{}, fmt.Errorf("image has no pixels")
	}

	rgba := image.NewRGBA(dst)
	if dst.Dx() == bounds.Dx() && dst.Dy() == bounds.Dy() {
		draw.Draw(rgba, dst, img, bounds.Min, draw.Src)
	} else {
		draw.BiLinear.Scale(rgba, dst, img, bounds, draw.Src, nil)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(dst.Dx()),
		Height: uint32(dst.Dy()),
	}, nil
}

// DecodeImageBytes is DecodeImage over an in-memory buffer.
func DecodeImageBytes(data []byte, size int) (TextureStagingData, error) {
	return DecodeImage(bytes.NewReader(data), size)
}
