package loader

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func newTestLoader(fsys fstest.MapFS, opts ...LoaderBuilderOption) (Loader, *bytes.Buffer) {
	var logs bytes.Buffer
	opts = append([]LoaderBuilderOption{
		WithFS(fsys),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	}, opts...)
	return NewLoader("unused", opts...), &logs
}

func TestLoadTextureDecodesFile(t *testing.T) {
	l, logs := newTestLoader(fstest.MapFS{
		"grass.png": {Data: encodePNG(t, 2, 3, color.RGBA{10, 20, 30, 255})},
	})

	a, err := l.LoadTexture(context.Background(), TextureRequest{Name: TextureGrass, File: "grass.png", Linear: true})
	require.NoError(t, err)
	assert.False(t, a.Fallback)
	assert.Equal(t, uint32(2), a.Data.Width)
	assert.Equal(t, uint32(3), a.Data.Height)
	assert.Equal(t, []byte{10, 20, 30, 255}, a.Data.Pixels[:4])
	assert.True(t, a.Data.Linear)
	assert.Empty(t, logs.String())

	cached, ok := l.Get(TextureGrass)
	require.True(t, ok)
	assert.Equal(t, a, cached)
}

func TestLoadTextureFallsBack(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"missing":     {},
		"corrupt":     {"grass.png": {Data: []byte("not a png")}},
		"unsupported": {"grass.tga": {Data: []byte{0}}},
	}
	for name, fsys := range cases {
		t.Run(name, func(t *testing.T) {
			l, logs := newTestLoader(fsys)
			file := "grass.png"
			if name == "unsupported" {
				file = "grass.tga"
			}
			a, err := l.LoadTexture(context.Background(), TextureRequest{Name: TextureGrass, File: file, Fallback: FallbackChecker})
			require.NoError(t, err)
			assert.True(t, a.Fallback)
			assert.Equal(t, uint32(CheckerSize), a.Data.Width)
			assert.Contains(t, logs.String(), "texture fallback")
			assert.Contains(t, logs.String(), "name=grass")
		})
	}
}

func TestResolveBackend(t *testing.T) {
	_, err := resolveBackend("sky.JPG")
	assert.NoError(t, err)
	_, err = resolveBackend("model.glb")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadTexturesUsesEachFallback(t *testing.T) {
	l, _ := newTestLoader(fstest.MapFS{})
	got, err := l.LoadTextures(context.Background(), DefaultRequests)
	require.NoError(t, err)
	require.Len(t, got, len(DefaultRequests))
	for name, a := range got {
		assert.True(t, a.Fallback, name)
		assert.True(t, a.Data.Valid(), name)
	}

	sub := got[TextureSubsurface].Data
	assert.Equal(t, uint32(3), sub.Width)
	assert.Equal(t, uint32(1), sub.Height)
	assert.Equal(t, []byte{2, 204, 147, 255, 2, 127, 199, 255, 1, 9, 100, 255}, sub.Pixels)
	assert.True(t, sub.Linear)

	assert.True(t, got[TextureNoise].Data.Linear)
	assert.Equal(t, uint32(NoiseSize), got[TextureNoiseNormal].Data.Width)
}

func TestFallbackKeepsRequestedColorSpace(t *testing.T) {
	ramp := encodePNG(t, 3, 1, color.RGBA{2, 204, 147, 255})
	for _, fsys := range []fstest.MapFS{{}, {"subsurface.png": {Data: ramp}}} {
		l, _ := newTestLoader(fsys)
		a, err := l.LoadTexture(context.Background(), TextureRequest{
			Name: TextureSubsurface, File: "subsurface.png", Fallback: FallbackSubsurface, Linear: true,
		})
		require.NoError(t, err)
		assert.True(t, a.Data.Linear, "fallback=%v", a.Fallback)
	}

	l, _ := newTestLoader(fstest.MapFS{})
	a, err := l.LoadTexture(context.Background(), TextureRequest{Name: "srgb noise", File: "n.png", Fallback: FallbackNoise})
	require.NoError(t, err)
	assert.True(t, a.Fallback)
	assert.False(t, a.Data.Linear)
}

func TestLoadTexturesHonoursCancellation(t *testing.T) {
	l, _ := newTestLoader(fstest.MapFS{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.LoadTextures(ctx, DefaultRequests)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCubemapResamplesFaces(t *testing.T) {
	fsys := fstest.MapFS{}
	for i, name := range SkyFaces {
		fsys[name] = &fstest.MapFile{Data: encodeJPEG(t, 8+i)}
	}
	l, _ := newTestLoader(fsys, WithCubeFaceSize(4))

	cube, fallback, err := l.LoadCubemap(context.Background(), SkyFaces)
	require.NoError(t, err)
	assert.False(t, fallback)
	for i, f := range cube.Faces {
		assert.Equal(t, uint32(4), f.Width, SkyFaces[i])
		assert.Equal(t, uint32(4), f.Height, SkyFaces[i])
	}
}

func TestLoadCubemapFallsBackAsAWhole(t *testing.T) {
	fsys := fstest.MapFS{}
	for _, name := range SkyFaces[:5] {
		fsys[name] = &fstest.MapFile{Data: encodeJPEG(t, 8)}
	}
	l, logs := newTestLoader(fsys, WithCubeFaceSize(4))

	cube, fallback, err := l.LoadCubemap(context.Background(), SkyFaces)
	require.NoError(t, err)
	assert.True(t, fallback)
	assert.Equal(t, GradientCubemap(4), cube)
	assert.Contains(t, logs.String(), "sky fallback")
}

func TestLoadSet(t *testing.T) {
	l, _ := newTestLoader(fstest.MapFS{
		"sand.png": {Data: encodePNG(t, 4, 4, color.RGBA{200, 180, 120, 255})},
	}, WithCubeFaceSize(8))

	set, err := l.LoadSet(context.Background())
	require.NoError(t, err)
	assert.False(t, set.Textures[TextureSand].Fallback)
	assert.True(t, set.Textures[TextureGrass].Fallback)
	assert.True(t, set.SkyFallback)
	assert.Equal(t, uint32(8), set.Sky.Size())
}

func TestChecker(t *testing.T) {
	c := Checker(CheckerSize, CheckerCell)
	require.True(t, c.Valid())
	px := func(x, y int) byte { return c.Pixels[(y*CheckerSize+x)*4] }
	assert.Equal(t, byte(255), px(0, 0))
	assert.Equal(t, byte(255), px(31, 31))
	assert.Equal(t, byte(0), px(32, 0))
	assert.Equal(t, byte(0), px(0, 32))
	assert.Equal(t, byte(255), px(32, 32))
}

func TestNoiseIsSeeded(t *testing.T) {
	a := Noise(1, 32)
	assert.Equal(t, a, Noise(1, 32))
	assert.NotEqual(t, a.Pixels, Noise(2, 32).Pixels)

	var lo, hi byte = 255, 0
	for i := 0; i < len(a.Pixels); i += 4 {
		lo, hi = min(lo, a.Pixels[i]), max(hi, a.Pixels[i])
	}
	assert.Less(t, lo, hi)
}

func TestNoiseNormalOfFlatHeightPointsUp(t *testing.T) {
	flat := Checker(4, 4) // a single white cell
	n := NoiseNormal(flat)
	for i := 0; i < len(n.Pixels); i += 4 {
		assert.Equal(t, []byte{128, 128, 255, 255}, n.Pixels[i:i+4])
	}
}

func TestGradientCubemap(t *testing.T) {
	cube := GradientCubemap(4)
	top := cube.Faces[2].Pixels
	bottom := cube.Faces[3].Pixels
	assert.Greater(t, top[2], top[0], "zenith is blue")
	assert.Equal(t, []byte{77, 77, 77, 255}, bottom[:4])
}
